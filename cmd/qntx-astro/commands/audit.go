package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/internal/app"
)

// AuditCmd inspects the persisted audit trail
var AuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the classification audit log",
	Long: `Inspect the audit trail and schemas recorded by earlier classifications.

Examples:
  qntx-astro audit show --dataset planets
  qntx-astro audit show --run 6f1c... --field sy_dist
  qntx-astro audit schema planets --json
  qntx-astro audit usage --days 30`,
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List audit entries",
	RunE:  runAuditShow,
}

var auditSchemaCmd = &cobra.Command{
	Use:   "schema <dataset>",
	Short: "Show the last saved schema of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditSchema,
}

var auditUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize advisory model calls",
	RunE:  runAuditUsage,
}

var (
	auditDays    int
	auditDataset string
	auditRun     string
	auditField   string
	auditLimit   int
	auditJSON    bool
)

func init() {
	auditShowCmd.Flags().StringVar(&auditDataset, "dataset", "", "Filter by dataset")
	auditShowCmd.Flags().StringVar(&auditRun, "run", "", "Filter by run ID")
	auditShowCmd.Flags().StringVar(&auditField, "field", "", "Filter by field")
	auditShowCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum entries to list (0 = all)")
	auditUsageCmd.Flags().IntVar(&auditDays, "days", 7, "Summarize this many days")
	AuditCmd.PersistentFlags().BoolVarP(&auditJSON, "json", "j", false, "Output as JSON")

	AuditCmd.AddCommand(auditShowCmd)
	AuditCmd.AddCommand(auditSchemaCmd)
	AuditCmd.AddCommand(auditUsageCmd)
}

func openStore() (*app.App, error) {
	a, err := openApp(app.Options{NoAdvisory: true})
	if err != nil {
		return nil, err
	}
	if a.Store == nil {
		a.Close()
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrServiceUnavailable, "audit database disabled"),
			"set database.audit = true in am.toml")
	}
	return a, nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Store.List(context.Background(), audit.Query{
		Dataset: auditDataset,
		RunID:   auditRun,
		Field:   auditField,
		Limit:   auditLimit,
	})
	if err != nil {
		return err
	}

	if auditJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		pterm.Info.Println("No audit entries")
		return nil
	}
	rows := pterm.TableData{{"Time", "Dataset", "Field", "Stage", "Source", "Rule", "Quantity", "Confidence"}}
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Dataset,
			e.Field,
			string(e.Stage),
			string(e.Source),
			e.Rule,
			string(e.Quantity),
			fmt.Sprintf("%.2f", e.Confidence),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runAuditSchema(cmd *cobra.Command, args []string) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.Close()

	fields, err := a.Store.Schema(context.Background(), args[0])
	if err != nil {
		return err
	}
	if auditJSON {
		return printJSON(cmd, fields)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(fieldRows(fields)).Render()
}

func runAuditUsage(cmd *cobra.Command, args []string) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Usage.Report(context.Background(), auditDays)
	if err != nil {
		return err
	}
	if auditJSON {
		return printJSON(cmd, report)
	}

	st := report.Stats
	pterm.Info.Printf("Advisory calls since %s\n", report.Since.Local().Format("2006-01-02 15:04"))
	pterm.Printf("  Requests:   %d (%d corrective)\n", st.TotalRequests, st.CorrectiveRequests)
	pterm.Printf("  Successful: %d (%.0f%%)\n", st.SuccessfulRequests, st.SuccessRate*100)
	pterm.Printf("  Fields:     %d\n", st.FieldsAsked)
	pterm.Printf("  Avg time:   %.0f ms\n", st.AvgDurationMS)
	pterm.Println()
	if len(report.Models) == 0 {
		return nil
	}
	rows := pterm.TableData{{"Model", "Requests", "Successful", "Avg ms"}}
	for _, m := range report.Models {
		rows = append(rows, []string{m.ModelName, fmt.Sprint(m.RequestCount), fmt.Sprint(m.SuccessCount), fmt.Sprintf("%.0f", m.AvgDurationMS)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
