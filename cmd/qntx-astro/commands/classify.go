package commands

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/ingest"
	"github.com/teranos/qntx-astro/internal/app"
	"github.com/teranos/qntx-astro/schema"
)

// ClassifyCmd classifies the columns of a catalog file
var ClassifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify the columns of a CSV/TSV catalog",
	Long: `Classify every column of a CSV or TSV catalog into a physical quantity,
encoding and recommended unit.

Leading '#' lines are read as header metadata: bracketed units
("# col8 [mag]: V band"), FITS TUNITn cards and VOTable FIELD elements
are all honored.

Examples:
  qntx-astro classify planets.csv
  qntx-astro classify planets.csv --json --audit
  qntx-astro classify gaia.tsv --unit-hint parallax=mas --no-advisory`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var (
	classifyJSON       bool
	classifyAudit      bool
	classifyNoAdvisory bool
	classifyNoDB       bool
	classifyDataset    string
	classifySampleRows int
	classifyUnitHints  []string
)

func init() {
	ClassifyCmd.Flags().BoolVarP(&classifyJSON, "json", "j", false, "Output the result as JSON")
	ClassifyCmd.Flags().BoolVar(&classifyAudit, "audit", false, "Include the audit trail in the output")
	ClassifyCmd.Flags().BoolVar(&classifyNoAdvisory, "no-advisory", false, "Skip the advisory model and use heuristics only")
	ClassifyCmd.Flags().BoolVar(&classifyNoDB, "no-db", false, "Do not persist the audit trail or schema")
	ClassifyCmd.Flags().StringVar(&classifyDataset, "dataset", "", "Dataset name (defaults to the file name)")
	ClassifyCmd.Flags().IntVar(&classifySampleRows, "sample-rows", 20, "Number of data rows sampled per column (0 = all)")
	ClassifyCmd.Flags().StringArrayVar(&classifyUnitHints, "unit-hint", nil, "Unit hint as field=unit (repeatable)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	hints, err := parseAssignments(classifyUnitHints)
	if err != nil {
		return err
	}
	t, err := readTable(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(app.Options{NoAdvisory: classifyNoAdvisory, NoDatabase: classifyNoDB})
	if err != nil {
		return err
	}
	defer a.Close()

	res := classifyTable(cmd.Context(), a, t, datasetName(args[0], classifyDataset), hints)
	if !classifyAudit {
		res.Audit = nil
	}

	if classifyJSON {
		return printJSON(cmd, res)
	}
	return renderResult(res)
}

func classifyTable(ctx context.Context, a *app.App, t *table, dataset string, hints map[string]string) ingest.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	var hc advisory.HealthCache
	return a.Classifier.Classify(ctx, t.request(dataset, classifySampleRows, hints), &hc)
}

func renderResult(res ingest.Result) error {
	pterm.DefaultHeader.WithFullWidth().Printf("%s (%d columns)", res.Dataset, len(res.Fields))
	pterm.Println()

	if err := pterm.DefaultTable.WithHasHeader().WithData(fieldRows(res.Fields)).Render(); err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	pterm.Println()

	if res.Explicit {
		pterm.Info.Printf("Explicit unit metadata found (%s)\n", res.ExplicitSource)
	}
	switch {
	case res.Source == ingest.SourceLLM && !res.UsedFallback:
		pterm.Success.Println("All unresolved columns answered by the advisory model")
	case res.Source == ingest.SourceLLM:
		pterm.Warning.Println("Advisory model answered some columns; the rest use heuristic fallback")
	default:
		pterm.Warning.Println("Advisory model unavailable or not needed; heuristic classification only")
	}
	if len(res.Audit) > 0 {
		pterm.Println()
		pterm.Info.Printf("Audit trail (run %s):\n", res.RunID)
		for _, e := range res.Audit {
			pterm.Printf("  %-20s %-10s %-14s %-16s %.2f\n", e.Field, e.Stage, e.Source, e.Quantity, e.Confidence)
		}
	}
	return nil
}

func fieldRows(fields []schema.FieldClassification) pterm.TableData {
	rows := pterm.TableData{{"Field", "Quantity", "Encoding", "Unit", "Confidence", "Provenance", "Note"}}
	for _, fc := range fields {
		rows = append(rows, []string{
			fc.Field,
			string(fc.PhysicalQuantity),
			string(fc.Encoding),
			unitLabel(fc),
			fmt.Sprintf("%.2f", fc.Confidence),
			string(fc.Provenance),
			fc.Warning,
		})
	}
	return rows
}

func unitLabel(fc schema.FieldClassification) string {
	if fc.Unit() == "" {
		return "-"
	}
	return fc.Unit()
}
