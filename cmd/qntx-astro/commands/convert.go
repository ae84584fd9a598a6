package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/convert"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/internal/app"
)

// ConvertCmd converts selected catalog columns to other units
var ConvertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert catalog columns to other units",
	Long: `Classify a catalog, then rewrite the selected columns in the requested
units. Columns that are logarithmic, calendar dates or dimensionless are
never converted; a target unit outside the column's quantity is skipped.

Examples:
  qntx-astro convert planets.csv --to sy_dist=ly --to pl_orbper=yr
  qntx-astro convert planets.csv --to sy_dist=ly --specs-only
  qntx-astro convert gaia.tsv --to parallax=arcsec -o gaia_arcsec.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var (
	convertTargets    []string
	convertOut        string
	convertSpecsOnly  bool
	convertNoAdvisory bool
	convertDataset    string
)

func init() {
	ConvertCmd.Flags().StringArrayVar(&convertTargets, "to", nil, "Target unit as field=unit (repeatable)")
	ConvertCmd.Flags().StringVarP(&convertOut, "output", "o", "", "Write the converted table here instead of stdout")
	ConvertCmd.Flags().BoolVar(&convertSpecsOnly, "specs-only", false, "Print the conversion specs as JSON and exit")
	ConvertCmd.Flags().BoolVar(&convertNoAdvisory, "no-advisory", false, "Skip the advisory model and use heuristics only")
	ConvertCmd.Flags().StringVar(&convertDataset, "dataset", "", "Dataset name (defaults to the file name)")
	ConvertCmd.MarkFlagRequired("to")
}

func runConvert(cmd *cobra.Command, args []string) error {
	selected, err := parseAssignments(convertTargets)
	if err != nil {
		return err
	}
	t, err := readTable(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(app.Options{NoAdvisory: convertNoAdvisory, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res := classifyTable(cmd.Context(), a, t, datasetName(args[0], convertDataset), nil)
	specs := a.Classifier.ConversionSpecs(res, selected)
	for field, unit := range selected {
		if !hasSpec(specs, field) {
			pterm.Warning.Printf("No conversion for %s to %s (unknown column, same unit, or not convertible)\n", field, unit)
		}
	}

	if convertSpecsOnly {
		if specs == nil {
			specs = []convert.ConversionSpec{}
		}
		data, err := json.MarshalIndent(specs, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal specs")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	if convertOut != "" {
		f, err := os.Create(convertOut)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", convertOut)
		}
		defer f.Close()
		out = f
	}
	if err := writeConverted(out, t, specs); err != nil {
		return err
	}
	if convertOut != "" {
		pterm.Success.Printf("Converted %d rows (%d columns) to %s\n", len(t.Rows), len(specs), convertOut)
	}
	return nil
}

func hasSpec(specs []convert.ConversionSpec, field string) bool {
	for _, s := range specs {
		if s.Field == field {
			return true
		}
	}
	return false
}

// writeConverted writes the table with specs applied, renaming converted
// columns' headers to carry the new unit
func writeConverted(w io.Writer, t *table, specs []convert.ConversionSpec) error {
	cw := csv.NewWriter(w)
	if t.FileType == "tsv" {
		cw.Comma = '\t'
	}

	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
		for _, s := range specs {
			if s.Field == h {
				headers[i] = fmt.Sprintf("%s [%s]", h, s.ToUnit)
			}
		}
	}
	if err := cw.Write(headers); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	for _, row := range t.records() {
		converted := convert.Transform(row, specs)
		record := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			record[i] = cast.ToString(converted[h])
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush output")
}
