package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/am"
	"github.com/teranos/qntx-astro/cmd/qntx-astro/commands"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/logger"
)

var rootCmd = &cobra.Command{
	Use:   "qntx-astro",
	Short: "qntx-astro - classify astronomical catalog columns",
	Long: `qntx-astro - Physical quantity classification for astronomical catalogs.

Each column of a catalog is mapped to a physical quantity, an encoding and a
unit. Deterministic heuristics decide first; a local language model is asked
only for columns the heuristics leave unresolved.

Available commands:
  classify - Classify the columns of a CSV/TSV catalog
  convert  - Convert catalog columns to other units
  audit    - Inspect the classification audit log
  serve    - Start the classification HTTP API
  am       - Manage qntx-astro configuration ("I am")

Examples:
  qntx-astro classify planets.csv          # Classify with advisory fallback
  qntx-astro classify planets.csv --json   # Machine-readable result
  qntx-astro convert planets.csv --to sy_dist=ly
  qntx-astro serve                         # Start the HTTP API
  qntx-astro am show                       # Show current configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		level := logger.EffectiveLevel(logger.ParseLevel(cfg.Log.Level), verbosity)
		if err := logger.Initialize(cfg.Log.JSON, level); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.AuditCmd)
	rootCmd.AddCommand(commands.ClassifyCmd)
	rootCmd.AddCommand(commands.ConvertCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
