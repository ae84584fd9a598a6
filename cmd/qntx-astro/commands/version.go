package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show qntx-astro version information",
	Long:  `Display version, build time, commit hash, and platform information for the qntx-astro binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		require, _ := cmd.Flags().GetString("require")

		info := version.Get()

		if require != "" {
			ok, err := version.Satisfies(require, info.Version)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("qntx-astro %s does not satisfy %s", info.Version, require)
			}
		}

		if jsonOutput {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("error formatting JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s\n", info.Platform)
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	VersionCmd.Flags().String("require", "", "Fail unless the binary satisfies this semver constraint (e.g. '>= 0.3')")
}
