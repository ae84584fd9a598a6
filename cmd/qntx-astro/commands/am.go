package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/qntx-astro/am"
	"github.com/teranos/qntx-astro/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage qntx-astro configuration",
	Long: `am - Manage qntx-astro configuration ("I am")

Display and manage configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (QNTX_ASTRO_* prefix, OLLAMA_HOST)
3. Project config (./am.toml, searched upwards)
4. User config (~/.qntx-astro/am.toml)
5. System config (/etc/qntx-astro/config.toml)
6. Default values

Examples:
  qntx-astro am show                       # Show current configuration
  qntx-astro am show --format json         # Show configuration in JSON format
  qntx-astro am get advisory.model         # Get specific config value
  qntx-astro am set advisory.enabled false # Persist a value to the user config
  qntx-astro am validate                   # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, advisory.batch_size)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Write one setting to a config file (the user config unless --file is given).
The previous file is kept as .back1 (up to three rotations).

Lists are comma separated: qntx-astro am set catalog.paths ./dicts,./extra.toml`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default",
	RunE:  runAmInit,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and the source of every active setting.`,
	RunE: runAmWhere,
}

var (
	configFormat string
	configFile   string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().StringVar(&configFile, "file", "", "Config file to write (default ~/.qntx-astro/am.toml)")
	amInitCmd.Flags().StringVar(&configFile, "file", "", "Config file to write (default ~/.qntx-astro/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# qntx-astro configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# qntx-astro configuration\n%s", string(data))

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.GetViper().IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func targetFile() string {
	if configFile != "" {
		return configFile
	}
	return am.UserConfigPath()
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := targetFile()
	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}
	am.Reset()
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to reload config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "%s written but the configuration is now invalid", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s (%s)\n", args[0], args[1], path)
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := targetFile()
	if err := am.WriteDefaults(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(out, "  2. [SYSTEM]   /etc/qntx-astro/config.toml")
	fmt.Fprintln(out, "  3. [USER]     ~/.qntx-astro/am.toml")
	fmt.Fprintln(out, "  4. [PROJECT]  ./am.toml (searches up directories)")
	fmt.Fprintln(out, "  5. [ENV]      QNTX_ASTRO_* environment variables")
	fmt.Fprintln(out)

	type fileGroup struct {
		source   am.ConfigSource
		path     string
		settings []am.SettingInfo
	}
	settingsByPath := make(map[string]*fileGroup)
	for _, setting := range intro.Settings {
		key := setting.SourcePath
		if key == "" {
			key = string(setting.Source)
		}
		if group, exists := settingsByPath[key]; exists {
			group.settings = append(group.settings, setting)
		} else {
			settingsByPath[key] = &fileGroup{
				source:   setting.Source,
				path:     setting.SourcePath,
				settings: []am.SettingInfo{setting},
			}
		}
	}

	sourceOrder := []am.ConfigSource{
		am.SourceDefault,
		am.SourceSystem,
		am.SourceUser,
		am.SourceProject,
		am.SourceEnvironment,
	}

	fmt.Fprintln(out, "Active configuration:")
	for _, source := range sourceOrder {
		var groups []*fileGroup
		for _, group := range settingsByPath {
			if group.source == source && len(group.settings) > 0 {
				groups = append(groups, group)
			}
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].path < groups[j].path })

		for _, group := range groups {
			switch {
			case group.path != "":
				fmt.Fprintf(out, "\n%s: %d settings from %s\n", source, len(group.settings), group.path)
			case source == am.SourceEnvironment:
				fmt.Fprintf(out, "\n%s: %d settings from environment variables\n", source, len(group.settings))
			default:
				fmt.Fprintf(out, "\n%s: %d settings\n", source, len(group.settings))
			}
			for _, setting := range group.settings {
				valueStr := fmt.Sprintf("%v", setting.Value)
				if len(valueStr) > 50 {
					valueStr = valueStr[:47] + "..."
				}
				fmt.Fprintf(out, "  %s = %s\n", setting.Key, valueStr)
			}
		}
	}
	return nil
}
