package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/teranos/qntx-astro/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

// UserConfigPath returns ~/.qntx-astro/am.toml
func UserConfigPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "am.toml")
}

func readTOML(configPath string) (map[string]interface{}, error) {
	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

func writeTOML(configPath string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite()
	}
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// SetValue writes one dotted key into the TOML file at configPath, keeping
// every other key. The value is coerced to the type of the key's default.
func SetValue(configPath, key, raw string) error {
	def := defaultsViper().Get(key)
	if def == nil {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrInvalidRequest, "unknown setting %q", key),
			"run 'qntx-astro am show' to list settings")
	}
	value, err := coerce(raw, def)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "setting %s: %v", key, err)
	}

	config, err := readTOML(configPath)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	section := config
	for _, p := range parts[:len(parts)-1] {
		next, ok := section[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[p] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	return writeTOML(configPath, config)
}

// WriteDefaults writes the full default configuration to configPath
func WriteDefaults(configPath string) error {
	var config Config
	if _, err := os.Stat(configPath); err == nil {
		return errors.WithHintf(
			errors.Newf("%s already exists", configPath),
			"use 'qntx-astro am set' to change individual settings")
	}
	if err := defaultsViper().Unmarshal(&config); err != nil {
		return errors.Wrap(err, "failed to build default config")
	}
	return writeTOML(configPath, config)
}

// Defaults returns the configuration with no files or environment applied
func Defaults() *Config {
	var config Config
	_ = defaultsViper().Unmarshal(&config)
	return &config
}

func defaultsViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func coerce(raw string, def interface{}) (interface{}, error) {
	switch def.(type) {
	case bool:
		return cast.ToBoolE(raw)
	case int:
		return cast.ToIntE(raw)
	case float64:
		return cast.ToFloat64E(raw)
	case []string:
		if strings.TrimSpace(raw) == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return raw, nil
	}
}
