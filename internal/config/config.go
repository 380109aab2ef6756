// Package config loads tdvault settings from defaults, an optional
// tdvault.yaml, TDVAULT_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "tdvault"
	envPrefix = "TDVAULT"
)

// Config holds the effective settings
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	Format    string `mapstructure:"format" yaml:"format"`
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
	Keyring   bool   `mapstructure:"keyring" yaml:"keyring"`

	// Secrets come from TDVAULT_PASSCODE and TDVAULT_STORE_PASSWORD and
	// are never written out.
	Passcode         string `mapstructure:"passcode" yaml:"-"`
	PasscodeSet      bool   `mapstructure:"-" yaml:"-"`
	StorePassword    string `mapstructure:"store_password" yaml:"-"`
	StorePasswordSet bool   `mapstructure:"-" yaml:"-"`
}

// flagKeys maps config keys to the command flags that override them
var flagKeys = map[string]string{
	"log_level":  "log-level",
	"format":     "format",
	"workers":    "workers",
	"store_path": "store",
	"keyring":    "keyring",
}

// Defaults returns the built-in settings
func Defaults() map[string]any {
	return map[string]any{
		"log_level":  "warn",
		"format":     "text",
		"workers":    4,
		"store_path": DefaultStorePath(),
		"keyring":    true,
	}
}

// DefaultStorePath returns the credential store location in the user
// config directory
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "credentials.db")
	}
	return filepath.Join(dir, appName, "credentials.db")
}

// UserConfigPath returns the user configuration file path
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName, appName+".yaml"), nil
}

// Load builds the configuration. configFile, when non-empty, must exist;
// otherwise tdvault.yaml is looked up in the user config dir and the
// working directory and may be absent.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if path, err := UserConfigPath(); err == nil {
			v.AddConfigPath(filepath.Dir(path))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	for _, key := range []string{"passcode", "store_password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if cmd != nil {
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.PasscodeSet = v.IsSet("passcode")
	c.StorePasswordSet = v.IsSet("store_password")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// WriteFile writes c as YAML to path, creating parent directories
func WriteFile(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
