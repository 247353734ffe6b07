// Package config loads the collector's ambient settings: database paths,
// default execution policy, and observability endpoints. Values come from
// (in increasing priority) defaults, a YAML config file, and environment
// variables prefixed VCOLLECTOR_.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the collector core needs outside of a specific
// job or batch descriptor.
type Config struct {
	InventoryDBPath string
	VaultDBPath     string
	TemplatesDBPath string
	HistoryDBPath   string

	OutputDir string

	DefaultMaxWorkers       int
	DefaultPerDeviceTimeout time.Duration
	DefaultInterCommandPause time.Duration

	LogLevel     string
	MetricsPort  int
	OTELEndpoint string
}

// Load reads configuration from defaults, an optional config file at
// cfgFile (or .velocitycollector.yaml in $HOME or the working directory when
// cfgFile is empty and such a file exists), and VCOLLECTOR_-prefixed
// environment variables, in that
// ascending priority order.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("inventory_db_path", "inventory.db")
	v.SetDefault("vault_db_path", "vault.db")
	v.SetDefault("templates_db_path", "templates.db")
	v.SetDefault("history_db_path", "history.db")
	v.SetDefault("output_dir", "./captures")
	v.SetDefault("default_max_workers", 8)
	v.SetDefault("default_per_device_timeout", "30s")
	v.SetDefault("default_inter_command_pause", "0s")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_port", 9090)
	v.SetDefault("otel_endpoint", "localhost:4317")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(".velocitycollector")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VCOLLECTOR")
	v.AutomaticEnv()

	perDeviceTimeout, err := time.ParseDuration(v.GetString("default_per_device_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid default_per_device_timeout: %w", err)
	}
	interCommandPause, err := time.ParseDuration(v.GetString("default_inter_command_pause"))
	if err != nil {
		return nil, fmt.Errorf("invalid default_inter_command_pause: %w", err)
	}

	cfg := &Config{
		InventoryDBPath:          v.GetString("inventory_db_path"),
		VaultDBPath:              v.GetString("vault_db_path"),
		TemplatesDBPath:          v.GetString("templates_db_path"),
		HistoryDBPath:            v.GetString("history_db_path"),
		OutputDir:                v.GetString("output_dir"),
		DefaultMaxWorkers:        v.GetInt("default_max_workers"),
		DefaultPerDeviceTimeout:  perDeviceTimeout,
		DefaultInterCommandPause: interCommandPause,
		LogLevel:                 v.GetString("log_level"),
		MetricsPort:              v.GetInt("metrics_port"),
		OTELEndpoint:             v.GetString("otel_endpoint"),
	}

	if cfg.DefaultMaxWorkers < 1 {
		return nil, fmt.Errorf("default_max_workers must be >= 1, got %d", cfg.DefaultMaxWorkers)
	}

	return cfg, nil
}
