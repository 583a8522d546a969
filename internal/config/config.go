// Package config loads chatvault settings from the config file, environment,
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config are the resolved settings for one invocation. Precedence is flags
// over environment (CHATVAULT_*) over the config file over defaults.
type Config struct {
	DBPath          string   `mapstructure:"db_path"`
	Tier            string   `mapstructure:"tier"` // free | pro
	FreeTierLimit   int      `mapstructure:"free_tier_limit"`
	ImportBatchSize int      `mapstructure:"import_batch_size"`
	LogLevel        string   `mapstructure:"log_level"`
	LogFile         string   `mapstructure:"log_file"`
	WatchDirs       []string `mapstructure:"watch_dirs"`
}

// Load reads the config file at path, or ~/.chatvault/config.yaml when path
// is empty. A missing file is not an error; defaults and environment still
// apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("tier", "free")
	v.SetDefault("free_tier_limit", 100)
	v.SetDefault("import_batch_size", 100)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("CHATVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".chatvault", "config.yaml")
	}
	v.SetConfigFile(path)

	// A missing default config file is fine; an explicitly named one is not.
	if err := v.ReadInConfig(); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Tier != "free" && cfg.Tier != "pro" {
		return nil, fmt.Errorf("invalid tier %q: expected free or pro", cfg.Tier)
	}
	return &cfg, nil
}
