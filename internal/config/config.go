package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the detection pipeline.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Workers    WorkersConfig    `mapstructure:"workers"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SummarizerConfig controls the external summary generator.
type SummarizerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// WorkersConfig controls the detection worker pool.
type WorkersConfig struct {
	Count int `mapstructure:"count"`
}

// StorageConfig controls snapshot and result I/O.
type StorageConfig struct {
	ResultsPrefix string `mapstructure:"results_prefix"`
	AnonymousGCS  bool   `mapstructure:"anonymous_gcs"`
}

// Load reads configuration from defaults, an optional config file
// ($HOME/.buildtrace/config.yaml unless viper was pointed elsewhere),
// and BUILDTRACE_* environment variables.
func Load() (*Config, error) {
	setDefaults()

	if viper.ConfigFileUsed() == "" {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".buildtrace"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("BUILDTRACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("summarizer.enabled", false)
	viper.SetDefault("summarizer.model", "claude-3-5-haiku-latest")
	viper.SetDefault("summarizer.timeout_seconds", 10)

	viper.SetDefault("workers.count", 0) // 0 means NumCPU

	viper.SetDefault("storage.results_prefix", "")
	viper.SetDefault("storage.anonymous_gcs", false)
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Summarizer.Enabled && c.Summarizer.TimeoutSeconds <= 0 {
		return fmt.Errorf("summarizer is enabled but timeout_seconds is %d", c.Summarizer.TimeoutSeconds)
	}
	if c.Workers.Count < 0 {
		return fmt.Errorf("workers.count cannot be negative")
	}
	return nil
}
