// Package config handles loading and validating devlog configuration.
// Supports YAML config files and DEVLOG_* environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Validation errors.
var (
	ErrInvalidBufferCapacity = errors.New("run.buffer_capacity must be positive")
	ErrInvalidRetentionDays  = errors.New("retention.days must not be negative")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be json or text")
)

// Config holds all devlog configuration.
type Config struct {
	Lang      string          `mapstructure:"lang"`
	EventLog  string          `mapstructure:"event_log"`
	DBPath    string          `mapstructure:"db_path"`
	SpoolDir  string          `mapstructure:"spool_dir"`
	Run       RunConfig       `mapstructure:"run"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// RunConfig bounds run-session resources.
type RunConfig struct {
	BufferCapacity int `mapstructure:"buffer_capacity"` // console buffer cap in bytes
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Dir           string `mapstructure:"dir"`
	Format        string `mapstructure:"format"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// RetentionConfig controls pruning of stored events.
type RetentionConfig struct {
	Days     int    `mapstructure:"days"`     // 0 disables pruning
	Schedule string `mapstructure:"schedule"` // cron expression for the daemon
}

// DataDir returns the default devlog data directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "devlog")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "devlog", "devlog.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Lang:     "java",
		EventLog: filepath.Join(DataDir(), "events.ndjson"),
		DBPath:   filepath.Join(DataDir(), "devlog.db"),
		SpoolDir: filepath.Join(DataDir(), "spool"),
		Run: RunConfig{
			BufferCapacity: 5 << 20,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Dir:           filepath.Join(DataDir(), "logs"),
			Format:        "json",
			RetentionDays: 7,
		},
		Retention: RetentionConfig{
			Days:     90,
			Schedule: "0 3 * * *",
		},
	}
}

// Load reads configuration from the given file (or the default location when
// path is empty), applies environment overrides, and validates the result.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("DEVLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("lang", cfg.Lang)
	v.SetDefault("event_log", cfg.EventLog)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("spool_dir", cfg.SpoolDir)
	v.SetDefault("run.buffer_capacity", cfg.Run.BufferCapacity)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.dir", cfg.Logging.Dir)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.retention_days", cfg.Logging.RetentionDays)
	v.SetDefault("retention.days", cfg.Retention.Days)
	v.SetDefault("retention.schedule", cfg.Retention.Schedule)
}

// Validate checks configuration invariants.
func Validate(cfg *Config) error {
	if cfg.Run.BufferCapacity <= 0 {
		return ErrInvalidBufferCapacity
	}
	if cfg.Retention.Days < 0 {
		return ErrInvalidRetentionDays
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}
