// Package config handles loading, validating, and writing sidework
// configuration. Supports YAML config files and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all sidework configuration.
type Config struct {
	Logging  LoggingConfig   `mapstructure:"logging"`
	History  HistoryConfig   `mapstructure:"history"`
	UI       UIConfig        `mapstructure:"ui"`
	Schedule []ScheduleEntry `mapstructure:"schedule"`
}

// LoggingConfig controls the structured application log.
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Path          string `mapstructure:"path"`
	Format        string `mapstructure:"format"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// HistoryConfig controls invocation history recording.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	Plain   bool `mapstructure:"plain"`
	NoColor bool `mapstructure:"no_color"`
}

// ScheduleEntry names one command run on a cron schedule by `sidework
// watch`.
type ScheduleEntry struct {
	Name    string   `mapstructure:"name"`
	Cron    string   `mapstructure:"cron"`
	Command []string `mapstructure:"command"`
}

// Validation errors.
var (
	ErrInvalidLogLevel        = errors.New("invalid logging.level (want debug, info, warn, or error)")
	ErrInvalidLogFormat       = errors.New("invalid logging.format (want json or text)")
	ErrScheduleMissingName    = errors.New("schedule entry missing name")
	ErrScheduleMissingCron    = errors.New("schedule entry missing cron expression")
	ErrScheduleMissingCommand = errors.New("schedule entry missing command")
)

// Default returns the stock configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "sidework")
	return &Config{
		Logging: LoggingConfig{
			Level:         "info",
			Path:          filepath.Join(dataDir, "logs"),
			Format:        "json",
			RetentionDays: 7,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "sidework.db"),
		},
	}
}

// GlobalConfigPath returns the canonical config file location.
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sidework", "sidework.yaml")
}

// Load reads configuration from path, or from the standard locations when
// path is empty (~/.config/sidework, then the working directory). A missing
// file in the standard locations falls back to defaults; an explicit path
// must exist. Environment variables prefixed SIDEWORK_ override file
// values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sidework")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sidework"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SIDEWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Logging.Path = expandPath(cfg.Logging.Path)
	cfg.History.Path = expandPath(cfg.History.Path)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, preserving unrelated keys already in the
// file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.path", cfg.Logging.Path)
	v.Set("logging.format", cfg.Logging.Format)
	v.Set("logging.retention_days", cfg.Logging.RetentionDays)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.path", cfg.History.Path)
	v.Set("ui.plain", cfg.UI.Plain)
	v.Set("ui.no_color", cfg.UI.NoColor)
	v.Set("schedule", cfg.Schedule)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			return v.SafeWriteConfig()
		}
		return err
	}
	return nil
}

// Validate checks cfg for values the rest of the program would choke on.
// Empty strings are allowed where a default exists.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return ErrInvalidLogFormat
	}

	for _, entry := range cfg.Schedule {
		if entry.Name == "" {
			return ErrScheduleMissingName
		}
		if entry.Cron == "" {
			return ErrScheduleMissingCron
		}
		if len(entry.Command) == 0 {
			return ErrScheduleMissingCommand
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.path", def.Logging.Path)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.retention_days", def.Logging.RetentionDays)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("ui.plain", false)
	v.SetDefault("ui.no_color", false)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
