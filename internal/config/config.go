// Package config provides the launcher configuration for Warsztat Menager.
// It is loaded from a TOML file with XDG-compliant paths and tells the process
// where the workshop settings live and how to log. Workshop settings
// themselves are managed by the settings package.
package config

import (
	"errors"
	"fmt"
)

// Config holds the complete launcher configuration.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Watchers WatchersConfig `toml:"watchers"`
}

// PathsConfig locates the settings directory and optionally the data root.
type PathsConfig struct {
	// ConfigDir holds config.defaults.json, config.json, config.local.json,
	// secrets.json and settings_schema.json.
	ConfigDir string `toml:"config_dir"`

	// DataRoot overrides paths.data_root from the workshop settings.
	DataRoot string `toml:"data_root"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      LogLevel `toml:"level"`
	File       string   `toml:"file"`
	Console    bool     `toml:"console"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// BoardConfig controls the terminal status board.
type BoardConfig struct {
	RefreshSec int `toml:"refresh_sec"`
}

// WatchersConfig controls the background loops.
type WatchersConfig struct {
	AbsenceIntervalSec int  `toml:"absence_interval_sec"`
	WatchSettings      bool `toml:"watch_settings"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Paths.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("paths: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if c.Board.RefreshSec < 1 {
		errs = append(errs, errors.New("board: refresh_sec must be positive"))
	}

	if c.Watchers.AbsenceIntervalSec < 1 {
		errs = append(errs, errors.New("watchers: absence_interval_sec must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the paths configuration is valid.
func (p *PathsConfig) Validate() error {
	if p.ConfigDir == "" {
		return errors.New("config_dir is required")
	}
	return nil
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}

	if !validLevels[l.Level] && l.Level != "" {
		errs = append(errs, fmt.Errorf("invalid log level: %s", l.Level))
	}

	if l.MaxSizeMB < 0 {
		errs = append(errs, errors.New("max_size_mb must be non-negative"))
	}

	if l.MaxBackups < 0 {
		errs = append(errs, errors.New("max_backups must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			ConfigDir: ".",
			DataRoot:  "",
		},
		Logging: LoggingConfig{
			Level:      LogLevelInfo,
			File:       "wm.log",
			Console:    false,
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Board: BoardConfig{
			RefreshSec: 5,
		},
		Watchers: WatchersConfig{
			AbsenceIntervalSec: 60,
			WatchSettings:      true,
		},
	}
}
