package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "wm.toml"

	// XDGConfigSubdir is the subdirectory under XDG_CONFIG_HOME for wm.
	XDGConfigSubdir = "wm"
)

// ErrNoConfig is returned by Load when no launcher file exists and
// createDefault is false.
var ErrNoConfig = errors.New("no wm.toml found")

// LoadError wraps a failure to read or validate one launcher file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SearchPaths lists the launcher files Load considers, in order. An explicit
// path is the only candidate when given.
func SearchPaths(explicitPath string) []string {
	if explicitPath != "" {
		return []string{explicitPath}
	}
	var out []string
	if xdg := xdgConfigPath(); xdg != "" {
		out = append(out, xdg)
	}
	return append(out, filepath.Join(".", DefaultConfigFileName))
}

// Load reads the first existing file of SearchPaths. With nothing found and
// createDefault set, the defaults are written to the XDG location (or the
// working directory when that cannot be created) and returned. An unwritable
// default still yields the in-memory config with an empty path.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	candidates := SearchPaths(explicitPath)
	for _, path := range candidates {
		if explicitPath == "" && !fileExists(path) {
			continue
		}
		cfg, err := loadFromFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", fmt.Errorf("%w (searched %s)", ErrNoConfig, strings.Join(candidates, ", "))
	}

	cfg := Default()
	target := candidates[len(candidates)-1]
	if len(candidates) > 1 && os.MkdirAll(filepath.Dir(candidates[0]), 0750) == nil {
		target = candidates[0]
	}
	if err := Save(cfg, target); err != nil {
		return cfg, "", nil
	}
	return cfg, target, nil
}

// loadFromFile decodes path over the defaults, so absent keys keep them.
func loadFromFile(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

const fileHeader = `# Warsztat Menager launcher configuration
#
# Workshop settings (config.json and friends) live in paths.config_dir.
# This file was auto-generated. Edit as needed.

`

// Save writes cfg as TOML. The file is written next to path and renamed
// into place.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0640); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// xdgConfigPath is $XDG_CONFIG_HOME/wm/wm.toml, falling back to ~/.config.
// Empty when neither is known.
func xdgConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, XDGConfigSubdir, DefaultConfigFileName)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ConfigDir returns the absolute settings directory. A relative config_dir is
// taken relative to the directory of the launcher file it was read from.
func ConfigDir(cfg *Config, loadedFrom string) string {
	dir := cfg.Paths.ConfigDir
	if !filepath.IsAbs(dir) && loadedFrom != "" {
		dir = filepath.Join(filepath.Dir(loadedFrom), dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// LogFile returns the log file path; a relative file is placed in logsDir.
// Returns empty string when file logging is disabled.
func LogFile(cfg *Config, logsDir string) string {
	if cfg.Logging.File == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Logging.File) {
		return cfg.Logging.File
	}
	return filepath.Join(logsDir, cfg.Logging.File)
}
