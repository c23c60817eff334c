package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Paths.ConfigDir = ""
	cfg.Logging.Level = "loud"
	cfg.Logging.MaxBackups = -1
	cfg.Board.RefreshSec = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"config_dir", "invalid log level", "max_backups", "refresh_sec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.toml")
	content := `
[paths]
config_dir = "cfg"
data_root = "/srv/wm"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, from, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if from != path {
		t.Errorf("expected path %s, got %s", path, from)
	}
	if cfg.Paths.DataRoot != "/srv/wm" {
		t.Errorf("expected data_root /srv/wm, got %s", cfg.Paths.DataRoot)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	// Unset values keep defaults.
	if cfg.Board.RefreshSec != 5 {
		t.Errorf("expected default refresh 5, got %d", cfg.Board.RefreshSec)
	}
	if got, want := ConfigDir(cfg, from), filepath.Join(filepath.Dir(path), "cfg"); got != want {
		t.Errorf("ConfigDir() = %s, want %s", got, want)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.toml")
	os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0640)

	_, _, err := Load(path, false)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.Path != path {
		t.Errorf("expected path %s, got %s", path, loadErr.Path)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.toml")
	os.WriteFile(path, []byte("[board]\nrefresh = 3\n"), 0640)

	_, _, err := Load(path, false)
	if err == nil || !strings.Contains(err.Error(), "board.refresh") {
		t.Fatalf("expected unknown key error naming board.refresh, got %v", err)
	}
}

func TestLoad_NothingFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())

	_, _, err := Load("", false)
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
	if got := len(SearchPaths("")); got != 2 {
		t.Errorf("expected XDG and working directory candidates, got %d", got)
	}
}

func TestLoad_CreatesDefault(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	chdir(t, t.TempDir())

	cfg, from, err := Load("", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config")
	}
	want := filepath.Join(xdg, XDGConfigSubdir, DefaultConfigFileName)
	if from != want {
		t.Errorf("expected default written to %s, got %s", want, from)
	}

	again, _, err := Load("", false)
	if err != nil {
		t.Fatalf("reloading written default: %v", err)
	}
	if again.Logging.MaxSizeMB != cfg.Logging.MaxSizeMB {
		t.Error("round-tripped default differs")
	}
}

func TestLogFile(t *testing.T) {
	cfg := Default()
	if got := LogFile(cfg, "/data/logs"); got != filepath.Join("/data/logs", "wm.log") {
		t.Errorf("unexpected log file %s", got)
	}
	cfg.Logging.File = ""
	if got := LogFile(cfg, "/data/logs"); got != "" {
		t.Errorf("expected disabled file logging, got %s", got)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	os.WriteFile(dotenv, []byte("WM_AUDIT_FILE=/tmp/audyt.txt\nWM_DATA_ROOT=/from/dotenv\n"), 0640)

	t.Setenv("WM_DEBUG", "1")
	t.Setenv("WM_DATA_ROOT", "/from/env")
	t.Cleanup(func() { os.Unsetenv("WM_AUDIT_FILE") })

	e, err := LoadEnv(dotenv, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if !e.Debug {
		t.Error("expected WM_DEBUG to enable debug")
	}
	if e.AuditFile != "/tmp/audyt.txt" {
		t.Errorf("expected audit file from .env, got %q", e.AuditFile)
	}
	if e.DataRoot != "/from/env" {
		t.Errorf("existing environment must win over .env, got %q", e.DataRoot)
	}

	cfg := Default()
	e.Apply(cfg)
	if cfg.Logging.Level != LogLevelDebug || cfg.Paths.DataRoot != "/from/env" {
		t.Errorf("Apply() did not overlay: %+v", cfg)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
