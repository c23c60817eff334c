package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the environment overrides.
type Env struct {
	Debug     bool   `env:"WM_DEBUG" envDefault:"false"`
	AuditFile string `env:"WM_AUDIT_FILE"`
	Config    string `env:"WM_CONFIG"`
	DataRoot  string `env:"WM_DATA_ROOT"`
}

// LoadEnv loads optional .env files (existing variables win) and parses the
// WM_* variables.
func LoadEnv(dotenvFiles ...string) (Env, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// Apply overlays environment overrides onto cfg.
func (e Env) Apply(cfg *Config) {
	if e.DataRoot != "" {
		cfg.Paths.DataRoot = e.DataRoot
	}
	if e.Debug {
		cfg.Logging.Level = LogLevelDebug
	}
}
