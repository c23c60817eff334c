// Package settings implements the layered workshop configuration: four JSON
// layers merged over a schema, with auto-heal, validation, auditing and
// rotating backups.
package settings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// File names inside the settings directory.
const (
	DefaultsFile = "config.defaults.json"
	GlobalFile   = "config.json"
	LocalFile    = "config.local.json"
	SecretsFile  = "secrets.json"
	SchemaFile   = "settings_schema.json"
)

type layer int

const (
	layerDefaults layer = iota
	layerGlobal
	layerLocal
	layerSecrets
	layerCount
)

var layerFiles = [layerCount]string{DefaultsFile, GlobalFile, LocalFile, SecretsFile}

// critical keys are restored into the global layer when no layer sets them.
var critical = []struct {
	key   string
	value any
}{
	{"ui.theme", "dark"},
	{"ui.language", "pl"},
	{"backup.keep_last", float64(RollbackKeep)},
}

// Options configures a Manager.
type Options struct {
	// Dir holds the four layer files and the schema.
	Dir string

	// SchemaPath overrides <Dir>/settings_schema.json.
	SchemaPath string

	// BackupDir overrides paths.backup_dir.
	BackupDir string

	// AuditPath overrides <paths.logs_dir>/config_audit.jsonl.
	AuditPath string

	// Overrides are applied on top of the merged view and never persisted.
	Overrides map[string]any

	Logger zerolog.Logger
	Clock  util.Clock
}

// Diff is one key an import would change.
type Diff struct {
	Key     string `json:"key"`
	Current any    `json:"current"`
	New     any    `json:"new"`
}

// Manager owns the settings layers for one settings directory.
type Manager struct {
	mu    sync.RWMutex
	opts  Options
	log   zerolog.Logger
	clock util.Clock

	schema   *Schema
	layers   [layerCount]map[string]any
	merged   map[string]any
	problems []error

	// resolves paths against merged; callers must hold mu
	resolver *paths.Resolver
}

// New loads the schema and layers from opts.Dir and applies auto-heal.
// A missing schema is fatal; missing or corrupt layers count as empty.
func New(opts Options) (*Manager, error) {
	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = filepath.Join(opts.Dir, SchemaFile)
	}
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		opts:   opts,
		log:    opts.Logger.With().Str("component", "settings").Logger(),
		clock:  util.OrSystem(opts.Clock),
		schema: schema,
	}
	m.resolver = paths.New(func(key string) (any, bool) {
		return paths.Lookup(m.merged, key)
	})

	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads every layer from disk and rebuilds the merged view.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for l := layerDefaults; l < layerCount; l++ {
		path := m.layerPath(l)
		v, warning, err := jsonio.Load(path, func() map[string]any { return map[string]any{} })
		if err != nil {
			return fmt.Errorf("loading %s: %w", layerFiles[l], err)
		}
		if warning == jsonio.WarningCorrupt {
			m.log.Warn().Str("path", path).Msg("settings layer is corrupt, treating as empty")
		}
		if v == nil {
			v = map[string]any{}
		}
		m.layers[l] = v
	}

	m.remerge()
	if err := m.healCritical(); err != nil {
		return err
	}
	m.validateMerged()
	return nil
}

func (m *Manager) layerPath(l layer) string {
	return filepath.Join(m.opts.Dir, layerFiles[l])
}

// remerge rebuilds merged from the layers, then fills schema defaults.
func (m *Manager) remerge() {
	m.merged = merge(m.layers[:]...)

	for _, f := range m.schema.Fields() {
		if f.Default == nil {
			continue
		}
		if _, ok := paths.Lookup(m.merged, f.Key); ok {
			continue
		}
		def, err := normalize(f.Default)
		if err != nil {
			continue
		}
		setPath(m.merged, f.Key, def)
	}

	if len(m.opts.Overrides) > 0 {
		for k, v := range m.opts.Overrides {
			setPath(m.merged, k, copyValue(v))
		}
	}
}

// healCritical writes missing critical keys into the global layer and
// persists it.
func (m *Manager) healCritical() error {
	files := merge(m.layers[:]...)

	healed := false
	for _, c := range critical {
		if _, ok := paths.Lookup(files, c.key); ok {
			continue
		}
		setPath(m.layers[layerGlobal], c.key, c.value)
		m.audit(AutoHealUser, c.key, nil, c.value)
		m.log.Info().Str("key", c.key).Interface("value", c.value).Msg("auto-healed settings key")
		healed = true
	}
	if !healed {
		return nil
	}

	if err := jsonio.Write(m.layerPath(layerGlobal), m.layers[layerGlobal]); err != nil {
		return fmt.Errorf("persisting auto-healed settings: %w", err)
	}
	m.remerge()
	return nil
}

func (m *Manager) validateMerged() {
	m.problems = nil
	for _, f := range m.schema.Fields() {
		v, ok := paths.Lookup(m.merged, f.Key)
		if !ok {
			continue
		}
		if f.Deprecated {
			m.log.Warn().Str("key", f.Key).Msg("deprecated settings key in use")
		}
		if err := Validate(f, v); err != nil {
			m.problems = append(m.problems, err)
			m.log.Warn().Err(err).Msg("invalid settings value")
		}
	}
}

// Problems returns the validation failures found on the last load.
func (m *Manager) Problems() []error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]error(nil), m.problems...)
}

// Schema returns the loaded schema.
func (m *Manager) Schema() *Schema {
	return m.schema
}

// SchemaFields lists every schema field.
func (m *Manager) SchemaFields() []FieldSpec {
	return m.schema.Fields()
}

// Lookup returns the merged value for a dotted key.
func (m *Manager) Lookup(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := paths.Lookup(m.merged, key)
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Get returns the merged value for key, or def when it is not set.
func (m *Manager) Get(key string, def any) any {
	if v, ok := m.Lookup(key); ok && v != nil {
		return v
	}
	return def
}

// GetString returns a string setting.
func (m *Manager) GetString(key, def string) string {
	if s, ok := m.Get(key, nil).(string); ok {
		return s
	}
	return def
}

// GetFloat returns a numeric setting.
func (m *Manager) GetFloat(key string, def float64) float64 {
	if n, ok := m.Get(key, nil).(float64); ok {
		return n
	}
	return def
}

// GetInt returns an integral setting; fractional values are truncated.
func (m *Manager) GetInt(key string, def int) int {
	if n, ok := m.Get(key, nil).(float64); ok {
		return int(math.Trunc(n))
	}
	return def
}

// GetBool returns a boolean setting.
func (m *Manager) GetBool(key string, def bool) bool {
	if b, ok := m.Get(key, nil).(bool); ok {
		return b
	}
	return def
}

// Merged returns a copy of the full merged view.
func (m *Manager) Merged() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyValue(m.merged).(map[string]any)
}

// Paths returns a resolver over the live merged view.
func (m *Manager) Paths() *paths.Resolver {
	return paths.New(m.Lookup)
}

// Set validates value against the schema, stores it in the field's scope
// layer and audits the change. Use SaveAll to persist.
func (m *Manager) Set(key string, value any, who string) error {
	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, v, who)
}

func (m *Manager) setLocked(key string, v any, who string) error {
	target := layerGlobal
	if f, ok := m.schema.Field(key); ok {
		if err := Validate(f, v); err != nil {
			return err
		}
		switch f.TargetScope() {
		case ScopeLocal:
			target = layerLocal
		case ScopeSecret:
			target = layerSecrets
		}
	}

	before, _ := paths.Lookup(m.merged, key)
	before = copyValue(before)

	setPath(m.layers[target], key, v)
	m.remerge()
	m.audit(who, key, before, v)
	return nil
}

// SaveAll backs up the global layer, writes every layer atomically and
// prunes old backups to backup.keep_last.
func (m *Manager) SaveAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAllLocked()
}

func (m *Manager) saveAllLocked() error {
	dir := m.opts.BackupDir
	if dir == "" {
		dir = m.resolver.Resolve(paths.KeyBackupDir)
	}
	if _, err := m.backup(dir); err != nil {
		return err
	}

	var errs []error
	for l := layerDefaults; l < layerCount; l++ {
		path := m.layerPath(l)
		if len(m.layers[l]) == 0 && l != layerGlobal && !fileExists(path) {
			continue
		}
		if err := jsonio.Write(path, m.layers[l]); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", layerFiles[l], err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	keep := RollbackKeep
	if n, ok := paths.Lookup(m.merged, "backup.keep_last"); ok {
		if f, ok := n.(float64); ok && f > 0 {
			keep = int(f)
		}
	}
	m.pruneBackups(dir, keep)

	m.log.Info().Str("dir", m.opts.Dir).Msg("settings saved")
	return nil
}

// ExportPublic writes defaults, global and local merged, without secrets.
func (m *Manager) ExportPublic(path string) error {
	m.mu.RLock()
	public := merge(m.layers[layerDefaults], m.layers[layerGlobal], m.layers[layerLocal])
	m.mu.RUnlock()

	if err := jsonio.Write(path, public); err != nil {
		return fmt.Errorf("exporting settings: %w", err)
	}
	return nil
}

// ImportWithDryRun validates the settings file at path and returns the keys
// it would change, sorted by key. Nothing is modified.
func (m *Manager) ImportWithDryRun(path string) ([]Diff, error) {
	var incoming map[string]any
	if err := jsonio.Read(path, &incoming); err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	flat := flatten(incoming, func(key string) bool {
		_, ok := m.schema.Field(key)
		return ok
	})

	var (
		diffs []Diff
		errs  []error
	)
	for _, key := range sortedKeys(flat) {
		v := flat[key]
		if f, ok := m.schema.Field(key); ok {
			if err := Validate(f, v); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		cur, _ := paths.Lookup(m.merged, key)
		if equal(cur, v) {
			continue
		}
		diffs = append(diffs, Diff{Key: key, Current: copyValue(cur), New: v})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return diffs, nil
}

// ApplyImport sets every key the import changes and saves all layers.
func (m *Manager) ApplyImport(path, who string) ([]Diff, error) {
	diffs, err := m.ImportWithDryRun(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range diffs {
		if err := m.setLocked(d.Key, d.New, who); err != nil {
			return nil, err
		}
	}
	if err := m.saveAllLocked(); err != nil {
		return nil, err
	}
	return diffs, nil
}

func (m *Manager) auditPath() string {
	if m.opts.AuditPath != "" {
		return m.opts.AuditPath
	}
	return m.resolver.Join(paths.KeyLogsDir, AuditFileName)
}

// Dir returns the settings directory.
func (m *Manager) Dir() string {
	return m.opts.Dir
}

// Exists reports whether the settings directory holds a schema file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, SchemaFile))
	return err == nil
}
