package settings

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

func ptr(f float64) *float64 { return &f }

var testSchema = map[string]any{
	"config_version": 1,
	"tabs": []any{
		map[string]any{
			"title": "Ogólne",
			"groups": []any{
				map[string]any{
					"label": "UI",
					"fields": []any{
						map[string]any{"key": "ui.theme", "type": "enum", "enum": []any{"dark", "light"}},
						map[string]any{"key": "ui.language", "type": "enum", "values": []any{"pl", "en"}},
					},
				},
			},
			"subtabs": []any{
				map[string]any{
					"title": "Obecność",
					"groups": []any{
						map[string]any{
							"label": "Heartbeat",
							"fields": []any{
								map[string]any{"key": "presence.heartbeat_sec", "type": "int", "default": 15, "min": 5, "max": 600},
							},
						},
					},
				},
			},
		},
	},
	"options": []any{
		map[string]any{"key": "backup.keep_last", "type": "int", "min": 1},
		map[string]any{"key": "magazyn.rezerwacje", "type": "bool", "default": true},
		map[string]any{"key": "smtp.password", "type": "string", "scope": "secret"},
		map[string]any{"key": "machine.name", "type": "string", "scope": "local"},
		map[string]any{"key": "limits", "type": "dict", "value_type": "int"},
		map[string]any{"key": "ui.theme", "type": "string"},
	},
}

type fixture struct {
	dir   string
	clock *util.FixedClock
	opts  Options
}

func newFixture(t *testing.T, layers map[string]any) *fixture {
	t.Helper()
	dir := t.TempDir()

	if err := jsonio.Write(filepath.Join(dir, SchemaFile), testSchema); err != nil {
		t.Fatal(err)
	}
	for name, v := range layers {
		if err := jsonio.Write(filepath.Join(dir, name), v); err != nil {
			t.Fatal(err)
		}
	}

	clock := util.NewFixedClock(time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC))
	return &fixture{
		dir:   dir,
		clock: clock,
		opts: Options{
			Dir:       dir,
			BackupDir: filepath.Join(dir, "backup_wersji"),
			AuditPath: filepath.Join(dir, "logs", AuditFileName),
			Logger:    zerolog.Nop(),
			Clock:     clock,
		},
	}
}

func (f *fixture) manager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(f.opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func (f *fixture) auditEntries(t *testing.T) []AuditEntry {
	t.Helper()
	file, err := os.Open(f.opts.AuditPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func healedLayers() map[string]any {
	return map[string]any{
		GlobalFile: map[string]any{
			"ui":     map[string]any{"theme": "dark", "language": "pl"},
			"backup": map[string]any{"keep_last": 10},
		},
	}
}

func TestNew_MissingSchema(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Logger: zerolog.Nop()})
	if !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}
}

func TestSchema_FieldsFlattenTabsAndOptions(t *testing.T) {
	f := newFixture(t, nil)
	m := f.manager(t)

	var keys []string
	for _, field := range m.SchemaFields() {
		keys = append(keys, field.Key)
	}
	want := []string{
		"ui.theme", "ui.language", "presence.heartbeat_sec", "backup.keep_last",
		"magazyn.rezerwacje", "smtp.password", "machine.name", "limits",
	}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("fields = %v, want %v", keys, want)
	}

	// First declaration wins.
	field, _ := m.Schema().Field("ui.theme")
	if field.Type != TypeEnum {
		t.Errorf("expected ui.theme to keep its enum declaration, got %s", field.Type)
	}
}

func TestLayersMergeInOrder(t *testing.T) {
	layers := healedLayers()
	layers[DefaultsFile] = map[string]any{"a": 1, "nested": map[string]any{"x": 1, "y": 1}}
	layers[GlobalFile].(map[string]any)["a"] = 2
	layers[GlobalFile].(map[string]any)["nested"] = map[string]any{"y": 2}
	layers[LocalFile] = map[string]any{"a": 3}
	layers[SecretsFile] = map[string]any{"smtp": map[string]any{"password": "tajne"}}

	m := newFixture(t, layers).manager(t)

	tests := []struct {
		key  string
		want any
	}{
		{"a", float64(3)},
		{"nested.x", float64(1)},
		{"nested.y", float64(2)},
		{"smtp.password", "tajne"},
		{"missing.key", "fallback"},
	}
	for _, tt := range tests {
		if got := m.Get(tt.key, "fallback"); got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestAutoHeal(t *testing.T) {
	f := newFixture(t, nil)
	m := f.manager(t)

	if got := m.GetString("ui.theme", ""); got != "dark" {
		t.Errorf("ui.theme = %q, want dark", got)
	}
	if got := m.GetInt("backup.keep_last", 0); got != 10 {
		t.Errorf("backup.keep_last = %d, want 10", got)
	}

	// Critical keys are persisted to the global layer.
	var global map[string]any
	if err := jsonio.Read(filepath.Join(f.dir, GlobalFile), &global); err != nil {
		t.Fatalf("global layer not written: %v", err)
	}
	if global["ui"].(map[string]any)["language"] != "pl" {
		t.Errorf("ui.language not healed into global: %v", global)
	}

	// Schema defaults are injected in memory only.
	if got := m.GetInt("presence.heartbeat_sec", 0); got != 15 {
		t.Errorf("presence.heartbeat_sec = %d, want schema default 15", got)
	}
	if _, ok := global["presence"]; ok {
		t.Error("schema defaults must not be persisted")
	}

	entries := f.auditEntries(t)
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.User != AutoHealUser {
			t.Errorf("audit user = %q, want %q", e.User, AutoHealUser)
		}
	}

	// A second load finds nothing to heal.
	f.manager(t)
	if got := len(f.auditEntries(t)); got != 3 {
		t.Errorf("expected no new audit entries, got %d total", got)
	}
}

func TestCorruptLayerTreatedAsEmpty(t *testing.T) {
	f := newFixture(t, healedLayers())
	os.WriteFile(filepath.Join(f.dir, LocalFile), []byte("{not json"), 0640)

	m := f.manager(t)
	if got := m.GetString("ui.theme", ""); got != "dark" {
		t.Errorf("expected global value with corrupt local layer, got %q", got)
	}
}

func TestLoadReportsInvalidValues(t *testing.T) {
	layers := healedLayers()
	layers[GlobalFile].(map[string]any)["presence"] = map[string]any{"heartbeat_sec": 1}

	m := newFixture(t, layers).manager(t)
	problems := m.Problems()
	if len(problems) != 1 || !errors.Is(problems[0], models.ErrValidation) {
		t.Errorf("expected one validation problem, got %v", problems)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr bool
	}{
		{"valid int", "presence.heartbeat_sec", 30, false},
		{"int below min", "presence.heartbeat_sec", 3, true},
		{"int above max", "presence.heartbeat_sec", 601, true},
		{"fractional int", "presence.heartbeat_sec", 7.5, true},
		{"enum member", "ui.theme", "light", false},
		{"enum from values", "ui.language", "en", false},
		{"enum outsider", "ui.theme", "pink", true},
		{"bool", "magazyn.rezerwacje", false, false},
		{"bool as string", "magazyn.rezerwacje", "false", true},
		{"dict values match", "limits", map[string]int{"a": 1}, false},
		{"dict value mismatch", "limits", map[string]any{"a": "x"}, true},
		{"unknown key", "custom.flag", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFixture(t, healedLayers()).manager(t)

			err := m.Set(tt.key, tt.value, "tester")
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			want, _ := normalize(tt.value)
			if got := m.Get(tt.key, nil); !equal(got, want) {
				t.Errorf("Get() after Set = %v, want %v", got, want)
			}
		})
	}
}

func TestSet_ScopesAndAudit(t *testing.T) {
	f := newFixture(t, healedLayers())
	m := f.manager(t)

	if err := m.Set("smtp.password", "hunter2", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("machine.name", "stanowisko-3", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveAll(); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	var secrets, local, global map[string]any
	jsonio.Read(filepath.Join(f.dir, SecretsFile), &secrets)
	jsonio.Read(filepath.Join(f.dir, LocalFile), &local)
	jsonio.Read(filepath.Join(f.dir, GlobalFile), &global)

	if secrets["smtp"].(map[string]any)["password"] != "hunter2" {
		t.Errorf("secret not written to secrets layer: %v", secrets)
	}
	if local["machine"].(map[string]any)["name"] != "stanowisko-3" {
		t.Errorf("local field not written to local layer: %v", local)
	}
	if _, ok := global["smtp"]; ok {
		t.Error("secret leaked into global layer")
	}

	entries := f.auditEntries(t)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].After != secretMask || entries[0].Before != nil {
		t.Errorf("secret not masked in audit: %+v", entries[0])
	}
	if entries[1].After != "stanowisko-3" || entries[1].User != "admin" {
		t.Errorf("unexpected audit entry: %+v", entries[1])
	}
}

func TestSaveAll_BackupsPruned(t *testing.T) {
	layers := healedLayers()
	layers[GlobalFile].(map[string]any)["backup"] = map[string]any{"keep_last": 3}
	f := newFixture(t, layers)
	m := f.manager(t)

	for i := 0; i < 5; i++ {
		if err := m.SaveAll(); err != nil {
			t.Fatalf("SaveAll() #%d error = %v", i, err)
		}
		f.clock.Advance(time.Second)
	}

	entries, err := os.ReadDir(f.opts.BackupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(entries))
	}
	// The oldest two were pruned.
	if entries[0].Name() != "config_20250106-080002.json" {
		t.Errorf("oldest kept backup = %s", entries[0].Name())
	}
}

func TestSaveAll_SameSecondBackupsAreUnique(t *testing.T) {
	f := newFixture(t, healedLayers())
	m := f.manager(t)

	m.SaveAll()
	m.SaveAll()

	entries, _ := os.ReadDir(f.opts.BackupDir)
	if len(entries) != 2 {
		t.Errorf("expected 2 distinct backups, got %d", len(entries))
	}
}

func TestExportPublic_ExcludesSecrets(t *testing.T) {
	layers := healedLayers()
	layers[SecretsFile] = map[string]any{"smtp": map[string]any{"password": "tajne"}}
	layers[LocalFile] = map[string]any{"machine": map[string]any{"name": "m1"}}
	f := newFixture(t, layers)
	m := f.manager(t)

	out := filepath.Join(t.TempDir(), "public.json")
	if err := m.ExportPublic(out); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(out)
	if strings.Contains(string(data), "tajne") {
		t.Error("export contains secret")
	}
	if !strings.Contains(string(data), `"m1"`) {
		t.Error("export is missing the local layer")
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t, healedLayers())
	m := f.manager(t)

	in := filepath.Join(t.TempDir(), "import.json")
	jsonio.Write(in, map[string]any{
		"ui":       map[string]any{"theme": "light", "language": "pl"},
		"presence": map[string]any{"heartbeat_sec": 20},
		"limits":   map[string]any{"a": 1},
	})

	diffs, err := m.ImportWithDryRun(in)
	if err != nil {
		t.Fatalf("ImportWithDryRun() error = %v", err)
	}
	want := []Diff{
		{Key: "limits", Current: nil, New: map[string]any{"a": float64(1)}},
		{Key: "presence.heartbeat_sec", Current: float64(15), New: float64(20)},
		{Key: "ui.theme", Current: "dark", New: "light"},
	}
	if len(diffs) != len(want) {
		t.Fatalf("diffs = %+v, want %+v", diffs, want)
	}
	for i := range want {
		if diffs[i].Key != want[i].Key || !equal(diffs[i].Current, want[i].Current) || !equal(diffs[i].New, want[i].New) {
			t.Errorf("diff[%d] = %+v, want %+v", i, diffs[i], want[i])
		}
	}

	// Dry run is pure.
	if m.GetString("ui.theme", "") != "dark" {
		t.Error("dry run modified settings")
	}

	if _, err := m.ApplyImport(in, "importer"); err != nil {
		t.Fatalf("ApplyImport() error = %v", err)
	}
	reloaded := f.manager(t)
	if reloaded.GetString("ui.theme", "") != "light" || reloaded.GetInt("presence.heartbeat_sec", 0) != 20 {
		t.Error("import was not persisted")
	}
}

func TestImport_RejectsInvalid(t *testing.T) {
	m := newFixture(t, healedLayers()).manager(t)

	in := filepath.Join(t.TempDir(), "import.json")
	jsonio.Write(in, map[string]any{"ui": map[string]any{"theme": "pink"}})

	if _, err := m.ImportWithDryRun(in); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOverridesAndPaths(t *testing.T) {
	f := newFixture(t, healedLayers())
	root := t.TempDir()
	f.opts.Overrides = map[string]any{"paths.data_root": root}
	m := f.manager(t)

	if got := m.Paths().Resolve("paths.logs_dir"); got != filepath.Join(root, "logs") {
		t.Errorf("logs dir = %s", got)
	}

	var global map[string]any
	jsonio.Read(filepath.Join(f.dir, GlobalFile), &global)
	if _, ok := global["paths.data_root"]; ok {
		t.Error("override persisted")
	}
}

func TestDefaultSingleton(t *testing.T) {
	f := newFixture(t, healedLayers())

	if _, err := Init(f.opts); err != nil {
		t.Fatal(err)
	}
	if Get("ui.theme", "") != "dark" {
		t.Error("package Get did not read the default manager")
	}

	jsonio.Write(filepath.Join(f.dir, LocalFile), map[string]any{"ui": map[string]any{"theme": "light"}})
	m, err := Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if m.GetString("ui.theme", "") != "light" {
		t.Error("Refresh did not re-read layers")
	}
}

func TestWatch_ReloadsOnExternalWrite(t *testing.T) {
	f := newFixture(t, healedLayers())
	m := f.manager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 4)
	go m.Watch(ctx, func(err error) { reloaded <- err })
	time.Sleep(100 * time.Millisecond)

	jsonio.Write(filepath.Join(f.dir, LocalFile), map[string]any{"ui": map[string]any{"theme": "light"}})

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	if m.GetString("ui.theme", "") != "light" {
		t.Error("expected reloaded value")
	}
}

func TestValidate_Types(t *testing.T) {
	tests := []struct {
		field FieldSpec
		value any
		ok    bool
	}{
		{FieldSpec{Key: "f", Type: TypeFloat, Min: ptr(0), Max: ptr(1)}, 0.5, true},
		{FieldSpec{Key: "f", Type: TypeFloat, Max: ptr(1)}, 1.5, false},
		{FieldSpec{Key: "p", Type: TypePath}, "/tmp", true},
		{FieldSpec{Key: "p", Type: TypePath}, 3.0, false},
		{FieldSpec{Key: "a", Type: TypeArray}, []any{1.0}, true},
		{FieldSpec{Key: "a", Type: TypeArray}, map[string]any{}, false},
		{FieldSpec{Key: "o", Type: TypeObject}, map[string]any{"x": "y"}, true},
		{FieldSpec{Key: "o", Type: TypeObject, ValueType: TypeBool}, map[string]any{"x": "y"}, false},
		{FieldSpec{Key: "e", Type: TypeEnum}, "free", true},
		{FieldSpec{Key: "e", Type: TypeEnum, Enum: []any{1.0}, Values: []any{2.0}}, 2.0, true},
	}

	for _, tt := range tests {
		err := Validate(tt.field, tt.value)
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%s %v) error = %v, want ok=%v", tt.field.Type, tt.value, err, tt.ok)
		}
	}
}
