package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_Defaults(t *testing.T) {
	root := t.TempDir()
	r := NewFromMap(map[string]any{"paths": map[string]any{"data_root": root}})

	tests := []struct {
		key  string
		want string
	}{
		{KeyDataRoot, root},
		{KeyLogsDir, filepath.Join(root, "logs")},
		{KeyBackupDir, filepath.Join(root, "backup_wersji")},
		{KeyWarehouseDir, filepath.Join(root, "magazyn")},
		{KeyStockSource, filepath.Join(root, "magazyn", "magazyn.json")},
		{KeyReservationsFile, filepath.Join(root, "magazyn", "rezerwacje.json")},
		{KeyProductsDir, filepath.Join(root, "produkty")},
		{KeyOrdersDir, filepath.Join(root, "zlecenia")},
		{KeyBOMFile, filepath.Join(root, "bom.json")},
		{KeyToolTypesFile, filepath.Join(root, "narzedzia", "typy_narzedzi.json")},
		{KeyToolStatusesFile, filepath.Join(root, "narzedzia", "statusy_narzedzi.json")},
		{KeyTaskTemplates, filepath.Join(root, "narzedzia", "szablony_zadan.json")},
		{KeyMachinesFile, filepath.Join(root, "layout", "maszyny.json")},
		{KeyPresenceFile, filepath.Join(root, "presence.json")},
		{"unknown.key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := r.Resolve(tt.key); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestResolve_ConfiguredValues(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere", "stock.json")

	r := NewFromMap(map[string]any{
		"paths":     map[string]any{"data_root": root, "warehouse_dir": "mag2"},
		"warehouse": map[string]any{"stock_source": abs},
		"bom.file":  `C:\wm\data\bom\bom.json`,
	})

	if got := r.Resolve(KeyStockSource); got != abs {
		t.Errorf("absolute path must be verbatim, got %q", got)
	}
	if got, want := r.Resolve(KeyWarehouseDir), filepath.Join(root, "mag2"); got != want {
		t.Errorf("relative path: got %q, want %q", got, want)
	}
	if got, want := r.Resolve(KeyReservationsFile), filepath.Join(root, "mag2", "rezerwacje.json"); got != want {
		t.Errorf("derived from configured parent: got %q, want %q", got, want)
	}
	if got, want := r.Resolve(KeyBOMFile), filepath.Join(root, "bom", "bom.json"); got != want {
		t.Errorf("legacy prefix: got %q, want %q", got, want)
	}
}

func TestRebase(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "wm")

	tests := []struct {
		name   string
		in     string
		root   string
		want   string
		wantOK bool
	}{
		{"backslash prefix", `C:\wm\data\magazyn\magazyn.json`, root, filepath.Join(root, "magazyn", "magazyn.json"), true},
		{"forward slash prefix", `C:/wm/data/logs`, root, filepath.Join(root, "logs"), true},
		{"lower case", `c:\WM\data`, root, root, true},
		{"sibling directory", `C:\wm\database\x`, root, "", false},
		{"unrelated", `/opt/x`, root, "", false},
		{"root is legacy", `C:\wm\data\logs`, `C:\wm\data`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rebase(tt.in, tt.root)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Rebase(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSetGetter(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	r := NewFromMap(map[string]any{"paths.data_root": first})
	if got := r.DataRoot(); got != first {
		t.Fatalf("expected %q, got %q", first, got)
	}

	r.SetGetter(func(key string) (any, bool) {
		if key == KeyDataRoot {
			return second, true
		}
		return nil, false
	})
	if got := r.Resolve(KeyLogsDir); got != filepath.Join(second, "logs") {
		t.Errorf("expected getter to be used, got %q", got)
	}
}

func TestEnsureCoreTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "wm")
	r := NewFromMap(map[string]any{"paths": map[string]any{"data_root": root}})

	if err := r.EnsureCoreTree(); err != nil {
		t.Fatalf("EnsureCoreTree() error = %v", err)
	}
	for _, key := range CoreDirs {
		info, err := os.Stat(r.Resolve(key))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory for %s", key)
		}
	}
}

func TestEnsureCoreTree_ReportsFailuresAndContinues(t *testing.T) {
	root := t.TempDir()
	// A file where the logs directory should go.
	os.WriteFile(filepath.Join(root, "logs"), []byte("x"), 0640)

	r := NewFromMap(map[string]any{"paths": map[string]any{"data_root": root}})
	if err := r.EnsureCoreTree(); err == nil {
		t.Fatal("expected an error for the blocked logs dir")
	}
	if _, err := os.Stat(filepath.Join(root, "magazyn")); err != nil {
		t.Error("expected other directories to be created")
	}
}

func TestLookup(t *testing.T) {
	m := map[string]any{
		"ui":         map[string]any{"theme": "dark"},
		"ui.density": "compact",
	}
	if v, ok := Lookup(m, "ui.theme"); !ok || v != "dark" {
		t.Errorf("nested lookup: %v %v", v, ok)
	}
	if v, ok := Lookup(m, "ui.density"); !ok || v != "compact" {
		t.Errorf("flat lookup: %v %v", v, ok)
	}
	if _, ok := Lookup(m, "ui.theme.x"); ok {
		t.Error("expected miss through a leaf")
	}
}
