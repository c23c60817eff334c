// Package testutil provides utilities for testing.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
)

// DataDir is a temporary data root laid out like a workshop install.
type DataDir struct {
	Root     string
	Resolver *paths.Resolver
}

// NewDataDir creates a data root with the standard directory tree.
func NewDataDir(t *testing.T) *DataDir {
	t.Helper()

	root := t.TempDir()
	r := paths.NewFromMap(map[string]any{paths.KeyDataRoot: root})
	if err := r.EnsureCoreTree(); err != nil {
		t.Fatalf("failed to create data tree: %v", err)
	}

	return &DataDir{Root: root, Resolver: r}
}

// Path resolves a logical settings key, joined with elem.
func (d *DataDir) Path(key string, elem ...string) string {
	return d.Resolver.Join(key, elem...)
}

// WriteJSON writes v to path.
func (d *DataDir) WriteJSON(t *testing.T, path string, v any) {
	t.Helper()

	if err := jsonio.Write(path, v); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadJSON decodes path into v.
func (d *DataDir) ReadJSON(t *testing.T, path string, v any) {
	t.Helper()

	if err := jsonio.Read(path, v); err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
}

// ReadRaw decodes path into a generic map.
func (d *DataDir) ReadRaw(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return m
}

// AssertFileExists fails the test if path does not exist.
func (d *DataDir) AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", filepath.Base(path), err)
	}
}

// AssertFileCount asserts the number of files in dir matching pattern.
func (d *DataDir) AssertFileCount(t *testing.T, dir, pattern string, expected int) {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		t.Fatalf("bad pattern %s: %v", pattern, err)
	}
	if len(matches) != expected {
		t.Errorf("expected %d files matching %s in %s, got %d", expected, pattern, dir, len(matches))
	}
}

// WriteFile writes raw content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WriteJSONFile writes v to path through the atomic writer.
func WriteJSONFile(t *testing.T, path string, v any) {
	t.Helper()

	if err := jsonio.Write(path, v); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ReadJSONFile decodes path into v.
func ReadJSONFile(t *testing.T, path string, v any) {
	t.Helper()

	if err := jsonio.Read(path, v); err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
}

// AssertNoFile fails the test if path exists.
func AssertNoFile(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected %s not to exist", filepath.Base(path))
	}
}
