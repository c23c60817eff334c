// Package paths maps logical settings keys to filesystem locations under the
// configured data root.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Logical keys understood by the resolver.
const (
	KeyDataRoot         = "paths.data_root"
	KeyLogsDir          = "paths.logs_dir"
	KeyBackupDir        = "paths.backup_dir"
	KeyLayoutDir        = "paths.layout_dir"
	KeyWarehouseDir     = "paths.warehouse_dir"
	KeyProductsDir      = "paths.products_dir"
	KeySemiProductsDir  = "paths.semi_products_dir"
	KeyToolsDir         = "paths.tools_dir"
	KeyOrdersDir        = "paths.orders_dir"
	KeyPurchaseDir      = "paths.purchase_dir"
	KeySchedulesDir     = "paths.schedules_dir"
	KeyStockSource      = "warehouse.stock_source"
	KeyReservationsFile = "warehouse.reservations_file"
	KeyBOMFile          = "bom.file"
	KeyToolTypesFile    = "tools.types_file"
	KeyToolStatusesFile = "tools.statuses_file"
	KeyTaskTemplates    = "tools.task_templates_file"
	KeyMachinesFile     = "hall.machines_file"
	KeyPresenceFile     = "presence.file"
	KeyAlertsFile       = "alerts.file"
	KeyUsersFile        = "users.file"
)

// DefaultDataRoot is used when paths.data_root is not configured.
const DefaultDataRoot = "data"

// legacyRoots are the Windows install defaults older configs still carry.
var legacyRoots = []string{`c:\wm\data`, `c:/wm/data`}

type derived struct {
	parent string // "" means the data root
	name   string
}

var defaults = map[string]derived{
	KeyLogsDir:          {"", "logs"},
	KeyBackupDir:        {"", "backup_wersji"},
	KeyLayoutDir:        {"", "layout"},
	KeyWarehouseDir:     {"", "magazyn"},
	KeyProductsDir:      {"", "produkty"},
	KeySemiProductsDir:  {"", "polprodukty"},
	KeyToolsDir:         {"", "narzedzia"},
	KeyOrdersDir:        {"", "zlecenia"},
	KeyPurchaseDir:      {"", "zamowienia"},
	KeySchedulesDir:     {"", "grafiki"},
	KeyStockSource:      {KeyWarehouseDir, "magazyn.json"},
	KeyReservationsFile: {KeyWarehouseDir, "rezerwacje.json"},
	KeyBOMFile:          {"", "bom.json"},
	KeyToolTypesFile:    {KeyToolsDir, "typy_narzedzi.json"},
	KeyToolStatusesFile: {KeyToolsDir, "statusy_narzedzi.json"},
	KeyTaskTemplates:    {KeyToolsDir, "szablony_zadan.json"},
	KeyMachinesFile:     {KeyLayoutDir, "maszyny.json"},
	KeyPresenceFile:     {"", "presence.json"},
	KeyAlertsFile:       {"", "alerts.json"},
	KeyUsersFile:        {"", "uzytkownicy.json"},
}

// CoreDirs lists the directories EnsureCoreTree creates.
var CoreDirs = []string{
	KeyLogsDir, KeyBackupDir, KeyLayoutDir, KeyWarehouseDir, KeyProductsDir,
	KeySemiProductsDir, KeyToolsDir, KeyOrdersDir, KeyPurchaseDir, KeySchedulesDir,
}

// Getter looks up a dotted settings key.
type Getter func(key string) (any, bool)

// Resolver resolves logical keys against a swappable settings source.
type Resolver struct {
	mu  sync.RWMutex
	get Getter
}

// New creates a resolver reading from get. A nil getter resolves defaults only.
func New(get Getter) *Resolver {
	return &Resolver{get: get}
}

// NewFromMap creates a resolver over a nested settings map.
func NewFromMap(m map[string]any) *Resolver {
	return New(FromMap(m))
}

// SetGetter swaps the settings source.
func (r *Resolver) SetGetter(get Getter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get = get
}

// SetSource swaps the settings source for a nested map.
func (r *Resolver) SetSource(m map[string]any) {
	r.SetGetter(FromMap(m))
}

func (r *Resolver) lookup(key string) string {
	r.mu.RLock()
	get := r.get
	r.mu.RUnlock()

	if get == nil {
		return ""
	}
	v, ok := get(key)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// DataRoot returns the absolute data root.
func (r *Resolver) DataRoot() string {
	root := r.lookup(KeyDataRoot)
	if root == "" {
		root = DefaultDataRoot
	}
	if isWindowsAbs(root) && !isLegacy(root) {
		return root
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// Resolve returns the absolute path for a logical key. Configured values win;
// legacy install prefixes are rebased under the data root; relative values
// are joined to the data root.
func (r *Resolver) Resolve(key string) string {
	root := r.DataRoot()
	if key == KeyDataRoot {
		return root
	}

	if v := r.lookup(key); v != "" {
		return r.place(v, root)
	}

	d, ok := defaults[key]
	if !ok {
		return ""
	}

	base := root
	if d.parent != "" {
		base = r.Resolve(d.parent)
	}
	return filepath.Join(base, d.name)
}

// Join resolves key and appends elem.
func (r *Resolver) Join(key string, elem ...string) string {
	return filepath.Join(append([]string{r.Resolve(key)}, elem...)...)
}

func (r *Resolver) place(v, root string) string {
	if rebased, ok := Rebase(v, root); ok {
		return rebased
	}
	if filepath.IsAbs(v) || isWindowsAbs(v) {
		return v
	}
	return filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(v, `\`, "/")))
}

// Rebase rewrites a legacy Windows default prefix onto root. It reports false
// when p does not start with a legacy prefix or root is itself that prefix.
func Rebase(p, root string) (string, bool) {
	lower := strings.ToLower(p)
	for _, prefix := range legacyRoots {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if rest != "" && rest[0] != '\\' && rest[0] != '/' {
			// c:\wm\database is not under c:\wm\data
			continue
		}
		if isLegacy(root) {
			return "", false
		}
		rest = strings.Trim(strings.ReplaceAll(rest, `\`, "/"), "/")
		if rest == "" {
			return root, true
		}
		return filepath.Join(root, filepath.FromSlash(rest)), true
	}
	return "", false
}

// EnsureCoreTree creates the standard directories. Every directory is tried;
// failures are joined into the returned error.
func (r *Resolver) EnsureCoreTree() error {
	var errs []error

	if err := os.MkdirAll(r.DataRoot(), 0750); err != nil {
		errs = append(errs, fmt.Errorf("data root: %w", err))
	}

	for _, key := range CoreDirs {
		dir := r.Resolve(key)
		if err := os.MkdirAll(dir, 0750); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// FromMap returns a Getter over a nested map. A flat dotted key stored at the
// top level takes precedence over the nested walk.
func FromMap(m map[string]any) Getter {
	return func(key string) (any, bool) {
		return Lookup(m, key)
	}
}

// Lookup walks a dotted key through nested maps.
func Lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}

	var cur any = m
	for _, part := range strings.Split(key, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func isLegacy(p string) bool {
	norm := strings.TrimRight(strings.ToLower(strings.ReplaceAll(p, `\`, "/")), "/")
	return norm == "c:/wm/data"
}

func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/') &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
