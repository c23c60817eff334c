// Package purchase generates purchase orders for stock shortages and keeps
// the list of pending order rows.
package purchase

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

const (
	// PendingFile is the pending order rows list inside the orders directory.
	PendingFile = "zamowienia_oczekujace.json"

	idWidth  = 6
	seqLock  = "_seq"
	autoNote = "auto: poniżej minimum"
)

// minKeys are the stock snapshot fields holding a minimum, in lookup order.
var minKeys = []string{"min", "min_qty", "prog_min", "min_poziom", "prog_alert"}

// Options configures a Generator.
type Options struct {
	Logger zerolog.Logger
	Clock  util.Clock
}

// Generator writes purchase orders into one directory.
type Generator struct {
	dir   string
	log   zerolog.Logger
	clock util.Clock
}

// New creates a generator for dir.
func New(dir string, opts Options) *Generator {
	return &Generator{
		dir:   dir,
		log:   opts.Logger.With().Str("component", "purchase").Logger(),
		clock: util.OrSystem(opts.Clock),
	}
}

// Dir returns the orders directory.
func (g *Generator) Dir() string {
	return g.dir
}

// NextID returns the id the next order would get: the highest numeric file
// stem plus one, zero padded to six digits.
func (g *Generator) NextID() (string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading orders directory: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return util.FormatSequence("", highest+1, idWidth), nil
}

// Create writes a new order holding pozycje and returns its id and path.
// Allocation runs under a directory lock so concurrent processes never reuse
// an id.
func (g *Generator) Create(pozycje []models.Shortage) (string, string, error) {
	if err := os.MkdirAll(g.dir, 0750); err != nil {
		return "", "", fmt.Errorf("creating orders directory: %w", err)
	}

	lock, err := jsonio.Lock(filepath.Join(g.dir, seqLock))
	if err != nil {
		return "", "", err
	}
	defer lock.Unlock()

	id, err := g.NextID()
	if err != nil {
		return "", "", err
	}

	order := models.PurchaseOrder{
		ID:        id,
		Utworzono: util.FormatDateTime(g.clock.Now()),
		Pozycje:   append([]models.Shortage{}, pozycje...),
	}
	path := filepath.Join(g.dir, id+".json")
	if err := jsonio.Write(path, order); err != nil {
		return "", "", fmt.Errorf("writing order %s: %w", id, err)
	}

	g.log.Info().Str("id", id).Int("pozycje", len(pozycje)).Msg("purchase order created")
	return id, path, nil
}

// Get reads one order.
func (g *Generator) Get(id string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := jsonio.Read(filepath.Join(g.dir, id+".json"), &order); err != nil {
		if errors.Is(err, jsonio.ErrMissing) {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

// ============================================================================
// PENDING ROWS
// ============================================================================

func (g *Generator) pendingPath() string {
	return filepath.Join(g.dir, PendingFile)
}

// AddPending records qty of an item as waiting to be ordered. An existing
// magazyn_item row for the same item gets the new quantity, comment and
// timestamp; its other fields and every other row are written back as read.
func (g *Generator) AddPending(itemID string, qty float64, comment string) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", models.ErrValidation)
	}
	fields := map[string]any{
		"type":    models.PendingRowType,
		"id":      itemID,
		"qty":     qty,
		"comment": comment,
		"ts":      util.FormatDateTime(g.clock.Now()),
	}

	return jsonio.Update(g.pendingPath(), func() []json.RawMessage { return nil },
		func(rows *[]json.RawMessage, _ string) error {
			for i, raw := range *rows {
				var head struct {
					Type string            `json:"type"`
					ID   models.FlexString `json:"id"`
				}
				if json.Unmarshal(raw, &head) != nil || head.Type != models.PendingRowType || string(head.ID) != itemID {
					continue
				}

				var row map[string]any
				if err := json.Unmarshal(raw, &row); err != nil {
					return fmt.Errorf("decoding pending row %s: %w", itemID, err)
				}
				for k, v := range fields {
					row[k] = v
				}
				merged, err := json.Marshal(row)
				if err != nil {
					return fmt.Errorf("encoding pending row %s: %w", itemID, err)
				}
				(*rows)[i] = merged
				return nil
			}

			added, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("encoding pending row %s: %w", itemID, err)
			}
			*rows = append(*rows, added)
			return nil
		})
}

// Pending returns the pending rows.
func (g *Generator) Pending() ([]models.PendingRow, error) {
	rows, warning, err := jsonio.Load(g.pendingPath(), func() []models.PendingRow { return nil })
	if warning == jsonio.WarningCorrupt {
		g.log.Warn().Str("path", g.pendingPath()).Msg("pending orders file is corrupt")
	}
	return rows, err
}

// AutoOrderMissing reads a stock snapshot (stany.json) and adds a pending
// row for every item below its minimum. It returns the rows added.
func (g *Generator) AutoOrderMissing(stanyPath string) ([]models.PendingRow, error) {
	var stany map[string]map[string]any
	if err := jsonio.Read(stanyPath, &stany); err != nil {
		if errors.Is(err, jsonio.ErrMissing) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading stock snapshot: %w", err)
	}

	ids := make([]string, 0, len(stany))
	for id := range stany {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var added []models.PendingRow
	for _, id := range ids {
		rec := stany[id]
		minimum, ok := firstNumber(rec, minKeys...)
		if !ok {
			continue
		}
		current, _ := firstNumber(rec, "stan")
		if current >= minimum {
			continue
		}

		qty := max(minimum-current, 0)
		if err := g.AddPending(id, qty, autoNote); err != nil {
			return added, err
		}
		added = append(added, models.PendingRow{Type: models.PendingRowType, ID: id, Qty: qty, Comment: autoNote})
	}

	if len(added) > 0 {
		g.log.Info().Int("rows", len(added)).Msg("pending orders added for items below minimum")
	}
	return added, nil
}

func firstNumber(rec map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
