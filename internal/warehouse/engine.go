// Package warehouse implements the stock ledger kept in magazyn.json: item
// movements, reservations, threshold alerts and materials reservation for a
// bill of materials.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// File names placed next to magazyn.json unless configured otherwise.
const (
	StanyFile        = "stany.json"
	ReservationsFile = "rezerwacje.json"
	HistoryFile      = "magazyn_history.json"
)

// Options configures an Engine.
type Options struct {
	// Path is magazyn.json.
	Path string

	StanyPath        string
	ReservationsPath string
	HistoryPath      string

	// ReservationsEnabled gates Reserve and Unreserve.
	ReservationsEnabled bool

	// Sync fsyncs the document before it is renamed into place.
	Sync bool

	Orders OrderSink
	Logger zerolog.Logger
	Clock  util.Clock
}

// Engine is the warehouse service. All mutations reload the document under
// the file lock, so several processes may share one warehouse.
type Engine struct {
	mu    sync.Mutex
	opts  Options
	log   zerolog.Logger
	clock util.Clock
	doc   *Document
}

// New creates an engine and loads the current document.
func New(opts Options) (*Engine, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: warehouse path is required", models.ErrValidation)
	}
	dir := filepath.Dir(opts.Path)
	if opts.StanyPath == "" {
		opts.StanyPath = filepath.Join(dir, StanyFile)
	}
	if opts.ReservationsPath == "" {
		opts.ReservationsPath = filepath.Join(dir, ReservationsFile)
	}
	if opts.HistoryPath == "" {
		opts.HistoryPath = filepath.Join(dir, HistoryFile)
	}

	e := &Engine{
		opts:  opts,
		log:   opts.Logger.With().Str("component", "warehouse").Logger(),
		clock: util.OrSystem(opts.Clock),
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// StanyPath returns the stock snapshot written after every mutation.
func (e *Engine) StanyPath() string {
	return e.opts.StanyPath
}

// Reload re-reads magazyn.json.
func (e *Engine) Reload() error {
	doc, warning, err := e.read()
	if err != nil {
		return err
	}
	if warning == jsonio.WarningCorrupt {
		e.log.Warn().Str("path", e.opts.Path).Msg("warehouse file is corrupt, starting empty")
	}

	e.mu.Lock()
	e.doc = doc
	e.mu.Unlock()
	return nil
}

func (e *Engine) read() (*Document, string, error) {
	doc, warning, err := jsonio.Load(e.opts.Path, newDocument)
	if err != nil {
		return nil, "", fmt.Errorf("loading warehouse: %w", err)
	}
	doc.normalize()
	return doc, warning, nil
}

// ============================================================================
// QUERIES
// ============================================================================

// Items returns copies of all items in meta.order order.
func (e *Engine) Items() []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.doc.ordered()
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}

// Get returns a copy of one item.
func (e *Engine) Get(id string) (models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.doc.Items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	return it.Clone(), nil
}

// Types returns meta.item_types.
func (e *Engine) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.doc.Meta.ItemTypes...)
}

// Meta returns the raw JSON of a meta key not managed by the engine.
func (e *Engine) Meta(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	raw, ok := e.doc.Meta.Extra[key]
	return raw, ok
}

// ============================================================================
// COMMIT
// ============================================================================

// change is the body of one locked read-modify-write cycle. It returns the
// events to record, or errNoChange to skip the write.
type change func(doc *Document, now string) ([]Event, error)

var errNoChange = errors.New("no change")

// commit reloads the document under the file lock, applies fn, persists the
// document and its projections and evaluates alerts for touched items.
func (e *Engine) commit(ctx context.Context, fn change) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lock, err := jsonio.Lock(e.opts.Path)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	doc, warning, err := e.read()
	if err != nil {
		return nil, err
	}
	if warning == jsonio.WarningCorrupt {
		if err := e.quarantine(); err != nil {
			return nil, err
		}
	}

	now := e.clock.Now()
	events, err := fn(doc, util.FormatDateTime(now))
	if errors.Is(err, errNoChange) {
		e.doc = doc
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.Meta.Updated = util.FormatDateTime(now)
	if err := jsonio.WriteLocked(e.opts.Path, doc, jsonio.Options{Sync: e.opts.Sync}); err != nil {
		return nil, fmt.Errorf("saving warehouse: %w", err)
	}
	e.doc = doc

	e.writeProjections(doc)
	if len(events) > 0 {
		e.appendHistory(events)
	}

	alerts := thresholdAlerts(doc.ordered())
	for i := range events {
		events[i].Alerts = alertsFor(alerts, events[i].ItemID)
		for _, a := range events[i].Alerts {
			e.log.Warn().
				Str("item", a.ID).
				Float64("stan", a.Stan).
				Float64("min_poziom", a.MinPoziom).
				Float64("prog_pct", a.ProgPct).
				Msg("stock below alert threshold")
		}
		e.log.Info().
			Str("op", events[i].Op.String()).
			Str("item", events[i].ItemID).
			Float64("qty", events[i].Qty).
			Str("user", events[i].User).
			Msg("warehouse operation")
	}

	return events, nil
}

// quarantine moves a corrupt document aside so the next write does not
// destroy it.
func (e *Engine) quarantine() error {
	dst := fmt.Sprintf("%s.corrupt-%s", e.opts.Path, e.clock.Now().Format(util.StampFormat))
	if err := os.Rename(e.opts.Path, dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("moving corrupt warehouse aside: %w", err)
	}
	e.log.Warn().Str("path", dst).Msg("corrupt warehouse file moved aside")
	return nil
}

// writeProjections refreshes stany.json and rezerwacje.json. Failures are
// logged; the document itself is already committed.
func (e *Engine) writeProjections(doc *Document) {
	stany := make(map[string]models.StockSnapshot, len(doc.Items))
	rez := make(map[string]float64, len(doc.Items))
	for id, it := range doc.Items {
		stany[id] = models.StockSnapshot{Nazwa: it.Nazwa, Stan: it.Stan, ProgAlert: it.MinPoziom}
		rez[id] = it.Rezerwacje
	}

	if err := jsonio.Write(e.opts.StanyPath, stany); err != nil {
		e.log.Error().Err(err).Str("path", e.opts.StanyPath).Msg("writing stock snapshot")
	}
	if err := jsonio.Write(e.opts.ReservationsPath, rez); err != nil {
		e.log.Error().Err(err).Str("path", e.opts.ReservationsPath).Msg("writing reservations")
	}
}

func (e *Engine) appendHistory(events []Event) {
	entries := make([]models.LedgerEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, models.LedgerEntry{
			EventID: ev.ID,
			ItemID:  ev.ItemID,
			HistoryEntry: models.HistoryEntry{
				Operacja:   ev.Op,
				Ilosc:      ev.Qty,
				Uzytkownik: ev.User,
				TS:         ev.TS,
				Kontekst:   ev.Context,
			},
		})
	}

	err := jsonio.Update(e.opts.HistoryPath,
		func() []models.LedgerEntry { return nil },
		func(log *[]models.LedgerEntry, _ string) error {
			*log = append(*log, entries...)
			return nil
		})
	if err != nil {
		e.log.Error().Err(err).Str("path", e.opts.HistoryPath).Msg("appending warehouse history")
	}
}

// History returns the global history log.
func (e *Engine) History() ([]models.LedgerEntry, error) {
	entries, _, err := jsonio.Load(e.opts.HistoryPath, func() []models.LedgerEntry { return nil })
	return entries, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
