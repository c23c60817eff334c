// Package orders stores production orders one JSON file per order and
// allocates per-kind sequence numbers.
package orders

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

const (
	// SequenceFile holds the per-kind counters inside the orders directory.
	SequenceFile = "_seq.json"

	defaultWidth = 4
)

// Order is an order document. Only "id" is interpreted by the store.
type Order map[string]any

// ID returns the order id, or "" when absent or not a string.
func (o Order) ID() string {
	id, _ := o["id"].(string)
	return id
}

// Options configures a Store.
type Options struct {
	Logger zerolog.Logger
}

// Store reads and writes orders in one directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a store for dir.
func New(dir string, opts Options) *Store {
	return &Store{
		dir: dir,
		log: opts.Logger.With().Str("component", "orders").Logger(),
	}
}

// Dir returns the orders directory.
func (s *Store) Dir() string {
	return s.dir
}

// ============================================================================
// SEQUENCES
// ============================================================================

// NextSequence increments and returns the counter for kind. The
// read-increment-write cycle holds the sequence file lock.
func (s *Store) NextSequence(kind models.OrderKind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown order kind %q", models.ErrValidation, kind)
	}

	var next int
	path := filepath.Join(s.dir, SequenceFile)
	err := jsonio.Update(path, func() map[string]int { return map[string]int{} },
		func(seq *map[string]int, warning string) error {
			if warning == jsonio.WarningCorrupt {
				s.log.Warn().Str("path", path).Msg("sequence file is corrupt, counters restart")
			}
			if *seq == nil {
				*seq = map[string]int{}
			}
			next = (*seq)[string(kind)] + 1
			(*seq)[string(kind)] = next
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("updating sequence %s: %w", kind, err)
	}
	return next, nil
}

// Sequences returns the current counters without changing them.
func (s *Store) Sequences() (map[string]int, error) {
	seq, _, err := jsonio.Load(filepath.Join(s.dir, SequenceFile), func() map[string]int { return map[string]int{} })
	if seq == nil {
		seq = map[string]int{}
	}
	return seq, err
}

// GenerateOrderID allocates the next number for kind and formats it.
// An empty prefix means "<KIND>-"; width below one means four digits.
func (s *Store) GenerateOrderID(kind models.OrderKind, prefix string, width int) (string, error) {
	n, err := s.NextSequence(kind)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		prefix = string(kind) + "-"
	}
	if width < 1 {
		width = defaultWidth
	}
	return util.FormatSequence(prefix, n, width), nil
}

// ============================================================================
// ORDERS
// ============================================================================

func (s *Store) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: order id is required", models.ErrValidation)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, "_") {
		return "", fmt.Errorf("%w: invalid order id %q", models.ErrValidation, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save writes order to <dir>/<id>.json atomically.
func (s *Store) Save(order Order) error {
	path, err := s.path(order.ID())
	if err != nil {
		return err
	}
	if err := jsonio.Write(path, order); err != nil {
		return fmt.Errorf("saving order %s: %w", order.ID(), err)
	}
	s.log.Debug().Str("id", order.ID()).Msg("order saved")
	return nil
}

// Get reads one order.
func (s *Store) Get(id string) (Order, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := jsonio.Read(path, &order); err != nil {
		if errors.Is(err, jsonio.ErrMissing) {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s is not an object: %w", id, models.ErrNotFound)
	}
	return order, nil
}

// Load returns every readable order in file name order. Metadata files
// (leading underscore), non-JSON files and files that do not hold a JSON
// object are skipped.
func (s *Store) Load() ([]Order, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading orders directory: %w", err)
	}

	var out []Order
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		var order Order
		if err := jsonio.Read(filepath.Join(s.dir, name), &order); err != nil || order == nil {
			s.log.Debug().Str("file", name).Msg("skipping unreadable order")
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

// Delete removes an order. Deleting a missing order is not an error.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting order %s: %w", id, err)
	}
	return nil
}
