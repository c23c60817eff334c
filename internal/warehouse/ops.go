package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

func newEvent(op models.Operation, itemID string, qty float64, user, kontekst, now string) Event {
	return Event{
		ID:      util.NewID(),
		Op:      op,
		ItemID:  itemID,
		Qty:     qty,
		User:    user,
		Context: kontekst,
		TS:      now,
	}
}

func snapshot(it *models.Item) *models.Item {
	c := it.Clone()
	return &c
}

func lookup(doc *Document, id string) (*models.Item, error) {
	it, ok := doc.Items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	return it, nil
}

func record(it *models.Item, op models.Operation, qty float64, user, kontekst, now string) {
	it.Historia = append(it.Historia, models.HistoryEntry{
		Operacja:   op,
		Ilosc:      qty,
		Uzytkownik: user,
		TS:         now,
		Kontekst:   kontekst,
	})
}

func first(events []Event, err error) (*Event, error) {
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// ============================================================================
// ITEMS
// ============================================================================

// Upsert creates an item or merges the non-zero input fields into an
// existing one. Creation is recorded as CREATE in the item history.
func (e *Engine) Upsert(ctx context.Context, in UpsertInput) (*Event, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: item id is required", models.ErrValidation)
	}
	if in.Stan < 0 {
		return nil, fmt.Errorf("%w: initial stock cannot be negative", models.ErrValidation)
	}

	return first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		if in.Typ != "" && !slices.Contains(doc.Meta.ItemTypes, in.Typ) {
			return nil, fmt.Errorf("%w: unknown item type %q", models.ErrValidation, in.Typ)
		}

		it, exists := doc.Items[id]
		var before *models.Item
		if exists {
			before = snapshot(it)
		} else {
			it = &models.Item{ID: id, Stan: in.Stan, WspKonwersji: 1, Historia: []models.HistoryEntry{}}
		}

		if in.Nazwa != "" {
			it.Nazwa = in.Nazwa
		}
		if in.Typ != "" {
			it.Typ = in.Typ
		}
		if in.Jednostka != "" {
			it.Jednostka = in.Jednostka
		}
		if in.WspKonwersji > 0 {
			it.WspKonwersji = in.WspKonwersji
		}
		if in.MinPoziom != nil {
			it.MinPoziom = *in.MinPoziom
		}
		if in.ProgiAlertowPct != nil {
			it.ProgiAlertowPct = append([]float64(nil), in.ProgiAlertowPct...)
		}
		if in.Komentarz != "" {
			it.Komentarz = in.Komentarz
		}

		op := models.OpUpdate
		if !exists {
			op = models.OpCreate
			if it.Nazwa == "" {
				it.Nazwa = id
			}
			record(it, models.OpCreate, it.Stan, in.User, in.Context, now)
			doc.Items[id] = it
			doc.Meta.Order = append(doc.Meta.Order, id)
		}

		ev := newEvent(op, id, it.Stan, in.User, in.Context, now)
		ev.Before, ev.After = before, snapshot(it)
		return []Event{ev}, nil
	}))
}

// Delete removes an item. The deletion is kept in the global history only.
// Deleting an unknown item does nothing and returns a nil event.
func (e *Engine) Delete(ctx context.Context, id, user, kontekst string) (*Event, error) {
	return first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		it, ok := doc.Items[id]
		if !ok {
			e.log.Debug().Str("item", id).Msg("delete of unknown item ignored")
			return nil, errNoChange
		}
		doc.remove(id)

		ev := newEvent(models.OpDelete, id, it.Stan, user, kontekst, now)
		ev.Before = snapshot(it)
		return []Event{ev}, nil
	}))
}

// SetMeta stores a free-form meta key in the document.
func (e *Engine) SetMeta(ctx context.Context, key string, value any) error {
	switch key {
	case "updated", "order", "item_types", "":
		return fmt.Errorf("%w: meta key %q is reserved", models.ErrValidation, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding meta %s: %w", key, err)
	}

	_, err = e.commit(ctx, func(doc *Document, _ string) ([]Event, error) {
		if doc.Meta.Extra == nil {
			doc.Meta.Extra = map[string]json.RawMessage{}
		}
		doc.Meta.Extra[key] = raw
		return nil, nil
	})
	return err
}

// ============================================================================
// MOVEMENTS
// ============================================================================

// Receive books a receipt (PZ): stan += qty·wsp_konwersji.
func (e *Engine) Receive(ctx context.Context, m Movement) (*Event, error) {
	return e.add(ctx, models.OpReceipt, m)
}

// Return books a return to stock (ZW): stan += qty·wsp_konwersji.
func (e *Engine) Return(ctx context.Context, m Movement) (*Event, error) {
	return e.add(ctx, models.OpReturn, m)
}

func (e *Engine) add(ctx context.Context, op models.Operation, m Movement) (*Event, error) {
	return first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		it, err := lookup(doc, m.ItemID)
		if err != nil {
			return nil, err
		}
		q, err := quantity(it, m.Qty, it.Conversion(), m.AllowRounding)
		if err != nil {
			return nil, err
		}

		before := snapshot(it)
		it.Stan = sum(it.Stan, q)
		record(it, op, q.InexactFloat64(), m.User, m.Context, now)

		ev := newEvent(op, it.ID, q.InexactFloat64(), m.User, m.Context, now)
		ev.Before, ev.After = before, snapshot(it)
		return []Event{ev}, nil
	}))
}

// Consume books a consumption (RW): stan −= qty·wsp_konwersji. It fails with
// ErrInvariant when stock is insufficient or when the remaining stock would
// fall below the reservations.
func (e *Engine) Consume(ctx context.Context, m Movement) (*Event, error) {
	return first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		it, err := lookup(doc, m.ItemID)
		if err != nil {
			return nil, err
		}
		q, err := quantity(it, m.Qty, it.Conversion(), m.AllowRounding)
		if err != nil {
			return nil, err
		}
		if dec(it.Stan).LessThan(q) {
			return nil, fmt.Errorf("%w: %s has %v, cannot consume %s",
				models.ErrInvariant, it.ID, it.Stan, q.String())
		}
		if rest := dec(it.Stan).Sub(q); rest.LessThan(dec(it.Rezerwacje)) {
			return nil, fmt.Errorf("%w: %s has %v reserved, consuming %s leaves %s",
				models.ErrInvariant, it.ID, it.Rezerwacje, q.String(), rest.String())
		}

		before := snapshot(it)
		it.Stan = diff(it.Stan, q)
		record(it, models.OpConsume, q.InexactFloat64(), m.User, m.Context, now)

		ev := newEvent(models.OpConsume, it.ID, q.InexactFloat64(), m.User, m.Context, now)
		ev.Before, ev.After = before, snapshot(it)
		return []Event{ev}, nil
	}))
}

// ============================================================================
// RESERVATIONS
// ============================================================================

// Reserve reserves up to qty of the free stock and returns the quantity
// actually reserved. Nothing is written when no stock is free. Reservations
// are kept in the base unit, like the BOM lines of ReserveMaterials, so qty
// is not multiplied by wsp_konwersji.
func (e *Engine) Reserve(ctx context.Context, m Movement) (float64, *Event, error) {
	if !e.opts.ReservationsEnabled {
		return 0, nil, fmt.Errorf("reservations: %w", models.ErrDisabled)
	}

	var reserved decimal.Decimal
	ev, err := first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		it, err := lookup(doc, m.ItemID)
		if err != nil {
			return nil, err
		}
		q, err := quantity(it, m.Qty, 1, m.AllowRounding)
		if err != nil {
			return nil, err
		}

		free := dec(it.Stan).Sub(dec(it.Rezerwacje))
		reserved = decimal.Min(q, free)
		if !reserved.IsPositive() {
			reserved = decimal.Zero
			return nil, errNoChange
		}

		before := snapshot(it)
		it.Rezerwacje = sum(it.Rezerwacje, reserved)
		record(it, models.OpReserve, reserved.InexactFloat64(), m.User, m.Context, now)

		ev := newEvent(models.OpReserve, it.ID, reserved.InexactFloat64(), m.User, m.Context, now)
		ev.Before, ev.After = before, snapshot(it)
		return []Event{ev}, nil
	}))
	if err != nil {
		return 0, nil, err
	}
	return reserved.InexactFloat64(), ev, nil
}

// Unreserve releases qty (base unit) of an item's reservations; qty may not
// exceed them.
func (e *Engine) Unreserve(ctx context.Context, m Movement) (*Event, error) {
	if !e.opts.ReservationsEnabled {
		return nil, fmt.Errorf("reservations: %w", models.ErrDisabled)
	}

	return first(e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		it, err := lookup(doc, m.ItemID)
		if err != nil {
			return nil, err
		}
		q, err := quantity(it, m.Qty, 1, m.AllowRounding)
		if err != nil {
			return nil, err
		}
		if q.GreaterThan(dec(it.Rezerwacje)) {
			return nil, fmt.Errorf("%w: %s has %v reserved, cannot release %s",
				models.ErrInvariant, it.ID, it.Rezerwacje, q.String())
		}

		before := snapshot(it)
		it.Rezerwacje = diff(it.Rezerwacje, q)
		record(it, models.OpUnreserve, q.InexactFloat64(), m.User, m.Context, now)

		ev := newEvent(models.OpUnreserve, it.ID, q.InexactFloat64(), m.User, m.Context, now)
		ev.Before, ev.After = before, snapshot(it)
		return []Event{ev}, nil
	}))
}

// ============================================================================
// ITEM TYPES
// ============================================================================

// AddType adds a name to meta.item_types. Adding an existing type is a no-op.
func (e *Engine) AddType(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: type name is required", models.ErrValidation)
	}

	_, err := e.commit(ctx, func(doc *Document, _ string) ([]Event, error) {
		if slices.Contains(doc.Meta.ItemTypes, name) {
			return nil, errNoChange
		}
		doc.Meta.ItemTypes = append(doc.Meta.ItemTypes, name)
		return nil, nil
	})
	return err
}

// RemoveType removes a name from meta.item_types. A type still used by an
// item cannot be removed.
func (e *Engine) RemoveType(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: type name is required", models.ErrValidation)
	}

	_, err := e.commit(ctx, func(doc *Document, _ string) ([]Event, error) {
		i := slices.Index(doc.Meta.ItemTypes, name)
		if i < 0 {
			return nil, fmt.Errorf("item type %q: %w", name, models.ErrNotFound)
		}
		for _, id := range sortedKeys(doc.Items) {
			if doc.Items[id].Typ == name {
				return nil, fmt.Errorf("%w: item type %q is used by %s", models.ErrInvariant, name, id)
			}
		}
		doc.Meta.ItemTypes = slices.Delete(doc.Meta.ItemTypes, i, i+1)
		return nil, nil
	})
	return err
}
