package warehouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// ReserveMaterials takes the materials of bom for qty units off stock. Each
// line needs ilosc·qty; whatever stock exists is taken and the remainder is
// reported as a shortage. Taken stock is not given back when another line is
// short. With any shortage a purchase order is raised through the
// configured OrderSink. Reservations above the stock left after a line are
// trimmed to it. The document and stany.json are written even when nothing
// could be taken.
func (e *Engine) ReserveMaterials(ctx context.Context, bom map[string]models.BOMLine, qty float64, user, kontekst string) (*Result, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", models.ErrValidation, qty)
	}

	var braki []models.Shortage
	events, err := e.commit(ctx, func(doc *Document, now string) ([]Event, error) {
		braki = nil
		var events []Event

		for _, kod := range sortedKeys(bom) {
			required := dec(bom[kod].Ilosc).Mul(dec(qty))
			if !required.IsPositive() {
				continue
			}

			it, ok := doc.Items[kod]
			if !ok {
				braki = append(braki, models.Shortage{Kod: kod, Nazwa: kod, IloscPotrzebna: required.InexactFloat64()})
				continue
			}

			take := decimal.Min(required, dec(it.Stan))
			if short := required.Sub(take); short.IsPositive() {
				braki = append(braki, models.Shortage{Kod: kod, Nazwa: it.Nazwa, IloscPotrzebna: short.InexactFloat64()})
			}
			if !take.IsPositive() {
				continue
			}

			before := snapshot(it)
			it.Stan = diff(it.Stan, take)
			if it.Rezerwacje > it.Stan {
				it.Rezerwacje = it.Stan
			}
			record(it, models.OpReserve, take.InexactFloat64(), user, kontekst, now)

			ev := newEvent(models.OpReserve, kod, take.InexactFloat64(), user, kontekst, now)
			ev.Before, ev.After = before, snapshot(it)
			events = append(events, ev)
		}

		return events, nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{OK: len(braki) == 0, Braki: braki, Events: events}
	if res.OK {
		res.Braki = []models.Shortage{}
		return res, nil
	}

	e.log.Warn().Int("shortages", len(braki)).Str("context", kontekst).Msg("materials short for reservation")
	if e.opts.Orders == nil {
		e.log.Warn().Msg("no purchase order sink configured")
		return res, nil
	}

	id, path, err := e.opts.Orders.Create(braki)
	if err != nil {
		return res, fmt.Errorf("raising purchase order: %w", err)
	}
	res.Order = &OrderRef{Nr: id, Sciezka: path}
	e.log.Info().Str("order", id).Str("path", path).Msg("purchase order raised for shortage")
	return res, nil
}
