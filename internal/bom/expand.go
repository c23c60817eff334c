package bom

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

var hundred = decimal.NewFromInt(100)

func checkQty(qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", models.ErrValidation, qty)
	}
	return nil
}

// ComputeBOMForPRD expands qty units of product kod into semi-product
// requirements: ilosc = ilosc_na_szt · qty.
func (r *Resolver) ComputeBOMForPRD(kod string, qty float64, sel Selector) (map[string]PartRequirement, error) {
	if err := checkQty(qty); err != nil {
		return nil, err
	}
	p, err := r.Select(kod, sel)
	if err != nil {
		return nil, err
	}

	out := make(map[string]PartRequirement, len(p.Polprodukty))
	sums := map[string]decimal.Decimal{}
	for _, part := range p.Polprodukty {
		sums[part.Kod] = sums[part.Kod].Add(decimal.NewFromFloat(*part.IloscNaSzt).Mul(decimal.NewFromFloat(qty)))

		req := out[part.Kod]
		if req.Czynnosci == nil {
			req.Czynnosci = append([]string{}, part.Czynnosci...)
			req.Surowiec = *part.Surowiec
		}
		req.Ilosc = sums[part.Kod].InexactFloat64()
		out[part.Kod] = req
	}
	return out, nil
}

// ComputeSRForPP returns the raw material needed for qty units of a
// semi-product, loss included: ilosc_na_szt · qty · (1 + norma_strat_proc/100).
func (r *Resolver) ComputeSRForPP(kod string, qty float64) (map[string]float64, error) {
	if err := checkQty(qty); err != nil {
		return nil, err
	}
	pp, err := r.SemiProduct(kod)
	if err != nil {
		return nil, err
	}
	return map[string]float64{pp.Surowiec.Kod: rawQty(pp, qty).InexactFloat64()}, nil
}

func rawQty(pp *models.SemiProduct, qty float64) decimal.Decimal {
	loss := decimal.NewFromInt(1).Add(decimal.NewFromFloat(pp.NormaStratProc).Div(hundred))
	return decimal.NewFromFloat(pp.Surowiec.IloscNaSzt).Mul(decimal.NewFromFloat(qty)).Mul(loss)
}

// ComputeSRForPRD composes ComputeBOMForPRD and ComputeSRForPP, summing raw
// materials shared by several semi-products.
func (r *Resolver) ComputeSRForPRD(kod string, qty float64, sel Selector) (map[string]MaterialRequirement, error) {
	parts, err := r.ComputeBOMForPRD(kod, qty, sel)
	if err != nil {
		return nil, err
	}

	sums := map[string]decimal.Decimal{}
	units := map[string]string{}
	for ppKod, part := range parts {
		pp, err := r.SemiProduct(ppKod)
		if err != nil {
			return nil, err
		}
		sr := pp.Surowiec.Kod
		sums[sr] = sums[sr].Add(rawQty(pp, part.Ilosc))
		if units[sr] == "" {
			units[sr] = pp.Surowiec.Jednostka
		}
	}

	out := make(map[string]MaterialRequirement, len(sums))
	for sr, sum := range sums {
		out[sr] = MaterialRequirement{Ilosc: sum.InexactFloat64(), Jednostka: units[sr]}
	}
	return out, nil
}

// ToWarehouseBOM converts a raw material expansion into the reservation
// request consumed by the warehouse engine.
func ToWarehouseBOM(sr map[string]MaterialRequirement) map[string]models.BOMLine {
	out := make(map[string]models.BOMLine, len(sr))
	for kod, req := range sr {
		out[kod] = models.BOMLine{Ilosc: req.Ilosc}
	}
	return out
}

// WarehouseBOM returns the per-unit raw material request for product kod.
// Pass it with the order quantity to the warehouse reservation.
func (r *Resolver) WarehouseBOM(kod string, sel Selector) (map[string]models.BOMLine, error) {
	sr, err := r.ComputeSRForPRD(kod, 1, sel)
	if err != nil {
		return nil, err
	}
	return ToWarehouseBOM(sr), nil
}
