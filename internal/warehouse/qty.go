package warehouse

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// pieceUnit is the unit whose quantities must be whole numbers.
const pieceUnit = "szt"

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func isPieceUnit(unit string) bool {
	return strings.EqualFold(strings.TrimSpace(unit), pieceUnit)
}

// quantity validates qty and scales it by factor into the item's base unit.
func quantity(it *models.Item, qty, factor float64, allowRounding bool) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity must be positive, got %v", models.ErrValidation, qty)
	}

	q := dec(qty).Mul(dec(factor))
	if isPieceUnit(it.Jednostka) && !q.Equal(q.Truncate(0)) {
		if !allowRounding {
			return decimal.Zero, fmt.Errorf("%w: %s is counted in %s, got %s",
				models.ErrValidation, it.ID, pieceUnit, q.String())
		}
		q = q.Round(0)
		if !q.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: quantity rounds to zero", models.ErrValidation)
		}
	}
	return q, nil
}

func sum(a float64, b decimal.Decimal) float64 {
	return dec(a).Add(b).InexactFloat64()
}

func diff(a float64, b decimal.Decimal) float64 {
	return dec(a).Sub(b).InexactFloat64()
}
