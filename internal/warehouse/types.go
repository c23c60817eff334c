package warehouse

import (
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// UpsertInput contains data for creating or updating an item. Zero values
// leave existing fields unchanged on update.
type UpsertInput struct {
	ID              string
	Nazwa           string
	Typ             string
	Jednostka       string
	WspKonwersji    float64
	MinPoziom       *float64
	ProgiAlertowPct []float64
	Komentarz       string

	// Stan sets the initial stock of a new item; ignored on update.
	Stan float64

	User    string
	Context string
}

// Movement is a quantity change requested on one item.
type Movement struct {
	ItemID  string
	Qty     float64
	User    string
	Context string

	// AllowRounding rounds a fractional quantity of a piece-counted item
	// half-up instead of rejecting it.
	AllowRounding bool
}

// Event describes one committed mutation.
type Event struct {
	ID      string           `json:"id"`
	Op      models.Operation `json:"op"`
	ItemID  string           `json:"item_id"`
	Qty     float64          `json:"qty"`
	User    string           `json:"user"`
	Context string           `json:"context,omitempty"`
	TS      string           `json:"ts"`

	// Before is nil for a created item, After is nil for a deleted one.
	Before *models.Item `json:"before,omitempty"`
	After  *models.Item `json:"after,omitempty"`

	Alerts []Alert `json:"alerts,omitempty"`
}

// Alert is a threshold alert for one item.
type Alert struct {
	ID        string  `json:"id"`
	Nazwa     string  `json:"nazwa"`
	Stan      float64 `json:"stan"`
	MinPoziom float64 `json:"min_poziom"`
	ProgPct   float64 `json:"prog_pct"`
	Prog      float64 `json:"prog"`
}

// OrderRef points at the purchase order raised for a shortage.
type OrderRef struct {
	Nr      string `json:"nr"`
	Sciezka string `json:"sciezka"`
}

// Result is the outcome of a materials reservation.
type Result struct {
	OK     bool              `json:"ok"`
	Braki  []models.Shortage `json:"braki"`
	Order  *OrderRef         `json:"order,omitempty"`
	Events []Event           `json:"-"`
}

// PerformanceRow aggregates the global history per item and operation.
type PerformanceRow struct {
	ItemID   string           `json:"item_id"`
	Operacja models.Operation `json:"operacja"`
	SumQty   float64          `json:"sum_qty"`
	Count    int              `json:"count"`
}

// OrderSink raises purchase orders for shortages.
type OrderSink interface {
	Create(pozycje []models.Shortage) (id, path string, err error)
}
