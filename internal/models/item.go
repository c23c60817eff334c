package models

import "sort"

// DefaultItemTypes seeds meta.item_types for a fresh warehouse.
var DefaultItemTypes = []string{"komponent", "półprodukt", "materiał"}

// DefaultAlertPct is used when an item declares no alert percentages.
var DefaultAlertPct = []float64{100}

// Item is a warehouse stock position.
type Item struct {
	ID              string         `json:"id"`
	Nazwa           string         `json:"nazwa"`
	Typ             string         `json:"typ"`
	Jednostka       string         `json:"jednostka"`
	WspKonwersji    float64        `json:"wsp_konwersji"`
	Stan            float64        `json:"stan"`
	MinPoziom       float64        `json:"min_poziom"`
	Rezerwacje      float64        `json:"rezerwacje"`
	ProgiAlertowPct []float64      `json:"progi_alertow_pct"`
	Historia        []HistoryEntry `json:"historia"`
	Komentarz       string         `json:"komentarz"`
}

// HistoryEntry is one append-only ledger line of an item.
type HistoryEntry struct {
	Operacja   Operation `json:"operacja"`
	Ilosc      float64   `json:"ilosc"`
	Uzytkownik string    `json:"uzytkownik"`
	TS         string    `json:"ts"`
	Kontekst   string    `json:"kontekst,omitempty"`
}

// LedgerEntry is a history line in the global warehouse log.
type LedgerEntry struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
	HistoryEntry
}

// Available returns the quantity not held by reservations.
func (i *Item) Available() float64 {
	return i.Stan - i.Rezerwacje
}

// Conversion returns the conversion factor to the base unit (1 if unset).
func (i *Item) Conversion() float64 {
	if i.WspKonwersji <= 0 {
		return 1
	}
	return i.WspKonwersji
}

// AlertPct returns the alert percentages sorted descending.
func (i *Item) AlertPct() []float64 {
	src := i.ProgiAlertowPct
	if len(src) == 0 {
		src = DefaultAlertPct
	}
	out := append([]float64(nil), src...)
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// Clone returns a deep copy.
func (i *Item) Clone() Item {
	c := *i
	c.ProgiAlertowPct = append([]float64(nil), i.ProgiAlertowPct...)
	c.Historia = append([]HistoryEntry(nil), i.Historia...)
	return c
}

// StockSnapshot is one row of the denormalised stany.json file.
type StockSnapshot struct {
	Nazwa     string  `json:"nazwa"`
	Stan      float64 `json:"stan"`
	ProgAlert float64 `json:"prog_alert"`
}

// BOMLine is the per-unit requirement of one material in a reservation request.
type BOMLine struct {
	Ilosc float64 `json:"ilosc"`
}

// Shortage describes material missing for a reservation.
type Shortage struct {
	Kod            string  `json:"kod"`
	Nazwa          string  `json:"nazwa"`
	IloscPotrzebna float64 `json:"ilosc_potrzebna"`
}
