package warehouse

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// PerformanceTable aggregates the global history into per item and
// operation totals, largest total first.
func (e *Engine) PerformanceTable() ([]PerformanceRow, error) {
	entries, err := e.History()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	type key struct {
		item string
		op   models.Operation
	}
	sums := map[key]decimal.Decimal{}
	counts := map[key]int{}
	for _, en := range entries {
		k := key{en.ItemID, en.Operacja}
		sums[k] = sums[k].Add(dec(en.Ilosc))
		counts[k]++
	}

	rows := make([]PerformanceRow, 0, len(sums))
	for k, s := range sums {
		rows = append(rows, PerformanceRow{
			ItemID:   k.item,
			Operacja: k.op,
			SumQty:   s.InexactFloat64(),
			Count:    counts[k],
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SumQty != rows[j].SumQty {
			return rows[i].SumQty > rows[j].SumQty
		}
		if rows[i].ItemID != rows[j].ItemID {
			return rows[i].ItemID < rows[j].ItemID
		}
		return rows[i].Operacja < rows[j].Operacja
	})
	return rows, nil
}

// ExportXLSX writes the current stock as a flat spreadsheet.
func (e *Engine) ExportXLSX(path string) error {
	items := e.Items()
	alerts := map[string]Alert{}
	for _, a := range e.ThresholdAlerts() {
		alerts[a.ID] = a
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Magazyn"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	headers := []string{"ID", "Nazwa", "Typ", "Jednostka", "Stan", "Rezerwacje", "Dostępne", "Min. poziom", "Alert %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for r, it := range items {
		row := []any{it.ID, it.Nazwa, it.Typ, it.Jednostka, it.Stan, it.Rezerwacje, it.Available(), it.MinPoziom, ""}
		if a, ok := alerts[it.ID]; ok {
			row[8] = a.ProgPct
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", r+2, err)
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 15)
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving spreadsheet: %w", err)
	}
	return nil
}
