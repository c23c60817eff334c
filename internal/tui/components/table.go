// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
	Align lipgloss.Position
}

// Table is a scrollable, read-only table.
type Table struct {
	columns     []Column
	rows        [][]string
	selected    int
	offset      int
	visibleRows int
	focused     bool
	empty       string

	headerStyle   lipgloss.Style
	rowStyle      lipgloss.Style
	rowAltStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	borderStyle   lipgloss.Style
}

// NewTable creates a new table with the given columns.
func NewTable(columns []Column) *Table {
	return &Table{
		columns:       columns,
		visibleRows:   10,
		empty:         "(brak)",
		headerStyle:   lipgloss.NewStyle().Bold(true),
		rowStyle:      lipgloss.NewStyle(),
		rowAltStyle:   lipgloss.NewStyle(),
		selectedStyle: lipgloss.NewStyle().Reverse(true),
		borderStyle:   lipgloss.NewStyle(),
	}
}

// SetRows replaces the table data, keeping the selection in range.
func (t *Table) SetRows(rows [][]string) {
	t.rows = rows
	if t.selected >= len(rows) {
		t.selected = max(len(rows)-1, 0)
	}
	t.clampOffset()
}

// SetWidths resizes the columns; a zero width hides the column.
func (t *Table) SetWidths(widths []int) {
	for i := range t.columns {
		if i < len(widths) {
			t.columns[i].Width = widths[i]
		}
	}
}

// SetVisibleRows sets the number of visible rows.
func (t *Table) SetVisibleRows(n int) {
	t.visibleRows = max(n, 1)
	t.clampOffset()
}

// SetEmptyText sets the line shown when there are no rows.
func (t *Table) SetEmptyText(s string) {
	t.empty = s
}

// SetStyles sets the table styles.
func (t *Table) SetStyles(header, row, rowAlt, selected, border lipgloss.Style) {
	t.headerStyle = header
	t.rowStyle = row
	t.rowAltStyle = rowAlt
	t.selectedStyle = selected
	t.borderStyle = border
}

// Focus sets the table focus state.
func (t *Table) Focus(focused bool) {
	t.focused = focused
}

// Selected returns the currently selected row index.
func (t *Table) Selected() int {
	return t.selected
}

// SelectedRow returns the currently selected row data.
func (t *Table) SelectedRow() []string {
	if t.selected >= 0 && t.selected < len(t.rows) {
		return t.rows[t.selected]
	}
	return nil
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
	}
	t.clampOffset()
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
	}
	t.clampOffset()
}

// PageUp moves up one page.
func (t *Table) PageUp() {
	t.selected = max(t.selected-t.visibleRows, 0)
	t.clampOffset()
}

// PageDown moves down one page.
func (t *Table) PageDown() {
	t.selected = max(min(t.selected+t.visibleRows, len(t.rows)-1), 0)
	t.clampOffset()
}

// GoToTop goes to the first row.
func (t *Table) GoToTop() {
	t.selected = 0
	t.clampOffset()
}

// GoToBottom goes to the last row.
func (t *Table) GoToBottom() {
	t.selected = max(len(t.rows)-1, 0)
	t.clampOffset()
}

// clampOffset keeps the selected row inside the visible window.
func (t *Table) clampOffset() {
	if t.selected < t.offset {
		t.offset = t.selected
	}
	if t.selected >= t.offset+t.visibleRows {
		t.offset = t.selected - t.visibleRows + 1
	}
	t.offset = max(min(t.offset, len(t.rows)-t.visibleRows), 0)
}

// Render renders the table.
func (t *Table) Render() string {
	var b strings.Builder

	b.WriteString(t.renderRow(t.headers(), t.headerStyle))
	b.WriteString("\n")
	b.WriteString(t.borderStyle.Render(strings.Repeat("─", t.totalWidth())))

	if len(t.rows) == 0 {
		b.WriteString("\n")
		b.WriteString(t.rowAltStyle.Render(" " + t.empty))
		return b.String()
	}

	end := min(t.offset+t.visibleRows, len(t.rows))
	for i := t.offset; i < end; i++ {
		style := t.rowStyle
		switch {
		case i == t.selected && t.focused:
			style = t.selectedStyle
		case (i-t.offset)%2 == 1:
			style = t.rowAltStyle
		}
		b.WriteString("\n")
		b.WriteString(t.renderRow(t.rows[i], style))
	}

	if len(t.rows) > t.visibleRows {
		b.WriteString("\n")
		b.WriteString(t.borderStyle.Render(rangeLabel(t.offset+1, end, len(t.rows))))
	}
	return b.String()
}

func rangeLabel(from, to, total int) string {
	return fmt.Sprintf(" %d-%d / %d", from, to, total)
}

func (t *Table) totalWidth() int {
	w := 0
	for _, c := range t.columns {
		if c.Width > 0 {
			w += c.Width + 3
		}
	}
	return w
}

func (t *Table) headers() []string {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Title
	}
	return headers
}

func (t *Table) renderRow(cells []string, style lipgloss.Style) string {
	var parts []string

	for i, col := range t.columns {
		if col.Width <= 0 {
			continue
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		cell = fit(cell, col.Width)

		pad := col.Width - lipgloss.Width(cell)
		switch col.Align {
		case lipgloss.Right:
			cell = strings.Repeat(" ", pad) + cell
		case lipgloss.Center:
			left := pad / 2
			cell = strings.Repeat(" ", left) + cell + strings.Repeat(" ", pad-left)
		default:
			cell += strings.Repeat(" ", pad)
		}
		parts = append(parts, style.Render(cell))
	}

	return " " + strings.Join(parts, " │ ") + " "
}

// fit truncates s to width cells on rune boundaries.
func fit(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// Empty returns true if the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}
