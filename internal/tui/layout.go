package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal widths below NarrowWidth stack the panels vertically.
const (
	NarrowWidth     = 100
	MaxContentWidth = 160
)

// ColumnSpec defines a column with proportional or fixed width.
type ColumnSpec struct {
	// MinWidth is the smallest width a weighted column is given.
	MinWidth int
	// Weight is the proportional share of remaining width.
	Weight float64
	// Fixed is a fixed width (overrides Weight if > 0).
	Fixed int
	// Priority decides drop order when the panel is narrow (lower first).
	Priority int
}

// CalculateColumnWidths distributes available width among columns. When the
// fixed columns do not fit, the lowest-priority columns get width 0.
// separator is the width of one column gap.
func CalculateColumnWidths(specs []ColumnSpec, availableWidth, separator int) []int {
	widths := make([]int, len(specs))
	visible := make([]bool, len(specs))
	for i := range visible {
		visible[i] = true
	}

	remaining := func() (int, float64) {
		fixed, weight, count := 0, 0.0, 0
		for i, s := range specs {
			if !visible[i] {
				continue
			}
			count++
			if s.Fixed > 0 {
				fixed += s.Fixed
			} else {
				weight += s.Weight
			}
		}
		gaps := 0
		if count > 1 {
			gaps = (count - 1) * separator
		}
		return availableWidth - fixed - gaps - 2, weight
	}

	free, weight := remaining()
	for free < 0 {
		drop := -1
		for i, s := range specs {
			if !visible[i] {
				continue
			}
			if drop < 0 || s.Priority < specs[drop].Priority {
				drop = i
			}
		}
		if drop < 0 || countTrue(visible) <= 1 {
			break
		}
		visible[drop] = false
		free, weight = remaining()
	}
	free = max(free, 0)

	for i, s := range specs {
		switch {
		case !visible[i]:
			widths[i] = 0
		case s.Fixed > 0:
			widths[i] = s.Fixed
		case weight > 0:
			widths[i] = max(int(float64(free)*s.Weight/weight), s.MinWidth)
		default:
			widths[i] = s.MinWidth
		}
	}
	return widths
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}

// Panel renders a bordered panel with the title in the top border.
func (t *Theme) Panel(title, content string, width int, focused bool) string {
	color := t.MutedColor
	if focused {
		color = t.AccentColor
	}
	border := lipgloss.RoundedBorder()
	body := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(color).
		Width(max(width-2, 1)).
		Padding(0, 1).
		Render(content)

	inner := lipgloss.Width(body) - 2
	label := ""
	if title != "" {
		label = t.Title.Render(" " + Truncate(title, max(inner-4, 1)) + " ")
	}
	fill := max(inner-1-lipgloss.Width(label), 0)

	edge := lipgloss.NewStyle().Foreground(color)
	top := edge.Render(border.TopLeft+border.Top) + label +
		edge.Render(strings.Repeat(border.Top, fill)+border.TopRight)
	return top + "\n" + body
}

// Columns joins panels horizontally on wide terminals and stacks them
// otherwise.
func Columns(totalWidth int, panels ...string) string {
	if totalWidth < NarrowWidth {
		return lipgloss.JoinVertical(lipgloss.Left, panels...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

// Truncate shortens s to maxWidth cells, adding an ellipsis if needed.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if maxWidth == 1 {
		return string(runes[:1])
	}
	if len(runes) > maxWidth-1 {
		runes = runes[:maxWidth-1]
	}
	return string(runes) + "…"
}

// PadRight pads s to width cells with spaces.
func PadRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// ContentWidth returns the usable content width, capped between min and max.
func ContentWidth(termWidth, minWidth, maxWidth int) int {
	w := max(termWidth, minWidth)
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	return w
}

// ContentHeight returns the rows left for panel bodies after chrome lines.
func ContentHeight(termHeight, chromeLines int) int {
	return max(termHeight-chromeLines, 3)
}
