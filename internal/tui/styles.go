// Package tui renders the workshop status board.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme names accepted by NewTheme; they match the ui.theme setting.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme contains the style definitions of the board.
type Theme struct {
	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color
	MutedColor     lipgloss.Color

	Primary lipgloss.Style
	Accent  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	Header    lipgloss.Style
	Footer    lipgloss.Style
	Title     lipgloss.Style
	AlertWarn lipgloss.Style
	AlertCrit lipgloss.Style

	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	TableRowAlt lipgloss.Style
	Selected    lipgloss.Style
	Border      lipgloss.Style

	StatusKey     lipgloss.Style
	StatusDivider lipgloss.Style
}

// NewTheme returns the theme for name, dark when unknown.
func NewTheme(name string) *Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ThemeLight:
		return buildTheme(
			lipgloss.Color("#1F2937"),
			lipgloss.Color("#4B5563"),
			lipgloss.Color("#1D4ED8"),
			lipgloss.Color("#9CA3AF"),
			lipgloss.Color("#FFFFFF"),
		)
	default:
		return buildTheme(
			lipgloss.Color("#E5E7EB"),
			lipgloss.Color("#9CA3AF"),
			lipgloss.Color("#38BDF8"),
			lipgloss.Color("#4B5563"),
			lipgloss.Color("#111827"),
		)
	}
}

func buildTheme(primary, secondary, accent, muted, background lipgloss.Color) *Theme {
	errorColor := lipgloss.Color("#EF4444")
	warningColor := lipgloss.Color("#F59E0B")
	successColor := lipgloss.Color("#22C55E")

	t := &Theme{
		PrimaryColor:   primary,
		SecondaryColor: secondary,
		AccentColor:    accent,
		MutedColor:     muted,
	}

	t.Primary = lipgloss.NewStyle().Foreground(primary)
	t.Accent = lipgloss.NewStyle().Foreground(accent)
	t.Muted = lipgloss.NewStyle().Foreground(muted)
	t.Error = lipgloss.NewStyle().Foreground(errorColor)
	t.Warning = lipgloss.NewStyle().Foreground(warningColor)
	t.Success = lipgloss.NewStyle().Foreground(successColor)

	// Header - top bar with clock and shift
	t.Header = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true).
		Padding(0, 1)

	t.Footer = lipgloss.NewStyle().
		Foreground(secondary).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true)

	t.AlertWarn = lipgloss.NewStyle().
		Foreground(warningColor).
		Bold(true)

	t.AlertCrit = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	t.TableHeader = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true)

	t.TableRow = lipgloss.NewStyle().Foreground(primary)
	t.TableRowAlt = lipgloss.NewStyle().Foreground(secondary)

	t.Selected = lipgloss.NewStyle().
		Foreground(background).
		Background(accent).
		Bold(true)

	t.Border = lipgloss.NewStyle().Foreground(muted)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true)

	t.StatusDivider = lipgloss.NewStyle().
		Foreground(muted).
		SetString(" │ ")

	return t
}

// DrawLine draws a horizontal rule of width cells.
func (t *Theme) DrawLine(width int) string {
	if width < 0 {
		width = 0
	}
	return t.Border.Render(strings.Repeat("─", width))
}
