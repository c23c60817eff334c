package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/tui/components"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/warehouse"
)

// DefaultRefresh is used when Options.Refresh is not positive.
const DefaultRefresh = 5 * time.Second

// Snapshot is one refresh of the board data.
type Snapshot struct {
	Taken time.Time

	// Shift is the production shift by wall clock; Slot the rotation slot.
	Shift models.Shift
	Slot  models.Slot

	OnShift  []string
	Presence []models.PresenceStatus
	Stock    []warehouse.Alert

	PendingAbsence int

	// Errors are per-source load failures shown in the footer.
	Errors []string
}

// Loader produces a snapshot. It runs outside the UI goroutine.
type Loader func() Snapshot

// Options configures a Board.
type Options struct {
	Refresh time.Duration
	Theme   string
}

type panel int

const (
	panelShift panel = iota
	panelPresence
	panelStock
	panelCount
)

var panelTitles = [panelCount]string{"NA ZMIANIE", "OBECNOŚĆ", "STANY ALARMOWE"}

var panelColumns = [panelCount][]ColumnSpec{
	panelShift: {
		{Fixed: 3, Priority: 1},
		{Weight: 1, MinWidth: 10, Priority: 3},
	},
	panelPresence: {
		{Weight: 1, MinWidth: 8, Priority: 3},
		{Weight: 1, MinWidth: 6, Priority: 1},
		{Fixed: 6, Priority: 2},
		{Fixed: 7, Priority: 3},
	},
	panelStock: {
		{Weight: 1, MinWidth: 6, Priority: 2},
		{Weight: 2, MinWidth: 8, Priority: 3},
		{Fixed: 8, Priority: 3},
		{Fixed: 8, Priority: 1},
		{Fixed: 5, Priority: 2},
	},
}

// Board is the read-only status board model.
type Board struct {
	load    Loader
	refresh time.Duration
	theme   *Theme
	keys    KeyMap

	width  int
	height int
	ready  bool

	snap    Snapshot
	loaded  bool
	loading bool
	gen     int

	focus  panel
	tables [panelCount]*components.Table
}

type snapshotMsg Snapshot

type tickMsg struct{ gen int }

// NewBoard creates a board that refreshes through load.
func NewBoard(load Loader, opts Options) *Board {
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	b := &Board{
		load:    load,
		refresh: refresh,
		theme:   NewTheme(opts.Theme),
		keys:    DefaultKeyMap(),
	}

	b.tables[panelShift] = components.NewTable([]components.Column{
		{Title: "#", Align: lipgloss.Right},
		{Title: "Pracownik"},
	})
	b.tables[panelPresence] = components.NewTable([]components.Column{
		{Title: "Login"},
		{Title: "Stanowisko"},
		{Title: "Sek.", Align: lipgloss.Right},
		{Title: "Status"},
	})
	b.tables[panelStock] = components.NewTable([]components.Column{
		{Title: "ID"},
		{Title: "Nazwa"},
		{Title: "Stan", Align: lipgloss.Right},
		{Title: "Min", Align: lipgloss.Right},
		{Title: "%", Align: lipgloss.Right},
	})

	for _, t := range b.tables {
		t.SetStyles(b.theme.TableHeader, b.theme.TableRow, b.theme.TableRowAlt, b.theme.Selected, b.theme.Border)
	}
	b.tables[panelShift].SetEmptyText("nikt nie jest zaplanowany")
	b.tables[panelPresence].SetEmptyText("brak zapisów obecności")
	b.tables[panelStock].SetEmptyText("wszystkie stany powyżej progów")
	b.tables[b.focus].Focus(true)

	return b
}

// Snapshot returns the last loaded snapshot.
func (b *Board) Snapshot() Snapshot {
	return b.snap
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	b.loading = true
	return b.loadCmd()
}

func (b *Board) loadCmd() tea.Cmd {
	load := b.load
	return func() tea.Msg {
		return snapshotMsg(load())
	}
}

func (b *Board) tickCmd() tea.Cmd {
	gen := b.gen
	return tea.Tick(b.refresh, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.ready = true
		b.resize()
		return b, nil

	case snapshotMsg:
		b.loading = false
		b.loaded = true
		b.apply(Snapshot(msg))
		return b, b.tickCmd()

	case tickMsg:
		// ticks from before a manual refresh are stale
		if msg.gen != b.gen || b.loading {
			return b, nil
		}
		b.loading = true
		return b, b.loadCmd()
	}

	return b, nil
}

func (b *Board) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case b.keys.Quit.Matches(msg):
		return b, tea.Quit

	case b.keys.Refresh.Matches(msg):
		if b.loading {
			return b, nil
		}
		b.gen++
		b.loading = true
		return b, b.loadCmd()

	case b.keys.NextPanel.Matches(msg):
		b.setFocus((b.focus + 1) % panelCount)

	case b.keys.PrevPanel.Matches(msg):
		b.setFocus((b.focus + panelCount - 1) % panelCount)

	case b.keys.IsNavigation(msg):
		t := b.tables[b.focus]
		switch {
		case b.keys.Up.Matches(msg):
			t.MoveUp()
		case b.keys.Down.Matches(msg):
			t.MoveDown()
		case b.keys.PageUp.Matches(msg):
			t.PageUp()
		case b.keys.PageDown.Matches(msg):
			t.PageDown()
		case b.keys.Home.Matches(msg):
			t.GoToTop()
		case b.keys.End.Matches(msg):
			t.GoToBottom()
		}
	}
	return b, nil
}

func (b *Board) setFocus(p panel) {
	b.tables[b.focus].Focus(false)
	b.focus = p
	b.tables[b.focus].Focus(true)
}

// apply converts a snapshot into table rows.
func (b *Board) apply(s Snapshot) {
	b.snap = s

	shift := make([][]string, 0, len(s.OnShift))
	for i, name := range s.OnShift {
		shift = append(shift, []string{fmt.Sprint(i + 1), name})
	}
	b.tables[panelShift].SetRows(shift)

	presence := make([][]string, 0, len(s.Presence))
	for _, p := range s.Presence {
		ago := "?"
		if p.SecondsAgo >= 0 {
			ago = fmt.Sprint(p.SecondsAgo)
		}
		presence = append(presence, []string{p.Login, p.Machine, ago, presenceLabel(p)})
	}
	b.tables[panelPresence].SetRows(presence)

	stock := make([][]string, 0, len(s.Stock))
	for _, a := range s.Stock {
		stock = append(stock, []string{
			a.ID,
			a.Nazwa,
			formatQty(a.Stan),
			formatQty(a.MinPoziom),
			formatQty(a.ProgPct),
		})
	}
	b.tables[panelStock].SetRows(stock)
}

func presenceLabel(p models.PresenceStatus) string {
	switch {
	case p.Online:
		return "online"
	case p.Logout:
		return "wylog."
	default:
		return "offline"
	}
}

func formatQty(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// resize recomputes column widths and visible rows for the terminal size.
func (b *Board) resize() {
	pw := b.panelWidth()
	inner := max(pw-4, 10)
	for p, t := range b.tables {
		t.SetWidths(CalculateColumnWidths(panelColumns[p], inner, 3))
	}

	// header, rule, footer (3), borders (2), table header (2), range line
	rows := ContentHeight(b.height, 10)
	if b.width < NarrowWidth {
		rows = max(rows/int(panelCount)-4, 3)
	}
	for _, t := range b.tables {
		t.SetVisibleRows(rows)
	}
}

func (b *Board) panelWidth() int {
	w := ContentWidth(b.width, 40, MaxContentWidth)
	if b.width < NarrowWidth {
		return w
	}
	return w / int(panelCount)
}

// View implements tea.Model.
func (b *Board) View() string {
	if !b.ready {
		return "Ładowanie..."
	}

	var s strings.Builder
	s.WriteString(b.renderHeader())
	s.WriteString("\n")
	s.WriteString(b.theme.DrawLine(ContentWidth(b.width, 40, MaxContentWidth)))
	s.WriteString("\n")

	pw := b.panelWidth()
	panels := make([]string, 0, panelCount)
	for p, t := range b.tables {
		title := fmt.Sprintf("%s (%d)", panelTitles[p], t.RowCount())
		panels = append(panels, b.theme.Panel(title, t.Render(), pw, panel(p) == b.focus))
	}
	s.WriteString(Columns(b.width, panels...))
	s.WriteString("\n")
	s.WriteString(b.renderFooter())
	return s.String()
}

func (b *Board) renderHeader() string {
	parts := []string{b.theme.Header.Render("WARSZTAT MENAGER")}
	if !b.loaded {
		parts = append(parts, b.theme.Muted.Render("wczytywanie..."))
		return strings.Join(parts, b.theme.StatusDivider.String())
	}

	parts = append(parts, b.theme.Primary.Render(util.FormatDateTime(b.snap.Taken)))
	shift := "zmiana " + string(b.snap.Shift)
	if b.snap.Slot != models.SlotNone {
		shift += " · " + string(b.snap.Slot)
	}
	parts = append(parts, b.theme.Accent.Render(shift))
	return strings.Join(parts, b.theme.StatusDivider.String())
}

func (b *Board) renderFooter() string {
	var lines []string

	status := []string{}
	if n := b.snap.PendingAbsence; n > 0 {
		status = append(status, b.theme.AlertWarn.Render(fmt.Sprintf("Nieobecności do wyjaśnienia: %d", n)))
	}
	if n := len(b.snap.Stock); n > 0 {
		status = append(status, b.theme.AlertCrit.Render(fmt.Sprintf("Stany alarmowe: %d", n)))
	}
	for _, e := range b.snap.Errors {
		status = append(status, b.theme.Error.Render(Truncate(e, 60)))
	}
	if len(status) == 0 && b.loaded {
		status = append(status, b.theme.Success.Render("Bez alarmów"))
	}
	if len(status) > 0 {
		lines = append(lines, b.theme.Footer.Render(strings.Join(status, b.theme.StatusDivider.String())))
	}

	// narrow columns truncate, so the focused row is repeated in full
	if row := b.tables[b.focus].SelectedRow(); row != nil {
		lines = append(lines, b.theme.Footer.Render(b.theme.Muted.Render("▸ "+Truncate(strings.Join(row, " · "), max(b.width-4, 10)))))
	}

	lines = append(lines, b.theme.Footer.Render(b.theme.StatusKey.Render(b.keys.StatusBarHelp())))
	return strings.Join(lines, "\n")
}
