// Package schedule derives weekly morning/afternoon rotations from an anchor
// Monday and per-user pattern strings.
package schedule

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// File is the rotation data file inside the schedules directory.
const File = "tryby_userow.json"

// DefaultMode is used for users without an assigned mode.
const DefaultMode = "B"

const maxAnchorAhead = 365

var (
	ErrDateFormat = fmt.Errorf("%w: invalid date format, expected YYYY-MM-DD", models.ErrValidation)
	ErrDateInPast = fmt.Errorf("%w: date is in the past", models.ErrValidation)
	ErrDateTooFar = fmt.Errorf("%w: date is too far in the future", models.ErrValidation)
)

// DefaultPatterns returns the sample rotation patterns.
func DefaultPatterns() map[string]string {
	return map[string]string{"A": "112", "B": "111", "C": "12"}
}

// Data is the on-disk shape of tryby_userow.json.
type Data struct {
	AnchorMonday string            `json:"anchor_monday"`
	Patterns     map[string]string `json:"patterns"`
	Modes        map[string]string `json:"modes"`
}

// Roster supplies the users taking part in the rotation.
type Roster interface {
	Active() []models.User
}

// Options configures a Planner. Shift bounds are HH:MM; empty values take
// the defaults 06:00-14:00 and 14:00-22:00.
type Options struct {
	Path           string
	MorningStart   string
	MorningEnd     string
	AfternoonStart string
	AfternoonEnd   string
	Clock          util.Clock
	Logger         zerolog.Logger
}

type span struct {
	start, end int // minutes of day
	label      [2]string
}

func (s span) contains(m int) bool {
	return m >= s.start && m < s.end
}

// Planner answers rotation questions for the users of a roster.
type Planner struct {
	path   string
	roster Roster
	clock  util.Clock
	log    zerolog.Logger

	morning   span
	afternoon span

	mu     sync.Mutex
	data   Data
	anchor time.Time
}

// New loads the rotation data file and returns a planner.
func New(roster Roster, opts Options) (*Planner, error) {
	p := &Planner{
		path:   opts.Path,
		roster: roster,
		clock:  util.OrSystem(opts.Clock),
		log:    opts.Logger.With().Str("component", "schedule").Logger(),
	}

	var err error
	if p.morning, err = parseSpan(opts.MorningStart, opts.MorningEnd, "06:00", "14:00"); err != nil {
		return nil, fmt.Errorf("morning shift: %w", err)
	}
	if p.afternoon, err = parseSpan(opts.AfternoonStart, opts.AfternoonEnd, "14:00", "22:00"); err != nil {
		return nil, fmt.Errorf("afternoon shift: %w", err)
	}

	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseSpan(start, end, defStart, defEnd string) (span, error) {
	if strings.TrimSpace(start) == "" {
		start = defStart
	}
	if strings.TrimSpace(end) == "" {
		end = defEnd
	}
	s, err := minutes(start)
	if err != nil {
		return span{}, err
	}
	e, err := minutes(end)
	if err != nil {
		return span{}, err
	}
	if e <= s {
		return span{}, fmt.Errorf("%w: shift end %s is not after start %s", models.ErrValidation, end, start)
	}
	return span{start: s, end: e, label: [2]string{start, end}}, nil
}

func minutes(hhmm string) (int, error) {
	t, err := time.Parse(util.ClockFormat, strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q", models.ErrValidation, hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Reload re-reads the data file.
func (p *Planner) Reload() error {
	data, warning, err := jsonio.Load(p.path, func() Data { return Data{} })
	if err != nil {
		return fmt.Errorf("loading rotation data: %w", err)
	}
	if warning == jsonio.WarningCorrupt {
		p.log.Warn().Str("path", p.path).Msg("rotation file is corrupt, using defaults")
	}
	p.normalise(&data)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
	p.anchor = p.parseAnchor(data.AnchorMonday)
	return nil
}

func (p *Planner) normalise(d *Data) {
	patterns := map[string]string{}
	for name, pat := range d.Patterns {
		if !validPattern(pat) {
			p.log.Warn().Str("pattern", name).Str("value", pat).Msg("ignoring invalid rotation pattern")
			continue
		}
		patterns[name] = pat
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	d.Patterns = patterns
	if d.Modes == nil {
		d.Modes = map[string]string{}
	}
}

func validPattern(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '1' && r != '2' {
			return false
		}
	}
	return true
}

func (p *Planner) parseAnchor(s string) time.Time {
	if t, err := util.ParseDate(strings.TrimSpace(s)); err == nil {
		return monday(t)
	}
	if s != "" {
		p.log.Warn().Str("anchor_monday", s).Msg("unreadable anchor date, using current week")
	}
	return monday(p.clock.Now())
}

// monday returns the Monday of t's week as a UTC calendar date.
func monday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ============================================================================
// DERIVATIONS
// ============================================================================

// AnchorMonday returns the normalised anchor date.
func (p *Planner) AnchorMonday() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchor
}

// Patterns returns a copy of the configured patterns.
func (p *Planner) Patterns() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.data.Patterns))
	for k, v := range p.data.Patterns {
		out[k] = v
	}
	return out
}

// WeekIdx returns the number of whole weeks between the anchor Monday and the
// Monday of day. It is negative before the anchor.
func (p *Planner) WeekIdx(day time.Time) int {
	anchor := p.AnchorMonday()
	days := int(monday(day).Sub(anchor).Hours() / 24)
	return floorDiv(days, 7)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// SlotForMode returns the slot a pattern assigns for a week index.
func SlotForMode(mode string, weekIdx int) models.Slot {
	if mode == "" {
		return models.SlotMorning
	}
	n := len(mode)
	i := ((weekIdx % n) + n) % n
	if mode[i] == '1' {
		return models.SlotMorning
	}
	return models.SlotAfternoon
}

// UserMode returns the pattern string of a user. A mode name is looked up in
// the patterns; a literal pattern is used as is; anything else falls back to
// the default mode.
func (p *Planner) UserMode(login string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userModeLocked(login)
}

func (p *Planner) userModeLocked(login string) string {
	mode := strings.TrimSpace(p.data.Modes[login])
	if pat, ok := p.data.Patterns[mode]; ok {
		return pat
	}
	if validPattern(mode) {
		return mode
	}
	if pat, ok := p.data.Patterns[DefaultMode]; ok {
		return pat
	}
	return DefaultPatterns()[DefaultMode]
}

// CurrentSlot returns the slot containing now's wall-clock time, or SlotNone.
func (p *Planner) CurrentSlot(now time.Time) models.Slot {
	m := now.Hour()*60 + now.Minute()
	switch {
	case p.morning.contains(m):
		return models.SlotMorning
	case p.afternoon.contains(m):
		return models.SlotAfternoon
	default:
		return models.SlotNone
	}
}

// WhoIsOnNow returns display names of active users whose rotation puts them
// in the slot containing now. Outside both slots it returns nil.
func (p *Planner) WhoIsOnNow(now time.Time) []string {
	slot := p.CurrentSlot(now)
	if slot == models.SlotNone {
		return nil
	}
	idx := p.WeekIdx(now)

	var names []string
	for _, u := range p.roster.Active() {
		if SlotForMode(p.UserMode(u.Login), idx) == slot {
			names = append(names, u.DisplayName())
		}
	}
	return names
}

// DayEntry is one cell of the week matrix.
type DayEntry struct {
	Date  string `json:"date"`
	Dow   string `json:"dow"`
	Shift string `json:"shift"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// UserWeek is one row of the week matrix.
type UserWeek struct {
	Login string     `json:"login"`
	Name  string     `json:"name"`
	Mode  string     `json:"mode"`
	Days  []DayEntry `json:"days"`
}

// WeekMatrix returns Monday to Saturday of anyDay's week for every active
// user. Sundays are not emitted.
func (p *Planner) WeekMatrix(anyDay time.Time) []UserWeek {
	start := monday(anyDay)
	idx := p.WeekIdx(anyDay)

	var out []UserWeek
	for _, u := range p.roster.Active() {
		mode := p.UserMode(u.Login)
		slot := SlotForMode(mode, idx)
		bounds := p.morning
		if slot == models.SlotAfternoon {
			bounds = p.afternoon
		}

		row := UserWeek{Login: u.Login, Name: u.DisplayName(), Mode: mode}
		for i := 0; i < 6; i++ {
			d := start.AddDate(0, 0, i)
			row.Days = append(row.Days, DayEntry{
				Date:  util.FormatDate(d),
				Dow:   d.Weekday().String()[:3],
				Shift: slot.Short(),
				Start: bounds.label[0],
				End:   bounds.label[1],
			})
		}
		out = append(out, row)
	}
	return out
}

// ============================================================================
// MUTATIONS
// ============================================================================

// SetUserMode assigns a named pattern to a user and persists it.
func (p *Planner) SetUserMode(login, mode string) error {
	login = strings.TrimSpace(login)
	mode = strings.TrimSpace(mode)
	if login == "" {
		return fmt.Errorf("%w: user is required", models.ErrValidation)
	}

	p.mu.Lock()
	_, known := p.data.Patterns[mode]
	p.mu.Unlock()
	if !known {
		return fmt.Errorf("%w: unknown mode %q", models.ErrValidation, mode)
	}

	err := p.persist(func(d *Data) {
		if d.Modes == nil {
			d.Modes = map[string]string{}
		}
		d.Modes[login] = mode
	})
	if err != nil {
		return err
	}
	p.log.Info().Str("user", login).Str("mode", mode).Msg("rotation mode set")
	return nil
}

// SetAnchorMonday validates iso (YYYY-MM-DD, not in the past, at most a
// year ahead), snaps it to its Monday and persists it.
func (p *Planner) SetAnchorMonday(iso string) (time.Time, error) {
	t, err := util.ParseDate(strings.TrimSpace(iso))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", iso, ErrDateFormat)
	}

	now := p.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case t.Before(today):
		return time.Time{}, fmt.Errorf("%s: %w", iso, ErrDateInPast)
	case t.After(today.AddDate(0, 0, maxAnchorAhead)):
		return time.Time{}, fmt.Errorf("%s: %w", iso, ErrDateTooFar)
	}

	anchor := monday(t)
	if err := p.persist(func(d *Data) { d.AnchorMonday = util.FormatDate(anchor) }); err != nil {
		return time.Time{}, err
	}
	p.log.Info().Str("anchor_monday", util.FormatDate(anchor)).Msg("anchor Monday set")
	return anchor, nil
}

// persist applies fn to the file under its lock and to the in-memory copy.
func (p *Planner) persist(fn func(*Data)) error {
	var saved Data
	err := jsonio.Update(p.path, func() Data { return Data{} }, func(d *Data, _ string) error {
		if len(d.Patterns) == 0 {
			d.Patterns = p.Patterns()
		}
		fn(d)
		saved = *d
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving rotation data: %w", err)
	}

	p.normalise(&saved)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = saved
	p.anchor = p.parseAnchor(saved.AnchorMonday)
	return nil
}
