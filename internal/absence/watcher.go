// Package absence raises alerts for users expected on the current shift who
// are not online once the grace period has passed.
package absence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/scheduler"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

const (
	// DefaultGrace is the delay after shift start before alerts are raised.
	DefaultGrace = 15 * time.Minute

	// DefaultInterval is the watcher cadence.
	DefaultInterval = 60 * time.Second

	watchTask = "absence.watch"
)

var errNoChange = errors.New("no change")

// Roster supplies the users expected at work.
type Roster interface {
	Active() []models.User
}

// Presence reports who is online.
type Presence interface {
	OnlineLogins() (map[string]bool, error)
}

// Options configures a Watcher.
type Options struct {
	Path     string
	Grace    time.Duration
	Interval time.Duration
	Clock    util.Clock
	Logger   zerolog.Logger
}

// Watcher checks presence against shift assignments and keeps alerts.json.
type Watcher struct {
	path     string
	grace    time.Duration
	interval time.Duration
	roster   Roster
	presence Presence
	clock    util.Clock
	log      zerolog.Logger
}

// New creates a watcher.
func New(roster Roster, presence Presence, opts Options) *Watcher {
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		path:     opts.Path,
		grace:    grace,
		interval: interval,
		roster:   roster,
		presence: presence,
		clock:    util.OrSystem(opts.Clock),
		log:      opts.Logger.With().Str("component", "absence").Logger(),
	}
}

// ActiveShift returns I for [06:00, 14:00), II for [14:00, 22:00) and III
// otherwise.
func ActiveShift(now time.Time) models.Shift {
	switch h := now.Hour(); {
	case h >= 6 && h < 14:
		return models.ShiftI
	case h >= 14 && h < 22:
		return models.ShiftII
	default:
		return models.ShiftIII
	}
}

// ShiftStart returns when the shift active at now began. Shift III started
// on the previous day when now is before 06:00.
func ShiftStart(now time.Time) time.Time {
	y, m, d := now.Date()
	switch ActiveShift(now) {
	case models.ShiftI:
		return time.Date(y, m, d, 6, 0, 0, 0, now.Location())
	case models.ShiftII:
		return time.Date(y, m, d, 14, 0, 0, 0, now.Location())
	default:
		start := time.Date(y, m, d, 22, 0, 0, 0, now.Location())
		if now.Hour() < 6 {
			start = start.AddDate(0, 0, -1)
		}
		return start
	}
}

// Tick raises an alert for every active user assigned to the current shift
// who is offline, once the grace period after shift start has passed. Alerts
// are keyed by date, login and shift, so repeated ticks add nothing new. It
// returns the alerts added.
func (w *Watcher) Tick(now time.Time) ([]models.AbsenceAlert, error) {
	start := ShiftStart(now)
	if now.Before(start.Add(w.grace)) {
		return nil, nil
	}
	shift := ActiveShift(now)

	var expected []models.User
	for _, u := range w.roster.Active() {
		if s, ok := models.ParseShift(u.Zmiana); ok && s == shift {
			expected = append(expected, u)
		}
	}
	if len(expected) == 0 {
		return nil, nil
	}

	online, err := w.presence.OnlineLogins()
	if err != nil {
		return nil, fmt.Errorf("reading presence: %w", err)
	}

	date := util.FormatDate(start)
	var candidates []models.AbsenceAlert
	for _, u := range expected {
		if online[u.Login] {
			continue
		}
		candidates = append(candidates, models.AbsenceAlert{
			ID:        models.AbsenceAlertID(date, u.Login, shift),
			Login:     u.Login,
			Data:      date,
			Zmiana:    shift,
			CreatedAt: util.FormatDateTime(now),
			Status:    models.AlertStatusPending,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var added []models.AbsenceAlert
	err = jsonio.Update(w.path, emptyAlerts, func(list *[]models.AbsenceAlert, warning string) error {
		if warning == jsonio.WarningCorrupt {
			w.log.Warn().Str("path", w.path).Msg("alerts file is corrupt, starting fresh")
		}
		known := make(map[string]bool, len(*list))
		for _, a := range *list {
			known[a.ID] = true
		}
		for _, c := range candidates {
			if !known[c.ID] {
				*list = append(*list, c)
				added = append(added, c)
			}
		}
		if len(added) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, fmt.Errorf("writing alerts: %w", err)
	}

	for _, a := range added {
		w.log.Warn().Str("login", a.Login).Str("zmiana", a.Zmiana.String()).Str("data", a.Data).Msg("absence alert raised")
	}
	return added, nil
}

// Start runs Tick every interval on sched until ctx is done. Tick errors
// are logged by the scheduler and the loop continues.
func (w *Watcher) Start(ctx context.Context, sched *scheduler.Scheduler) (*scheduler.Task, error) {
	return sched.EveryNow(ctx, watchTask, w.interval, func(context.Context) error {
		_, err := w.Tick(w.clock.Now())
		return err
	})
}

// ============================================================================
// ALERTS
// ============================================================================

func emptyAlerts() []models.AbsenceAlert {
	return []models.AbsenceAlert{}
}

// Alerts returns every stored alert.
func (w *Watcher) Alerts() ([]models.AbsenceAlert, error) {
	list, _, err := jsonio.Load(w.path, emptyAlerts)
	if err != nil {
		return nil, fmt.Errorf("reading alerts: %w", err)
	}
	return list, nil
}

// Pending returns alerts not yet resolved.
func (w *Watcher) Pending() ([]models.AbsenceAlert, error) {
	list, err := w.Alerts()
	if err != nil {
		return nil, err
	}
	var out []models.AbsenceAlert
	for _, a := range list {
		if a.Status != models.AlertStatusResolved {
			out = append(out, a)
		}
	}
	return out, nil
}

// Resolve closes an alert with a resolution (for example "spóźnienie" with
// minutes late, or "urlop").
func (w *Watcher) Resolve(id, resolution string, minutes int, by, note string) error {
	if strings.TrimSpace(resolution) == "" {
		return fmt.Errorf("%w: resolution is required", models.ErrValidation)
	}
	if minutes < 0 {
		return fmt.Errorf("%w: minutes must not be negative", models.ErrValidation)
	}

	err := jsonio.Update(w.path, emptyAlerts, func(list *[]models.AbsenceAlert, _ string) error {
		for i := range *list {
			a := &(*list)[i]
			if a.ID != id {
				continue
			}
			a.Status = models.AlertStatusResolved
			a.Resolution = resolution
			a.Minutes = minutes
			a.ResolvedBy = by
			a.ResolvedAt = util.FormatDateTime(w.clock.Now())
			a.Note = note
			return nil
		}
		return fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	})
	if err != nil {
		return err
	}

	w.log.Info().Str("id", id).Str("resolution", resolution).Str("by", by).Msg("absence alert resolved")
	return nil
}
