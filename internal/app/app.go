// Package app wires the workshop services from the settings layers.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/absence"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/bom"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/config"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/orders"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/presence"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/purchase"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/schedule"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/scheduler"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/settings"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/users"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/warehouse"
)

// Settings keys read by the wiring.
const (
	KeyHeartbeatSec        = "presence.heartbeat_sec"
	KeyOnlineWindowSec     = "presence.online_window_sec"
	KeyAbsenceGraceMin     = "absence.grace_min"
	KeyReservationsEnabled = "warehouse.reservations_enabled"
	KeyMorningStart        = "zmiana_rano_start"
	KeyMorningEnd          = "zmiana_rano_end"
	KeyAfternoonStart      = "zmiana_pop_start"
	KeyAfternoonEnd        = "zmiana_pop_end"
)

// Options configures Open.
type Options struct {
	Settings *settings.Manager
	Config   *config.Config
	Logger   zerolog.Logger
	Clock    util.Clock

	// Host overrides the machine name used for heartbeats.
	Host string
}

// App holds every core service of one process.
type App struct {
	Config    *config.Config
	Settings  *settings.Manager
	Paths     *paths.Resolver
	Warehouse *warehouse.Engine
	BOM       *bom.Resolver
	Purchase  *purchase.Generator
	Orders    *orders.Store
	Roster    users.File
	Schedule  *schedule.Planner
	Presence  *presence.Service
	Absence   *absence.Watcher
	Scheduler *scheduler.Scheduler

	log   zerolog.Logger
	clock util.Clock
}

// Open builds the services. The data tree is created best-effort; failures
// are logged and left to the audit.
func Open(opts Options) (*App, error) {
	if opts.Settings == nil {
		return nil, errors.New("settings manager is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	s := opts.Settings
	r := s.Paths()
	log := opts.Logger
	clock := util.OrSystem(opts.Clock)

	if err := r.EnsureCoreTree(); err != nil {
		log.Warn().Err(err).Msg("data tree incomplete")
	}

	a := &App{
		Config:    cfg,
		Settings:  s,
		Paths:     r,
		Scheduler: scheduler.New(log),
		log:       log.With().Str("component", "app").Logger(),
		clock:     clock,
	}

	a.Purchase = purchase.New(r.Resolve(paths.KeyPurchaseDir), purchase.Options{Logger: log, Clock: clock})
	a.Orders = orders.New(r.Resolve(paths.KeyOrdersDir), orders.Options{Logger: log})
	a.BOM = bom.New(r.Resolve(paths.KeyProductsDir), r.Resolve(paths.KeySemiProductsDir), bom.Options{Logger: log})
	a.Roster = users.File{Path: r.Resolve(paths.KeyUsersFile), Logger: log}

	var err error
	a.Warehouse, err = warehouse.New(warehouse.Options{
		Path:                r.Resolve(paths.KeyStockSource),
		ReservationsPath:    r.Resolve(paths.KeyReservationsFile),
		ReservationsEnabled: s.GetBool(KeyReservationsEnabled, true),
		Orders:              a.Purchase,
		Logger:              log,
		Clock:               clock,
	})
	if err != nil {
		return nil, fmt.Errorf("opening warehouse: %w", err)
	}

	a.Schedule, err = schedule.New(a.Roster, schedule.Options{
		Path:           r.Join(paths.KeySchedulesDir, schedule.File),
		MorningStart:   s.GetString(KeyMorningStart, ""),
		MorningEnd:     s.GetString(KeyMorningEnd, ""),
		AfternoonStart: s.GetString(KeyAfternoonStart, ""),
		AfternoonEnd:   s.GetString(KeyAfternoonEnd, ""),
		Clock:          clock,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening schedule: %w", err)
	}

	a.Presence = presence.New(presence.Options{
		Path:   r.Resolve(paths.KeyPresenceFile),
		Window: seconds(s.GetInt(KeyOnlineWindowSec, 120)),
		Host:   opts.Host,
		Clock:  clock,
		Logger: log,
	})

	a.Absence = absence.New(a.Roster, a.Presence, absence.Options{
		Path:     r.Resolve(paths.KeyAlertsFile),
		Grace:    time.Duration(s.GetInt(KeyAbsenceGraceMin, 15)) * time.Minute,
		Interval: seconds(cfg.Watchers.AbsenceIntervalSec),
		Clock:    clock,
		Logger:   log,
	})

	a.log.Info().Str("data_root", r.DataRoot()).Str("settings", s.Dir()).Msg("services ready")
	return a, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// StartBackground starts the absence watcher, the settings watcher when
// enabled and, for a non-empty login, the heartbeat of this session.
func (a *App) StartBackground(ctx context.Context, login, role string) error {
	if login != "" {
		interval := seconds(a.Settings.GetInt(KeyHeartbeatSec, 15))
		if _, err := a.Presence.StartHeartbeat(ctx, a.Scheduler, login, role, interval); err != nil {
			return fmt.Errorf("starting heartbeat: %w", err)
		}
	}

	if _, err := a.Absence.Start(ctx, a.Scheduler); err != nil {
		return fmt.Errorf("starting absence watcher: %w", err)
	}

	if a.Config.Watchers.WatchSettings {
		go func() {
			err := a.Settings.Watch(ctx, func(err error) {
				if err != nil {
					return
				}
				if err := a.Warehouse.Reload(); err != nil {
					a.log.Warn().Err(err).Msg("reloading warehouse after settings change")
				}
			})
			if err != nil {
				a.log.Warn().Err(err).Msg("settings watcher stopped")
			}
		}()
	}
	return nil
}

// Close stops background work and ends the heartbeat session.
func (a *App) Close() error {
	a.Scheduler.Stop()
	if err := a.Presence.Shutdown(); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	a.log.Debug().Msg("services closed")
	return nil
}

// AutoOrder queues purchase rows for every item the last stock snapshot
// shows below its minimum.
func (a *App) AutoOrder() ([]models.PendingRow, error) {
	return a.Purchase.AutoOrderMissing(a.Warehouse.StanyPath())
}

// Hostname returns the machine name, or "localhost".
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}
