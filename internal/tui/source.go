package tui

import (
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/absence"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/app"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// AppLoader builds snapshots from the services of a.
func AppLoader(a *app.App, clock util.Clock) Loader {
	clock = util.OrSystem(clock)
	return func() Snapshot {
		now := clock.Now()
		s := Snapshot{
			Taken: now,
			Shift: absence.ActiveShift(now),
			Slot:  a.Schedule.CurrentSlot(now),
		}

		if err := a.Schedule.Reload(); err != nil {
			s.Errors = append(s.Errors, "grafik: "+err.Error())
		}
		s.OnShift = a.Schedule.WhoIsOnNow(now)

		presence, err := a.Presence.Read(0)
		if err != nil {
			s.Errors = append(s.Errors, "obecność: "+err.Error())
		}
		s.Presence = presence

		if err := a.Warehouse.Reload(); err != nil {
			s.Errors = append(s.Errors, "magazyn: "+err.Error())
		}
		s.Stock = a.Warehouse.ThresholdAlerts()

		pending, err := a.Absence.Pending()
		if err != nil {
			s.Errors = append(s.Errors, "alerty: "+err.Error())
		}
		s.PendingAbsence = len(pending)

		return s
	}
}
