package schedule

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/testutil"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/users"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func roster() *users.Roster {
	mk := func(login, imie, nazwisko string) models.User {
		return *testutil.FixtureUser(func(u *models.User) {
			u.Login = login
			u.Imie = imie
			u.Nazwisko = nazwisko
		})
	}
	return users.FromUsers([]models.User{
		mk("anna", "Anna", "Żak"),
		mk("bartek", "Bartek", "Łoś"),
		mk("celina", "Celina", "Nowak"),
	})
}

func setup(t *testing.T, data Data, now time.Time) (*Planner, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), File)
	testutil.WriteJSONFile(t, path, data)

	p, err := New(roster(), Options{
		Path:   path,
		Clock:  util.NewFixedClock(now),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return p, path
}

func TestSlotForMode(t *testing.T) {
	tests := []struct {
		mode     string
		week     int
		expected models.Slot
	}{
		{"1212", 0, models.SlotMorning},
		{"1212", 1, models.SlotAfternoon},
		{"1212", 2, models.SlotMorning},
		{"1212", 3, models.SlotAfternoon},
		{"112", 2, models.SlotAfternoon},
		{"112", -1, models.SlotAfternoon},
		{"112", -2, models.SlotMorning},
		{"2", 5, models.SlotAfternoon},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SlotForMode(tt.mode, tt.week), "mode %s week %d", tt.mode, tt.week)
	}
}

func TestWeekIdx(t *testing.T) {
	p, _ := setup(t, Data{AnchorMonday: "2025-01-08"}, at(2025, 1, 1, 8, 0))

	assert.Equal(t, "2025-01-06", util.FormatDate(p.AnchorMonday()))
	assert.Equal(t, 0, p.WeekIdx(at(2025, 1, 6, 0, 0)))
	assert.Equal(t, 0, p.WeekIdx(at(2025, 1, 12, 23, 59)))
	assert.Equal(t, 1, p.WeekIdx(at(2025, 1, 13, 0, 0)))
	assert.Equal(t, -1, p.WeekIdx(at(2025, 1, 5, 12, 0)))
	assert.Equal(t, 52, p.WeekIdx(at(2026, 1, 5, 12, 0)))
}

func TestWeekMatrix(t *testing.T) {
	p, _ := setup(t, Data{
		AnchorMonday: "2025-01-06",
		Patterns:     map[string]string{"X": "1212", "B": "111"},
		Modes:        map[string]string{"anna": "X"},
	}, at(2025, 1, 1, 8, 0))

	matrix := p.WeekMatrix(at(2025, 1, 11, 10, 0))
	require.Len(t, matrix, 3)

	var anna UserWeek
	for _, row := range matrix {
		require.Len(t, row.Days, 6)
		if row.Login == "anna" {
			anna = row
		}
	}
	assert.Equal(t, "1212", anna.Mode)
	assert.Equal(t, "2025-01-06", anna.Days[0].Date)
	assert.Equal(t, "Mon", anna.Days[0].Dow)
	assert.Equal(t, DayEntry{Date: "2025-01-11", Dow: "Sat", Shift: "R", Start: "06:00", End: "14:00"}, anna.Days[5])

	next := p.WeekMatrix(at(2025, 1, 15, 10, 0))
	for _, row := range next {
		if row.Login == "anna" {
			assert.Equal(t, "P", row.Days[0].Shift)
			assert.Equal(t, "14:00", row.Days[0].Start)
			assert.Equal(t, "22:00", row.Days[0].End)
		}
	}
}

func TestWhoIsOnNow(t *testing.T) {
	p, _ := setup(t, Data{
		AnchorMonday: "2025-01-06",
		Patterns:     map[string]string{"X": "1212", "B": "111"},
		Modes:        map[string]string{"anna": "X", "bartek": "B"},
	}, at(2025, 1, 1, 8, 0))

	// Week 1: anna on afternoons, everyone else on mornings.
	assert.Equal(t, []string{"Bartek Łoś", "Celina Nowak"}, p.WhoIsOnNow(at(2025, 1, 13, 7, 0)))
	assert.Equal(t, []string{"Anna Żak"}, p.WhoIsOnNow(at(2025, 1, 13, 14, 0)))
	assert.Nil(t, p.WhoIsOnNow(at(2025, 1, 13, 22, 30)))
	assert.Nil(t, p.WhoIsOnNow(at(2025, 1, 13, 5, 59)))
}

func TestCustomShiftBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), File)
	p, err := New(roster(), Options{
		Path:           path,
		MorningStart:   "07:00",
		MorningEnd:     "15:00",
		AfternoonStart: "15:00",
		AfternoonEnd:   "23:00",
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.SlotNone, p.CurrentSlot(at(2025, 1, 13, 6, 30)))
	assert.Equal(t, models.SlotMorning, p.CurrentSlot(at(2025, 1, 13, 14, 59)))
	assert.Equal(t, models.SlotAfternoon, p.CurrentSlot(at(2025, 1, 13, 22, 59)))

	_, err = New(roster(), Options{Path: path, MorningStart: "7am"})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = New(roster(), Options{Path: path, MorningStart: "14:00", MorningEnd: "06:00"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSetAnchorMonday(t *testing.T) {
	now := at(2025, 1, 1, 9, 0)

	tests := []struct {
		name     string
		input    string
		err      error
		expected string
	}{
		{name: "bad format", input: "2024/01/01", err: ErrDateFormat},
		{name: "past", input: "2024-12-31", err: ErrDateInPast},
		{name: "too far", input: util.FormatDate(now.AddDate(0, 0, 400)), err: ErrDateTooFar},
		{name: "snaps to monday", input: "2025-01-09", expected: "2025-01-06"},
		{name: "today", input: "2025-01-01", expected: "2024-12-30"},
		{name: "a year ahead", input: "2026-01-01", expected: "2025-12-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, path := setup(t, Data{AnchorMonday: "2024-06-03"}, now)

			anchor, err := p.SetAnchorMonday(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.ErrorIs(t, err, models.ErrValidation)
				assert.Equal(t, "2024-06-03", util.FormatDate(p.AnchorMonday()))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, util.FormatDate(anchor))

			var saved Data
			testutil.ReadJSONFile(t, path, &saved)
			assert.Equal(t, tt.expected, saved.AnchorMonday)
		})
	}
}

func TestSetUserMode(t *testing.T) {
	p, path := setup(t, Data{AnchorMonday: "2025-01-06"}, at(2025, 1, 1, 9, 0))

	assert.Equal(t, DefaultPatterns(), p.Patterns())
	assert.Equal(t, "111", p.UserMode("anna"))

	require.NoError(t, p.SetUserMode("anna", "A"))
	assert.Equal(t, "112", p.UserMode("anna"))
	assert.ErrorIs(t, p.SetUserMode("anna", "Z"), models.ErrValidation)
	assert.ErrorIs(t, p.SetUserMode("", "A"), models.ErrValidation)

	var saved Data
	testutil.ReadJSONFile(t, path, &saved)
	assert.Equal(t, "A", saved.Modes["anna"])
	assert.Equal(t, "2025-01-06", saved.AnchorMonday)
	assert.Equal(t, DefaultPatterns(), saved.Patterns)

	reloaded, err := New(roster(), Options{Path: path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, "112", reloaded.UserMode("anna"))
}

func TestInvalidPatternsFallBack(t *testing.T) {
	p, _ := setup(t, Data{
		AnchorMonday: "2025-01-06",
		Patterns:     map[string]string{"bad": "13", "empty": ""},
		Modes:        map[string]string{"anna": "bad"},
	}, at(2025, 1, 1, 9, 0))

	assert.Equal(t, DefaultPatterns(), p.Patterns())
	assert.Equal(t, "111", p.UserMode("anna"))
}
