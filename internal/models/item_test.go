package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestItem_Available(t *testing.T) {
	tests := []struct {
		name       string
		stan       float64
		rezerwacje float64
		want       float64
	}{
		{"No reservations", 10, 0, 10},
		{"Some reservations", 8, 3, 5},
		{"Fully reserved", 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &Item{Stan: tt.stan, Rezerwacje: tt.rezerwacje}
			if got := item.Available(); got != tt.want {
				t.Errorf("Item.Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItem_Conversion(t *testing.T) {
	if got := (&Item{}).Conversion(); got != 1 {
		t.Errorf("expected default conversion 1, got %v", got)
	}
	if got := (&Item{WspKonwersji: 2.5}).Conversion(); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}

func TestItem_AlertPct(t *testing.T) {
	item := &Item{ProgiAlertowPct: []float64{25, 100, 50}}
	got := item.AlertPct()
	want := []float64{100, 50, 25}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AlertPct() = %v, want %v", got, want)
		}
	}
	if item.ProgiAlertowPct[0] != 25 {
		t.Error("AlertPct must not reorder the item's own slice")
	}

	if got := (&Item{}).AlertPct(); len(got) != 1 || got[0] != 100 {
		t.Errorf("expected default [100], got %v", got)
	}
}

func TestItem_Clone(t *testing.T) {
	orig := &Item{ID: "A", Historia: []HistoryEntry{{Operacja: OpReceipt, Ilosc: 1}}}
	c := orig.Clone()
	c.Historia[0].Ilosc = 99
	if orig.Historia[0].Ilosc != 1 {
		t.Error("Clone shares history backing array")
	}
}

func TestParseShift(t *testing.T) {
	tests := []struct {
		in   string
		want Shift
		ok   bool
	}{
		{"1", ShiftI, true},
		{"2", ShiftII, true},
		{"3", ShiftIII, true},
		{"ii", ShiftII, true},
		{" III ", ShiftIII, true},
		{"4", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseShift(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseShift(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSlot_Short(t *testing.T) {
	if SlotMorning.Short() != "R" || SlotAfternoon.Short() != "P" || SlotNone.Short() != "" {
		t.Error("unexpected slot short codes")
	}
	if SlotNone.String() != "-" {
		t.Errorf("expected '-', got %q", SlotNone.String())
	}
}

func TestOrderKind_Valid(t *testing.T) {
	for _, k := range OrderKinds {
		if !k.Valid() {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if OrderKind("XX").Valid() {
		t.Error("expected XX to be invalid")
	}
}

func TestFlexDecoding(t *testing.T) {
	var p Product
	data := `{"kod":"Z","version":2,"bom_revision":"3"}`
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Version != "2" {
		t.Errorf("expected version 2, got %q", p.Version)
	}
	if p.BOMRevision == nil || *p.BOMRevision != 3 {
		t.Errorf("expected bom_revision 3, got %v", p.BOMRevision)
	}
}

func TestPresenceRecord_IsOnline(t *testing.T) {
	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	window := 120 * time.Second

	tests := []struct {
		name string
		rec  PresenceRecord
		want bool
	}{
		{"fresh", PresenceRecord{TS: now.Add(-30 * time.Second).Format(time.RFC3339)}, true},
		{"at window edge", PresenceRecord{TS: now.Add(-120 * time.Second).Format(time.RFC3339)}, true},
		{"stale", PresenceRecord{TS: now.Add(-121 * time.Second).Format(time.RFC3339)}, false},
		{"logged out", PresenceRecord{TS: now.Format(time.RFC3339), Logout: true}, false},
		{"garbage ts", PresenceRecord{TS: "yesterday"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.IsOnline(now, window); got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	u := &User{Login: "jkowal", Imie: "Jan", Nazwisko: "Kowalski"}
	if got := u.DisplayName(); got != "Jan Kowalski" {
		t.Errorf("expected 'Jan Kowalski', got %q", got)
	}
	if got := (&User{Login: "anon"}).DisplayName(); got != "anon" {
		t.Errorf("expected login fallback, got %q", got)
	}
	if !u.IsActive() {
		t.Error("expected user without flag to be active")
	}
}

func TestAbsenceAlertID(t *testing.T) {
	if got := AbsenceAlertID("2025-01-06", "jkowal", ShiftII); got != "2025-01-06_jkowal_II" {
		t.Errorf("unexpected id %q", got)
	}
}
