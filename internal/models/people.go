package models

import (
	"strings"
	"time"
)

// User is a roster entry.
type User struct {
	Login    string `json:"login" validate:"required"`
	Imie     string `json:"imie"`
	Nazwisko string `json:"nazwisko"`
	Rola     string `json:"rola"`
	Zmiana   string `json:"zmiana" validate:"omitempty,oneof=1 2 3 I II III"`
	Aktywny  *bool  `json:"aktywny,omitempty"`
	PIN      string `json:"pin,omitempty" validate:"omitempty,numeric"`
}

// DisplayName returns "Imie Nazwisko", or the login when both are empty.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.Imie + " " + u.Nazwisko)
	if name == "" {
		return u.Login
	}
	return name
}

// IsActive reports whether the user is active (default true).
func (u *User) IsActive() bool {
	return u.Aktywny == nil || *u.Aktywny
}

// PresenceRecord is one heartbeat entry keyed by login@machine.
type PresenceRecord struct {
	Login   string `json:"login"`
	Role    string `json:"role"`
	Machine string `json:"machine"`
	TS      string `json:"ts"`
	Logout  bool   `json:"logout"`
}

// PresenceKey builds the presence map key.
func PresenceKey(login, machine string) string {
	return login + "@" + machine
}

// Age returns how long ago the record was written, or false if ts is unreadable.
func (p *PresenceRecord) Age(now time.Time) (time.Duration, bool) {
	ts, err := time.Parse(time.RFC3339, p.TS)
	if err != nil {
		return 0, false
	}
	return now.Sub(ts), true
}

// IsOnline applies the liveness rule: fresh within window and not logged out.
func (p *PresenceRecord) IsOnline(now time.Time, window time.Duration) bool {
	if p.Logout {
		return false
	}
	age, ok := p.Age(now)
	return ok && age <= window
}

// PresenceStatus is the read-side view of a presence record.
type PresenceStatus struct {
	Login      string `json:"login"`
	Role       string `json:"role"`
	Machine    string `json:"machine"`
	LastTS     string `json:"last_ts"`
	SecondsAgo int    `json:"seconds_ago"`
	Online     bool   `json:"online"`
	Logout     bool   `json:"logout"`
}

// AbsenceAlert is an idempotent absence record.
type AbsenceAlert struct {
	ID         string      `json:"id"`
	Login      string      `json:"login"`
	Data       string      `json:"data"`
	Zmiana     Shift       `json:"zmiana"`
	CreatedAt  string      `json:"created_at"`
	Status     AlertStatus `json:"status"`
	Resolution string      `json:"resolution"`
	Minutes    int         `json:"minutes"`
	ResolvedBy string      `json:"resolved_by"`
	ResolvedAt string      `json:"resolved_at"`
	Note       string      `json:"note"`
}

// AbsenceAlertID builds the idempotency key "<date>_<login>_<shift>".
func AbsenceAlertID(date, login string, shift Shift) string {
	return date + "_" + login + "_" + string(shift)
}

// PurchaseOrder is a generated shortage document.
type PurchaseOrder struct {
	ID        string     `json:"id"`
	Utworzono string     `json:"utworzono"`
	Pozycje   []Shortage `json:"pozycje"`
}

// PendingRowType tags warehouse rows in the pending orders list.
const PendingRowType = "magazyn_item"

// PendingRow is one entry of zamowienia_oczekujace.json.
type PendingRow struct {
	Type    string  `json:"type"`
	ID      string  `json:"id"`
	Qty     float64 `json:"qty"`
	Comment string  `json:"comment"`
	TS      string  `json:"ts"`
}
