package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Operation is the kind of a warehouse ledger entry.
type Operation string

const (
	OpCreate    Operation = "CREATE"
	OpReceipt   Operation = "PZ"
	OpConsume   Operation = "RW"
	OpReturn    Operation = "ZW"
	OpReserve   Operation = "rezerwacja"
	OpUnreserve Operation = "zwolnienie"
	OpDelete    Operation = "DEL"

	// OpUpdate marks an edit of item fields; it is logged globally but not
	// added to the item history.
	OpUpdate Operation = "EDYCJA"
)

func (o Operation) String() string {
	return string(o)
}

// Slot is a shift slot derived from configured hour boundaries.
type Slot string

const (
	SlotNone      Slot = ""
	SlotMorning   Slot = "RANO"
	SlotAfternoon Slot = "POPO"
)

func (s Slot) String() string {
	if s == SlotNone {
		return "-"
	}
	return string(s)
}

// Short returns the one-letter code used in the week matrix.
func (s Slot) Short() string {
	switch s {
	case SlotMorning:
		return "R"
	case SlotAfternoon:
		return "P"
	default:
		return ""
	}
}

// Shift is one of the three fixed production shifts.
type Shift string

const (
	ShiftI   Shift = "I"
	ShiftII  Shift = "II"
	ShiftIII Shift = "III"
)

func (s Shift) String() string {
	return string(s)
}

// ParseShift normalises "1"/"2"/"3" and roman numerals to a Shift.
func ParseShift(s string) (Shift, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "I":
		return ShiftI, true
	case "2", "II":
		return ShiftII, true
	case "3", "III":
		return ShiftIII, true
	default:
		return "", false
	}
}

// AlertStatus is the lifecycle state of an absence alert.
type AlertStatus string

const (
	AlertStatusPending  AlertStatus = "pending"
	AlertStatusResolved AlertStatus = "resolved"
)

func (s AlertStatus) String() string {
	return string(s)
}

// OrderKind is the prefix family of a production order.
type OrderKind string

const (
	OrderKindZW OrderKind = "ZW"
	OrderKindZN OrderKind = "ZN"
	OrderKindZM OrderKind = "ZM"
	OrderKindZZ OrderKind = "ZZ"
)

// OrderKinds lists every known kind.
var OrderKinds = []OrderKind{OrderKindZW, OrderKindZN, OrderKindZM, OrderKindZZ}

func (k OrderKind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k OrderKind) Valid() bool {
	for _, known := range OrderKinds {
		if k == known {
			return true
		}
	}
	return false
}

// FlexString decodes from either a JSON string or a JSON number.
// Product versions are written both ways in the wild.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt decodes from either a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}
