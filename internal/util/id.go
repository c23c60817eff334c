// Package util provides shared helpers for Warsztat Menager.
package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewID generates a time-ordered UUIDv7 identifier.
// Event and audit identifiers sort by creation time this way.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is broken.
		return uuid.New().String()
	}
	return id.String()
}

// IsValidID checks if a string is a valid UUID format.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatSequence renders a sequence number with a prefix and zero padding.
// Example: FormatSequence("ZW-", 7, 4) = "ZW-0007".
func FormatSequence(prefix string, n, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// ParseSequence extracts the number from a formatted sequence.
func ParseSequence(prefix, s string) (int, error) {
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("invalid sequence %q: missing prefix %q", s, prefix)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
	if err != nil {
		return 0, fmt.Errorf("invalid sequence %q: %w", s, err)
	}
	return n, nil
}
