// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// TelegramChatID represents a Telegram chat identifier used for delivery.
type TelegramChatID int64

// IsValid checks if the chat ID is valid (non-zero; group chats are negative).
func (t TelegramChatID) IsValid() bool {
	return t != 0
}

// Int64 returns the underlying int64 value.
func (t TelegramChatID) Int64() int64 {
	return int64(t)
}

// String returns the string representation.
func (t TelegramChatID) String() string {
	return fmt.Sprintf("%d", t)
}

// NewTelegramChatID creates a new TelegramChatID with validation.
func NewTelegramChatID(id int64) (TelegramChatID, error) {
	if id == 0 {
		return 0, ErrInvalidChatID
	}
	return TelegramChatID(id), nil
}

// ID represents a unique entity identifier (UUID format).
type ID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the ID is a valid UUID.
func (id ID) IsValid() bool {
	return uuidRegex.MatchString(string(id))
}

// String returns the string representation.
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty.
func (id ID) IsEmpty() bool {
	return id == ""
}

// NewID creates a new ID with validation.
func NewID(raw string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(raw)))
	if !id.IsValid() {
		return "", NewDomainError("shared", "NewID", ErrInvalidID, "invalid ID format")
	}
	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a half-open time interval [Start, End).
// All interval arithmetic in the schedule and presence domains goes through
// this type so that boundary semantics stay in one place: the start instant
// belongs to the range, the end instant does not.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange creates a TimeRange, validating that Start < End.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, ErrStartAfterEnd
	}
	return TimeRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the half-open range [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether two half-open ranges intersect.
// Back-to-back ranges (r.End == other.Start) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// String returns a human-readable representation.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
