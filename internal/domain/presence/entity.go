// Package presence содержит доменную модель фактического присутствия:
// сессии, которые бот учебных комнат фиксирует по факту, и механизм их привязки
// к назначенным интервалам расписания.
package presence

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTUAL INTERVAL
// ══════════════════════════════════════════════════════════════════════════════

// ActualInterval is a recorded presence session of a student. It is open
// while EndTime is nil and closed once an end timestamp is set.
//
// AssignedIntervalID is nil while the session is unlinked. A link, once set,
// survives deletion of the assignment: the field is a historical attribution,
// not a foreign key.
type ActualInterval struct {
	ID                 string
	StudentID          string
	AssignedIntervalID *string
	StartTime          time.Time
	EndTime            *time.Time
	Source             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewActualInterval creates a new open presence session.
func NewActualInterval(studentID, source string, startTime time.Time) (*ActualInterval, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, shared.ErrEmptySource
	}

	now := time.Now().UTC()

	return &ActualInterval{
		ID:        uuid.New().String(),
		StudentID: studentID,
		StartTime: startTime.UTC(),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOpen reports whether the session has not been closed yet.
func (a *ActualInterval) IsOpen() bool {
	return a.EndTime == nil
}

// IsLinked reports whether the session is attributed to an assigned interval.
func (a *ActualInterval) IsLinked() bool {
	return a.AssignedIntervalID != nil
}

// LinkedTo reports whether the session is attributed to the given assignment.
func (a *ActualInterval) LinkedTo(assignedID string) bool {
	return a.AssignedIntervalID != nil && *a.AssignedIntervalID == assignedID
}

// Link attributes the session to an assigned interval.
func (a *ActualInterval) Link(assignedID string) {
	a.AssignedIntervalID = &assignedID
	a.UpdatedAt = time.Now().UTC()
}

// Close sets the session end. Closing an already closed session is an error;
// an end before the recorded start is rejected.
func (a *ActualInterval) Close(endTime time.Time) error {
	if !a.IsOpen() {
		return shared.ErrActualClosed
	}

	endTime = endTime.UTC()
	if endTime.Before(a.StartTime) {
		return shared.ErrEndBeforePresence
	}

	a.EndTime = &endTime
	a.UpdatedAt = time.Now().UTC()

	return nil
}

// ActiveAt reports whether the session covers the given instant: an open
// session covers everything from its start onward, a closed one covers the
// inclusive range between its start and end.
func (a *ActualInterval) ActiveAt(t time.Time) bool {
	if t.Before(a.StartTime) {
		return false
	}
	if a.EndTime == nil {
		return true
	}
	return !t.After(*a.EndTime)
}
