// Package schedule contains the planned side of study monitoring: assigned
// intervals created by teachers and their lifecycle rules.
//
// The key invariant of this package: for a given student no two assigned
// intervals may overlap in time. Intervals use half-open semantics [start, end),
// so back-to-back slots (end1 == start2) are always legal.
package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// MaxTitleLength is the maximum length of an assigned interval title.
const MaxTitleLength = 255

// AssignedInterval represents a planned study slot created by a teacher.
type AssignedInterval struct {
	ID         string
	StudentID  string
	ActivityID string
	Title      string

	// StartTime and EndTime bound the half-open interval [StartTime, EndTime).
	StartTime time.Time
	EndTime   time.Time

	// CreatedBy is the ID of the teacher who created the slot.
	CreatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAssignedInterval creates a new assigned interval with basic field
// validation. Overlap and existence checks belong to the Service, which has
// access to the repositories.
func NewAssignedInterval(studentID, activityID, title string, start, end time.Time, createdBy string) (*AssignedInterval, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return nil, shared.ErrTitleTooLong
	}
	if !start.Before(end) {
		return nil, shared.ErrStartAfterEnd
	}

	now := time.Now().UTC()
	return &AssignedInterval{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		ActivityID: activityID,
		Title:      title,
		StartTime:  start,
		EndTime:    end,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Range returns the interval as a half-open TimeRange.
func (a *AssignedInterval) Range() shared.TimeRange {
	return shared.TimeRange{Start: a.StartTime, End: a.EndTime}
}

// Contains reports whether t falls inside [StartTime, EndTime).
func (a *AssignedInterval) Contains(t time.Time) bool {
	return a.Range().Contains(t)
}

// Overlaps reports whether two assigned intervals intersect in time.
func (a *AssignedInterval) Overlaps(other *AssignedInterval) bool {
	return a.Range().Overlaps(other.Range())
}
