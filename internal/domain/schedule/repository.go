package schedule

import (
	"context"
	"time"
)

// Repository defines the persistence interface for assigned intervals.
//
// Time-based queries follow the same half-open semantics as the entity:
// an interval "contains" t when startTime <= t < endTime.
type Repository interface {
	// Create persists a new assigned interval.
	Create(ctx context.Context, a *AssignedInterval) error

	// GetByID returns an assigned interval by ID.
	// Returns shared.ErrAssignedNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*AssignedInterval, error)

	// Update updates an assigned interval.
	Update(ctx context.Context, a *AssignedInterval) error

	// Delete removes an assigned interval. Linked actual intervals are NOT
	// touched: their link value keeps pointing at the removed ID as a
	// historical attribution (see the presence package).
	Delete(ctx context.Context, id string) error

	// FindByStudent returns all assigned intervals of a student ordered by
	// start time ascending.
	FindByStudent(ctx context.Context, studentID string) ([]*AssignedInterval, error)

	// FindContaining returns the student's assigned intervals whose
	// [start, end) contains t, ordered by start time ascending. Well-formed
	// data has at most one, but the query must not fail on malformed overlaps;
	// callers take the first.
	FindContaining(ctx context.Context, studentID string, t time.Time) ([]*AssignedInterval, error)

	// FindOverlapping returns the student's assigned intervals overlapping
	// the half-open range [start, end), excluding the interval with
	// excludeID (pass "" to exclude nothing).
	FindOverlapping(ctx context.Context, studentID string, start, end time.Time, excludeID string) ([]*AssignedInterval, error)

	// FindByStartMinute returns all assigned intervals across students whose
	// start time, truncated to the minute, equals the given minute. The
	// argument must already be minute-truncated.
	FindByStartMinute(ctx context.Context, minute time.Time) ([]*AssignedInterval, error)

	// FindBetween returns all assigned intervals whose start time falls in
	// [from, to), ordered by student ID then start time. Used by the daily
	// digest pass.
	FindBetween(ctx context.Context, from, to time.Time) ([]*AssignedInterval, error)
}
