package presence

import (
	"context"
	"time"
)

// Repository defines data access for actual intervals.
type Repository interface {
	// Create persists a new actual interval.
	Create(ctx context.Context, actual *ActualInterval) error

	// GetByID returns an actual interval by ID.
	// Returns shared.ErrActualNotFound if no such interval exists.
	GetByID(ctx context.Context, id string) (*ActualInterval, error)

	// Update persists changes to an existing actual interval.
	Update(ctx context.Context, actual *ActualInterval) error

	// FindOpenByStudent returns all open sessions of a student,
	// most recent start first.
	FindOpenByStudent(ctx context.Context, studentID string) ([]*ActualInterval, error)

	// FindLatestOpenOrUnlinked returns the student's most recently started
	// session among those still open or not yet linked, with a start at or
	// before asOf. Multiple open sessions should not exist, but when the data
	// is malformed the most-recent-first ordering is the documented tie-break.
	// Returns (nil, nil) when no such session exists.
	FindLatestOpenOrUnlinked(ctx context.Context, studentID string, asOf time.Time) (*ActualInterval, error)

	// FindByAssignedID returns all sessions linked to the given assigned
	// interval.
	FindByAssignedID(ctx context.Context, assignedID string) ([]*ActualInterval, error)

	// FindBackfillCandidates returns the student's unlinked sessions that are
	// either still open with a start before `start`, or have a start inside
	// [start, end) regardless of being closed. Ordered by start time
	// ascending. Sessions linked to another assignment are never returned.
	FindBackfillCandidates(ctx context.Context, studentID string, start, end time.Time) ([]*ActualInterval, error)

	// FindActiveAt returns the student's sessions covering the given instant.
	FindActiveAt(ctx context.Context, studentID string, at time.Time) ([]*ActualInterval, error)

	// CloseAndCreate persists the close of one session and the creation of
	// another in a single transaction. Used for the ownership handover when a
	// new assignment starts while an earlier session is still open.
	CloseAndCreate(ctx context.Context, toClose, fresh *ActualInterval) error
}
