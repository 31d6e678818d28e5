// Package monitoring отвечает за чтение текущего учебного статуса студента:
// он должен заниматься сейчас или нет, и занимается ли на самом деле.
package monitoring

import (
	"context"
	"time"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
)

// Status is the derived attendance state of a student at an instant.
type Status string

const (
	// StatusAttending: an assigned interval covers the instant and at least
	// one presence session linked to it is active.
	StatusAttending Status = "ATTENDING"

	// StatusAbsent: an assigned interval covers the instant but no linked
	// presence session is active.
	StatusAbsent Status = "ABSENT"

	// StatusNoAssignedTime: no assigned interval covers the instant.
	StatusNoAssignedTime Status = "NO_ASSIGNED_TIME"
)

// Resolution is the result of a status lookup.
type Resolution struct {
	Status   Status
	Assigned *schedule.AssignedInterval
	Actuals  []*presence.ActualInterval
}

// AssignedFinder is the slice of the schedule repository the resolver needs.
type AssignedFinder interface {
	FindContaining(ctx context.Context, studentID string, t time.Time) ([]*schedule.AssignedInterval, error)
}

// ActualFinder is the slice of the presence repository the resolver needs.
type ActualFinder interface {
	FindByAssignedID(ctx context.Context, assignedID string) ([]*presence.ActualInterval, error)
}

// StatusResolver derives a student's status from stored intervals. It holds
// no state of its own: the answer is re-derivable at any instant.
type StatusResolver struct {
	assigned AssignedFinder
	actuals  ActualFinder
}

// NewStatusResolver creates a new status resolver.
func NewStatusResolver(assigned AssignedFinder, actuals ActualFinder) *StatusResolver {
	return &StatusResolver{assigned: assigned, actuals: actuals}
}

// Resolve returns the student's status as of the given instant.
func (r *StatusResolver) Resolve(ctx context.Context, studentID string, asOf time.Time) (*Resolution, error) {
	containing, err := r.assigned.FindContaining(ctx, studentID, asOf)
	if err != nil {
		return nil, err
	}
	if len(containing) == 0 {
		return &Resolution{Status: StatusNoAssignedTime}, nil
	}
	assigned := containing[0]

	linked, err := r.actuals.FindByAssignedID(ctx, assigned.ID)
	if err != nil {
		return nil, err
	}

	for _, actual := range linked {
		if activeAt(actual, asOf) {
			return &Resolution{Status: StatusAttending, Assigned: assigned, Actuals: linked}, nil
		}
	}

	return &Resolution{Status: StatusAbsent, Assigned: assigned, Actuals: linked}, nil
}

// activeAt: open sessions count as active regardless of asOf's relation to
// their start; closed sessions count inside the inclusive [start, end] range.
func activeAt(a *presence.ActualInterval, asOf time.Time) bool {
	if a.EndTime == nil {
		return true
	}
	return !asOf.Before(a.StartTime) && !asOf.After(*a.EndTime)
}
