package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILER
// ══════════════════════════════════════════════════════════════════════════════

// Reconciler decides, for a given assigned interval, which presence sessions
// represent that student's attendance, and keeps the link consistent as new
// assignments and new presence events arrive.
type Reconciler struct {
	actuals  Repository
	assigned schedule.Repository
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewReconciler creates a new reconciler.
func NewReconciler(actuals Repository, assigned schedule.Repository, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		actuals:  actuals,
		assigned: assigned,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the reconciler clock. Used in tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// RecordPresenceStart creates a new open session for the student. When an
// assigned interval's [start, end) contains the event time, the session is
// created already linked to it; otherwise it is created unlinked, which is
// the common early-arrival case. Existing sessions are never mutated here:
// closing is a presence-end responsibility.
func (r *Reconciler) RecordPresenceStart(ctx context.Context, studentID string, at time.Time, source string) (*ActualInterval, error) {
	actual, err := NewActualInterval(studentID, source, at)
	if err != nil {
		return nil, err
	}

	containing, err := r.assigned.FindContaining(ctx, studentID, at)
	if err != nil {
		return nil, err
	}
	if len(containing) > 0 {
		// Overlaps should not exist; if the data is malformed the first by
		// start time wins rather than failing the event.
		actual.Link(containing[0].ID)
	}

	if err := r.actuals.Create(ctx, actual); err != nil {
		return nil, err
	}

	r.logger.Info("presence session started",
		"actual_id", actual.ID,
		"student_id", studentID,
		"linked", actual.IsLinked(),
		"source", source,
	)

	return actual, nil
}

// RecordPresenceEnd closes the given session at the given time.
func (r *Reconciler) RecordPresenceEnd(ctx context.Context, actualID string, at time.Time) (*ActualInterval, error) {
	actual, err := r.actuals.GetByID(ctx, actualID)
	if err != nil {
		return nil, err
	}

	if err := actual.Close(at); err != nil {
		return nil, err
	}

	if err := r.actuals.Update(ctx, actual); err != nil {
		return nil, err
	}

	r.logger.Info("presence session closed",
		"actual_id", actual.ID,
		"student_id", actual.StudentID,
	)

	return actual, nil
}

// CloseOpenSessionsForStudent closes every open session of the student at the
// given time. Well-formed data has at most one open session, but the
// operation is total over however many exist and is a no-op when there are
// none.
func (r *Reconciler) CloseOpenSessionsForStudent(ctx context.Context, studentID string, at time.Time) ([]*ActualInterval, error) {
	open, err := r.actuals.FindOpenByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	closed := make([]*ActualInterval, 0, len(open))
	for _, actual := range open {
		if err := actual.Close(at); err != nil {
			return closed, err
		}
		if err := r.actuals.Update(ctx, actual); err != nil {
			return closed, err
		}
		closed = append(closed, actual)
	}

	return closed, nil
}

// ConnectOnAssignmentStart is the core reconciliation step, invoked by the
// scheduler at the minute an assigned interval's start time is reached.
//
// The student's most recent open-or-unlinked session started at or before now
// is the candidate. Three outcomes:
//   - no candidate: nothing to connect yet, returns (nil, nil);
//   - candidate linked to a different assignment: that session is superseded;
//     it is closed at the new assignment's start and a fresh open session,
//     same source, is created linked to the new assignment. History stays
//     attributed to the old assignment instead of being rewritten;
//   - candidate unlinked: linked in place, keeping its original start time so
//     an early connection gets credit from the actual connection time.
//
// Calling it again for the same assignment with no new presence events in
// between finds the already-linked session and returns it unchanged.
func (r *Reconciler) ConnectOnAssignmentStart(ctx context.Context, assignedID string) (*ActualInterval, error) {
	assigned, err := r.assigned.GetByID(ctx, assignedID)
	if err != nil {
		return nil, err
	}

	candidate, err := r.actuals.FindLatestOpenOrUnlinked(ctx, assigned.StudentID, r.now())
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	if candidate.LinkedTo(assigned.ID) {
		return candidate, nil
	}

	if candidate.IsLinked() {
		return r.transferOwnership(ctx, assigned, candidate)
	}

	candidate.Link(assigned.ID)
	if err := r.actuals.Update(ctx, candidate); err != nil {
		return nil, err
	}

	r.logger.Info("linked presence session on assignment start",
		"actual_id", candidate.ID,
		"assigned_id", assigned.ID,
		"student_id", assigned.StudentID,
	)

	return candidate, nil
}

// transferOwnership closes the superseded session at the new assignment's
// start and opens a fresh session linked to it, atomically.
func (r *Reconciler) transferOwnership(ctx context.Context, assigned *schedule.AssignedInterval, old *ActualInterval) (*ActualInterval, error) {
	t0 := assigned.StartTime

	if err := old.Close(t0); err != nil {
		return nil, err
	}

	fresh, err := NewActualInterval(assigned.StudentID, old.Source, t0)
	if err != nil {
		return nil, err
	}
	fresh.Link(assigned.ID)

	if err := r.actuals.CloseAndCreate(ctx, old, fresh); err != nil {
		return nil, err
	}

	r.logger.Info("presence session handed over to new assignment",
		"closed_actual_id", old.ID,
		"fresh_actual_id", fresh.ID,
		"assigned_id", assigned.ID,
		"student_id", assigned.StudentID,
	)

	return fresh, nil
}

// ConnectEarlyAndInRange backfills links at assignment-creation time: every
// unlinked session that is either still open and started before the
// assignment, or started inside its [start, end) range, is linked. Unlike
// ConnectOnAssignmentStart this may link several sessions, and it never
// touches a session already linked elsewhere. Returns the number linked.
func (r *Reconciler) ConnectEarlyAndInRange(ctx context.Context, assignedID string) (int, error) {
	assigned, err := r.assigned.GetByID(ctx, assignedID)
	if err != nil {
		return 0, err
	}

	candidates, err := r.actuals.FindBackfillCandidates(ctx, assigned.StudentID, assigned.StartTime, assigned.EndTime)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, actual := range candidates {
		if actual.IsLinked() {
			continue
		}
		actual.Link(assigned.ID)
		if err := r.actuals.Update(ctx, actual); err != nil {
			return linked, err
		}
		linked++
	}

	return linked, nil
}
