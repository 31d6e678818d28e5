package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
)

type stubAssignedFinder struct {
	intervals []*schedule.AssignedInterval
}

func (s *stubAssignedFinder) FindContaining(_ context.Context, studentID string, t time.Time) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range s.intervals {
		if a.StudentID == studentID && a.Contains(t) {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubActualFinder struct {
	actuals []*presence.ActualInterval
}

func (s *stubActualFinder) FindByAssignedID(_ context.Context, assignedID string) ([]*presence.ActualInterval, error) {
	var out []*presence.ActualInterval
	for _, a := range s.actuals {
		if a.AssignedIntervalID != nil && *a.AssignedIntervalID == assignedID {
			out = append(out, a)
		}
	}
	return out, nil
}

var almaty = time.FixedZone("Asia/Almaty", 5*60*60)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, almaty)
}

func TestResolve_Boundaries(t *testing.T) {
	ctx := context.Background()

	a, err := schedule.NewAssignedInterval("student-1", "activity-1", "Math tutoring", at(10, 0), at(12, 0), "teacher-1")
	assert.NoError(t, err)

	assigned := &stubAssignedFinder{intervals: []*schedule.AssignedInterval{a}}
	resolver := NewStatusResolver(assigned, &stubActualFinder{})

	// Inside the slot with nothing linked.
	res, err := resolver.Resolve(ctx, "student-1", at(10, 30))
	assert.NoError(t, err)
	assert.Equal(t, StatusAbsent, res.Status)
	assert.Equal(t, a.ID, res.Assigned.ID)

	// Before start and at the exclusive end boundary.
	res, err = resolver.Resolve(ctx, "student-1", at(9, 59))
	assert.NoError(t, err)
	assert.Equal(t, StatusNoAssignedTime, res.Status)

	res, err = resolver.Resolve(ctx, "student-1", at(12, 0))
	assert.NoError(t, err)
	assert.Equal(t, StatusNoAssignedTime, res.Status)
}

func TestResolve_AttendingWithOpenSession(t *testing.T) {
	ctx := context.Background()

	a, err := schedule.NewAssignedInterval("student-1", "activity-1", "Math tutoring", at(10, 0), at(12, 0), "teacher-1")
	assert.NoError(t, err)

	actual, err := presence.NewActualInterval("student-1", "room-bot", at(10, 5))
	assert.NoError(t, err)
	actual.Link(a.ID)

	resolver := NewStatusResolver(
		&stubAssignedFinder{intervals: []*schedule.AssignedInterval{a}},
		&stubActualFinder{actuals: []*presence.ActualInterval{actual}},
	)

	res, err := resolver.Resolve(ctx, "student-1", at(10, 30))
	assert.NoError(t, err)
	assert.Equal(t, StatusAttending, res.Status)
	assert.Len(t, res.Actuals, 1)
}

func TestResolve_ClosedSessionCoversInclusiveRange(t *testing.T) {
	ctx := context.Background()

	a, err := schedule.NewAssignedInterval("student-1", "activity-1", "Math tutoring", at(10, 0), at(12, 0), "teacher-1")
	assert.NoError(t, err)

	actual, err := presence.NewActualInterval("student-1", "room-bot", at(10, 5))
	assert.NoError(t, err)
	actual.Link(a.ID)
	assert.NoError(t, actual.Close(at(10, 50)))

	resolver := NewStatusResolver(
		&stubAssignedFinder{intervals: []*schedule.AssignedInterval{a}},
		&stubActualFinder{actuals: []*presence.ActualInterval{actual}},
	)

	// Covered by the closed session, end inclusive.
	res, err := resolver.Resolve(ctx, "student-1", at(10, 50))
	assert.NoError(t, err)
	assert.Equal(t, StatusAttending, res.Status)

	// After the session ended but still inside the assigned slot.
	res, err = resolver.Resolve(ctx, "student-1", at(11, 30))
	assert.NoError(t, err)
	assert.Equal(t, StatusAbsent, res.Status)
}

func TestResolve_UnlinkedSessionDoesNotCount(t *testing.T) {
	ctx := context.Background()

	a, err := schedule.NewAssignedInterval("student-1", "activity-1", "Math tutoring", at(10, 0), at(12, 0), "teacher-1")
	assert.NoError(t, err)

	// Present but never linked: the slot still reads as absent.
	actual, err := presence.NewActualInterval("student-1", "room-bot", at(10, 5))
	assert.NoError(t, err)

	resolver := NewStatusResolver(
		&stubAssignedFinder{intervals: []*schedule.AssignedInterval{a}},
		&stubActualFinder{actuals: []*presence.ActualInterval{actual}},
	)

	res, err := resolver.Resolve(ctx, "student-1", at(10, 30))
	assert.NoError(t, err)
	assert.Equal(t, StatusAbsent, res.Status)
}
