package presence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memAssignedRepo struct {
	items map[string]*schedule.AssignedInterval
}

func newMemAssignedRepo() *memAssignedRepo {
	return &memAssignedRepo{items: make(map[string]*schedule.AssignedInterval)}
}

func (m *memAssignedRepo) Create(_ context.Context, a *schedule.AssignedInterval) error {
	m.items[a.ID] = a
	return nil
}

func (m *memAssignedRepo) GetByID(_ context.Context, id string) (*schedule.AssignedInterval, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, shared.ErrAssignedNotFound
	}
	return a, nil
}

func (m *memAssignedRepo) Update(_ context.Context, a *schedule.AssignedInterval) error {
	m.items[a.ID] = a
	return nil
}

func (m *memAssignedRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrAssignedNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memAssignedRepo) FindByStudent(_ context.Context, studentID string) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range m.items {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memAssignedRepo) FindContaining(_ context.Context, studentID string, t time.Time) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range m.items {
		if a.StudentID == studentID && a.Contains(t) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memAssignedRepo) FindOverlapping(_ context.Context, studentID string, start, end time.Time, excludeID string) ([]*schedule.AssignedInterval, error) {
	probe := shared.TimeRange{Start: start, End: end}
	var out []*schedule.AssignedInterval
	for _, a := range m.items {
		if a.StudentID != studentID || a.ID == excludeID {
			continue
		}
		if a.Range().Overlaps(probe) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignedRepo) FindByStartMinute(_ context.Context, minute time.Time) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range m.items {
		if a.StartTime.Truncate(time.Minute).Equal(minute) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignedRepo) FindBetween(_ context.Context, from, to time.Time) ([]*schedule.AssignedInterval, error) {
	var out []*schedule.AssignedInterval
	for _, a := range m.items {
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

type memActualRepo struct {
	items map[string]*ActualInterval
}

func newMemActualRepo() *memActualRepo {
	return &memActualRepo{items: make(map[string]*ActualInterval)}
}

func (m *memActualRepo) Create(_ context.Context, a *ActualInterval) error {
	m.items[a.ID] = a
	return nil
}

func (m *memActualRepo) GetByID(_ context.Context, id string) (*ActualInterval, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, shared.ErrActualNotFound
	}
	return a, nil
}

func (m *memActualRepo) Update(_ context.Context, a *ActualInterval) error {
	if _, ok := m.items[a.ID]; !ok {
		return shared.ErrActualNotFound
	}
	m.items[a.ID] = a
	return nil
}

func (m *memActualRepo) FindOpenByStudent(_ context.Context, studentID string) ([]*ActualInterval, error) {
	var out []*ActualInterval
	for _, a := range m.items {
		if a.StudentID == studentID && a.IsOpen() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (m *memActualRepo) FindLatestOpenOrUnlinked(_ context.Context, studentID string, asOf time.Time) (*ActualInterval, error) {
	var best *ActualInterval
	for _, a := range m.items {
		if a.StudentID != studentID || a.StartTime.After(asOf) {
			continue
		}
		if !a.IsOpen() && a.IsLinked() {
			continue
		}
		if best == nil || a.StartTime.After(best.StartTime) {
			best = a
		}
	}
	return best, nil
}

func (m *memActualRepo) FindByAssignedID(_ context.Context, assignedID string) ([]*ActualInterval, error) {
	var out []*ActualInterval
	for _, a := range m.items {
		if a.LinkedTo(assignedID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memActualRepo) FindBackfillCandidates(_ context.Context, studentID string, start, end time.Time) ([]*ActualInterval, error) {
	inRange := shared.TimeRange{Start: start, End: end}
	var out []*ActualInterval
	for _, a := range m.items {
		if a.StudentID != studentID || a.IsLinked() {
			continue
		}
		early := a.IsOpen() && a.StartTime.Before(start)
		if early || inRange.Contains(a.StartTime) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memActualRepo) FindActiveAt(_ context.Context, studentID string, at time.Time) ([]*ActualInterval, error) {
	var out []*ActualInterval
	for _, a := range m.items {
		if a.StudentID == studentID && a.ActiveAt(at) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memActualRepo) CloseAndCreate(_ context.Context, toClose, fresh *ActualInterval) error {
	m.items[toClose.ID] = toClose
	m.items[fresh.ID] = fresh
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

var almaty = time.FixedZone("Asia/Almaty", 5*60*60)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, almaty)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustAssigned(t *testing.T, repo *memAssignedRepo, studentID string, start, end time.Time) *schedule.AssignedInterval {
	t.Helper()
	a, err := schedule.NewAssignedInterval(studentID, "activity-1", "Math tutoring", start, end, "teacher-1")
	assert.NoError(t, err)
	assert.NoError(t, repo.Create(context.Background(), a))
	return a
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordPresenceStart_LinksWhenInsideAssignment(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil)

	a := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	actual, err := rec.RecordPresenceStart(ctx, "student-1", at(10, 5), "room-bot")
	assert.NoError(t, err)
	assert.True(t, actual.IsOpen())
	assert.True(t, actual.LinkedTo(a.ID))
}

func TestRecordPresenceStart_EarlyArrivalStaysUnlinked(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil)

	mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	actual, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 45), "room-bot")
	assert.NoError(t, err)
	assert.True(t, actual.IsOpen())
	assert.False(t, actual.IsLinked())
}

func TestRecordPresenceEnd_ClosesSession(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil)

	actual, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 45), "room-bot")
	assert.NoError(t, err)

	closed, err := rec.RecordPresenceEnd(ctx, actual.ID, at(10, 40))
	assert.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, at(10, 40).UTC(), *closed.EndTime)

	// Closing twice is rejected.
	_, err = rec.RecordPresenceEnd(ctx, actual.ID, at(10, 50))
	assert.ErrorIs(t, err, shared.ErrActualClosed)

	_, err = rec.RecordPresenceEnd(ctx, "missing-id", at(10, 40))
	assert.ErrorIs(t, err, shared.ErrActualNotFound)
}

func TestCloseOpenSessionsForStudent_TotalAndIdempotent(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil)

	// Malformed data: two open sessions at once.
	first, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 0), "room-bot")
	assert.NoError(t, err)
	second, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 30), "room-bot")
	assert.NoError(t, err)

	closed, err := rec.CloseOpenSessionsForStudent(ctx, "student-1", at(10, 0))
	assert.NoError(t, err)
	assert.Len(t, closed, 2)

	got1, _ := actuals.GetByID(ctx, first.ID)
	got2, _ := actuals.GetByID(ctx, second.ID)
	assert.False(t, got1.IsOpen())
	assert.False(t, got2.IsOpen())

	// Nothing left open: a second call is a no-op.
	closed, err = rec.CloseOpenSessionsForStudent(ctx, "student-1", at(10, 5))
	assert.NoError(t, err)
	assert.Empty(t, closed)
}

func TestConnectOnAssignmentStart_NoPresenceYet(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil).WithClock(fixedClock(at(10, 0)))

	a := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	actual, err := rec.ConnectOnAssignmentStart(ctx, a.ID)
	assert.NoError(t, err)
	assert.Nil(t, actual)
}

func TestConnectOnAssignmentStart_EarlyConnectorKeepsStartTime(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil).WithClock(fixedClock(at(10, 0)))

	a := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	early, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 50), "room-bot")
	assert.NoError(t, err)
	assert.False(t, early.IsLinked())

	linked, err := rec.ConnectOnAssignmentStart(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, early.ID, linked.ID)
	assert.True(t, linked.LinkedTo(a.ID))
	// The student gets credit from the actual connection time.
	assert.Equal(t, at(9, 50).UTC(), linked.StartTime)
	assert.True(t, linked.IsOpen())
}

func TestConnectOnAssignmentStart_Idempotent(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil).WithClock(fixedClock(at(10, 0)))

	a := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	_, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 50), "room-bot")
	assert.NoError(t, err)

	first, err := rec.ConnectOnAssignmentStart(ctx, a.ID)
	assert.NoError(t, err)

	second, err := rec.ConnectOnAssignmentStart(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.StartTime, second.StartTime)
	assert.Len(t, actuals.items, 1)
}

func TestConnectOnAssignmentStart_OwnershipTransfer(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()

	x := mustAssigned(t, assigned, "student-1", at(9, 30), at(9, 50))
	y := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	rec := NewReconciler(actuals, assigned, nil).WithClock(fixedClock(at(9, 30)))
	old, err := rec.RecordPresenceStart(ctx, "student-1", at(9, 30), "room-bot")
	assert.NoError(t, err)
	assert.True(t, old.LinkedTo(x.ID))

	rec = rec.WithClock(fixedClock(at(10, 0)))
	fresh, err := rec.ConnectOnAssignmentStart(ctx, y.ID)
	assert.NoError(t, err)

	// The superseded session is closed exactly at the new assignment's start.
	oldStored, _ := actuals.GetByID(ctx, old.ID)
	assert.False(t, oldStored.IsOpen())
	assert.Equal(t, at(10, 0).UTC(), *oldStored.EndTime)
	assert.True(t, oldStored.LinkedTo(x.ID))

	// A fresh open session takes over from T0.
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.True(t, fresh.IsOpen())
	assert.True(t, fresh.LinkedTo(y.ID))
	assert.Equal(t, at(10, 0).UTC(), fresh.StartTime)
	assert.Equal(t, "room-bot", fresh.Source)
}

func TestConnectEarlyAndInRange_LinksMultipleNeverSteals(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()
	rec := NewReconciler(actuals, assigned, nil)

	other := mustAssigned(t, assigned, "student-1", at(8, 0), at(9, 0))

	// Session owned by another assignment: must never be touched.
	owned, err := NewActualInterval("student-1", "room-bot", at(8, 5))
	assert.NoError(t, err)
	owned.Link(other.ID)
	assert.NoError(t, actuals.Create(ctx, owned))

	// Early, still-open connection.
	early, err := NewActualInterval("student-1", "room-bot", at(9, 50))
	assert.NoError(t, err)
	assert.NoError(t, actuals.Create(ctx, early))

	// Closed reconnection inside the new assignment's range.
	inRange, err := NewActualInterval("student-1", "room-bot", at(10, 20))
	assert.NoError(t, err)
	assert.NoError(t, inRange.Close(at(10, 35)))
	assert.NoError(t, actuals.Create(ctx, inRange))

	a := mustAssigned(t, assigned, "student-1", at(10, 0), at(12, 0))

	linked, err := rec.ConnectEarlyAndInRange(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, linked)

	gotEarly, _ := actuals.GetByID(ctx, early.ID)
	gotInRange, _ := actuals.GetByID(ctx, inRange.ID)
	gotOwned, _ := actuals.GetByID(ctx, owned.ID)
	assert.True(t, gotEarly.LinkedTo(a.ID))
	assert.True(t, gotInRange.LinkedTo(a.ID))
	assert.True(t, gotOwned.LinkedTo(other.ID))
}

// Full morning of one student: early arrival, scheduler connect, session end.
func TestReconciliation_MorningScenario(t *testing.T) {
	ctx := context.Background()
	assigned := newMemAssignedRepo()
	actuals := newMemActualRepo()

	a := mustAssigned(t, assigned, "student-s", at(9, 40), at(10, 40))

	rec := NewReconciler(actuals, assigned, nil).WithClock(fixedClock(at(9, 30)))
	a1, err := rec.RecordPresenceStart(ctx, "student-s", at(9, 30), "room-bot")
	assert.NoError(t, err)
	assert.False(t, a1.IsLinked())

	// 09:40 tick fires.
	rec = rec.WithClock(fixedClock(at(9, 40)))
	linked, err := rec.ConnectOnAssignmentStart(ctx, a.ID)
	assert.NoError(t, err)
	assert.Equal(t, a1.ID, linked.ID)
	assert.Equal(t, at(9, 30).UTC(), linked.StartTime)

	// No-show check at 09:50 sees a linked session.
	byAssigned, err := actuals.FindByAssignedID(ctx, a.ID)
	assert.NoError(t, err)
	assert.Len(t, byAssigned, 1)

	// Presence ends at 10:40.
	closed, err := rec.RecordPresenceEnd(ctx, a1.ID, at(10, 40))
	assert.NoError(t, err)
	assert.Equal(t, at(10, 40).UTC(), *closed.EndTime)
}
