package schedule

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memRepo struct {
	items map[string]*AssignedInterval
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string]*AssignedInterval)}
}

func (m *memRepo) Create(_ context.Context, a *AssignedInterval) error {
	m.items[a.ID] = a
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*AssignedInterval, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, shared.ErrAssignedNotFound
	}
	return a, nil
}

func (m *memRepo) Update(_ context.Context, a *AssignedInterval) error {
	if _, ok := m.items[a.ID]; !ok {
		return shared.ErrAssignedNotFound
	}
	m.items[a.ID] = a
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrAssignedNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) FindByStudent(_ context.Context, studentID string) ([]*AssignedInterval, error) {
	var out []*AssignedInterval
	for _, a := range m.items {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memRepo) FindContaining(_ context.Context, studentID string, t time.Time) ([]*AssignedInterval, error) {
	var out []*AssignedInterval
	for _, a := range m.items {
		if a.StudentID == studentID && !t.Before(a.StartTime) && t.Before(a.EndTime) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memRepo) FindOverlapping(_ context.Context, studentID string, start, end time.Time, excludeID string) ([]*AssignedInterval, error) {
	var out []*AssignedInterval
	for _, a := range m.items {
		if a.StudentID != studentID || a.ID == excludeID {
			continue
		}
		if a.StartTime.Before(end) && start.Before(a.EndTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) FindByStartMinute(_ context.Context, minute time.Time) ([]*AssignedInterval, error) {
	var out []*AssignedInterval
	for _, a := range m.items {
		if a.StartTime.Truncate(time.Minute).Equal(minute) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) FindBetween(_ context.Context, from, to time.Time) ([]*AssignedInterval, error) {
	var out []*AssignedInterval
	for _, a := range m.items {
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memStudents struct {
	ids map[string]bool
}

func (m *memStudents) Create(_ context.Context, s *student.Student) error { m.ids[s.ID] = true; return nil }
func (m *memStudents) GetByID(_ context.Context, id string) (*student.Student, error) {
	if !m.ids[id] {
		return nil, shared.ErrStudentNotFound
	}
	return &student.Student{ID: id, Status: student.StatusActive}, nil
}
func (m *memStudents) Update(_ context.Context, _ *student.Student) error { return nil }
func (m *memStudents) Exists(_ context.Context, id string) (bool, error)  { return m.ids[id], nil }
func (m *memStudents) GetByStatus(_ context.Context, _ student.Status) ([]*student.Student, error) {
	return nil, nil
}

type memActivities struct {
	items map[string]*student.Activity
}

func (m *memActivities) Create(_ context.Context, a *student.Activity) error {
	m.items[a.ID] = a
	return nil
}
func (m *memActivities) GetByID(_ context.Context, id string) (*student.Activity, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, shared.ErrActivityNotFound
	}
	return a, nil
}
func (m *memActivities) GetAll(_ context.Context) ([]*student.Activity, error) { return nil, nil }

type spyBackfiller struct {
	calls []string
	count int
}

func (s *spyBackfiller) ConnectEarlyAndInRange(_ context.Context, assignedID string) (int, error) {
	s.calls = append(s.calls, assignedID)
	return s.count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

var serviceNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type serviceFixture struct {
	repo       *memRepo
	backfill   *spyBackfiller
	service    *Service
	studentID  string
	activityID string
}

func newServiceFixture() *serviceFixture {
	studentID := uuid.New().String()
	activityID := uuid.New().String()

	students := &memStudents{ids: map[string]bool{studentID: true}}
	activities := &memActivities{items: map[string]*student.Activity{
		activityID: {ID: activityID, Name: "Математика", Assignable: true},
	}}

	repo := newMemRepo()
	backfill := &spyBackfiller{}
	svc := NewService(repo, students, activities, backfill, nil).
		WithClock(func() time.Time { return serviceNow })

	return &serviceFixture{
		repo:       repo,
		backfill:   backfill,
		service:    svc,
		studentID:  studentID,
		activityID: activityID,
	}
}

func (f *serviceFixture) input(start, end time.Time) CreateInput {
	return CreateInput{
		StudentID:  f.studentID,
		ActivityID: f.activityID,
		Title:      "Математика",
		StartTime:  start,
		EndTime:    end,
		CreatedBy:  "teacher-1",
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestServiceCreate_PersistsAndBackfills(t *testing.T) {
	f := newServiceFixture()

	created, err := f.service.Create(context.Background(), f.input(serviceNow.Add(2*time.Hour), serviceNow.Add(3*time.Hour)))
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, f.repo.items, 1)
	assert.Equal(t, []string{created.ID}, f.backfill.calls)
}

func TestServiceCreate_RejectsMalformedInput(t *testing.T) {
	f := newServiceFixture()

	in := f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour))
	in.StudentID = "not-a-uuid"

	_, err := f.service.Create(context.Background(), in)
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, f.backfill.calls)
}

func TestServiceCreate_RejectsPastStart(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Create(context.Background(), f.input(serviceNow.Add(-time.Hour), serviceNow.Add(time.Hour)))
	assert.ErrorIs(t, err, shared.ErrStartInPast)
}

func TestServiceCreate_RejectsInvertedRange(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Create(context.Background(), f.input(serviceNow.Add(2*time.Hour), serviceNow.Add(time.Hour)))
	assert.ErrorIs(t, err, shared.ErrStartAfterEnd)
}

func TestServiceCreate_RejectsOverlap(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Create(context.Background(), f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour)))
	assert.NoError(t, err)

	_, err = f.service.Create(context.Background(), f.input(serviceNow.Add(90*time.Minute), serviceNow.Add(150*time.Minute)))
	assert.True(t, shared.IsConflict(err))
	assert.Len(t, f.repo.items, 1)
}

func TestServiceCreate_AcceptsBackToBack(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Create(context.Background(), f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour)))
	assert.NoError(t, err)

	// [2h, 3h) touches [1h, 2h) only at the shared boundary; half-open
	// intervals make that a non-overlap.
	_, err = f.service.Create(context.Background(), f.input(serviceNow.Add(2*time.Hour), serviceNow.Add(3*time.Hour)))
	assert.NoError(t, err)
	assert.Len(t, f.repo.items, 2)
}

func TestServiceCreate_RejectsUnknownStudent(t *testing.T) {
	f := newServiceFixture()

	in := f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour))
	in.StudentID = uuid.New().String()

	_, err := f.service.Create(context.Background(), in)
	assert.True(t, shared.IsNotFound(err))
}

func TestServiceCreate_RejectsUnassignableActivity(t *testing.T) {
	f := newServiceFixture()

	retiredID := uuid.New().String()
	f.service.activities.(*memActivities).items[retiredID] = &student.Activity{
		ID: retiredID, Name: "Архив", Assignable: false,
	}

	in := f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour))
	in.ActivityID = retiredID

	_, err := f.service.Create(context.Background(), in)
	assert.ErrorIs(t, err, shared.ErrNotAssignable)
}

func TestServiceUpdate_DoesNotBackfill(t *testing.T) {
	f := newServiceFixture()

	created, err := f.service.Create(context.Background(), f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour)))
	assert.NoError(t, err)
	assert.Len(t, f.backfill.calls, 1)

	_, err = f.service.Update(context.Background(), created.ID, UpdateInput{
		ActivityID: f.activityID,
		Title:      "Математика (перенос)",
		StartTime:  serviceNow.Add(3 * time.Hour),
		EndTime:    serviceNow.Add(4 * time.Hour),
	})
	assert.NoError(t, err)

	// Backfill runs at creation only; moving the slot does not re-scan
	// presence history.
	assert.Len(t, f.backfill.calls, 1)

	updated, err := f.service.Get(context.Background(), created.ID)
	assert.NoError(t, err)
	assert.Equal(t, serviceNow.Add(3*time.Hour), updated.StartTime)
	assert.Equal(t, "Математика (перенос)", updated.Title)
}

func TestServiceUpdate_OverlapExcludesSelf(t *testing.T) {
	f := newServiceFixture()

	created, err := f.service.Create(context.Background(), f.input(serviceNow.Add(time.Hour), serviceNow.Add(2*time.Hour)))
	assert.NoError(t, err)

	// Re-saving the same window must not collide with itself.
	_, err = f.service.Update(context.Background(), created.ID, UpdateInput{
		ActivityID: f.activityID,
		Title:      "Математика",
		StartTime:  serviceNow.Add(time.Hour),
		EndTime:    serviceNow.Add(2 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestServiceDelete_UnknownID(t *testing.T) {
	f := newServiceFixture()

	err := f.service.Delete(context.Background(), uuid.New().String())
	assert.True(t, shared.IsNotFound(err))
}
