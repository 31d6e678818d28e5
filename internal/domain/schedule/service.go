package schedule

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Backfiller links already-existing presence sessions to a freshly created
// assigned interval. Implemented by the presence reconciler; declared here to
// keep the dependency one-directional.
type Backfiller interface {
	// ConnectEarlyAndInRange returns the number of sessions linked.
	ConnectEarlyAndInRange(ctx context.Context, assignedID string) (int, error)
}

// Service implements the assigned interval lifecycle: create, update, delete.
// All policy from the lifecycle rules lives here; the repository stays pure
// data access.
type Service struct {
	repo       Repository
	students   student.Repository
	activities student.ActivityRepository
	backfill   Backfiller
	validate   *validator.Validate
	logger     *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewService creates a new schedule service.
func NewService(
	repo Repository,
	students student.Repository,
	activities student.ActivityRepository,
	backfill Backfiller,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:       repo,
		students:   students,
		activities: activities,
		backfill:   backfill,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the service clock. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Inputs
// ─────────────────────────────────────────────────────────────────────────────

// CreateInput contains the fields for creating an assigned interval.
type CreateInput struct {
	StudentID  string    `validate:"required,uuid"`
	ActivityID string    `validate:"required,uuid"`
	Title      string    `validate:"required,max=255"`
	StartTime  time.Time `validate:"required"`
	EndTime    time.Time `validate:"required"`
	CreatedBy  string    `validate:"required"`
}

// UpdateInput contains the fields for updating an assigned interval.
type UpdateInput struct {
	ActivityID string    `validate:"required,uuid"`
	Title      string    `validate:"required,max=255"`
	StartTime  time.Time `validate:"required"`
	EndTime    time.Time `validate:"required"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create validates and persists a new assigned interval, then backfills links
// to any presence sessions that already cover it (early arrivals and in-range
// reconnects). Backfill runs exactly once, at creation time; later time edits
// do not re-scan presence history.
func (s *Service) Create(ctx context.Context, input CreateInput) (*AssignedInterval, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.WrapError("schedule", "Create", shared.ErrValidation, "invalid input", err)
	}

	if err := s.checkTimes(input.StartTime, input.EndTime, true); err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, input.StudentID, input.ActivityID); err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, input.StudentID, input.StartTime, input.EndTime, ""); err != nil {
		return nil, err
	}

	assigned, err := NewAssignedInterval(
		input.StudentID,
		input.ActivityID,
		input.Title,
		input.StartTime,
		input.EndTime,
		input.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, assigned); err != nil {
		return nil, err
	}

	// The slot is persisted at this point; a backfill failure is logged and
	// does not undo the creation.
	if s.backfill != nil {
		linked, err := s.backfill.ConnectEarlyAndInRange(ctx, assigned.ID)
		if err != nil {
			s.logger.Error("presence backfill failed after create",
				"assigned_id", assigned.ID,
				"student_id", assigned.StudentID,
				"error", err,
			)
		} else if linked > 0 {
			s.logger.Info("linked existing presence sessions to new assignment",
				"assigned_id", assigned.ID,
				"sessions", linked,
			)
		}
	}

	return assigned, nil
}

// Update validates and applies changes to an existing assigned interval.
// The overlap check excludes the interval itself; the "start not in the past"
// rule applies to the new time values.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*AssignedInterval, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.WrapError("schedule", "Update", shared.ErrValidation, "invalid input", err)
	}

	assigned, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkTimes(input.StartTime, input.EndTime, true); err != nil {
		return nil, err
	}

	activity, err := s.activities.GetByID(ctx, input.ActivityID)
	if err != nil {
		return nil, err
	}
	if !activity.Assignable {
		return nil, shared.ErrNotAssignable
	}

	if err := s.checkOverlap(ctx, assigned.StudentID, input.StartTime, input.EndTime, assigned.ID); err != nil {
		return nil, err
	}

	assigned.ActivityID = input.ActivityID
	assigned.Title = strings.TrimSpace(input.Title)
	assigned.StartTime = input.StartTime
	assigned.EndTime = input.EndTime
	assigned.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, assigned); err != nil {
		return nil, err
	}

	return assigned, nil
}

// Delete removes an assigned interval. Linked actual intervals keep their
// link value as a historical attribution; the system deliberately does not
// cascade-null it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Get returns an assigned interval by ID.
func (s *Service) Get(ctx context.Context, id string) (*AssignedInterval, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByStudent returns all assigned intervals of a student.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]*AssignedInterval, error) {
	return s.repo.FindByStudent(ctx, studentID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Checks
// ─────────────────────────────────────────────────────────────────────────────

// checkTimes validates the time range. Assignment scheduling is
// forward-looking only: a start time in the past is rejected.
func (s *Service) checkTimes(start, end time.Time, forbidPast bool) error {
	if !start.Before(end) {
		return shared.ErrStartAfterEnd
	}
	if forbidPast && start.Before(s.now()) {
		return shared.ErrStartInPast
	}
	return nil
}

// checkReferences verifies the student exists and the activity is assignable.
func (s *Service) checkReferences(ctx context.Context, studentID, activityID string) error {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.ErrStudentNotFound
	}

	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return err
	}
	if !activity.Assignable {
		return shared.ErrNotAssignable
	}

	return nil
}

// checkOverlap enforces the per-student no-overlap invariant.
func (s *Service) checkOverlap(ctx context.Context, studentID string, start, end time.Time, excludeID string) error {
	overlapping, err := s.repo.FindOverlapping(ctx, studentID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return shared.ErrAssignedOverlap
	}
	return nil
}
