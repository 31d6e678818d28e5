// Package postgres implements the PostgreSQL persistence layer of Oqu Study Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNED INTERVAL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AssignedRepository implements schedule.Repository for PostgreSQL.
type AssignedRepository struct {
	conn *Connection
}

// NewAssignedRepository creates a new AssignedRepository.
func NewAssignedRepository(conn *Connection) *AssignedRepository {
	return &AssignedRepository{conn: conn}
}

const assignedColumns = `id, student_id, activity_id, title, start_time, end_time, created_by, created_at, updated_at`

// Create creates a new assigned interval.
func (r *AssignedRepository) Create(ctx context.Context, a *schedule.AssignedInterval) error {
	query := `
		INSERT INTO assigned_intervals (` + assignedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.ActivityID,
		a.Title,
		a.StartTime,
		a.EndTime,
		a.CreatedBy,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create assigned interval: %w", err)
	}

	return nil
}

// GetByID returns an assigned interval by ID.
func (r *AssignedRepository) GetByID(ctx context.Context, id string) (*schedule.AssignedInterval, error) {
	query := `SELECT ` + assignedColumns + ` FROM assigned_intervals WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanAssigned(row)
}

// Update updates an assigned interval.
func (r *AssignedRepository) Update(ctx context.Context, a *schedule.AssignedInterval) error {
	query := `
		UPDATE assigned_intervals SET
			activity_id = $1,
			title = $2,
			start_time = $3,
			end_time = $4,
			updated_at = $5
		WHERE id = $6
	`

	tag, err := r.conn.Exec(ctx, query,
		a.ActivityID,
		a.Title,
		a.StartTime,
		a.EndTime,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assigned interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAssignedNotFound
	}

	return nil
}

// Delete removes an assigned interval. Linked actual intervals keep their
// link value: the schema deliberately has no foreign key on it.
func (r *AssignedRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM assigned_intervals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assigned interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAssignedNotFound
	}

	return nil
}

// FindByStudent returns all assigned intervals of a student.
func (r *AssignedRepository) FindByStudent(ctx context.Context, studentID string) ([]*schedule.AssignedInterval, error) {
	query := `
		SELECT ` + assignedColumns + `
		FROM assigned_intervals
		WHERE student_id = $1
		ORDER BY start_time ASC
	`

	return r.queryAssigned(ctx, query, studentID)
}

// FindContaining returns the student's intervals whose [start, end) contains t.
func (r *AssignedRepository) FindContaining(ctx context.Context, studentID string, t time.Time) ([]*schedule.AssignedInterval, error) {
	query := `
		SELECT ` + assignedColumns + `
		FROM assigned_intervals
		WHERE student_id = $1 AND start_time <= $2 AND $2 < end_time
		ORDER BY start_time ASC
	`

	return r.queryAssigned(ctx, query, studentID, t)
}

// FindOverlapping returns the student's intervals overlapping [start, end).
func (r *AssignedRepository) FindOverlapping(ctx context.Context, studentID string, start, end time.Time, excludeID string) ([]*schedule.AssignedInterval, error) {
	query := `
		SELECT ` + assignedColumns + `
		FROM assigned_intervals
		WHERE student_id = $1
		  AND start_time < $3 AND $2 < end_time
		  AND ($4 = '' OR id::text != $4)
		ORDER BY start_time ASC
	`

	return r.queryAssigned(ctx, query, studentID, start, end, excludeID)
}

// FindByStartMinute returns all intervals across students starting on the
// given minute. Stored timestamps may carry seconds; they are truncated on
// the database side so both sit on the same grid.
func (r *AssignedRepository) FindByStartMinute(ctx context.Context, minute time.Time) ([]*schedule.AssignedInterval, error) {
	query := `
		SELECT ` + assignedColumns + `
		FROM assigned_intervals
		WHERE date_trunc('minute', start_time) = $1
		ORDER BY student_id, start_time ASC
	`

	return r.queryAssigned(ctx, query, minute)
}

// FindBetween returns all intervals starting in [from, to).
func (r *AssignedRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*schedule.AssignedInterval, error) {
	query := `
		SELECT ` + assignedColumns + `
		FROM assigned_intervals
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY student_id, start_time ASC
	`

	return r.queryAssigned(ctx, query, from, to)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *AssignedRepository) queryAssigned(ctx context.Context, query string, args ...interface{}) ([]*schedule.AssignedInterval, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned intervals: %w", err)
	}
	defer rows.Close()

	var out []*schedule.AssignedInterval
	for rows.Next() {
		a, err := r.scanAssigned(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *AssignedRepository) scanAssigned(row pgx.Row) (*schedule.AssignedInterval, error) {
	var a schedule.AssignedInterval

	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.ActivityID,
		&a.Title,
		&a.StartTime,
		&a.EndTime,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAssignedNotFound
		}
		return nil, fmt.Errorf("failed to scan assigned interval: %w", err)
	}

	return &a, nil
}
