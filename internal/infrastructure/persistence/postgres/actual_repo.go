// Package postgres implements the PostgreSQL persistence layer of Oqu Study Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTUAL INTERVAL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ActualRepository implements presence.Repository for PostgreSQL.
type ActualRepository struct {
	conn *Connection
}

// NewActualRepository creates a new ActualRepository.
func NewActualRepository(conn *Connection) *ActualRepository {
	return &ActualRepository{conn: conn}
}

const actualColumns = `id, student_id, assigned_interval_id, start_time, end_time, source, created_at, updated_at`

// Create creates a new actual interval.
func (r *ActualRepository) Create(ctx context.Context, a *presence.ActualInterval) error {
	return r.insert(ctx, r.conn, a)
}

// GetByID returns an actual interval by ID.
func (r *ActualRepository) GetByID(ctx context.Context, id string) (*presence.ActualInterval, error) {
	query := `SELECT ` + actualColumns + ` FROM actual_intervals WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanActual(row)
}

// Update updates an actual interval.
func (r *ActualRepository) Update(ctx context.Context, a *presence.ActualInterval) error {
	return r.update(ctx, r.conn, a)
}

// FindOpenByStudent returns all open sessions of a student, most recent first.
func (r *ActualRepository) FindOpenByStudent(ctx context.Context, studentID string) ([]*presence.ActualInterval, error) {
	query := `
		SELECT ` + actualColumns + `
		FROM actual_intervals
		WHERE student_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC
	`

	return r.queryActuals(ctx, query, studentID)
}

// FindLatestOpenOrUnlinked returns the most recently started open-or-unlinked
// session with a start at or before asOf, or (nil, nil) when none exists.
func (r *ActualRepository) FindLatestOpenOrUnlinked(ctx context.Context, studentID string, asOf time.Time) (*presence.ActualInterval, error) {
	query := `
		SELECT ` + actualColumns + `
		FROM actual_intervals
		WHERE student_id = $1
		  AND start_time <= $2
		  AND (end_time IS NULL OR assigned_interval_id IS NULL)
		ORDER BY start_time DESC
		LIMIT 1
	`

	row := r.conn.QueryRow(ctx, query, studentID, asOf)
	actual, err := r.scanActual(row)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return actual, nil
}

// FindByAssignedID returns all sessions linked to the given assignment.
func (r *ActualRepository) FindByAssignedID(ctx context.Context, assignedID string) ([]*presence.ActualInterval, error) {
	query := `
		SELECT ` + actualColumns + `
		FROM actual_intervals
		WHERE assigned_interval_id = $1
		ORDER BY start_time ASC
	`

	return r.queryActuals(ctx, query, assignedID)
}

// FindBackfillCandidates returns the unlinked sessions that either are still
// open and started before the assignment, or started inside [start, end).
func (r *ActualRepository) FindBackfillCandidates(ctx context.Context, studentID string, start, end time.Time) ([]*presence.ActualInterval, error) {
	query := `
		SELECT ` + actualColumns + `
		FROM actual_intervals
		WHERE student_id = $1
		  AND assigned_interval_id IS NULL
		  AND (
		      (end_time IS NULL AND start_time < $2)
		      OR (start_time >= $2 AND start_time < $3)
		  )
		ORDER BY start_time ASC
	`

	return r.queryActuals(ctx, query, studentID, start, end)
}

// FindActiveAt returns the student's sessions covering the given instant.
// Open sessions count from their start onward, closed ones through their end
// inclusive.
func (r *ActualRepository) FindActiveAt(ctx context.Context, studentID string, at time.Time) ([]*presence.ActualInterval, error) {
	query := `
		SELECT ` + actualColumns + `
		FROM actual_intervals
		WHERE student_id = $1
		  AND start_time <= $2
		  AND (end_time IS NULL OR end_time >= $2)
		ORDER BY start_time ASC
	`

	return r.queryActuals(ctx, query, studentID, at)
}

// CloseAndCreate persists the close of one session and the creation of
// another in a single transaction.
func (r *ActualRepository) CloseAndCreate(ctx context.Context, toClose, fresh *presence.ActualInterval) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.update(ctx, tx, toClose); err != nil {
			return err
		}
		return r.insert(ctx, tx, fresh)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Writing
// ─────────────────────────────────────────────────────────────────────────────

func (r *ActualRepository) insert(ctx context.Context, q Querier, a *presence.ActualInterval) error {
	query := `
		INSERT INTO actual_intervals (` + actualColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.AssignedIntervalID,
		a.StartTime,
		a.EndTime,
		a.Source,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create actual interval: %w", err)
	}

	return nil
}

func (r *ActualRepository) update(ctx context.Context, q Querier, a *presence.ActualInterval) error {
	query := `
		UPDATE actual_intervals SET
			assigned_interval_id = $1,
			end_time = $2,
			updated_at = $3
		WHERE id = $4
	`

	tag, err := q.Exec(ctx, query,
		a.AssignedIntervalID,
		a.EndTime,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update actual interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrActualNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *ActualRepository) queryActuals(ctx context.Context, query string, args ...interface{}) ([]*presence.ActualInterval, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actual intervals: %w", err)
	}
	defer rows.Close()

	var out []*presence.ActualInterval
	for rows.Next() {
		a, err := r.scanActual(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *ActualRepository) scanActual(row pgx.Row) (*presence.ActualInterval, error) {
	var a presence.ActualInterval

	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.AssignedIntervalID,
		&a.StartTime,
		&a.EndTime,
		&a.Source,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrActualNotFound
		}
		return nil, fmt.Errorf("failed to scan actual interval: %w", err)
	}

	return &a, nil
}
