// Package postgres implements the PostgreSQL persistence layer of Oqu Study Hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (id, full_name, telegram_chat_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.FullName,
		int64(s.TelegramChatID),
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `
		SELECT id, full_name, telegram_chat_id, status, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanStudent(row)
}

// Update updates a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			full_name = $1,
			telegram_chat_id = $2,
			status = $3,
			updated_at = $4
		WHERE id = $5
	`

	tag, err := r.conn.Exec(ctx, query,
		s.FullName,
		int64(s.TelegramChatID),
		string(s.Status),
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// Exists reports whether a student with the given ID exists.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

// GetByStatus returns all students with the given status.
func (r *StudentRepository) GetByStatus(ctx context.Context, status student.Status) ([]*student.Student, error) {
	query := `
		SELECT id, full_name, telegram_chat_id, status, created_at, updated_at
		FROM students
		WHERE status = $1
		ORDER BY full_name ASC
	`

	rows, err := r.conn.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		s, err := r.scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s      student.Student
		chatID int64
		status string
	)

	err := row.Scan(&s.ID, &s.FullName, &chatID, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.TelegramChatID = shared.TelegramChatID(chatID)
	s.Status = student.Status(status)

	return &s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDIAN REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GuardianRepository implements student.GuardianRepository for PostgreSQL.
type GuardianRepository struct {
	conn *Connection
}

// NewGuardianRepository creates a new GuardianRepository.
func NewGuardianRepository(conn *Connection) *GuardianRepository {
	return &GuardianRepository{conn: conn}
}

// Create creates a new guardian.
func (r *GuardianRepository) Create(ctx context.Context, g *student.Guardian) error {
	query := `
		INSERT INTO guardians (id, student_id, full_name, telegram_chat_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		g.ID,
		g.StudentID,
		g.FullName,
		int64(g.TelegramChatID),
		g.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create guardian: %w", err)
	}

	return nil
}

// GetByID returns a guardian by ID.
func (r *GuardianRepository) GetByID(ctx context.Context, id string) (*student.Guardian, error) {
	query := `
		SELECT id, student_id, full_name, telegram_chat_id, created_at
		FROM guardians
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanGuardian(row)
}

// FindByStudent returns all guardians of a student.
func (r *GuardianRepository) FindByStudent(ctx context.Context, studentID string) ([]*student.Guardian, error) {
	query := `
		SELECT id, student_id, full_name, telegram_chat_id, created_at
		FROM guardians
		WHERE student_id = $1
		ORDER BY full_name ASC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guardians: %w", err)
	}
	defer rows.Close()

	var out []*student.Guardian
	for rows.Next() {
		g, err := r.scanGuardian(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

func (r *GuardianRepository) scanGuardian(row pgx.Row) (*student.Guardian, error) {
	var (
		g      student.Guardian
		chatID int64
	)

	err := row.Scan(&g.ID, &g.StudentID, &g.FullName, &chatID, &g.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGuardianNotFound
		}
		return nil, fmt.Errorf("failed to scan guardian: %w", err)
	}

	g.TelegramChatID = shared.TelegramChatID(chatID)

	return &g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository implements student.ActivityRepository for PostgreSQL.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

// Create creates a new activity.
func (r *ActivityRepository) Create(ctx context.Context, a *student.Activity) error {
	query := `
		INSERT INTO activities (id, name, assignable, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query, a.ID, a.Name, a.Assignable, a.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrConflict
		}
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// GetByID returns an activity by ID.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*student.Activity, error) {
	query := `SELECT id, name, assignable, created_at FROM activities WHERE id = $1`

	var a student.Activity
	err := r.conn.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Assignable, &a.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}

	return &a, nil
}

// GetAll returns all activities.
func (r *ActivityRepository) GetAll(ctx context.Context) ([]*student.Activity, error) {
	query := `SELECT id, name, assignable, created_at FROM activities ORDER BY name ASC`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []*student.Activity
	for rows.Next() {
		var a student.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.Assignable, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, &a)
	}

	return out, rows.Err()
}
