package student

import (
	"context"
)

// Repository defines the persistence interface for students.
type Repository interface {
	// Create persists a new student.
	Create(ctx context.Context, s *Student) error

	// GetByID returns a student by ID.
	GetByID(ctx context.Context, id string) (*Student, error)

	// Update updates a student.
	Update(ctx context.Context, s *Student) error

	// Exists checks if a student exists by ID.
	Exists(ctx context.Context, id string) (bool, error)

	// GetByStatus returns students with the given status.
	GetByStatus(ctx context.Context, status Status) ([]*Student, error)
}

// GuardianRepository defines the persistence interface for guardians.
type GuardianRepository interface {
	// Create persists a new guardian.
	Create(ctx context.Context, g *Guardian) error

	// GetByID returns a guardian by ID.
	GetByID(ctx context.Context, id string) (*Guardian, error)

	// FindByStudent returns all guardians linked to a student.
	FindByStudent(ctx context.Context, studentID string) ([]*Guardian, error)
}

// ActivityRepository defines the persistence interface for activities.
type ActivityRepository interface {
	// Create persists a new activity.
	Create(ctx context.Context, a *Activity) error

	// GetByID returns an activity by ID.
	GetByID(ctx context.Context, id string) (*Activity, error)

	// GetAll returns all activities.
	GetAll(ctx context.Context) ([]*Activity, error)
}
