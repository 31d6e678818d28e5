// Package student содержит справочные сущности учебного центра: студенты,
// опекуны и виды занятий. Это CRUD-граница системы — сверка интервалов
// обращается сюда только за проверками существования и адресами доставки.
package student

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Status represents a student's enrollment status.
type Status string

const (
	// StatusActive - студент посещает занятия.
	StatusActive Status = "active"

	// StatusPaused - обучение приостановлено (каникулы, болезнь).
	StatusPaused Status = "paused"

	// StatusLeft - студент покинул центр.
	StatusLeft Status = "left"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusLeft:
		return true
	default:
		return false
	}
}

// Student represents an enrolled student.
type Student struct {
	ID       string
	FullName string

	// TelegramChatID is the delivery address for notifications.
	// Zero means the student has not connected the bot yet.
	TelegramChatID shared.TelegramChatID

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStudent creates a new active student.
func NewStudent(fullName string, chatID shared.TelegramChatID) (*Student, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.NewDomainError("student", "New", shared.ErrEmptyValue, "full name cannot be empty")
	}

	now := time.Now().UTC()
	return &Student{
		ID:             uuid.New().String(),
		FullName:       fullName,
		TelegramChatID: chatID,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanReceiveNotifications reports whether the student has a delivery address
// and is not marked as left.
func (s *Student) CanReceiveNotifications() bool {
	return s.Status != StatusLeft && s.TelegramChatID.IsValid()
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDIAN
// ══════════════════════════════════════════════════════════════════════════════

// Guardian represents a parent or guardian linked to a student.
// Guardians receive the same event notifications as students, gated by their
// own channel preferences.
type Guardian struct {
	ID             string
	StudentID      string
	FullName       string
	TelegramChatID shared.TelegramChatID
	CreatedAt      time.Time
}

// NewGuardian creates a guardian linked to a student.
func NewGuardian(studentID, fullName string, chatID shared.TelegramChatID) (*Guardian, error) {
	if studentID == "" {
		return nil, shared.NewDomainError("student", "NewGuardian", shared.ErrInvalidID, "student ID cannot be empty")
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, shared.NewDomainError("student", "NewGuardian", shared.ErrEmptyValue, "full name cannot be empty")
	}

	return &Guardian{
		ID:             uuid.New().String(),
		StudentID:      studentID,
		FullName:       fullName,
		TelegramChatID: chatID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// CanReceiveNotifications reports whether the guardian has a delivery address.
func (g *Guardian) CanReceiveNotifications() bool {
	return g.TelegramChatID.IsValid()
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// Activity represents a kind of study occupation (e.g. "математика",
// "казахский язык", "самоподготовка"). Only assignable activities may be used
// in teacher-created schedule entries.
type Activity struct {
	ID         string
	Name       string
	Assignable bool
	CreatedAt  time.Time
}

// NewActivity creates a new assignable activity.
func NewActivity(name string) (*Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("student", "NewActivity", shared.ErrEmptyValue, "activity name cannot be empty")
	}

	return &Activity{
		ID:         uuid.New().String(),
		Name:       name,
		Assignable: true,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
