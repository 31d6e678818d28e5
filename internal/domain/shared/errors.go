// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidTime     = errors.New("invalid time value")
	ErrPastTimestamp   = errors.New("timestamp cannot be in the past")

	// Conflict errors
	ErrConflict        = errors.New("conflict with existing entity")
	ErrOverlap         = errors.New("time ranges overlap")
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrDispatchFailed     = errors.New("notification dispatch failed")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "schedule", "presence", "notification"
	Op      string // Operation that failed, e.g., "Create", "Connect"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound  = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrGuardianNotFound = NewDomainError("student", "FindGuardian", ErrNotFound, "guardian not found")
	ErrActivityNotFound = NewDomainError("student", "FindActivity", ErrNotFound, "activity not found")
	ErrNotAssignable    = NewDomainError("student", "CheckActivity", ErrInvalidState, "activity is not assignable")
	ErrInvalidChatID    = NewDomainError("student", "Validate", ErrInvalidID, "invalid Telegram chat ID")
)

// Schedule domain errors
var (
	ErrAssignedNotFound = NewDomainError("schedule", "Find", ErrNotFound, "assigned interval not found")
	ErrAssignedOverlap  = NewDomainError("schedule", "Validate", ErrOverlap, "assigned interval overlaps an existing one")
	ErrEmptyTitle       = NewDomainError("schedule", "Validate", ErrEmptyValue, "title cannot be empty")
	ErrTitleTooLong     = NewDomainError("schedule", "Validate", ErrValueOutOfRange, "title exceeds 255 characters")
	ErrStartAfterEnd    = NewDomainError("schedule", "Validate", ErrInvalidTime, "start time must be before end time")
	ErrStartInPast      = NewDomainError("schedule", "Validate", ErrPastTimestamp, "start time cannot be in the past")
)

// Presence domain errors
var (
	ErrActualNotFound    = NewDomainError("presence", "Find", ErrNotFound, "actual interval not found")
	ErrActualClosed      = NewDomainError("presence", "Close", ErrInvalidState, "actual interval already closed")
	ErrEmptySource       = NewDomainError("presence", "Validate", ErrEmptyValue, "source tag cannot be empty")
	ErrEndBeforePresence = NewDomainError("presence", "Close", ErrInvalidTime, "end time is before session start")
)

// Notification domain errors
var (
	ErrNotificationFailed   = NewDomainError("notification", "Send", ErrDispatchFailed, "failed to dispatch notification")
	ErrChannelNotRegistered = NewDomainError("notification", "Dispatch", ErrNotFound, "no handler registered for channel")
	ErrInvalidChannel       = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification channel")
	ErrNotificationDisabled = NewDomainError("notification", "Check", ErrInvalidState, "notifications disabled by recipient")
	ErrUnknownTemplate      = NewDomainError("notification", "Validate", ErrInvalidInput, "unknown notification template")
)

// External service errors
var (
	ErrTelegramAPIFailed = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
	ErrTelegramTimeout   = NewDomainError("telegram", "Send", ErrTimeout, "Telegram API request timeout")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrPastTimestamp)
}

// IsConflict checks if the error is a conflict error (e.g. overlapping intervals).
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrOverlap)
}

// IsTransientDispatch checks if the error is a transient notification delivery
// failure. Such errors are logged and counted, never escalated into the
// reconciliation logic or the scheduler tick.
func IsTransientDispatch(err error) bool {
	return errors.Is(err, ErrDispatchFailed) ||
		errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
