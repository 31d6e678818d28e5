// Package redis implements Redis-backed infrastructure for Oqu Study Hub.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE TRACKER
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStudentIDEmpty is returned when student ID is empty.
	ErrStudentIDEmpty = errors.New("presence_tracker: student ID cannot be empty")
)

// LiveInfo is the volatile view of a student in a study room right now. It
// mirrors the durable actual_intervals data but expires on its own, so the
// admin dashboard gets a live answer without touching Postgres.
type LiveInfo struct {
	// StudentID is the unique identifier of the student.
	StudentID string `json:"student_id"`

	// Source is the origin label the room bot reported.
	Source string `json:"source"`

	// ConnectedAt is when the current session started.
	ConnectedAt time.Time `json:"connected_at"`

	// LastSeenAt is the timestamp of the last heartbeat.
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PresenceTracker keeps the set of currently-present students in Redis.
// Keys expire on their own: a student whose bot stops reporting simply ages
// out, no cleanup job needed.
type PresenceTracker struct {
	cache *Cache
}

// NewPresenceTracker creates a new PresenceTracker.
func NewPresenceTracker(cache *Cache) *PresenceTracker {
	return &PresenceTracker{cache: cache}
}

func presenceKey(studentID string) string {
	return PrefixPresence + studentID
}

func roomSetKey() string {
	return PrefixRoom + "present"
}

// MarkPresent records a presence heartbeat for the student.
func (t *PresenceTracker) MarkPresent(ctx context.Context, studentID, source string, connectedAt time.Time) error {
	if studentID == "" {
		return ErrStudentIDEmpty
	}

	info := LiveInfo{
		StudentID:   studentID,
		Source:      source,
		ConnectedAt: connectedAt.UTC(),
		LastSeenAt:  time.Now().UTC(),
	}

	if err := t.cache.Set(ctx, presenceKey(studentID), info, TTLPresence); err != nil {
		return fmt.Errorf("failed to mark student present: %w", err)
	}

	if err := t.cache.Client().SAdd(ctx, roomSetKey(), studentID).Err(); err != nil {
		return fmt.Errorf("failed to add student to room set: %w", err)
	}

	return nil
}

// MarkAbsent removes the student from the live view.
func (t *PresenceTracker) MarkAbsent(ctx context.Context, studentID string) error {
	if studentID == "" {
		return ErrStudentIDEmpty
	}

	if err := t.cache.Delete(ctx, presenceKey(studentID)); err != nil {
		return fmt.Errorf("failed to clear presence key: %w", err)
	}

	if err := t.cache.Client().SRem(ctx, roomSetKey(), studentID).Err(); err != nil {
		return fmt.Errorf("failed to remove student from room set: %w", err)
	}

	return nil
}

// IsPresent reports whether the student has a fresh heartbeat.
func (t *PresenceTracker) IsPresent(ctx context.Context, studentID string) (bool, error) {
	if studentID == "" {
		return false, ErrStudentIDEmpty
	}
	return t.cache.Exists(ctx, presenceKey(studentID))
}

// GetLiveInfo returns the live view of the student, or (nil, nil) when the
// student is not present.
func (t *PresenceTracker) GetLiveInfo(ctx context.Context, studentID string) (*LiveInfo, error) {
	if studentID == "" {
		return nil, ErrStudentIDEmpty
	}

	var info LiveInfo
	if err := t.cache.Get(ctx, presenceKey(studentID), &info); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	return &info, nil
}

// PresentStudents returns the IDs of students with a fresh heartbeat. The
// room set may carry stale members whose key already expired; they are
// filtered and removed here.
func (t *PresenceTracker) PresentStudents(ctx context.Context) ([]string, error) {
	members, err := t.cache.Client().SMembers(ctx, roomSetKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read room set: %w", err)
	}

	var present []string
	var stale []interface{}
	for _, id := range members {
		fresh, err := t.cache.Exists(ctx, presenceKey(id))
		if err != nil {
			return nil, err
		}
		if fresh {
			present = append(present, id)
		} else {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 {
		_ = t.cache.Client().SRem(ctx, roomSetKey(), stale...).Err()
	}

	return present, nil
}
