// Package redis implements Redis-backed infrastructure for Oqu Study Hub.
package redis

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER GUARD
// ══════════════════════════════════════════════════════════════════════════════

// ReminderGuard deduplicates scheduler notifications. The minute-match window
// already guarantees at-most-once under normal operation; the guard protects
// against a tick re-running after a crash-restart inside the same window.
type ReminderGuard struct {
	cache *Cache
}

// NewReminderGuard creates a new ReminderGuard.
func NewReminderGuard(cache *Cache) *ReminderGuard {
	return &ReminderGuard{cache: cache}
}

func notifiedKey(template, assignedID, recipientID string) string {
	return fmt.Sprintf("%s%s:%s:%s", PrefixNotified, template, assignedID, recipientID)
}

// FirstDispatch marks the (template, assignment, recipient) triple as
// notified and reports whether this call was the first to do so.
func (g *ReminderGuard) FirstDispatch(ctx context.Context, template, assignedID, recipientID string) (bool, error) {
	ok, err := g.cache.SetNX(ctx, notifiedKey(template, assignedID, recipientID), 1, TTLNotified)
	if err != nil {
		return false, fmt.Errorf("failed to set notification dedup key: %w", err)
	}
	return ok, nil
}
