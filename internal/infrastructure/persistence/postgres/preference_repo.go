// Package postgres implements the PostgreSQL persistence layer of Oqu Study Hub.
package postgres

import (
	"context"
	"fmt"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION PREFERENCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PreferenceRepository implements notification.PreferenceRepository for
// PostgreSQL.
type PreferenceRepository struct {
	conn *Connection
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(conn *Connection) *PreferenceRepository {
	return &PreferenceRepository{conn: conn}
}

// Get returns a preference, or (nil, nil) when none is stored: the caller
// applies the application default in that case.
func (r *PreferenceRepository) Get(ctx context.Context, userID string, template notification.TemplateID, channel notification.ChannelType) (*notification.Preference, error) {
	query := `
		SELECT user_id, template_id, channel, enabled
		FROM notification_preferences
		WHERE user_id = $1 AND template_id = $2 AND channel = $3
	`

	var (
		p          notification.Preference
		templateID string
		channelStr string
	)
	err := r.conn.QueryRow(ctx, query, userID, string(template), string(channel)).
		Scan(&p.UserID, &templateID, &channelStr, &p.Enabled)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query notification preference: %w", err)
	}

	p.Template = notification.TemplateID(templateID)
	p.Channel = notification.ChannelType(channelStr)

	return &p, nil
}

// Upsert saves a preference, replacing any existing row.
func (r *PreferenceRepository) Upsert(ctx context.Context, p *notification.Preference) error {
	query := `
		INSERT INTO notification_preferences (user_id, template_id, channel, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, template_id, channel)
		DO UPDATE SET enabled = EXCLUDED.enabled
	`

	_, err := r.conn.Exec(ctx, query, p.UserID, string(p.Template), string(p.Channel), p.Enabled)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preference: %w", err)
	}

	return nil
}

// FindByUser returns all stored preferences of a user.
func (r *PreferenceRepository) FindByUser(ctx context.Context, userID string) ([]*notification.Preference, error) {
	query := `
		SELECT user_id, template_id, channel, enabled
		FROM notification_preferences
		WHERE user_id = $1
		ORDER BY template_id, channel
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification preferences: %w", err)
	}
	defer rows.Close()

	var out []*notification.Preference
	for rows.Next() {
		var (
			p          notification.Preference
			templateID string
			channelStr string
		)
		if err := rows.Scan(&p.UserID, &templateID, &channelStr, &p.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan notification preference: %w", err)
		}
		p.Template = notification.TemplateID(templateID)
		p.Channel = notification.ChannelType(channelStr)
		out = append(out, &p)
	}

	return out, rows.Err()
}
