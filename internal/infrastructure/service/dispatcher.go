package service

import (
	"context"
	"log/slog"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher implements notification.Dispatcher over an explicitly
// constructed list of channels. No global registry: the set is fixed at
// process startup.
type Dispatcher struct {
	channels []notification.Channel
	prefs    notification.PreferenceChecker
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(channels []notification.Channel, prefs notification.PreferenceChecker, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		channels: channels,
		prefs:    prefs,
		logger:   logger,
	}
}

// Dispatch sends the notification through every channel the recipient has
// enabled. A failed delivery is logged and recorded in its result; it never
// stops the remaining channels.
func (d *Dispatcher) Dispatch(ctx context.Context, n *notification.Notification) []notification.DeliveryResult {
	var results []notification.DeliveryResult

	for _, ch := range d.channels {
		enabled, err := d.prefs.IsChannelEnabled(ctx, n.RecipientID, n.Template, ch.Type())
		if err != nil {
			d.logger.Error("failed to check notification preference",
				"recipient_id", n.RecipientID,
				"template", n.Template,
				"channel", ch.Type(),
				"error", err,
			)
			results = append(results, notification.NewFailureResult(ch.Type(), err))
			continue
		}
		if !enabled {
			continue
		}

		result := ch.Dispatch(ctx, n)
		if !result.Success {
			d.logger.Error("notification dispatch failed",
				"recipient_id", n.RecipientID,
				"template", n.Template,
				"channel", ch.Type(),
				"error", result.Error,
			)
		} else {
			d.logger.Info("notification dispatched",
				"recipient_id", n.RecipientID,
				"template", n.Template,
				"channel", ch.Type(),
				"message_id", result.MessageID,
			)
		}
		results = append(results, result)
	}

	return results
}

// ══════════════════════════════════════════════════════════════════════════════
// PREFERENCE SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// PreferenceService implements notification.PreferenceChecker on top of the
// preference repository. A missing row means "enabled": recipients opt out,
// not in.
type PreferenceService struct {
	repo notification.PreferenceRepository
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(repo notification.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// IsChannelEnabled reports whether the user wants this template on this channel.
func (s *PreferenceService) IsChannelEnabled(ctx context.Context, userID string, template notification.TemplateID, channel notification.ChannelType) (bool, error) {
	pref, err := s.repo.Get(ctx, userID, template, channel)
	if err != nil {
		return false, err
	}
	if pref == nil {
		return true, nil
	}
	return pref.Enabled, nil
}
