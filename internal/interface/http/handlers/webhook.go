package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// Бот учебной комнаты сообщает о подключениях и отключениях студентов через
// этот вебхук. Каждое событие несёт метку времени самого бота: запись ведётся
// по ней, а не по времени получения запроса.

// LiveTracker mirrors current presence into a fast store for the live
// endpoints. It is best effort: tracker failures are logged, the durable
// interval record always wins.
type LiveTracker interface {
	MarkPresent(ctx context.Context, studentID, source string, connectedAt time.Time) error
	MarkAbsent(ctx context.Context, studentID string) error
}

// PresenceWebhookHandler turns room-bot events into presence intervals.
type PresenceWebhookHandler struct {
	reconciler *presence.Reconciler
	tracker    LiveTracker // optional
	secret     string
	logger     *slog.Logger
}

// NewPresenceWebhookHandler creates the webhook handler. The tracker may be
// nil when the live cache is disabled.
func NewPresenceWebhookHandler(reconciler *presence.Reconciler, tracker LiveTracker, secret string, logger *slog.Logger) *PresenceWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceWebhookHandler{
		reconciler: reconciler,
		tracker:    tracker,
		secret:     secret,
		logger:     logger,
	}
}

// Event types the room bot sends.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventReset        = "reset"
)

// presenceEvent is the webhook request body.
type presenceEvent struct {
	Event            string    `json:"event"`
	StudentID        string    `json:"student_id"`
	ActualIntervalID string    `json:"actual_interval_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Source           string    `json:"source"`
}

// sessionResponse is the webhook response body.
type sessionResponse struct {
	ID                 string     `json:"id"`
	StudentID          string     `json:"student_id"`
	AssignedIntervalID *string    `json:"assigned_interval_id,omitempty"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	Source             string     `json:"source"`
}

func toSessionResponse(a *presence.ActualInterval) sessionResponse {
	return sessionResponse{
		ID:                 a.ID,
		StudentID:          a.StudentID,
		AssignedIntervalID: a.AssignedIntervalID,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Source:             a.Source,
	}
}

// Handle processes POST /webhook/presence.
func (h *PresenceWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid presence secret")
		return
	}

	var ev presenceEvent
	if err := decodeBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode event")
		return
	}
	if ev.Timestamp.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_body", "timestamp is required")
		return
	}

	ctx := r.Context()

	switch ev.Event {
	case EventConnected:
		if ev.StudentID == "" {
			writeError(w, http.StatusBadRequest, "invalid_body", "student_id is required")
			return
		}
		session, err := h.reconciler.RecordPresenceStart(ctx, ev.StudentID, ev.Timestamp, ev.Source)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if h.tracker != nil {
			if terr := h.tracker.MarkPresent(ctx, ev.StudentID, ev.Source, ev.Timestamp); terr != nil {
				h.logger.Warn("failed to update live presence", "student_id", ev.StudentID, "error", terr)
			}
		}
		writeJSON(w, http.StatusCreated, toSessionResponse(session))

	case EventDisconnected:
		if ev.ActualIntervalID == "" {
			writeError(w, http.StatusBadRequest, "invalid_body", "actual_interval_id is required")
			return
		}
		session, err := h.reconciler.RecordPresenceEnd(ctx, ev.ActualIntervalID, ev.Timestamp)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if h.tracker != nil && ev.StudentID != "" {
			if terr := h.tracker.MarkAbsent(ctx, ev.StudentID); terr != nil {
				h.logger.Warn("failed to update live presence", "student_id", ev.StudentID, "error", terr)
			}
		}
		writeJSON(w, http.StatusOK, toSessionResponse(session))

	case EventReset:
		// The bot restarted or the student's link dropped ungracefully;
		// close everything it may have left open.
		if ev.StudentID == "" {
			writeError(w, http.StatusBadRequest, "invalid_body", "student_id is required")
			return
		}
		closed, err := h.reconciler.CloseOpenSessionsForStudent(ctx, ev.StudentID, ev.Timestamp)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if h.tracker != nil {
			if terr := h.tracker.MarkAbsent(ctx, ev.StudentID); terr != nil {
				h.logger.Warn("failed to update live presence", "student_id", ev.StudentID, "error", terr)
			}
		}
		out := make([]sessionResponse, 0, len(closed))
		for _, s := range closed {
			out = append(out, toSessionResponse(s))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"closed": out})

	default:
		writeError(w, http.StatusBadRequest, "invalid_body", "unknown event type")
	}
}

func (h *PresenceWebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get("X-Presence-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
