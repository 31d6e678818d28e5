package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/monitoring"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS READ MODEL
// ══════════════════════════════════════════════════════════════════════════════

// LiveReader reads the fast presence mirror for the live endpoints.
type LiveReader interface {
	IsPresent(ctx context.Context, studentID string) (bool, error)
	PresentStudents(ctx context.Context) ([]string, error)
}

// StatusHandler serves the derived attendance status and the live room view.
type StatusHandler struct {
	resolver *monitoring.StatusResolver
	live     LiveReader // optional
}

// NewStatusHandler creates the status handler. The live reader may be nil
// when the live cache is disabled.
func NewStatusHandler(resolver *monitoring.StatusResolver, live LiveReader) *StatusHandler {
	return &StatusHandler{resolver: resolver, live: live}
}

// statusResponse is the body of GET /students/{id}/status.
type statusResponse struct {
	StudentID string             `json:"student_id"`
	AsOf      time.Time          `json:"as_of"`
	Status    monitoring.Status  `json:"status"`
	Assigned  *assignedResponse  `json:"assigned,omitempty"`
	Sessions  []sessionResponse  `json:"sessions,omitempty"`
}

type assignedResponse struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ActivityID string    `json:"activity_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

func toAssignedResponse(a *schedule.AssignedInterval) *assignedResponse {
	if a == nil {
		return nil
	}
	return &assignedResponse{
		ID:         a.ID,
		StudentID:  a.StudentID,
		ActivityID: a.ActivityID,
		Title:      a.Title,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
	}
}

// GetStatus handles GET /students/{id}/status?at=RFC3339. Without the at
// parameter the status is resolved for the current instant.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	asOf, err := parseTimeParam(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_param", "at must be RFC 3339")
		return
	}

	res, err := h.resolver.Resolve(r.Context(), studentID, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sessions := make([]sessionResponse, 0, len(res.Actuals))
	for _, a := range res.Actuals {
		sessions = append(sessions, toSessionResponse(a))
	}

	writeJSON(w, http.StatusOK, statusResponse{
		StudentID: studentID,
		AsOf:      asOf,
		Status:    res.Status,
		Assigned:  toAssignedResponse(res.Assigned),
		Sessions:  sessions,
	})
}

// GetLive handles GET /students/{id}/live.
func (h *StatusHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		writeError(w, http.StatusServiceUnavailable, "live_disabled", "live presence cache is disabled")
		return
	}

	studentID := chi.URLParam(r, "id")
	present, err := h.live.IsPresent(r.Context(), studentID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "live_unavailable", "live presence cache is unreachable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id": studentID,
		"present":    present,
	})
}

// GetRoom handles GET /room/present.
func (h *StatusHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		writeError(w, http.StatusServiceUnavailable, "live_disabled", "live presence cache is disabled")
		return
	}

	ids, err := h.live.PresentStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "live_unavailable", "live presence cache is unreachable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_ids": ids,
		"count":       len(ids),
	})
}
