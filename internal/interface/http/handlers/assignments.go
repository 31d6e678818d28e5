package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT CRUD
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentHandler exposes the assigned interval CRUD used by the admin UI.
type AssignmentHandler struct {
	service *schedule.Service
}

// NewAssignmentHandler creates the assignment handler.
func NewAssignmentHandler(service *schedule.Service) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

type createAssignmentRequest struct {
	StudentID  string    `json:"student_id"`
	ActivityID string    `json:"activity_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CreatedBy  string    `json:"created_by"`
}

type updateAssignmentRequest struct {
	ActivityID string    `json:"activity_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// Create handles POST /assignments.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	created, err := h.service.Create(r.Context(), schedule.CreateInput{
		StudentID:  req.StudentID,
		ActivityID: req.ActivityID,
		Title:      req.Title,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssignedResponse(created))
}

// Get handles GET /assignments/{id}.
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignedResponse(a))
}

// Update handles PUT /assignments/{id}.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAssignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), schedule.UpdateInput{
		ActivityID: req.ActivityID,
		Title:      req.Title,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignedResponse(updated))
}

// Delete handles DELETE /assignments/{id}.
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListByStudent handles GET /students/{id}/assignments.
func (h *AssignmentHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListByStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]*assignedResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAssignedResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}
