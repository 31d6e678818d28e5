package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/shared"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS, GUARDIANS, ACTIVITIES, PREFERENCES
// ══════════════════════════════════════════════════════════════════════════════

// StudentHandler exposes the registry endpoints: students, their guardians,
// the activity catalog and per-recipient notification preferences.
type StudentHandler struct {
	students   student.Repository
	guardians  student.GuardianRepository
	activities student.ActivityRepository
	prefs      notification.PreferenceRepository
}

// NewStudentHandler creates the registry handler.
func NewStudentHandler(
	students student.Repository,
	guardians student.GuardianRepository,
	activities student.ActivityRepository,
	prefs notification.PreferenceRepository,
) *StudentHandler {
	return &StudentHandler{
		students:   students,
		guardians:  guardians,
		activities: activities,
		prefs:      prefs,
	}
}

type studentResponse struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	TelegramChatID int64     `json:"telegram_chat_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toStudentResponse(s *student.Student) studentResponse {
	return studentResponse{
		ID:             s.ID,
		FullName:       s.FullName,
		TelegramChatID: int64(s.TelegramChatID),
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
	}
}

// Create handles POST /students.
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName       string `json:"full_name"`
		TelegramChatID int64  `json:"telegram_chat_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	s, err := student.NewStudent(req.FullName, shared.TelegramChatID(req.TelegramChatID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.students.Create(r.Context(), s); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(s))
}

// Get handles GET /students/{id}.
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.students.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(s))
}

// AddGuardian handles POST /students/{id}/guardians.
func (h *StudentHandler) AddGuardian(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName       string `json:"full_name"`
		TelegramChatID int64  `json:"telegram_chat_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	g, err := student.NewGuardian(chi.URLParam(r, "id"), req.FullName, shared.TelegramChatID(req.TelegramChatID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.guardians.Create(r.Context(), g); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// ListGuardians handles GET /students/{id}/guardians.
func (h *StudentHandler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	items, err := h.guardians.FindByStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateActivity handles POST /activities.
func (h *StudentHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	a, err := student.NewActivity(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.activities.Create(r.Context(), a); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// ListActivities handles GET /activities.
func (h *StudentHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	items, err := h.activities.GetAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SetPreference handles PUT /recipients/{id}/preferences. A stored row wins
// over the opt-out default: missing means enabled.
func (h *StudentHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template string `json:"template"`
		Channel  string `json:"channel"`
		Enabled  bool   `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to decode request")
		return
	}

	template := notification.TemplateID(req.Template)
	if !template.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid_body", "unknown notification template")
		return
	}

	pref := &notification.Preference{
		UserID:   chi.URLParam(r, "id"),
		Template: template,
		Channel:  notification.ChannelType(req.Channel),
		Enabled:  req.Enabled,
	}
	if err := h.prefs.Upsert(r.Context(), pref); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// ListPreferences handles GET /recipients/{id}/preferences.
func (h *StudentHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	items, err := h.prefs.FindByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
