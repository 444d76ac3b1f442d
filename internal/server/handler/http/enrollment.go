package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/capture"
	"github.com/atinyakov/accessgate/internal/enrollment"
	"github.com/atinyakov/accessgate/internal/models"
)

// EnrollmentHandler exposes the enrollment wizard. Each wizard lives in
// Sessions under its own id until it is saved, cancelled or expires.
type EnrollmentHandler struct {
	Sessions *Sessions
	Log      *zap.Logger
}

// StartRequest opens a wizard. Mode is "create" (default) or "edit".
type StartRequest struct {
	Mode    string `json:"mode"`
	EntryID string `json:"entry_id"`
}

// EnrollmentResponse carries the wizard id and its current state.
type EnrollmentResponse struct {
	ID    string           `json:"id"`
	State enrollment.State `json:"state"`
	// Cancelled is set when the wizard was closed: back left it, or the
	// edited entry was deleted before save.
	Cancelled bool `json:"cancelled,omitempty"`
}

// SaveResponse is returned by a save that persisted the entry.
type SaveResponse struct {
	EnrollmentResponse
	EntryID string `json:"entry_id"`
	Created bool   `json:"created"`
}

// Start handles POST /api/enrollments.
func (h *EnrollmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.Mode != "" && req.Mode != enrollment.Create.String() && req.Mode != enrollment.Edit.String() {
		http.Error(w, "invalid request: unknown mode", http.StatusBadRequest)
		return
	}
	edit := req.Mode == enrollment.Edit.String()
	if edit && req.EntryID == "" {
		http.Error(w, "invalid request: entry_id is required for edit", http.StatusBadRequest)
		return
	}

	id := h.Sessions.Open()
	var (
		state enrollment.State
		err   error
	)
	h.Sessions.With(id, func(m *enrollment.Machine) {
		if edit {
			err = m.StartEdit(r.Context(), req.EntryID)
		}
		state = m.State()
	})
	if err != nil {
		h.Sessions.Close(id)
		if errors.Is(err, models.ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.Log.Error("failed to start edit session", zap.String("entry_id", req.EntryID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, EnrollmentResponse{ID: id, State: state})
}

// Get handles GET /api/enrollments/{id}.
func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var state enrollment.State
	if !h.Sessions.With(id, func(m *enrollment.Machine) { state = m.State() }) {
		http.Error(w, "enrollment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, EnrollmentResponse{ID: id, State: state})
}

// Cancel handles DELETE /api/enrollments/{id}.
func (h *EnrollmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Sessions.With(id, func(m *enrollment.Machine) { m.Cancel() }) {
		http.Error(w, "enrollment not found", http.StatusNotFound)
		return
	}
	h.Sessions.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// SelectMethod handles POST /api/enrollments/{id}/method with {"type": ...}.
func (h *EnrollmentHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	t, err := models.ParseMethodType(req.Type)
	if err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.step(w, r, func(m *enrollment.Machine) enrollment.State { return m.SelectMethod(t) })
}

// SubmitFirst handles POST /api/enrollments/{id}/first with a capture body.
func (h *EnrollmentHandler) SubmitFirst(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, (*enrollment.Machine).SubmitFirstAttempt)
}

// SubmitRepeat handles POST /api/enrollments/{id}/repeat with a capture body.
func (h *EnrollmentHandler) SubmitRepeat(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, (*enrollment.Machine).SubmitRepeatAttempt)
}

func (h *EnrollmentHandler) submit(w http.ResponseWriter, r *http.Request, deliver func(*enrollment.Machine, string) enrollment.State) {
	var in capture.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.stepE(w, r, func(m *enrollment.Machine) (enrollment.State, error) {
		payload := in.Payload
		// Without a method the machine rejects the capture itself.
		if t := m.State().Type; t != "" {
			p, err := in.Encode(t)
			if err != nil {
				return enrollment.State{}, err
			}
			payload = p
		}
		return deliver(m, payload), nil
	})
}

// SetName handles POST /api/enrollments/{id}/name with {"name": ...}.
func (h *EnrollmentHandler) SetName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.step(w, r, func(m *enrollment.Machine) enrollment.State { return m.SetName(req.Name) })
}

// SetHint handles POST /api/enrollments/{id}/hint with {"hint": ...}.
func (h *EnrollmentHandler) SetHint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hint string `json:"hint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.step(w, r, func(m *enrollment.Machine) enrollment.State { return m.SetHint(req.Hint) })
}

// Back handles POST /api/enrollments/{id}/back. Leaving the wizard closes it.
func (h *EnrollmentHandler) Back(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var resp EnrollmentResponse
	found := h.Sessions.With(id, func(m *enrollment.Machine) {
		resp = EnrollmentResponse{ID: id, Cancelled: m.Back(), State: m.State()}
	})
	if !found {
		http.Error(w, "enrollment not found", http.StatusNotFound)
		return
	}
	if resp.Cancelled {
		h.Sessions.Close(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Save handles POST /api/enrollments/{id}/save. A saved wizard is closed.
// A session that fails re-validation answers 422 with the state explaining why.
func (h *EnrollmentHandler) Save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		res   enrollment.SaveResult
		state enrollment.State
		err   error
	)
	found := h.Sessions.With(id, func(m *enrollment.Machine) {
		res, err = m.Save(r.Context())
		state = m.State()
	})
	switch {
	case !found:
		http.Error(w, "enrollment not found", http.StatusNotFound)
	case errors.Is(err, models.ErrEntryNotFound):
		h.Sessions.Close(id)
		writeJSON(w, http.StatusNotFound, EnrollmentResponse{ID: id, State: state, Cancelled: true})
	case err != nil:
		h.Log.Error("failed to save enrollment", zap.String("enrollment_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	case !res.Saved:
		writeJSON(w, http.StatusUnprocessableEntity, EnrollmentResponse{ID: id, State: state})
	default:
		h.Sessions.Close(id)
		writeJSON(w, http.StatusOK, SaveResponse{
			EnrollmentResponse: EnrollmentResponse{ID: id, State: state},
			EntryID:            res.ID,
			Created:            res.Created,
		})
	}
}

// step applies fn to the wizard named in the URL and writes its state.
// A state carrying an error is answered with 422.
func (h *EnrollmentHandler) step(w http.ResponseWriter, r *http.Request, fn func(*enrollment.Machine) enrollment.State) {
	h.stepE(w, r, func(m *enrollment.Machine) (enrollment.State, error) { return fn(m), nil })
}

// stepE is step for inputs that can be malformed; an error is answered with 400.
func (h *EnrollmentHandler) stepE(w http.ResponseWriter, r *http.Request, fn func(*enrollment.Machine) (enrollment.State, error)) {
	id := chi.URLParam(r, "id")
	var (
		state enrollment.State
		err   error
	)
	if !h.Sessions.With(id, func(m *enrollment.Machine) { state, err = fn(m) }) {
		http.Error(w, "enrollment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "invalid capture: "+err.Error(), http.StatusBadRequest)
		return
	}
	status := http.StatusOK
	if state.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, EnrollmentResponse{ID: id, State: state})
}
