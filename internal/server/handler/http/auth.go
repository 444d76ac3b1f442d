package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/accessgate/internal/capture"
	"github.com/atinyakov/accessgate/internal/models"
	"github.com/atinyakov/accessgate/internal/service"
)

// AuthService defines the authentication operation required by the HTTP handlers.
type AuthService interface {
	// Authenticate checks an encoded attempt against the stored entry.
	Authenticate(ctx context.Context, entryID string, t models.MethodType, attempt string) (service.Result, error)
}

// AuthHandler handles authentication attempts against stored entries.
type AuthHandler struct {
	// AuthService performs the underlying authentication.
	AuthService AuthService
}

// AuthenticateRequest is the JSON body of an authentication attempt.
// The capture fields that apply depend on Type.
type AuthenticateRequest struct {
	Type string `json:"type"`
	capture.Input
}

// Authenticate handles POST /api/entries/{id}/authenticate. A rejected
// attempt is a 200 response whose outcome is "rejected".
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	t, err := models.ParseMethodType(req.Type)
	if err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	attempt, err := req.Encode(t)
	if err != nil {
		http.Error(w, "invalid capture: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.AuthService.Authenticate(r.Context(), chi.URLParam(r, "id"), t, attempt)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
