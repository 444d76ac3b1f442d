// Package http provides the JSON API for enrolling authentication entries,
// managing them and authenticating against them.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
)

// EntryService defines the entry management operations required by the HTTP handlers.
type EntryService interface {
	// List returns all entries, most recently updated first.
	List(ctx context.Context) ([]models.AuthEntry, error)
	// Get returns models.ErrEntryNotFound when the entry is absent.
	Get(ctx context.Context, id string) (*models.AuthEntry, error)
	// Observe streams the entry and its changes until ctx is done.
	Observe(ctx context.Context, id string) (<-chan *models.AuthEntry, error)
	// Delete returns models.ErrEntryNotFound when the entry is absent.
	Delete(ctx context.Context, id string) error
}

// EntryHandler serves the method catalog and stored entries.
type EntryHandler struct {
	// EntryService performs the underlying entry operations.
	EntryService EntryService
	// Methods is the catalog returned by ListMethods.
	Methods *method.Registry
}

// ListMethods returns the supported method types in display order.
func (h *EntryHandler) ListMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Methods.All())
}

// List returns every stored entry. Payloads are never included.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.EntryService.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Get returns one entry.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.EntryService.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrEntryNotFound) {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete removes one entry.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.EntryService.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrEntryNotFound) {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams the entry as server-sent events: the current value first,
// then every change. A deleted or missing entry is sent as "null".
func (h *EntryHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	updates, err := h.EntryService.Observe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for entry := range updates {
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "event: entry\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
