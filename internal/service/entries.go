package service

import (
	"context"

	"github.com/atinyakov/accessgate/internal/models"
)

// EntryRepository defines the persistence operations for enrolled entries.
type EntryRepository interface {
	EntryGetter
	// Create stores a new entry and returns its id.
	Create(ctx context.Context, name string, t models.MethodType, payload, hint string) (string, error)
	// Update replaces a stored entry.
	Update(ctx context.Context, entry models.AuthEntry) error
	// ObserveByID streams the entry and its changes until ctx is done.
	ObserveByID(ctx context.Context, id string) (<-chan *models.AuthEntry, error)
	// DeleteByID removes an entry.
	DeleteByID(ctx context.Context, id string) error
	// ListAll returns entries, most recently updated first.
	ListAll(ctx context.Context) ([]models.AuthEntry, error)
}

// EntryService exposes entry management to hosts.
type EntryService struct {
	repo EntryRepository
}

// NewEntryService constructs an EntryService over repo.
func NewEntryService(repo EntryRepository) *EntryService {
	return &EntryService{repo: repo}
}

// List returns all entries, most recently updated first.
func (s *EntryService) List(ctx context.Context) ([]models.AuthEntry, error) {
	return s.repo.ListAll(ctx)
}

// Get returns one entry or models.ErrEntryNotFound.
func (s *EntryService) Get(ctx context.Context, id string) (*models.AuthEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// Observe streams one entry and its changes.
func (s *EntryService) Observe(ctx context.Context, id string) (<-chan *models.AuthEntry, error) {
	return s.repo.ObserveByID(ctx, id)
}

// Delete removes one entry.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}
