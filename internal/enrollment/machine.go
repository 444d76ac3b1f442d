package enrollment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/clock"
	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
)

// EntryStore defines the persistence operations the wizard needs.
type EntryStore interface {
	// Create stores a new entry and returns its id.
	Create(ctx context.Context, name string, t models.MethodType, payload, hint string) (string, error)
	// Update replaces a stored entry. UpdatedAt is set by the caller.
	Update(ctx context.Context, entry models.AuthEntry) error
	// GetByID returns models.ErrEntryNotFound when the entry is absent.
	GetByID(ctx context.Context, id string) (*models.AuthEntry, error)
}

// SaveResult reports the outcome of Machine.Save.
type SaveResult struct {
	// Saved is false when the session failed re-validation; State().Error explains why.
	Saved bool
	// ID is the id of the created or updated entry.
	ID string
	// Created is true for a new entry, false for an update.
	Created bool
}

// Machine drives one wizard session. It has a single owner and is not safe
// for concurrent use; hosts serving several users keep one Machine each.
type Machine struct {
	reducer Reducer
	store   EntryStore
	clock   clock.Clock
	log     *zap.Logger

	session   Session
	listeners map[int]func(State)
	nextID    int
}

// NewMachine returns a machine holding a blank create session.
func NewMachine(store EntryStore, reg *method.Registry, clk clock.Clock, log *zap.Logger) *Machine {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		reducer:   NewReducer(reg),
		store:     store,
		clock:     clk,
		log:       log,
		session:   NewSession(),
		listeners: make(map[int]func(State)),
	}
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session { return m.session }

// State returns the current render snapshot.
func (m *Machine) State() State { return m.session.State() }

// Subscribe registers fn to receive a snapshot after every event and returns
// a function that removes it.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

func (m *Machine) apply(ev Event) Effect {
	next, eff := m.reducer.Reduce(m.session, ev)
	m.session = next
	m.publish()
	return eff
}

func (m *Machine) publish() {
	st := m.session.State()
	for _, fn := range m.listeners {
		fn(st)
	}
}

// Start discards any progress and begins a blank create session.
func (m *Machine) Start() { m.apply(Start{}) }

// Cancel is Start under the name hosts use for abandoning the wizard.
func (m *Machine) Cancel() { m.apply(Start{}) }

// StartEdit loads the entry and begins an edit session for it.
func (m *Machine) StartEdit(ctx context.Context, id string) error {
	entry, err := m.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load entry %s: %w", id, err)
	}
	m.apply(Start{Entry: entry})
	return nil
}

// SelectMethod chooses the method type to enroll.
func (m *Machine) SelectMethod(t models.MethodType) State {
	m.apply(SelectMethod{Type: t})
	return m.State()
}

// SubmitFirstAttempt delivers the first capture.
func (m *Machine) SubmitFirstAttempt(payload string) State {
	m.apply(SubmitFirst{Payload: payload})
	return m.State()
}

// SubmitRepeatAttempt delivers the confirmation capture.
func (m *Machine) SubmitRepeatAttempt(payload string) State {
	m.apply(SubmitRepeat{Payload: payload})
	return m.State()
}

// SetName sets the entry name.
func (m *Machine) SetName(name string) State {
	m.apply(SetName{Name: name})
	return m.State()
}

// SetHint sets the entry hint.
func (m *Machine) SetHint(hint string) State {
	m.apply(SetHint{Hint: hint})
	return m.State()
}

// Back moves one step backward and reports whether the user cancelled the wizard.
func (m *Machine) Back() (cancelled bool) {
	_, cancelled = m.apply(Back{}).(Cancelled)
	return cancelled
}

// Save persists the session. On success the machine resets to a blank
// create session. A store error leaves the session where it was so Save
// can be retried; retrying an update is only idempotent if the store is.
func (m *Machine) Save(ctx context.Context) (SaveResult, error) {
	eff := m.apply(Save{Now: m.clock.Now()})

	var res SaveResult
	switch e := eff.(type) {
	case CreateEntry:
		id, err := m.store.Create(ctx, e.Name, e.Type, e.Payload, e.Hint)
		if err != nil {
			return m.saveFailed(err)
		}
		res = SaveResult{Saved: true, ID: id, Created: true}
	case UpdateEntry:
		if err := m.store.Update(ctx, e.Entry); err != nil {
			return m.saveFailed(err)
		}
		res = SaveResult{Saved: true, ID: e.Entry.ID}
	default:
		return SaveResult{}, nil
	}

	m.log.Info("enrollment saved",
		zap.String("id", res.ID),
		zap.String("type", string(m.session.Type)),
		zap.Stringer("mode", m.session.Mode),
	)
	m.apply(Start{})
	return res, nil
}

func (m *Machine) saveFailed(err error) (SaveResult, error) {
	m.session.Error = "could not save, try again"
	if errors.Is(err, models.ErrEntryNotFound) {
		m.session.Error = "entry no longer exists"
	}
	m.publish()
	m.log.Error("enrollment save failed", zap.Stringer("mode", m.session.Mode), zap.Error(err))
	return SaveResult{}, fmt.Errorf("save entry: %w", err)
}
