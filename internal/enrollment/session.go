// Package enrollment implements the wizard that captures, confirms, names,
// and saves an authentication method.
//
// The wizard is a pure reducer over Session values (see Reducer). Machine
// wraps the reducer for a single owner, executes save effects against an
// EntryStore, and publishes State snapshots to subscribers.
package enrollment

import (
	"fmt"

	"github.com/atinyakov/accessgate/internal/models"
)

// Mode tells whether the wizard creates a new entry or edits an existing one.
type Mode int8

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "create":
		*m = Create
	case "edit":
		*m = Edit
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Step is a wizard step. Steps are ordered.
type Step int8

const (
	ChooseMethod Step = iota
	DoAuth
	RepeatAuth
	Name
	ReviewAndSave
)

var stepNames = [...]string{"choose_method", "do_auth", "repeat_auth", "name", "review_and_save"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// MarshalText encodes the step as its name.
func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(text []byte) error {
	for i, name := range stepNames {
		if name == string(text) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", text)
}

// Session is the in-progress state of one wizard run. It is a value: the
// reducer never mutates a Session in place.
type Session struct {
	Mode           Mode
	EditingEntryID string
	Step           Step
	Type           models.MethodType

	// FirstAttempt and RepeatAttempt are capture payloads. Empty means absent.
	FirstAttempt  string
	RepeatAttempt string

	Name  string
	Hint  string
	Error string

	// original is the entry being edited.
	original *models.AuthEntry
}

// NewSession returns a blank create session.
func NewSession() Session {
	return Session{Mode: Create, Step: ChooseMethod}
}

// NewEditSession returns a session that edits entry, starting at DoAuth
// with the entry's type, name, and hint.
func NewEditSession(entry models.AuthEntry) Session {
	return Session{
		Mode:           Edit,
		EditingEntryID: entry.ID,
		Step:           DoAuth,
		Type:           entry.Type,
		Name:           entry.Name,
		Hint:           entry.Hint,
		original:       &entry,
	}
}

// State is the render snapshot of a session. Capture payloads are not exposed.
type State struct {
	Mode             Mode              `json:"mode"`
	EditingEntryID   string            `json:"editing_entry_id,omitempty"`
	Step             Step              `json:"step"`
	Type             models.MethodType `json:"type,omitempty"`
	Name             string            `json:"name"`
	Hint             string            `json:"hint"`
	Error            string            `json:"error,omitempty"`
	HasFirstAttempt  bool              `json:"has_first_attempt"`
	HasRepeatAttempt bool              `json:"has_repeat_attempt"`
}

// State returns the render snapshot of s.
func (s Session) State() State {
	return State{
		Mode:             s.Mode,
		EditingEntryID:   s.EditingEntryID,
		Step:             s.Step,
		Type:             s.Type,
		Name:             s.Name,
		Hint:             s.Hint,
		Error:            s.Error,
		HasFirstAttempt:  s.FirstAttempt != "",
		HasRepeatAttempt: s.RepeatAttempt != "",
	}
}
