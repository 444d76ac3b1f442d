package enrollment

import (
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
)

// Event is an input to the wizard.
type Event interface {
	event()
}

// Start discards the current session. A nil Entry starts a create session,
// otherwise the entry is edited.
type Start struct{ Entry *models.AuthEntry }

// SelectMethod picks the method type to enroll.
type SelectMethod struct{ Type models.MethodType }

// SubmitFirst delivers the first capture.
type SubmitFirst struct{ Payload string }

// SubmitRepeat delivers the confirmation capture.
type SubmitRepeat struct{ Payload string }

// SetName sets the entry name.
type SetName struct{ Name string }

// SetHint sets the optional hint.
type SetHint struct{ Hint string }

// Back moves one step backward.
type Back struct{}

// Save finishes the wizard. Now stamps the updated entry in edit mode.
type Save struct{ Now time.Time }

func (Start) event()        {}
func (SelectMethod) event() {}
func (SubmitFirst) event()  {}
func (SubmitRepeat) event() {}
func (SetName) event()      {}
func (SetHint) event()      {}
func (Back) event()         {}
func (Save) event()         {}

// Effect is a side effect requested by the reducer for the host to perform.
type Effect interface {
	effect()
}

// Cancelled tells the host the user backed out of a create session.
type Cancelled struct{}

// CreateEntry asks the host to persist a new entry.
type CreateEntry struct {
	Name    string
	Type    models.MethodType
	Payload string
	Hint    string
}

// UpdateEntry asks the host to replace a stored entry.
type UpdateEntry struct {
	Entry models.AuthEntry
}

func (Cancelled) effect()   {}
func (CreateEntry) effect() {}
func (UpdateEntry) effect() {}

// Reducer applies events to sessions using the method registry for
// per-type validation and confirmation.
type Reducer struct {
	registry *method.Registry
}

// NewReducer returns a reducer over reg.
func NewReducer(reg *method.Registry) Reducer {
	return Reducer{registry: reg}
}

// Reduce returns the session that follows s after ev, and an optional effect.
// Rejected events return s with Error set.
func (r Reducer) Reduce(s Session, ev Event) (Session, Effect) {
	switch e := ev.(type) {
	case Start:
		if e.Entry == nil {
			return NewSession(), nil
		}
		return NewEditSession(*e.Entry), nil
	case SelectMethod:
		return r.selectMethod(s, e.Type), nil
	case SubmitFirst:
		return r.submitFirst(s, e.Payload), nil
	case SubmitRepeat:
		return r.submitRepeat(s, e.Payload), nil
	case SetName:
		return setName(s, e.Name), nil
	case SetHint:
		return setHint(s, e.Hint), nil
	case Back:
		return back(s)
	case Save:
		return r.save(s, e.Now)
	}
	return reject(s, "unsupported event %T", ev), nil
}

func reject(s Session, format string, args ...any) Session {
	s.Error = fmt.Sprintf(format, args...)
	return s
}

func notAllowed(s Session, op string) Session {
	return reject(s, "%s is not allowed in step %s", op, s.Step)
}

func (r Reducer) selectMethod(s Session, t models.MethodType) Session {
	if s.Step != ChooseMethod {
		return notAllowed(s, "selecting a method")
	}
	if _, ok := r.registry.Lookup(t); !ok {
		return reject(s, "unknown method type %q", t)
	}
	s.Type = t
	s.FirstAttempt, s.RepeatAttempt = "", ""
	s.Step = DoAuth
	s.Error = ""
	return s
}

func (r Reducer) submitFirst(s Session, payload string) Session {
	if s.Step != DoAuth {
		return notAllowed(s, "submitting the first attempt")
	}
	desc, ok := r.registry.Lookup(s.Type)
	if !ok {
		return reject(s, "no method selected")
	}
	if err := desc.Validate(payload); err != nil {
		s.Error = err.Error()
		return s
	}
	s.FirstAttempt = payload
	s.RepeatAttempt = ""
	s.Step = RepeatAuth
	s.Error = ""
	return s
}

func (r Reducer) submitRepeat(s Session, payload string) Session {
	if s.Step != RepeatAuth {
		return notAllowed(s, "submitting the repeat attempt")
	}
	if s.FirstAttempt == "" {
		s.Step = DoAuth
		s.RepeatAttempt = ""
		s.Error = "first capture missing, restart"
		return s
	}
	desc, ok := r.registry.Lookup(s.Type)
	if !ok {
		return reject(s, "no method selected")
	}
	if err := desc.Validate(payload); err != nil {
		s.RepeatAttempt = ""
		s.Error = err.Error()
		return s
	}
	if res := desc.Confirm(s.FirstAttempt, payload); !res.Matched() {
		s.RepeatAttempt = ""
		s.Error = "does not match the first attempt, try again (" + res.Reason + ")"
		return s
	}
	s.RepeatAttempt = payload
	s.Step = Name
	s.Error = ""
	return s
}

// setName advances from Name. In ReviewAndSave, or anywhere in edit mode,
// it only renames.
func setName(s Session, name string) Session {
	editable := s.Step == Name || s.Step == ReviewAndSave || (s.Mode == Edit && s.Step != ChooseMethod)
	if !editable {
		return notAllowed(s, "setting the name")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return reject(s, "name is required")
	}
	s.Name = name
	s.Error = ""
	if s.Step == Name {
		s.Step = ReviewAndSave
	}
	return s
}

func setHint(s Session, hint string) Session {
	if s.Step == ChooseMethod {
		return notAllowed(s, "setting the hint")
	}
	s.Hint = strings.TrimSpace(hint)
	s.Error = ""
	return s
}

func back(s Session) (Session, Effect) {
	switch s.Step {
	case ChooseMethod:
		return NewSession(), Cancelled{}
	case DoAuth:
		if s.Mode == Edit {
			return reject(s, "cannot go back from the first step of an edit"), nil
		}
		s.Step = ChooseMethod
		s.Type = ""
		s.FirstAttempt, s.RepeatAttempt = "", ""
	case RepeatAuth:
		s.Step = DoAuth
		s.FirstAttempt, s.RepeatAttempt = "", ""
	case Name:
		s.Step = RepeatAuth
		s.RepeatAttempt = ""
	case ReviewAndSave:
		s.Step = Name
	}
	s.Error = ""
	return s, nil
}

func (r Reducer) save(s Session, now time.Time) (Session, Effect) {
	if s.Mode == Edit && s.original == nil {
		return reject(s, "no entry loaded for editing"), nil
	}
	if s.Mode == Edit && s.FirstAttempt == "" && s.RepeatAttempt == "" {
		return saveMetadata(s, now)
	}
	if s.Step != ReviewAndSave {
		return notAllowed(s, "saving"), nil
	}

	regress := func(msg string) (Session, Effect) {
		s.Step = DoAuth
		s.FirstAttempt, s.RepeatAttempt = "", ""
		s.Error = msg
		return s, nil
	}
	desc, ok := r.registry.Lookup(s.Type)
	switch {
	case !ok:
		return regress("no method selected")
	case s.FirstAttempt == "":
		return regress("first capture missing, restart")
	case s.RepeatAttempt == "":
		return regress("repeat capture missing, restart")
	}
	if err := desc.Validate(s.FirstAttempt); err != nil {
		return regress(err.Error())
	}
	if res := desc.Confirm(s.FirstAttempt, s.RepeatAttempt); !res.Matched() {
		return regress("captures do not match, restart (" + res.Reason + ")")
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Step = Name
		s.Error = "name is required"
		return s, nil
	}

	payload := desc.Canonical(s.FirstAttempt)
	s.Error = ""
	if s.Mode == Create {
		return s, CreateEntry{Name: s.Name, Type: s.Type, Payload: payload, Hint: s.Hint}
	}
	entry := stamped(*s.original, now)
	entry.Name, entry.Hint = s.Name, s.Hint
	entry.Type, entry.Payload = s.Type, payload
	return s, UpdateEntry{Entry: entry}
}

// saveMetadata updates name and hint of the edited entry and keeps its payload.
func saveMetadata(s Session, now time.Time) (Session, Effect) {
	if strings.TrimSpace(s.Name) == "" {
		return reject(s, "name is required"), nil
	}
	entry := stamped(*s.original, now)
	entry.Name, entry.Hint = s.Name, s.Hint
	s.Error = ""
	return s, UpdateEntry{Entry: entry}
}

// stamped refreshes UpdatedAt, never letting it fall behind CreatedAt.
func stamped(entry models.AuthEntry, now time.Time) models.AuthEntry {
	if now.Before(entry.CreatedAt) {
		now = entry.CreatedAt
	}
	entry.UpdatedAt = now
	return entry
}
