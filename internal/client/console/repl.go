package console

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/accessgate/internal/enrollment"
	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
	"github.com/atinyakov/accessgate/internal/service"
)

const helpText = "Available commands: help, methods, list, add, edit <id>, auth <id>, delete <id>, exit"

// Entries defines the entry operations used by the REPL.
type Entries interface {
	List(ctx context.Context) ([]models.AuthEntry, error)
	Get(ctx context.Context, id string) (*models.AuthEntry, error)
	Delete(ctx context.Context, id string) error
}

// Authenticator checks an attempt against a stored entry.
type Authenticator interface {
	Authenticate(ctx context.Context, entryID string, t models.MethodType, attempt string) (service.Result, error)
}

// REPL runs the interactive shell over a local entry store.
type REPL struct {
	Console    *Console
	Entries    Entries
	Auth       Authenticator
	Methods    *method.Registry
	NewMachine func() *enrollment.Machine
}

// Run reads commands until "exit" or end of input.
func (r *REPL) Run(ctx context.Context) error {
	for {
		line, ok := r.Console.Prompt("accessgate> ")
		if !ok {
			return nil
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		var err error
		switch args[0] {
		case "help":
			r.Console.Println(helpText)
		case "methods":
			for _, d := range r.Methods.All() {
				r.Console.Printf("%-12s %s\n", d.Type, d.DisplayName)
			}
		case "list":
			err = r.list(ctx)
		case "add":
			err = r.wizard(ctx, r.NewMachine())
		case "edit", "auth", "delete":
			if len(args) < 2 {
				r.Console.Printf("Usage: %s <id>\n", args[0])
				continue
			}
			switch args[0] {
			case "edit":
				err = r.edit(ctx, args[1])
			case "auth":
				err = r.authenticate(ctx, args[1])
			case "delete":
				err = r.delete(ctx, args[1])
			}
		case "exit":
			r.Console.Println("Bye")
			return nil
		default:
			r.Console.Println("Unknown command. Type 'help' for a list of commands.")
		}
		if err != nil {
			return err
		}
	}
}

func (r *REPL) list(ctx context.Context) error {
	entries, err := r.Entries.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.Console.Println("No entries yet. Type 'add' to enroll one.")
		return nil
	}
	for _, e := range entries {
		r.Console.Printf("%s  %-20s %-12s %s\n", e.ID, e.Name, e.Type, e.Hint)
	}
	return nil
}

func (r *REPL) delete(ctx context.Context, id string) error {
	entry, err := r.Entries.Get(ctx, id)
	if errors.Is(err, models.ErrEntryNotFound) {
		r.Console.Println("Entry not found")
		return nil
	}
	if err != nil {
		return err
	}
	yes, _ := r.Console.Confirm("Delete " + strconv.Quote(entry.Name) + "?")
	if !yes {
		return nil
	}
	if err := r.Entries.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrEntryNotFound) {
		return err
	}
	r.Console.Println("Entry deleted")
	return nil
}

func (r *REPL) authenticate(ctx context.Context, id string) error {
	entry, err := r.Entries.Get(ctx, id)
	if errors.Is(err, models.ErrEntryNotFound) {
		r.Console.Println("Entry not found")
		return nil
	}
	if err != nil {
		return err
	}
	r.Console.Printf("Authenticate %q", entry.Name)
	if entry.Hint != "" {
		r.Console.Printf(" (hint: %s)", entry.Hint)
	}
	r.Console.Println()

	in, err := r.Console.Capture(entry.Type)
	if errors.Is(err, errBack) || errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	attempt, err := in.Encode(entry.Type)
	if err != nil {
		r.Console.Printf("! %v\n", err)
		return nil
	}
	res, err := r.Auth.Authenticate(ctx, id, entry.Type, attempt)
	if err != nil {
		return err
	}
	r.Console.Println(res.Message)
	return nil
}

func (r *REPL) edit(ctx context.Context, id string) error {
	m := r.NewMachine()
	err := m.StartEdit(ctx, id)
	if errors.Is(err, models.ErrEntryNotFound) {
		r.Console.Println("Entry not found")
		return nil
	}
	if err != nil {
		return err
	}
	return r.wizard(ctx, m)
}

// wizard drives m until it is saved or cancelled. Typing "back" at any
// prompt steps back; backing out of the first step cancels.
func (r *REPL) wizard(ctx context.Context, m *enrollment.Machine) error {
	shown := ""
	for {
		st := m.State()
		if st.Error != "" && st.Error != shown {
			r.Console.Printf("! %s\n", st.Error)
		}
		shown = st.Error

		var (
			done bool
			err  error
		)
		switch st.Step {
		case enrollment.ChooseMethod:
			err = r.chooseMethod(m)
		case enrollment.DoAuth:
			done, err = r.doAuth(ctx, m, st)
		case enrollment.RepeatAuth:
			r.Console.Println("Repeat the same input to confirm.")
			err = r.submit(st.Type, m.SubmitRepeatAttempt)
		case enrollment.Name:
			err = r.name(m, st)
		case enrollment.ReviewAndSave:
			done, err = r.review(ctx, m, st)
		}

		switch {
		case done:
			return nil
		case errors.Is(err, errBack):
			// An edit has nothing before its first step, so back leaves it.
			if st.Mode == enrollment.Edit && st.Step == enrollment.DoAuth {
				m.Cancel()
				r.Console.Println("Cancelled")
				return nil
			}
			if m.Back() {
				r.Console.Println("Cancelled")
				return nil
			}
		case errors.Is(err, io.EOF):
			m.Cancel()
			return nil
		case err != nil:
			return err
		}
	}
}

func (r *REPL) chooseMethod(m *enrollment.Machine) error {
	all := r.Methods.All()
	for i, d := range all {
		r.Console.Printf("%d) %s\n", i+1, d.DisplayName)
	}
	answer, err := r.Console.answer("Choose a method: ")
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(all) {
		m.SelectMethod(all[n-1].Type)
		return nil
	}
	t, parseErr := models.ParseMethodType(answer)
	if parseErr != nil {
		r.Console.Println("Unknown method")
		return nil
	}
	m.SelectMethod(t)
	return nil
}

func (r *REPL) doAuth(ctx context.Context, m *enrollment.Machine, st enrollment.State) (bool, error) {
	if st.Mode == enrollment.Edit && !st.HasFirstAttempt {
		recapture, err := r.Console.confirm("Record a new " + r.displayName(st.Type) + "?")
		if err != nil {
			return false, err
		}
		if !recapture {
			return r.editDetails(ctx, m, st)
		}
	}
	r.Console.Printf("Perform your %s.\n", r.displayName(st.Type))
	return false, r.submit(st.Type, m.SubmitFirstAttempt)
}

// editDetails renames an entry without touching its capture.
func (r *REPL) editDetails(ctx context.Context, m *enrollment.Machine, st enrollment.State) (bool, error) {
	name, err := r.Console.answer("Name [" + st.Name + "]: ")
	if err != nil {
		return false, err
	}
	if name != "" {
		m.SetName(name)
	}
	hint, err := r.Console.answer("Hint [" + st.Hint + "]: ")
	if err != nil {
		return false, err
	}
	if hint != "" {
		m.SetHint(hint)
	}
	return r.save(ctx, m)
}

func (r *REPL) submit(t models.MethodType, deliver func(string) enrollment.State) error {
	in, err := r.Console.Capture(t)
	if err != nil {
		return err
	}
	payload, err := in.Encode(t)
	if err != nil {
		r.Console.Printf("! %v\n", err)
		return nil
	}
	deliver(payload)
	return nil
}

func (r *REPL) name(m *enrollment.Machine, st enrollment.State) error {
	label := "Name: "
	if st.Name != "" {
		label = "Name [" + st.Name + "]: "
	}
	name, err := r.Console.answer(label)
	if err != nil {
		return err
	}
	if name == "" {
		name = st.Name
	}
	m.SetName(name)
	return nil
}

func (r *REPL) review(ctx context.Context, m *enrollment.Machine, st enrollment.State) (bool, error) {
	r.Console.Printf("Method: %s\nName:   %s\n", r.displayName(st.Type), st.Name)
	hint, err := r.Console.answer("Hint (optional) [" + st.Hint + "]: ")
	if err != nil {
		return false, err
	}
	if hint != "" {
		m.SetHint(hint)
	}
	answer, err := r.Console.answer("Save? [Y/n]: ")
	if err != nil {
		return false, err
	}
	if strings.EqualFold(answer, "n") || strings.EqualFold(answer, "no") {
		m.Cancel()
		r.Console.Println("Cancelled")
		return true, nil
	}
	return r.save(ctx, m)
}

func (r *REPL) save(ctx context.Context, m *enrollment.Machine) (bool, error) {
	res, err := m.Save(ctx)
	if errors.Is(err, models.ErrEntryNotFound) {
		m.Cancel()
		r.Console.Println("Entry not found")
		return true, nil
	}
	if err != nil {
		r.Console.Printf("! %v\n", err)
		return false, nil
	}
	if !res.Saved {
		return false, nil
	}
	if res.Created {
		r.Console.Printf("Saved entry %s\n", res.ID)
	} else {
		r.Console.Printf("Updated entry %s\n", res.ID)
	}
	return true, nil
}

func (r *REPL) displayName(t models.MethodType) string {
	if d, ok := r.Methods.Lookup(t); ok {
		return d.DisplayName
	}
	return string(t)
}
