package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
)

func run(t *testing.T, r Reducer, s Session, events ...Event) (Session, Effect) {
	t.Helper()
	var eff Effect
	for _, ev := range events {
		s, eff = r.Reduce(s, ev)
	}
	return s, eff
}

func TestReduce_PinHappyPath(t *testing.T) {
	r := NewReducer(method.Default())

	s, _ := r.Reduce(NewSession(), SelectMethod{Type: models.Pin})
	assert.Equal(t, DoAuth, s.Step)
	s, _ = r.Reduce(s, SubmitFirst{Payload: "1234"})
	assert.Equal(t, RepeatAuth, s.Step)
	s, _ = r.Reduce(s, SubmitRepeat{Payload: "1234"})
	assert.Equal(t, Name, s.Step)
	s, _ = r.Reduce(s, SetName{Name: " work "})
	assert.Equal(t, ReviewAndSave, s.Step)
	assert.Equal(t, "work", s.Name)

	s, eff := r.Reduce(s, Save{Now: time.Now()})
	assert.Empty(t, s.Error)
	assert.Equal(t, CreateEntry{Name: "work", Type: models.Pin, Payload: "1234"}, eff)
}

func TestReduce_StartIsIdempotent(t *testing.T) {
	r := NewReducer(method.Default())
	busy, _ := run(t, r, NewSession(), SelectMethod{Type: models.Pin}, SubmitFirst{Payload: "1234"})

	first, _ := r.Reduce(busy, Start{})
	second, _ := r.Reduce(first, Start{})
	assert.Equal(t, NewSession(), first)
	assert.Equal(t, first, second)
}

func TestReduce_ConfirmationMismatchKeepsFirstCapture(t *testing.T) {
	r := NewReducer(method.Default())
	s, _ := run(t, r, NewSession(), SelectMethod{Type: models.Pin}, SubmitFirst{Payload: "1234"})

	s, _ = r.Reduce(s, SubmitRepeat{Payload: "9999"})
	assert.Equal(t, RepeatAuth, s.Step)
	assert.NotEmpty(t, s.Error)
	assert.Equal(t, "1234", s.FirstAttempt)
	assert.Empty(t, s.RepeatAttempt)

	s, _ = r.Reduce(s, SubmitRepeat{Payload: "1234"})
	assert.Equal(t, Name, s.Step)
	assert.Empty(t, s.Error)
}

func TestReduce_ValidationErrorsStayOnStep(t *testing.T) {
	r := NewReducer(method.Default())
	tests := []struct {
		typ     models.MethodType
		payload string
	}{
		{models.Pin, "12"},
		{models.TapRhythm, ""},
		{models.FlipPattern, ","},
		{models.Fingerprint, "Not recognized. Try again."},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			s, _ := run(t, r, NewSession(), SelectMethod{Type: tt.typ}, SubmitFirst{Payload: tt.payload})
			assert.Equal(t, DoAuth, s.Step)
			assert.NotEmpty(t, s.Error)
			assert.Empty(t, s.FirstAttempt)
		})
	}
}

func TestReduce_RepeatWithoutFirstRegresses(t *testing.T) {
	r := NewReducer(method.Default())
	s := Session{Mode: Create, Step: RepeatAuth, Type: models.Pin}
	s, _ = r.Reduce(s, SubmitRepeat{Payload: "1234"})
	assert.Equal(t, DoAuth, s.Step)
	assert.Equal(t, "first capture missing, restart", s.Error)
}

func TestReduce_TapRhythmConfirmationIsTolerant(t *testing.T) {
	r := NewReducer(method.Default())
	s, _ := run(t, r, NewSession(),
		SelectMethod{Type: models.TapRhythm},
		SubmitFirst{Payload: "300,500,300"},
		SubmitRepeat{Payload: "320,540,310"},
	)
	assert.Equal(t, Name, s.Step)

	s, _ = run(t, r, NewSession(),
		SelectMethod{Type: models.TapRhythm},
		SubmitFirst{Payload: "300,500,300"},
		SubmitRepeat{Payload: "500,300,500"},
	)
	assert.Equal(t, RepeatAuth, s.Step)
	assert.Contains(t, s.Error, "does not match")
}

func TestReduce_FingerprintStoresSentinel(t *testing.T) {
	r := NewReducer(method.Default())
	_, eff := run(t, r, NewSession(),
		SelectMethod{Type: models.Fingerprint},
		SubmitFirst{Payload: models.BiometricSuccess},
		SubmitRepeat{Payload: models.BiometricSuccess},
		SetName{Name: "thumb"},
		Save{Now: time.Now()},
	)
	require.IsType(t, CreateEntry{}, eff)
	assert.Equal(t, models.FingerprintEnabled, eff.(CreateEntry).Payload)
}

func TestReduce_FlipPayloadIsCanonical(t *testing.T) {
	r := NewReducer(method.Default())
	_, eff := run(t, r, NewSession(),
		SelectMethod{Type: models.FlipPattern},
		SubmitFirst{Payload: "UP, LEFT"},
		SubmitRepeat{Payload: "UP,LEFT"},
		SetName{Name: "desk"},
		SetHint{Hint: "  start face up "},
		Save{Now: time.Now()},
	)
	assert.Equal(t, CreateEntry{Name: "desk", Type: models.FlipPattern, Payload: "UP,LEFT", Hint: "start face up"}, eff)
}

func TestReduce_OutOfOrderEventsAreRejected(t *testing.T) {
	r := NewReducer(method.Default())
	s := NewSession()

	next, eff := r.Reduce(s, SubmitFirst{Payload: "1234"})
	assert.Nil(t, eff)
	assert.Equal(t, ChooseMethod, next.Step)
	assert.Contains(t, next.Error, "not allowed")

	next, _ = r.Reduce(s, Save{})
	assert.Equal(t, ChooseMethod, next.Step)
	assert.NotEmpty(t, next.Error)

	next, _ = r.Reduce(s, SelectMethod{Type: "retina"})
	assert.Equal(t, ChooseMethod, next.Step)
	assert.NotEmpty(t, next.Error)

	s, _ = r.Reduce(s, SelectMethod{Type: models.Pin})
	next, _ = r.Reduce(s, SelectMethod{Type: models.FlipPattern})
	assert.Equal(t, models.Pin, next.Type)
	assert.NotEmpty(t, next.Error)
}

func TestReduce_BlankNameDoesNotAdvance(t *testing.T) {
	r := NewReducer(method.Default())
	s, _ := run(t, r, NewSession(), SelectMethod{Type: models.Pin}, SubmitFirst{Payload: "1234"}, SubmitRepeat{Payload: "1234"})
	s, _ = r.Reduce(s, SetName{Name: "   "})
	assert.Equal(t, Name, s.Step)
	assert.Equal(t, "name is required", s.Error)
}

func TestReduce_Back(t *testing.T) {
	r := NewReducer(method.Default())
	s, _ := run(t, r, NewSession(),
		SelectMethod{Type: models.Pin},
		SubmitFirst{Payload: "1234"},
		SubmitRepeat{Payload: "1234"},
		SetName{Name: "work"},
	)
	require.Equal(t, ReviewAndSave, s.Step)

	s, _ = r.Reduce(s, Back{})
	assert.Equal(t, Name, s.Step)
	s, _ = r.Reduce(s, Back{})
	assert.Equal(t, RepeatAuth, s.Step)
	assert.Empty(t, s.RepeatAttempt)
	assert.Equal(t, "1234", s.FirstAttempt)
	s, _ = r.Reduce(s, Back{})
	assert.Equal(t, DoAuth, s.Step)
	assert.Empty(t, s.FirstAttempt)
	s, _ = r.Reduce(s, Back{})
	assert.Equal(t, ChooseMethod, s.Step)
	assert.Empty(t, s.Type)

	s, eff := r.Reduce(s, Back{})
	assert.Equal(t, Cancelled{}, eff)
	assert.Equal(t, NewSession(), s)
}

func TestReduce_EditBackFloor(t *testing.T) {
	r := NewReducer(method.Default())
	entry := models.AuthEntry{ID: "e1", Name: "Front Door", Type: models.Pin, Payload: "1234"}
	s, _ := r.Reduce(NewSession(), Start{Entry: &entry})
	require.Equal(t, DoAuth, s.Step)

	s, eff := r.Reduce(s, Back{})
	assert.Nil(t, eff)
	assert.Equal(t, DoAuth, s.Step)
	assert.NotEmpty(t, s.Error)
}

func TestReduce_EditMetadataOnlyKeepsPayload(t *testing.T) {
	r := NewReducer(method.Default())
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := models.AuthEntry{
		ID: "e1", Name: "Front Door", Type: models.TapRhythm, Payload: "300,500",
		Hint: "doorbell", CreatedAt: created, UpdatedAt: created,
	}
	now := created.Add(time.Hour)

	s, eff := run(t, r, NewSession(), Start{Entry: &entry}, Save{Now: now})
	assert.Empty(t, s.Error)
	require.IsType(t, UpdateEntry{}, eff)
	got := eff.(UpdateEntry).Entry
	assert.Equal(t, "Front Door", got.Name)
	assert.Equal(t, "doorbell", got.Hint)
	assert.Equal(t, "300,500", got.Payload)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestReduce_EditRecapture(t *testing.T) {
	r := NewReducer(method.Default())
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := models.AuthEntry{ID: "e1", Name: "Front Door", Type: models.Pin, Payload: "1234", CreatedAt: created, UpdatedAt: created}

	s, _ := run(t, r, NewSession(),
		Start{Entry: &entry},
		SubmitFirst{Payload: "5678"},
		SubmitRepeat{Payload: "5678"},
	)
	require.Equal(t, Name, s.Step)
	assert.Equal(t, "Front Door", s.Name)

	_, eff := run(t, r, s, SetName{Name: "Back Door"}, Save{Now: created.Add(time.Minute)})
	require.IsType(t, UpdateEntry{}, eff)
	got := eff.(UpdateEntry).Entry
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "Back Door", got.Name)
	assert.Equal(t, "5678", got.Payload)
}

func TestReduce_EditPartialCaptureCannotSaveEarly(t *testing.T) {
	r := NewReducer(method.Default())
	entry := models.AuthEntry{ID: "e1", Name: "Front Door", Type: models.Pin, Payload: "1234"}
	s, eff := run(t, r, NewSession(), Start{Entry: &entry}, SubmitFirst{Payload: "5678"}, Save{Now: time.Now()})
	assert.Nil(t, eff)
	assert.Equal(t, RepeatAuth, s.Step)
	assert.NotEmpty(t, s.Error)
}

func TestReduce_SaveRevalidates(t *testing.T) {
	r := NewReducer(method.Default())
	tampered := Session{
		Mode: Create, Step: ReviewAndSave, Type: models.Pin,
		FirstAttempt: "1234", RepeatAttempt: "4321", Name: "work",
	}
	s, eff := r.Reduce(tampered, Save{Now: time.Now()})
	assert.Nil(t, eff)
	assert.Equal(t, DoAuth, s.Step)
	assert.Empty(t, s.FirstAttempt)
	assert.Empty(t, s.RepeatAttempt)
	assert.NotEmpty(t, s.Error)

	missing := tampered
	missing.RepeatAttempt = ""
	s, eff = r.Reduce(missing, Save{Now: time.Now()})
	assert.Nil(t, eff)
	assert.Equal(t, DoAuth, s.Step)
	assert.Equal(t, "repeat capture missing, restart", s.Error)
}

func TestReduce_EditWithoutEntryNeverCreates(t *testing.T) {
	r := NewReducer(method.Default())
	orphan := Session{
		Mode: Edit, EditingEntryID: "e1", Step: ReviewAndSave, Type: models.Pin,
		FirstAttempt: "1234", RepeatAttempt: "1234", Name: "work",
	}
	s, eff := r.Reduce(orphan, Save{Now: time.Now()})
	assert.Nil(t, eff)
	assert.Equal(t, "no entry loaded for editing", s.Error)

	orphan.Step = DoAuth
	orphan.FirstAttempt, orphan.RepeatAttempt = "", ""
	s, eff = r.Reduce(orphan, Save{Now: time.Now()})
	assert.Nil(t, eff)
	assert.NotEmpty(t, s.Error)
}

func TestStamped_NeverBeforeCreated(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := stamped(models.AuthEntry{CreatedAt: created}, created.Add(-time.Hour))
	assert.Equal(t, created, e.UpdatedAt)
}
