package enrollment_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/accessgate/internal/enrollment"
	"github.com/atinyakov/accessgate/internal/models"
)

func TestState_JSON(t *testing.T) {
	entry := models.AuthEntry{ID: "e1", Name: "Front Door", Type: models.Pin, Payload: "1234", Hint: "blue"}
	st := enrollment.NewEditSession(entry).State()

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mode": "edit",
		"editing_entry_id": "e1",
		"step": "do_auth",
		"type": "pin",
		"name": "Front Door",
		"hint": "blue",
		"has_first_attempt": false,
		"has_repeat_attempt": false
	}`, string(data))
	assert.NotContains(t, string(data), "1234")

	var back enrollment.State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, st, back)
}

func TestStep_UnmarshalUnknown(t *testing.T) {
	var s enrollment.Step
	assert.Error(t, s.UnmarshalText([]byte("teleport")))
	var m enrollment.Mode
	assert.Error(t, m.UnmarshalText([]byte("clone")))
}
