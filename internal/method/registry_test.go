package method

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/accessgate/internal/matcher"
	"github.com/atinyakov/accessgate/internal/models"
)

func TestDefault_CoversEveryMethodType(t *testing.T) {
	reg := Default()
	all := reg.All()
	require.Len(t, all, len(models.MethodTypes))
	for i, typ := range models.MethodTypes {
		assert.Equal(t, typ, all[i].Type)
		d, ok := reg.Lookup(typ)
		require.True(t, ok)
		assert.NotEmpty(t, d.DisplayName)
	}
	_, ok := reg.Lookup("retina")
	assert.False(t, ok)
}

func TestNew_RejectsIncompleteAndDuplicate(t *testing.T) {
	_, err := New(Descriptor{Type: models.Pin})
	assert.Error(t, err)

	d, _ := Default().Lookup(models.Pin)
	_, err = New(d, d)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	reg := Default()
	tests := []struct {
		typ     models.MethodType
		payload string
		ok      bool
	}{
		{models.TapRhythm, "300", true},
		{models.TapRhythm, "", false},
		{models.TapRhythm, "300,x", false},
		{models.Pin, "1234", true},
		{models.Pin, " 123 ", false},
		{models.Pin, "  12345 ", true},
		{models.FlipPattern, "UP", true},
		{models.FlipPattern, " , ", false},
		{models.Fingerprint, models.BiometricSuccess, true},
		{models.Fingerprint, "Not recognized. Try again.", false},
		{models.Fingerprint, "", false},
	}
	for _, tt := range tests {
		d, _ := reg.Lookup(tt.typ)
		err := d.Validate(tt.payload)
		if tt.ok {
			assert.NoError(t, err, "%s %q", tt.typ, tt.payload)
		} else {
			assert.Error(t, err, "%s %q", tt.typ, tt.payload)
		}
	}
}

func TestFingerprintFailureCarriesPlatformMessage(t *testing.T) {
	d, _ := Default().Lookup(models.Fingerprint)
	err := d.Validate("Too many attempts. Try again later.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many attempts")
}

func TestConfirm(t *testing.T) {
	reg := Default()
	fp, _ := reg.Lookup(models.Fingerprint)
	assert.True(t, fp.Confirm(models.BiometricSuccess, models.BiometricSuccess).Matched())
	assert.False(t, fp.Confirm(models.BiometricSuccess, "cancelled").Matched())

	tap, _ := reg.Lookup(models.TapRhythm)
	assert.True(t, tap.Confirm("300,500", "320,540").Matched())
}

func TestCanonical(t *testing.T) {
	reg := Default()
	tap, _ := reg.Lookup(models.TapRhythm)
	assert.Equal(t, "300,500", tap.Canonical(" 300, 500"))

	pin, _ := reg.Lookup(models.Pin)
	assert.Equal(t, "1234", pin.Canonical(" 1234\n"))

	flip, _ := reg.Lookup(models.FlipPattern)
	assert.Equal(t, "UP,LEFT", flip.Canonical("UP, ,LEFT"))
	assert.Equal(t, []string{"UP", "LEFT"}, matcher.DecodeTokens(flip.Canonical("UP,LEFT")))

	fp, _ := reg.Lookup(models.Fingerprint)
	assert.Equal(t, models.FingerprintEnabled, fp.Canonical(models.BiometricSuccess))
}
