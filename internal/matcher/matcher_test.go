package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/accessgate/internal/models"
)

func TestTapRhythm(t *testing.T) {
	tests := []struct {
		name     string
		enrolled string
		attempt  string
		want     bool
	}{
		{"identical", "300,500", "300,500", true},
		{"uniformly slower by ten percent", "300,500", "330,550", true},
		{"uniformly twice as slow keeps the shape", "300,500", "600,1000", true},
		{"uniformly faster", "400,200,400", "300,150,300", true},
		{"shape swapped", "300,500", "500,300", false},
		{"length mismatch", "300,500", "300", false},
		{"empty attempt", "300,500", "", false},
		{"empty template", "", "300", false},
		{"zero mean template", "0,0", "0,0", false},
		{"within ceiling", "1000,1000,1000", "1100,1000,900", true},
		{"beyond ceiling", "1000,1000,1000", "1150,1000,850", false},
		{"within floor", "100,100", "135,65", true},
		{"beyond floor", "100,100", "145,55", false},
		{"malformed attempt", "300,500", "300,abc", false},
		{"negative interval", "300,500", "-300,500", false},
		{"whitespace tolerated", " 300 , 500 ", "300,500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := TapRhythm(tt.enrolled, tt.attempt)
			assert.Equal(t, tt.want, res.Matched(), "reason: %s", res.Reason)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestTapRhythm_ScaleInvariance(t *testing.T) {
	enrolled := []int64{220, 480, 310, 650}
	for _, k := range []float64{0.8, 0.9, 1, 1.25, 1.5} {
		attempt := make([]int64, len(enrolled))
		for i, v := range enrolled {
			attempt[i] = int64(float64(v) * k)
		}
		res := TapRhythm(EncodeIntervals(enrolled), EncodeIntervals(attempt))
		assert.True(t, res.Matched(), "k=%v: %s", k, res.Reason)
	}
}

func TestPin(t *testing.T) {
	assert.True(t, Pin("1234", "1234").Matched())
	assert.True(t, Pin("1234", "1234 ").Matched())
	assert.True(t, Pin(" 0042", "0042").Matched())
	assert.False(t, Pin("1234", "1235").Matched())
	assert.False(t, Pin("0042", "42").Matched())
}

func TestFlipPattern(t *testing.T) {
	assert.True(t, FlipPattern("UP,LEFT", "UP,LEFT").Matched())
	assert.True(t, FlipPattern("UP,LEFT", " UP , LEFT ,").Matched())
	assert.False(t, FlipPattern("UP,LEFT", "LEFT,UP").Matched())
	assert.False(t, FlipPattern("UP,LEFT", "UP").Matched())
	assert.False(t, FlipPattern("UP,LEFT", "UP,LEFT,DOWN").Matched())
	assert.False(t, FlipPattern("", "").Matched())
}

func TestFingerprint_AlwaysUnknown(t *testing.T) {
	res := Fingerprint(models.FingerprintEnabled, models.BiometricSuccess)
	assert.Equal(t, models.Unknown, res.Outcome)
	assert.False(t, res.Matched())
}

func TestDecodeIntervals(t *testing.T) {
	got, err := DecodeIntervals("10, 20,30")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, got)

	got, err = DecodeIntervals("   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodeIntervals("10,,30")
	assert.Error(t, err)
}

func TestDecodeTokens(t *testing.T) {
	assert.Equal(t, []string{"UP", "FACE_DOWN"}, DecodeTokens(" UP,,FACE_DOWN, "))
	assert.Empty(t, DecodeTokens(""))
}
