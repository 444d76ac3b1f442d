// Package capture turns discrete input samples into the canonical payload
// strings consumed by the enrollment wizard and the authentication service.
//
// Sensor listeners and platform prompts live outside this package; it only
// receives finished samples.
package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/accessgate/internal/matcher"
	"github.com/atinyakov/accessgate/internal/models"
)

// ErrNotEnoughTaps is returned when fewer than two tap timestamps were recorded.
var ErrNotEnoughTaps = errors.New("not enough taps (need at least 2 taps)")

// TapIntervals converts tap timestamps in milliseconds into inter-tap intervals.
func TapIntervals(timestamps []int64) ([]int64, error) {
	if len(timestamps) < 2 {
		return nil, ErrNotEnoughTaps
	}
	out := make([]int64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		d := timestamps[i] - timestamps[i-1]
		if d < 0 {
			return nil, fmt.Errorf("tap %d is earlier than tap %d", i+1, i)
		}
		out = append(out, d)
	}
	return out, nil
}

// Biometric is the outcome of a platform biometric prompt.
type Biometric struct {
	OK bool `json:"ok"`
	// Message is the platform's explanation when OK is false.
	Message string `json:"message,omitempty"`
}

// Payload returns the capture payload for the biometric outcome.
func (b Biometric) Payload() string {
	if b.OK {
		return models.BiometricSuccess
	}
	if msg := strings.TrimSpace(b.Message); msg != "" && msg != models.BiometricSuccess {
		return msg
	}
	return "Not recognized. Try again."
}

// Input is a finished capture as delivered by a host. Exactly one of the
// fields is expected to be set, matching the method type.
type Input struct {
	// Payload is an already encoded payload (PIN text, intervals, tokens).
	Payload string `json:"payload,omitempty"`
	// Timestamps are raw tap times in milliseconds.
	Timestamps []int64 `json:"timestamps,omitempty"`
	// Intervals are inter-tap intervals in milliseconds.
	Intervals []int64 `json:"intervals,omitempty"`
	// Tokens are flip direction tokens.
	Tokens []string `json:"tokens,omitempty"`
	// Biometric is the platform prompt outcome.
	Biometric *Biometric `json:"biometric,omitempty"`
}

// Encode converts the input into the payload string for the given method type.
func (in Input) Encode(t models.MethodType) (string, error) {
	switch t {
	case models.TapRhythm:
		switch {
		case len(in.Timestamps) > 0:
			intervals, err := TapIntervals(in.Timestamps)
			if err != nil {
				return "", err
			}
			return matcher.EncodeIntervals(intervals), nil
		case len(in.Intervals) > 0:
			return matcher.EncodeIntervals(in.Intervals), nil
		}
		return in.Payload, nil
	case models.FlipPattern:
		if len(in.Tokens) > 0 {
			tokens := make([]string, 0, len(in.Tokens))
			for _, tok := range in.Tokens {
				d, err := ParseDirection(tok)
				if err != nil {
					return "", err
				}
				tokens = append(tokens, string(d))
			}
			return matcher.EncodeTokens(tokens), nil
		}
		return in.Payload, nil
	case models.Fingerprint:
		if in.Biometric != nil {
			return in.Biometric.Payload(), nil
		}
		return in.Payload, nil
	case models.Pin:
		return in.Payload, nil
	}
	return "", fmt.Errorf("unknown method type %q", t)
}
