// Package method holds the static catalog of authentication method types.
//
// Each descriptor binds a models.MethodType to its display name, the
// capture validator used by the enrollment wizard, the matcher used for
// live authentication, and the canonical payload encoding used on save.
// Adding a method type means adding one descriptor here.
package method

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/accessgate/internal/matcher"
	"github.com/atinyakov/accessgate/internal/models"
)

// MinPinLength is the minimum number of characters in a trimmed PIN.
const MinPinLength = 4

// Descriptor describes one authentication method type.
type Descriptor struct {
	// Type is the stable identifier stored with each entry.
	Type models.MethodType `json:"id"`
	// DisplayName is the human-readable label.
	DisplayName string `json:"display_name"`

	// Validate reports whether a capture payload is acceptable for enrollment.
	Validate func(payload string) error `json:"-"`
	// Match compares an enrolled template with a live attempt.
	Match matcher.Func `json:"-"`
	// Confirm compares the first and repeat enrollment captures.
	Confirm matcher.Func `json:"-"`
	// Canonical converts a validated capture into the stored template.
	Canonical func(payload string) string `json:"-"`
}

// Registry maps method types to descriptors.
type Registry struct {
	order []models.MethodType
	byID  map[models.MethodType]Descriptor
}

// New builds a registry from descriptors, keeping their order.
func New(descs ...Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[models.MethodType]Descriptor, len(descs))}
	for _, d := range descs {
		if d.Validate == nil || d.Match == nil || d.Confirm == nil || d.Canonical == nil {
			return nil, fmt.Errorf("descriptor %q is incomplete", d.Type)
		}
		if _, dup := r.byID[d.Type]; dup {
			return nil, fmt.Errorf("descriptor %q registered twice", d.Type)
		}
		r.order = append(r.order, d.Type)
		r.byID[d.Type] = d
	}
	return r, nil
}

// Default returns the registry of the four built-in method types.
func Default() *Registry {
	r, err := New(
		Descriptor{
			Type:        models.TapRhythm,
			DisplayName: "Tap Jingle",
			Validate:    validateTap,
			Match:       matcher.TapRhythm,
			Confirm:     matcher.TapRhythm,
			Canonical:   canonicalTap,
		},
		Descriptor{
			Type:        models.Pin,
			DisplayName: "PIN",
			Validate:    validatePin,
			Match:       matcher.Pin,
			Confirm:     matcher.Pin,
			Canonical:   strings.TrimSpace,
		},
		Descriptor{
			Type:        models.Fingerprint,
			DisplayName: "Fingerprint",
			Validate:    validateBiometric,
			Match:       matcher.Fingerprint,
			Confirm:     confirmBiometric,
			Canonical:   func(string) string { return models.FingerprintEnabled },
		},
		Descriptor{
			Type:        models.FlipPattern,
			DisplayName: "Flip Pattern",
			Validate:    validateFlip,
			Match:       matcher.FlipPattern,
			Confirm:     matcher.FlipPattern,
			Canonical:   func(p string) string { return matcher.EncodeTokens(matcher.DecodeTokens(p)) },
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for a method type.
func (r *Registry) Lookup(t models.MethodType) (Descriptor, bool) {
	d, ok := r.byID[t]
	return d, ok
}

// All returns every descriptor in display order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byID[t])
	}
	return out
}

func validateTap(payload string) error {
	intervals, err := matcher.DecodeIntervals(payload)
	if err != nil {
		return fmt.Errorf("invalid tap rhythm: %w", err)
	}
	if len(intervals) == 0 {
		return errors.New("not enough taps (need at least 2 taps)")
	}
	return nil
}

func canonicalTap(payload string) string {
	intervals, _ := matcher.DecodeIntervals(payload)
	return matcher.EncodeIntervals(intervals)
}

func validatePin(payload string) error {
	if utf8.RuneCountInString(strings.TrimSpace(payload)) < MinPinLength {
		return fmt.Errorf("PIN too short (need at least %d characters)", MinPinLength)
	}
	return nil
}

func validateFlip(payload string) error {
	if len(matcher.DecodeTokens(payload)) == 0 {
		return errors.New("no movement recorded")
	}
	return nil
}

func validateBiometric(payload string) error {
	if payload == models.BiometricSuccess {
		return nil
	}
	if msg := strings.TrimSpace(payload); msg != "" {
		return fmt.Errorf("biometric check failed: %s", msg)
	}
	return errors.New("biometric check failed")
}

// confirmBiometric accepts a second platform success. There is no payload
// to compare.
func confirmBiometric(first, repeat string) models.MatchResult {
	if first == models.BiometricSuccess && repeat == models.BiometricSuccess {
		return models.Match("platform confirmed twice")
	}
	return models.Reject("platform did not confirm")
}
