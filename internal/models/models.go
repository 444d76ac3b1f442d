// Package models defines the core data structures for enrolled
// authentication entries and match results.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEntryNotFound is returned by entry stores when no live entry has the requested id.
var ErrEntryNotFound = errors.New("entry not found")

// MethodType identifies the kind of authentication method an entry was enrolled with.
type MethodType string

const (
	// TapRhythm is a rhythm of taps compared by inter-tap intervals.
	TapRhythm MethodType = "tap_jingle"
	// Pin is a string secret entered as text.
	Pin MethodType = "pin"
	// Fingerprint delegates the decision to the platform biometric prompt.
	Fingerprint MethodType = "fingerprint"
	// FlipPattern is a sequence of phone orientation changes.
	FlipPattern MethodType = "flip_pattern"
)

// MethodTypes lists every supported method type in display order.
var MethodTypes = []MethodType{TapRhythm, Pin, Fingerprint, FlipPattern}

// ParseMethodType converts a stored or user-supplied id into a MethodType.
func ParseMethodType(s string) (MethodType, error) {
	for _, t := range MethodTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown method type %q", s)
}

const (
	// FingerprintEnabled is the payload stored for fingerprint entries.
	// Biometric material is never stored.
	FingerprintEnabled = "enabled"
	// BiometricSuccess is the capture payload delivered when the platform
	// prompt accepted the user.
	BiometricSuccess = "success"
)

// AuthEntry is a persisted, enrolled authentication method.
type AuthEntry struct {
	// ID is assigned by the store on creation.
	ID string `json:"id"`
	// Name is the user-chosen label.
	Name string `json:"name"`
	// Type selects the matcher used for this entry.
	Type MethodType `json:"type"`
	// Payload is the type-specific template. It is never serialized to clients.
	Payload string `json:"-"`
	// Hint is optional free text shown on the authentication screen.
	Hint      string    `json:"hint"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome is the tri-state result of a match.
type Outcome int8

const (
	// Rejected means the attempt does not match the template.
	Rejected Outcome = iota
	// Matched means the attempt matches the template.
	Matched
	// Unknown means no decision is possible from payloads alone (biometric).
	Unknown
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Unknown:
		return "unknown"
	default:
		return "rejected"
	}
}

// MarshalText encodes the outcome as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// MatchResult carries a match outcome and a human-readable reason.
type MatchResult struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// Matched reports whether the outcome is a positive match.
func (r MatchResult) Matched() bool {
	return r.Outcome == Matched
}

// Match builds a positive result.
func Match(reason string) MatchResult {
	return MatchResult{Outcome: Matched, Reason: reason}
}

// Reject builds a negative result.
func Reject(format string, args ...any) MatchResult {
	return MatchResult{Outcome: Rejected, Reason: fmt.Sprintf(format, args...)}
}
