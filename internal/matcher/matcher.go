// Package matcher compares an enrolled template payload against a live
// attempt payload for each authentication method type.
//
// Matchers are pure functions. A failed comparison is reported as a
// models.MatchResult with a reason, never as an error.
package matcher

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/atinyakov/accessgate/internal/models"
)

// Func compares an enrolled payload with an attempt payload.
type Func func(enrolled, attempt string) models.MatchResult

const (
	// relativeTolerance is the per-interval tolerance as a share of the expected interval.
	relativeTolerance = 0.18
	// minToleranceMs and maxToleranceMs clamp the per-interval tolerance.
	minToleranceMs = 40.0
	maxToleranceMs = 140.0
)

// TapRhythm compares two comma-joined interval sequences. The attempt is
// normalised by the ratio of the mean intervals so a rhythm replayed
// uniformly faster or slower still matches, while each interval must land
// within a clamped tolerance band around its scaled expectation.
func TapRhythm(enrolled, attempt string) models.MatchResult {
	e, err := DecodeIntervals(enrolled)
	if err != nil {
		return models.Reject("malformed template: %v", err)
	}
	a, err := DecodeIntervals(attempt)
	if err != nil {
		return models.Reject("malformed attempt: %v", err)
	}
	return Intervals(e, a)
}

// Intervals is TapRhythm over already decoded sequences.
func Intervals(enrolled, attempt []int64) models.MatchResult {
	if len(enrolled) == 0 || len(attempt) == 0 {
		return models.Reject("empty rhythm")
	}
	if len(enrolled) != len(attempt) {
		return models.Reject("tap count differs: expected %d intervals, got %d", len(enrolled), len(attempt))
	}

	enrolledMean := mean(enrolled)
	if enrolledMean == 0 {
		return models.Reject("template has zero mean interval")
	}
	scale := mean(attempt) / enrolledMean

	for i, v := range enrolled {
		expected := float64(v) * scale
		tol := math.Min(math.Max(expected*relativeTolerance, minToleranceMs), maxToleranceMs)
		if diff := math.Abs(float64(attempt[i]) - expected); diff > tol {
			return models.Reject("interval %d off by %.0fms (tolerance %.0fms)", i+1, diff, tol)
		}
	}
	return models.Match("rhythm matches")
}

// Pin compares two PINs for exact equality after trimming surrounding whitespace.
func Pin(enrolled, attempt string) models.MatchResult {
	if strings.TrimSpace(enrolled) != strings.TrimSpace(attempt) {
		return models.Reject("PIN does not match")
	}
	return models.Match("PIN matches")
}

// FlipPattern compares two direction token sequences element by element.
func FlipPattern(enrolled, attempt string) models.MatchResult {
	e := DecodeTokens(enrolled)
	a := DecodeTokens(attempt)
	if len(e) == 0 {
		return models.Reject("empty template pattern")
	}
	if len(e) != len(a) {
		return models.Reject("pattern length differs: expected %d moves, got %d", len(e), len(a))
	}
	for i := range e {
		if e[i] != a[i] {
			return models.Reject("move %d differs", i+1)
		}
	}
	return models.Match("pattern matches")
}

// Fingerprint never decides. The template is a sentinel and the platform
// prompt is the only source of truth.
func Fingerprint(string, string) models.MatchResult {
	return models.MatchResult{
		Outcome: models.Unknown,
		Reason:  "decided by the platform biometric prompt",
	}
}

// DecodeIntervals parses a comma-joined list of non-negative millisecond intervals.
// Blank input decodes to an empty sequence.
func DecodeIntervals(payload string) ([]int64, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}
	parts := strings.Split(payload, ",")
	out := make([]int64, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i+1, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("interval %d is negative", i+1)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeIntervals joins intervals with commas.
func EncodeIntervals(intervals []int64) string {
	parts := make([]string, len(intervals))
	for i, v := range intervals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// DecodeTokens splits a comma-joined token list, trimming and dropping empties.
func DecodeTokens(payload string) []string {
	var out []string
	for _, p := range strings.Split(payload, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncodeTokens joins tokens with commas.
func EncodeTokens(tokens []string) string {
	return strings.Join(tokens, ",")
}

func mean(xs []int64) float64 {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}
