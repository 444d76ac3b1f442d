// Package service provides the authentication coordinator and entry
// management, delegating persistence to an EntryRepository.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/capture"
	"github.com/atinyakov/accessgate/internal/matcher"
	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/models"
)

// Result messages shown to the user.
const (
	MsgSuccess     = "Authentication success"
	MsgFailed      = "Authentication failed"
	MsgNotFound    = "Entry not found"
	MsgWrongMethod = "Wrong method for this entry"
)

// EntryGetter loads a single entry.
type EntryGetter interface {
	// GetByID returns models.ErrEntryNotFound when the entry is absent.
	GetByID(ctx context.Context, id string) (*models.AuthEntry, error)
}

// Result is the outcome of one authentication attempt.
type Result struct {
	models.MatchResult
	// Message is the human-readable outcome.
	Message string `json:"message"`
}

// AuthService authenticates live attempts against stored entries.
// It keeps no state between calls and applies no lockout.
type AuthService struct {
	repo     EntryGetter
	registry *method.Registry
	log      *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo EntryGetter, reg *method.Registry, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{repo: repo, registry: reg, log: log}
}

// Authenticate checks attempt against the entry with the given id using the
// matcher for t. Lookup failures and mismatches are reported in the Result;
// the error is only set when the repository fails.
func (s *AuthService) Authenticate(ctx context.Context, entryID string, t models.MethodType, attempt string) (Result, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if errors.Is(err, models.ErrEntryNotFound) {
		return failed(MsgNotFound, "entry not found"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load entry %s: %w", entryID, err)
	}
	if entry.Type != t {
		return failed(MsgWrongMethod, fmt.Sprintf("entry uses %s, attempt used %s", entry.Type, t)), nil
	}
	desc, ok := s.registry.Lookup(entry.Type)
	if !ok {
		return failed(MsgWrongMethod, fmt.Sprintf("unsupported method %q", entry.Type)), nil
	}

	res := desc.Match(entry.Payload, attempt)
	if res.Outcome == models.Unknown {
		// The platform prompt is the only signal for biometric entries.
		switch {
		case attempt == models.BiometricSuccess:
			res = models.Match("platform accepted the biometric")
		case strings.TrimSpace(attempt) == "":
			res = models.Reject("platform did not confirm")
		default:
			res = models.Reject("%s", attempt)
		}
	}

	out := Result{MatchResult: res, Message: MsgSuccess}
	if !res.Matched() {
		out.Message = MsgFailed
		if entry.Type == models.Fingerprint && strings.TrimSpace(attempt) != "" {
			out.Message = attempt
		}
	}
	s.log.Info("authentication attempt",
		zap.String("entry_id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.Stringer("outcome", res.Outcome),
	)
	return out, nil
}

// AuthenticateTap authenticates a tap rhythm given as inter-tap intervals.
func (s *AuthService) AuthenticateTap(ctx context.Context, entryID string, intervals []int64) (Result, error) {
	if len(intervals) == 0 {
		return failed("Not enough taps", "empty rhythm"), nil
	}
	return s.Authenticate(ctx, entryID, models.TapRhythm, matcher.EncodeIntervals(intervals))
}

// AuthenticatePin authenticates a PIN.
func (s *AuthService) AuthenticatePin(ctx context.Context, entryID, pin string) (Result, error) {
	return s.Authenticate(ctx, entryID, models.Pin, pin)
}

// AuthenticateFlip authenticates a flip pattern given as direction tokens.
func (s *AuthService) AuthenticateFlip(ctx context.Context, entryID string, tokens []string) (Result, error) {
	return s.Authenticate(ctx, entryID, models.FlipPattern, matcher.EncodeTokens(tokens))
}

// AuthenticateBiometric reports the platform prompt outcome for a fingerprint entry.
func (s *AuthService) AuthenticateBiometric(ctx context.Context, entryID string, b capture.Biometric) (Result, error) {
	return s.Authenticate(ctx, entryID, models.Fingerprint, b.Payload())
}

func failed(message, reason string) Result {
	return Result{
		MatchResult: models.MatchResult{Outcome: models.Rejected, Reason: reason},
		Message:     message,
	}
}
