package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/clock"
	"github.com/atinyakov/accessgate/internal/enrollment"
)

type wizard struct {
	mu       sync.Mutex
	machine  *enrollment.Machine
	lastUsed time.Time
}

// Sessions keeps one enrollment Machine per wizard id. Calls on the same
// wizard are serialised; different wizards proceed in parallel.
type Sessions struct {
	mu         sync.Mutex
	byID       map[string]*wizard
	newMachine func() *enrollment.Machine
	clock      clock.Clock
	ttl        time.Duration
}

// NewSessions creates an empty registry. newMachine builds the Machine for
// every opened wizard; ttl is the idle lifetime enforced by Expire.
func NewSessions(newMachine func() *enrollment.Machine, clk clock.Clock, ttl time.Duration) *Sessions {
	if clk == nil {
		clk = clock.System{}
	}
	return &Sessions{
		byID:       make(map[string]*wizard),
		newMachine: newMachine,
		clock:      clk,
		ttl:        ttl,
	}
}

// Open registers a new wizard and returns its id.
func (s *Sessions) Open() string {
	id := uuid.NewString()
	w := &wizard{machine: s.newMachine()}

	s.mu.Lock()
	w.lastUsed = s.clock.Now()
	s.byID[id] = w
	s.mu.Unlock()
	return id
}

// With runs fn on the wizard's machine while holding its lock.
// It reports false when the id is unknown.
func (s *Sessions) With(id string, fn func(m *enrollment.Machine)) bool {
	s.mu.Lock()
	w, ok := s.byID[id]
	if ok {
		w.lastUsed = s.clock.Now()
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.machine)
	return true
}

// Close forgets the wizard. It reports false when the id is unknown.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	delete(s.byID, id)
	return ok
}

// Len returns the number of open wizards.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Expire drops wizards idle for longer than the ttl and returns how many were dropped.
func (s *Sessions) Expire() int {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, w := range s.byID {
		if w.lastUsed.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n
}

// StartJanitor calls Expire every interval until ctx is done.
func (s *Sessions) StartJanitor(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Expire(); n > 0 {
					log.Info("expired idle enrollment sessions", zap.Int("removed", n))
				}
			}
		}
	}()
}
