package assessment

import (
	"context"
	"fmt"
	"sync"
)

// HourRange is an inclusive hour-of-day window. Start > End means the
// window wraps midnight (e.g. 22-06).
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether hour falls inside the window.
func (r HourRange) Contains(hour int) bool {
	if r.Start <= r.End {
		return hour >= r.Start && hour <= r.End
	}
	return hour >= r.Start || hour <= r.End
}

// Constraints are user-defined hard limits evaluated before any risk
// scoring. A violation short-circuits to a block and is never treated as
// training data.
type Constraints struct {
	MaxAmount        *float64   `json:"max_amount,omitempty"`
	AllowedLocations []string   `json:"allowed_locations,omitempty"`
	AllowedHours     *HourRange `json:"allowed_hours,omitempty"`
	// BlockUnknownLocations additionally blocks transactions that carry
	// no location at all; a non-empty AllowedLocations list is always
	// enforced against transactions that do carry one.
	BlockUnknownLocations bool `json:"block_unknown_locations,omitempty"`
}

// Violation returns the first violated constraint as a human-readable
// string, or "" when the request passes.
func (c *Constraints) Violation(req Request) string {
	if c == nil {
		return ""
	}

	if c.MaxAmount != nil && req.Amount > *c.MaxAmount {
		return fmt.Sprintf("amount %.2f exceeds the configured maximum %.2f", req.Amount, *c.MaxAmount)
	}

	if c.AllowedHours != nil && !c.AllowedHours.Contains(req.HourOfDay) {
		return fmt.Sprintf("hour %d:00 is outside the allowed window %d:00-%d:00",
			req.HourOfDay, c.AllowedHours.Start, c.AllowedHours.End)
	}

	if len(c.AllowedLocations) > 0 {
		if req.Location == "" {
			if c.BlockUnknownLocations {
				return "transaction location is unknown and unknown locations are blocked"
			}
		} else {
			allowed := false
			for _, loc := range c.AllowedLocations {
				if loc == req.Location {
					allowed = true
					break
				}
			}
			if !allowed {
				return fmt.Sprintf("location %q is not in the allowed list", req.Location)
			}
		}
	} else if c.BlockUnknownLocations && req.Location == "" {
		return "transaction location is unknown and unknown locations are blocked"
	}

	return ""
}

// ConstraintStore persists per-user policy constraints.
type ConstraintStore interface {
	Get(ctx context.Context, userID string) (*Constraints, error)
	Set(ctx context.Context, userID string, c *Constraints) error
}

// memoryConstraintStore is the in-process ConstraintStore.
type memoryConstraintStore struct {
	mu          sync.RWMutex
	constraints map[string]*Constraints
}

// NewMemoryConstraintStore creates an in-memory constraint store.
func NewMemoryConstraintStore() ConstraintStore {
	return &memoryConstraintStore{constraints: make(map[string]*Constraints)}
}

func (s *memoryConstraintStore) Get(_ context.Context, userID string) (*Constraints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.constraints[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memoryConstraintStore) Set(_ context.Context, userID string, c *Constraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		delete(s.constraints, userID)
		return nil
	}
	cp := *c
	s.constraints[userID] = &cp
	return nil
}
