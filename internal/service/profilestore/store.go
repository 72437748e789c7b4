package profilestore

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
)

// lockStripes bounds the number of per-user mutexes. Two users may share
// a stripe; that only costs contention, never correctness.
const lockStripes = 64

// Invalidator is notified after every profile mutation so derived views
// (e.g. the Redis summary cache) can drop stale entries. Invalidation is
// best-effort; failures must not fail the mutation.
type Invalidator interface {
	InvalidateSummary(ctx context.Context, userID string)
}

// Store owns all user profile state: an in-memory cache in front of a
// durable repository, with per-user mutual exclusion so concurrent
// read-modify-write cycles for the same user serialize. Store is an
// explicit object passed to its callers; there is no package-level
// instance.
type Store struct {
	repo        profile.Repository
	logger      *zap.Logger
	invalidator Invalidator

	stripes [lockStripes]sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]*profile.UserProfile
}

// Option configures a Store.
type Option func(*Store)

// WithInvalidator attaches a summary-cache invalidator.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Store) { s.invalidator = inv }
}

// New creates a profile store backed by repo.
func New(repo profile.Repository, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		repo:   repo,
		logger: logger,
		cache:  make(map[string]*profile.UserProfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stripe(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.stripes[h.Sum32()%lockStripes]
}

// Get returns a copy of the user's profile, or nil when none exists.
// Absence is a valid outcome, not an error.
func (s *Store) Get(ctx context.Context, userID string) (*profile.UserProfile, error) {
	s.cacheMu.RLock()
	if p, ok := s.cache[userID]; ok {
		s.cacheMu.RUnlock()
		return p.Clone(), nil
	}
	s.cacheMu.RUnlock()

	// Fill the cache under the user's stripe so a repository read from
	// before a concurrent update can never overwrite the updated entry.
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return p.Clone(), nil
}

// Create initializes a new profile with the given consent flag and
// default baseline statistics.
func (s *Store) Create(ctx context.Context, userID string, learningEnabled bool) (*profile.UserProfile, error) {
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	p := profile.New(userID, learningEnabled)
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// UpdateWithTransaction records one transaction against the profile.
// A missing profile or disabled consent is a silent no-op. The hour
// histogram and transaction count always advance; the amount statistics
// advance only when updateBaseline is true. The whole update persists
// atomically or not at all.
func (s *Store) UpdateWithTransaction(ctx context.Context, userID string, amount float64, hour int, updateBaseline bool) error {
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil || !p.LearningEnabled {
		// No learning without consent.
		return nil
	}

	updated := p.Clone()
	if err := updated.ApplyTransaction(amount, hour, updateBaseline); err != nil {
		return err
	}
	if err := s.persist(ctx, updated); err != nil {
		return err
	}

	s.logger.Debug("profile updated with transaction",
		zap.String("user_id", userID),
		zap.Bool("baseline", updateBaseline),
		zap.Int("amount_count", updated.AmountCount),
		zap.Int("transaction_count", updated.TransactionCount))
	return nil
}

// AddTrustedLocation adds a trusted location by name. Idempotent.
// Returns false when no profile exists.
func (s *Store) AddTrustedLocation(ctx context.Context, userID, name string) (bool, error) {
	return s.mutate(ctx, userID, func(p *profile.UserProfile) {
		p.AddTrustedLocation(name)
	})
}

// RemoveTrustedLocation removes a trusted location by name. Idempotent.
// Returns false when no profile exists.
func (s *Store) RemoveTrustedLocation(ctx context.Context, userID, name string) (bool, error) {
	return s.mutate(ctx, userID, func(p *profile.UserProfile) {
		p.RemoveTrustedLocation(name)
	})
}

// Reset replaces the profile with fresh defaults, preserving the user id
// and the current consent flag. Returns false when no profile exists.
func (s *Store) Reset(ctx context.Context, userID string) (bool, error) {
	return s.mutate(ctx, userID, func(p *profile.UserProfile) {
		p.Reset()
	})
}

// SetLearningEnabled toggles the consent flag, creating the profile if
// absent. Statistics are never touched by a consent toggle.
func (s *Store) SetLearningEnabled(ctx context.Context, userID string, enabled bool) error {
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return s.persist(ctx, profile.New(userID, enabled))
	}
	updated := p.Clone()
	updated.LearningEnabled = enabled
	return s.persist(ctx, updated)
}

// Delete fully removes the profile. Returns false when none existed.
func (s *Store) Delete(ctx context.Context, userID string) (bool, error) {
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	s.cacheMu.Lock()
	delete(s.cache, userID)
	s.cacheMu.Unlock()

	existed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return false, errors.NewStorageError("failed to delete profile").WithCause(err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(ctx, userID)
	}
	return existed, nil
}

// Summarize returns the human-readable profile summary, or nil when no
// profile exists.
func (s *Store) Summarize(ctx context.Context, userID string) (*profile.Summary, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return p.Summarize(), nil
}

// load reads through the cache without copying. Callers must hold the
// user's stripe and must not mutate the returned profile.
func (s *Store) load(ctx context.Context, userID string) (*profile.UserProfile, error) {
	s.cacheMu.RLock()
	p, ok := s.cache[userID]
	s.cacheMu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, errors.NewStorageError("failed to load profile").WithCause(err)
	}
	if p == nil {
		return nil, nil
	}
	s.cacheMu.Lock()
	s.cache[userID] = p
	s.cacheMu.Unlock()
	return p, nil
}

// persist saves to the repository first and installs into the cache only
// on success, so a storage failure leaves no partial state behind.
func (s *Store) persist(ctx context.Context, p *profile.UserProfile) error {
	if err := s.repo.Save(ctx, p); err != nil {
		return errors.NewStorageError("failed to save profile").WithCause(err)
	}
	s.cacheMu.Lock()
	s.cache[p.UserID] = p
	s.cacheMu.Unlock()
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(ctx, p.UserID)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, userID string, fn func(*profile.UserProfile)) (bool, error) {
	mu := s.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	updated := p.Clone()
	fn(updated)
	if err := s.persist(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}
