package profile

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

// Default baseline statistics used until real data arrives. A fresh
// profile scores new transactions against these rather than against an
// empty distribution.
const (
	DefaultAmountMean = 5000.0
	DefaultAmountStd  = 2000.0
)

// HoursPerDay is the fixed size of the hour-of-day histogram.
const HoursPerDay = 24

// TrustedLocation is a user-curated location identifier. Insertion order
// carries no meaning beyond the added timestamp.
type TrustedLocation struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// UserProfile is the minimal behavioral summary kept per user. Only
// aggregated statistics are stored, never raw transaction data, and no
// field is mutated unless LearningEnabled is true (consent).
type UserProfile struct {
	UserID          string `json:"user_id"`
	LearningEnabled bool   `json:"learning_enabled"`

	// Running statistics over baseline-eligible transaction amounts.
	AmountMean  float64 `json:"amount_mean"`
	AmountStd   float64 `json:"amount_std"`
	AmountCount int     `json:"amount_count"`

	// Per-hour transaction counts, updated on every recorded
	// transaction regardless of baseline eligibility.
	HourHistogram [HoursPerDay]int `json:"hour_histogram"`

	// Total transactions observed; always >= AmountCount.
	TransactionCount int `json:"transaction_count"`

	TrustedLocations []TrustedLocation `json:"trusted_locations"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a profile with default baseline statistics and an explicit
// consent flag.
func New(userID string, learningEnabled bool) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID:          userID,
		LearningEnabled: learningEnabled,
		AmountMean:      DefaultAmountMean,
		AmountStd:       DefaultAmountStd,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyTransaction folds one transaction into the profile. The hour
// histogram and total count always advance; the amount statistics advance
// only when updateBaseline is true, using a single-pass streaming update
// so no raw samples are ever retained.
func (p *UserProfile) ApplyTransaction(amount float64, hour int, updateBaseline bool) error {
	if amount <= 0 {
		return errors.NewValidationError("INVALID_AMOUNT", "transaction amount must be positive")
	}
	if hour < 0 || hour >= HoursPerDay {
		return errors.NewValidationError("INVALID_HOUR", "hour of day must be in [0, 23]")
	}

	if updateBaseline {
		p.AmountCount++
		n := float64(p.AmountCount)

		if p.AmountCount == 1 {
			p.AmountMean = amount
			p.AmountStd = 0
		} else {
			oldMean := p.AmountMean
			p.AmountMean = oldMean + (amount-oldMean)/n
			variance := ((n-2)/(n-1))*p.AmountStd*p.AmountStd + (amount-oldMean)*(amount-oldMean)/n
			p.AmountStd = math.Sqrt(math.Max(0, variance))
		}
	}

	p.HourHistogram[hour]++
	p.TransactionCount++
	p.UpdatedAt = time.Now()
	return nil
}

// ZScore returns |amount - mean| / std, or 0 when no variance has been
// established yet.
func (p *UserProfile) ZScore(amount float64) float64 {
	if p.AmountStd == 0 {
		return 0
	}
	return math.Abs(amount-p.AmountMean) / p.AmountStd
}

// AddTrustedLocation adds a location by name. Idempotent.
func (p *UserProfile) AddTrustedLocation(name string) {
	for _, loc := range p.TrustedLocations {
		if loc.Name == name {
			return
		}
	}
	p.TrustedLocations = append(p.TrustedLocations, TrustedLocation{
		Name:    name,
		AddedAt: time.Now(),
	})
	p.UpdatedAt = time.Now()
}

// RemoveTrustedLocation removes a location by name. Idempotent.
func (p *UserProfile) RemoveTrustedLocation(name string) {
	kept := p.TrustedLocations[:0]
	for _, loc := range p.TrustedLocations {
		if loc.Name != name {
			kept = append(kept, loc)
		}
	}
	p.TrustedLocations = kept
	p.UpdatedAt = time.Now()
}

// IsTrustedLocation reports whether name is in the trusted set.
func (p *UserProfile) IsTrustedLocation(name string) bool {
	for _, loc := range p.TrustedLocations {
		if loc.Name == name {
			return true
		}
	}
	return false
}

// Reset restores defaults, preserving the user id and the current
// consent flag.
func (p *UserProfile) Reset() {
	fresh := New(p.UserID, p.LearningEnabled)
	fresh.CreatedAt = p.CreatedAt
	*p = *fresh
}

// Clone returns a deep copy. Store implementations hand out clones so
// callers can never mutate cached state directly.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.TrustedLocations = make([]TrustedLocation, len(p.TrustedLocations))
	copy(cp.TrustedLocations, p.TrustedLocations)
	return &cp
}

// Summary is the human-readable view of a profile.
type Summary struct {
	UserID           string    `json:"user_id"`
	LearningEnabled  bool      `json:"learning_enabled"`
	TransactionCount int       `json:"transaction_count"`
	AmountMean       float64   `json:"amount_mean"`
	AmountStd        float64   `json:"amount_std"`
	TypicalRange     [2]float64 `json:"typical_range"`
	PreferredHours   []int     `json:"preferred_hours"`
	TrustedLocations []string  `json:"trusted_locations"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Summarize produces the profile summary: rounded statistics, the typical
// amount range [mean-2σ, mean+2σ] floored at zero, and the top three
// non-zero hour buckets (ties broken by the lower hour).
func (p *UserProfile) Summarize() *Summary {
	type hourCount struct {
		hour  int
		count int
	}
	counts := make([]hourCount, 0, HoursPerDay)
	for h, c := range p.HourHistogram {
		if c > 0 {
			counts = append(counts, hourCount{hour: h, count: c})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].hour < counts[j].hour
	})
	if len(counts) > 3 {
		counts = counts[:3]
	}
	preferred := make([]int, 0, len(counts))
	for _, hc := range counts {
		preferred = append(preferred, hc.hour)
	}

	names := make([]string, 0, len(p.TrustedLocations))
	for _, loc := range p.TrustedLocations {
		names = append(names, loc.Name)
	}

	return &Summary{
		UserID:           p.UserID,
		LearningEnabled:  p.LearningEnabled,
		TransactionCount: p.TransactionCount,
		AmountMean:       round2(p.AmountMean),
		AmountStd:        round2(p.AmountStd),
		TypicalRange: [2]float64{
			round2(math.Max(0, p.AmountMean-2*p.AmountStd)),
			round2(p.AmountMean + 2*p.AmountStd),
		},
		PreferredHours:   preferred,
		TrustedLocations: names,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Repository defines durable profile persistence. Get returns (nil, nil)
// when no profile exists; absence is a valid outcome, not an error. Save
// must apply the whole profile atomically.
type Repository interface {
	Get(ctx context.Context, userID string) (*UserProfile, error)
	Save(ctx context.Context, p *UserProfile) error
	Delete(ctx context.Context, userID string) (bool, error)
}
