package behavior

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/transaction"
	"github.com/davidleathers/transaction-shield-backend/internal/service/profilestore"
)

// Analysis statuses carried in the details so callers can distinguish a
// zero score that means "no signal available" from one that means
// "confirmed normal".
const (
	StatusLearningDisabled = "learning_disabled"
	StatusInsufficientData = "insufficient_data"
	StatusAnalyzed         = "analyzed"
)

// Sub-score combination weights. Fixed; amount deviation dominates.
const (
	AmountWeight   = 0.5
	TimeWeight     = 0.25
	LocationWeight = 0.25
)

// minTransactions is the observation count below which the model refuses
// to score and returns a neutral signal instead.
const minTransactions = 5

// baselineZThreshold gates which transactions may feed the running
// mean/std. Anything at or beyond 1.5 standard deviations is counted but
// excluded from the baseline so anomalies cannot contaminate the very
// statistics used to judge future anomalies.
const baselineZThreshold = 1.5

// amountZScoreThreshold is where the amount reason starts calling the
// deviation out explicitly.
const amountZScoreThreshold = 2.0

// rareHourThreshold is the hour frequency below which the time reason
// flags the transaction time as unusual.
const rareHourThreshold = 0.05

// SubScore is one component of the behavioral analysis.
type SubScore struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Analysis is the behavioral anomaly signal for one transaction.
type Analysis struct {
	Score       float64  `json:"behavior_anomaly_score"`
	Explanation string   `json:"explanation"`
	Status      string   `json:"status"`
	Amount      SubScore `json:"amount"`
	Time        SubScore `json:"time"`
	Location    SubScore `json:"location"`
}

// Model computes a single behavioral anomaly signal from a user's learned
// profile and governs when new transactions feed back into that profile.
type Model struct {
	store  *profilestore.Store
	logger *zap.Logger
}

// NewModel creates a behavior model on top of the given profile store.
func NewModel(store *profilestore.Store, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{store: store, logger: logger}
}

// Analyze scores one transaction against the user's learned patterns.
// Missing profile, disabled consent, or too little data all resolve to a
// neutral 0.0 with an explanatory reason, never an error.
func (m *Model) Analyze(ctx context.Context, userID string, txn *transaction.Transaction) (*Analysis, error) {
	p, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p == nil || !p.LearningEnabled {
		return &Analysis{
			Score:       0,
			Explanation: "Behavior learning not enabled for this user",
			Status:      StatusLearningDisabled,
		}, nil
	}

	if p.TransactionCount < minTransactions {
		return &Analysis{
			Score:       0,
			Explanation: fmt.Sprintf("Insufficient data (%d/%d transactions)", p.TransactionCount, minTransactions),
			Status:      StatusInsufficientData,
		}, nil
	}

	amount := analyzeAmount(txn.Amount, p)
	timeScore := analyzeTime(txn.HourOfDay, p)
	location := analyzeLocation(txn.Location, p)

	combined := amount.Score*AmountWeight + timeScore.Score*TimeWeight + location.Score*LocationWeight
	combined = round3(math.Min(1, combined))

	var reasons []string
	for _, sub := range []SubScore{amount, timeScore, location} {
		if sub.Score > 0.3 {
			reasons = append(reasons, sub.Reason)
		}
	}
	explanation := "Transaction matches learned behavioral patterns"
	if len(reasons) > 0 {
		explanation = strings.Join(reasons, "; ")
	}

	return &Analysis{
		Score:       combined,
		Explanation: explanation,
		Status:      StatusAnalyzed,
		Amount:      amount,
		Time:        timeScore,
		Location:    location,
	}, nil
}

// RecordTransaction feeds one transaction into the user's profile.
// Baseline eligibility is decided here, independent of Analyze: once a
// variance is established, only transactions within 1.5 standard
// deviations of the mean may move the baseline. Everything else still
// counts toward frequency and volume statistics.
func (m *Model) RecordTransaction(ctx context.Context, userID string, amount float64, hour int) error {
	p, err := m.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	eligible := true
	if p != nil && p.AmountStd > 0 {
		z := p.ZScore(amount)
		eligible = z < baselineZThreshold
		if !eligible {
			m.logger.Debug("transaction excluded from baseline",
				zap.String("user_id", userID),
				zap.Float64("z_score", z),
				zap.Float64("amount", amount))
		}
	}

	return m.store.UpdateWithTransaction(ctx, userID, amount, hour, eligible)
}

// analyzeAmount maps the amount z-score to risk. The curve is steeper
// than the extractor's baseline-context curve: by the time this model
// runs, the variance is established, so deviations mean more.
func analyzeAmount(amount float64, p *profile.UserProfile) SubScore {
	if p.AmountStd == 0 {
		return SubScore{Score: 0, Reason: "Amount variance not yet established"}
	}

	z := p.ZScore(amount)

	var risk float64
	switch {
	case z <= 1:
		risk = 0
	case z <= 2:
		risk = (z - 1) * 0.3
	case z <= 3:
		risk = 0.3 + (z-2)*0.4
	default:
		risk = math.Min(1, 0.7+(z-3)*0.3)
	}

	reason := "Amount is within normal range"
	if z > amountZScoreThreshold {
		direction := "lower"
		if amount > p.AmountMean {
			direction = "higher"
		}
		reason = fmt.Sprintf("Amount is %.1fσ %s than usual (%.0f ± %.0f)", z, direction, p.AmountMean, p.AmountStd)
	}

	return SubScore{Score: round3(risk), Reason: reason}
}

// analyzeTime scores the hour against the user's hour histogram: the
// rarer the hour, the higher the risk, with a never-seen hour at 1.0.
func analyzeTime(hour int, p *profile.UserProfile) SubScore {
	total := 0
	for _, c := range p.HourHistogram {
		total += c
	}
	if total == 0 {
		return SubScore{Score: 0, Reason: "Time pattern not yet established"}
	}

	freq := float64(p.HourHistogram[hour]) / float64(total)

	var risk float64
	switch {
	case freq >= 0.1:
		risk = 0
	case freq >= 0.05:
		risk = 0.3
	case freq >= 0.01:
		risk = 0.6
	case freq > 0:
		risk = 0.8
	default:
		risk = 1.0
	}

	reason := "Transaction time matches typical patterns"
	if freq < rareHourThreshold {
		reason = fmt.Sprintf("Unusual transaction time (%d:00) - only %.1f%% of past transactions", hour, freq*100)
	}

	return SubScore{Score: round3(risk), Reason: reason}
}

// analyzeLocation is trust verification against the user-curated set,
// not location tracking. No location or no trusted set scores zero.
func analyzeLocation(location string, p *profile.UserProfile) SubScore {
	if location == "" {
		return SubScore{Score: 0, Reason: "Location not provided"}
	}
	if len(p.TrustedLocations) == 0 {
		return SubScore{Score: 0, Reason: "No trusted locations defined"}
	}
	if p.IsTrustedLocation(location) {
		return SubScore{Score: 0, Reason: fmt.Sprintf("Transaction from trusted location: %s", location)}
	}
	return SubScore{Score: 0.7, Reason: fmt.Sprintf("Transaction from untrusted location: %s", location)}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
