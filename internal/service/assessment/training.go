package assessment

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
	"github.com/davidleathers/transaction-shield-backend/internal/domain/transaction"
	"github.com/davidleathers/transaction-shield-backend/internal/service/behavior"
	"github.com/davidleathers/transaction-shield-backend/internal/service/risk"
)

// TrainingTransaction is one labeled-normal transaction in a training
// batch.
type TrainingTransaction struct {
	Amount   float64 `json:"amount"`
	Hour     int     `json:"hour"`
	Location string  `json:"location,omitempty"`
}

// FeatureExplanation breaks one feature out for display: its score, the
// weight it carries, and the resulting contribution to the total.
type FeatureExplanation struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Explanation  string  `json:"explanation"`
}

// TestResult is the outcome of scoring a transaction against a trained
// session, with per-feature explanations and a comparison against the
// learned patterns.
type TestResult struct {
	Decision       string               `json:"decision"`
	RiskScore      float64              `json:"risk_score"`
	RiskPercentage float64              `json:"risk_percentage"`
	Reasons        []string             `json:"reasons"`
	Action         string               `json:"action"`
	Features       []FeatureExplanation `json:"features"`
	Learned        *profile.Summary     `json:"learned_patterns"`
	Timestamp      time.Time            `json:"timestamp"`
}

// TrainingSession is an explicit, caller-owned training context. Each
// session trains a dedicated profile (learning enabled) and scores test
// transactions against it. Sessions do not touch real user profiles.
type TrainingSession struct {
	id  string
	svc *Service

	mu      sync.Mutex
	trained bool
}

// NewTrainingSession creates an untrained session with its own profile
// namespace.
func (s *Service) NewTrainingSession() *TrainingSession {
	return &TrainingSession{
		id:  "session-" + uuid.NewString(),
		svc: s,
	}
}

// ID returns the session identifier.
func (ts *TrainingSession) ID() string {
	return ts.id
}

// Train resets the session profile and learns from a batch of normal
// transactions. Locations seen in the batch become trusted, alongside
// any explicitly supplied ones. At least three transactions are needed
// for a usable baseline.
func (ts *TrainingSession) Train(ctx context.Context, txns []TrainingTransaction, trustedLocations []string) (*profile.Summary, error) {
	if len(txns) < 3 {
		return nil, errors.NewValidationError("INSUFFICIENT_TRAINING_DATA",
			fmt.Sprintf("need at least 3 transactions, got %d", len(txns)))
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, err := ts.svc.store.Delete(ctx, ts.id); err != nil {
		return nil, err
	}
	if _, err := ts.svc.store.Create(ctx, ts.id, true); err != nil {
		return nil, err
	}

	for _, loc := range trustedLocations {
		if _, err := ts.svc.store.AddTrustedLocation(ctx, ts.id, loc); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]bool)
	for _, txn := range txns {
		if txn.Location != "" && !seen[txn.Location] {
			seen[txn.Location] = true
			if _, err := ts.svc.store.AddTrustedLocation(ctx, ts.id, txn.Location); err != nil {
				return nil, err
			}
		}
	}

	for _, txn := range txns {
		if err := ts.svc.behavior.RecordTransaction(ctx, ts.id, txn.Amount, txn.Hour); err != nil {
			return nil, err
		}
	}

	ts.trained = true
	return ts.svc.store.Summarize(ctx, ts.id)
}

// Test scores one transaction against the trained session profile.
func (ts *TrainingSession) Test(ctx context.Context, amount float64, hour int, location string) (*TestResult, error) {
	ts.mu.Lock()
	trained := ts.trained
	ts.mu.Unlock()
	if !trained {
		return nil, errors.NewBusinessError("NOT_TRAINED", "no model trained yet; upload training data first")
	}

	txn, err := transaction.New(ts.id, amount, hour, location)
	if err != nil {
		return nil, err
	}

	summary, err := ts.svc.store.Summarize(ctx, ts.id)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, errors.NewNotFoundError("session profile")
	}

	analysis, err := ts.svc.behavior.Analyze(ctx, ts.id, txn)
	if err != nil {
		return nil, err
	}

	// Retry and liveness do not apply to batch testing; the remaining
	// features come from the learned baseline.
	features := risk.FeatureSet{MLBehaviorAnomaly: analysis.Score}
	if summary.AmountStd > 0 {
		z := math.Abs(amount-summary.AmountMean) / summary.AmountStd
		features.AmountAnomaly = math.Min(1, z/4)
	}
	preferred := false
	for _, h := range summary.PreferredHours {
		if h == hour {
			preferred = true
			break
		}
	}
	if !preferred {
		features.BehaviorAnomaly = 0.7
	}

	featureMap := features.Map()
	score, reasons := ts.svc.engine.ComputeRisk(featureMap)
	decision := ts.svc.policy.Decide(score, reasons)
	weights := risk.Weights()

	explanations := []FeatureExplanation{
		{
			Name:         "Amount Anomaly",
			Score:        round3(features.AmountAnomaly),
			Weight:       weights[risk.FeatureAmountAnomaly],
			Contribution: round3(features.AmountAnomaly * weights[risk.FeatureAmountAnomaly]),
			Explanation:  analysis.Amount.Reason,
		},
		{
			Name:         "Time Pattern",
			Score:        round3(features.BehaviorAnomaly),
			Weight:       weights[risk.FeatureBehaviorAnomaly],
			Contribution: round3(features.BehaviorAnomaly * weights[risk.FeatureBehaviorAnomaly]),
			Explanation:  analysis.Time.Reason,
		},
		{
			Name:         "Location Trust",
			Score:        round3(analysis.Location.Score),
			Weight:       behavior.LocationWeight,
			Contribution: round3(analysis.Location.Score * behavior.LocationWeight),
			Explanation:  analysis.Location.Reason,
		},
		{
			Name:         "Learned Behavior",
			Score:        round3(analysis.Score),
			Weight:       weights[risk.FeatureMLBehaviorAnomaly],
			Contribution: round3(analysis.Score * weights[risk.FeatureMLBehaviorAnomaly]),
			Explanation:  analysis.Explanation,
		},
	}

	return &TestResult{
		Decision:       string(decision.Decision),
		RiskScore:      round3(score),
		RiskPercentage: math.Round(score*1000) / 10,
		Reasons:        decision.Reasons,
		Action:         decision.Action,
		Features:       explanations,
		Learned:        summary,
		Timestamp:      time.Now(),
	}, nil
}

// Status reports whether the session is trained and, when it is, the
// learned summary.
func (ts *TrainingSession) Status(ctx context.Context) (bool, *profile.Summary, error) {
	ts.mu.Lock()
	trained := ts.trained
	ts.mu.Unlock()
	if !trained {
		return false, nil, nil
	}
	summary, err := ts.svc.store.Summarize(ctx, ts.id)
	return true, summary, err
}

// Close discards the session profile.
func (ts *TrainingSession) Close(ctx context.Context) error {
	_, err := ts.svc.store.Delete(ctx, ts.id)
	return err
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
