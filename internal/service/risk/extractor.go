package risk

import (
	"math"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/signal"
)

// ExtractorInput is one transaction plus the contextual baseline it is
// judged against. The baseline comes from the user's profile, or from a
// caller-supplied fallback when no profile exists.
type ExtractorInput struct {
	Amount          float64
	UserAvgAmount   float64
	UserStdAmount   float64
	RetryCount      int
	LocationChanged bool
	HourOfDay       int
	Liveness        signal.Result
}

// FeatureSet holds the normalized risk features, each in [0, 1] with 0
// meaning no risk. MLBehaviorAnomaly is filled in separately by the
// behavior model when the user is known.
type FeatureSet struct {
	AmountAnomaly     float64 `json:"amount_anomaly"`
	BehaviorAnomaly   float64 `json:"behavior_anomaly"`
	RetryRisk         float64 `json:"retry_risk"`
	LivenessRisk      float64 `json:"liveness_risk"`
	MLBehaviorAnomaly float64 `json:"ml_behavior_anomaly"`
}

// Map flattens the feature set for the engine boundary, where features
// travel as named values and unrecognized names are ignored by contract.
func (f FeatureSet) Map() map[string]float64 {
	return map[string]float64{
		FeatureAmountAnomaly:     f.AmountAnomaly,
		FeatureBehaviorAnomaly:   f.BehaviorAnomaly,
		FeatureRetryRisk:         f.RetryRisk,
		FeatureLivenessRisk:      f.LivenessRisk,
		FeatureMLBehaviorAnomaly: f.MLBehaviorAnomaly,
	}
}

// maxRetryCount is where retry risk saturates at 1.0.
const maxRetryCount = 5

// locationChangeRisk is the base behavior risk added when the caller
// observed a location change.
const locationChangeRisk = 0.4

// Extractor converts a raw transaction plus baseline context into
// normalized risk features. Pure; no side effects.
type Extractor struct{}

// NewExtractor creates a feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes all baseline-context features for one transaction.
func (e *Extractor) Extract(in ExtractorInput) FeatureSet {
	return FeatureSet{
		AmountAnomaly:   e.amountAnomaly(in.Amount, in.UserAvgAmount, in.UserStdAmount),
		BehaviorAnomaly: e.behaviorAnomaly(in.LocationChanged, in.HourOfDay),
		RetryRisk:       e.retryRisk(in.RetryCount),
		LivenessRisk:    e.livenessRisk(in.Liveness.Passed, in.Liveness.Confidence),
	}
}

// amountAnomaly scores the deviation of the amount from the user's
// historical spending. With an established variance it uses the true
// z-score; with none it falls back to a ratio-based surrogate (2x the
// average lands near one standard deviation). The mapping is aligned to
// the decision bands: z<2 stays under 0.3, z in [2,3) lands in the
// review band, z>=3 climbs toward 1.0.
func (e *Extractor) amountAnomaly(amount, userAvg, userStd float64) float64 {
	if userAvg == 0 {
		userAvg = 1
	}

	var z float64
	if userStd == 0 {
		ratio := amount / userAvg
		if ratio > 1 {
			z = (ratio - 1) * 1.5
		}
	} else {
		z = math.Abs(amount-userAvg) / userStd
	}

	var r float64
	switch {
	case z < 2:
		r = (z / 2) * 0.3
	case z < 3:
		r = 0.3 + (z-2)*0.3
	default:
		r = math.Min(1, 0.6+(z-3)*0.2)
	}
	return round3(r)
}

// behaviorAnomaly scores coarse contextual signals: a location change
// and the time of day. Late night (23:00-05:59) carries more weight than
// early morning (06:00-08:59).
func (e *Extractor) behaviorAnomaly(locationChanged bool, hour int) float64 {
	r := 0.0
	if locationChanged {
		r += locationChangeRisk
	}
	if hour >= 23 || hour <= 5 {
		r += 0.3
	} else if hour > 5 && hour <= 8 {
		r += 0.1
	}
	return math.Min(1, round3(r))
}

// retryRisk scales linearly with failed attempts, saturating at
// maxRetryCount. Repeated retries often mean card testing or brute
// force rather than a forgotten PIN.
func (e *Extractor) retryRisk(retryCount int) float64 {
	if retryCount == 0 {
		return 0
	}
	return round3(math.Min(1, float64(retryCount)/maxRetryCount))
}

// livenessRisk converts the liveness signal into risk. A pass with low
// confidence is still risky; a failure is high risk but never an
// automatic block on its own.
func (e *Extractor) livenessRisk(passed bool, confidence float64) float64 {
	if passed {
		return round3(1 - confidence)
	}
	return round3(0.7 + (1-confidence)*0.3)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
