package risk

// Feature names recognized by the engine. Anything else in a feature map
// is ignored, never an error.
const (
	FeatureAmountAnomaly     = "amount_anomaly"
	FeatureBehaviorAnomaly   = "behavior_anomaly"
	FeatureRetryRisk         = "retry_risk"
	FeatureLivenessRisk      = "liveness_risk"
	FeatureMLBehaviorAnomaly = "ml_behavior_anomaly"
)

// Weights for the linear combination. They sum to exactly 1.0; the
// learned-pattern signal gets significant but not dominant weight, so it
// informs the score without deciding it.
var weights = map[string]float64{
	FeatureAmountAnomaly:     0.20,
	FeatureBehaviorAnomaly:   0.15,
	FeatureRetryRisk:         0.20,
	FeatureLivenessRisk:      0.15,
	FeatureMLBehaviorAnomaly: 0.30,
}

// Per-feature thresholds above which the reason for that feature switches
// from a pass message to a warning.
var warnThresholds = map[string]float64{
	FeatureAmountAnomaly:     0.5,
	FeatureBehaviorAnomaly:   0.4,
	FeatureRetryRisk:         0.4,
	FeatureLivenessRisk:      0.5,
	FeatureMLBehaviorAnomaly: 0.4,
}

// Weights returns a copy of the feature weight table.
func Weights() map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}
