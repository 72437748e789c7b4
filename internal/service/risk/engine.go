package risk

// Engine computes the overall risk score as a weighted linear combination
// of features and generates a human-readable reason per feature. Fully
// deterministic: the same features always produce the same score and
// reasons.
type Engine struct{}

// NewEngine creates a risk engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ComputeRisk aggregates the features into one score in [0, 1], rounded
// to three decimals, plus ordered explanations. Feature names the engine
// does not recognize are ignored.
func (e *Engine) ComputeRisk(features map[string]float64) (float64, []string) {
	score := 0.0
	for name, value := range features {
		if w, ok := weights[name]; ok {
			score += value * w
		}
	}
	score = round3(score)
	return score, e.reasons(features, score)
}

// FeatureContributions returns each recognized feature's weighted
// contribution to the overall score, for transparency and debugging.
func (e *Engine) FeatureContributions(features map[string]float64) map[string]float64 {
	contributions := make(map[string]float64)
	for name, value := range features {
		if w, ok := weights[name]; ok {
			contributions[name] = round3(value * w)
		}
	}
	return contributions
}

func (e *Engine) reasons(features map[string]float64, overall float64) []string {
	reasons := make([]string, 0, 6)

	// Headline, on the same bands the decision policy uses.
	switch {
	case overall < 0.3:
		reasons = append(reasons, "Transaction appears normal")
	case overall < 0.6:
		reasons = append(reasons, "Transaction flagged for review")
	default:
		reasons = append(reasons, "High-risk transaction detected")
	}

	amount := features[FeatureAmountAnomaly]
	if amount >= warnThresholds[FeatureAmountAnomaly] {
		if amount >= 0.8 {
			reasons = append(reasons, "Transaction amount significantly exceeds user's typical spending")
		} else {
			reasons = append(reasons, "Transaction amount is higher than usual")
		}
	} else {
		reasons = append(reasons, "Transaction amount is within normal range")
	}

	behavior := features[FeatureBehaviorAnomaly]
	if behavior >= warnThresholds[FeatureBehaviorAnomaly] {
		if behavior >= 0.7 {
			reasons = append(reasons, "Unusual location and time pattern detected")
		} else {
			reasons = append(reasons, "Transaction from unusual location or time")
		}
	} else {
		reasons = append(reasons, "Transaction behavior matches user patterns")
	}

	retry := features[FeatureRetryRisk]
	if retry >= warnThresholds[FeatureRetryRisk] {
		switch {
		case retry >= 0.8:
			reasons = append(reasons, "Multiple failed attempts detected (possible card testing)")
		case retry >= 0.6:
			reasons = append(reasons, "Several retry attempts detected")
		default:
			reasons = append(reasons, "Multiple retry attempts noted")
		}
	} else if retry > 0 {
		reasons = append(reasons, "Minimal retry attempts")
	} else {
		reasons = append(reasons, "No previous failed attempts")
	}

	liveness := features[FeatureLivenessRisk]
	if liveness >= warnThresholds[FeatureLivenessRisk] {
		if liveness >= 0.8 {
			reasons = append(reasons, "Liveness verification failed or low confidence")
		} else {
			reasons = append(reasons, "Liveness verification shows moderate concern")
		}
	} else {
		reasons = append(reasons, "Liveness verification passed")
	}

	mlBehavior := features[FeatureMLBehaviorAnomaly]
	if mlBehavior >= warnThresholds[FeatureMLBehaviorAnomaly] {
		if mlBehavior >= 0.7 {
			reasons = append(reasons, "Significant deviation from learned behavior patterns")
		} else {
			reasons = append(reasons, "Transaction differs from typical user patterns")
		}
	} else if mlBehavior > 0 {
		// Exactly zero is suppressed: it may mean "no signal" (learning
		// disabled) rather than "confirmed normal".
		reasons = append(reasons, "Transaction aligns with learned patterns")
	}

	return reasons
}
