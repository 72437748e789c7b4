package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range Weights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestComputeRiskBounds(t *testing.T) {
	e := NewEngine()

	score, reasons := e.ComputeRisk(map[string]float64{})
	assert.Equal(t, 0.0, score)
	assert.Equal(t, "Transaction appears normal", reasons[0])

	all := map[string]float64{
		FeatureAmountAnomaly:     1,
		FeatureBehaviorAnomaly:   1,
		FeatureRetryRisk:         1,
		FeatureLivenessRisk:      1,
		FeatureMLBehaviorAnomaly: 1,
	}
	score, reasons = e.ComputeRisk(all)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "High-risk transaction detected", reasons[0])
}

func TestComputeRiskIgnoresUnrecognizedFeatures(t *testing.T) {
	e := NewEngine()

	score, _ := e.ComputeRisk(map[string]float64{
		FeatureAmountAnomaly: 0.5,
		"made_up_feature":    1.0,
	})
	assert.InDelta(t, 0.1, score, 1e-9)
}

func TestComputeRiskIsMonotonic(t *testing.T) {
	e := NewEngine()

	base := map[string]float64{
		FeatureAmountAnomaly: 0.2,
		FeatureRetryRisk:     0.2,
	}
	lower, _ := e.ComputeRisk(base)

	base[FeatureAmountAnomaly] = 0.8
	higher, _ := e.ComputeRisk(base)

	assert.Greater(t, higher, lower)
}

func TestReasonsForLearnedBehavior(t *testing.T) {
	e := NewEngine()

	// Exactly zero is ambiguous (may mean learning disabled) and is
	// suppressed from the reasons.
	_, reasons := e.ComputeRisk(map[string]float64{FeatureMLBehaviorAnomaly: 0})
	for _, r := range reasons {
		assert.NotContains(t, r, "learned patterns")
	}

	_, reasons = e.ComputeRisk(map[string]float64{FeatureMLBehaviorAnomaly: 0.2})
	assert.Contains(t, reasons, "Transaction aligns with learned patterns")

	_, reasons = e.ComputeRisk(map[string]float64{FeatureMLBehaviorAnomaly: 0.9})
	assert.Contains(t, reasons, "Significant deviation from learned behavior patterns")
}

func TestReasonsEscalateWithSeverity(t *testing.T) {
	e := NewEngine()

	_, reasons := e.ComputeRisk(map[string]float64{FeatureAmountAnomaly: 0.9})
	assert.Contains(t, reasons, "Transaction amount significantly exceeds user's typical spending")

	_, reasons = e.ComputeRisk(map[string]float64{FeatureAmountAnomaly: 0.6})
	assert.Contains(t, reasons, "Transaction amount is higher than usual")

	_, reasons = e.ComputeRisk(map[string]float64{FeatureRetryRisk: 1.0})
	assert.Contains(t, reasons, "Multiple failed attempts detected (possible card testing)")

	_, reasons = e.ComputeRisk(map[string]float64{FeatureRetryRisk: 0.2})
	assert.Contains(t, reasons, "Minimal retry attempts")
}

func TestFeatureContributions(t *testing.T) {
	e := NewEngine()

	contributions := e.FeatureContributions(map[string]float64{
		FeatureAmountAnomaly:     1.0,
		FeatureMLBehaviorAnomaly: 0.5,
		"made_up_feature":        1.0,
	})

	assert.Len(t, contributions, 2)
	assert.InDelta(t, 0.2, contributions[FeatureAmountAnomaly], 1e-9)
	assert.InDelta(t, 0.15, contributions[FeatureMLBehaviorAnomaly], 1e-9)
}
