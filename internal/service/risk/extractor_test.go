package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/signal"
)

func TestAmountAnomalyWithEstablishedVariance(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		amount   float64
		avg      float64
		std      float64
		expected float64
	}{
		{"at the mean", 3200, 3200, 1100, 0},
		{"one sigma", 4300, 3200, 1100, 0.15},
		{"two sigma boundary", 5400, 3200, 1100, 0.3},
		{"three sigma boundary", 6500, 3200, 1100, 0.6},
		{"extreme deviation saturates", 15000, 3200, 1100, 1.0},
		{"deviation below the mean counts too", 1000, 3200, 1100, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.amountAnomaly(tt.amount, tt.avg, tt.std)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestAmountAnomalyRatioSurrogate(t *testing.T) {
	e := NewExtractor()

	// No variance: 2x the average maps to z=1.5.
	assert.InDelta(t, 0.045, e.amountAnomaly(6000, 5000, 0), 1e-9)
	assert.InDelta(t, 0.225, e.amountAnomaly(10000, 5000, 0), 1e-9)

	// At or below the average carries no amount risk.
	assert.Equal(t, 0.0, e.amountAnomaly(5000, 5000, 0))
	assert.Equal(t, 0.0, e.amountAnomaly(1000, 5000, 0))

	// Zero average falls back to 1 instead of dividing by zero.
	assert.Greater(t, e.amountAnomaly(100, 0, 0), 0.0)
}

func TestBehaviorAnomaly(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name            string
		locationChanged bool
		hour            int
		expected        float64
	}{
		{"daytime no change", false, 12, 0},
		{"location change only", true, 12, 0.4},
		{"late night only", false, 3, 0.3},
		{"hour 23 is late night", false, 23, 0.3},
		{"early morning", false, 7, 0.1},
		{"hour 5 is late night not early morning", false, 5, 0.3},
		{"location change at night", true, 2, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, e.behaviorAnomaly(tt.locationChanged, tt.hour), 1e-9)
		})
	}
}

func TestRetryRisk(t *testing.T) {
	e := NewExtractor()

	assert.Equal(t, 0.0, e.retryRisk(0))
	assert.InDelta(t, 0.2, e.retryRisk(1), 1e-9)
	assert.InDelta(t, 0.4, e.retryRisk(2), 1e-9)
	assert.Equal(t, 1.0, e.retryRisk(5))
	assert.Equal(t, 1.0, e.retryRisk(10))
}

func TestLivenessRisk(t *testing.T) {
	e := NewExtractor()

	assert.Equal(t, 0.0, e.livenessRisk(true, 1.0))
	assert.InDelta(t, 0.1, e.livenessRisk(true, 0.9), 1e-9)
	assert.InDelta(t, 0.7, e.livenessRisk(false, 1.0), 1e-9)
	assert.InDelta(t, 0.85, e.livenessRisk(false, 0.5), 1e-9)
	assert.InDelta(t, 1.0, e.livenessRisk(false, 0.0), 1e-9)
}

func TestExtractFillsAllBaselineFeatures(t *testing.T) {
	e := NewExtractor()

	liveness, err := signal.NewResult("liveness", true, 0.9)
	require.NoError(t, err)

	fs := e.Extract(ExtractorInput{
		Amount:          15000,
		UserAvgAmount:   3200,
		UserStdAmount:   1100,
		RetryCount:      2,
		LocationChanged: true,
		HourOfDay:       3,
		Liveness:        liveness,
	})

	assert.Equal(t, 1.0, fs.AmountAnomaly)
	assert.InDelta(t, 0.7, fs.BehaviorAnomaly, 1e-9)
	assert.InDelta(t, 0.4, fs.RetryRisk, 1e-9)
	assert.InDelta(t, 0.1, fs.LivenessRisk, 1e-9)
	assert.Equal(t, 0.0, fs.MLBehaviorAnomaly)

	m := fs.Map()
	assert.Len(t, m, 5)
	assert.Equal(t, fs.AmountAnomaly, m[FeatureAmountAnomaly])
}
