package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

func TestDecideBoundaries(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		risk     float64
		expected Decision
	}{
		{"zero risk", 0, DecisionAllow},
		{"just below allow threshold", 0.29999, DecisionAllow},
		{"exactly allow threshold", 0.3, DecisionDelay},
		{"middle of review band", 0.45, DecisionDelay},
		{"just below block threshold", 0.59999, DecisionDelay},
		{"exactly block threshold", 0.6, DecisionBlock},
		{"maximum risk", 1.0, DecisionBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.Decide(tt.risk, nil)
			assert.Equal(t, tt.expected, result.Decision)
			assert.Equal(t, tt.risk, result.RiskScore)
		})
	}
}

func TestDecideActions(t *testing.T) {
	p := New()

	assert.Equal(t, "Transaction approved - proceed normally", p.Decide(0.1, nil).Action)
	assert.Equal(t, "Transaction flagged for manual review - temporary hold", p.Decide(0.4, nil).Action)
	assert.Equal(t, "Transaction blocked - high fraud risk detected", p.Decide(0.9, nil).Action)
}

func TestDecideEchoesReasonsAndNeverReturnsNil(t *testing.T) {
	p := New()

	result := p.Decide(0.1, []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, result.Reasons)

	result = p.Decide(0.1, nil)
	assert.NotNil(t, result.Reasons)
	assert.Empty(t, result.Reasons)
}

func TestThresholdInfo(t *testing.T) {
	p := New()

	info := p.Decide(0.2, nil).ThresholdInfo
	assert.Equal(t, 0.2, info.CurrentRisk)
	assert.Equal(t, DefaultAllowThreshold, info.AllowThreshold)
	assert.Equal(t, DefaultBlockThreshold, info.BlockThreshold)
	assert.Equal(t, "0.100 below DELAY threshold", info.DistanceToNextLevel)

	info = p.Decide(0.5, nil).ThresholdInfo
	assert.Equal(t, "0.200 above ALLOW, 0.100 below BLOCK", info.DistanceToNextLevel)

	info = p.Decide(0.75, nil).ThresholdInfo
	assert.Equal(t, "0.150 above BLOCK threshold", info.DistanceToNextLevel)
}

func TestUpdateThresholds(t *testing.T) {
	p := New()

	allow, block := 0.2, 0.8
	require.NoError(t, p.UpdateThresholds(&allow, &block))

	gotAllow, gotBlock := p.Thresholds()
	assert.Equal(t, 0.2, gotAllow)
	assert.Equal(t, 0.8, gotBlock)

	// Partial update keeps the other threshold.
	newBlock := 0.7
	require.NoError(t, p.UpdateThresholds(nil, &newBlock))
	gotAllow, gotBlock = p.Thresholds()
	assert.Equal(t, 0.2, gotAllow)
	assert.Equal(t, 0.7, gotBlock)
}

func TestUpdateThresholdsRejectedWholesale(t *testing.T) {
	p := New()

	tests := []struct {
		name  string
		allow *float64
		block *float64
	}{
		{"allow out of range", f(-0.1), f(0.6)},
		{"block out of range", f(0.3), f(1.5)},
		{"allow equals block", f(0.5), f(0.5)},
		{"allow above block", f(0.7), f(0.4)},
		{"allow crosses current block", f(0.65), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.UpdateThresholds(tt.allow, tt.block)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

			// State untouched.
			allow, block := p.Thresholds()
			assert.Equal(t, DefaultAllowThreshold, allow)
			assert.Equal(t, DefaultBlockThreshold, block)
		})
	}
}

func f(v float64) *float64 {
	return &v
}
