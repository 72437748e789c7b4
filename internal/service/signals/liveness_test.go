package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/signal"
)

func TestSimulatedLivenessEchoesObservation(t *testing.T) {
	provider := NewSimulatedLiveness()

	result, err := provider.Assess(context.Background(), signal.Observation{
		Passed:     true,
		Confidence: 0.92,
	})
	require.NoError(t, err)
	assert.Equal(t, LivenessName, result.Name)
	assert.True(t, result.Passed)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, "simulation", result.Metadata["mode"])
}

func TestSimulatedLivenessClampsConfidence(t *testing.T) {
	provider := NewSimulatedLiveness()
	ctx := context.Background()

	result, err := provider.Assess(ctx, signal.Observation{Passed: false, Confidence: 1.7})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)

	result, err = provider.Assess(ctx, signal.Observation{Passed: true, Confidence: -0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Confidence)
}
