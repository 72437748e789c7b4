package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/errors"
)

func TestNewResult(t *testing.T) {
	r, err := NewResult("liveness", true, 0.95)
	require.NoError(t, err)

	assert.Equal(t, "liveness", r.Name)
	assert.True(t, r.Passed)
	assert.Equal(t, 0.95, r.Confidence)
	assert.NotNil(t, r.Metadata)
}

func TestNewResultRoundsConfidence(t *testing.T) {
	r, err := NewResult("liveness", true, 0.87654)
	require.NoError(t, err)
	assert.Equal(t, 0.877, r.Confidence)
}

func TestNewResultRejectsOutOfRangeConfidence(t *testing.T) {
	for _, confidence := range []float64{-0.1, 1.1, 2} {
		_, err := NewResult("liveness", true, confidence)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	}
}
