package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p := New("user-1", true)

	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.LearningEnabled)
	assert.Equal(t, DefaultAmountMean, p.AmountMean)
	assert.Equal(t, DefaultAmountStd, p.AmountStd)
	assert.Equal(t, 0, p.AmountCount)
	assert.Equal(t, 0, p.TransactionCount)
	assert.Empty(t, p.TrustedLocations)
}

func TestApplyTransactionFirstBaseline(t *testing.T) {
	p := New("user-1", true)

	require.NoError(t, p.ApplyTransaction(3200, 14, true))

	assert.Equal(t, 1, p.AmountCount)
	assert.Equal(t, 3200.0, p.AmountMean)
	assert.Equal(t, 0.0, p.AmountStd)
	assert.Equal(t, 1, p.TransactionCount)
	assert.Equal(t, 1, p.HourHistogram[14])
}

func TestApplyTransactionStreamingStatsMatchBatch(t *testing.T) {
	amounts := []float64{3200, 2800, 3500, 3100, 2900, 3300, 4100, 2700}

	p := New("user-1", true)
	for _, a := range amounts {
		require.NoError(t, p.ApplyTransaction(a, 10, true))
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))

	var ss float64
	for _, a := range amounts {
		ss += (a - mean) * (a - mean)
	}
	std := math.Sqrt(ss / float64(len(amounts)-1))

	assert.InDelta(t, mean, p.AmountMean, 1e-9)
	assert.InDelta(t, std, p.AmountStd, 1e-9)
	assert.Equal(t, len(amounts), p.AmountCount)
}

func TestApplyTransactionSkipsBaselineWhenIneligible(t *testing.T) {
	p := New("user-1", true)
	require.NoError(t, p.ApplyTransaction(3000, 9, true))

	require.NoError(t, p.ApplyTransaction(50000, 3, false))

	assert.Equal(t, 1, p.AmountCount)
	assert.Equal(t, 3000.0, p.AmountMean)
	assert.Equal(t, 2, p.TransactionCount)
	assert.Equal(t, 1, p.HourHistogram[3])
}

func TestApplyTransactionValidation(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		hour   int
	}{
		{"zero amount", 0, 10},
		{"negative amount", -5, 10},
		{"hour too low", 100, -1},
		{"hour too high", 100, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("user-1", true)
			err := p.ApplyTransaction(tt.amount, tt.hour, true)
			require.Error(t, err)
			assert.Equal(t, 0, p.TransactionCount)
		})
	}
}

func TestZScore(t *testing.T) {
	p := New("user-1", true)
	p.AmountMean = 3000
	p.AmountStd = 500

	assert.InDelta(t, 4.0, p.ZScore(5000), 1e-9)
	assert.InDelta(t, 4.0, p.ZScore(1000), 1e-9)
	assert.InDelta(t, 0.0, p.ZScore(3000), 1e-9)

	p.AmountStd = 0
	assert.Equal(t, 0.0, p.ZScore(99999))
}

func TestTrustedLocations(t *testing.T) {
	p := New("user-1", true)

	p.AddTrustedLocation("home")
	p.AddTrustedLocation("work")
	p.AddTrustedLocation("home") // duplicate

	assert.Len(t, p.TrustedLocations, 2)
	assert.True(t, p.IsTrustedLocation("home"))
	assert.False(t, p.IsTrustedLocation("elsewhere"))

	p.RemoveTrustedLocation("home")
	p.RemoveTrustedLocation("home") // already gone

	assert.Len(t, p.TrustedLocations, 1)
	assert.False(t, p.IsTrustedLocation("home"))
}

func TestResetPreservesIdentityAndConsent(t *testing.T) {
	p := New("user-1", true)
	require.NoError(t, p.ApplyTransaction(3000, 9, true))
	p.AddTrustedLocation("home")
	createdAt := p.CreatedAt

	p.Reset()

	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.LearningEnabled)
	assert.Equal(t, createdAt, p.CreatedAt)
	assert.Equal(t, DefaultAmountMean, p.AmountMean)
	assert.Equal(t, DefaultAmountStd, p.AmountStd)
	assert.Equal(t, 0, p.TransactionCount)
	assert.Empty(t, p.TrustedLocations)
	assert.Equal(t, [HoursPerDay]int{}, p.HourHistogram)
}

func TestCloneIsIndependent(t *testing.T) {
	p := New("user-1", true)
	p.AddTrustedLocation("home")

	cp := p.Clone()
	cp.AddTrustedLocation("work")
	cp.AmountMean = 1

	assert.Len(t, p.TrustedLocations, 1)
	assert.Equal(t, DefaultAmountMean, p.AmountMean)
}

func TestSummarize(t *testing.T) {
	p := New("user-1", true)
	p.AmountMean = 3141.567
	p.AmountStd = 812.344
	p.TransactionCount = 12
	p.HourHistogram[9] = 5
	p.HourHistogram[14] = 5
	p.HourHistogram[20] = 2
	p.HourHistogram[3] = 1
	p.AddTrustedLocation("home")

	s := p.Summarize()

	assert.Equal(t, 3141.57, s.AmountMean)
	assert.Equal(t, 812.34, s.AmountStd)
	assert.InDelta(t, 3141.567-2*812.344, s.TypicalRange[0], 0.01)
	assert.InDelta(t, 3141.567+2*812.344, s.TypicalRange[1], 0.01)
	// Ties broken by the lower hour.
	assert.Equal(t, []int{9, 14, 20}, s.PreferredHours)
	assert.Equal(t, []string{"home"}, s.TrustedLocations)
}

func TestSummarizeFloorsTypicalRangeAtZero(t *testing.T) {
	p := New("user-1", true)
	p.AmountMean = 100
	p.AmountStd = 500

	s := p.Summarize()

	assert.Equal(t, 0.0, s.TypicalRange[0])
}
