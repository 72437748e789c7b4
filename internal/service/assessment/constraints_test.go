package assessment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourRangeContains(t *testing.T) {
	day := HourRange{Start: 9, End: 17}
	assert.True(t, day.Contains(9))
	assert.True(t, day.Contains(17))
	assert.False(t, day.Contains(8))
	assert.False(t, day.Contains(18))

	// Wrapping midnight: 22:00 through 06:00.
	night := HourRange{Start: 22, End: 6}
	assert.True(t, night.Contains(23))
	assert.True(t, night.Contains(0))
	assert.True(t, night.Contains(6))
	assert.False(t, night.Contains(12))
}

func TestConstraintsViolation(t *testing.T) {
	maxAmount := 1000.0

	tests := []struct {
		name        string
		constraints *Constraints
		req         Request
		violated    bool
	}{
		{
			name:        "nil constraints pass everything",
			constraints: nil,
			req:         Request{Amount: 1e9},
			violated:    false,
		},
		{
			name:        "amount under the cap",
			constraints: &Constraints{MaxAmount: &maxAmount},
			req:         Request{Amount: 1000},
			violated:    false,
		},
		{
			name:        "amount over the cap",
			constraints: &Constraints{MaxAmount: &maxAmount},
			req:         Request{Amount: 1000.01},
			violated:    true,
		},
		{
			name:        "hour outside the window",
			constraints: &Constraints{AllowedHours: &HourRange{Start: 9, End: 17}},
			req:         Request{Amount: 10, HourOfDay: 3},
			violated:    true,
		},
		{
			name:        "location not in the allowed list",
			constraints: &Constraints{AllowedLocations: []string{"home", "work"}},
			req:         Request{Amount: 10, Location: "elsewhere"},
			violated:    true,
		},
		{
			name:        "allowed location",
			constraints: &Constraints{AllowedLocations: []string{"home", "work"}},
			req:         Request{Amount: 10, Location: "work"},
			violated:    false,
		},
		{
			name:        "unknown location tolerated by default",
			constraints: &Constraints{AllowedLocations: []string{"home"}},
			req:         Request{Amount: 10},
			violated:    false,
		},
		{
			name: "unknown location blocked on request",
			constraints: &Constraints{
				AllowedLocations:      []string{"home"},
				BlockUnknownLocations: true,
			},
			req:      Request{Amount: 10},
			violated: true,
		},
		{
			name:        "unknown location blocked without an allowed list",
			constraints: &Constraints{BlockUnknownLocations: true},
			req:         Request{Amount: 10},
			violated:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violation := tt.constraints.Violation(tt.req)
			if tt.violated {
				assert.NotEmpty(t, violation)
			} else {
				assert.Empty(t, violation)
			}
		})
	}
}

func TestMemoryConstraintStore(t *testing.T) {
	store := NewMemoryConstraintStore()
	ctx := context.Background()

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	maxAmount := 100.0
	require.NoError(t, store.Set(ctx, "user-1", &Constraints{MaxAmount: &maxAmount}))

	got, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100.0, *got.MaxAmount)

	// Setting nil clears the entry.
	require.NoError(t, store.Set(ctx, "user-1", nil))
	got, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
