package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCacheWithClient(client, 5*time.Minute, zaptest.NewLogger(t)), mr
}

func testSummary() *profile.Summary {
	return &profile.Summary{
		UserID:           "user-1",
		LearningEnabled:  true,
		TransactionCount: 12,
		AmountMean:       3100,
		AmountStd:        250,
		TypicalRange:     [2]float64{2600, 3600},
		PreferredHours:   []int{9, 14},
		TrustedLocations: []string{"home"},
	}
}

func TestSummaryCacheRoundtrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "user-1"))

	c.Set(ctx, "user-1", testSummary())

	got := c.Get(ctx, "user-1")
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 3100.0, got.AmountMean)
	assert.Equal(t, []int{9, 14}, got.PreferredHours)
}

func TestSummaryCacheInvalidation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user-1", testSummary())
	c.InvalidateSummary(ctx, "user-1")

	assert.Nil(t, c.Get(ctx, "user-1"))
}

func TestSummaryCacheEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "user-1", testSummary())
	require.NotNil(t, c.Get(ctx, "user-1"))

	mr.FastForward(6 * time.Minute)

	assert.Nil(t, c.Get(ctx, "user-1"))
}

func TestSummaryCacheDropsCorruptEntries(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(summaryKeyPrefix+"user-1", "not json"))

	assert.Nil(t, c.Get(ctx, "user-1"))
	// The corrupt value is removed, not left to fail again.
	assert.False(t, mr.Exists(summaryKeyPrefix+"user-1"))
}

func TestSummaryCacheDegradesWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	mr.Close()

	// No panics, no errors surfaced: cache misses all the way.
	c.Set(ctx, "user-1", testSummary())
	assert.Nil(t, c.Get(ctx, "user-1"))
	c.InvalidateSummary(ctx, "user-1")
}

func TestSummaryCacheIgnoresNil(t *testing.T) {
	c, mr := newTestCache(t)

	c.Set(context.Background(), "user-1", nil)
	assert.False(t, mr.Exists(summaryKeyPrefix+"user-1"))
}
