package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/transaction-shield-backend/internal/domain/profile"
	"github.com/davidleathers/transaction-shield-backend/internal/infrastructure/config"
)

const summaryKeyPrefix = "tshield:summary:"

// SummaryCache caches computed profile summaries in Redis. The cache is
// an optimization only: every operation degrades gracefully, and a Redis
// outage never fails a profile read or write.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSummaryCache connects to Redis and verifies the connection.
func NewSummaryCache(cfg *config.RedisConfig, logger *zap.Logger) (*SummaryCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("summary cache initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.Duration("ttl", cfg.SummaryTTL))

	return &SummaryCache{
		client: client,
		ttl:    cfg.SummaryTTL,
		logger: logger,
	}, nil
}

// NewSummaryCacheWithClient wraps an existing client, used in tests.
func NewSummaryCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached summary, or nil on miss or Redis failure.
func (c *SummaryCache) Get(ctx context.Context, userID string) *profile.Summary {
	data, err := c.client.Get(ctx, summaryKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("summary cache get failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}

	var summary profile.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Warn("summary cache entry corrupt, dropping",
			zap.String("user_id", userID), zap.Error(err))
		c.client.Del(ctx, summaryKeyPrefix+userID)
		return nil
	}

	return &summary
}

// Set stores the summary with the configured TTL. Best-effort.
func (c *SummaryCache) Set(ctx context.Context, userID string, summary *profile.Summary) {
	if summary == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Warn("summary cache marshal failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, summaryKeyPrefix+userID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("summary cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// InvalidateSummary drops the cached summary after a profile mutation.
// Best-effort; a failed invalidation only shortens to the TTL bound.
func (c *SummaryCache) InvalidateSummary(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, summaryKeyPrefix+userID).Err(); err != nil {
		c.logger.Warn("summary cache invalidation failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *SummaryCache) Close() error {
	return c.client.Close()
}
