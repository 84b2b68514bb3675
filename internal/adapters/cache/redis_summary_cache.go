package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-analytics-service/internal/domain"
)

const summaryKey = "fleet:optimizer:summary"

// RedisSummaryCache is a Redis-backed cache for the optimization summary.
type RedisSummaryCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{Client: client, TTL: ttl}
}

// Fetch the cached summary. A missing key is a miss, not an error.
func (c *RedisSummaryCache) Get(ctx context.Context) (domain.OptimizationSummary, bool, error) {
	var out domain.OptimizationSummary
	if c.Client == nil {
		return out, false, errors.New("summary cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, summaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, fmt.Errorf("get summary cache: %w", err)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("get summary cache: decode: %w", err)
	}
	return out, true, nil
}

func (c *RedisSummaryCache) Put(ctx context.Context, summary domain.OptimizationSummary) error {
	if c.Client == nil {
		return errors.New("summary cache: client is nil")
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("put summary cache: encode: %w", err)
	}
	if err := c.Client.Set(ctx, summaryKey, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("put summary cache: %w", err)
	}
	return nil
}

// Drop the cached summary; called after a run changes the pending set.
func (c *RedisSummaryCache) Invalidate(ctx context.Context) error {
	if c.Client == nil {
		return errors.New("summary cache: client is nil")
	}
	if err := c.Client.Del(ctx, summaryKey).Err(); err != nil {
		return fmt.Errorf("invalidate summary cache: %w", err)
	}
	return nil
}
