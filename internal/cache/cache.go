// Package cache provides a Redis-backed cache for attribution results so
// dashboards re-reading the same journey/model pair don't recompute or hit
// Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// ErrMiss is returned when no cached result exists for the key.
var ErrMiss = errors.New("cache: miss")

// ResultCache stores attribution results keyed by journey and model name.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache creates a result cache with the given TTL.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{client: client, ttl: ttl}
}

func resultKey(journeyID, modelName string) string {
	return fmt.Sprintf("attribution:result:%s:%s", journeyID, modelName)
}

// Set stores one result under its journey and model name.
func (c *ResultCache) Set(ctx context.Context, modelName string, result *domain.AttributionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal result: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(result.CustomerJourneyID, modelName), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set result: %w", err)
	}
	return nil
}

// Get fetches a cached result, returning ErrMiss when absent.
func (c *ResultCache) Get(ctx context.Context, journeyID, modelName string) (*domain.AttributionResult, error) {
	data, err := c.client.Get(ctx, resultKey(journeyID, modelName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get result: %w", err)
	}
	var result domain.AttributionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cache: unmarshal result: %w", err)
	}
	return &result, nil
}

// InvalidateJourney drops every cached model result for one journey, used
// when a journey's touches are re-ingested.
func (c *ResultCache) InvalidateJourney(ctx context.Context, journeyID string) error {
	pattern := resultKey(journeyID, "*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan journey keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: invalidate journey: %w", err)
	}
	return nil
}
