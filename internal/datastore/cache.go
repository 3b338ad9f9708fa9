package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "siting:recommendations:"

// CacheRequest is every input that changes a run's output, apart from the dataset itself.
type CacheRequest struct {
	BoundingBox        models.BoundingBox `json:"boundingBox"`
	MaxRecommendations int                `json:"maxRecommendations"`
	MinScore           float64            `json:"minScore"`
	GridResolution     float64            `json:"gridResolution"`
	Profile            scoring.Profile    `json:"profile"`
}

// Key hashes the request; dataset changes are bounded by the cache TTL.
func (r CacheRequest) Key() string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}

// RecommendationCache stores finished runs in Redis.
type RecommendationCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRecommendationCache returns a cache; a ttl <= 0 disables it.
func NewRecommendationCache(client redis.UniversalClient, ttl time.Duration) *RecommendationCache {
	return &RecommendationCache{client: client, ttl: ttl}
}

func (c *RecommendationCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *RecommendationCache) Get(ctx context.Context, req CacheRequest) (*recommend.Result, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	key := req.Key()
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	var result recommend.Result
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return &result, true, nil
}

func (c *RecommendationCache) Set(ctx context.Context, req CacheRequest, result *recommend.Result) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", result.RunID, err)
	}
	key := req.Key()
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
