package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/redis/go-redis/v9"
)

const WeightsKey = "siting:scoring:weights"

// StoredProfile is the persisted admin profile.
type StoredProfile struct {
	Weights    models.ScoringWeights     `json:"weights"`
	Thresholds models.DistanceThresholds `json:"thresholds"`
	UpdatedAt  time.Time                 `json:"updatedAt"`
	UpdatedBy  string                    `json:"updatedBy,omitempty"`
}

func (p StoredProfile) Profile() scoring.Profile {
	return scoring.Profile{Weights: p.Weights, Thresholds: p.Thresholds}
}

// WeightStore persists the scoring profile in Redis so every worker replica agrees on it.
type WeightStore struct {
	client redis.UniversalClient
}

func NewWeightStore(client redis.UniversalClient) *WeightStore {
	return &WeightStore{client: client}
}

// Load returns the stored profile; found is false on a miss.
func (s *WeightStore) Load(ctx context.Context) (StoredProfile, bool, error) {
	val, err := s.client.Get(ctx, WeightsKey).Result()
	if errors.Is(err, redis.Nil) {
		return StoredProfile{}, false, nil
	}
	if err != nil {
		return StoredProfile{}, false, fmt.Errorf("get %s: %w", WeightsKey, err)
	}

	var stored StoredProfile
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return StoredProfile{}, false, fmt.Errorf("decode %s: %w", WeightsKey, err)
	}
	if err := stored.Weights.Validate(); err != nil {
		return StoredProfile{}, false, fmt.Errorf("stored profile: %w", err)
	}
	if err := stored.Thresholds.Validate(); err != nil {
		return StoredProfile{}, false, fmt.Errorf("stored profile: %w", err)
	}
	return stored, true, nil
}

// Save overwrites the stored profile. It does not expire.
func (s *WeightStore) Save(ctx context.Context, profile StoredProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode %s: %w", WeightsKey, err)
	}
	if err := s.client.Set(ctx, WeightsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", WeightsKey, err)
	}
	return nil
}

// Sync copies the stored profile into cs. On a miss cs keeps its current profile.
func (s *WeightStore) Sync(ctx context.Context, cs *scoring.ConfigStore) (scoring.Profile, error) {
	stored, found, err := s.Load(ctx)
	if err != nil || !found {
		return cs.Snapshot(), err
	}
	p, err := cs.Replace(stored.Profile())
	if err != nil {
		return cs.Snapshot(), err
	}
	return p, nil
}
