package scoring

import (
	"fmt"
	"sync/atomic"

	"h2-siting-workers/internal/models"
)

// Profile is an immutable snapshot of the weights and distance tiers one batch scores with.
type Profile struct {
	Weights    models.ScoringWeights     `json:"weights"`
	Thresholds models.DistanceThresholds `json:"thresholds"`
}

func DefaultProfile() Profile {
	return Profile{
		Weights:    models.DefaultWeights(),
		Thresholds: models.DefaultThresholds(),
	}
}

// NewProfile validates both halves of the profile.
func NewProfile(weights models.ScoringWeights, thresholds models.DistanceThresholds) (Profile, error) {
	if err := weights.Validate(); err != nil {
		return Profile{}, err
	}
	if err := thresholds.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid scoring profile: %w", err)
	}
	return Profile{Weights: weights, Thresholds: thresholds}, nil
}

// ConfigStore holds the process-wide profile. Readers take a Snapshot at batch start so an
// admin update never mixes weights inside a single batch.
type ConfigStore struct {
	current atomic.Pointer[Profile]
}

func NewConfigStore(initial Profile) (*ConfigStore, error) {
	p, err := NewProfile(initial.Weights, initial.Thresholds)
	if err != nil {
		return nil, err
	}
	s := &ConfigStore{}
	s.current.Store(&p)
	return s, nil
}

func (s *ConfigStore) Snapshot() Profile {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return DefaultProfile()
}

// Update swaps in new weights, keeping the current thresholds.
func (s *ConfigStore) Update(weights models.ScoringWeights) (Profile, error) {
	next, err := NewProfile(weights, s.Snapshot().Thresholds)
	if err != nil {
		return Profile{}, err
	}
	s.current.Store(&next)
	return next, nil
}

// UpdateThresholds swaps in new distance tiers, keeping the current weights.
func (s *ConfigStore) UpdateThresholds(thresholds models.DistanceThresholds) (Profile, error) {
	next, err := NewProfile(s.Snapshot().Weights, thresholds)
	if err != nil {
		return Profile{}, err
	}
	s.current.Store(&next)
	return next, nil
}

// Replace swaps in a whole profile at once.
func (s *ConfigStore) Replace(p Profile) (Profile, error) {
	next, err := NewProfile(p.Weights, p.Thresholds)
	if err != nil {
		return Profile{}, err
	}
	s.current.Store(&next)
	return next, nil
}
