package updatescoringweights

import (
	"time"

	"h2-siting-workers/internal/models"
)

// Input replaces the shared weights. Thresholds are kept when omitted.
type Input struct {
	Weights    models.ScoringWeights      `json:"weights"`
	Thresholds *models.DistanceThresholds `json:"thresholds,omitempty"`
	UpdatedBy  string                     `json:"updatedBy,omitempty"`
}

type Output struct {
	Weights            models.ScoringWeights     `json:"weights"`
	Thresholds         models.DistanceThresholds `json:"thresholds"`
	PreviousWeights    models.ScoringWeights     `json:"previousWeights"`
	PreviousThresholds models.DistanceThresholds `json:"previousThresholds"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
	UpdatedBy          string                    `json:"updatedBy,omitempty"`
}
