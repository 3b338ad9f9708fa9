// internal/workers/siting/generate-recommendations/models.go
package generaterecommendations

import (
	"time"

	"h2-siting-workers/internal/models"
)

type Input struct {
	BoundingBox        models.BoundingBox     `json:"boundingBox"`
	MaxRecommendations int                    `json:"maxRecommendations,omitempty"`
	MinScore           *float64               `json:"minScore,omitempty"`
	GridResolution     float64                `json:"gridResolution,omitempty"`
	Weights            *models.ScoringWeights `json:"weights,omitempty"` // per-run override
}

type Output struct {
	RunID           string                    `json:"runId"`
	Recommendations []models.Recommendation   `json:"recommendations"`
	Count           int                       `json:"count"`
	GridPoints      int                       `json:"gridPoints"`
	FailedPoints    int                       `json:"failedPoints"`
	FilteredPoints  int                       `json:"filteredPoints"`
	Weights         models.ScoringWeights     `json:"weights"`
	Thresholds      models.DistanceThresholds `json:"thresholds"`
	Cached          bool                      `json:"cached"`
	GeneratedAt     time.Time                 `json:"generatedAt"`
}
