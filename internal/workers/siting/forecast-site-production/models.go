package forecastsiteproduction

import (
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/analysis"
)

// Input takes either a score produced by an earlier task or a point to score now.
type Input struct {
	SiteScore *models.SiteScore `json:"siteScore,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Years     int               `json:"years,omitempty"`
}

type Output struct {
	Forecast        *analysis.ProductionForecast `json:"productionForecast"`
	ScoringFallback bool                         `json:"scoringFallback,omitempty"`
}
