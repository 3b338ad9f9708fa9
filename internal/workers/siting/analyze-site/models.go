package analyzesite

import (
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/analysis"
)

type Input struct {
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Weights   *models.ScoringWeights `json:"weights,omitempty"`
}

func (i Input) Point() models.GeoPoint {
	return models.GeoPoint{Latitude: i.Latitude, Longitude: i.Longitude}
}

type Output struct {
	Analysis *analysis.SiteAnalysis `json:"siteAnalysis"`
	Weights  models.ScoringWeights  `json:"weights"`
}
