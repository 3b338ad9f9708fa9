package comparesites

import (
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/analysis"
)

type Input struct {
	Sites   []analysis.NamedSite   `json:"sites"`
	Weights *models.ScoringWeights `json:"weights,omitempty"`
}

type Output struct {
	Sites   []analysis.ComparedSite    `json:"comparedSites"`
	Summary analysis.ComparisonSummary `json:"comparisonSummary"`
	Weights models.ScoringWeights      `json:"weights"`
}
