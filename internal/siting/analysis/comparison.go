package analysis

import (
	"errors"
	"fmt"
	"sort"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/scoring"
)

// NamedSite is a caller-supplied point to compare.
type NamedSite struct {
	Name string `json:"name"`
	models.GeoPoint
}

type ComparedSite struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	models.SiteScore
	ScoringFallback bool `json:"scoringFallback,omitempty"`
}

type ComparisonSummary struct {
	BestSite       string              `json:"bestSite"`
	WorstSite      string              `json:"worstSite"`
	AverageFactors models.ScoreFactors `json:"averageFactors"`
	AverageTotal   float64             `json:"averageTotal"`
	MinTotal       float64             `json:"minTotal"`
	MaxTotal       float64             `json:"maxTotal"`
}

type Comparison struct {
	Sites   []ComparedSite    `json:"sites"`
	Summary ComparisonSummary `json:"summary"`
}

// Compare scores every site independently of any grid and ranks them by total, keeping
// input order on ties.
func (a *Analyzer) Compare(sites []NamedSite, ds models.Dataset, profile scoring.Profile) (*Comparison, error) {
	if len(sites) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSites, len(sites))
	}
	for i, s := range sites {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("site %d (%q): %w", i, s.Name, errors.Join(ErrInvalidSite, err))
		}
	}

	compared := make([]ComparedSite, len(sites))
	for i, s := range sites {
		score, err := a.scorer.ScoreOrZero(s.GeoPoint, ds, profile)
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("Site %d", i+1)
		}
		compared[i] = ComparedSite{Name: name, SiteScore: score, ScoringFallback: err != nil}
	}

	sort.SliceStable(compared, func(i, j int) bool {
		return compared[i].TotalScore > compared[j].TotalScore
	})
	for i := range compared {
		compared[i].Rank = i + 1
	}

	return &Comparison{Sites: compared, Summary: summarize(compared)}, nil
}

// summarize expects sites already ranked best first.
func summarize(sites []ComparedSite) ComparisonSummary {
	n := float64(len(sites))
	var sum models.ScoreFactors
	var total float64
	minTotal, maxTotal := sites[0].TotalScore, sites[0].TotalScore

	for _, s := range sites {
		sum.RenewableScore += s.Factors.RenewableScore
		sum.DemandScore += s.Factors.DemandScore
		sum.CostScore += s.Factors.CostScore
		sum.RegulatoryScore += s.Factors.RegulatoryScore
		total += s.TotalScore
		minTotal = min(minTotal, s.TotalScore)
		maxTotal = max(maxTotal, s.TotalScore)
	}

	return ComparisonSummary{
		BestSite:  sites[0].Name,
		WorstSite: sites[len(sites)-1].Name,
		AverageFactors: models.ScoreFactors{
			RenewableScore:  round2(sum.RenewableScore / n),
			DemandScore:     round2(sum.DemandScore / n),
			CostScore:       round2(sum.CostScore / n),
			RegulatoryScore: round2(sum.RegulatoryScore / n),
		},
		AverageTotal: round2(total / n),
		MinTotal:     minTotal,
		MaxTotal:     maxTotal,
	}
}
