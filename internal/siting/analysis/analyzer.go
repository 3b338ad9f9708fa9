// Package analysis explains scored sites: side-by-side comparison, nearby resource counts,
// economic, environmental and risk reports, and multi-year production forecasts.
package analysis

import (
	"errors"
	"math"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/geomath"
	"h2-siting-workers/internal/siting/scoring"
)

var (
	ErrTooFewSites    = errors.New("at least two sites are required for comparison")
	ErrInvalidSite    = errors.New("invalid site")
	ErrInvalidHorizon = errors.New("forecast horizon out of range")
)

// DistanceFunc measures kilometers between two points.
type DistanceFunc func(a, b models.GeoPoint) float64

// Radii are the nearby-count search radii in km.
type Radii struct {
	Renewable float64
	Demand    float64
	Plant     float64
	Pipeline  float64
}

func DefaultRadii() Radii {
	return Radii{Renewable: 100, Demand: 200, Plant: 150, Pipeline: 100}
}

type Option func(*Analyzer)

// WithDistance replaces the nearby-count metric; geomath.Distance gives haversine counts.
func WithDistance(fn DistanceFunc) Option {
	return func(a *Analyzer) { a.distance = fn }
}

func WithRadii(r Radii) Option {
	return func(a *Analyzer) { a.radii = r }
}

type Analyzer struct {
	scorer   *scoring.Scorer
	distance DistanceFunc
	radii    Radii
}

// NewAnalyzer defaults nearby counts to the flat 111 km/degree metric, which is cheaper
// than haversine and only feeds explanatory counts.
func NewAnalyzer(scorer *scoring.Scorer, opts ...Option) *Analyzer {
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	a := &Analyzer{
		scorer:   scorer,
		distance: geomath.EuclideanKm,
		radii:    DefaultRadii(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SiteAnalysis is the full single-point report.
type SiteAnalysis struct {
	Score         models.SiteScore      `json:"score"`
	Nearby        NearbyCounts          `json:"nearby"`
	Economic      EconomicAnalysis      `json:"economic"`
	Environmental EnvironmentalAnalysis `json:"environmental"`
	Risk          RiskAnalysis          `json:"risk"`
	// ScoringFallback is set when the point could not be scored and a zero score was used.
	ScoringFallback bool `json:"scoringFallback,omitempty"`
}

// Analyze scores one point and derives every report from that score.
func (a *Analyzer) Analyze(point models.GeoPoint, ds models.Dataset, profile scoring.Profile) (*SiteAnalysis, error) {
	if err := point.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidSite, err)
	}

	score, err := a.scorer.ScoreOrZero(point, ds, profile)
	nearby := a.Nearby(point, ds)

	return &SiteAnalysis{
		Score:           score,
		Nearby:          nearby,
		Economic:        a.Economic(score, nearby, ds),
		Environmental:   Environmental(score, nearby),
		Risk:            Risk(score, nearby),
		ScoringFallback: err != nil,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
