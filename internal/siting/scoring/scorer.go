// Package scoring rates a candidate point for hydrogen production siting.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/geomath"
)

const (
	// NeutralRenewableScore is used when no renewable sites are known.
	NeutralRenewableScore = 50.0
	// NeutralDemandScore is used when no demand center lies within the max distance.
	NeutralDemandScore = 30.0
	// BaseInfrastructureScore is the infrastructure sub-score before any proximity bonus.
	BaseInfrastructureScore = 50.0

	defaultQualityScore = 50.0
	baseCapacityMW      = 50.0
	costPerMW           = 4.0
)

var (
	ErrInvalidPoint    = errors.New("invalid candidate point")
	ErrInvalidGeometry = models.ErrInvalidGeometry
	ErrNonFinite       = errors.New("non-finite intermediate value")
	ErrModelPanic      = errors.New("scoring model panicked")
)

// ScoringError reports why a point could not be scored.
type ScoringError struct {
	Point  models.GeoPoint
	Factor string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Factor == "" {
		return fmt.Sprintf("score (%.4f, %.4f): %v", e.Point.Latitude, e.Point.Longitude, e.Err)
	}
	return fmt.Sprintf("score (%.4f, %.4f) %s: %v", e.Point.Latitude, e.Point.Longitude, e.Factor, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

type Option func(*Scorer)

func WithTerrainModel(m TerrainModel) Option {
	return func(s *Scorer) { s.terrain = m }
}

func WithAccessibilityModel(m AccessibilityModel) Option {
	return func(s *Scorer) { s.access = m }
}

func WithRegulatoryModel(m RegulatoryModel) Option {
	return func(s *Scorer) { s.regulatory = m }
}

// Scorer is stateless apart from its strategy models and safe for concurrent use.
type Scorer struct {
	terrain    TerrainModel
	access     AccessibilityModel
	regulatory RegulatoryModel
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		terrain:    HeuristicTerrain{},
		access:     HeuristicAccessibility{},
		regulatory: HeuristicRegulatory{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the four factor scores, the weighted total and the derived capacity, cost,
// rating and key factors for one point. The profile is trusted to be validated.
func (s *Scorer) Score(point models.GeoPoint, dataset models.Dataset, profile Profile) (models.SiteScore, error) {
	if err := point.Validate(); err != nil {
		return models.SiteScore{}, &ScoringError{Point: point, Err: fmt.Errorf("%w: %w", ErrInvalidPoint, err)}
	}

	renewable, err := s.renewableScore(point, dataset.Renewables, profile.Thresholds)
	if err != nil {
		return models.SiteScore{}, &ScoringError{Point: point, Factor: "renewable", Err: err}
	}
	demand, err := s.demandScore(point, dataset.DemandCenters, profile.Thresholds)
	if err != nil {
		return models.SiteScore{}, &ScoringError{Point: point, Factor: "demand", Err: err}
	}
	cost, err := s.costScore(point, dataset.Infrastructure)
	if err != nil {
		return models.SiteScore{}, &ScoringError{Point: point, Factor: "cost", Err: err}
	}
	regulatory := s.regulatory.RegulatoryScore(point)
	if !finite(regulatory) {
		return models.SiteScore{}, &ScoringError{Point: point, Factor: "regulatory", Err: ErrNonFinite}
	}

	factors := models.ScoreFactors{
		RenewableScore:  round2(renewable),
		DemandScore:     round2(demand),
		CostScore:       round2(cost),
		RegulatoryScore: round2(regulatory),
	}
	w := profile.Weights
	total := round2(factors.RenewableScore*w.Renewable +
		factors.DemandScore*w.Demand +
		factors.CostScore*w.Cost +
		factors.RegulatoryScore*w.Regulatory)

	capacity := math.Round(baseCapacityMW * ((factors.RenewableScore + factors.DemandScore) / 200) * (total / 100) * 2)
	estimatedCost := round2(capacity * costPerMW * (2 - factors.CostScore/100))

	return models.SiteScore{
		Latitude:            point.Latitude,
		Longitude:           point.Longitude,
		TotalScore:          total,
		Factors:             factors,
		RecommendedCapacity: capacity,
		EstimatedCost:       estimatedCost,
		ViabilityRating:     Rate(total),
		KeyFactors:          KeyFactors(factors),
	}, nil
}

// ScoreOrZero always returns a usable score. A non-nil error means scoring failed and the
// returned value is ZeroScore(point). A panicking strategy model is reported as ErrModelPanic.
func (s *Scorer) ScoreOrZero(point models.GeoPoint, dataset models.Dataset, profile Profile) (score models.SiteScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = ZeroScore(point)
			err = &ScoringError{Point: point, Err: fmt.Errorf("%w: %v", ErrModelPanic, r)}
		}
	}()

	score, err = s.Score(point, dataset, profile)
	if err != nil {
		return ZeroScore(point), err
	}
	return score, nil
}

// ZeroScore is the fallback for a point that could not be scored.
func ZeroScore(point models.GeoPoint) models.SiteScore {
	return models.SiteScore{
		Latitude:        point.Latitude,
		Longitude:       point.Longitude,
		ViabilityRating: models.ViabilityPoor,
		KeyFactors:      []string{},
	}
}

// DistanceScore maps a distance in km onto the four-tier step/linear curve.
func DistanceScore(distanceKm float64, t models.DistanceThresholds) float64 {
	switch {
	case distanceKm <= t.ExcellentDistance:
		return 100
	case distanceKm <= t.GoodDistance:
		return 80
	case distanceKm <= t.FairDistance:
		return 60
	case distanceKm <= t.MaxDistance:
		span := t.MaxDistance - t.FairDistance
		return math.Max(0, 60*(1-(distanceKm-t.FairDistance)/span))
	default:
		return 0
	}
}

func (s *Scorer) renewableScore(point models.GeoPoint, sites []models.RenewableSite, t models.DistanceThresholds) (float64, error) {
	if len(sites) == 0 {
		return NeutralRenewableScore, nil
	}

	best := 0.0
	for _, site := range sites {
		d := geomath.Distance(point, site.Location)
		if !finite(d) {
			return 0, fmt.Errorf("%w: distance to renewable site %q", ErrNonFinite, site.ID)
		}
		combined := DistanceScore(d, t)*0.6 + qualityScore(site)*0.4
		if combined > best {
			best = combined
		}
	}
	return best, nil
}

// qualityScore is the better of the solar and wind ratings; a site rated zero on both
// is treated as unrated.
func qualityScore(site models.RenewableSite) float64 {
	q := 0.0
	if site.Solar != nil {
		q = math.Max(q, site.Solar.SuitabilityScore)
	}
	if site.Wind != nil {
		q = math.Max(q, site.Wind.SuitabilityScore)
	}
	if q <= 0 {
		return defaultQualityScore
	}
	return q
}

func (s *Scorer) demandScore(point models.GeoPoint, centers []models.DemandCenter, t models.DistanceThresholds) (float64, error) {
	var weighted, weights float64
	for _, center := range centers {
		d := geomath.Distance(point, center.Location)
		if !finite(d) {
			return 0, fmt.Errorf("%w: distance to demand center %q", ErrNonFinite, center.ID)
		}
		if d > t.MaxDistance {
			continue
		}
		sizeScore := math.Min(100, math.Log10(center.Size()+1)*15)
		combined := DistanceScore(d, t)*0.7 + sizeScore*0.3
		w := 1 / (d + 1)
		weighted += combined * w
		weights += w
	}
	if weights == 0 {
		return NeutralDemandScore, nil
	}
	return weighted / weights, nil
}

func (s *Scorer) costScore(point models.GeoPoint, assets []models.InfrastructureAsset) (float64, error) {
	infra := BaseInfrastructureScore
	if len(assets) > 0 {
		nearest := math.Inf(1)
		for _, asset := range assets {
			loc, err := asset.Representative()
			if err != nil {
				return 0, err
			}
			d := geomath.Distance(point, loc)
			if !finite(d) {
				return 0, fmt.Errorf("%w: distance to asset %q", ErrNonFinite, asset.ID)
			}
			nearest = math.Min(nearest, d)
		}
		switch {
		case nearest <= 25:
			infra += 30
		case nearest <= 50:
			infra += 20
		case nearest <= 100:
			infra += 10
		}
	}

	terrain := s.terrain.TerrainSuitability(point)
	access := s.access.Accessibility(point)
	if !finite(terrain) || !finite(access) {
		return 0, fmt.Errorf("%w: terrain %v, accessibility %v", ErrNonFinite, terrain, access)
	}
	return math.Min(100, infra*0.4+terrain*0.3+access*0.3), nil
}

// Rate buckets a total score; each bucket includes its lower edge.
func Rate(total float64) models.ViabilityRating {
	switch {
	case total >= 80:
		return models.ViabilityExcellent
	case total >= 65:
		return models.ViabilityGood
	case total >= 50:
		return models.ViabilityFair
	case total >= 30:
		return models.ViabilityPoor
	default:
		return models.ViabilityNone
	}
}

// KeyFactors lists the strengths (>= 80) and weaknesses (<= 40) of a score.
func KeyFactors(f models.ScoreFactors) []string {
	checks := []struct {
		value            float64
		strong, weakness string
	}{
		{f.RenewableScore, "Excellent renewable energy resources", "Limited renewable energy resources"},
		{f.DemandScore, "Excellent demand center proximity", "Remote from demand centers"},
		{f.CostScore, "Excellent infrastructure cost synergy", "High development costs"},
		{f.RegulatoryScore, "Excellent regulatory environment", "Regulatory challenges"},
	}

	factors := make([]string, 0, len(checks))
	for _, c := range checks {
		switch {
		case c.value >= 80:
			factors = append(factors, c.strong)
		case c.value <= 40:
			factors = append(factors, c.weakness)
		}
	}
	return factors
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
