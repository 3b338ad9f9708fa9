package scoring

import (
	"math"

	"h2-siting-workers/internal/models"
)

// TerrainModel rates how buildable the ground at a point is, 0-100.
type TerrainModel interface {
	TerrainSuitability(p models.GeoPoint) float64
}

// AccessibilityModel rates road and logistics access at a point, 0-100.
type AccessibilityModel interface {
	Accessibility(p models.GeoPoint) float64
}

// RegulatoryModel rates the permitting environment at a point, 0-100.
type RegulatoryModel interface {
	RegulatoryScore(p models.GeoPoint) float64
}

type TerrainFunc func(p models.GeoPoint) float64

func (f TerrainFunc) TerrainSuitability(p models.GeoPoint) float64 { return f(p) }

type AccessibilityFunc func(p models.GeoPoint) float64

func (f AccessibilityFunc) Accessibility(p models.GeoPoint) float64 { return f(p) }

type RegulatoryFunc func(p models.GeoPoint) float64

func (f RegulatoryFunc) RegulatoryScore(p models.GeoPoint) float64 { return f(p) }

// HeuristicTerrain is a smooth placeholder until elevation data is available.
// Trigonometric arguments are the raw coordinate values.
type HeuristicTerrain struct{}

func (HeuristicTerrain) TerrainSuitability(p models.GeoPoint) float64 {
	v := math.Abs(math.Sin(2*p.Latitude) * math.Cos(2*p.Longitude))
	return math.Max(40, 80-v*30)
}

// HeuristicAccessibility peaks around the central US logistics corridor (40N, 95W).
type HeuristicAccessibility struct{}

func (HeuristicAccessibility) Accessibility(p models.GeoPoint) float64 {
	distanceFactor := (math.Abs(p.Latitude-40) + math.Abs(p.Longitude+95)) / 20
	return clamp(60+(20-distanceFactor*5), 30, 90)
}

// HeuristicRegulatory is a placeholder for per-jurisdiction policy data.
type HeuristicRegulatory struct{}

func (HeuristicRegulatory) RegulatoryScore(p models.GeoPoint) float64 {
	score := 70.0
	if p.Latitude > 45 {
		score += 10
	}
	if p.Longitude < -100 {
		score += 5
	}
	score += (math.Sin(p.Latitude) + math.Cos(p.Longitude)) * 10
	return clamp(score, 20, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
