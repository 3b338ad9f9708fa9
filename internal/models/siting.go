package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrInvalidGeometry    = errors.New("invalid geometry")
)

// DefaultDemandSize is used when a demand center reports neither population nor industrial demand.
const DefaultDemandSize = 50.0

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the point is finite and inside the coordinate ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinates, p.Latitude, p.Longitude)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrInvalidCoordinates, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrInvalidCoordinates, p.Longitude)
	}
	return nil
}

// OrbPoint converts to orb's [lon, lat] ordering.
func (p GeoPoint) OrbPoint() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// PointFromOrb converts an orb point ([lon, lat]) into a GeoPoint.
func PointFromOrb(p orb.Point) GeoPoint {
	return GeoPoint{Latitude: p.Lat(), Longitude: p.Lon()}
}

// BoundingBox is an axis-aligned box in degrees. Boxes crossing the antimeridian are not supported.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Validate enforces south < north and west < east inside the coordinate ranges.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.South, b.West, b.North, b.East} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidBoundingBox)
		}
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("%w: latitude bounds must be within [-90, 90]", ErrInvalidBoundingBox)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("%w: longitude bounds must be within [-180, 180]", ErrInvalidBoundingBox)
	}
	if b.South >= b.North {
		return fmt.Errorf("%w: south (%v) must be less than north (%v)", ErrInvalidBoundingBox, b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("%w: west (%v) must be less than east (%v); antimeridian crossing is not supported",
			ErrInvalidBoundingBox, b.West, b.East)
	}
	return nil
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Latitude >= b.South && p.Latitude <= b.North &&
		p.Longitude >= b.West && p.Longitude <= b.East
}

// Pad widens the box by km on every side, clamped to valid coordinates.
// Longitude padding uses the latitude closest to the equator so the box never undershoots.
func (b BoundingBox) Pad(km float64) BoundingBox {
	const kmPerDegree = 111.0
	dLat := km / kmPerDegree

	refLat := math.Min(math.Abs(b.South), math.Abs(b.North))
	if b.South <= 0 && b.North >= 0 {
		refLat = 0
	}
	cos := math.Cos(refLat * math.Pi / 180)
	dLon := 180.0
	if cos > 0.01 {
		dLon = math.Min(180, km/(kmPerDegree*cos))
	}

	return BoundingBox{
		South: math.Max(-90, b.South-dLat),
		West:  math.Max(-180, b.West-dLon),
		North: math.Min(90, b.North+dLat),
		East:  math.Min(180, b.East+dLon),
	}
}

// Bound converts the box into an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.West, b.South}, Max: orb.Point{b.East, b.North}}
}

// Union returns the smallest box covering every point.
func Union(points []GeoPoint) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	box := BoundingBox{
		South: points[0].Latitude, North: points[0].Latitude,
		West: points[0].Longitude, East: points[0].Longitude,
	}
	for _, p := range points[1:] {
		box.South = math.Min(box.South, p.Latitude)
		box.North = math.Max(box.North, p.Latitude)
		box.West = math.Min(box.West, p.Longitude)
		box.East = math.Max(box.East, p.Longitude)
	}
	return box
}

// ResourceQuality is a 0-100 suitability rating for a solar or wind resource.
type ResourceQuality struct {
	SuitabilityScore float64 `json:"suitabilityScore"`
}

type RenewableSite struct {
	ID       string           `json:"id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Location GeoPoint         `json:"location"`
	Solar    *ResourceQuality `json:"solar,omitempty"`
	Wind     *ResourceQuality `json:"wind,omitempty"`
}

type Population struct {
	Total int64 `json:"total"`
}

type DemandCenter struct {
	ID               string      `json:"id,omitempty"`
	Name             string      `json:"name,omitempty"`
	Location         GeoPoint    `json:"location"`
	Population       *Population `json:"population,omitempty"`
	IndustrialDemand *float64    `json:"industrialDemand,omitempty"`
}

// Size returns population total, else industrial demand, else DefaultDemandSize.
func (d DemandCenter) Size() float64 {
	if d.Population != nil && d.Population.Total > 0 {
		return float64(d.Population.Total)
	}
	if d.IndustrialDemand != nil && *d.IndustrialDemand > 0 {
		return *d.IndustrialDemand
	}
	return DefaultDemandSize
}

type AssetKind string

const (
	AssetPlant    AssetKind = "plant"
	AssetPipeline AssetKind = "pipeline"
)

// InfrastructureAsset is an existing plant (Point) or pipeline (LineString).
type InfrastructureAsset struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Kind     AssetKind         `json:"kind,omitempty"`
	Status   string            `json:"status,omitempty"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// Representative returns the point used for proximity scoring: the Point itself, or the middle
// vertex of a LineString.
func (a InfrastructureAsset) Representative() (GeoPoint, error) {
	if a.Geometry == nil || a.Geometry.Coordinates == nil {
		return GeoPoint{}, fmt.Errorf("%w: asset %q has no geometry", ErrInvalidGeometry, a.ID)
	}
	switch g := a.Geometry.Coordinates.(type) {
	case orb.Point:
		return PointFromOrb(g), nil
	case orb.LineString:
		if len(g) == 0 {
			return GeoPoint{}, fmt.Errorf("%w: asset %q has an empty line", ErrInvalidGeometry, a.ID)
		}
		return PointFromOrb(g[len(g)/2]), nil
	default:
		return GeoPoint{}, fmt.Errorf("%w: asset %q has unsupported type %s",
			ErrInvalidGeometry, a.ID, a.Geometry.Coordinates.GeoJSONType())
	}
}

// Vertices returns every coordinate of the asset geometry.
func (a InfrastructureAsset) Vertices() []GeoPoint {
	if a.Geometry == nil || a.Geometry.Coordinates == nil {
		return nil
	}
	switch g := a.Geometry.Coordinates.(type) {
	case orb.Point:
		return []GeoPoint{PointFromOrb(g)}
	case orb.LineString:
		out := make([]GeoPoint, len(g))
		for i, p := range g {
			out[i] = PointFromOrb(p)
		}
		return out
	}
	return nil
}

// IsPipeline treats LineString geometry as a pipeline when Kind is not set.
func (a InfrastructureAsset) IsPipeline() bool {
	if a.Kind != "" {
		return a.Kind == AssetPipeline
	}
	if a.Geometry == nil {
		return false
	}
	_, ok := a.Geometry.Coordinates.(orb.LineString)
	return ok
}

// NewPlant builds a Point asset.
func NewPlant(id string, loc GeoPoint) InfrastructureAsset {
	return InfrastructureAsset{
		ID:       id,
		Kind:     AssetPlant,
		Geometry: geojson.NewGeometry(loc.OrbPoint()),
	}
}

// NewPipeline builds a LineString asset.
func NewPipeline(id string, path ...GeoPoint) InfrastructureAsset {
	line := make(orb.LineString, len(path))
	for i, p := range path {
		line[i] = p.OrbPoint()
	}
	return InfrastructureAsset{
		ID:       id,
		Kind:     AssetPipeline,
		Geometry: geojson.NewGeometry(line),
	}
}

// Dataset is the cleaned input a scoring run reads from.
type Dataset struct {
	Renewables     []RenewableSite       `json:"renewables"`
	DemandCenters  []DemandCenter        `json:"demandCenters"`
	Infrastructure []InfrastructureAsset `json:"infrastructure"`
}

type ViabilityRating string

const (
	ViabilityExcellent ViabilityRating = "Excellent"
	ViabilityGood      ViabilityRating = "Good"
	ViabilityFair      ViabilityRating = "Fair"
	ViabilityPoor      ViabilityRating = "Poor"
	ViabilityNone      ViabilityRating = "Not Viable"
)

type ScoreFactors struct {
	RenewableScore  float64 `json:"renewableScore"`
	DemandScore     float64 `json:"demandScore"`
	CostScore       float64 `json:"costScore"`
	RegulatoryScore float64 `json:"regulatoryScore"`
}

// SiteScore is the scoring result for one candidate point.
type SiteScore struct {
	Latitude            float64         `json:"latitude"`
	Longitude           float64         `json:"longitude"`
	TotalScore          float64         `json:"totalScore"`
	Factors             ScoreFactors    `json:"factors"`
	RecommendedCapacity float64         `json:"recommendedCapacity"`
	EstimatedCost       float64         `json:"estimatedCost"`
	ViabilityRating     ViabilityRating `json:"viabilityRating"`
	KeyFactors          []string        `json:"keyFactors"`
}

func (s SiteScore) Point() GeoPoint {
	return GeoPoint{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Recommendation is a ranked SiteScore.
type Recommendation struct {
	SiteScore
	ID          string    `json:"id"`
	Rank        int       `json:"rank"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ScoringWeights are the factor weights; they must sum to 1.0 within WeightTolerance.
type ScoringWeights struct {
	Renewable  float64 `json:"renewable" mapstructure:"renewable"`
	Demand     float64 `json:"demand" mapstructure:"demand"`
	Cost       float64 `json:"cost" mapstructure:"cost"`
	Regulatory float64 `json:"regulatory" mapstructure:"regulatory"`
}

const WeightTolerance = 0.01

var ErrInvalidWeights = errors.New("invalid scoring weights")

func DefaultWeights() ScoringWeights {
	return ScoringWeights{Renewable: 0.4, Demand: 0.3, Cost: 0.2, Regulatory: 0.1}
}

func (w ScoringWeights) Sum() float64 {
	return w.Renewable + w.Demand + w.Cost + w.Regulatory
}

// Validate rejects negative components and sums outside 1.0 ± WeightTolerance.
func (w ScoringWeights) Validate() error {
	components := []struct {
		name  string
		value float64
	}{
		{"renewable", w.Renewable},
		{"demand", w.Demand},
		{"cost", w.Cost},
		{"regulatory", w.Regulatory},
	}
	for _, c := range components {
		if math.IsNaN(c.value) || c.value < 0 {
			return fmt.Errorf("%w: %s weight %v must be non-negative", ErrInvalidWeights, c.name, c.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, must sum to 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// DistanceThresholds are the scoring distance tiers in kilometers.
type DistanceThresholds struct {
	ExcellentDistance float64 `json:"excellentDistance" mapstructure:"excellent_distance"`
	GoodDistance      float64 `json:"goodDistance" mapstructure:"good_distance"`
	FairDistance      float64 `json:"fairDistance" mapstructure:"fair_distance"`
	MaxDistance       float64 `json:"maxDistance" mapstructure:"max_distance"`
}

func DefaultThresholds() DistanceThresholds {
	return DistanceThresholds{ExcellentDistance: 50, GoodDistance: 100, FairDistance: 200, MaxDistance: 500}
}

func (t DistanceThresholds) Validate() error {
	if t.ExcellentDistance <= 0 || t.GoodDistance <= t.ExcellentDistance ||
		t.FairDistance <= t.GoodDistance || t.MaxDistance <= t.FairDistance {
		return fmt.Errorf("distance thresholds must be positive and strictly increasing: %+v", t)
	}
	return nil
}
