// Package geomath provides the distance primitives used by site scoring.
package geomath

import (
	"math"

	"h2-siting-workers/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// KmPerDegree converts degrees to kilometers for the scaled-Euclidean approximation.
const KmPerDegree = 111.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the great-circle distance in kilometers. NaN inputs propagate.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	// a = sin²(Δlat/2) + cos(lat1)·cos(lat2)·sin²(Δlon/2)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is Haversine over two GeoPoints.
func Distance(a, b models.GeoPoint) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// DistanceToSegment returns the haversine distance from p to the closest point of segment a-b.
// The projection is computed in raw degree space, which is accurate enough at the tens to
// hundreds of kilometers this package is used for.
func DistanceToSegment(p, a, b models.GeoPoint) float64 {
	dx := b.Longitude - a.Longitude
	dy := b.Latitude - a.Latitude
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}

	t := ((p.Longitude-a.Longitude)*dx + (p.Latitude-a.Latitude)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	closest := models.GeoPoint{
		Latitude:  a.Latitude + t*dy,
		Longitude: a.Longitude + t*dx,
	}
	return Distance(p, closest)
}

// DistanceToLine is the minimum DistanceToSegment over every leg of a polyline.
// A single vertex degrades to a point distance; an empty line returns +Inf.
func DistanceToLine(p models.GeoPoint, line []models.GeoPoint) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, line[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := DistanceToSegment(p, line[i-1], line[i]); d < best {
			best = d
		}
	}
	return best
}

// LineLength sums consecutive haversine legs; fewer than two points yields 0.
func LineLength(coordinates []models.GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(coordinates); i++ {
		total += Distance(coordinates[i-1], coordinates[i])
	}
	return total
}

// EuclideanKm is the flat approximation sqrt(Δlat²+Δlon²)·111 km. It ignores longitude
// convergence and is only meant for coarse counting.
func EuclideanKm(a, b models.GeoPoint) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat+dLon*dLon) * KmPerDegree
}
