package analysis

import (
	"math"

	"h2-siting-workers/internal/models"
)

type NearbyCounts struct {
	Renewables    int `json:"renewables"`
	DemandCenters int `json:"demandCenters"`
	Plants        int `json:"plants"`
	Pipelines     int `json:"pipelines"`
}

// Nearby counts records inside the per-category radius. Pipelines are measured to their
// nearest vertex; other assets to their representative point.
func (a *Analyzer) Nearby(point models.GeoPoint, ds models.Dataset) NearbyCounts {
	var c NearbyCounts
	for _, r := range ds.Renewables {
		if a.distance(point, r.Location) <= a.radii.Renewable {
			c.Renewables++
		}
	}
	for _, d := range ds.DemandCenters {
		if a.distance(point, d.Location) <= a.radii.Demand {
			c.DemandCenters++
		}
	}
	for _, asset := range ds.Infrastructure {
		if asset.IsPipeline() {
			if a.pipelineNearby(point, asset) {
				c.Pipelines++
			}
			continue
		}
		loc, err := asset.Representative()
		if err != nil {
			continue
		}
		if a.distance(point, loc) <= a.radii.Plant {
			c.Plants++
		}
	}
	return c
}

func (a *Analyzer) pipelineNearby(point models.GeoPoint, asset models.InfrastructureAsset) bool {
	return a.nearestVertex(point, asset.Vertices()) <= a.radii.Pipeline
}

func (a *Analyzer) nearestVertex(point models.GeoPoint, vertices []models.GeoPoint) float64 {
	best := math.Inf(1)
	for _, v := range vertices {
		if d := a.distance(point, v); d < best {
			best = d
		}
	}
	return best
}
