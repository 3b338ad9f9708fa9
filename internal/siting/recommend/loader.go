package recommend

import (
	"context"

	"h2-siting-workers/internal/models"
)

// StaticLoader serves an in-memory dataset, clipped to the requested box padded by PadKm.
// Assets are kept when their geometry bound intersects the padded box.
type StaticLoader struct {
	Dataset models.Dataset
	PadKm   float64
}

func (l StaticLoader) LoadDataset(ctx context.Context, box models.BoundingBox) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	area := box
	if l.PadKm > 0 {
		area = box.Pad(l.PadKm)
	}
	bound := area.Bound()

	out := &models.Dataset{}
	for _, r := range l.Dataset.Renewables {
		if area.Contains(r.Location) {
			out.Renewables = append(out.Renewables, r)
		}
	}
	for _, d := range l.Dataset.DemandCenters {
		if area.Contains(d.Location) {
			out.DemandCenters = append(out.DemandCenters, d)
		}
	}
	for _, a := range l.Dataset.Infrastructure {
		if a.Geometry == nil || a.Geometry.Coordinates == nil {
			continue
		}
		if a.Geometry.Coordinates.Bound().Intersects(bound) {
			out.Infrastructure = append(out.Infrastructure, a)
		}
	}
	return out, nil
}
