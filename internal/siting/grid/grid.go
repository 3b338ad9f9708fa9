// Package grid generates the candidate lattice evaluated by the recommendation engine.
package grid

import (
	"errors"
	"fmt"
	"math"

	"h2-siting-workers/internal/models"
)

const (
	DefaultResolution = 0.5
	// DefaultMaxPoints bounds a single lattice to keep one request from exhausting memory.
	DefaultMaxPoints = 250000

	// stepEpsilon absorbs float error so an inclusive end like 0.1·10 still lands on north/east.
	stepEpsilon = 1e-9
)

var (
	ErrInvalidResolution = errors.New("grid resolution must be a positive finite number")
	ErrInvalidBounds     = errors.New("grid bounds are invalid")
	ErrTooManyPoints     = errors.New("grid exceeds the maximum number of points")
)

// Generator produces row-major candidate lattices.
type Generator struct {
	MaxPoints int
}

func NewGenerator(maxPoints int) *Generator {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Generator{MaxPoints: maxPoints}
}

// Size returns the lattice dimensions for box at resolution. Lattices above math.MaxInt32
// points are rejected with ErrTooManyPoints.
func Size(box models.BoundingBox, resolution float64) (rows, cols int, err error) {
	rowsF, colsF, err := dimensions(box, resolution)
	if err != nil {
		return 0, 0, err
	}
	if rowsF*colsF > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: %.0f x %.0f", ErrTooManyPoints, rowsF, colsF)
	}
	return int(rowsF), int(colsF), nil
}

// dimensions computes rows and cols as floats so a tiny resolution cannot overflow the int conversion.
func dimensions(box models.BoundingBox, resolution float64) (rows, cols float64, err error) {
	if math.IsNaN(resolution) || math.IsInf(resolution, 0) || resolution <= 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidResolution, resolution)
	}
	for _, v := range []float64{box.South, box.West, box.North, box.East} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("%w: non-finite bound", ErrInvalidBounds)
		}
	}
	if box.South > box.North || box.West > box.East {
		return 0, 0, fmt.Errorf("%w: %+v", ErrInvalidBounds, box)
	}

	rows = math.Floor((box.North-box.South)/resolution+stepEpsilon) + 1
	cols = math.Floor((box.East-box.West)/resolution+stepEpsilon) + 1
	if math.IsInf(rows, 0) || math.IsInf(cols, 0) {
		return 0, 0, fmt.Errorf("%w: resolution %v", ErrTooManyPoints, resolution)
	}
	return rows, cols, nil
}

// Generate walks latitude south→north (outer) and longitude west→east (inner), both inclusive,
// rounding every coordinate to two decimals. The ordering is the tie-break key for ranking.
// A degenerate box (south == north or west == east) yields a single row or column.
func (g *Generator) Generate(box models.BoundingBox, resolution float64) ([]models.GeoPoint, error) {
	rowsF, colsF, err := dimensions(box, resolution)
	if err != nil {
		return nil, err
	}
	if rowsF*colsF > float64(g.MaxPoints) {
		return nil, fmt.Errorf("%w: %.0f x %.0f > %d", ErrTooManyPoints, rowsF, colsF, g.MaxPoints)
	}
	rows, cols := int(rowsF), int(colsF)

	points := make([]models.GeoPoint, 0, rows*cols)
	for i := 0; i < rows; i++ {
		lat := round2(box.South + float64(i)*resolution)
		for j := 0; j < cols; j++ {
			points = append(points, models.GeoPoint{
				Latitude:  lat,
				Longitude: round2(box.West + float64(j)*resolution),
			})
		}
	}
	return points, nil
}

// Generate uses the default point limit.
func Generate(box models.BoundingBox, resolution float64) ([]models.GeoPoint, error) {
	return NewGenerator(DefaultMaxPoints).Generate(box, resolution)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
