// Package recommend turns a bounding box and a dataset into a ranked list of candidate sites.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/grid"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// ScoreFloor is the hard cut: sites at or below it are never recommended.
	ScoreFloor = 30.0

	DefaultMaxRecommendations = 10
	DefaultMinScore           = 30.0
	DefaultParallelThreshold  = 256
)

var ErrGridGeneration = errors.New("candidate grid generation failed")

// DatasetLoader supplies cleaned records for a region.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, box models.BoundingBox) (*models.Dataset, error)
}

// ProfileSource supplies the scoring profile snapshot for a batch.
type ProfileSource interface {
	Snapshot() scoring.Profile
}

type Params struct {
	Dataset            models.Dataset
	BoundingBox        models.BoundingBox
	MaxRecommendations int
	MinScore           float64
	GridResolution     float64
	// Profile overrides the engine's ProfileSource for this batch.
	Profile *scoring.Profile
}

type Result struct {
	RunID           string                  `json:"runId"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Profile         scoring.Profile         `json:"profile"`
	GridPoints      int                     `json:"gridPoints"`
	Scored          int                     `json:"scored"`
	Failed          int                     `json:"failed"`
	Filtered        int                     `json:"filtered"`
	GeneratedAt     time.Time               `json:"generatedAt"`
	Duration        time.Duration           `json:"duration"`
}

type Option func(*Engine)

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.parallelThreshold = n
		}
	}
}

func WithMaxGridPoints(n int) Option {
	return func(e *Engine) { e.grid = grid.NewGenerator(n) }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is a plain value: build as many as needed, each with its own scorer and profile source.
type Engine struct {
	scorer            *scoring.Scorer
	profiles          ProfileSource
	grid              *grid.Generator
	workers           int
	parallelThreshold int
	newID             func() string
	now               func() time.Time
	logger            logger.Logger
}

func NewEngine(scorer *scoring.Scorer, profiles ProfileSource, opts ...Option) *Engine {
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	e := &Engine{
		scorer:            scorer,
		profiles:          profiles,
		grid:              grid.NewGenerator(grid.DefaultMaxPoints),
		workers:           runtime.NumCPU(),
		parallelThreshold: DefaultParallelThreshold,
		newID:             uuid.NewString,
		now:               time.Now,
		logger:            logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate scores every grid point in the box and returns the ranked survivors.
// Per-point scoring failures fall back to a zero score and are counted in Result.Failed.
// Zero recommendations is a valid result, not an error.
func (e *Engine) Generate(ctx context.Context, params Params) (*Result, error) {
	start := e.now()
	params = withDefaults(params)
	profile := e.profile(params)

	points, err := e.grid.Generate(params.BoundingBox, params.GridResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGridGeneration, err)
	}

	scores, failed, err := e.scoreAll(ctx, points, params.Dataset, profile)
	if err != nil {
		return nil, err
	}

	kept := make([]models.SiteScore, 0, len(scores))
	for _, s := range scores {
		if s.TotalScore > ScoreFloor && s.TotalScore >= params.MinScore {
			kept = append(kept, s)
		}
	}
	filtered := len(scores) - len(kept)

	// Stable so equal totals keep grid order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].TotalScore > kept[j].TotalScore
	})
	if len(kept) > params.MaxRecommendations {
		kept = kept[:params.MaxRecommendations]
	}

	stamp := e.now()
	recs := make([]models.Recommendation, len(kept))
	for i, s := range kept {
		recs[i] = models.Recommendation{
			SiteScore:   s,
			ID:          e.newID(),
			Rank:        i + 1,
			LastUpdated: stamp,
		}
	}

	result := &Result{
		RunID:           e.newID(),
		Recommendations: recs,
		Profile:         profile,
		GridPoints:      len(points),
		Scored:          len(points) - failed,
		Failed:          failed,
		Filtered:        filtered,
		GeneratedAt:     stamp,
		Duration:        stamp.Sub(start),
	}

	e.logger.Debug("recommendation batch complete", map[string]interface{}{
		"runId":      result.RunID,
		"gridPoints": result.GridPoints,
		"failed":     result.Failed,
		"filtered":   result.Filtered,
		"returned":   len(recs),
	})
	return result, nil
}

func withDefaults(p Params) Params {
	if p.MaxRecommendations <= 0 {
		p.MaxRecommendations = DefaultMaxRecommendations
	}
	if p.GridResolution == 0 {
		p.GridResolution = grid.DefaultResolution
	}
	return p
}

func (e *Engine) profile(p Params) scoring.Profile {
	switch {
	case p.Profile != nil:
		return *p.Profile
	case e.profiles != nil:
		return e.profiles.Snapshot()
	default:
		return scoring.DefaultProfile()
	}
}

// scoreAll fills scores by grid index so the order survives parallel execution.
func (e *Engine) scoreAll(ctx context.Context, points []models.GeoPoint, ds models.Dataset, profile scoring.Profile) ([]models.SiteScore, int, error) {
	scores := make([]models.SiteScore, len(points))
	failures := make([]bool, len(points))

	scoreRange := func(ctx context.Context, from, to int) error {
		for i := from; i < to; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := e.scorer.ScoreOrZero(points[i], ds, profile)
			if err != nil {
				failures[i] = true
				e.logger.Debug("candidate scoring failed, using zero score", map[string]interface{}{
					"latitude":  points[i].Latitude,
					"longitude": points[i].Longitude,
					"error":     err.Error(),
				})
			}
			scores[i] = s
		}
		return nil
	}

	if len(points) <= e.parallelThreshold || e.workers <= 1 {
		if err := scoreRange(ctx, 0, len(points)); err != nil {
			return nil, 0, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)

		chunk := (len(points) + e.workers - 1) / e.workers
		for from := 0; from < len(points); from += chunk {
			from, to := from, min(from+chunk, len(points))
			g.Go(func() error {
				return scoreRange(gctx, from, to)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	}

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return scores, failed, nil
}
