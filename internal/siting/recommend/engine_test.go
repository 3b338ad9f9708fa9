package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/grid"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

func pt(lat, lon float64) models.GeoPoint {
	return models.GeoPoint{Latitude: lat, Longitude: lon}
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// regulatoryOnly scores every point with fn and weights the regulatory factor alone.
func regulatoryOnly(t *testing.T, fn func(models.GeoPoint) float64) (*scoring.Scorer, *scoring.Profile) {
	t.Helper()
	profile, err := scoring.NewProfile(models.ScoringWeights{Regulatory: 1}, models.DefaultThresholds())
	require.NoError(t, err)
	return scoring.NewScorer(scoring.WithRegulatoryModel(scoring.RegulatoryFunc(fn))), &profile
}

func newTestEngine(t *testing.T, scorer *scoring.Scorer, opts ...Option) *Engine {
	base := []Option{
		WithIDGenerator(counterIDs()),
		WithClock(fixedClock),
		WithLogger(logger.NewTestLogger(t)),
	}
	return NewEngine(scorer, nil, append(base, opts...)...)
}

// ==========================
// Scenario
// ==========================

func scenarioDataset() models.Dataset {
	return models.Dataset{
		Renewables: []models.RenewableSite{{
			ID: "solar-1", Location: pt(40.5, -99.5),
			Solar: &models.ResourceQuality{SuitabilityScore: 90},
		}},
		DemandCenters: []models.DemandCenter{{
			ID: "city-1", Location: pt(40.5, -99.5),
			Population: &models.Population{Total: 2000000},
		}},
	}
}

// The source sits on the (40.5, -99.5) grid point. (40.5, -100) is as close to it and the
// heuristic cost and regulatory models favour the western column, so it outranks the source point.
func TestGenerate_ScenarioSourceRowRanksFirst(t *testing.T) {
	ds := scenarioDataset()
	params := Params{
		Dataset:        ds,
		BoundingBox:    models.BoundingBox{South: 40, West: -100, North: 41, East: -99},
		GridResolution: 0.5,
	}

	e := newTestEngine(t, scoring.NewScorer())
	result, err := e.Generate(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 9, result.GridPoints)
	assert.Equal(t, 9, result.Scored)
	assert.Zero(t, result.Failed)
	require.GreaterOrEqual(t, len(result.Recommendations), 2)

	top := result.Recommendations[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, pt(40.5, -100), top.Point())
	assert.Equal(t, "id-1", top.ID)
	assert.Equal(t, fixedNow, top.LastUpdated)
	assert.Equal(t, pt(40.5, -99.5), result.Recommendations[1].Point())

	for i, rec := range result.Recommendations {
		assert.Equal(t, i+1, rec.Rank)
		assert.Greater(t, rec.TotalScore, ScoreFloor)
		if i > 0 {
			assert.LessOrEqual(t, rec.TotalScore, result.Recommendations[i-1].TotalScore)
		}
	}

	// The source point still wins the distance-driven factors against the farthest corner.
	scorer := scoring.NewScorer()
	nearest, err := scorer.Score(pt(40.5, -99.5), ds, scoring.DefaultProfile())
	require.NoError(t, err)
	corner, err := scorer.Score(pt(40, -99), ds, scoring.DefaultProfile())
	require.NoError(t, err)
	assert.Greater(t, nearest.Factors.RenewableScore, corner.Factors.RenewableScore)
	assert.Greater(t, nearest.Factors.DemandScore, corner.Factors.DemandScore)

	// Ranking is deterministic across runs.
	again, err := newTestEngine(t, scoring.NewScorer()).Generate(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, again.Recommendations, len(result.Recommendations))
	for i := range result.Recommendations {
		assert.Equal(t, result.Recommendations[i].Point(), again.Recommendations[i].Point())
		assert.Equal(t, result.Recommendations[i].TotalScore, again.Recommendations[i].TotalScore)
	}
}

// ==========================
// Filtering and ranking
// ==========================

func TestGenerate_FloorIsNeverCrossed(t *testing.T) {
	// Demand-only weights with no demand data pins every total at exactly 30.
	profile, err := scoring.NewProfile(models.ScoringWeights{Demand: 1}, models.DefaultThresholds())
	require.NoError(t, err)

	e := newTestEngine(t, scoring.NewScorer())
	result, err := e.Generate(context.Background(), Params{
		BoundingBox:        models.BoundingBox{South: 0, West: 0, North: 1, East: 1},
		MaxRecommendations: 100,
		MinScore:           0,
		Profile:            &profile,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 9, result.Filtered)
}

func TestGenerate_MinScoreAndTruncation(t *testing.T) {
	scorer, profile := regulatoryOnly(t, func(p models.GeoPoint) float64 { return p.Latitude * 10 })
	box := models.BoundingBox{South: 0, West: 0, North: 9, East: 0}

	tests := []struct {
		name     string
		minScore float64
		max      int
		expected []float64
		filtered int
	}{
		{"floor only", 0, 100, []float64{90, 80, 70, 60, 50, 40}, 4},
		{"caller floor below hard floor", 10, 100, []float64{90, 80, 70, 60, 50, 40}, 4},
		{"raised floor", 60, 100, []float64{90, 80, 70, 60}, 6},
		{"truncation is not filtering", 60, 2, []float64{90, 80}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, scorer)
			result, err := e.Generate(context.Background(), Params{
				BoundingBox:        box,
				GridResolution:     1,
				MinScore:           tt.minScore,
				MaxRecommendations: tt.max,
				Profile:            profile,
			})
			require.NoError(t, err)

			totals := make([]float64, len(result.Recommendations))
			for i, r := range result.Recommendations {
				totals[i] = r.TotalScore
			}
			assert.Equal(t, tt.expected, totals)
			assert.Equal(t, tt.filtered, result.Filtered)
			assert.Equal(t, 10, result.GridPoints)
		})
	}
}

func TestGenerate_TiesKeepGridOrder(t *testing.T) {
	scorer, profile := regulatoryOnly(t, func(models.GeoPoint) float64 { return 50 })

	e := newTestEngine(t, scorer)
	result, err := e.Generate(context.Background(), Params{
		BoundingBox: models.BoundingBox{South: 0, West: 0, North: 1, East: 1},
		Profile:     profile,
	})
	require.NoError(t, err)

	points, err := grid.Generate(models.BoundingBox{South: 0, West: 0, North: 1, East: 1}, 0.5)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, len(points))
	for i, rec := range result.Recommendations {
		assert.Equal(t, points[i], rec.Point(), "rank %d", rec.Rank)
	}
}

func TestGenerate_DefaultMaxRecommendations(t *testing.T) {
	scorer, profile := regulatoryOnly(t, func(models.GeoPoint) float64 { return 75 })

	e := newTestEngine(t, scorer)
	result, err := e.Generate(context.Background(), Params{
		BoundingBox: models.BoundingBox{South: 0, West: 0, North: 5, East: 5},
		Profile:     profile,
	})
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, DefaultMaxRecommendations)
}

// ==========================
// Profiles
// ==========================

func TestGenerate_ProfileSourceAndOverride(t *testing.T) {
	store, err := scoring.NewConfigStore(scoring.DefaultProfile())
	require.NoError(t, err)
	_, err = store.Update(models.ScoringWeights{Regulatory: 1})
	require.NoError(t, err)

	scorer := scoring.NewScorer(scoring.WithRegulatoryModel(scoring.RegulatoryFunc(func(models.GeoPoint) float64 { return 77 })))
	e := NewEngine(scorer, store, WithLogger(logger.NewNoOpLogger()))
	box := models.BoundingBox{South: 0, West: 0, North: 0.5, East: 0.5}

	fromStore, err := e.Generate(context.Background(), Params{BoundingBox: box})
	require.NoError(t, err)
	require.NotEmpty(t, fromStore.Recommendations)
	assert.Equal(t, 77.0, fromStore.Recommendations[0].TotalScore)
	assert.Equal(t, store.Snapshot(), fromStore.Profile)

	override, err := scoring.NewProfile(models.ScoringWeights{Demand: 1}, models.DefaultThresholds())
	require.NoError(t, err)
	overridden, err := e.Generate(context.Background(), Params{BoundingBox: box, Profile: &override})
	require.NoError(t, err)
	assert.Empty(t, overridden.Recommendations, "demand-only weights without demand data sit on the floor")
}

// ==========================
// Parallel scoring
// ==========================

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	ds := models.Dataset{
		Renewables: []models.RenewableSite{
			{ID: "a", Location: pt(3, 3), Wind: &models.ResourceQuality{SuitabilityScore: 85}},
			{ID: "b", Location: pt(7, 8), Solar: &models.ResourceQuality{SuitabilityScore: 60}},
		},
		DemandCenters: []models.DemandCenter{
			{ID: "c", Location: pt(5, 5), Population: &models.Population{Total: 500000}},
		},
		Infrastructure: []models.InfrastructureAsset{
			models.NewPipeline("p", pt(0, 0), pt(5, 5), pt(10, 10)),
		},
	}
	params := Params{
		Dataset:            ds,
		BoundingBox:        models.BoundingBox{South: 0, West: 0, North: 10, East: 10},
		GridResolution:     0.25,
		MaxRecommendations: 100,
	}

	sequential, err := newTestEngine(t, scoring.NewScorer(), WithWorkers(1)).Generate(context.Background(), params)
	require.NoError(t, err)
	parallel, err := newTestEngine(t, scoring.NewScorer(), WithWorkers(4), WithParallelThreshold(0)).Generate(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 41*41, parallel.GridPoints)
	assert.Equal(t, sequential.Recommendations, parallel.Recommendations)
	assert.Equal(t, sequential.Filtered, parallel.Filtered)
}

// ==========================
// Failures
// ==========================

func TestGenerate_PointFailuresFallBackToZero(t *testing.T) {
	ds := models.Dataset{Infrastructure: []models.InfrastructureAsset{{ID: "broken"}}}

	e := newTestEngine(t, scoring.NewScorer())
	result, err := e.Generate(context.Background(), Params{
		Dataset:     ds,
		BoundingBox: models.BoundingBox{South: 0, West: 0, North: 1, East: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 9, result.Failed)
	assert.Zero(t, result.Scored)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 9, result.Filtered)
}

func TestGenerate_GridErrors(t *testing.T) {
	e := newTestEngine(t, scoring.NewScorer())

	_, err := e.Generate(context.Background(), Params{
		BoundingBox: models.BoundingBox{South: 2, West: 0, North: 1, East: 1},
	})
	assert.ErrorIs(t, err, ErrGridGeneration)
	assert.ErrorIs(t, err, grid.ErrInvalidBounds)

	_, err = e.Generate(context.Background(), Params{
		BoundingBox:    models.BoundingBox{South: 0, West: 0, North: 1, East: 1},
		GridResolution: -1,
	})
	assert.ErrorIs(t, err, grid.ErrInvalidResolution)

	small := newTestEngine(t, scoring.NewScorer(), WithMaxGridPoints(4))
	_, err = small.Generate(context.Background(), Params{
		BoundingBox: models.BoundingBox{South: 0, West: 0, North: 1, East: 1},
	})
	assert.ErrorIs(t, err, grid.ErrTooManyPoints)
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, opts := range [][]Option{
		{WithWorkers(1)},
		{WithWorkers(4), WithParallelThreshold(0)},
	} {
		e := newTestEngine(t, scoring.NewScorer(), opts...)
		_, err := e.Generate(ctx, Params{
			BoundingBox: models.BoundingBox{South: 0, West: 0, North: 10, East: 10},
		})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// ==========================
// Loader
// ==========================

func TestStaticLoader_ClipsToPaddedBox(t *testing.T) {
	loader := StaticLoader{
		PadKm: 120,
		Dataset: models.Dataset{
			Renewables: []models.RenewableSite{
				{ID: "inside", Location: pt(0.5, 0.5)},
				{ID: "padded", Location: pt(1.9, 0.5)},
				{ID: "outside", Location: pt(5, 5)},
			},
			Infrastructure: []models.InfrastructureAsset{
				models.NewPipeline("crossing", pt(-5, 0.5), pt(5, 0.5)),
				models.NewPipeline("away", pt(-5, 5), pt(5, 5)),
			},
		},
	}

	ds, err := loader.LoadDataset(context.Background(), models.BoundingBox{South: 0, West: 0, North: 1, East: 1})
	require.NoError(t, err)

	ids := []string{}
	for _, r := range ds.Renewables {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"inside", "padded"}, ids)
	require.Len(t, ds.Infrastructure, 1)
	assert.Equal(t, "crossing", ds.Infrastructure[0].ID)
}
