package generaterecommendations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/events"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/datastore"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexRun(ctx context.Context, result *recommend.Result, box models.BoundingBox) error {
	return m.Called(ctx, result, box).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRecommendations(ctx context.Context, ev events.RecommendationsGenerated) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*recommend.Result
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*recommend.Result{}}
}

func (c *memoryCache) Get(_ context.Context, req datastore.CacheRequest) (*recommend.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.entries[req.Key()]
	return r, ok, nil
}

func (c *memoryCache) Set(_ context.Context, req datastore.CacheRequest, result *recommend.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[req.Key()] = result
	return nil
}

type failingLoader struct{ err error }

func (l failingLoader) LoadDataset(context.Context, models.BoundingBox) (*models.Dataset, error) {
	return nil, l.err
}

type fixedSyncer struct {
	profile scoring.Profile
	err     error
}

func (s fixedSyncer) Sync(_ context.Context, cs *scoring.ConfigStore) (scoring.Profile, error) {
	if s.err != nil {
		return cs.Snapshot(), s.err
	}
	return cs.Replace(s.profile)
}

// ==========================
// Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "h2-siting-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_GenerateRecommendations",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}
	return entities.Job{ActivatedJob: activatedJob}
}

func counterIDs() func() string {
	n := 0
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// latitudeProfile rates a point by latitude alone so rankings are predictable.
func latitudeProfile(t *testing.T) (*scoring.Scorer, scoring.Profile) {
	t.Helper()
	profile, err := scoring.NewProfile(models.ScoringWeights{Regulatory: 1}, models.DefaultThresholds())
	require.NoError(t, err)
	scorer := scoring.NewScorer(scoring.WithRegulatoryModel(scoring.RegulatoryFunc(func(p models.GeoPoint) float64 {
		return 40 + p.Latitude*40
	})))
	return scorer, profile
}

type fixture struct {
	handler   *Handler
	profiles  *scoring.ConfigStore
	cache     *memoryCache
	index     *MockIndex
	publisher *MockPublisher
}

func newFixture(t *testing.T, mutate func(*HandlerOptions)) *fixture {
	t.Helper()
	scorer, profile := latitudeProfile(t)
	profiles, err := scoring.NewConfigStore(profile)
	require.NoError(t, err)

	f := &fixture{
		profiles:  profiles,
		cache:     newMemoryCache(),
		index:     new(MockIndex),
		publisher: new(MockPublisher),
	}
	opts := HandlerOptions{
		Config:    DefaultConfig(),
		Loader:    recommend.StaticLoader{},
		Engine:    recommend.NewEngine(scorer, profiles, recommend.WithIDGenerator(counterIDs())),
		Profiles:  profiles,
		Cache:     f.cache,
		Index:     f.index,
		Publisher: f.publisher,
		Logger:    logger.NewTestLogger(t),
	}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := NewHandler(opts)
	require.NoError(t, err)
	f.handler = h
	return f
}

func unitBox() models.BoundingBox {
	return models.BoundingBox{South: 0, West: 0, North: 1, East: 1}
}

func errorCode(err error) errors.ErrorCode {
	return errors.Normalize(err).Code
}

// ==========================
// Constructor
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	scorer, profile := latitudeProfile(t)
	profiles, err := scoring.NewConfigStore(profile)
	require.NoError(t, err)
	engine := recommend.NewEngine(scorer, profiles)

	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{
			name: "minimal options",
			opts: HandlerOptions{Loader: recommend.StaticLoader{}, Engine: engine, Logger: logger.NewNoOpLogger()},
		},
		{
			name:    "missing loader",
			opts:    HandlerOptions{Engine: engine, Logger: logger.NewNoOpLogger()},
			wantErr: "dataset loader is required",
		},
		{
			name:    "missing engine",
			opts:    HandlerOptions{Loader: recommend.StaticLoader{}, Logger: logger.NewNoOpLogger()},
			wantErr: "recommendation engine is required",
		},
		{
			name:    "missing logger",
			opts:    HandlerOptions{Loader: recommend.StaticLoader{}, Engine: engine},
			wantErr: "logger is required",
		},
		{
			name: "invalid config",
			opts: HandlerOptions{
				Loader: recommend.StaticLoader{},
				Engine: engine,
				Logger: logger.NewNoOpLogger(),
				Config: &Config{Timeout: 0},
			},
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
		})
	}
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		validate  func(*testing.T, *Input)
	}{
		{
			name: "full input",
			variables: map[string]interface{}{
				"boundingBox":        map[string]interface{}{"north": 1, "south": 0, "east": 1, "west": 0},
				"maxRecommendations": 5,
				"minScore":           45.5,
				"gridResolution":     0.25,
				"weights":            map[string]interface{}{"renewable": 0.25, "demand": 0.25, "cost": 0.25, "regulatory": 0.25},
				"applicationId":      "unrelated-process-variable",
			},
			validate: func(t *testing.T, in *Input) {
				assert.Equal(t, unitBox(), in.BoundingBox)
				assert.Equal(t, 5, in.MaxRecommendations)
				require.NotNil(t, in.MinScore)
				assert.Equal(t, 45.5, *in.MinScore)
				assert.Equal(t, 0.25, in.GridResolution)
				require.NotNil(t, in.Weights)
				assert.Equal(t, 0.25, in.Weights.Cost)
			},
		},
		{
			name: "box only",
			variables: map[string]interface{}{
				"boundingBox": map[string]interface{}{"north": 1, "south": 0, "east": 1, "west": 0},
			},
			validate: func(t *testing.T, in *Input) {
				assert.Zero(t, in.MaxRecommendations)
				assert.Nil(t, in.MinScore)
				assert.Nil(t, in.Weights)
			},
		},
		{
			name:      "missing bounding box",
			variables: map[string]interface{}{"maxRecommendations": 5},
			wantErr:   true,
		},
		{
			name: "latitude out of range",
			variables: map[string]interface{}{
				"boundingBox": map[string]interface{}{"north": 91, "south": 0, "east": 1, "west": 0},
			},
			wantErr: true,
		},
		{
			name: "min score above 100",
			variables: map[string]interface{}{
				"boundingBox": map[string]interface{}{"north": 1, "south": 0, "east": 1, "west": 0},
				"minScore":    120,
			},
			wantErr: true,
		},
		{
			name: "partial weights",
			variables: map[string]interface{}{
				"boundingBox": map[string]interface{}{"north": 1, "south": 0, "east": 1, "west": 0},
				"weights":     map[string]interface{}{"renewable": 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := f.handler.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errorCode(err))
				return
			}
			require.NoError(t, err)
			tt.validate(t, input)
		})
	}
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_RejectsBadRequests(t *testing.T) {
	f := newFixture(t, nil)
	tooHigh := 101

	tests := []struct {
		name  string
		input Input
		code  errors.ErrorCode
	}{
		{
			name:  "inverted box",
			input: Input{BoundingBox: models.BoundingBox{South: 1, West: 0, North: 0, East: 1}},
			code:  errors.ErrCodeInvalidBoundingBox,
		},
		{
			name:  "antimeridian box",
			input: Input{BoundingBox: models.BoundingBox{South: 0, West: 179, North: 1, East: -179}},
			code:  errors.ErrCodeInvalidBoundingBox,
		},
		{
			name:  "too many recommendations",
			input: Input{BoundingBox: unitBox(), MaxRecommendations: tooHigh},
			code:  errors.ErrCodeInvalidInput,
		},
		{
			name:  "resolution below minimum",
			input: Input{BoundingBox: unitBox(), GridResolution: 0.001},
			code:  errors.ErrCodeInvalidInput,
		},
		{
			name:  "resolution above maximum",
			input: Input{BoundingBox: unitBox(), GridResolution: 10},
			code:  errors.ErrCodeInvalidInput,
		},
		{
			name: "weights not summing to one",
			input: Input{
				BoundingBox: unitBox(),
				Weights:     &models.ScoringWeights{Renewable: 0.5, Demand: 0.5, Cost: 0.5},
			},
			code: errors.ErrCodeInvalidWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.handler.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.code, errorCode(err))
		})
	}
	f.publisher.AssertNotCalled(t, "PublishRecommendations", mock.Anything, mock.Anything)
}

func TestHandler_Execute_RanksAndPublishes(t *testing.T) {
	f := newFixture(t, nil)
	f.index.On("IndexRun", mock.Anything, mock.Anything, unitBox()).Return(nil).Once()
	f.publisher.On("PublishRecommendations", mock.Anything, mock.MatchedBy(func(ev events.RecommendationsGenerated) bool {
		return ev.Count == 3
	})).Return(nil).Once()

	out, err := f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox(), MaxRecommendations: 3})
	require.NoError(t, err)

	assert.False(t, out.Cached)
	assert.NotEmpty(t, out.RunID)
	assert.Positive(t, out.GridPoints)
	require.Equal(t, 3, out.Count)
	require.Len(t, out.Recommendations, 3)
	for i, rec := range out.Recommendations {
		assert.Equal(t, i+1, rec.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Recommendations[i-1].TotalScore, rec.TotalScore)
		}
	}
	assert.Equal(t, 80.0, out.Recommendations[0].TotalScore)
	assert.Equal(t, models.ScoringWeights{Regulatory: 1}, out.Weights)
	assert.Equal(t, models.DefaultThresholds(), out.Thresholds)

	f.index.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	assert.Len(t, f.cache.entries, 1)
}

func TestHandler_Execute_ServesRepeatFromCache(t *testing.T) {
	f := newFixture(t, nil)
	f.index.On("IndexRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendations", mock.Anything, mock.Anything).Return(nil)

	input := &Input{BoundingBox: unitBox()}
	first, err := f.handler.Execute(context.Background(), input)
	require.NoError(t, err)
	second, err := f.handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	f.publisher.AssertNumberOfCalls(t, "PublishRecommendations", 1)
}

func TestHandler_Execute_MinScoreFiltersEverything(t *testing.T) {
	f := newFixture(t, nil)
	f.index.On("IndexRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendations", mock.Anything, mock.Anything).Return(nil)
	minScore := 95.0

	out, err := f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox(), MinScore: &minScore})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.Recommendations)
	assert.Equal(t, out.GridPoints, out.FilteredPoints)
}

func TestHandler_Execute_WeightOverrideLeavesSharedProfile(t *testing.T) {
	f := newFixture(t, func(o *HandlerOptions) { o.Cache = nil })
	f.index.On("IndexRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishRecommendations", mock.Anything, mock.Anything).Return(nil)
	before := f.profiles.Snapshot()

	override := models.ScoringWeights{Renewable: 0.25, Demand: 0.25, Cost: 0.25, Regulatory: 0.25}
	out, err := f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox(), Weights: &override})
	require.NoError(t, err)

	assert.Equal(t, override, out.Weights)
	assert.Equal(t, before, f.profiles.Snapshot())
}

func TestHandler_Execute_WeightStoreSync(t *testing.T) {
	stored, err := scoring.NewProfile(models.DefaultWeights(), models.DefaultThresholds())
	require.NoError(t, err)

	tests := []struct {
		name        string
		syncer      fixedSyncer
		wantWeights models.ScoringWeights
	}{
		{
			name:        "stored profile is applied",
			syncer:      fixedSyncer{profile: stored},
			wantWeights: models.DefaultWeights(),
		},
		{
			name:        "store failure keeps current profile",
			syncer:      fixedSyncer{err: fmt.Errorf("connection refused")},
			wantWeights: models.ScoringWeights{Regulatory: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *HandlerOptions) {
				o.Weights = tt.syncer
				o.Cache = nil
			})
			f.index.On("IndexRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			f.publisher.On("PublishRecommendations", mock.Anything, mock.Anything).Return(nil)

			out, err := f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox()})
			require.NoError(t, err)
			assert.Equal(t, tt.wantWeights, out.Weights)
		})
	}
}

func TestHandler_Execute_DataSourceFailure(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		code errors.ErrorCode
	}{
		{
			name: "loader error",
			ctx:  func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			code: errors.ErrCodeDataSourceFailed,
		},
		{
			name: "deadline exceeded",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
			},
			code: errors.ErrCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *HandlerOptions) {
				o.Loader = failingLoader{err: stderrors.New("postgres unavailable")}
				o.Cache = nil
			})
			ctx, cancel := tt.ctx()
			defer cancel()

			_, err := f.handler.Execute(ctx, &Input{BoundingBox: unitBox()})
			require.Error(t, err)
			assert.Equal(t, tt.code, errorCode(err))
		})
	}
}

func TestHandler_Execute_SinkFailuresDoNotFailJob(t *testing.T) {
	f := newFixture(t, nil)
	f.cache.getErr = stderrors.New("redis down")
	f.index.On("IndexRun", mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("es down"))
	f.publisher.On("PublishRecommendations", mock.Anything, mock.Anything).Return(stderrors.New("kafka down"))

	out, err := f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox()})
	require.NoError(t, err)
	assert.Positive(t, out.Count)
}

func TestHandler_Execute_GridTooLarge(t *testing.T) {
	scorer, profile := latitudeProfile(t)
	profiles, err := scoring.NewConfigStore(profile)
	require.NoError(t, err)
	f := newFixture(t, func(o *HandlerOptions) {
		o.Engine = recommend.NewEngine(scorer, profiles, recommend.WithMaxGridPoints(4))
	})

	_, err = f.handler.Execute(context.Background(), &Input{BoundingBox: unitBox(), GridResolution: 0.1})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGridGenerationFailed, errorCode(err))
}

// ==========================
// Config
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "default max above cap", mutate: func(c *Config) { c.DefaultMaxRecommendations = 500 }, wantErr: true},
		{name: "default resolution below min", mutate: func(c *Config) { c.DefaultGridResolution = 0.01 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	t.Run("nil app config yields defaults", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), NewConfig(nil))
	})

	t.Run("loads worker and scoring sections", func(t *testing.T) {
		appCfg := &config.Config{
			Workers: map[string]config.WorkerConfig{
				TaskType: {Enabled: true, Timeout: 45000},
			},
		}
		appCfg.Scoring.Grid.DefaultResolution = 0.25
		appCfg.Scoring.Grid.MinResolution = 0.1
		appCfg.Scoring.Grid.MaxResolution = 2
		appCfg.Scoring.Engine.DefaultMaxRecommendations = 20
		appCfg.Scoring.Engine.MaxRecommendations = 50
		appCfg.Scoring.Engine.DefaultMinScore = 40

		cfg := NewConfig(appCfg)
		assert.Equal(t, 45*time.Second, cfg.Timeout)
		assert.Equal(t, 0.25, cfg.DefaultGridResolution)
		assert.Equal(t, 0.1, cfg.MinGridResolution)
		assert.Equal(t, 2.0, cfg.MaxGridResolution)
		assert.Equal(t, 20, cfg.DefaultMaxRecommendations)
		assert.Equal(t, 50, cfg.MaxRecommendations)
		assert.Equal(t, 40.0, cfg.DefaultMinScore)
		assert.NoError(t, cfg.Validate())
	})
}

func TestGetInputSchema(t *testing.T) {
	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(GetInputSchema()), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "boundingBox")
}
