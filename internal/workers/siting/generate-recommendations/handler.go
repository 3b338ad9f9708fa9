// internal/workers/siting/generate-recommendations/handler.go
package generaterecommendations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/events"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/metrics"
	"h2-siting-workers/internal/common/observability"
	"h2-siting-workers/internal/common/validation"
	"h2-siting-workers/internal/datastore"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-site-recommendations"
)

var inputValidator = validation.MustValidator(inputSchema)

type ResultCache interface {
	Get(ctx context.Context, req datastore.CacheRequest) (*recommend.Result, bool, error)
	Set(ctx context.Context, req datastore.CacheRequest, result *recommend.Result) error
}

type ResultIndex interface {
	IndexRun(ctx context.Context, result *recommend.Result, box models.BoundingBox) error
}

// ProfileSyncer refreshes the shared profile from the weight store.
type ProfileSyncer interface {
	Sync(ctx context.Context, cs *scoring.ConfigStore) (scoring.Profile, error)
}

// HandlerOptions wires the handler. Weights, Cache, Index, Publisher and Observability are optional.
type HandlerOptions struct {
	Config        *Config
	Observability *observability.Observability
	Loader        recommend.DatasetLoader
	Engine        *recommend.Engine
	Profiles      *scoring.ConfigStore
	Weights       ProfileSyncer
	Cache         ResultCache
	Index         ResultIndex
	Publisher     events.Publisher
	Logger        logger.Logger
}

type Handler struct {
	config    *Config
	loader    recommend.DatasetLoader
	engine    *recommend.Engine
	profiles  *scoring.ConfigStore
	weights   ProfileSyncer
	cache     ResultCache
	index     ResultIndex
	publisher events.Publisher
	obs       *observability.Observability
	logger    logger.Logger
	errors    *errors.ErrorHandler
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("dataset loader is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("recommendation engine is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Profiles == nil {
		opts.Profiles, _ = scoring.NewConfigStore(scoring.DefaultProfile())
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}

	log := logger.ForTask(opts.Logger, TaskType)
	return &Handler{
		config:    opts.Config,
		loader:    opts.Loader,
		engine:    opts.Engine,
		profiles:  opts.Profiles,
		weights:   opts.Weights,
		cache:     opts.Cache,
		index:     opts.Index,
		publisher: opts.Publisher,
		obs:       opts.Observability,
		logger:    log,
		errors:    errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.run(ctx, job)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		metrics.RecordJob(TaskType, start, string(errors.Normalize(err).Code))
		h.recordOutcome(start, "failed")
		return
	}

	h.completeJob(client, job, output)
	metrics.RecordJob(TaskType, start, "")
	h.recordOutcome(start, "completed")
}

func (h *Handler) recordOutcome(start time.Time, status string) {
	ctx := context.Background()
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), status)
}

func (h *Handler) run(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if result := inputValidator.ValidateJSON(job.Variables); !result.Valid {
		return nil, errors.NewInvalidInputError(result.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	params, err := h.params(input)
	if err != nil {
		return nil, err
	}

	profile, err := h.profile(ctx, input)
	if err != nil {
		return nil, err
	}
	params.Profile = &profile

	cacheReq := datastore.CacheRequest{
		BoundingBox:        params.BoundingBox,
		MaxRecommendations: params.MaxRecommendations,
		MinScore:           params.MinScore,
		GridResolution:     params.GridResolution,
		Profile:            profile,
	}
	if h.cache != nil {
		cached, hit, err := h.cache.Get(ctx, cacheReq)
		if err != nil {
			h.sinkFailed("cache", "", err)
		} else if hit {
			h.logger.Info("serving cached recommendations", map[string]interface{}{
				"runId": cached.RunID,
				"count": len(cached.Recommendations),
			})
			return newOutput(cached, true), nil
		}
	}

	dataset, err := h.loader.LoadDataset(ctx, params.BoundingBox)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewTimeoutError("dataset", err)
		}
		return nil, errors.NewDataSourceFailedError("dataset", err)
	}
	params.Dataset = *dataset

	result, err := h.engine.Generate(ctx, params)
	switch {
	case err == nil:
	case stderrors.Is(err, recommend.ErrGridGeneration):
		return nil, errors.NewGridGenerationFailedError(err)
	case ctx.Err() != nil:
		return nil, errors.NewTimeoutError("scoring", err)
	default:
		return nil, errors.NewInternalError(err)
	}

	metrics.RecordBatch(result.GridPoints, result.Failed, len(result.Recommendations), result.Duration)
	h.obs.RecordGridPoints(ctx, result.GridPoints)
	h.logger.Info("recommendations generated", map[string]interface{}{
		"runId":      result.RunID,
		"gridPoints": result.GridPoints,
		"failed":     result.Failed,
		"count":      len(result.Recommendations),
		"durationMs": result.Duration.Milliseconds(),
	})

	h.publishResult(ctx, cacheReq, result)
	return newOutput(result, false), nil
}

// params validates the request against the caller contract and fills defaults.
func (h *Handler) params(input *Input) (recommend.Params, error) {
	if err := input.BoundingBox.Validate(); err != nil {
		return recommend.Params{}, errors.NewInvalidBoundingBoxError(err)
	}

	p := recommend.Params{
		BoundingBox:        input.BoundingBox,
		MaxRecommendations: input.MaxRecommendations,
		MinScore:           h.config.DefaultMinScore,
		GridResolution:     input.GridResolution,
	}
	if p.MaxRecommendations == 0 {
		p.MaxRecommendations = h.config.DefaultMaxRecommendations
	}
	if p.MaxRecommendations < 1 || p.MaxRecommendations > h.config.MaxRecommendations {
		return recommend.Params{}, errors.NewInvalidInputError(fmt.Sprintf(
			"maxRecommendations %d must be between 1 and %d", p.MaxRecommendations, h.config.MaxRecommendations))
	}
	if input.MinScore != nil {
		p.MinScore = *input.MinScore
	}
	if p.GridResolution == 0 {
		p.GridResolution = h.config.DefaultGridResolution
	}
	if p.GridResolution < h.config.MinGridResolution || p.GridResolution > h.config.MaxGridResolution {
		return recommend.Params{}, errors.NewInvalidInputError(fmt.Sprintf(
			"gridResolution %v must be between %v and %v", p.GridResolution, h.config.MinGridResolution, h.config.MaxGridResolution))
	}
	return p, nil
}

// profile takes one snapshot for the batch; a per-run weight override never touches the shared store.
func (h *Handler) profile(ctx context.Context, input *Input) (scoring.Profile, error) {
	snapshot := h.profiles.Snapshot()
	if h.weights != nil {
		synced, err := h.weights.Sync(ctx, h.profiles)
		if err != nil {
			h.logger.Warn("weight store unavailable, using current profile", map[string]interface{}{
				"error": err.Error(),
			})
		}
		snapshot = synced
	}

	if input.Weights == nil {
		return snapshot, nil
	}
	profile, err := scoring.NewProfile(*input.Weights, snapshot.Thresholds)
	if err != nil {
		return scoring.Profile{}, errors.NewInvalidWeightsError(err)
	}
	return profile, nil
}

// publishResult fans the run out to cache, index and event stream. Failures are logged only.
func (h *Handler) publishResult(ctx context.Context, req datastore.CacheRequest, result *recommend.Result) {
	if h.cache != nil {
		if err := h.cache.Set(ctx, req, result); err != nil {
			h.sinkFailed("cache", result.RunID, err)
		}
	}
	if h.index != nil {
		if err := h.index.IndexRun(ctx, result, req.BoundingBox); err != nil {
			h.sinkFailed("index", result.RunID, err)
		}
	}
	event := events.NewRecommendationsGenerated(result, req.BoundingBox)
	if err := h.publisher.PublishRecommendations(ctx, event); err != nil {
		h.sinkFailed("events", result.RunID, err)
	}
}

func (h *Handler) sinkFailed(sink, runID string, err error) {
	metrics.SitingSinkFailures.WithLabelValues(sink).Inc()
	h.logger.Warn("result sink failed", map[string]interface{}{
		"sink":  sink,
		"runId": runID,
		"error": err.Error(),
	})
}

func newOutput(result *recommend.Result, cached bool) *Output {
	recs := result.Recommendations
	if recs == nil {
		recs = []models.Recommendation{}
	}
	return &Output{
		RunID:           result.RunID,
		Recommendations: recs,
		Count:           len(recs),
		GridPoints:      result.GridPoints,
		FailedPoints:    result.Failed,
		FilteredPoints:  result.Filtered,
		Weights:         result.Profile.Weights,
		Thresholds:      result.Profile.Thresholds,
		Cached:          cached,
		GeneratedAt:     result.GeneratedAt,
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

// GetTaskType returns the job type this handler subscribes to.
func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
