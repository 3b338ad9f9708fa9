// internal/workers/siting/analyze-site/handler.go
package analyzesite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/metrics"
	"h2-siting-workers/internal/common/validation"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/analysis"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "analyze-site"
)

var inputValidator = validation.MustValidator(inputSchema)

type ProfileSyncer interface {
	Sync(ctx context.Context, cs *scoring.ConfigStore) (scoring.Profile, error)
}

type HandlerOptions struct {
	Config   *Config
	Loader   recommend.DatasetLoader
	Analyzer *analysis.Analyzer
	Profiles *scoring.ConfigStore
	Weights  ProfileSyncer
	Logger   logger.Logger
}

type Handler struct {
	config   *Config
	loader   recommend.DatasetLoader
	analyzer *analysis.Analyzer
	profiles *scoring.ConfigStore
	weights  ProfileSyncer
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("dataset loader is required")
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
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.NewAnalyzer(nil)
	}
	if opts.Profiles == nil {
		opts.Profiles, _ = scoring.NewConfigStore(scoring.DefaultProfile())
	}

	log := logger.ForTask(opts.Logger, TaskType)
	return &Handler{
		config:   opts.Config,
		loader:   opts.Loader,
		analyzer: opts.Analyzer,
		profiles: opts.Profiles,
		weights:  opts.Weights,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
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

	input, err := h.parseInput(job)
	var output *Output
	if err == nil {
		output, err = h.execute(ctx, input)
	}
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		metrics.RecordJob(TaskType, start, string(errors.Normalize(err).Code))
		return
	}

	h.completeJob(client, job, output)
	metrics.RecordJob(TaskType, start, "")
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
	point := input.Point()
	if err := point.Validate(); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	profile, err := h.profile(ctx, input.Weights)
	if err != nil {
		return nil, err
	}

	dataset, err := h.loader.LoadDataset(ctx, models.Union([]models.GeoPoint{point}))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewTimeoutError("dataset", err)
		}
		return nil, errors.NewDataSourceFailedError("dataset", err)
	}

	result, err := h.analyzer.Analyze(point, *dataset, profile)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if result.ScoringFallback {
		h.logger.Warn("site could not be scored, reporting zero score", map[string]interface{}{
			"latitude":  point.Latitude,
			"longitude": point.Longitude,
		})
	}

	h.logger.Info("site analyzed", map[string]interface{}{
		"latitude":   point.Latitude,
		"longitude":  point.Longitude,
		"totalScore": result.Score.TotalScore,
		"rating":     result.Score.ViabilityRating,
	})
	return &Output{Analysis: result, Weights: profile.Weights}, nil
}

func (h *Handler) profile(ctx context.Context, override *models.ScoringWeights) (scoring.Profile, error) {
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
	if override == nil {
		return snapshot, nil
	}
	profile, err := scoring.NewProfile(*override, snapshot.Thresholds)
	if err != nil {
		return scoring.Profile{}, errors.NewInvalidWeightsError(err)
	}
	return profile, nil
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

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
