// internal/workers/siting/forecast-site-production/handler.go
package forecastsiteproduction

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
	TaskType = "forecast-site-production"
)

var inputValidator = validation.MustValidator(inputSchema)

// HandlerOptions wires the handler. Loader is only used when the job carries a bare point.
type HandlerOptions struct {
	Config   *Config
	Loader   recommend.DatasetLoader
	Scorer   *scoring.Scorer
	Profiles recommend.ProfileSource
	Logger   logger.Logger
}

type Handler struct {
	config   *Config
	loader   recommend.DatasetLoader
	scorer   *scoring.Scorer
	profiles recommend.ProfileSource
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer()
	}
	if opts.Profiles == nil {
		opts.Profiles, _ = scoring.NewConfigStore(scoring.DefaultProfile())
	}

	log := logger.ForTask(opts.Logger, TaskType)
	return &Handler{
		config:   opts.Config,
		loader:   opts.Loader,
		scorer:   opts.Scorer,
		profiles: opts.Profiles,
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
	years := input.Years
	if years == 0 {
		years = h.config.DefaultYears
	}

	score, fallback, err := h.siteScore(ctx, input)
	if err != nil {
		return nil, err
	}

	forecast, err := analysis.Forecast(score, years)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	h.logger.Info("production forecast computed", map[string]interface{}{
		"latitude":            forecast.Latitude,
		"longitude":           forecast.Longitude,
		"years":               len(forecast.Years),
		"totalHydrogenTonnes": forecast.TotalHydrogenTonnes,
	})
	return &Output{Forecast: forecast, ScoringFallback: fallback}, nil
}

// siteScore prefers a score handed over by an upstream task and scores the point otherwise.
func (h *Handler) siteScore(ctx context.Context, input *Input) (models.SiteScore, bool, error) {
	if input.SiteScore != nil {
		if err := input.SiteScore.Point().Validate(); err != nil {
			return models.SiteScore{}, false, errors.NewInvalidInputError(err.Error())
		}
		return *input.SiteScore, false, nil
	}
	if input.Latitude == nil || input.Longitude == nil {
		return models.SiteScore{}, false, errors.NewInvalidInputError("either siteScore or latitude and longitude is required")
	}

	point := models.GeoPoint{Latitude: *input.Latitude, Longitude: *input.Longitude}
	if err := point.Validate(); err != nil {
		return models.SiteScore{}, false, errors.NewInvalidInputError(err.Error())
	}
	if h.loader == nil {
		return models.SiteScore{}, false, errors.NewInternalError(fmt.Errorf("no dataset loader configured to score a bare point"))
	}

	dataset, err := h.loader.LoadDataset(ctx, models.Union([]models.GeoPoint{point}))
	if err != nil {
		if ctx.Err() != nil {
			return models.SiteScore{}, false, errors.NewTimeoutError("dataset", err)
		}
		return models.SiteScore{}, false, errors.NewDataSourceFailedError("dataset", err)
	}

	score, err := h.scorer.ScoreOrZero(point, *dataset, h.profiles.Snapshot())
	if err != nil {
		h.logger.Warn("site could not be scored, forecasting from zero score", map[string]interface{}{
			"latitude":  point.Latitude,
			"longitude": point.Longitude,
			"error":     err.Error(),
		})
	}
	return score, err != nil, nil
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
