// internal/workers/admin/update-scoring-weights/handler.go
package updatescoringweights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/metrics"
	"h2-siting-workers/internal/common/validation"
	"h2-siting-workers/internal/datastore"
	"h2-siting-workers/internal/siting/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-scoring-weights"
)

var inputValidator = validation.MustValidator(inputSchema)

// ProfileStore persists the shared profile for other replicas.
type ProfileStore interface {
	Save(ctx context.Context, profile datastore.StoredProfile) error
}

type HandlerOptions struct {
	Config   *Config
	Store    ProfileStore
	Profiles *scoring.ConfigStore
	Logger   logger.Logger
	Clock    func() time.Time
}

type Handler struct {
	config   *Config
	store    ProfileStore
	profiles *scoring.ConfigStore
	logger   logger.Logger
	errors   *errors.ErrorHandler
	now      func() time.Time
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
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
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	log := logger.ForTask(opts.Logger, TaskType)
	return &Handler{
		config:   opts.Config,
		store:    opts.Store,
		profiles: opts.Profiles,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
		now:      opts.Clock,
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

// execute persists first and swaps the local profile only after the store accepted it,
// so a failed save leaves every replica on the same profile.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	previous := h.profiles.Snapshot()

	if err := input.Weights.Validate(); err != nil {
		return nil, errors.NewInvalidWeightsError(err)
	}
	thresholds := previous.Thresholds
	if input.Thresholds != nil {
		if err := input.Thresholds.Validate(); err != nil {
			return nil, errors.NewInvalidInputError(err.Error())
		}
		thresholds = *input.Thresholds
	}

	stored := datastore.StoredProfile{
		Weights:    input.Weights,
		Thresholds: thresholds,
		UpdatedAt:  h.now().UTC(),
		UpdatedBy:  input.UpdatedBy,
	}
	if h.store != nil {
		if err := h.store.Save(ctx, stored); err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewTimeoutError("weight store", err)
			}
			return nil, errors.NewWeightStoreFailedError("save", err)
		}
	}

	current, err := h.profiles.Replace(stored.Profile())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	h.logger.Info("scoring profile updated", map[string]interface{}{
		"weights":         current.Weights,
		"previousWeights": previous.Weights,
		"updatedBy":       input.UpdatedBy,
	})
	return &Output{
		Weights:            current.Weights,
		Thresholds:         current.Thresholds,
		PreviousWeights:    previous.Weights,
		PreviousThresholds: previous.Thresholds,
		UpdatedAt:          stored.UpdatedAt,
		UpdatedBy:          stored.UpdatedBy,
	}, nil
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
