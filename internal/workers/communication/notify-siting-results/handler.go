// internal/workers/communication/notify-siting-results/handler.go
package notifysitingresults

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/metrics"
	"h2-siting-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-siting-results"
)

var inputValidator = validation.MustValidator(inputSchema)

type HandlerOptions struct {
	Config *Config
	Topic  TopicPublisher
	Email  EmailSender
	Logger logger.Logger
}

type Handler struct {
	config  *Config
	service *Service
	logger  logger.Logger
	errors  *errors.ErrorHandler
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

	log := logger.ForTask(opts.Logger, TaskType)
	return &Handler{
		config: opts.Config,
		service: NewService(ServiceDependencies{
			Topic:  opts.Topic,
			Email:  opts.Email,
			Logger: log,
		}, opts.Config),
		logger: log,
		errors: errors.NewErrorHandler(log),
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
		output, err = h.service.Execute(ctx, input)
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
	return h.service.Execute(ctx, input)
}
