// internal/workers/matching/score-compatibility/handler.go
package scorecompatibility

import (
	"context"

	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/workers/matching/shared"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-compatibility"
)

type Handler struct {
	config    *Config
	engines   *shared.EngineSet
	prefs     *shared.PreferenceResolver
	validator *validation.Validator
	obs       *observability.Observability
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

// NewHandler wires the worker. validator may be nil when the registry
// declares no input schema; obs may be nil.
func NewHandler(
	config *Config,
	engines *shared.EngineSet,
	prefs *shared.PreferenceResolver,
	validator *validation.Validator,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		engines:   engines,
		prefs:     prefs,
		validator: validator,
		obs:       obs,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := shared.TrackJob(h.obs, TaskType)

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := shared.DecodeVariables(h.validator, job.Variables, &input); err != nil {
		done(err)
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		done(err)
		h.failJob(client, job, err)
		return
	}

	done(nil)
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInputValidationError("input cannot be nil")
	}
	if err := input.Validate(); err != nil {
		return nil, errors.NewInputValidationError(err.Error())
	}

	category := input.category()
	engine, engineName := h.engines.For(category)

	prefs, source, err := h.prefs.Resolve(ctx, input.UserID, category, input.Preferences)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewMatchScoreFailedError(err)
	}

	result := engine.ScoreOne(input.Requester, input.Provider, prefs)

	h.logger.Info("match score calculated", map[string]interface{}{
		"userId":      input.UserID,
		"requesterId": input.Requester.ID,
		"providerId":  input.Provider.ID,
		"engine":      engineName,
		"preferences": string(source),
		"score":       result.Score,
	})

	return &Output{
		MatchScore:        result.Score,
		Dimensions:        result.Dimensions,
		Explanations:      result.Explanations,
		Boost:             result.Boost,
		Warnings:          result.Warnings,
		Engine:            engineName,
		PreferencesSource: string(source),
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
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.errors.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
