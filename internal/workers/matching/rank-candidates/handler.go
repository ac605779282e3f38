// internal/workers/matching/rank-candidates/handler.go
package rankcandidates

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/matching"
	"marketplace-matching/internal/workers/matching/shared"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "rank-candidates"
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
	direction, _ := input.direction()

	count := input.candidateCount()
	if count > h.config.MaxCandidates {
		return nil, errors.NewInputValidationError(
			fmt.Sprintf("%d candidates exceed the limit of %d", count, h.config.MaxCandidates))
	}

	category := input.category()
	engine, engineName := h.engines.For(category)

	prefs, source, err := h.prefs.Resolve(ctx, input.UserID, category, input.Preferences)
	if err != nil {
		return nil, err
	}

	rankingID := uuid.New().String()
	start := time.Now()

	var (
		ranked   []RankedCandidate
		rejected []matching.Rejection
		warnings []string
	)
	switch direction {
	case DirectionRequesters:
		batch, err := engine.ScoreDecodedRequesters(ctx, *input.Provider, input.requesterSet(), prefs)
		if err != nil {
			return nil, h.batchError(ctx, err)
		}
		ranked, warnings = toRanked(matching.TopK(batch, input.Limit))
		rejected = batch.Rejected
	case DirectionProviders:
		batch, err := engine.ScoreDecodedProviders(ctx, *input.Requester, input.providerSet(), prefs)
		if err != nil {
			return nil, h.batchError(ctx, err)
		}
		ranked, warnings = toRanked(matching.TopK(batch, input.Limit))
		rejected = batch.Rejected
	}
	if rejected == nil {
		rejected = []matching.Rejection{}
	}

	duration := time.Since(start)
	h.obs.RecordBatchSize(ctx, TaskType, count)

	h.logger.Info("ranking completed", map[string]interface{}{
		"rankingId":   rankingID,
		"direction":   string(direction),
		"engine":      engineName,
		"inputCount":  count,
		"outputCount": len(ranked),
		"rejected":    len(rejected),
		"durationMs":  duration.Milliseconds(),
	})

	if duration > h.config.SlowRanking {
		h.logger.Warn("ranking exceeded threshold", map[string]interface{}{
			"rankingId":   rankingID,
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": h.config.SlowRanking.Milliseconds(),
		})
	}

	return &Output{
		RankingID:         rankingID,
		Direction:         direction,
		Ranked:            ranked,
		Rejected:          rejected,
		Warnings:          warnings,
		InputCount:        count,
		OutputCount:       len(ranked),
		Engine:            engineName,
		PreferencesSource: string(source),
		DurationMs:        duration.Milliseconds(),
	}, nil
}

// batchError maps engine batch errors. A partial batch after cancellation
// is not worth completing the job with.
func (h *Handler) batchError(ctx context.Context, err error) error {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewRankingCancelledError(err)
	}
	return errors.NewRankingFailedError(err)
}

func toRanked[T matching.Identified](scored []matching.Scored[T]) ([]RankedCandidate, []string) {
	out := make([]RankedCandidate, len(scored))
	var warnings []string
	for i, s := range scored {
		out[i] = RankedCandidate{
			Rank:         i + 1,
			CandidateID:  s.Candidate.CandidateID(),
			Score:        s.Result.Score,
			Dimensions:   s.Result.Dimensions,
			Explanations: s.Result.Explanations,
			Boost:        s.Result.Boost,
		}
		if warnings == nil {
			warnings = s.Result.Warnings
		}
	}
	return out, warnings
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
