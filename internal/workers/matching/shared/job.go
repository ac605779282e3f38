package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/common/validation"
)

// DecodeVariables checks raw job variables against the activity's input
// schema and unmarshals them into out. A nil validator skips the schema.
func DecodeVariables(validator *validation.Validator, variables string, out interface{}) error {
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}

	if validator != nil {
		result, err := validator.ValidateJSON(variables)
		if err != nil {
			return errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
		}
		if !result.Valid {
			return errors.NewInputValidationError(strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	if err := json.Unmarshal([]byte(variables), out); err != nil {
		return errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

// TrackJob starts the Prometheus and OpenTelemetry bookkeeping for one job.
// The returned func must be called once with the job's final error.
func TrackJob(obs *observability.Observability, taskType string) func(err error) {
	start := time.Now()
	done := metrics.TrackJob(taskType)

	return func(err error) {
		status, code := "completed", ""
		if err != nil {
			status = "failed"
			code = string(errors.Normalize(err).Code)
		}
		done(code)

		ctx := context.Background()
		obs.RecordJobProcessed(ctx, taskType, status)
		obs.RecordJobDuration(ctx, taskType, time.Since(start), status)
	}
}
