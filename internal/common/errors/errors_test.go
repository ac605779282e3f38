package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("resolve preferences: %w", NewPreferencesLookupFailedError("user-1", context.DeadlineExceeded))

	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodePreferencesLookupFailed, code)

	_, ok = CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	std := NewInputValidationError("requester.id: cannot be blank")
	assert.Same(t, std, Normalize(fmt.Errorf("decode: %w", std)))

	other := Normalize(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), other.Code)
	assert.Equal(t, "unexpected", other.Details)
	assert.False(t, other.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		retryable bool
		retries   int
	}{
		{"input validation", NewInputValidationError("bad"), false, 0},
		{"ranking failed", NewRankingFailedError(fmt.Errorf("panic")), false, 0},
		{"ranking cancelled", NewRankingCancelledError(context.Canceled), true, 2},
		{"preferences lookup", NewPreferencesLookupFailedError("user-1", fmt.Errorf("conn reset")), true, 3},
		{"query timeout", NewQueryTimeoutError("select_preferences"), true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err.WithMetadata("taskType", "rank-candidates"))

			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.retryable, bpmn.Retryable)
			assert.Equal(t, tt.retries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["errorCode"])
			assert.Equal(t, "rank-candidates", vars["taskType"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeCandidateEvaluationFailed, "MATCHING"},
		{ErrCodeInvalidWeightConfiguration, "MATCHING"},
		{ErrCodePreferencesLookupFailed, "DATABASE"},
		{ErrCodeQueryTimeout, "DATABASE"},
		{ErrCodeInputValidationFailed, "VALIDATION"},
		{ErrCodeMatchScoreFailed, "SCORING"},
		{ErrCodeRankingCancelled, "SCORING"},
		{"INTERNAL_ERROR", "OTHER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GetErrorCategory(tt.code), string(tt.code))
	}
}
