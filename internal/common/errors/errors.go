// Package errors provides the error taxonomy shared by the matching engine
// and the workers, plus conversion to BPMN errors for Zeebe.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Matching engine
	ErrCodeCandidateEvaluationFailed  ErrorCode = "CANDIDATE_EVALUATION_FAILED"
	ErrCodeInvalidWeightConfiguration ErrorCode = "INVALID_WEIGHT_CONFIGURATION"
	ErrCodeGeoCalculationFailed       ErrorCode = "GEO_CALCULATION_FAILED"

	// Worker input / orchestration
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeMatchScoreFailed      ErrorCode = "MATCH_SCORE_FAILED"
	ErrCodeRankingFailed         ErrorCode = "RANKING_FAILED"
	ErrCodeRankingCancelled      ErrorCode = "RANKING_CANCELLED"

	// Preferences store
	ErrCodePreferencesLookupFailed  ErrorCode = "PREFERENCES_LOOKUP_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code, true
	}
	return "", false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCandidateEvaluationError reports a malformed candidate dropped from a batch.
func NewCandidateEvaluationError(candidateID, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateEvaluationFailed,
		Message:   "Candidate could not be evaluated",
		Details:   fmt.Sprintf("candidateId: %s, reason: %s", candidateID, reason),
		Retryable: false,
		Metadata:  map[string]interface{}{"candidateId": candidateID},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightConfigurationError is a diagnostic, never returned as a failure.
func NewInvalidWeightConfigurationError(dimension string, weight float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeightConfiguration,
		Message:   "Preference adjustment produced a negative weight",
		Details:   fmt.Sprintf("dimension: %s, weight: %.4f", dimension, weight),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeoCalculationError describes coordinates the location dimension ignored.
func NewGeoCalculationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeoCalculationFailed,
		Message:   "Invalid coordinates",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Job input failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMatchScoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatchScoreFailed,
		Message:   "Compatibility scoring failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRankingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRankingFailed,
		Message:   "Candidate ranking failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRankingCancelledError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRankingCancelled,
		Message:   "Candidate ranking stopped before completion",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPreferencesLookupFailedError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferencesLookupFailed,
		Message:   "Could not load match preferences",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Retry / BPMN mapping
// ==========================

// GetRetryCount returns how many times Zeebe should retry a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePreferencesLookupFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeRankingCancelled:
		return 2

	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ConvertToBPMNError maps a StandardError onto the BPMN error thrown to Zeebe.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CANDIDATE") || strings.Contains(codeStr, "WEIGHT") || strings.Contains(codeStr, "GEO"):
		return "MATCHING"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "PREFERENCES"):
		return "DATABASE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "RANKING") || strings.Contains(codeStr, "SCORE"):
		return "SCORING"
	default:
		return "OTHER"
	}
}
