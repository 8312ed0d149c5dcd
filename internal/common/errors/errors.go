// Package errors provides standardized error handling for the insight engine
// and its BPMN workflow integration.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Computation-layer conditions. These are expected steady-state outcomes:
	// the pipeline treats them as "produces nothing", not as batch failures.
	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
	ErrCodeInsufficientData      ErrorCode = "INSUFFICIENT_DATA"

	// Embedding capability errors.
	ErrCodeEmbeddingAPIFailed  ErrorCode = "EMBEDDING_API_FAILED"
	ErrCodeEmbeddingAPITimeout ErrorCode = "EMBEDDING_API_TIMEOUT"

	// Persistence errors. Isolated per item so one failure cannot abort a batch.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeInvalidRecord      ErrorCode = "INVALID_RECORD"

	// Infrastructure errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"

	// Batch/job-level errors.
	ErrCodeBatchInputInvalid ErrorCode = "BATCH_INPUT_INVALID"
	ErrCodeBatchFailed       ErrorCode = "BATCH_FAILED"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsSkipCondition reports whether the error is an expected computation-layer
// outcome that callers absorb as "no output" rather than surface.
func (e *StandardError) IsSkipCondition() bool {
	return e.Code == ErrCodeCapabilityUnavailable || e.Code == ErrCodeInsufficientData
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ConvertToBPMNError maps a StandardError onto its BPMN form.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		Retries:   GetRetryCount(err.Code),
	}
}

// GetRetryCount returns how many workflow-level retries a code warrants.
// Only transient infrastructure failures are retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryTimeout, ErrCodeSearchTimeout,
		ErrCodeEmbeddingAPITimeout, ErrCodePersistenceFailure:
		return 3
	case ErrCodeQueryExecutionFailed, ErrCodeSearchQueryFailed, ErrCodeEmbeddingAPIFailed:
		return 2
	default:
		return 0
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCapabilityUnavailableError marks the embedding capability as absent.
// Dependent generation degrades to "no recommendations" rather than failing.
func NewCapabilityUnavailableError(capability string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapabilityUnavailable,
		Message:   "Capability not loaded",
		Details:   fmt.Sprintf("capability: %s", capability),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientDataError marks a metric/entity as below its minimum sample count.
func NewInsufficientDataError(metric string, have, need int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientData,
		Message:   "Not enough samples to forecast",
		Details:   fmt.Sprintf("metric: %s, samples: %d, minimum: %d", metric, have, need),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingAPIFailedError creates a retryable embedding API error.
func NewEmbeddingAPIFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingAPIFailed,
		Message:   "Embedding API call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingAPITimeoutError creates a retryable embedding API timeout error.
func NewEmbeddingAPITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingAPITimeout,
		Message:   "Embedding API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailureError creates a retryable per-item store error.
func NewPersistenceFailureError(entity string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailure,
		Message:   "Store write failed",
		Details:   fmt.Sprintf("entity: %s, error: %s", entity, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRecordError marks a malformed stored record; callers skip the row.
func NewInvalidRecordError(entity, id, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecord,
		Message:   "Malformed stored record",
		Details:   fmt.Sprintf("entity: %s, id: %s, reason: %s", entity, id, reason),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable document search error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Document search query error",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable document search timeout error.
func NewSearchTimeoutError(index string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Document search timeout",
		Details:   fmt.Sprintf("index: %s", index),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache access error. Callers
// treat it as a miss, not a failure.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBatchInputInvalidError creates a non-retryable batch input error.
func NewBatchInputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchInputInvalid,
		Message:   "Batch input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBatchFailedError wraps an unexpected batch-level failure.
func NewBatchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchFailed,
		Message:   "Batch run failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
