// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
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
	// Caller contract violations; the process must fix its input.
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidWeights     ErrorCode = "INVALID_WEIGHTS"
	ErrCodeInvalidBoundingBox ErrorCode = "INVALID_BOUNDING_BOX"
	ErrCodeInsufficientSites  ErrorCode = "INSUFFICIENT_SITES"

	// Batch-level failures of the siting core.
	ErrCodeGridGenerationFailed ErrorCode = "GRID_GENERATION_FAILED"

	// Technical failures of collaborators.
	ErrCodeDataSourceFailed       ErrorCode = "DATA_SOURCE_FAILED"
	ErrCodeWeightStoreFailed      ErrorCode = "WEIGHT_STORE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value that is forwarded as a BPMN error variable.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidInputError creates a non-retryable error for malformed job variables.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

// NewInvalidWeightsError creates a non-retryable error for weights outside 1.0 ± tolerance.
func NewInvalidWeightsError(err error) *StandardError {
	return newError(ErrCodeInvalidWeights, "Scoring weights rejected", err.Error(), false, err)
}

// NewInvalidBoundingBoxError creates a non-retryable error for a malformed search area.
func NewInvalidBoundingBoxError(err error) *StandardError {
	return newError(ErrCodeInvalidBoundingBox, "Bounding box rejected", err.Error(), false, err)
}

// NewInsufficientSitesError creates a non-retryable error for comparisons with too few sites.
func NewInsufficientSitesError(got, want int) *StandardError {
	return newError(ErrCodeInsufficientSites, "Not enough sites to compare",
		fmt.Sprintf("got %d sites, need at least %d", got, want), false, nil)
}

// NewGridGenerationFailedError creates a non-retryable batch failure.
func NewGridGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGridGenerationFailed, "Candidate grid generation failed", err.Error(), false, err)
}

// NewDataSourceFailedError creates a retryable error for dataset loading.
func NewDataSourceFailedError(source string, err error) *StandardError {
	return newError(ErrCodeDataSourceFailed, "Infrastructure data source error",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), true, err)
}

// NewWeightStoreFailedError creates a retryable error for the scoring weight store.
func NewWeightStoreFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeWeightStoreFailed, "Scoring weight store error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true, err)
}

// NewExternalServiceError creates a retryable error for an unreachable dependency.
func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' unavailable", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modeled in the processes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:           "INVALID_INPUT",
	ErrCodeInvalidWeights:         "INVALID_WEIGHTS",
	ErrCodeInvalidBoundingBox:     "INVALID_BOUNDING_BOX",
	ErrCodeInsufficientSites:      "INSUFFICIENT_SITES",
	ErrCodeGridGenerationFailed:   "GRID_GENERATION_FAILED",
	ErrCodeDataSourceFailed:       "DATA_SOURCE_FAILED",
	ErrCodeWeightStoreFailed:      "WEIGHT_STORE_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeExternalService:        "EXTERNAL_SERVICE_ERROR",
	ErrCodeTimeout:                "TIMEOUT_ERROR",
	ErrCodeInternal:               "INTERNAL_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDataSourceFailed,
		ErrCodeWeightStoreFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0 // caller errors and batch failures
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

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
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// Normalize returns err as a StandardError. Context deadlines become retryable timeouts and
// anything unrecognised becomes a non-retryable internal error.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("job", err)
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "INSUFFICIENT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "GRID"):
		return "SITING"
	case strings.Contains(codeStr, "DATA_SOURCE") || strings.Contains(codeStr, "WEIGHT_STORE"):
		return "DATA"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EXTERNAL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
