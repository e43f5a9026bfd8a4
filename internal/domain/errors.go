package domain

import (
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   string              `json:"details,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	RequestID string              `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrInference      = "INFERENCE_ERROR"
	ErrStorage        = "STORAGE_ERROR"
	ErrRender         = "RENDER_ERROR"
	ErrNotFound       = "NOT_FOUND"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError lists required features that were absent or not numeric.
// Either list may be empty, never both.
type ValidationError struct {
	Missing []string `json:"missing_fields,omitempty"`
	Invalid []string `json:"invalid_fields,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid values: "+strings.Join(e.Invalid, ", "))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// NewValidationError returns nil when both lists are empty.
func NewValidationError(missing, invalid []string) *ValidationError {
	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing, Invalid: invalid}
}

// InferenceError wraps a classifier failure. Its message is safe to log but is not
// returned to API callers.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// StorageFault wraps a failed read or write against the record store.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Err)
}

func (e *StorageFault) Unwrap() error {
	return e.Err
}

// RenderError wraps a failure while turning a report document into bytes.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s report: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
