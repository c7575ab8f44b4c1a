// Package errors provides the error taxonomy shared by the HTTP API and the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound              ErrorCode = "NOT_FOUND"
	ErrCodeUpstreamRequestFailed ErrorCode = "UPSTREAM_REQUEST_FAILED"
	ErrCodeMissingCredential     ErrorCode = "MISSING_CREDENTIAL"
	ErrCodeUnknownEntityType     ErrorCode = "UNKNOWN_ENTITY_TYPE"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
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

// NewValidationFailedError reports a caller-correctable request problem.
func NewValidationFailedError(param, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Parameter %q is required", param),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"parameter": param},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError reports a malformed request envelope.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Invalid request: " + details,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a valid request that matched zero items.
func NewNotFoundError(entityType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("No %s results found", entityType),
		Details:   fmt.Sprintf("entityType: %s", entityType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamStatusError reports a non-success HTTP status from an upstream API.
func NewUpstreamStatusError(service string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamRequestFailed,
		Message:   upstreamMessage(service, body),
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: false,
		Metadata: map[string]interface{}{
			"service": service,
			"status":  status,
			"body":    body,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamRequestFailedError reports a transport-level failure talking to an upstream API.
func NewUpstreamRequestFailedError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamRequestFailed,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMissingCredentialError reports an API key absent from configuration.
func NewMissingCredentialError(service string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingCredential,
		Message:   fmt.Sprintf("API key for '%s' is not configured", service),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownEntityTypeError reports a catalog lookup miss.
func NewUnknownEntityTypeError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEntityType,
		Message:   fmt.Sprintf("Unknown entity type %q", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// upstreamMessage prefers a message reported by the upstream body over a generic one.
func upstreamMessage(service, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Sprintf("External service '%s' request failed", service)
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("External service '%s' request failed: %s", service, body)
}

// ==========================
// 4. Error Conversion
// ==========================

// AsStandard extracts a StandardError from err, wrapping foreign errors as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error to the status code returned by the web layer.
func HTTPStatus(err error) int {
	switch AsStandard(err).Code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the recommended retry count. The summary pipeline never retries.
func GetRetryCount(code ErrorCode) int {
	return 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"), strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NO_RESULTS"
	case strings.Contains(codeStr, "UPSTREAM"), strings.Contains(codeStr, "CREDENTIAL"):
		return "UPSTREAM"
	default:
		return "OTHER"
	}
}
