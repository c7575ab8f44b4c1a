package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationFailedError("genre", "blank"), http.StatusBadRequest},
		{"invalid request", NewInvalidRequestError("take: must be >= 0"), http.StatusBadRequest},
		{"not found", NewNotFoundError("Movie"), http.StatusNotFound},
		{"upstream", NewUpstreamStatusError("insights", 502, "bad gateway"), http.StatusInternalServerError},
		{"missing credential", NewMissingCredentialError("completion"), http.StatusInternalServerError},
		{"unknown entity", NewUnknownEntityTypeError("spaceship"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("stage: %w", NewNotFoundError("Book")), http.StatusNotFound},
		{"foreign", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAsStandard_WrapsForeignErrors(t *testing.T) {
	cause := stderrors.New("connection reset")
	stdErr := AsStandard(cause)

	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "connection reset", stdErr.Details)
	assert.True(t, stderrors.Is(stdErr, cause))
	assert.Nil(t, AsStandard(nil))
}

func TestNewUpstreamStatusError(t *testing.T) {
	stdErr := NewUpstreamStatusError("insights", http.StatusUnauthorized, `{"error":"invalid key"}`)

	assert.Equal(t, ErrCodeUpstreamRequestFailed, stdErr.Code)
	assert.Equal(t, http.StatusUnauthorized, stdErr.Metadata["status"])
	assert.Contains(t, stdErr.Message, "invalid key")
	assert.False(t, stdErr.Retryable)

	long := NewUpstreamStatusError("insights", 500, strings.Repeat("x", 2000))
	assert.Less(t, len(long.Message), 600)

	blank := NewUpstreamStatusError("completion", 500, "  ")
	assert.Equal(t, "External service 'completion' request failed", blank.Message)
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewNotFoundError("Place"))

	assert.Equal(t, "NOT_FOUND", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
	assert.False(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "NOT_FOUND", vars["originalErrorCode"])
	assert.NotEmpty(t, vars["timestamp"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownEntityType))
	assert.Equal(t, "NO_RESULTS", GetErrorCategory(ErrCodeNotFound))
	assert.Equal(t, "UPSTREAM", GetErrorCategory(ErrCodeMissingCredential))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
