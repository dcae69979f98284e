package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConcurrencyConflict(t *testing.T) {
	err := NewConcurrencyConflict("adjustment", "doc-1")

	assert.Equal(t, CodeConcurrencyConflict, err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Equal(t, "adjustment", err.Details["entity"])
	assert.Equal(t, "doc-1", err.Details["id"])
	assert.True(t, IsConcurrencyConflict(err))
}

func TestAsAppError_UnwrapsChain(t *testing.T) {
	inner := NewConcurrencyConflict("reorder_config", "cfg-1")
	wrapped := fmt.Errorf("upsert reorder config: %w", inner)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeConcurrencyConflict, appErr.Code)
	assert.True(t, IsConcurrencyConflict(wrapped))
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("row locked")
	err := NewConcurrencyConflict("adjustment", "doc-2").
		WithDetail("version", 3).
		WithCause(cause)

	assert.Equal(t, 3, err.Details["version"])
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeConcurrencyConflict)
}
