package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("ctx: %w", NewPermissionDenied("nope"))
		de := ToDomainError(wrapped)
		require.NotNil(t, de)
		assert.Equal(t, CodePermissionDenied, de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		de := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("maps unknown errors to internal", func(t *testing.T) {
		de := ToDomainError(errors.New("boom"))
		assert.Equal(t, CodeInternal, de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewInvalidTransition("draft", "open"), CodeInvalidTransition))
	assert.True(t, IsCode(NewStepConflict("again", nil), CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToDomainError(NewStepConflict("x", nil)).HTTPStatus)
	assert.Equal(t, http.StatusConflict, ToDomainError(NewConflict("x", nil)).HTTPStatus)
	assert.Equal(t, http.StatusNotImplemented, ToDomainError(NewUnimplemented("x")).HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ToDomainError(NewInvalidTransition("a", "b")).HTTPStatus)
}
