package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("doctor"), http.StatusNotFound},
		{Conflict("taken"), http.StatusConflict},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.StatusCode())
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "doctor not found", NotFound("doctor").Error())
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to get doctor: %w", NotFound("doctor"))

	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "internal server error")
}
