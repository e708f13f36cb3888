package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Storage(fmt.Errorf("disk full"), "write snapshot")

	assert.True(t, Is(err, ErrStorage))
	assert.False(t, Is(err, ErrMalformed))
	assert.Equal(t, "write snapshot: disk full", err.Error())
}

func TestError_WrappedByFmt(t *testing.T) {
	inner := TooLargef("file is %d bytes", 10)
	err := fmt.Errorf("upload: %w", inner)

	assert.True(t, Is(err, ErrTooLarge))
	assert.Equal(t, CodeTooLarge, CodeOf(err))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(New("boom")))
}

func TestError_Unwrap(t *testing.T) {
	cause := New("parse failure")
	err := Malformed(cause, "decode import")

	assert.Equal(t, cause, Unwrap(err))
	assert.True(t, Is(err, cause))
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeMalformed, http.StatusBadRequest},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeStorage, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	details := map[string]string{"title": "is required"}
	err := ErrValidation.WithDetails(details)

	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrValidation.Details, "sentinel must not be mutated")
}
