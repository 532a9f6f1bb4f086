package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"wrapped email conflict", fmt.Errorf("register: %w", ErrEmailTaken), http.StatusConflict, "EMAIL_TAKEN"},
		{"username conflict", ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
		{"bad current password", ErrIncorrectPassword, http.StatusBadRequest, "INCORRECT_PASSWORD"},
		{"inactive", ErrUserInactive, http.StatusUnauthorized, "USER_INACTIVE"},
		{"throttled", ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
		})
	}
}

func TestValidationError_ResponseCarriesFields(t *testing.T) {
	fields := []FieldError{{Loc: []string{"body", "theme_preference"}, Msg: "must be one of: light dark system", Type: "oneof"}}
	resp := NewValidationError(fields).ToErrorResponse()

	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, fields, resp.Detail)
}
