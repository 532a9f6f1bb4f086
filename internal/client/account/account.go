// Package account keeps the session and theme stores in step with the server.
package account

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ocgamma/internal/client/api"
)

// ErrNotAuthenticated is returned by operations that need a session when there is none.
var ErrNotAuthenticated = errors.New("no active session")

// ValidationError is a field rejected before any request was sent.
// It matches api.ErrValidation, like the server's 422 responses.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == api.ErrValidation
}

// Notifier receives user-facing status messages. *notify.Center implements it.
type Notifier interface {
	Success(title, message string) string
	Error(title, message string) string
	Warning(title, message string) string
}

type nopNotifier struct{}

func (nopNotifier) Success(string, string) string { return "" }
func (nopNotifier) Error(string, string) string   { return "" }
func (nopNotifier) Warning(string, string) string { return "" }

// report turns a failed call into a notification. Validation errors are
// left to the caller, which shows them next to the field.
func report(notes Notifier, log *zap.Logger, title string, err error) {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrValidation):
	case errors.Is(err, api.ErrThrottled):
		notes.Error(title, "Too many requests. Please wait a minute and try again.")
	case errors.Is(err, api.ErrUnauthorized):
		notes.Error(title, "Your session has expired. Please log in again.")
	case errors.As(err, &apiErr):
		notes.Error(title, apiErr.Detail)
	default:
		log.Error(title, zap.Error(err))
		notes.Error(title, "Could not reach the server. Please try again.")
	}
}
