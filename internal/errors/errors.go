package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrEmailTaken is returned when registering or updating to an email already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when registering with a username already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrIncorrectPassword is returned when the current password does not verify.
	ErrIncorrectPassword = errors.New("incorrect current password")
	// ErrNotAuthenticated is returned when the session cookie is missing or invalid.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUserInactive is returned when a disabled user presents a valid session.
	ErrUserInactive = errors.New("user is inactive")
	// ErrUserNotFound is returned when a session points at a deleted user.
	ErrUserNotFound = errors.New("user not found")
	// ErrRateLimited is returned when a client exceeds an endpoint's request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// FieldError describes one invalid request field.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ErrorResponse represents a standardized error response.
// Detail is either a message or a list of FieldError.
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
	Code   string      `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// NewValidationError creates a 422 error carrying per-field details.
func NewValidationError(fields []FieldError) *HTTPError {
	return &HTTPError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    "validation error",
		Code:       "VALIDATION_ERROR",
		Fields:     fields,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	if len(e.Fields) > 0 {
		return ErrorResponse{Detail: e.Fields, Code: e.Code}
	}
	return ErrorResponse{
		Detail: e.Message,
		Code:   e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "Incorrect username or password", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, "Email already registered", "EMAIL_TAKEN")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, "Username already taken", "USERNAME_TAKEN")
	case errors.Is(err, ErrIncorrectPassword):
		return NewHTTPError(http.StatusBadRequest, "Incorrect current password", "INCORRECT_PASSWORD")
	case errors.Is(err, ErrNotAuthenticated):
		return NewHTTPError(http.StatusUnauthorized, "Not authenticated", "NOT_AUTHENTICATED")
	case errors.Is(err, ErrUserInactive):
		return NewHTTPError(http.StatusUnauthorized, "User is inactive", "USER_INACTIVE")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusUnauthorized, "User not found", "USER_NOT_FOUND")
	case errors.Is(err, ErrRateLimited):
		return NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "RATE_LIMITED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
