package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error classes, matched with errors.Is against *Error and transport failures.
var (
	ErrUnauthorized = errors.New("not authenticated")
	ErrThrottled    = errors.New("too many requests, try again later")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrTransport    = errors.New("transport failure")
)

// FieldError is one entry of a 422 detail list.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Field returns the offending field name, the last element of Loc.
func (f FieldError) Field() string {
	if len(f.Loc) == 0 {
		return ""
	}
	return f.Loc[len(f.Loc)-1]
}

// Error is a non-2xx response decoded from the {detail, code} envelope.
type Error struct {
	Status int
	Code   string
	Detail string
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field()+": "+f.Msg)
		}
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Detail)
}

// Is maps the status code onto the error classes.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrThrottled:
		return e.Status == http.StatusTooManyRequests
	case ErrValidation:
		return e.Status == http.StatusUnprocessableEntity
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// FieldMessage returns the message for field, if the server reported one.
func (e *Error) FieldMessage(field string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field() == field {
			return f.Msg, true
		}
	}
	return "", false
}

type envelope struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status, Detail: http.StatusText(status)}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return e
	}
	e.Code = env.Code

	var detail string
	if err := json.Unmarshal(env.Detail, &detail); err == nil {
		e.Detail = detail
		return e
	}
	var fields []FieldError
	if err := json.Unmarshal(env.Detail, &fields); err == nil {
		e.Fields = fields
		e.Detail = "validation error"
	}
	return e
}
