// Package apperr defines the error kinds every domain operation fails with and
// how they surface over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage"
)

// Error is a classified failure. Message is safe to show to a caller; Cause
// is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that the named record does not exist.
func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// NotFoundMessage is NotFound with a caller-supplied message.
func NotFoundMessage(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Storage wraps an unexpected persistence failure.
func Storage(cause error) error {
	return &Error{Kind: KindStorage, Message: "storage failure", Cause: cause}
}

// KindOf returns the kind of err, or KindStorage for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPError converts err into the response a caller sees. Storage failures are
// reported generically and keep the cause as the internal error for logging.
func HTTPError(err error) *echo.HTTPError {
	var ae *Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	switch ae.Kind {
	case KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, ae.Message)
	case KindConflict:
		return echo.NewHTTPError(http.StatusConflict, ae.Message)
	case KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "no such record")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
