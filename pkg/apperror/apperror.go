// Package apperror defines the domain error taxonomy shared by all clinic
// services: field-keyed validation failures, booking conflicts, scope
// violations, and missing records. Handlers never build HTTP responses from
// these directly; the echo error handler in ErrorHandler maps them.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrForbidden signals a scope violation. It is surfaced uniformly
	// whether or not the target record exists.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound signals a legitimately absent record inside the caller's
	// scope. Out-of-scope lookups also map here so existence never leaks.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries one or more messages keyed by input field name.
// General (non-field) messages go under the "non_field" key.
type ValidationError struct {
	Fields map[string][]string
}

// NonFieldKey is the pseudo-field for messages not tied to a single input.
const NonFieldKey = "non_field"

func NewValidation(field, msg string) *ValidationError {
	v := &ValidationError{Fields: map[string][]string{}}
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) *ValidationError {
	if v.Fields == nil {
		v.Fields = map[string][]string{}
	}
	v.Fields[field] = append(v.Fields[field], msg)
	return v
}

func (v *ValidationError) Empty() bool { return len(v.Fields) == 0 }

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError reports an overlapping active appointment. ConflictingID is
// a diagnostic for admin troubleshooting and logs; it is not included in the
// response body.
type ConflictError struct {
	DoctorID      uuid.UUID
	ConflictingID uuid.UUID
}

func (c *ConflictError) Error() string {
	return fmt.Sprintf("appointment overlaps an active appointment for doctor %s", c.DoctorID)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// ErrorHandler returns an echo HTTPErrorHandler that maps the taxonomy to
// status codes and JSON bodies. Unexpected errors become a generic 500 and
// are logged with their detail; the detail never reaches the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			validation *ValidationError
			conflict   *ConflictError
			httpErr    *echo.HTTPError
		)

		switch {
		case errors.As(err, &validation):
			_ = c.JSON(http.StatusBadRequest, map[string]interface{}{
				"errors": validation.Fields,
			})
		case errors.As(err, &conflict):
			logger.Info().
				Str("doctor_id", conflict.DoctorID.String()).
				Str("conflicting_id", conflict.ConflictingID.String()).
				Msg("booking conflict rejected")
			_ = c.JSON(http.StatusConflict, map[string]string{
				"error": "appointment overlaps with another active appointment for this doctor",
				"code":  "conflict",
			})
		case errors.Is(err, ErrForbidden):
			_ = c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		case errors.Is(err, ErrNotFound):
			_ = c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		case errors.As(err, &httpErr):
			msg := httpErr.Message
			if s, ok := msg.(string); ok {
				_ = c.JSON(httpErr.Code, map[string]string{"error": s})
			} else {
				_ = c.JSON(httpErr.Code, map[string]interface{}{"error": msg})
			}
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
			_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
	}
}
