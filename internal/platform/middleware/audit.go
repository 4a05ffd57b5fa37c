package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/platform/audit"
	"github.com/clinicops/clinicops/internal/platform/auth"
)

// Audit returns Echo middleware that records mutating requests under
// /api/v1/ to the audit ledger. Reads are not audited here; sensitive
// read paths (visit notes) record their own READ entries at the
// handler level where the object identity is known precisely.
//
// The entry is built after the handler returns so that failed requests
// (validation errors, conflicts) are not recorded as if they happened.
func Audit(logger zerolog.Logger, recorder audit.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			action, mutating := methodToAction(req.Method)
			if !mutating || !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}

			entry := audit.Entry{
				Action:     action,
				ObjectType: objectTypeFromPath(path),
				ObjectID:   objectIDFromPath(path),
				IP:         c.RealIP(),
				UserAgent:  req.UserAgent(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.Metadata = map[string]interface{}{"request_id": rid}
			}
			if actor := auth.ActorFromContext(req.Context()); !actor.Zero() {
				actorID := actor.ID
				entry.ActorID = &actorID
				entry.ActorEmail = actor.Email
			}

			recorder.Record(req.Context(), entry)

			logger.Info().
				Str("action", string(entry.Action)).
				Str("object_type", entry.ObjectType).
				Str("object_id", entry.ObjectID).
				Str("actor_email", entry.ActorEmail).
				Str("method", req.Method).
				Str("path", path).
				Int("status", c.Response().Status).
				Msg("audited request")

			return nil
		}
	}
}

func methodToAction(method string) (audit.Action, bool) {
	switch method {
	case http.MethodPost:
		return audit.ActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return audit.ActionUpdate, true
	case http.MethodDelete:
		return audit.ActionDelete, true
	default:
		return "", false
	}
}

// objectTypeFromPath takes the first resource segment after /api/v1/,
// skipping the admin/doctor group prefix, e.g.
// /api/v1/admin/appointments/<id>/status -> appointments.
func objectTypeFromPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && (segments[0] == "admin" || segments[0] == "doctor") {
		segments = segments[1:]
	}
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// objectIDFromPath returns the first UUID segment found in the path,
// or "" when the path carries none (collection-level creates).
func objectIDFromPath(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if _, err := uuid.Parse(seg); err == nil {
			return seg
		}
	}
	return ""
}
