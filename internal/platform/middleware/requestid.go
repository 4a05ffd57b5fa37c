// Package middleware holds the HTTP middleware chain: request id, structured
// request logging, panic recovery, rate limiting, timeouts, and the audit
// hook for mutating requests.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/audit"
)

// RequestIDHeader is the header carrying the request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a correlation id to every request, preserving one sent
// by the client, and stashes the request origin for audit entries recorded
// deeper in the stack.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)

			ctx := audit.WithOrigin(req.Context(), audit.Origin{
				IP:        c.RealIP(),
				UserAgent: req.UserAgent(),
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
