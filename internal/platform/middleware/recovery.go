package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a plain error for the central error
// handler, which renders the generic 500 body. The stack is logged here,
// where it is still available, together with the request correlation id.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				req := c.Request()
				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Bytes("stack", debug.Stack()).
					Msgf("panic: %v", r)

				err = fmt.Errorf("panic in %s %s: %v", req.Method, req.URL.Path, r)
			}()
			return next(c)
		}
	}
}
