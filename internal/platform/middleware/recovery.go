package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/hms/internal/platform/apperr"
)

// Recovery converts a handler panic into a StoreError, so the client gets the
// generic 500 body. The panic is logged with the request's context logger when
// Logger has attached one, otherwise with fallback.
func Recovery(fallback zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log := zerolog.Ctx(c.Request().Context())
				if log.GetLevel() == zerolog.Disabled {
					log = &fallback
				}
				log.Error().
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Str("stack", string(debug.Stack())).
					Msg("handler panicked")

				err = apperr.Store("serve "+c.Path(), fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
