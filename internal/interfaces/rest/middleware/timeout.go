package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AbortRequestOption options of AbortRequest
type AbortRequestOption struct {
	Timeout time.Duration
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper
}

// AbortRequest bound the request context with a deadline, blocking calls observing it fail after Timeout
func AbortRequest(option *AbortRequestOption) echo.MiddlewareFunc {
	skipper := middleware.DefaultSkipper
	if option.Skipper != nil {
		skipper = option.Skipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if option.Timeout <= 0 || skipper(c) {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), option.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
