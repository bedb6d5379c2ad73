package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple liveness endpoint used by load balancers.  It
// returns a plain text "ok" with a 200 status.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Ready runs every check and answers 503 when a required one fails.
// Optional checks (cache, broker) only show up in the body.
func Ready(required, optional map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := echo.Map{}
		for name, chk := range required {
			if err := chk(ctx); err != nil {
				out[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "up"
		}
		for name, chk := range optional {
			if err := chk(ctx); err != nil {
				out[name] = "degraded"
				continue
			}
			out[name] = "up"
		}
		return c.JSON(status, out)
	}
}
