package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// DefaultTimeout bounds request-scoped work when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// errorBody is the JSON shape of every failed request.  Retryable tells
// the client whether offering "try again" makes sense.
type errorBody struct {
	Error     string   `json:"error"`
	Retryable bool     `json:"retryable"`
	Seats     []string `json:"seats,omitempty"`
}

// withTimeout derives the request-scoped context used for service calls.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// respondError maps the service error taxonomy onto HTTP.  Messages for
// validation errors are passed through; everything else gets a fixed
// message so driver and broker errors never reach the client.
func respondError(c echo.Context, err error) error {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger(c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, body)
}

func classify(err error) (int, errorBody) {
	var conflict *service.SeatConflictError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{Error: "the request timed out, please try again", Retryable: true}
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorBody{Error: "some seats are no longer available", Seats: conflict.Labels}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, errorBody{Error: "the resource was changed by someone else"}
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, errorBody{Error: "this booking can no longer be changed"}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "forbidden"}
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorBody{Error: "service temporarily unavailable, please try again", Retryable: true}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

// loggerKey is where the router stores the process logger.
const loggerKey = "logger"

func logger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(loggerKey).(*zerolog.Logger); ok {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// WithLogger makes log available to handlers through the echo context.
func WithLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(loggerKey, &log)
			return next(c)
		}
	}
}
