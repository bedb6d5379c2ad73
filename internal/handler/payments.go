package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/gateway"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// PaymentHandler receives the customer back from the payment gateway.
type PaymentHandler struct {
	Gateway  ReturnParser
	Checkout CheckoutService
	StartURL string
	Timeout  time.Duration
}

func NewPaymentHandler(gw ReturnParser, co CheckoutService, startURL string, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{Gateway: gw, Checkout: co, StartURL: startURL, Timeout: timeout}
}

// Return settles the booking named by the gateway redirect.  A redirect
// whose checkout context is gone sends the customer back to the start
// page without touching anything.
// GET /payments/return
func (h *PaymentHandler) Return(c echo.Context) error {
	ret, err := h.Gateway.ParseReturn(c.QueryParams())
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) {
			logger(c).Warn().Str("ip", c.RealIP()).Msg("payment return with bad signature")
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payment signature"})
		}
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid payment return"})
	}
	if !ret.Present {
		return c.JSON(http.StatusOK, service.Outcome{State: service.StateAwaitingRedirect})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	out, err := h.Checkout.Reconcile(ctx, ret.Ref, ret.Code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Redirect(http.StatusSeeOther, h.startURL())
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) startURL() string {
	if h.StartURL == "" {
		return "/"
	}
	return h.StartURL
}
