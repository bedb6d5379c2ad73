package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// BookingHandler serves checkout, booking history and confirmations.
type BookingHandler struct {
	Bookings      BookingService
	Checkout      CheckoutService
	Confirmations ConfirmationService
	Timeout       time.Duration
}

func NewBookingHandler(b BookingService, co CheckoutService, conf ConfirmationService, timeout time.Duration) *BookingHandler {
	return &BookingHandler{Bookings: b, Checkout: co, Confirmations: conf, Timeout: timeout}
}

type createBookingReq struct {
	ScreeningID uint64   `json:"screening_id" validate:"required,gt=0"`
	Seats       []string `json:"seats" validate:"required,min=1,max=10,dive,required,max=8"`
	PromoCode   string   `json:"promo_code" validate:"max=64"`
}

type updateStatusReq struct {
	Status    model.BookingStatus `json:"status" validate:"required,oneof=paid failed cancelled"`
	BasePrice *int64              `json:"base_price"`
	Discount  *int64              `json:"discount"`
}

type emailTicketReq struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// Create books the seats the caller holds and returns the gateway
// redirect.
// POST /bookings
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}
	var req createBookingReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	co, err := h.Checkout.Begin(ctx, service.CreateInput{
		UserID:      uid,
		ScreeningID: req.ScreeningID,
		Seats:       req.Seats,
		PromoCode:   strings.TrimSpace(req.PromoCode),
	}, c.RealIP())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, co)
}

// UpdateStatus moves a booking to a terminal status, optionally with a
// corrected price.  Admin only.
// PUT /bookings/:id and POST /bookings/:id/status
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	var override *model.Pricing
	if req.BasePrice != nil || req.Discount != nil {
		if req.BasePrice == nil || req.Discount == nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "base_price and discount must be given together"})
		}
		override = &model.Pricing{BasePrice: *req.BasePrice, Discount: *req.Discount}
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	out, err := h.Checkout.Apply(ctx, c.Param("id"), req.Status, override)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Cancel abandons a pending booking of the caller and frees its seats.
// POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListMine returns the caller's bookings, newest first.
// GET /bookings/user
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.ListForUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

// Get returns one of the caller's bookings.
// GET /bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.GetForUser(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Confirmation renders the confirmation page data with the ticket QR.
// GET /bookings/:id/confirmation
func (h *BookingHandler) Confirmation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	d, err := h.Confirmations.Details(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// TicketImage streams the QR code of a booking as PNG.
// GET /bookings/:id/ticket.png
func (h *BookingHandler) TicketImage(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	d, err := h.Confirmations.Details(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	if len(d.QRImagePNG) == 0 {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "ticket image unavailable"})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return c.Blob(http.StatusOK, "image/png", d.QRImagePNG)
}

// EmailTicket queues the ticket of a paid booking for email delivery.
// POST /bookings/email-ticket
func (h *BookingHandler) EmailTicket(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	}
	var req emailTicketReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	if err := h.Confirmations.ResendTicket(ctx, req.BookingID, uid, strings.TrimSpace(req.Email)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"queued": true})
}
