package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

const bookingID = "3f1c1a5e-4c53-4b55-9b8e-0d3c2a7e9d11"

type bookingMocks struct {
	bookings *MockBookings
	checkout *MockCheckout
	conf     *MockConfirmation
}

func bookingRoutes(role string) (*echo.Echo, bookingMocks) {
	m := bookingMocks{new(MockBookings), new(MockCheckout), new(MockConfirmation)}
	h := NewBookingHandler(m.bookings, m.checkout, m.conf, 0)
	e := newEcho()
	g := e.Group("/bookings", as(1, role))
	g.POST("", h.Create)
	g.GET("/user", h.ListMine)
	g.POST("/email-ticket", h.EmailTicket)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.UpdateStatus)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id/confirmation", h.Confirmation)
	g.GET("/:id/ticket.png", h.TicketImage)
	return e, m
}

func TestBookingHandler_Create(t *testing.T) {
	t.Run("checkout started", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleCustomer)
		m.checkout.On("Begin", mock.Anything, service.CreateInput{
			UserID: 1, ScreeningID: 3, Seats: []string{"A1", "A2"}, PromoCode: "SPRING",
		}, mock.Anything).Return(&service.Checkout{
			Booking:    &model.Booking{ID: bookingID, Status: model.BookingPending, TotalPrice: 180000},
			PaymentURL: "https://pay.example/start?ref=" + bookingID,
		}, nil)

		rec := do(e, http.MethodPost, "/bookings", map[string]any{
			"screening_id": 3, "seats": []string{"A1", "A2"}, "promo_code": " SPRING ",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Contains(t, body["payment_url"], bookingID)
		m.checkout.AssertExpectations(t)
	})

	t.Run("too many seats", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleCustomer)
		seats := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10", "A11"}
		rec := do(e, http.MethodPost, "/bookings", map[string]any{"screening_id": 3, "seats": seats})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "seats must be at most 10")
		m.checkout.AssertNumberOfCalls(t, "Begin", 0)
	})

	t.Run("seat no longer held", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleCustomer)
		m.checkout.On("Begin", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &service.SeatConflictError{Labels: []string{"A2"}})

		rec := do(e, http.MethodPost, "/bookings", map[string]any{"screening_id": 3, "seats": []string{"A1", "A2"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []any{"A2"}, decode(t, rec)["seats"])
	})
}

func TestBookingHandler_UpdateStatus(t *testing.T) {
	t.Run("paid with corrected price", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleAdmin)
		m.checkout.On("Apply", mock.Anything, bookingID, model.BookingPaid, &model.Pricing{BasePrice: 90000, Discount: 0}).
			Return(service.Outcome{State: service.StateConfirmed, Booking: &model.Booking{ID: bookingID, Status: model.BookingPaid}}, nil)

		rec := do(e, http.MethodPut, "/bookings/"+bookingID, map[string]any{"status": "paid", "base_price": 90000, "discount": 0})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "confirmed", decode(t, rec)["state"])
		m.checkout.AssertExpectations(t)
	})

	t.Run("half a price override", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleAdmin)
		rec := do(e, http.MethodPut, "/bookings/"+bookingID, map[string]any{"status": "paid", "base_price": 90000})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.checkout.AssertNumberOfCalls(t, "Apply", 0)
	})

	t.Run("unknown status", func(t *testing.T) {
		e, _ := bookingRoutes(model.RoleAdmin)
		rec := do(e, http.MethodPut, "/bookings/"+bookingID, map[string]any{"status": "refunded"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "status must be one of")
	})

	t.Run("terminal booking", func(t *testing.T) {
		e, m := bookingRoutes(model.RoleAdmin)
		m.checkout.On("Apply", mock.Anything, bookingID, model.BookingFailed, (*model.Pricing)(nil)).
			Return(service.Outcome{}, &service.TransitionError{From: "paid", To: "failed"})

		rec := do(e, http.MethodPut, "/bookings/"+bookingID, map[string]any{"status": "failed"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestBookingHandler_Reads(t *testing.T) {
	e, m := bookingRoutes(model.RoleCustomer)
	m.bookings.On("ListForUser", mock.Anything, uint64(1)).Return([]model.Booking{{ID: bookingID}}, nil)
	m.bookings.On("GetForUser", mock.Anything, bookingID, uint64(1)).Return(&model.Booking{ID: bookingID}, nil)
	m.bookings.On("GetForUser", mock.Anything, "other", uint64(1)).Return(nil, service.ErrForbidden)

	rec := do(e, http.MethodGet, "/bookings/user", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = do(e, http.MethodGet, "/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookingID, decode(t, rec)["id"])

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/bookings/other", nil).Code)
}

func TestBookingHandler_Cancel(t *testing.T) {
	e, m := bookingRoutes(model.RoleCustomer)
	m.bookings.On("Cancel", mock.Anything, bookingID, uint64(1)).
		Return(&model.Booking{ID: bookingID, Status: model.BookingCancelled}, nil)

	rec := do(e, http.MethodPost, "/bookings/"+bookingID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])
}

func TestBookingHandler_TicketImage(t *testing.T) {
	e, m := bookingRoutes(model.RoleCustomer)
	png := []byte("\x89PNG\r\n\x1a\n")
	m.conf.On("Details", mock.Anything, bookingID, uint64(1)).
		Return(&model.ConfirmationDetails{BookingID: bookingID, Status: model.BookingPaid, QRImagePNG: png}, nil)

	rec := do(e, http.MethodGet, "/bookings/"+bookingID+"/ticket.png", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = do(e, http.MethodGet, "/bookings/"+bookingID+"/confirmation", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode(t, rec)["status"])
}

func TestBookingHandler_EmailTicket(t *testing.T) {
	e, m := bookingRoutes(model.RoleCustomer)
	m.conf.On("ResendTicket", mock.Anything, bookingID, uint64(1), "me@example.com").Return(nil)

	rec := do(e, http.MethodPost, "/bookings/email-ticket", map[string]any{"booking_id": bookingID, "email": "me@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decode(t, rec)["queued"])

	rec = do(e, http.MethodPost, "/bookings/email-ticket", map[string]any{"booking_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.conf.AssertNumberOfCalls(t, "ResendTicket", 1)
}

func TestBookingHandler_Unauthenticated(t *testing.T) {
	h := NewBookingHandler(new(MockBookings), new(MockCheckout), new(MockConfirmation), 0)
	e := newEcho()
	e.GET("/bookings/user", h.ListMine)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/bookings/user", nil).Code)
}
