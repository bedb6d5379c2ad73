package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterSeats registers the seat ledger endpoints.  Every route needs a
// signed-in user of any role.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, jwtSecret string) {
	g := e.Group("/seats", middleware.JWTAuth(jwtSecret))
	g.POST("/reserve", h.Reserve)
	g.GET("/status", h.Status)
	g.POST("/release-expired", h.ReleaseExpired)
	g.GET("/screening/:id", h.ListForScreening)
}

// RegisterBookings registers checkout, history and confirmation routes.
// Static segments (/user, /email-ticket) are registered before /:id.
// Forcing a status is an admin operation; customers reach terminal
// states only through the payment return.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/bookings", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create)
	g.GET("/user", h.ListMine)
	g.POST("/email-ticket", h.EmailTicket)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id/confirmation", h.Confirmation)
	g.GET("/:id/ticket.png", h.TicketImage)

	admin := middleware.RequireRole(model.RoleAdmin)
	g.PUT("/:id", h.UpdateStatus, admin)
	g.POST("/:id/status", h.UpdateStatus, admin)
}

// RegisterPayments registers the gateway return.  The customer arrives
// from the gateway without a bearer token; the signed query identifies
// the booking.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler) {
	e.GET("/payments/return", h.Return)
	e.POST("/payments/return", h.Return)
}
