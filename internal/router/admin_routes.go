package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterManager registers the request workflow for managers.
func RegisterManager(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/requests",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager),
	)
	g.POST("", h.Submit)
	g.GET("/mine", h.ListMine)
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/requests", h.ListRequests)
	g.POST("/requests/:id/approve", h.Approve)
	g.POST("/requests/:id/reject", h.Reject)
	g.GET("/revenue", h.Revenue)
	g.POST("/seats/release", h.ReleaseSeats)
}
