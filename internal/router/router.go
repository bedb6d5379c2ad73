package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterRoutes registers the liveness and readiness probes.  /healthz
// only proves the process is up; /readyz pings the database and reports
// Redis and RabbitMQ as degraded rather than down.
func RegisterRoutes(e *echo.Echo, required, optional map[string]handler.Check) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(required, optional))
}

// RegisterAuth registers the account endpoints under /auth.  Register,
// login and refresh need no session.  Logout accepts either a refresh
// token in the body or a bearer token, so it runs JWTOptional.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTOptional(jwtSecret))
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated catalogue.  cache is the
// Redis response cache; pass a no-op middleware to disable it.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/movies", p.ListMovies)
	g.GET("/screenings", p.ListScreenings)
	g.GET("/screenings/:id", p.GetScreening)
}
