package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const secret = "router-secret"

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	noCache := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }
	RegisterRoutes(e, map[string]handler.Check{"mysql": up}, map[string]handler.Check{"redis": down})
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil), secret)
	RegisterPublic(e, handler.NewPublicHandler(nil, 0), noCache)
	RegisterSeats(e, handler.NewSeatHandler(nil, 0), secret)
	RegisterBookings(e, handler.NewBookingHandler(nil, nil, nil, 0), secret)
	RegisterPayments(e, handler.NewPaymentHandler(nil, nil, "/", 0))
	admin := handler.NewAdminHandler(nil, nil, nil, 0)
	RegisterManager(e, admin, secret)
	RegisterAdmin(e, admin, secret)
	return e
}

func request(t *testing.T, e *echo.Echo, method, target, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 1, role, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRegistered(t *testing.T) {
	e := newTestEcho()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /seats/reserve",
		"GET /seats/status",
		"POST /seats/release-expired",
		"POST /bookings",
		"PUT /bookings/:id",
		"POST /bookings/:id/status",
		"GET /bookings/user",
		"GET /payments/return",
		"POST /auth/logout",
		"GET /v1/screenings/:id",
		"POST /v1/requests",
		"POST /v1/admin/requests/:id/approve",
		"GET /v1/admin/revenue",
	} {
		assert.True(t, have[want], want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newTestEcho()
	for _, target := range []string{"/seats/status", "/bookings/user", "/auth/me"} {
		assert.Equal(t, http.StatusUnauthorized, request(t, e, http.MethodGet, target, "").Code, target)
	}
}

func TestRoleGates(t *testing.T) {
	e := newTestEcho()
	tests := []struct {
		method, target, role string
	}{
		{http.MethodPut, "/bookings/abc", model.RoleCustomer},
		{http.MethodPost, "/bookings/abc/status", model.RoleManager},
		{http.MethodGet, "/v1/admin/revenue", model.RoleManager},
		{http.MethodPost, "/v1/requests", model.RoleCustomer},
		{http.MethodGet, "/v1/requests/mine", model.RoleAdmin},
	}
	for _, tt := range tests {
		rec := request(t, e, tt.method, tt.target, tt.role)
		assert.Equal(t, http.StatusForbidden, rec.Code, tt.method+" "+tt.target)
	}
}

func TestProbes(t *testing.T) {
	e := newTestEcho()
	assert.Equal(t, http.StatusOK, request(t, e, http.MethodGet, "/healthz", "").Code)

	rec := request(t, e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"degraded"`)
}
