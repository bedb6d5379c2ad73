package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys written by JWTAuth and JWTOptional.
const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// currentUserID returns the caller's id as a decimal string, or "anon"
// when the request carries no valid token.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(uint64); ok && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// RequireRole lets the request through only when the role claim stored by
// JWTAuth is one of roles.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(roleKey).(string)
			for _, r := range roles {
				if role != "" && role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
