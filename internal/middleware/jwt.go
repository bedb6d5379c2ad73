package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers read
// the caller via `c.Get("user_id")` (uint64) and `c.Get("role")` (string).
// Any failure answers 401, which clients treat as a signal to sign out.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parse := tokenParser(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler is invoked for each incoming HTTP request.
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			uid, role, msg := parse(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if msg != "" {
				return unauthorized(c, msg)
			}
			// Store the caller for handlers and downstream middleware.
			c.Set(userIDKey, uid)
			c.Set(roleKey, role)
			return next(c)
		}
	}
}

// JWTOptional identifies the caller when a valid bearer token is present
// and lets the request through anonymously otherwise.  Used by logout,
// which also accepts a bare refresh token.
func JWTOptional(secret string) echo.MiddlewareFunc {
	parse := tokenParser(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.HasPrefix(auth, "Bearer ") {
				if uid, role, msg := parse(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))); msg == "" {
					c.Set(userIDKey, uid)
					c.Set(roleKey, role)
				}
			}
			return next(c)
		}
	}
}

// tokenParser verifies a raw token and returns the subject and role, or
// a failure message.  Only HS256 tokens with an expiry are accepted.
func tokenParser(secret string) func(raw string) (uint64, string, string) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(raw string) (uint64, string, string) {
		claims := jwt.MapClaims{}
		tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return 0, "", "invalid token"
		}
		// The subject is the numeric user id; JSON numbers decode as float64.
		sub, ok := claims["sub"].(float64)
		if !ok || sub < 1 {
			return 0, "", "invalid claims"
		}
		role, _ := claims["role"].(string)
		return uint64(sub), role, ""
	}
}

// unauthorized writes the 401 body shared by every auth failure.
func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
