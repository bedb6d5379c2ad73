package model

import (
	"strings"
	"time"
)

// Role names carried in the access token "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleManager  = "MANAGER"
	RoleAdmin    = "ADMIN"
)

// SignupRole maps the role asked for at registration onto the role the
// account actually gets.  Only MANAGER may be requested; anything else,
// ADMIN included, becomes CUSTOMER.
func SignupRole(requested string) string {
	if strings.EqualFold(strings.TrimSpace(requested), RoleManager) {
		return RoleManager
	}
	return RoleCustomer
}

// User is an account row.  PasswordHash is a bcrypt hash and never leaves
// the server.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
