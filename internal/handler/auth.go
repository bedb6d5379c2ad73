package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const authTimeout = 5 * time.Second

// UserStore is the account storage used by the auth endpoints.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps refresh tokens by hash.  Redeem spends a live token
// and returns its owner; every refresh token is single use.
type TokenStore interface {
	Save(ctx context.Context, userID uint64, hash string, expires time.Time) error
	Redeem(ctx context.Context, hash string) (uint64, error)
	RevokeUser(ctx context.Context, userID uint64) (int64, error)
}

// AuthHandler serves registration, login and the refresh token rotation.
type AuthHandler struct {
	cfg    config.Config
	users  UserStore
	tokens TokenStore
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens TokenStore) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens}
}

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type account struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type issuedToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type session struct {
	User    account     `json:"user"`
	Access  issuedToken `json:"access"`
	Refresh issuedToken `json:"refresh"`
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func unauthorizedJSON(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Error: msg})
}

// Register creates a CUSTOMER account, or a MANAGER account when asked.
// Administrators are provisioned out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var in credentials
	if ok, err := bind(c, &in); !ok {
		return err
	}
	role := model.SignupRole(in.Role)
	email := normalizeEmail(in.Email)

	ctx, cancel := withTimeout(c, authTimeout)
	defer cancel()
	id, err := h.users.Create(ctx, email, in.Password, role, h.cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, errorBody{Error: "email already registered"})
	}
	if err != nil {
		return respondError(c, err)
	}
	s, err := h.startSession(ctx, account{ID: id, Email: email, Role: role})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Login checks the password of an active account.  Unknown emails and
// wrong passwords get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if ok, err := bind(c, &in); !ok {
		return err
	}
	ctx, cancel := withTimeout(c, authTimeout)
	defer cancel()

	u, err := h.users.GetByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorizedJSON(c, "invalid credentials")
	case err != nil:
		return respondError(c, err)
	case !u.IsActive, !utils.VerifyPassword(u.PasswordHash, in.Password):
		return unauthorizedJSON(c, "invalid credentials")
	}
	s, err := h.startSession(ctx, account{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Refresh spends the presented refresh token and opens a new session with
// the account's current role.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var in refreshBody
	_ = c.Bind(&in)
	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "refresh_token required"})
	}
	ctx, cancel := withTimeout(c, authTimeout)
	defer cancel()

	owner, err := h.tokens.Redeem(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return unauthorizedJSON(c, "invalid refresh token")
	}
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.users.GetByID(ctx, owner)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return unauthorizedJSON(c, "invalid refresh token")
	case err != nil:
		return respondError(c, err)
	case !u.IsActive:
		return unauthorizedJSON(c, "account disabled")
	}
	s, err := h.startSession(ctx, account{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Logout spends the refresh token in the body.  Without one it signs the
// bearer out of every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var in refreshBody
	_ = c.Bind(&in)
	ctx, cancel := withTimeout(c, authTimeout)
	defer cancel()

	if raw := strings.TrimSpace(in.RefreshToken); raw != "" {
		_, err := h.tokens.Redeem(ctx, utils.HashRefreshRaw(raw))
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorizedJSON(c, "invalid refresh token")
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	uid, err := getUserID(c)
	if err != nil || uid == 0 {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "refresh_token or bearer token required"})
	}
	n, err := h.tokens.RevokeUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	logger(c).Info().Uint64("user_id", uid).Int64("revoked", n).Msg("signed out everywhere")
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorizedJSON(c, "unauthorized")
	}
	ctx, cancel := withTimeout(c, authTimeout)
	defer cancel()

	u, err := h.users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return unauthorizedJSON(c, "unauthorized")
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, account{ID: u.ID, Email: u.Email, Role: u.Role})
}

// startSession signs an access token and stores the hash of a fresh
// refresh token.  Only the client ever sees the raw refresh value.
func (h *AuthHandler) startSession(ctx context.Context, a account) (session, error) {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, a.ID, a.Role, h.cfg.AccessTTLMin)
	if err != nil {
		return session{}, err
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return session{}, err
	}
	if err := h.tokens.Save(ctx, a.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return session{}, err
	}
	return session{
		User:    a,
		Access:  issuedToken{Token: access.Token, Expires: access.Exp},
		Refresh: issuedToken{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
