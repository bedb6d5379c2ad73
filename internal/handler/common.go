package handler // handler defines http handlers

import (
	"context"
	"errors"  // errors provides sentinel values used in getUserID
	"net/url" // url.Values for the gateway return
	"strconv" // strconv converts strings to numeric types
	"time"

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/cinema-ticketing/internal/gateway"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// SeatService is the part of the seat ledger exposed over HTTP.
type SeatService interface {
	Reserve(ctx context.Context, screeningID uint64, label string, userID uint64) (model.Seat, error)
	Status(ctx context.Context, screeningID uint64, label string) (model.SeatStatus, error)
	ReleaseExpired(ctx context.Context) (int64, error)
	ListForScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error)
	AdminRelease(ctx context.Context, screeningID uint64, labels []string) (int, error)
	HoldDuration() time.Duration
}

// BookingService reads and cancels bookings on behalf of their owner.
type BookingService interface {
	GetForUser(ctx context.Context, id string, userID uint64) (*model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	Cancel(ctx context.Context, id string, userID uint64) (*model.Booking, error)
}

// CheckoutService starts checkouts and settles them.
type CheckoutService interface {
	Begin(ctx context.Context, in service.CreateInput, clientIP string) (*service.Checkout, error)
	Reconcile(ctx context.Context, bookingID, code string) (service.Outcome, error)
	Apply(ctx context.Context, bookingID string, to model.BookingStatus, override *model.Pricing) (service.Outcome, error)
}

// ConfirmationService renders confirmations and queues ticket emails.
type ConfirmationService interface {
	Details(ctx context.Context, bookingID string, userID uint64) (*model.ConfirmationDetails, error)
	ResendTicket(ctx context.Context, bookingID string, userID uint64, email string) error
}

// ApprovalService is the manager request workflow.
type ApprovalService interface {
	Submit(ctx context.Context, userID uint64, payload model.RequestPayload, note string) (*model.ApprovalRequest, error)
	ListMine(ctx context.Context, userID uint64) ([]model.ApprovalRequest, error)
	List(ctx context.Context, status model.ApprovalStatus) ([]model.ApprovalRequest, error)
	Approve(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error)
	Reject(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error)
}

// RevenueReporter answers the admin revenue report.
type RevenueReporter interface {
	RevenueByMovie(ctx context.Context, from, to time.Time) ([]repository.RevenueRow, error)
}

// CatalogReader serves the public browse endpoints.
type CatalogReader interface {
	ListMovies(ctx context.Context) ([]model.Movie, error)
	ListScreenings(ctx context.Context, f repository.ScreeningFilter) ([]model.Screening, error)
	GetScreening(ctx context.Context, id uint64) (*model.Screening, error)
}

// ReturnParser verifies and decodes the payment gateway redirect.
type ReturnParser interface {
	ParseReturn(q url.Values) (gateway.Return, error)
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path or query value.
func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil && n > 0
}
