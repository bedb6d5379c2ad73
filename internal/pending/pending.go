// Package pending keeps the checkout context of a booking between the
// moment the user is redirected to the payment gateway and the moment the
// gateway sends them back.  A context is handed out at most once.
package pending

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Consume when no context exists for the
// booking, either because it was already consumed or because it expired.
var ErrNotFound = errors.New("pending checkout not found")

// DefaultTTL bounds how long a user may stay on the gateway page.
const DefaultTTL = 15 * time.Minute

// Checkout is the snapshot saved before redirecting to the gateway.  It
// carries enough to reconcile the return without trusting the client.
type Checkout struct {
	BookingID   string    `json:"booking_id"`
	UserID      uint64    `json:"user_id"`
	ScreeningID uint64    `json:"screening_id"`
	MovieTitle  string    `json:"movie_title"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Theater     string    `json:"theater"`
	Room        string    `json:"room"`
	StartsAt    time.Time `json:"starts_at"`
	Seats       []string  `json:"seats"`
	BasePrice   int64     `json:"base_price"`
	Discount    int64     `json:"discount"`
	TotalPrice  int64     `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store saves and consumes checkout contexts.
type Store interface {
	Save(ctx context.Context, c Checkout) error
	Consume(ctx context.Context, bookingID string) (Checkout, error)
}
