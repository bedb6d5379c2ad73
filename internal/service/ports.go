package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pending"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// SeatStore persists seat ledger rows.  FindSeats locks the returned rows
// when called inside WithTx.  Labels without a stored row are simply
// absent from the result; such seats are written with InsertSeat, which
// fails with ErrConflict when a concurrent writer stored the row first.
// SaveSeat overwrites rows that FindSeats returned.
type SeatStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindSeats(ctx context.Context, screeningID uint64, labels []string) (map[string]model.Seat, error)
	InsertSeat(ctx context.Context, seat model.Seat) error
	SaveSeat(ctx context.Context, seat model.Seat) error
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error)
	ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScreeningReader loads screenings with their movie denormalized.
type ScreeningReader interface {
	GetScreening(ctx context.Context, id uint64) (*model.Screening, error)
}

// PromotionReader resolves promotion codes.
type PromotionReader interface {
	GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error)
}

// BookingRepository persists bookings.  TransitionFromPending applies the
// change only while the stored status is still pending and reports
// whether it did.
type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	TransitionFromPending(ctx context.Context, id string, to model.BookingStatus, p model.Pricing, total int64) (bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// PendingStore keeps the checkout context between redirect and return.
// Consume hands a context out at most once.
type PendingStore interface {
	Save(ctx context.Context, c pending.Checkout) error
	Consume(ctx context.Context, bookingID string) (pending.Checkout, error)
}

// EventPublisher hands domain events to the message broker.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishTicketEmail(ctx context.Context, ev queue.TicketEmailRequested) error
}

// PaymentURLBuilder produces the gateway redirect for a booking.
type PaymentURLBuilder interface {
	PaymentURL(b model.Booking, clientIP string) (string, error)
}

// ApprovalRepository persists manager requests.  Decide moves a request
// out of pending and reports whether it did.
type ApprovalRepository interface {
	Create(ctx context.Context, a *model.ApprovalRequest) error
	Get(ctx context.Context, id uint64) (*model.ApprovalRequest, error)
	List(ctx context.Context, status model.ApprovalStatus, submittedBy uint64) ([]model.ApprovalRequest, error)
	Decide(ctx context.Context, id uint64, from, to model.ApprovalStatus, decidedBy uint64, note string, at time.Time) (bool, error)
}

// CatalogWriter applies approved requests to the catalogue.
type CatalogWriter interface {
	GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
	CreateMovie(ctx context.Context, m *model.Movie) error
	CreatePromotion(ctx context.Context, p *model.Promotion) error
	CreateScreening(ctx context.Context, s *model.Screening) error
}

// UserReader looks up account details such as the ticket email address.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}
