package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// Presenter builds the confirmation view of a booking.  It only reads
// booking state; the email re-send goes through the broker.
type Presenter struct {
	bookings   *BookingStore
	screenings ScreeningReader
	users      UserReader
	events     EventPublisher
	log        zerolog.Logger
}

func NewPresenter(bookings *BookingStore, screenings ScreeningReader, users UserReader, events EventPublisher, log zerolog.Logger) *Presenter {
	return &Presenter{bookings: bookings, screenings: screenings, users: users, events: events, log: log}
}

// Details assembles the confirmation of a booking owned by userID,
// including the QR payload and image.
func (p *Presenter) Details(ctx context.Context, bookingID string, userID uint64) (*model.ConfirmationDetails, error) {
	b, err := p.bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	scr, err := p.screenings.GetScreening(ctx, b.ScreeningID)
	if err != nil {
		return nil, err
	}
	d := &model.ConfirmationDetails{
		BookingID:  b.ID,
		Status:     b.Status,
		MovieTitle: scr.MovieTitle,
		PosterURL:  scr.PosterURL,
		Theater:    scr.Theater,
		Room:       scr.Room,
		StartsAt:   scr.StartsAt,
		Seats:      b.Seats,
		BasePrice:  b.BasePrice,
		Discount:   b.Discount,
		TotalPrice: b.TotalPrice,
		BookedAt:   b.CreatedAt,
	}
	payload, png, err := p.bookings.GenerateTicketQR(*d)
	if err != nil {
		return nil, err
	}
	d.QRPayload = payload
	d.QRImagePNG = png
	return d, nil
}

// ResendTicket queues the ticket email of a paid booking.  An empty email
// falls back to the account address.
func (p *Presenter) ResendTicket(ctx context.Context, bookingID string, userID uint64, email string) error {
	d, err := p.Details(ctx, bookingID, userID)
	if err != nil {
		return err
	}
	if d.Status != model.BookingPaid {
		return validation("tickets are only sent for paid bookings")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		u, err := p.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		email = u.Email
	}
	d.QRImagePNG = nil
	ev := queue.TicketEmailRequested{
		Email:       email,
		Details:     *d,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.events.PublishTicketEmail(ctx, ev); err != nil {
		p.log.Warn().Err(err).Str("booking_id", bookingID).Msg("publish ticket.email failed")
		return fmt.Errorf("%w: queue ticket email: %v", ErrUnavailable, err)
	}
	return nil
}
