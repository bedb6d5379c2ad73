package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/ticket"
)

// BookingStore is the sole writer of booking records.
type BookingStore struct {
	repo       BookingRepository
	ledger     *SeatLedger
	screenings ScreeningReader
	promos     PromotionReader
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

func NewBookingStore(repo BookingRepository, ledger *SeatLedger, screenings ScreeningReader, promos PromotionReader, loc *time.Location, log zerolog.Logger) *BookingStore {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingStore{
		repo:       repo,
		ledger:     ledger,
		screenings: screenings,
		promos:     promos,
		loc:        loc,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// CreateInput is what a customer submits at checkout.
type CreateInput struct {
	UserID      uint64
	ScreeningID uint64
	Seats       []string
	PromoCode   string
}

// Create persists a pending booking for seats the user currently holds.
// Seat labels are normalized and de-duplicated in order of first
// appearance.
func (s *BookingStore) Create(ctx context.Context, in CreateInput) (*model.Booking, error) {
	labels := dedupe(in.Seats)
	if len(labels) == 0 {
		return nil, validation("at least one seat is required")
	}
	if in.UserID == 0 {
		return nil, validation("user is required")
	}
	scr, err := s.ledger.screening(ctx, in.ScreeningID, labels)
	if err != nil {
		return nil, err
	}

	subtotal := scr.BasePrice * int64(len(labels))
	var discount int64
	var promo *string
	if in.PromoCode != "" {
		p, err := s.promos.GetPromotionByCode(ctx, in.PromoCode)
		if errors.Is(err, ErrNotFound) {
			return nil, validation("unknown promotion code %q", in.PromoCode)
		}
		if err != nil {
			return nil, err
		}
		if !p.Usable(s.now()) {
			return nil, validation("promotion %q is no longer valid", in.PromoCode)
		}
		discount = p.DiscountFor(subtotal)
		code := p.Code
		promo = &code
	}

	if err := s.ledger.VerifyHeld(ctx, in.ScreeningID, labels, in.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	b := &model.Booking{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		ScreeningID: in.ScreeningID,
		Seats:       labels,
		BasePrice:   scr.BasePrice,
		Discount:    discount,
		Status:      model.BookingPending,
		PromoCode:   promo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.TotalPrice = b.Pricing().Total(len(labels))
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info().Str("booking_id", b.ID).Uint64("user_id", b.UserID).Strs("seats", labels).Int64("total", b.TotalPrice).Msg("booking created")
	return b, nil
}

// Get loads a booking by id.
func (s *BookingStore) Get(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, validation("invalid booking id")
	}
	return s.repo.Get(ctx, id)
}

// GetForUser loads a booking owned by userID.
func (s *BookingStore) GetForUser(ctx context.Context, id string, userID uint64) (*model.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListForUser returns the user's bookings, newest first.
func (s *BookingStore) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus moves a booking out of pending.  Repeating a transition
// that already happened is a no-op; any other change to a terminal
// booking is a TransitionError.  The optional override replaces the
// price breakdown and the total is recomputed from it.  Seat state is
// not touched here.
func (s *BookingStore) UpdateStatus(ctx context.Context, id string, to model.BookingStatus, override *model.Pricing) (*model.Booking, error) {
	if !to.Valid() {
		return nil, validation("unknown status %q", to)
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == to {
		return b, nil
	}
	if b.Status.Terminal() {
		return nil, &TransitionError{From: string(b.Status), To: string(to)}
	}

	p := b.Pricing()
	if override != nil {
		if !override.Valid(len(b.Seats)) {
			return nil, validation("pricing override would make the total negative")
		}
		p = *override
	}
	applied, err := s.repo.TransitionFromPending(ctx, id, to, p, p.Total(len(b.Seats)))
	if err != nil {
		return nil, err
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied && cur.Status != to {
		// Another writer finalized the booking first.
		return nil, &TransitionError{From: string(cur.Status), To: string(to)}
	}
	if applied {
		s.log.Info().Str("booking_id", id).Str("status", string(to)).Int64("total", cur.TotalPrice).Msg("booking status updated")
	}
	return cur, nil
}

// Cancel cancels a pending booking on behalf of its owner and returns its
// seats to the ledger.
func (s *BookingStore) Cancel(ctx context.Context, id string, userID uint64) (*model.Booking, error) {
	b, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingCancelled {
		return b, nil
	}
	if b.Status != model.BookingPending {
		return nil, &TransitionError{From: string(b.Status), To: string(model.BookingCancelled)}
	}
	out, err := s.UpdateStatus(ctx, id, model.BookingCancelled, nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.Release(ctx, b.ScreeningID, b.Seats, b.UserID, b.ID); err != nil {
		s.log.Error().Err(err).Str("booking_id", id).Msg("release seats after cancel failed; sweep will reclaim them")
	}
	return out, nil
}

// GenerateTicketQR renders the ticket payload and its PNG image.  It has
// no side effects.
func (s *BookingStore) GenerateTicketQR(d model.ConfirmationDetails) (string, []byte, error) {
	return ticket.QR(d, s.loc)
}

func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = model.NormalizeSeatLabel(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
