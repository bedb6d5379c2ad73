package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pending"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// Gateway response codes the reconciler distinguishes.
const (
	GatewayCodeSuccess   = "00"
	GatewayCodeCancelled = "24"
)

// ReconcileState is the position of a booking in the payment return flow.
type ReconcileState string

const (
	StateAwaitingRedirect ReconcileState = "awaiting_redirect"
	StateReconciling      ReconcileState = "reconciling"
	StateConfirmed        ReconcileState = "confirmed"
	StateFailed           ReconcileState = "failed"
)

// Outcome is the result of one reconciliation.  Replayed is set when the
// booking was already terminal and nothing was changed.
type Outcome struct {
	State    ReconcileState `json:"state"`
	Booking  *model.Booking `json:"booking,omitempty"`
	Replayed bool           `json:"replayed"`
}

// Checkout is returned when a booking is created and the user must be
// sent to the gateway.
type Checkout struct {
	Booking    *model.Booking `json:"booking"`
	PaymentURL string         `json:"payment_url"`
}

// Reconciler drives a booking from the gateway redirect to a terminal
// state.  It owns neither bookings nor seats; it orders calls to the
// BookingStore and the SeatLedger.
type Reconciler struct {
	bookings   *BookingStore
	ledger     *SeatLedger
	screenings ScreeningReader
	pending    PendingStore
	events     EventPublisher
	payments   PaymentURLBuilder
	log        zerolog.Logger
}

func NewReconciler(bookings *BookingStore, ledger *SeatLedger, screenings ScreeningReader, pending PendingStore, events EventPublisher, payments PaymentURLBuilder, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		bookings:   bookings,
		ledger:     ledger,
		screenings: screenings,
		pending:    pending,
		events:     events,
		payments:   payments,
		log:        log,
	}
}

// Begin creates the pending booking, stores the checkout context for the
// return leg and builds the gateway redirect.
func (r *Reconciler) Begin(ctx context.Context, in CreateInput, clientIP string) (*Checkout, error) {
	b, err := r.bookings.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	scr, err := r.screenings.GetScreening(ctx, b.ScreeningID)
	if err != nil {
		return nil, err
	}
	c := pending.Checkout{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ScreeningID: b.ScreeningID,
		MovieTitle:  scr.MovieTitle,
		PosterURL:   scr.PosterURL,
		Theater:     scr.Theater,
		Room:        scr.Room,
		StartsAt:    scr.StartsAt,
		Seats:       b.Seats,
		BasePrice:   b.BasePrice,
		Discount:    b.Discount,
		TotalPrice:  b.TotalPrice,
		CreatedAt:   b.CreatedAt,
	}
	if err := r.pending.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: save checkout: %v", ErrUnavailable, err)
	}
	payURL, err := r.payments.PaymentURL(*b, clientIP)
	if err != nil {
		return nil, fmt.Errorf("%w: payment url: %v", ErrUnavailable, err)
	}
	return &Checkout{Booking: b, PaymentURL: payURL}, nil
}

// Reconcile handles one gateway return.  An empty code means the user has
// not come back from the gateway yet.  A return whose checkout context is
// gone is answered from the stored booking when it is already terminal
// and with ErrNotFound otherwise; in both cases nothing is mutated.
func (r *Reconciler) Reconcile(ctx context.Context, bookingID, code string) (Outcome, error) {
	if code == "" {
		return Outcome{State: StateAwaitingRedirect}, nil
	}
	c, err := r.pending.Consume(ctx, bookingID)
	if errors.Is(err, pending.ErrNotFound) {
		b, gerr := r.bookings.Get(ctx, bookingID)
		if gerr == nil && b.Status.Terminal() {
			return Outcome{State: stateOf(b), Booking: b, Replayed: true}, nil
		}
		return Outcome{}, fmt.Errorf("%w: no pending checkout for booking %s", ErrNotFound, bookingID)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: consume checkout: %v", ErrUnavailable, err)
	}

	b, err := r.bookings.Get(ctx, bookingID)
	if err != nil {
		r.restore(ctx, c)
		return Outcome{}, err
	}
	if b.Status.Terminal() {
		return Outcome{State: stateOf(b), Booking: b, Replayed: true}, nil
	}

	to := model.BookingFailed
	switch code {
	case GatewayCodeSuccess:
		to = model.BookingPaid
	case GatewayCodeCancelled:
		to = model.BookingCancelled
	}
	return r.settle(ctx, b, to, nil, func() { r.restore(ctx, c) })
}

// Apply drives a booking to status with the same seat side effects as a
// gateway return.  It is the administrative path behind the status
// endpoints.
func (r *Reconciler) Apply(ctx context.Context, bookingID string, to model.BookingStatus, override *model.Pricing) (Outcome, error) {
	if !to.Valid() || to == model.BookingPending {
		return Outcome{}, validation("status must be paid, failed or cancelled")
	}
	b, err := r.bookings.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	if b.Status == to {
		return Outcome{State: stateOf(b), Booking: b, Replayed: true}, nil
	}
	if b.Status.Terminal() {
		return Outcome{}, &TransitionError{From: string(b.Status), To: string(to)}
	}
	if _, err := r.pending.Consume(ctx, bookingID); err != nil && !errors.Is(err, pending.ErrNotFound) {
		r.log.Warn().Err(err).Str("booking_id", bookingID).Msg("drop checkout context failed")
	}
	return r.settle(ctx, b, to, override, nil)
}

// settle books the seats before marking the booking paid, so a paid
// booking never lacks its seats.  Any failure on the success path moves
// the booking to failed.  Failure paths mark the booking first and then
// return its seats.  When the booking cannot be written at all it stays
// pending with its seats released, and retry (if set) re-arms the return.
func (r *Reconciler) settle(ctx context.Context, b *model.Booking, to model.BookingStatus, override *model.Pricing, retry func()) (Outcome, error) {
	log := r.log.With().Str("booking_id", b.ID).Logger()

	if to == model.BookingPaid {
		err := r.ledger.ConfirmBooked(ctx, b.ScreeningID, b.Seats, b.UserID, b.ID)
		if err == nil {
			paid, uerr := r.bookings.UpdateStatus(ctx, b.ID, model.BookingPaid, override)
			if uerr == nil {
				r.publishConfirmed(ctx, paid)
				return Outcome{State: StateConfirmed, Booking: paid}, nil
			}
			err = uerr
		}
		if errors.Is(err, ErrInvalidTransition) {
			out, cerr := r.current(ctx, b.ID, err)
			if cerr == nil && out.Booking.Status != model.BookingPaid {
				// Seats were booked for a booking someone else failed.
				r.releaseSeats(ctx, b)
			}
			return out, cerr
		}
		log.Warn().Err(err).Msg("payment succeeded but booking could not be confirmed")
		to = model.BookingFailed
		override = nil
	}

	out, err := r.bookings.UpdateStatus(ctx, b.ID, to, override)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return r.current(ctx, b.ID, err)
		}
		log.Error().Err(err).Str("status", string(to)).Msg("booking left pending")
		r.releaseSeats(ctx, b)
		if retry != nil {
			retry()
		}
		return Outcome{}, err
	}
	r.releaseSeats(ctx, b)
	log.Info().Str("status", string(out.Status)).Msg("booking reconciled")
	return Outcome{State: StateFailed, Booking: out}, nil
}

// current answers with the stored state after losing a race to another
// writer that already finalized the booking.
func (r *Reconciler) current(ctx context.Context, id string, cause error) (Outcome, error) {
	b, err := r.bookings.Get(ctx, id)
	if err != nil || !b.Status.Terminal() {
		return Outcome{}, cause
	}
	return Outcome{State: stateOf(b), Booking: b, Replayed: true}, nil
}

// releaseSeats frees the seats reserved or booked for b.  It runs on a
// detached context so an expired request deadline cannot leave booked
// seats behind a booking that never became paid.
func (r *Reconciler) releaseSeats(ctx context.Context, b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := r.ledger.Release(ctx, b.ScreeningID, b.Seats, b.UserID, b.ID); err != nil {
		r.log.Error().Err(err).Str("booking_id", b.ID).Msg("release seats failed; sweep will reclaim reservations")
	}
}

// restore puts a consumed checkout back after a transient failure so the
// user can retry the return.
func (r *Reconciler) restore(ctx context.Context, c pending.Checkout) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.pending.Save(ctx, c); err != nil {
		r.log.Error().Err(err).Str("booking_id", c.BookingID).Msg("restore checkout context failed")
	}
}

func (r *Reconciler) publishConfirmed(ctx context.Context, b *model.Booking) {
	if r.events == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ScreeningID: b.ScreeningID,
		SeatLabels:  b.Seats,
		TotalPrice:  b.TotalPrice,
		ConfirmedAt: b.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if scr, err := r.screenings.GetScreening(ctx, b.ScreeningID); err == nil {
		ev.MovieTitle = scr.MovieTitle
		ev.Theater = scr.Theater
		ev.Room = scr.Room
		ev.StartsAt = scr.StartsAt.UTC().Format(time.RFC3339)
	}
	if err := r.events.PublishBookingConfirmed(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("booking_id", b.ID).Msg("publish booking.confirmed failed")
	}
}

func stateOf(b *model.Booking) ReconcileState {
	switch b.Status {
	case model.BookingPaid:
		return StateConfirmed
	case model.BookingFailed, model.BookingCancelled:
		return StateFailed
	default:
		return StateReconciling
	}
}
