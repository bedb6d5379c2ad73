package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

const defaultHoldDuration = 5 * time.Minute

// SeatLedger is the sole writer of seat state.  Reservations are
// time-boxed optimistic locks: a reserved seat whose hold is older than
// the hold duration counts as available on read and is reverted by
// ReleaseExpired.
type SeatLedger struct {
	seats      SeatStore
	screenings ScreeningReader
	hold       time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// LedgerOption configures a SeatLedger.
type LedgerOption func(*SeatLedger)

// WithHoldDuration overrides the default five minute hold.
func WithHoldDuration(d time.Duration) LedgerOption {
	return func(l *SeatLedger) {
		if d > 0 {
			l.hold = d
		}
	}
}

// WithLedgerClock replaces time.Now, mostly for tests.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *SeatLedger) { l.now = now }
}

// WithLedgerLogger sets the logger used for sweep reports.
func WithLedgerLogger(log zerolog.Logger) LedgerOption {
	return func(l *SeatLedger) { l.log = log }
}

func NewSeatLedger(seats SeatStore, screenings ScreeningReader, opts ...LedgerOption) *SeatLedger {
	l := &SeatLedger{
		seats:      seats,
		screenings: screenings,
		hold:       defaultHoldDuration,
		now:        func() time.Time { return time.Now().UTC() },
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HoldDuration returns the configured reservation lifetime.
func (l *SeatLedger) HoldDuration() time.Duration { return l.hold }

// screening loads the screening and checks every label against its layout.
func (l *SeatLedger) screening(ctx context.Context, screeningID uint64, labels []string) (*model.Screening, error) {
	if screeningID == 0 {
		return nil, validation("invalid screening id")
	}
	s, err := l.screenings.GetScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		if !s.Contains(label) {
			return nil, validation("seat %q does not exist in this screening", label)
		}
	}
	return s, nil
}

// Reserve places a hold on one seat for userID.  It fails with a
// SeatConflictError when the seat is booked or carries a live
// reservation, including one by the same user.  An expired reservation
// is taken over.
func (l *SeatLedger) Reserve(ctx context.Context, screeningID uint64, label string, userID uint64) (model.Seat, error) {
	label = model.NormalizeSeatLabel(label)
	if userID == 0 {
		return model.Seat{}, validation("user is required")
	}
	if _, err := l.screening(ctx, screeningID, []string{label}); err != nil {
		return model.Seat{}, err
	}
	var out model.Seat
	err := l.seats.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.seats.FindSeats(ctx, screeningID, []string{label})
		if err != nil {
			return err
		}
		now := l.now()
		cur, stored := found[label]
		if stored && cur.Effective(now, l.hold).Status != model.SeatAvailable {
			return &SeatConflictError{Labels: []string{label}}
		}
		uid := userID
		out = model.Seat{
			ScreeningID: screeningID,
			Label:       label,
			Status:      model.SeatReserved,
			ReservedAt:  &now,
			HeldBy:      &uid,
			UpdatedAt:   now,
		}
		return l.write(ctx, out, stored)
	})
	if err != nil {
		return model.Seat{}, err
	}
	return out, nil
}

// Status returns the effective state of one seat, resolving an expired
// reservation to available.
func (l *SeatLedger) Status(ctx context.Context, screeningID uint64, label string) (model.SeatStatus, error) {
	label = model.NormalizeSeatLabel(label)
	if _, err := l.screening(ctx, screeningID, []string{label}); err != nil {
		return "", err
	}
	found, err := l.seats.FindSeats(ctx, screeningID, []string{label})
	if err != nil {
		return "", err
	}
	cur, ok := found[label]
	if !ok {
		return model.SeatAvailable, nil
	}
	return cur.Effective(l.now(), l.hold).Status, nil
}

// ReleaseExpired reverts every reservation older than the hold duration
// to available and returns how many seats it released.  Running it again
// immediately releases nothing.
func (l *SeatLedger) ReleaseExpired(ctx context.Context) (int64, error) {
	cutoff := l.now().Add(-l.hold)
	n, err := l.seats.ReleaseExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release expired reservations: %w", err)
	}
	if n > 0 {
		l.log.Info().Int64("released", n).Time("cutoff", cutoff).Msg("expired seat reservations released")
	}
	return n, nil
}

// ListForScreening returns the full seat map of a screening ordered by
// row and seat number.  Seats never touched are reported available.
func (l *SeatLedger) ListForScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	s, err := l.screening(ctx, screeningID, nil)
	if err != nil {
		return nil, err
	}
	stored, err := l.seats.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	byLabel := make(map[string]model.Seat, len(stored))
	for _, seat := range stored {
		byLabel[seat.Label] = seat
	}
	now := l.now()
	labels := s.Labels()
	out := make([]model.Seat, 0, len(labels))
	for _, label := range labels {
		if seat, ok := byLabel[label]; ok {
			out = append(out, seat.Effective(now, l.hold))
			continue
		}
		out = append(out, model.Seat{ScreeningID: screeningID, Label: label, Status: model.SeatAvailable})
	}
	return out, nil
}

// VerifyHeld checks that every label carries a live reservation by
// userID.  Missing seats are reported in a SeatConflictError.
func (l *SeatLedger) VerifyHeld(ctx context.Context, screeningID uint64, labels []string, userID uint64) error {
	found, err := l.seats.FindSeats(ctx, screeningID, labels)
	if err != nil {
		return err
	}
	now := l.now()
	var lost []string
	for _, label := range labels {
		seat, ok := found[label]
		if !ok || !seat.HeldByUser(userID, now, l.hold) {
			lost = append(lost, label)
		}
	}
	if len(lost) > 0 {
		sort.Strings(lost)
		return &SeatConflictError{Labels: lost}
	}
	return nil
}

// ConfirmBooked marks the seats of a paid booking as booked.  Seats
// already booked by the same booking are left alone, so a repeated call
// changes nothing.  A seat booked by another booking or held live by
// another user aborts the whole confirmation with a SeatConflictError.
func (l *SeatLedger) ConfirmBooked(ctx context.Context, screeningID uint64, labels []string, userID uint64, bookingID string) error {
	return l.seats.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.seats.FindSeats(ctx, screeningID, labels)
		if err != nil {
			return err
		}
		now := l.now()
		var lost []string
		var toBook []string
		for _, label := range labels {
			seat, ok := found[label]
			if !ok {
				toBook = append(toBook, label)
				continue
			}
			switch {
			case seat.Status == model.SeatBooked:
				if seat.BookingID == nil || *seat.BookingID != bookingID {
					lost = append(lost, label)
				}
			case seat.Status == model.SeatReserved && seat.HeldBy != nil && *seat.HeldBy != userID && !seat.ReservationExpired(now, l.hold):
				lost = append(lost, label)
			default:
				toBook = append(toBook, label)
			}
		}
		if len(lost) > 0 {
			sort.Strings(lost)
			return &SeatConflictError{Labels: lost}
		}
		for _, label := range toBook {
			uid, bid := userID, bookingID
			reservedAt := now
			seat, stored := found[label]
			if stored && seat.ReservedAt != nil && seat.HeldBy != nil && *seat.HeldBy == userID {
				reservedAt = *seat.ReservedAt
			}
			err := l.write(ctx, model.Seat{
				ScreeningID: screeningID,
				Label:       label,
				Status:      model.SeatBooked,
				ReservedAt:  &reservedAt,
				HeldBy:      &uid,
				BookingID:   &bid,
				UpdatedAt:   now,
			}, stored)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// write overwrites a locked row, or inserts the first row of a seat.  A
// lost insert race means another writer took the seat.
func (l *SeatLedger) write(ctx context.Context, seat model.Seat, stored bool) error {
	if stored {
		return l.seats.SaveSeat(ctx, seat)
	}
	err := l.seats.InsertSeat(ctx, seat)
	if errors.Is(err, ErrConflict) {
		return &SeatConflictError{Labels: []string{seat.Label}}
	}
	return err
}

// Release returns seats to available when they are reserved by userID or
// booked by bookingID (pass "" to release reservations only).  Seats in
// any other state are skipped.  It returns how many seats changed.
func (l *SeatLedger) Release(ctx context.Context, screeningID uint64, labels []string, userID uint64, bookingID string) (int, error) {
	return l.release(ctx, screeningID, labels, func(seat model.Seat) bool {
		switch seat.Status {
		case model.SeatReserved:
			return seat.HeldBy != nil && *seat.HeldBy == userID
		case model.SeatBooked:
			return bookingID != "" && seat.BookingID != nil && *seat.BookingID == bookingID
		}
		return false
	})
}

// AdminRelease returns seats to available whatever their state.  It is
// the only path from booked back to available for seats whose booking
// is final.
func (l *SeatLedger) AdminRelease(ctx context.Context, screeningID uint64, labels []string) (int, error) {
	labels = dedupe(labels)
	if len(labels) == 0 {
		return 0, validation("at least one seat is required")
	}
	if _, err := l.screening(ctx, screeningID, labels); err != nil {
		return 0, err
	}
	n, err := l.release(ctx, screeningID, labels, func(seat model.Seat) bool {
		return seat.Status != model.SeatAvailable
	})
	if err == nil && n > 0 {
		l.log.Warn().Uint64("screening_id", screeningID).Strs("seats", labels).Int("released", n).Msg("seats released by administrator")
	}
	return n, err
}

func (l *SeatLedger) release(ctx context.Context, screeningID uint64, labels []string, match func(model.Seat) bool) (int, error) {
	released := 0
	err := l.seats.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.seats.FindSeats(ctx, screeningID, labels)
		if err != nil {
			return err
		}
		now := l.now()
		for _, label := range labels {
			seat, ok := found[label]
			if !ok || !match(seat) {
				continue
			}
			err := l.seats.SaveSeat(ctx, model.Seat{
				ScreeningID: screeningID,
				Label:       label,
				Status:      model.SeatAvailable,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}
