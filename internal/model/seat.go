package model

import "time"

// SeatStatus is the ledger state of a single seat in a screening.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

// Seat describes the state of one seat for one screening.  Seats are
// identified by the pair (screening, label) where the label combines a
// row letter and a seat number, e.g. "A1" or "AB12".  A seat that has
// never left the available state has no stored row; the ledger
// synthesizes it from the screening layout.
//
// Fields:
//  ScreeningID – screening this seat belongs to.
//  Label       – row letter(s) followed by the seat number.
//  Status      – available, reserved or booked.
//  ReservedAt  – when the current reservation was taken (nil unless reserved or booked).
//  HeldBy      – user holding the reservation or owning the booking.
//  BookingID   – booking that booked the seat (nil unless booked).
//  UpdatedAt   – last modification of the stored row.
type Seat struct {
	ScreeningID uint64     `json:"screening_id"`
	Label       string     `json:"label"`
	Status      SeatStatus `json:"status"`
	ReservedAt  *time.Time `json:"reserved_at,omitempty"`
	HeldBy      *uint64    `json:"held_by,omitempty"`
	BookingID   *string    `json:"booking_id,omitempty"`
	UpdatedAt   time.Time  `json:"-"`
}

// ReservationExpired reports whether the seat is reserved and its hold is
// older than the given hold duration at the instant now.
func (s Seat) ReservationExpired(now time.Time, hold time.Duration) bool {
	if s.Status != SeatReserved || s.ReservedAt == nil {
		return false
	}
	return !s.ReservedAt.Add(hold).After(now)
}

// Effective resolves an expired reservation to available.  The stored row
// is not touched; this is the read-time expiry check.
func (s Seat) Effective(now time.Time, hold time.Duration) Seat {
	if s.ReservationExpired(now, hold) {
		s.Status = SeatAvailable
		s.ReservedAt = nil
		s.HeldBy = nil
	}
	return s
}

// HeldByUser reports whether the seat is reserved by userID and the hold
// is still live.
func (s Seat) HeldByUser(userID uint64, now time.Time, hold time.Duration) bool {
	return s.Status == SeatReserved && s.HeldBy != nil && *s.HeldBy == userID && !s.ReservationExpired(now, hold)
}
