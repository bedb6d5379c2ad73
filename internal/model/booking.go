package model

import "time"

// BookingStatus is the payment state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingPaid      BookingStatus = "paid"
	BookingFailed    BookingStatus = "failed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingPaid || s == BookingFailed || s == BookingCancelled
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	return s == BookingPending || s.Terminal()
}

// Booking records a user's purchase of one or more seats of a screening.
// TotalPrice always equals BasePrice × len(Seats) − Discount and is never
// negative.  The seat list is fixed once the status leaves pending.
//
// Fields:
//  ID          – UUID, also used as the payment gateway transaction reference.
//  UserID      – user who created the booking.
//  ScreeningID – screening being booked.
//  Seats       – ordered seat labels.
//  BasePrice   – price per seat.
//  Discount    – discount applied to the subtotal.
//  TotalPrice  – amount charged.
//  Status      – pending, paid, failed or cancelled.
//  PromoCode   – optional promotion code applied at creation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last status change.
type Booking struct {
	ID          string        `json:"id"`
	UserID      uint64        `json:"user_id"`
	ScreeningID uint64        `json:"screening_id"`
	Seats       []string      `json:"seats"`
	BasePrice   int64         `json:"base_price"`
	Discount    int64         `json:"discount"`
	TotalPrice  int64         `json:"total_price"`
	Status      BookingStatus `json:"status"`
	PromoCode   *string       `json:"promo_code,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Pricing is the price breakdown of a booking.
type Pricing struct {
	BasePrice int64 `json:"base_price"`
	Discount  int64 `json:"discount"`
}

// Total returns base × seats − discount.
func (p Pricing) Total(seats int) int64 {
	return p.BasePrice*int64(seats) - p.Discount
}

// Valid reports whether the pricing satisfies the booking invariants for
// the given seat count: non-negative base and discount, non-negative total.
func (p Pricing) Valid(seats int) bool {
	return p.BasePrice >= 0 && p.Discount >= 0 && p.Total(seats) >= 0
}

// Pricing extracts the price breakdown of the booking.
func (b Booking) Pricing() Pricing {
	return Pricing{BasePrice: b.BasePrice, Discount: b.Discount}
}
