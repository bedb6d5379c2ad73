package model

import "time"

// Movie is a film that can be scheduled into screenings.
type Movie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"poster_url"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

// Screening represents a scheduled showing of a movie in a specific room
// at a specific time.  SeatRows and SeatCols define the seat layout: rows
// are labelled A, B, ... Z, AA, AB and seats are numbered from 1.  The
// base price is charged per seat in whole currency units.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being shown.
//  MovieTitle – denormalized title loaded with the screening.
//  PosterURL  – denormalized poster loaded with the screening.
//  Theater    – theater (venue) name.
//  Room       – room name inside the theater.
//  StartsAt   – showtime in UTC.
//  BasePrice  – price per seat.
//  SeatRows   – number of rows in the layout.
//  SeatCols   – number of seats per row.
type Screening struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	PosterURL  string    `json:"poster_url,omitempty"`
	Theater    string    `json:"theater"`
	Room       string    `json:"room"`
	StartsAt   time.Time `json:"starts_at"`
	BasePrice  int64     `json:"base_price"`
	SeatRows   int       `json:"seat_rows"`
	SeatCols   int       `json:"seat_cols"`
}

// Promotion is a discount code applied at booking creation.  A non-zero
// DiscountAmount wins over DiscountPercent.
type Promotion struct {
	ID              uint64     `json:"id"`
	Code            string     `json:"code"`
	DiscountAmount  int64      `json:"discount_amount"`
	DiscountPercent int        `json:"discount_percent"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          bool       `json:"active"`
}

// Usable reports whether the promotion can be applied at instant now.
func (p Promotion) Usable(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

// DiscountFor computes the discount granted on subtotal.  The result is
// never negative and never exceeds subtotal.
func (p Promotion) DiscountFor(subtotal int64) int64 {
	var d int64
	if p.DiscountAmount > 0 {
		d = p.DiscountAmount
	} else if p.DiscountPercent > 0 {
		d = subtotal * int64(p.DiscountPercent) / 100
	}
	if d < 0 {
		d = 0
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}
