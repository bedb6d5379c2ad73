package model

import "time"

// ConfirmationDetails is the read-only projection rendered after
// checkout.  It is rebuilt on every request from the booking and its
// screening and is never stored.
type ConfirmationDetails struct {
	BookingID   string        `json:"booking_id"`
	Status      BookingStatus `json:"status"`
	MovieTitle  string        `json:"movie_title"`
	PosterURL   string        `json:"poster_url,omitempty"`
	Theater     string        `json:"theater"`
	Room        string        `json:"room"`
	StartsAt    time.Time     `json:"starts_at"`
	Seats       []string      `json:"seats"`
	BasePrice   int64         `json:"base_price"`
	Discount    int64         `json:"discount"`
	TotalPrice  int64         `json:"total_price"`
	BookedAt    time.Time     `json:"booked_at"`
	QRPayload   string        `json:"qr_payload,omitempty"`
	QRImagePNG  []byte        `json:"qr_image_png,omitempty"`
}
