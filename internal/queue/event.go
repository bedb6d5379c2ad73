// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and the background consumer.
package queue

import "github.com/iliyamo/cinema-ticketing/internal/model"

// Queue names.  Both queues are durable and published to through the
// default exchange with the queue name as routing key.
const (
	BookingConfirmedQueue = "booking.confirmed"
	TicketEmailQueue      = "ticket.email"
)

// BookingConfirmedEvent is published when a booking is paid and its seats
// are booked.  It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ScreeningID uint64   `json:"screening_id"`
	MovieTitle  string   `json:"movie_title"`
	Theater     string   `json:"theater"`
	Room        string   `json:"room"`
	StartsAt    string   `json:"starts_at"`
	SeatLabels  []string `json:"seats"`
	TotalPrice  int64    `json:"total_price"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// TicketEmailRequested asks the consumer to mail the ticket of a paid
// booking.  The confirmation snapshot travels with the message so the
// consumer can render the QR code without a database round trip.
type TicketEmailRequested struct {
	Email       string                    `json:"email"`
	Details     model.ConfirmationDetails `json:"details"`
	RequestedAt string                    `json:"requested_at"`
}
