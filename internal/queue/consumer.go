package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-ticketing/internal/ticket"
)

// TicketMailer delivers a rendered ticket to a mailbox.
type TicketMailer interface {
	SendTicket(ctx context.Context, to, subject, body string, png []byte) error
}

// Consumer listens to the booking.confirmed and ticket.email queues.
// Confirmed bookings are appended to <LogDir>/booking.log; ticket email
// requests are rendered and handed to the mailer.
type Consumer struct {
	URL      string
	LogDir   string
	Location *time.Location
	Mailer   TicketMailer
	Log      zerolog.Logger

	fileMu sync.Mutex
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s; a message
// that cannot be processed is rejected without requeue so a poison
// message cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.Log.Warn().Err(err).Msg("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn().Err(err).Msg("booking-consumer: set QoS failed")
	}

	deliveries := make(map[string]<-chan amqp.Delivery, 2)
	for _, q := range []string{BookingConfirmedQueue, TicketEmailQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		deliveries[q] = msgs
	}

	confirmed, emails := deliveries[BookingConfirmedQueue], deliveries[TicketEmailQueue]
	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-emails:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
			c.Log.Error().Err(err).Str("queue", d.RoutingKey).Msg("booking-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

// Handle dispatches one message body by queue name.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.logConfirmed(ev)
	case TicketEmailQueue:
		var ev TicketEmailRequested
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return c.sendTicket(ctx, ev)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}
}

func (c *Consumer) logConfirmed(ev BookingConfirmedEvent) error {
	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}

	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%d | screening_id=%d | theater=%q | room=%q | movie=%q | total=%d | seats=[%s]\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ScreeningID, ev.Theater, ev.Room, ev.MovieTitle, ev.TotalPrice, strings.Join(ev.SeatLabels, ","))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	c.Log.Info().Str("booking_id", ev.BookingID).Int("seats", len(ev.SeatLabels)).Msg("booking confirmed")
	return nil
}

func (c *Consumer) sendTicket(ctx context.Context, ev TicketEmailRequested) error {
	if c.Mailer == nil {
		return errors.New("no mailer configured")
	}
	if ev.Email == "" {
		return errors.New("ticket email without recipient")
	}
	payload, png, err := ticket.QR(ev.Details, c.Location)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your ticket for %s", ev.Details.MovieTitle)
	if err := c.Mailer.SendTicket(ctx, ev.Email, subject, payload, png); err != nil {
		return fmt.Errorf("send ticket: %w", err)
	}
	c.Log.Info().Str("booking_id", ev.Details.BookingID).Msg("ticket email sent")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
