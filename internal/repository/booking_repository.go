package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// BookingRepo provides persistence for bookings.  The seat labels are
// stored as a JSON array in the seats column; the list never changes
// after creation.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, screening_id, seats, base_price, discount, total_price, status, promo_code, created_at, updated_at`

// Create inserts a booking.  The caller supplies the id.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	var promo any
	if b.PromoCode != nil {
		promo = *b.PromoCode
	}
	q, _ := conn(ctx, r.db)
	_, err = q.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.ScreeningID, string(seats), b.BasePrice, b.Discount, b.TotalPrice,
		string(b.Status), promo, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Get loads a booking by id.
func (r *BookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	q, _ := conn(ctx, r.db)
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// TransitionFromPending moves a pending booking to status to with the
// given pricing.  It reports false when the booking had already left
// pending, so concurrent writers cannot both apply a transition.
func (r *BookingRepo) TransitionFromPending(ctx context.Context, id string, to model.BookingStatus, p model.Pricing, total int64) (bool, error) {
	q, _ := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`UPDATE bookings
			SET status = ?, base_price = ?, discount = ?, total_price = ?, updated_at = ?
		  WHERE id = ? AND status = 'pending'`,
		string(to), p.BasePrice, p.Discount, total, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByUser returns the bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q, _ := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		seats  string
		status string
		promo  sql.NullString
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.ScreeningID, &seats, &b.BasePrice, &b.Discount,
		&b.TotalPrice, &status, &promo, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seats), &b.Seats); err != nil {
		return nil, fmt.Errorf("decode seats of booking %s: %w", b.ID, err)
	}
	b.Status = model.BookingStatus(status)
	if promo.Valid {
		p := promo.String
		b.PromoCode = &p
	}
	return &b, nil
}
