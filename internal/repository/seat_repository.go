package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeatRepo persists the seat ledger in the seat_states table.  A row
// exists only for seats that have left the available state at least once;
// the primary key is (screening_id, label).  Timestamps are UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// WithTx runs fn in a transaction.  FindSeats called with the derived
// context locks the rows it reads.
func (r *SeatRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const seatColumns = `screening_id, label, status, reserved_at, held_by, booking_id, updated_at`

// FindSeats returns the stored rows for labels keyed by label.  Inside a
// transaction the rows are read with SELECT ... FOR UPDATE.
func (r *SeatRepo) FindSeats(ctx context.Context, screeningID uint64, labels []string) (map[string]model.Seat, error) {
	out := make(map[string]model.Seat, len(labels))
	if len(labels) == 0 {
		return out, nil
	}
	q, inTx := conn(ctx, r.db)
	query := `SELECT ` + seatColumns + ` FROM seat_states WHERE screening_id = ? AND label IN (` + placeholders(len(labels)) + `)`
	if inTx {
		query += ` FOR UPDATE`
	}
	args := make([]any, 0, len(labels)+1)
	args = append(args, screeningID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out[s.Label] = s
	}
	return out, rows.Err()
}

// SaveSeat upserts one seat row.  Callers use it for rows they read and
// locked inside the current transaction.
func (r *SeatRepo) SaveSeat(ctx context.Context, s model.Seat) error {
	q, _ := conn(ctx, r.db)
	const upsert = `INSERT INTO seat_states (` + seatColumns + `)
					VALUES (?, ?, ?, ?, ?, ?, ?)
					ON DUPLICATE KEY UPDATE
						status = VALUES(status),
						reserved_at = VALUES(reserved_at),
						held_by = VALUES(held_by),
						booking_id = VALUES(booking_id),
						updated_at = VALUES(updated_at)`
	_, err := q.ExecContext(ctx, upsert, seatArgs(s)...)
	return err
}

// InsertSeat stores the first row for a seat.  A locking read of a missing
// row takes no lock under READ COMMITTED, so two transactions can both
// see the seat as untouched; the primary key decides between them and
// the loser gets ErrConflict.
func (r *SeatRepo) InsertSeat(ctx context.Context, s model.Seat) error {
	q, _ := conn(ctx, r.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO seat_states (`+seatColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seatArgs(s)...)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func seatArgs(s model.Seat) []any {
	var reservedAt, heldBy, bookingID any
	if s.ReservedAt != nil {
		reservedAt = s.ReservedAt.UTC()
	}
	if s.HeldBy != nil {
		heldBy = *s.HeldBy
	}
	if s.BookingID != nil {
		bookingID = *s.BookingID
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return []any{s.ScreeningID, s.Label, string(s.Status), reservedAt, heldBy, bookingID, updated.UTC()}
}

// ListByScreening returns every stored row of a screening.
func (r *SeatRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	q, _ := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, `SELECT `+seatColumns+` FROM seat_states WHERE screening_id = ?`, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReleaseExpired reverts reservations taken at or before cutoff in one
// statement and returns the number of rows changed.  Booked rows are
// never touched.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	q, _ := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`UPDATE seat_states
			SET status = 'available', reserved_at = NULL, held_by = NULL, booking_id = NULL, updated_at = UTC_TIMESTAMP()
		  WHERE status = 'reserved' AND reserved_at <= ?`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSeat(rows *sql.Rows) (model.Seat, error) {
	var (
		s          model.Seat
		status     string
		reservedAt sql.NullTime
		heldBy     sql.NullInt64
		bookingID  sql.NullString
	)
	if err := rows.Scan(&s.ScreeningID, &s.Label, &status, &reservedAt, &heldBy, &bookingID, &s.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	s.Status = model.SeatStatus(status)
	if reservedAt.Valid {
		t := reservedAt.Time.UTC()
		s.ReservedAt = &t
	}
	if heldBy.Valid {
		u := uint64(heldBy.Int64)
		s.HeldBy = &u
	}
	if bookingID.Valid {
		b := bookingID.String
		s.BookingID = &b
	}
	return s, nil
}
