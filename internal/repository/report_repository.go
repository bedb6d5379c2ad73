package repository

import (
	"context"
	"database/sql"
	"time"
)

// RevenueRow is the paid revenue of one movie over a period.
type RevenueRow struct {
	MovieID    uint64 `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	Bookings   int64  `json:"bookings"`
	Seats      int64  `json:"seats"`
	Revenue    int64  `json:"revenue"`
}

// ReportRepo answers reporting queries over paid bookings.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// RevenueByMovie sums paid booking totals per movie for bookings created
// in [from, to).
func (r *ReportRepo) RevenueByMovie(ctx context.Context, from, to time.Time) ([]RevenueRow, error) {
	const q = `SELECT m.id, m.title, COUNT(*), COALESCE(SUM(JSON_LENGTH(b.seats)), 0), COALESCE(SUM(b.total_price), 0)
				 FROM bookings b
				 JOIN screenings s ON s.id = b.screening_id
				 JOIN movies m ON m.id = s.movie_id
				WHERE b.status = 'paid' AND b.created_at >= ? AND b.created_at < ?
				GROUP BY m.id, m.title
				ORDER BY 5 DESC, m.id ASC`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RevenueRow{}
	for rows.Next() {
		var row RevenueRow
		if err := rows.Scan(&row.MovieID, &row.MovieTitle, &row.Bookings, &row.Seats, &row.Revenue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
