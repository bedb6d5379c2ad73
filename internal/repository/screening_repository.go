package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CatalogRepo reads and writes the catalogue: movies, screenings and
// promotions.  Writes only happen when an admin approves a request.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const screeningSelect = `SELECT s.id, s.movie_id, m.title, m.poster_url, s.theater, s.room,
								s.starts_at, s.base_price, s.seat_rows, s.seat_cols
						   FROM screenings s
						   JOIN movies m ON m.id = s.movie_id`

// GetScreening loads a screening with its movie title and poster.
func (r *CatalogRepo) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	row := r.db.QueryRowContext(ctx, screeningSelect+` WHERE s.id = ?`, id)
	s, err := scanScreening(row)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// ScreeningFilter narrows ListScreenings.  Zero values do not filter.
type ScreeningFilter struct {
	MovieID uint64
	From    time.Time
	Title   string
	Limit   int
}

// ListScreenings returns screenings ordered by start time.
func (r *CatalogRepo) ListScreenings(ctx context.Context, f ScreeningFilter) ([]model.Screening, error) {
	where := []string{}
	args := []any{}
	if f.MovieID != 0 {
		where = append(where, "s.movie_id = ?")
		args = append(args, f.MovieID)
	}
	if !f.From.IsZero() {
		where = append(where, "s.starts_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Title)+"%")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, screeningSelect+` WHERE `+cond+` ORDER BY s.starts_at ASC, s.id ASC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Screening{}
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CreateScreening inserts a screening and sets its id.
func (r *CatalogRepo) CreateScreening(ctx context.Context, s *model.Screening) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO screenings (movie_id, theater, room, starts_at, base_price, seat_rows, seat_cols)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.MovieID, s.Theater, s.Room, s.StartsAt.UTC(), s.BasePrice, s.SeatRows, s.SeatCols)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetMovie loads a movie by id.
func (r *CatalogRepo) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, poster_url, duration_min, created_at FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.PosterURL, &m.DurationMin, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListMovies returns all movies, newest first.
func (r *CatalogRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, poster_url, duration_min, created_at FROM movies ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.PosterURL, &m.DurationMin, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateMovie inserts a movie and sets its id.
func (r *CatalogRepo) CreateMovie(ctx context.Context, m *model.Movie) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, poster_url, duration_min, created_at) VALUES (?, ?, ?, ?)`,
		m.Title, m.PosterURL, m.DurationMin, m.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetPromotionByCode resolves a promotion code case-insensitively.
func (r *CatalogRepo) GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error) {
	var (
		p       model.Promotion
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, discount_amount, discount_percent, expires_at, active FROM promotions WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code))).
		Scan(&p.ID, &p.Code, &p.DiscountAmount, &p.DiscountPercent, &expires, &p.Active)
	if err != nil {
		return nil, notFound(err)
	}
	if expires.Valid {
		t := expires.Time.UTC()
		p.ExpiresAt = &t
	}
	return &p, nil
}

// CreatePromotion inserts a promotion.  A duplicate code is ErrConflict.
func (r *CatalogRepo) CreatePromotion(ctx context.Context, p *model.Promotion) error {
	var expires any
	if p.ExpiresAt != nil {
		expires = p.ExpiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO promotions (code, discount_amount, discount_percent, expires_at, active) VALUES (?, ?, ?, ?, ?)`,
		strings.ToUpper(p.Code), p.DiscountAmount, p.DiscountPercent, expires, p.Active)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func scanScreening(s rowScanner) (*model.Screening, error) {
	var (
		out    model.Screening
		poster sql.NullString
	)
	if err := s.Scan(&out.ID, &out.MovieID, &out.MovieTitle, &poster, &out.Theater, &out.Room,
		&out.StartsAt, &out.BasePrice, &out.SeatRows, &out.SeatCols); err != nil {
		return nil, err
	}
	out.PosterURL = poster.String
	out.StartsAt = out.StartsAt.UTC()
	return &out, nil
}
