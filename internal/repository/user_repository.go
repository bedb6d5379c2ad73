package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// ErrEmailExists is returned by Create when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo reads and creates accounts.  Emails are stored lower-cased.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const selectUser = `SELECT id, email, password_hash, role, is_active, created_at, updated_at FROM users `

func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(email)), hash, role)
	switch {
	case isDuplicate(err):
		return 0, ErrEmailExists
	case err != nil:
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+`WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+`WHERE id = ?`, id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}
