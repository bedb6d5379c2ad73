package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TokenRepo stores refresh tokens by their SHA-256 hash.  A token is live
// until it expires or is redeemed; redeeming is the only way to read one.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) Save(ctx context.Context, userID uint64, hash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, hash, expires.UTC())
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Redeem revokes a live token and returns its owner.  The revoking UPDATE
// is conditional, so of two concurrent redeems of the same token only one
// wins.  Unknown, spent and expired tokens yield ErrNotFound.
func (r *TokenRepo) Redeem(ctx context.Context, hash string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		hash)
	if err != nil {
		return 0, fmt.Errorf("redeem refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	var owner uint64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token_hash = ?`, hash).Scan(&owner); err != nil {
		return 0, notFound(err)
	}
	return owner, nil
}

// RevokeUser revokes every live token of userID and reports how many.
func (r *TokenRepo) RevokeUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
