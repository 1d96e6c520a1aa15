package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
// Subjects are judge ids or the fixed admin subject.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, subject, role, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (subject, role, token_hash, expires_at) VALUES (?,?,?,?)",
		subject, role, tokenHash, exp)
	return err
}

// ValidateRefresh returns the subject and role of a non-revoked, non-expired token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (subject, role string, err error) {
	var (
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err = r.DB.QueryRowContext(ctx,
		"SELECT subject, role, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&subject, &role, &expiresAt, &revokedAt)
	if err != nil {
		return "", "", err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", "", sql.ErrNoRows
	}
	return subject, role, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForSubject revokes all of a subject's active tokens.
func (r *TokenRepo) RevokeAllForSubject(ctx context.Context, subject string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE subject=? AND revoked_at IS NULL",
		subject)
	return err
}

// DeleteStale removes tokens that expired or were revoked before cutoff.
func (r *TokenRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)",
		cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
