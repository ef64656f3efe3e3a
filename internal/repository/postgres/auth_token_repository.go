package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"linkup-chat/internal/domain"
)

// AuthTokenRepository implements domain.AuthTokenRepository for PostgreSQL
type AuthTokenRepository struct {
	db *sql.DB
}

// NewAuthTokenRepository creates a new PostgreSQL auth token repository
func NewAuthTokenRepository(db *sql.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

// Create inserts a new auth token
func (r *AuthTokenRepository) Create(ctx context.Context, token *domain.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (profile_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		token.ProfileID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

// GetByToken retrieves a non-expired token
func (r *AuthTokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.AuthToken, error) {
	query := `
		SELECT id, profile_id, token, expires_at, created_at
		FROM auth_tokens
		WHERE token = $1
	`
	token := &domain.AuthToken{}
	err := r.db.QueryRowContext(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.ProfileID,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return token, nil
}

// Delete removes a token
func (r *AuthTokenRepository) Delete(ctx context.Context, tokenValue string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = $1`, tokenValue)
	return err
}

// DeleteExpired removes all expired tokens and returns the count
func (r *AuthTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
