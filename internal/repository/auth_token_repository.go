package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthTokenRecord mirrors an issued access token so sign-out can invalidate
// it server-side even though the JWT itself is stateless.
type AuthTokenRecord struct {
	ID        string
	UserID    string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	IsValid   bool
}

// AuthTokenRepository tracks issued tokens.
type AuthTokenRepository interface {
	Create(ctx context.Context, record *AuthTokenRecord) error
	GetValid(ctx context.Context, token string) (*AuthTokenRecord, error)
	Invalidate(ctx context.Context, token string) error
}

type authTokenRepository struct {
	pool *pgxpool.Pool
}

// NewAuthTokenRepository instantiates repository.
func NewAuthTokenRepository(pool *pgxpool.Pool) AuthTokenRepository {
	return &authTokenRepository{pool: pool}
}

func (r *authTokenRepository) Create(ctx context.Context, record *AuthTokenRecord) error {
	const query = `
        INSERT INTO auth_tokens (user_id, token, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, issued_at, is_valid`
	return r.pool.QueryRow(ctx, query,
		record.UserID,
		record.Token,
		record.ExpiresAt,
	).Scan(&record.ID, &record.IssuedAt, &record.IsValid)
}

func (r *authTokenRepository) GetValid(ctx context.Context, token string) (*AuthTokenRecord, error) {
	const query = `
        SELECT id, user_id, token, issued_at, expires_at, is_valid
        FROM auth_tokens WHERE token=$1 AND is_valid=TRUE AND expires_at > NOW()`
	var record AuthTokenRecord
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&record.ID,
		&record.UserID,
		&record.Token,
		&record.IssuedAt,
		&record.ExpiresAt,
		&record.IsValid,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *authTokenRepository) Invalidate(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `UPDATE auth_tokens SET is_valid=FALSE WHERE token=$1`, token)
	return err
}
