package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// ErrTokenConsumed is returned when resolving a token that is unknown,
// expired, or already resolved. Callers must not distinguish the cases.
var ErrTokenConsumed = errors.New("replacement token not resolvable")

// ReplacementTokenRepository persists single-use confirmation tokens.
type ReplacementTokenRepository interface {
	Create(ctx context.Context, token *domain.ReplacementToken) error
	GetByToken(ctx context.Context, token string) (*domain.ReplacementToken, error)
	// Resolve consumes the token exactly once; ErrTokenConsumed when the row
	// is not pending and unexpired.
	Resolve(ctx context.Context, token string, status domain.TokenStatus) (*domain.ReplacementToken, error)
	ListPendingByUser(ctx context.Context, userID string) ([]domain.ReplacementToken, error)
}

type replacementTokenRepository struct {
	pool *pgxpool.Pool
}

// NewReplacementTokenRepository instantiates repository.
func NewReplacementTokenRepository(pool *pgxpool.Pool) ReplacementTokenRepository {
	return &replacementTokenRepository{pool: pool}
}

const replacementTokenColumns = `id, token, requisition_id, replacement_user_id, status, expires_at, resolved_at, created_at`

func (r *replacementTokenRepository) Create(ctx context.Context, token *domain.ReplacementToken) error {
	const query = `
        INSERT INTO replacement_tokens (token, requisition_id, replacement_user_id, status, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.Token,
		token.RequisitionID,
		token.ReplacementUserID,
		token.Status,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *replacementTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ReplacementToken, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+replacementTokenColumns+` FROM replacement_tokens WHERE token=$1`, token)
	return scanReplacementToken(row)
}

func (r *replacementTokenRepository) Resolve(ctx context.Context, token string, status domain.TokenStatus) (*domain.ReplacementToken, error) {
	const query = `
        UPDATE replacement_tokens SET status=$2, resolved_at=NOW()
        WHERE token=$1 AND status='pending' AND expires_at > NOW()
        RETURNING ` + replacementTokenColumns
	resolved, err := scanReplacementToken(r.pool.QueryRow(ctx, query, token, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenConsumed
	}
	return resolved, err
}

func (r *replacementTokenRepository) ListPendingByUser(ctx context.Context, userID string) ([]domain.ReplacementToken, error) {
	const query = `
        SELECT ` + replacementTokenColumns + ` FROM replacement_tokens
        WHERE replacement_user_id=$1 AND status='pending' AND expires_at > NOW()
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReplacementToken
	for rows.Next() {
		token, err := scanReplacementToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *token)
	}
	return result, rows.Err()
}

func scanReplacementToken(row pgx.Row) (*domain.ReplacementToken, error) {
	var token domain.ReplacementToken
	if err := row.Scan(
		&token.ID,
		&token.Token,
		&token.RequisitionID,
		&token.ReplacementUserID,
		&token.Status,
		&token.ExpiresAt,
		&token.ResolvedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
