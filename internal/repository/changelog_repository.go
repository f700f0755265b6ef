package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// ChangelogRepository persists the append-only audit trail of a
// requisition. Rows are never updated or deleted; invoked only by lifecycle
// operations and the replacement confirmation protocol.
type ChangelogRepository interface {
	Append(ctx context.Context, event *domain.ChangeEvent) error
	ListByRequisition(ctx context.Context, requisitionID string) ([]domain.ChangeEvent, error)
}

type changelogRepository struct {
	pool *pgxpool.Pool
}

// NewChangelogRepository instantiates repository.
func NewChangelogRepository(pool *pgxpool.Pool) ChangelogRepository {
	return &changelogRepository{pool: pool}
}

func (r *changelogRepository) Append(ctx context.Context, event *domain.ChangeEvent) error {
	const query = `
        INSERT INTO requisition_events (requisition_id, action, actor, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		event.RequisitionID,
		event.Action,
		event.Actor,
		event.Details,
	).Scan(&event.ID, &event.Timestamp)
}

// ListByRequisition returns events oldest first.
func (r *changelogRepository) ListByRequisition(ctx context.Context, requisitionID string) ([]domain.ChangeEvent, error) {
	const query = `
        SELECT id, requisition_id, action, actor, details, created_at
        FROM requisition_events WHERE requisition_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChangeEvents(rows)
}

func scanChangeEvents(rows pgx.Rows) ([]domain.ChangeEvent, error) {
	var result []domain.ChangeEvent
	for rows.Next() {
		var event domain.ChangeEvent
		if err := rows.Scan(
			&event.ID,
			&event.RequisitionID,
			&event.Action,
			&event.Actor,
			&event.Details,
			&event.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
