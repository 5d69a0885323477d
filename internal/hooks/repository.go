package hooks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auraplay/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, accountID uuid.UUID, url string) (*models.Webhook, error) {
	hook := &models.Webhook{AccountID: accountID, URL: url}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO webhooks (account_id, url)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, accountID, url)
	if err := row.Scan(&hook.ID, &hook.CreatedAt); err != nil {
		return nil, err
	}
	return hook, nil
}

func (r *Repository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Webhook, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, url, created_at
		FROM webhooks
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Webhook
	for rows.Next() {
		var h models.Webhook
		if err := rows.Scan(&h.ID, &h.AccountID, &h.URL, &h.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}

// Delete removes the hook only when it belongs to the caller. Returns false
// when no row matched.
func (r *Repository) Delete(ctx context.Context, accountID, hookID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM webhooks WHERE id = $1 AND account_id = $2
	`, hookID, accountID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
