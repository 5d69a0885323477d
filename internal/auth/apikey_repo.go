package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auraplay/backend/internal/models"
)

// APIKeyRepo stores the game-server API keys. Keys authenticate the trusted
// gameplay-event and wager surface, not players.
type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

func (r *APIKeyRepo) Create(ctx context.Context, label, keyHash string) (*models.APIKey, error) {
	k := &models.APIKey{ID: uuid.New(), Label: label, KeyHash: keyHash}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, label, key_hash) VALUES ($1, $2, $3)
		RETURNING created_at
	`, k.ID, k.Label, k.KeyHash).Scan(&k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (r *APIKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, label, key_hash, created_at FROM api_keys WHERE key_hash = $1
	`, keyHash).Scan(&k.ID, &k.Label, &k.KeyHash, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}
