package security

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auraplay/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const accountColumns = `id, email, display_name, password_hash, coins, email_verified_at, mfa_enabled, password_changed_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Coins, &a.EmailVerifiedAt, &a.MFAEnabled, &a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount is the lock-free read used when surfacing prompts.
func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1
	`, id))
}

// GetAccountForUpdate locks the account row so the predicate evaluation and
// the grant insert cannot interleave with a concurrent claim. Call within a
// transaction.
func (r *Repository) GetAccountForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE
	`, id))
}

// InsertGrant adds the predicate key to the account's grant set. Returns
// false when the key was already granted; the primary key makes the set
// append-only.
func (r *Repository) InsertGrant(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, predicateKey string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO security_reward_grants (account_id, predicate_key) VALUES ($1, $2)
		ON CONFLICT (account_id, predicate_key) DO NOTHING
	`, accountID, predicateKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListGrants returns the predicate keys already paid out.
func (r *Repository) ListGrants(ctx context.Context, accountID uuid.UUID) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT predicate_key FROM security_reward_grants WHERE account_id = $1
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	granted := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		granted[key] = true
	}
	return granted, rows.Err()
}
