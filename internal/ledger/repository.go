package ledger

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

// GetBalanceForUpdate locks the account row and returns its balance. Call
// within a transaction; the lock is held until commit/rollback, which is
// what serializes concurrent mutations for the same account.
func (r *Repository) GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var coins int64
	err := tx.QueryRow(ctx, `
		SELECT coins FROM accounts WHERE id = $1 FOR UPDATE
	`, accountID).Scan(&coins)
	return coins, err
}

// ApplyDelta adjusts coins by the signed amount, refusing any update that
// would leave the balance negative, and returns the new balance. Call after
// GetBalanceForUpdate in the same transaction.
func (r *Repository) ApplyDelta(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET coins = coins + $1, updated_at = now()
		WHERE id = $2 AND coins + $1 >= 0
		RETURNING coins
	`, amount, accountID).Scan(&newBalance)
	return newBalance, err
}

// InsertEntry appends a ledger entry inside the given transaction.
func (r *Repository) InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, account_id, amount, tx_type, description, resulting_balance, metadata, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, e.ID, e.AccountID, e.Amount, e.TxType, e.Description, e.ResultingBalance, e.Metadata, e.CorrelationID).Scan(&e.CreatedAt)
}

// ListByAccount returns the newest entries first.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, amount, tx_type, description, resulting_balance, metadata, correlation_id, created_at
		FROM ledger_entries WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.TxType, &e.Description, &e.ResultingBalance, &e.Metadata, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
