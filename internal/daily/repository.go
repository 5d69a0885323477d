package daily

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

// GetStateForUpdate creates the state row if the account has never claimed,
// then locks it. Call within a transaction.
func (r *Repository) GetStateForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.DailyRewardState, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO daily_reward_state (account_id) VALUES ($1)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID); err != nil {
		return nil, err
	}
	var st models.DailyRewardState
	err := tx.QueryRow(ctx, `
		SELECT account_id, last_claim_day, streak_count
		FROM daily_reward_state WHERE account_id = $1 FOR UPDATE
	`, accountID).Scan(&st.AccountID, &st.LastClaimDay, &st.StreakCount)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateState writes the state row. Call after GetStateForUpdate in the same
// transaction.
func (r *Repository) UpdateState(ctx context.Context, tx pgx.Tx, st *models.DailyRewardState) error {
	_, err := tx.Exec(ctx, `
		UPDATE daily_reward_state SET last_claim_day = $2, streak_count = $3
		WHERE account_id = $1
	`, st.AccountID, st.LastClaimDay, st.StreakCount)
	return err
}

// GetState is the lock-free read used for display. Accounts that never
// claimed get the zero state back.
func (r *Repository) GetState(ctx context.Context, accountID uuid.UUID) (*models.DailyRewardState, error) {
	var st models.DailyRewardState
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, last_claim_day, streak_count
		FROM daily_reward_state WHERE account_id = $1
	`, accountID).Scan(&st.AccountID, &st.LastClaimDay, &st.StreakCount)
	if err == pgx.ErrNoRows {
		return &models.DailyRewardState{AccountID: accountID, LastClaimDay: -1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
