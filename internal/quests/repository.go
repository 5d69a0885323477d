package quests

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

// CountForDay reports how many quest rows exist for the account's day.
func (r *Repository) CountForDay(ctx context.Context, accountID uuid.UUID, day int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM quests WHERE account_id = $1 AND day = $2
	`, accountID, day).Scan(&n)
	return n, err
}

// InsertBatch inserts the day's quests. ON CONFLICT DO NOTHING makes a
// replayed rotation a no-op instead of a second batch.
func (r *Repository) InsertBatch(ctx context.Context, tx pgx.Tx, batch []*models.Quest) error {
	for _, q := range batch {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quests (id, account_id, day, slot, type, description, target, progress, base_reward, multiplier_pct, completed, claimed, catalog_version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, FALSE, FALSE, $10)
			ON CONFLICT (account_id, day, slot) DO NOTHING
		`, q.ID, q.AccountID, q.Day, q.Slot, q.Type, q.Description, q.Target, q.BaseReward, q.MultiplierPct, q.CatalogVersion); err != nil {
			return err
		}
	}
	return nil
}

// ResetRerollBudget creates the day's budget row at the cap if it does not
// exist yet.
func (r *Repository) ResetRerollBudget(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, day int64, cap int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO quest_reroll_budget (account_id, day, remaining) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, day) DO NOTHING
	`, accountID, day, cap)
	return err
}

// DecrementReroll consumes one reroll. Returns false when the budget is
// already exhausted; the conditional update is the race guard.
func (r *Repository) DecrementReroll(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, day int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE quest_reroll_budget SET remaining = remaining - 1
		WHERE account_id = $1 AND day = $2 AND remaining > 0
	`, accountID, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetRerollBudget returns the remaining rerolls for the day, 0 when the row
// is absent.
func (r *Repository) GetRerollBudget(ctx context.Context, accountID uuid.UUID, day int64) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx, `
		SELECT remaining FROM quest_reroll_budget WHERE account_id = $1 AND day = $2
	`, accountID, day).Scan(&remaining)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return remaining, err
}

const questColumns = `id, account_id, day, slot, type, description, target, progress, base_reward, multiplier_pct, completed, claimed, catalog_version, created_at`

func scanQuest(row pgx.Row) (*models.Quest, error) {
	var q models.Quest
	err := row.Scan(&q.ID, &q.AccountID, &q.Day, &q.Slot, &q.Type, &q.Description, &q.Target, &q.Progress, &q.BaseReward, &q.MultiplierPct, &q.Completed, &q.Claimed, &q.CatalogVersion, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListForDay returns the account's quest batch for the day, slot order.
func (r *Repository) ListForDay(ctx context.Context, accountID uuid.UUID, day int64) ([]*models.Quest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questColumns+` FROM quests
		WHERE account_id = $1 AND day = $2 ORDER BY slot
	`, accountID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// GetForUpdate locks one quest row. Call within a transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, questID uuid.UUID) (*models.Quest, error) {
	return scanQuest(tx.QueryRow(ctx, `
		SELECT `+questColumns+` FROM quests WHERE id = $1 FOR UPDATE
	`, questID))
}

// MarkClaimed flips the claimed flag. Call after GetForUpdate in the same
// transaction.
func (r *Repository) MarkClaimed(ctx context.Context, tx pgx.Tx, questID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE quests SET claimed = TRUE WHERE id = $1`, questID)
	return err
}

// Replace swaps the quest's template fields after a reroll, resetting
// progress. Call after GetForUpdate in the same transaction.
func (r *Repository) Replace(ctx context.Context, tx pgx.Tx, q *models.Quest) error {
	_, err := tx.Exec(ctx, `
		UPDATE quests
		SET type = $2, description = $3, target = $4, progress = 0,
		    base_reward = $5, multiplier_pct = $6, completed = FALSE, catalog_version = $7
		WHERE id = $1
	`, q.ID, q.Type, q.Description, q.Target, q.BaseReward, q.MultiplierPct, q.CatalogVersion)
	return err
}

// Advance increments progress on every active matching quest, clamped at
// target, flipping completed when the target is reached. A single statement,
// so it needs no surrounding transaction.
func (r *Repository) Advance(ctx context.Context, accountID uuid.UUID, day int64, questType string, delta int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quests
		SET progress = LEAST(progress + $4, target),
		    completed = (progress + $4 >= target)
		WHERE account_id = $1 AND day = $2 AND type = $3
		  AND completed = FALSE AND claimed = FALSE
	`, accountID, day, questType, delta)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteDaysBefore prunes quest and budget rows for days before the cutoff.
func (r *Repository) DeleteDaysBefore(ctx context.Context, day int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quests WHERE day < $1`, day)
	if err != nil {
		return 0, err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM quest_reroll_budget WHERE day < $1`, day); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
