// Package quests owns the daily quest batch: rotation, progress, claim, and
// reroll. Rotation is generate-once per (account, day); claim and reroll are
// check-then-act inside a single transaction, so concurrent duplicates lose
// the row lock race and fail benignly.
package quests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/gameday"
	"github.com/auraplay/backend/internal/models"
)

var (
	// ErrNotFound covers both a missing quest id and a quest belonging to a
	// different account or a previous day; callers get no hint which.
	ErrNotFound = errors.New("quest not found")
	// ErrAlreadyClaimed means the reward was paid exactly once already.
	ErrAlreadyClaimed = errors.New("quest reward already claimed")
	// ErrNotCompleted means progress has not reached the target yet.
	ErrNotCompleted = errors.New("quest not completed")
	// ErrNoRerollsRemaining means today's reroll allowance is spent.
	ErrNoRerollsRemaining = errors.New("no rerolls remaining")
	// ErrCannotRerollCompleted blocks laundering a finished quest into a
	// fresh draw while keeping the completion.
	ErrCannotRerollCompleted = errors.New("cannot reroll a completed quest")
)

// Repo is the minimal storage interface for the engine.
type Repo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CountForDay(ctx context.Context, accountID uuid.UUID, day int64) (int, error)
	InsertBatch(ctx context.Context, tx pgx.Tx, batch []*models.Quest) error
	ResetRerollBudget(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, day int64, cap int) error
	DecrementReroll(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, day int64) (bool, error)
	GetRerollBudget(ctx context.Context, accountID uuid.UUID, day int64) (int, error)
	ListForDay(ctx context.Context, accountID uuid.UUID, day int64) ([]*models.Quest, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, questID uuid.UUID) (*models.Quest, error)
	MarkClaimed(ctx context.Context, tx pgx.Tx, questID uuid.UUID) error
	Replace(ctx context.Context, tx pgx.Tx, q *models.Quest) error
	Advance(ctx context.Context, accountID uuid.UUID, day int64, questType string, delta int) (int64, error)
}

// Mutator is the slice of the ledger service the engine needs.
type Mutator interface {
	ApplyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error)
	Emit(ctx context.Context, accountID uuid.UUID, newBalance, delta int64, txType string, correlationID uuid.UUID)
}

type Service struct {
	repo      Repo
	mutator   Mutator
	catalog   *Catalog
	batchSize int
	rerollCap int
	now       func() time.Time

	// rerollRng backs non-deterministic draws; rand.Rand is not safe for
	// concurrent use.
	rerollMu  sync.Mutex
	rerollRng *rand.Rand

	log *slog.Logger
}

func NewService(repo Repo, mutator Mutator, catalog *Catalog, batchSize, rerollCap int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		mutator:   mutator,
		catalog:   catalog,
		batchSize: batchSize,
		rerollCap: rerollCap,
		now:       time.Now,
		rerollRng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log,
	}
}

// EnsureRotation generates today's batch if it does not exist yet and returns
// today's day number. The draw is seeded from (account, day), and the insert
// is ON CONFLICT DO NOTHING, so concurrent or replayed rotations converge on
// one batch.
func (s *Service) EnsureRotation(ctx context.Context, accountID uuid.UUID) (int64, error) {
	today := gameday.FromTime(s.now())
	n, err := s.repo.CountForDay(ctx, accountID, today)
	if err != nil {
		return 0, fmt.Errorf("count quests: %w", err)
	}
	if n > 0 {
		return today, nil
	}

	rng := rand.New(rand.NewSource(seedFor(accountID, today)))
	batch := make([]*models.Quest, 0, s.batchSize)
	for slot := 0; slot < s.batchSize; slot++ {
		d := s.catalog.Draw(rng)
		batch = append(batch, &models.Quest{
			ID:             uuid.New(),
			AccountID:      accountID,
			Day:            today,
			Slot:           slot,
			Type:           d.Type,
			Description:    d.Description,
			Target:         d.Target,
			BaseReward:     d.BaseReward,
			MultiplierPct:  d.MultiplierPct,
			CatalogVersion: s.catalog.Version,
		})
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := s.repo.InsertBatch(ctx, tx, batch); err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	if err := s.repo.ResetRerollBudget(ctx, tx, accountID, today, s.rerollCap); err != nil {
		return 0, fmt.Errorf("reset reroll budget: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.log.Info("quest batch generated", "account_id", accountID, "day", today, "catalog", s.catalog.Version)
	return today, nil
}

// List returns today's quests and the remaining reroll budget, rotating
// first if needed.
func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]*models.Quest, int, error) {
	day, err := s.EnsureRotation(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.repo.ListForDay(ctx, accountID, day)
	if err != nil {
		return nil, 0, err
	}
	budget, err := s.repo.GetRerollBudget(ctx, accountID, day)
	if err != nil {
		return nil, 0, err
	}
	return list, budget, nil
}

// Advance credits progress toward every active quest of the given type.
// Progress is at-least-once: callers deliver each logical game event exactly
// once, and the clamp at target bounds the damage of a duplicate.
func (s *Service) Advance(ctx context.Context, accountID uuid.UUID, questType string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("delta must be positive, got %d", delta)
	}
	day, err := s.EnsureRotation(ctx, accountID)
	if err != nil {
		return err
	}
	_, err = s.repo.Advance(ctx, accountID, day, questType, delta)
	return err
}

// Claim pays out a completed quest from today's batch. Quests expire at
// rotation: a completed quest left unclaimed when the day rolls over is gone,
// the same as for Reroll. The completed/claimed re-check happens under the
// quest row lock in the same transaction as the credit.
func (s *Service) Claim(ctx context.Context, accountID, questID uuid.UUID) (reward int64, err error) {
	today := gameday.FromTime(s.now())
	correlationID := uuid.New()

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	q, err := s.repo.GetForUpdate(ctx, tx, questID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock quest: %w", err)
	}
	if q.AccountID != accountID || q.Day != today {
		return 0, ErrNotFound
	}
	if q.Claimed {
		return 0, ErrAlreadyClaimed
	}
	if !q.Completed {
		return 0, ErrNotCompleted
	}

	if err := s.repo.MarkClaimed(ctx, tx, questID); err != nil {
		return 0, fmt.Errorf("mark claimed: %w", err)
	}

	reward = q.Reward()
	meta, _ := json.Marshal(map[string]any{"quest_id": q.ID, "quest_type": q.Type, "multiplier_pct": q.MultiplierPct})
	desc := fmt.Sprintf("quest reward: %s", q.Description)
	newBalance, _, err := s.mutator.ApplyDeltaTx(ctx, tx, accountID, reward, models.TxQuestReward, desc, meta, correlationID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.mutator.Emit(ctx, accountID, newBalance, reward, models.TxQuestReward, correlationID)
	s.log.Info("quest claimed", "account_id", accountID, "quest_id", questID, "reward", reward)
	return reward, nil
}

// Reroll replaces one quest with a fresh draw, consuming one reroll from
// today's budget and resetting progress to zero. Completed quests cannot be
// rerolled.
func (s *Service) Reroll(ctx context.Context, accountID, questID uuid.UUID) (*models.Quest, error) {
	today := gameday.FromTime(s.now())

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	q, err := s.repo.GetForUpdate(ctx, tx, questID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock quest: %w", err)
	}
	if q.AccountID != accountID || q.Day != today {
		return nil, ErrNotFound
	}
	if q.Completed {
		return nil, ErrCannotRerollCompleted
	}

	ok, err := s.repo.DecrementReroll(ctx, tx, accountID, today)
	if err != nil {
		return nil, fmt.Errorf("decrement reroll budget: %w", err)
	}
	if !ok {
		return nil, ErrNoRerollsRemaining
	}

	s.rerollMu.Lock()
	d := s.catalog.Draw(s.rerollRng)
	s.rerollMu.Unlock()

	q.Type = d.Type
	q.Description = d.Description
	q.Target = d.Target
	q.Progress = 0
	q.BaseReward = d.BaseReward
	q.MultiplierPct = d.MultiplierPct
	q.Completed = false
	q.CatalogVersion = s.catalog.Version
	if err := s.repo.Replace(ctx, tx, q); err != nil {
		return nil, fmt.Errorf("replace quest: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.Info("quest rerolled", "account_id", accountID, "quest_id", questID, "new_type", q.Type)
	return q, nil
}
