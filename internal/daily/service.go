// Package daily grants the once-per-day login reward and keeps the streak.
// Day boundaries come from gameday, never from client clocks; the eligibility
// decision is re-taken under the state row lock inside the same transaction
// as the coin credit, so two racing claims serialize and the loser sees
// ErrAlreadyClaimed.
package daily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/gameday"
	"github.com/auraplay/backend/internal/models"
)

// ErrAlreadyClaimed is returned when the reward for the current day has
// already been claimed. Benign on retry: the credit happened exactly once.
var ErrAlreadyClaimed = errors.New("daily reward already claimed")

// Repo is the minimal storage interface for the engine.
type Repo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetStateForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*models.DailyRewardState, error)
	UpdateState(ctx context.Context, tx pgx.Tx, st *models.DailyRewardState) error
	GetState(ctx context.Context, accountID uuid.UUID) (*models.DailyRewardState, error)
}

// Mutator is the slice of the ledger service the engine needs.
type Mutator interface {
	ApplyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error)
	Emit(ctx context.Context, accountID uuid.UUID, newBalance, delta int64, txType string, correlationID uuid.UUID)
}

type Service struct {
	repo     Repo
	mutator  Mutator
	schedule [7]int64
	now      func() time.Time
	log      *slog.Logger
}

// NewService builds the engine. schedule must have exactly 7 entries; slot 7
// (index 6) is the weekly jackpot.
func NewService(repo Repo, mutator Mutator, schedule []int64, log *slog.Logger) (*Service, error) {
	if len(schedule) != 7 {
		return nil, fmt.Errorf("daily reward schedule must have 7 entries, got %d", len(schedule))
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{repo: repo, mutator: mutator, now: time.Now, log: log}
	copy(s.schedule[:], schedule)
	return s, nil
}

// rewardFor returns the schedule amount for the given streak (1-based).
func (s *Service) rewardFor(streak int) int64 {
	return s.schedule[(streak-1)%7]
}

// nextStreak computes the streak a claim on `today` would produce.
func nextStreak(st *models.DailyRewardState, today int64) int {
	if st.LastClaimDay >= 0 && today-st.LastClaimDay == 1 {
		return st.StreakCount + 1
	}
	return 1
}

// State is the display snapshot for client sync.
type State struct {
	Eligible    bool  `json:"eligible"`
	StreakCount int   `json:"streak_count"`
	NextReward  int64 `json:"next_reward"`
}

// State returns the current eligibility snapshot without taking locks. The
// authoritative decision is re-taken inside Claim.
func (s *Service) State(ctx context.Context, accountID uuid.UUID) (*State, error) {
	st, err := s.repo.GetState(ctx, accountID)
	if err != nil {
		return nil, err
	}
	today := gameday.FromTime(s.now())
	if st.LastClaimDay < today {
		streak := nextStreak(st, today)
		return &State{
			Eligible:    true,
			StreakCount: streak,
			NextReward:  s.rewardFor(streak),
		}, nil
	}
	// Already claimed today; NextReward is what tomorrow's consecutive claim
	// would pay.
	return &State{
		Eligible:    false,
		StreakCount: st.StreakCount,
		NextReward:  s.rewardFor(st.StreakCount + 1),
	}, nil
}

// Claim grants today's reward. The eligibility check, the streak update, and
// the coin credit commit or roll back together.
func (s *Service) Claim(ctx context.Context, accountID uuid.UUID) (reward int64, streak int, err error) {
	today := gameday.FromTime(s.now())
	correlationID := uuid.New()

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.repo.GetStateForUpdate(ctx, tx, accountID)
	if err != nil {
		return 0, 0, fmt.Errorf("lock daily state: %w", err)
	}
	if st.LastClaimDay >= today {
		return 0, 0, ErrAlreadyClaimed
	}

	st.StreakCount = nextStreak(st, today)
	st.LastClaimDay = today
	if err := s.repo.UpdateState(ctx, tx, st); err != nil {
		return 0, 0, fmt.Errorf("update daily state: %w", err)
	}

	reward = s.rewardFor(st.StreakCount)
	desc := fmt.Sprintf("daily login reward, streak %d", st.StreakCount)
	newBalance, _, err := s.mutator.ApplyDeltaTx(ctx, tx, accountID, reward, models.TxDailyReward, desc, nil, correlationID)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}

	s.mutator.Emit(ctx, accountID, newBalance, reward, models.TxDailyReward, correlationID)
	s.log.Info("daily reward claimed", "account_id", accountID, "streak", st.StreakCount, "reward", reward)
	return reward, st.StreakCount, nil
}
