// Package security pays a one-time bonus per security hygiene predicate
// (verified email, MFA, fresh password). Grants are a strictly append-only
// per-account set; re-satisfying a predicate never re-triggers the payout.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/models"
)

var (
	// ErrAlreadyClaimed means this predicate's bonus was paid before,
	// possibly in a past account state.
	ErrAlreadyClaimed = errors.New("security reward already claimed")
	// ErrPredicateNotSatisfied means the account does not currently satisfy
	// the predicate (or the key is unknown).
	ErrPredicateNotSatisfied = errors.New("security predicate not satisfied")
)

// Repo is the minimal storage interface for the engine.
type Repo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	InsertGrant(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, predicateKey string) (bool, error)
	ListGrants(ctx context.Context, accountID uuid.UUID) (map[string]bool, error)
}

// Mutator is the slice of the ledger service the engine needs.
type Mutator interface {
	ApplyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error)
	Emit(ctx context.Context, accountID uuid.UUID, newBalance, delta int64, txType string, correlationID uuid.UUID)
}

type Service struct {
	repo           Repo
	mutator        Mutator
	reward         int64
	passwordMaxAge time.Duration
	now            func() time.Time
	log            *slog.Logger
}

func NewService(repo Repo, mutator Mutator, reward int64, passwordMaxAgeDays int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:           repo,
		mutator:        mutator,
		reward:         reward,
		passwordMaxAge: time.Duration(passwordMaxAgeDays) * 24 * time.Hour,
		now:            time.Now,
		log:            log,
	}
}

func (s *Service) satisfied(acc *models.Account, key string) bool {
	switch key {
	case models.PredicateEmail:
		return acc.EmailVerifiedAt != nil
	case models.PredicateMFA:
		return acc.MFAEnabled
	case models.PredicatePassword:
		return s.now().Sub(acc.PasswordChangedAt) <= s.passwordMaxAge
	default:
		return false
	}
}

// Prompt returns the highest-priority predicate that is currently satisfied
// and not yet granted, or "" when there is nothing to surface. Only one
// prompt is ever shown at a time; the rest stay queued behind it.
func (s *Service) Prompt(ctx context.Context, accountID uuid.UUID) (string, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	granted, err := s.repo.ListGrants(ctx, accountID)
	if err != nil {
		return "", err
	}
	for _, key := range models.PredicatePriority {
		if !granted[key] && s.satisfied(acc, key) {
			return key, nil
		}
	}
	return "", nil
}

// Claim pays the bonus for one predicate. The predicate re-evaluation, the
// grant insert, and the credit are one transaction; the grant set's primary
// key makes the whole operation one-shot per key forever.
func (s *Service) Claim(ctx context.Context, accountID uuid.UUID, predicateKey string) (int64, error) {
	correlationID := uuid.New()

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	acc, err := s.repo.GetAccountForUpdate(ctx, tx, accountID)
	if err != nil {
		return 0, fmt.Errorf("lock account: %w", err)
	}
	if !s.satisfied(acc, predicateKey) {
		return 0, ErrPredicateNotSatisfied
	}

	inserted, err := s.repo.InsertGrant(ctx, tx, accountID, predicateKey)
	if err != nil {
		return 0, fmt.Errorf("insert grant: %w", err)
	}
	if !inserted {
		return 0, ErrAlreadyClaimed
	}

	desc := fmt.Sprintf("security bonus: %s", predicateKey)
	meta, _ := json.Marshal(map[string]string{"predicate": predicateKey})
	newBalance, _, err := s.mutator.ApplyDeltaTx(ctx, tx, accountID, s.reward, models.TxSecurityReward, desc, meta, correlationID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.mutator.Emit(ctx, accountID, newBalance, s.reward, models.TxSecurityReward, correlationID)
	s.log.Info("security reward claimed", "account_id", accountID, "predicate", predicateKey)
	return s.reward, nil
}
