// Package ledger is the single mutation path for coin balances. Every change
// goes through ApplyDelta/ApplyDeltaTx, which adjusts the balance and appends
// the audit entry in one atomic unit; nothing else writes accounts.coins or
// ledger_entries.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/models"
	"github.com/auraplay/backend/internal/notify"
)

// ErrInsufficientFunds is returned when a debit would take the balance below
// zero. The balance is left untouched and no ledger entry is written.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrZeroDelta is returned for a delta of zero; a no-op mutation would still
// append a meaningless ledger entry.
var ErrZeroDelta = errors.New("delta must be non-zero")

// Repo is the minimal storage interface for the mutator. *Repository
// implements it; tests substitute an in-memory store.
type Repo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)
	ApplyDelta(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error)
	InsertEntry(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

type Service struct {
	repo     Repo
	notifier notify.Notifier
	log      *slog.Logger
}

func NewService(repo Repo, notifier notify.Notifier, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, log: log}
}

// ApplyDelta applies a signed coin delta and appends the audit entry in its
// own transaction, then emits the balance-change event. Returns the new
// balance and the ledger entry id.
func (s *Service) ApplyDelta(ctx context.Context, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, entryID, err := s.ApplyDeltaTx(ctx, tx, accountID, amount, txType, description, metadata, correlationID)
	if err != nil {
		return 0, uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, uuid.Nil, fmt.Errorf("commit: %w", err)
	}

	s.notifier.BalanceChanged(ctx, notify.Event{
		AccountID:     accountID,
		NewBalance:    newBalance,
		Delta:         amount,
		TxType:        txType,
		CorrelationID: correlationID,
	})
	return newBalance, entryID, nil
}

// ApplyDeltaTx is ApplyDelta for callers composing a larger atomic unit (an
// eligibility check plus the credit, for example). The caller owns commit and
// rollback, and is responsible for emitting the balance-change event after a
// successful commit.
func (s *Service) ApplyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error) {
	if amount == 0 {
		return 0, uuid.Nil, ErrZeroDelta
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, tx, accountID)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	if amount < 0 && balance+amount < 0 {
		return 0, uuid.Nil, ErrInsufficientFunds
	}

	newBalance, err := s.repo.ApplyDelta(ctx, tx, accountID, amount)
	if err != nil {
		// The conditional update also refuses to cross zero, so a vanished
		// row here still cannot corrupt the balance.
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, uuid.Nil, ErrInsufficientFunds
		}
		return 0, uuid.Nil, fmt.Errorf("apply delta: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        accountID,
		Amount:           amount,
		TxType:           txType,
		Description:      description,
		ResultingBalance: newBalance,
		Metadata:         metadata,
		CorrelationID:    correlationID,
	}
	if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
		return 0, uuid.Nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return newBalance, entry.ID, nil
}

// Emit publishes a balance-change event. Engines that committed their own
// transaction around ApplyDeltaTx call this afterwards.
func (s *Service) Emit(ctx context.Context, accountID uuid.UUID, newBalance, delta int64, txType string, correlationID uuid.UUID) {
	s.notifier.BalanceChanged(ctx, notify.Event{
		AccountID:     accountID,
		NewBalance:    newBalance,
		Delta:         delta,
		TxType:        txType,
		CorrelationID: correlationID,
	})
}
