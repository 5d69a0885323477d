// Package gameplay is the game-server boundary of the economy: inbound
// gameplay events fan out to quest progress, and the wager/shop/gift/clan
// operations are the call sites for the remaining ledger entry types. The
// game's win-condition logic lives outside; only its money movements land
// here.
package gameplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/models"
)

// Inbound gameplay event types.
const (
	EventMatchEnd = "match_end"
	EventMove     = "move"
	EventPowerup  = "powerup"
)

// ErrUnknownEvent is returned for event types the mapper does not know.
var ErrUnknownEvent = errors.New("unknown event type")

// QuestAdvancer is the slice of the quest engine this boundary drives.
type QuestAdvancer interface {
	Advance(ctx context.Context, accountID uuid.UUID, questType string, delta int) error
}

// Mutator is the ledger surface for boundary operations.
type Mutator interface {
	ApplyDelta(ctx context.Context, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error)
	ApplyDeltaTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64, txType, description string, metadata json.RawMessage, correlationID uuid.UUID) (int64, uuid.UUID, error)
	Emit(ctx context.Context, accountID uuid.UUID, newBalance, delta int64, txType string, correlationID uuid.UUID)
}

// TxBeginner opens the transaction for multi-account operations (gifts).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	txs       TxBeginner
	mutator   Mutator
	quests    QuestAdvancer
	validator *Validator
	log       *slog.Logger
}

func NewService(txs TxBeginner, mutator Mutator, quests QuestAdvancer, validator *Validator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{txs: txs, mutator: mutator, quests: quests, validator: validator, log: log}
}

// HandleEvent validates one gameplay event and advances every quest type it
// implies. The caller delivers each logical event exactly once; quest
// progress itself is at-least-once with the clamp at target as the bound.
func (s *Service) HandleEvent(ctx context.Context, accountID uuid.UUID, eventType string, payload json.RawMessage) error {
	if s.validator != nil {
		if err := s.validator.Validate(eventType, payload); err != nil {
			return err
		}
	}

	advances, err := questAdvances(eventType, payload)
	if err != nil {
		return err
	}
	for _, a := range advances {
		if err := s.quests.Advance(ctx, accountID, a.questType, a.delta); err != nil {
			return fmt.Errorf("advance %s: %w", a.questType, err)
		}
	}
	return nil
}

type advance struct {
	questType string
	delta     int
}

// questAdvances maps one event to the quest predicates it satisfies.
func questAdvances(eventType string, payload json.RawMessage) ([]advance, error) {
	switch eventType {
	case EventMatchEnd:
		var p struct {
			Result string `json:"result"`
			Online bool   `json:"online"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		out := []advance{{models.QuestPlay, 1}}
		switch p.Result {
		case "win":
			out = append(out, advance{models.QuestWin, 1})
		case "draw":
			out = append(out, advance{models.QuestDraw, 1})
		}
		if p.Online {
			out = append(out, advance{models.QuestPlayOnline, 1})
		}
		return out, nil
	case EventMove:
		var p struct {
			Action string `json:"action"`
			Count  int    `json:"count"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		if p.Count <= 0 {
			p.Count = 1
		}
		return []advance{{p.Action, p.Count}}, nil
	case EventPowerup:
		return []advance{{models.QuestUsePowerup, 1}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}
}

func matchMeta(matchID uuid.UUID) json.RawMessage {
	meta, _ := json.Marshal(map[string]string{"match_id": matchID.String()})
	return meta
}

// PlaceAnte debits the stake when a wagered match starts.
func (s *Service) PlaceAnte(ctx context.Context, accountID, matchID uuid.UUID, stake int64) (int64, error) {
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, -stake, models.TxWagerAnte,
		"wager ante", matchMeta(matchID), uuid.New())
	return newBalance, err
}

// RefundAnte returns the stake when a wagered match is abandoned before play.
func (s *Service) RefundAnte(ctx context.Context, accountID, matchID uuid.UUID, stake int64) (int64, error) {
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, stake, models.TxWagerRefund,
		"wager refund", matchMeta(matchID), uuid.New())
	return newBalance, err
}

// PayoutWin credits the pot to the winner.
func (s *Service) PayoutWin(ctx context.Context, accountID, matchID uuid.UUID, amount int64) (int64, error) {
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, amount, models.TxWagerWin,
		"wager win", matchMeta(matchID), uuid.New())
	return newBalance, err
}

// DoubleDown debits a second stake mid-match.
func (s *Service) DoubleDown(ctx context.Context, accountID, matchID uuid.UUID, stake int64) (int64, error) {
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, -stake, models.TxWagerDouble,
		"wager double down", matchMeta(matchID), uuid.New())
	return newBalance, err
}

// Purchase debits a shop item price.
func (s *Service) Purchase(ctx context.Context, accountID uuid.UUID, itemID string, price int64) (int64, error) {
	meta, _ := json.Marshal(map[string]string{"item_id": itemID})
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, -price, models.TxShopPurchase,
		fmt.Sprintf("shop purchase: %s", itemID), meta, uuid.New())
	return newBalance, err
}

// CreateClanFee debits the one-time clan founding fee.
func (s *Service) CreateClanFee(ctx context.Context, accountID uuid.UUID, clanName string, fee int64) (int64, error) {
	meta, _ := json.Marshal(map[string]string{"clan_name": clanName})
	newBalance, _, err := s.mutator.ApplyDelta(ctx, accountID, -fee, models.TxClanCreate,
		fmt.Sprintf("clan founded: %s", clanName), meta, uuid.New())
	return newBalance, err
}

// SendGift moves coins between two accounts in one transaction: a gift_sent
// debit and a gift_received credit sharing a correlation id. Both account
// rows are locked in UUID order so two opposite gifts cannot deadlock.
func (s *Service) SendGift(ctx context.Context, fromID, toID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("gift amount must be positive, got %d", amount)
	}
	if fromID == toID {
		return errors.New("cannot gift to self")
	}
	correlationID := uuid.New()
	meta, _ := json.Marshal(map[string]string{"from": fromID.String(), "to": toID.String()})

	type leg struct {
		account uuid.UUID
		amount  int64
		txType  string
		desc    string
	}
	legs := []leg{
		{fromID, -amount, models.TxGiftSent, "gift sent"},
		{toID, amount, models.TxGiftReceived, "gift received"},
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].account.String() < legs[j].account.String() })

	tx, err := s.txs.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	balances := make(map[uuid.UUID]int64, 2)
	for _, l := range legs {
		newBalance, _, err := s.mutator.ApplyDeltaTx(ctx, tx, l.account, l.amount, l.txType, l.desc, meta, correlationID)
		if err != nil {
			return err
		}
		balances[l.account] = newBalance
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mutator.Emit(ctx, fromID, balances[fromID], -amount, models.TxGiftSent, correlationID)
	s.mutator.Emit(ctx, toID, balances[toID], amount, models.TxGiftReceived, correlationID)
	return nil
}
