package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ledger entry tx_type enums. One constant per mutation source; the ledger
// itself does not care which engine wrote the entry.
const (
	TxWagerAnte      = "wager_ante"
	TxWagerRefund    = "wager_refund"
	TxWagerWin       = "wager_win"
	TxWagerDouble    = "wager_double"
	TxShopPurchase   = "shop_purchase"
	TxDailyReward    = "daily_reward"
	TxQuestReward    = "quest_reward"
	TxSecurityReward = "security_reward"
	TxGiftSent       = "gift_sent"
	TxGiftReceived   = "gift_received"
	TxClanCreate     = "clan_create"
)

// LedgerEntry is an append-only audit record of one balance change.
// ResultingBalance is the account balance immediately after the entry was
// written and is never updated afterwards.
type LedgerEntry struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	Amount           int64           `json:"amount"`
	TxType           string          `json:"tx_type"`
	Description      string          `json:"description"`
	ResultingBalance int64           `json:"resulting_balance"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CorrelationID    uuid.UUID       `json:"correlation_id"`
	CreatedAt        time.Time       `json:"created_at"`
}
