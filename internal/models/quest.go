package models

import (
	"time"

	"github.com/google/uuid"
)

// Quest type enums: gameplay predicates a quest counts toward.
const (
	QuestWin          = "win"
	QuestPlay         = "play"
	QuestDestroyPiece = "destroy_piece"
	QuestPlaceWall    = "place_wall"
	QuestDoubleMove   = "double_move"
	QuestConvertPiece = "convert_piece"
	QuestDraw         = "draw"
	QuestPlayOnline   = "play_online"
	QuestUsePowerup   = "use_any_powerup"
)

// Quest is one slot of an account's daily batch. MultiplierPct is the rarity
// multiplier in integer hundredths (100 = 1x, 150 = 1.5x) so the payout
// floor(base * multiplier) is exact integer math everywhere it is computed.
type Quest struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	Day            int64     `json:"day"`
	Slot           int       `json:"slot"`
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	Target         int       `json:"target"`
	Progress       int       `json:"progress"`
	BaseReward     int64     `json:"base_reward"`
	MultiplierPct  int       `json:"multiplier_pct"`
	Completed      bool      `json:"completed"`
	Claimed        bool      `json:"claimed"`
	CatalogVersion string    `json:"catalog_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// Reward is the claim payout: floor(base * multiplier), as integer math on
// the hundredths representation. Display code must use this same method.
func (q *Quest) Reward() int64 {
	return q.BaseReward * int64(q.MultiplierPct) / 100
}

// RerollBudget is the per-account, per-day remaining reroll allowance.
type RerollBudget struct {
	AccountID uuid.UUID `json:"account_id"`
	Day       int64     `json:"day"`
	Remaining int       `json:"remaining"`
}
