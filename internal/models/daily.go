package models

import "github.com/google/uuid"

// DailyRewardState tracks the last claimed calendar day and the running
// streak for one account. LastClaimDay is a day number (days since epoch,
// UTC), never a wall-clock timestamp; eligibility is recomputed from it on
// every read, so there is no stored "eligible" flag to go stale.
type DailyRewardState struct {
	AccountID    uuid.UUID `json:"account_id"`
	LastClaimDay int64     `json:"last_claim_day"`
	StreakCount  int       `json:"streak_count"`
}
