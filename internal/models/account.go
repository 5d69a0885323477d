package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the balance owner. Coins may only change through the ledger
// mutator; every other column is plain profile/security state.
type Account struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	DisplayName       string     `json:"display_name"`
	PasswordHash      string     `json:"-"`
	Coins             int64      `json:"coins"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	MFAEnabled        bool       `json:"mfa_enabled"`
	PasswordChangedAt time.Time  `json:"password_changed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
