package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates game-server (not player) calls. Only the SHA-256 hash
// of the key is stored.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	KeyHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Webhook is a registered balance-event delivery endpoint for an account.
type Webhook struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
