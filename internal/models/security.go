package models

import (
	"time"

	"github.com/google/uuid"
)

// Security reward predicate keys, in fixed prompt priority order.
const (
	PredicateEmail    = "email"
	PredicateMFA      = "mfa"
	PredicatePassword = "password"
)

// PredicatePriority is the order in which unclaimed grants are surfaced to
// the client, one at a time.
var PredicatePriority = []string{PredicateEmail, PredicateMFA, PredicatePassword}

// SecurityGrant records that an account has been paid the one-time bonus for
// a predicate key. Rows are only ever inserted; the unique
// (account_id, predicate_key) constraint makes each grant one-shot for the
// lifetime of the account.
type SecurityGrant struct {
	AccountID    uuid.UUID `json:"account_id"`
	PredicateKey string    `json:"predicate_key"`
	GrantedAt    time.Time `json:"granted_at"`
}
