// Package notify delivers balance-change events to presentation layers.
// Delivery is fire-and-forget: events are enqueued after the mutation
// transaction commits, and a lost event never invalidates the mutation.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Event is the payload emitted after every successful balance mutation.
type Event struct {
	AccountID     uuid.UUID `json:"account_id"`
	NewBalance    int64     `json:"new_balance"`
	Delta         int64     `json:"delta"`
	TxType        string    `json:"tx_type"`
	CorrelationID uuid.UUID `json:"correlation_id"`
}

// Notifier is implemented by anything that wants to observe balance changes.
// Implementations must not block the caller on delivery.
type Notifier interface {
	BalanceChanged(ctx context.Context, evt Event)
}

// Nop discards all events. Used in tests and in tools that do not run the
// river client.
type Nop struct{}

func (Nop) BalanceChanged(context.Context, Event) {}

// InsertFunc enqueues a balance event job. Provided by main as a closure over
// river.Client.Insert (breaks the init cycle with the river client).
type InsertFunc func(ctx context.Context, args BalanceEventJobArgs) error

// Enqueuer hands events to the river queue. Enqueue failures are logged and
// dropped; callers have already committed and must not see an error here.
type Enqueuer struct {
	insert InsertFunc
	log    *slog.Logger
}

func NewEnqueuer(insert InsertFunc, log *slog.Logger) *Enqueuer {
	if log == nil {
		log = slog.Default()
	}
	return &Enqueuer{insert: insert, log: log}
}

var _ Notifier = (*Enqueuer)(nil)

func (n *Enqueuer) BalanceChanged(ctx context.Context, evt Event) {
	if err := n.insert(ctx, BalanceEventJobArgs{Event: evt}); err != nil {
		n.log.Warn("balance event enqueue failed",
			"account_id", evt.AccountID, "tx_type", evt.TxType, "error", err)
	}
}
