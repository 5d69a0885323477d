package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/auraplay/backend/internal/models"
)

const deliveryTimeout = 5 * time.Second

type BalanceEventJobArgs struct {
	Event Event `json:"event"`
}

func (BalanceEventJobArgs) Kind() string { return "balance_event" }

// WebhookLookup resolves the delivery endpoints registered for an account.
type WebhookLookup interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Webhook, error)
}

// BalanceEventWorker POSTs the event to every webhook registered for the
// account. A failed endpoint makes the job retryable; endpoints that already
// accepted the event may therefore see it more than once.
type BalanceEventWorker struct {
	river.WorkerDefaults[BalanceEventJobArgs]
	hooks      WebhookLookup
	httpClient *http.Client
	log        *slog.Logger
}

func NewBalanceEventWorker(hooks WebhookLookup, log *slog.Logger) *BalanceEventWorker {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceEventWorker{
		hooks:      hooks,
		httpClient: &http.Client{Timeout: deliveryTimeout},
		log:        log,
	}
}

func (w *BalanceEventWorker) Work(ctx context.Context, job *river.Job[BalanceEventJobArgs]) error {
	evt := job.Args.Event
	endpoints, err := w.hooks.ListByAccountID(ctx, evt.AccountID)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if len(endpoints) == 0 {
		return nil
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var failed int
	for _, hook := range endpoints {
		if err := w.deliver(ctx, hook.URL, body); err != nil {
			w.log.Warn("balance event delivery failed",
				"account_id", evt.AccountID, "url", hook.URL, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(endpoints))
	}
	return nil
}

func (w *BalanceEventWorker) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
