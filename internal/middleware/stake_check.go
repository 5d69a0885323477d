package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ctxStakeKey contextKey = "parsed_stake"

// StakeLimits bounds a single wager and the per-account daily wager total.
type StakeLimits struct {
	Min      int64
	Max      int64
	DailyCap int64
}

// parsedStake is stored in context so the handler can read the stake without
// re-parsing the body.
type parsedStake struct {
	AccountID uuid.UUID `json:"account_id"`
	Stake     int64     `json:"stake"`
}

// StakeFromCtx returns the stake parsed by StakeCheck, or 0 if not set.
func StakeFromCtx(ctx context.Context) int64 {
	if s, ok := ctx.Value(ctxStakeKey).(*parsedStake); ok {
		return s.Stake
	}
	return 0
}

// StakeCheck rejects out-of-bounds wager stakes before the handler runs.
// Reads the body to extract "stake" and "account_id", then replaces r.Body
// so downstream handlers can re-read it.
func StakeCheck(pool *pgxpool.Pool, limits StakeLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedStake
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.Stake < limits.Min {
				http.Error(w, fmt.Sprintf(`{"error":"stake %d below minimum %d"}`, peek.Stake, limits.Min), http.StatusBadRequest)
				return
			}
			if peek.Stake > limits.Max {
				http.Error(w, fmt.Sprintf(`{"error":"stake %d exceeds table limit %d"}`, peek.Stake, limits.Max), http.StatusForbidden)
				return
			}

			if limits.DailyCap > 0 && peek.AccountID != uuid.Nil {
				wagered, err := dailyWagerFn(r.Context(), pool, peek.AccountID)
				if err != nil {
					http.Error(w, `{"error":"failed to check daily wager total"}`, http.StatusInternalServerError)
					return
				}
				if wagered+peek.Stake > limits.DailyCap {
					http.Error(w, fmt.Sprintf(`{"error":"daily wagered %d + stake %d exceeds cap %d"}`, wagered, peek.Stake, limits.DailyCap), http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxStakeKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// dailyWagerFn is the function used to compute today's wagered total.
// Tests can replace this to avoid hitting a real database.
var dailyWagerFn = defaultDailyWager

// defaultDailyWager sums wager_ante debits for the account today (UTC).
func defaultDailyWager(ctx context.Context, pool *pgxpool.Pool, accountID uuid.UUID) (int64, error) {
	var total int64
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(-amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND tx_type = 'wager_ante'
		  AND created_at >= CURRENT_DATE
	`, accountID).Scan(&total)
	return total, err
}
