// Package profile serves the client sync snapshot: one GET returns the
// balance and the current state of every reward surface so a client can
// render the whole economy screen from a single request after reconnect.
package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/auraplay/backend/internal/auth"
	"github.com/auraplay/backend/internal/daily"
	"github.com/auraplay/backend/internal/models"
	"github.com/auraplay/backend/internal/quests"
)

type AccountGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type LedgerLister interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

type SecurityPrompter interface {
	Prompt(ctx context.Context, accountID uuid.UUID) (string, error)
}

type Handler struct {
	authSvc  auth.Service
	accounts AccountGetter
	entries  LedgerLister
	daily    *daily.Service
	quests   *quests.Service
	security SecurityPrompter
	log      *slog.Logger
}

func NewHandler(
	authSvc auth.Service,
	accounts AccountGetter,
	entries LedgerLister,
	dailySvc *daily.Service,
	questSvc *quests.Service,
	securitySvc SecurityPrompter,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		authSvc:  authSvc,
		accounts: accounts,
		entries:  entries,
		daily:    dailySvc,
		quests:   questSvc,
		security: securitySvc,
		log:      log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.log.Error("get account failed", "account_id", accountID, "error", err)
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}

	dailyState, err := h.daily.State(r.Context(), accountID)
	if err != nil {
		h.log.Error("daily state failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	questList, rerolls, err := h.quests.List(r.Context(), accountID)
	if err != nil {
		h.log.Error("list quests failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	prompt, err := h.security.Prompt(r.Context(), accountID)
	if err != nil {
		h.log.Error("security prompt failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	questResp := make([]map[string]any, 0, len(questList))
	for _, q := range questList {
		questResp = append(questResp, map[string]any{
			"id":          q.ID,
			"type":        q.Type,
			"description": q.Description,
			"target":      q.Target,
			"progress":    q.Progress,
			"reward":      q.Reward(),
			"completed":   q.Completed,
			"claimed":     q.Claimed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             acc.ID,
		"email":          acc.Email,
		"display_name":   acc.DisplayName,
		"coins":          acc.Coins,
		"email_verified": acc.EmailVerifiedAt != nil,
		"mfa_enabled":    acc.MFAEnabled,
		"created_at":     acc.CreatedAt,
		"daily":          dailyState,
		"quests": map[string]any{
			"quests":            questResp,
			"rerolls_remaining": rerolls,
		},
		"security_prompt": prompt,
	})
}

// GET /api/v1/ledger
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	entries, err := h.entries.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		h.log.Error("list ledger failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
