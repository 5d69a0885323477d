package quests

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/auraplay/backend/internal/auth"
	"github.com/auraplay/backend/internal/models"
)

type QuestResponse struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	Target        int    `json:"target"`
	Progress      int    `json:"progress"`
	Reward        int64  `json:"reward"`
	MultiplierPct int    `json:"multiplier_pct"`
	Completed     bool   `json:"completed"`
	Claimed       bool   `json:"claimed"`
}

type ListResponse struct {
	Quests           []QuestResponse `json:"quests"`
	RerollsRemaining int             `json:"rerolls_remaining"`
}

type Handler struct {
	svc     *Service
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(svc *Service, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, authSvc: authSvc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func questToResponse(q *models.Quest) QuestResponse {
	return QuestResponse{
		ID:            q.ID.String(),
		Type:          q.Type,
		Description:   q.Description,
		Target:        q.Target,
		Progress:      q.Progress,
		Reward:        q.Reward(),
		MultiplierPct: q.MultiplierPct,
		Completed:     q.Completed,
		Claimed:       q.Claimed,
	}
}

// GET /api/v1/quests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, rerolls, err := h.svc.List(r.Context(), accountID)
	if err != nil {
		h.log.Error("list quests failed", "account_id", accountID, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		return
	}
	resp := ListResponse{Quests: make([]QuestResponse, 0, len(list)), RerollsRemaining: rerolls}
	for _, q := range list {
		resp.Quests = append(resp.Quests, questToResponse(q))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/quests/{id}/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	questID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid quest id", http.StatusBadRequest)
		return
	}
	reward, err := h.svc.Claim(r.Context(), accountID, questID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "quest not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyClaimed):
			writeErrorCode(w, http.StatusConflict, "ALREADY_CLAIMED")
		case errors.Is(err, ErrNotCompleted):
			writeErrorCode(w, http.StatusConflict, "NOT_COMPLETED")
		default:
			h.log.Error("claim quest failed", "account_id", accountID, "quest_id", questID, "error", err)
			writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reward": reward})
}

// POST /api/v1/quests/{id}/reroll
func (h *Handler) Reroll(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	questID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid quest id", http.StatusBadRequest)
		return
	}
	q, err := h.svc.Reroll(r.Context(), accountID, questID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "quest not found", http.StatusNotFound)
		case errors.Is(err, ErrCannotRerollCompleted):
			writeErrorCode(w, http.StatusConflict, "CANNOT_REROLL_COMPLETED")
		case errors.Is(err, ErrNoRerollsRemaining):
			writeErrorCode(w, http.StatusConflict, "NO_REROLLS_REMAINING")
		default:
			h.log.Error("reroll quest failed", "account_id", accountID, "quest_id", questID, "error", err)
			writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		}
		return
	}
	writeJSON(w, http.StatusOK, questToResponse(q))
}
