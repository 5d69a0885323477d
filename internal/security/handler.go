package security

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auraplay/backend/internal/auth"
)

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

// GET /api/v1/rewards/security
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	key, err := h.svc.Prompt(r.Context(), accountID)
	if err != nil {
		h.log.Error("security prompt failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"predicate_key": key})
}

// POST /api/v1/rewards/security/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		PredicateKey string `json:"predicate_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	reward, err := h.svc.Claim(r.Context(), accountID, req.PredicateKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyClaimed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ALREADY_CLAIMED"})
		case errors.Is(err, ErrPredicateNotSatisfied):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "PREDICATE_NOT_SATISFIED"})
		default:
			h.log.Error("security claim failed", "account_id", accountID, "predicate", req.PredicateKey, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "STORAGE_UNAVAILABLE"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reward": reward})
}
