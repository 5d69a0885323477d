package daily

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

// GET /api/v1/rewards/daily
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.svc.State(r.Context(), accountID)
	if err != nil {
		h.log.Error("daily state failed", "account_id", accountID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /api/v1/rewards/daily/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	reward, streak, err := h.svc.Claim(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ALREADY_CLAIMED"})
			return
		}
		h.log.Error("daily claim failed", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "STORAGE_UNAVAILABLE"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reward":       reward,
		"streak_count": streak,
	})
}
