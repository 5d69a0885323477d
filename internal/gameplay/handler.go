package gameplay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/auraplay/backend/internal/ledger"
)

// Handler serves the API-key-authed game-server surface. Player JWTs have no
// access to these routes.
type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// POST /api/v1/events
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID uuid.UUID       `json:"account_id"`
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	if req.AccountID == uuid.Nil || req.EventType == "" {
		writeErrorCode(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}
	if err := h.svc.HandleEvent(r.Context(), req.AccountID, req.EventType, req.Payload); err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrUnknownEvent) {
			writeErrorCode(w, http.StatusBadRequest, "INVALID_EVENT")
			return
		}
		h.log.Error("handle event failed", "account_id", req.AccountID, "event_type", req.EventType, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// POST /api/v1/wager
func (h *Handler) PostWager(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID uuid.UUID `json:"account_id"`
		MatchID   uuid.UUID `json:"match_id"`
		Stake     int64     `json:"stake"`
		Action    string    `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	var newBalance int64
	var err error
	switch req.Action {
	case "ante":
		newBalance, err = h.svc.PlaceAnte(r.Context(), req.AccountID, req.MatchID, req.Stake)
	case "refund":
		newBalance, err = h.svc.RefundAnte(r.Context(), req.AccountID, req.MatchID, req.Stake)
	case "win":
		newBalance, err = h.svc.PayoutWin(r.Context(), req.AccountID, req.MatchID, req.Stake)
	case "double":
		newBalance, err = h.svc.DoubleDown(r.Context(), req.AccountID, req.MatchID, req.Stake)
	default:
		writeErrorCode(w, http.StatusBadRequest, "INVALID_ACTION")
		return
	}
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			writeErrorCode(w, http.StatusConflict, "INSUFFICIENT_FUNDS")
			return
		}
		h.log.Error("wager failed", "account_id", req.AccountID, "action", req.Action, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"new_balance": newBalance})
}

// POST /api/v1/shop/purchase
func (h *Handler) PostPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID uuid.UUID `json:"account_id"`
		ItemID    string    `json:"item_id"`
		Price     int64     `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	if req.Price <= 0 || req.ItemID == "" {
		writeErrorCode(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}
	newBalance, err := h.svc.Purchase(r.Context(), req.AccountID, req.ItemID, req.Price)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			writeErrorCode(w, http.StatusConflict, "INSUFFICIENT_FUNDS")
			return
		}
		h.log.Error("purchase failed", "account_id", req.AccountID, "item_id", req.ItemID, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"new_balance": newBalance})
}

// POST /api/v1/gifts
func (h *Handler) PostGift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID uuid.UUID `json:"from_account_id"`
		ToAccountID   uuid.UUID `json:"to_account_id"`
		Amount        int64     `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	if err := h.svc.SendGift(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			writeErrorCode(w, http.StatusConflict, "INSUFFICIENT_FUNDS")
			return
		}
		h.log.Error("gift failed", "from", req.FromAccountID, "to", req.ToAccountID, "error", err)
		writeErrorCode(w, http.StatusBadRequest, "INVALID_GIFT")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/clans
func (h *Handler) PostClanCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID uuid.UUID `json:"account_id"`
		ClanName  string    `json:"clan_name"`
		Fee       int64     `json:"fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	if req.Fee <= 0 || req.ClanName == "" {
		writeErrorCode(w, http.StatusBadRequest, "MISSING_FIELDS")
		return
	}
	newBalance, err := h.svc.CreateClanFee(r.Context(), req.AccountID, req.ClanName, req.Fee)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			writeErrorCode(w, http.StatusConflict, "INSUFFICIENT_FUNDS")
			return
		}
		h.log.Error("clan create failed", "account_id", req.AccountID, "error", err)
		writeErrorCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"new_balance": newBalance})
}
