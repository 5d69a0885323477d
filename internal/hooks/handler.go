// Package hooks manages the webhook endpoints an account registers to
// receive balance-changed events.
package hooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/auraplay/backend/internal/auth"
	"github.com/auraplay/backend/internal/models"
)

type Repo interface {
	Create(ctx context.Context, accountID uuid.UUID, url string) (*models.Webhook, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Webhook, error)
	Delete(ctx context.Context, accountID, hookID uuid.UUID) (bool, error)
}

type WebhookResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Handler struct {
	repo    Repo
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(repo Repo, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, authSvc: authSvc, log: log}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		http.Error(w, "url must be http or https", http.StatusBadRequest)
		return
	}
	hook, err := h.repo.Create(r.Context(), accountID, req.URL)
	if err != nil {
		h.log.Error("create webhook failed", "account_id", accountID, "error", err)
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, WebhookResponse{ID: hook.ID.String(), URL: hook.URL})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.ListByAccountID(r.Context(), accountID)
	if err != nil {
		h.log.Error("list webhooks failed", "account_id", accountID, "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	resp := make([]WebhookResponse, 0, len(list))
	for _, hook := range list {
		resp = append(resp, WebhookResponse{ID: hook.ID.String(), URL: hook.URL})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, err := auth.BearerAccountID(r, h.authSvc)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	hookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid webhook id", http.StatusBadRequest)
		return
	}
	deleted, err := h.repo.Delete(r.Context(), accountID, hookID)
	if err != nil {
		h.log.Error("delete webhook failed", "account_id", accountID, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "webhook not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
