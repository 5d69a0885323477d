package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/auraplay/backend/internal/models"
)

type contextKey string

const ctxAPIKeyKey contextKey = "api_key"

// APIKeyRepo is the interface used by API key auth middleware.
type APIKeyRepo interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
}

// APIKeyAuth authenticates game-server requests by hashing the Bearer token
// (SHA-256) and looking it up in api_keys. Player JWTs never pass here; this
// guards the trusted gameplay surface only.
func APIKeyAuth(repo APIKeyRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			key, err := repo.FindByKeyHash(r.Context(), HashKey(raw))
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxAPIKeyKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyFromCtx returns the authenticated API key or nil.
func APIKeyFromCtx(ctx context.Context) *models.APIKey {
	k, _ := ctx.Value(ctxAPIKeyKey).(*models.APIKey)
	return k
}

// WithAPIKey returns a context carrying the given key.
func WithAPIKey(ctx context.Context, k *models.APIKey) context.Context {
	return context.WithValue(ctx, ctxAPIKeyKey, k)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// HashKey returns the hex SHA-256 of a raw API key; only hashes are stored.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
