package router

import (
	"net/http"

	"github.com/auraplay/backend/internal/auth"
	"github.com/auraplay/backend/internal/daily"
	"github.com/auraplay/backend/internal/gameplay"
	"github.com/auraplay/backend/internal/hooks"
	"github.com/auraplay/backend/internal/middleware"
	"github.com/auraplay/backend/internal/profile"
	"github.com/auraplay/backend/internal/quests"
	"github.com/auraplay/backend/internal/security"
)

type Deps struct {
	Auth       *auth.Handler
	Daily      *daily.Handler
	Quests     *quests.Handler
	Security   *security.Handler
	Profile    *profile.Handler
	Hooks      *hooks.Handler
	Gameplay   *gameplay.Handler
	APIKeys    middleware.APIKeyRepo
	StakeCheck func(http.Handler) http.Handler
}

// New returns an http.Handler serving the API under /api/v1. Player routes
// authenticate with a bearer JWT inside each handler; game-server routes are
// gated by API-key middleware and never accept player tokens.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc(base+"/auth/register", methodPOST(d.Auth.Register))
	mux.HandleFunc(base+"/auth/login", methodPOST(d.Auth.Login))
	mux.HandleFunc(base+"/auth/verify-email", methodPOST(d.Auth.VerifyEmail))
	mux.HandleFunc(base+"/auth/mfa", methodPOST(d.Auth.SetMFA))
	mux.HandleFunc(base+"/auth/password", methodPOST(d.Auth.ChangePassword))

	mux.HandleFunc(base+"/account/me", methodGET(d.Profile.GetMe))
	mux.HandleFunc(base+"/ledger", methodGET(d.Profile.ListLedger))

	mux.HandleFunc(base+"/rewards/daily", methodGET(d.Daily.GetState))
	mux.HandleFunc(base+"/rewards/daily/claim", methodPOST(d.Daily.Claim))

	mux.HandleFunc(base+"/quests", methodGET(d.Quests.List))
	mux.HandleFunc("POST "+base+"/quests/{id}/claim", d.Quests.Claim)
	mux.HandleFunc("POST "+base+"/quests/{id}/reroll", d.Quests.Reroll)

	mux.HandleFunc(base+"/rewards/security", methodGET(d.Security.GetPrompt))
	mux.HandleFunc(base+"/rewards/security/claim", methodPOST(d.Security.Claim))

	mux.HandleFunc(base+"/hooks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d.Hooks.List(w, r)
		case http.MethodPost:
			d.Hooks.Create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("DELETE "+base+"/hooks/{id}", d.Hooks.Delete)

	// Game-server surface.
	keyed := middleware.APIKeyAuth(d.APIKeys)
	mux.Handle(base+"/events", keyed(methodPOST(d.Gameplay.PostEvent)))
	mux.Handle(base+"/wager", keyed(d.StakeCheck(methodPOST(d.Gameplay.PostWager))))
	mux.Handle(base+"/shop/purchase", keyed(methodPOST(d.Gameplay.PostPurchase)))
	mux.Handle(base+"/gifts", keyed(methodPOST(d.Gameplay.PostGift)))
	mux.Handle(base+"/clans", keyed(methodPOST(d.Gameplay.PostClanCreate)))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
