package auth

import (
	"net/http"

	"github.com/debemdeboas/feedback-board/internal/routes"
)

// RegisterEd25519AuthRoutes registers the challenge, verify and login routes.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider) {
	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
	mux.HandleFunc(routes.AuthLogin, Ed25519LoginHandler(provider))
}

// RegisterClerkAuthRoutes registers the Clerk user webhook.
func RegisterClerkAuthRoutes(mux *http.ServeMux, provider *ClerkAuthProvider) {
	mux.HandleFunc("POST "+routes.WebhookUser, provider.HandleWebhookUser)
}
