package auth

import (
	"net/http"

	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/rs/zerolog"
)

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

var authLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	authLogger = l
}
