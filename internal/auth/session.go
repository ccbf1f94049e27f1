package auth

import (
	"net/http"

	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/google/uuid"
)

// Session is the identity of the current visitor as seen by one request.
type Session struct {
	UserID model.UserID
}

func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// SessionFromRequest reads the identity placed in the request context by a
// provider's WithHeaderAuthorization middleware.
func SessionFromRequest(r *http.Request) Session {
	userID, _ := UserIDFromContext(r.Context())
	return Session{UserID: userID}
}

// SessionID returns the browser session ID from its cookie, issuing a new
// one when the cookie is missing or malformed. Drafts are keyed by it, so it
// outlives sign-in and sign-out.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSession); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSession,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return id
}
