package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/routes"
	"github.com/rs/zerolog"
)

var ErrNoSessionClaims = errors.New("failed to get session claims from context")

// ClerkAuthProvider authenticates visitors with Clerk session tokens and
// mirrors Clerk users into the users table through the user webhook.
type ClerkAuthProvider struct {
	db db.DB

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, database db.DB) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		db: database,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(config.CookieClerk)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

// WithHeaderAuthorization verifies the Clerk session token and copies its
// subject into the request context as the user ID.
func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	verify := clerkhttp.WithHeaderAuthorization(c.cookieExtractor)

	return func(next http.Handler) http.Handler {
		withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok && claims.Subject != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), model.UserID(claims.Subject)))
			}
			next.ServeHTTP(w, r)
		})
		return verify(withUser)
	}
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return userID, nil
	}

	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return "", ErrNoSessionClaims
	}
	return model.UserID(claims.Subject), nil
}

func (c *ClerkAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := c.GetUserIDFromSession(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Unauthorized access attempt")

		w.Header().Add(config.HHxRedirect, routes.AuthLogin)
		http.Error(w, config.ErrUnauthorized, http.StatusUnauthorized)
		return "", err
	}
	return userID, nil
}

type userEventPayload struct {
	Data clerk.User `json:"data"`
	Type string     `json:"type"`
}

// HandleWebhookUser applies Clerk user.created, user.updated and user.deleted
// events to the users table.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var payload userEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		l.Warn().Err(err).Msg("Error decoding user event payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := payload.Data
	if usr.ID == "" {
		http.Error(w, "Missing user ID", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "user.created", "user.updated":
		_, err := c.db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, email, avatar_url) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET username = excluded.username, email = excluded.email, avatar_url = excluded.avatar_url`,
			usr.ID, clerkUsername(&usr), clerkPrimaryEmail(&usr), deref(usr.ImageURL),
		)
		if err != nil {
			l.Error().Err(err).Str("user_id", usr.ID).Msg("Error saving user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		l.Info().Str("user_id", usr.ID).Str("event", payload.Type).Msg("User saved")
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}

	case "user.deleted":
		_, err := c.db.ExecContext(r.Context(), "DELETE FROM users WHERE id = ?", usr.ID)
		if err != nil {
			l.Error().Err(err).Str("user_id", usr.ID).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		l.Info().Str("user_id", usr.ID).Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}

// clerkUsername picks the Clerk username, falling back to the first linked
// external account and finally the user ID.
func clerkUsername(usr *clerk.User) string {
	if name := deref(usr.Username); name != "" {
		return name
	}
	for _, acc := range usr.ExternalAccounts {
		if acc == nil {
			continue
		}
		if name := deref(acc.Username); name != "" {
			return name
		}
	}
	return usr.ID
}

func clerkPrimaryEmail(usr *clerk.User) string {
	primary := deref(usr.PrimaryEmailAddressID)
	for _, addr := range usr.EmailAddresses {
		if addr != nil && (primary == "" || addr.ID == primary) {
			return addr.EmailAddress
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ AuthProvider = (*ClerkAuthProvider)(nil)
