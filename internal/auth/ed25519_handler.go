package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/routes"
	"github.com/rs/zerolog"
)

type challengeResponse struct {
	Challenge string `json:"challenge"`
}

func writeChallenge(w http.ResponseWriter, challenge []byte) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	json.NewEncoder(w).Encode(challengeResponse{
		Challenge: base64.StdEncoding.EncodeToString(challenge),
	})
}

// Ed25519ChallengeHandler serves the current challenge on GET and rotates it
// on POST.
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeChallenge(w, provider.GetChallenge())

		case http.MethodPost:
			if err := provider.RefreshChallenge(); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to refresh challenge")
				http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
				return
			}
			writeChallenge(w, provider.GetChallenge())

		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		}
	}
}

// Ed25519VerifyHandler checks the signature in the auth header and, when it
// signs the current challenge, stores it in the auth cookie.
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get(provider.headerName)
		if authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			authLogger.Debug().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !provider.verify(signature) {
			authLogger.Warn().Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     provider.cookieName,
			Value:    base64.StdEncoding.EncodeToString(signature),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
			MaxAge:   3600 * 24, // 24 hours
		})

		w.WriteHeader(http.StatusOK)
	}
}

type loginResponse struct {
	Challenge   string `json:"challenge"`
	Header      string `json:"header"`
	VerifyURL   string `json:"verifyUrl"`
	RedirectURL string `json:"redirectUrl"`
}

// Ed25519LoginHandler tells a client how to sign in: which challenge to sign,
// which header to send it in and where to go afterwards.
func Ed25519LoginHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURL := r.URL.Query().Get("redirect")
		if redirectURL == "" || !strings.HasPrefix(redirectURL, "/") || strings.HasPrefix(redirectURL, "//") {
			redirectURL = "/"
		}

		w.Header().Set(config.HCType, config.CTypeJSON)
		json.NewEncoder(w).Encode(loginResponse{
			Challenge:   base64.StdEncoding.EncodeToString(provider.GetChallenge()),
			Header:      provider.headerName,
			VerifyURL:   routes.AuthVerify,
			RedirectURL: redirectURL,
		})
	}
}
