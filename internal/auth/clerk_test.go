package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/model"
)

func newClerkProvider(t *testing.T) (*ClerkAuthProvider, db.DB) {
	t.Helper()

	database := db.NewSQLite(filepath.Join(t.TempDir(), "users.db"))
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewClerkAuthProvider("sk_test_key", database), database
}

const userCreatedPayload = `{
	"type": "user.created",
	"data": {
		"id": "user_2abc",
		"username": null,
		"image_url": "https://img.example.com/a.png",
		"primary_email_address_id": "idn_2",
		"email_addresses": [
			{"id": "idn_1", "email_address": "old@example.com"},
			{"id": "idn_2", "email_address": "ada@example.com"}
		],
		"external_accounts": [
			{"provider": "oauth_github", "username": "ada"}
		]
	}
}`

func TestClerkHandleWebhookUser(t *testing.T) {
	provider, database := newClerkProvider(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/user", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		provider.HandleWebhookUser(recorder, req)
		return recorder
	}

	readUser := func() (username, email, avatar string, err error) {
		err = database.QueryRowContext(context.Background(),
			"SELECT username, email, avatar_url FROM users WHERE id = ?", "user_2abc",
		).Scan(&username, &email, &avatar)
		return
	}

	t.Run("Created", func(t *testing.T) {
		recorder := post(userCreatedPayload)
		if recorder.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		username, email, avatar, err := readUser()
		if err != nil {
			t.Fatalf("Expected user to be saved: %v", err)
		}
		if username != "ada" {
			t.Errorf("Expected username from external account, got %q", username)
		}
		if email != "ada@example.com" {
			t.Errorf("Expected primary email, got %q", email)
		}
		if avatar != "https://img.example.com/a.png" {
			t.Errorf("Expected avatar URL, got %q", avatar)
		}
	})

	t.Run("Updated", func(t *testing.T) {
		body := `{"type": "user.updated", "data": {"id": "user_2abc", "username": "ada_l"}}`
		if recorder := post(body); recorder.Code != http.StatusNoContent {
			t.Fatalf("Expected status 204, got %d", recorder.Code)
		}

		username, email, _, err := readUser()
		if err != nil {
			t.Fatalf("Expected user to exist: %v", err)
		}
		if username != "ada_l" {
			t.Errorf("Expected updated username, got %q", username)
		}
		if email != "" {
			t.Errorf("Expected email cleared, got %q", email)
		}
	})

	t.Run("Deleted", func(t *testing.T) {
		body := `{"type": "user.deleted", "data": {"id": "user_2abc"}}`
		if recorder := post(body); recorder.Code != http.StatusNoContent {
			t.Fatalf("Expected status 204, got %d", recorder.Code)
		}

		if _, _, _, err := readUser(); err != sql.ErrNoRows {
			t.Errorf("Expected user to be gone, got %v", err)
		}
	})

	badRequests := []struct {
		name string
		body string
	}{
		{"Malformed JSON", `{`},
		{"Missing user ID", `{"type": "user.created", "data": {}}`},
		{"Unknown event", `{"type": "session.created", "data": {"id": "user_2abc"}}`},
	}
	for _, tc := range badRequests {
		t.Run(tc.name, func(t *testing.T) {
			if recorder := post(tc.body); recorder.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", recorder.Code)
			}
		})
	}
}

func TestClerkGetUserIDFromSession(t *testing.T) {
	provider, _ := newClerkProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := provider.GetUserIDFromSession(req); err == nil {
		t.Error(errExpectedErrorGotNone)
	}

	req = req.WithContext(ContextWithUserID(req.Context(), model.UserID("user_2abc")))
	userID, err := provider.GetUserIDFromSession(req)
	if err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if userID != "user_2abc" {
		t.Errorf(errExpectedUserIDGotAnother, "user_2abc", userID)
	}
}

func TestClerkEnforceUserAndGetID(t *testing.T) {
	provider, _ := newClerkProvider(t)

	recorder := httptest.NewRecorder()
	if _, err := provider.EnforceUserAndGetID(recorder, httptest.NewRequest(http.MethodPost, "/", nil)); err == nil {
		t.Error(errExpectedErrorGotNone)
	}
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", recorder.Code)
	}
	if redirect := recorder.Header().Get("HX-Redirect"); redirect != "/auth/login" {
		t.Errorf("Expected HX-Redirect to '/auth/login', got '%s'", redirect)
	}
}

func TestClerkWithHeaderAuthorizationAnonymous(t *testing.T) {
	provider, _ := newClerkProvider(t)

	var session Session
	handler := provider.WithHeaderAuthorization()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session = SessionFromRequest(r)
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected anonymous request to pass, got %d", recorder.Code)
	}
	if session.IsAuthenticated() {
		t.Error("Expected anonymous session")
	}
}
