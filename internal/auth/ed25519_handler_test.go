package auth

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/debemdeboas/feedback-board/internal/auth/testdata"
)

func TestEd25519ChallengeHandler(t *testing.T) {
	provider, err := NewEd25519AuthProvider(testdata.OperatorPublicKeyPEM, "Authorization", testdata.OperatorUserID)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	handler := Ed25519ChallengeHandler(provider)

	testCases := []struct {
		name               string
		method             string
		expectedStatus     int
		expectJSON         bool
		expectNewChallenge bool
	}{
		{
			name:               "GET returns the current challenge",
			method:             http.MethodGet,
			expectedStatus:     http.StatusOK,
			expectJSON:         true,
			expectNewChallenge: false,
		},
		{
			name:               "POST generates a new challenge",
			method:             http.MethodPost,
			expectedStatus:     http.StatusOK,
			expectJSON:         true,
			expectNewChallenge: true,
		},
		{
			name:               "PUT method not allowed",
			method:             http.MethodPut,
			expectedStatus:     http.StatusMethodNotAllowed,
			expectJSON:         false,
			expectNewChallenge: false,
		},
		{
			name:               "DELETE method not allowed",
			method:             http.MethodDelete,
			expectedStatus:     http.StatusMethodNotAllowed,
			expectJSON:         false,
			expectNewChallenge: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Store original challenge to compare
			originalChallenge := provider.GetChallenge()

			req := httptest.NewRequest(tc.method, "/auth/challenge", nil)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, recorder.Code)
			}

			if tc.expectJSON {
				contentType := recorder.Header().Get("Content-Type")
				if !strings.Contains(contentType, "application/json") {
					t.Errorf("Expected JSON content type, got %s", contentType)
				}

				var response map[string]string
				err := json.Unmarshal(recorder.Body.Bytes(), &response)
				if err != nil {
					t.Errorf("Failed to parse JSON response: %v", err)
				}

				challenge, exists := response["challenge"]
				if !exists {
					t.Error("Expected 'challenge' field in response")
				}

				// Verify challenge is valid base64
				_, err = base64.StdEncoding.DecodeString(challenge)
				if err != nil {
					t.Errorf("Challenge is not valid base64: %v", err)
				}

				// Check if challenge changed when expected
				newChallenge := provider.GetChallenge()
				challengeChanged := string(originalChallenge) != string(newChallenge)

				if tc.expectNewChallenge && !challengeChanged {
					t.Error("Expected challenge to change, but it didn't")
				}
				if !tc.expectNewChallenge && challengeChanged {
					t.Error("Expected challenge to stay the same, but it changed")
				}
			}
		})
	}
}

func TestEd25519VerifyHandler(t *testing.T) {
	provider, err := NewEd25519AuthProvider(testdata.OperatorPublicKeyPEM, "Authorization", testdata.OperatorUserID)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	// Set a fixed challenge for consistent testing
	provider.challenge = testdata.FixedChallenge

	handler := Ed25519VerifyHandler(provider)

	// Generate a valid signature for testing
	validSignature := signChallenge(t, provider.challenge)
	validSignatureB64 := base64.StdEncoding.EncodeToString(validSignature)

	testCases := []struct {
		name           string
		method         string
		authHeader     string
		expectedStatus int
		expectCookie   bool
		tlsRequest     bool
	}{
		{
			name:           "Valid signature verification",
			method:         http.MethodPost,
			authHeader:     validSignatureB64,
			expectedStatus: http.StatusOK,
			expectCookie:   true,
			tlsRequest:     false,
		},
		{
			name:           "Valid signature with TLS - secure cookie",
			method:         http.MethodPost,
			authHeader:     validSignatureB64,
			expectedStatus: http.StatusOK,
			expectCookie:   true,
			tlsRequest:     true,
		},
		{
			name:           "Invalid signature",
			method:         http.MethodPost,
			authHeader:     "invalid-signature-base64",
			expectedStatus: http.StatusUnauthorized,
			expectCookie:   false,
		},
		{
			name:           "Missing authorization header",
			method:         http.MethodPost,
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
			expectCookie:   false,
		},
		{
			name:           "Invalid base64 signature",
			method:         http.MethodPost,
			authHeader:     "not-valid-base64!@#",
			expectedStatus: http.StatusUnauthorized,
			expectCookie:   false,
		},
		{
			name:           "GET method not allowed",
			method:         http.MethodGet,
			authHeader:     validSignatureB64,
			expectedStatus: http.StatusMethodNotAllowed,
			expectCookie:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/auth/verify", nil)

			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			// Mock TLS if needed
			if tc.tlsRequest {
				req.TLS = &tls.ConnectionState{}
			}

			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, recorder.Code)
			}

			// Check cookie expectations
			cookies := recorder.Result().Cookies()
			foundAuthCookie := false
			for _, cookie := range cookies {
				if cookie.Name == "auth_token" {
					foundAuthCookie = true

					// Verify cookie properties
					if cookie.Path != "/" {
						t.Errorf("Expected cookie path '/', got '%s'", cookie.Path)
					}
					if !cookie.HttpOnly {
						t.Error("Expected cookie to be HttpOnly")
					}
					if cookie.SameSite != http.SameSiteStrictMode {
						t.Errorf("Expected SameSite strict mode, got %v", cookie.SameSite)
					}
					if tc.tlsRequest && !cookie.Secure {
						t.Error("Expected secure cookie for TLS request")
					}
					if !tc.tlsRequest && cookie.Secure {
						t.Error("Did not expect secure cookie for non-TLS request")
					}
					if cookie.MaxAge != 3600*24 {
						t.Errorf("Expected MaxAge 86400, got %d", cookie.MaxAge)
					}

					// Verify cookie value is the signature
					if cookie.Value != tc.authHeader {
						t.Errorf("Expected cookie value '%s', got '%s'", tc.authHeader, cookie.Value)
					}
					break
				}
			}

			if tc.expectCookie && !foundAuthCookie {
				t.Error("Expected auth_token cookie, but didn't find one")
			}
			if !tc.expectCookie && foundAuthCookie {
				t.Error("Did not expect auth_token cookie, but found one")
			}
		})
	}
}

func TestEd25519LoginHandler(t *testing.T) {
	provider, err := NewEd25519AuthProvider(testdata.OperatorPublicKeyPEM, "Authorization", testdata.OperatorUserID)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	provider.challenge = testdata.FixedChallenge

	handler := Ed25519LoginHandler(provider)

	testCases := []struct {
		name             string
		query            string
		expectedRedirect string
	}{
		{"Default redirect to root", "", "/"},
		{"Local redirect is kept", "?redirect=/new/post", "/new/post"},
		{"Absolute URL is rejected", "?redirect=https://example.com", "/"},
		{"Protocol-relative URL is rejected", "?redirect=//example.com", "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/login"+tc.query, nil)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			if recorder.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", recorder.Code)
			}

			var response loginResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse JSON response: %v", err)
			}

			if response.RedirectURL != tc.expectedRedirect {
				t.Errorf("Expected redirect '%s', got '%s'", tc.expectedRedirect, response.RedirectURL)
			}
			if response.Header != "Authorization" {
				t.Errorf("Expected header 'Authorization', got '%s'", response.Header)
			}
			if response.VerifyURL != "/auth/verify" {
				t.Errorf("Expected verify URL '/auth/verify', got '%s'", response.VerifyURL)
			}
			if response.Challenge != base64.StdEncoding.EncodeToString(testdata.FixedChallenge) {
				t.Error("Expected the current challenge in the response")
			}
		})
	}
}

func TestRegisterEd25519AuthRoutes(t *testing.T) {
	provider, err := NewEd25519AuthProvider(testdata.OperatorPublicKeyPEM, "Authorization", testdata.OperatorUserID)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	mux := http.NewServeMux()
	RegisterEd25519AuthRoutes(mux, provider)

	for _, path := range []string{"/auth/challenge", "/auth/login"} {
		recorder := httptest.NewRecorder()
		mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("Expected %s to be routed, got status %d", path, recorder.Code)
		}
	}
}
