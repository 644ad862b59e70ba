package cuentas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomodoroso/pizzanova/despensa"
)

func newTestHostedProvider(baseURL string) *HostedProvider {
	return NewHostedProvider(despensa.IdentitySettings{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		TimeoutInSec: 1,
	})
}

// unsignedToken builds a JWT-shaped token with the given exp claim. The
// provider only reads claims locally, it never verifies signatures.
func unsignedToken(exp time.Time) string {
	header, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims, _ := json.Marshal(map[string]int64{"exp": exp.Unix()})
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.sig", enc.EncodeToString(header), enc.EncodeToString(claims))
}

func TestHostedLogin(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "token-abc",
			"refresh_token": "refresh-abc",
			"expires_in":    3600,
			"user": map[string]any{
				"id":    "u1",
				"email": "ana@pizzanova.dev",
				"user_metadata": map[string]string{
					"name": "Ana",
					"role": "admin",
				},
			},
		})
	}))
	defer server.Close()

	// Act
	session, err := newTestHostedProvider(server.URL).Login(context.Background(), Credentials{
		Email:    "ana@pizzanova.dev",
		Password: "secret",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "token-abc", session.AccessToken)
	assert.Equal(t, "Ana", session.User.Name)
	assert.Equal(t, RoleAdmin, session.User.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestHostedLoginBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestHostedProvider(server.URL).Login(context.Background(), Credentials{
		Email:    "ana@pizzanova.dev",
		Password: "wrong",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHostedSignUpConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signup", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestHostedProvider(server.URL).SignUp(context.Background(), Credentials{
		Email:    "taken@pizzanova.dev",
		Password: "secret",
	}, "Taken")

	assert.ErrorIs(t, err, ErrUserExists)
}

func TestHostedSessionResolvesUser(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "u1",
			"email": "ana@pizzanova.dev",
			"user_metadata": map[string]string{
				"role": "staff",
			},
		})
	}))
	defer server.Close()
	token := unsignedToken(time.Now().Add(time.Hour))

	// Act
	user, err := newTestHostedProvider(server.URL).Session(context.Background(), token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	// Missing name falls back to the email
	assert.Equal(t, "ana@pizzanova.dev", user.Name)
	assert.Equal(t, RoleStaff, user.Role)
}

func TestHostedSessionExpiredTokenSkipsNetwork(t *testing.T) {
	// Arrange: any request reaching the server fails the test
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expired token should not hit the provider")
	}))
	defer server.Close()
	token := unsignedToken(time.Now().Add(-time.Hour))

	// Act
	_, err := newTestHostedProvider(server.URL).Session(context.Background(), token)

	// Assert
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestHostedSessionRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestHostedProvider(server.URL).Session(context.Background(), unsignedToken(time.Now().Add(time.Hour)))

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
