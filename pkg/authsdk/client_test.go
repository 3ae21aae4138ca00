package authsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		if json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 300, TokenType: "Bearer"})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RefreshRequest
		if json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{AccessToken: "at2", RefreshToken: req.RefreshToken + "2", ExpiresIn: 300})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.RegisterRequest
		if json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Username == "taken" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"conflict","error_description":"Username or email already exists"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(authsdk.RegisterResponse{Message: "User registered successfully", UserID: "u-1"})
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"token_expired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.MeResponse{User: authsdk.Profile{Subject: "u-1", Username: "sam", Roles: []string{"user"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := authsdk.NewClient(fakeGateway(t).URL + "/")

	t.Run("login and refresh", func(t *testing.T) {
		tok, err := c.Login(ctx, "sam", "pw")
		require.NoError(t, err)
		require.Equal(t, "at", tok.AccessToken)

		next, err := c.Refresh(ctx, tok.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, "rt2", next.RefreshToken)
	})

	t.Run("login rejected", func(t *testing.T) {
		_, err := c.Login(ctx, "sam", "nope")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "invalid_grant", apiErr.Code)
	})

	t.Run("register", func(t *testing.T) {
		out, err := c.Register(ctx, authsdk.RegisterRequest{Username: "new", Email: "n@example.com", Password: "pw"})
		require.NoError(t, err)
		require.Equal(t, "u-1", out.UserID)

		_, err = c.Register(ctx, authsdk.RegisterRequest{Username: "taken", Password: "pw"})
		require.True(t, authsdk.IsStatus(err, http.StatusConflict))
	})

	t.Run("me", func(t *testing.T) {
		p, err := c.Me(ctx, "at")
		require.NoError(t, err)
		require.Equal(t, "sam", p.Username)
		require.Equal(t, []string{"user"}, p.Roles)

		_, err = c.Me(ctx, "stale")
		require.True(t, authsdk.IsStatus(err, http.StatusUnauthorized))
	})
}

func TestManagerWithClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, err := authsdk.NewManager(authsdk.ManagerConfig{
		Auth:  authsdk.NewClient(fakeGateway(t).URL),
		Store: authsdk.NewMemoryStore(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.Error(t, m.Login(ctx, "sam", "nope"))
	require.Equal(t, authsdk.StateUnauthenticated, m.State())

	require.NoError(t, m.Login(ctx, "sam", "pw"))
	require.Equal(t, authsdk.StateAuthenticated, m.State())

	// "at" is not a JWT, so the first check refreshes.
	require.NoError(t, m.CheckNow(ctx))
	tok, err := m.AccessToken()
	require.NoError(t, err)
	require.Equal(t, "at2", tok)
}
