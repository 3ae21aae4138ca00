package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc/oidctest"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, idp *oidctest.Server) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.KeycloakURL = idp.URL
	cfg.Realm = idp.Realm()
	cfg.ClientID = idp.ClientID()
	admin := idp.AdminCredentials()
	cfg.AdminClientID = admin.ClientID
	cfg.AdminUsername = admin.Username
	cfg.AdminPassword = admin.Password
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "gateway.db")
	cfg.LogLevel = "error"
	return cfg
}

func readyz(t *testing.T, h http.Handler) (int, authsdk.HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestNewKeySetStrategy(t *testing.T) {
	idp := oidctest.New(t, oidctest.Options{})

	app, err := New(testConfig(t, idp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	require.NotNil(t, app.keys)
	require.Equal(t, idp.Issuer(), app.issuer())

	code, _ := readyz(t, app.Handler())
	require.Equal(t, http.StatusServiceUnavailable, code)

	app.prime()
	require.Equal(t, 1, idp.Calls(oidctest.OpCerts))

	code, body := readyz(t, app.Handler())
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body.Checks.KeySet)
	require.Equal(t, BuildVersion, body.Version)
}

func TestNewSharedSecretStrategy(t *testing.T) {
	idp := oidctest.New(t, oidctest.Options{Secret: []byte("0123456789abcdef0123456789abcdef")})

	cfg := testConfig(t, idp)
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	require.Nil(t, app.keys)
	require.Empty(t, app.issuer())

	app.prime()
	require.Zero(t, idp.Calls(oidctest.OpCerts))

	code, body := readyz(t, app.Handler())
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "not used", body.Checks.KeySet)

	u := idp.AddUser("joy", "pw", "user")
	tok, err := idp.IssueTokens(u.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/demo/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(DefaultConfig())
	require.ErrorContains(t, err, "KEYCLOAK_URL")
}
