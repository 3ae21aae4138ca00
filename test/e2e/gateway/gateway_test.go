//go:build e2e

package gateway_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	client := newClient()

	live, err := client.Livez(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Readyz(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.KeySet)
}

// TestKeycloakTokenIsAccepted logs in through the gateway and presents the
// realm-issued RS256 token back to it.
func TestKeycloakTokenIsAccepted(t *testing.T) {
	tok := login(t, nurseUsername, nursePassword)

	me, err := newClient().Me(t.Context(), tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, nurseUsername, me.Username)
	require.Contains(t, me.Roles, "user")
	require.NotContains(t, me.Roles, "admin")
}

func TestRoleGatedRoutes(t *testing.T) {
	client := newClient()
	nurse := login(t, nurseUsername, nursePassword)
	ops := login(t, opsUsername, opsPassword)

	var out map[string]any
	require.NoError(t, client.Get(t.Context(), "/demo/protected", nurse.AccessToken, &out))

	err := client.Get(t.Context(), "/demo/admin-only", nurse.AccessToken, &out)
	require.True(t, authsdk.IsStatus(err, http.StatusForbidden))
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, []string{"admin"}, apiErr.MissingRoles)

	require.NoError(t, client.Get(t.Context(), "/demo/admin-only", ops.AccessToken, &out))
	require.Equal(t, "admin data", out["secret"])

	err = client.Get(t.Context(), "/demo/protected", "", &out)
	require.True(t, authsdk.IsStatus(err, http.StatusUnauthorized))
}

func TestLoginFailures(t *testing.T) {
	_, err := newClient().Login(t.Context(), nurseUsername, "wrong")
	require.True(t, authsdk.IsStatus(err, http.StatusUnauthorized))

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid credentials", apiErr.Description)
}

func TestRefreshRotatesTokens(t *testing.T) {
	client := newClient()
	tok := login(t, nurseUsername, nursePassword)

	next, err := client.Refresh(t.Context(), tok.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, next.AccessToken)

	_, err = client.Me(t.Context(), next.AccessToken)
	require.NoError(t, err)

	_, err = client.Refresh(t.Context(), "not-a-refresh-token")
	require.True(t, authsdk.IsStatus(err, http.StatusUnauthorized))
}

func TestRegisterThenLogin(t *testing.T) {
	client := newClient()
	username := uniqueName("newnurse")

	resp, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Fresh123!",
		FirstName: "New",
		LastName:  "Nurse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.UserID)

	tok := login(t, username, "Fresh123!")
	me, err := client.Me(t.Context(), tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.UserID, me.Subject)

	_, err = client.Register(t.Context(), authsdk.RegisterRequest{
		Username: username,
		Email:    "other-" + username + "@example.com",
		Password: "Fresh123!",
	})
	require.True(t, authsdk.IsStatus(err, http.StatusConflict))
}

func TestOrphanAdminRequiresRole(t *testing.T) {
	client := newClient()
	nurse := login(t, nurseUsername, nursePassword)
	ops := login(t, opsUsername, opsPassword)

	_, err := client.ListOrphans(t.Context(), nurse.AccessToken)
	require.True(t, authsdk.IsStatus(err, http.StatusForbidden))

	orphans, err := client.ListOrphans(t.Context(), ops.AccessToken)
	require.NoError(t, err)
	require.Empty(t, orphans)

	err = client.DeleteOrphan(t.Context(), ops.AccessToken, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.True(t, authsdk.IsStatus(err, http.StatusNotFound))
}
