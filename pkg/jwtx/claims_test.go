package jwtx_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestClaimsUnmarshalKeepsExtra(t *testing.T) {
	t.Parallel()

	raw := `{
		"iss": "https://idp.example.test/realms/master",
		"sub": "abc",
		"exp": 1900000000,
		"realm_access": {"roles": ["user", "nurse"]},
		"preferred_username": "joy",
		"azp": "nearbynurse-frontend",
		"session_state": "s-1",
		"resource_access": {"account": {"roles": ["view-profile"]}}
	}`

	var c jwtx.Claims
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	require.Equal(t, "abc", c.Subject)
	require.Equal(t, "joy", c.PreferredUsername)
	require.Equal(t, []string{"user", "nurse"}, c.Roles())
	require.True(t, c.HasRole("nurse"))
	require.False(t, c.HasRole("admin"))
	require.Equal(t, int64(1900000000), c.ExpiresAt.Unix())

	azp, ok := c.Claim("azp")
	require.True(t, ok)
	require.Equal(t, "nearbynurse-frontend", azp)
	require.Len(t, c.Extra, 3)
	_, ok = c.Claim("sub")
	require.False(t, ok, "modelled claims must not be duplicated into Extra")
}

func TestClaimsRolesAbsent(t *testing.T) {
	t.Parallel()

	t.Run("no realm_access", func(t *testing.T) {
		var c jwtx.Claims
		require.NoError(t, json.Unmarshal([]byte(`{"sub":"x"}`), &c))
		require.Empty(t, c.Roles())
		require.Nil(t, c.Extra)
	})

	t.Run("nil claims", func(t *testing.T) {
		var c *jwtx.Claims
		require.Empty(t, c.Roles())
		require.False(t, c.HasRole("user"))
	})
}

func TestClaimsMarshalRoundTripsExtra(t *testing.T) {
	t.Parallel()

	c := jwtx.NewAccessClaims("iss", "sub", "sam", []string{"user"}, time.Minute, time.Unix(1_700_000_000, 0))
	c.Extra = map[string]any{"azp": "frontend", "sub": "ignored"}

	b, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "frontend", m["azp"])
	require.Equal(t, "sub", m["sub"], "typed field wins over Extra")
	require.Equal(t, "sam", m["preferred_username"])
}

func TestRolesReturnsCopy(t *testing.T) {
	t.Parallel()

	c := jwtx.NewAccessClaims("iss", "sub", "", []string{"user"}, time.Minute, time.Now())
	roles := c.Roles()
	roles[0] = "admin"
	require.Equal(t, []string{"user"}, c.Roles())
}
