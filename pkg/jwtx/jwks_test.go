package jwtx_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestRSAJWKEncoding(t *testing.T) {
	t.Parallel()

	s := newRSASigner(t, "k1")
	j := s.PublicJWK()

	require.Equal(t, "RSA", j.Kty)
	require.Equal(t, "sig", j.Use)
	require.Equal(t, "RS256", j.Alg)
	require.Equal(t, "k1", j.Kid)
	require.Equal(t, "AQAB", j.E)
	require.NotEmpty(t, j.N)
}

func TestKeycloakStyleJWKSFiltering(t *testing.T) {
	t.Parallel()

	sig := newRSASigner(t, "sig-key").PublicJWK()
	enc := newRSASigner(t, "enc-key").PublicJWK()
	enc.Use = "enc"
	enc.Alg = "RSA-OAEP"

	body, err := json.Marshal(map[string]any{"keys": []any{
		sig,
		enc,
		map[string]string{"kty": "EC", "kid": "ec-key", "crv": "P-256", "x": "AA", "y": "AA", "use": "sig"},
		map[string]string{"kty": "RSA", "kid": "", "n": sig.N, "e": sig.E},
	}})
	require.NoError(t, err)

	var set jwtx.JWKS
	require.NoError(t, json.Unmarshal(body, &set))

	ks := jwtx.NewKeySource(jwtx.KeySourceConfig{Fetcher: &fakeFetcher{jwks: set}})
	require.NoError(t, ks.Prime(context.Background()))

	_, err = ks.Key(context.Background(), "sig-key")
	require.NoError(t, err)

	for _, kid := range []string{"enc-key", "ec-key"} {
		_, err = ks.Key(context.Background(), kid)
		require.ErrorIs(t, err, jwtx.ErrKeyNotFound, kid)
	}
}
