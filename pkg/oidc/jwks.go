package oidc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
)

// FetchJWKS retrieves the realm's published signing keys. It satisfies
// jwtx.KeyFetcher.
func (c *Client) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.CertsURL(), nil, "",
		map[string]string{"Accept": "application/json"})
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("fetch jwks: %w", err)
	}

	var set jwtx.JWKS
	if err := decodeJSON(resp, &set, http.StatusOK); err != nil {
		return jwtx.JWKS{}, fmt.Errorf("fetch jwks: %w", err)
	}
	return set, nil
}

var _ jwtx.KeyFetcher = (*Client)(nil)
