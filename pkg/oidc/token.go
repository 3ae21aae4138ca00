package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// PasswordGrant exchanges a username and password for tokens at realm's
// token endpoint (resource owner password credentials grant).
func (c *Client) PasswordGrant(ctx context.Context, realm, clientID, username, password string) (*TokenResponse, error) {
	if clientID == "" || username == "" || password == "" {
		return nil, NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "client_id, username and password are required")
	}

	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", clientID)
	data.Set("username", username)
	data.Set("password", password)

	return c.requestToken(ctx, realm, data)
}

// RefreshGrant exchanges a refresh token for a new token pair in the user
// realm.
func (c *Client) RefreshGrant(ctx context.Context, clientID, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "refresh_token is required")
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", clientID)
	data.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, c.Realm, data)
}

func (c *Client) requestToken(ctx context.Context, realm string, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, c.tokenURL(realm), data)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.New("oidc: token response has no access_token")
	}
	return &tokenResp, nil
}
