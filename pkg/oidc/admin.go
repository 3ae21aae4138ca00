package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AdminCredentials identify the service account used for user
// administration.
type AdminCredentials struct {
	ClientID string
	Username string
	Password string
}

// AdminSession holds a short-lived admin access token. Sessions are created
// per operation and never cached.
type AdminSession struct {
	client *Client
	token  string
}

// AdminLogin obtains an admin token from the admin realm.
func (c *Client) AdminLogin(ctx context.Context, creds AdminCredentials) (*AdminSession, error) {
	clientID := creds.ClientID
	if clientID == "" {
		clientID = "admin-cli"
	}
	realm := c.AdminRealm
	if realm == "" {
		realm = "master"
	}

	tok, err := c.PasswordGrant(ctx, realm, clientID, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}
	return &AdminSession{client: c, token: tok.AccessToken}, nil
}

// CreateUser creates a user and returns the identity reference taken from
// the Location header. A 409 returns ErrConflict; a 201 whose Location does
// not name a single user below the users collection returns
// ErrMissingLocation.
func (s *AdminSession) CreateUser(ctx context.Context, user UserRepresentation) (string, error) {
	resp, err := s.client.sendJSON(ctx, http.MethodPost, s.client.usersURL(), s.token, user)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	location := resp.Header.Get("Location")

	if resp.StatusCode == http.StatusConflict {
		_ = checkStatus(resp)
		return "", ErrConflict
	}
	if err := checkStatus(resp, http.StatusCreated); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	id := s.client.identityFromLocation(location)
	if id == "" {
		return "", ErrMissingLocation
	}
	return id, nil
}

// ResetPassword sets a permanent password on the user.
func (s *AdminSession) ResetPassword(ctx context.Context, userID, password string) error {
	if userID == "" {
		return errors.New("reset password: user id is required")
	}
	u := s.client.usersURL() + "/" + url.PathEscape(userID) + "/reset-password"
	resp, err := s.client.sendJSON(ctx, http.MethodPut, u, s.token, CredentialRepresentation{
		Type:      "password",
		Value:     password,
		Temporary: false,
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := checkStatus(resp, http.StatusNoContent, http.StatusOK); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// DeleteUser removes the user. A user that is already gone is not an error.
func (s *AdminSession) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("delete user: user id is required")
	}
	resp, err := s.client.doRequest(ctx, http.MethodDelete, s.client.usersURL()+"/"+url.PathEscape(userID), nil, s.token, nil)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := checkStatus(resp, http.StatusNoContent, http.StatusOK, http.StatusNotFound); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// identityFromLocation returns the user id from a Location header. Only a
// path of exactly one segment below the users collection is accepted; the
// host is ignored since Keycloak may answer with its public hostname.
func (c *Client) identityFromLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	loc, err := url.Parse(location)
	if err != nil {
		return ""
	}
	users, err := url.Parse(c.usersURL())
	if err != nil {
		return ""
	}

	id, ok := strings.CutPrefix(loc.Path, strings.TrimSuffix(users.Path, "/")+"/")
	if !ok || id == "" || strings.Contains(id, "/") || id == "." || id == ".." {
		return ""
	}
	return id
}
