// Package oidc is a client for the identity provider's OpenID Connect and
// admin REST endpoints (Keycloak layout): key set discovery, the token
// endpoint, and the user administration calls used for provisioning.
package oidc

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 10 * time.Second

// Client talks to one realm of the identity provider.
type Client struct {
	// BaseURL is the provider root, e.g. https://keycloak.example.com.
	BaseURL string
	// Realm is the realm users live in.
	Realm string
	// AdminRealm is the realm the admin service account authenticates
	// against. Keycloak's admin-cli lives in "master".
	AdminRealm string
	// JWKSURL overrides the derived certs endpoint.
	JWKSURL string

	HTTPClient *http.Client
}

// NewClient creates a client with the default timeout. Empty realms default
// to "master".
func NewClient(baseURL, realm string) *Client {
	if realm == "" {
		realm = "master"
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Realm:      realm,
		AdminRealm: "master",
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// IssuerURL is the issuer Keycloak stamps into tokens for the realm.
func (c *Client) IssuerURL() string {
	return c.BaseURL + "/realms/" + c.Realm
}

// CertsURL is the realm's JWKS endpoint.
func (c *Client) CertsURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.IssuerURL() + "/protocol/openid-connect/certs"
}

func (c *Client) tokenURL(realm string) string {
	return c.BaseURL + "/realms/" + realm + "/protocol/openid-connect/token"
}

func (c *Client) usersURL() string {
	return c.BaseURL + "/admin/realms/" + c.Realm + "/users"
}
