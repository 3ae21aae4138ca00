package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the gateway's authentication endpoints. It holds no tokens;
// see Manager for a stateful session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a gateway client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges a username and password for tokens.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "",
		LoginRequest{Username: username, Password: password}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "",
		RefreshRequest{RefreshToken: refreshToken}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile the gateway derives from accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var out MeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/me", accessToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Livez calls the liveness probe.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz calls the readiness probe. A degraded gateway answers 503, which
// is returned as an *APIError.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get calls an authenticated JSON endpoint such as /demo/protected.
func (c *Client) Get(ctx context.Context, path, accessToken string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, accessToken, nil, out, http.StatusOK)
}

// ListOrphans lists accounts left without a credential. Requires the admin
// role.
func (c *Client) ListOrphans(ctx context.Context, accessToken string) ([]Orphan, error) {
	var out OrphansResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/orphans", accessToken, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Orphans, nil
}

// RetryOrphanCredential sets a password on an orphaned account.
func (c *Client) RetryOrphanCredential(ctx context.Context, accessToken, id, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/admin/orphans/"+url.PathEscape(id)+"/credential", accessToken,
		RetryCredentialRequest{Password: password}, nil, http.StatusNoContent)
}

// DeleteOrphan deletes an orphaned account from the IdP.
func (c *Client) DeleteOrphan(ctx context.Context, accessToken, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/admin/orphans/"+url.PathEscape(id), accessToken,
		nil, nil, http.StatusNoContent)
}
