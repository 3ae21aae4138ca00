package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
)

// Errors the gateway answers with on login and refresh. The IdP's own
// descriptions are logged, not returned.
var (
	ErrInvalidCredentials  = oidc.NewOAuth2Error(http.StatusUnauthorized, oidc.ErrorCodeInvalidGrant, "Invalid credentials")
	ErrInvalidRefresh      = oidc.NewOAuth2Error(http.StatusUnauthorized, oidc.ErrorCodeInvalidGrant, "Invalid refresh token")
	ErrClientMisconfigured = oidc.NewOAuth2Error(http.StatusUnauthorized, oidc.ErrorCodeInvalidClient, "Identity provider client is not configured for direct access grants")
	ErrUpstreamUnavailable = oidc.NewOAuth2Error(http.StatusBadGateway, oidc.ErrorCodeUnavailable, "Identity provider unavailable")
)

// AuthService forwards end-user login and refresh to the IdP token endpoint.
type AuthService struct {
	IdP      *oidc.Client
	ClientID string
	Logger   *slog.Logger
}

// Login runs the password grant for username.
func (s *AuthService) Login(ctx context.Context, username, password string) (*oidc.TokenResponse, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password"}
	}

	tok, err := s.IdP.PasswordGrant(ctx, s.IdP.Realm, s.ClientID, username, password)
	if err != nil {
		s.logger().Warn("login failed", "username", username, "err", err)
		return nil, s.mapGrantError(err, ErrInvalidCredentials)
	}
	return tok, nil
}

// Refresh runs the refresh grant.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*oidc.TokenResponse, error) {
	if refreshToken == "" {
		return nil, &ValidationError{Field: "refresh_token"}
	}

	tok, err := s.IdP.RefreshGrant(ctx, s.ClientID, refreshToken)
	if err != nil {
		s.logger().Info("refresh failed", "err", err)
		return nil, s.mapGrantError(err, ErrInvalidRefresh)
	}
	return tok, nil
}

func (s *AuthService) mapGrantError(err error, rejected *oidc.OAuth2Error) *oidc.OAuth2Error {
	var oe *oidc.OAuth2Error
	if !errors.As(err, &oe) || oe.StatusCode >= 500 {
		return ErrUpstreamUnavailable
	}
	if oe.Code == oidc.ErrorCodeInvalidClient {
		return ErrClientMisconfigured
	}
	return rejected
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
