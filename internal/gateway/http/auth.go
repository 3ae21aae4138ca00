package http

import (
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
)

// AuthHandler serves the login, refresh and register pass-through endpoints.
type AuthHandler struct {
	AuthService      *service.AuthService
	ProvisionService *service.ProvisionService
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Log in
//	@Description	Exchanges a username and password for tokens at the identity provider
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"username, password"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, expires_in, token_type"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		502		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tok, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !writeServiceError(w, err) {
			writeServerError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token for a new token pair. Both tokens are replaced.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, expires_in, token_type"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		502		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tok, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if !writeServiceError(w, err) {
			writeServerError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

// HandleRegister handles POST /auth/register
//
//	@Summary		Register
//	@Description	Creates an account at the identity provider and sets its password. Does not log in.
//	@Description	A 502 carrying identity_ref means the account exists without a password and is awaiting an operator.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"username, email, password, firstName, lastName"
//	@Success		201		{object}	authsdk.RegisterResponse	"message, user_id"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		409		{object}	authsdk.ErrorResponse		"username or email already exists"
//	@Failure		502		{object}	authsdk.ErrorResponse		"error, error_description, identity_ref"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req authsdk.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.ProvisionService.CreateAccount(r.Context(), domain.Account{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if !writeServiceError(w, err) {
			log.Error("registration failed", "err", err)
			writeServerError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		Message: "User registered successfully",
		UserID:  id,
	})
}

func tokenResponse(t *oidc.TokenResponse) authsdk.TokenResponse {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return authsdk.TokenResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		ExpiresIn:        t.ExpiresIn,
		RefreshExpiresIn: t.RefreshExpiresIn,
		TokenType:        tokenType,
	}
}
