package http

import (
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
)

// MeHandler godoc
//
//	@Summary		Current user
//	@Description	Returns the profile and roles carried by the caller's access token
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		503	{object}	authsdk.ErrorResponse	"Key set unavailable"
//	@Router			/me [get].
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: string(jwtx.KindMissingToken),
			})
			return
		}

		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{User: profileFrom(claims)})
	}
}

func profileFrom(c *jwtx.Claims) authsdk.Profile {
	p := authsdk.Profile{
		Subject:       c.Subject,
		Username:      c.PreferredUsername,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		GivenName:     c.GivenName,
		FamilyName:    c.FamilyName,
		Roles:         c.Roles(),
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Unix()
	}
	return p
}
