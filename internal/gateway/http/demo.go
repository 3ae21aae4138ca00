package http

import (
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
)

// ProtectedDemoHandler godoc
//
//	@Summary		Authenticated demo route
//	@Tags			Demo
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	map[string]bool			"ok"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/demo/protected [get].
func ProtectedDemoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// AdminDemoHandler godoc
//
//	@Summary		Admin-only demo route
//	@Description	Requires the admin realm role
//	@Tags			Demo
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	map[string]string		"secret"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description, missing_roles"
//	@Router			/demo/admin-only [get].
func AdminDemoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"secret": "admin data"})
	}
}
