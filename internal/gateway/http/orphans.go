package http

import (
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
)

// OrphansHandler lets an operator resolve accounts left without a
// credential by a failed registration.
type OrphansHandler struct {
	ProvisionService *service.ProvisionService
}

// HandleList handles GET /v1/admin/orphans
//
//	@Summary		List orphaned accounts
//	@Description	Accounts that exist at the identity provider without a password, oldest first
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.OrphansResponse	"orphans"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description, missing_roles"
//	@Router			/v1/admin/orphans [get].
func (h *OrphansHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.ProvisionService.ListOrphans(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list orphans", "err", err)
		writeServerError(w)
		return
	}

	out := authsdk.OrphansResponse{Orphans: make([]authsdk.Orphan, 0, len(list))}
	for _, o := range list {
		out.Orphans = append(out.Orphans, orphanResponse(o))
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRetryCredential handles POST /v1/admin/orphans/{id}/credential
//
//	@Summary		Retry the credential step
//	@Description	Sets a password on the orphaned account. The orphan is removed on success.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string							true	"Orphan ID"
//	@Param			request	body	authsdk.RetryCredentialRequest	true	"password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Orphan not found"
//	@Failure		502	{object}	authsdk.ErrorResponse	"error, error_description, identity_ref"
//	@Router			/v1/admin/orphans/{id}/credential [post].
func (h *OrphansHandler) HandleRetryCredential(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RetryCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.ProvisionService.RetryCredential(r.Context(), r.PathValue("id"), req.Password); err != nil {
		if !writeServiceError(w, err) {
			slogx.FromContext(r.Context()).Error("credential retry failed", "err", err)
			writeServerError(w)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/admin/orphans/{id}
//
//	@Summary		Delete an orphaned account
//	@Description	Deletes the account at the identity provider, then drops the orphan.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Orphan ID"
//	@Success		204
//	@Failure		404	{object}	authsdk.ErrorResponse	"Orphan not found"
//	@Failure		502	{object}	authsdk.ErrorResponse	"error, error_description, identity_ref"
//	@Router			/v1/admin/orphans/{id} [delete].
func (h *OrphansHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ProvisionService.DeleteOrphan(r.Context(), r.PathValue("id")); err != nil {
		if !writeServiceError(w, err) {
			slogx.FromContext(r.Context()).Error("orphan delete failed", "err", err)
			writeServerError(w)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orphanResponse(o domain.Orphan) authsdk.Orphan {
	return authsdk.Orphan{
		ID:          o.ID.String(),
		IdentityRef: o.IdentityRef,
		Username:    o.Username,
		Email:       o.Email,
		Reason:      o.Reason,
		Attempts:    o.Attempts,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
