package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
)

const maxBodySize = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            oidc.ErrorCodeInvalidRequest,
			ErrorDescription: "Invalid JSON in request body",
		})
		return false
	}
	return true
}

func writeInvalidRequest(w http.ResponseWriter, description string) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
		Error:            oidc.ErrorCodeInvalidRequest,
		ErrorDescription: description,
	})
}

func writeServerError(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
		Error:            oidc.ErrorCodeServerError,
		ErrorDescription: "Internal server error",
	})
}

// provisionStatus maps a provisioning failure to the status the caller sees.
func provisionStatus(kind service.ProvisionKind) int {
	switch kind {
	case service.KindDuplicateAccount:
		return http.StatusConflict
	case service.KindAccountCreateFailed:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// writeServiceError writes err from a service call. It reports false when
// err is not one the gateway knows how to describe.
func writeServiceError(w http.ResponseWriter, err error) bool {
	var (
		ve *service.ValidationError
		pe *service.ProvisionError
		oe *oidc.OAuth2Error
	)
	switch {
	case errors.As(err, &ve):
		writeInvalidRequest(w, ve.Error())
	case errors.Is(err, service.ErrOrphanNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "Orphan not found",
		})
	case errors.As(err, &pe):
		httpx.WriteJSON(w, provisionStatus(pe.Kind), authsdk.ErrorResponse{
			Error:            string(pe.Kind),
			ErrorDescription: provisionDescription(pe),
			IdentityRef:      pe.IdentityRef,
		})
	case errors.As(err, &oe):
		oe.WriteError(w)
	default:
		return false
	}
	return true
}

func provisionDescription(pe *service.ProvisionError) string {
	switch pe.Kind {
	case service.KindDuplicateAccount:
		return "Username or email already exists"
	case service.KindAdminAuthFailed:
		return "Failed to get admin token"
	case service.KindAccountCreateFailed:
		var oe *oidc.OAuth2Error
		if errors.As(pe.Err, &oe) && oe.Description != "" {
			return "Registration failed: " + oe.Description
		}
		return "Registration failed"
	case service.KindCredentialSetFailed:
		return "Account created but the password could not be set"
	default:
		return "Identity provider state is unknown"
	}
}
