package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/nearbynurse/pkg/authz"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
)

// DenyObserver is told about every request RequireRoles turns away.
type DenyObserver func(req authz.Requirement, missing []string)

// RequireRoles admits the request only if the authenticated caller satisfies
// req. It must run after Authenticate; a request without claims is a wiring
// bug and is rejected as unauthenticated.
func RequireRoles(req authz.Requirement, observe DenyObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				slogx.FromContext(ctx).Error("RequireRoles used without Authenticate", "path", r.URL.Path)
				w.Header().Set("WWW-Authenticate", `Bearer realm="nearbynurse"`)
				WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":             "invalid_token",
					"error_description": "missing_token",
				})
				return
			}

			d := authz.AuthorizeClaims(claims, req)
			if !d.Allowed {
				if observe != nil {
					observe(req, d.Missing)
				}
				slogx.FromContext(ctx).Info("access denied",
					"requirement", req.String(),
					"missing", d.Missing,
				)
				writeInsufficientRole(w, d.Missing)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeInsufficientRole is the RFC 6750 insufficient_scope response, with
// the missing roles standing in for scopes.
func writeInsufficientRole(w http.ResponseWriter, missing []string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer realm="nearbynurse", error="insufficient_scope", scope="`+strings.Join(missing, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]any{
		"error":             "insufficient_scope",
		"error_description": "missing required role",
		"missing_roles":     missing,
	})
}
