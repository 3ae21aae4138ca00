package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/nearbynurse/pkg/cryptox"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
)

// VerifyObserver is told the outcome of every Authenticate decision: "ok"
// or the jwtx.Kind of the failure.
type VerifyObserver func(outcome string)

// Authenticate requires a valid bearer token and attaches its claims to the
// request context. Every failure is terminal; there is no anonymous fallback.
func Authenticate(v jwtx.Validator, observe VerifyObserver) Middleware {
	if observe == nil {
		observe = func(string) {}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				observe(string(jwtx.KindMissingToken))
				writeAuthError(w, jwtx.ErrMissingToken)
				return
			}

			claims, err := v.Verify(ctx, raw)
			if err != nil {
				kind := jwtx.KindOf(err)
				observe(string(kind))
				log.Warn("bearer token rejected",
					"kind", kind,
					"fingerprint", cryptox.ShortFingerprint(raw),
					"err", err,
				)
				writeAuthError(w, err)
				return
			}

			observe("ok")
			ctx = slogx.WithContext(ctx, log.With("sub", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims)))
		})
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// AuthStatus maps a validation failure to its HTTP status. Failures caused
// by our own dependencies are 503; the request is still rejected.
func AuthStatus(err error) int {
	switch jwtx.KindOf(err) {
	case jwtx.KindKeySourceUnavailable, jwtx.KindRateLimited, jwtx.KindNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// writeAuthError writes an RFC 6750 response for a failed authentication.
func writeAuthError(w http.ResponseWriter, err error) {
	kind := jwtx.KindOf(err)
	status := AuthStatus(err)

	if status == http.StatusServiceUnavailable {
		if kind == jwtx.KindRateLimited {
			w.Header().Set("Retry-After", "60")
		}
		WriteJSON(w, status, map[string]string{
			"error":             "temporarily_unavailable",
			"error_description": string(kind),
		})
		return
	}

	if kind == jwtx.KindMissingToken {
		w.Header().Set("WWW-Authenticate", `Bearer realm="nearbynurse"`)
	} else {
		w.Header().Set("WWW-Authenticate",
			`Bearer realm="nearbynurse", error="invalid_token", error_description="`+string(kind)+`"`)
	}
	WriteJSON(w, status, map[string]string{
		"error":             "invalid_token",
		"error_description": string(kind),
	})
}
