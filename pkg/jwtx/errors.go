package jwtx

import (
	"errors"
	"fmt"
)

// Kind classifies why a bearer token was rejected. Every rejection carries
// exactly one Kind so callers can map it to a response without string
// matching.
type Kind string

const (
	KindMissingToken         Kind = "missing_token"
	KindMalformedToken       Kind = "malformed_token"
	KindUnsupportedAlgorithm Kind = "unsupported_algorithm"
	KindSignatureInvalid     Kind = "signature_invalid"
	KindIssuerMismatch       Kind = "issuer_mismatch"
	KindTokenExpired         Kind = "token_expired"
	KindKeySourceUnavailable Kind = "key_source_unavailable"
	KindRateLimited          Kind = "rate_limited"
	KindNotConfigured        Kind = "not_configured"
)

// AuthError is the error type returned by validators and the key source.
type AuthError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := "jwtx: " + string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same Kind, so the package-level sentinels
// below work with errors.Is regardless of detail or cause.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrMissingToken         = &AuthError{Kind: KindMissingToken}
	ErrMalformedToken       = &AuthError{Kind: KindMalformedToken}
	ErrUnsupportedAlgorithm = &AuthError{Kind: KindUnsupportedAlgorithm}
	ErrSignatureInvalid     = &AuthError{Kind: KindSignatureInvalid}
	ErrIssuerMismatch       = &AuthError{Kind: KindIssuerMismatch}
	ErrTokenExpired         = &AuthError{Kind: KindTokenExpired}
	ErrKeySourceUnavailable = &AuthError{Kind: KindKeySourceUnavailable}
	ErrRateLimited          = &AuthError{Kind: KindRateLimited}
	ErrNotConfigured        = &AuthError{Kind: KindNotConfigured}
)

// ErrKeyNotFound is returned by KeySource when a kid is still unknown after a
// refill. Validators report it as KindSignatureInvalid.
var ErrKeyNotFound = errors.New("jwtx: key not found")

func newError(kind Kind, detail string, cause error) *AuthError {
	return &AuthError{Kind: kind, Detail: detail, Err: cause}
}

func newErrorf(kind Kind, format string, args ...any) *AuthError {
	return &AuthError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or "" if err is not an *AuthError.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
