package authsdk

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshFailed is reported to logout listeners when a refresh could
	// not produce new credentials.
	ErrRefreshFailed = errors.New("authsdk: token refresh failed")

	// ErrNotAuthenticated is returned by operations that need credentials
	// while the manager holds none.
	ErrNotAuthenticated = errors.New("authsdk: not authenticated")

	// ErrNoCredentials is returned by a Store that holds nothing.
	ErrNoCredentials = errors.New("authsdk: no stored credentials")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("authsdk: manager closed")
)

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode   int      `json:"-"`
	Code         string   `json:"error"`
	Description  string   `json:"error_description"`
	MissingRoles []string `json:"missing_roles,omitempty"`
	IdentityRef  string   `json:"identity_ref,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authsdk: HTTP %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("authsdk: HTTP %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == status
}
