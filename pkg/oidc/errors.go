package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/nearbynurse/pkg/httpx"
)

// OAuth2 error codes (RFC 6749) the gateway reads or writes.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeServerError    = "server_error"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeUnavailable    = "temporarily_unavailable"
	ErrorCodeConflict       = "conflict"
)

// OAuth2Error is an error response from the provider, or one the gateway
// writes back to its own callers in the same shape.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error as a JSON response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// NewOAuth2Error creates an OAuth2Error.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

var (
	// ErrConflict is returned by CreateUser when the username or email is taken.
	ErrConflict = errors.New("oidc: user already exists")

	// ErrMissingLocation is returned by CreateUser when the provider reports
	// success without saying where the new user lives.
	ErrMissingLocation = errors.New("oidc: created user has no Location")
)

// IsStatus reports whether err is an OAuth2Error with the given status.
func IsStatus(err error, status int) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.StatusCode == status
}

// IsCode reports whether err is an OAuth2Error with the given error code.
func IsCode(err error, code string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == code
}

// parseErrorResponse turns a non-2xx response body into an *OAuth2Error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		switch {
		case er.Error != "":
			return &OAuth2Error{StatusCode: resp.StatusCode, Code: er.Error, Description: er.ErrorDescription}
		case er.ErrorMessage != "":
			return &OAuth2Error{StatusCode: resp.StatusCode, Code: codeForStatus(resp.StatusCode), Description: er.ErrorMessage}
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        codeForStatus(resp.StatusCode),
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorCodeInvalidToken
	case http.StatusForbidden:
		return ErrorCodeAccessDenied
	case http.StatusConflict:
		return ErrorCodeConflict
	case http.StatusServiceUnavailable:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeServerError
	}
}
