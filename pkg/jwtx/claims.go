package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RealmAccess mirrors Keycloak's realm_access claim.
type RealmAccess struct {
	Roles []string `json:"roles,omitempty"`
}

// Claims are the verified claims of an access token. The fields the gateway
// depends on are typed; everything else the issuer sends lands in Extra so
// nothing is lost when a newer IdP adds claims.
type Claims struct {
	jwt.RegisteredClaims

	// Keycloak realm roles ["user","nurse","admin"]
	RealmAccess *RealmAccess `json:"realm_access,omitempty"`

	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`

	// Extra holds claims not modelled above, keyed by claim name.
	Extra map[string]any `json:"-"`
}

var knownClaims = []string{
	"iss", "sub", "aud", "exp", "nbf", "iat", "jti",
	"realm_access", "preferred_username", "email", "email_verified",
	"name", "given_name", "family_name",
}

// UnmarshalJSON decodes the typed fields and keeps the rest in Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownClaims {
		delete(all, k)
	}

	*c = Claims(p)
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

// MarshalJSON writes typed fields and Extra back into a single object. Typed
// fields win if Extra carries the same name.
func (c Claims) MarshalJSON() ([]byte, error) {
	type plain Claims
	typed, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return typed, nil
	}

	out := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		out[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// Roles returns the realm roles. An absent claim is zero roles, not an error.
func (c *Claims) Roles() []string {
	if c == nil || c.RealmAccess == nil {
		return nil
	}
	return slices.Clone(c.RealmAccess.Roles)
}

// HasRole reports whether the realm roles contain role.
func (c *Claims) HasRole(role string) bool {
	if c == nil || c.RealmAccess == nil {
		return false
	}
	return slices.Contains(c.RealmAccess.Roles, role)
}

// Claim returns an unmodelled claim from Extra.
func (c *Claims) Claim(name string) (any, bool) {
	if c == nil || c.Extra == nil {
		return nil, false
	}
	v, ok := c.Extra[name]
	return v, ok
}

// NewAccessClaims builds minimally-correct access token claims. Used by the
// signers in tests and by the fake identity provider.
func NewAccessClaims(issuer, subject, username string, roles []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		RealmAccess:       &RealmAccess{Roles: roles},
		PreferredUsername: username,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// validateIssuer is an exact string comparison. No prefix or trailing-slash
// normalisation.
func (c *Claims) validateIssuer(expected string) error {
	if c.Issuer != expected {
		return newErrorf(KindIssuerMismatch, "got %q", c.Issuer)
	}
	return nil
}

// validateExpiry requires exp to be strictly after now. A token without exp
// never expires on its own, which we refuse.
func (c *Claims) validateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return newError(KindTokenExpired, "missing exp", nil)
	}
	if !c.ExpiresAt.After(now) {
		return newErrorf(KindTokenExpired, "expired at %s", c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}
