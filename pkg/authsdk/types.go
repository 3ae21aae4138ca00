package authsdk

import "time"

// ============================================================================
// Gateway wire types. The gateway's handlers encode these; the Client
// decodes them.
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// RegisterResponse is returned with 201 from POST /auth/register.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	TokenType        string `json:"token_type"`
}

// Profile is the caller's identity as returned by GET /me.
type Profile struct {
	Subject       string   `json:"sub"`
	Username      string   `json:"preferred_username,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	Name          string   `json:"name,omitempty"`
	GivenName     string   `json:"given_name,omitempty"`
	FamilyName    string   `json:"family_name,omitempty"`
	Roles         []string `json:"roles"`
	ExpiresAt     int64    `json:"exp,omitempty"`
}

// MeResponse wraps the profile.
type MeResponse struct {
	User Profile `json:"user"`
}

// ErrorResponse is the body of every gateway error.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	MissingRoles     []string `json:"missing_roles,omitempty"`
	IdentityRef      string   `json:"identity_ref,omitempty"`
}

// HealthChecks reports the dependencies /readyz looks at.
type HealthChecks struct {
	Database string `json:"database"`
	KeySet   string `json:"key_set"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// Orphan is an account the IdP holds without a password.
type Orphan struct {
	ID          string    `json:"id"`
	IdentityRef string    `json:"identity_ref"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Reason      string    `json:"reason"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrphansResponse lists orphans, oldest first.
type OrphansResponse struct {
	Orphans []Orphan `json:"orphans"`
}

// RetryCredentialRequest is the body of POST /v1/admin/orphans/{id}/credential.
type RetryCredentialRequest struct {
	Password string `json:"password"`
}

// Credentials are the persisted token pair. They are always written and
// cleared as one value so the two tokens cannot diverge.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

func credentialsFrom(t *TokenResponse, now time.Time) Credentials {
	c := Credentials{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if t.ExpiresIn > 0 {
		c.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return c
}
