// Package oidctest runs an in-process identity provider that speaks the
// subset of the Keycloak API the gateway uses. It counts calls per
// operation and can be told to fail any of them.
package oidctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/cryptox"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
	"github.com/google/uuid"
)

// Op names an endpoint for call counting and fault injection.
type Op string

const (
	OpCerts         Op = "certs"
	OpAdminLogin    Op = "admin_login"
	OpPasswordGrant Op = "password_grant"
	OpRefreshGrant  Op = "refresh_grant"
	OpCreateUser    Op = "create_user"
	OpResetPassword Op = "reset_password"
	OpDeleteUser    Op = "delete_user"
)

// Options configure the fake provider. Zero values get usable defaults.
type Options struct {
	Realm         string
	ClientID      string
	AdminClientID string
	AdminUsername string
	AdminPassword string

	// Secret switches token signing to HS256. Otherwise tokens are RS256
	// signed with a generated key published at the certs endpoint.
	Secret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (o *Options) defaults() {
	if o.Realm == "" {
		o.Realm = "nearbynurse"
	}
	if o.ClientID == "" {
		o.ClientID = "nearbynurse-frontend"
	}
	if o.AdminClientID == "" {
		o.AdminClientID = "admin-cli"
	}
	if o.AdminUsername == "" {
		o.AdminUsername = "admin"
	}
	if o.AdminPassword == "" {
		o.AdminPassword = "admin"
	}
	if o.AccessTTL == 0 {
		o.AccessTTL = 5 * time.Minute
	}
	if o.RefreshTTL == 0 {
		o.RefreshTTL = 30 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// User is a provider-side account.
type User struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Roles     []string
}

// Server is the fake provider.
type Server struct {
	*httptest.Server

	opts   Options
	signer jwtx.Signer

	mu           sync.Mutex
	keys         []jwtx.JWK
	users        map[string]*User
	refresh      map[string]string
	adminTokens  map[string]struct{}
	calls        map[Op]int
	faults       map[Op]int
	omitLocation bool
	location     string
}

// New starts a provider and stops it when the test ends.
func New(t testing.TB, opts Options) *Server {
	t.Helper()
	opts.defaults()

	s := &Server{
		opts:        opts,
		users:       make(map[string]*User),
		refresh:     make(map[string]string),
		adminTokens: make(map[string]struct{}),
		calls:       make(map[Op]int),
		faults:      make(map[Op]int),
	}

	if len(opts.Secret) > 0 {
		signer, err := jwtx.NewSignerHS256("", opts.Secret)
		if err != nil {
			t.Fatalf("oidctest: %v", err)
		}
		s.signer = signer
	} else {
		if err := s.RotateKey(); err != nil {
			t.Fatalf("oidctest: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /realms/{realm}/protocol/openid-connect/certs", s.handleCerts)
	mux.HandleFunc("POST /realms/{realm}/protocol/openid-connect/token", s.handleToken)
	mux.HandleFunc("POST /admin/realms/{realm}/users", s.handleCreateUser)
	mux.HandleFunc("PUT /admin/realms/{realm}/users/{id}/reset-password", s.handleResetPassword)
	mux.HandleFunc("DELETE /admin/realms/{realm}/users/{id}", s.handleDeleteUser)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Realm is the user realm.
func (s *Server) Realm() string { return s.opts.Realm }

// ClientID is the end-user client id.
func (s *Server) ClientID() string { return s.opts.ClientID }

// Issuer is the iss value stamped into access tokens.
func (s *Server) Issuer() string { return s.URL + "/realms/" + s.opts.Realm }

// JWKSURL is the realm's certs endpoint.
func (s *Server) JWKSURL() string { return s.Issuer() + "/protocol/openid-connect/certs" }

// AdminCredentials are the credentials the admin endpoints accept.
func (s *Server) AdminCredentials() oidc.AdminCredentials {
	return oidc.AdminCredentials{
		ClientID: s.opts.AdminClientID,
		Username: s.opts.AdminUsername,
		Password: s.opts.AdminPassword,
	}
}

// Client returns an oidc.Client pointed at this server.
func (s *Server) Client() *oidc.Client {
	c := oidc.NewClient(s.URL, s.opts.Realm)
	c.HTTPClient = s.Server.Client()
	c.HTTPClient.Timeout = 5 * time.Second
	return c
}

// RotateKey replaces the RS256 signing key with a fresh one under a new kid.
// The old key is no longer published.
func (s *Server) RotateKey() error {
	pemKey, err := cryptox.GenerateRSAKey(2048)
	if err != nil {
		return err
	}
	signer, err := jwtx.NewSignerRS256(uuid.NewString(), pemKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
	s.keys = []jwtx.JWK{signer.PublicJWK()}
	return nil
}

// Signer is the current token signer.
func (s *Server) Signer() jwtx.Signer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer
}

// AddUser creates a user with a password already set.
func (s *Server) AddUser(username, password string, roles ...string) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: password,
		Roles:    append([]string(nil), roles...),
	}
	s.users[u.ID] = u
	return *u
}

// SetRoles replaces a user's realm roles. Tokens issued afterwards carry them.
func (s *Server) SetRoles(id string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Roles = append([]string(nil), roles...)
	}
}

// User looks a user up by id.
func (s *Server) User(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// UserByName looks a user up by username.
func (s *Server) UserByName(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.findUserLocked(username); u != nil {
		return *u, true
	}
	return User{}, false
}

// UserCount is the number of accounts on the provider.
func (s *Server) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Calls returns how many times op was invoked, including failed calls.
func (s *Server) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Fail makes every subsequent call to op answer with status until Heal.
func (s *Server) Fail(op Op, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = status
}

// Heal clears an injected failure.
func (s *Server) Heal(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, op)
}

// OmitLocation makes user creation succeed without a Location header.
func (s *Server) OmitLocation(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitLocation = omit
}

// OverrideLocation makes user creation answer with loc as its Location
// header instead of the new user's URL. An empty loc restores the default.
func (s *Server) OverrideLocation(loc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
}

// IssueTokens mints a token pair for an existing user without going through
// the token endpoint.
func (s *Server) IssueTokens(id string) (oidc.TokenResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return oidc.TokenResponse{}, errNoUser
	}
	return s.issueLocked(u)
}

// begin counts the call and reports an injected failure, if any.
func (s *Server) begin(w http.ResponseWriter, op Op) bool {
	s.mu.Lock()
	s.calls[op]++
	status := s.faults[op]
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, oidc.ErrorResponse{
			Error:            oidc.ErrorCodeServerError,
			ErrorDescription: "injected failure",
		})
		return false
	}
	return true
}

func (s *Server) wrongRealm(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("realm") != s.opts.Realm {
		writeJSON(w, http.StatusNotFound, oidc.ErrorResponse{Error: "Realm does not exist"})
		return true
	}
	return false
}

func (s *Server) findUserLocked(name string) *User {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, name) || (u.Email != "" && strings.EqualFold(u.Email, name)) {
			return u
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
