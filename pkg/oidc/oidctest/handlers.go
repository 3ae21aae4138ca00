package oidctest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/nearbynurse/pkg/cryptox"
	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
	"github.com/google/uuid"
)

var errNoUser = errors.New("oidctest: no such user")

func (s *Server) handleCerts(w http.ResponseWriter, r *http.Request) {
	if s.wrongRealm(w, r) || !s.begin(w, OpCerts) {
		return
	}
	s.mu.Lock()
	set := jwtx.JWKS{Keys: append([]jwtx.JWK{}, s.keys...)}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, oidc.ErrorResponse{Error: oidc.ErrorCodeInvalidRequest})
		return
	}
	realm := r.PathValue("realm")
	clientID := r.PostForm.Get("client_id")

	switch r.PostForm.Get("grant_type") {
	case "password":
		if clientID == s.opts.AdminClientID && realm == "master" {
			s.adminLogin(w, r)
			return
		}
		if s.wrongRealm(w, r) {
			return
		}
		s.passwordGrant(w, r)
	case "refresh_token":
		if s.wrongRealm(w, r) {
			return
		}
		s.refreshGrant(w, r)
	default:
		writeJSON(w, http.StatusBadRequest, oidc.ErrorResponse{
			Error:            "unsupported_grant_type",
			ErrorDescription: "Unsupported grant_type",
		})
	}
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, OpAdminLogin) {
		return
	}
	if r.PostForm.Get("username") != s.opts.AdminUsername || r.PostForm.Get("password") != s.opts.AdminPassword {
		writeJSON(w, http.StatusUnauthorized, oidc.ErrorResponse{
			Error:            oidc.ErrorCodeInvalidGrant,
			ErrorDescription: "Invalid user credentials",
		})
		return
	}

	token := "adm-" + uuid.NewString()
	s.mu.Lock()
	s.adminTokens[token] = struct{}{}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, oidc.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   60,
	})
}

func (s *Server) passwordGrant(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, OpPasswordGrant) {
		return
	}
	if r.PostForm.Get("client_id") != s.opts.ClientID {
		writeJSON(w, http.StatusUnauthorized, oidc.ErrorResponse{
			Error:            oidc.ErrorCodeInvalidClient,
			ErrorDescription: "Invalid client or Invalid client credentials",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUserLocked(r.PostForm.Get("username"))
	if u == nil || u.Password == "" || u.Password != r.PostForm.Get("password") {
		writeJSON(w, http.StatusUnauthorized, oidc.ErrorResponse{
			Error:            oidc.ErrorCodeInvalidGrant,
			ErrorDescription: "Invalid user credentials",
		})
		return
	}

	resp, err := s.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, oidc.ErrorResponse{Error: oidc.ErrorCodeServerError})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refreshGrant(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, OpRefreshGrant) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := r.PostForm.Get("refresh_token")
	id, ok := s.refresh[old]
	u := s.users[id]
	if !ok || u == nil {
		writeJSON(w, http.StatusBadRequest, oidc.ErrorResponse{
			Error:            oidc.ErrorCodeInvalidGrant,
			ErrorDescription: "Invalid refresh token",
		})
		return
	}
	delete(s.refresh, old)

	resp, err := s.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, oidc.ErrorResponse{Error: oidc.ErrorCodeServerError})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// issueLocked mints an access token and an opaque, single-use refresh token.
func (s *Server) issueLocked(u *User) (oidc.TokenResponse, error) {
	claims := jwtx.NewAccessClaims(s.Issuer(), u.ID, u.Username, append([]string(nil), u.Roles...), s.opts.AccessTTL, s.opts.Now())
	claims.Email = u.Email
	claims.GivenName = u.FirstName
	claims.FamilyName = u.LastName

	access, err := s.signer.Sign(claims)
	if err != nil {
		return oidc.TokenResponse{}, err
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return oidc.TokenResponse{}, err
	}
	s.refresh[refresh] = u.ID

	return oidc.TokenResponse{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(s.opts.AccessTTL.Seconds()),
		RefreshExpiresIn: int(s.opts.RefreshTTL.Seconds()),
	}, nil
}

func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	_, known := s.adminTokens[token]
	s.mu.Unlock()
	if !ok || !known {
		writeJSON(w, http.StatusUnauthorized, oidc.ErrorResponse{Error: "HTTP 401 Unauthorized"})
		return false
	}
	return true
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if s.wrongRealm(w, r) || !s.begin(w, OpCreateUser) || !s.authorizeAdmin(w, r) {
		return
	}

	var rep oidc.UserRepresentation
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil || rep.Username == "" {
		writeJSON(w, http.StatusBadRequest, oidc.ErrorResponse{ErrorMessage: "invalid user representation"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, rep.Username) {
			writeJSON(w, http.StatusConflict, oidc.ErrorResponse{ErrorMessage: "User exists with same username"})
			return
		}
		if rep.Email != "" && strings.EqualFold(u.Email, rep.Email) {
			writeJSON(w, http.StatusConflict, oidc.ErrorResponse{ErrorMessage: "User exists with same email"})
			return
		}
	}

	u := &User{
		ID:        uuid.NewString(),
		Username:  rep.Username,
		Email:     rep.Email,
		FirstName: rep.FirstName,
		LastName:  rep.LastName,
		Roles:     []string{"user"},
	}
	s.users[u.ID] = u

	switch {
	case s.omitLocation:
	case s.location != "":
		w.Header().Set("Location", s.location)
	default:
		w.Header().Set("Location", s.URL+"/admin/realms/"+s.opts.Realm+"/users/"+u.ID)
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if s.wrongRealm(w, r) || !s.begin(w, OpResetPassword) || !s.authorizeAdmin(w, r) {
		return
	}

	var cred oidc.CredentialRepresentation
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil || cred.Type != "password" || cred.Value == "" {
		writeJSON(w, http.StatusBadRequest, oidc.ErrorResponse{Error: "invalid_credential"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, oidc.ErrorResponse{Error: "User not found"})
		return
	}
	u.Password = cred.Value
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if s.wrongRealm(w, r) || !s.begin(w, OpDeleteUser) || !s.authorizeAdmin(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.users[id]; !ok {
		writeJSON(w, http.StatusNotFound, oidc.ErrorResponse{Error: "User not found"})
		return
	}
	delete(s.users, id)
	for tok, owner := range s.refresh {
		if owner == id {
			delete(s.refresh, tok)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
