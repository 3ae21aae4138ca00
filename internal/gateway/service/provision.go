package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store"
	"github.com/aussiebroadwan/nearbynurse/pkg/idx"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
)

// ProvisionObserver is told the outcome of every CreateAccount call:
// "created" or a ProvisionKind.
type ProvisionObserver func(outcome string, took time.Duration)

// ProvisionService creates end-user accounts through the IdP admin API in
// three ordered steps: admin login, create user, set password. Each step
// runs only if the previous one succeeded. A failure after the user exists
// is never rolled back; the account is recorded as an orphan for an
// operator to resolve.
type ProvisionService struct {
	IdP    *oidc.Client
	Admin  oidc.AdminCredentials
	Store  store.Store
	Logger *slog.Logger

	Observe ProvisionObserver
	Orphans func(n int) // optional gauge hook, called after the ledger changes
	Now     func() time.Time
}

// CreateAccount provisions acct and returns its identity reference.
func (s *ProvisionService) CreateAccount(ctx context.Context, acct domain.Account) (id string, err error) {
	if err := validateAccount(acct); err != nil {
		return "", err
	}

	start := s.now()
	defer func() {
		outcome := "created"
		if k := KindOf(err); k != "" {
			outcome = string(k)
		}
		if s.Observe != nil {
			s.Observe(outcome, s.now().Sub(start))
		}
	}()

	log := s.logger().With("username", acct.Username)

	admin, err := s.IdP.AdminLogin(ctx, s.Admin)
	if err != nil {
		log.Error("admin login failed", "err", err)
		return "", &ProvisionError{Kind: KindAdminAuthFailed, Err: err}
	}

	id, err = admin.CreateUser(ctx, oidc.UserRepresentation{
		Username:      acct.Username,
		Email:         acct.Email,
		FirstName:     acct.FirstName,
		LastName:      acct.LastName,
		Enabled:       true,
		EmailVerified: false,
	})
	if err != nil {
		kind := createFailureKind(err)
		log.Warn("create user failed", "kind", kind, "err", err)
		return "", &ProvisionError{Kind: kind, Err: err}
	}

	if err := admin.ResetPassword(ctx, id, acct.Password); err != nil {
		log.Error("account left without credential", "identity_ref", id, "err", err)
		s.recordOrphan(ctx, acct, id, err)
		return id, &ProvisionError{Kind: KindCredentialSetFailed, IdentityRef: id, Err: err}
	}

	log.Info("account provisioned", "identity_ref", id)
	return id, nil
}

// createFailureKind separates a definite rejection from an outcome we cannot
// know. Only an error response from the IdP is definite.
func createFailureKind(err error) ProvisionKind {
	var oe *oidc.OAuth2Error
	switch {
	case errors.Is(err, oidc.ErrConflict):
		return KindDuplicateAccount
	case errors.Is(err, oidc.ErrMissingLocation):
		return KindProvisioningInconsistent
	case errors.As(err, &oe) && oe.StatusCode < 500:
		return KindAccountCreateFailed
	default:
		return KindProvisioningInconsistent
	}
}

func (s *ProvisionService) recordOrphan(ctx context.Context, acct domain.Account, identityRef string, cause error) {
	if s.Store == nil {
		return
	}
	// The request context may already be done; the ledger write must land.
	ctx = context.WithoutCancel(ctx)

	err := s.Store.Orphans().CreateOrphan(ctx, domain.Orphan{
		ID:          idx.NewAt(s.now()),
		IdentityRef: identityRef,
		Username:    acct.Username,
		Email:       acct.Email,
		Reason:      cause.Error(),
		CreatedAt:   s.now(),
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		s.logger().Error("failed to record orphan", "identity_ref", identityRef, "err", err)
		return
	}
	s.reportOrphans(ctx)
}

// ListOrphans returns accounts awaiting operator action.
func (s *ProvisionService) ListOrphans(ctx context.Context) ([]domain.Orphan, error) {
	list, err := s.Store.Orphans().ListOrphans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	return list, nil
}

// RetryCredential repeats the set-password step for an orphan. On success
// the orphan is removed from the ledger.
func (s *ProvisionService) RetryCredential(ctx context.Context, orphanID, password string) error {
	if password == "" {
		return &ValidationError{Field: "password"}
	}
	o, err := s.orphan(ctx, orphanID)
	if err != nil {
		return err
	}

	admin, err := s.IdP.AdminLogin(ctx, s.Admin)
	if err != nil {
		return &ProvisionError{Kind: KindAdminAuthFailed, IdentityRef: o.IdentityRef, Err: err}
	}

	if err := admin.ResetPassword(ctx, o.IdentityRef, password); err != nil {
		if rerr := s.Store.Orphans().RecordAttempt(context.WithoutCancel(ctx), orphanID, err.Error()); rerr != nil {
			s.logger().Warn("failed to record retry attempt", "orphan_id", orphanID, "err", rerr)
		}
		return &ProvisionError{Kind: KindCredentialSetFailed, IdentityRef: o.IdentityRef, Err: err}
	}

	return s.resolve(ctx, o, "credential set")
}

// DeleteOrphan removes the orphaned account from the IdP and then from the
// ledger.
func (s *ProvisionService) DeleteOrphan(ctx context.Context, orphanID string) error {
	o, err := s.orphan(ctx, orphanID)
	if err != nil {
		return err
	}

	admin, err := s.IdP.AdminLogin(ctx, s.Admin)
	if err != nil {
		return &ProvisionError{Kind: KindAdminAuthFailed, IdentityRef: o.IdentityRef, Err: err}
	}
	if err := admin.DeleteUser(ctx, o.IdentityRef); err != nil {
		return &ProvisionError{Kind: KindProvisioningInconsistent, IdentityRef: o.IdentityRef, Err: err}
	}

	return s.resolve(ctx, o, "account deleted")
}

func (s *ProvisionService) orphan(ctx context.Context, id string) (domain.Orphan, error) {
	if _, err := idx.Parse(id); err != nil {
		return domain.Orphan{}, ErrOrphanNotFound
	}
	o, err := s.Store.Orphans().GetOrphan(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Orphan{}, ErrOrphanNotFound
	}
	if err != nil {
		return domain.Orphan{}, fmt.Errorf("load orphan: %w", err)
	}
	return o, nil
}

func (s *ProvisionService) resolve(ctx context.Context, o domain.Orphan, how string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.Store.Orphans().DeleteOrphan(ctx, o.ID.String()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("resolve orphan: %w", err)
	}
	s.logger().Info("orphan resolved", "orphan_id", o.ID, "identity_ref", o.IdentityRef, "resolution", how)
	s.reportOrphans(ctx)
	return nil
}

func (s *ProvisionService) reportOrphans(ctx context.Context) {
	if s.Orphans == nil || s.Store == nil {
		return
	}
	n, err := s.Store.Orphans().CountOrphans(ctx)
	if err != nil {
		s.logger().Warn("failed to count orphans", "err", err)
		return
	}
	s.Orphans(n)
}

func (s *ProvisionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ProvisionService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func validateAccount(a domain.Account) error {
	switch {
	case strings.TrimSpace(a.Username) == "":
		return &ValidationError{Field: "username"}
	case strings.TrimSpace(a.Email) == "":
		return &ValidationError{Field: "email"}
	case a.Password == "":
		return &ValidationError{Field: "password"}
	}
	return nil
}
