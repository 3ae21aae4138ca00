package service_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/service"
	"github.com/aussiebroadwan/nearbynurse/internal/gateway/store/drivers/sqlite"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc"
	"github.com/aussiebroadwan/nearbynurse/pkg/oidc/oidctest"
	"github.com/aussiebroadwan/nearbynurse/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu   sync.Mutex
	seen []string
	last int
}

func (o *outcomes) observe(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, outcome)
}

func (o *outcomes) gauge(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = n
}

type fixture struct {
	idp      *oidctest.Server
	svc      *service.ProvisionService
	outcomes *outcomes
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	idp := oidctest.New(t, oidctest.Options{})
	o := &outcomes{}
	return fixture{
		idp:      idp,
		outcomes: o,
		svc: &service.ProvisionService{
			IdP:     idp.Client(),
			Admin:   idp.AdminCredentials(),
			Store:   st,
			Logger:  slogx.Discard(),
			Observe: o.observe,
			Orphans: o.gauge,
		},
	}
}

func newAccount(name string) domain.Account {
	return domain.Account{
		Username:  name,
		Email:     name + "@example.com",
		Password:  "s3cret-" + name,
		FirstName: "Sam",
		LastName:  "Nurse",
	}
}

func (f fixture) calls() [3]int {
	return [3]int{
		f.idp.Calls(oidctest.OpAdminLogin),
		f.idp.Calls(oidctest.OpCreateUser),
		f.idp.Calls(oidctest.OpResetPassword),
	}
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.svc.CreateAccount(ctx, newAccount("sam"))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, [3]int{1, 1, 1}, f.calls())

	u, ok := f.idp.User(id)
	require.True(t, ok)
	require.Equal(t, "sam", u.Username)
	require.Equal(t, "Sam", u.FirstName)

	// The new account can log in with the password it was given.
	_, err = f.idp.Client().PasswordGrant(ctx, f.idp.Realm(), f.idp.ClientID(), "sam", "s3cret-sam")
	require.NoError(t, err)
	require.Equal(t, []string{"created"}, f.outcomes.seen)
}

func TestCreateAccountValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name  string
		acct  domain.Account
		field string
	}{
		{"no username", domain.Account{Email: "a@example.com", Password: "pw"}, "username"},
		{"no email", domain.Account{Username: "a", Password: "pw"}, "email"},
		{"no password", domain.Account{Username: "a", Email: "a@example.com"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAccount(context.Background(), tt.acct)
			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
		})
	}
	require.Equal(t, [3]int{0, 0, 0}, f.calls())
}

func TestCreateAccountStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(f fixture)
		kind  service.ProvisionKind
		calls [3]int
	}{
		{
			name:  "admin login fails",
			setup: func(f fixture) { f.idp.Fail(oidctest.OpAdminLogin, http.StatusUnauthorized) },
			kind:  service.KindAdminAuthFailed,
			calls: [3]int{1, 0, 0},
		},
		{
			name:  "duplicate account",
			setup: func(f fixture) { f.idp.AddUser("sam", "pw") },
			kind:  service.KindDuplicateAccount,
			calls: [3]int{1, 1, 0},
		},
		{
			name:  "create rejected",
			setup: func(f fixture) { f.idp.Fail(oidctest.OpCreateUser, http.StatusBadRequest) },
			kind:  service.KindAccountCreateFailed,
			calls: [3]int{1, 1, 0},
		},
		{
			name:  "create outcome unknown",
			setup: func(f fixture) { f.idp.Fail(oidctest.OpCreateUser, http.StatusInternalServerError) },
			kind:  service.KindProvisioningInconsistent,
			calls: [3]int{1, 1, 0},
		},
		{
			name:  "created without location",
			setup: func(f fixture) { f.idp.OmitLocation(true) },
			kind:  service.KindProvisioningInconsistent,
			calls: [3]int{1, 1, 0},
		},
		{
			name: "location names the users collection",
			setup: func(f fixture) {
				f.idp.OverrideLocation(f.idp.URL + "/admin/realms/" + f.idp.Client().Realm + "/users")
			},
			kind:  service.KindProvisioningInconsistent,
			calls: [3]int{1, 1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			tt.setup(f)

			id, err := f.svc.CreateAccount(context.Background(), newAccount("sam"))
			require.Error(t, err)
			require.Empty(t, id)
			require.Equal(t, tt.kind, service.KindOf(err))
			require.Equal(t, tt.calls, f.calls())
			require.Equal(t, []string{string(tt.kind)}, f.outcomes.seen)

			orphans, err := f.svc.ListOrphans(context.Background())
			require.NoError(t, err)
			require.Empty(t, orphans)
		})
	}
}

func TestCredentialSetFailureRecordsOrphan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.idp.Fail(oidctest.OpResetPassword, http.StatusInternalServerError)

	id, err := f.svc.CreateAccount(ctx, newAccount("sam"))
	require.ErrorIs(t, err, service.ErrCredentialSetFailed)

	var pe *service.ProvisionError
	require.True(t, errors.As(err, &pe))
	require.NotEmpty(t, pe.IdentityRef)
	require.Equal(t, id, pe.IdentityRef)

	// Exactly one attempt at each step; nothing was rolled back.
	require.Equal(t, [3]int{1, 1, 1}, f.calls())
	require.Zero(t, f.idp.Calls(oidctest.OpDeleteUser))
	_, exists := f.idp.User(id)
	require.True(t, exists)

	orphans, err := f.svc.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, id, orphans[0].IdentityRef)
	require.Equal(t, "sam", orphans[0].Username)
	require.Contains(t, orphans[0].Reason, "injected failure")
	require.Equal(t, 1, f.outcomes.last)

	t.Run("retry fails again", func(t *testing.T) {
		err := f.svc.RetryCredential(ctx, orphans[0].ID.String(), "new-pw")
		require.ErrorIs(t, err, service.ErrCredentialSetFailed)

		list, err := f.svc.ListOrphans(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, list[0].Attempts)
	})

	t.Run("retry succeeds", func(t *testing.T) {
		f.idp.Heal(oidctest.OpResetPassword)
		require.NoError(t, f.svc.RetryCredential(ctx, orphans[0].ID.String(), "new-pw"))

		_, err := f.idp.Client().PasswordGrant(ctx, f.idp.Realm(), f.idp.ClientID(), "sam", "new-pw")
		require.NoError(t, err)

		list, err := f.svc.ListOrphans(ctx)
		require.NoError(t, err)
		require.Empty(t, list)
		require.Zero(t, f.outcomes.last)
	})

	t.Run("unknown orphan", func(t *testing.T) {
		require.ErrorIs(t, f.svc.RetryCredential(ctx, orphans[0].ID.String(), "pw"), service.ErrOrphanNotFound)
		require.ErrorIs(t, f.svc.DeleteOrphan(ctx, "nope"), service.ErrOrphanNotFound)
	})
}

func TestDeleteOrphan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.idp.Fail(oidctest.OpResetPassword, http.StatusServiceUnavailable)

	id, err := f.svc.CreateAccount(ctx, newAccount("jo"))
	require.ErrorIs(t, err, service.ErrCredentialSetFailed)

	orphans, err := f.svc.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	t.Run("admin login fails", func(t *testing.T) {
		f.idp.Fail(oidctest.OpAdminLogin, http.StatusUnauthorized)
		t.Cleanup(func() { f.idp.Heal(oidctest.OpAdminLogin) })

		err := f.svc.DeleteOrphan(ctx, orphans[0].ID.String())
		require.ErrorIs(t, err, service.ErrAdminAuthFailed)
		_, exists := f.idp.User(id)
		require.True(t, exists)
	})

	t.Run("deleted", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteOrphan(ctx, orphans[0].ID.String()))
		_, exists := f.idp.User(id)
		require.False(t, exists)

		list, err := f.svc.ListOrphans(ctx)
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestProvisionErrorMessage(t *testing.T) {
	t.Parallel()

	err := &service.ProvisionError{
		Kind:        service.KindCredentialSetFailed,
		IdentityRef: "abc",
		Err:         oidc.NewOAuth2Error(http.StatusInternalServerError, oidc.ErrorCodeServerError, "boom"),
	}
	require.Equal(t, "provision: credential_set_failed (identity abc): server_error: boom", err.Error())
	require.True(t, oidc.IsStatus(err, http.StatusInternalServerError))
	require.Empty(t, service.KindOf(errors.New("plain")))
}
