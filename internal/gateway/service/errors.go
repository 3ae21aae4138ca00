package service

import (
	"errors"
	"fmt"
)

// ProvisionKind classifies why account provisioning stopped.
type ProvisionKind string

const (
	// KindAdminAuthFailed: the admin token could not be obtained. Nothing
	// was created.
	KindAdminAuthFailed ProvisionKind = "admin_auth_failed"
	// KindDuplicateAccount: the IdP answered 409. Nothing was created.
	KindDuplicateAccount ProvisionKind = "duplicate_account"
	// KindAccountCreateFailed: the IdP definitely rejected the new account.
	KindAccountCreateFailed ProvisionKind = "account_create_failed"
	// KindProvisioningInconsistent: the account may or may not exist, and
	// if it does we do not know its identity.
	KindProvisioningInconsistent ProvisionKind = "provisioning_inconsistent"
	// KindCredentialSetFailed: the account exists without a password.
	// IdentityRef says which one.
	KindCredentialSetFailed ProvisionKind = "credential_set_failed"
)

// ProvisionError is returned by every ProvisionService operation that fails
// upstream.
type ProvisionError struct {
	Kind        ProvisionKind
	IdentityRef string
	Err         error
}

func (e *ProvisionError) Error() string {
	msg := "provision: " + string(e.Kind)
	if e.IdentityRef != "" {
		msg += " (identity " + e.IdentityRef + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Is matches on Kind so the sentinels below work with errors.Is.
func (e *ProvisionError) Is(target error) bool {
	t, ok := target.(*ProvisionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrAdminAuthFailed          = &ProvisionError{Kind: KindAdminAuthFailed}
	ErrDuplicateAccount         = &ProvisionError{Kind: KindDuplicateAccount}
	ErrAccountCreateFailed      = &ProvisionError{Kind: KindAccountCreateFailed}
	ErrProvisioningInconsistent = &ProvisionError{Kind: KindProvisioningInconsistent}
	ErrCredentialSetFailed      = &ProvisionError{Kind: KindCredentialSetFailed}
)

// KindOf returns the ProvisionKind carried by err, or "" if it has none.
func KindOf(err error) ProvisionKind {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ValidationError reports a request the gateway refuses before calling the
// IdP.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ErrOrphanNotFound is returned by operator actions on an unknown orphan.
var ErrOrphanNotFound = errors.New("orphan not found")
