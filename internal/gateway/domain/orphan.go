package domain

import (
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/idx"
)

// Orphan is an IdP account that was created during registration but never
// received a password. It stays in the ledger until an operator either
// retries the credential step or deletes the account.
type Orphan struct {
	ID          idx.ID
	IdentityRef string // IdP user id, last segment of the Location header
	Username    string
	Email       string
	Reason      string // upstream error from the failed credential step
	Attempts    int    // credential retries made by operators
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
