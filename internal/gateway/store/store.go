package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/nearbynurse/internal/gateway/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so a Tx cannot open another Tx.
type Store interface {
	Orphans() Orphans

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Orphans is the ledger of accounts left without a credential.
type Orphans interface {
	// CreateOrphan records a new orphan. Recording the same identity twice
	// returns ErrAlreadyExists.
	CreateOrphan(ctx context.Context, o domain.Orphan) error

	GetOrphan(ctx context.Context, id string) (domain.Orphan, error)

	// ListOrphans returns every orphan, oldest first.
	ListOrphans(ctx context.Context) ([]domain.Orphan, error)

	// RecordAttempt bumps the attempt counter and stores the latest failure.
	RecordAttempt(ctx context.Context, id, reason string) error

	DeleteOrphan(ctx context.Context, id string) error

	CountOrphans(ctx context.Context) (int, error)
}
