package jwtx

import (
	"context"
	"fmt"
	"time"
)

// Validator proves a bearer token came from the trusted issuer and is still
// valid, and gives back its claims.
type Validator interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Strategy selects how token signatures are verified. A deployment uses
// exactly one.
type Strategy string

const (
	// StrategyKeySet verifies RS256 signatures against the issuer's JWKS.
	StrategyKeySet Strategy = "keyset"
	// StrategySharedSecret verifies HS256 signatures with a shared secret.
	StrategySharedSecret Strategy = "shared_secret"
)

// Config selects and configures a strategy.
type Config struct {
	Strategy Strategy

	// Issuer the token must carry, compared exactly. Required for
	// StrategyKeySet; optional for StrategySharedSecret.
	Issuer string

	// Keys resolves signing keys for StrategyKeySet.
	Keys *KeySource

	// Secret is the HMAC key for StrategySharedSecret.
	Secret []byte

	// Now is the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// New returns the Validator for cfg.Strategy. Incomplete configuration does
// not fail here: the returned validator rejects every token with
// KindNotConfigured, so a misconfigured deployment fails closed.
func New(cfg Config) (Validator, error) {
	switch cfg.Strategy {
	case StrategyKeySet:
		return NewKeySetValidator(cfg.Keys, cfg.Issuer, cfg.Now), nil
	case StrategySharedSecret:
		return NewSharedSecretValidator(cfg.Secret, cfg.Issuer, cfg.Now), nil
	default:
		return nil, fmt.Errorf("jwtx: unknown strategy %q", cfg.Strategy)
	}
}
