// Package redisstore persists authsdk credentials in Redis, optionally
// sealed with a cryptox.Sealer.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/authsdk"
	"github.com/aussiebroadwan/nearbynurse/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nn:creds"

// ErrUnavailable wraps Redis transport failures.
var ErrUnavailable = errors.New("redisstore: redis unavailable")

// Options configure a Store.
type Options struct {
	// Session distinguishes credential pairs sharing one Redis; defaults to
	// "default".
	Session string
	// TTL expires stored credentials; zero keeps them until Clear.
	TTL time.Duration
	// Sealer, when set, encrypts values at rest. The Redis key is bound as
	// associated data so a value cannot be replayed under another key.
	Sealer *cryptox.Sealer
}

// Store implements authsdk.Store. The pair is one Redis value, so a Save
// replaces both tokens atomically.
type Store struct {
	rdb    redis.UniversalClient
	key    string
	ttl    time.Duration
	sealer *cryptox.Sealer
}

var _ authsdk.Store = (*Store)(nil)

// New creates a Store.
func New(rdb redis.UniversalClient, opts Options) *Store {
	session := opts.Session
	if session == "" {
		session = "default"
	}
	return &Store{
		rdb:    rdb,
		key:    keyPrefix + ":" + session,
		ttl:    opts.TTL,
		sealer: opts.Sealer,
	}
}

// Key is the Redis key holding the credentials.
func (s *Store) Key() string { return s.key }

func (s *Store) Load(ctx context.Context) (authsdk.Credentials, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return authsdk.Credentials{}, authsdk.ErrNoCredentials
	}
	if err != nil {
		return authsdk.Credentials{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.sealer != nil {
		if raw, err = s.sealer.Open(raw, []byte(s.key)); err != nil {
			return authsdk.Credentials{}, fmt.Errorf("redisstore: open credentials: %w", err)
		}
	}

	var c authsdk.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return authsdk.Credentials{}, fmt.Errorf("redisstore: decode credentials: %w", err)
	}
	return c, nil
}

func (s *Store) Save(ctx context.Context, c authsdk.Credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redisstore: encode credentials: %w", err)
	}
	if s.sealer != nil {
		if raw, err = s.sealer.Seal(raw, []byte(s.key)); err != nil {
			return fmt.Errorf("redisstore: seal credentials: %w", err)
		}
	}
	if err := s.rdb.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
