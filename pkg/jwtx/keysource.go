package jwtx

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchesPerMinute caps upstream key-set fetches per rolling minute.
const DefaultFetchesPerMinute = 3

// KeyFetcher retrieves the issuer's current key set.
type KeyFetcher interface {
	FetchJWKS(ctx context.Context) (JWKS, error)
}

// KeyFetcherFunc adapts a function to KeyFetcher.
type KeyFetcherFunc func(ctx context.Context) (JWKS, error)

func (f KeyFetcherFunc) FetchJWKS(ctx context.Context) (JWKS, error) { return f(ctx) }

// FetchObserver is notified after every upstream fetch attempt. result is
// one of "ok", "error" or "rate_limited".
type FetchObserver func(result string)

// KeySourceConfig configures a KeySource.
type KeySourceConfig struct {
	Fetcher KeyFetcher

	// FetchesPerMinute bounds upstream fetches in any rolling 60s window.
	// Zero means DefaultFetchesPerMinute.
	FetchesPerMinute int

	// Now is the clock, for tests. Defaults to time.Now.
	Now func() time.Time

	// Observe, if set, is called after each fetch attempt.
	Observe FetchObserver
}

// KeySource caches the issuer's signing keys by kid and refills the cache on
// a miss. Cached keys never expire on their own; a successful refill replaces
// the cached set with what the issuer currently publishes.
//
// Reads take the read lock only. A refill holds the write lock just long
// enough to swap the map, so hits never wait on the network.
type KeySource struct {
	fetcher KeyFetcher
	limit   int
	window  time.Duration
	now     func() time.Time
	observe FetchObserver
	tracer  trace.Tracer

	mu   sync.RWMutex
	keys map[string]SigningKey

	// gen counts completed fetch attempts; lastErr is the outcome of the
	// most recent one. A caller that missed at generation g and finds gen > g
	// when its turn comes reuses that outcome instead of fetching again.
	gen     uint64
	lastErr error

	limMu   sync.Mutex
	fetches []time.Time

	group singleflight.Group
}

// NewKeySource returns a KeySource. A nil Fetcher yields a source whose every
// miss fails with KindNotConfigured.
func NewKeySource(cfg KeySourceConfig) *KeySource {
	limit := cfg.FetchesPerMinute
	if limit <= 0 {
		limit = DefaultFetchesPerMinute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &KeySource{
		fetcher: cfg.Fetcher,
		limit:   limit,
		window:  time.Minute,
		now:     now,
		observe: cfg.Observe,
		tracer:  otel.Tracer(tracerName),
		keys:    make(map[string]SigningKey),
	}
}

// Key resolves kid to a signing key, refilling the cache from the issuer on
// a miss. Concurrent misses share one upstream fetch.
func (s *KeySource) Key(ctx context.Context, kid string) (SigningKey, error) {
	s.mu.RLock()
	k, ok := s.keys[kid]
	missedAt := s.gen
	s.mu.RUnlock()
	if ok {
		return k, nil
	}

	if s.fetcher == nil {
		return SigningKey{}, newError(KindNotConfigured, "no key fetcher", nil)
	}

	if err := s.refill(ctx, missedAt); err != nil {
		return SigningKey{}, err
	}

	s.mu.RLock()
	k, ok = s.keys[kid]
	s.mu.RUnlock()
	if !ok {
		return SigningKey{}, ErrKeyNotFound
	}
	return k, nil
}

// Ready reports whether at least one key is cached.
func (s *KeySource) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys) > 0
}

// Prime fetches the key set once, typically at startup. It is subject to the
// same rate limit as a miss.
func (s *KeySource) Prime(ctx context.Context) error {
	if s.fetcher == nil {
		return newError(KindNotConfigured, "no key fetcher", nil)
	}
	s.mu.RLock()
	g := s.gen
	s.mu.RUnlock()
	return s.refill(ctx, g)
}

func (s *KeySource) refill(ctx context.Context, missedAt uint64) error {
	// The winning caller's cancellation must not fail the others sharing the
	// flight; the fetcher's own HTTP timeout bounds the call.
	fetchCtx := context.WithoutCancel(ctx)

	_, err, _ := s.group.Do("jwks", func() (any, error) {
		s.mu.RLock()
		gen, lastErr := s.gen, s.lastErr
		s.mu.RUnlock()
		if gen != missedAt {
			return nil, lastErr
		}
		return nil, s.fetch(fetchCtx)
	})
	return err
}

func (s *KeySource) fetch(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, s.tracer, "jwtx.KeySource.fetch")
	defer func() {
		finishSpan(span, err)
		span.End()
	}()

	if !s.allowFetch() {
		s.notify("rate_limited")
		// Not recorded as a completed attempt: nothing reached the issuer.
		return newErrorf(KindRateLimited, "more than %d key fetches in %s", s.limit, s.window)
	}

	jwks, ferr := s.fetcher.FetchJWKS(ctx)
	var keys map[string]SigningKey
	if ferr == nil {
		keys, ferr = jwks.signingKeys()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if ferr != nil {
		s.lastErr = newError(KindKeySourceUnavailable, "fetch key set", ferr)
		s.notify("error")
		return s.lastErr
	}
	s.keys = keys
	s.lastErr = nil
	span.SetAttributes(attribute.Int("jwks.keys", len(keys)))
	s.notify("ok")
	return nil
}

// allowFetch applies a strict rolling-window limit: at most s.limit fetch
// starts in any s.window interval. It records the fetch when allowed.
func (s *KeySource) allowFetch() bool {
	s.limMu.Lock()
	defer s.limMu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)
	kept := s.fetches[:0]
	for _, t := range s.fetches {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.fetches = kept

	if len(s.fetches) >= s.limit {
		return false
	}
	s.fetches = append(s.fetches, now)
	return true
}

func (s *KeySource) notify(result string) {
	if s.observe != nil {
		s.observe(result)
	}
}
