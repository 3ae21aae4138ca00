package jwtx_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://idp.example.test/realms/master"

func newRSASigner(t *testing.T, kid string) *jwtx.RS256Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtx.NewSignerRS256FromKey(kid, key)
}

// fakeFetcher serves a fixed JWKS and counts calls. If gate is non-nil every
// call blocks until it is closed.
type fakeFetcher struct {
	mu    sync.Mutex
	jwks  jwtx.JWKS
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeFetcher) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jwks, f.err
}

func (f *fakeFetcher) set(jwks jwtx.JWKS, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jwks, f.err = jwks, err
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// rawToken assembles a compact JWS from arbitrary header and payload values
// with a junk signature. Used for structurally odd tokens no library would mint.
func rawToken(t *testing.T, header, payload any) string {
	t.Helper()
	hb, err := json.Marshal(header)
	require.NoError(t, err)
	pb, err := json.Marshal(payload)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(hb) + "." + enc.EncodeToString(pb) + "." + enc.EncodeToString([]byte("sig"))
}
