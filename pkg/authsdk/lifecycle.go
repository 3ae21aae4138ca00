package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
)

// State is where a Manager is in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Defaults for ManagerConfig.
const (
	DefaultCheckInterval    = 60 * time.Second
	DefaultRefreshThreshold = 70 * time.Second
	DefaultRefreshTimeout   = 10 * time.Second
)

// Authenticator is the part of the gateway API a Manager needs. *Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// ManagerConfig configures a Manager. Auth and Store are required.
type ManagerConfig struct {
	Auth  Authenticator
	Store Store

	// Interval is how often the access token's remaining lifetime is checked.
	Interval time.Duration
	// Threshold triggers a refresh when the remaining lifetime drops below it.
	Threshold time.Duration
	// RefreshTimeout bounds a single refresh call.
	RefreshTimeout time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

// LogoutFunc is called after the manager drops its credentials. reason is
// nil for an explicit Logout and wraps ErrRefreshFailed otherwise.
type LogoutFunc func(reason error)

// Manager keeps a client's credentials fresh. It refreshes the access token
// shortly before expiry, persists both tokens together, and drops to
// Unauthenticated the moment a refresh fails.
//
// State transitions are serialized by mu. A refresh runs its network call
// without holding mu; a Login or Logout that lands meanwhile bumps epoch and
// the refresh result is discarded.
type Manager struct {
	cfg ManagerConfig
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	creds     Credentials
	epoch     uint64
	stop      chan struct{}
	done      chan struct{}
	listeners []LogoutFunc
	closed    bool

	refreshing atomic.Bool
}

// NewManager creates a manager in the Unauthenticated state.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Auth == nil {
		return nil, errors.New("authsdk: ManagerConfig.Auth is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("authsdk: ManagerConfig.Store is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCheckInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultRefreshThreshold
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		log:    log.With("component", "authsdk.Manager"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnLogout registers fn to run after every transition to Unauthenticated.
// Listeners run on the goroutine that caused the transition, without the
// manager's lock held.
func (m *Manager) OnLogout(fn LogoutFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Restore resumes a session from the store, if one is there.
func (m *Manager) Restore(ctx context.Context) error {
	creds, err := m.cfg.Store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return m.cfg.Store.Clear(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.enterAuthenticatedLocked(creds)
	return nil
}

// Login authenticates with the gateway and starts the refresh timer.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.cfg.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.SetCredentials(ctx, credentialsFrom(resp, m.cfg.Now()))
}

// SetCredentials installs a token pair obtained elsewhere.
func (m *Manager) SetCredentials(ctx context.Context, creds Credentials) error {
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return errors.New("authsdk: credentials need both tokens")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.cfg.Store.Save(ctx, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	m.enterAuthenticatedLocked(creds)
	return nil
}

// Logout drops the credentials from any state. It always succeeds in
// leaving the manager Unauthenticated; a store error is returned but does
// not stop the transition.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.enterUnauthenticatedLocked(ctx)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, nil)
	return err
}

// AccessToken returns the current access token.
func (m *Manager) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUnauthenticated {
		return "", ErrNotAuthenticated
	}
	return m.creds.AccessToken, nil
}

// Claims decodes the current access token without verifying it.
func (m *Manager) Claims() (*jwtx.Claims, error) {
	tok, err := m.AccessToken()
	if err != nil {
		return nil, err
	}
	return jwtx.UnverifiedClaims(tok)
}

// HasRole reports whether the current access token carries role. It is a
// display hint; the gateway makes the real decision.
func (m *Manager) HasRole(role string) bool {
	c, err := m.Claims()
	return err == nil && c.HasRole(role)
}

// HasAnyRole reports whether the current access token carries any of roles.
func (m *Manager) HasAnyRole(roles ...string) bool {
	c, err := m.Claims()
	if err != nil {
		return false
	}
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// CheckNow runs one lifetime check, refreshing if needed. The timer calls
// it every Interval. A check that would overlap a running refresh is
// skipped and returns nil.
func (m *Manager) CheckNow(ctx context.Context) error {
	if !m.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.refreshing.Store(false)

	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	creds := m.creds
	epoch := m.epoch
	now := m.cfg.Now()

	exp, err := jwtx.UnverifiedExpiry(creds.AccessToken)
	if err == nil && exp.Sub(now) >= m.cfg.Threshold {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.log.Debug("stored access token unreadable, treating as expired", "err", err)
	}
	m.state = StateRefreshing
	m.mu.Unlock()

	resp, refreshErr := m.refresh(ctx, creds.RefreshToken)

	m.mu.Lock()
	if m.epoch != epoch {
		// Login, Logout or Close happened while we were out.
		m.mu.Unlock()
		return nil
	}

	if refreshErr == nil {
		next := credentialsFrom(resp, m.cfg.Now())
		if err := m.cfg.Store.Save(ctx, next); err != nil {
			refreshErr = fmt.Errorf("save credentials: %w", err)
		} else {
			m.creds = next
			m.state = StateAuthenticated
			m.mu.Unlock()
			m.log.Debug("access token refreshed", "expires_at", next.ExpiresAt)
			return nil
		}
	}

	reason := fmt.Errorf("%w: %w", ErrRefreshFailed, refreshErr)
	if err := m.enterUnauthenticatedLocked(ctx); err != nil {
		m.log.Warn("clearing credentials after failed refresh", "err", err)
	}
	listeners := m.listenersLocked()
	m.mu.Unlock()

	m.log.Info("session ended", "reason", reason)
	notify(listeners, reason)
	return reason
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RefreshTimeout)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	resp, err := m.cfg.Auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, errors.New("refresh response is missing a token")
	}
	return resp, nil
}

// Close stops the timer and cancels any refresh in flight. Stored
// credentials are left alone so a later Restore can resume.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.epoch++
	done := m.stopTimerLocked()
	m.mu.Unlock()

	m.cancel()
	if done != nil {
		<-done
	}
	return nil
}

func (m *Manager) enterAuthenticatedLocked(creds Credentials) {
	m.epoch++
	m.creds = creds
	m.state = StateAuthenticated
	m.startTimerLocked()
}

func (m *Manager) enterUnauthenticatedLocked(ctx context.Context) error {
	m.epoch++
	m.creds = Credentials{}
	m.state = StateUnauthenticated
	m.stopTimerLocked()
	return m.cfg.Store.Clear(ctx)
}

func (m *Manager) listenersLocked() []LogoutFunc {
	return append([]LogoutFunc(nil), m.listeners...)
}

func (m *Manager) startTimerLocked() {
	if m.stop != nil || m.closed {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
}

// stopTimerLocked signals the timer goroutine and returns its done channel.
// Callers must not wait on it while holding mu.
func (m *Manager) stopTimerLocked() chan struct{} {
	if m.stop == nil {
		return nil
	}
	close(m.stop)
	done := m.done
	m.stop, m.done = nil, nil
	return done
}

func (m *Manager) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.CheckNow(m.ctx); err != nil && !errors.Is(err, ErrRefreshFailed) {
				m.log.Warn("token check failed", "err", err)
			}
		}
	}
}

func notify(listeners []LogoutFunc, reason error) {
	for _, fn := range listeners {
		fn(reason)
	}
}
