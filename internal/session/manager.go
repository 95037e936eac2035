package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gatekeep/internal/gateway"
	"gatekeep/internal/store"
	"gatekeep/pkg/logging"
)

// DefaultStorageTimeout bounds every credential store access made by the
// Manager, so a backend whose Ready never returns cannot hang a caller.
const DefaultStorageTimeout = 10 * time.Second

// ErrRedirectInProgress is returned when the session could not be confirmed
// in-process and a redirect to the identity provider has been issued. It is
// a control-flow outcome: the result arrives through ResumeFromCallback in
// the next run of the application.
var ErrRedirectInProgress = errors.New("redirect to identity provider in progress")

// CredentialStore is the part of store.Store the Manager needs.
type CredentialStore interface {
	Load(ctx context.Context) (store.Record, error)
	Save(ctx context.Context, rec store.Record) error
	Clear(ctx context.Context) error
}

// Gateway is the part of gateway.Gateway the Manager needs.
type Gateway interface {
	BeginLogin(ctx context.Context) error
	ParseCallback(ctx context.Context, loc gateway.Location) (store.Record, error)
}

// Status is a snapshot of the session as last evaluated.
type Status struct {
	State     State
	ExpiresAt time.Time
	// IDToken is the stored identity token, for display of its claims.
	IDToken string
}

// Manager owns the authentication state machine. It is the only writer of
// the Credential Record. All methods are safe for concurrent use.
type Manager struct {
	store          CredentialStore
	gateway        Gateway
	now            func() time.Time
	storageTimeout time.Duration

	// flight collapses concurrent checks and redirects so that at most one
	// authentication attempt is outstanding per process.
	flight singleflight.Group

	mu             sync.RWMutex
	state          State
	expiresAt      time.Time
	redirectIssued bool
	// distrustStore is set when a logout could not remove the stored record;
	// the leftover record is ignored until a new one is saved.
	distrustStore bool
	lastErr       error

	subsMu sync.Mutex
	subs   map[int]chan State
	nextID int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithStorageTimeout overrides DefaultStorageTimeout. Zero disables the bound.
func WithStorageTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.storageTimeout = d
	}
}

// NewManager creates a Manager in StateUnknown.
func NewManager(credentials CredentialStore, gw Gateway, opts ...Option) *Manager {
	m := &Manager{
		store:          credentials,
		gateway:        gw,
		now:            time.Now,
		storageTimeout: DefaultStorageTimeout,
		state:          StateUnknown,
		subs:           make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether the last evaluation found a valid session.
// It is derived from State and never stored separately.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// lastError returns the error of the last failed transition, if any.
func (m *Manager) lastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Subscribe returns a channel receiving every subsequent state. The channel
// holds at most one pending value; a slow reader sees the latest state
// rather than a backlog. Call cancel to unsubscribe.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
	return ch, cancel
}

// ResumeFromCallback must be the first call a freshly started application
// makes. When loc carries a callback fragment it is parsed, the credentials
// are persisted and the Manager becomes Authenticated. resumed is false when
// there was no fragment to process.
func (m *Manager) ResumeFromCallback(ctx context.Context, loc gateway.Location) (resumed bool, err error) {
	if gateway.NormalizeFragment(loc.Fragment()) == "" {
		return false, nil
	}

	logging.Debug("Session", "Processing identity provider callback")
	rec, err := m.gateway.ParseCallback(ctx, loc)
	if err != nil {
		m.fail(StateUnauthenticated, err)
		logging.Warn("Session", "Authentication callback rejected: %v", err)
		return true, err
	}

	sctx, cancel := m.storageContext(ctx)
	defer cancel()
	if err := m.store.Save(sctx, rec); err != nil {
		err = fmt.Errorf("failed to persist credentials: %w", err)
		m.fail(StateUnauthenticated, err)
		logging.Error("Session", err, "Authentication succeeded but credentials could not be stored")
		return true, err
	}

	m.mu.Lock()
	m.distrustStore = false
	m.redirectIssued = false
	m.expiresAt = rec.Expiry()
	m.lastErr = nil
	m.mu.Unlock()
	m.setState(StateAuthenticated)

	logging.Info("Session", "Authenticated, session valid until %s", rec.Expiry().Format(time.RFC3339))
	return true, nil
}

// CheckAuthentication returns nil when a valid session exists. Otherwise it
// issues a redirect to the provider and returns ErrRedirectInProgress; any
// other error means the redirect itself could not be issued.
//
// Storage failures are treated as "no valid session". Concurrent callers
// share one evaluation and at most one redirect. If a redirect was already
// issued by this Manager, no second one is started.
func (m *Manager) CheckAuthentication(ctx context.Context) error {
	_, err, shared := m.flight.Do("check", func() (interface{}, error) {
		return nil, m.checkAuthentication(ctx)
	})
	if shared {
		logging.Debug("Session", "Joined in-flight authentication check")
	}
	return err
}

func (m *Manager) checkAuthentication(ctx context.Context) error {
	status, err := m.evaluate(ctx)
	if err == nil && status.State == StateAuthenticated {
		return nil
	}

	m.mu.RLock()
	alreadyRedirected := m.redirectIssued
	m.mu.RUnlock()
	if alreadyRedirected {
		m.setState(StateAuthenticating)
		return ErrRedirectInProgress
	}

	return m.redirect(ctx)
}

// Login issues a redirect to the provider regardless of the stored record.
// It returns nil once the redirect has been issued.
func (m *Manager) Login(ctx context.Context) error {
	err := m.redirect(ctx)
	if errors.Is(err, ErrRedirectInProgress) {
		return nil
	}
	return err
}

// Logout removes the stored record and moves to StateUnauthenticated. The
// state flips only after the removal was attempted. If removal failed the
// error is returned, but the leftover record is still ignored by this
// Manager, so a following CheckAuthentication behaves like a cold start.
func (m *Manager) Logout(ctx context.Context) error {
	sctx, cancel := m.storageContext(ctx)
	defer cancel()
	clearErr := m.store.Clear(sctx)

	m.mu.Lock()
	m.distrustStore = clearErr != nil
	m.redirectIssued = false
	m.expiresAt = time.Time{}
	m.lastErr = clearErr
	m.mu.Unlock()
	m.setState(StateUnauthenticated)

	if clearErr != nil {
		logging.Warn("Session", "Logged out, but stored credentials could not be removed: %v", clearErr)
		return fmt.Errorf("logged out but credentials may remain in storage: %w", clearErr)
	}
	logging.Info("Session", "Logged out")
	return nil
}

// Evaluate re-reads the stored record and updates the state without ever
// redirecting. Storage failures yield StateUnauthenticated and are returned.
func (m *Manager) Evaluate(ctx context.Context) (Status, error) {
	return m.evaluate(ctx)
}

func (m *Manager) evaluate(ctx context.Context) (Status, error) {
	m.mu.RLock()
	distrust := m.distrustStore
	m.mu.RUnlock()

	if distrust {
		m.setState(StateUnauthenticated)
		return Status{State: StateUnauthenticated}, nil
	}

	sctx, cancel := m.storageContext(ctx)
	defer cancel()
	rec, err := m.store.Load(sctx)

	switch {
	case err == nil && rec.ValidAt(m.now()):
		m.mu.Lock()
		m.expiresAt = rec.Expiry()
		m.mu.Unlock()
		m.setState(StateAuthenticated)
		logging.Debug("Session", "Stored session valid until %s", rec.Expiry().Format(time.RFC3339))
		return Status{State: StateAuthenticated, ExpiresAt: rec.Expiry(), IDToken: rec.IDToken}, nil

	case err == nil:
		m.mu.Lock()
		m.expiresAt = rec.Expiry()
		m.mu.Unlock()
		m.setState(StateExpired)
		logging.Info("Session", "Stored session expired at %s", rec.Expiry().Format(time.RFC3339))
		return Status{State: StateExpired, ExpiresAt: rec.Expiry(), IDToken: rec.IDToken}, nil

	case errors.Is(err, store.ErrNoRecord):
		m.setState(StateUnauthenticated)
		logging.Debug("Session", "No stored session")
		return Status{State: StateUnauthenticated}, nil

	default:
		m.fail(StateUnauthenticated, err)
		logging.Warn("Session", "Credential storage unavailable, treating as no session: %v", err)
		return Status{State: StateUnauthenticated}, err
	}
}

// redirect moves to StateAuthenticating and asks the gateway to redirect.
// Concurrent redirects collapse into one.
func (m *Manager) redirect(ctx context.Context) error {
	_, err, _ := m.flight.Do("redirect", func() (interface{}, error) {
		m.setState(StateAuthenticating)
		if err := m.gateway.BeginLogin(ctx); err != nil {
			err = fmt.Errorf("failed to begin login: %w", err)
			m.fail(StateUnauthenticated, err)
			return nil, err
		}

		m.mu.Lock()
		m.redirectIssued = true
		m.mu.Unlock()
		return nil, ErrRedirectInProgress
	})
	return err
}

// ExpiresAt returns the expiry of the last record seen, or the zero time.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expiresAt
}

func (m *Manager) fail(state State, err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.setState(state)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		logging.Debug("Session", "State %s -> %s", prev, s)
	}

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			// Replace the stale pending value with the latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (m *Manager) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.storageTimeout)
}
