// Package auth owns the GitHub session and the API client built from it.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// ProviderID is the identity provider the manager talks to.
const ProviderID = "github"

// MessageSignedOut is shown after a successful logout.
const MessageSignedOut = "Successfully signed out from GitHub"

// RequiredScopes are requested on every lookup. They are fixed.
var RequiredScopes = []string{"repo", "read:org"}

// Logger is the subset of the application logger the manager needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, cause any, args ...any)
}

// ClientFactory builds an API client for an access token.
type ClientFactory func(ctx context.Context, token string) *github.Client

// DefaultClientFactory authenticates every request with a static bearer token.
func DefaultClientFactory(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// authenticated is the whole signed-in state. The manager holds either a
// complete value or nil; session and client are never set separately.
type authenticated struct {
	session host.AuthSession
	client  *github.Client
}

// Manager keeps the current session in step with the provider.
type Manager struct {
	provider  host.SessionProvider
	prompter  host.Prompter
	logger    Logger
	newClient ClientFactory

	mu    sync.RWMutex
	state *authenticated

	flight       singleflight.Group
	flightMu     sync.Mutex
	pending      *signIn
	generation   int
	subscription host.Disposable
}

// signIn is one shared interactive request. Its context outlives any single
// caller and is cancelled once every waiting caller has given up.
type signIn struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Manager
type Option func(*Manager)

// WithClientFactory overrides how API clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newClient = f
		}
	}
}

// NewManager creates a Manager and subscribes it to the provider's change
// events. Call Close to release the subscription.
func NewManager(provider host.SessionProvider, prompter host.Prompter, logger Logger, opts ...Option) *Manager {
	m := &Manager{
		provider:  provider,
		prompter:  prompter,
		logger:    logger,
		newClient: DefaultClientFactory,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.subscription = provider.OnDidChangeSessions(func(e host.SessionsChangeEvent) {
		if e.ProviderID != ProviderID {
			return
		}
		m.logger.Debug("GitHub sessions changed, refreshing")
		m.refresh(context.Background())
	})
	return m
}

// Close stops listening for session changes.
func (m *Manager) Close() {
	if m.subscription != nil {
		m.subscription.Dispose()
	}
}

// refresh replaces the held state with whatever the provider has now,
// without prompting.
func (m *Manager) refresh(ctx context.Context) {
	session, err := m.lookup(ctx, host.GetSessionOptions{Silent: true})
	if err != nil {
		m.logger.Error("Failed to refresh GitHub session", err)
		m.clear()
		return
	}
	if session == nil {
		m.clear()
		return
	}
	m.adopt(ctx, session)
}

// Authenticate asks the provider for a session, signing in interactively if
// needed. Concurrent callers share one request; a caller whose context ends
// stops waiting without cancelling the request for the others.
func (m *Manager) Authenticate(ctx context.Context) bool {
	req := m.join(ctx)
	ch := m.flight.DoChan(req.key, func() (any, error) {
		ok := m.authenticate(req.ctx)
		m.flightMu.Lock()
		if m.pending == req {
			m.pending = nil
		}
		m.flightMu.Unlock()
		req.cancel()
		return ok, nil
	})

	select {
	case r := <-ch:
		m.leave(req)
		return r.Val.(bool)
	case <-ctx.Done():
		m.leave(req)
		m.logger.Debug("Stopped waiting for GitHub sign-in", "reason", ctx.Err().Error())
		return false
	}
}

func (m *Manager) join(ctx context.Context) *signIn {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	if m.pending == nil {
		m.generation++
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		m.pending = &signIn{
			key:    fmt.Sprintf("authenticate/%d", m.generation),
			ctx:    flightCtx,
			cancel: cancel,
		}
	}
	m.pending.waiters++
	return m.pending
}

// leave drops a waiter. The last one out cancels the request and lets the
// next caller start a fresh one.
func (m *Manager) leave(req *signIn) {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()
	req.waiters--
	if req.waiters > 0 {
		return
	}
	req.cancel()
	if m.pending == req {
		m.pending = nil
	}
}

func (m *Manager) authenticate(ctx context.Context) bool {
	m.logger.Info("Requesting GitHub session", "scopes", RequiredScopes)

	session, err := m.lookup(ctx, host.GetSessionOptions{CreateIfNone: true})
	if err != nil {
		m.clear()
		m.logger.Error("GitHub authentication failed", err)
		return false
	}
	if session == nil {
		m.clear()
		m.logger.Warn("GitHub authentication was cancelled")
		return false
	}

	m.adopt(ctx, session)
	m.logger.Info("Authenticated with GitHub", "account", session.Account.Label, "scopes", session.Scopes)
	return true
}

// IsAuthenticated checks silently for a session. A session found while
// nothing is held is adopted.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	session, err := m.lookup(ctx, host.GetSessionOptions{Silent: true})
	if err != nil {
		m.logger.Error("Failed to check GitHub session", err)
		return false
	}
	if session == nil {
		return false
	}

	m.mu.RLock()
	held := m.state != nil
	m.mu.RUnlock()
	if !held {
		m.logger.Debug("Adopting existing GitHub session", "account", session.Account.Label)
		m.adopt(ctx, session)
	}
	return true
}

// EnsureAuthenticated returns true when a session exists or the user signs
// in. It prompts at most once.
func (m *Manager) EnsureAuthenticated(ctx context.Context) bool {
	if m.IsAuthenticated(ctx) {
		return true
	}
	return m.Authenticate(ctx)
}

// Client returns the API client for the held session, or nil.
func (m *Manager) Client() *github.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		m.logger.Warn("GitHub client requested while not authenticated")
		return nil
	}
	return m.state.client
}

// Username returns the held account label. It never contacts the provider.
func (m *Manager) Username() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		m.logger.Warn("GitHub username requested while not authenticated")
		return "", false
	}
	return m.state.session.Account.Label, true
}

// Session returns a copy of the held session without its token.
func (m *Manager) Session() (host.AuthSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return host.AuthSession{}, false
	}
	s := m.state.session
	s.AccessToken = ""
	s.Scopes = append([]string(nil), s.Scopes...)
	return s, true
}

// Logout forgets the held session. It returns false only when the
// confirmation could not be shown; the session is cleared either way.
func (m *Manager) Logout(ctx context.Context) bool {
	m.mu.Lock()
	prev := m.state
	m.state = nil
	m.mu.Unlock()

	if prev == nil {
		m.logger.Info("Logout requested but no GitHub session is held")
		return true
	}
	m.logger.Info("Signed out from GitHub", "account", prev.session.Account.Label)

	if _, err := m.prompter.Show(ctx, host.Message{Severity: host.SeverityInfo, Text: MessageSignedOut}); err != nil {
		m.logger.Error("Failed to show sign-out confirmation", err)
		return false
	}
	return true
}

// lookup asks the provider for a session and drops incomplete ones.
func (m *Manager) lookup(ctx context.Context, opts host.GetSessionOptions) (session *host.AuthSession, err error) {
	defer func() {
		if r := recover(); r != nil {
			session, err = nil, &providerPanic{value: r}
		}
	}()

	session, err = m.provider.GetSession(ctx, ProviderID, RequiredScopes, opts)
	if err != nil {
		return nil, err
	}
	if session != nil && !session.Complete() {
		m.logger.Warn("Ignoring incomplete GitHub session",
			"has_id", session.ID != "",
			"has_credential", session.AccessToken != "",
			"has_label", session.Account.Label != "")
		return nil, nil
	}
	return session, nil
}

func (m *Manager) adopt(ctx context.Context, session *host.AuthSession) {
	next := &authenticated{
		session: *session,
		client:  m.newClient(ctx, session.AccessToken),
	}
	next.session.Scopes = append([]string(nil), session.Scopes...)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()
}

type providerPanic struct {
	value any
}

func (p *providerPanic) Error() string {
	return fmt.Sprintf("session provider panicked: %v", p.value)
}
