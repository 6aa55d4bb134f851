package ghauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// ProviderID is the only provider this package serves.
const ProviderID = "github"

// DeviceCodePresenter shows the one-time code to the user while the
// device flow waits for approval.
type DeviceCodePresenter interface {
	PresentDeviceCode(ctx context.Context, code *oauth2.DeviceAuthResponse) error
}

// ClientFactory builds an API client for an access token.
type ClientFactory func(ctx context.Context, token string) *github.Client

// Provider implements host.SessionProvider for GitHub.
type Provider struct {
	store     *Store
	clientID  string
	endpoint  oauth2.Endpoint
	presenter DeviceCodePresenter
	newClient ClientFactory
	logger    *slog.Logger
	now       func() time.Time

	changes host.Emitter[host.SessionsChangeEvent]
}

// Option configures a Provider
type Option func(*Provider)

// WithEndpoint overrides the OAuth endpoints.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.endpoint = e
	}
}

// WithClientFactory overrides how API clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Provider) {
		p.newClient = f
	}
}

// WithLogger sets the logger for device flow progress.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// NewProvider creates a Provider. clientID names the GitHub OAuth app used
// for the device flow; it is only needed to create sessions.
func NewProvider(store *Store, clientID string, presenter DeviceCodePresenter, opts ...Option) *Provider {
	endpoint := endpoints.GitHub
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	p := &Provider{
		store:     store,
		clientID:  clientID,
		endpoint:  endpoint,
		presenter: presenter,
		newClient: defaultClient,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func defaultClient(ctx context.Context, token string) *github.Client {
	return github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
}

// GetSession implements host.SessionProvider.
func (p *Provider) GetSession(ctx context.Context, providerID string, scopes []string, opts host.GetSessionOptions) (*host.AuthSession, error) {
	if providerID != ProviderID {
		return nil, bridgeerrors.NewUnsupportedProviderError(providerID)
	}

	rec, err := p.store.Get(providerID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		session := rec.Session()
		if session.HasScopes(scopes) {
			return session, nil
		}
		p.logger.Debug("stored session lacks requested scopes", "granted", rec.Scopes, "requested", scopes)
	}

	if !opts.Interactive() {
		return nil, nil
	}
	return p.signIn(ctx, scopes)
}

// OnDidChangeSessions implements host.SessionProvider.
func (p *Provider) OnDidChangeSessions(fn func(host.SessionsChangeEvent)) host.Disposable {
	return p.changes.Subscribe(fn)
}

// StoredAccount returns the account label of the stored session, whether
// or not its scopes cover a request.
func (p *Provider) StoredAccount() (string, bool, error) {
	rec, err := p.store.Get(ProviderID)
	if err != nil || rec == nil {
		return "", false, err
	}
	return rec.Account.Label, true, nil
}

// SignOut deletes the stored session.
func (p *Provider) SignOut(_ context.Context) error {
	existed, err := p.store.Delete(ProviderID)
	if err != nil {
		return err
	}
	if existed {
		p.changes.Fire(host.SessionsChangeEvent{ProviderID: ProviderID})
	}
	return nil
}

// signIn runs the device flow. It returns (nil, nil) when the user denies
// access or lets the code expire.
func (p *Provider) signIn(ctx context.Context, scopes []string) (*host.AuthSession, error) {
	if p.clientID == "" {
		return nil, bridgeerrors.NewConfigInvalidError("client_id is required to sign in to GitHub").
			WithSuggestion("Set client_id in the config file or GHBRIDGE_CLIENT_ID")
	}

	cfg := &oauth2.Config{
		ClientID: p.clientID,
		Endpoint: p.endpoint,
		Scopes:   scopes,
	}

	p.logger.Debug("requesting device code", "scopes", scopes)
	code, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, bridgeerrors.NewDeviceFlowError(errors.Wrap(err, "request device code"))
	}
	if p.presenter != nil {
		if err := p.presenter.PresentDeviceCode(ctx, code); err != nil {
			return nil, errors.Wrap(err, "present device code")
		}
	}

	token, err := cfg.DeviceAccessToken(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "access_denied" || re.ErrorCode == "expired_token") {
			p.logger.Info("device authorization ended without a token", "reason", re.ErrorCode)
			return nil, nil
		}
		return nil, bridgeerrors.NewDeviceFlowError(errors.Wrap(err, "wait for device authorization"))
	}

	client := p.newClient(ctx, token.AccessToken)
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, bridgeerrors.Wrap(bridgeerrors.ErrCodeGitHubAPI, "failed to look up the signed-in user", errors.WithStack(err))
	}

	rec := Record{
		ID:          uuid.NewString(),
		AccessToken: token.AccessToken,
		Account: host.AccountInfo{
			ID:    strconv.FormatInt(user.GetID(), 10),
			Label: user.GetLogin(),
		},
		Scopes:    grantedScopes(token, scopes),
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.Put(ProviderID, rec); err != nil {
		return nil, err
	}

	p.logger.Info("signed in to GitHub", "account", rec.Account.Label, "scopes", rec.Scopes)
	p.changes.Fire(host.SessionsChangeEvent{ProviderID: ProviderID})
	return rec.Session(), nil
}

// grantedScopes reads the scopes GitHub reports for the token. GitHub
// separates them with commas; when the field is missing the requested
// scopes are assumed.
func grantedScopes(token *oauth2.Token, requested []string) []string {
	raw, _ := token.Extra("scope").(string)
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), requested...)
	}
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}

// Watch fires a change event whenever the session file is modified,
// including by another ghbridge process. It blocks until ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	dir := filepath.Dir(p.store.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create state directory %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create session watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	target := filepath.Clean(p.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Has(fsnotify.Chmod) {
				continue
			}
			p.changes.Fire(host.SessionsChangeEvent{ProviderID: ProviderID})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "session watcher")
		}
	}
}

// TerminalPresenter prints the device code and opens the verification page.
type TerminalPresenter struct {
	Out    io.Writer
	Opener host.URIOpener
}

// PresentDeviceCode implements DeviceCodePresenter.
func (t *TerminalPresenter) PresentDeviceCode(ctx context.Context, code *oauth2.DeviceAuthResponse) error {
	out := t.Out
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprintf(out, "First copy your one-time code: %s\n", code.UserCode)
	fmt.Fprintf(out, "Then open %s in your browser to continue.\n", code.VerificationURI)

	if t.Opener != nil {
		if err := t.Opener.OpenExternal(ctx, code.VerificationURI); err != nil {
			fmt.Fprintf(out, "Could not open the browser: %v\n", err)
		}
	}
	return nil
}
