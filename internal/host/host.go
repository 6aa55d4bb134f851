// Package host defines the collaborators the core services depend on:
// prompts, browser, commands, workspace folders and the identity provider.
// The core never talks to a terminal, the filesystem or GitHub directly.
package host

import (
	"context"
)

// Severity selects the prompt style.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is a single user-facing prompt.
type Message struct {
	Severity Severity
	Text     string
	// Detail is secondary text shown under Text (modal prompts only).
	Detail string
	// Modal prompts block until the user answers.
	Modal bool
	// Actions are button labels in display order.
	Actions []string
}

// Prompter presents messages. Show returns the chosen action label, or ""
// when the user dismissed the prompt or there were no actions.
type Prompter interface {
	Show(ctx context.Context, msg Message) (string, error)
}

// URIOpener opens a URI outside the process (usually the browser).
type URIOpener interface {
	OpenExternal(ctx context.Context, uri string) error
}

// CommandExecutor runs a named host command.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, name string, args ...any) error
}

// Workspace exposes the open project folders and their trust flag.
type Workspace interface {
	IsTrusted() bool
	Folders() []string
	OnDidGrantTrust(fn func()) Disposable
}

// GetSessionOptions controls a SessionProvider lookup.
type GetSessionOptions struct {
	// CreateIfNone allows an interactive sign-in when no session exists.
	CreateIfNone bool
	// Silent forbids any user interaction; it wins over CreateIfNone.
	Silent bool
}

// Interactive reports whether the lookup may prompt the user.
func (o GetSessionOptions) Interactive() bool {
	return o.CreateIfNone && !o.Silent
}

// SessionsChangeEvent is fired when a provider's sessions are added,
// removed or replaced.
type SessionsChangeEvent struct {
	ProviderID string
}

// SessionProvider is the identity provider API.
//
// GetSession returns (nil, nil) when no session exists and none was created.
type SessionProvider interface {
	GetSession(ctx context.Context, providerID string, scopes []string, opts GetSessionOptions) (*AuthSession, error)
	OnDidChangeSessions(fn func(SessionsChangeEvent)) Disposable
}

// AccountInfo identifies the signed-in account.
type AccountInfo struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// AuthSession is a proven identity claim.
type AuthSession struct {
	ID          string      `json:"id"`
	AccessToken string      `json:"-"`
	Account     AccountInfo `json:"account"`
	Scopes      []string    `json:"scopes"`
}

// Complete reports whether every required field is populated. A session is
// either complete or treated as absent.
func (s *AuthSession) Complete() bool {
	return s != nil && s.ID != "" && s.AccessToken != "" && s.Account.Label != ""
}

// HasScopes reports whether the session was granted every scope in want.
func (s *AuthSession) HasScopes(want []string) bool {
	granted := make(map[string]struct{}, len(s.Scopes))
	for _, sc := range s.Scopes {
		granted[sc] = struct{}{}
	}
	for _, w := range want {
		if _, ok := granted[w]; !ok {
			return false
		}
	}
	return true
}
