// Package trust gates privileged operations on the workspace being trusted.
package trust

import (
	"context"

	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// DefaultDocsURL explains workspace trust to the user.
const DefaultDocsURL = "https://github.com/felixgeelhaar/ghbridge#workspace-trust"

// Prompt texts and actions.
const (
	ActionTrust     = "Trust Workspace"
	ActionLearnMore = "Learn More"
	ActionCancel    = "Cancel"

	MessageUntrusted   = "This workspace is not trusted. GitHub Issues Bridge needs a trusted workspace to access GitHub."
	DetailUntrusted    = "Trusting the workspace allows ghbridge to read repository settings and act on your behalf."
	MessageNoWorkspace = "No workspace is currently open. Please open a folder first."
)

// State is the derived trust state of the workspace.
type State int

const (
	StateNoWorkspace State = iota
	StateUntrusted
	StateTrusted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateNoWorkspace:
		return "no-workspace"
	case StateUntrusted:
		return "untrusted"
	case StateTrusted:
		return "trusted"
	default:
		return "unknown"
	}
}

// Logger is the subset of the application logger the gate needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, cause any, args ...any)
}

// Gate answers whether the workspace is trusted and walks the user through
// granting trust. It keeps no state of its own: every answer is read from
// the workspace at call time.
type Gate struct {
	workspace host.Workspace
	prompter  host.Prompter
	opener    host.URIOpener
	commands  host.CommandExecutor
	logger    Logger
	docsURL   string
}

// Option configures a Gate
type Option func(*Gate)

// WithDocsURL overrides the page opened by "Learn More".
func WithDocsURL(url string) Option {
	return func(g *Gate) {
		if url != "" {
			g.docsURL = url
		}
	}
}

// NewGate creates a Gate
func NewGate(workspace host.Workspace, prompter host.Prompter, opener host.URIOpener, commands host.CommandExecutor, logger Logger, opts ...Option) *Gate {
	g := &Gate{
		workspace: workspace,
		prompter:  prompter,
		opener:    opener,
		commands:  commands,
		logger:    logger,
		docsURL:   DefaultDocsURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DocsURL returns the page opened by "Learn More".
func (g *Gate) DocsURL() string {
	return g.docsURL
}

// State derives the current trust state.
func (g *Gate) State() State {
	if len(g.workspace.Folders()) == 0 {
		return StateNoWorkspace
	}
	if g.workspace.IsTrusted() {
		return StateTrusted
	}
	return StateUntrusted
}

// IsTrusted reports the host's trust flag.
func (g *Gate) IsTrusted() bool {
	return g.workspace.IsTrusted()
}

// HasWorkspace reports whether at least one folder is open.
func (g *Gate) HasWorkspace() bool {
	if len(g.workspace.Folders()) == 0 {
		g.logger.Warn("No workspace folder is open")
		return false
	}
	return true
}

// EnsureTrustedWorkspace returns true when the workspace is trusted or the
// user chose to trust it. "Learn More" opens the docs and asks again.
func (g *Gate) EnsureTrustedWorkspace(ctx context.Context) bool {
	for {
		if g.workspace.IsTrusted() {
			g.logger.Debug("Workspace is trusted")
			return true
		}
		if err := ctx.Err(); err != nil {
			g.logger.Debug("Trust prompt cancelled", "error", err.Error())
			return false
		}

		g.logger.Info("Workspace is not trusted, requesting trust")
		choice, err := g.prompter.Show(ctx, host.Message{
			Severity: host.SeverityWarning,
			Text:     MessageUntrusted,
			Detail:   DetailUntrusted,
			Modal:    true,
			Actions:  []string{ActionTrust, ActionLearnMore, ActionCancel},
		})
		if err != nil {
			g.logger.Error("Failed to show workspace trust prompt", err)
			return false
		}

		switch choice {
		case ActionTrust:
			return g.requestTrust(ctx)
		case ActionLearnMore:
			if err := g.opener.OpenExternal(ctx, g.docsURL); err != nil {
				g.logger.Error("Failed to open workspace trust documentation", err, "url", g.docsURL)
			}
		default:
			g.logger.Info("User declined to trust workspace")
			return false
		}
	}
}

// requestTrust hands over to the host's trust management command. The
// result is optimistic: the command returning is taken as trust granted.
func (g *Gate) requestTrust(ctx context.Context) bool {
	if err := g.commands.ExecuteCommand(ctx, host.CommandManageTrust); err != nil {
		g.logger.Error("Failed to run workspace trust command", err, "command", host.CommandManageTrust)
		return false
	}
	g.logger.Info("Workspace trust requested")
	return true
}

// ValidateWorkspace requires an open folder and then a trusted workspace.
func (g *Gate) ValidateWorkspace(ctx context.Context) bool {
	if len(g.workspace.Folders()) == 0 {
		g.logger.Error("Workspace validation failed", nil, "reason", "no workspace folder")
		if _, err := g.prompter.Show(ctx, host.Message{
			Severity: host.SeverityError,
			Text:     MessageNoWorkspace,
			Modal:    true,
		}); err != nil {
			g.logger.Warn("Failed to show workspace error", "error", err.Error())
		}
		return false
	}
	return g.EnsureTrustedWorkspace(ctx)
}

// OnDidGrantWorkspaceTrust calls fn each time the host grants trust.
func (g *Gate) OnDidGrantWorkspaceTrust(fn func()) host.Disposable {
	return g.workspace.OnDidGrantTrust(func() {
		g.logger.Info("Workspace trust granted")
		if fn != nil {
			fn()
		}
	})
}
