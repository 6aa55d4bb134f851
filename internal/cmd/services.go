package cmd

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/go-github/v73/github"
	"github.com/pkg/errors"

	"github.com/felixgeelhaar/ghbridge/internal/auth"
	"github.com/felixgeelhaar/ghbridge/internal/config"
	"github.com/felixgeelhaar/ghbridge/internal/host"
	"github.com/felixgeelhaar/ghbridge/internal/host/ghauth"
	"github.com/felixgeelhaar/ghbridge/internal/host/terminal"
	"github.com/felixgeelhaar/ghbridge/internal/host/workspace"
	"github.com/felixgeelhaar/ghbridge/internal/log"
	"github.com/felixgeelhaar/ghbridge/internal/notify"
	"github.com/felixgeelhaar/ghbridge/internal/trust"
)

// DefaultLogFileName is the log file inside the state directory.
const DefaultLogFileName = "ghbridge.log"

// services is the object graph shared by the commands of one invocation.
type services struct {
	output    *terminal.OutputChannel
	logger    *log.Logger
	prompter  host.Prompter
	handler   *notify.Handler
	commands  *host.CommandRegistry
	workspace *workspace.Workspace
	trustFile *workspace.TrustStore
	gate      *trust.Gate
	provider  *ghauth.Provider
	auth      *auth.Manager
	apiBase   *url.URL
	stateDir  string

	disposables []host.Disposable
	stopWatch   context.CancelFunc
	watchers    sync.WaitGroup
	closeOnce   sync.Once
}

// logFilePath returns the configured log file or the default inside the
// state directory.
func logFilePath(cfg *config.Config) (string, error) {
	logFile, err := cfg.ResolveLogFile()
	if err != nil || logFile != "" {
		return logFile, err
	}
	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, DefaultLogFileName), nil
}

func newServices(ctx context.Context, cfg *config.Config, cmdCtx *CommandContext, o *options) (*services, error) {
	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, err
	}
	logFile, err := logFilePath(cfg)
	if err != nil {
		return nil, err
	}

	output, err := terminal.NewOutputChannel(
		terminal.WithLogFile(logFile),
		terminal.WithEcho(o.stderr),
		terminal.WithShown(cmdCtx.Verbose),
	)
	if err != nil {
		return nil, err
	}
	s := &services{output: output, stateDir: stateDir}
	s.logger = log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Sink: output})

	s.prompter = o.prompter
	if s.prompter == nil {
		s.prompter = terminal.NewPrompter(terminal.WithOutput(o.stderr))
	}
	opener := o.opener
	if opener == nil {
		opener = host.NewBrowserOpener()
	}
	s.handler = notify.NewHandler(s.logger, s.prompter)

	if err := s.buildWorkspace(cfg, stateDir, opener); err != nil {
		s.dispose()
		return nil, err
	}
	s.buildAuth(cfg, stateDir, opener, o)

	watchCtx, cancel := context.WithCancel(ctx)
	s.stopWatch = cancel
	s.watch(watchCtx, "trust store", s.workspace.Watch)
	s.watch(watchCtx, "session store", s.provider.Watch)

	s.logger.Debug("Services ready", "state_dir", stateDir, "folders", s.workspace.Folders())
	return s, nil
}

func (s *services) buildWorkspace(cfg *config.Config, stateDir string, opener host.URIOpener) error {
	s.trustFile = workspace.NewTrustStore(filepath.Join(stateDir, workspace.TrustFileName))
	if err := s.trustFile.Load(); err != nil {
		return err
	}

	folders := append([]string(nil), cfg.Workspaces...)
	if len(folders) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "resolve current directory")
		}
		folders = []string{cwd}
	}
	for i, f := range folders {
		if f == "~" || strings.HasPrefix(f, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				folders[i] = filepath.Join(home, strings.TrimPrefix(f, "~"))
			}
		}
	}

	ws, err := workspace.New(s.trustFile, folders)
	if err != nil {
		return err
	}
	s.workspace = ws

	s.commands = host.NewCommandRegistry()
	s.disposables = append(s.disposables,
		s.commands.Register(host.CommandManageTrust, workspace.ManageTrustCommand(ws, s.prompter)))

	s.gate = trust.NewGate(ws, s.prompter, opener, s.commands, s.logger, trust.WithDocsURL(cfg.TrustDocsURL))
	s.disposables = append(s.disposables, s.gate.OnDidGrantWorkspaceTrust(nil))
	return nil
}

func (s *services) buildAuth(cfg *config.Config, stateDir string, opener host.URIOpener, o *options) {
	store := ghauth.NewStore(filepath.Join(stateDir, ghauth.SessionsFileName))

	newClient := auth.DefaultClientFactory
	providerOpts := []ghauth.Option{ghauth.WithLogger(s.logger.Slog())}
	if o.oauthEndpoint != nil {
		providerOpts = append(providerOpts, ghauth.WithEndpoint(*o.oauthEndpoint))
	}
	if o.apiBaseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(o.apiBaseURL, "/") + "/"); err == nil {
			s.apiBase = u
		}
	}
	if s.apiBase != nil {
		newClient = func(ctx context.Context, token string) *github.Client {
			return s.withBase(auth.DefaultClientFactory(ctx, token))
		}
		providerOpts = append(providerOpts, ghauth.WithClientFactory(ghauth.ClientFactory(newClient)))
	}

	presenter := &ghauth.TerminalPresenter{Out: o.stderr, Opener: opener}
	s.provider = ghauth.NewProvider(store, cfg.ClientID, presenter, providerOpts...)
	s.auth = auth.NewManager(s.provider, s.prompter, s.logger, auth.WithClientFactory(newClient))
}

func (s *services) withBase(c *github.Client) *github.Client {
	if s.apiBase != nil {
		c.BaseURL = s.apiBase
	}
	return c
}

// apiClient returns the signed-in client, or an anonymous one when no
// session is held.
func (s *services) apiClient(context.Context) *github.Client {
	if _, ok := s.auth.Session(); ok {
		if c := s.auth.Client(); c != nil {
			return c
		}
	}
	return s.withBase(github.NewClient(nil))
}

// watch runs fn until the services are disposed. A watcher that fails is
// logged and not restarted.
func (s *services) watch(ctx context.Context, name string, fn func(context.Context) error) {
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		if err := fn(ctx); err != nil {
			s.logger.Warn("File watcher stopped", "watcher", name, "error", err.Error())
		}
	}()
}

// dispose stops the watchers, flushes pending prompts and closes the log.
func (s *services) dispose() {
	s.closeOnce.Do(func() {
		if s.stopWatch != nil {
			s.stopWatch()
		}
		s.watchers.Wait()
		if s.handler != nil {
			s.handler.Wait()
		}
		if s.auth != nil {
			s.auth.Close()
		}
		for _, d := range s.disposables {
			d.Dispose()
		}
		if s.logger != nil {
			s.logger.Dispose()
		} else if s.output != nil {
			s.output.Dispose()
		}
	})
}
