// Package cmd is the ghbridge command tree. It builds the service graph
// for each invocation and routes failures through the error handler.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/ghbridge/internal/config"
	"github.com/felixgeelhaar/ghbridge/internal/host"
	"github.com/felixgeelhaar/ghbridge/internal/host/terminal"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

// skipServices marks commands that only need the configuration.
const skipServices = "ghbridge/skip-services"

// options are the process-level collaborators. Tests replace them.
type options struct {
	stdout      io.Writer
	stderr      io.Writer
	getenv      func(string) string
	prompter    host.Prompter
	opener      host.URIOpener
	confirm     ux.ConfirmFunc
	interactive func() bool // whether confirm may be asked

	oauthEndpoint *oauth2.Endpoint
	apiBaseURL    string
}

// Option configures Run.
type Option func(*options)

// WithOutput redirects command results and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithEnv replaces os.Getenv for configuration overrides.
func WithEnv(getenv func(string) string) Option {
	return func(o *options) {
		o.getenv = getenv
	}
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p host.Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// WithOpener replaces the browser opener.
func WithOpener(op host.URIOpener) Option {
	return func(o *options) {
		o.opener = op
	}
}

// WithConfirm replaces the yes/no question used by destructive commands.
// The replacement is asked even without a terminal.
func WithConfirm(fn ux.ConfirmFunc) Option {
	return func(o *options) {
		o.confirm = fn
		o.interactive = func() bool { return true }
	}
}

// WithGitHubEndpoints points the device flow and the REST client at
// another server, such as GitHub Enterprise or a test double.
func WithGitHubEndpoints(oauth oauth2.Endpoint, apiBaseURL string) Option {
	return func(o *options) {
		o.oauthEndpoint = &oauth
		o.apiBaseURL = apiBaseURL
	}
}

// app is one invocation: flags, configuration and the lazily built
// service graph.
type app struct {
	opts    options
	cmdCtx  *CommandContext
	cfgPath string
	cfg     *config.Config
	svc     *services
}

func newApp(opts ...Option) *app {
	a := &app{opts: options{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		getenv:      os.Getenv,
		confirm:     ux.Confirm,
		interactive: terminal.ShouldPrompt,
	}}
	for _, opt := range opts {
		opt(&a.opts)
	}
	return a
}

// Run executes the command line in args.
func Run(ctx context.Context, args []string, opts ...Option) error {
	a := newApp(opts...)
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ghbridge",
		Short: "Work with GitHub issues from a trusted workspace",
		Long: `ghbridge signs in to GitHub with the device flow, checks that the
current workspace is trusted, and lists issues and milestones of the
repository behind it.

Logs are sanitized before they are written: tokens, passwords and
private keys never reach the log file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}
	root.SetOut(a.opts.stdout)
	root.SetErr(a.opts.stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $XDG_CONFIG_HOME/ghbridge/config.yaml)")
	pf.String("log-level", "", "minimum log level: debug, info, warn, error")
	pf.String("log-file", "", "log file (default <state dir>/ghbridge.log)")
	pf.StringArray("workspace", nil, "workspace folder (repeatable, default current directory)")
	pf.StringP("format", "o", "text", "output format: text, json, yaml")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("verbose", "v", false, "echo log records to stderr")

	root.AddCommand(
		a.authCmd(),
		a.workspaceCmd(),
		a.issuesCmd(),
		a.milestonesCmd(),
		a.doctorCmd(),
		a.logsCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// preRun resolves flags and configuration, then builds the services
// unless the command opted out.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	if _, err := ux.NewFormatter(cmdCtx.Format, nil); err != nil {
		return err
	}
	a.cmdCtx = cmdCtx

	a.cfgPath = cmdCtx.ConfigPath
	if a.cfgPath == "" {
		if a.cfgPath, err = config.DefaultPath(a.opts.getenv); err != nil {
			return err
		}
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(a.opts.getenv)
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = cmdCtx.LogLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = cmdCtx.LogFile
	}
	if len(cmdCtx.Workspaces) > 0 {
		cfg.Workspaces = cmdCtx.Workspaces
	}
	a.cfg = cfg

	if skips(cmd) {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.svc, err = newServices(cmd.Context(), cfg, cmdCtx, &a.opts)
	return err
}

func skips(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipServices] == "true" {
			return true
		}
	}
	return false
}

func (a *app) close() {
	if a.svc != nil {
		a.svc.dispose()
	}
}

// output writes a command result in the selected format.
func (a *app) output(data any) error {
	f, err := ux.NewFormatter(a.cmdCtx.Format, &ux.FormatterOptions{
		Writer:  a.opts.stdout,
		NoColor: a.cmdCtx.NoColor,
	})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// reportedError is a failure the error handler already logged and showed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already presented to the user.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func reported(err error, fallback string) error {
	if err == nil {
		err = errors.New(fallback)
	}
	return &reportedError{err: err}
}
