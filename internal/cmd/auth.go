package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghbridge/internal/auth"
	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/host"
	"github.com/felixgeelhaar/ghbridge/internal/notify"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

// errSignOutUnconfirmed is returned when the session was removed but the
// confirmation could not be shown.
var errSignOutUnconfirmed = errors.New("signed out, but the confirmation could not be shown")

// authStatus is the result of auth login and auth status.
type authStatus struct {
	Authenticated bool     `json:"authenticated" yaml:"authenticated"`
	User          string   `json:"user,omitempty" yaml:"user,omitempty"`
	Scopes        []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	SessionID     string   `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

func (s authStatus) Text() any {
	if !s.Authenticated {
		return "Not signed in to GitHub"
	}
	return ux.KeyValues{
		{"Signed in as", s.User},
		{"Scopes", strings.Join(s.Scopes, ", ")},
		{"Session", s.SessionID},
	}
}

func (a *app) authCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to GitHub and inspect the session",
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with the GitHub device flow",
		Long: `Sign in to GitHub. An existing session with the required scopes
(` + strings.Join(auth.RequiredScopes, ", ") + `) is reused; otherwise a one-time code
is printed and the verification page opens in the browser.`,
		Args: cobra.NoArgs,
		RunE: a.runAuthLogin,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the stored session",
		Args:  cobra.NoArgs,
		RunE:  a.runAuthLogout,
	}
	logoutCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  a.runAuthStatus,
	}

	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	return authCmd
}

func (a *app) currentStatus() authStatus {
	session, ok := a.svc.auth.Session()
	if !ok {
		return authStatus{}
	}
	return authStatus{
		Authenticated: true,
		User:          session.Account.Label,
		Scopes:        session.Scopes,
		SessionID:     session.ID,
	}
}

func (a *app) runAuthLogin(cmd *cobra.Command, _ []string) error {
	if !a.svc.auth.EnsureAuthenticated(cmd.Context()) {
		return bridgeerrors.NewSignInCancelledError()
	}
	return a.output(a.currentStatus())
}

func (a *app) runAuthLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logoutCtx := &notify.ErrorContext{Component: "AuthCommand", Operation: "logout"}

	// A stored record is removed even when its scopes no longer satisfy a
	// lookup, so IsAuthenticated alone is not enough.
	user, stored, err := a.svc.provider.StoredAccount()
	if err != nil {
		a.svc.handler.Handle(ctx, err, logoutCtx, host.SeverityError)
		return reported(err, "sign-out failed")
	}
	if held := a.svc.auth.IsAuthenticated(ctx); !held && !stored {
		return a.output("Not signed in to GitHub")
	}
	if session, ok := a.svc.auth.Session(); ok {
		user = session.Account.Label
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	if !yes && a.opts.interactive() {
		ok, err := a.opts.confirm(ctx, fmt.Sprintf("Sign out %s from GitHub?", user), true)
		if err != nil {
			return err
		}
		if !ok {
			return a.output("Sign-out cancelled")
		}
	}

	// The record goes first; nothing confirms the sign-out until the token
	// is off disk. Deleting it fires a change event that clears the held
	// session.
	if err := a.svc.provider.SignOut(ctx); err != nil {
		a.svc.handler.Handle(ctx, err, logoutCtx, host.SeverityError)
		return reported(err, "sign-out failed")
	}
	if _, held := a.svc.auth.Session(); held {
		if !a.svc.auth.Logout(ctx) {
			return errSignOutUnconfirmed
		}
		return nil
	}
	a.svc.handler.ShowSuccess(ctx, auth.MessageSignedOut)
	return nil
}

func (a *app) runAuthStatus(cmd *cobra.Command, _ []string) error {
	if !a.svc.auth.IsAuthenticated(cmd.Context()) {
		if err := a.output(authStatus{}); err != nil {
			return err
		}
		return bridgeerrors.NewNotSignedInError()
	}
	return a.output(a.currentStatus())
}
