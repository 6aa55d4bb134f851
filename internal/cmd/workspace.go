package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/trust"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

type workspaceStatus struct {
	Folders    []string `json:"folders" yaml:"folders"`
	State      string   `json:"state" yaml:"state"`
	Trusted    bool     `json:"trusted" yaml:"trusted"`
	TrustStore string   `json:"trust_store" yaml:"trust_store"`
	DocsURL    string   `json:"docs_url" yaml:"docs_url"`
}

func (s workspaceStatus) Text() any {
	return ux.KeyValues{
		{"Folders", strings.Join(s.Folders, ", ")},
		{"Trust", s.State},
		{"Trust store", s.TrustStore},
		{"Learn more", s.DocsURL},
	}
}

func (a *app) workspaceCmd() *cobra.Command {
	wsCmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Inspect and trust the workspace folders",
		Long: `The workspace is the set of folders given with --workspace, listed under
"workspaces" in the config file, or the current directory. Commands that
read repository data require every folder to be trusted.`,
	}

	wsCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the workspace folders and their trust state",
			Args:  cobra.NoArgs,
			RunE:  a.runWorkspaceStatus,
		},
		&cobra.Command{
			Use:   "trust",
			Short: "Ask to trust the workspace",
			Args:  cobra.NoArgs,
			RunE:  a.runWorkspaceTrust,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check that a workspace is open and trusted",
			Args:  cobra.NoArgs,
			RunE:  a.runWorkspaceValidate,
		},
		&cobra.Command{
			Use:   "revoke",
			Short: "Remove the workspace folders from the trust store",
			Args:  cobra.NoArgs,
			RunE:  a.runWorkspaceRevoke,
		},
	)
	return wsCmd
}

func (a *app) workspaceStatus() workspaceStatus {
	return workspaceStatus{
		Folders:    a.svc.workspace.Folders(),
		State:      a.svc.gate.State().String(),
		Trusted:    a.svc.gate.IsTrusted(),
		TrustStore: a.svc.trustFile.Path(),
		DocsURL:    a.svc.gate.DocsURL(),
	}
}

func (a *app) runWorkspaceStatus(*cobra.Command, []string) error {
	return a.output(a.workspaceStatus())
}

func (a *app) runWorkspaceTrust(cmd *cobra.Command, _ []string) error {
	if !a.svc.gate.EnsureTrustedWorkspace(cmd.Context()) {
		return a.untrusted()
	}
	return a.output(a.workspaceStatus())
}

func (a *app) runWorkspaceValidate(cmd *cobra.Command, _ []string) error {
	if !a.svc.gate.ValidateWorkspace(cmd.Context()) {
		return a.untrusted()
	}
	return a.output("Workspace is trusted")
}

func (a *app) runWorkspaceRevoke(cmd *cobra.Command, _ []string) error {
	if err := a.svc.workspace.Revoke(cmd.Context()); err != nil {
		return err
	}
	return a.output(a.workspaceStatus())
}

// untrusted describes why the gate refused.
func (a *app) untrusted() error {
	if a.svc.gate.State() == trust.StateNoWorkspace {
		return bridgeerrors.NewNoWorkspaceError()
	}
	return bridgeerrors.NewUntrustedWorkspaceError(strings.Join(a.svc.workspace.Folders(), ", "))
}
