package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghbridge/internal/health"
	"github.com/felixgeelhaar/ghbridge/internal/trust"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

// errChecksFailed is returned when at least one doctor check is unhealthy.
var errChecksFailed = errors.New("one or more checks are unhealthy")

type doctorReport struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (r doctorReport) Text() any {
	t := ux.Table{Headers: []string{"CHECK", "STATUS", "MESSAGE", "SUGGESTION"}}
	for _, c := range r.Checks {
		t.Rows = append(t.Rows, []string{c.Name, c.Status.String(), c.Message, c.Suggestion()})
	}
	return t
}

func (a *app) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment ghbridge depends on",
		Long: `Run every check without prompting: the state directory, workspace
trust, the stored GitHub session, repository detection and the GitHub API.

Exits non-zero when a check is unhealthy. Degraded checks only need a user
action, such as "ghbridge auth login" or "ghbridge workspace trust".`,
		Args: cobra.NoArgs,
		RunE: a.runDoctor,
	}
}

func (a *app) runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s := a.svc

	// A silent lookup, so the API check below uses the session.
	signedIn := s.auth.IsAuthenticated(ctx)

	manager := health.NewManager()
	manager.AddChecker(health.NewStateDirChecker(s.stateDir))
	manager.AddChecker(health.CheckFunc("workspace-trust", func(context.Context) *health.Result {
		switch s.gate.State() {
		case trust.StateTrusted:
			return health.Healthy("workspace is trusted").WithDetail("folders", s.workspace.Folders())
		case trust.StateNoWorkspace:
			return health.Degraded("no workspace folder is open").
				WithSuggestion("Pass --workspace <folder>")
		default:
			return health.Degraded("workspace is not trusted").
				WithDetail("folders", s.workspace.Folders()).
				WithSuggestion("Run: ghbridge workspace trust")
		}
	}))
	manager.AddChecker(health.CheckFunc("github-auth", func(context.Context) *health.Result {
		if !signedIn {
			return health.Degraded("not signed in to GitHub").
				WithSuggestion("Run: ghbridge auth login")
		}
		user, _ := s.auth.Username()
		return health.Healthy("signed in as " + user)
	}))
	manager.AddChecker(health.NewRepoChecker(s.workspace.Folders()))
	manager.AddChecker(health.NewGitHubChecker(s.apiClient))

	reports := manager.Check(ctx)
	report := doctorReport{Status: health.OverallStatus(reports), Checks: reports}
	for _, r := range reports {
		s.logger.Debug("Doctor check finished", "check", r.Name, "status", r.Status.String(), "latency", r.Latency.String())
	}
	if err := a.output(report); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return errChecksFailed
	}
	return nil
}
