package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/issues"
	"github.com/felixgeelhaar/ghbridge/internal/notify"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

type issueList []issues.Issue

func (l issueList) Text() any {
	t := ux.Table{
		Headers: []string{"#", "STATE", "TITLE", "LABELS", "MILESTONE"},
		Empty:   "No issues found",
	}
	for _, i := range l {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i.Number), i.State, i.Title, strings.Join(i.Labels, ","), i.Milestone,
		})
	}
	return t
}

type milestoneList []issues.Milestone

func (l milestoneList) Text() any {
	t := ux.Table{
		Headers: []string{"#", "TITLE", "STATE", "DUE", "OPEN", "CLOSED"},
		Empty:   "No milestones found",
	}
	for _, m := range l {
		due := "-"
		if m.DueOn != nil {
			due = m.DueOn.Format("2006-01-02")
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(m.Number), m.Title, m.State, due,
			strconv.Itoa(m.OpenIssues), strconv.Itoa(m.ClosedIssues),
		})
	}
	return t
}

func (a *app) issuesCmd() *cobra.Command {
	issuesCmd := &cobra.Command{
		Use:   "issues",
		Short: "Work with repository issues",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List issues of the workspace repository",
		Long: `List issues of the repository given with --repo, or of the origin remote
of the first workspace folder. Pull requests are not listed.

The workspace must be trusted and a GitHub session is required; both are
requested interactively when missing.`,
		Args: cobra.NoArgs,
		RunE: a.runIssuesList,
	}
	listCmd.Flags().String("repo", "", "repository as owner/name")
	listCmd.Flags().String("state", "open", "issue state: open, closed, all")
	listCmd.Flags().StringP("milestone", "m", "", `milestone number, "*" or "none"`)
	listCmd.Flags().IntP("limit", "L", issues.DefaultLimit, "maximum number of issues")

	issuesCmd.AddCommand(listCmd)
	return issuesCmd
}

func (a *app) milestonesCmd() *cobra.Command {
	milestonesCmd := &cobra.Command{
		Use:   "milestones",
		Short: "Work with repository milestones",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List milestones of the workspace repository",
		Args:  cobra.NoArgs,
		RunE:  a.runMilestonesList,
	}
	listCmd.Flags().String("repo", "", "repository as owner/name")
	listCmd.Flags().String("state", "open", "milestone state: open, closed, all")

	milestonesCmd.AddCommand(listCmd)
	return milestonesCmd
}

// githubReady walks the user through trust and sign-in and resolves the
// target repository.
func (a *app) githubReady(cmd *cobra.Command) (*issues.Service, issues.Repo, error) {
	ctx := cmd.Context()
	if !a.svc.gate.ValidateWorkspace(ctx) {
		return nil, issues.Repo{}, a.untrusted()
	}
	if !a.svc.auth.EnsureAuthenticated(ctx) {
		return nil, issues.Repo{}, bridgeerrors.NewNotSignedInError()
	}

	repoFlag, err := cmd.Flags().GetString("repo")
	if err != nil {
		return nil, issues.Repo{}, err
	}
	var repo issues.Repo
	if repoFlag != "" {
		repo, err = issues.ParseRepo(repoFlag)
	} else {
		repo, err = issues.DetectRepo(a.svc.workspace.Folders()[0])
	}
	if err != nil {
		return nil, issues.Repo{}, err
	}

	client := a.svc.auth.Client()
	if client == nil {
		return nil, issues.Repo{}, bridgeerrors.NewNotSignedInError()
	}
	return issues.NewService(client), repo, nil
}

func (a *app) runIssuesList(cmd *cobra.Command, _ []string) error {
	svc, repo, err := a.githubReady(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	state, _ := flags.GetString("state")
	milestone, _ := flags.GetString("milestone")
	limit, _ := flags.GetInt("limit")
	opts := issues.ListOptions{State: state, Milestone: milestone, Limit: limit}

	var opErr error
	list, ok := notify.WrapAsync(a.svc.handler, cmd.Context(), &notify.ErrorContext{
		Component: "IssuesCommand",
		Operation: "listIssues",
		Metadata:  map[string]any{"repo": repo.String(), "state": state},
	}, func(ctx context.Context) ([]issues.Issue, error) {
		list, err := svc.ListIssues(ctx, repo, opts)
		opErr = err
		return list, err
	})
	if !ok {
		return reported(opErr, "listing issues failed")
	}
	if list == nil {
		list = []issues.Issue{}
	}
	return a.output(issueList(list))
}

func (a *app) runMilestonesList(cmd *cobra.Command, _ []string) error {
	svc, repo, err := a.githubReady(cmd)
	if err != nil {
		return err
	}
	state, _ := cmd.Flags().GetString("state")

	var opErr error
	list, ok := notify.WrapAsync(a.svc.handler, cmd.Context(), &notify.ErrorContext{
		Component: "MilestonesCommand",
		Operation: "listMilestones",
		Metadata:  map[string]any{"repo": repo.String(), "state": state},
	}, func(ctx context.Context) ([]issues.Milestone, error) {
		list, err := svc.ListMilestones(ctx, repo, state)
		opErr = err
		return list, err
	})
	if !ok {
		return reported(opErr, "listing milestones failed")
	}
	if list == nil {
		list = []issues.Milestone{}
	}
	return a.output(milestoneList(list))
}
