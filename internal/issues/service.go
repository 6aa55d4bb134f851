// Package issues reads GitHub issues and milestones for a repository.
package issues

import (
	"context"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/pkg/errors"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
)

// DefaultLimit caps the number of issues returned when none is given.
const DefaultLimit = 30

const maxPerPage = 100

// Issue is an issue as shown to the user.
type Issue struct {
	Number    int       `json:"number" yaml:"number"`
	Title     string    `json:"title" yaml:"title"`
	State     string    `json:"state" yaml:"state"`
	Author    string    `json:"author" yaml:"author"`
	Labels    []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Milestone string    `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	URL       string    `json:"url" yaml:"url"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Milestone is a milestone as shown to the user.
type Milestone struct {
	Number       int        `json:"number" yaml:"number"`
	Title        string     `json:"title" yaml:"title"`
	State        string     `json:"state" yaml:"state"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	DueOn        *time.Time `json:"due_on,omitempty" yaml:"due_on,omitempty"`
	OpenIssues   int        `json:"open_issues" yaml:"open_issues"`
	ClosedIssues int        `json:"closed_issues" yaml:"closed_issues"`
	URL          string     `json:"url" yaml:"url"`
}

// ListOptions filters ListIssues.
type ListOptions struct {
	// State is "open", "closed" or "all". Empty means "open".
	State string
	// Milestone is a milestone number, "*" or "none". Empty means any.
	Milestone string
	// Limit caps the result size. Zero means DefaultLimit.
	Limit int
}

// Service reads issues through the GitHub REST API.
type Service struct {
	client *github.Client
}

// NewService creates a Service
func NewService(client *github.Client) *Service {
	return &Service{client: client}
}

// ListIssues returns issues of repo, newest first. Pull requests are skipped.
func (s *Service) ListIssues(ctx context.Context, repo Repo, opts ListOptions) ([]Issue, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	state := opts.State
	if state == "" {
		state = "open"
	}

	req := &github.IssueListByRepoOptions{
		State:     state,
		Milestone: opts.Milestone,
		ListOptions: github.ListOptions{
			PerPage: min(limit, maxPerPage),
		},
	}

	var out []Issue
	for {
		page, resp, err := s.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, req)
		if err != nil {
			return nil, bridgeerrors.Wrap(bridgeerrors.ErrCodeGitHubAPI, "failed to list issues for "+repo.String(), errors.WithStack(err))
		}
		for _, gi := range page {
			if gi.IsPullRequest() {
				continue
			}
			out = append(out, toIssue(gi))
			if len(out) == limit {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		req.ListOptions.Page = resp.NextPage
	}
}

// ListMilestones returns milestones of repo in the given state.
func (s *Service) ListMilestones(ctx context.Context, repo Repo, state string) ([]Milestone, error) {
	if state == "" {
		state = "open"
	}
	req := &github.MilestoneListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}

	var out []Milestone
	for {
		page, resp, err := s.client.Issues.ListMilestones(ctx, repo.Owner, repo.Name, req)
		if err != nil {
			return nil, bridgeerrors.Wrap(bridgeerrors.ErrCodeGitHubAPI, "failed to list milestones for "+repo.String(), errors.WithStack(err))
		}
		for _, gm := range page {
			out = append(out, toMilestone(gm))
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		req.ListOptions.Page = resp.NextPage
	}
}

func toIssue(gi *github.Issue) Issue {
	issue := Issue{
		Number:    gi.GetNumber(),
		Title:     gi.GetTitle(),
		State:     gi.GetState(),
		Author:    gi.GetUser().GetLogin(),
		URL:       gi.GetHTMLURL(),
		CreatedAt: gi.GetCreatedAt().Time,
		UpdatedAt: gi.GetUpdatedAt().Time,
	}
	for _, l := range gi.Labels {
		issue.Labels = append(issue.Labels, l.GetName())
	}
	if gi.Milestone != nil {
		issue.Milestone = gi.Milestone.GetTitle()
	}
	return issue
}

func toMilestone(gm *github.Milestone) Milestone {
	m := Milestone{
		Number:       gm.GetNumber(),
		Title:        gm.GetTitle(),
		State:        gm.GetState(),
		Description:  gm.GetDescription(),
		OpenIssues:   gm.GetOpenIssues(),
		ClosedIssues: gm.GetClosedIssues(),
		URL:          gm.GetHTMLURL(),
	}
	if gm.DueOn != nil {
		due := gm.DueOn.Time
		m.DueOn = &due
	}
	return m
}
