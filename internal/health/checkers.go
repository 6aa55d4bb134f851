package health

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/felixgeelhaar/ghbridge/internal/issues"
	"github.com/felixgeelhaar/ghbridge/internal/security"
)

// StateDirChecker checks that ghbridge can write its state directory.
type StateDirChecker struct {
	dir string
}

// NewStateDirChecker creates a checker for dir.
func NewStateDirChecker(dir string) *StateDirChecker {
	return &StateDirChecker{dir: dir}
}

// Name returns the name of this health check.
func (c *StateDirChecker) Name() string {
	return "state-dir"
}

// Check creates and removes a scratch file in the directory.
func (c *StateDirChecker) Check(_ context.Context) *Result {
	info, err := os.Stat(c.dir)
	if os.IsNotExist(err) {
		return Degraded("state directory does not exist yet").
			WithDetail("path", c.dir).
			WithSuggestion("It is created on the first sign-in or trust decision")
	}
	if err != nil {
		return Unhealthy("state directory is not accessible").
			WithDetail("path", c.dir).
			WithDetail("error", err.Error())
	}
	if !info.IsDir() {
		return Unhealthy("state path is not a directory").
			WithDetail("path", c.dir).
			WithSuggestion("Set state_dir to a directory with: ghbridge config set state_dir <dir>")
	}

	scratch, err := os.CreateTemp(c.dir, ".ghbridge-check-*")
	if err != nil {
		return Unhealthy("state directory is not writable").
			WithDetail("path", c.dir).
			WithDetail("error", err.Error()).
			WithSuggestion("Fix the directory permissions or choose another state_dir")
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)

	return Healthy("state directory is writable").WithDetail("path", c.dir)
}

// RepoChecker checks that a GitHub repository can be detected from the
// workspace folders.
type RepoChecker struct {
	folders []string
}

// NewRepoChecker creates a checker for the workspace folders.
func NewRepoChecker(folders []string) *RepoChecker {
	return &RepoChecker{folders: folders}
}

// Name returns the name of this health check.
func (c *RepoChecker) Name() string {
	return "repository"
}

// Check detects the repository behind the first folder that has one.
func (c *RepoChecker) Check(_ context.Context) *Result {
	if len(c.folders) == 0 {
		return Degraded("no workspace folder is open").
			WithSuggestion("Pass --workspace or --repo owner/name")
	}
	for _, folder := range c.folders {
		repo, err := issues.DetectRepo(folder)
		if err != nil {
			continue
		}
		return Healthy("detected " + repo.String()).
			WithDetail("repo", repo.String()).
			WithDetail("folder", folder)
	}
	return Degraded("no GitHub remote found in the workspace").
		WithDetail("folders", c.folders).
		WithSuggestion("Pass --repo owner/name to issue and milestone commands")
}

// GitHubChecker checks that the GitHub REST API answers and that the rate
// limit is not exhausted.
type GitHubChecker struct {
	client func(ctx context.Context) *github.Client
}

// NewGitHubChecker creates a checker that asks client for the API client
// to query. The client may be unauthenticated.
func NewGitHubChecker(client func(ctx context.Context) *github.Client) *GitHubChecker {
	return &GitHubChecker{client: client}
}

// Name returns the name of this health check.
func (c *GitHubChecker) Name() string {
	return "github-api"
}

// Check reads the rate limit, which does not count against it.
func (c *GitHubChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	limits, _, err := c.client(ctx).RateLimit.Get(ctx)
	latency := time.Since(start)

	var rateErr *github.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return Degraded("GitHub API rate limit exceeded").
			WithDetail("reset", rateErr.Rate.Reset.Time).
			WithSuggestion("Sign in with: ghbridge auth login, or wait for the reset").
			WithLatency(latency)
	case err != nil:
		return Unhealthy("GitHub API is not reachable").
			WithDetail("error", security.RedactString(err.Error())).
			WithSuggestion("Check your network connection and proxy settings").
			WithLatency(latency)
	}

	core := limits.GetCore()
	if core == nil {
		return Healthy("GitHub API is reachable").WithLatency(latency)
	}
	result := Healthy("GitHub API is reachable")
	if core.Remaining == 0 {
		result = Degraded("GitHub API rate limit exhausted").
			WithSuggestion("Wait for the reset before running issue commands")
	}
	return result.
		WithDetail("rate_limit", core.Limit).
		WithDetail("rate_remaining", core.Remaining).
		WithDetail("rate_reset", core.Reset.Time).
		WithLatency(latency)
}
