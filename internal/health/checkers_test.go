package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDirChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name string
		dir  string
		want Status
	}{
		{"writable", dir, StatusHealthy},
		{"missing", filepath.Join(dir, "missing"), StatusDegraded},
		{"not a directory", file, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewStateDirChecker(tt.dir)
			assert.Equal(t, "state-dir", c.Name())
			r := c.Check(context.Background())
			assert.Equal(t, tt.want, r.Status, r.Message)
			assert.Equal(t, tt.dir, r.Details["path"])
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "scratch file is removed")
}

func TestRepoChecker(t *testing.T) {
	repoDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, ".git", "config"),
		[]byte("[remote \"origin\"]\n\turl = https://github.com/octo/cat.git\n"), 0o644))
	plain := t.TempDir()

	r := NewRepoChecker([]string{plain, repoDir}).Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "octo/cat", r.Details["repo"])
	assert.Equal(t, repoDir, r.Details["folder"])

	r = NewRepoChecker([]string{plain}).Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.NotEmpty(t, r.Suggestion())

	r = NewRepoChecker(nil).Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) func(context.Context) *github.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return func(context.Context) *github.Client {
		c := github.NewClient(nil)
		u, err := url.Parse(srv.URL + "/")
		require.NoError(t, err)
		c.BaseURL = u
		return c
	}
}

func rateLimitHandler(remaining int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resources": map[string]any{
				"core": map[string]any{"limit": 60, "remaining": remaining, "reset": 1717200000},
			},
		})
	}
}

func TestGitHubChecker(t *testing.T) {
	c := NewGitHubChecker(newTestClient(t, rateLimitHandler(42)))
	assert.Equal(t, "github-api", c.Name())

	r := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status, r.Message)
	assert.Equal(t, 60, r.Details["rate_limit"])
	assert.Equal(t, 42, r.Details["rate_remaining"])
	assert.True(t, r.Latency > 0)
}

func TestGitHubChecker_Exhausted(t *testing.T) {
	r := NewGitHubChecker(newTestClient(t, rateLimitHandler(0))).Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.NotEmpty(t, r.Suggestion())
}

func TestGitHubChecker_Unreachable(t *testing.T) {
	r := NewGitHubChecker(newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Contains(t, r.Details["error"], "502")
}
