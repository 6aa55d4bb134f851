package issues

import (
	"bufio"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string `json:"owner" yaml:"owner"`
	Name  string `json:"name" yaml:"name"`
}

// String returns "owner/name".
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo parses "owner/name".
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, bridgeerrors.NewInvalidRepoError(s)
	}
	return Repo{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
}

// DetectRepo reads the origin remote of the git checkout at dir.
func DetectRepo(dir string) (Repo, error) {
	configPath, err := gitConfigPath(dir)
	if err != nil {
		return Repo{}, bridgeerrors.NewRepoNotDetectedError(dir)
	}

	remote, err := originURL(configPath)
	if err != nil || remote == "" {
		return Repo{}, bridgeerrors.NewRepoNotDetectedError(dir)
	}

	repo, ok := parseRemote(remote)
	if !ok {
		return Repo{}, bridgeerrors.NewRepoNotDetectedError(dir)
	}
	return repo, nil
}

// gitConfigPath finds .git/config, following the "gitdir:" indirection
// used by worktrees and submodules.
func gitConfigPath(dir string) (string, error) {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return filepath.Join(gitPath, "config"), nil
	}

	data, err := os.ReadFile(gitPath)
	if err != nil {
		return "", err
	}
	target := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), "gitdir:"))
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	// Worktrees keep their config in the common dir.
	if common, err := os.ReadFile(filepath.Join(target, "commondir")); err == nil {
		c := strings.TrimSpace(string(common))
		if !filepath.IsAbs(c) {
			c = filepath.Join(target, c)
		}
		target = c
	}
	return filepath.Join(target, "config"), nil
}

// originURL returns the url of [remote "origin"].
func originURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	inOrigin := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "url" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", scanner.Err()
}

// parseRemote accepts https, ssh and scp-style github.com remotes.
func parseRemote(remote string) (Repo, bool) {
	var path string
	switch {
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	default:
		u, err := url.Parse(remote)
		if err != nil || !strings.EqualFold(u.Hostname(), "github.com") {
			return Repo{}, false
		}
		path = strings.TrimPrefix(u.Path, "/")
	}

	repo, err := ParseRepo(strings.TrimSuffix(path, "/"))
	if err != nil {
		return Repo{}, false
	}
	return repo, true
}
