// Package config loads the ghbridge configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/log"
	"github.com/felixgeelhaar/ghbridge/internal/statefile"
	"github.com/felixgeelhaar/ghbridge/internal/trust"
)

// Environment variables that override the file.
const (
	EnvLogLevel = "GHBRIDGE_LOG_LEVEL"
	EnvClientID = "GHBRIDGE_CLIENT_ID"
	EnvStateDir = "GHBRIDGE_STATE_DIR"
	EnvConfig   = "GHBRIDGE_CONFIG"
)

// Config is the global ghbridge configuration.
type Config struct {
	LogLevel     string   `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	LogFile      string   `yaml:"log_file,omitempty" json:"log_file,omitempty"`
	ClientID     string   `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	TrustDocsURL string   `yaml:"trust_docs_url,omitempty" json:"trust_docs_url,omitempty"`
	StateDir     string   `yaml:"state_dir,omitempty" json:"state_dir,omitempty"`
	Workspaces   []string `yaml:"workspaces,omitempty" json:"workspaces,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		TrustDocsURL: trust.DefaultDocsURL,
	}
}

// DefaultPath returns $GHBRIDGE_CONFIG, or $XDG_CONFIG_HOME/ghbridge/config.yaml,
// or ~/.config/ghbridge/config.yaml, reading variables through getenv.
func DefaultPath(getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if p := getenv(EnvConfig); p != "" {
		return p, nil
	}
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "ghbridge", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := statefile.Read(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	return statefile.Write(path, cfg)
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvClientID); v != "" {
		c.ClientID = v
	}
	if v := getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, ok := log.LookupLevel(c.LogLevel); !ok {
			return bridgeerrors.NewConfigInvalidError(fmt.Sprintf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
		}
	}
	if c.TrustDocsURL != "" {
		u, err := url.Parse(c.TrustDocsURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return bridgeerrors.NewConfigInvalidError(fmt.Sprintf("trust_docs_url %q must be an http(s) URL", c.TrustDocsURL))
		}
	}
	for _, w := range c.Workspaces {
		if strings.TrimSpace(w) == "" {
			return bridgeerrors.NewConfigInvalidError("workspaces must not contain empty entries")
		}
	}
	return nil
}

// ResolveStateDir returns StateDir with "~" expanded, or the default
// state directory.
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir == "" {
		return statefile.DefaultDir()
	}
	return expandHome(c.StateDir)
}

// ResolveLogFile returns LogFile with "~" expanded.
func (c *Config) ResolveLogFile() (string, error) {
	if c.LogFile == "" {
		return "", nil
	}
	return expandHome(c.LogFile)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Keys lists the settable keys.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(*Config) string
	set func(*Config, string)
}

var accessors = map[string]accessor{
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) { c.LogLevel = v },
	},
	"log_file": {
		get: func(c *Config) string { return c.LogFile },
		set: func(c *Config, v string) { c.LogFile = v },
	},
	"client_id": {
		get: func(c *Config) string { return c.ClientID },
		set: func(c *Config, v string) { c.ClientID = v },
	},
	"trust_docs_url": {
		get: func(c *Config) string { return c.TrustDocsURL },
		set: func(c *Config, v string) { c.TrustDocsURL = v },
	},
	"state_dir": {
		get: func(c *Config) string { return c.StateDir },
		set: func(c *Config, v string) { c.StateDir = v },
	},
	"workspaces": {
		get: func(c *Config) string { return strings.Join(c.Workspaces, ",") },
		set: func(c *Config, v string) {
			c.Workspaces = nil
			for _, w := range strings.Split(v, ",") {
				if w = strings.TrimSpace(w); w != "" {
					c.Workspaces = append(c.Workspaces, w)
				}
			}
		},
	},
}

// Get returns the value of key.
func (c *Config) Get(key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", bridgeerrors.NewConfigInvalidError("unknown configuration key: " + key).
			WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
	}
	return a.get(c), nil
}

// Set assigns value to key and validates the result.
func (c *Config) Set(key, value string) error {
	a, ok := accessors[key]
	if !ok {
		return bridgeerrors.NewConfigInvalidError("unknown configuration key: " + key).
			WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
	}
	next := *c
	next.Workspaces = append([]string(nil), c.Workspaces...)
	a.set(&next, value)
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<invalid configuration: %v>", err)
	}
	return string(data)
}
