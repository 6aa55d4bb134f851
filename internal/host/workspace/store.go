// Package workspace implements the host workspace: the open folders and
// the user's record of which folders are trusted.
package workspace

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/ghbridge/internal/statefile"
)

// TrustFileName is the trust store file inside the state directory.
const TrustFileName = "trust.yaml"

type trustFile struct {
	Trusted []string `yaml:"trusted_folders"`
}

// TrustStore is the list of folders the user trusts. A folder is trusted
// when it or one of its ancestors is listed.
type TrustStore struct {
	path string

	mu    sync.RWMutex
	paths []string
}

// NewTrustStore creates a store backed by path. Call Load to read it.
func NewTrustStore(path string) *TrustStore {
	return &TrustStore{path: path}
}

// Path returns the backing file.
func (s *TrustStore) Path() string {
	return s.path
}

// Load replaces the in-memory list with the file contents. A missing file
// is an empty list.
func (s *TrustStore) Load() error {
	var f trustFile
	if _, err := statefile.Read(s.path, &f); err != nil {
		return err
	}

	paths := make([]string, 0, len(f.Trusted))
	for _, p := range f.Trusted {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}

	s.mu.Lock()
	s.paths = dedupe(paths)
	s.mu.Unlock()
	return nil
}

// IsTrusted reports whether path or one of its ancestors is listed.
func (s *TrustStore) IsTrusted(path string) bool {
	path = filepath.Clean(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.paths {
		if within(p, path) {
			return true
		}
	}
	return false
}

// Add lists path and saves the store.
func (s *TrustStore) Add(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.paths {
		if p == path {
			return nil
		}
	}
	next := dedupe(append(append([]string(nil), s.paths...), path))
	if err := statefile.Write(s.path, trustFile{Trusted: next}); err != nil {
		return err
	}
	s.paths = next
	return nil
}

// Remove unlists path and saves the store. Ancestors stay listed.
func (s *TrustStore) Remove(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]string, 0, len(s.paths))
	for _, p := range s.paths {
		if p != path {
			next = append(next, p)
		}
	}
	if len(next) == len(s.paths) {
		return nil
	}
	if err := statefile.Write(s.path, trustFile{Trusted: next}); err != nil {
		return err
	}
	s.paths = next
	return nil
}

// Paths returns the listed folders in sorted order.
func (s *TrustStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.paths...)
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func dedupe(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for i, p := range paths {
		if i > 0 && p == paths[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
