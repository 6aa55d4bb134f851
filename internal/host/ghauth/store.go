// Package ghauth is the GitHub identity provider for the CLI host. It signs
// users in with the OAuth device flow and keeps sessions in a local file.
package ghauth

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/ghbridge/internal/host"
	"github.com/felixgeelhaar/ghbridge/internal/statefile"
)

// SessionsFileName is the session store file inside the state directory.
const SessionsFileName = "sessions.yaml"

// Record is a stored session.
type Record struct {
	ID          string           `yaml:"id"`
	AccessToken string           `yaml:"access_token"`
	Account     host.AccountInfo `yaml:"account"`
	Scopes      []string         `yaml:"scopes"`
	CreatedAt   time.Time        `yaml:"created_at"`
}

// Session converts the record for the host API.
func (r Record) Session() *host.AuthSession {
	return &host.AuthSession{
		ID:          r.ID,
		AccessToken: r.AccessToken,
		Account:     r.Account,
		Scopes:      append([]string(nil), r.Scopes...),
	}
}

type sessionsFile struct {
	Sessions map[string]Record `yaml:"sessions"`
}

// Store keeps one session per provider in a YAML file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the session stored for providerID, or nil.
func (s *Store) Get(providerID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := f.Sessions[providerID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put stores rec for providerID, replacing any previous session.
func (s *Store) Put(providerID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.Sessions[providerID] = rec
	return statefile.Write(s.path, f)
}

// Delete removes the session for providerID and reports whether one existed.
func (s *Store) Delete(providerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return false, err
	}
	if _, ok := f.Sessions[providerID]; !ok {
		return false, nil
	}
	delete(f.Sessions, providerID)
	if len(f.Sessions) == 0 {
		return true, statefile.Remove(s.path)
	}
	return true, statefile.Write(s.path, f)
}

func (s *Store) read() (sessionsFile, error) {
	var f sessionsFile
	if _, err := statefile.Read(s.path, &f); err != nil {
		return sessionsFile{}, err
	}
	if f.Sessions == nil {
		f.Sessions = make(map[string]Record)
	}
	return f, nil
}
