// Package statefile reads and writes the small YAML files ghbridge keeps
// under its state directory.
package statefile

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
)

// DefaultDir returns $XDG_STATE_HOME/ghbridge or ~/.local/state/ghbridge.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home directory")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "ghbridge"), nil
}

// Read decodes the YAML file at path into v. It reports false, with no
// error, when the file does not exist.
func Read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, bridgeerrors.Wrap(bridgeerrors.ErrCodeFileReadFailed, "failed to read "+path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, bridgeerrors.NewFileUnmarshalError(path, "YAML", err)
	}
	return true, nil
}

// Write encodes v as YAML and replaces path atomically with a 0600 file.
func Write(path string, v any) (err error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileMarshal, "failed to encode "+path, err)
	}
	if err := enc.Close(); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileMarshal, "failed to encode "+path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeDirectoryFailed, "failed to create "+dir, err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	if err = tmp.Close(); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	return nil
}

// Remove deletes path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return bridgeerrors.Wrap(bridgeerrors.ErrCodeFileWriteFailed, "failed to remove "+path, err)
	}
	return nil
}
