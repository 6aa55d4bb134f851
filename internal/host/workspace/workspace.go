package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// Workspace is the set of folders a command operates on. It implements
// host.Workspace.
type Workspace struct {
	folders []string
	store   *TrustStore

	grants host.Emitter[struct{}]

	mu      sync.Mutex
	trusted bool
}

// New resolves folders to absolute directories and binds them to store.
func New(store *TrustStore, folders []string) (*Workspace, error) {
	resolved := make([]string, 0, len(folders))
	seen := make(map[string]bool, len(folders))
	for _, f := range folders {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, bridgeerrors.NewFolderNotFoundError(f)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return nil, bridgeerrors.NewFolderNotFoundError(abs)
		}
		if !seen[abs] {
			seen[abs] = true
			resolved = append(resolved, abs)
		}
	}

	w := &Workspace{folders: resolved, store: store}
	w.trusted = w.computeTrusted()
	return w, nil
}

// Folders implements host.Workspace.
func (w *Workspace) Folders() []string {
	return append([]string(nil), w.folders...)
}

// IsTrusted implements host.Workspace. The workspace is trusted when it has
// at least one folder and every folder is trusted.
func (w *Workspace) IsTrusted() bool {
	return w.computeTrusted()
}

// OnDidGrantTrust implements host.Workspace.
func (w *Workspace) OnDidGrantTrust(fn func()) host.Disposable {
	return w.grants.Subscribe(func(struct{}) { fn() })
}

// Grant trusts every folder and fires the grant event.
func (w *Workspace) Grant(_ context.Context) error {
	if len(w.folders) == 0 {
		return bridgeerrors.NewNoWorkspaceError()
	}
	for _, f := range w.folders {
		if err := w.store.Add(f); err != nil {
			return bridgeerrors.Wrap(bridgeerrors.ErrCodeTrustStoreWrite, "failed to save workspace trust", err)
		}
	}
	w.update()
	return nil
}

// Revoke removes every folder from the trust store.
func (w *Workspace) Revoke(_ context.Context) error {
	for _, f := range w.folders {
		if err := w.store.Remove(f); err != nil {
			return bridgeerrors.Wrap(bridgeerrors.ErrCodeTrustStoreWrite, "failed to save workspace trust", err)
		}
	}
	w.update()
	return nil
}

// Watch reloads the trust store whenever its file changes and fires the
// grant event when the workspace becomes trusted. It blocks until ctx is
// cancelled, and stops with an error when the changed file cannot be read.
func (w *Workspace) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create state directory %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create trust store watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if err := w.store.Load(); err != nil {
				return errors.Wrap(err, "reload trust store")
			}
			w.update()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "trust store watcher")
		}
	}
}

// update records the current trust flag and fires the grant event on a
// false to true transition.
func (w *Workspace) update() {
	now := w.computeTrusted()

	w.mu.Lock()
	was := w.trusted
	w.trusted = now
	w.mu.Unlock()

	if !was && now {
		w.grants.Fire(struct{}{})
	}
}

func (w *Workspace) computeTrusted() bool {
	if len(w.folders) == 0 {
		return false
	}
	for _, f := range w.folders {
		if !w.store.IsTrusted(f) {
			return false
		}
	}
	return true
}

// ManageTrustCommand returns the handler for host.CommandManageTrust. It
// asks the user to confirm and then grants trust.
func ManageTrustCommand(w *Workspace, prompter host.Prompter) host.CommandHandler {
	return func(ctx context.Context, _ ...any) error {
		if len(w.folders) == 0 {
			return bridgeerrors.NewNoWorkspaceError()
		}
		if w.IsTrusted() {
			return nil
		}

		choice, err := prompter.Show(ctx, host.Message{
			Severity: host.SeverityWarning,
			Text:     "Trust the authors of the files in this workspace?",
			Detail:   strings.Join(w.folders, "\n"),
			Modal:    true,
			Actions:  []string{ActionTrust, ActionCancel},
		})
		if err != nil {
			return errors.Wrap(err, "show trust confirmation")
		}
		if choice != ActionTrust {
			return nil
		}
		return w.Grant(ctx)
	}
}

// Trust confirmation actions.
const (
	ActionTrust  = "Trust"
	ActionCancel = "Cancel"
)
