package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/host"
	"github.com/felixgeelhaar/ghbridge/internal/statefile"
)

func mkdirs(t *testing.T, root string, names ...string) []string {
	t.Helper()
	out := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(p, 0o755))
		out = append(out, p)
	}
	return out
}

func TestTrustStore_Ancestors(t *testing.T) {
	root := t.TempDir()
	store := NewTrustStore(filepath.Join(root, "state", TrustFileName))
	require.NoError(t, store.Load())

	assert.False(t, store.IsTrusted("/src/project"))

	require.NoError(t, store.Add("/src"))
	assert.True(t, store.IsTrusted("/src"))
	assert.True(t, store.IsTrusted("/src/project/sub"))
	assert.False(t, store.IsTrusted("/srcother"))
	assert.False(t, store.IsTrusted("/"))

	reloaded := NewTrustStore(store.Path())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"/src"}, reloaded.Paths())

	require.NoError(t, store.Add("/src/"))
	assert.Len(t, store.Paths(), 1, "duplicates collapse")

	require.NoError(t, store.Remove("/src"))
	assert.False(t, store.IsTrusted("/src/project"))
	require.NoError(t, store.Remove("/never-added"))
}

func TestTrustStore_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), TrustFileName)
	require.NoError(t, os.WriteFile(path, []byte("trusted_folders: {"), 0o600))

	err := NewTrustStore(path).Load()
	require.Error(t, err)
	assert.True(t, bridgeerrors.HasCode(err, bridgeerrors.ErrCodeFileUnmarshal))
}

func TestNew_ValidatesFolders(t *testing.T) {
	root := t.TempDir()
	store := NewTrustStore(filepath.Join(root, TrustFileName))

	_, err := New(store, []string{filepath.Join(root, "missing")})
	require.Error(t, err)
	assert.Equal(t, bridgeerrors.ErrCodeTrustFolderNotFound, bridgeerrors.CodeOf(err))

	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = New(store, []string{file})
	require.Error(t, err)

	dirs := mkdirs(t, root, "a")
	ws, err := New(store, []string{dirs[0], dirs[0]})
	require.NoError(t, err)
	assert.Equal(t, dirs, ws.Folders())
}

func TestWorkspace_TrustRequiresEveryFolder(t *testing.T) {
	root := t.TempDir()
	dirs := mkdirs(t, root, "a", "b")
	store := NewTrustStore(filepath.Join(root, "state", TrustFileName))
	ws, err := New(store, dirs)
	require.NoError(t, err)

	assert.False(t, ws.IsTrusted())

	require.NoError(t, store.Add(dirs[0]))
	assert.False(t, ws.IsTrusted())

	require.NoError(t, store.Add(dirs[1]))
	assert.True(t, ws.IsTrusted())

	empty, err := New(store, nil)
	require.NoError(t, err)
	assert.False(t, empty.IsTrusted(), "no folders is never trusted")
}

func TestWorkspace_GrantFiresOnce(t *testing.T) {
	root := t.TempDir()
	dirs := mkdirs(t, root, "proj")
	ws, err := New(NewTrustStore(filepath.Join(root, "state", TrustFileName)), dirs)
	require.NoError(t, err)

	grants := 0
	sub := ws.OnDidGrantTrust(func() { grants++ })
	defer sub.Dispose()

	require.NoError(t, ws.Grant(context.Background()))
	require.NoError(t, ws.Grant(context.Background()))
	assert.True(t, ws.IsTrusted())
	assert.Equal(t, 1, grants)

	require.NoError(t, ws.Revoke(context.Background()))
	assert.False(t, ws.IsTrusted())
	require.NoError(t, ws.Grant(context.Background()))
	assert.Equal(t, 2, grants)
}

func TestWorkspace_GrantWithoutFolders(t *testing.T) {
	ws, err := New(NewTrustStore(filepath.Join(t.TempDir(), TrustFileName)), nil)
	require.NoError(t, err)

	err = ws.Grant(context.Background())
	assert.Equal(t, bridgeerrors.ErrCodeTrustNoWorkspace, bridgeerrors.CodeOf(err))
}

func TestWorkspace_WatchPicksUpExternalGrant(t *testing.T) {
	root := t.TempDir()
	dirs := mkdirs(t, root, "proj")
	storePath := filepath.Join(root, "state", TrustFileName)
	ws, err := New(NewTrustStore(storePath), dirs)
	require.NoError(t, err)

	var grants atomic.Int32
	ws.OnDidGrantTrust(func() { grants.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Watch(ctx) }()

	// Another process trusts the folder.
	require.Eventually(t, func() bool {
		_ = statefile.Write(storePath, trustFile{Trusted: dirs})
		return grants.Load() == 1
	}, 5*time.Second, 50*time.Millisecond)
	assert.True(t, ws.IsTrusted())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWorkspace_WatchReportsUnreadableStore(t *testing.T) {
	root := t.TempDir()
	dirs := mkdirs(t, root, "proj")
	storePath := filepath.Join(root, "state", TrustFileName)
	ws, err := New(NewTrustStore(storePath), dirs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ws.Watch(ctx) }()

	var watchErr error
	require.Eventually(t, func() bool {
		_ = os.WriteFile(storePath, []byte("trusted: [unterminated\n"), 0o600)
		select {
		case watchErr = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	require.Error(t, watchErr)
	assert.Contains(t, watchErr.Error(), "reload trust store")
	assert.False(t, ws.IsTrusted())
}

type answerPrompter struct {
	answer string
	err    error
	shown  int
}

func (p *answerPrompter) Show(context.Context, host.Message) (string, error) {
	p.shown++
	return p.answer, p.err
}

func TestManageTrustCommand(t *testing.T) {
	tests := []struct {
		name        string
		prompter    *answerPrompter
		wantErr     bool
		wantTrusted bool
	}{
		{name: "confirmed", prompter: &answerPrompter{answer: ActionTrust}, wantTrusted: true},
		{name: "cancelled", prompter: &answerPrompter{answer: ActionCancel}},
		{name: "dismissed", prompter: &answerPrompter{}},
		{name: "prompt failure", prompter: &answerPrompter{err: errors.New("no tty")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			ws, err := New(NewTrustStore(filepath.Join(root, "state", TrustFileName)), mkdirs(t, root, "proj"))
			require.NoError(t, err)

			registry := host.NewCommandRegistry()
			registry.Register(host.CommandManageTrust, ManageTrustCommand(ws, tt.prompter))

			err = registry.ExecuteCommand(context.Background(), host.CommandManageTrust)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantTrusted, ws.IsTrusted())
			assert.Equal(t, 1, tt.prompter.shown)
		})
	}
}

func TestManageTrustCommand_AlreadyTrusted(t *testing.T) {
	root := t.TempDir()
	ws, err := New(NewTrustStore(filepath.Join(root, "state", TrustFileName)), mkdirs(t, root, "proj"))
	require.NoError(t, err)
	require.NoError(t, ws.Grant(context.Background()))

	p := &answerPrompter{}
	require.NoError(t, ManageTrustCommand(ws, p)(context.Background()))
	assert.Zero(t, p.shown)
}
