package host

import (
	"context"
	"sort"
	"sync"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
)

// Command names understood by the CLI host.
const (
	CommandManageTrust = "workspace.trust.manage"
)

// CommandHandler runs a registered command.
type CommandHandler func(ctx context.Context, args ...any) error

// CommandRegistry is a CommandExecutor backed by an in-process table.
type CommandRegistry struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]registration
}

type registration struct {
	id      int
	handler CommandHandler
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{handlers: make(map[string]registration)}
}

// Register binds name to handler, replacing any previous binding.
// Disposing the result unregisters this binding only; a later Register of
// the same name survives it.
func (r *CommandRegistry) Register(name string, handler CommandHandler) Disposable {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.handlers[name] = registration{id: id, handler: handler}
	return DisposeOnce(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.handlers[name]; ok && cur.id == id {
			delete(r.handlers, name)
		}
	})
}

// ExecuteCommand implements CommandExecutor.
func (r *CommandRegistry) ExecuteCommand(ctx context.Context, name string, args ...any) error {
	r.mu.RLock()
	reg, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return bridgeerrors.NewCommandNotFoundError(name)
	}
	return reg.handler(ctx, args...)
}

// Names lists the registered commands in sorted order.
func (r *CommandRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
