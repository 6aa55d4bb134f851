package terminal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// DefaultHistoryLimit is the number of records kept in memory.
const DefaultHistoryLimit = 1000

// OutputChannel is the log sink for the CLI. Records are kept in a bounded
// history, appended to an optional log file, and echoed to a writer while
// the channel is shown.
type OutputChannel struct {
	mu       sync.Mutex
	history  []string
	limit    int
	echo     io.Writer
	shown    bool
	path     string
	file     *os.File
	disposed bool
}

// OutputOption configures an OutputChannel
type OutputOption func(*OutputChannel)

// WithHistoryLimit bounds the in-memory history.
func WithHistoryLimit(n int) OutputOption {
	return func(o *OutputChannel) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithLogFile appends every record to path.
func WithLogFile(path string) OutputOption {
	return func(o *OutputChannel) {
		o.path = path
	}
}

// WithEcho sets the writer used while shown. Defaults to stderr.
func WithEcho(w io.Writer) OutputOption {
	return func(o *OutputChannel) {
		o.echo = w
	}
}

// WithShown starts the channel visible.
func WithShown(shown bool) OutputOption {
	return func(o *OutputChannel) {
		o.shown = shown
	}
}

// NewOutputChannel creates an OutputChannel, opening the log file if one
// was configured.
func NewOutputChannel(opts ...OutputOption) (*OutputChannel, error) {
	o := &OutputChannel{
		limit: DefaultHistoryLimit,
		echo:  os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.path != "" {
		if err := os.MkdirAll(filepath.Dir(o.path), 0o700); err != nil {
			return nil, errors.Wrapf(err, "create log directory for %s", o.path)
		}
		f, err := os.OpenFile(o.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", o.path)
		}
		o.file = f
	}
	return o, nil
}

// Path returns the log file path, or "" when records are not persisted.
func (o *OutputChannel) Path() string {
	return o.path
}

// AppendLine implements log.Sink.
func (o *OutputChannel) AppendLine(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		return
	}

	o.history = append(o.history, line)
	if over := len(o.history) - o.limit; over > 0 {
		o.history = append(o.history[:0], o.history[over:]...)
	}
	if o.file != nil {
		_, _ = fmt.Fprintln(o.file, line)
	}
	if o.shown && o.echo != nil {
		_, _ = fmt.Fprintln(o.echo, line)
	}
}

// Show replays the history and echoes new records from now on.
func (o *OutputChannel) Show() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed || o.shown {
		return
	}
	o.shown = true
	if o.echo == nil {
		return
	}
	for _, line := range o.history {
		_, _ = fmt.Fprintln(o.echo, line)
	}
}

// Hide stops echoing.
func (o *OutputChannel) Hide() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = false
}

// Clear empties the history and truncates the log file.
func (o *OutputChannel) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
	if o.file != nil {
		_ = o.file.Truncate(0)
	}
}

// Lines returns a copy of the in-memory history.
func (o *OutputChannel) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.history...)
}

// Dispose closes the log file. Later records are dropped.
func (o *OutputChannel) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		return
	}
	o.disposed = true
	if o.file != nil {
		_ = o.file.Close()
		o.file = nil
	}
}
