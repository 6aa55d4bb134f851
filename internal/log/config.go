package log

import (
	"io"
	"os"
	"sync"
	"time"
)

// Sink receives rendered log records. It is the rendering side of the
// logger: where lines go and whether they are visible.
type Sink interface {
	AppendLine(line string)
	Show()
	Hide()
	Clear()
	Dispose()
}

// Output is a Sink that writes every record to an io.Writer.
// Show, Hide and Clear have nothing to toggle and are no-ops.
type Output struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) *Output {
	return &Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() *Output {
	return &Output{writer: os.Stderr}
}

// Writer returns the underlying io.Writer
func (o *Output) Writer() io.Writer {
	return o.writer
}

// AppendLine writes line followed by a newline.
func (o *Output) AppendLine(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.writer == nil {
		return
	}
	_, _ = io.WriteString(o.writer, line+"\n")
}

func (o *Output) Show()  {}
func (o *Output) Hide()  {}
func (o *Output) Clear() {}

// Dispose closes the writer when it is closable and not a standard stream.
func (o *Output) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.writer.(io.Closer); ok && o.writer != os.Stdout && o.writer != os.Stderr {
		_ = c.Close()
	}
	o.writer = nil
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Sink is where rendered records are written
	Sink Sink

	// Clock supplies record timestamps; defaults to time.Now
	Clock func() time.Time
}

// DefaultConfig returns a sensible default configuration
// Logs at INFO level to stderr
func DefaultConfig() Config {
	return Config{
		Level: LevelInfo,
		Sink:  OutputStderr(),
		Clock: time.Now,
	}
}
