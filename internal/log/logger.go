package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/felixgeelhaar/ghbridge/internal/security"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	badKey          = "!BADKEY"
	maxCauseDepth   = 16
)

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Logger is the process-wide leveled logger. Every record is sanitized
// before it reaches the sink; there is no way to turn that off.
//
// Records below the configured level return before any formatting happens.
type Logger struct {
	mu    sync.RWMutex
	level Level
	sink  Sink
	now   func() time.Time

	disposeOnce sync.Once
	disposed    bool
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	if config.Sink == nil {
		config.Sink = OutputStderr()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Logger{
		level: config.Level,
		sink:  config.Sink,
		now:   config.Clock,
	}
}

// SetLevel changes the minimum level and announces the change.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()

	l.Info(fmt.Sprintf("Log level set to %s", level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// Log emits msg at level. A non-nil data value is sanitized and appended as
// indented JSON on the following line.
func (l *Logger) Log(level Level, msg string, data any) {
	if !l.Enabled(level) {
		return
	}
	l.emit(level, msg, data, nil)
}

// Debug logs a debug message. args are slog-style key/value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	if !l.Enabled(LevelDebug) {
		return
	}
	l.emit(LevelDebug, msg, argsToPayload(args), nil)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	if !l.Enabled(LevelInfo) {
		return
	}
	l.emit(LevelInfo, msg, argsToPayload(args), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	if !l.Enabled(LevelWarn) {
		return
	}
	l.emit(LevelWarn, msg, argsToPayload(args), nil)
}

// Error logs an error message.
//
// cause may be anything: an error contributes its message and, when it
// carries one, its stack trace; any other value contributes its sanitized
// serialization. Error never panics, whatever cause is.
func (l *Logger) Error(msg string, cause any, args ...any) {
	if !l.Enabled(LevelError) {
		return
	}
	l.emit(LevelError, msg, argsToPayload(args), describeCause(cause))
}

// Show reveals the sink to the user.
func (l *Logger) Show() { l.sink.Show() }

// Hide conceals the sink.
func (l *Logger) Hide() { l.sink.Hide() }

// Clear empties the sink.
func (l *Logger) Clear() { l.sink.Clear() }

// Dispose releases the sink. Later calls, and later records, are no-ops.
func (l *Logger) Dispose() {
	l.disposeOnce.Do(func() {
		l.mu.Lock()
		l.disposed = true
		l.mu.Unlock()
		l.sink.Dispose()
	})
}

// Slog returns a *slog.Logger whose records flow through this logger.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&slogHandler{logger: l})
}

func (l *Logger) emit(level Level, msg string, data any, extra []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", l.now().UTC().Format(timestampLayout), level, security.RedactString(msg))

	if data != nil {
		b.WriteByte('\n')
		b.WriteString(formatData(data))
	}
	for _, line := range extra {
		b.WriteByte('\n')
		b.WriteString(line)
	}

	l.mu.RLock()
	disposed := l.disposed
	l.mu.RUnlock()
	if disposed {
		return
	}
	l.sink.AppendLine(b.String())
}

// formatData renders a sanitized, indented JSON form of data. Serialization
// failures are reported inline instead of being returned.
func formatData(data any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = serializationError(fmt.Errorf("%v", r))
		}
	}()

	clean, err := security.RedactValue(data)
	if err != nil {
		return serializationError(err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(clean); err != nil {
		return serializationError(err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func serializationError(err error) string {
	return fmt.Sprintf("[Error serializing data: %s]", security.RedactString(err.Error()))
}

// describeCause renders the lines appended to an error record.
func describeCause(cause any) (lines []string) {
	defer func() {
		if r := recover(); r != nil {
			lines = append(lines, fmt.Sprintf("Error: [unprintable error value: %s]", security.RedactString(fmt.Sprint(r))))
		}
	}()

	switch c := cause.(type) {
	case nil:
		return nil
	case error:
		lines = append(lines, "Error: "+security.RedactString(c.Error()))
		var st stackTracer
		if errors.As(c, &st) {
			trace := strings.TrimLeft(fmt.Sprintf("%+v", st.StackTrace()), "\n")
			if trace != "" {
				lines = append(lines, "Stack: "+security.RedactString(trace))
			}
		}
		return append(lines, causeChain(c)...)
	default:
		return []string{"Error: " + formatData(c)}
	}
}

// causeChain lists the distinct messages of the errors wrapped by err.
func causeChain(err error) []string {
	var lines []string
	prev := err.Error()
	for i, next := 0, errors.Unwrap(err); next != nil && i < maxCauseDepth; i, next = i+1, errors.Unwrap(next) {
		msg := next.Error()
		if msg == prev {
			continue
		}
		lines = append(lines, "Caused by: "+security.RedactString(msg))
		prev = msg
	}
	return lines
}

// argsToPayload folds slog-style key/value pairs into a map. A dangling
// value, or a non-string key, is stored under !BADKEY.
func argsToPayload(args []any) any {
	if len(args) == 0 {
		return nil
	}

	payload := make(map[string]any, (len(args)+1)/2)
	for len(args) > 0 {
		switch key := args[0].(type) {
		case slog.Attr:
			payload[key.Key] = attrValue(key.Value)
			args = args[1:]
		case string:
			if len(args) == 1 {
				payload[badKey] = key
				args = nil
				continue
			}
			payload[key] = args[1]
			args = args[2:]
		default:
			payload[badKey] = key
			args = args[1:]
		}
	}
	return payload
}
