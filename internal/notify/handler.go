// Package notify turns failures into log records and user prompts.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// Prompt actions offered with every handled error.
const (
	ActionShowLogs = "Show Logs"
	ActionDismiss  = "Dismiss"
)

// Defaults used when an ErrorContext leaves a field empty.
const (
	UnknownComponent = "UnknownComponent"
	UnknownOperation = "UnknownOperation"
)

// Logger is the subset of the application logger the handler needs.
type Logger interface {
	Error(msg string, cause any, args ...any)
	Warn(msg string, args ...any)
	Show()
}

// ErrorContext describes where an error was raised.
type ErrorContext struct {
	Operation string
	Component string
	Metadata  map[string]any
}

func (ec *ErrorContext) resolve() (component, operation string, metadata map[string]any) {
	component, operation = UnknownComponent, UnknownOperation
	if ec == nil {
		return component, operation, nil
	}
	if ec.Component != "" {
		component = ec.Component
	}
	if ec.Operation != "" {
		operation = ec.Operation
	}
	return component, operation, ec.Metadata
}

// Handler logs errors and shows them to the user. It never panics and
// never returns an error: a prompt that cannot be shown is logged and
// otherwise ignored.
type Handler struct {
	logger   Logger
	prompter host.Prompter
	rules    []Rule

	pending sync.WaitGroup
}

// Option configures a Handler
type Option func(*Handler)

// WithRules replaces the classification table.
func WithRules(rules []Rule) Option {
	return func(h *Handler) {
		h.rules = rules
	}
}

// NewHandler creates a Handler
func NewHandler(logger Logger, prompter host.Prompter, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		prompter: prompter,
		rules:    DefaultRules(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Classify returns the user-facing sentence for v.
func (h *Handler) Classify(v any) string {
	return Classify(h.rules, v)
}

// Handle logs cause at ERROR and then shows the classified message at sev
// with "Show Logs" and "Dismiss" actions.
func (h *Handler) Handle(ctx context.Context, cause any, ec *ErrorContext, sev host.Severity) {
	if !h.record(cause, ec) {
		return
	}
	h.present(ctx, cause, sev)
}

// HandleWithResult handles cause and returns false, for call sites that
// report success as a boolean.
func (h *Handler) HandleWithResult(ctx context.Context, cause any, ec *ErrorContext, sev host.Severity) bool {
	h.Handle(ctx, cause, ec, sev)
	return false
}

// Wait blocks until prompts started by Wrap have finished.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// ShowValidationError shows msg as an error without logging it.
func (h *Handler) ShowValidationError(ctx context.Context, msg string) {
	h.show(ctx, host.Message{Severity: host.SeverityError, Text: msg})
}

// ShowSuccess shows msg as information without logging it.
func (h *Handler) ShowSuccess(ctx context.Context, msg string) {
	h.show(ctx, host.Message{Severity: host.SeverityInfo, Text: msg})
}

// ShowInfo shows msg with actions and returns the chosen one, or "" when
// the prompt was dismissed.
func (h *Handler) ShowInfo(ctx context.Context, msg string, actions ...string) string {
	return h.show(ctx, host.Message{Severity: host.SeverityInfo, Text: msg, Actions: actions})
}

// record logs cause. It reports false only if logging itself blew up.
func (h *Handler) record(cause any, ec *ErrorContext) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	component, operation, metadata := ec.resolve()
	args := []any{"component", component, "operation", operation}
	if metadata != nil {
		args = append(args, "metadata", metadata)
	}
	h.logger.Error(fmt.Sprintf("Error in %s.%s", component, operation), cause, args...)
	return true
}

func (h *Handler) present(ctx context.Context, cause any, sev host.Severity) {
	choice := h.show(ctx, host.Message{
		Severity: sev,
		Text:     h.Classify(cause),
		Actions:  []string{ActionShowLogs, ActionDismiss},
	})
	if choice == ActionShowLogs {
		h.logger.Show()
	}
}

// presentAsync logs synchronously and prompts on a separate goroutine.
func (h *Handler) presentAsync(ctx context.Context, cause any, ec *ErrorContext) {
	if !h.record(cause, ec) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		h.present(ctx, cause, host.SeverityError)
	}()
}

func (h *Handler) show(ctx context.Context, msg host.Message) (choice string) {
	defer func() {
		if r := recover(); r != nil {
			h.warn("Prompt panicked", "panic", fmt.Sprint(r))
			choice = ""
		}
	}()

	if h.prompter == nil {
		return ""
	}
	choice, err := h.prompter.Show(ctx, msg)
	if err != nil {
		h.warn("Failed to display message", "error", err.Error(), "severity", msg.Severity.String())
		return ""
	}
	return choice
}

func (h *Handler) warn(msg string, args ...any) {
	defer func() { _ = recover() }()
	h.logger.Warn(msg, args...)
}

// Wrap runs op. On an error return or a panic the failure is logged at
// once, the prompt is shown in the background, and (zero, false) is
// returned.
func Wrap[T any](h *Handler, ctx context.Context, ec *ErrorContext, op func() (T, error)) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.presentAsync(ctx, r, ec)
			var zero T
			result, ok = zero, false
		}
	}()

	v, err := op()
	if err != nil {
		h.presentAsync(ctx, err, ec)
		var zero T
		return zero, false
	}
	return v, true
}

// WrapAsync runs op and, on failure, finishes handling the error (log and
// prompt) before returning (zero, false).
func WrapAsync[T any](h *Handler, ctx context.Context, ec *ErrorContext, op func(context.Context) (T, error)) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.Handle(ctx, r, ec, host.SeverityError)
			var zero T
			result, ok = zero, false
		}
	}()

	v, err := op(ctx)
	if err != nil {
		h.Handle(ctx, err, ec, host.SeverityError)
		var zero T
		return zero, false
	}
	return v, true
}
