package log

import (
	"context"
	"log/slog"
)

// slogHandler adapts Logger to slog.Handler so libraries that log through
// log/slog get the same threshold and redaction.
type slogHandler struct {
	logger *Logger
	attrs  []slog.Attr
	groups []string
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(fromSlogLevel(level))
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	payload := make(map[string]any)
	for _, a := range h.attrs {
		addAttr(payload, a)
	}

	target := payload
	for _, g := range h.groups {
		next, ok := target[g].(map[string]any)
		if !ok {
			next = make(map[string]any)
			target[g] = next
		}
		target = next
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})
	pruneEmpty(payload)

	var data any
	if len(payload) > 0 {
		data = payload
	}
	h.logger.Log(fromSlogLevel(r.Level), r.Message, data)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	if len(h.groups) > 0 {
		// Attributes added inside a group nest under it.
		nested := make([]any, 0, len(attrs))
		for _, a := range attrs {
			nested = append(nested, a)
		}
		grouped := slog.Group(h.groups[len(h.groups)-1], nested...)
		for i := len(h.groups) - 2; i >= 0; i-- {
			grouped = slog.Group(h.groups[i], grouped)
		}
		clone.attrs = append(append([]slog.Attr{}, h.attrs...), grouped)
		return &clone
	}
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func addAttr(dst map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key == "" {
			for _, ga := range a.Value.Group() {
				addAttr(dst, ga)
			}
			return
		}
		sub, ok := dst[a.Key].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			dst[a.Key] = sub
		}
		for _, ga := range a.Value.Group() {
			addAttr(sub, ga)
		}
		return
	}
	dst[a.Key] = attrValue(a.Value)
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		m := make(map[string]any)
		for _, a := range v.Group() {
			addAttr(m, a)
		}
		return m
	}
	return v.Any()
}

// pruneEmpty drops group maps that ended up with no attributes.
func pruneEmpty(m map[string]any) {
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			pruneEmpty(sub)
			if len(sub) == 0 {
				delete(m, k)
			}
		}
	}
}
