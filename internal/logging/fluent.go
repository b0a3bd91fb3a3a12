package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Poster is the part of *fluent.Fluent the handler uses.
type Poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler ships records to Fluent Bit as flat maps tagged with the
// lower-case level name (the client adds its tag prefix).
type FluentHandler struct {
	client Poster
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

func NewFluentHandler(client Poster, level slog.Leveler) *FluentHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &FluentHandler{client: client, level: level}
}

func (h *FluentHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		put(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		put(data, h.group, a)
		return true
	})
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	data["level"] = strings.ToLower(r.Level.String())
	data["message"] = r.Message
	data["timestamp"] = ts.UTC().Format(time.RFC3339Nano)
	return h.client.Post(strings.ToLower(r.Level.String()), data)
}

func (h *FluentHandler) WithAttrs(as []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range as {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	if out.group != "" {
		out.group += "." + name
	} else {
		out.group = name
	}
	return &out
}

// put flattens groups into dotted keys.
func put(dst map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			put(dst, key, g)
		}
		return
	}
	switch v := a.Value.Any().(type) {
	case error:
		dst[key] = v.Error()
	case time.Duration:
		dst[key] = v.String()
	case time.Time:
		dst[key] = v.UTC().Format(time.RFC3339Nano)
	default:
		dst[key] = v
	}
}
