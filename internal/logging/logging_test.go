package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshamsu/dlink-colombo/internal/config"
)

type post struct {
	tag  string
	data map[string]interface{}
}

type fakePoster struct{ posts []post }

func (f *fakePoster) Post(tag string, m interface{}) error {
	f.posts = append(f.posts, post{tag: tag, data: m.(map[string]interface{})})
	return nil
}

func TestFluentHandlerFlattensAttrs(t *testing.T) {
	fp := &fakePoster{}
	log := slog.New(NewFluentHandler(fp, slog.LevelInfo)).With("trace_id", "t1")

	log.Debug("dropped")
	log.WithGroup("upload").Warn("image failed", "name", "a.jpg", "error", errors.New("boom"))

	require.Len(t, fp.posts, 1)
	p := fp.posts[0]
	assert.Equal(t, "warn", p.tag)
	assert.Equal(t, "image failed", p.data["message"])
	assert.Equal(t, "t1", p.data["trace_id"])
	assert.Equal(t, "a.jpg", p.data["upload.name"])
	assert.Equal(t, "boom", p.data["upload.error"])
	assert.NotEmpty(t, p.data["timestamp"])
}

func TestFanoutRespectsLevels(t *testing.T) {
	var buf bytes.Buffer
	fp := &fakePoster{}
	std := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(Fanout(std, NewFluentHandler(fp, slog.LevelError)))

	log.Info("saved", "id", "x")
	assert.Contains(t, buf.String(), "id=x")
	assert.Empty(t, fp.posts)

	log.Error("failed")
	assert.Len(t, fp.posts, 1)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	defer func() { _ = closeFn() }()
	log.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(WithLogger(context.Background(), l)))
}
