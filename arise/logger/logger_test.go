package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandlerLevelGate(t *testing.T) {
	h := NewHandler()
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	h.SetLevel(slog.LevelWarn)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestHandlerSkipsDriverChatter(t *testing.T) {
	r := slog.NewRecord(time.Now(), slog.LevelDebug, "Prepared statement cached", 0)
	assert.True(t, shouldSkipLog(&r))

	r = slog.NewRecord(time.Now(), slog.LevelInfo, "Workout logged", 0)
	assert.False(t, shouldSkipLog(&r))
}

func TestLogTypeRouting(t *testing.T) {
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0)
	r.AddAttrs(slog.String("type", "activity"))
	assert.Equal(t, TypeActivity, getLogType(&r))

	r = slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0)
	assert.Equal(t, TypeSystem, getLogType(&r))
}

func TestWithAttrsDoesNotMutateParent(t *testing.T) {
	h := NewHandler()
	child := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*CustomHandler)
	assert.Len(t, child.attrs, 1)
	assert.Empty(t, h.attrs)

	// Clones share the parent's options; a level change covers both.
	h.SetLevel(slog.LevelError)
	assert.False(t, child.Enabled(context.Background(), slog.LevelInfo))
}
