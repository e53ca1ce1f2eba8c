package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	logger := slog.New(NewMultiHandler(
		NewStdoutHandler(&infoBuf, "info"),
		NewStdoutHandler(&errBuf, "error"),
	))

	logger.Info("dream visualized", "style", "Cyberpunk")
	logger.Error("generation failed", "error", "boom")

	assert.Contains(t, infoBuf.String(), "dream visualized")
	assert.Contains(t, infoBuf.String(), "generation failed")
	assert.NotContains(t, errBuf.String(), "dream visualized")
	assert.Contains(t, errBuf.String(), "generation failed")
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMultiHandler(NewStdoutHandler(&buf, "info"))).With("app_id", "dreamscape")
	logger.Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dreamscape", line["app_id"])
}

func TestPGHandler_OnlyErrors(t *testing.T) {
	h := &PGHandler{}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestToSystemLog_MapsKnownAttrs(t *testing.T) {
	rec := slog.NewRecord(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), slog.LevelError, "visualize failed", 0)
	rec.AddAttrs(
		slog.String("trace_id", "req-1"),
		slog.String("user_id", "u-1"),
		slog.String("action", "visualize"),
		slog.String("error", "timeout"),
		slog.Int("latency_ms", 120),
		slog.String("style", "Ukiyo-e"),
		slog.String("path", "/api/p/dreams/visualize"),
	)

	entry := toSystemLog(rec, []slog.Attr{slog.String("app_id", "dreamscape")})

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "dreamscape", entry.AppID)
	assert.Equal(t, "req-1", entry.TraceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, "visualize", entry.Action)
	assert.Equal(t, "/api/p/dreams/visualize", entry.Path)
	assert.Equal(t, "timeout", entry.Error)
	assert.Equal(t, 120, entry.LatencyMs)
	assert.JSONEq(t, `{"style":"Ukiyo-e"}`, string(entry.Extra))
}

func TestPGHandler_WithAttrsSharesBuffer(t *testing.T) {
	root := &PGHandler{}
	child := root.WithAttrs([]slog.Attr{slog.String("app_id", "dreamscape")})

	rec := slog.NewRecord(time.Now(), slog.LevelError, "x", 0)
	require.NoError(t, child.Handle(context.Background(), rec))

	require.Len(t, root.buffer, 1)
	assert.Equal(t, "dreamscape", root.buffer[0].AppID)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler_FailingSinkDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{}, nil, NewStdoutHandler(&buf, "info"))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "still logged", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "still logged")
	assert.Len(t, h.handlers, 2)
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), retentionCutoff(now, 30))
}
