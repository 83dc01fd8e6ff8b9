package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/hotserve/pkg/logger"
)

func TestSetup_ProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	closeLog, err := logger.Setup(logger.Options{Env: "production", Output: &buf})
	require.NoError(t, err)
	defer closeLog()

	logger.Info("server ready", "addr", ":8080")
	logger.Debug("hidden at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "server ready", rec["msg"])
	assert.Equal(t, ":8080", rec["addr"])
}

func TestSetup_LocalLogsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	closeLog, err := logger.Setup(logger.Options{Env: "local", Output: &buf})
	require.NoError(t, err)
	defer closeLog()

	logger.Debug("change accepted", "path", "app.yaml")
	assert.Contains(t, buf.String(), `msg="change accepted"`)
	assert.Contains(t, buf.String(), "path=app.yaml")
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	_, err := logger.Setup(logger.Options{Level: "loud"})
	assert.Error(t, err)
}

func TestWithCtxFallsBackToDefault(t *testing.T) {
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))

	tagged := logger.L.With("request_id", "abc")
	ctx := logger.InjectLogger(context.Background(), tagged)
	assert.Same(t, tagged, logger.WithCtx(ctx))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := logger.NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("component", "test")

	log.Info("only a")
	log.Warn("both")

	assert.Contains(t, a.String(), "only a")
	assert.Contains(t, a.String(), "both")
	assert.NotContains(t, b.String(), "only a")
	assert.Contains(t, b.String(), "component=test")
}
