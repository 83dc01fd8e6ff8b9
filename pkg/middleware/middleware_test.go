package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/hotserve/pkg/logger"
	"github.com/shashiranjanraj/hotserve/pkg/middleware"
	"github.com/shashiranjanraj/hotserve/pkg/reqid"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logger.L = prev })
	return &buf
}

func TestRecovery(t *testing.T) {
	logs := captureLogs(t)
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("route handler exploded")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body["message"])
	assert.Contains(t, logs.String(), "route handler exploded")
}

func TestLoggerTagsRequestID(t *testing.T) {
	logs := captureLogs(t)

	var inner *slog.Logger
	h := reqid.Middleware()(middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = logger.WithCtx(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/tea", nil)
	req.Header.Set(reqid.Header, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, inner)
	assert.NotSame(t, logger.L, inner)

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, len("short and stout"), line["bytes"])
}
