package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/hotserve/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWatchSetDeduplicates(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "app.yaml")
	writeConfig(t, cfg, "watch:\n  paths: [\""+dir+"\"]\n")

	snap, err := config.Load(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{cfg, dir}, watchSet(snap, []string{dir, cfg}))
}

func TestRouteListCommand(t *testing.T) {
	t.Cleanup(func() { configFiles = nil })

	// Execute twice so flag state from one run cannot leak into the next.
	for _, route := range []string{"/hello", "/again"} {
		cfg := filepath.Join(t.TempDir(), "app.yaml")
		writeConfig(t, cfg, "routes:\n  - {name: r, path: "+route+"}\n")

		configFiles = nil
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"route:list", "-c", cfg})
		require.NoError(t, rootCmd.Execute())

		assert.Contains(t, out.String(), "METHOD")
		assert.Contains(t, out.String(), route)
		assert.Contains(t, out.String(), "/healthz")
	}
}

func TestRunStartWatchReloadsOnConfigChange(t *testing.T) {
	for _, k := range []string{config.EnvHTTPAddr, config.EnvGRPCAddr, config.EnvDBDriver, config.EnvRedisAddr} {
		t.Setenv(k, "")
	}
	cfg := filepath.Join(t.TempDir(), "app.yaml")
	writeConfig(t, cfg, "app:\n  name: demo\nserver:\n  http_addr: \"127.0.0.1:0\"\n")

	snap, err := config.Load(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	errc := make(chan error, 1)
	go func() {
		errc <- runStart(ctx, snap, startOptions{watch: true, debounce: 50 * time.Millisecond}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "demo ready")
	}, 5*time.Second, 10*time.Millisecond)

	// Save atomically so the reload never reads a half-written file.
	tmp := cfg + ".tmp"
	writeConfig(t, tmp, "app:\n  name: demo\nserver:\n  http_addr: \"127.0.0.1:0\"\nroutes:\n  - path: /new\n")
	require.NoError(t, os.Rename(tmp, cfg))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "reloaded (run #2)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runStart did not return after cancel")
	}
}
