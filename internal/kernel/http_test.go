package kernel_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/internal/kernel"
	"github.com/shashiranjanraj/hotserve/pkg/reqid"
	"github.com/shashiranjanraj/hotserve/pkg/router"
)

const appYAML = `
app:
  name: demo
routes:
  - name: hello
    path: /hello
    body: '{"msg":"hi"}'
  - name: make
    method: POST
    path: /things
    status: 201
    content_type: text/plain
    body: created
graphql:
  enabled: true
  fields:
    version: "2.0"
`

func load(t *testing.T, body string) *config.Snapshot {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	snap, err := config.Load(path)
	require.NoError(t, err)
	return snap
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestBuiltinEndpoints(t *testing.T) {
	r, err := kernel.New(load(t, appYAML), kernel.Deps{})
	require.NoError(t, err)
	h := r.Handler()

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(reqid.Header))
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "demo", health["data"].(map[string]any)["app"])

	rec = serve(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hotserve_http_requests_total")
}

func TestConfiguredRoutes(t *testing.T) {
	r, err := kernel.New(load(t, appYAML), kernel.Deps{})
	require.NoError(t, err)
	h := r.Handler()

	rec := serve(t, h, http.MethodGet, "/hello", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"msg":"hi"}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/things", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/things", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGraphQLEndpoint(t *testing.T) {
	r, err := kernel.New(load(t, appYAML), kernel.Deps{})
	require.NoError(t, err)

	rec := serve(t, r.Handler(), http.MethodPost, "/graphql", `{"query":"{ app version }"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"app":"demo","version":"2.0"}}`, rec.Body.String())
}

func TestRouteTable(t *testing.T) {
	r, err := kernel.New(load(t, appYAML), kernel.Deps{})
	require.NoError(t, err)

	assert.Equal(t, []router.Route{
		{Name: "graphql", Method: "POST", Path: "/graphql"},
		{Name: "health", Method: "GET", Path: "/healthz"},
		{Name: "hello", Method: "GET", Path: "/hello"},
		{Name: "metrics", Method: "GET", Path: "/metrics"},
		{Name: "ready", Method: "GET", Path: "/readyz"},
		{Name: "make", Method: "POST", Path: "/things"},
	}, r.Routes())
}

func TestRouteNameCollidesWithBuiltin(t *testing.T) {
	_, err := kernel.New(load(t, "routes:\n  - {name: health, path: /other}\n"), kernel.Deps{})
	assert.Error(t, err)
}
