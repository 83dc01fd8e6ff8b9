// Package router wraps chi with a table of named routes.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Middleware func(http.Handler) http.Handler

// Route is one registered endpoint.
type Route struct {
	Name   string
	Method string
	Path   string
}

type Router struct {
	mux    chi.Router
	mu     sync.RWMutex
	routes map[string]Route
	table  []Route
}

func New() *Router {
	return &Router{
		mux:    chi.NewRouter(),
		routes: make(map[string]Route),
	}
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

// Use appends global middleware. chi requires this before any route is
// registered.
func (r *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

func (r *Router) Get(path, name string, handler http.Handler, middlewares ...Middleware) error {
	return r.Handle(http.MethodGet, path, name, handler, middlewares...)
}

func (r *Router) Post(path, name string, handler http.Handler, middlewares ...Middleware) error {
	return r.Handle(http.MethodPost, path, name, handler, middlewares...)
}

// Handle registers handler for method and path. A non-empty name must be
// unique.
func (r *Router) Handle(method, path, name string, handler http.Handler, middlewares ...Middleware) error {
	fullPath := normalizePath(path)
	method = strings.ToUpper(method)

	r.mu.Lock()
	defer r.mu.Unlock()

	if name != "" {
		if _, exists := r.routes[name]; exists {
			return fmt.Errorf("router: route %q already registered", name)
		}
	}

	r.mux.Method(method, fullPath, chain(handler, middlewares...))

	rt := Route{Name: name, Method: method, Path: fullPath}
	r.table = append(r.table, rt)
	if name != "" {
		r.routes[name] = rt
	}
	return nil
}

func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[name]
	return rt.Path, ok
}

func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("route %q not found", name)
	}

	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}

	if strings.Contains(path, "{") {
		return "", fmt.Errorf("missing parameters for route %q", name)
	}

	return path, nil
}

// Routes returns every registered route sorted by path, then method.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	out := append([]Route(nil), r.table...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	if len(middlewares) == 0 {
		return handler
	}

	wrapped := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func joinPath(parts ...string) string {
	if len(parts) == 0 {
		return "/"
	}

	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}

	if len(segments) == 0 {
		return "/"
	}

	return "/" + strings.Join(segments, "/")
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return joinPath(path)
}
