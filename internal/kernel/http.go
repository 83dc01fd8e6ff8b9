// Package kernel assembles the HTTP handler of one server run from a
// configuration snapshot.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/pkg/cache"
	"github.com/shashiranjanraj/hotserve/pkg/database"
	"github.com/shashiranjanraj/hotserve/pkg/graphql"
	"github.com/shashiranjanraj/hotserve/pkg/metrics"
	"github.com/shashiranjanraj/hotserve/pkg/middleware"
	"github.com/shashiranjanraj/hotserve/pkg/reqid"
	"github.com/shashiranjanraj/hotserve/pkg/response"
	"github.com/shashiranjanraj/hotserve/pkg/router"
)

const readyTimeout = 2 * time.Second

// Deps are the per-run resources handlers may use. Nil members are treated
// as not configured.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// New builds the router for snap.
//
// Middleware order, outermost first: metrics, request id, recovery, logger.
func New(snap *config.Snapshot, deps Deps) (*router.Router, error) {
	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)

	builtins := []struct {
		method, path, name string
		h                  http.Handler
	}{
		{http.MethodGet, "/healthz", "health", healthHandler(snap)},
		{http.MethodGet, "/readyz", "ready", readyHandler(deps)},
		{http.MethodGet, "/metrics", "metrics", metrics.Handler()},
	}
	for _, b := range builtins {
		if err := r.Handle(b.method, b.path, b.name, b.h); err != nil {
			return nil, fmt.Errorf("kernel: %w", err)
		}
	}

	for _, rt := range snap.Routes {
		if err := r.Handle(rt.Method, rt.Path, rt.Name, staticHandler(rt)); err != nil {
			return nil, fmt.Errorf("kernel: route %s %s: %w", rt.Method, rt.Path, err)
		}
	}

	if snap.GraphQL.Enabled {
		schema, err := graphql.NewSchema(snap.App.Name, snap.GraphQL.Fields)
		if err != nil {
			return nil, fmt.Errorf("kernel: %w", err)
		}
		if err := r.Post(snap.GraphQL.Path, "graphql", graphql.Handler(schema)); err != nil {
			return nil, fmt.Errorf("kernel: %w", err)
		}
	}

	return r, nil
}

func healthHandler(snap *config.Snapshot) http.Handler {
	body := map[string]string{
		"status": "ok",
		"app":    snap.App.Name,
		"env":    snap.App.Env,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, body)
	})
}

func readyHandler(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		failures := map[string]string{}
		if err := database.Ping(ctx, deps.DB); err != nil {
			failures["database"] = err.Error()
		}
		if err := cache.Ping(ctx, deps.Redis); err != nil {
			failures["redis"] = err.Error()
		}

		if len(failures) > 0 {
			response.Unavailable(w, failures)
			return
		}
		response.Success(w, map[string]string{"status": "ready"})
	})
}

func staticHandler(rt config.Route) http.Handler {
	body := []byte(rt.Body)
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Raw(w, rt.Status, rt.ContentType, body)
	})
}
