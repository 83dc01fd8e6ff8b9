// Package server runs one instance of the hotserve HTTP and gRPC servers.
//
// A Server is built from a single configuration snapshot and is meant to be
// started once; watch mode builds a fresh one for every restart. Start owns
// every resource it opens and releases all of them before returning.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/hotserve/config"
	"github.com/shashiranjanraj/hotserve/internal/kernel"
	"github.com/shashiranjanraj/hotserve/pkg/cache"
	"github.com/shashiranjanraj/hotserve/pkg/database"
	"github.com/shashiranjanraj/hotserve/pkg/grpc"
	"github.com/shashiranjanraj/hotserve/pkg/logger"
	"github.com/shashiranjanraj/hotserve/pkg/ready"
)

const bindBackoff = 100 * time.Millisecond

// Server is one run of the HTTP and gRPC listeners for a snapshot.
type Server struct {
	snap *config.Snapshot
	log  *slog.Logger

	mu       sync.Mutex
	httpAddr net.Addr
	grpcAddr net.Addr
}

// New returns an unstarted Server for snap.
func New(snap *config.Snapshot) *Server {
	return &Server{
		snap: snap,
		log:  logger.L.With("component", "server"),
	}
}

// HTTPAddr is the bound HTTP address, nil until Start has bound it.
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// GRPCAddr is the bound gRPC address, nil when gRPC is disabled or not yet
// bound.
func (s *Server) GRPCAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// Start serves until ctx is cancelled, then shuts down and returns nil. tx
// fires once every listener is bound. Setup and serve failures are returned.
func (s *Server) Start(ctx context.Context, tx *ready.Sender) error {
	db, rdb, err := s.openDeps(ctx)
	if err != nil {
		return err
	}
	defer s.closeDeps(db, rdb)

	routes, err := kernel.New(s.snap, kernel.Deps{DB: db, Redis: rdb})
	if err != nil {
		return err
	}

	httpLis, err := listen(ctx, s.snap.Server.HTTPAddr, s.snap.Server.BindRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("server: http: %w", err)
	}
	httpSrv := &http.Server{
		Handler:           routes.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcSrv *grpc.Server
	var grpcLis net.Listener
	if s.snap.Server.GRPCAddr != "" {
		grpcLis, err = listen(ctx, s.snap.Server.GRPCAddr, s.snap.Server.BindRetry)
		if err != nil {
			httpLis.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("server: grpc: %w", err)
		}
		grpcSrv = grpc.New(s.log.With("transport", "grpc"))
	}

	s.mu.Lock()
	s.httpAddr = httpLis.Addr()
	if grpcLis != nil {
		s.grpcAddr = grpcLis.Addr()
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: http serve: %w", err)
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			if err := grpcSrv.Serve(grpcLis); err != nil {
				return fmt.Errorf("server: grpc serve: %w", err)
			}
			return nil
		})
		grpcSrv.SetServing(true)
	}

	attrs := []any{"app", s.snap.App.Name, "http", httpLis.Addr().String()}
	if grpcLis != nil {
		attrs = append(attrs, "grpc", grpcLis.Addr().String())
	}
	if ctx.Err() == nil {
		s.log.Info("server listening", attrs...)
		tx.Fire()
	}

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown(httpSrv, grpcSrv)
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown(httpSrv *http.Server, grpcSrv *grpc.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), s.snap.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Shutdown(ctx)
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		s.log.Warn("http graceful shutdown failed, closing", "error", err)
		_ = httpSrv.Close()
	}
	s.log.Info("server stopped", "app", s.snap.App.Name)
}

func (s *Server) openDeps(ctx context.Context) (*gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if s.snap.Database.Driver != "" {
		var err error
		db, err = database.Open(ctx, database.Options{
			Driver: s.snap.Database.Driver,
			DSN:    s.snap.Database.DSN,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("server: %w", err)
		}
	}

	var rdb *redis.Client
	if s.snap.Redis.Addr != "" {
		var err error
		rdb, err = cache.Open(ctx, cache.Options{
			Addr:     s.snap.Redis.Addr,
			Password: s.snap.Redis.Password,
			DB:       s.snap.Redis.DB,
		})
		if err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("server: %w", err)
		}
	}
	return db, rdb, nil
}

func (s *Server) closeDeps(db *gorm.DB, rdb *redis.Client) {
	if err := database.Close(db); err != nil {
		s.log.Warn("database close failed", "error", err)
	}
	if err := cache.Close(rdb); err != nil {
		s.log.Warn("redis close failed", "error", err)
	}
}

// listen binds addr. While the port is still held, typically by the run
// being replaced, it retries until retry has elapsed.
func listen(ctx context.Context, addr string, retry time.Duration) (net.Listener, error) {
	var lc net.ListenConfig
	deadline := time.Now().Add(retry)

	for {
		lis, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			return lis, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || time.Now().After(deadline) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bindBackoff):
		}
	}
}
