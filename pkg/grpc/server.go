// Package grpc builds the gRPC side of a hotserve run.
//
// Every server carries panic recovery, request logging and Prometheus
// interceptors, the standard grpc.health.v1 service and reflection so that
// grpcurl works without proto files.
//
//	srv := grpc.New(log)
//	go srv.Serve(lis)
//	srv.SetServing(true)
//	...
//	srv.Shutdown(ctx)
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/hotserve/pkg/metrics"
)

const maxMsgSize = 4 * 1024 * 1024

// Server is a grpc.Server plus its health registry.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// New returns a server whose health status starts as NOT_SERVING.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{health: health.NewServer(), log: log}
	s.srv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.recoveryInterceptor,
			s.loggingInterceptor,
			metricsInterceptor,
		),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// SetServing flips the overall health status.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Serve blocks until Shutdown. A stop initiated by Shutdown is not an error.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc server listening", "addr", lis.Addr().String())
	err := s.srv.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown marks the service NOT_SERVING and drains in-flight RPCs, forcing
// a hard stop when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("grpc graceful stop timed out, forcing")
		s.srv.Stop()
		<-done
	}
}

func (s *Server) recoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("grpc panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func (s *Server) loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.log.Info("grpc request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

func metricsInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	metrics.GRPCHandled.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	metrics.GRPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}
