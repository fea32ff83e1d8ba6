// Package server wires the workspace runtime to its HTTP and gRPC lifecycles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/louisbranch/workspace/internal/platform/ratelimiter"
	"github.com/louisbranch/workspace/internal/platform/timeouts"
	workspaceservice "github.com/louisbranch/workspace/internal/services/workspace/api/grpc/workspace"
	"github.com/louisbranch/workspace/internal/services/workspace/api/httpapi"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const limiterIdleTTL = 10 * time.Minute

// Config holds listener addresses.
type Config struct {
	HTTPAddr string
	GRPCAddr string
}

// Server hosts the workspace HTTP and gRPC APIs over one runtime.
type Server struct {
	runtime      *Runtime
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
}

// New creates a server with settings read from the environment.
func New(cfg Config) (*Server, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load workspace env: %w", err)
	}
	return NewWithEnv(cfg, env)
}

// NewWithEnv creates a server listening on cfg's addresses.
func NewWithEnv(cfg Config, env Env) (*Server, error) {
	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	runtime, err := NewRuntime(env)
	if err != nil {
		_ = httpListener.Close()
		_ = grpcListener.Close()
		return nil, err
	}

	var limiter *ratelimiter.MapLimiter
	if env.RateLimitRPS > 0 {
		limiter = ratelimiter.New(env.RateLimitRPS, env.RateLimitBurst, limiterIdleTTL)
	}
	httpServer := &http.Server{
		Handler: httpapi.NewHandler(httpapi.Config{
			Dispatcher: runtime.Dispatcher,
			Navigator:  runtime.Catalog,
			Gatherer:   runtime.Metrics,
			Limiter:    limiter,
			Locale:     env.Locale,
		}),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	workspaceservice.RegisterBindableServiceServer(grpcServer, workspaceservice.NewService(runtime.Backend(), env.Locale))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(workspaceservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		runtime:      runtime,
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer:   httpServer,
		grpcServer:   grpcServer,
		health:       healthServer,
	}, nil
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a workspace server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both listeners until context cancellation or the first
// listener failure.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("workspace http listening at %v", s.httpListener.Addr())
	log.Printf("workspace grpc listening at %v", s.grpcListener.Addr())

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- s.grpcServer.Serve(s.grpcListener)
	}()

	var first error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		httpErr <- err
		first = serveError("http", err)
	case err := <-grpcErr:
		grpcErr <- err
		first = serveError("gRPC", err)
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown http server: %v", err)
	}
	s.grpcServer.GracefulStop()

	if err := serveError("http", <-httpErr); err != nil && first == nil {
		first = err
	}
	if err := serveError("gRPC", <-grpcErr); err != nil && first == nil {
		first = err
	}
	return first
}

func serveError(kind string, err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve %s: %w", kind, err)
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	s.runtime.Close()
}
