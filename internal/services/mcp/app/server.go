// Package server runs the workspace MCP bridge over stdio or HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	platformgrpc "github.com/louisbranch/workspace/internal/platform/grpc"
	"github.com/louisbranch/workspace/internal/platform/timeouts"
	workspaceservice "github.com/louisbranch/workspace/internal/services/workspace/api/grpc/workspace"
	"github.com/louisbranch/workspace/internal/services/workspace/api/mcptools"
	workspaceapp "github.com/louisbranch/workspace/internal/services/workspace/app"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// TransportStdio serves MCP over the process's stdin and stdout.
	TransportStdio = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP = "http"
)

const defaultHTTPAddr = "localhost:8094"

// Config selects the MCP transport and the workspace backend.
type Config struct {
	Transport string
	HTTPAddr  string
	// GRPCAddr points at a running workspace server. When empty the bridge
	// loads modules in-process.
	GRPCAddr string
}

// Run builds the backend and serves MCP until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	transport := strings.ToLower(strings.TrimSpace(cfg.Transport))
	if transport == "" {
		transport = TransportStdio
	}
	if transport != TransportStdio && transport != TransportHTTP {
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}

	backend, closer, err := openBackend(ctx, cfg.GRPCAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Printf("close workspace backend: %v", err)
		}
	}()

	mcpServer, err := mcptools.NewServer(ctx, backend)
	if err != nil {
		return err
	}
	if transport == TransportHTTP {
		return serveHTTP(ctx, mcpServer, cfg.HTTPAddr)
	}
	return serveWithTransport(ctx, mcpServer, &mcp.StdioTransport{})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openBackend dials a workspace server when addr is set and otherwise
// builds an in-process runtime.
func openBackend(ctx context.Context, addr string) (surface.Backend, io.Closer, error) {
	addr = strings.TrimSpace(addr)
	if addr != "" {
		conn, err := platformgrpc.Dial(ctx, addr, platformgrpc.DialConfig{
			Timeout:       timeouts.GRPCDial,
			HealthService: workspaceservice.ServiceName,
			Logf:          log.Printf,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial workspace at %s: %w", addr, err)
		}
		return workspaceservice.NewClient(conn), conn, nil
	}

	env, err := workspaceapp.LoadEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load workspace env: %w", err)
	}
	runtime, err := workspaceapp.NewRuntime(env)
	if err != nil {
		return nil, nil, err
	}
	return runtime.Backend(), closerFunc(func() error {
		runtime.Close()
		return nil
	}), nil
}

// serveWithTransport runs server on transport. Cancellation is a clean exit.
func serveWithTransport(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if server == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := server.Run(ctx, transport)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return fmt.Errorf("serve MCP: %w", err)
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	if strings.TrimSpace(addr) == "" {
		addr = defaultHTTPAddr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serveHTTPListener(ctx, server, listener)
}

func serveHTTPListener(ctx context.Context, server *mcp.Server, listener net.Listener) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	log.Printf("workspace MCP listening at http://%v", listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown MCP http server: %v", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP http: %w", err)
	}
}
