// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/workspace/internal/platform/cmd"
	mcpapp "github.com/louisbranch/workspace/internal/services/mcp/app"
)

// Config holds MCP command configuration.
type Config struct {
	GRPCAddr  string `env:"WORKSPACE_MCP_GRPC_ADDR"`
	HTTPAddr  string `env:"WORKSPACE_MCP_HTTP_ADDR" envDefault:"localhost:8094"`
	Transport string `env:"WORKSPACE_MCP_TRANSPORT" envDefault:"stdio"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "workspace gRPC address; empty loads modules in-process")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return mcpapp.Run(ctx, mcpapp.Config{
			Transport: cfg.Transport,
			HTTPAddr:  cfg.HTTPAddr,
			GRPCAddr:  cfg.GRPCAddr,
		})
	})
}
