// Package workspace parses workspace service flags and launches the service.
package workspace

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/workspace/internal/platform/cmd"
	server "github.com/louisbranch/workspace/internal/services/workspace/app"
)

// Config holds workspace command configuration.
type Config struct {
	HTTPAddr string `env:"WORKSPACE_HTTP_ADDR" envDefault:":8092"`
	GRPCAddr string `env:"WORKSPACE_GRPC_ADDR" envDefault:":8093"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The workspace HTTP server address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The workspace gRPC server address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the workspace HTTP and gRPC APIs.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorkspace, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{HTTPAddr: cfg.HTTPAddr, GRPCAddr: cfg.GRPCAddr})
	})
}
