// Package seed parses seed command flags and replays fixtures against a
// running workspace.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/louisbranch/workspace/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/workspace/internal/platform/grpc"
	"github.com/louisbranch/workspace/internal/platform/timeouts"
	"github.com/louisbranch/workspace/internal/seed"
	workspaceservice "github.com/louisbranch/workspace/internal/services/workspace/api/grpc/workspace"
)

// Config holds seed command configuration.
type Config struct {
	GRPCAddr    string `env:"WORKSPACE_SEED_GRPC_ADDR" envDefault:"localhost:8093"`
	FixturesDir string `env:"WORKSPACE_SEED_FIXTURES_DIR"`
	Scenario    string
	Verbose     bool
	List        bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "workspace gRPC server address")
	fs.StringVar(&cfg.FixturesDir, "fixtures", cfg.FixturesDir, "fixture directory (default: built-in fixtures)")
	fs.StringVar(&cfg.Scenario, "scenario", "", "run specific scenario (default: all)")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	fs.BoolVar(&cfg.List, "list", false, "list available scenarios")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) seedConfig() seed.Config {
	return seed.Config{FixturesDir: c.FixturesDir, Scenario: c.Scenario, Verbose: c.Verbose}
}

// Run lists scenarios or seeds the workspace at cfg.GRPCAddr.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if cfg.List {
		names, err := seed.ListScenarios(cfg.seedConfig().Fixtures())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Available scenarios:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}

	conn, err := platformgrpc.Dial(ctx, cfg.GRPCAddr, platformgrpc.DialConfig{
		Timeout:       timeouts.GRPCDial,
		HealthService: workspaceservice.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("dial workspace at %s: %w", cfg.GRPCAddr, err)
	}
	defer conn.Close()

	return seed.Run(ctx, cfg.seedConfig(), workspaceservice.NewClient(conn), out)
}
