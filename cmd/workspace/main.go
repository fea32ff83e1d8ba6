// Package main starts the workspace HTTP and gRPC service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workspacecmd "github.com/louisbranch/workspace/internal/cmd/workspace"
	"github.com/louisbranch/workspace/internal/platform/config"
)

func main() {
	cfg, err := workspacecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnParseError(err)
	log.SetPrefix("[WORKSPACE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workspacecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
