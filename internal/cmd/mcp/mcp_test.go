package mcp

import (
	"context"
	"flag"
	"os"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	unsetEnv(t, "WORKSPACE_MCP_GRPC_ADDR", "WORKSPACE_MCP_HTTP_ADDR", "WORKSPACE_MCP_TRANSPORT")
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("expected empty grpc addr, got %q", cfg.GRPCAddr)
	}
	if cfg.HTTPAddr != "localhost:8094" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("WORKSPACE_MCP_GRPC_ADDR", "env-grpc")
	t.Setenv("WORKSPACE_MCP_HTTP_ADDR", "env-http")
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-http-addr", "flag-http", "-transport", "http"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GRPCAddr != "env-grpc" {
		t.Fatalf("expected env grpc addr, got %q", cfg.GRPCAddr)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	t.Setenv("WORKSPACE_OTEL_ENDPOINT", "")
	err := Run(context.Background(), Config{Transport: "carrier-pigeon"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected unsupported transport error, got %v", err)
	}
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}
