package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/modules"
	platformgrpc "github.com/louisbranch/workspace/internal/platform/grpc"
	workspaceservice "github.com/louisbranch/workspace/internal/services/workspace/api/grpc/workspace"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	return Env{
		DBPath: filepath.Join(t.TempDir(), "nested", "workspace.db"),
		Locale: "en-US",
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("WORKSPACE_DB_PATH", "")
	if err := os.Unsetenv("WORKSPACE_DB_PATH"); err != nil {
		t.Fatalf("unset db path: %v", err)
	}
	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if env.DBPath != filepath.Join("data", "workspace.db") {
		t.Fatalf("db path = %q", env.DBPath)
	}
	if env.RateLimitRPS != 20 || env.RateLimitBurst != 40 || env.Locale != "en-US" {
		t.Fatalf("env = %+v", env)
	}
	if env.Assistant.Model != "gpt-4o-mini" {
		t.Fatalf("assistant model = %q", env.Assistant.Model)
	}
}

func TestNewRuntimeLoadsAllModules(t *testing.T) {
	runtime, err := NewRuntime(testEnv(t))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	want := []string{"demo", "notebook", "assistant", "scripting"}
	got := runtime.Catalog.Modules()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("modules = %v, want %v", got, want)
	}

	ctx := context.Background()
	created, err := runtime.Dispatcher.Call(ctx, "note", bindable.ActionCreate, bindable.Payload{"title": "Hello", "body": "world"})
	if err != nil || !created.IsSuccess() {
		t.Fatalf("create note = %+v, %v", created, err)
	}
	if count := dispatch.CountOf(ctx, runtime.Dispatcher, "note"); count != 1 {
		t.Fatalf("note count = %d", count)
	}

	completed, _ := runtime.Dispatcher.Call(ctx, "prompt", bindable.ActionCreate, bindable.Payload{"title": "Hi", "template": "Say hi"})
	if !completed.IsSuccess() {
		t.Fatalf("create prompt = %+v", completed)
	}
	id := completed.Value().(map[string]any)["id"]
	ran, _ := runtime.Dispatcher.Call(ctx, "prompt", bindable.ActionExecute, bindable.Payload{"id": id})
	if f, failed := ran.Failure(); !failed || f.Code != "UNAVAILABLE" {
		t.Fatalf("execute without completer = %+v", ran)
	}
}

func TestNewRuntimeHonorsManifest(t *testing.T) {
	env := testEnv(t)
	env.ModulesFile = writeManifest(t, "modules:\n  - name: scripting\n  - name: notebook\n    disabled: true\n  - name: Demo\n")
	runtime, err := NewRuntime(env)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	if got := strings.Join(runtime.Catalog.Modules(), ","); got != "scripting,demo" {
		t.Fatalf("modules = %s", got)
	}
	if _, ok := runtime.Catalog.Lookup("note"); ok {
		t.Fatal("disabled notebook module should not register note")
	}
}

func TestNewRuntimeRejectsUnknownManifestModule(t *testing.T) {
	env := testEnv(t)
	env.ModulesFile = writeManifest(t, "modules:\n  - name: billing\n")
	_, err := NewRuntime(env)
	if !errors.Is(err, modules.ErrUnknownModule) {
		t.Fatalf("err = %v, want ErrUnknownModule", err)
	}
}

func TestNewRuntimeRejectsMissingManifest(t *testing.T) {
	env := testEnv(t)
	env.ModulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewRuntime(env); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestNewRuntimeStrictRegistryBuilds(t *testing.T) {
	env := testEnv(t)
	env.Strict = true
	runtime, err := NewRuntime(env)
	if err != nil {
		t.Fatalf("strict runtime: %v", err)
	}
	defer runtime.Close()
	reg, err := runtime.Catalog.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if len(reg.Collisions()) != 0 {
		t.Fatalf("collisions = %+v", reg.Collisions())
	}
	if _, err := registry.Build(nil, registry.Options{Strict: true}); err != nil {
		t.Fatalf("empty strict build: %v", err)
	}
}

func TestServerServesHTTPAndGRPC(t *testing.T) {
	server, err := NewWithEnv(Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0"}, testEnv(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	base := "http://" + server.HTTPAddr()
	resp, err := http.Post(base+"/widgets", "application/json", strings.NewReader(`{"widget":{"name":"Foo"}}`))
	if err != nil {
		t.Fatalf("create widget: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	conn, err := platformgrpc.Dial(dialCtx, server.GRPCAddr(), platformgrpc.DialConfig{
		Timeout:       2 * time.Second,
		HealthService: workspaceservice.ServiceName,
	})
	if err != nil {
		t.Fatalf("dial grpc: %v", err)
	}
	defer conn.Close()

	client := workspaceservice.NewClient(conn)
	result, err := client.Dispatch(dialCtx, "widget", bindable.ActionList, bindable.Payload{})
	if err != nil {
		t.Fatalf("grpc list: %v", err)
	}
	records := dispatch.ExtractRecords(result.Value())
	if len(records) != 1 || records[0]["name"] != "Foo" {
		t.Fatalf("grpc records = %#v", result.Value())
	}

	metrics, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	metricsBody, _ := io.ReadAll(metrics.Body)
	metrics.Body.Close()
	if !strings.Contains(string(metricsBody), "go_goroutines") {
		t.Fatal("metrics should include go runtime collectors")
	}

	health, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	var payload map[string]any
	_ = json.NewDecoder(health.Body).Decode(&payload)
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", health.StatusCode)
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestNewWithEnvRejectsBusyAddress(t *testing.T) {
	first, err := NewWithEnv(Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0"}, testEnv(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer first.Close()

	if _, err := NewWithEnv(Config{HTTPAddr: first.HTTPAddr(), GRPCAddr: "127.0.0.1:0"}, testEnv(t)); err == nil {
		t.Fatal("expected listen error for busy address")
	}
}

func TestServeNilServer(t *testing.T) {
	var server *Server
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}
