package server

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/modules"
	"github.com/louisbranch/workspace/internal/modules/assistant"
	notesqlite "github.com/louisbranch/workspace/internal/modules/notebook/storage/sqlite"
	"github.com/louisbranch/workspace/internal/platform/config"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Env holds runtime settings read from the environment.
type Env struct {
	DBPath         string  `env:"WORKSPACE_DB_PATH"`
	ModulesFile    string  `env:"WORKSPACE_MODULES_FILE"`
	Strict         bool    `env:"WORKSPACE_STRICT_BINDABLES"`
	RateLimitRPS   float64 `env:"WORKSPACE_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"WORKSPACE_RATE_LIMIT_BURST" envDefault:"40"`
	Locale         string  `env:"WORKSPACE_LOCALE" envDefault:"en-US"`
	Assistant      assistant.ResponsesConfig
}

// LoadEnv reads Env and fills path defaults.
func LoadEnv() (Env, error) {
	var env Env
	if err := config.ParseEnv(&env); err != nil {
		return Env{}, err
	}
	if strings.TrimSpace(env.DBPath) == "" {
		env.DBPath = filepath.Join("data", "workspace.db")
	}
	return env, nil
}

// Runtime owns the loaded modules, the bindable catalog and the dispatcher
// shared by every transport in one process.
type Runtime struct {
	Catalog    *registry.Catalog
	Dispatcher *dispatch.Dispatcher
	Metrics    *prometheus.Registry
	Env        Env

	store *notesqlite.Store
}

// NewRuntime opens storage, loads modules and builds the registry. A strict
// registry with colliding names fails here rather than on first request.
func NewRuntime(env Env) (*Runtime, error) {
	store, err := openNoteStore(env.DBPath)
	if err != nil {
		return nil, err
	}

	var manifest *config.ModuleManifest
	if strings.TrimSpace(env.ModulesFile) != "" {
		manifest, err = config.LoadManifest(env.ModulesFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	deps := modules.Deps{NoteStore: store}
	completer, err := assistant.NewResponsesCompleter(env.Assistant)
	switch {
	case err == nil:
		deps.Completer = completer
	case errors.Is(err, assistant.ErrCompleterNotConfigured):
		log.Printf("assistant completer disabled: %v", err)
	default:
		_ = store.Close()
		return nil, fmt.Errorf("configure assistant completer: %w", err)
	}

	loaded, err := modules.Loaded(deps, manifest)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	catalog := registry.NewCatalog(func() []registry.Module { return loaded }, registry.Options{Strict: env.Strict})
	reg, err := catalog.Registry()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build bindable registry: %w", err)
	}
	log.Printf("bindable registry loaded %d bindables from %d modules", reg.Len(), len(reg.Modules()))

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dispatcher := dispatch.New(catalog, dispatch.WithMetrics(dispatch.NewMetrics(metricsRegistry)))

	return &Runtime{
		Catalog:    catalog,
		Dispatcher: dispatcher,
		Metrics:    metricsRegistry,
		Env:        env,
		store:      store,
	}, nil
}

// Backend returns an in-process backend over the runtime dispatcher.
func (r *Runtime) Backend() surface.Local {
	return surface.Local{Dispatcher: r.Dispatcher, Navigator: r.Catalog}
}

// Close releases runtime storage.
func (r *Runtime) Close() {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		log.Printf("close note store: %v", err)
	}
	r.store = nil
}

func openNoteStore(path string) (*notesqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := notesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open note sqlite store: %w", err)
	}
	return store, nil
}
