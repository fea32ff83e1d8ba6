package mcptools

import (
	"context"
	"fmt"

	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ServerName identifies the MCP server implementation.
	ServerName = "workspace-mcp"
	// ServerVersion identifies the MCP server version.
	ServerVersion = "0.1.0"
)

type registrationKind int

const (
	registrationKindTools registrationKind = iota
	registrationKindResources
)

type registrationModule struct {
	name     string
	kind     registrationKind
	register func(ctx context.Context, server *mcp.Server, backend surface.Backend) error
}

func registrationModules() []registrationModule {
	return []registrationModule{
		{name: "bindable-tools", kind: registrationKindTools, register: registerTools},
		{name: "bindable-resources", kind: registrationKindResources, register: registerResources},
	}
}

// NewServer builds an MCP server over backend with the bindable tools and
// one list resource per bindable known at startup.
func NewServer(ctx context.Context, backend surface.Backend) (*mcp.Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("bindable backend is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	for _, module := range registrationModules() {
		if err := module.register(ctx, server, backend); err != nil {
			return nil, fmt.Errorf("register %s: %w", module.name, err)
		}
	}
	return server, nil
}

func registerTools(_ context.Context, server *mcp.Server, backend surface.Backend) error {
	mcp.AddTool(server, DispatchTool(), DispatchHandler(backend))
	mcp.AddTool(server, CountsTool(), CountsHandler(backend))
	mcp.AddTool(server, RegistryTool(), RegistryHandler(backend))
	return nil
}

func registerResources(ctx context.Context, server *mcp.Server, backend surface.Backend) error {
	sections, err := backend.Sections(ctx)
	if err != nil {
		return fmt.Errorf("load bindable sections: %w", err)
	}
	handler := ResourceHandler(backend)
	for _, section := range sections {
		for _, link := range section.Bindables {
			server.AddResource(BindableResource(link), handler)
		}
	}
	server.AddResourceTemplate(RecordResourceTemplate(), handler)
	return nil
}
