// Package mcptools exposes the bindable dispatcher to MCP clients as tools
// and one readable resource per bindable.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DispatchInput represents the MCP tool input for one bindable action.
type DispatchInput struct {
	Bindable string         `json:"bindable" jsonschema:"bindable name, for example widget"`
	Action   string         `json:"action" jsonschema:"one of list, read, create, update, delete, execute"`
	Payload  map[string]any `json:"payload,omitempty" jsonschema:"action payload; read and delete take id, update takes id and attrs"`
}

// FailureEntry is a failed action's code and message.
type FailureEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DispatchResult is the outcome of one bindable action.
type DispatchResult struct {
	OK    bool          `json:"ok"`
	Value any           `json:"value,omitempty"`
	Error *FailureEntry `json:"error,omitempty"`
}

// CountsInput takes no arguments.
type CountsInput struct{}

// CountEntry is one bindable with its record count.
type CountEntry struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CountsResult lists record counts per bindable.
type CountsResult struct {
	Counts []CountEntry `json:"counts"`
}

// RegistryInput takes no arguments.
type RegistryInput struct{}

// RegistryResult lists modules with their bindables.
type RegistryResult struct {
	Modules []surface.Section `json:"modules"`
}

// DispatchTool defines the MCP tool schema for bindable actions.
func DispatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "bindable_dispatch",
		Description: "Runs list, read, create, update, delete or execute against a registered bindable",
	}
}

// CountsTool defines the MCP tool schema for dashboard counts.
func CountsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "bindable_counts",
		Description: "Returns the number of records each registered bindable lists",
	}
}

// RegistryTool defines the MCP tool schema for the bindable registry.
func RegistryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "bindable_registry",
		Description: "Lists loaded modules and the bindables each one exposes",
	}
}

// DispatchHandler runs one action. Binding failures are reported in the
// result; an unknown bindable is a tool error.
func DispatchHandler(backend surface.Backend) mcp.ToolHandlerFor[DispatchInput, DispatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DispatchInput) (*mcp.CallToolResult, DispatchResult, error) {
		if backend == nil {
			return nil, DispatchResult{}, fmt.Errorf("bindable backend is not configured")
		}
		name := strings.TrimSpace(input.Bindable)
		if name == "" {
			return nil, DispatchResult{}, fmt.Errorf("bindable is required")
		}
		action := bindable.Action(strings.ToLower(strings.TrimSpace(input.Action)))

		result, err := backend.Dispatch(ctx, name, action, bindable.Payload(input.Payload))
		if err != nil {
			return nil, DispatchResult{}, fmt.Errorf("bindable dispatch failed: %w", err)
		}
		if f, failed := result.Failure(); failed {
			return nil, DispatchResult{Error: &FailureEntry{Code: string(f.Code), Message: f.Message}}, nil
		}
		return nil, DispatchResult{OK: true, Value: result.Value()}, nil
	}
}

// CountsHandler returns dashboard counts.
func CountsHandler(backend surface.Backend) mcp.ToolHandlerFor[CountsInput, CountsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ CountsInput) (*mcp.CallToolResult, CountsResult, error) {
		if backend == nil {
			return nil, CountsResult{}, fmt.Errorf("bindable backend is not configured")
		}
		items, err := backend.Dashboard(ctx)
		if err != nil {
			return nil, CountsResult{}, fmt.Errorf("bindable counts failed: %w", err)
		}
		counts := make([]CountEntry, 0, len(items))
		for _, item := range items {
			counts = append(counts, CountEntry{Name: item.Name, Label: item.Label, Count: item.Count})
		}
		return nil, CountsResult{Counts: counts}, nil
	}
}

// RegistryHandler returns the module navigation.
func RegistryHandler(backend surface.Backend) mcp.ToolHandlerFor[RegistryInput, RegistryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ RegistryInput) (*mcp.CallToolResult, RegistryResult, error) {
		if backend == nil {
			return nil, RegistryResult{}, fmt.Errorf("bindable backend is not configured")
		}
		sections, err := backend.Sections(ctx)
		if err != nil {
			return nil, RegistryResult{}, fmt.Errorf("bindable registry failed: %w", err)
		}
		if sections == nil {
			sections = []surface.Section{}
		}
		return nil, RegistryResult{Modules: sections}, nil
	}
}
