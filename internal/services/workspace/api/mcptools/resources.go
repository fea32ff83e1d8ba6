package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// URIScheme prefixes bindable resource URIs.
const URIScheme = "bindable://"

// RecordURITemplate addresses one record of a bindable.
const RecordURITemplate = URIScheme + "{name}/{id}"

// ListPayload is the body of a bindable list resource.
type ListPayload struct {
	Bindable string            `json:"bindable"`
	Records  []map[string]any  `json:"records"`
	Columns  []dispatch.Column `json:"columns"`
}

// BindableResource describes the list resource of one bindable.
func BindableResource(link surface.Link) *mcp.Resource {
	return &mcp.Resource{
		Name:        link.Name,
		Title:       link.Label,
		Description: fmt.Sprintf("Records listed by the %s bindable", link.Name),
		MIMEType:    "application/json",
		URI:         URIScheme + link.Name,
	}
}

// RecordResourceTemplate describes single-record resources.
func RecordResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "bindable_record",
		Description: "One record read from a bindable; URI format bindable://{name}/{id}",
		MIMEType:    "application/json",
		URITemplate: RecordURITemplate,
	}
}

// ResourceHandler reads bindable://{name} as a list and
// bindable://{name}/{id} as a single record.
func ResourceHandler(backend surface.Backend) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if backend == nil {
			return nil, fmt.Errorf("bindable backend is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("resource uri is required; use bindable://{name} or bindable://{name}/{id}")
		}
		uri := req.Params.URI
		name, id, err := parseURI(uri)
		if err != nil {
			return nil, err
		}

		var body any
		if id == "" {
			result, err := backend.Dispatch(ctx, name, bindable.ActionList, bindable.Payload{})
			if err != nil {
				return nil, resourceError(uri, err)
			}
			if f, failed := result.Failure(); failed {
				return nil, fmt.Errorf("list %s: %s", name, f.Message)
			}
			records := dispatch.ExtractRecords(result.Value())
			if records == nil {
				records = []map[string]any{}
			}
			columns := dispatch.InferColumns(records)
			if columns == nil {
				columns = []dispatch.Column{}
			}
			body = ListPayload{Bindable: name, Records: records, Columns: columns}
		} else {
			result, err := backend.Dispatch(ctx, name, bindable.ActionRead, bindable.Payload{"id": id})
			if err != nil {
				return nil, resourceError(uri, err)
			}
			if f, failed := result.Failure(); failed {
				if f.Code == apperrors.CodeNotFound {
					return nil, mcp.ResourceNotFoundError(uri)
				}
				return nil, fmt.Errorf("read %s %s: %s", name, id, f.Message)
			}
			body = result.Value()
		}

		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s resource: %w", name, err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

func resourceError(uri string, err error) error {
	if errors.Is(err, dispatch.ErrBindableNotFound) {
		return mcp.ResourceNotFoundError(uri)
	}
	return fmt.Errorf("read resource %s: %w", uri, err)
}

// parseURI splits bindable://{name}[/{id}].
func parseURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), URIScheme)
	if !ok {
		return "", "", fmt.Errorf("resource uri %q must start with %s", uri, URIScheme)
	}
	name, id, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	name = strings.TrimSpace(name)
	id = strings.TrimSpace(id)
	if name == "" {
		return "", "", fmt.Errorf("resource uri %q is missing a bindable name", uri)
	}
	if strings.Contains(id, "/") {
		return "", "", fmt.Errorf("resource uri %q has too many segments", uri)
	}
	return name, id, nil
}
