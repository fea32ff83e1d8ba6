// Package surface builds the transport-neutral views shared by the HTTP,
// gRPC and MCP consumers of the bindable dispatcher: navigation, dashboard
// counts and list pages with inferred columns.
package surface

import (
	"context"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/platform/naming"
)

// Navigator exposes the registry's module index.
type Navigator interface {
	Modules() []string
	NamesForModule(module string) []string
}

// Link points at one bindable's list route.
type Link struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Section groups the bindables owned by one module.
type Section struct {
	Module    string `json:"module"`
	Label     string `json:"label"`
	Bindables []Link `json:"bindables"`
}

// DashboardItem is one bindable with its record count.
type DashboardItem struct {
	Link
	Count int `json:"count"`
}

// ListPage is a list result with the columns inferred from its records.
type ListPage struct {
	Value   any               `json:"data"`
	Columns []dispatch.Column `json:"columns"`
}

// LinkFor returns the list link for a bindable name.
func LinkFor(name string) Link {
	plural := naming.Plural(name)
	return Link{Name: name, Label: naming.Titleize(plural), Href: "/" + plural}
}

// BindableFromRoute maps a plural route segment to a bindable name.
func BindableFromRoute(segment string) string {
	segment = strings.Trim(strings.TrimSpace(segment), "/")
	if segment == "" {
		return ""
	}
	return naming.Singular(naming.SnakeCase(segment))
}

// Sections lists modules in scan order with their bindables.
func Sections(nav Navigator) []Section {
	if nav == nil {
		return nil
	}
	modules := nav.Modules()
	sections := make([]Section, 0, len(modules))
	for _, module := range modules {
		names := nav.NamesForModule(module)
		links := make([]Link, 0, len(names))
		for _, name := range names {
			links = append(links, LinkFor(name))
		}
		sections = append(sections, Section{Module: module, Label: naming.Titleize(module), Bindables: links})
	}
	return sections
}

// Dashboard counts every registered bindable.
func Dashboard(ctx context.Context, d *dispatch.Dispatcher) []DashboardItem {
	counts := dispatch.Counts(ctx, d)
	items := make([]DashboardItem, 0, len(counts))
	for _, c := range counts {
		items = append(items, DashboardItem{Link: LinkFor(c.Name), Count: c.Count})
	}
	return items
}

// List dispatches a list action. On success the page carries the columns
// inferred from the returned records.
func List(ctx context.Context, d *dispatch.Dispatcher, name string, payload bindable.Payload) (ListPage, bindable.Result, error) {
	result, err := d.Call(ctx, name, bindable.ActionList, payload)
	if err != nil || !result.IsSuccess() {
		return ListPage{}, result, err
	}
	page := ListPage{
		Value:   result.Value(),
		Columns: dispatch.InferColumns(dispatch.ExtractRecords(result.Value())),
	}
	if page.Columns == nil {
		page.Columns = []dispatch.Column{}
	}
	return page, result, nil
}

// UpdatePayload shapes an update request as {id, attrs}.
func UpdatePayload(id string, attrs map[string]any) bindable.Payload {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return bindable.Payload{"id": id, "attrs": attrs}
}

// ExecutePayload merges {id} with the request's execute object; the path id
// always wins.
func ExecutePayload(id string, execute map[string]any) bindable.Payload {
	payload := make(bindable.Payload, len(execute)+1)
	for key, value := range execute {
		payload[key] = value
	}
	payload["id"] = id
	return payload
}

// CreatePayload returns body[name] when the body nests the record under the
// singular bindable name, otherwise body itself.
func CreatePayload(name string, body map[string]any) bindable.Payload {
	if nested, ok := body[name].(map[string]any); ok {
		return bindable.Payload(nested)
	}
	if body == nil {
		return bindable.Payload{}
	}
	return bindable.Payload(body)
}
