package demo

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/platform/pagination"
)

const maxNameLength = 120

var listConfig = pagination.Config{
	PageSize: pagination.PageSizeConfig{Default: 50, Max: 200},
	Sort:     pagination.SortConfig{Default: "id", Allowed: []string{"id", "name"}},
}

// WidgetBindable exposes widgets through the generic actions.
//
// Execute supports two operations selected by payload["operation"]:
// "rename" sets the name from payload["name"], and "touch" reports the
// current time without changing the widget.
type WidgetBindable struct {
	store *widgetStore
}

// Target returns the bindable name.
func (b *WidgetBindable) Target() string { return "widget" }

// Handle runs one action against the widget store.
func (b *WidgetBindable) Handle(_ context.Context, actx bindable.ActionContext) bindable.Result {
	switch actx.Action {
	case bindable.ActionList:
		return b.list(actx.Payload)
	case bindable.ActionRead:
		return b.read(actx.ID)
	case bindable.ActionCreate:
		return b.create(actx.Payload)
	case bindable.ActionUpdate:
		return b.update(actx.ID, actx.Payload.Attrs())
	case bindable.ActionDelete:
		return b.delete(actx.ID)
	case bindable.ActionExecute:
		return b.execute(actx.ID, actx.Payload)
	default:
		return bindable.Unsupported(actx.Action)
	}
}

func (b *WidgetBindable) list(payload bindable.Payload) bindable.Result {
	query, err := pagination.ParseListQuery(payload, listConfig)
	if err != nil {
		return bindable.Invalid(err.Error())
	}

	b.store.mu.Lock()
	widgets := make([]Widget, 0, len(b.store.byID))
	for _, w := range b.store.byID {
		if query.Query != "" && !strings.Contains(strings.ToLower(w.Name), strings.ToLower(query.Query)) {
			continue
		}
		widgets = append(widgets, w)
	}
	b.store.mu.Unlock()

	sort.Slice(widgets, func(i, j int) bool {
		less := widgets[i].ID < widgets[j].ID
		if query.Sort == "name" && widgets[i].Name != widgets[j].Name {
			less = widgets[i].Name < widgets[j].Name
		}
		if query.Direction == pagination.Desc {
			return !less
		}
		return less
	})

	start := min(query.Offset(), len(widgets))
	end := min(start+query.PerPage, len(widgets))
	records := make([]map[string]any, 0, end-start)
	for _, w := range widgets[start:end] {
		records = append(records, w.record())
	}
	return bindable.Success(map[string]any{"records": records})
}

func (b *WidgetBindable) read(id string) bindable.Result {
	w, result, ok := b.find(id)
	if !ok {
		return result
	}
	return bindable.Success(w.record())
}

func (b *WidgetBindable) create(payload bindable.Payload) bindable.Result {
	name, problem := validateName(payload["name"])
	if problem != "" {
		return bindable.Invalid(problem)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.nextID++
	w := Widget{ID: b.store.nextID, Name: name}
	b.store.byID[w.ID] = w
	return bindable.Success(w.record())
}

func (b *WidgetBindable) update(id string, attrs map[string]any) bindable.Result {
	w, result, ok := b.find(id)
	if !ok {
		return result
	}
	if raw, present := attrs["name"]; present {
		name, problem := validateName(raw)
		if problem != "" {
			return bindable.Invalid(problem)
		}
		w.Name = name
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, exists := b.store.byID[w.ID]; !exists {
		return bindable.NotFound("widget not found")
	}
	b.store.byID[w.ID] = w
	return bindable.Success(w.record())
}

func (b *WidgetBindable) delete(id string) bindable.Result {
	w, result, ok := b.find(id)
	if !ok {
		return result
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.byID, w.ID)
	return bindable.Success(map[string]any{"id": w.ID, "deleted": true})
}

func (b *WidgetBindable) execute(id string, payload bindable.Payload) bindable.Result {
	w, result, ok := b.find(id)
	if !ok {
		return result
	}
	switch payload.String("operation") {
	case "rename":
		return b.update(id, map[string]any{"name": payload["name"]})
	case "touch":
		return bindable.Success(map[string]any{
			"id":         w.ID,
			"touched_at": b.store.now().UTC().Format(time.RFC3339),
		})
	case "":
		return bindable.Invalid("operation is required")
	default:
		return bindable.Invalid("unknown operation: " + payload.String("operation"))
	}
}

func (b *WidgetBindable) find(id string) (Widget, bindable.Result, bool) {
	if id == "" {
		return Widget{}, bindable.Invalid("id is required"), false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return Widget{}, bindable.NotFound("widget not found"), false
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	w, ok := b.store.byID[n]
	if !ok {
		return Widget{}, bindable.NotFound("widget not found"), false
	}
	return w, bindable.Result{}, true
}

func validateName(raw any) (string, string) {
	value, ok := raw.(string)
	if !ok {
		return "", "name is required"
	}
	name := strings.TrimSpace(value)
	switch {
	case name == "":
		return "", "name is required"
	case len(name) > maxNameLength:
		return "", "name is too long"
	}
	return name, ""
}
