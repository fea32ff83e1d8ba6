package scripting

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/pagination"
)

const (
	maxMacroNameLength = 80
	maxSourceLength    = 16 << 10
)

var listConfig = pagination.Config{
	PageSize: pagination.PageSizeConfig{Default: 25, Max: 100},
	Sort:     pagination.SortConfig{Default: "name", Allowed: []string{"id", "name", "runs"}},
}

// MacroBindable exposes Lua macros through the generic actions.
//
// Execute runs the macro in a sandbox without io, os or package access. The
// macro reads its arguments from the global args table, which holds
// payload["args"] when it is an object and every other payload key
// otherwise. The chunk's first return value is the result.
type MacroBindable struct {
	store *macroStore
}

// Target returns the bindable name.
func (b *MacroBindable) Target() string { return "macro" }

// Handle runs one action against the macro store.
func (b *MacroBindable) Handle(ctx context.Context, actx bindable.ActionContext) bindable.Result {
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
		return b.execute(ctx, actx.ID, actx.Payload)
	default:
		return bindable.Unsupported(actx.Action)
	}
}

func (b *MacroBindable) list(payload bindable.Payload) bindable.Result {
	query, err := pagination.ParseListQuery(payload, listConfig)
	if err != nil {
		return bindable.Invalid(err.Error())
	}
	needle := strings.ToLower(strings.TrimSpace(query.Query))

	b.store.mu.Lock()
	macros := make([]Macro, 0, len(b.store.byID))
	for _, m := range b.store.byID {
		if needle == "" ||
			strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.Description), needle) {
			macros = append(macros, m)
		}
	}
	b.store.mu.Unlock()

	sort.SliceStable(macros, func(i, j int) bool {
		a, c := macros[i], macros[j]
		if query.Direction == pagination.Desc {
			a, c = c, a
		}
		switch query.Sort {
		case "name":
			if a.Name != c.Name {
				return a.Name < c.Name
			}
		case "runs":
			if a.Runs != c.Runs {
				return a.Runs < c.Runs
			}
		}
		return a.ID < c.ID
	})

	start := min(query.Offset(), len(macros))
	end := min(start+query.PerPage, len(macros))
	records := make([]map[string]any, 0, end-start)
	for _, m := range macros[start:end] {
		records = append(records, m.record())
	}
	return bindable.Success(map[string]any{"records": records})
}

func (b *MacroBindable) read(id string) bindable.Result {
	m, result, ok := b.find(id)
	if !ok {
		return result
	}
	return bindable.Success(m.record())
}

func (b *MacroBindable) create(payload bindable.Payload) bindable.Result {
	var m Macro
	if problem := applyAttrs(&m, payload, true); problem != "" {
		return bindable.Invalid(problem)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, existing := range b.store.byID {
		if strings.EqualFold(existing.Name, m.Name) {
			return bindable.Conflict("a macro named " + m.Name + " already exists")
		}
	}
	b.store.nextID++
	m.ID = b.store.nextID
	b.store.byID[m.ID] = m
	return bindable.Success(m.record())
}

func (b *MacroBindable) update(id string, attrs map[string]any) bindable.Result {
	m, result, ok := b.find(id)
	if !ok {
		return result
	}
	if problem := applyAttrs(&m, attrs, false); problem != "" {
		return bindable.Invalid(problem)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, exists := b.store.byID[m.ID]; !exists {
		return bindable.NotFound("macro not found")
	}
	for _, existing := range b.store.byID {
		if existing.ID != m.ID && strings.EqualFold(existing.Name, m.Name) {
			return bindable.Conflict("a macro named " + m.Name + " already exists")
		}
	}
	b.store.byID[m.ID] = m
	return bindable.Success(m.record())
}

func (b *MacroBindable) delete(id string) bindable.Result {
	m, result, ok := b.find(id)
	if !ok {
		return result
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.byID, m.ID)
	return bindable.Success(map[string]any{"id": m.ID, "deleted": true})
}

func (b *MacroBindable) execute(ctx context.Context, id string, payload bindable.Payload) bindable.Result {
	m, result, ok := b.find(id)
	if !ok {
		return result
	}
	if err := ctx.Err(); err != nil {
		return bindable.FromError(apperrors.Wrap(apperrors.CodeUnavailable, "macro run cancelled", err))
	}

	value, err := run(ctx, m.Source, macroArgs(payload))
	switch {
	case errors.Is(err, errRunCancelled):
		return bindable.FromError(apperrors.Wrap(apperrors.CodeUnavailable, "macro run cancelled", err))
	case errors.Is(err, errStepLimit):
		return bindable.Invalid(err.Error())
	case err != nil:
		return bindable.Invalid("macro failed: " + err.Error())
	}

	b.store.mu.Lock()
	if current, exists := b.store.byID[m.ID]; exists {
		current.Runs++
		b.store.byID[m.ID] = current
		m = current
	}
	b.store.mu.Unlock()

	return bindable.Success(map[string]any{"id": m.ID, "result": value, "runs": m.Runs})
}

func (b *MacroBindable) find(id string) (Macro, bindable.Result, bool) {
	if id == "" {
		return Macro{}, bindable.Invalid("id is required"), false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return Macro{}, bindable.NotFound("macro not found"), false
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	m, ok := b.store.byID[n]
	if !ok {
		return Macro{}, bindable.NotFound("macro not found"), false
	}
	return m, bindable.Result{}, true
}

func macroArgs(payload bindable.Payload) map[string]any {
	if nested, ok := payload["args"].(map[string]any); ok {
		return nested
	}
	args := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == "id" {
			continue
		}
		args[key] = value
	}
	return args
}

func applyAttrs(m *Macro, attrs map[string]any, creating bool) string {
	if raw, ok := attrs["name"]; ok || creating {
		name, _ := raw.(string)
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			return "name is required"
		case len(name) > maxMacroNameLength:
			return "name is too long"
		}
		m.Name = name
	}
	if raw, ok := attrs["description"]; ok {
		description, isString := raw.(string)
		if !isString {
			return "description must be text"
		}
		m.Description = strings.TrimSpace(description)
	}
	if raw, ok := attrs["source"]; ok || creating {
		source, _ := raw.(string)
		switch {
		case strings.TrimSpace(source) == "":
			return "source is required"
		case len(source) > maxSourceLength:
			return "source is too long"
		}
		if err := compile(source); err != nil {
			return "source does not compile: " + err.Error()
		}
		m.Source = source
	}
	return ""
}
