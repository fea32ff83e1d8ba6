package assistant

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/louisbranch/workspace/internal/bindable"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/pagination"
)

const (
	maxTitleLength    = 160
	maxTemplateLength = 32 << 10
)

var listConfig = pagination.Config{
	PageSize: pagination.PageSizeConfig{Default: 25, Max: 100},
	Sort:     pagination.SortConfig{Default: "id", Allowed: []string{"id", "title"}},
}

// PromptBindable exposes prompt templates through the generic actions.
//
// Templates use text/template syntax over the vars object. Execute renders
// the template and, unless payload["operation"] is "preview", sends it to
// the module's Completer and stores the response on the prompt.
type PromptBindable struct {
	store     *promptStore
	completer Completer
}

// Target returns the bindable name.
func (b *PromptBindable) Target() string { return "prompt" }

// Handle runs one action against the prompt store.
func (b *PromptBindable) Handle(ctx context.Context, actx bindable.ActionContext) bindable.Result {
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

func (b *PromptBindable) list(payload bindable.Payload) bindable.Result {
	query, err := pagination.ParseListQuery(payload, listConfig)
	if err != nil {
		return bindable.Invalid(err.Error())
	}
	needle := strings.ToLower(strings.TrimSpace(query.Query))

	b.store.mu.Lock()
	prompts := make([]Prompt, 0, len(b.store.byID))
	for _, p := range b.store.byID {
		if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) {
			prompts = append(prompts, p)
		}
	}
	b.store.mu.Unlock()

	sort.Slice(prompts, func(i, j int) bool {
		less := prompts[i].ID < prompts[j].ID
		if query.Sort == "title" && prompts[i].Title != prompts[j].Title {
			less = prompts[i].Title < prompts[j].Title
		}
		if query.Direction == pagination.Desc {
			return !less
		}
		return less
	})

	start := min(query.Offset(), len(prompts))
	end := min(start+query.PerPage, len(prompts))
	records := make([]map[string]any, 0, end-start)
	for _, p := range prompts[start:end] {
		records = append(records, p.record())
	}
	return bindable.Success(map[string]any{"records": records})
}

func (b *PromptBindable) read(id string) bindable.Result {
	p, result, ok := b.find(id)
	if !ok {
		return result
	}
	return bindable.Success(p.record())
}

func (b *PromptBindable) create(payload bindable.Payload) bindable.Result {
	var p Prompt
	if problem := applyAttrs(&p, payload, true); problem != "" {
		return bindable.Invalid(problem)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.nextID++
	p.ID = b.store.nextID
	b.store.byID[p.ID] = p
	return bindable.Success(p.record())
}

func (b *PromptBindable) update(id string, attrs map[string]any) bindable.Result {
	p, result, ok := b.find(id)
	if !ok {
		return result
	}
	if problem := applyAttrs(&p, attrs, false); problem != "" {
		return bindable.Invalid(problem)
	}
	return b.save(p)
}

func (b *PromptBindable) delete(id string) bindable.Result {
	p, result, ok := b.find(id)
	if !ok {
		return result
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.byID, p.ID)
	return bindable.Success(map[string]any{"id": p.ID, "deleted": true})
}

func (b *PromptBindable) execute(ctx context.Context, id string, payload bindable.Payload) bindable.Result {
	p, result, ok := b.find(id)
	if !ok {
		return result
	}
	rendered, err := render(p.Template, promptVars(payload))
	if err != nil {
		return bindable.Invalid("prompt could not be rendered: " + err.Error())
	}

	switch payload.String("operation") {
	case "preview":
		return bindable.Success(map[string]any{"id": p.ID, "prompt": rendered})
	case "", "complete":
	default:
		return bindable.Invalid("unknown operation: " + payload.String("operation"))
	}

	if b.completer == nil {
		return bindable.Unavailable("no completion service is configured")
	}
	response, err := b.completer.Complete(ctx, rendered)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("assistant: completion for prompt %d failed: %v", p.ID, err)
		}
		return bindable.FromError(apperrors.Wrap(apperrors.CodeUnavailable, "completion service failed", err))
	}

	p.LastResponse = response
	p.CompletedAt = b.store.now()
	saved := b.save(p)
	if !saved.IsSuccess() {
		return saved
	}
	return bindable.Success(map[string]any{"id": p.ID, "prompt": rendered, "response": response})
}

func (b *PromptBindable) save(p Prompt) bindable.Result {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, exists := b.store.byID[p.ID]; !exists {
		return bindable.NotFound("prompt not found")
	}
	b.store.byID[p.ID] = p
	return bindable.Success(p.record())
}

func (b *PromptBindable) find(id string) (Prompt, bindable.Result, bool) {
	if id == "" {
		return Prompt{}, bindable.Invalid("id is required"), false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return Prompt{}, bindable.NotFound("prompt not found"), false
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	p, ok := b.store.byID[n]
	if !ok {
		return Prompt{}, bindable.NotFound("prompt not found"), false
	}
	return p, bindable.Result{}, true
}

func applyAttrs(p *Prompt, attrs map[string]any, creating bool) string {
	if raw, ok := attrs["title"]; ok || creating {
		title, _ := raw.(string)
		title = strings.TrimSpace(title)
		switch {
		case title == "":
			return "title is required"
		case len(title) > maxTitleLength:
			return "title is too long"
		}
		p.Title = title
	}
	if raw, ok := attrs["template"]; ok || creating {
		text, _ := raw.(string)
		switch {
		case strings.TrimSpace(text) == "":
			return "template is required"
		case len(text) > maxTemplateLength:
			return "template is too long"
		}
		if _, err := parseTemplate(text); err != nil {
			return "template is invalid: " + err.Error()
		}
		p.Template = text
	}
	return ""
}

// promptVars returns payload["vars"] when it is an object, otherwise the
// payload without its id and operation keys.
func promptVars(payload bindable.Payload) map[string]any {
	if nested, ok := payload["vars"].(map[string]any); ok {
		return nested
	}
	vars := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == "id" || key == "operation" {
			continue
		}
		vars[key] = value
	}
	return vars
}

func parseTemplate(text string) (*template.Template, error) {
	return template.New("prompt").Option("missingkey=error").Parse(text)
}

func render(text string, vars map[string]any) (string, error) {
	tmpl, err := parseTemplate(text)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, vars); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
