// Package bindable defines the contract every domain-object adapter implements
// to be reachable through the generic list/read/create/update/delete/execute
// surface.
//
// A binding is constructed fresh for every dispatch by its module's Factory,
// receives one ActionContext and answers with exactly one Result. Bindings own
// their domain validation and persistence; the dispatcher only resolves names
// and normalizes faults.
package bindable

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Action is one of the six generic operations.
type Action string

const (
	ActionList    Action = "list"
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
)

// Actions returns every action in canonical order.
func Actions() []Action {
	return []Action{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionExecute}
}

// Valid reports whether a is one of the six actions.
func (a Action) Valid() bool {
	switch a {
	case ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionExecute:
		return true
	default:
		return false
	}
}

// ParseAction parses a case-insensitive action name.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	if !action.Valid() {
		return "", fmt.Errorf("unknown action %q", value)
	}
	return action, nil
}

// Payload is the loosely typed input of an action. Keys and shapes are
// defined per binding; the dispatcher forwards it untouched.
type Payload map[string]any

// ID returns the "id" entry as a string. Numeric ids are formatted without a
// fractional part.
func (p Payload) ID() (string, bool) {
	raw, ok := p["id"]
	if !ok || raw == nil {
		return "", false
	}
	id := formatID(raw)
	if id == "" {
		return "", false
	}
	return id, true
}

// Attrs returns the nested "attrs" map of an update payload.
func (p Payload) Attrs() map[string]any {
	attrs, _ := p["attrs"].(map[string]any)
	return attrs
}

// String returns a trimmed string entry, or "" when absent or not a string.
func (p Payload) String(key string) string {
	value, _ := p[key].(string)
	return strings.TrimSpace(value)
}

func formatID(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// ActionContext is the request envelope handed to a binding. It is built per
// dispatch and must not be retained after Handle returns.
type ActionContext struct {
	Action  Action
	Target  string
	Payload Payload
	// ID is lifted from Payload["id"]; empty when the payload carries none.
	ID string
}

// HasID reports whether the context carries a record id.
func (c ActionContext) HasID() bool {
	return c.ID != ""
}

// Binding adapts one domain object type to the generic actions.
//
// Target returns the bindable name the binding answers to. Handle must return
// a constructed Result for every action, including actions the binding does
// not support (see Unsupported). The context carries cancellation for the
// binding's own I/O.
type Binding interface {
	Target() string
	Handle(ctx context.Context, actx ActionContext) Result
}

// Factory builds a fresh binding. Modules register factories rather than
// instances so no state leaks between dispatches. A factory returning nil is
// skipped at registry build.
type Factory func() Binding
