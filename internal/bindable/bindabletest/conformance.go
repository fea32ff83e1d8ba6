// Package bindabletest provides a conformance suite every binding can run to
// check result totality and the per-action contract.
package bindabletest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
)

// Fixture describes the inputs the suite drives a binding with.
type Fixture struct {
	// Name is the bindable name the binding is expected to declare.
	Name string
	// Factory builds the binding under test.
	Factory bindable.Factory
	// Create is a payload the binding accepts for create.
	Create bindable.Payload
	// Invalid is a create payload the binding rejects. Optional.
	Invalid bindable.Payload
	// Update is the attrs map sent with update. Optional.
	Update map[string]any
	// MissingID is an id that never resolves. Defaults to "999999".
	MissingID string
	// SkipDelete disables the delete round trip for bindings that cannot
	// delete a freshly created record.
	SkipDelete bool
}

type singleResolver struct {
	desc registry.Descriptor
}

func (r singleResolver) Lookup(name string) (registry.Descriptor, bool) {
	return r.desc, name == r.desc.Name
}

func (r singleResolver) Names() []string { return []string{r.desc.Name} }

// Dispatcher returns a dispatcher that resolves only fx's binding.
func Dispatcher(fx Fixture) *dispatch.Dispatcher {
	desc := registry.Descriptor{Name: fx.Name, Module: "conformance", Factory: fx.Factory}
	return dispatch.New(singleResolver{desc: desc}, dispatch.WithLogger(func(string, ...any) {}))
}

// Run executes the conformance suite as subtests of t.
func Run(t *testing.T, fx Fixture) {
	t.Helper()
	if fx.MissingID == "" {
		fx.MissingID = "999999"
	}
	d := Dispatcher(fx)
	ctx := context.Background()

	t.Run("target", func(t *testing.T) {
		if got := fx.Factory().Target(); got != fx.Name {
			t.Fatalf("Target() = %q, want %q", got, fx.Name)
		}
	})

	t.Run("totality", func(t *testing.T) {
		for _, action := range bindable.Actions() {
			result := call(t, d, ctx, fx.Name, action, bindable.Payload{})
			RequireValid(t, result)
		}
	})

	t.Run("list empty filters", func(t *testing.T) {
		result := call(t, d, ctx, fx.Name, bindable.ActionList, bindable.Payload{})
		if !result.IsSuccess() {
			f, _ := result.Failure()
			t.Fatalf("list with empty payload failed: %+v", f)
		}
	})

	t.Run("read miss", func(t *testing.T) {
		result := call(t, d, ctx, fx.Name, bindable.ActionRead, bindable.Payload{"id": fx.MissingID})
		RequireFailure(t, result, apperrors.CodeNotFound)
	})

	t.Run("update miss", func(t *testing.T) {
		result := call(t, d, ctx, fx.Name, bindable.ActionUpdate, bindable.Payload{"id": fx.MissingID, "attrs": map[string]any{}})
		RequireFailure(t, result, apperrors.CodeNotFound)
	})

	t.Run("delete miss", func(t *testing.T) {
		result := call(t, d, ctx, fx.Name, bindable.ActionDelete, bindable.Payload{"id": fx.MissingID})
		RequireFailure(t, result, apperrors.CodeNotFound)
	})

	if fx.Invalid != nil {
		t.Run("create invalid", func(t *testing.T) {
			result := call(t, d, ctx, fx.Name, bindable.ActionCreate, bindable.Payload(clone(fx.Invalid)))
			RequireFailure(t, result, apperrors.CodeValidationFailed)
		})
	}

	t.Run("round trip", func(t *testing.T) {
		created := call(t, d, ctx, fx.Name, bindable.ActionCreate, bindable.Payload(clone(fx.Create)))
		record := RequireRecord(t, created)
		id, ok := bindable.Payload(record).ID()
		if !ok {
			t.Fatalf("created record has no id: %v", record)
		}

		read := RequireRecord(t, call(t, d, ctx, fx.Name, bindable.ActionRead, bindable.Payload{"id": id}))
		if got, _ := bindable.Payload(read).ID(); got != id {
			t.Fatalf("read id = %q, want %q", got, id)
		}

		listed := call(t, d, ctx, fx.Name, bindable.ActionList, bindable.Payload{})
		if !containsID(dispatch.ExtractRecords(listed.Value()), id) {
			t.Fatalf("list does not contain created id %s", id)
		}

		if fx.Update != nil {
			updated := call(t, d, ctx, fx.Name, bindable.ActionUpdate, bindable.Payload{"id": id, "attrs": clone(fx.Update)})
			after := RequireRecord(t, updated)
			for key, want := range fx.Update {
				if fmt.Sprint(after[key]) != fmt.Sprint(want) {
					t.Fatalf("updated %s = %v, want %v", key, after[key], want)
				}
			}
		}

		if fx.SkipDelete {
			return
		}
		deleted := call(t, d, ctx, fx.Name, bindable.ActionDelete, bindable.Payload{"id": id})
		if !deleted.IsSuccess() {
			f, _ := deleted.Failure()
			t.Fatalf("delete failed: %+v", f)
		}
		RequireFailure(t, call(t, d, ctx, fx.Name, bindable.ActionRead, bindable.Payload{"id": id}), apperrors.CodeNotFound)
	})
}

func call(t *testing.T, d *dispatch.Dispatcher, ctx context.Context, name string, action bindable.Action, payload bindable.Payload) bindable.Result {
	t.Helper()
	result, err := d.Call(ctx, name, action, payload)
	if err != nil {
		t.Fatalf("%s %s: %v", name, action, err)
	}
	return result
}

// RequireValid fails t unless result is a constructed success or a failure
// with a known code and a non-empty message.
func RequireValid(t testing.TB, result bindable.Result) {
	t.Helper()
	if !result.Valid() {
		t.Fatal("expected a constructed result")
	}
	if f, ok := result.Failure(); ok {
		if !f.Code.Known() {
			t.Fatalf("failure code %q is not in the taxonomy", f.Code)
		}
		if strings.TrimSpace(f.Message) == "" {
			t.Fatalf("failure %s has an empty message", f.Code)
		}
	}
}

// RequireFailure fails t unless result is a failure with code.
func RequireFailure(t testing.TB, result bindable.Result, code apperrors.Code) bindable.Failure {
	t.Helper()
	RequireValid(t, result)
	f, ok := result.Failure()
	if !ok {
		t.Fatalf("expected %s failure, got success %v", code, result.Value())
	}
	if f.Code != code {
		t.Fatalf("failure code = %s (%s), want %s", f.Code, f.Message, code)
	}
	return f
}

// RequireRecord fails t unless result is a success whose value is a record.
func RequireRecord(t testing.TB, result bindable.Result) map[string]any {
	t.Helper()
	RequireValid(t, result)
	if f, ok := result.Failure(); ok {
		t.Fatalf("expected record, got failure %+v", f)
	}
	records := dispatch.ExtractRecords([]any{result.Value()})
	if len(records) != 1 {
		t.Fatalf("success value %v is not a record", result.Value())
	}
	return records[0]
}

func containsID(records []map[string]any, id string) bool {
	for _, record := range records {
		if got, ok := bindable.Payload(record).ID(); ok && got == id {
			return true
		}
	}
	return false
}

func clone(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}
