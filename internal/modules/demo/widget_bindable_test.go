package demo

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/bindabletest"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
)

func TestWidgetBindableConformance(t *testing.T) {
	m := New()
	bindabletest.Run(t, bindabletest.Fixture{
		Name:    "widget",
		Factory: m.newWidgetBindable,
		Create:  bindable.Payload{"name": "Foo"},
		Invalid: bindable.Payload{"name": ""},
		Update:  map[string]any{"name": "Bar"},
	})
}

func TestDemoWidgetEndToEnd(t *testing.T) {
	catalog := registry.NewCatalog(func() []registry.Module {
		return []registry.Module{New()}
	}, registry.Options{Logf: func(string, ...any) {}})
	if got := catalog.NamesForModule("Demo"); !reflect.DeepEqual(got, []string{"widget"}) {
		t.Fatalf("NamesForModule(Demo) = %v", got)
	}
	d := dispatch.New(catalog)
	ctx := context.Background()

	call := func(action bindable.Action, payload bindable.Payload) bindable.Result {
		t.Helper()
		result, err := d.Call(ctx, "widget", action, payload)
		if err != nil {
			t.Fatalf("call %s: %v", action, err)
		}
		return result
	}

	created := call(bindable.ActionCreate, bindable.Payload{"name": "Foo"})
	want := map[string]any{"id": 1, "name": "Foo"}
	if !reflect.DeepEqual(created.Value(), want) {
		t.Fatalf("create = %v, want %v", created.Value(), want)
	}

	read := call(bindable.ActionRead, bindable.Payload{"id": 1})
	if !reflect.DeepEqual(read.Value(), want) {
		t.Fatalf("read = %v, want %v", read.Value(), want)
	}

	if deleted := call(bindable.ActionDelete, bindable.Payload{"id": 1}); !deleted.IsSuccess() {
		t.Fatalf("delete failed: %+v", deleted)
	}

	missing := call(bindable.ActionRead, bindable.Payload{"id": 1})
	bindabletest.RequireFailure(t, missing, apperrors.CodeNotFound)

	if counts := dispatch.Counts(ctx, d); len(counts) != 1 || counts[0].Count != 0 {
		t.Fatalf("Counts = %+v", counts)
	}
}

func TestWidgetSequentialIDs(t *testing.T) {
	m := New()
	d := bindabletest.Dispatcher(bindabletest.Fixture{Name: "widget", Factory: m.newWidgetBindable})
	for i, name := range []string{"a", "b", "c"} {
		result, _ := d.Call(context.Background(), "widget", bindable.ActionCreate, bindable.Payload{"name": name})
		record := bindabletest.RequireRecord(t, result)
		if record["id"] != float64(i+1) && record["id"] != i+1 {
			t.Fatalf("id = %v, want %d", record["id"], i+1)
		}
	}
}

func TestWidgetCreateValidation(t *testing.T) {
	m := New()
	d := bindabletest.Dispatcher(bindabletest.Fixture{Name: "widget", Factory: m.newWidgetBindable})
	long := make([]byte, maxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	tests := []bindable.Payload{
		{},
		{"name": "   "},
		{"name": 12},
		{"name": string(long)},
	}
	for _, payload := range tests {
		result, _ := d.Call(context.Background(), "widget", bindable.ActionCreate, payload)
		f := bindabletest.RequireFailure(t, result, apperrors.CodeValidationFailed)
		if f.Message == "" {
			t.Fatal("expected validation message")
		}
	}
}

func TestWidgetListPagingAndSearch(t *testing.T) {
	m := New()
	d := bindabletest.Dispatcher(bindabletest.Fixture{Name: "widget", Factory: m.newWidgetBindable})
	ctx := context.Background()
	for _, name := range []string{"Sprocket", "Gear", "Spring", "Cog"} {
		d.Call(ctx, "widget", bindable.ActionCreate, bindable.Payload{"name": name})
	}

	names := func(payload bindable.Payload) []any {
		t.Helper()
		result, _ := d.Call(ctx, "widget", bindable.ActionList, payload)
		var out []any
		for _, record := range dispatch.ExtractRecords(result.Value()) {
			out = append(out, record["name"])
		}
		return out
	}

	if got := names(bindable.Payload{"q": "spr"}); !reflect.DeepEqual(got, []any{"Sprocket", "Spring"}) {
		t.Fatalf("search = %v", got)
	}
	if got := names(bindable.Payload{"sort": "name", "per_page": "2", "page": "2"}); !reflect.DeepEqual(got, []any{"Sprocket", "Spring"}) {
		t.Fatalf("page 2 by name = %v", got)
	}
	if got := names(bindable.Payload{"sort": "id", "direction": "desc", "per_page": 1}); !reflect.DeepEqual(got, []any{"Cog"}) {
		t.Fatalf("desc first = %v", got)
	}
	if got := names(bindable.Payload{"page": "9"}); len(got) != 0 {
		t.Fatalf("page past end = %v", got)
	}

	result, _ := d.Call(ctx, "widget", bindable.ActionList, bindable.Payload{"sort": "secret"})
	bindabletest.RequireFailure(t, result, apperrors.CodeValidationFailed)
}

func TestWidgetExecute(t *testing.T) {
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	m := NewWithClock(func() time.Time { return fixed })
	d := bindabletest.Dispatcher(bindabletest.Fixture{Name: "widget", Factory: m.newWidgetBindable})
	ctx := context.Background()
	d.Call(ctx, "widget", bindable.ActionCreate, bindable.Payload{"name": "Foo"})

	renamed, _ := d.Call(ctx, "widget", bindable.ActionExecute, bindable.Payload{"id": "1", "operation": "rename", "name": "Bar"})
	if got := bindabletest.RequireRecord(t, renamed)["name"]; got != "Bar" {
		t.Fatalf("renamed name = %v", got)
	}

	touched, _ := d.Call(ctx, "widget", bindable.ActionExecute, bindable.Payload{"id": "1", "operation": "touch"})
	if got := bindabletest.RequireRecord(t, touched)["touched_at"]; got != "2026-03-01T12:00:00Z" {
		t.Fatalf("touched_at = %v", got)
	}

	for _, payload := range []bindable.Payload{
		{"id": "1"},
		{"id": "1", "operation": "explode"},
		{"id": "1", "operation": "rename", "name": ""},
	} {
		result, _ := d.Call(ctx, "widget", bindable.ActionExecute, payload)
		bindabletest.RequireFailure(t, result, apperrors.CodeValidationFailed)
	}

	missing, _ := d.Call(ctx, "widget", bindable.ActionExecute, bindable.Payload{"id": "42", "operation": "touch"})
	bindabletest.RequireFailure(t, missing, apperrors.CodeNotFound)
}

func TestWidgetReadNonNumericID(t *testing.T) {
	m := New()
	d := bindabletest.Dispatcher(bindabletest.Fixture{Name: "widget", Factory: m.newWidgetBindable})
	result, _ := d.Call(context.Background(), "widget", bindable.ActionRead, bindable.Payload{"id": "abc"})
	bindabletest.RequireFailure(t, result, apperrors.CodeNotFound)
}
