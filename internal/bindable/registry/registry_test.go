package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/louisbranch/workspace/internal/bindable"
)

type WidgetBindable struct{}

func (WidgetBindable) Target() string { return "widget" }

func (WidgetBindable) Handle(context.Context, bindable.ActionContext) bindable.Result {
	return bindable.Success(nil)
}

type SourceItemsBindable struct{}

func (*SourceItemsBindable) Target() string { return "source_item" }

func (*SourceItemsBindable) Handle(context.Context, bindable.ActionContext) bindable.Result {
	return bindable.Success(nil)
}

type stubModule struct {
	name      string
	factories []bindable.Factory
}

func (m stubModule) Name() string { return m.name }

func (m stubModule) Bindables() []bindable.Factory { return m.factories }

type plainModule struct{ name string }

func (m plainModule) Name() string { return m.name }

func widgetFactory() bindable.Binding { return WidgetBindable{} }

func sourceItemsFactory() bindable.Binding { return &SourceItemsBindable{} }

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recorder) contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestBuildIndexesByNameAndModule(t *testing.T) {
	rec := &recorder{}
	reg, err := Build([]Module{
		stubModule{name: "Demo", factories: []bindable.Factory{widgetFactory, sourceItemsFactory}},
		plainModule{name: "Settings"},
	}, Options{Logf: rec.logf})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	desc, ok := reg.Lookup("widget")
	if !ok {
		t.Fatal("expected widget descriptor")
	}
	if desc.Module != "demo" || desc.Name != "widget" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.Factory == nil || desc.Factory().Target() != "widget" {
		t.Fatal("expected usable factory")
	}
	if _, ok := reg.Lookup("source_item"); !ok {
		t.Fatal("expected source_item descriptor")
	}
	if _, ok := reg.Lookup("gadget"); ok {
		t.Fatal("unexpected gadget descriptor")
	}

	want := []string{"widget", "source_item"}
	if got := reg.NamesForModule("Demo"); !reflect.DeepEqual(got, want) {
		t.Fatalf("NamesForModule(Demo) = %v, want %v", got, want)
	}
	if got := reg.NamesForModule("demo"); !reflect.DeepEqual(got, want) {
		t.Fatalf("NamesForModule(demo) = %v, want %v", got, want)
	}
	if got := reg.NamesForModule("settings"); got != nil {
		t.Fatalf("expected no names for module without bindables, got %v", got)
	}
	if got := reg.Modules(); !reflect.DeepEqual(got, []string{"demo"}) {
		t.Fatalf("Modules() = %v", got)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"source_item", "widget"}) {
		t.Fatalf("Names() = %v", got)
	}
	if !rec.contains("settings exposes no bindables") {
		t.Fatalf("expected skip log, got %v", rec.lines)
	}
}

func TestBuildSkipsBrokenFactories(t *testing.T) {
	rec := &recorder{}
	reg, err := Build([]Module{
		stubModule{name: "engine_broken", factories: []bindable.Factory{
			nil,
			func() bindable.Binding { return nil },
			func() bindable.Binding { panic("boom") },
			widgetFactory,
		}},
	}, Options{Logf: rec.logf})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	if got := reg.NamesForModule("broken"); !reflect.DeepEqual(got, []string{"widget"}) {
		t.Fatalf("NamesForModule(broken) = %v", got)
	}
	for _, want := range []string{"nil factory", "yielded no binding", "panicked"} {
		if !rec.contains(want) {
			t.Fatalf("expected log containing %q, got %v", want, rec.lines)
		}
	}
}

func TestBuildCollisionLastModuleWins(t *testing.T) {
	rec := &recorder{}
	reg, err := Build([]Module{
		stubModule{name: "Alpha", factories: []bindable.Factory{widgetFactory, sourceItemsFactory}},
		stubModule{name: "Beta", factories: []bindable.Factory{widgetFactory}},
	}, Options{Logf: rec.logf})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	desc, _ := reg.Lookup("widget")
	if desc.Module != "beta" {
		t.Fatalf("widget owned by %q, want beta", desc.Module)
	}
	if got := reg.NamesForModule("alpha"); !reflect.DeepEqual(got, []string{"source_item"}) {
		t.Fatalf("NamesForModule(alpha) = %v", got)
	}
	want := []Collision{{Name: "widget", Dropped: "alpha", Winner: "beta"}}
	if got := reg.Collisions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Collisions() = %+v, want %+v", got, want)
	}
	if !rec.contains("replaces module alpha") {
		t.Fatalf("expected collision log, got %v", rec.lines)
	}
}

func TestBuildStrictRejectsCollision(t *testing.T) {
	_, err := Build([]Module{
		stubModule{name: "Alpha", factories: []bindable.Factory{widgetFactory}},
		stubModule{name: "Beta", factories: []bindable.Factory{widgetFactory}},
	}, Options{Strict: true, Logf: func(string, ...any) {}})
	if !errors.Is(err, ErrDuplicateBindable) {
		t.Fatalf("expected ErrDuplicateBindable, got %v", err)
	}
}

func TestBuildRejectsBlankModuleName(t *testing.T) {
	_, err := Build([]Module{stubModule{name: "  "}}, Options{Logf: func(string, ...any) {}})
	if !errors.Is(err, ErrModuleNameRequired) {
		t.Fatalf("expected ErrModuleNameRequired, got %v", err)
	}
}

func TestNilRegistryIsEmpty(t *testing.T) {
	var reg *Registry
	if _, ok := reg.Lookup("widget"); ok {
		t.Fatal("nil registry should miss")
	}
	if reg.Names() != nil || reg.Modules() != nil || reg.NamesForModule("demo") != nil || reg.Collisions() != nil || reg.Len() != 0 {
		t.Fatal("nil registry should be empty")
	}
}

func TestNamesForModuleReturnsCopy(t *testing.T) {
	reg, err := Build([]Module{
		stubModule{name: "Demo", factories: []bindable.Factory{widgetFactory}},
	}, Options{Logf: func(string, ...any) {}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := reg.NamesForModule("demo")
	names[0] = "mutated"
	if got := reg.NamesForModule("demo"); got[0] != "widget" {
		t.Fatalf("registry mutated through returned slice: %v", got)
	}
}
