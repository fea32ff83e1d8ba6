package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/modules"
	"github.com/louisbranch/workspace/internal/modules/notebook/storage/sqlite"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
)

func newBackend(t *testing.T) surface.Local {
	t.Helper()
	store, err := sqlite.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mods := modules.Available(modules.Deps{NoteStore: store})
	catalog := registry.NewCatalog(func() []registry.Module { return mods }, registry.Options{Logf: func(string, ...any) {}})
	d := dispatch.New(catalog, dispatch.WithLogger(func(string, ...any) {}))
	return surface.Local{Dispatcher: d, Navigator: catalog}
}

func TestDefaultFixturesSeedWorkspace(t *testing.T) {
	backend := newBackend(t)
	var out bytes.Buffer
	if err := Run(context.Background(), Config{Verbose: true}, backend, &out); err != nil {
		t.Fatalf("seed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Seeding complete") {
		t.Fatalf("output = %s", out.String())
	}

	ctx := context.Background()
	counts := map[string]int{}
	for _, item := range surface.Dashboard(ctx, backend.Dispatcher) {
		counts[item.Name] = item.Count
	}
	want := map[string]int{"widget": 2, "macro": 1, "prompt": 1, "note": 2}
	for name, count := range want {
		if counts[name] != count {
			t.Errorf("%s count = %d, want %d", name, counts[name], count)
		}
	}

	macros, _ := backend.Dispatch(ctx, "macro", bindable.ActionList, nil)
	records := dispatch.ExtractRecords(macros.Value())
	if len(records) != 1 || records[0]["runs"] != 1 {
		t.Fatalf("macro records = %#v", records)
	}
}

func TestListScenarios(t *testing.T) {
	names, err := ListScenarios(DefaultFixtures())
	if err != nil {
		t.Fatalf("list scenarios: %v", err)
	}
	if strings.Join(names, ",") != "demo,notebook" {
		t.Fatalf("scenarios = %v", names)
	}
}

func TestRunSingleScenarioFromDir(t *testing.T) {
	dir := t.TempDir()
	fsys := fstest.MapFS{
		"one.yaml": {Data: []byte("steps:\n  - bindable: widget\n    payload:\n      name: Solo\n")},
		"two.yaml": {Data: []byte("steps:\n  - bindable: ghost\n")},
	}
	fixtures, err := LoadFixtures(fsys, "one.yaml")
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(fixtures) != 1 || fixtures[0].Name != "one" {
		t.Fatalf("fixtures = %+v", fixtures)
	}

	if err := Run(context.Background(), Config{FixturesDir: dir, Scenario: "missing"}, newBackend(t), nil); err == nil {
		t.Fatal("expected error for missing scenario")
	}
}

func TestRunFixtureFailures(t *testing.T) {
	tests := []struct {
		name    string
		fixture Fixture
		want    string
	}{
		{
			name:    "unknown bindable",
			fixture: Fixture{Steps: []Step{{Bindable: "ghost"}}},
			want:    "bindable not found",
		},
		{
			name:    "unexpected failure",
			fixture: Fixture{Steps: []Step{{Name: "blank", Bindable: "widget", Payload: map[string]any{"name": ""}}}},
			want:    "blank",
		},
		{
			name:    "expected failure succeeded",
			fixture: Fixture{Steps: []Step{{Bindable: "widget", Payload: map[string]any{"name": "Ok"}, Expect: "CONFLICT"}}},
			want:    "got success",
		},
		{
			name:    "wrong failure code",
			fixture: Fixture{Steps: []Step{{Bindable: "widget", Action: "read", Payload: map[string]any{"id": "9"}, Expect: "CONFLICT"}}},
			want:    "got NOT_FOUND",
		},
		{
			name:    "undefined capture",
			fixture: Fixture{Steps: []Step{{Bindable: "widget", Action: "read", Payload: map[string]any{"id": "${nope}"}}}},
			want:    `capture "nope"`,
		},
		{
			name:    "bad action",
			fixture: Fixture{Steps: []Step{{Bindable: "widget", Action: "explode"}}},
			want:    "step 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RunFixture(context.Background(), newBackend(t), tc.fixture, nil, false)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestExpandNested(t *testing.T) {
	got, err := expand(map[string]any{
		"id":   "${a}",
		"args": map[string]any{"ref": "${b}", "n": 2},
		"text": "${not closed",
	}, map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	nested := got["args"].(map[string]any)
	if got["id"] != "1" || nested["ref"] != "2" || nested["n"] != 2 || got["text"] != "${not closed" {
		t.Fatalf("expand = %#v", got)
	}
}
