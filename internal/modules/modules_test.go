package modules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/platform/config"
)

func moduleNames(mods []registry.Module) []string {
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name())
	}
	return names
}

func TestLoadedWithoutManifestLoadsAll(t *testing.T) {
	mods, err := Loaded(Deps{}, nil)
	if err != nil {
		t.Fatalf("Loaded: %v", err)
	}
	want := []string{"Demo", "Notebook", "Assistant", "Scripting"}
	if got := moduleNames(mods); !reflect.DeepEqual(got, want) {
		t.Fatalf("modules = %v, want %v", got, want)
	}
}

func TestLoadedFollowsManifestOrder(t *testing.T) {
	manifest, err := config.ParseManifest([]byte(`
modules:
  - name: scripting
  - name: Demo
  - name: notebook
    disabled: true
`))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	mods, err := Loaded(Deps{}, manifest)
	if err != nil {
		t.Fatalf("Loaded: %v", err)
	}
	if got, want := moduleNames(mods), []string{"Scripting", "Demo"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("modules = %v, want %v", got, want)
	}
}

func TestLoadedRejectsUnknownModule(t *testing.T) {
	manifest := &config.ModuleManifest{Modules: []config.ManifestModule{{Name: "billing"}}}
	if _, err := Loaded(Deps{}, manifest); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("err = %v, want ErrUnknownModule", err)
	}
}

func TestAvailableModulesRegisterBindables(t *testing.T) {
	reg, err := registry.Build(Available(Deps{}), registry.Options{Strict: true, Logf: func(string, ...any) {}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"macro", "prompt", "widget"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if got := reg.NamesForModule("Notebook"); len(got) != 0 {
		t.Fatalf("notebook without a store exposed %v", got)
	}
}
