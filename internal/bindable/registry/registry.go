// Package registry discovers the bindables exposed by loaded feature modules
// and indexes them by name and by owning module.
package registry

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sort"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/platform/naming"
)

var (
	// ErrDuplicateBindable indicates two modules expose the same bindable name
	// while strict mode is enabled.
	ErrDuplicateBindable = errors.New("bindable name registered by more than one module")
	// ErrModuleNameRequired indicates a module with a blank display name.
	ErrModuleNameRequired = errors.New("module name is required")
)

// Module is a loaded feature module.
type Module interface {
	Name() string
}

// BindableProvider is implemented by modules that expose bindables. Modules
// without it are skipped.
type BindableProvider interface {
	Bindables() []bindable.Factory
}

// Descriptor describes one registered bindable.
type Descriptor struct {
	// Name is the lower snake_case singular bindable name.
	Name string
	// Module is the normalized name of the owning module.
	Module string
	// Type is the Go type name of the binding, kept for diagnostics.
	Type    string
	Factory bindable.Factory
}

// Collision records a name claimed by more than one module. The later module
// in scan order owns the name.
type Collision struct {
	Name    string
	Dropped string
	Winner  string
}

// Options controls Build.
type Options struct {
	// Strict turns name collisions into ErrDuplicateBindable.
	Strict bool
	// Logf receives skip and collision notices. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Registry is an immutable snapshot of discovered bindables.
type Registry struct {
	byName     map[string]Descriptor
	byModule   map[string][]string
	modules    []string
	collisions []Collision
}

// Build scans modules in order and indexes every bindable they expose.
//
// Factories are called once to learn the binding type; a factory that returns
// nil or panics is skipped. Build only fails on a blank module name or, in
// strict mode, on a name collision.
func Build(modules []Module, opts Options) (*Registry, error) {
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	r := &Registry{
		byName:   make(map[string]Descriptor),
		byModule: make(map[string][]string),
	}

	for _, mod := range modules {
		if mod == nil {
			continue
		}
		moduleName := naming.NormalizeModuleName(mod.Name())
		if moduleName == "" {
			return nil, fmt.Errorf("%w: %T", ErrModuleNameRequired, mod)
		}
		provider, ok := mod.(BindableProvider)
		if !ok {
			logf("registry: module %s exposes no bindables", moduleName)
			continue
		}
		if _, seen := r.byModule[moduleName]; !seen {
			r.modules = append(r.modules, moduleName)
			r.byModule[moduleName] = nil
		}
		for _, factory := range provider.Bindables() {
			desc, ok := describe(moduleName, factory, logf)
			if !ok {
				continue
			}
			if err := r.add(desc, opts.Strict, logf); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func describe(module string, factory bindable.Factory, logf func(string, ...any)) (desc Descriptor, ok bool) {
	if factory == nil {
		logf("registry: module %s registered a nil factory", module)
		return Descriptor{}, false
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logf("registry: module %s factory panicked: %v", module, recovered)
			desc, ok = Descriptor{}, false
		}
	}()
	binding := factory()
	if binding == nil {
		logf("registry: module %s factory yielded no binding", module)
		return Descriptor{}, false
	}
	typ := reflect.TypeOf(binding)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	name := naming.BindableName(typ.Name())
	if name == "" {
		logf("registry: module %s binding %s has no derivable name", module, typ)
		return Descriptor{}, false
	}
	if target := strings.TrimSpace(binding.Target()); target != name {
		logf("registry: binding %s declares target %q, registered as %q", typ, target, name)
	}
	return Descriptor{Name: name, Module: module, Type: typ.String(), Factory: factory}, true
}

func (r *Registry) add(desc Descriptor, strict bool, logf func(string, ...any)) error {
	previous, exists := r.byName[desc.Name]
	if exists {
		if strict {
			return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateBindable, desc.Name, previous.Module, desc.Module)
		}
		r.byModule[previous.Module] = remove(r.byModule[previous.Module], desc.Name)
		r.collisions = append(r.collisions, Collision{Name: desc.Name, Dropped: previous.Module, Winner: desc.Module})
		logf("registry: bindable %s from module %s replaces module %s", desc.Name, desc.Module, previous.Module)
	}
	r.byName[desc.Name] = desc
	r.byModule[desc.Module] = append(r.byModule[desc.Module], desc.Name)
	return nil
}

func remove(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	desc, ok := r.byName[strings.TrimSpace(name)]
	return desc, ok
}

// NamesForModule returns the bindable names owned by module in registration
// order. The module name is normalized, so "Demo" and "demo" are equivalent.
func (r *Registry) NamesForModule(module string) []string {
	if r == nil {
		return nil
	}
	names := r.byModule[naming.NormalizeModuleName(module)]
	if len(names) == 0 {
		return nil
	}
	return append([]string(nil), names...)
}

// Names returns every registered bindable name, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modules returns the normalized names of modules that expose bindables, in
// scan order.
func (r *Registry) Modules() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.modules...)
}

// Collisions returns the names that more than one module claimed.
func (r *Registry) Collisions() []Collision {
	if r == nil {
		return nil
	}
	return append([]Collision(nil), r.collisions...)
}

// Len returns the number of registered bindables.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}
