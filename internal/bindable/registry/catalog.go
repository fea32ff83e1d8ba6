package registry

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Source enumerates the loaded modules in scan order.
type Source func() []Module

// Catalog is the process-wide, lazily built registry.
//
// The first caller builds the registry; concurrent first builds may each
// scan the modules, and the last one stored wins. Both results are complete.
// The registry is never refreshed until Reset.
type Catalog struct {
	source  Source
	opts    Options
	current atomic.Pointer[Registry]
}

// NewCatalog creates a catalog over source.
func NewCatalog(source Source, opts Options) *Catalog {
	return &Catalog{source: source, opts: opts}
}

// Registry returns the cached registry, building it on first use.
func (c *Catalog) Registry() (*Registry, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is not configured")
	}
	if r := c.current.Load(); r != nil {
		return r, nil
	}
	var modules []Module
	if c.source != nil {
		modules = c.source()
	}
	r, err := Build(modules, c.opts)
	if err != nil {
		return nil, err
	}
	c.current.Store(r)
	return r, nil
}

// Lookup resolves name against the cached registry. A build failure is
// logged and reported as a miss.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	r, err := c.Registry()
	if err != nil {
		c.logf("registry: build failed: %v", err)
		return Descriptor{}, false
	}
	return r.Lookup(name)
}

// NamesForModule returns the bindable names owned by module.
func (c *Catalog) NamesForModule(module string) []string {
	r, err := c.Registry()
	if err != nil {
		c.logf("registry: build failed: %v", err)
		return nil
	}
	return r.NamesForModule(module)
}

// Names returns every registered bindable name, sorted.
func (c *Catalog) Names() []string {
	r, err := c.Registry()
	if err != nil {
		c.logf("registry: build failed: %v", err)
		return nil
	}
	return r.Names()
}

// Modules returns the normalized names of modules exposing bindables, in
// scan order.
func (c *Catalog) Modules() []string {
	r, err := c.Registry()
	if err != nil {
		c.logf("registry: build failed: %v", err)
		return nil
	}
	return r.Modules()
}

// Reset drops the cached registry so the next call rebuilds it.
func (c *Catalog) Reset() {
	if c == nil {
		return
	}
	c.current.Store(nil)
}

func (c *Catalog) logf(format string, args ...any) {
	if c != nil && c.opts.Logf != nil {
		c.opts.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
