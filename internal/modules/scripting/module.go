// Package scripting is a feature module exposing stored Lua macros.
package scripting

import (
	"sync"

	"github.com/louisbranch/workspace/internal/bindable"
)

// ModuleName is the display name of the scripting module.
const ModuleName = "Scripting"

// Module owns the macro store shared by every MacroBindable it builds.
type Module struct {
	macros *macroStore
}

// New creates a scripting module with an empty macro store.
func New() *Module {
	return &Module{macros: &macroStore{byID: map[int]Macro{}}}
}

// Name returns the module display name.
func (m *Module) Name() string { return ModuleName }

// Bindables returns the module's bindable factories.
func (m *Module) Bindables() []bindable.Factory {
	return []bindable.Factory{m.newMacroBindable}
}

func (m *Module) newMacroBindable() bindable.Binding {
	return &MacroBindable{store: m.macros}
}

// Macro is a named Lua chunk.
type Macro struct {
	ID          int
	Name        string
	Description string
	Source      string
	Runs        int
}

func (m Macro) record() map[string]any {
	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"description": m.Description,
		"source":      m.Source,
		"runs":        m.Runs,
	}
}

type macroStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]Macro
}
