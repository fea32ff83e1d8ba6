// Package notebook is a feature module exposing SQLite-backed notes.
package notebook

import (
	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/modules/notebook/storage"
)

// ModuleName is the display name of the notebook module.
const ModuleName = "Notebook"

// Module owns the note store shared by every NoteBindable it builds.
type Module struct {
	store storage.NoteStore
}

// New creates a notebook module over store.
func New(store storage.NoteStore) *Module {
	return &Module{store: store}
}

// Name returns the module display name.
func (m *Module) Name() string { return ModuleName }

// Bindables returns the module's bindable factories. A module without a
// store exposes nothing.
func (m *Module) Bindables() []bindable.Factory {
	if m == nil || m.store == nil {
		return nil
	}
	return []bindable.Factory{m.newNoteBindable}
}

func (m *Module) newNoteBindable() bindable.Binding {
	return &NoteBindable{store: m.store}
}

// Close releases the note store.
func (m *Module) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}
