// Package demo is a reference feature module exposing an in-memory widget
// bindable.
package demo

import (
	"sync"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
)

// ModuleName is the display name of the demo module.
const ModuleName = "Demo"

// Module owns the widget store shared by every WidgetBindable it builds.
type Module struct {
	widgets *widgetStore
}

// New creates a demo module with an empty widget store.
func New() *Module {
	return NewWithClock(time.Now)
}

// NewWithClock creates a demo module that stamps executions with now.
func NewWithClock(now func() time.Time) *Module {
	if now == nil {
		now = time.Now
	}
	return &Module{widgets: &widgetStore{byID: map[int]Widget{}, now: now}}
}

// Name returns the module display name.
func (m *Module) Name() string { return ModuleName }

// Bindables returns the module's bindable factories.
func (m *Module) Bindables() []bindable.Factory {
	return []bindable.Factory{m.newWidgetBindable}
}

func (m *Module) newWidgetBindable() bindable.Binding {
	return &WidgetBindable{store: m.widgets}
}

// Widget is a demo record.
type Widget struct {
	ID   int
	Name string
}

func (w Widget) record() map[string]any {
	return map[string]any{"id": w.ID, "name": w.Name}
}

type widgetStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]Widget
	now    func() time.Time
}
