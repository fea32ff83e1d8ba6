package surface

import (
	"context"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
)

// Backend is what remote-facing adapters need from the workspace: one
// dispatch entry point plus the navigation and dashboard views. Dispatch
// returns dispatch.ErrBindableNotFound for unknown names.
type Backend interface {
	Dispatch(ctx context.Context, name string, action bindable.Action, payload bindable.Payload) (bindable.Result, error)
	Sections(ctx context.Context) ([]Section, error)
	Dashboard(ctx context.Context) ([]DashboardItem, error)
}

// Local serves a Backend from an in-process dispatcher.
type Local struct {
	Dispatcher *dispatch.Dispatcher
	Navigator  Navigator
}

// Dispatch calls the named bindable.
func (l Local) Dispatch(ctx context.Context, name string, action bindable.Action, payload bindable.Payload) (bindable.Result, error) {
	return l.Dispatcher.Call(ctx, name, action, payload)
}

// Sections returns the module navigation.
func (l Local) Sections(context.Context) ([]Section, error) {
	sections := Sections(l.Navigator)
	if sections == nil {
		sections = []Section{}
	}
	return sections, nil
}

// Dashboard returns per-bindable counts.
func (l Local) Dashboard(ctx context.Context) ([]DashboardItem, error) {
	return Dashboard(ctx, l.Dispatcher), nil
}
