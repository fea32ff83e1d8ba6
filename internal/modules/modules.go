// Package modules lists the feature modules compiled into the workspace and
// selects the ones a deployment loads.
package modules

import (
	"errors"
	"fmt"

	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/modules/assistant"
	"github.com/louisbranch/workspace/internal/modules/demo"
	"github.com/louisbranch/workspace/internal/modules/notebook"
	"github.com/louisbranch/workspace/internal/modules/notebook/storage"
	"github.com/louisbranch/workspace/internal/modules/scripting"
	"github.com/louisbranch/workspace/internal/platform/config"
	"github.com/louisbranch/workspace/internal/platform/naming"
)

// ErrUnknownModule indicates a manifest entry that names no compiled-in
// module.
var ErrUnknownModule = errors.New("unknown module")

// Deps carries the collaborators feature modules are built with.
type Deps struct {
	NoteStore storage.NoteStore
	Completer assistant.Completer
}

// Available returns every compiled-in module in default scan order.
func Available(deps Deps) []registry.Module {
	var assistantOpts []assistant.Option
	if deps.Completer != nil {
		assistantOpts = append(assistantOpts, assistant.WithCompleter(deps.Completer))
	}
	return []registry.Module{
		demo.New(),
		notebook.New(deps.NoteStore),
		assistant.New(assistantOpts...),
		scripting.New(),
	}
}

// Loaded returns the modules enabled by manifest in manifest order. A nil
// manifest loads every available module in default order.
func Loaded(deps Deps, manifest *config.ModuleManifest) ([]registry.Module, error) {
	available := Available(deps)
	if manifest == nil {
		return available, nil
	}

	byName := make(map[string]registry.Module, len(available))
	for _, module := range available {
		byName[naming.NormalizeModuleName(module.Name())] = module
	}
	enabled := manifest.Enabled()
	loaded := make([]registry.Module, 0, len(enabled))
	for _, name := range enabled {
		module, ok := byName[naming.NormalizeModuleName(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
		}
		loaded = append(loaded, module)
	}
	return loaded, nil
}
