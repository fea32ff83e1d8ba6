// Package assistant is a feature module exposing reusable prompts that can
// be sent to a text completion service.
package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
)

// ModuleName is the display name of the assistant module.
const ModuleName = "Assistant"

// Completer turns a rendered prompt into a completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Module owns the prompt store and the optional completer.
type Module struct {
	prompts   *promptStore
	completer Completer
}

// Option configures a Module.
type Option func(*Module)

// WithCompleter sets the completion service used by execute.
func WithCompleter(c Completer) Option {
	return func(m *Module) {
		m.completer = c
	}
}

// WithClock sets the clock used to stamp completions.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.prompts.now = now
		}
	}
}

// New creates an assistant module with an empty prompt store.
func New(opts ...Option) *Module {
	m := &Module{prompts: &promptStore{byID: map[int]Prompt{}, now: time.Now}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module display name.
func (m *Module) Name() string { return ModuleName }

// Bindables returns the module's bindable factories.
func (m *Module) Bindables() []bindable.Factory {
	return []bindable.Factory{m.newPromptBindable}
}

func (m *Module) newPromptBindable() bindable.Binding {
	return &PromptBindable{store: m.prompts, completer: m.completer}
}

// Prompt is a named prompt template and its most recent completion.
type Prompt struct {
	ID           int
	Title        string
	Template     string
	LastResponse string
	CompletedAt  time.Time
}

func (p Prompt) record() map[string]any {
	record := map[string]any{
		"id":            p.ID,
		"title":         p.Title,
		"template":      p.Template,
		"last_response": p.LastResponse,
		"completed_at":  "",
	}
	if !p.CompletedAt.IsZero() {
		record["completed_at"] = p.CompletedAt.UTC().Format(time.RFC3339)
	}
	return record
}

type promptStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]Prompt
	now    func() time.Time
}
