// Package seed populates a workspace with fixture records by replaying
// bindable calls.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
)

//go:embed fixtures/*.yaml
var embeddedFixtures embed.FS

// DefaultFixtures returns the fixtures compiled into the binary.
func DefaultFixtures() fs.FS {
	sub, err := fs.Sub(embeddedFixtures, "fixtures")
	if err != nil {
		panic(err)
	}
	return sub
}

// Config holds seed runner configuration.
type Config struct {
	// FixturesDir overrides the embedded fixtures when set.
	FixturesDir string
	// Scenario limits the run to one fixture file name without extension.
	Scenario string
	Verbose  bool
}

// Fixtures returns the fixture filesystem selected by cfg.
func (c Config) Fixtures() fs.FS {
	if dir := strings.TrimSpace(c.FixturesDir); dir != "" {
		return os.DirFS(dir)
	}
	return DefaultFixtures()
}

// Run replays the selected fixtures against backend.
func Run(ctx context.Context, cfg Config, backend surface.Backend, out io.Writer) error {
	if backend == nil {
		return errors.New("seed backend is required")
	}
	if out == nil {
		out = io.Discard
	}
	pattern := "*.yaml"
	if scenario := strings.TrimSpace(cfg.Scenario); scenario != "" {
		pattern = scenario + ".yaml"
	}
	fixtures, err := LoadFixtures(cfg.Fixtures(), pattern)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "Loaded %d fixture(s)\n", len(fixtures))
	}

	for _, fixture := range fixtures {
		if cfg.Verbose {
			fmt.Fprintf(out, "Running scenario: %s\n", fixture.Name)
		}
		if err := RunFixture(ctx, backend, fixture, out, cfg.Verbose); err != nil {
			return fmt.Errorf("scenario %q: %w", fixture.Name, err)
		}
	}
	if cfg.Verbose {
		fmt.Fprintln(out, "Seeding complete")
	}
	return nil
}

// RunFixture replays one fixture's steps in order.
func RunFixture(ctx context.Context, backend surface.Backend, fixture Fixture, out io.Writer, verbose bool) error {
	captures := map[string]string{}
	for i, step := range fixture.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		action := bindable.ActionCreate
		if strings.TrimSpace(step.Action) != "" {
			parsed, err := bindable.ParseAction(step.Action)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			action = parsed
		}
		expanded, err := expand(step.Payload, captures)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		payload := bindable.Payload(expanded)

		result, err := backend.Dispatch(ctx, step.Bindable, action, payload)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if f, failed := result.Failure(); failed {
			if step.Expect == "" {
				return fmt.Errorf("%s: %s", label, f.Message)
			}
			if string(f.Code) != step.Expect {
				return fmt.Errorf("%s: expected %s, got %s: %s", label, step.Expect, f.Code, f.Message)
			}
		} else if step.Expect != "" {
			return fmt.Errorf("%s: expected %s, got success", label, step.Expect)
		}

		if step.Capture != "" && result.IsSuccess() {
			id, ok := bindable.Payload(recordOf(result.Value())).ID()
			if !ok {
				return fmt.Errorf("%s: result has no id to capture", label)
			}
			captures[step.Capture] = id
		}
		if verbose {
			fmt.Fprintf(out, "  %s %s %s: ok\n", action, step.Bindable, label)
		}
	}
	return nil
}

func recordOf(value any) map[string]any {
	record, _ := value.(map[string]any)
	return record
}

// expand substitutes ${name} string values with captured ids.
func expand(payload map[string]any, captures map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		expanded, err := expandValue(value, captures)
		if err != nil {
			return nil, err
		}
		out[key] = expanded
	}
	return out, nil
}

func expandValue(value any, captures map[string]string) (any, error) {
	switch v := value.(type) {
	case string:
		name, ok := strings.CutPrefix(v, "${")
		if !ok || !strings.HasSuffix(name, "}") {
			return v, nil
		}
		name = strings.TrimSuffix(name, "}")
		id, ok := captures[name]
		if !ok {
			return nil, fmt.Errorf("capture %q is not defined", name)
		}
		return id, nil
	case map[string]any:
		return expand(v, captures)
	default:
		return v, nil
	}
}
