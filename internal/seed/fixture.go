package seed

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is a named, ordered list of bindable calls.
type Fixture struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one bindable call. String payload values of the form ${name}
// are replaced with ids captured by earlier steps.
type Step struct {
	Name     string         `yaml:"name"`
	Bindable string         `yaml:"bindable"`
	Action   string         `yaml:"action"`
	Payload  map[string]any `yaml:"payload"`
	// Capture stores the id of a successful result under this name.
	Capture string `yaml:"capture"`
	// Expect is a failure code the step must produce. Empty expects success.
	Expect string `yaml:"expect"`
}

// LoadFixtures decodes every fixture matching pattern in fsys, sorted by
// file name.
func LoadFixtures(fsys fs.FS, pattern string) ([]Fixture, error) {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixtures match %s", pattern)
	}
	sort.Strings(files)

	fixtures := make([]Fixture, 0, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", file, err)
		}
		var fixture Fixture
		if err := yaml.Unmarshal(data, &fixture); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", file, err)
		}
		if strings.TrimSpace(fixture.Name) == "" {
			fixture.Name = scenarioName(file)
		}
		fixtures = append(fixtures, fixture)
	}
	return fixtures, nil
}

// ListScenarios returns the scenario names available in fsys.
func ListScenarios(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, scenarioName(file))
	}
	sort.Strings(names)
	return names, nil
}

func scenarioName(file string) string {
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}
