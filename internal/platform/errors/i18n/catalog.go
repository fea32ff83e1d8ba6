// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// BaseLocale is the locale used when negotiation finds no better match.
const BaseLocale = "en-US"

// Message keys that are not taxonomy codes.
const (
	KeyBindableNotFound  Code = "BINDABLE_NOT_FOUND"
	KeyUnsupportedAction Code = "UNSUPPORTED_ACTION"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

var (
	catalogsMu sync.RWMutex
	// catalogs holds embedded and registered catalogs by locale.
	catalogs = map[string]*Catalog{}
	matcher  language.Matcher
	tags     []string
)

func init() {
	loaded, err := loadLocales(embeddedLocales)
	if err != nil {
		panic(err)
	}
	for _, cat := range loaded {
		catalogs[cat.locale] = cat
	}
	rebuildMatcherLocked()
}

// GetCatalog returns the catalog that best matches locale.
// Falls back to en-US if no supported locale matches.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}

	catalogsMu.RLock()
	defer catalogsMu.RUnlock()

	if c, ok := catalogs[requested]; ok {
		return c
	}
	tag, err := language.Parse(requested)
	if err == nil && matcher != nil {
		_, index, confidence := matcher.Match(tag)
		if confidence != language.No && index < len(tags) {
			if c, ok := catalogs[tags[index]]; ok {
				return c
			}
		}
	}
	return catalogs[BaseLocale]
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Has reports whether the catalog carries a template for code.
func (c *Catalog) Has(code Code) bool {
	if c == nil {
		return false
	}
	_, ok := c.messages[code]
	return ok
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
// Templates are always executed even with nil/empty metadata to ensure
// consistent output (template variables without metadata render as empty).
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	if c == nil {
		return code
	}
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a catalog for the given locale and makes it
// available to locale negotiation. Intended for init or test setup.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
	rebuildMatcherLocked()
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{
		locale:   locale,
		messages: cloned,
	}
}

func loadLocales(fsys fs.FS) ([]*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	out := make([]*Catalog, 0, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", path, err)
		}
		var parsed localeFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		if strings.TrimSpace(parsed.Locale) == "" {
			return nil, fmt.Errorf("locale %s: locale is required", path)
		}
		out = append(out, NewCatalog(strings.TrimSpace(parsed.Locale), parsed.Messages))
	}
	return out, nil
}

// rebuildMatcherLocked must be called with catalogsMu held for writing.
func rebuildMatcherLocked() {
	tags = tags[:0]
	supported := make([]language.Tag, 0, len(catalogs))
	if _, ok := catalogs[BaseLocale]; ok {
		tags = append(tags, BaseLocale)
		supported = append(supported, language.MustParse(BaseLocale))
	}
	locales := make([]string, 0, len(catalogs))
	for locale := range catalogs {
		if locale != BaseLocale {
			locales = append(locales, locale)
		}
	}
	sort.Strings(locales)
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		tags = append(tags, locale)
		supported = append(supported, tag)
	}
	if len(supported) == 0 {
		matcher = nil
		return
	}
	matcher = language.NewMatcher(supported)
}
