// Package naming derives the public names of bindables, modules and their
// route segments.
package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BindableSuffix is stripped from type names before deriving a bindable name.
const BindableSuffix = "Bindable"

const enginePrefix = "engine_"

// BindableName derives the lower snake_case singular name of a bindable type:
// "WidgetBindable" becomes "widget" and "SourceItemsBindable" becomes
// "source_item".
func BindableName(typeName string) string {
	typeName = strings.TrimSpace(typeName)
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		typeName = typeName[i+1:]
	}
	typeName = strings.TrimPrefix(typeName, "*")
	if trimmed := strings.TrimSuffix(typeName, BindableSuffix); trimmed != "" {
		typeName = trimmed
	}
	return Singular(SnakeCase(typeName))
}

// NormalizeModuleName lower-cases and snake-cases a module display name and
// strips an "engine_" prefix.
func NormalizeModuleName(name string) string {
	name = SnakeCase(strings.TrimSpace(name))
	if trimmed := strings.TrimPrefix(name, enginePrefix); trimmed != "" {
		name = trimmed
	}
	return name
}

// Singular singularizes the last word of a snake_case name.
func Singular(name string) string {
	return inflection.Singular(name)
}

// Plural pluralizes the last word of a snake_case name.
func Plural(name string) string {
	return inflection.Plural(name)
}

// Titleize turns a snake_case name into a display label: "source_items"
// becomes "Source Items".
func Titleize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// SnakeCase converts CamelCase, spaced or dashed words into lower snake_case.
// Acronyms are kept together: "HTTPRequest" becomes "http_request".
func SnakeCase(value string) string {
	runes := []rune(strings.TrimSpace(value))
	var b strings.Builder
	b.Grow(len(runes) + 4)
	lastUnderscore := true
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && !lastUnderscore {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		lastUnderscore = false
	}
	return strings.TrimSuffix(b.String(), "_")
}
