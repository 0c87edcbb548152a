package internal

import (
	"strings"
	"unicode"

	"github.com/lychee-technology/kindgen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KindTitle returns properties.kind.title of a kind schema.
func KindTitle(schema kindgen.Schema) (string, bool) {
	kind, ok := schema.Property(kindgen.FieldKind)
	if !ok {
		return "", false
	}
	title, ok := kind.Title()
	if !ok || strings.TrimSpace(title) == "" {
		return "", false
	}
	return title, true
}

// KindTypeName derives the model type name from the kind title: characters that are not
// allowed in file names are dropped, every word is title-cased and spaces are removed,
// so "web server" becomes "WebServer".
func KindTypeName(schema kindgen.Schema) (string, bool) {
	title, ok := KindTitle(schema)
	if !ok {
		return "", false
	}
	return TypeNameFromTitle(title)
}

// TypeNameFromTitle applies the KindTypeName rules to a raw title.
func TypeNameFromTitle(title string) (string, bool) {
	name := sanitizeFileName(title)
	name = cases.Title(language.Und).String(name)

	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "", false
	}
	if unicode.IsDigit([]rune(out)[0]) || out[0] == '_' {
		out = "X" + out
	}
	return out, true
}

// sanitizeFileName removes characters that are reserved in file names on common platforms.
func sanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
	return strings.Trim(cleaned, " .")
}
