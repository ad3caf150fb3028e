// Package textcase holds identifier helpers shared by the form packages.
package textcase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TagName turns an alias such as "contact-form_v2" into "contactFormV2":
// '-', '_', '.' and spaces separate words, every word is capitalised and the
// first rune is lowered.
func TagName(alias string) string {
	words := strings.FieldsFunc(alias, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
	})
	var builder strings.Builder
	builder.Grow(len(alias))
	for _, word := range words {
		builder.WriteString(UpperFirst(word))
	}
	return LowerFirst(builder.String())
}

// UpperFirst upper-cases the first rune of s.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// LowerFirst lower-cases the first rune of s.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// Humanize turns a slug like "first_name" into "First name".
func Humanize(slug string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(slug)
	return UpperFirst(strings.Join(strings.Fields(replaced), " "))
}
