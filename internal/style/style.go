// Package style provides naming strategies that map a dataset's declared
// name to the name of its storable target.
//
// A style is a pure string transformation with no side effects. The loader
// applies it once per dataset when resolving the storage target, unless the
// dataset pins an explicit storable name.
package style

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Original returns dataset names unchanged.
// The zero value is ready to use.
type Original struct{}

// StorableName returns name as-is.
func (Original) StorableName(name string) string {
	return name
}

// Trimmed strips a fixed prefix and/or suffix from the dataset name.
// Missing affixes are left alone rather than erroring; a style never fails,
// a bad mapping surfaces later as a lookup error.
type Trimmed struct {
	Prefix string
	Suffix string
}

// StorableName trims the configured affixes.
func (s Trimmed) StorableName(name string) string {
	name = strings.TrimPrefix(name, s.Prefix)
	return strings.TrimSuffix(name, s.Suffix)
}

// NamedData trims the conventional "Data" suffix: AuthorData -> Author.
func NamedData() Trimmed {
	return Trimmed{Suffix: "Data"}
}

// CamelToUnder converts CamelCase dataset names to snake_case storable
// names: ProductOrder -> product_order. Useful when storables are table
// names in a keyed environment.
type CamelToUnder struct{}

// StorableName lowercases the name, inserting underscores at case
// boundaries.
func (CamelToUnder) StorableName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Boundary before an upper rune that follows a lower rune, or
			// that starts a new word after an acronym run (HTTPServer ->
			// http_server).
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UnderToCamel converts snake_case dataset names to CamelCase storable
// names: product_order -> ProductOrder. The inverse mapping of
// CamelToUnder, for environments keyed by Go type names.
type UnderToCamel struct{}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// StorableName title-cases each underscore-separated word and joins them.
func (UnderToCamel) StorableName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = titleCaser.String(w)
	}
	return strings.Join(words, "")
}

// Chain applies styles left to right, feeding each result into the next.
//
//	style.Chain{style.NamedData(), style.CamelToUnder{}}
//
// maps BookData -> Book -> book.
type Chain []interface{ StorableName(string) string }

// StorableName applies every style in order.
func (c Chain) StorableName(name string) string {
	for _, s := range c {
		name = s.StorableName(name)
	}
	return name
}
