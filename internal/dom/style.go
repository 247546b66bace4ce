package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Declaration is a single inline style property.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// ParseDeclarations parses an inline style string into ordered declarations.
// Property names are normalized to kebab-case; a trailing !important marker
// is split out of the value.
func ParseDeclarations(style string) []Declaration {
	var decls []Declaration
	for _, seg := range strings.Split(style, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		idx := strings.Index(seg, ":")
		if idx <= 0 {
			continue
		}
		prop := CamelToKebab(strings.TrimSpace(seg[:idx]))
		value, important := SplitImportant(seg[idx+1:])
		if prop == "" || value == "" {
			continue
		}
		decls = append(decls, Declaration{Property: prop, Value: value, Important: important})
	}
	return decls
}

// FormatDeclarations renders declarations back to an inline style string.
func FormatDeclarations(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		s := d.Property + ": " + d.Value
		if d.Important {
			s += " !important"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

// StyleMap returns the node's inline styles keyed by kebab-case property.
// Important properties keep an " !important" suffix on the value so the map
// round-trips through SetStyleProperty.
func StyleMap(n *html.Node) map[string]string {
	decls := ParseDeclarations(GetAttr(n, "style"))
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		v := d.Value
		if d.Important {
			v += " !important"
		}
		out[d.Property] = v
	}
	return out
}

// SetStyleProperty sets one inline style property, preserving the order and
// values of the others. This avoids the shorthand/longhand conflicts of
// string concatenation onto the style attribute.
func SetStyleProperty(n *html.Node, prop, value string, important bool) {
	prop = CamelToKebab(strings.TrimSpace(prop))
	if prop == "" {
		return
	}

	decls := ParseDeclarations(GetAttr(n, "style"))
	replaced := false
	for i := range decls {
		if decls[i].Property == prop {
			decls[i].Value = value
			decls[i].Important = important
			replaced = true
			break
		}
	}
	if !replaced {
		decls = append(decls, Declaration{Property: prop, Value: value, Important: important})
	}
	SetAttr(n, "style", FormatDeclarations(decls))
}

// ClearStyle removes the style attribute entirely.
func ClearStyle(n *html.Node) {
	RemoveAttr(n, "style")
}

// SplitImportant strips a trailing !important marker from a CSS value.
func SplitImportant(value string) (string, bool) {
	v := strings.TrimSpace(value)
	lower := strings.ToLower(v)
	if strings.HasSuffix(lower, "!important") {
		return strings.TrimSpace(v[:len(v)-len("!important")]), true
	}
	return v, false
}

// CamelToKebab converts camelCase CSS property names to kebab-case.
// Already-kebab names pass through unchanged.
func CamelToKebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
