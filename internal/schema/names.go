// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import "strings"

// RemoveNamespace strips a single "ns:" prefix from s. Strings without
// a colon come back unchanged.
func RemoveNamespace(s string) string {
	if _, rest, ok := strings.Cut(s, ":"); ok {
		return rest
	}
	return s
}

// trimLeadingUnderscore drops one leading underscore, so "_user"
// becomes "user". Source system collections are named this way.
func trimLeadingUnderscore(s string) string {
	return strings.TrimPrefix(s, "_")
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// camelMerge folds snake_case into camelCase: every segment after the
// first is capitalized and the underscores removed. The first segment
// keeps its original casing.
func camelMerge(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		b.WriteString(Capitalize(part))
	}
	return b.String()
}

// ClassName canonicalizes a raw collection name into a class IRI:
// namespace prefix stripped, leading underscore trimmed, PascalCased
// with underscored segments merged, and the configured prefix
// re-attached.
func ClassName(raw, prefix string) string {
	name := RemoveNamespace(raw)
	name = trimLeadingUnderscore(name)
	name = camelMerge(Capitalize(name))
	return prefix + name
}

// PropertyName canonicalizes a raw property name into a property IRI.
// Properties keep their leading-case but merge underscored segments.
func PropertyName(raw, prefix string) string {
	return prefix + camelMerge(raw)
}
