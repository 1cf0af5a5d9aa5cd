// internal/fields/fields.go

// Package fields splits the comma-separated records used by the command
// protocol and the bookstore flat file.
//
// Commas inside double quotes or inside braces do not split a field, so
// `9780,"Dune, Part 1",{Frank Herbert,Brian Herbert}` yields three fields.
package fields

import "strings"

// Split breaks s on top-level commas. Quotes are stripped from quoted fields;
// braces are kept so callers can tell a list from a scalar.
func Split(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		depth   int
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '{' && !inQuote:
			depth++
			cur.WriteRune(r)
		case r == '}' && !inQuote && depth > 0:
			depth--
			cur.WriteRune(r)
		case r == ',' && !inQuote && depth == 0:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

// IsList reports whether field is a brace-delimited list.
func IsList(field string) bool {
	return strings.HasPrefix(field, "{") && strings.HasSuffix(field, "}")
}

// List unpacks `{a,b,c}` into its elements. A field without braces is
// returned as a single element; `{}` and "" yield nil.
func List(field string) []string {
	inner := strings.TrimSpace(field)
	if IsList(inner) {
		inner = inner[1 : len(inner)-1]
	}
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var out []string
	for _, item := range Split(inner) {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// FormatList renders items as `{a,b,c}`.
func FormatList(items []string) string {
	return "{" + strings.Join(items, ",") + "}"
}

// Terminator ends every protocol request and response.
const Terminator = ';'

// SplitRequests cuts s into terminated requests, without their terminators.
// A terminator inside quotes does not count. Whatever follows the last
// terminator is returned as rest.
func SplitRequests(s string) (requests []string, rest string) {
	inQuote := false
	start := 0
	for i, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == Terminator && !inQuote:
			requests = append(requests, s[start:i])
			start = i + 1
		}
	}
	return requests, s[start:]
}

// Quote wraps s in double quotes when it contains a comma, a brace or a
// terminator, so Split returns it as one field.
func Quote(s string) string {
	if strings.ContainsAny(s, ",{};") {
		return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
	}
	return s
}
