// Package frontmatter parses the minimal metadata block that opens a
// content document: "---" delimited lines of key: value pairs where a value
// is a string, a bracketed list of strings, or a boolean. Nested values,
// multi-line scalars and numbers are deliberately unsupported.
package frontmatter

import (
	"sort"
	"strings"
)

const delimiter = "---"

// Kind identifies the type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a single typed frontmatter value.
type Value struct {
	kind Kind
	str  string
	list []string
	b    bool
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// ListValue returns a list Value. The slice is copied.
func ListValue(items ...string) Value {
	return Value{kind: KindList, list: append([]string{}, items...)}
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which accessor holds the value.
func (v Value) Kind() Kind { return v.kind }

// String returns the value as text. Lists are joined with ", ".
func (v Value) String() string {
	switch v.kind {
	case KindList:
		return strings.Join(v.list, ", ")
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return v.str
	}
}

// List returns the value as a list. A non-empty string is a one-element
// list; a bool yields nil.
func (v Value) List() []string {
	switch v.kind {
	case KindList:
		return append([]string{}, v.list...)
	case KindString:
		if v.str == "" {
			return nil
		}
		return []string{v.str}
	default:
		return nil
	}
}

// Bool returns the boolean value. Only KindBool values can be true.
func (v Value) Bool() bool {
	return v.kind == KindBool && v.b
}

// Map holds the parsed keys of one frontmatter block.
type Map map[string]Value

// String returns the trimmed text of key, or "" when absent.
func (m Map) String(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// List returns key as a list, or nil when absent.
func (m Map) List(key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	return v.List()
}

// Bool returns key as a boolean, false when absent.
func (m Map) Bool(key string) bool {
	return m[key].Bool()
}

// First returns the text of the first key that holds a non-empty value.
func (m Map) First(keys ...string) string {
	for _, k := range keys {
		if s := m.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Parse returns the metadata of text. When text does not open with a
// complete block the map is empty, never nil.
func Parse(text string) Map {
	m, _ := Split(text)
	return m
}

// Split parses the metadata block and returns it together with the body
// that follows the closing delimiter. Without a block, body is text.
func Split(text string) (Map, string) {
	m := Map{}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 || trimCR(lines[0]) != delimiter {
		return m, text
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if trimCR(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return m, text
	}

	for _, line := range lines[1:end] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			continue
		}

		key := strings.TrimSpace(line[:sep])
		if key == "" {
			continue
		}

		m[key] = parseValue(strings.TrimSpace(line[sep+1:]))
	}

	return m, strings.Join(lines[end+1:], "\n")
}

func parseValue(raw string) Value {
	if len(raw) >= 2 && raw[0] == '[' && raw[len(raw)-1] == ']' {
		items := []string{}
		for _, item := range strings.Split(raw[1:len(raw)-1], ",") {
			item = unquote(strings.TrimSpace(item))
			if item != "" {
				items = append(items, item)
			}
		}
		return Value{kind: KindList, list: items}
	}

	s := unquote(raw)
	switch s {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}

	return StringValue(s)
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}

// Render serialises m as a delimited block with keys in sorted order.
// Strings that would otherwise read back as another type, or lose
// surrounding whitespace, are double quoted.
func Render(m Map) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(delimiter + "\n")

	for _, k := range keys {
		v := m[k]
		b.WriteString(k)
		b.WriteString(": ")

		switch v.kind {
		case KindList:
			b.WriteString("[")
			b.WriteString(strings.Join(v.list, ", "))
			b.WriteString("]")
		case KindBool:
			b.WriteString(v.String())
		default:
			b.WriteString(renderString(v.str))
		}

		b.WriteString("\n")
	}

	b.WriteString(delimiter + "\n")
	return b.String()
}

func renderString(s string) string {
	needsQuotes := s != strings.TrimSpace(s) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		unquote(s) != s
	if needsQuotes {
		return `"` + s + `"`
	}
	return s
}
