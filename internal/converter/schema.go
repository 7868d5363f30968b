package converter

import (
	"strings"
)

// Universal is the accept-anything definition every fallback produces.
const Universal = `"unknown"`

type schemaKind int

const (
	// defString is a string definition such as `string`, `"red" | "blue"`
	// or `FooSchema[]`.
	defString schemaKind = iota
	// defObject is an object literal definition.
	defObject
	// defExpr is a tuple expression such as [a, "|", b] or a tuple type.
	defExpr
)

// schema is the structured form of a definition. Values are never mutated
// after construction, so cached schemas can be shared.
type schema struct {
	kind  schemaKind
	str   string
	props []prop
	items []*schema
}

type prop struct {
	name     string
	optional bool
	index    bool // `[string]` index signature key
	value    *schema
}

func (p prop) key() string {
	if p.index {
		return "[string]"
	}
	name := p.name
	if strings.HasSuffix(name, "?") {
		// A literal trailing '?' must be escaped so it is not read as optional.
		name = name[:len(name)-1] + `\?`
	}
	if p.optional {
		return name + "?"
	}
	return name
}

func str(s string) *schema { return &schema{kind: defString, str: s} }

func universal() *schema { return str("unknown") }

func object(props []prop) *schema { return &schema{kind: defObject, props: props} }

func expr(items ...*schema) *schema { return &schema{kind: defExpr, items: items} }

func (s *schema) isUniversal() bool {
	return s.kind == defString && s.str == "unknown"
}

// arrayOf wraps s in an array definition.
func arrayOf(s *schema) *schema {
	if s.kind != defString {
		return expr(s, str("[]"))
	}
	if strings.ContainsAny(s.str, " |&") {
		return str("(" + s.str + ")[]")
	}
	return str(s.str + "[]")
}

// unionOf combines at least two members. Adjacent string members fold into
// one string definition; the rest are joined left-nested as [a, "|", b].
func unionOf(members []*schema) *schema {
	var folded []*schema
	var run []string
	flush := func() {
		if len(run) > 0 {
			folded = append(folded, str(strings.Join(run, " | ")))
			run = nil
		}
	}
	for _, m := range members {
		if m.kind == defString {
			run = append(run, m.str)
			continue
		}
		flush()
		folded = append(folded, m)
	}
	flush()

	out := folded[0]
	for _, m := range folded[1:] {
		out = expr(out, str("|"), m)
	}
	return out
}

// render writes the definition as TypeScript source. Objects are laid out
// one property per line, indented by indent+1 levels.
func (s *schema) render(sb *strings.Builder, indent int) {
	switch s.kind {
	case defString:
		sb.WriteString(quote(s.str))
	case defObject:
		if len(s.props) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{\n")
		for i, p := range s.props {
			writeIndent(sb, indent+1)
			sb.WriteString(quote(p.key()))
			sb.WriteString(": ")
			p.value.render(sb, indent+1)
			if i < len(s.props)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		writeIndent(sb, indent)
		sb.WriteByte('}')
	case defExpr:
		sb.WriteByte('[')
		for i, item := range s.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.render(sb, indent)
		}
		sb.WriteByte(']')
	}
}

// String renders the schema at indentation level zero.
func (s *schema) String() string {
	var sb strings.Builder
	s.render(&sb, 0)
	return sb.String()
}

func writeIndent(sb *strings.Builder, n int) {
	for range n {
		sb.WriteString("  ")
	}
}

// quote renders s as a JavaScript string literal, preferring double quotes
// unless s itself contains them.
func quote(s string) string {
	q := byte('"')
	if strings.IndexByte(s, '"') >= 0 && strings.IndexByte(s, '\'') < 0 {
		q = '\''
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case q:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}
