// Package diagnostic collects structured, position-aware messages produced
// while parsing and converting declaration files.
package diagnostic

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Severity orders diagnostics from informational to fatal.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

var severityNames = [...]string{
	SeverityInfo:    "info",
	SeverityWarning: "warning",
	SeverityError:   "error",
}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// Category classifies diagnostics for filtering.
type Category string

const (
	CategoryTypeUnsupported    Category = "type-unsupported"
	CategoryUnresolvedRef      Category = "unresolved-reference"
	CategoryDepthExceeded      Category = "depth-exceeded"
	CategoryUnionWidened       Category = "union-widened"
	CategoryIntersectionLossy  Category = "intersection-lossy"
	CategoryParseError         Category = "parse-error"
	CategoryConfigInvalid      Category = "config-invalid"
	CategoryConverterRecovered Category = "converter-recovered"
)

// Location points at the construct a diagnostic is about. Zero fields are
// unknown.
type Location struct {
	File     string
	Line     int
	Column   int
	TypeName string // enclosing declaration
}

// position renders "file:line:col", dropping the unknown parts.
func (l Location) position() string {
	if l.File == "" {
		return ""
	}
	pos := l.File
	if l.Line > 0 {
		pos += ":" + strconv.Itoa(l.Line)
		if l.Column > 0 {
			pos += ":" + strconv.Itoa(l.Column)
		}
	}
	return pos
}

// Diagnostic is one message with its severity and origin.
type Diagnostic struct {
	Severity Severity
	Category Category
	Location
	Message string
	Hint    string
}

// String renders the diagnostic as
//
//	file:line:col - severity: [category] Type: message
//	  hint: ...
func (d Diagnostic) String() string {
	var sb strings.Builder
	if pos := d.position(); pos != "" {
		sb.WriteString(pos + " - ")
	}
	sb.WriteString(d.Severity.String() + ": ")
	if d.Category != "" {
		fmt.Fprintf(&sb, "[%s] ", d.Category)
	}
	if d.TypeName != "" {
		sb.WriteString(d.TypeName + ": ")
	}
	sb.WriteString(d.Message)
	if d.Hint != "" {
		sb.WriteString("\n  hint: " + d.Hint)
	}
	return sb.String()
}

// Collector accumulates the diagnostics of one generation run. Strict turns
// warnings into errors; quiet drops warnings and infos but keeps errors.
//
// A nil *Collector is valid and discards everything.
type Collector struct {
	strict bool
	quiet  bool

	diagnostics []Diagnostic
	counts      [len(severityNames)]int
}

// NewCollector creates an empty collector.
func NewCollector(strict, quiet bool) *Collector {
	return &Collector{strict: strict, quiet: quiet}
}

func (c *Collector) add(sev Severity, category Category, loc Location, message, hint string) {
	if c == nil {
		return
	}
	if sev == SeverityWarning && c.strict {
		sev = SeverityError
	}
	if sev != SeverityError && c.quiet {
		return
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: sev,
		Category: category,
		Location: loc,
		Message:  message,
		Hint:     hint,
	})
	c.counts[sev]++
}

func (c *Collector) Warn(category Category, loc Location, message string) {
	c.add(SeverityWarning, category, loc, message, "")
}

// WarnWithHint records a warning with a suggested fix.
func (c *Collector) WarnWithHint(category Category, loc Location, message, hint string) {
	c.add(SeverityWarning, category, loc, message, hint)
}

func (c *Collector) Error(category Category, loc Location, message string) {
	c.add(SeverityError, category, loc, message, "")
}

// Info records a note about a deliberate precision loss. Strict mode does
// not escalate it.
func (c *Collector) Info(category Category, loc Location, message string) {
	c.add(SeverityInfo, category, loc, message, "")
}

// Diagnostics returns the diagnostics in insertion order.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diagnostics
}

// ByCategory returns the diagnostics of one category in insertion order.
func (c *Collector) ByCategory(category Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns a copy ordered by file, line and column.
func (c *Collector) Sorted() []Diagnostic {
	if c == nil {
		return nil
	}
	out := slices.Clone(c.diagnostics)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		if n := strings.Compare(a.File, b.File); n != 0 {
			return n
		}
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return a.Column - b.Column
	})
	return out
}

func (c *Collector) HasErrors() bool { return c.ErrorCount() > 0 }

func (c *Collector) ErrorCount() int { return c.count(SeverityError) }

func (c *Collector) WarningCount() int { return c.count(SeverityWarning) }

func (c *Collector) count(sev Severity) int {
	if c == nil {
		return 0
	}
	return c.counts[sev]
}

// FormatAll renders every diagnostic on its own line.
func (c *Collector) FormatAll() string {
	var sb strings.Builder
	for _, d := range c.Diagnostics() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a line like "1 error(s), 2 warning(s) (2 union-widened)".
// Infos are not counted.
func (c *Collector) Summary() string {
	if c == nil {
		return ""
	}
	var parts []string
	if n := c.ErrorCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", n))
	}
	if n := c.WarningCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", n))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	summary := strings.Join(parts, ", ")

	byCategory := make(map[Category]int)
	for _, d := range c.diagnostics {
		if d.Severity != SeverityInfo && d.Category != "" {
			byCategory[d.Category]++
		}
	}
	var detail []string
	for _, cat := range slices.Sorted(maps.Keys(byCategory)) {
		detail = append(detail, fmt.Sprintf("%d %s", byCategory[cat], cat))
	}
	if len(detail) > 0 {
		summary += " (" + strings.Join(detail, ", ") + ")"
	}
	return summary
}
