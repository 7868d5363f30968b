// Package codegen renders converted schemas as an ArkType TypeScript module.
package codegen

import (
	"fmt"
	"strings"
)

// Emitter accumulates TypeScript source, two spaces per indentation level.
type Emitter struct {
	buf    strings.Builder
	indent int
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) prefix() string {
	return strings.Repeat("  ", e.indent)
}

// Line writes one indented line. An empty line gets no trailing spaces.
func (e *Emitter) Line(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line != "" {
		e.buf.WriteString(e.prefix())
	}
	e.buf.WriteString(line)
	e.buf.WriteByte('\n')
}

// Text writes pre-formatted, possibly multi-line text. Every line is
// prefixed with the current indentation; relative indentation inside text
// is preserved.
func (e *Emitter) Text(text string) {
	for _, line := range strings.Split(text, "\n") {
		e.Line("%s", line)
	}
}

func (e *Emitter) Blank() {
	e.buf.WriteByte('\n')
}

// Comment writes a JSDoc block. Empty text writes nothing.
func (e *Emitter) Comment(text string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "*/", "*\\/"))
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		e.Line("/** %s */", lines[0])
		return
	}
	e.Line("/**")
	for _, l := range lines {
		e.Line("%s", strings.TrimRight(" * "+l, " "))
	}
	e.Line(" */")
}

// Block writes the line followed by " {" and indents.
func (e *Emitter) Block(format string, args ...any) {
	e.Line(format+" {", args...)
	e.indent++
}

// EndBlock dedents and writes "}".
func (e *Emitter) EndBlock() {
	e.Close("")
}

// Close dedents and writes "}" followed by suffix, e.g. " else {" or
// ").export()".
func (e *Emitter) Close(suffix string) {
	e.Dedent()
	e.Line("}%s", suffix)
}

func (e *Emitter) Indent() {
	e.indent++
}

// Dedent decreases the indentation level, stopping at zero.
func (e *Emitter) Dedent() {
	e.indent = max(e.indent-1, 0)
}

func (e *Emitter) String() string {
	return e.buf.String()
}
