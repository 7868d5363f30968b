package codegen

import (
	"strings"
	"testing"
)

func TestEmitterLine(t *testing.T) {
	e := NewEmitter()
	e.Line("const x = 1")
	if got := e.String(); got != "const x = 1\n" {
		t.Errorf("got %q", got)
	}
}

func TestEmitterBlank(t *testing.T) {
	e := NewEmitter()
	e.Line("a")
	e.Blank()
	e.Line("b")
	if got := e.String(); got != "a\n\nb\n" {
		t.Errorf("got %q", got)
	}
}

func TestEmitterBlock(t *testing.T) {
	e := NewEmitter()
	e.Block("if (true)")
	e.Line("return 1")
	e.EndBlock()
	expected := "if (true) {\n  return 1\n}\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterNestedBlocks(t *testing.T) {
	e := NewEmitter()
	e.Block("function foo()")
	e.Block("if (x)")
	e.Line("return")
	e.EndBlock()
	e.EndBlock()
	expected := "function foo() {\n  if (x) {\n    return\n  }\n}\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterFormat(t *testing.T) {
	e := NewEmitter()
	e.Line("const %s = %d", "x", 42)
	if got := e.String(); got != "const x = 42\n" {
		t.Errorf("got %q", got)
	}
}

func TestEmitterClose(t *testing.T) {
	e := NewEmitter()
	e.Block("if (result instanceof type.errors)")
	e.Line("return false")
	e.Close(" else {")
	e.Indent()
	e.Line("return true")
	e.EndBlock()
	expected := "if (result instanceof type.errors) {\n  return false\n} else {\n  return true\n}\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterTextKeepsRelativeIndent(t *testing.T) {
	e := NewEmitter()
	e.Indent()
	e.Text("ASchema: {\n  \"a\": \"string\"\n},")
	expected := "  ASchema: {\n    \"a\": \"string\"\n  },\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterComment(t *testing.T) {
	e := NewEmitter()
	e.Comment("")
	if e.String() != "" {
		t.Fatalf("empty comment should write nothing, got %q", e.String())
	}
	e.Comment("One line */ here")
	e.Comment("First\n\nSecond")
	got := e.String()
	if !strings.Contains(got, "/** One line *\\/ here */\n") {
		t.Errorf("single-line comment not escaped: %q", got)
	}
	if !strings.Contains(got, "/**\n * First\n *\n * Second\n */\n") {
		t.Errorf("multi-line comment malformed: %q", got)
	}
}

func TestEmitterDedentClamps(t *testing.T) {
	e := NewEmitter()
	e.Dedent()
	e.Line("x")
	if got := e.String(); got != "x\n" {
		t.Errorf("got %q", got)
	}
}
