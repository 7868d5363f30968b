package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tsgonest/arkgen/internal/converter"
)

// Mode selects how generated types relate to the source declarations.
type Mode string

const (
	// ModeStandalone infers every type from its schema.
	ModeStandalone Mode = "standalone"
	// ModeExtend re-exports the source types next to the schemas.
	ModeExtend Mode = "extend"
	// ModeReplace infers types and re-exports them flat from index.ts so the
	// module can stand in for the source types.
	ModeReplace Mode = "replace"
)

// Modes lists the valid modes.
var Modes = []Mode{ModeStandalone, ModeExtend, ModeReplace}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q (expected standalone, extend or replace)", s)
}

// Result is one converted declaration.
type Result struct {
	Name   string
	Schema string
	Doc    string
	// Category overrides the category rules when set.
	Category string
	// TypeParams is the generic arity of the source declaration. Extend mode
	// cannot name a generic source type bare, so it infers those instead.
	TypeParams int
}

// CategoryRule assigns names matching Pattern to the file Name.ts. An empty
// pattern matches everything.
type CategoryRule struct {
	Name    string `mapstructure:"name" json:"name"`
	Pattern string `mapstructure:"pattern" json:"pattern,omitempty"`
}

// DefaultCategories splits content-like types from the rest.
var DefaultCategories = []CategoryRule{
	{Name: "content", Pattern: `Block|RichText|Mention|Equation|Property|Page|Database|File|Emoji|Icon|Cover`},
	{Name: "other"},
}

// Options controls module generation.
type Options struct {
	Mode Mode
	// Utilities adds is/parse/safeParse helpers per type.
	Utilities bool
	// SourceModule is the import specifier of the source types, used in
	// extend mode.
	SourceModule string
	// SourceFile is named in the file banner.
	SourceFile string
	Categories []CategoryRule
}

// File is a generated file. Path is relative to the output directory.
type File struct {
	Path    string
	Content string
}

const (
	scopeFile = "scope.ts"
	indexFile = "index.ts"
)

type category struct {
	name     string
	res      []*regexp2.Regexp
	catchAll bool
	results  []Result
}

// Generate renders the module files for results, in input order.
func Generate(results []Result, opts Options) ([]File, *Manifest, error) {
	if opts.Mode == "" {
		opts.Mode = ModeStandalone
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, nil, err
	}
	if opts.Mode == ModeExtend && opts.SourceModule == "" {
		return nil, nil, fmt.Errorf("extend mode requires a source module")
	}
	rules := opts.Categories
	if len(rules) == 0 {
		rules = DefaultCategories
	}

	cats, err := compileCategories(rules)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range results {
		c := pickCategory(cats, r)
		c.results = append(c.results, r)
	}

	manifest := NewManifest(opts.Mode)
	files := []File{{Path: scopeFile, Content: renderScope(results, opts)}}
	var used []*category
	for _, c := range cats {
		if len(c.results) == 0 {
			continue
		}
		used = append(used, c)
		fileName := c.name + ".ts"
		files = append(files, File{Path: fileName, Content: renderCategory(c, opts)})
		for _, r := range c.results {
			manifest.Add(r.Name, c.name, "./"+fileName, opts.Utilities)
		}
	}
	files = append(files, File{Path: indexFile, Content: renderIndex(used, opts)})
	return files, manifest, nil
}

// compileCategories groups rules by name in order of first appearance. A
// rule without a pattern makes its category the catch-all; without one the
// "other" category takes that role.
func compileCategories(rules []CategoryRule) ([]*category, error) {
	var cats []*category
	byName := make(map[string]*category)
	get := func(name string) *category {
		if c, ok := byName[name]; ok {
			return c
		}
		c := &category{name: name}
		byName[name] = c
		cats = append(cats, c)
		return c
	}

	hasCatchAll := false
	for _, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("category rule without a name")
		}
		if rule.Name == "scope" || rule.Name == "index" {
			return nil, fmt.Errorf("category name %q is reserved", rule.Name)
		}
		c := get(rule.Name)
		if rule.Pattern == "" {
			c.catchAll = true
			hasCatchAll = true
			continue
		}
		re, err := regexp2.Compile(rule.Pattern, regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("category %s: invalid pattern: %w", rule.Name, err)
		}
		c.res = append(c.res, re)
	}
	if !hasCatchAll {
		get("other").catchAll = true
	}
	return cats, nil
}

func pickCategory(cats []*category, r Result) *category {
	if r.Category != "" {
		for _, c := range cats {
			if c.name == r.Category {
				return c
			}
		}
	}
	for _, c := range cats {
		for _, re := range c.res {
			if ok, err := re.MatchString(r.Name); err == nil && ok {
				return c
			}
		}
	}
	for _, c := range cats {
		if c.catchAll {
			return c
		}
	}
	return cats[len(cats)-1]
}

func banner(e *Emitter, opts Options) {
	e.Line("// Code generated by arkgen. DO NOT EDIT.")
	if opts.SourceFile != "" {
		e.Line("// Source: %s", filepath.Base(opts.SourceFile))
	}
	e.Blank()
}

func renderScope(results []Result, opts Options) string {
	e := NewEmitter()
	banner(e, opts)
	e.Line(`import { scope } from "arktype"`)
	e.Blank()
	if len(results) == 0 {
		e.Line("export const schemas = scope({}).export()")
		return e.String()
	}
	e.Line("export const schemas = scope({")
	e.Indent()
	for _, r := range results {
		e.Comment(r.Doc)
		e.Text(converter.SchemaName(r.Name) + ": " + r.Schema + ",")
	}
	e.Dedent()
	e.Line("}).export()")
	return e.String()
}

func renderCategory(c *category, opts Options) string {
	e := NewEmitter()
	banner(e, opts)
	if opts.Utilities {
		e.Line(`import { type, type ArkErrors } from "arktype"`)
	}
	if opts.Mode == ModeExtend {
		e.Line(`import type * as api from %q`, opts.SourceModule)
	}
	e.Line(`import { schemas } from "./scope"`)

	for _, r := range c.results {
		name := converter.BareName(r.Name)
		schemaName := converter.SchemaName(r.Name)

		e.Blank()
		e.Comment(r.Doc)
		e.Line("export const %s = schemas.%s", schemaName, schemaName)
		if opts.Mode == ModeExtend && r.TypeParams == 0 {
			e.Line("export type %s = api.%s", name, r.Name)
		} else {
			e.Line("export type %s = typeof %s.infer", name, schemaName)
		}
		if opts.Utilities {
			renderUtilities(e, name, schemaName)
		}
	}
	return e.String()
}

func renderUtilities(e *Emitter, name, schemaName string) {
	e.Blank()
	e.Block("export function is%s(value: unknown): value is %s", name, name)
	e.Line("return !(%s(value) instanceof type.errors)", schemaName)
	e.EndBlock()

	e.Blank()
	e.Block("export function parse%s(value: unknown): %s", name, name)
	e.Line("const result = %s(value)", schemaName)
	e.Block("if (result instanceof type.errors)")
	e.Line("throw new Error(result.summary)")
	e.EndBlock()
	e.Line("return result as %s", name)
	e.EndBlock()

	e.Blank()
	e.Block("export function safeParse%s(value: unknown): { success: true; data: %s } | { success: false; errors: ArkErrors }", name, name)
	e.Line("const result = %s(value)", schemaName)
	e.Block("if (result instanceof type.errors)")
	e.Line("return { success: false, errors: result }")
	e.EndBlock()
	e.Line("return { success: true, data: result as %s }", name)
	e.EndBlock()
}

func renderIndex(cats []*category, opts Options) string {
	e := NewEmitter()
	banner(e, opts)
	e.Line(`export { schemas } from "./scope"`)
	for _, c := range cats {
		e.Line(`export * as %s from "./%s"`, NamespaceName(c.name), c.name)
	}
	if opts.Mode == ModeReplace {
		for _, c := range cats {
			names := make([]string, len(c.results))
			for i, r := range c.results {
				names[i] = converter.BareName(r.Name)
			}
			e.Line(`export type { %s } from "./%s"`, strings.Join(names, ", "), c.name)
		}
	}
	return e.String()
}

// NamespaceName turns a category name such as "rich-text" into the
// identifier "RichText".
func NamespaceName(category string) string {
	words := strings.FieldsFunc(category, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	caser := cases.Title(language.English, cases.NoLower)
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(caser.String(w))
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "N" + name
	}
	return name
}
