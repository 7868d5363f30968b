package converter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/tsdecl"
)

func newConverter(t *testing.T, source string, generated ...string) (*Converter, *diagnostic.Collector) {
	t.Helper()
	file, errs := tsdecl.Parse("api.d.ts", source)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	diags := diagnostic.NewCollector(false, false)
	return New(Options{File: file, Generated: generated, Diagnostics: diags}), diags
}

func convertType(t *testing.T, c *Converter, source string) string {
	t.Helper()
	node, errs := tsdecl.ParseType(source)
	if len(errs) > 0 {
		t.Fatalf("parse errors for %q: %v", source, errs)
	}
	c.Context().Reset()
	return c.Convert(node, "")
}

func assertSchema(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("schema mismatch\nwant: %s\ngot:  %s", want, got)
	}
}

func assertCategory(t *testing.T, diags *diagnostic.Collector, category diagnostic.Category) {
	t.Helper()
	if len(diags.ByCategory(category)) == 0 {
		t.Errorf("expected a %s diagnostic, got:\n%s", category, diags.FormatAll())
	}
}

func TestConvert_Primitives(t *testing.T) {
	c, diags := newConverter(t, "")
	tests := []struct{ src, want string }{
		{"string", `"string"`},
		{"number", `"number"`},
		{"boolean", `"boolean"`},
		{"null", `"null"`},
		{"undefined", `"undefined"`},
		{"bigint", `"bigint"`},
		{"symbol", `"symbol"`},
		{"object", `"object"`},
		{"never", `"never"`},
		{"any", Universal},
		{"unknown", Universal},
		{"void", Universal},
	}
	for _, tt := range tests {
		assertSchema(t, convertType(t, c, tt.src), tt.want)
	}
	if len(diags.Diagnostics()) != 0 {
		t.Errorf("primitives should not produce diagnostics:\n%s", diags.FormatAll())
	}
}

func TestConvert_Literals(t *testing.T) {
	c, _ := newConverter(t, "")
	tests := []struct{ src, want string }{
		{`"red"`, `'"red"'`},
		{`'red'`, `"'red'"`},
		{`42`, `"42"`},
		{`-1`, `"-1"`},
		{`0xff`, `"255"`},
		{`1_000`, `"1000"`},
		{`true`, `"true"`},
		{`10n`, `"10n"`},
		{`"say \"hi\""`, `'"say \\"hi\\""'`},
	}
	for _, tt := range tests {
		assertSchema(t, convertType(t, c, tt.src), tt.want)
	}
}

func TestConvert_ThreeColorUnion(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, `"red" | "green" | "blue"`), `'"red" | "green" | "blue"'`)
}

func literalUnion(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`"v%d"`, i)
	}
	return strings.Join(parts, " | ")
}

func TestConvert_LargeLiteralUnionCollapses(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, literalUnion(51)), `"string"`)

	// Exactly at the threshold the literals are still enumerated.
	got := convertType(t, c, literalUnion(50))
	if !strings.Contains(got, `"v0" | "v1"`) || !strings.Contains(got, `"v49"`) {
		t.Errorf("expected 50 enumerated literals, got %s", got)
	}
}

func TestConvert_LargeMixedUnionWidens(t *testing.T) {
	c, diags := newConverter(t, "")
	src := `string | number | boolean | null | undefined | "a" | 1 | 2 | 3 | 4 | 5`
	assertSchema(t, convertType(t, c, src), Universal)
	assertCategory(t, diags, diagnostic.CategoryUnionWidened)
}

func TestConvert_MixedUnionDropsUniversal(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, `string | number | any`), `"string | number"`)
	assertSchema(t, convertType(t, c, `unknown | any`), Universal)
	assertSchema(t, convertType(t, c, `string | any`), `"string"`)
	assertSchema(t, convertType(t, c, `string | string`), `"string"`)
	assertSchema(t, convertType(t, c, `string | number | { a: string }`),
		"[\"string | number\", \"|\", {\n  \"a\": \"string\"\n}]")
	assertSchema(t, convertType(t, c, `{ a: string } | null | { b: number }`),
		"[[{\n  \"a\": \"string\"\n}, \"|\", \"null\"], \"|\", {\n  \"b\": \"number\"\n}]")
}

func TestConvert_ObjectOptionality(t *testing.T) {
	c, _ := newConverter(t, "")
	got := convertType(t, c, `{ a: string; b?: number }`)
	assertSchema(t, got, "{\n  \"a\": \"string\",\n  \"b?\": \"number\"\n}")
}

func TestConvert_ObjectMembers(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, `{}`), `{}`)
	assertSchema(t, convertType(t, c, `{ [key: string]: unknown; [n: number]: string; run(): void; new (): Foo }`),
		"{\n  \"[string]\": \"unknown\",\n  \"run\": \"Function\"\n}")
	assertSchema(t, convertType(t, c, `{ "weird?": string; "it's": number }`),
		"{\n  \"weird\\\\?\": \"string\",\n  \"it's\": \"number\"\n}")
	assertSchema(t, convertType(t, c, `{ a: string; a: number }`), "{\n  \"a\": \"number\"\n}")
}

func TestConvert_Arrays(t *testing.T) {
	c, _ := newConverter(t, "")
	tests := []struct{ src, want string }{
		{`string[]`, `"string[]"`},
		{`string[][]`, `"string[][]"`},
		{`Array<number>`, `"number[]"`},
		{`ReadonlyArray<boolean>`, `"boolean[]"`},
		{`readonly string[]`, `"string[]"`},
		{`("a" | "b")[]`, `'("a" | "b")[]'`},
		{`Array<string | null>`, `"(string | null)[]"`},
		{`any[]`, `"unknown[]"`},
		{`{ a: string }[]`, "[{\n  \"a\": \"string\"\n}, \"[]\"]"},
	}
	for _, tt := range tests {
		assertSchema(t, convertType(t, c, tt.src), tt.want)
	}
}

func TestConvert_Tuples(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, `[string, number?, ...boolean[]]`), `["string", "number?", "...", "boolean[]"]`)
	assertSchema(t, convertType(t, c, `[a?: string | null]`), `[["string | null", "?"]]`)
	assertSchema(t, convertType(t, c, `[]`), `[]`)
}

func TestConvert_WellKnownReferences(t *testing.T) {
	c, diags := newConverter(t, "")
	tests := []struct{ src, want string }{
		{`Record<string, number>`, "{\n  \"[string]\": \"number\"\n}"},
		{`Record<string, never>`, "{\n  \"[string]\": \"never\"\n}"},
		{`EmptyObject`, `{}`},
		{`Date`, `"Date"`},
		{`Promise<string>`, `"string"`},
		{`Readonly<{ a: string }>`, "{\n  \"a\": \"string\"\n}"},
		{`{ [K in keyof T]: T[K] }`, `"Record<string, unknown>"`},
		{"`prefix_${string}`", `"string"`},
		{`() => void`, `"Function"`},
	}
	for _, tt := range tests {
		assertSchema(t, convertType(t, c, tt.src), tt.want)
	}
	if len(diags.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics:\n%s", diags.FormatAll())
	}
}

func TestConvert_UnhandledFallsBack(t *testing.T) {
	c, diags := newConverter(t, "")
	for _, src := range []string{
		`T extends string ? "a" : "b"`,
		`keyof Foo`,
		`typeof VERSION`,
		`Foo["bar"]`,
	} {
		assertSchema(t, convertType(t, c, src), Universal)
	}
	assertCategory(t, diags, diagnostic.CategoryTypeUnsupported)
	if c.Context().Fallbacks() == 0 {
		t.Error("expected fallbacks to be counted")
	}

	// Converting nil never panics.
	assertSchema(t, c.Convert(nil, ""), Universal)
}

func TestConvert_UnresolvedReference(t *testing.T) {
	c, diags := newConverter(t, "type Holder = {\n  missing: Missing\n}")
	assertSchema(t, c.ConvertDeclaration("Holder"), "{\n  \"missing\": \"unknown\"\n}")
	got := diags.ByCategory(diagnostic.CategoryUnresolvedRef)
	if len(got) != 1 {
		t.Fatalf("expected 1 unresolved diagnostic, got:\n%s", diags.FormatAll())
	}
	if got[0].Line != 2 || got[0].TypeName != "Holder" || got[0].File != "api.d.ts" {
		t.Errorf("unexpected location %+v", got[0].Location)
	}

	assertSchema(t, c.ConvertDeclaration("Nope"), Universal)
}

func TestConvert_GeneratedReferenceByName(t *testing.T) {
	c, _ := newConverter(t, `
type Block = { id: string }
type Wrapper = { block: Block; api: api.Block; blocks: Block[] }
`, "Block", "Wrapper")
	assertSchema(t, c.ConvertDeclaration("Wrapper"),
		"{\n  \"block\": \"BlockSchema\",\n  \"api\": \"BlockSchema\",\n  \"blocks\": \"BlockSchema[]\"\n}")
	if len(c.Context().Deferred()) != 0 {
		t.Errorf("generated references must not be deferred: %v", c.Context().Deferred())
	}
}

func TestConvert_DeclaredReferenceInlined(t *testing.T) {
	c, _ := newConverter(t, `
type Color = "red" | "green"
type Paint = { color: Color; other: Color }
`, "Paint")
	assertSchema(t, c.ConvertDeclaration("Paint"),
		"{\n  \"color\": '\"red\" | \"green\"',\n  \"other\": '\"red\" | \"green\"'\n}")
}

func TestConvert_NamedSelfReference(t *testing.T) {
	const source = `type A = { next?: A }`

	c, _ := newConverter(t, source, "A")
	assertSchema(t, c.ConvertDeclaration("A"), "{\n  \"next?\": \"ASchema\"\n}")

	// Outside the generated set the reference is still by name, and deferred.
	c, _ = newConverter(t, source)
	assertSchema(t, c.ConvertDeclaration("A"), "{\n  \"next?\": \"ASchema\"\n}")
	if d := c.Context().Deferred(); len(d) != 1 || d[0] != "A" {
		t.Errorf("expected A to be deferred, got %v", d)
	}
}

func TestConvert_MutualRecursionTerminates(t *testing.T) {
	const source = `
type A = { b: B }
type B = { a: A }
`
	c, _ := newConverter(t, source, "A")
	want := "{\n  \"b\": {\n    \"a\": \"ASchema\"\n  }\n}"
	assertSchema(t, c.ConvertDeclaration("A"), want)
	if c.Context().Depth() != 0 || c.Context().InFlight("A") || c.Context().InFlight("B") {
		t.Error("context not unwound after conversion")
	}

	c, _ = newConverter(t, source)
	assertSchema(t, c.ConvertDeclaration("A"), want)
	if d := c.Context().Deferred(); len(d) != 1 || d[0] != "A" {
		t.Errorf("expected A deferred, got %v", d)
	}

	c, _ = newConverter(t, source, "A", "B")
	assertSchema(t, c.ConvertDeclaration("B"), "{\n  \"a\": \"ASchema\"\n}")
}

func TestConvert_DepthBound(t *testing.T) {
	file, _ := tsdecl.Parse("deep.d.ts", "")
	diags := diagnostic.NewCollector(false, false)
	c := New(Options{File: file, MaxDepth: 5, Diagnostics: diags})

	node, _ := tsdecl.ParseType("string" + strings.Repeat("[]", 30))
	assertSchema(t, c.Convert(node, ""), `"unknown[][][][][]"`)
	assertCategory(t, diags, diagnostic.CategoryDepthExceeded)
	if c.Context().Depth() != 0 {
		t.Errorf("depth not restored: %d", c.Context().Depth())
	}
}

func TestConvert_DepthCutNotShared(t *testing.T) {
	for _, root := range []string{
		"type Root = { deep: { a: { b: Leaf } }; shallow: Leaf }",
		"type Root = { shallow: Leaf; deep: { a: { b: Leaf } } }",
	} {
		file, errs := tsdecl.Parse("api.d.ts", "type Leaf = { x: { y: { z: string } } }\n"+root)
		if len(errs) > 0 {
			t.Fatal(errs)
		}
		c := New(Options{File: file, Generated: []string{"Root"}, MaxDepth: 6})
		got := c.ConvertDeclaration("Root")
		if n := strings.Count(got, `"z": "string"`); n != 1 {
			t.Errorf("%s: want only the shallow Leaf complete, got %d complete copies:\n%s", root, n, got)
		}
		if n := strings.Count(got, `"y": "unknown"`); n != 1 {
			t.Errorf("%s: want the deep Leaf cut at the bound:\n%s", root, got)
		}
	}
}

func TestConvert_CachedReferenceMatchesExpansion(t *testing.T) {
	c, _ := newConverter(t, `
type Leaf = { id: string; tags: string[] }
type Root = { first: Leaf; second: Leaf; list: Leaf[] }
`, "Root")
	leaf := "{\n    \"id\": \"string\",\n    \"tags\": \"string[]\"\n  }"
	assertSchema(t, c.ConvertDeclaration("Root"),
		"{\n  \"first\": "+leaf+",\n  \"second\": "+leaf+",\n  \"list\": ["+leaf+", \"[]\"]\n}")
}

func TestConvert_CacheRespectsInFlightNames(t *testing.T) {
	c, _ := newConverter(t, `
type A = { b: B }
type B = { a: A }
type Root = { a: A; b: B }
`, "Root")
	assertSchema(t, c.ConvertDeclaration("Root"),
		"{\n  \"a\": {\n    \"b\": {\n      \"a\": \"ASchema\"\n    }\n  },\n"+
			"  \"b\": {\n    \"a\": {\n      \"b\": \"BSchema\"\n    }\n  }\n}")
}

func TestConvert_DeepAnonymousObjects(t *testing.T) {
	c, _ := newConverter(t, "")
	src := strings.Repeat("{ a: ", 40) + "string" + strings.Repeat(" }", 40)
	got := convertType(t, c, src)
	if !strings.Contains(got, Universal) {
		t.Errorf("expected the depth bound to cut the nesting, got %s", got)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	const source = `
type A = { b: B; list: A[]; kind: "x" | "y" }
type B = { a?: A; tags: Record<string, string> } & { extra: boolean }
`
	first, _ := newConverter(t, source, "A")
	second, _ := newConverter(t, source, "A")
	for _, name := range []string{"A", "B"} {
		if a, b := first.ConvertDeclaration(name), second.ConvertDeclaration(name); a != b {
			t.Errorf("%s: nondeterministic output\n%s\n%s", name, a, b)
		}
	}
	// Repeating on the same converter gives the same result too.
	if a, b := first.ConvertDeclaration("A"), first.ConvertDeclaration("A"); a != b {
		t.Errorf("repeated conversion differs\n%s\n%s", a, b)
	}
}

func TestConvert_IntersectionMerge(t *testing.T) {
	c, _ := newConverter(t, `
type Base = { id: string }
interface Named { name: string }
`, "Base")
	assertSchema(t, convertType(t, c, `{ a: string } & { b: number } & { a: boolean }`),
		"{\n  \"a\": \"boolean\",\n  \"b\": \"number\"\n}")
	assertSchema(t, convertType(t, c, `Base & Named & { extra?: boolean }`),
		"{\n  \"id\": \"string\",\n  \"name\": \"string\",\n  \"extra?\": \"boolean\"\n}")
	assertSchema(t, convertType(t, c, `(Base & Named) & Record<string, number>`),
		"{\n  \"id\": \"string\",\n  \"name\": \"string\",\n  \"[string]\": \"number\"\n}")
}

func TestConvert_IntersectionMixedKeepsFirst(t *testing.T) {
	c, diags := newConverter(t, "")
	assertSchema(t, convertType(t, c, `string & { brand: "x" }`), `"string"`)
	assertSchema(t, convertType(t, c, `{ a: string } & ("x" | "y")`), "{\n  \"a\": \"string\"\n}")
	assertCategory(t, diags, diagnostic.CategoryIntersectionLossy)
}

func TestConvert_InterfaceHeritage(t *testing.T) {
	c, diags := newConverter(t, `
interface Base { id: string; kind: string }
interface Child extends Base, External { kind: "child"; name: string }
`, "Base", "Child")
	assertSchema(t, c.ConvertDeclaration("Child"),
		"{\n  \"id\": \"string\",\n  \"kind\": '\"child\"',\n  \"name\": \"string\"\n}")
	assertCategory(t, diags, diagnostic.CategoryUnresolvedRef)
}

func TestConvert_Generics(t *testing.T) {
	c, diags := newConverter(t, `
type Box<T> = { value: T }
type Pair<A, B = number> = [A, B]
type Holder = { box: Box<string>; pair: Pair<boolean> }
type List<T> = { item: T; next?: List<T> }
`, "Holder", "List")
	assertSchema(t, c.ConvertDeclaration("Holder"),
		"{\n  \"box\": {\n    \"value\": \"string\"\n  },\n  \"pair\": [\"boolean\", \"number\"]\n}")
	assertSchema(t, c.ConvertDeclaration("Box"), "{\n  \"value\": \"unknown\"\n}")
	assertSchema(t, c.ConvertDeclaration("List"), "{\n  \"item\": \"unknown\",\n  \"next?\": \"ListSchema\"\n}")
	if len(diags.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics:\n%s", diags.FormatAll())
	}
}

func TestConvert_UtilityTypes(t *testing.T) {
	c, diags := newConverter(t, `type User = { id: string; name: string; email?: string }`, "User")
	tests := []struct{ src, want string }{
		{`Partial<User>`, "{\n  \"id?\": \"string\",\n  \"name?\": \"string\",\n  \"email?\": \"string\"\n}"},
		{`Required<User>`, "{\n  \"id\": \"string\",\n  \"name\": \"string\",\n  \"email\": \"string\"\n}"},
		{`Pick<User, "id" | "email">`, "{\n  \"id\": \"string\",\n  \"email?\": \"string\"\n}"},
		{`Omit<User, "email">`, "{\n  \"id\": \"string\",\n  \"name\": \"string\"\n}"},
	}
	for _, tt := range tests {
		assertSchema(t, convertType(t, c, tt.src), tt.want)
	}
	if len(diags.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics:\n%s", diags.FormatAll())
	}

	assertSchema(t, convertType(t, c, `Omit<User, keyof User>`), Universal)
}

func TestConvert_ParenthesizedUnwraps(t *testing.T) {
	c, _ := newConverter(t, "")
	assertSchema(t, convertType(t, c, `((string))`), `"string"`)
}

func TestBareName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Foo", "Foo"},
		{"Foo<Bar>", "Foo"},
		{"Foo<Bar<Baz>>", "Foo"},
		{"api.Block", "apiBlock"},
		{"my-type", "mytype"},
		{"$ref_1", "$ref_1"},
	}
	for _, tt := range tests {
		if got := BareName(tt.in); got != tt.want {
			t.Errorf("BareName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SchemaName("Page<T>"); got != "PageSchema" {
		t.Errorf("SchemaName = %q", got)
	}
}
