// Package converter turns TypeScript type expressions into ArkType
// definitions.
//
// Conversion is total: every construct the converter cannot represent
// degrades to the accept-anything definition and a diagnostic. Recursion is
// bounded twice, by a depth counter and by the set of names currently being
// expanded, whose re-entry produces a by-name reference instead of another
// expansion.
package converter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/tsgonest/arkgen/internal/diagnostic"
	"github.com/tsgonest/arkgen/internal/tsdecl"
)

// DefaultMaxDepth is the depth bound used when Options.MaxDepth is zero.
const DefaultMaxDepth = 20

const (
	// literalCollapseThreshold is the size above which a union made only of
	// string literals collapses to plain string.
	literalCollapseThreshold = 50
	// maxUnionMembers is the largest mixed union converted member by member.
	maxUnionMembers = 10
)

// Options configures a Converter.
type Options struct {
	// File provides the declarations references resolve against.
	File *tsdecl.SourceFile
	// Generated lists the names that get their own schema. References to
	// them are emitted by name.
	Generated []string
	// MaxDepth bounds recursion; DefaultMaxDepth when zero.
	MaxDepth    int
	Logger      *zap.Logger
	Diagnostics *diagnostic.Collector
}

// Converter converts type expressions of one source file.
//
// A Converter is not safe for concurrent use.
type Converter struct {
	file      *tsdecl.SourceFile
	generated map[string]bool
	maxDepth  int
	logger    *zap.Logger
	diags     *diagnostic.Collector
	ctx       *Context
}

// New creates a Converter.
func New(opts Options) *Converter {
	c := &Converter{
		file:      opts.File,
		generated: make(map[string]bool, len(opts.Generated)),
		maxDepth:  opts.MaxDepth,
		logger:    opts.Logger,
		diags:     opts.Diagnostics,
		ctx:       NewContext(),
	}
	if c.file == nil {
		c.file = &tsdecl.SourceFile{}
	}
	if c.maxDepth <= 0 {
		c.maxDepth = DefaultMaxDepth
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.AddGenerated(opts.Generated...)
	return c
}

// Context returns the conversion state of the current top-level conversion.
func (c *Converter) Context() *Context { return c.ctx }

// AddGenerated extends the generated set.
func (c *Converter) AddGenerated(names ...string) {
	for _, name := range names {
		c.generated[name] = true
	}
}

// IsGenerated reports whether name is in the generated set.
func (c *Converter) IsGenerated(name string) bool { return c.generated[name] }

// ConvertDeclaration resets the context and converts the declaration called
// name. It never fails; an unknown name yields Universal.
func (c *Converter) ConvertDeclaration(name string) string {
	c.ctx.Reset()
	c.ctx.root = name
	decl := c.file.Lookup(name)
	if decl == nil {
		return c.fallback(nil, diagnostic.CategoryUnresolvedRef, fmt.Sprintf("no declaration named %s", name)).String()
	}
	return c.Convert(c.declarationBody(decl, nil), name)
}

// Convert converts expr. When name is set the conversion counts as the
// expansion of that named type, so references back to it are emitted by
// name. Convert never panics.
func (c *Converter) Convert(expr *tsdecl.Node, name string) (out string) {
	if c.ctx.root == "" {
		c.ctx.root = name
	}
	defer func() {
		if r := recover(); r != nil {
			c.ctx.fallbacks++
			c.diags.Error(diagnostic.CategoryConverterRecovered, c.location(expr), fmt.Sprintf("conversion aborted: %v", r))
			c.logger.Error("converter recovered", zap.String("type", c.ctx.root), zap.Any("panic", r))
			out = Universal
		}
	}()
	return c.convertNamed(expr, name).String()
}

func (c *Converter) convertNamed(n *tsdecl.Node, name string) *schema {
	if name != "" {
		if c.ctx.inFlight(name) {
			return c.byName(name)
		}
		c.ctx.processing[name] = true
		defer delete(c.ctx.processing, name)
	}
	return c.convert(n)
}

func (c *Converter) convert(n *tsdecl.Node) *schema {
	defer c.ctx.pop()
	if c.ctx.push(c.maxDepth) {
		return c.fallback(n, diagnostic.CategoryDepthExceeded, fmt.Sprintf("maximum depth %d exceeded", c.maxDepth))
	}
	if n == nil {
		return c.fallback(nil, diagnostic.CategoryTypeUnsupported, "missing type")
	}

	switch n.Kind {
	case tsdecl.KindKeyword:
		return c.convertKeyword(n)
	case tsdecl.KindLiteral:
		return convertLiteral(n)
	case tsdecl.KindArray:
		return arrayOf(c.convert(n.Elem))
	case tsdecl.KindTuple:
		return c.convertTuple(n)
	case tsdecl.KindUnion:
		return c.convertUnion(n)
	case tsdecl.KindIntersection:
		return c.convertIntersection(n)
	case tsdecl.KindObject:
		return c.convertObject(n)
	case tsdecl.KindReference:
		return c.convertReference(n)
	case tsdecl.KindMapped:
		return str("Record<string, unknown>")
	case tsdecl.KindParenthesized:
		return c.convert(n.Elem)
	case tsdecl.KindFunction:
		return str("Function")
	case tsdecl.KindTemplateLiteral:
		return str("string")
	case tsdecl.KindTypeOperator:
		switch n.Text {
		case "readonly":
			return c.convert(n.Elem)
		case "unique":
			return str("symbol")
		}
		return c.fallback(n, diagnostic.CategoryTypeUnsupported, fmt.Sprintf("unsupported %s operator", n.Text))
	}
	return c.fallback(n, diagnostic.CategoryTypeUnsupported, fmt.Sprintf("unsupported %s type", n.Kind))
}

func (c *Converter) convertKeyword(n *tsdecl.Node) *schema {
	switch n.Keyword {
	case "any", "unknown", "void":
		return universal()
	case "string", "number", "boolean", "null", "undefined", "bigint", "symbol", "object", "never":
		return str(n.Keyword)
	}
	return c.fallback(n, diagnostic.CategoryTypeUnsupported, fmt.Sprintf("unsupported keyword %s", n.Keyword))
}

func convertLiteral(n *tsdecl.Node) *schema {
	if n.LiteralKind == tsdecl.LiteralNumber {
		return str(normalizeNumber(n.Text))
	}
	return str(n.Text)
}

// normalizeNumber rewrites hex, octal and binary literals in decimal.
func normalizeNumber(text string) string {
	digits := strings.TrimPrefix(text, "-")
	if len(digits) > 1 && digits[0] == '0' && strings.ContainsRune("xXoObB", rune(digits[1])) {
		if v, err := strconv.ParseInt(text, 0, 64); err == nil {
			return strconv.FormatInt(v, 10)
		}
	}
	return strings.ReplaceAll(text, "_", "")
}

func (c *Converter) convertTuple(n *tsdecl.Node) *schema {
	items := make([]*schema, 0, len(n.Elements))
	for _, el := range n.Elements {
		s := c.convert(el.Type)
		switch {
		case el.Rest:
			items = append(items, str("..."), s)
		case el.Optional && s.kind == defString && !strings.ContainsAny(s.str, " |&"):
			items = append(items, str(s.str+"?"))
		case el.Optional:
			items = append(items, expr(s, str("?")))
		default:
			items = append(items, s)
		}
	}
	return expr(items...)
}

func (c *Converter) convertUnion(n *tsdecl.Node) *schema {
	if texts, ok := stringLiterals(n.Types); ok {
		if len(texts) > literalCollapseThreshold {
			return str("string")
		}
		return str(strings.Join(texts, " | "))
	}
	if len(n.Types) > maxUnionMembers {
		return c.fallback(n, diagnostic.CategoryUnionWidened, fmt.Sprintf("union of %d members widened", len(n.Types)))
	}

	var survivors []*schema
	seen := make(map[string]bool, len(n.Types))
	for _, m := range n.Types {
		s := c.convert(m)
		if s.isUniversal() {
			continue
		}
		key := s.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		survivors = append(survivors, s)
	}
	switch len(survivors) {
	case 0:
		return universal()
	case 1:
		return survivors[0]
	}
	return unionOf(survivors)
}

// stringLiterals returns the source texts of members when every member is a
// string literal.
func stringLiterals(members []*tsdecl.Node) ([]string, bool) {
	texts := make([]string, 0, len(members))
	for _, m := range members {
		m = unwrapParens(m)
		if m == nil || m.Kind != tsdecl.KindLiteral || m.LiteralKind != tsdecl.LiteralString {
			return nil, false
		}
		texts = append(texts, m.Text)
	}
	return texts, len(texts) > 0
}

func unwrapParens(n *tsdecl.Node) *tsdecl.Node {
	for n != nil && n.Kind == tsdecl.KindParenthesized {
		n = n.Elem
	}
	return n
}

func (c *Converter) convertObject(n *tsdecl.Node) *schema {
	var props []prop
	indexed := false
	for _, m := range n.Members {
		switch m.Kind {
		case tsdecl.MemberProperty:
			props = mergeProps(props, prop{name: m.Name, optional: m.Optional, value: c.convert(m.Type)})
		case tsdecl.MemberMethod:
			props = mergeProps(props, prop{name: m.Name, optional: m.Optional, value: str("Function")})
		case tsdecl.MemberIndex:
			if indexed || !isIndexKey(m.KeyType) {
				continue
			}
			indexed = true
			props = mergeProps(props, prop{index: true, value: c.convert(m.Type)})
		}
	}
	return object(props)
}

func isIndexKey(n *tsdecl.Node) bool {
	n = unwrapParens(n)
	return n != nil && n.Kind == tsdecl.KindKeyword && (n.Keyword == "string" || n.Keyword == "number")
}

// mergeProps adds props to dst. A later property replaces an earlier one of
// the same key in place.
func mergeProps(dst []prop, props ...prop) []prop {
	for _, p := range props {
		replaced := false
		for i := range dst {
			if dst[i].index == p.index && dst[i].name == p.name {
				dst[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			dst = append(dst, p)
		}
	}
	return dst
}

func (c *Converter) convertIntersection(n *tsdecl.Node) *schema {
	for _, m := range n.Types {
		if !c.isObjectShaped(m, map[string]bool{}) {
			c.diags.Info(diagnostic.CategoryIntersectionLossy, c.location(n), "intersection with non-object members keeps only its first member")
			return c.convert(n.Types[0])
		}
	}
	var merged []prop
	for _, m := range n.Types {
		s := c.objectMember(m)
		if s.kind != defObject {
			continue
		}
		merged = mergeProps(merged, s.props...)
	}
	return object(merged)
}

// isObjectShaped reports whether n converts to an object definition once
// references to declared types are expanded.
func (c *Converter) isObjectShaped(n *tsdecl.Node, visiting map[string]bool) bool {
	n = unwrapParens(n)
	if n == nil {
		return false
	}
	switch n.Kind {
	case tsdecl.KindObject:
		return true
	case tsdecl.KindIntersection:
		for _, m := range n.Types {
			if !c.isObjectShaped(m, visiting) {
				return false
			}
		}
		return true
	case tsdecl.KindReference:
		name := lookupName(n.Name)
		switch name {
		case "EmptyObject", "Record":
			return true
		case "Partial", "Required", "Readonly", "Pick", "Omit":
			return len(n.Args) > 0 && c.isObjectShaped(n.Args[0], visiting)
		}
		if visiting[name] || c.ctx.inFlight(name) {
			return false
		}
		decl := c.file.Lookup(name)
		if decl == nil {
			return false
		}
		if decl.Kind == tsdecl.DeclInterface {
			return true
		}
		visiting[name] = true
		defer delete(visiting, name)
		return c.isObjectShaped(decl.Type, visiting)
	}
	return false
}

// objectMember converts an object-shaped node, expanding references to
// declared types even when they are generated so their properties can be
// merged.
func (c *Converter) objectMember(n *tsdecl.Node) *schema {
	defer c.ctx.pop()
	if c.ctx.push(c.maxDepth) {
		return c.fallback(n, diagnostic.CategoryDepthExceeded, fmt.Sprintf("maximum depth %d exceeded", c.maxDepth))
	}

	n = unwrapParens(n)
	if n == nil || n.Kind != tsdecl.KindReference {
		return c.convert(n)
	}
	name := lookupName(n.Name)
	if isWellKnown(name) {
		return c.convertReference(n)
	}
	decl := c.file.Lookup(name)
	if decl == nil {
		return c.convert(n)
	}
	if c.ctx.inFlight(name) {
		return c.byName(name)
	}
	c.ctx.processing[name] = true
	defer delete(c.ctx.processing, name)
	return c.objectMember(c.declarationBody(decl, n.Args))
}

// asObject converts n to an object definition when it is object-shaped.
func (c *Converter) asObject(n *tsdecl.Node) (*schema, bool) {
	if n == nil || !c.isObjectShaped(n, map[string]bool{}) {
		return nil, false
	}
	s := c.objectMember(n)
	return s, s.kind == defObject
}

var wellKnownNames = map[string]bool{
	"Array": true, "ReadonlyArray": true, "Record": true, "EmptyObject": true,
	"Date": true, "Promise": true, "PromiseLike": true, "Awaited": true,
	"Readonly": true, "NonNullable": true, "Partial": true, "Required": true,
	"Pick": true, "Omit": true,
}

func isWellKnown(name string) bool { return wellKnownNames[name] }

func (c *Converter) convertReference(n *tsdecl.Node) *schema {
	name := lookupName(n.Name)
	if isWellKnown(name) {
		return c.convertWellKnown(n, name)
	}
	if c.generated[name] {
		return c.byName(name)
	}
	decl := c.file.Lookup(name)
	if decl == nil {
		return c.fallback(n, diagnostic.CategoryUnresolvedRef, fmt.Sprintf("unresolved type reference %s", n.Name))
	}
	if c.ctx.inFlight(name) {
		return c.byName(name)
	}

	if len(n.Args) > 0 {
		return c.convertNamed(c.declarationBody(decl, n.Args), name)
	}
	if s, ok := c.ctx.reuse(name, c.maxDepth); ok {
		return s
	}
	m := c.ctx.mark()
	s := c.convertNamed(c.declarationBody(decl, nil), name)
	if e, ok := c.ctx.settle(m, s); ok {
		c.ctx.cache[name] = e
	}
	return s
}

func (c *Converter) convertWellKnown(n *tsdecl.Node, name string) *schema {
	arg := func(i int) *tsdecl.Node {
		if i < len(n.Args) {
			return n.Args[i]
		}
		return nil
	}

	switch name {
	case "Array", "ReadonlyArray":
		if arg(0) == nil {
			return arrayOf(universal())
		}
		return arrayOf(c.convert(arg(0)))
	case "Record":
		value := universal()
		if arg(1) != nil {
			value = c.convert(arg(1))
		}
		return object([]prop{{index: true, value: value}})
	case "EmptyObject":
		return object(nil)
	case "Date":
		return str("Date")
	case "Promise", "PromiseLike", "Awaited", "Readonly", "NonNullable":
		if arg(0) == nil {
			return universal()
		}
		return c.convert(arg(0))
	case "Partial", "Required":
		obj, ok := c.asObject(arg(0))
		if !ok {
			if arg(0) == nil {
				return universal()
			}
			return c.convert(arg(0))
		}
		props := make([]prop, len(obj.props))
		for i, p := range obj.props {
			if !p.index {
				p.optional = name == "Partial"
			}
			props[i] = p
		}
		return object(props)
	case "Pick", "Omit":
		obj, ok := c.asObject(arg(0))
		keys, known := literalKeys(arg(1))
		if !ok || !known {
			return c.fallback(n, diagnostic.CategoryTypeUnsupported, fmt.Sprintf("cannot evaluate %s", name))
		}
		var props []prop
		for _, p := range obj.props {
			if p.index || keys[p.name] == (name == "Pick") {
				props = append(props, p)
			}
		}
		return object(props)
	}
	return c.fallback(n, diagnostic.CategoryTypeUnsupported, fmt.Sprintf("unsupported built-in %s", name))
}

// literalKeys collects the values of a string literal or a union of them.
func literalKeys(n *tsdecl.Node) (map[string]bool, bool) {
	n = unwrapParens(n)
	if n == nil {
		return nil, false
	}
	members := []*tsdecl.Node{n}
	if n.Kind == tsdecl.KindUnion {
		members = n.Types
	}
	keys := make(map[string]bool, len(members))
	for _, m := range members {
		v, ok := unwrapParens(m).StringValue()
		if !ok {
			return nil, false
		}
		keys[v] = true
	}
	return keys, true
}

// byName returns a reference to the generated schema of name. Names outside
// the generated set are recorded as deferred.
func (c *Converter) byName(name string) *schema {
	if !c.generated[name] {
		c.ctx.addDeferred(name)
	}
	return str(SchemaName(name))
}

// declarationBody returns the type a declaration stands for, with its type
// parameters bound to args (or their defaults, or unknown). Interface
// heritage is folded in as an intersection ahead of the body.
func (c *Converter) declarationBody(decl *tsdecl.Declaration, args []*tsdecl.Node) *tsdecl.Node {
	body := decl.Type
	if decl.Kind == tsdecl.DeclInterface && len(decl.Extends) > 0 {
		types := make([]*tsdecl.Node, 0, len(decl.Extends)+1)
		for _, base := range decl.Extends {
			if !c.isObjectShaped(base, map[string]bool{decl.Name: true}) {
				c.diags.Warn(diagnostic.CategoryUnresolvedRef, c.location(base), fmt.Sprintf("%s: heritage %s ignored", decl.Name, base.Name))
				continue
			}
			types = append(types, base)
		}
		if len(types) > 0 {
			body = &tsdecl.Node{Kind: tsdecl.KindIntersection, Pos: decl.Pos, Types: append(types, decl.Type)}
		}
	}
	if len(decl.TypeParams) == 0 {
		return body
	}

	bindings := make(map[string]*tsdecl.Node, len(decl.TypeParams))
	for i, tp := range decl.TypeParams {
		switch {
		case i < len(args):
			bindings[tp.Name] = args[i]
		case tp.Default != nil:
			bindings[tp.Name] = tp.Default
		default:
			bindings[tp.Name] = &tsdecl.Node{Kind: tsdecl.KindKeyword, Keyword: "unknown"}
		}
	}
	return substitute(body, bindings)
}

func (c *Converter) fallback(n *tsdecl.Node, category diagnostic.Category, message string) *schema {
	c.ctx.fallbacks++
	loc := c.location(n)
	c.diags.Warn(category, loc, message)
	c.logger.Debug("schema fallback",
		zap.String("type", c.ctx.root),
		zap.String("category", string(category)),
		zap.String("reason", message),
		zap.Int("line", loc.Line),
	)
	return universal()
}

func (c *Converter) location(n *tsdecl.Node) diagnostic.Location {
	loc := diagnostic.Location{File: c.file.Path, TypeName: c.ctx.root}
	if n != nil {
		loc.Line = n.Pos.Line
		loc.Column = n.Pos.Column
	}
	return loc
}

// lookupName returns the last segment of a possibly qualified name.
func lookupName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// BareName strips generic arguments and every non-identifier character.
func BareName(text string) string {
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}
	var sb strings.Builder
	for _, r := range text {
		if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SchemaName is the scope alias of a generated type.
func SchemaName(name string) string {
	return BareName(name) + "Schema"
}
