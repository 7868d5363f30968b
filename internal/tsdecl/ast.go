package tsdecl

// Kind identifies the variant of a type expression Node.
type Kind string

const (
	KindKeyword         Kind = "keyword"         // string, number, any, ...
	KindLiteral         Kind = "literal"         // "a", 1, true
	KindArray           Kind = "array"           // T[]
	KindTuple           Kind = "tuple"           // [A, B?, ...C[]]
	KindUnion           Kind = "union"           // A | B
	KindIntersection    Kind = "intersection"    // A & B
	KindObject          Kind = "object"          // { a: string }
	KindReference       Kind = "reference"       // Name<Args>
	KindMapped          Kind = "mapped"          // { [K in T]: V }
	KindParenthesized   Kind = "parenthesized"   // (T)
	KindFunction        Kind = "function"        // (a: A) => R
	KindConditional     Kind = "conditional"     // A extends B ? C : D
	KindIndexedAccess   Kind = "indexedAccess"   // T["k"]
	KindTypeOperator    Kind = "typeOperator"    // keyof T, readonly T[], unique symbol, infer U
	KindTypeQuery       Kind = "typeQuery"       // typeof x
	KindTemplateLiteral Kind = "templateLiteral" // `a${string}`
)

// LiteralKind distinguishes literal types.
type LiteralKind string

const (
	LiteralString  LiteralKind = "string"
	LiteralNumber  LiteralKind = "number"
	LiteralBoolean LiteralKind = "boolean"
	LiteralBigInt  LiteralKind = "bigint"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Node is a type expression. Kind selects which of the other fields are set.
type Node struct {
	Kind Kind `json:"kind"`
	Pos  Pos  `json:"pos,omitzero"`

	// Keyword is the primitive keyword (KindKeyword).
	Keyword string `json:"keyword,omitempty"`

	// LiteralKind and Text describe a literal. Text is the exact source text,
	// so string literals keep their quotes. Text is also the operator of a
	// KindTypeOperator, the entity of a KindTypeQuery and the raw source of a
	// KindTemplateLiteral.
	LiteralKind LiteralKind `json:"literalKind,omitempty"`
	Text        string      `json:"text,omitempty"`

	// Name is the referenced name (KindReference, possibly dotted) or the key
	// parameter of a mapped type.
	Name string `json:"name,omitempty"`

	// Args holds generic arguments of a reference.
	Args []*Node `json:"args,omitempty"`

	// Elem is the array element, the parenthesized inner type, the operand of
	// a type operator, the return type of a function, the object of an indexed
	// access or the value type of a mapped type.
	Elem *Node `json:"elem,omitempty"`

	// Index is the index of an indexed access or the key constraint of a
	// mapped type.
	Index *Node `json:"index,omitempty"`

	// Types holds union and intersection members in source order. For a
	// conditional type it holds check, extends, true and false branches.
	Types []*Node `json:"types,omitempty"`

	// Elements holds tuple elements.
	Elements []TupleElement `json:"elements,omitempty"`

	// Members holds object literal and interface members.
	Members []Member `json:"members,omitempty"`

	// Optional marks a mapped type property as optional (`?:`).
	Optional bool `json:"optional,omitempty"`
}

// StringValue returns the unquoted value of a string literal node.
func (n *Node) StringValue() (string, bool) {
	if n == nil || n.Kind != KindLiteral || n.LiteralKind != LiteralString {
		return "", false
	}
	return unquote(n.Text), true
}

// TupleElement is a single tuple slot.
type TupleElement struct {
	Type     *Node  `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Rest     bool   `json:"rest,omitempty"`
	Label    string `json:"label,omitempty"`
}

// MemberKind classifies object members.
type MemberKind string

const (
	MemberProperty  MemberKind = "property"
	MemberMethod    MemberKind = "method"
	MemberIndex     MemberKind = "index"
	MemberCall      MemberKind = "call"
	MemberConstruct MemberKind = "construct"
)

// Member is a property, method, index, call or construct signature.
type Member struct {
	Kind     MemberKind `json:"kind"`
	Name     string     `json:"name,omitempty"`
	Optional bool       `json:"optional,omitempty"`
	Readonly bool       `json:"readonly,omitempty"`
	// Type is the property type, the method return type or the index value type.
	Type *Node `json:"type,omitempty"`
	// KeyType is the index signature key type.
	KeyType *Node  `json:"keyType,omitempty"`
	Doc     string `json:"doc,omitempty"`
	Pos     Pos    `json:"pos,omitzero"`
}

// DeclKind distinguishes type aliases from interfaces.
type DeclKind string

const (
	DeclAlias     DeclKind = "type"
	DeclInterface DeclKind = "interface"
)

// TypeParam is a generic parameter of a declaration.
type TypeParam struct {
	Name       string `json:"name"`
	Constraint *Node  `json:"constraint,omitempty"`
	Default    *Node  `json:"default,omitempty"`
}

// Declaration is a top-level type alias or interface.
type Declaration struct {
	Name       string      `json:"name"`
	Kind       DeclKind    `json:"kind"`
	TypeParams []TypeParam `json:"typeParams,omitempty"`
	// Extends lists interface heritage references.
	Extends []*Node `json:"extends,omitempty"`
	// Type is the alias target or the interface body (a KindObject node).
	Type     *Node  `json:"type"`
	Doc      string `json:"doc,omitempty"`
	Exported bool   `json:"exported,omitempty"`
	Pos      Pos    `json:"pos,omitzero"`
}

// HasTypeParam reports whether name is a generic parameter of the declaration.
func (d *Declaration) HasTypeParam(name string) bool {
	for _, tp := range d.TypeParams {
		if tp.Name == name {
			return true
		}
	}
	return false
}

// SourceFile is a parsed declaration file.
type SourceFile struct {
	Path         string         `json:"path,omitempty"`
	Declarations []*Declaration `json:"declarations"`

	index map[string]*Declaration
}

// Names returns the declared names in source order without duplicates.
func (f *SourceFile) Names() []string {
	seen := make(map[string]bool, len(f.Declarations))
	names := make([]string, 0, len(f.Declarations))
	for _, d := range f.Declarations {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	return names
}

// Lookup returns the declaration for name. Repeated interface declarations
// are merged into one, the way TypeScript merges them.
func (f *SourceFile) Lookup(name string) *Declaration {
	if f == nil {
		return nil
	}
	if f.index == nil {
		f.buildIndex()
	}
	return f.index[name]
}

func (f *SourceFile) buildIndex() {
	f.index = make(map[string]*Declaration, len(f.Declarations))
	for _, d := range f.Declarations {
		existing, ok := f.index[d.Name]
		if !ok {
			f.index[d.Name] = d
			continue
		}
		if existing.Kind != DeclInterface || d.Kind != DeclInterface {
			continue
		}
		merged := *existing
		merged.Extends = append(append([]*Node{}, existing.Extends...), d.Extends...)
		body := &Node{Kind: KindObject, Pos: existing.Type.Pos}
		body.Members = append(append([]Member{}, existing.Type.Members...), d.Type.Members...)
		merged.Type = body
		f.index[d.Name] = &merged
	}
}
