package tsdecl

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a recoverable syntax error. Parsing resumes at the next
// top-level statement.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// bailout unwinds a single statement after a syntax error.
type bailout struct{}

// Parser builds declarations from a token stream.
type Parser struct {
	tokens  []Token
	current int
	errors  []ParseError

	// noConditional is set while parsing the extends clause of a conditional
	// type, where a nested conditional is not allowed.
	noConditional bool
}

// NewParser creates a parser for the given token stream. The stream must end
// with TokenEOF.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		tokens = append(tokens, Token{Type: TokenEOF})
	}
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses source. Lexical errors are reported as parse errors.
func Parse(path, source string) (*SourceFile, []ParseError) {
	tokens, lexErrs := NewLexer(source).ScanTokens()
	p := NewParser(tokens)
	file := p.ParseFile()
	file.Path = path

	var errs []ParseError
	for _, e := range lexErrs {
		errs = append(errs, ParseError(e))
	}
	return file, append(errs, p.errors...)
}

// ParseType parses a standalone type expression such as `string | number`.
func ParseType(source string) (*Node, []ParseError) {
	tokens, lexErrs := NewLexer(source).ScanTokens()
	p := NewParser(tokens)

	var node *Node
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(bailout); !ok {
					panic(r)
				}
			}
		}()
		node = p.parseType()
		if !p.isAtEnd() {
			p.fail(p.peek(), "unexpected token after type")
		}
	}()

	var errs []ParseError
	for _, e := range lexErrs {
		errs = append(errs, ParseError(e))
	}
	return node, append(errs, p.errors...)
}

// ParseFile parses all top-level statements.
func (p *Parser) ParseFile() *SourceFile {
	file := &SourceFile{}
	for !p.isAtEnd() {
		start := p.current
		if decl := p.parseStatement(); decl != nil {
			file.Declarations = append(file.Declarations, decl)
		}
		if p.current == start {
			p.advance()
		}
	}
	return file
}

// Errors returns the errors collected so far.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

func (p *Parser) parseStatement() (decl *Declaration) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			decl = nil
			p.synchronize()
		}
	}()

	first := p.peek()
	exported := false
	for {
		switch {
		case p.check("export"):
			exported = true
			p.advance()
			continue
		case p.check("default") && exported:
			p.advance()
			continue
		case p.check("declare"):
			p.advance()
			continue
		}
		break
	}

	switch {
	case p.check("type") && p.peekAt(1).Type == TokenIdent:
		decl = p.parseTypeAlias()
	case p.check("interface") && p.peekAt(1).Type == TokenIdent:
		decl = p.parseInterface()
	default:
		p.skipStatement()
		return nil
	}
	decl.Exported = exported
	decl.Doc = first.Doc
	decl.Pos = Pos{Line: first.Line, Column: first.Column}
	return decl
}

func (p *Parser) parseTypeAlias() *Declaration {
	p.advance() // type
	name := p.expect(TokenIdent, "expected type alias name")
	decl := &Declaration{Name: name.Lexeme, Kind: DeclAlias}
	decl.TypeParams = p.parseTypeParams()
	p.expect(TokenEquals, "expected '=' after type alias name")
	decl.Type = p.parseType()
	p.matchType(TokenSemicolon)
	return decl
}

func (p *Parser) parseInterface() *Declaration {
	p.advance() // interface
	name := p.expect(TokenIdent, "expected interface name")
	decl := &Declaration{Name: name.Lexeme, Kind: DeclInterface}
	decl.TypeParams = p.parseTypeParams()
	if p.check("extends") {
		p.advance()
		for {
			decl.Extends = append(decl.Extends, p.parseReference())
			if !p.matchType(TokenComma) {
				break
			}
		}
	}
	decl.Type = p.parseObjectType()
	return decl
}

func (p *Parser) parseTypeParams() []TypeParam {
	if !p.matchType(TokenLAngle) {
		return nil
	}
	var params []TypeParam
	for !p.checkType(TokenRAngle) && !p.isAtEnd() {
		for p.check("const") || p.check("in") || p.check("out") {
			if p.peekAt(1).Type != TokenIdent {
				break
			}
			p.advance()
		}
		name := p.expect(TokenIdent, "expected type parameter name")
		tp := TypeParam{Name: name.Lexeme}
		if p.check("extends") {
			p.advance()
			tp.Constraint = p.parseType()
		}
		if p.matchType(TokenEquals) {
			tp.Default = p.parseType()
		}
		params = append(params, tp)
		if !p.matchType(TokenComma) {
			break
		}
	}
	p.expect(TokenRAngle, "expected '>' after type parameters")
	return params
}

// --- Type expressions ---

func (p *Parser) parseType() *Node {
	if p.isStartOfFunctionType() {
		return p.parseFunctionType()
	}
	if p.check("new") || (p.check("abstract") && p.peekAt(1).is("new")) {
		if p.check("abstract") {
			p.advance()
		}
		p.advance()
		return p.parseFunctionType()
	}

	tok := p.peek()
	t := p.parseUnion()
	if !p.noConditional && p.check("extends") && !p.peek().NewlineBefore {
		p.advance()
		saved := p.noConditional
		p.noConditional = true
		extends := p.parseUnion()
		p.noConditional = saved
		p.expect(TokenQuestion, "expected '?' in conditional type")
		whenTrue := p.parseType()
		p.expect(TokenColon, "expected ':' in conditional type")
		whenFalse := p.parseType()
		return &Node{Kind: KindConditional, Pos: pos(tok), Types: []*Node{t, extends, whenTrue, whenFalse}}
	}
	return t
}

func (p *Parser) parseUnion() *Node {
	tok := p.peek()
	p.matchType(TokenPipe)
	first := p.parseIntersection()
	if !p.checkType(TokenPipe) {
		return first
	}
	types := []*Node{first}
	for p.matchType(TokenPipe) {
		types = append(types, p.parseIntersection())
	}
	return &Node{Kind: KindUnion, Pos: pos(tok), Types: types}
}

func (p *Parser) parseIntersection() *Node {
	tok := p.peek()
	p.matchType(TokenAmp)
	first := p.parseTypeOperator()
	if !p.checkType(TokenAmp) {
		return first
	}
	types := []*Node{first}
	for p.matchType(TokenAmp) {
		types = append(types, p.parseTypeOperator())
	}
	return &Node{Kind: KindIntersection, Pos: pos(tok), Types: types}
}

func (p *Parser) parseTypeOperator() *Node {
	tok := p.peek()
	if tok.Type == TokenIdent {
		switch tok.Lexeme {
		case "keyof", "unique", "readonly":
			if p.startsType(p.peekAt(1)) {
				p.advance()
				return &Node{Kind: KindTypeOperator, Pos: pos(tok), Text: tok.Lexeme, Elem: p.parseTypeOperator()}
			}
		case "infer":
			if p.peekAt(1).Type == TokenIdent {
				p.advance()
				name := p.advance()
				node := &Node{Kind: KindTypeOperator, Pos: pos(tok), Text: "infer", Name: name.Lexeme}
				if p.check("extends") && p.noConditional {
					p.advance()
					node.Elem = p.parseTypeOperator()
				}
				return node
			}
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *Node {
	t := p.parsePrimary()
	for p.checkType(TokenLBracket) && !p.peek().NewlineBefore {
		tok := p.advance()
		if p.matchType(TokenRBracket) {
			t = &Node{Kind: KindArray, Pos: pos(tok), Elem: t}
			continue
		}
		index := p.parseType()
		p.expect(TokenRBracket, "expected ']' in indexed access type")
		t = &Node{Kind: KindIndexedAccess, Pos: pos(tok), Elem: t, Index: index}
	}
	return t
}

var keywords = map[string]bool{
	"string": true, "number": true, "boolean": true, "null": true, "undefined": true,
	"unknown": true, "any": true, "never": true, "void": true, "object": true,
	"bigint": true, "symbol": true,
}

func (p *Parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Type {
	case TokenLParen:
		p.advance()
		inner := p.parseType()
		p.expect(TokenRParen, "expected ')'")
		return &Node{Kind: KindParenthesized, Pos: pos(tok), Elem: inner}
	case TokenLBrace:
		if p.isStartOfMappedType() {
			return p.parseMappedType()
		}
		return p.parseObjectType()
	case TokenLBracket:
		return p.parseTupleType()
	case TokenString:
		p.advance()
		return &Node{Kind: KindLiteral, Pos: pos(tok), LiteralKind: LiteralString, Text: tok.Lexeme}
	case TokenTemplate:
		p.advance()
		return &Node{Kind: KindTemplateLiteral, Pos: pos(tok), Text: tok.Lexeme}
	case TokenNumber:
		p.advance()
		return numberLiteral(tok, tok.Lexeme)
	case TokenMinus:
		if p.peekAt(1).Type == TokenNumber {
			p.advance()
			num := p.advance()
			return numberLiteral(tok, "-"+num.Lexeme)
		}
	case TokenLAngle:
		// Generic function type: <T>(x: T) => T
		p.skipBalanced(TokenLAngle, TokenRAngle)
		return p.parseFunctionType()
	case TokenIdent:
		switch {
		case tok.Lexeme == "true" || tok.Lexeme == "false":
			p.advance()
			return &Node{Kind: KindLiteral, Pos: pos(tok), LiteralKind: LiteralBoolean, Text: tok.Lexeme}
		case keywords[tok.Lexeme] && p.peekAt(1).Type != TokenDot:
			p.advance()
			return &Node{Kind: KindKeyword, Pos: pos(tok), Keyword: tok.Lexeme}
		case tok.Lexeme == "typeof":
			p.advance()
			entity := p.parseEntityName()
			node := &Node{Kind: KindTypeQuery, Pos: pos(tok), Text: entity}
			node.Args = p.parseTypeArgs()
			return node
		case tok.Lexeme == "asserts" && p.peekAt(1).Type == TokenIdent:
			// asserts x [is T] in a return position
			p.advance()
			p.advance()
			if p.check("is") {
				p.advance()
				return p.parseType()
			}
			return &Node{Kind: KindKeyword, Pos: pos(tok), Keyword: "void"}
		case p.peekAt(1).is("is") && !p.peekAt(1).NewlineBefore:
			// Type predicate: x is T
			p.advance()
			p.advance()
			p.parseType()
			return &Node{Kind: KindKeyword, Pos: pos(tok), Keyword: "boolean"}
		}
		return p.parseReference()
	}
	p.fail(tok, fmt.Sprintf("unexpected %s in type", tok.Type))
	return nil
}

func numberLiteral(tok Token, text string) *Node {
	kind := LiteralNumber
	if strings.HasSuffix(text, "n") {
		kind = LiteralBigInt
	}
	return &Node{Kind: KindLiteral, Pos: pos(tok), LiteralKind: kind, Text: text}
}

func (p *Parser) parseReference() *Node {
	tok := p.peek()
	name := p.parseEntityName()
	node := &Node{Kind: KindReference, Pos: pos(tok), Name: name}
	node.Args = p.parseTypeArgs()
	return node
}

func (p *Parser) parseEntityName() string {
	var sb strings.Builder
	sb.WriteString(p.expect(TokenIdent, "expected type name").Lexeme)
	for p.checkType(TokenDot) && p.peekAt(1).Type == TokenIdent {
		p.advance()
		sb.WriteByte('.')
		sb.WriteString(p.advance().Lexeme)
	}
	return sb.String()
}

func (p *Parser) parseTypeArgs() []*Node {
	if !p.checkType(TokenLAngle) || p.peek().NewlineBefore {
		return nil
	}
	p.advance()
	var args []*Node
	for !p.checkType(TokenRAngle) && !p.isAtEnd() {
		args = append(args, p.parseType())
		if !p.matchType(TokenComma) {
			break
		}
	}
	p.expect(TokenRAngle, "expected '>' after type arguments")
	return args
}

func (p *Parser) parseFunctionType() *Node {
	tok := p.peek()
	if p.checkType(TokenLAngle) {
		p.skipBalanced(TokenLAngle, TokenRAngle)
	}
	if !p.checkType(TokenLParen) {
		p.fail(p.peek(), "expected '(' in function type")
	}
	p.skipBalanced(TokenLParen, TokenRParen)
	p.expect(TokenArrow, "expected '=>' in function type")
	ret := p.parseType()
	return &Node{Kind: KindFunction, Pos: pos(tok), Elem: ret}
}

func (p *Parser) parseTupleType() *Node {
	tok := p.advance() // [
	node := &Node{Kind: KindTuple, Pos: pos(tok)}
	for !p.checkType(TokenRBracket) && !p.isAtEnd() {
		var elem TupleElement
		if p.matchType(TokenEllipsis) {
			elem.Rest = true
		}
		// Named element: label: T or label?: T
		if p.peek().Type == TokenIdent {
			next := p.peekAt(1)
			if next.Type == TokenColon || (next.Type == TokenQuestion && p.peekAt(2).Type == TokenColon) {
				elem.Label = p.advance().Lexeme
				if p.matchType(TokenQuestion) {
					elem.Optional = true
				}
				p.advance() // :
			}
		}
		elem.Type = p.parseType()
		if p.matchType(TokenQuestion) {
			elem.Optional = true
		}
		node.Elements = append(node.Elements, elem)
		if !p.matchType(TokenComma) {
			break
		}
	}
	p.expect(TokenRBracket, "expected ']' after tuple elements")
	return node
}

func (p *Parser) isStartOfMappedType() bool {
	i := 1
	if t := p.peekAt(i); t.Type == TokenPlus || t.Type == TokenMinus {
		i++
	}
	if p.peekAt(i).is("readonly") {
		i++
	}
	return p.peekAt(i).Type == TokenLBracket &&
		p.peekAt(i+1).Type == TokenIdent &&
		p.peekAt(i+2).is("in")
}

func (p *Parser) parseMappedType() *Node {
	tok := p.advance() // {
	if p.checkType(TokenPlus) || p.checkType(TokenMinus) {
		p.advance()
	}
	if p.check("readonly") {
		p.advance()
	}
	p.expect(TokenLBracket, "expected '[' in mapped type")
	key := p.expect(TokenIdent, "expected key name in mapped type")
	p.advance() // in
	node := &Node{Kind: KindMapped, Pos: pos(tok), Name: key.Lexeme}
	node.Index = p.parseType()
	if p.check("as") {
		p.advance()
		p.parseType()
	}
	p.expect(TokenRBracket, "expected ']' in mapped type")
	if p.checkType(TokenPlus) || p.checkType(TokenMinus) {
		p.advance()
	}
	if p.matchType(TokenQuestion) {
		node.Optional = true
	}
	if p.matchType(TokenColon) {
		node.Elem = p.parseType()
	}
	p.matchType(TokenSemicolon)
	p.expect(TokenRBrace, "expected '}' after mapped type")
	return node
}

// --- Object members ---

func (p *Parser) parseObjectType() *Node {
	tok := p.expect(TokenLBrace, "expected '{'")
	node := &Node{Kind: KindObject, Pos: pos(tok)}
	for !p.checkType(TokenRBrace) && !p.isAtEnd() {
		start := p.current
		if m, ok := p.parseMember(); ok {
			node.Members = append(node.Members, m)
		}
		if !p.matchType(TokenSemicolon) {
			p.matchType(TokenComma)
		}
		if p.current == start {
			p.fail(p.peek(), fmt.Sprintf("unexpected %s in object type", p.peek().Type))
		}
	}
	p.expect(TokenRBrace, "expected '}' after object members")
	return node
}

var memberModifiers = map[string]bool{
	"readonly": true, "public": true, "private": true, "protected": true,
	"static": true, "declare": true, "abstract": true, "override": true, "accessor": true,
}

func (p *Parser) parseMember() (Member, bool) {
	first := p.peek()
	m := Member{Doc: first.Doc, Pos: pos(first)}

	for p.peek().Type == TokenIdent && memberModifiers[p.peek().Lexeme] && p.startsMemberName(p.peekAt(1)) {
		if p.peek().Lexeme == "readonly" {
			m.Readonly = true
		}
		p.advance()
	}

	switch {
	case p.checkType(TokenLParen) || p.checkType(TokenLAngle):
		m.Kind = MemberCall
		m.Type = p.parseSignatureRest()
		return m, true
	case p.check("new") && (p.peekAt(1).Type == TokenLParen || p.peekAt(1).Type == TokenLAngle):
		p.advance()
		m.Kind = MemberConstruct
		m.Type = p.parseSignatureRest()
		return m, true
	case (p.check("get") || p.check("set")) && p.startsMemberName(p.peekAt(1)) && p.peekAt(1).Type != TokenLBracket:
		// Accessors behave as properties of their return type.
		p.advance()
		m.Kind = MemberProperty
		m.Name = p.parsePropertyName()
		m.Type = p.parseSignatureRest()
		return m, true
	case p.checkType(TokenLBracket) && p.peekAt(1).Type == TokenIdent && p.peekAt(2).Type == TokenColon:
		p.advance() // [
		p.advance() // key
		p.advance() // :
		m.Kind = MemberIndex
		m.KeyType = p.parseType()
		p.expect(TokenRBracket, "expected ']' after index signature key")
		if p.matchType(TokenQuestion) {
			m.Optional = true
		}
		p.expect(TokenColon, "expected ':' after index signature")
		m.Type = p.parseType()
		return m, true
	}

	if !p.startsMemberName(p.peek()) {
		return m, false
	}
	m.Name = p.parsePropertyName()
	if p.matchType(TokenQuestion) {
		m.Optional = true
	}
	if p.checkType(TokenLParen) || p.checkType(TokenLAngle) {
		m.Kind = MemberMethod
		m.Type = p.parseSignatureRest()
		return m, true
	}
	m.Kind = MemberProperty
	if p.matchType(TokenColon) {
		m.Type = p.parseType()
	} else {
		m.Type = &Node{Kind: KindKeyword, Pos: m.Pos, Keyword: "any"}
	}
	return m, true
}

// parseSignatureRest skips type parameters and parameters of a call-like
// signature and returns its return type (void when absent).
func (p *Parser) parseSignatureRest() *Node {
	tok := p.peek()
	if p.checkType(TokenLAngle) {
		p.skipBalanced(TokenLAngle, TokenRAngle)
	}
	if p.checkType(TokenLParen) {
		p.skipBalanced(TokenLParen, TokenRParen)
	}
	if p.matchType(TokenColon) {
		return p.parseType()
	}
	return &Node{Kind: KindKeyword, Pos: pos(tok), Keyword: "void"}
}

func (p *Parser) parsePropertyName() string {
	tok := p.peek()
	switch tok.Type {
	case TokenIdent:
		p.advance()
		return tok.Lexeme
	case TokenString:
		p.advance()
		return unquote(tok.Lexeme)
	case TokenNumber:
		p.advance()
		return tok.Lexeme
	case TokenLBracket:
		// Computed name such as [Symbol.iterator]
		begin := p.current
		p.skipBalanced(TokenLBracket, TokenRBracket)
		var sb strings.Builder
		for _, t := range p.tokens[begin:p.current] {
			sb.WriteString(t.Lexeme)
		}
		return sb.String()
	}
	p.fail(tok, "expected property name")
	return ""
}

func (p *Parser) startsMemberName(t Token) bool {
	switch t.Type {
	case TokenIdent, TokenString, TokenNumber, TokenLBracket:
		return true
	}
	return false
}

// startsType reports whether t can begin a type after a type operator keyword.
func (p *Parser) startsType(t Token) bool {
	switch t.Type {
	case TokenIdent, TokenString, TokenNumber, TokenTemplate, TokenLBrace, TokenLBracket, TokenLParen, TokenMinus:
		return true
	}
	return false
}

// isStartOfFunctionType looks ahead from '(' to decide between a function
// type and a parenthesized type.
func (p *Parser) isStartOfFunctionType() bool {
	if p.checkType(TokenLAngle) {
		return true
	}
	if !p.checkType(TokenLParen) {
		return false
	}
	next := p.peekAt(1)
	switch next.Type {
	case TokenRParen, TokenEllipsis:
		return true
	case TokenIdent:
		after := p.peekAt(2)
		switch after.Type {
		case TokenColon, TokenComma, TokenQuestion, TokenEquals:
			return true
		case TokenRParen:
			return p.peekAt(3).Type == TokenArrow
		}
	case TokenLBrace, TokenLBracket:
		// Destructured parameter: scan to the matching bracket.
		closeType := TokenRBrace
		if next.Type == TokenLBracket {
			closeType = TokenRBracket
		}
		depth := 0
		for i := p.current + 1; i < len(p.tokens); i++ {
			switch p.tokens[i].Type {
			case next.Type:
				depth++
			case closeType:
				depth--
				if depth == 0 {
					after := p.peekAt(i - p.current + 1)
					switch after.Type {
					case TokenColon, TokenComma, TokenEquals:
						return true
					case TokenRParen:
						return p.peekAt(i-p.current+2).Type == TokenArrow
					}
					return false
				}
			case TokenEOF:
				return false
			}
		}
	}
	return false
}

// --- Statement skipping ---

var statementStarts = map[string]bool{
	"export": true, "declare": true, "type": true, "interface": true, "import": true,
	"const": true, "let": true, "var": true, "function": true, "class": true,
	"enum": true, "namespace": true, "module": true, "abstract": true,
}

// skipStatement consumes an uninteresting top-level statement.
func (p *Parser) skipStatement() {
	depth := 0
	first := true
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && !first && tok.NewlineBefore && tok.Type == TokenIdent && statementStarts[tok.Lexeme] {
			return
		}
		first = false
		p.advance()
		switch tok.Type {
		case TokenLBrace, TokenLParen, TokenLBracket:
			depth++
		case TokenRBrace, TokenRParen, TokenRBracket:
			if depth > 0 {
				depth--
			}
			if depth == 0 && tok.Type == TokenRBrace {
				next := p.peek()
				if next.Type != TokenSemicolon && next.Type != TokenComma && next.Type != TokenRParen && next.NewlineBefore {
					return
				}
			}
		case TokenSemicolon:
			if depth == 0 {
				return
			}
		}
	}
}

// synchronize recovers from a syntax error by skipping to the next
// top-level statement.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		tok := p.peek()
		if tok.NewlineBefore && tok.Type == TokenIdent && statementStarts[tok.Lexeme] {
			return
		}
		p.advance()
		if tok.Type == TokenSemicolon {
			return
		}
	}
}

// skipBalanced consumes an opening token and everything up to its matching
// closing token.
func (p *Parser) skipBalanced(open, close TokenType) {
	p.expect(open, fmt.Sprintf("expected '%s'", open))
	depth := 1
	for depth > 0 {
		tok := p.peek()
		if tok.Type == TokenEOF {
			p.fail(tok, fmt.Sprintf("expected '%s'", close))
		}
		p.advance()
		switch tok.Type {
		case open:
			depth++
		case close:
			depth--
		}
	}
}

// --- Token helpers ---

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(offset int) Token {
	i := p.current + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) check(word string) bool {
	return p.peek().is(word)
}

func (p *Parser) checkType(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) matchType(t TokenType) bool {
	if p.checkType(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType, message string) Token {
	if p.checkType(t) {
		return p.advance()
	}
	p.fail(p.peek(), message)
	return Token{}
}

func (p *Parser) fail(tok Token, message string) {
	p.errors = append(p.errors, ParseError{Message: message, Line: tok.Line, Column: tok.Column})
	panic(bailout{})
}

func pos(tok Token) Pos {
	return Pos{Line: tok.Line, Column: tok.Column}
}

// unquote returns the value of a quoted string token, falling back to the
// raw text without quotes for escapes Go does not understand.
func unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return lexeme
	}
	if lexeme[0] == '\'' {
		inner := lexeme[1 : len(lexeme)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		lexeme = `"` + inner + `"`
	}
	if s, err := strconv.Unquote(lexeme); err == nil {
		return s
	}
	return lexeme[1 : len(lexeme)-1]
}
