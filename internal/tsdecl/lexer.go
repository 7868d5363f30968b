// Package tsdecl tokenizes and parses TypeScript declaration files into
// type expression trees.
//
// Only the declaration surface matters here: type aliases and interfaces are
// parsed in full, every other top-level statement is skipped token by token.
package tsdecl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes TypeScript source.
//
// Lexer instances are not safe for concurrent use.
type Lexer struct {
	source  string
	start   int // start offset of the current token
	current int // current offset in source
	line    int
	column  int

	startLine   int
	startColumn int

	newline    bool   // line break seen since the last token
	pendingDoc string // last JSDoc block seen since the last token

	tokens []Token
	errors []LexError
}

// NewLexer creates a Lexer for the given source.
func NewLexer(source string) *Lexer {
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
	}
}

// ScanTokens tokenizes the whole source. The returned slice always ends with
// a TokenEOF.
func (l *Lexer) ScanTokens() ([]Token, []LexError) {
	for {
		l.skipTrivia()
		if l.isAtEnd() {
			break
		}
		l.start = l.current
		l.startLine = l.line
		l.startColumn = l.column
		l.scanToken()
	}

	l.start = l.current
	l.startLine = l.line
	l.startColumn = l.column
	l.addToken(TokenEOF)
	return l.tokens, l.errors
}

func (l *Lexer) scanToken() {
	c := l.advance()

	switch c {
	case '{':
		l.addToken(TokenLBrace)
	case '}':
		l.addToken(TokenRBrace)
	case '(':
		l.addToken(TokenLParen)
	case ')':
		l.addToken(TokenRParen)
	case '[':
		l.addToken(TokenLBracket)
	case ']':
		l.addToken(TokenRBracket)
	case '<':
		l.addToken(TokenLAngle)
	case '>':
		// Each '>' is its own token so nested generics close correctly.
		l.addToken(TokenRAngle)
	case ',':
		l.addToken(TokenComma)
	case ';':
		l.addToken(TokenSemicolon)
	case ':':
		l.addToken(TokenColon)
	case '?':
		l.addToken(TokenQuestion)
	case '|':
		l.addToken(TokenPipe)
	case '&':
		l.addToken(TokenAmp)
	case '=':
		if l.match('>') {
			l.addToken(TokenArrow)
		} else {
			l.addToken(TokenEquals)
		}
	case '.':
		if l.peek() == '.' && l.peekNext() == '.' {
			l.advance()
			l.advance()
			l.addToken(TokenEllipsis)
		} else if isDigit(l.peek()) {
			l.number()
		} else {
			l.addToken(TokenDot)
		}
	case '-':
		l.addToken(TokenMinus)
	case '+':
		l.addToken(TokenPlus)
	case '*':
		l.addToken(TokenStar)
	case '@':
		l.addToken(TokenAt)
	case '!':
		l.addToken(TokenBang)
	case '"', '\'':
		l.string(c)
	case '`':
		l.template()
		l.addToken(TokenTemplate)
	default:
		switch {
		case isDigit(c):
			l.number()
		case c == '_' || c == '$' || isASCIILetter(c):
			l.identifier()
		case c >= utf8.RuneSelf:
			// Back up and decode the full rune.
			l.current--
			l.column--
			r, size := utf8.DecodeRuneInString(l.source[l.current:])
			l.current += size
			l.column++
			if unicode.IsLetter(r) {
				l.identifier()
			} else {
				l.addToken(TokenOther)
			}
		default:
			l.addToken(TokenOther)
		}
	}
}

// skipTrivia skips whitespace and comments, remembering line breaks and the
// most recent JSDoc block for the next token.
func (l *Lexer) skipTrivia() {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == '\n':
			l.newline = true
			l.advance()
			l.line++
			l.column = 1
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.advance()
		case c == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekNext() == '*':
			l.blockComment()
		case c == 0xEF && strings.HasPrefix(l.source[l.current:], "\uFEFF"):
			l.current += len("\uFEFF")
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	startLine, startColumn := l.line, l.column
	begin := l.current
	l.advance() // /
	l.advance() // *
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			text := l.source[begin:l.current]
			if strings.HasPrefix(text, "/**") && text != "/**/" {
				l.pendingDoc = cleanDoc(text)
			}
			return
		}
		if l.peek() == '\n' {
			l.newline = true
			l.line++
			l.column = 0
		}
		l.advance()
	}
	l.errors = append(l.errors, LexError{Message: "unterminated comment", Line: startLine, Column: startColumn})
}

// cleanDoc strips the comment delimiters and leading asterisks of a JSDoc block.
func cleanDoc(text string) string {
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (l *Lexer) string(quote byte) {
	for !l.isAtEnd() && l.peek() != quote {
		if l.peek() == '\n' {
			l.errors = append(l.errors, LexError{Message: "unterminated string literal", Line: l.startLine, Column: l.startColumn})
			l.addToken(TokenString)
			return
		}
		if l.peek() == '\\' {
			l.advance()
		}
		if !l.isAtEnd() {
			l.advance()
		}
	}
	if l.isAtEnd() {
		l.errors = append(l.errors, LexError{Message: "unterminated string literal", Line: l.startLine, Column: l.startColumn})
		l.addToken(TokenString)
		return
	}
	l.advance() // closing quote
	l.addToken(TokenString)
}

// template consumes a template literal body, including nested substitutions.
// The opening backtick has already been consumed.
func (l *Lexer) template() {
	for !l.isAtEnd() {
		c := l.advance()
		switch c {
		case '\\':
			if !l.isAtEnd() {
				l.advance()
			}
		case '\n':
			l.newline = true
			l.line++
			l.column = 1
		case '`':
			return
		case '$':
			if l.peek() == '{' {
				l.advance()
				l.substitution()
			}
		}
	}
	l.errors = append(l.errors, LexError{Message: "unterminated template literal", Line: l.startLine, Column: l.startColumn})
}

func (l *Lexer) substitution() {
	depth := 1
	for !l.isAtEnd() && depth > 0 {
		c := l.advance()
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case '`':
			l.template()
		case '"', '\'':
			for !l.isAtEnd() && l.peek() != c && l.peek() != '\n' {
				if l.peek() == '\\' {
					l.advance()
				}
				l.advance()
			}
			if !l.isAtEnd() && l.peek() == c {
				l.advance()
			}
		case '\n':
			l.line++
			l.column = 1
		}
	}
}

func (l *Lexer) number() {
	if l.source[l.start] == '0' && (l.peek() == 'x' || l.peek() == 'X' || l.peek() == 'b' || l.peek() == 'B' || l.peek() == 'o' || l.peek() == 'O') {
		l.advance()
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	} else {
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		if l.peek() == '.' && isDigit(l.peekNext()) {
			l.advance()
			for isDigit(l.peek()) || l.peek() == '_' {
				l.advance()
			}
		}
		if l.peek() == 'e' || l.peek() == 'E' {
			n := l.peekNext()
			if isDigit(n) || n == '+' || n == '-' {
				l.advance()
				l.advance()
				for isDigit(l.peek()) {
					l.advance()
				}
			}
		}
	}
	l.match('n') // bigint suffix
	l.addToken(TokenNumber)
}

func (l *Lexer) identifier() {
	for !l.isAtEnd() {
		c := l.peek()
		if c == '_' || c == '$' || isASCIILetter(c) || isDigit(c) {
			l.advance()
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(l.source[l.current:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				l.current += size
				l.column++
				continue
			}
		}
		break
	}
	l.addToken(TokenIdent)
}

func (l *Lexer) addToken(tokenType TokenType) {
	l.tokens = append(l.tokens, Token{
		Type:          tokenType,
		Lexeme:        l.source[l.start:l.current],
		Line:          l.startLine,
		Column:        l.startColumn,
		NewlineBefore: l.newline,
		Doc:           l.pendingDoc,
	})
	l.newline = false
	l.pendingDoc = ""
}

func (l *Lexer) advance() byte {
	c := l.source[l.current]
	l.current++
	l.column++
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
