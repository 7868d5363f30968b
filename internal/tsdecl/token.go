package tsdecl

import "fmt"

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenTemplate

	TokenLBrace   // {
	TokenRBrace   // }
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLAngle   // <
	TokenRAngle   // >

	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenQuestion  // ?
	TokenPipe      // |
	TokenAmp       // &
	TokenEquals    // =
	TokenDot       // .
	TokenEllipsis  // ...
	TokenArrow     // =>
	TokenMinus     // -
	TokenPlus      // +
	TokenStar      // *
	TokenAt        // @
	TokenBang      // !

	// TokenOther is any character with no meaning in type positions.
	TokenOther
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIdent:     "identifier",
	TokenString:    "string",
	TokenNumber:    "number",
	TokenTemplate:  "template",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenLAngle:    "<",
	TokenRAngle:    ">",
	TokenComma:     ",",
	TokenSemicolon: ";",
	TokenColon:     ":",
	TokenQuestion:  "?",
	TokenPipe:      "|",
	TokenAmp:       "&",
	TokenEquals:    "=",
	TokenDot:       ".",
	TokenEllipsis:  "...",
	TokenArrow:     "=>",
	TokenMinus:     "-",
	TokenPlus:      "+",
	TokenStar:      "*",
	TokenAt:        "@",
	TokenBang:      "!",
	TokenOther:     "other",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit of a declaration file.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int

	// NewlineBefore is true when at least one line break separates this token
	// from the previous one.
	NewlineBefore bool

	// Doc holds the text of the JSDoc block immediately preceding the token.
	Doc string
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// is reports whether the token is the identifier or keyword word.
func (t Token) is(word string) bool {
	return t.Type == TokenIdent && t.Lexeme == word
}

// LexError is a recoverable error found while tokenizing.
type LexError struct {
	Message string
	Line    int
	Column  int
}

func (e LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
