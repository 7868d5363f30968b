package tsdecl

import "testing"

func scanSource(source string) ([]Token, []LexError) {
	return NewLexer(source).ScanTokens()
}

func checkTokenTypes(t *testing.T, tokens []Token, expected []TokenType) {
	t.Helper()

	actual := tokens
	if len(actual) > 0 && actual[len(actual)-1].Type == TokenEOF {
		actual = actual[:len(actual)-1]
	}
	if len(actual) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(actual), actual)
	}
	for i, tok := range actual {
		if tok.Type != expected[i] {
			t.Errorf("token %d: expected %s, got %s", i, expected[i], tok.Type)
		}
	}
}

func TestLexer_Punctuation(t *testing.T) {
	tokens, errs := scanSource("{}()[]<>,;:?|&=.=>...-+*@!")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	checkTokenTypes(t, tokens, []TokenType{
		TokenLBrace, TokenRBrace, TokenLParen, TokenRParen, TokenLBracket, TokenRBracket,
		TokenLAngle, TokenRAngle, TokenComma, TokenSemicolon, TokenColon, TokenQuestion,
		TokenPipe, TokenAmp, TokenEquals, TokenDot, TokenArrow, TokenEllipsis, TokenMinus,
		TokenPlus, TokenStar, TokenAt, TokenBang,
	})
}

func TestLexer_NestedGenericsCloseSeparately(t *testing.T) {
	tokens, _ := scanSource("Array<Array<string>>")
	checkTokenTypes(t, tokens, []TokenType{
		TokenIdent, TokenLAngle, TokenIdent, TokenLAngle, TokenIdent, TokenRAngle, TokenRAngle,
	})
}

func TestLexer_StringsKeepQuotes(t *testing.T) {
	tokens, errs := scanSource(`"red" 'green' "es\"caped"`)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []string{`"red"`, `'green'`, `"es\"caped"`}
	for i, w := range want {
		if tokens[i].Type != TokenString || tokens[i].Lexeme != w {
			t.Errorf("token %d: expected string %s, got %s", i, w, tokens[i])
		}
	}
}

func TestLexer_Numbers(t *testing.T) {
	tokens, _ := scanSource("42 3.14 0xff 1e10 10n .5")
	want := []string{"42", "3.14", "0xff", "1e10", "10n", ".5"}
	for i, w := range want {
		if tokens[i].Type != TokenNumber || tokens[i].Lexeme != w {
			t.Errorf("token %d: expected number %s, got %s", i, w, tokens[i])
		}
	}
}

func TestLexer_TemplateLiteral(t *testing.T) {
	tokens, errs := scanSource("`prefix_${string}_${`inner${number}`}` x")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	checkTokenTypes(t, tokens, []TokenType{TokenTemplate, TokenIdent})
}

func TestLexer_CommentsAndDoc(t *testing.T) {
	source := `// line comment
/* block */
/**
 * A user.
 * @see docs
 */
type User = string;`
	tokens, errs := scanSource(source)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !tokens[0].is("type") {
		t.Fatalf("expected first token 'type', got %s", tokens[0])
	}
	if tokens[0].Doc != "A user.\n@see docs" {
		t.Errorf("unexpected doc %q", tokens[0].Doc)
	}
	if tokens[0].Line != 7 {
		t.Errorf("expected line 7, got %d", tokens[0].Line)
	}
	if tokens[1].Doc != "" {
		t.Errorf("doc should attach to one token only, got %q on %s", tokens[1].Doc, tokens[1])
	}
}

func TestLexer_NewlineBefore(t *testing.T) {
	tokens, _ := scanSource("a b\nc")
	if tokens[0].NewlineBefore || tokens[1].NewlineBefore {
		t.Error("expected no newline before a and b")
	}
	if !tokens[2].NewlineBefore {
		t.Error("expected newline before c")
	}
}

func TestLexer_UnicodeIdentifier(t *testing.T) {
	tokens, _ := scanSource("type Ünïcode = string")
	if tokens[1].Type != TokenIdent || tokens[1].Lexeme != "Ünïcode" {
		t.Errorf("expected unicode identifier, got %s", tokens[1])
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, errs := scanSource(`"open`)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}
