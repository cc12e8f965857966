package compiler

import "testing"

func tokenTypes(input string) []TokenType {
	var types []TokenType
	for _, tok := range Tokenize(input) {
		types = append(types, tok.Type)
	}
	return types
}

func checkTypes(t *testing.T, input string, want []TokenType) {
	t.Helper()
	got := tokenTypes(input)
	if len(got) != len(want) {
		t.Fatalf("%q lexed to %d tokens, want %d: %v", input, len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%q token %d = %s, want %s", input, i, got[i], want[i])
		}
	}
}

func TestLexRangeVsFloat(t *testing.T) {
	// A dot joins a number only when a digit follows, so ranges lex cleanly.
	checkTypes(t, "1..10", []TokenType{TokenInt, TokenRange, TokenInt, TokenEOF})
	checkTypes(t, "1..=10", []TokenType{TokenInt, TokenRangeEq, TokenInt, TokenEOF})
	checkTypes(t, "1.5", []TokenType{TokenFloat, TokenEOF})
	checkTypes(t, "1.5e3", []TokenType{TokenFloat, TokenEOF})
	checkTypes(t, ".5", []TokenType{TokenFloat, TokenEOF})
}

func TestLexOperators(t *testing.T) {
	checkTypes(t, "a += 1", []TokenType{TokenIdent, TokenPlusAssign, TokenInt, TokenEOF})
	checkTypes(t, "a == b != c", []TokenType{TokenIdent, TokenEq, TokenIdent, TokenNotEq, TokenIdent, TokenEOF})
	checkTypes(t, "x <= y >= z", []TokenType{TokenIdent, TokenLessEq, TokenIdent, TokenGreaterEq, TokenIdent, TokenEOF})
	checkTypes(t, "a => b", []TokenType{TokenIdent, TokenArrow, TokenIdent, TokenEOF})
	checkTypes(t, "rest...", []TokenType{TokenIdent, TokenEllipsis, TokenEOF})
}

func TestLexKeywords(t *testing.T) {
	checkTypes(t, "fn if else while for in match return yield throw assert break continue with as and or not true false null",
		[]TokenType{
			TokenFn, TokenIf, TokenElse, TokenWhile, TokenFor, TokenIn,
			TokenMatch, TokenReturn, TokenYield, TokenThrow, TokenAssert,
			TokenBreak, TokenContinue, TokenWith, TokenAs,
			TokenAnd, TokenOr, TokenNot, TokenTrue, TokenFalse, TokenNull,
			TokenEOF,
		})
}

func TestLexComments(t *testing.T) {
	checkTypes(t, "1 # this is ignored\n2", []TokenType{TokenInt, TokenInt, TokenEOF})
	checkTypes(t, "# only a comment", []TokenType{TokenEOF})
}

func TestLexStringEscapes(t *testing.T) {
	toks := Tokenize(`"a\n\t\"b\\"`)
	if toks[0].Type != TokenString {
		t.Fatalf("got %s, want STRING", toks[0].Type)
	}
	if toks[0].Literal != "a\n\t\"b\\" {
		t.Errorf("string literal = %q", toks[0].Literal)
	}
}

func TestLexStringErrors(t *testing.T) {
	toks := Tokenize(`"unterminated`)
	if toks[len(toks)-1].Type != TokenError {
		t.Error("unterminated string did not produce an error token")
	}
	toks = Tokenize("\"broken\nacross lines\"")
	if toks[0].Type != TokenError {
		t.Error("newline inside a string did not produce an error token")
	}
	toks = Tokenize(`"\q"`)
	if toks[0].Type != TokenError {
		t.Error("invalid escape did not produce an error token")
	}
}

func TestLexPositions(t *testing.T) {
	toks := Tokenize("a\n  b")
	if toks[0].Pos.Line != 1 || toks[1].Pos.Line != 2 {
		t.Errorf("lines = %d, %d; want 1, 2", toks[0].Pos.Line, toks[1].Pos.Line)
	}
	if toks[1].Pos.Column != 3 {
		t.Errorf("b column = %d, want 3", toks[1].Pos.Column)
	}
}

func TestLexUnicodeIdentifiers(t *testing.T) {
	toks := Tokenize("héllo = 1")
	if toks[0].Type != TokenIdent || toks[0].Literal != "héllo" {
		t.Errorf("got %s %q, want IDENT héllo", toks[0].Type, toks[0].Literal)
	}
}
