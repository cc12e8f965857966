package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Quill lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInt    // 42
	TokenFloat  // 3.14, 1.5e10
	TokenString // "hello"
	TokenIdent  // foo, Bar

	// Keywords
	TokenFn
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenMatch
	TokenReturn
	TokenYield
	TokenThrow
	TokenAssert
	TokenWith
	TokenAs
	TokenAnd
	TokenOr
	TokenNot
	TokenBreak
	TokenContinue
	TokenTrue
	TokenFalse
	TokenNull

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,
	TokenColon    // :
	TokenDot      // .
	TokenEllipsis // ...

	// Operators
	TokenAssign        // =
	TokenPlus          // +
	TokenMinus         // -
	TokenStar          // *
	TokenSlash         // /
	TokenPercent       // %
	TokenPlusAssign    // +=
	TokenMinusAssign   // -=
	TokenStarAssign    // *=
	TokenSlashAssign   // /=
	TokenPercentAssign // %=
	TokenEq            // ==
	TokenNotEq         // !=
	TokenLess          // <
	TokenLessEq        // <=
	TokenGreater       // >
	TokenGreaterEq     // >=
	TokenRange         // ..
	TokenRangeEq       // ..=
	TokenArrow         // =>
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenError:         "ERROR",
	TokenInt:           "INT",
	TokenFloat:         "FLOAT",
	TokenString:        "STRING",
	TokenIdent:         "IDENT",
	TokenFn:            "fn",
	TokenIf:            "if",
	TokenElse:          "else",
	TokenWhile:         "while",
	TokenFor:           "for",
	TokenIn:            "in",
	TokenMatch:         "match",
	TokenReturn:        "return",
	TokenYield:         "yield",
	TokenThrow:         "throw",
	TokenAssert:        "assert",
	TokenWith:          "with",
	TokenAs:            "as",
	TokenAnd:           "and",
	TokenOr:            "or",
	TokenNot:           "not",
	TokenBreak:         "break",
	TokenContinue:      "continue",
	TokenTrue:          "true",
	TokenFalse:         "false",
	TokenNull:          "null",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenComma:         ",",
	TokenColon:         ":",
	TokenDot:           ".",
	TokenEllipsis:      "...",
	TokenAssign:        "=",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenPlusAssign:    "+=",
	TokenMinusAssign:   "-=",
	TokenStarAssign:    "*=",
	TokenSlashAssign:   "/=",
	TokenPercentAssign: "%=",
	TokenEq:            "==",
	TokenNotEq:         "!=",
	TokenLess:          "<",
	TokenLessEq:        "<=",
	TokenGreater:       ">",
	TokenGreaterEq:     ">=",
	TokenRange:         "..",
	TokenRangeEq:       "..=",
	TokenArrow:         "=>",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"fn":       TokenFn,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"in":       TokenIn,
	"match":    TokenMatch,
	"return":   TokenReturn,
	"yield":    TokenYield,
	"throw":    TokenThrow,
	"assert":   TokenAssert,
	"with":     TokenWith,
	"as":       TokenAs,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"null":     TokenNull,
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string // the raw text, or the decoded value for strings
	Pos     Position
	End     int // byte offset one past the token
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
