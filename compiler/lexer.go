package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Quill syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Quill source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		// readChar advances col when it loads a character, so the first
		// character of a line lands on column 1.
		col: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
		l.ch = r
		l.pos = l.readPos
		l.readPos += size

		if r == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) token(t TokenType, literal string, pos Position) Token {
	return Token{Type: t, Literal: literal, Pos: pos, End: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return l.token(TokenEOF, "", pos)

	case l.ch == '(':
		l.readChar()
		return l.token(TokenLParen, "(", pos)

	case l.ch == ')':
		l.readChar()
		return l.token(TokenRParen, ")", pos)

	case l.ch == '[':
		l.readChar()
		return l.token(TokenLBracket, "[", pos)

	case l.ch == ']':
		l.readChar()
		return l.token(TokenRBracket, "]", pos)

	case l.ch == '{':
		l.readChar()
		return l.token(TokenLBrace, "{", pos)

	case l.ch == '}':
		l.readChar()
		return l.token(TokenRBrace, "}", pos)

	case l.ch == ',':
		l.readChar()
		return l.token(TokenComma, ",", pos)

	case l.ch == ':':
		l.readChar()
		return l.token(TokenColon, ":", pos)

	case l.ch == '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		l.readChar()
		if l.ch == '.' {
			l.readChar()
			if l.ch == '=' {
				l.readChar()
				return l.token(TokenRangeEq, "..=", pos)
			}
			if l.ch == '.' {
				l.readChar()
				return l.token(TokenEllipsis, "...", pos)
			}
			return l.token(TokenRange, "..", pos)
		}
		return l.token(TokenDot, ".", pos)

	case l.ch == '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenEq, "==", pos)
		}
		if l.ch == '>' {
			l.readChar()
			return l.token(TokenArrow, "=>", pos)
		}
		return l.token(TokenAssign, "=", pos)

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenNotEq, "!=", pos)
		}
		return l.token(TokenError, "unexpected character: !", pos)

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenLessEq, "<=", pos)
		}
		return l.token(TokenLess, "<", pos)

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenGreaterEq, ">=", pos)
		}
		return l.token(TokenGreater, ">", pos)

	case l.ch == '+':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenPlusAssign, "+=", pos)
		}
		return l.token(TokenPlus, "+", pos)

	case l.ch == '-':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenMinusAssign, "-=", pos)
		}
		return l.token(TokenMinus, "-", pos)

	case l.ch == '*':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenStarAssign, "*=", pos)
		}
		return l.token(TokenStar, "*", pos)

	case l.ch == '/':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenSlashAssign, "/=", pos)
		}
		return l.token(TokenSlash, "/", pos)

	case l.ch == '%':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(TokenPercentAssign, "%=", pos)
		}
		return l.token(TokenPercent, "%", pos)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	default:
		ch := l.ch
		l.readChar()
		return l.token(TokenError, fmt.Sprintf("unexpected character: %c", ch), pos)
	}
}

// skipWhitespaceAndComments skips whitespace and # line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a double-quoted string literal with escapes.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return l.token(TokenError, "unterminated string", pos)
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '0':
				sb.WriteByte(0)
			default:
				return l.token(TokenError, fmt.Sprintf("invalid escape: \\%c", l.ch), pos)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing "

	return l.token(TokenString, sb.String(), pos)
}

// readNumber reads an integer or float literal. A '.' is only part of the
// number when followed by a digit, so 1..10 lexes as INT RANGE INT.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if isFloat {
		return l.token(TokenFloat, l.input[start:l.pos], pos)
	}
	return l.token(TokenInt, l.input[start:l.pos], pos)
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos

	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	literal := l.input[start:l.pos]
	if tokType, ok := reservedWords[literal]; ok {
		return l.token(tokType, literal, pos)
	}
	return l.token(TokenIdent, literal, pos)
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
