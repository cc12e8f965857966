package compiler

import "strconv"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Quill syntax
// ---------------------------------------------------------------------------

// Parser parses Quill source code into an AST.
type Parser struct {
	lexer      *Lexer
	curToken   Token
	peekToken  Token
	sourceName string
	err        *CompileError

	// fnYield tracks, per enclosing function literal, whether its body
	// contains a yield. The bottom entry stands for the top level, where
	// yield is not allowed.
	fnYield []bool
}

// NewParser creates a new parser for the given input.
func NewParser(sourceName, input string) *Parser {
	p := &Parser{
		lexer:      NewLexer(input),
		sourceName: sourceName,
		fnYield:    []bool{false},
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	if p.curToken.Type == TokenError && p.err == nil {
		p.errorf(p.curToken, "%s", p.curToken.Literal)
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances past the current token if it matches, otherwise records
// an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf(p.curToken, "expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records the first parse error; later errors are usually cascade
// noise and are dropped.
func (p *Parser) errorf(tok Token, format string, args ...any) {
	if p.err != nil {
		return
	}
	span := Span{Start: tok.Pos, End: Position{Offset: tok.End, Line: tok.Pos.Line}}
	p.err = compileErrorf(p.sourceName, span, format, args...)
}

func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: Position{Offset: p.curToken.Pos.Offset, Line: p.curToken.Pos.Line}}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseModule parses a whole script.
func (p *Parser) ParseModule() (*Module, *CompileError) {
	start := p.curToken.Pos
	var stmts []Stmt
	for !p.curTokenIs(TokenEOF) && p.err == nil {
		stmt := p.parseStatement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &Module{SpanVal: p.spanFrom(start), Stmts: stmts}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenReturn:
		return p.parseReturn()
	case TokenYield:
		return p.parseYield()
	case TokenThrow:
		start := p.curToken.Pos
		p.nextToken()
		value := p.parseExpression()
		return &ThrowStmt{SpanVal: p.spanFrom(start), Value: value}
	case TokenAssert:
		start := p.curToken.Pos
		p.nextToken()
		cond := p.parseExpression()
		return &AssertStmt{SpanVal: p.spanFrom(start), Cond: cond}
	case TokenBreak:
		stmt := &BreakStmt{SpanVal: p.spanFrom(p.curToken.Pos)}
		p.nextToken()
		return stmt
	case TokenContinue:
		stmt := &ContinueStmt{SpanVal: p.spanFrom(p.curToken.Pos)}
		p.nextToken()
		return stmt
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenWith:
		return p.parseWith()
	default:
		return p.parseExprOrAssign()
	}
}

func (p *Parser) parseReturn() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	var value Expr
	if !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		value = p.parseExpression()
	}
	return &ReturnStmt{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseYield() Stmt {
	start := p.curToken.Pos
	if len(p.fnYield) == 1 {
		p.errorf(p.curToken, "yield outside a function")
	}
	p.fnYield[len(p.fnYield)-1] = true
	p.nextToken()
	value := p.parseExpression()
	return &YieldStmt{SpanVal: p.spanFrom(start), Value: value}
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseExpression()
	body := p.parseBlock()
	return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body}
}

func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken()

	var targets []*Ident
	for {
		if !p.curTokenIs(TokenIdent) {
			p.errorf(p.curToken, "expected loop variable, got %s", p.curToken.Type)
			return nil
		}
		targets = append(targets, p.identNode())
		p.nextToken()
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}

	if !p.expect(TokenIn) {
		return nil
	}
	iterable := p.parseExpression()
	body := p.parseBlock()
	return &ForStmt{SpanVal: p.spanFrom(start), Targets: targets, Iterable: iterable, Body: body}
}

func (p *Parser) parseWith() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	resource := p.parseExpression()
	if !p.expect(TokenAs) {
		return nil
	}
	if !p.curTokenIs(TokenIdent) {
		p.errorf(p.curToken, "expected resource name, got %s", p.curToken.Type)
		return nil
	}
	name := p.identNode()
	p.nextToken()
	body := p.parseBlock()
	return &WithStmt{SpanVal: p.spanFrom(start), Resource: resource, Name: name, Body: body}
}

// parseExprOrAssign parses an expression statement, a (possibly
// destructuring) assignment, or a compound assignment.
func (p *Parser) parseExprOrAssign() Stmt {
	start := p.curToken.Pos
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}

	// Destructuring: a, b, c = value
	if p.curTokenIs(TokenComma) {
		targets := []Expr{expr}
		if _, ok := expr.(*Ident); !ok {
			p.errorf(p.curToken, "destructuring targets must be names")
			return nil
		}
		for p.curTokenIs(TokenComma) {
			p.nextToken()
			if !p.curTokenIs(TokenIdent) {
				p.errorf(p.curToken, "expected name in destructuring assignment")
				return nil
			}
			targets = append(targets, p.identNode())
			p.nextToken()
		}
		if !p.expect(TokenAssign) {
			return nil
		}
		value := p.parseExpression()
		return &AssignStmt{SpanVal: p.spanFrom(start), Op: AssignSet, Targets: targets, Value: value}
	}

	var op AssignOp
	switch p.curToken.Type {
	case TokenAssign:
		op = AssignSet
	case TokenPlusAssign:
		op = AssignAdd
	case TokenMinusAssign:
		op = AssignSub
	case TokenStarAssign:
		op = AssignMul
	case TokenSlashAssign:
		op = AssignDiv
	case TokenPercentAssign:
		op = AssignMod
	default:
		return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
	}

	switch expr.(type) {
	case *Ident, *IndexExpr:
	default:
		p.errorf(p.curToken, "invalid assignment target")
		return nil
	}

	p.nextToken()
	value := p.parseExpression()

	// Name a function after the variable it is assigned to.
	if op == AssignSet {
		if fn, ok := value.(*FnExpr); ok && fn.Name == "" {
			if id, ok := expr.(*Ident); ok {
				fn.Name = id.Name
			}
		}
	}

	return &AssignStmt{SpanVal: p.spanFrom(start), Op: op, Targets: []Expr{expr}, Value: value}
}

// parseBlock parses a braced statement sequence.
func (p *Parser) parseBlock() *Block {
	start := p.curToken.Pos
	if !p.expect(TokenLBrace) {
		return &Block{SpanVal: p.spanFrom(start)}
	}
	var stmts []Stmt
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) && p.err == nil {
		stmt := p.parseStatement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
	}
	p.expect(TokenRBrace)
	return &Block{SpanVal: p.spanFrom(start), Stmts: stmts}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression (used by the REPL).
func (p *Parser) ParseExpression() (Expr, *CompileError) {
	expr := p.parseExpression()
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

// parseExpression parses at the lowest precedence level.
func (p *Parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for p.curTokenIs(TokenOr) {
		p.nextToken()
		right := p.parseAnd()
		left = &BinaryExpr{SpanVal: p.spanFrom(left.Span().Start), Op: BinOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for p.curTokenIs(TokenAnd) {
		p.nextToken()
		right := p.parseNot()
		left = &BinaryExpr{SpanVal: p.spanFrom(left.Span().Start), Op: BinAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.curTokenIs(TokenNot) {
		start := p.curToken.Pos
		p.nextToken()
		operand := p.parseNot()
		return &UnaryExpr{SpanVal: p.spanFrom(start), Op: UnaryNot, Operand: operand}
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]BinaryOp{
	TokenEq:        BinEq,
	TokenNotEq:     BinNotEq,
	TokenLess:      BinLess,
	TokenLessEq:    BinLessEq,
	TokenGreater:   BinGreater,
	TokenGreaterEq: BinGreaterEq,
}

func (p *Parser) parseComparison() Expr {
	left := p.parseRange()
	for {
		op, ok := comparisonOps[p.curToken.Type]
		if !ok {
			return left
		}
		p.nextToken()
		right := p.parseRange()
		left = &BinaryExpr{SpanVal: p.spanFrom(left.Span().Start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseRange() Expr {
	left := p.parseAdditive()
	if p.curTokenIs(TokenRange) || p.curTokenIs(TokenRangeEq) {
		inclusive := p.curTokenIs(TokenRangeEq)
		p.nextToken()
		right := p.parseAdditive()
		return &RangeExpr{
			SpanVal:   p.spanFrom(left.Span().Start),
			Start:     left,
			End:       right,
			Inclusive: inclusive,
		}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := BinAdd
		if p.curTokenIs(TokenMinus) {
			op = BinSub
		}
		p.nextToken()
		right := p.parseMultiplicative()
		left = &BinaryExpr{SpanVal: p.spanFrom(left.Span().Start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for {
		var op BinaryOp
		switch p.curToken.Type {
		case TokenStar:
			op = BinMul
		case TokenSlash:
			op = BinDiv
		case TokenPercent:
			op = BinMod
		default:
			return left
		}
		p.nextToken()
		right := p.parseUnary()
		left = &BinaryExpr{SpanVal: p.spanFrom(left.Span().Start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) {
		start := p.curToken.Pos
		p.nextToken()
		operand := p.parseUnary()
		return &UnaryExpr{SpanVal: p.spanFrom(start), Op: UnaryNeg, Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix parses calls, indexing and method calls left to right.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for expr != nil {
		switch p.curToken.Type {
		case TokenLParen:
			args := p.parseArgs()
			expr = &CallExpr{SpanVal: p.spanFrom(expr.Span().Start), Callee: expr, Args: args}
		case TokenLBracket:
			p.nextToken()
			index := p.parseExpression()
			p.expect(TokenRBracket)
			expr = &IndexExpr{SpanVal: p.spanFrom(expr.Span().Start), Container: expr, Index: index}
		case TokenDot:
			p.nextToken()
			if !p.curTokenIs(TokenIdent) {
				p.errorf(p.curToken, "expected method name, got %s", p.curToken.Type)
				return expr
			}
			name := p.curToken.Literal
			p.nextToken()
			var args []Expr
			if p.curTokenIs(TokenLParen) {
				args = p.parseArgs()
			}
			expr = &MethodCallExpr{SpanVal: p.spanFrom(expr.Span().Start), Recv: expr, Name: name, Args: args}
		default:
			return expr
		}
	}
	return expr
}

// parseArgs parses a parenthesized argument list, starting at the '('.
func (p *Parser) parseArgs() []Expr {
	p.nextToken() // consume (
	var args []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) && p.err == nil {
		args = append(args, p.parseExpression())
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		break
	}
	p.expect(TokenRParen)
	return args
}

// ---------------------------------------------------------------------------
// Primary expressions
// ---------------------------------------------------------------------------

func (p *Parser) parsePrimary() Expr {
	start := p.curToken.Pos

	switch p.curToken.Type {
	case TokenNull:
		p.nextToken()
		return &NullLiteral{SpanVal: p.spanFrom(start)}

	case TokenTrue, TokenFalse:
		value := p.curTokenIs(TokenTrue)
		p.nextToken()
		return &BoolLiteral{SpanVal: p.spanFrom(start), Value: value}

	case TokenInt:
		lit := p.curToken.Literal
		value, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			p.errorf(p.curToken, "invalid integer literal %q", lit)
			return nil
		}
		p.nextToken()
		return &IntLiteral{SpanVal: p.spanFrom(start), Value: value}

	case TokenFloat:
		lit := p.curToken.Literal
		value, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf(p.curToken, "invalid float literal %q", lit)
			return nil
		}
		p.nextToken()
		return &FloatLiteral{SpanVal: p.spanFrom(start), Value: value}

	case TokenString:
		value := p.curToken.Literal
		p.nextToken()
		return &StringLiteral{SpanVal: p.spanFrom(start), Value: value}

	case TokenIdent:
		id := p.identNode()
		p.nextToken()
		return id

	case TokenLParen:
		return p.parseParenOrTuple()

	case TokenLBracket:
		return p.parseListLiteral()

	case TokenLBrace:
		return p.parseMapLiteral()

	case TokenFn:
		return p.parseFnLiteral()

	case TokenIf:
		return p.parseIfExpr()

	case TokenMatch:
		return p.parseMatchExpr()

	default:
		p.errorf(p.curToken, "unexpected token %s", p.curToken.Type)
		return nil
	}
}

func (p *Parser) identNode() *Ident {
	return &Ident{
		SpanVal: Span{
			Start: p.curToken.Pos,
			End:   Position{Offset: p.curToken.End, Line: p.curToken.Pos.Line},
		},
		Name: p.curToken.Literal,
	}
}

// parseParenOrTuple parses (expr), (a, b, ...) or ().
func (p *Parser) parseParenOrTuple() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume (

	if p.curTokenIs(TokenRParen) {
		p.nextToken()
		return &TupleLiteral{SpanVal: p.spanFrom(start)}
	}

	first := p.parseExpression()
	if !p.curTokenIs(TokenComma) {
		p.expect(TokenRParen)
		return first
	}

	elements := []Expr{first}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		if p.curTokenIs(TokenRParen) {
			break
		}
		elements = append(elements, p.parseExpression())
	}
	p.expect(TokenRParen)
	return &TupleLiteral{SpanVal: p.spanFrom(start), Elements: elements}
}

func (p *Parser) parseListLiteral() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume [
	var elements []Expr
	for !p.curTokenIs(TokenRBracket) && !p.curTokenIs(TokenEOF) && p.err == nil {
		elements = append(elements, p.parseExpression())
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		break
	}
	p.expect(TokenRBracket)
	return &ListLiteral{SpanVal: p.spanFrom(start), Elements: elements}
}

// parseMapLiteral parses {key: value, ...}. Bare identifier keys are string
// keys.
func (p *Parser) parseMapLiteral() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume {
	var entries []MapEntry
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) && p.err == nil {
		var key Expr
		if p.curTokenIs(TokenIdent) && p.peekTokenIs(TokenColon) {
			key = &StringLiteral{
				SpanVal: Span{Start: p.curToken.Pos, End: Position{Offset: p.curToken.End, Line: p.curToken.Pos.Line}},
				Value:   p.curToken.Literal,
			}
			p.nextToken()
		} else {
			key = p.parseExpression()
		}
		if !p.expect(TokenColon) {
			break
		}
		value := p.parseExpression()
		entries = append(entries, MapEntry{Key: key, Value: value})
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		break
	}
	p.expect(TokenRBrace)
	return &MapLiteral{SpanVal: p.spanFrom(start), Entries: entries}
}

// parseFnLiteral parses fn(params) { body }. A trailing `name...` param
// collects extra arguments.
func (p *Parser) parseFnLiteral() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume fn

	if !p.expect(TokenLParen) {
		return nil
	}
	var params []*Ident
	variadic := false
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) && p.err == nil {
		if variadic {
			p.errorf(p.curToken, "variadic parameter must be last")
			return nil
		}
		if !p.curTokenIs(TokenIdent) {
			p.errorf(p.curToken, "expected parameter name, got %s", p.curToken.Type)
			return nil
		}
		params = append(params, p.identNode())
		p.nextToken()
		if p.curTokenIs(TokenEllipsis) {
			variadic = true
			p.nextToken()
		}
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRParen)

	p.fnYield = append(p.fnYield, false)
	body := p.parseBlock()
	isGenerator := p.fnYield[len(p.fnYield)-1]
	p.fnYield = p.fnYield[:len(p.fnYield)-1]

	return &FnExpr{
		SpanVal:     p.spanFrom(start),
		Params:      params,
		Variadic:    variadic,
		Body:        body,
		IsGenerator: isGenerator,
	}
}

// parseIfExpr parses if cond { ... } [else if ... | else { ... }].
func (p *Parser) parseIfExpr() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume if
	cond := p.parseExpression()
	then := p.parseBlock()

	var elseBranch Expr
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			elseBranch = p.parseIfExpr()
		} else {
			elseBranch = p.parseBlock()
		}
	}
	return &IfExpr{SpanVal: p.spanFrom(start), Cond: cond, Then: then, Else: elseBranch}
}

// parseMatchExpr parses match subject { pattern => body, ..., else => body }.
func (p *Parser) parseMatchExpr() Expr {
	start := p.curToken.Pos
	p.nextToken() // consume match
	subject := p.parseExpression()
	if !p.expect(TokenLBrace) {
		return nil
	}

	var arms []MatchArm
	sawElse := false
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) && p.err == nil {
		var pattern Expr
		if p.curTokenIs(TokenElse) {
			if sawElse {
				p.errorf(p.curToken, "duplicate else arm in match")
				return nil
			}
			sawElse = true
			p.nextToken()
		} else {
			pattern = p.parseExpression()
		}
		if !p.expect(TokenArrow) {
			return nil
		}
		var body Expr
		if p.curTokenIs(TokenLBrace) {
			body = p.parseBlock()
		} else {
			body = p.parseExpression()
		}
		arms = append(arms, MatchArm{Pattern: pattern, Body: body})
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRBrace)
	return &MatchExpr{SpanVal: p.spanFrom(start), Subject: subject, Arms: arms}
}

// Parse is a convenience wrapper: lex and parse a whole script.
func Parse(sourceName, input string) (*Module, *CompileError) {
	return NewParser(sourceName, input).ParseModule()
}
