package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Quill
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// NullLiteral represents the null literal.
type NullLiteral struct {
	SpanVal Span
}

func (n *NullLiteral) Span() Span { return n.SpanVal }
func (n *NullLiteral) node()      {}
func (n *NullLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// Ident represents a variable reference or assignment target.
type Ident struct {
	SpanVal Span
	Name    string
}

func (n *Ident) Span() Span { return n.SpanVal }
func (n *Ident) node()      {}
func (n *Ident) expr()      {}

// ListLiteral represents [a, b, c].
type ListLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

// TupleLiteral represents (a, b, c).
type TupleLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *TupleLiteral) Span() Span { return n.SpanVal }
func (n *TupleLiteral) node()      {}
func (n *TupleLiteral) expr()      {}

// MapEntry is one key: value pair in a map literal.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteral represents {key: value, ...}.
type MapLiteral struct {
	SpanVal Span
	Entries []MapEntry
}

func (n *MapLiteral) Span() Span { return n.SpanVal }
func (n *MapLiteral) node()      {}
func (n *MapLiteral) expr()      {}

// RangeExpr represents a..b or a..=b.
type RangeExpr struct {
	SpanVal   Span
	Start     Expr
	End       Expr
	Inclusive bool
}

func (n *RangeExpr) Span() Span { return n.SpanVal }
func (n *RangeExpr) node()      {}
func (n *RangeExpr) expr()      {}

// UnaryOp is a unary operator.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota // -x
	UnaryNot                // not x
)

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	SpanVal Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNotEq
	BinLess
	BinLessEq
	BinGreater
	BinGreaterEq
	BinAnd
	BinOr
)

// BinaryExpr represents a binary operation. And/or short-circuit.
type BinaryExpr struct {
	SpanVal Span
	Op      BinaryOp
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// CallExpr represents callee(args).
type CallExpr struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// MethodCallExpr represents recv.name(args).
type MethodCallExpr struct {
	SpanVal Span
	Recv    Expr
	Name    string
	Args    []Expr
}

func (n *MethodCallExpr) Span() Span { return n.SpanVal }
func (n *MethodCallExpr) node()      {}
func (n *MethodCallExpr) expr()      {}

// IndexExpr represents container[index].
type IndexExpr struct {
	SpanVal   Span
	Container Expr
	Index     Expr
}

func (n *IndexExpr) Span() Span { return n.SpanVal }
func (n *IndexExpr) node()      {}
func (n *IndexExpr) expr()      {}

// FnExpr represents a function literal. IsGenerator is set by the parser
// when the body contains a yield at this function's own level.
type FnExpr struct {
	SpanVal     Span
	Name        string // assigned name, for diagnostics; may be empty
	Params      []*Ident
	Variadic    bool // last param collects extra arguments as a Tuple
	Body        *Block
	IsGenerator bool
}

func (n *FnExpr) Span() Span { return n.SpanVal }
func (n *FnExpr) node()      {}
func (n *FnExpr) expr()      {}

// IfExpr represents if cond { ... } else { ... }. The else branch may be
// nil, another Block, or a nested IfExpr for else-if chains.
type IfExpr struct {
	SpanVal Span
	Cond    Expr
	Then    *Block
	Else    Expr // *Block, *IfExpr or nil
}

func (n *IfExpr) Span() Span { return n.SpanVal }
func (n *IfExpr) node()      {}
func (n *IfExpr) expr()      {}

// MatchArm is one `pattern => body` arm. A nil Pattern is the else arm.
type MatchArm struct {
	Pattern Expr // nil for else
	Body    Expr
}

// MatchExpr represents match subject { pattern => body, ... }.
type MatchExpr struct {
	SpanVal Span
	Subject Expr
	Arms    []MatchArm
}

func (n *MatchExpr) Span() Span { return n.SpanVal }
func (n *MatchExpr) node()      {}
func (n *MatchExpr) expr()      {}

// Block is a braced statement sequence. As an expression its value is the
// value of a trailing expression statement, or null.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression evaluated for its value or effects.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// AssignOp is the operator of an assignment statement.
type AssignOp int

const (
	AssignSet AssignOp = iota // =
	AssignAdd                 // +=
	AssignSub                 // -=
	AssignMul                 // *=
	AssignDiv                 // /=
	AssignMod                 // %=
)

// AssignStmt represents target = value, compound assignment, or a
// destructuring assignment when Targets has more than one entry.
// Destructuring and compound forms require plain identifier or index
// targets respectively.
type AssignStmt struct {
	SpanVal Span
	Op      AssignOp
	Targets []Expr // *Ident or *IndexExpr
	Value   Expr
}

func (n *AssignStmt) Span() Span { return n.SpanVal }
func (n *AssignStmt) node()      {}
func (n *AssignStmt) stmt()      {}

// WhileStmt represents while cond { ... }.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    *Block
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// ForStmt represents for targets in iterable { ... }.
type ForStmt struct {
	SpanVal  Span
	Targets  []*Ident
	Iterable Expr
	Body     *Block
}

func (n *ForStmt) Span() Span { return n.SpanVal }
func (n *ForStmt) node()      {}
func (n *ForStmt) stmt()      {}

// ReturnStmt represents return with an optional value.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr // nil for bare return
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// YieldStmt represents yield value inside a generator.
type YieldStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *YieldStmt) Span() Span { return n.SpanVal }
func (n *YieldStmt) node()      {}
func (n *YieldStmt) stmt()      {}

// ThrowStmt represents throw value.
type ThrowStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ThrowStmt) Span() Span { return n.SpanVal }
func (n *ThrowStmt) node()      {}
func (n *ThrowStmt) stmt()      {}

// AssertStmt represents assert cond.
type AssertStmt struct {
	SpanVal Span
	Cond    Expr
}

func (n *AssertStmt) Span() Span { return n.SpanVal }
func (n *AssertStmt) node()      {}
func (n *AssertStmt) stmt()      {}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	SpanVal Span
}

func (n *BreakStmt) Span() Span { return n.SpanVal }
func (n *BreakStmt) node()      {}
func (n *BreakStmt) stmt()      {}

// ContinueStmt restarts the innermost loop.
type ContinueStmt struct {
	SpanVal Span
}

func (n *ContinueStmt) Span() Span { return n.SpanVal }
func (n *ContinueStmt) node()      {}
func (n *ContinueStmt) stmt()      {}

// WithStmt represents with resource as name { ... }. The resource is
// released when the block exits, on both the normal and the error path.
type WithStmt struct {
	SpanVal  Span
	Resource Expr
	Name     *Ident
	Body     *Block
}

func (n *WithStmt) Span() Span { return n.SpanVal }
func (n *WithStmt) node()      {}
func (n *WithStmt) stmt()      {}

// Module is a parsed script: the top-level statement sequence.
type Module struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Module) Span() Span { return n.SpanVal }
func (n *Module) node()      {}
