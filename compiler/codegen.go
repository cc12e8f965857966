package compiler

import (
	"fmt"
	"math"

	"github.com/quill-lang/quill/vm"
)

// ---------------------------------------------------------------------------
// Codegen: AST to bytecode chunks
// ---------------------------------------------------------------------------

// Options control compilation.
type Options struct {
	// Globals lists the names the host will bind before execution. When set,
	// a reference to any other unbound name fails compilation; when nil,
	// unbound names compile to runtime global lookups.
	Globals []string
	// ReplMode makes top-level assignments bind globals instead of frame
	// locals, so definitions survive across separately compiled lines.
	ReplMode bool
}

// CompileScript compiles a source text into an executable chunk. Compilation
// is deterministic: the same source always yields byte-identical chunks.
func CompileScript(sourceName, source string, opts *Options) (*vm.Chunk, *CompileError) {
	if opts == nil {
		opts = &Options{}
	}
	module, err := Parse(sourceName, source)
	if err != nil {
		return nil, err
	}
	res, err := resolveModule(sourceName, module, opts.Globals, opts.ReplMode)
	if err != nil {
		return nil, err
	}
	g := &codegen{sourceName: sourceName, res: res}
	chunk := g.emitBody(nil, res.Main, module.Stmts)
	if g.err != nil {
		return nil, g.err
	}
	return chunk, nil
}

type codegen struct {
	sourceName string
	res        *Resolutions
	err        *CompileError
}

func (g *codegen) errorf(span Span, format string, args ...any) {
	if g.err == nil {
		g.err = compileErrorf(g.sourceName, span, format, args...)
	}
}

// loopCtx tracks the jump targets of one enclosing loop and how many with
// scopes were open when it started, so break and continue can release
// resources acquired inside the loop body.
type loopCtx struct {
	breakL    *vm.Label
	continueL *vm.Label
	withDepth int
}

// fnEmitter builds the chunk of one function body.
type fnEmitter struct {
	g          *codegen
	b          *vm.BytecodeBuilder
	constants  []vm.Constant
	constIndex map[string]uint16
	spans      []vm.SpanEntry
	info       *FnInfo
	loops      []*loopCtx
	withDepth  int
}

// emitBody compiles one function body (or the top level when fn is nil)
// into a sealed chunk.
func (g *codegen) emitBody(fn *FnExpr, info *FnInfo, stmts []Stmt) *vm.Chunk {
	e := &fnEmitter{
		g:          g,
		b:          vm.NewBytecodeBuilder(),
		constIndex: make(map[string]uint16),
		info:       info,
	}

	for _, slot := range info.BoxedSlots {
		e.b.EmitByte(vm.OpNewCell, slot)
	}

	// The body's trailing expression is the function's (or script's) value.
	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			if es, ok := stmt.(*ExprStmt); ok {
				e.recordSpan(es.Span())
				e.expr(es.Expr)
				e.b.Emit(vm.OpReturn)
				return e.seal()
			}
		}
		e.stmt(stmt)
	}
	e.b.Emit(vm.OpLoadNull)
	e.b.Emit(vm.OpReturn)
	return e.seal()
}

func (e *fnEmitter) seal() *vm.Chunk {
	return &vm.Chunk{
		Code:       e.b.Bytes(),
		Constants:  e.constants,
		Spans:      e.spans,
		SourceName: e.g.sourceName,
		LocalCount: e.info.LocalCount,
	}
}

// recordSpan maps the next emitted instruction to a source span.
func (e *fnEmitter) recordSpan(span Span) {
	entry := vm.SpanEntry{
		Offset: e.b.Len(),
		Span: vm.Span{
			Start: span.Start.Offset,
			End:   span.End.Offset,
			Line:  span.Start.Line,
		},
	}
	if n := len(e.spans); n > 0 && e.spans[n-1].Offset == entry.Offset {
		e.spans[n-1] = entry
		return
	}
	e.spans = append(e.spans, entry)
}

// ---------------------------------------------------------------------------
// Constant pool
// ---------------------------------------------------------------------------

func (e *fnEmitter) addConstant(key string, c vm.Constant) uint16 {
	if key != "" {
		if idx, ok := e.constIndex[key]; ok {
			return idx
		}
	}
	if len(e.constants) > math.MaxUint16 {
		e.g.errorf(Span{}, "constant pool overflow")
		return 0
	}
	idx := uint16(len(e.constants))
	e.constants = append(e.constants, c)
	if key != "" {
		e.constIndex[key] = idx
	}
	return idx
}

func (e *fnEmitter) intConst(v int64) uint16 {
	return e.addConstant(fmt.Sprintf("i:%d", v), vm.Constant{Kind: vm.ConstInt, Int: v})
}

func (e *fnEmitter) floatConst(v float64) uint16 {
	return e.addConstant(fmt.Sprintf("f:%x", math.Float64bits(v)),
		vm.Constant{Kind: vm.ConstFloat, Float: v})
}

func (e *fnEmitter) strConst(v string) uint16 {
	return e.addConstant("s:"+v, vm.Constant{Kind: vm.ConstStr, Str: v})
}

func (e *fnEmitter) protoConst(p *vm.FunctionProto) uint16 {
	return e.addConstant("", vm.Constant{Kind: vm.ConstProto, Proto: p})
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (e *fnEmitter) stmt(s Stmt) {
	if e.g.err != nil {
		return
	}
	e.recordSpan(s.Span())

	switch n := s.(type) {
	case *ExprStmt:
		e.expr(n.Expr)
		e.b.Emit(vm.OpPop)

	case *AssignStmt:
		e.assign(n)

	case *WhileStmt:
		head := e.b.NewLabel()
		end := e.b.NewLabel()
		e.b.Mark(head)
		e.expr(n.Cond)
		e.b.EmitJump(vm.OpJumpIfFalse, end)
		e.pushLoop(end, head)
		e.blockStmts(n.Body)
		e.popLoop()
		e.b.EmitJump(vm.OpJump, head)
		e.b.Mark(end)

	case *ForStmt:
		e.forStmt(n)

	case *ReturnStmt:
		if n.Value != nil {
			e.expr(n.Value)
		} else {
			e.b.Emit(vm.OpLoadNull)
		}
		e.b.Emit(vm.OpReturn)

	case *YieldStmt:
		e.expr(n.Value)
		e.b.Emit(vm.OpYield)

	case *ThrowStmt:
		e.expr(n.Value)
		e.b.Emit(vm.OpThrow)

	case *AssertStmt:
		e.expr(n.Cond)
		e.b.Emit(vm.OpAssert)

	case *BreakStmt:
		loop := e.currentLoop(n.Span(), "break")
		if loop == nil {
			return
		}
		e.releaseWithScopes(loop.withDepth)
		e.b.EmitJump(vm.OpJump, loop.breakL)

	case *ContinueStmt:
		loop := e.currentLoop(n.Span(), "continue")
		if loop == nil {
			return
		}
		e.releaseWithScopes(loop.withDepth)
		e.b.EmitJump(vm.OpJump, loop.continueL)

	case *WithStmt:
		e.expr(n.Resource)
		e.b.Emit(vm.OpWithEnter)
		e.storeIdent(n.Name)
		e.withDepth++
		e.blockStmts(n.Body)
		e.withDepth--
		e.b.Emit(vm.OpWithExit)

	default:
		panic(fmt.Sprintf("codegen: unhandled statement %T", s))
	}
}

// forStmt lowers a for loop onto the iterator protocol. The iterator stays
// on the stack for the loop's duration; the exhaustion jump lands on the
// instruction that pops it.
func (e *fnEmitter) forStmt(n *ForStmt) {
	e.expr(n.Iterable)
	e.b.Emit(vm.OpMakeIterator)

	head := e.b.NewLabel()
	exit := e.b.NewLabel()
	e.b.Mark(head)
	e.b.EmitJump(vm.OpIterNext, exit)

	if len(n.Targets) == 1 {
		e.storeIdent(n.Targets[0])
	} else {
		e.b.EmitByte(vm.OpUnpack, byte(len(n.Targets)))
		for i := len(n.Targets) - 1; i >= 0; i-- {
			e.storeIdent(n.Targets[i])
		}
	}

	e.pushLoop(exit, head)
	e.blockStmts(n.Body)
	e.popLoop()
	e.b.EmitJump(vm.OpJump, head)
	e.b.Mark(exit)
	e.b.Emit(vm.OpPop)
}

func (e *fnEmitter) assign(n *AssignStmt) {
	// Destructuring: evaluate once, unpack positionally, store in reverse.
	if len(n.Targets) > 1 {
		e.expr(n.Value)
		e.b.EmitByte(vm.OpUnpack, byte(len(n.Targets)))
		for i := len(n.Targets) - 1; i >= 0; i-- {
			e.storeIdent(n.Targets[i].(*Ident))
		}
		return
	}

	target := n.Targets[0]
	if n.Op == AssignSet {
		switch t := target.(type) {
		case *Ident:
			e.expr(n.Value)
			e.storeIdent(t)
		case *IndexExpr:
			e.expr(t.Container)
			e.expr(t.Index)
			e.expr(n.Value)
			e.b.Emit(vm.OpSetIndex)
		}
		return
	}

	op := arithOpcode(n.Op)
	switch t := target.(type) {
	case *Ident:
		e.loadIdent(t)
		e.expr(n.Value)
		e.b.Emit(op)
		e.storeIdent(t)
	case *IndexExpr:
		// Container and index are evaluated twice; side effects in them
		// run twice under compound assignment.
		e.expr(t.Container)
		e.expr(t.Index)
		e.expr(t.Container)
		e.expr(t.Index)
		e.b.Emit(vm.OpIndex)
		e.expr(n.Value)
		e.b.Emit(op)
		e.b.Emit(vm.OpSetIndex)
	}
}

func arithOpcode(op AssignOp) vm.Opcode {
	switch op {
	case AssignAdd:
		return vm.OpAdd
	case AssignSub:
		return vm.OpSub
	case AssignMul:
		return vm.OpMul
	case AssignDiv:
		return vm.OpDiv
	default:
		return vm.OpMod
	}
}

func (e *fnEmitter) blockStmts(b *Block) {
	for _, stmt := range b.Stmts {
		e.stmt(stmt)
	}
}

func (e *fnEmitter) pushLoop(breakL, continueL *vm.Label) {
	e.loops = append(e.loops, &loopCtx{
		breakL:    breakL,
		continueL: continueL,
		withDepth: e.withDepth,
	})
}

func (e *fnEmitter) popLoop() {
	e.loops = e.loops[:len(e.loops)-1]
}

func (e *fnEmitter) currentLoop(span Span, keyword string) *loopCtx {
	if len(e.loops) == 0 {
		e.g.errorf(span, "%s outside a loop", keyword)
		return nil
	}
	return e.loops[len(e.loops)-1]
}

// releaseWithScopes closes the with scopes opened since the given depth,
// for jumps that leave them early.
func (e *fnEmitter) releaseWithScopes(toDepth int) {
	for i := e.withDepth; i > toDepth; i-- {
		e.b.Emit(vm.OpWithExit)
	}
}

// ---------------------------------------------------------------------------
// Variable access
// ---------------------------------------------------------------------------

func (e *fnEmitter) loadIdent(id *Ident) {
	ref, ok := e.g.res.Refs[id]
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved identifier %q", id.Name))
	}
	switch ref.Kind {
	case RefLocal:
		e.b.EmitByte(vm.OpLoadLocal, byte(ref.Slot))
	case RefCapture:
		e.b.EmitByte(vm.OpLoadCaptured, byte(ref.Slot))
	default:
		e.b.EmitUint16(vm.OpLoadGlobal, e.strConst(id.Name))
	}
}

func (e *fnEmitter) storeIdent(id *Ident) {
	ref, ok := e.g.res.Refs[id]
	if !ok {
		panic(fmt.Sprintf("codegen: unresolved identifier %q", id.Name))
	}
	switch ref.Kind {
	case RefLocal:
		e.b.EmitByte(vm.OpStoreLocal, byte(ref.Slot))
	case RefCapture:
		e.b.EmitByte(vm.OpStoreCaptured, byte(ref.Slot))
	default:
		e.b.EmitUint16(vm.OpStoreGlobal, e.strConst(id.Name))
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (e *fnEmitter) expr(x Expr) {
	if e.g.err != nil {
		return
	}

	switch n := x.(type) {
	case *NullLiteral:
		e.b.Emit(vm.OpLoadNull)

	case *BoolLiteral:
		if n.Value {
			e.b.Emit(vm.OpLoadTrue)
		} else {
			e.b.Emit(vm.OpLoadFalse)
		}

	case *IntLiteral:
		if n.Value >= math.MinInt8 && n.Value <= math.MaxInt8 {
			e.b.EmitInt8(vm.OpLoadInt8, int8(n.Value))
		} else {
			e.b.EmitUint16(vm.OpLoadConst, e.intConst(n.Value))
		}

	case *FloatLiteral:
		e.b.EmitUint16(vm.OpLoadConst, e.floatConst(n.Value))

	case *StringLiteral:
		e.b.EmitUint16(vm.OpLoadConst, e.strConst(n.Value))

	case *Ident:
		e.loadIdent(n)

	case *ListLiteral:
		e.checkCount(n.Span(), len(n.Elements), "list literal")
		for _, el := range n.Elements {
			e.expr(el)
		}
		e.b.EmitUint16(vm.OpMakeList, uint16(len(n.Elements)))

	case *TupleLiteral:
		e.checkCount(n.Span(), len(n.Elements), "tuple literal")
		for _, el := range n.Elements {
			e.expr(el)
		}
		e.b.EmitUint16(vm.OpMakeTuple, uint16(len(n.Elements)))

	case *MapLiteral:
		e.checkCount(n.Span(), len(n.Entries), "map literal")
		for _, entry := range n.Entries {
			e.expr(entry.Key)
			e.expr(entry.Value)
		}
		e.b.EmitUint16(vm.OpMakeMap, uint16(len(n.Entries)))

	case *RangeExpr:
		e.expr(n.Start)
		e.expr(n.End)
		if n.Inclusive {
			e.b.Emit(vm.OpMakeRangeInclusive)
		} else {
			e.b.Emit(vm.OpMakeRange)
		}

	case *UnaryExpr:
		e.expr(n.Operand)
		if n.Op == UnaryNeg {
			e.b.Emit(vm.OpNeg)
		} else {
			e.b.Emit(vm.OpNot)
		}

	case *BinaryExpr:
		e.binary(n)

	case *CallExpr:
		e.expr(n.Callee)
		if len(n.Args) > math.MaxUint8 {
			e.g.errorf(n.Span(), "too many call arguments (max %d)", math.MaxUint8)
			return
		}
		for _, arg := range n.Args {
			e.expr(arg)
		}
		e.recordSpan(n.Span())
		e.b.EmitByte(vm.OpCall, byte(len(n.Args)))

	case *MethodCallExpr:
		e.expr(n.Recv)
		if len(n.Args) > math.MaxUint8 {
			e.g.errorf(n.Span(), "too many call arguments (max %d)", math.MaxUint8)
			return
		}
		for _, arg := range n.Args {
			e.expr(arg)
		}
		e.recordSpan(n.Span())
		e.b.EmitUint16Byte(vm.OpCallMethod, e.strConst(n.Name), byte(len(n.Args)))

	case *IndexExpr:
		e.expr(n.Container)
		e.expr(n.Index)
		e.recordSpan(n.Span())
		e.b.Emit(vm.OpIndex)

	case *FnExpr:
		e.fnLiteral(n)

	case *IfExpr:
		e.ifExpr(n)

	case *MatchExpr:
		e.matchExpr(n)

	case *Block:
		e.blockValue(n)

	default:
		panic(fmt.Sprintf("codegen: unhandled expression %T", x))
	}
}

func (e *fnEmitter) checkCount(span Span, n int, what string) {
	if n > math.MaxUint16 {
		e.g.errorf(span, "%s too large (max %d elements)", what, math.MaxUint16)
	}
}

func (e *fnEmitter) binary(n *BinaryExpr) {
	switch n.Op {
	case BinAnd:
		end := e.b.NewLabel()
		e.expr(n.Left)
		e.b.EmitJump(vm.OpJumpIfFalseKeep, end)
		e.b.Emit(vm.OpPop)
		e.expr(n.Right)
		e.b.Mark(end)
		return
	case BinOr:
		end := e.b.NewLabel()
		e.expr(n.Left)
		e.b.EmitJump(vm.OpJumpIfTrueKeep, end)
		e.b.Emit(vm.OpPop)
		e.expr(n.Right)
		e.b.Mark(end)
		return
	}

	e.expr(n.Left)
	e.expr(n.Right)
	e.recordSpan(n.Span())
	switch n.Op {
	case BinAdd:
		e.b.Emit(vm.OpAdd)
	case BinSub:
		e.b.Emit(vm.OpSub)
	case BinMul:
		e.b.Emit(vm.OpMul)
	case BinDiv:
		e.b.Emit(vm.OpDiv)
	case BinMod:
		e.b.Emit(vm.OpMod)
	case BinEq:
		e.b.Emit(vm.OpEqual)
	case BinNotEq:
		e.b.Emit(vm.OpNotEqual)
	case BinLess:
		e.b.Emit(vm.OpLess)
	case BinLessEq:
		e.b.Emit(vm.OpLessEq)
	case BinGreater:
		e.b.Emit(vm.OpGreater)
	case BinGreaterEq:
		e.b.Emit(vm.OpGreaterEq)
	}
}

// fnLiteral compiles a nested function into a prototype constant and
// instantiates it.
func (e *fnEmitter) fnLiteral(n *FnExpr) {
	info := e.g.res.Fns[n]
	chunk := e.g.emitBody(n, info, n.Body.Stmts)
	if e.g.err != nil {
		return
	}

	arity := len(n.Params)
	if n.Variadic {
		arity--
	}
	proto := &vm.FunctionProto{
		Name:        n.Name,
		Arity:       arity,
		Variadic:    n.Variadic,
		IsGenerator: n.IsGenerator,
		Captures:    info.Captures,
		Chunk:       chunk,
	}
	e.b.EmitUint16(vm.OpMakeClosure, e.protoConst(proto))
}

// ifExpr compiles if/else as an expression; a missing branch produces null.
func (e *fnEmitter) ifExpr(n *IfExpr) {
	elseL := e.b.NewLabel()
	end := e.b.NewLabel()

	e.expr(n.Cond)
	e.b.EmitJump(vm.OpJumpIfFalse, elseL)
	e.blockValue(n.Then)
	e.b.EmitJump(vm.OpJump, end)
	e.b.Mark(elseL)
	if n.Else != nil {
		e.expr(n.Else)
	} else {
		e.b.Emit(vm.OpLoadNull)
	}
	e.b.Mark(end)
}

// matchExpr compiles arms as a chain of equality tests against the subject.
// The subject stays on the stack until an arm matches. A subject matching
// no arm and no else produces null.
func (e *fnEmitter) matchExpr(n *MatchExpr) {
	end := e.b.NewLabel()
	e.expr(n.Subject)

	matchedAll := false
	for i, arm := range n.Arms {
		if arm.Pattern == nil {
			if i < len(n.Arms)-1 {
				next := n.Arms[i+1]
				span := next.Body.Span()
				if next.Pattern != nil {
					span = next.Pattern.Span()
				}
				e.g.errorf(span, "match arm after else is unreachable")
				return
			}
			e.b.Emit(vm.OpPop)
			e.expr(arm.Body)
			e.b.EmitJump(vm.OpJump, end)
			matchedAll = true
			break
		}
		next := e.b.NewLabel()
		e.b.Emit(vm.OpDup)
		e.expr(arm.Pattern)
		e.b.Emit(vm.OpEqual)
		e.b.EmitJump(vm.OpJumpIfFalse, next)
		e.b.Emit(vm.OpPop)
		e.expr(arm.Body)
		e.b.EmitJump(vm.OpJump, end)
		e.b.Mark(next)
	}
	if !matchedAll {
		e.b.Emit(vm.OpPop)
		e.b.Emit(vm.OpLoadNull)
	}
	e.b.Mark(end)
}

// blockValue compiles a block in value position: the trailing expression
// statement is its value, otherwise null.
func (e *fnEmitter) blockValue(b *Block) {
	for i, stmt := range b.Stmts {
		if i == len(b.Stmts)-1 {
			if es, ok := stmt.(*ExprStmt); ok {
				e.recordSpan(es.Span())
				e.expr(es.Expr)
				return
			}
		}
		e.stmt(stmt)
	}
	e.b.Emit(vm.OpLoadNull)
}
