package compiler

import (
	"github.com/quill-lang/quill/vm"
)

// ---------------------------------------------------------------------------
// Resolver: scope analysis, slot allocation and capture planning
// ---------------------------------------------------------------------------

// RefKind classifies how an identifier reference resolves.
type RefKind int

const (
	// RefLocal is a slot in the current function's register window.
	RefLocal RefKind = iota
	// RefCapture is an index into the current closure's capture list.
	RefCapture
	// RefGlobal is a name in the VM's global namespace.
	RefGlobal
)

// VarRef is the resolution of one identifier occurrence.
type VarRef struct {
	Kind RefKind
	Slot int
}

// FnInfo is the resolver's output for one function body (or the top level):
// how many local slots its frame needs, which enclosing variables it
// captures, and which of its own slots must be boxed into cells.
type FnInfo struct {
	LocalCount int
	Captures   []vm.CaptureDescriptor
	// BoxedSlots are boxed at function entry. Loads and stores see through
	// the cell, so boxing early is equivalent to boxing at the declaration.
	BoxedSlots []uint8
}

// Resolutions maps AST nodes to their scope analysis results.
type Resolutions struct {
	Refs map[*Ident]VarRef
	Fns  map[*FnExpr]*FnInfo
	Main *FnInfo
}

// maxLocals caps the local slots of one frame, bounded by the 8-bit slot
// operand.
const maxLocals = 256

// varInfo tracks one declared variable during resolution. Boxing is decided
// after the declaring function is fully walked: a captured variable whose
// value can still change after a closure grabs it (reassigned in its own
// function, or assigned from inside a closure) must be shared through a
// cell; otherwise the closure snapshots the value.
type varInfo struct {
	name         string
	slot         int
	writes       int
	captured     bool
	closureWrite bool
	boxed        bool
	// pending marks a variable while its own initializer is resolved. A
	// closure capturing it then must share a cell, since the store happens
	// after the closure is built (recursive function definitions).
	pending bool
}

// captureRec links a capture in one function to its source: either a local
// of the immediately enclosing function, or a capture of that function.
type captureRec struct {
	name       string
	fromLocal  *varInfo // set when capturing an enclosing local
	fromIndex  int      // enclosing capture index otherwise
	isFromCapt bool
}

// fnScope is the resolution state of one function being walked.
type fnScope struct {
	fn       *FnExpr  // nil for the top level
	parent   *fnScope // enclosing function, nil for the top level
	blocks   []map[string]*varInfo
	locals   []*varInfo
	captures []captureRec
}

type resolver struct {
	sourceName string
	globals    map[string]bool // nil allows any global name
	replMode   bool            // top-level writes bind globals
	res        *Resolutions
	fns        []*fnScope
	all        []*fnScope // creation order, parents before children
	err        *CompileError
}

// resolveModule analyzes a parsed module. knownGlobals restricts which
// unbound names may compile to global lookups; nil disables the check.
// With replMode, top-level assignments bind VM globals instead of frame
// locals so they outlive the chunk that created them.
func resolveModule(sourceName string, module *Module, knownGlobals []string, replMode bool) (*Resolutions, *CompileError) {
	r := &resolver{
		sourceName: sourceName,
		replMode:   replMode,
		res: &Resolutions{
			Refs: make(map[*Ident]VarRef),
			Fns:  make(map[*FnExpr]*FnInfo),
		},
	}
	if knownGlobals != nil {
		r.globals = make(map[string]bool, len(knownGlobals))
		for _, name := range knownGlobals {
			r.globals[name] = true
		}
	}

	r.pushFn(nil)
	for _, stmt := range module.Stmts {
		r.stmt(stmt)
	}
	r.popFn()
	if r.err != nil {
		return nil, r.err
	}

	// Finalize boxing, then capture kinds. Parents precede children in
	// r.all, so a child's capture of a parent capture can read the parent's
	// finished descriptor.
	infos := make(map[*fnScope]*FnInfo, len(r.all))
	for _, fs := range r.all {
		info := &FnInfo{LocalCount: len(fs.locals)}
		for _, v := range fs.locals {
			v.boxed = v.captured && (v.writes > 1 || v.closureWrite)
			if v.boxed {
				info.BoxedSlots = append(info.BoxedSlots, uint8(v.slot))
			}
		}
		infos[fs] = info
		if fs.fn != nil {
			r.res.Fns[fs.fn] = info
		} else {
			r.res.Main = info
		}
	}
	for _, fs := range r.all {
		info := infos[fs]
		for _, rec := range fs.captures {
			var desc vm.CaptureDescriptor
			if rec.isFromCapt {
				desc = vm.CaptureDescriptor{
					Kind:        infos[fs.parent].Captures[rec.fromIndex].Kind,
					Slot:        uint8(rec.fromIndex),
					FromCapture: true,
				}
			} else {
				kind := vm.CaptureValue
				if rec.fromLocal.boxed {
					kind = vm.CaptureCell
				}
				desc = vm.CaptureDescriptor{Kind: kind, Slot: uint8(rec.fromLocal.slot)}
			}
			info.Captures = append(info.Captures, desc)
		}
	}
	return r.res, nil
}

func (r *resolver) errorf(span Span, format string, args ...any) {
	if r.err == nil {
		r.err = compileErrorf(r.sourceName, span, format, args...)
	}
}

// ---------------------------------------------------------------------------
// Scope management
// ---------------------------------------------------------------------------

func (r *resolver) pushFn(fn *FnExpr) *fnScope {
	fs := &fnScope{fn: fn, blocks: []map[string]*varInfo{{}}}
	if len(r.fns) > 0 {
		fs.parent = r.fns[len(r.fns)-1]
	}
	r.fns = append(r.fns, fs)
	r.all = append(r.all, fs)
	return fs
}

func (r *resolver) popFn() {
	r.fns = r.fns[:len(r.fns)-1]
}

func (r *resolver) current() *fnScope {
	return r.fns[len(r.fns)-1]
}

func (r *resolver) pushBlock() {
	fs := r.current()
	fs.blocks = append(fs.blocks, map[string]*varInfo{})
}

func (r *resolver) popBlock() {
	fs := r.current()
	fs.blocks = fs.blocks[:len(fs.blocks)-1]
}

// declare allocates a fresh slot in the current block scope. Slots are
// bump-allocated per function and never reused within a frame.
func (r *resolver) declare(id *Ident) *varInfo {
	fs := r.current()
	if len(fs.locals) >= maxLocals {
		r.errorf(id.Span(), "too many locals in one function (max %d)", maxLocals)
		return &varInfo{name: id.Name}
	}
	v := &varInfo{name: id.Name, slot: len(fs.locals)}
	fs.locals = append(fs.locals, v)
	fs.blocks[len(fs.blocks)-1][id.Name] = v
	r.res.Refs[id] = VarRef{Kind: RefLocal, Slot: v.slot}
	return v
}

// lookupLocal finds a name in one function's block stack.
func (fs *fnScope) lookupLocal(name string) *varInfo {
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		if v, ok := fs.blocks[i][name]; ok {
			return v
		}
	}
	return nil
}

// capture resolves a name against the enclosing functions of fns[depth],
// recording capture records along the chain. Returns the capture index in
// fns[depth], or -1 when the name is not a variable anywhere.
func (r *resolver) capture(depth int, name string, isWrite bool) int {
	fs := r.fns[depth]
	for i, rec := range fs.captures {
		if rec.name == name {
			if isWrite {
				r.markClosureWrite(depth, i)
			}
			return i
		}
	}
	if depth == 0 {
		return -1
	}
	parent := r.fns[depth-1]
	if v := parent.lookupLocal(name); v != nil {
		v.captured = true
		if isWrite || v.pending {
			v.closureWrite = true
		}
		fs.captures = append(fs.captures, captureRec{name: name, fromLocal: v})
		return len(fs.captures) - 1
	}
	parentIdx := r.capture(depth-1, name, isWrite)
	if parentIdx < 0 {
		return -1
	}
	fs.captures = append(fs.captures, captureRec{name: name, fromIndex: parentIdx, isFromCapt: true})
	return len(fs.captures) - 1
}

// markClosureWrite walks a capture chain down to its source local and marks
// it as written from inside a closure.
func (r *resolver) markClosureWrite(depth, index int) {
	rec := r.fns[depth].captures[index]
	for rec.isFromCapt {
		depth--
		rec = r.fns[depth].captures[rec.fromIndex]
	}
	rec.fromLocal.closureWrite = true
}

// resolveRead resolves an identifier read.
func (r *resolver) resolveRead(id *Ident) {
	fs := r.current()
	if v := fs.lookupLocal(id.Name); v != nil {
		r.res.Refs[id] = VarRef{Kind: RefLocal, Slot: v.slot}
		return
	}
	if idx := r.capture(len(r.fns)-1, id.Name, false); idx >= 0 {
		r.res.Refs[id] = VarRef{Kind: RefCapture, Slot: idx}
		return
	}
	if r.globals != nil && !r.globals[id.Name] {
		r.errorf(id.Span(), "'%s' is not defined", id.Name)
		return
	}
	r.res.Refs[id] = VarRef{Kind: RefGlobal}
}

// resolveWrite resolves an assignment target. A name visible in any
// enclosing function scope assigns that variable; otherwise the assignment
// declares a new local in the current block.
func (r *resolver) resolveWrite(id *Ident, declareIfNew bool) {
	fs := r.current()
	if v := fs.lookupLocal(id.Name); v != nil {
		v.writes++
		r.res.Refs[id] = VarRef{Kind: RefLocal, Slot: v.slot}
		return
	}
	if idx := r.capture(len(r.fns)-1, id.Name, true); idx >= 0 {
		r.res.Refs[id] = VarRef{Kind: RefCapture, Slot: idx}
		return
	}
	if r.replMode && len(r.fns) == 1 {
		if r.globals != nil {
			r.globals[id.Name] = true
		}
		r.res.Refs[id] = VarRef{Kind: RefGlobal}
		return
	}
	if !declareIfNew {
		r.errorf(id.Span(), "'%s' is not defined", id.Name)
		return
	}
	v := r.declare(id)
	v.writes++
}

// assignIdent resolves `name = value`. A fresh name is declared before the
// value is walked so the value may reference it; capture during that window
// sets pending sharing (see varInfo.pending).
func (r *resolver) assignIdent(id *Ident, value Expr) {
	fs := r.current()
	if v := fs.lookupLocal(id.Name); v != nil {
		r.expr(value)
		v.writes++
		r.res.Refs[id] = VarRef{Kind: RefLocal, Slot: v.slot}
		return
	}
	if idx := r.capture(len(r.fns)-1, id.Name, true); idx >= 0 {
		r.expr(value)
		r.res.Refs[id] = VarRef{Kind: RefCapture, Slot: idx}
		return
	}
	if r.replMode && len(r.fns) == 1 {
		r.expr(value)
		if r.globals != nil {
			r.globals[id.Name] = true
		}
		r.res.Refs[id] = VarRef{Kind: RefGlobal}
		return
	}
	v := r.declare(id)
	v.writes++
	v.pending = true
	r.expr(value)
	v.pending = false
}

// ---------------------------------------------------------------------------
// AST walk
// ---------------------------------------------------------------------------

func (r *resolver) stmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		r.expr(n.Expr)
	case *AssignStmt:
		if n.Op == AssignSet && len(n.Targets) == 1 {
			if t, ok := n.Targets[0].(*Ident); ok {
				r.assignIdent(t, n.Value)
				return
			}
		}
		r.expr(n.Value)
		for _, target := range n.Targets {
			switch t := target.(type) {
			case *Ident:
				r.resolveWrite(t, n.Op == AssignSet)
				if n.Op != AssignSet {
					// Compound assignment also reads the target; the write
					// resolution above covers the slot for both.
					continue
				}
			case *IndexExpr:
				r.expr(t.Container)
				r.expr(t.Index)
			}
		}
	case *WhileStmt:
		r.expr(n.Cond)
		r.block(n.Body)
	case *ForStmt:
		r.expr(n.Iterable)
		r.pushBlock()
		for _, target := range n.Targets {
			v := r.declare(target)
			v.writes++
		}
		for _, stmt := range n.Body.Stmts {
			r.stmt(stmt)
		}
		r.popBlock()
	case *ReturnStmt:
		if n.Value != nil {
			r.expr(n.Value)
		}
	case *YieldStmt:
		r.expr(n.Value)
	case *ThrowStmt:
		r.expr(n.Value)
	case *AssertStmt:
		r.expr(n.Cond)
	case *WithStmt:
		r.expr(n.Resource)
		r.pushBlock()
		v := r.declare(n.Name)
		v.writes++
		for _, stmt := range n.Body.Stmts {
			r.stmt(stmt)
		}
		r.popBlock()
	case *BreakStmt, *ContinueStmt:
	}
}

func (r *resolver) block(b *Block) {
	r.pushBlock()
	for _, stmt := range b.Stmts {
		r.stmt(stmt)
	}
	r.popBlock()
}

func (r *resolver) expr(e Expr) {
	switch n := e.(type) {
	case *NullLiteral, *BoolLiteral, *IntLiteral, *FloatLiteral, *StringLiteral:
	case *Ident:
		r.resolveRead(n)
	case *ListLiteral:
		for _, el := range n.Elements {
			r.expr(el)
		}
	case *TupleLiteral:
		for _, el := range n.Elements {
			r.expr(el)
		}
	case *MapLiteral:
		for _, entry := range n.Entries {
			r.expr(entry.Key)
			r.expr(entry.Value)
		}
	case *RangeExpr:
		r.expr(n.Start)
		r.expr(n.End)
	case *UnaryExpr:
		r.expr(n.Operand)
	case *BinaryExpr:
		r.expr(n.Left)
		r.expr(n.Right)
	case *CallExpr:
		r.expr(n.Callee)
		for _, arg := range n.Args {
			r.expr(arg)
		}
	case *MethodCallExpr:
		r.expr(n.Recv)
		for _, arg := range n.Args {
			r.expr(arg)
		}
	case *IndexExpr:
		r.expr(n.Container)
		r.expr(n.Index)
	case *FnExpr:
		r.pushFn(n)
		for _, param := range n.Params {
			// Argument binding counts as the first write, so a body reassign
			// of a captured parameter forces cell sharing.
			v := r.declare(param)
			v.writes++
		}
		for _, stmt := range n.Body.Stmts {
			r.stmt(stmt)
		}
		r.popFn()
	case *IfExpr:
		r.expr(n.Cond)
		r.block(n.Then)
		if n.Else != nil {
			r.expr(n.Else)
		}
	case *MatchExpr:
		r.expr(n.Subject)
		for _, arm := range n.Arms {
			if arm.Pattern != nil {
				r.expr(arm.Pattern)
			}
			r.expr(arm.Body)
		}
	case *Block:
		r.block(n)
	}
}
