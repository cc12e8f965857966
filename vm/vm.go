package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// VM: the Quill virtual machine
// ---------------------------------------------------------------------------

// VM is one isolated virtual machine instance. A VM owns its global
// namespace and exactly one active call-frame stack; it is single-threaded
// and must not be shared across goroutines. Values must not be shared across
// VM instances running on different host threads.
type VM struct {
	// ID identifies this instance in logs and diagnostics.
	ID string

	// Globals is the value namespace visible to scripts. The host populates
	// it with natives and objects before execution.
	Globals map[string]Value

	// Stdout receives the output of print. Hosts may redirect it.
	Stdout io.Writer

	// MaxFrameDepth bounds the call-frame stack. Recursion past it raises a
	// StackOverflow error instead of exhausting host memory.
	MaxFrameDepth int

	// interrupted is set by Interrupt and observed between dispatch
	// iterations.
	interrupted atomic.Bool
}

// New creates a VM with the core native modules registered.
func New() *VM {
	m := &VM{
		ID:            uuid.NewString(),
		Globals:       make(map[string]Value),
		Stdout:        os.Stdout,
		MaxFrameDepth: DefaultMaxFrameDepth,
	}
	m.registerCorePrimitives()
	return m
}

// RegisterNative binds a host callback into the global namespace.
func (m *VM) RegisterNative(name string, fn NativeGoFunc) {
	m.Globals[name] = NewNative(name, fn)
}

// RegisterValue binds any value into the global namespace.
func (m *VM) RegisterValue(name string, v Value) {
	m.Globals[name] = v
}

// Interrupt asks the VM to stop at the next safe instruction boundary. The
// interrupted run reports ErrCancelled, distinct from script-raised errors.
func (m *VM) Interrupt() {
	m.interrupted.Store(true)
}

// ResetInterrupt clears a pending interrupt, allowing the VM to be reused.
func (m *VM) ResetInterrupt() {
	m.interrupted.Store(false)
}

// GlobalNames returns the names currently bound in the global namespace,
// for feeding the compiler's undeclared-identifier check.
func (m *VM) GlobalNames() []string {
	names := make([]string, 0, len(m.Globals))
	for name := range m.Globals {
		names = append(names, name)
	}
	return names
}

// ---------------------------------------------------------------------------
// Public execution API
// ---------------------------------------------------------------------------

// Run executes a compiled chunk to completion, returning its final value or
// a RuntimeError with a traceback. Each Run uses a fresh frame stack.
func (m *VM) Run(chunk *Chunk) (Value, *RuntimeError) {
	f := newFiber(m)
	f.pushChunkFrame(chunk)
	result, yielded, err := f.run()
	if err != nil {
		return nil, err
	}
	if yielded {
		// A yield outside a generator frame is a compiler bug.
		panic("vm: yield escaped from non-generator frame")
	}
	return result, nil
}

// CallFunction invokes a callable value with the given arguments from host
// code or from a native function. Script functions run on their own fiber;
// generator functions produce an Iterator.
func (m *VM) CallFunction(callee Value, args []Value) (Value, *RuntimeError) {
	switch fn := callee.(type) {
	case *Function:
		if fn.Proto.IsGenerator {
			it, err := newGeneratorIterator(m, fn, args)
			if err != nil {
				return nil, err
			}
			return it, nil
		}
		f := newFiber(m)
		if err := f.pushCallFrame(fn, args); err != nil {
			return nil, err
		}
		result, yielded, err := f.run()
		if err != nil {
			return nil, err
		}
		if yielded {
			panic("vm: yield escaped from non-generator frame")
		}
		return result, nil
	case *NativeFunction:
		result, err := fn.Func(m, args)
		if err != nil {
			return nil, asRuntimeError(err)
		}
		if result == nil {
			result = Null
		}
		return result, nil
	case *Object:
		if fn.Caps.Call != nil {
			result, err := fn.Caps.Call(fn, m, args)
			if err != nil {
				return nil, asRuntimeError(err)
			}
			if result == nil {
				result = Null
			}
			return result, nil
		}
	}
	return nil, typeErrorf("value of kind %s is not callable", callee.Kind())
}

// ---------------------------------------------------------------------------
// Frames and fibers
// ---------------------------------------------------------------------------

// Frame is the execution state of one function activation: the chunk being
// executed, its instruction pointer, and the base of its register window on
// the operand stack. Resources registered by `with` scopes are released when
// the frame exits, on both the normal and the unwinding path.
type Frame struct {
	fn        *Function // nil for top-level chunk frames
	chunk     *Chunk
	ip        int
	bp        int     // base of the local register window
	opIP      int     // offset of the instruction being executed
	resources []Value // with-scope resources, released on exit
}

func (fr *Frame) functionName() string {
	if fr.fn == nil {
		return ""
	}
	return fr.fn.Proto.DisplayName()
}

// fiber is one call-frame stack with its operand stack. The VM's main run
// uses a transient fiber; each suspended generator owns a fiber of its own,
// which is what lets a generator's frame outlive the call that created it.
type fiber struct {
	m      *VM
	stack  []Value
	sp     int
	frames []*Frame
	fp     int

	// steps counts dispatch iterations for the cancellation check.
	steps uint32
}

const interruptCheckInterval = 64

// DefaultMaxFrameDepth is the call-depth limit of a freshly constructed VM.
const DefaultMaxFrameDepth = 1024

func newFiber(m *VM) *fiber {
	return &fiber{
		m:      m,
		stack:  make([]Value, 256),
		frames: make([]*Frame, 0, 16),
		fp:     -1,
	}
}

func (f *fiber) push(v Value) {
	if f.sp >= len(f.stack) {
		grown := make([]Value, len(f.stack)*2)
		copy(grown, f.stack)
		f.stack = grown
	}
	f.stack[f.sp] = v
	f.sp++
}

func (f *fiber) pop() Value {
	if f.sp <= 0 {
		panic("vm: operand stack underflow")
	}
	f.sp--
	return f.stack[f.sp]
}

func (f *fiber) peek() Value {
	if f.sp <= 0 {
		panic("vm: operand stack underflow")
	}
	return f.stack[f.sp-1]
}

func (f *fiber) popN(n int) []Value {
	if f.sp < n {
		panic("vm: operand stack underflow")
	}
	out := make([]Value, n)
	f.sp -= n
	copy(out, f.stack[f.sp:f.sp+n])
	return out
}

// pushChunkFrame starts executing a top-level chunk.
func (f *fiber) pushChunkFrame(chunk *Chunk) {
	frame := &Frame{chunk: chunk, bp: f.sp}
	for i := 0; i < chunk.LocalCount; i++ {
		f.push(Null)
	}
	f.frames = append(f.frames, frame)
	f.fp++
}

// pushCallFrame starts a function activation: a callee slot, then the bound
// arguments, then Null-padded locals form the frame's register window.
func (f *fiber) pushCallFrame(fn *Function, args []Value) *RuntimeError {
	if len(f.frames) >= f.m.MaxFrameDepth {
		return runtimeErrorf(ErrStackOverflow,
			"stack overflow: call depth exceeded %d frames", f.m.MaxFrameDepth)
	}
	proto := fn.Proto
	bound, err := bindArguments(proto, args)
	if err != nil {
		return err
	}
	f.push(fn)
	frame := &Frame{fn: fn, chunk: proto.Chunk, bp: f.sp}
	for _, arg := range bound {
		f.push(arg)
	}
	for i := len(bound); i < proto.Chunk.LocalCount; i++ {
		f.push(Null)
	}
	f.frames = append(f.frames, frame)
	f.fp++
	return nil
}

// bindArguments applies the arity/variadic policy. Missing or extra
// arguments beyond the declared policy fail with an ArgumentError.
func bindArguments(proto *FunctionProto, args []Value) ([]Value, *RuntimeError) {
	if proto.Variadic {
		if len(args) < proto.Arity {
			return nil, runtimeErrorf(ErrArgument,
				"%s expects at least %d arguments, got %d",
				proto.DisplayName(), proto.Arity, len(args))
		}
		rest := make(Tuple, len(args)-proto.Arity)
		copy(rest, args[proto.Arity:])
		bound := make([]Value, 0, proto.Arity+1)
		bound = append(bound, args[:proto.Arity]...)
		bound = append(bound, rest)
		return bound, nil
	}
	if len(args) != proto.Arity {
		return nil, runtimeErrorf(ErrArgument,
			"%s expects %d arguments, got %d",
			proto.DisplayName(), proto.Arity, len(args))
	}
	return args, nil
}

// popFrame discards the current frame's register window and releases any
// resources it still holds.
func (f *fiber) popFrame() {
	frame := f.frames[f.fp]
	f.releaseResources(frame)
	f.sp = frame.bp
	f.frames = f.frames[:f.fp]
	f.fp--
}

// releaseResources releases a frame's with-scope resources in reverse
// acquisition order.
func (f *fiber) releaseResources(frame *Frame) {
	for i := len(frame.resources) - 1; i >= 0; i-- {
		releaseResource(frame.resources[i])
	}
	frame.resources = nil
}

// releaseResource invokes the Release capability of a host object. Other
// kinds have no release behavior.
func releaseResource(v Value) {
	if obj, ok := v.(*Object); ok && obj.Caps.Release != nil {
		// Release errors on the unwind path cannot preempt the original
		// error; they are dropped.
		_ = obj.Caps.Release(obj)
	}
}

// unwind pops every frame, collecting a traceback entry per frame
// (innermost first) and releasing held resources, then attaches the trace
// to the error.
func (f *fiber) unwind(err *RuntimeError) *RuntimeError {
	for f.fp >= 0 {
		frame := f.frames[f.fp]
		err.Trace = append(err.Trace, TraceEntry{
			Function:   frame.functionName(),
			SourceName: frame.chunk.SourceName,
			Span:       frame.chunk.SpanFor(frame.opIP),
		})
		f.popFrame()
	}
	return err
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// run executes frames until the fiber's frame stack empties (returning the
// final value), a generator frame yields (returning the yielded value with
// yielded set), or a runtime error unwinds everything.
func (f *fiber) run() (Value, bool, *RuntimeError) {
	for {
		frame := f.frames[f.fp]
		code := frame.chunk.Code

		if frame.ip >= len(code) {
			// Implicit null return at the end of a body.
			returned := f.finishFrame(Null)
			if f.fp < 0 {
				return returned, false, nil
			}
			f.push(returned)
			continue
		}

		// Polling before the first step means a pending interrupt refuses the
		// run outright, however short the chunk.
		if f.steps%interruptCheckInterval == 0 && f.m.interrupted.Load() {
			return nil, false, f.unwind(runtimeErrorf(ErrCancelled, "execution interrupted by host"))
		}
		f.steps++

		frame.opIP = frame.ip
		op := Opcode(code[frame.ip])
		frame.ip++

		var rerr *RuntimeError

		switch op {
		case OpNop:

		case OpPop:
			f.pop()

		case OpDup:
			f.push(f.peek())

		// --- Constants ---
		case OpLoadNull:
			f.push(Null)

		case OpLoadTrue:
			f.push(True)

		case OpLoadFalse:
			f.push(False)

		case OpLoadInt8:
			f.push(Int(int64(int8(code[frame.ip]))))
			frame.ip++

		case OpLoadConst:
			idx := binary.LittleEndian.Uint16(code[frame.ip:])
			frame.ip += 2
			f.push(f.constant(frame, idx).Value())

		// --- Variables ---
		case OpLoadLocal:
			idx := int(code[frame.ip])
			frame.ip++
			v := f.stack[frame.bp+idx]
			if c, ok := v.(*cell); ok {
				v = c.v
			}
			f.push(v)

		case OpStoreLocal:
			idx := int(code[frame.ip])
			frame.ip++
			v := f.pop()
			if c, ok := f.stack[frame.bp+idx].(*cell); ok {
				c.v = v
			} else {
				f.stack[frame.bp+idx] = v
			}

		case OpNewCell:
			idx := int(code[frame.ip])
			frame.ip++
			f.stack[frame.bp+idx] = newCell(f.stack[frame.bp+idx])

		case OpLoadCaptured:
			idx := int(code[frame.ip])
			frame.ip++
			v := frame.fn.Captures[idx]
			if c, ok := v.(*cell); ok {
				v = c.v
			}
			f.push(v)

		case OpStoreCaptured:
			idx := int(code[frame.ip])
			frame.ip++
			v := f.pop()
			if c, ok := frame.fn.Captures[idx].(*cell); ok {
				c.v = v
			} else {
				frame.fn.Captures[idx] = v
			}

		case OpLoadGlobal:
			idx := binary.LittleEndian.Uint16(code[frame.ip:])
			frame.ip += 2
			name := f.constant(frame, idx).Str
			v, ok := f.m.Globals[name]
			if !ok {
				rerr = typeErrorf("'%s' is not defined", name)
				break
			}
			f.push(v)

		case OpStoreGlobal:
			idx := binary.LittleEndian.Uint16(code[frame.ip:])
			frame.ip += 2
			f.m.Globals[f.constant(frame, idx).Str] = f.pop()

		// --- Arithmetic ---
		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			rhs := f.pop()
			lhs := f.pop()
			var result Value
			result, rerr = binaryArith(op, lhs, rhs)
			if rerr == nil {
				f.push(result)
			}

		case OpNeg:
			switch v := f.pop().(type) {
			case Number:
				f.push(v.Neg())
			case Vec2:
				f.push(Vec2{-v[0], -v[1]})
			case Vec4:
				f.push(Vec4{-v[0], -v[1], -v[2], -v[3]})
			default:
				rerr = typeErrorf("cannot negate %s", v.Kind())
			}

		case OpNot:
			f.push(Bool(!IsTruthy(f.pop())))

		// --- Comparison ---
		case OpEqual:
			rhs := f.pop()
			f.push(Bool(Equal(f.pop(), rhs)))

		case OpNotEqual:
			rhs := f.pop()
			f.push(Bool(!Equal(f.pop(), rhs)))

		case OpLess, OpLessEq, OpGreater, OpGreaterEq:
			rhs := f.pop()
			lhs := f.pop()
			c, err := Compare(lhs, rhs)
			if err != nil {
				rerr = typeErrorf("%s", err.Error())
				break
			}
			switch op {
			case OpLess:
				f.push(Bool(c < 0))
			case OpLessEq:
				f.push(Bool(c <= 0))
			case OpGreater:
				f.push(Bool(c > 0))
			default:
				f.push(Bool(c >= 0))
			}

		// --- Control flow ---
		case OpJump:
			offset := int16(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2 + int(offset)

		case OpJumpIfFalse:
			offset := int16(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			if !IsTruthy(f.pop()) {
				frame.ip += int(offset)
			}

		case OpJumpIfFalseKeep:
			offset := int16(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			if !IsTruthy(f.peek()) {
				frame.ip += int(offset)
			}

		case OpJumpIfTrueKeep:
			offset := int16(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			if IsTruthy(f.peek()) {
				frame.ip += int(offset)
			}

		// --- Calls ---
		case OpCall:
			argc := int(code[frame.ip])
			frame.ip++
			args := f.popN(argc)
			callee := f.pop()
			rerr = f.dispatchCall(callee, args)

		case OpCallMethod:
			nameIdx := binary.LittleEndian.Uint16(code[frame.ip:])
			argc := int(code[frame.ip+2])
			frame.ip += 3
			name := f.constant(frame, nameIdx).Str
			args := f.popN(argc)
			recv := f.pop()
			var result Value
			result, rerr = f.m.callMethod(recv, name, args)
			if rerr == nil {
				f.push(result)
			}

		case OpReturn:
			returned := f.finishFrame(f.pop())
			if f.fp < 0 {
				return returned, false, nil
			}
			f.push(returned)

		case OpYield:
			// The generator driver resumes this fiber with the frame state
			// intact; the yielded value has already been popped.
			return f.pop(), true, nil

		// --- Construction ---
		case OpMakeList:
			n := int(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			f.push(NewList(f.popN(n)))

		case OpMakeTuple:
			n := int(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			f.push(Tuple(f.popN(n)))

		case OpMakeMap:
			n := int(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			entries := f.popN(n * 2)
			result := NewMap()
			for i := 0; i < n; i++ {
				key, value := entries[i*2], entries[i*2+1]
				if !result.Set(key, value) {
					rerr = typeErrorf("%s is not hashable and cannot be a map key", key.Kind())
					break
				}
			}
			if rerr == nil {
				f.push(result)
			}

		case OpMakeRange, OpMakeRangeInclusive:
			end := f.pop()
			start := f.pop()
			startN, ok1 := start.(Number)
			endN, ok2 := end.(Number)
			if !ok1 || !ok2 {
				rerr = typeErrorf("range bounds must be Numbers, got %s and %s",
					start.Kind(), end.Kind())
				break
			}
			f.push(Range{
				Start:     startN.AsInt(),
				End:       endN.AsInt(),
				Inclusive: op == OpMakeRangeInclusive,
			})

		case OpMakeClosure:
			idx := binary.LittleEndian.Uint16(code[frame.ip:])
			frame.ip += 2
			proto := f.constant(frame, idx).Proto
			f.push(f.makeClosure(frame, proto))

		// --- Indexing ---
		case OpIndex:
			index := f.pop()
			container := f.pop()
			var result Value
			result, rerr = f.m.indexValue(container, index)
			if rerr == nil {
				f.push(result)
			}

		case OpSetIndex:
			value := f.pop()
			index := f.pop()
			container := f.pop()
			rerr = f.m.setIndexValue(container, index, value)

		// --- Iteration ---
		case OpMakeIterator:
			iterable := f.pop()
			it, err := f.m.MakeIterator(iterable)
			if err != nil {
				rerr = err
				break
			}
			f.push(it)

		case OpIterNext:
			offset := int16(binary.LittleEndian.Uint16(code[frame.ip:]))
			frame.ip += 2
			it, ok := f.peek().(*Iterator)
			if !ok {
				panic(fmt.Sprintf("vm: ITER_NEXT over non-iterator %s", f.peek().Kind()))
			}
			v, exhausted, err := it.Next()
			if err != nil {
				rerr = err
				break
			}
			if exhausted {
				frame.ip += int(offset)
			} else {
				f.push(v)
			}

		case OpUnpack:
			n := int(code[frame.ip])
			frame.ip++
			source := f.pop()
			values, err := unpackValue(source, n)
			if err != nil {
				rerr = err
				break
			}
			for _, v := range values {
				f.push(v)
			}

		// --- Errors and resources ---
		case OpAssert:
			if !IsTruthy(f.pop()) {
				rerr = runtimeErrorf(ErrAssertion, "assertion failed")
			}

		case OpThrow:
			thrown := f.pop()
			rerr = &RuntimeError{
				ErrKind:   ErrThrown,
				Message:   Display(thrown),
				ThrownVal: thrown,
			}

		case OpWithEnter:
			frame.resources = append(frame.resources, f.peek())

		case OpWithExit:
			last := len(frame.resources) - 1
			releaseResource(frame.resources[last])
			frame.resources = frame.resources[:last]

		default:
			panic(fmt.Sprintf("vm: corrupted bytecode, opcode %02X at %d", byte(op), frame.opIP))
		}

		if rerr != nil {
			return nil, false, f.unwind(rerr)
		}
	}
}

// constant returns a constant-pool entry, panicking on a corrupt index
// (engine bug, not a script error).
func (f *fiber) constant(frame *Frame, idx uint16) Constant {
	if int(idx) >= len(frame.chunk.Constants) {
		panic(fmt.Sprintf("vm: constant index %d out of range (pool size %d)",
			idx, len(frame.chunk.Constants)))
	}
	return frame.chunk.Constants[idx]
}

// finishFrame pops the current frame, drops the callee slot if present, and
// returns the value the caller should receive.
func (f *fiber) finishFrame(result Value) Value {
	frame := f.frames[f.fp]
	f.releaseResources(frame)
	f.sp = frame.bp
	if frame.fn != nil {
		// Drop the callee that sat below the argument window.
		f.sp--
	}
	f.frames = f.frames[:f.fp]
	f.fp--
	return result
}

// dispatchCall invokes a callee from the dispatch loop. Script functions
// push a frame on this fiber; generator functions materialize an Iterator;
// natives and callable objects run to completion and push their result.
func (f *fiber) dispatchCall(callee Value, args []Value) *RuntimeError {
	switch fn := callee.(type) {
	case *Function:
		if fn.Proto.IsGenerator {
			it, err := newGeneratorIterator(f.m, fn, args)
			if err != nil {
				return err
			}
			f.push(it)
			return nil
		}
		return f.pushCallFrame(fn, args)
	case *NativeFunction:
		result, err := fn.Func(f.m, args)
		if err != nil {
			return asRuntimeError(err)
		}
		if result == nil {
			result = Null
		}
		f.push(result)
		return nil
	case *Object:
		if fn.Caps.Call != nil {
			result, err := fn.Caps.Call(fn, f.m, args)
			if err != nil {
				return asRuntimeError(err)
			}
			if result == nil {
				result = Null
			}
			f.push(result)
			return nil
		}
	}
	return typeErrorf("value of kind %s is not callable", callee.Kind())
}

// makeClosure pairs a prototype with freshly resolved upvalues from the
// current frame.
func (f *fiber) makeClosure(frame *Frame, proto *FunctionProto) *Function {
	captures := make([]Value, len(proto.Captures))
	for i, desc := range proto.Captures {
		var source Value
		if desc.FromCapture {
			source = frame.fn.Captures[desc.Slot]
		} else {
			source = f.stack[frame.bp+int(desc.Slot)]
		}
		switch desc.Kind {
		case CaptureCell:
			// The compiler guarantees the slot was boxed at declaration.
			captures[i] = source
		default:
			if c, ok := source.(*cell); ok {
				source = c.v
			}
			captures[i] = source
		}
	}
	return &Function{Proto: proto, Captures: captures}
}

// ---------------------------------------------------------------------------
// Operator semantics
// ---------------------------------------------------------------------------

// binaryArith evaluates an arithmetic opcode over two values with the
// promotion and broadcasting rules of the value model.
func binaryArith(op Opcode, lhs, rhs Value) (Value, *RuntimeError) {
	if _, ok := lhs.(Vec2); ok {
		if v, handled := vec2Arith(vecOpFor(op), lhs, rhs); handled {
			return v, nil
		}
	} else if _, ok := rhs.(Vec2); ok {
		if v, handled := vec2Arith(vecOpFor(op), lhs, rhs); handled {
			return v, nil
		}
	}
	if _, ok := lhs.(Vec4); ok {
		if v, handled := vec4Arith(vecOpFor(op), lhs, rhs); handled {
			return v, nil
		}
	} else if _, ok := rhs.(Vec4); ok {
		if v, handled := vec4Arith(vecOpFor(op), lhs, rhs); handled {
			return v, nil
		}
	}

	switch l := lhs.(type) {
	case Number:
		r, ok := rhs.(Number)
		if !ok {
			break
		}
		switch op {
		case OpAdd:
			return l.Add(r), nil
		case OpSub:
			return l.Sub(r), nil
		case OpMul:
			return l.Mul(r), nil
		case OpDiv:
			result, ok := l.Div(r)
			if !ok {
				return nil, runtimeErrorf(ErrDomain, "division by zero")
			}
			return result, nil
		case OpMod:
			result, ok := l.Mod(r)
			if !ok {
				return nil, runtimeErrorf(ErrDomain, "modulo by zero")
			}
			return result, nil
		}
	case Str:
		if r, ok := rhs.(Str); ok && op == OpAdd {
			return l + r, nil
		}
	case *List:
		if r, ok := rhs.(*List); ok && op == OpAdd {
			joined := make([]Value, 0, len(l.Elements)+len(r.Elements))
			joined = append(joined, l.Elements...)
			joined = append(joined, r.Elements...)
			return NewList(joined), nil
		}
	case Tuple:
		if r, ok := rhs.(Tuple); ok && op == OpAdd {
			joined := make(Tuple, 0, len(l)+len(r))
			joined = append(joined, l...)
			joined = append(joined, r...)
			return joined, nil
		}
	}
	return nil, typeErrorf("unsupported operands for %s: %s and %s",
		arithName(op), lhs.Kind(), rhs.Kind())
}

func vecOpFor(op Opcode) vecOp {
	switch op {
	case OpAdd:
		return vecAdd
	case OpSub:
		return vecSub
	case OpMul:
		return vecMul
	case OpDiv:
		return vecDiv
	default:
		return vecMod
	}
}

func arithName(op Opcode) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "%"
	}
}

// indexValue implements the OpIndex semantics per container kind.
func (m *VM) indexValue(container, index Value) (Value, *RuntimeError) {
	switch c := container.(type) {
	case *List:
		i, err := indexNumber(index, len(c.Elements), "List")
		if err != nil {
			return nil, err
		}
		return c.Elements[i], nil
	case Tuple:
		i, err := indexNumber(index, len(c), "Tuple")
		if err != nil {
			return nil, err
		}
		return c[i], nil
	case Vec2:
		n, ok := index.(Number)
		if !ok {
			return nil, typeErrorf("Vec2 index must be a Number, got %s", index.Kind())
		}
		lane, ok := c.Lane(int(n.AsInt()))
		if !ok {
			return nil, runtimeErrorf(ErrIndexOutOfBounds,
				"index %d out of bounds for Vec2", n.AsInt())
		}
		return lane, nil
	case Vec4:
		n, ok := index.(Number)
		if !ok {
			return nil, typeErrorf("Vec4 index must be a Number, got %s", index.Kind())
		}
		lane, ok := c.Lane(int(n.AsInt()))
		if !ok {
			return nil, runtimeErrorf(ErrIndexOutOfBounds,
				"index %d out of bounds for Vec4", n.AsInt())
		}
		return lane, nil
	case *Map:
		if !KeyHashable(index) {
			return nil, typeErrorf("%s is not hashable and cannot be a map key", index.Kind())
		}
		v, ok := c.Get(index)
		if !ok {
			return nil, runtimeErrorf(ErrKeyNotFound, "key %s not found", Debug(index))
		}
		return v, nil
	case Str:
		runes := []rune(string(c))
		i, err := indexNumber(index, len(runes), "Str")
		if err != nil {
			return nil, err
		}
		return Str(string(runes[i])), nil
	case *Object:
		if c.Caps.Index != nil {
			v, err := c.Caps.Index(c, index)
			if err != nil {
				return nil, asRuntimeError(err)
			}
			return v, nil
		}
	}
	return nil, typeErrorf("values of kind %s are not indexable", container.Kind())
}

func indexNumber(index Value, length int, kind string) (int, *RuntimeError) {
	n, ok := index.(Number)
	if !ok {
		return 0, typeErrorf("%s index must be a Number, got %s", kind, index.Kind())
	}
	i := n.AsInt()
	if i < 0 || i >= int64(length) {
		return 0, runtimeErrorf(ErrIndexOutOfBounds,
			"index %d out of bounds for %s of length %d", i, kind, length)
	}
	return int(i), nil
}

// setIndexValue implements OpSetIndex. Immutable kinds (Tuple, Vec2, Vec4,
// Str) reject mutation.
func (m *VM) setIndexValue(container, index, value Value) *RuntimeError {
	switch c := container.(type) {
	case *List:
		i, err := indexNumber(index, len(c.Elements), "List")
		if err != nil {
			return err
		}
		c.Elements[i] = value
		return nil
	case *Map:
		if !c.Set(index, value) {
			return typeErrorf("%s is not hashable and cannot be a map key", index.Kind())
		}
		return nil
	case *Object:
		if c.Caps.SetIndex != nil {
			if err := c.Caps.SetIndex(c, index, value); err != nil {
				return asRuntimeError(err)
			}
			return nil
		}
	}
	return typeErrorf("values of kind %s do not support index assignment", container.Kind())
}

// unpackValue extracts n positional elements from a destructuring source,
// substituting Null for positions beyond the source's length.
func unpackValue(source Value, n int) ([]Value, *RuntimeError) {
	out := make([]Value, n)
	var length int
	at := func(i int) Value { return Null }

	switch s := source.(type) {
	case *List:
		length = len(s.Elements)
		at = func(i int) Value { return s.Elements[i] }
	case Tuple:
		length = len(s)
		at = func(i int) Value { return s[i] }
	case Vec2:
		length = 2
		at = func(i int) Value { return Float(s[i]) }
	case Vec4:
		length = 4
		at = func(i int) Value { return Float(float64(s[i])) }
	default:
		return nil, typeErrorf("cannot unpack value of kind %s", source.Kind())
	}

	for i := 0; i < n; i++ {
		if i < length {
			out[i] = at(i)
		} else {
			out[i] = Null
		}
	}
	return out, nil
}
