package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies one bytecode instruction.
type Opcode byte

// Stack operations
const (
	OpNop Opcode = 0x00 // no operation
	OpPop Opcode = 0x01 // discard top of stack
	OpDup Opcode = 0x02 // duplicate top of stack
)

// Constants
const (
	OpLoadNull  Opcode = 0x10 // push null
	OpLoadTrue  Opcode = 0x11 // push true
	OpLoadFalse Opcode = 0x12 // push false
	OpLoadInt8  Opcode = 0x13 // push 8-bit signed integer
	OpLoadConst Opcode = 0x14 // push constant (16-bit pool index)
)

// Variables
const (
	OpLoadLocal     Opcode = 0x20 // push local slot (8-bit index)
	OpStoreLocal    Opcode = 0x21 // pop into local slot (8-bit index)
	OpLoadCaptured  Opcode = 0x22 // push captured variable (8-bit index)
	OpStoreCaptured Opcode = 0x23 // pop into captured variable (8-bit index)
	OpLoadGlobal    Opcode = 0x24 // push global (16-bit name constant)
	OpStoreGlobal   Opcode = 0x25 // pop into global (16-bit name constant)
	OpNewCell       Opcode = 0x26 // box local slot into a shared cell (8-bit index)
)

// Arithmetic and logic
const (
	OpAdd Opcode = 0x30 // pop b, a; push a + b
	OpSub Opcode = 0x31 // pop b, a; push a - b
	OpMul Opcode = 0x32 // pop b, a; push a * b
	OpDiv Opcode = 0x33 // pop b, a; push a / b
	OpMod Opcode = 0x34 // pop b, a; push a % b
	OpNeg Opcode = 0x35 // pop a; push -a
	OpNot Opcode = 0x36 // pop a; push logical negation
)

// Comparison
const (
	OpLess      Opcode = 0x40 // pop b, a; push a < b
	OpLessEq    Opcode = 0x41 // pop b, a; push a <= b
	OpGreater   Opcode = 0x42 // pop b, a; push a > b
	OpGreaterEq Opcode = 0x43 // pop b, a; push a >= b
	OpEqual     Opcode = 0x44 // pop b, a; push a == b
	OpNotEqual  Opcode = 0x45 // pop b, a; push a != b
)

// Control flow (16-bit signed offsets, relative to the next instruction)
const (
	OpJump            Opcode = 0x50 // unconditional jump
	OpJumpIfFalse     Opcode = 0x51 // pop, jump if falsy
	OpJumpIfFalseKeep Opcode = 0x52 // peek, jump if falsy (short-circuit and)
	OpJumpIfTrueKeep  Opcode = 0x53 // peek, jump if truthy (short-circuit or)
)

// Calls and returns
const (
	OpCall       Opcode = 0x60 // call with 8-bit argc; callee below args
	OpCallMethod Opcode = 0x61 // method call (16-bit name constant, 8-bit argc)
	OpReturn     Opcode = 0x62 // pop and return top of stack
	OpYield      Opcode = 0x63 // suspend generator, producing top of stack
)

// Value construction
const (
	OpMakeList           Opcode = 0x70 // collect 16-bit count into a list
	OpMakeTuple          Opcode = 0x71 // collect 16-bit count into a tuple
	OpMakeMap            Opcode = 0x72 // collect 16-bit entry count into a map
	OpMakeRange          Opcode = 0x73 // pop end, start; push half-open range
	OpMakeRangeInclusive Opcode = 0x74 // pop end, start; push inclusive range
	OpMakeClosure        Opcode = 0x75 // instantiate prototype (16-bit pool index)
)

// Indexing
const (
	OpIndex    Opcode = 0x80 // pop index, container; push element
	OpSetIndex Opcode = 0x81 // pop value, index, container; assign
)

// Iteration and destructuring
const (
	OpMakeIterator Opcode = 0x90 // pop iterable; push iterator
	OpIterNext     Opcode = 0x91 // advance iterator at top; jump (16-bit) on exhaustion
	OpUnpack       Opcode = 0x92 // pop value; push 8-bit count extracted elements
)

// Errors and resources
const (
	OpAssert    Opcode = 0xA0 // pop; error if falsy
	OpThrow     Opcode = 0xA1 // pop; raise as runtime error
	OpWithEnter Opcode = 0xA2 // register top of stack for release on scope exit
	OpWithExit  Opcode = 0xA3 // release the most recent registered resource
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds static metadata about an opcode.
type OpcodeInfo struct {
	Name         string
	OperandBytes int
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0},
	OpPop: {"POP", 0},
	OpDup: {"DUP", 0},

	OpLoadNull:  {"LOAD_NULL", 0},
	OpLoadTrue:  {"LOAD_TRUE", 0},
	OpLoadFalse: {"LOAD_FALSE", 0},
	OpLoadInt8:  {"LOAD_INT8", 1},
	OpLoadConst: {"LOAD_CONST", 2},

	OpLoadLocal:     {"LOAD_LOCAL", 1},
	OpStoreLocal:    {"STORE_LOCAL", 1},
	OpLoadCaptured:  {"LOAD_CAPTURED", 1},
	OpStoreCaptured: {"STORE_CAPTURED", 1},
	OpLoadGlobal:    {"LOAD_GLOBAL", 2},
	OpStoreGlobal:   {"STORE_GLOBAL", 2},
	OpNewCell:       {"NEW_CELL", 1},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0},
	OpMod: {"MOD", 0},
	OpNeg: {"NEG", 0},
	OpNot: {"NOT", 0},

	OpLess:      {"LESS", 0},
	OpLessEq:    {"LESS_EQ", 0},
	OpGreater:   {"GREATER", 0},
	OpGreaterEq: {"GREATER_EQ", 0},
	OpEqual:     {"EQUAL", 0},
	OpNotEqual:  {"NOT_EQUAL", 0},

	OpJump:            {"JUMP", 2},
	OpJumpIfFalse:     {"JUMP_IF_FALSE", 2},
	OpJumpIfFalseKeep: {"JUMP_IF_FALSE_KEEP", 2},
	OpJumpIfTrueKeep:  {"JUMP_IF_TRUE_KEEP", 2},

	OpCall:       {"CALL", 1},
	OpCallMethod: {"CALL_METHOD", 3},
	OpReturn:     {"RETURN", 0},
	OpYield:      {"YIELD", 0},

	OpMakeList:           {"MAKE_LIST", 2},
	OpMakeTuple:          {"MAKE_TUPLE", 2},
	OpMakeMap:            {"MAKE_MAP", 2},
	OpMakeRange:          {"MAKE_RANGE", 0},
	OpMakeRangeInclusive: {"MAKE_RANGE_INCLUSIVE", 0},
	OpMakeClosure:        {"MAKE_CLOSURE", 2},

	OpIndex:    {"INDEX", 0},
	OpSetIndex: {"SET_INDEX", 0},

	OpMakeIterator: {"MAKE_ITERATOR", 0},
	OpIterNext:     {"ITER_NEXT", 2},
	OpUnpack:       {"UNPACK", 1},

	OpAssert:    {"ASSERT", 0},
	OpThrow:     {"THROW", 0},
	OpWithEnter: {"WITH_ENTER", 0},
	OpWithExit:  {"WITH_EXIT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// String implements Stringer.
func (op Opcode) String() string { return op.Info().Name }

// ---------------------------------------------------------------------------
// BytecodeBuilder: instruction emission with forward-patched labels
// ---------------------------------------------------------------------------

// BytecodeBuilder accumulates an instruction stream. Jump targets unknown at
// emission time are reserved as placeholder operands and patched once the
// label is marked, before the stream is sealed into a Chunk.
type BytecodeBuilder struct {
	bytes []byte
}

// NewBytecodeBuilder creates an empty builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{bytes: make([]byte, 0, 64)}
}

// Bytes returns the instruction stream built so far.
func (b *BytecodeBuilder) Bytes() []byte { return b.bytes }

// Len returns the current stream length.
func (b *BytecodeBuilder) Len() int { return len(b.bytes) }

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitByte appends an opcode with one byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitInt8 appends an opcode with a signed 8-bit operand.
func (b *BytecodeBuilder) EmitInt8(op Opcode, operand int8) {
	b.bytes = append(b.bytes, byte(op), byte(operand))
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitUint16Byte appends an opcode with a 16-bit then an 8-bit operand.
func (b *BytecodeBuilder) EmitUint16Byte(op Opcode, first uint16, second byte) {
	b.bytes = append(b.bytes, byte(op), byte(first), byte(first>>8), second)
}

// Label is a forward reference into the instruction stream.
type Label struct {
	resolved bool
	position int   // target offset once resolved
	refs     []int // operand positions awaiting the target
}

// NewLabel creates an unresolved label.
func (b *BytecodeBuilder) NewLabel() *Label {
	return &Label{refs: make([]int, 0, 2)}
}

// Mark resolves a label to the current position, patching every pending
// forward reference.
func (b *BytecodeBuilder) Mark(label *Label) {
	if label.resolved {
		panic("bytecode: label already resolved")
	}
	label.resolved = true
	label.position = len(b.bytes)

	for _, ref := range label.refs {
		offset := label.position - (ref + 2)
		b.bytes[ref] = byte(offset)
		b.bytes[ref+1] = byte(offset >> 8)
	}
	label.refs = nil
}

// EmitJump emits a jump-family instruction targeting a label. Backward jumps
// are encoded immediately; forward jumps are recorded for patching.
func (b *BytecodeBuilder) EmitJump(op Opcode, label *Label) {
	b.bytes = append(b.bytes, byte(op))
	if label.resolved {
		offset := label.position - (len(b.bytes) + 2)
		b.bytes = append(b.bytes, byte(offset), byte(offset>>8))
	} else {
		label.refs = append(label.refs, len(b.bytes))
		b.bytes = append(b.bytes, 0, 0)
	}
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders the instruction stream of a chunk for debugging.
func Disassemble(c *Chunk) string {
	var sb strings.Builder
	code := c.Code
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		info := op.Info()
		fmt.Fprintf(&sb, "%04d  %s", pos, info.Name)
		operand := pos + 1
		switch op {
		case OpLoadInt8:
			fmt.Fprintf(&sb, " %d", int8(code[operand]))
		case OpLoadLocal, OpStoreLocal, OpLoadCaptured, OpStoreCaptured,
			OpNewCell, OpCall, OpUnpack:
			fmt.Fprintf(&sb, " %d", code[operand])
		case OpLoadConst, OpLoadGlobal, OpStoreGlobal, OpMakeList, OpMakeTuple,
			OpMakeMap, OpMakeClosure:
			fmt.Fprintf(&sb, " %d", binary.LittleEndian.Uint16(code[operand:]))
		case OpJump, OpJumpIfFalse, OpJumpIfFalseKeep, OpJumpIfTrueKeep, OpIterNext:
			offset := int16(binary.LittleEndian.Uint16(code[operand:]))
			fmt.Fprintf(&sb, " %d (-> %04d)", offset, operand+2+int(offset))
		case OpCallMethod:
			name := binary.LittleEndian.Uint16(code[operand:])
			fmt.Fprintf(&sb, " name=%d argc=%d", name, code[operand+2])
		}
		sb.WriteByte('\n')
		pos += 1 + info.OperandBytes
	}
	return sb.String()
}
