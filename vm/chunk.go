package vm

import "sort"

// ---------------------------------------------------------------------------
// Chunk: a sealed compilation unit
// ---------------------------------------------------------------------------

// Span is a byte range into the original source text, with the 1-based line
// of its start for readable diagnostics.
type Span struct {
	Start int `cbor:"1,keyasint"`
	End   int `cbor:"2,keyasint"`
	Line  int `cbor:"3,keyasint"`
}

// SpanEntry maps an instruction offset to the source span it was compiled
// from. Entries are sorted by offset; an instruction's span is the last
// entry at or before its offset.
type SpanEntry struct {
	Offset int  `cbor:"1,keyasint"`
	Span   Span `cbor:"2,keyasint"`
}

// ConstKind tags a constant-pool entry.
type ConstKind uint8

// Constant pool entry kinds.
const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstStr
	ConstProto
)

// Constant is one constant-pool entry: a literal number or string, or a
// nested function prototype.
type Constant struct {
	Kind  ConstKind      `cbor:"1,keyasint"`
	Int   int64          `cbor:"2,keyasint,omitempty"`
	Float float64        `cbor:"3,keyasint,omitempty"`
	Str   string         `cbor:"4,keyasint,omitempty"`
	Proto *FunctionProto `cbor:"5,keyasint,omitempty"`
}

// Value converts a constant-pool entry to its runtime value. Prototype
// constants are materialized by MakeClosure instead and return Null here.
func (c Constant) Value() Value {
	switch c.Kind {
	case ConstInt:
		return Int(c.Int)
	case ConstFloat:
		return Float(c.Float)
	case ConstStr:
		return Str(c.Str)
	default:
		return Null
	}
}

// Chunk bundles an instruction stream with its constant pool and debug
// spans. A chunk is immutable once sealed by the compiler; compiling the
// same AST twice yields byte-identical chunks.
type Chunk struct {
	Code       []byte      `cbor:"1,keyasint"`
	Constants  []Constant  `cbor:"2,keyasint"`
	Spans      []SpanEntry `cbor:"3,keyasint"`
	SourceName string      `cbor:"4,keyasint"`
	LocalCount int         `cbor:"5,keyasint"`
}

// SpanFor returns the source span for the instruction at the given offset.
func (c *Chunk) SpanFor(offset int) Span {
	i := sort.Search(len(c.Spans), func(i int) bool {
		return c.Spans[i].Offset > offset
	})
	if i == 0 {
		return Span{}
	}
	return c.Spans[i-1].Span
}
