package vm

// ---------------------------------------------------------------------------
// Function prototypes, closures and native functions
// ---------------------------------------------------------------------------

// CaptureKind distinguishes how an upvalue is captured by a closure.
type CaptureKind uint8

const (
	// CaptureValue copies the variable's value at closure creation time.
	CaptureValue CaptureKind = iota
	// CaptureCell shares a mutable cell with the enclosing scope, so writes
	// on either side stay visible to the other.
	CaptureCell
)

// CaptureDescriptor tells the MakeClosure instruction where a captured
// variable lives in the enclosing frame and how to capture it.
type CaptureDescriptor struct {
	Kind CaptureKind `cbor:"1,keyasint"`
	// Slot is the enclosing frame's local slot when FromCapture is false,
	// otherwise an index into the enclosing closure's capture list.
	Slot        uint8 `cbor:"2,keyasint"`
	FromCapture bool  `cbor:"3,keyasint"`
}

// FunctionProto is the compiled prototype of one function body: its own
// chunk, arity metadata and upvalue capture descriptors. Prototypes live in
// the enclosing chunk's constant pool and are immutable once compiled.
type FunctionProto struct {
	Name        string              `cbor:"1,keyasint"`
	Arity       int                 `cbor:"2,keyasint"`
	Variadic    bool                `cbor:"3,keyasint"`
	IsGenerator bool                `cbor:"4,keyasint"`
	Captures    []CaptureDescriptor `cbor:"5,keyasint"`
	Chunk       *Chunk              `cbor:"6,keyasint"`
}

// DisplayName returns the prototype's name, or "anonymous" when unnamed.
func (p *FunctionProto) DisplayName() string {
	if p.Name == "" {
		return "anonymous"
	}
	return p.Name
}

// Function pairs a prototype with its resolved captures. Functions are
// shared by reference.
type Function struct {
	Proto    *FunctionProto
	Captures []Value // plain values or cells, per the capture descriptors
}

// Kind implements Value.
func (*Function) Kind() Kind { return KindFunction }

// NativeGoFunc is the host callback signature: it receives the VM (for
// re-entrant calls and iterator construction) and the argument values, and
// returns a result or an error. Returned errors become RuntimeErrors at the
// call site.
type NativeGoFunc func(m *VM, args []Value) (Value, error)

// NativeFunction is an opaque host callback value. Native functions cannot
// participate in reference cycles.
type NativeFunction struct {
	Name string
	Func NativeGoFunc
}

// Kind implements Value.
func (*NativeFunction) Kind() Kind { return KindNativeFunction }

// NewNative wraps a Go function as a callable value.
func NewNative(name string, fn NativeGoFunc) *NativeFunction {
	return &NativeFunction{Name: name, Func: fn}
}

// ---------------------------------------------------------------------------
// Cells: shared mutable boxes for by-reference captures
// ---------------------------------------------------------------------------

// cell boxes a single variable so the enclosing scope and any closures that
// captured it observe each other's writes. Cells never escape to scripts:
// load/store instructions unwrap them.
type cell struct {
	v Value
}

// Kind implements Value.
func (*cell) Kind() Kind { return kindCell }

func newCell(v Value) *cell { return &cell{v: v} }
