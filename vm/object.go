package vm

// ---------------------------------------------------------------------------
// Object: host-defined values with a capability table
// ---------------------------------------------------------------------------

// Capabilities is the per-object table of optional operation
// implementations. A nil entry means the object does not support that
// operation; the VM reports a type error rather than falling back.
// Extensibility goes through this table instead of new Value kinds, keeping
// the built-in kind set closed.
type Capabilities struct {
	// Equal compares the object against another value.
	Equal func(o *Object, other Value) bool
	// Compare orders the object against another value (-1, 0, 1).
	Compare func(o *Object, other Value) (int, error)
	// Display renders the object for string output.
	Display func(o *Object) string
	// Index retrieves an element by key or position.
	Index func(o *Object, index Value) (Value, error)
	// SetIndex assigns an element by key or position.
	SetIndex func(o *Object, index, value Value) error
	// Iterate returns a fresh iterator core over the object's elements.
	Iterate func(o *Object) (IteratorCore, error)
	// Call invokes the object as a function.
	Call func(o *Object, m *VM, args []Value) (Value, error)
	// Release frees an acquired resource; used by `with` scopes.
	Release func(o *Object) error
	// Method dispatches a named method call on the object.
	Method func(o *Object, m *VM, name string, args []Value) (Value, bool, error)
}

// Object is an opaque host-defined payload exposed to scripts through its
// capability table. Objects are shared by reference.
type Object struct {
	TypeName string
	Payload  any
	Caps     Capabilities
}

// Kind implements Value.
func (*Object) Kind() Kind { return KindObject }

// NewObject creates a host object with the given type name, payload and
// capabilities.
func NewObject(typeName string, payload any, caps Capabilities) *Object {
	return &Object{TypeName: typeName, Payload: payload, Caps: caps}
}
