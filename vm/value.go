package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: the Quill dynamic value model
// ---------------------------------------------------------------------------

// Kind identifies one of the closed set of built-in value kinds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindStr
	KindList
	KindTuple
	KindMap
	KindRange
	KindVec2
	KindVec4
	KindFunction
	KindNativeFunction
	KindIterator
	KindObject
	kindCell // internal: boxed captured variable, never surfaces to scripts
)

// kindNames maps kinds to the names used in error messages and display output.
var kindNames = [...]string{
	KindNull:           "Null",
	KindBool:           "Bool",
	KindNumber:         "Number",
	KindStr:            "Str",
	KindList:           "List",
	KindTuple:          "Tuple",
	KindMap:            "Map",
	KindRange:          "Range",
	KindVec2:           "Vec2",
	KindVec4:           "Vec4",
	KindFunction:       "Function",
	KindNativeFunction: "NativeFunction",
	KindIterator:       "Iterator",
	KindObject:         "Object",
	kindCell:           "Cell",
}

// String returns the kind's display name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is the interface implemented by every Quill value. The set of
// implementations is closed: scripts cannot introduce new kinds, and host
// extensions go through Object's capability table instead of new Value types.
//
// Heap-backed kinds (Str, List, Tuple, Map, Function, Object, Iterator) are
// shared by reference: copying a Value copies a handle, and mutation through
// one handle is visible through every other. Lifetime is managed by the host
// garbage collector; see DESIGN.md for the reference-counting note.
type Value interface {
	Kind() Kind
}

// ---------------------------------------------------------------------------
// Null and Bool
// ---------------------------------------------------------------------------

// NullValue is the absence of a value.
type NullValue struct{}

// Null is the canonical null value.
var Null = NullValue{}

// Kind implements Value.
func (NullValue) Kind() Kind { return KindNull }

// Bool is a boolean value.
type Bool bool

// Canonical boolean values.
const (
	True  = Bool(true)
	False = Bool(false)
)

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// IsTruthy reports whether v is considered true in conditionals.
// Only null and false are falsy.
func IsTruthy(v Value) bool {
	switch b := v.(type) {
	case NullValue:
		return false
	case Bool:
		return bool(b)
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// Str
// ---------------------------------------------------------------------------

// Str is an immutable string value. Go strings are already immutable and
// shared, so the handle is the string itself.
type Str string

// Kind implements Value.
func (Str) Kind() Kind { return KindStr }

// ---------------------------------------------------------------------------
// List and Tuple
// ---------------------------------------------------------------------------

// List is an ordered, mutable sequence shared by reference. All holders of a
// *List observe mutations made through any other holder.
type List struct {
	Elements []Value
}

// NewList creates a list from the given elements. The slice is owned by the
// list afterwards.
func NewList(elements []Value) *List {
	return &List{Elements: elements}
}

// Kind implements Value.
func (*List) Kind() Kind { return KindList }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.Elements) }

// Tuple is an ordered, fixed-size, immutable sequence. The backing slice is
// never mutated after construction.
type Tuple []Value

// Kind implements Value.
func (Tuple) Kind() Kind { return KindTuple }

// ---------------------------------------------------------------------------
// Range
// ---------------------------------------------------------------------------

// Range is a numeric interval, half-open by default or inclusive when
// Inclusive is set. Ranges are lazily iterable and never materialized.
type Range struct {
	Start     int64
	End       int64
	Inclusive bool
}

// Kind implements Value.
func (Range) Kind() Kind { return KindRange }

// Count returns the number of values the range produces.
func (r Range) Count() int64 {
	n := r.End - r.Start
	if r.Inclusive {
		n++
	}
	if n < 0 {
		return 0
	}
	return n
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equal reports deep structural equality between two values.
// Numbers compare across int/float representations (1 == 1.0); Vec2/Vec4
// compare lanes exactly with no epsilon. Lists and tuples compare element
// wise, maps compare entry sets, functions and iterators compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av.Equal(bv)
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Vec2:
		bv, ok := b.(Vec2)
		return ok && av == bv
	case Vec4:
		bv, ok := b.(Vec4)
		return ok && av == bv
	case Range:
		bv, ok := b.(Range)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		return sequenceEqual(av.Elements, bv.Elements)
	case Tuple:
		bv, ok := b.(Tuple)
		return ok && sequenceEqual(av, bv)
	case *Map:
		bv, ok := b.(*Map)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		return av.equal(bv)
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *NativeFunction:
		bv, ok := b.(*NativeFunction)
		return ok && av == bv
	case *Iterator:
		bv, ok := b.(*Iterator)
		return ok && av == bv
	case *Object:
		bv, ok := b.(*Object)
		if !ok {
			return false
		}
		if av.Caps.Equal != nil {
			return av.Caps.Equal(av, bv)
		}
		return av == bv
	default:
		return false
	}
}

func sequenceEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

// Compare orders two values, returning -1, 0, or 1. Numbers and strings are
// totally ordered; lists and tuples order lexicographically by element. Other
// kinds are unordered and return an error, except Objects implementing the
// Compare capability.
func Compare(a, b Value) (int, error) {
	switch av := a.(type) {
	case Number:
		if bv, ok := b.(Number); ok {
			return av.Compare(bv), nil
		}
	case Str:
		if bv, ok := b.(Str); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case *List:
		if bv, ok := b.(*List); ok {
			return sequenceCompare(av.Elements, bv.Elements)
		}
	case Tuple:
		if bv, ok := b.(Tuple); ok {
			return sequenceCompare(av, bv)
		}
	case *Object:
		if av.Caps.Compare != nil {
			return av.Caps.Compare(av, b)
		}
	}
	return 0, fmt.Errorf("values of kinds %s and %s are not orderable", a.Kind(), b.Kind())
}

func sequenceCompare(a, b []Value) (int, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c, err := Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	default:
		return 0, nil
	}
}

// ---------------------------------------------------------------------------
// Display formatting
// ---------------------------------------------------------------------------

// Display returns the human-readable rendering of a value, as produced by
// string interpolation and the REPL.
func Display(v Value) string {
	switch val := v.(type) {
	case NullValue:
		return "null"
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Number:
		return val.String()
	case Str:
		return string(val)
	case Vec2:
		return val.String()
	case Vec4:
		return val.String()
	case Range:
		if val.Inclusive {
			return fmt.Sprintf("%d..=%d", val.Start, val.End)
		}
		return fmt.Sprintf("%d..%d", val.Start, val.End)
	case *List:
		return displaySequence(val.Elements, "[", "]")
	case Tuple:
		return displaySequence(val, "(", ")")
	case *Map:
		return val.display()
	case *Function:
		if val.Proto.IsGenerator {
			return fmt.Sprintf("<generator %s>", val.Proto.DisplayName())
		}
		return fmt.Sprintf("<function %s>", val.Proto.DisplayName())
	case *NativeFunction:
		return fmt.Sprintf("<native %s>", val.Name)
	case *Iterator:
		return "<iterator>"
	case *Object:
		if val.Caps.Display != nil {
			return val.Caps.Display(val)
		}
		return fmt.Sprintf("<object %s>", val.TypeName)
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// Debug returns the debug rendering: like Display, except strings are quoted.
func Debug(v Value) string {
	if s, ok := v.(Str); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return Display(v)
}

func displaySequence(elements []Value, open, close string) string {
	var sb strings.Builder
	sb.WriteString(open)
	for i, e := range elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Debug(e))
	}
	sb.WriteString(close)
	return sb.String()
}

// ---------------------------------------------------------------------------
// Size
// ---------------------------------------------------------------------------

// SizeOf returns the element count of a sized value, or -1 for unsized kinds.
func SizeOf(v Value) int {
	switch val := v.(type) {
	case Str:
		return len(val)
	case *List:
		return len(val.Elements)
	case Tuple:
		return len(val)
	case *Map:
		return val.Len()
	case Range:
		return int(val.Count())
	case Vec2:
		return 2
	case Vec4:
		return 4
	default:
		return -1
	}
}
