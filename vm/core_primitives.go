package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Core Primitives
// ---------------------------------------------------------------------------

// methodFunc implements one named method for a value kind.
type methodFunc func(m *VM, recv Value, args []Value) (Value, error)

// kindMethods is the per-kind method table consulted by CALL_METHOD.
// Iterator methods double as the fallback for every iterable kind.
var kindMethods = map[Kind]map[string]methodFunc{}

func registerKindMethod(k Kind, name string, fn methodFunc) {
	table, ok := kindMethods[k]
	if !ok {
		table = make(map[string]methodFunc)
		kindMethods[k] = table
	}
	table[name] = fn
}

// callMethod resolves a method call on a receiver. Resolution order:
// the receiver kind's own table, map entries holding callables, the host
// object's Method capability, and finally the iterator table for any
// iterable receiver (adapting it with MakeIterator).
func (m *VM) callMethod(recv Value, name string, args []Value) (Value, *RuntimeError) {
	if table, ok := kindMethods[recv.Kind()]; ok {
		if fn, ok := table[name]; ok {
			result, err := fn(m, recv, args)
			if err != nil {
				return nil, asRuntimeError(err)
			}
			if result == nil {
				result = Null
			}
			return result, nil
		}
	}
	if mp, ok := recv.(*Map); ok {
		if entry, found := mp.Get(Str(name)); found {
			if isCallable(entry) {
				return m.CallFunction(entry, args)
			}
			// Bare field access on a map entry that holds a plain value.
			if len(args) == 0 {
				return entry, nil
			}
			return nil, typeErrorf("map entry '%s' is not callable", name)
		}
	}
	if obj, ok := recv.(*Object); ok && obj.Caps.Method != nil {
		result, handled, err := obj.Caps.Method(obj, m, name, args)
		if err != nil {
			return nil, asRuntimeError(err)
		}
		if handled {
			if result == nil {
				result = Null
			}
			return result, nil
		}
	}
	if fn, ok := kindMethods[KindIterator][name]; ok && isIterable(recv) {
		it, err := m.MakeIterator(recv)
		if err != nil {
			return nil, err
		}
		result, callErr := fn(m, it, args)
		if callErr != nil {
			return nil, asRuntimeError(callErr)
		}
		if result == nil {
			result = Null
		}
		return result, nil
	}
	return nil, typeErrorf("no method '%s' for %s", name, recv.Kind())
}

func isIterable(v Value) bool {
	switch val := v.(type) {
	case Range, *List, Tuple, *Map, Str, Vec2, Vec4, *Iterator:
		return true
	case *Object:
		return val.Caps.Iterate != nil
	default:
		return false
	}
}

func isCallable(v Value) bool {
	switch val := v.(type) {
	case *Function, *NativeFunction:
		return true
	case *Object:
		return val.Caps.Call != nil
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Argument validation helpers
// ---------------------------------------------------------------------------

func wantArgs(name string, args []Value, n int) error {
	if len(args) != n {
		return runtimeErrorf(ErrArgument, "%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func argNumber(name string, args []Value, i int) (Number, error) {
	n, ok := args[i].(Number)
	if !ok {
		return Number{}, typeErrorf("%s: argument %d must be a Number, got %s",
			name, i+1, args[i].Kind())
	}
	return n, nil
}

func argCallable(name string, args []Value, i int) (Value, error) {
	if !isCallable(args[i]) {
		return nil, typeErrorf("%s: argument %d must be callable, got %s",
			name, i+1, args[i].Kind())
	}
	return args[i], nil
}

// ---------------------------------------------------------------------------
// Global natives
// ---------------------------------------------------------------------------

// registerCorePrimitives installs the global native functions every VM
// starts with.
func (m *VM) registerCorePrimitives() {
	// print - display arguments space-separated with a trailing newline
	m.RegisterNative("print", func(m *VM, args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Display(a)
		}
		fmt.Fprintln(m.Stdout, strings.Join(parts, " "))
		return Null, nil
	})

	// size - element count of a sized value
	m.RegisterNative("size", func(_ *VM, args []Value) (Value, error) {
		if err := wantArgs("size", args, 1); err != nil {
			return nil, err
		}
		n := SizeOf(args[0])
		if n < 0 {
			return nil, typeErrorf("size: %s has no size", args[0].Kind())
		}
		return Int(int64(n)), nil
	})

	// type_of - kind name of a value
	m.RegisterNative("type_of", func(_ *VM, args []Value) (Value, error) {
		if err := wantArgs("type_of", args, 1); err != nil {
			return nil, err
		}
		if obj, ok := args[0].(*Object); ok {
			return Str(obj.TypeName), nil
		}
		return Str(args[0].Kind().String()), nil
	})

	// make_num2 - build a Vec2 with scalar broadcast
	m.RegisterNative("make_num2", func(_ *VM, args []Value) (Value, error) {
		return makeVecNative("make_num2", args, 2)
	})

	// make_num4 - build a Vec4 with scalar broadcast
	m.RegisterNative("make_num4", func(_ *VM, args []Value) (Value, error) {
		return makeVecNative("make_num4", args, 4)
	})

	// iterator - adapt any iterable to an explicit Iterator
	m.RegisterNative("iterator", func(m *VM, args []Value) (Value, error) {
		if err := wantArgs("iterator", args, 1); err != nil {
			return nil, err
		}
		it, rerr := m.MakeIterator(args[0])
		if rerr != nil {
			return nil, rerr
		}
		return it, nil
	})

	// copy - shallow copy of a mutable container
	m.RegisterNative("copy", func(_ *VM, args []Value) (Value, error) {
		if err := wantArgs("copy", args, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case *List:
			elements := make([]Value, len(v.Elements))
			copy(elements, v.Elements)
			return NewList(elements), nil
		case *Map:
			return v.Copy(), nil
		default:
			return args[0], nil
		}
	})

	// debug - developer representation of a value
	m.RegisterNative("debug", func(_ *VM, args []Value) (Value, error) {
		if err := wantArgs("debug", args, 1); err != nil {
			return nil, err
		}
		return Str(Debug(args[0])), nil
	})
}

// makeVecNative applies the vector construction rules: no arguments is all
// zeroes, a single scalar fills every lane, otherwise each argument fills
// one lane and missing lanes stay zero.
func makeVecNative(name string, args []Value, lanes int) (Value, error) {
	if len(args) > lanes {
		return nil, runtimeErrorf(ErrArgument,
			"%s expects at most %d arguments, got %d", name, lanes, len(args))
	}
	scalars := make([]Number, len(args))
	for i := range args {
		n, err := argNumber(name, args, i)
		if err != nil {
			return nil, err
		}
		scalars[i] = n
	}
	if lanes == 2 {
		return MakeVec2(scalars), nil
	}
	return MakeVec4(scalars), nil
}
