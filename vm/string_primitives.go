package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func init() { registerStringPrimitives() }

func registerStringPrimitives() {
	// contains - substring test
	registerKindMethod(KindStr, "contains", func(_ *VM, recv Value, args []Value) (Value, error) {
		sub, err := strArg("contains", args)
		if err != nil {
			return nil, err
		}
		return Bool(strings.Contains(string(recv.(Str)), sub)), nil
	})

	// starts_with - prefix test
	registerKindMethod(KindStr, "starts_with", func(_ *VM, recv Value, args []Value) (Value, error) {
		prefix, err := strArg("starts_with", args)
		if err != nil {
			return nil, err
		}
		return Bool(strings.HasPrefix(string(recv.(Str)), prefix)), nil
	})

	// ends_with - suffix test
	registerKindMethod(KindStr, "ends_with", func(_ *VM, recv Value, args []Value) (Value, error) {
		suffix, err := strArg("ends_with", args)
		if err != nil {
			return nil, err
		}
		return Bool(strings.HasSuffix(string(recv.(Str)), suffix)), nil
	})

	// split - list of the substrings around a separator
	registerKindMethod(KindStr, "split", func(_ *VM, recv Value, args []Value) (Value, error) {
		sep, err := strArg("split", args)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(string(recv.(Str)), sep)
		elements := make([]Value, len(parts))
		for i, p := range parts {
			elements[i] = Str(p)
		}
		return NewList(elements), nil
	})

	// trim - strip surrounding whitespace
	registerKindMethod(KindStr, "trim", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("trim", args, 0); err != nil {
			return nil, err
		}
		return Str(strings.TrimSpace(string(recv.(Str)))), nil
	})

	// to_lower / to_upper - case mapping
	registerKindMethod(KindStr, "to_lower", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_lower", args, 0); err != nil {
			return nil, err
		}
		return Str(strings.ToLower(string(recv.(Str)))), nil
	})
	registerKindMethod(KindStr, "to_upper", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_upper", args, 0); err != nil {
			return nil, err
		}
		return Str(strings.ToUpper(string(recv.(Str)))), nil
	})

	// to_number - parse as Number, null when unparseable
	registerKindMethod(KindStr, "to_number", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_number", args, 0); err != nil {
			return nil, err
		}
		s := strings.TrimSpace(string(recv.(Str)))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f), nil
		}
		return Null, nil
	})
}

func strArg(name string, args []Value) (string, error) {
	if err := wantArgs(name, args, 1); err != nil {
		return "", err
	}
	s, ok := args[0].(Str)
	if !ok {
		return "", typeErrorf("%s: argument 1 must be a Str, got %s", name, args[0].Kind())
	}
	return string(s), nil
}
