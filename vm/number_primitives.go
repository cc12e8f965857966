package vm

import "math"

// ---------------------------------------------------------------------------
// Number Primitives
// ---------------------------------------------------------------------------

func init() { registerNumberPrimitives() }

func registerNumberPrimitives() {
	// abs - magnitude, preserving the representation
	registerKindMethod(KindNumber, "abs", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("abs", args, 0); err != nil {
			return nil, err
		}
		n := recv.(Number)
		if n.IsFloat() {
			return Float(math.Abs(n.AsFloat())), nil
		}
		if n.AsInt() < 0 {
			return Int(-n.AsInt()), nil
		}
		return n, nil
	})

	// floor / ceil / round - integer results
	registerKindMethod(KindNumber, "floor", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("floor", args, 0); err != nil {
			return nil, err
		}
		return Int(int64(math.Floor(recv.(Number).AsFloat()))), nil
	})
	registerKindMethod(KindNumber, "ceil", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("ceil", args, 0); err != nil {
			return nil, err
		}
		return Int(int64(math.Ceil(recv.(Number).AsFloat()))), nil
	})
	registerKindMethod(KindNumber, "round", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("round", args, 0); err != nil {
			return nil, err
		}
		return Int(int64(math.Round(recv.(Number).AsFloat()))), nil
	})

	// to_int / to_float - explicit representation changes
	registerKindMethod(KindNumber, "to_int", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_int", args, 0); err != nil {
			return nil, err
		}
		return Int(recv.(Number).AsInt()), nil
	})
	registerKindMethod(KindNumber, "to_float", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_float", args, 0); err != nil {
			return nil, err
		}
		return Float(recv.(Number).AsFloat()), nil
	})

	// to_string - display form
	registerKindMethod(KindNumber, "to_string", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_string", args, 0); err != nil {
			return nil, err
		}
		return Str(recv.(Number).String()), nil
	})
}
