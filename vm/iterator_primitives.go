package vm

// ---------------------------------------------------------------------------
// Iterator Primitives
// ---------------------------------------------------------------------------

// Iterator methods are registered on KindIterator and double as the method
// fallback for every iterable kind: calling .each on a List adapts the list
// first, so chains like list.keep(f).take(3).to_list() compose lazily.

func init() { registerIteratorPrimitives() }

func registerIteratorPrimitives() {
	// iter - adapt the receiver to an explicit Iterator. On an Iterator this
	// is the identity; on other iterables the method fallback adapts first,
	// so v.iter() works on anything MakeIterator accepts.
	registerKindMethod(KindIterator, "iter", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("iter", args, 0); err != nil {
			return nil, err
		}
		return recv, nil
	})

	// each - map every element through a callable, lazily
	registerKindMethod(KindIterator, "each", func(m *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("each", args, 1); err != nil {
			return nil, err
		}
		fn, err := argCallable("each", args, 0)
		if err != nil {
			return nil, err
		}
		return NewIterator(&eachCore{m: m, src: recv.(*Iterator), fn: fn}), nil
	})

	// keep - filter elements by a predicate, lazily
	registerKindMethod(KindIterator, "keep", func(m *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("keep", args, 1); err != nil {
			return nil, err
		}
		fn, err := argCallable("keep", args, 0)
		if err != nil {
			return nil, err
		}
		return NewIterator(&keepCore{m: m, src: recv.(*Iterator), fn: fn}), nil
	})

	// take - pass through at most n elements
	registerKindMethod(KindIterator, "take", func(_ *VM, recv Value, args []Value) (Value, error) {
		n, err := countArg("take", args)
		if err != nil {
			return nil, err
		}
		return NewIterator(&takeCore{src: recv.(*Iterator), remaining: n}), nil
	})

	// skip - drop the first n elements
	registerKindMethod(KindIterator, "skip", func(_ *VM, recv Value, args []Value) (Value, error) {
		n, err := countArg("skip", args)
		if err != nil {
			return nil, err
		}
		return NewIterator(&skipCore{src: recv.(*Iterator), pending: n}), nil
	})

	// zip - pair elements with a second iterable, ending at the shorter
	registerKindMethod(KindIterator, "zip", func(m *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("zip", args, 1); err != nil {
			return nil, err
		}
		other, rerr := m.MakeIterator(args[0])
		if rerr != nil {
			return nil, rerr
		}
		return NewIterator(&zipCore{a: recv.(*Iterator), b: other}), nil
	})

	// to_list - drain into a List
	registerKindMethod(KindIterator, "to_list", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_list", args, 0); err != nil {
			return nil, err
		}
		list, rerr := collectList(recv.(*Iterator))
		if rerr != nil {
			return nil, rerr
		}
		return list, nil
	})

	// to_tuple - drain into a Tuple
	registerKindMethod(KindIterator, "to_tuple", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_tuple", args, 0); err != nil {
			return nil, err
		}
		tuple, rerr := collectTuple(recv.(*Iterator))
		if rerr != nil {
			return nil, rerr
		}
		return tuple, nil
	})

	// to_map - drain (key, value) pairs into a Map
	registerKindMethod(KindIterator, "to_map", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("to_map", args, 0); err != nil {
			return nil, err
		}
		result, rerr := collectMap(recv.(*Iterator))
		if rerr != nil {
			return nil, rerr
		}
		return result, nil
	})

	// sum - fold with addition, Int(0) identity
	registerKindMethod(KindIterator, "sum", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("sum", args, 0); err != nil {
			return nil, err
		}
		result, rerr := foldArith(recv.(*Iterator), OpAdd, Int(0))
		if rerr != nil {
			return nil, rerr
		}
		return result, nil
	})

	// product - fold with multiplication, Int(1) identity
	registerKindMethod(KindIterator, "product", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("product", args, 0); err != nil {
			return nil, err
		}
		result, rerr := foldArith(recv.(*Iterator), OpMul, Int(1))
		if rerr != nil {
			return nil, rerr
		}
		return result, nil
	})

	// count - drain and report the element count
	registerKindMethod(KindIterator, "count", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("count", args, 0); err != nil {
			return nil, err
		}
		n, rerr := countIterator(recv.(*Iterator))
		if rerr != nil {
			return nil, rerr
		}
		return Int(n), nil
	})

	// consume - drain for side effects
	registerKindMethod(KindIterator, "consume", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("consume", args, 0); err != nil {
			return nil, err
		}
		if rerr := consumeIterator(recv.(*Iterator)); rerr != nil {
			return nil, rerr
		}
		return Null, nil
	})

	// next - advance one step; null when exhausted
	registerKindMethod(KindIterator, "next", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("next", args, 0); err != nil {
			return nil, err
		}
		v, exhausted, rerr := recv.(*Iterator).Next()
		if rerr != nil {
			return nil, rerr
		}
		if exhausted {
			return Null, nil
		}
		return v, nil
	})
}

// countArg validates the single non-negative integer argument of take/skip.
func countArg(name string, args []Value) (int64, error) {
	if err := wantArgs(name, args, 1); err != nil {
		return 0, err
	}
	n, err := argNumber(name, args, 0)
	if err != nil {
		return 0, err
	}
	if n.IsFloat() || n.AsInt() < 0 {
		return 0, runtimeErrorf(ErrArgument,
			"%s expects a non-negative integer, got %s", name, n.String())
	}
	return n.AsInt(), nil
}
