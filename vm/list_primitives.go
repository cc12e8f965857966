package vm

import "sort"

// ---------------------------------------------------------------------------
// List Primitives
// ---------------------------------------------------------------------------

func init() { registerListPrimitives() }

func registerListPrimitives() {
	// push - append an element, returning the list for chaining
	registerKindMethod(KindList, "push", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("push", args, 1); err != nil {
			return nil, err
		}
		list := recv.(*List)
		list.Elements = append(list.Elements, args[0])
		return list, nil
	})

	// pop - remove and return the last element; null when empty
	registerKindMethod(KindList, "pop", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("pop", args, 0); err != nil {
			return nil, err
		}
		list := recv.(*List)
		if len(list.Elements) == 0 {
			return Null, nil
		}
		last := list.Elements[len(list.Elements)-1]
		list.Elements = list.Elements[:len(list.Elements)-1]
		return last, nil
	})

	// insert - insert an element at an index; inserting at size appends
	registerKindMethod(KindList, "insert", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("insert", args, 2); err != nil {
			return nil, err
		}
		list := recv.(*List)
		n, err := argNumber("insert", args, 0)
		if err != nil {
			return nil, err
		}
		i := n.AsInt()
		if i < 0 || i > int64(len(list.Elements)) {
			return nil, runtimeErrorf(ErrIndexOutOfBounds,
				"insert index %d out of bounds for List of length %d", i, len(list.Elements))
		}
		list.Elements = append(list.Elements, Null)
		copy(list.Elements[i+1:], list.Elements[i:])
		list.Elements[i] = args[1]
		return list, nil
	})

	// remove - remove and return the element at an index
	registerKindMethod(KindList, "remove", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("remove", args, 1); err != nil {
			return nil, err
		}
		list := recv.(*List)
		i, rerr := indexNumber(args[0], len(list.Elements), "List")
		if rerr != nil {
			return nil, rerr
		}
		removed := list.Elements[i]
		list.Elements = append(list.Elements[:i], list.Elements[i+1:]...)
		return removed, nil
	})

	// first - the first element, or null when empty
	registerKindMethod(KindList, "first", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("first", args, 0); err != nil {
			return nil, err
		}
		list := recv.(*List)
		if len(list.Elements) == 0 {
			return Null, nil
		}
		return list.Elements[0], nil
	})

	// last - the last element, or null when empty
	registerKindMethod(KindList, "last", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("last", args, 0); err != nil {
			return nil, err
		}
		list := recv.(*List)
		if len(list.Elements) == 0 {
			return Null, nil
		}
		return list.Elements[len(list.Elements)-1], nil
	})

	// contains - deep-equality membership test
	registerKindMethod(KindList, "contains", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("contains", args, 1); err != nil {
			return nil, err
		}
		for _, e := range recv.(*List).Elements {
			if Equal(e, args[0]) {
				return True, nil
			}
		}
		return False, nil
	})

	// clear - remove every element, returning the list
	registerKindMethod(KindList, "clear", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("clear", args, 0); err != nil {
			return nil, err
		}
		list := recv.(*List)
		list.Elements = list.Elements[:0]
		return list, nil
	})

	// sort - in-place stable sort by the ordering rules; fails on unordered
	// element kinds
	registerKindMethod(KindList, "sort", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("sort", args, 0); err != nil {
			return nil, err
		}
		list := recv.(*List)
		var sortErr error
		sort.SliceStable(list.Elements, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			c, err := Compare(list.Elements[i], list.Elements[j])
			if err != nil {
				sortErr = err
				return false
			}
			return c < 0
		})
		if sortErr != nil {
			return nil, typeErrorf("sort: %s", sortErr.Error())
		}
		return list, nil
	})
}
