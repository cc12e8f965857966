package vm

// ---------------------------------------------------------------------------
// Map Primitives
// ---------------------------------------------------------------------------

func init() { registerMapPrimitives() }

func registerMapPrimitives() {
	// get - value for a key, or null when absent (indexing raises instead)
	registerKindMethod(KindMap, "get", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("get", args, 1); err != nil {
			return nil, err
		}
		if !KeyHashable(args[0]) {
			return nil, typeErrorf("%s is not hashable and cannot be a map key", args[0].Kind())
		}
		v, ok := recv.(*Map).Get(args[0])
		if !ok {
			return Null, nil
		}
		return v, nil
	})

	// insert - set a key, returning the map for chaining
	registerKindMethod(KindMap, "insert", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("insert", args, 2); err != nil {
			return nil, err
		}
		mp := recv.(*Map)
		if !mp.Set(args[0], args[1]) {
			return nil, typeErrorf("%s is not hashable and cannot be a map key", args[0].Kind())
		}
		return mp, nil
	})

	// remove - delete a key, reporting whether it was present
	registerKindMethod(KindMap, "remove", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("remove", args, 1); err != nil {
			return nil, err
		}
		return Bool(recv.(*Map).Delete(args[0])), nil
	})

	// contains_key - membership test without retrieving the value
	registerKindMethod(KindMap, "contains_key", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("contains_key", args, 1); err != nil {
			return nil, err
		}
		_, ok := recv.(*Map).Get(args[0])
		return Bool(ok), nil
	})

	// keys - lazy iterator over the keys in insertion order
	registerKindMethod(KindMap, "keys", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("keys", args, 0); err != nil {
			return nil, err
		}
		return NewIterator(&mapKeysCore{m: recv.(*Map)}), nil
	})

	// values - lazy iterator over the values in insertion order
	registerKindMethod(KindMap, "values", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("values", args, 0); err != nil {
			return nil, err
		}
		return NewIterator(&mapValuesCore{m: recv.(*Map)}), nil
	})
}

type mapKeysCore struct {
	m *Map
	i int
}

func (c *mapKeysCore) Next() (Value, bool, *RuntimeError) {
	key, _, ok := c.m.Entry(c.i)
	if !ok {
		return nil, true, nil
	}
	c.i++
	return key, false, nil
}

type mapValuesCore struct {
	m *Map
	i int
}

func (c *mapValuesCore) Next() (Value, bool, *RuntimeError) {
	_, value, ok := c.m.Entry(c.i)
	if !ok {
		return nil, true, nil
	}
	c.i++
	return value, false, nil
}
