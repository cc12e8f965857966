package vm

import "math"

// ---------------------------------------------------------------------------
// Vector Primitives
// ---------------------------------------------------------------------------

func init() { registerVecPrimitives() }

func registerVecPrimitives() {
	lane := func(name string, i int) {
		registerKindMethod(KindVec2, name, func(_ *VM, recv Value, args []Value) (Value, error) {
			if err := wantArgs(name, args, 0); err != nil {
				return nil, err
			}
			v, ok := recv.(Vec2).Lane(i)
			if !ok {
				return nil, runtimeErrorf(ErrIndexOutOfBounds,
					"Vec2 has no lane %s", name)
			}
			return v, nil
		})
		registerKindMethod(KindVec4, name, func(_ *VM, recv Value, args []Value) (Value, error) {
			if err := wantArgs(name, args, 0); err != nil {
				return nil, err
			}
			v, ok := recv.(Vec4).Lane(i)
			if !ok {
				return nil, runtimeErrorf(ErrIndexOutOfBounds,
					"Vec4 has no lane %s", name)
			}
			return v, nil
		})
	}
	lane("x", 0)
	lane("y", 1)
	lane("z", 2)
	lane("w", 3)

	// length - euclidean magnitude
	registerKindMethod(KindVec2, "length", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("length", args, 0); err != nil {
			return nil, err
		}
		v := recv.(Vec2)
		return Float(math.Hypot(v[0], v[1])), nil
	})
	registerKindMethod(KindVec4, "length", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("length", args, 0); err != nil {
			return nil, err
		}
		v := recv.(Vec4)
		var sum float64
		for _, lane := range v {
			sum += float64(lane) * float64(lane)
		}
		return Float(math.Sqrt(sum)), nil
	})

	// sum - add the lanes together
	registerKindMethod(KindVec2, "sum", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("sum", args, 0); err != nil {
			return nil, err
		}
		v := recv.(Vec2)
		return Float(v[0] + v[1]), nil
	})
	registerKindMethod(KindVec4, "sum", func(_ *VM, recv Value, args []Value) (Value, error) {
		if err := wantArgs("sum", args, 0); err != nil {
			return nil, err
		}
		v := recv.(Vec4)
		return Float(float64(v[0]) + float64(v[1]) + float64(v[2]) + float64(v[3])), nil
	})
}
