package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Vec2 and Vec4: packed fixed-size float vectors
// ---------------------------------------------------------------------------

// Vec2 is a pair of 64-bit float lanes. Arithmetic is lane-wise, with scalars
// broadcast across both lanes. Equality is exact float comparison.
type Vec2 [2]float64

// Kind implements Value.
func (Vec2) Kind() Kind { return KindVec2 }

// String formats the vector for display.
func (v Vec2) String() string {
	return fmt.Sprintf("num2(%v, %v)", v[0], v[1])
}

// Length returns the Euclidean length.
func (v Vec2) Length() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1])
}

// Vec4 is four packed 32-bit float lanes. Arithmetic is lane-wise, with
// scalars broadcast across all lanes. Equality is exact float comparison.
type Vec4 [4]float32

// Kind implements Value.
func (Vec4) Kind() Kind { return KindVec4 }

// String formats the vector for display.
func (v Vec4) String() string {
	return fmt.Sprintf("num4(%v, %v, %v, %v)", v[0], v[1], v[2], v[3])
}

// Length returns the Euclidean length.
func (v Vec4) Length() float64 {
	x, y, z, w := float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])
	return math.Sqrt(x*x + y*y + z*z + w*w)
}

// ---------------------------------------------------------------------------
// Lane access
// ---------------------------------------------------------------------------

// Lane returns lane i of a Vec2 as a Number, or false when out of bounds.
func (v Vec2) Lane(i int) (Number, bool) {
	if i < 0 || i >= 2 {
		return Number{}, false
	}
	return Float(v[i]), true
}

// Lane returns lane i of a Vec4 as a Number, or false when out of bounds.
func (v Vec4) Lane(i int) (Number, bool) {
	if i < 0 || i >= 4 {
		return Number{}, false
	}
	return Float(float64(v[i])), true
}

// ---------------------------------------------------------------------------
// Lane-wise arithmetic with scalar broadcasting
// ---------------------------------------------------------------------------

type vecOp uint8

const (
	vecAdd vecOp = iota
	vecSub
	vecMul
	vecDiv
	vecMod
)

func applyVecOp(op vecOp, a, b float64) float64 {
	switch op {
	case vecAdd:
		return a + b
	case vecSub:
		return a - b
	case vecMul:
		return a * b
	case vecDiv:
		return a / b
	default:
		return math.Mod(a, b)
	}
}

// vec2Arith evaluates a binary operator where at least one operand is a Vec2.
// A Number operand broadcasts across both lanes, on either side.
func vec2Arith(op vecOp, lhs, rhs Value) (Value, bool) {
	switch l := lhs.(type) {
	case Vec2:
		switch r := rhs.(type) {
		case Vec2:
			return Vec2{applyVecOp(op, l[0], r[0]), applyVecOp(op, l[1], r[1])}, true
		case Number:
			s := r.AsFloat()
			return Vec2{applyVecOp(op, l[0], s), applyVecOp(op, l[1], s)}, true
		}
	case Number:
		if r, ok := rhs.(Vec2); ok {
			s := l.AsFloat()
			return Vec2{applyVecOp(op, s, r[0]), applyVecOp(op, s, r[1])}, true
		}
	}
	return nil, false
}

// vec4Arith evaluates a binary operator where at least one operand is a Vec4.
func vec4Arith(op vecOp, lhs, rhs Value) (Value, bool) {
	apply := func(a, b float32) float32 {
		return float32(applyVecOp(op, float64(a), float64(b)))
	}
	switch l := lhs.(type) {
	case Vec4:
		switch r := rhs.(type) {
		case Vec4:
			return Vec4{apply(l[0], r[0]), apply(l[1], r[1]), apply(l[2], r[2]), apply(l[3], r[3])}, true
		case Number:
			s := float32(r.AsFloat())
			return Vec4{apply(l[0], s), apply(l[1], s), apply(l[2], s), apply(l[3], s)}, true
		}
	case Number:
		if r, ok := rhs.(Vec4); ok {
			s := float32(l.AsFloat())
			return Vec4{apply(s, r[0]), apply(s, r[1]), apply(s, r[2]), apply(s, r[3])}, true
		}
	}
	return nil, false
}

// MakeVec2 builds a Vec2 from up to two numbers: one number fills both lanes,
// missing lanes default to zero.
func MakeVec2(args []Number) Vec2 {
	switch len(args) {
	case 0:
		return Vec2{}
	case 1:
		s := args[0].AsFloat()
		return Vec2{s, s}
	default:
		return Vec2{args[0].AsFloat(), args[1].AsFloat()}
	}
}

// MakeVec4 builds a Vec4 from up to four numbers: one number fills all lanes,
// missing lanes default to zero.
func MakeVec4(args []Number) Vec4 {
	switch len(args) {
	case 0:
		return Vec4{}
	case 1:
		s := float32(args[0].AsFloat())
		return Vec4{s, s, s, s}
	default:
		var v Vec4
		for i, n := range args {
			if i >= 4 {
				break
			}
			v[i] = float32(n.AsFloat())
		}
		return v
	}
}
