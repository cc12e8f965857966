package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Number: 64-bit integer or float with promotion rules
// ---------------------------------------------------------------------------

// Number is a numeric value backed by either a signed 64-bit integer or a
// 64-bit float. Arithmetic between two integers stays integral; any float
// operand promotes the result to float.
type Number struct {
	i       int64
	f       float64
	isFloat bool
}

// Kind implements Value.
func (Number) Kind() Kind { return KindNumber }

// Int creates an integer Number.
func Int(i int64) Number { return Number{i: i} }

// Float creates a float Number.
func Float(f float64) Number { return Number{f: f, isFloat: true} }

// IsFloat reports whether the number holds a float representation.
func (n Number) IsFloat() bool { return n.isFloat }

// AsInt returns the number truncated to an integer.
func (n Number) AsInt() int64 {
	if n.isFloat {
		return int64(n.f)
	}
	return n.i
}

// AsFloat returns the number widened to a float.
func (n Number) AsFloat() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// Equal reports numeric equality across representations: 1 == 1.0.
func (n Number) Equal(other Number) bool {
	if !n.isFloat && !other.isFloat {
		return n.i == other.i
	}
	return n.AsFloat() == other.AsFloat()
}

// Compare returns -1, 0 or 1 ordering n against other.
func (n Number) Compare(other Number) int {
	if !n.isFloat && !other.isFloat {
		switch {
		case n.i < other.i:
			return -1
		case n.i > other.i:
			return 1
		default:
			return 0
		}
	}
	a, b := n.AsFloat(), other.AsFloat()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String formats the number. Floats always render with a decimal component
// so that 5.0 stays distinguishable from 5.
func (n Number) String() string {
	if !n.isFloat {
		return strconv.FormatInt(n.i, 10)
	}
	s := strconv.FormatFloat(n.f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !math.IsInf(n.f, 0) && !math.IsNaN(n.f) {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// Arithmetic with promotion
// ---------------------------------------------------------------------------

// Add returns n + other with int/float promotion.
func (n Number) Add(other Number) Number {
	if !n.isFloat && !other.isFloat {
		return Int(n.i + other.i)
	}
	return Float(n.AsFloat() + other.AsFloat())
}

// Sub returns n - other with int/float promotion.
func (n Number) Sub(other Number) Number {
	if !n.isFloat && !other.isFloat {
		return Int(n.i - other.i)
	}
	return Float(n.AsFloat() - other.AsFloat())
}

// Mul returns n * other with int/float promotion.
func (n Number) Mul(other Number) Number {
	if !n.isFloat && !other.isFloat {
		return Int(n.i * other.i)
	}
	return Float(n.AsFloat() * other.AsFloat())
}

// Div returns n / other. Integer division by zero is a domain error reported
// by the caller; float division follows IEEE semantics.
func (n Number) Div(other Number) (Number, bool) {
	if !n.isFloat && !other.isFloat {
		if other.i == 0 {
			return Number{}, false
		}
		return Int(n.i / other.i), true
	}
	return Float(n.AsFloat() / other.AsFloat()), true
}

// Mod returns n % other, following the sign of the dividend for integers and
// math.Mod for floats.
func (n Number) Mod(other Number) (Number, bool) {
	if !n.isFloat && !other.isFloat {
		if other.i == 0 {
			return Number{}, false
		}
		return Int(n.i % other.i), true
	}
	return Float(math.Mod(n.AsFloat(), other.AsFloat())), true
}

// Neg returns -n.
func (n Number) Neg() Number {
	if !n.isFloat {
		return Int(-n.i)
	}
	return Float(-n.f)
}
