package vm

// ---------------------------------------------------------------------------
// Iterators: lazy sources, adaptors and terminal consumers
// ---------------------------------------------------------------------------

// IteratorCore produces one value per advance. Next returns the value, an
// exhausted flag, and any error raised while producing the value. Once a
// core reports exhaustion or an error it must keep doing so.
type IteratorCore interface {
	Next() (Value, bool, *RuntimeError)
}

// Iterator is the script-visible handle around a core. Iterators are
// single-pass: the handle shares its core with nothing, so consuming it
// consumes the underlying stream. Equality and ordering are by identity.
type Iterator struct {
	core IteratorCore
}

// Kind implements Value.
func (*Iterator) Kind() Kind { return KindIterator }

// NewIterator wraps a core as a script value.
func NewIterator(core IteratorCore) *Iterator { return &Iterator{core: core} }

// Next advances the iterator by one step.
func (it *Iterator) Next() (Value, bool, *RuntimeError) { return it.core.Next() }

// MakeIterator adapts an iterable value to an Iterator. An Iterator passes
// through unchanged, so adaptor chains never re-wrap.
func (m *VM) MakeIterator(v Value) (*Iterator, *RuntimeError) {
	switch src := v.(type) {
	case *Iterator:
		return src, nil
	case Range:
		step := int64(1)
		if src.End < src.Start {
			step = -1
		}
		return NewIterator(&rangeCore{r: src, next: src.Start, step: step}), nil
	case *List:
		return NewIterator(&listCore{list: src}), nil
	case Tuple:
		return NewIterator(&tupleCore{elements: src}), nil
	case *Map:
		return NewIterator(&mapCore{m: src}), nil
	case Str:
		return NewIterator(&strCore{runes: []rune(string(src))}), nil
	case Vec2:
		return NewIterator(&tupleCore{elements: Tuple{Float(src[0]), Float(src[1])}}), nil
	case Vec4:
		return NewIterator(&tupleCore{elements: Tuple{
			Float(float64(src[0])), Float(float64(src[1])),
			Float(float64(src[2])), Float(float64(src[3])),
		}}), nil
	case *Object:
		if src.Caps.Iterate != nil {
			core, err := src.Caps.Iterate(src)
			if err != nil {
				return nil, asRuntimeError(err)
			}
			return NewIterator(core), nil
		}
	}
	return nil, typeErrorf("values of kind %s are not iterable", v.Kind())
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// rangeCore counts from Start towards End, stepping down for descending
// ranges.
type rangeCore struct {
	r    Range
	next int64
	step int64
}

func (c *rangeCore) Next() (Value, bool, *RuntimeError) {
	if c.step > 0 {
		limit := c.r.End
		if c.r.Inclusive {
			limit++
		}
		if c.next >= limit {
			return nil, true, nil
		}
	} else {
		limit := c.r.End
		if c.r.Inclusive {
			limit--
		}
		if c.next <= limit {
			return nil, true, nil
		}
	}
	v := Int(c.next)
	c.next += c.step
	return v, false, nil
}

// listCore iterates the live list, so elements appended during iteration are
// visited and removed elements are not.
type listCore struct {
	list *List
	i    int
}

func (c *listCore) Next() (Value, bool, *RuntimeError) {
	if c.i >= len(c.list.Elements) {
		return nil, true, nil
	}
	v := c.list.Elements[c.i]
	c.i++
	return v, false, nil
}

type tupleCore struct {
	elements Tuple
	i        int
}

func (c *tupleCore) Next() (Value, bool, *RuntimeError) {
	if c.i >= len(c.elements) {
		return nil, true, nil
	}
	v := c.elements[c.i]
	c.i++
	return v, false, nil
}

// mapCore yields (key, value) tuples in insertion order.
type mapCore struct {
	m *Map
	i int
}

func (c *mapCore) Next() (Value, bool, *RuntimeError) {
	key, value, ok := c.m.Entry(c.i)
	if !ok {
		return nil, true, nil
	}
	c.i++
	return Tuple{key, value}, false, nil
}

type strCore struct {
	runes []rune
	i     int
}

func (c *strCore) Next() (Value, bool, *RuntimeError) {
	if c.i >= len(c.runes) {
		return nil, true, nil
	}
	v := Str(string(c.runes[c.i]))
	c.i++
	return v, false, nil
}

// ---------------------------------------------------------------------------
// Adaptors
// ---------------------------------------------------------------------------

// eachCore maps every element through a callable.
type eachCore struct {
	m   *VM
	src *Iterator
	fn  Value
}

func (c *eachCore) Next() (Value, bool, *RuntimeError) {
	v, exhausted, err := c.src.Next()
	if exhausted || err != nil {
		return nil, exhausted, err
	}
	mapped, err := c.m.CallFunction(c.fn, []Value{v})
	if err != nil {
		return nil, false, err
	}
	return mapped, false, nil
}

// keepCore passes through elements for which the predicate is truthy.
type keepCore struct {
	m   *VM
	src *Iterator
	fn  Value
}

func (c *keepCore) Next() (Value, bool, *RuntimeError) {
	for {
		v, exhausted, err := c.src.Next()
		if exhausted || err != nil {
			return nil, exhausted, err
		}
		verdict, err := c.m.CallFunction(c.fn, []Value{v})
		if err != nil {
			return nil, false, err
		}
		if IsTruthy(verdict) {
			return v, false, nil
		}
	}
}

// takeCore yields at most n elements, never advancing the source past them.
type takeCore struct {
	src       *Iterator
	remaining int64
}

func (c *takeCore) Next() (Value, bool, *RuntimeError) {
	if c.remaining <= 0 {
		return nil, true, nil
	}
	v, exhausted, err := c.src.Next()
	if exhausted || err != nil {
		return nil, exhausted, err
	}
	c.remaining--
	return v, false, nil
}

// skipCore drops the first n elements. The drop happens on the first
// advance, so building the adaptor consumes nothing.
type skipCore struct {
	src     *Iterator
	pending int64
}

func (c *skipCore) Next() (Value, bool, *RuntimeError) {
	for c.pending > 0 {
		_, exhausted, err := c.src.Next()
		if exhausted || err != nil {
			c.pending = 0
			return nil, exhausted, err
		}
		c.pending--
	}
	return c.src.Next()
}

// zipCore pairs two streams, ending with the shorter one.
type zipCore struct {
	a, b *Iterator
	done bool
}

func (c *zipCore) Next() (Value, bool, *RuntimeError) {
	if c.done {
		return nil, true, nil
	}
	left, exhausted, err := c.a.Next()
	if exhausted || err != nil {
		c.done = true
		return nil, exhausted, err
	}
	right, exhausted, err := c.b.Next()
	if exhausted || err != nil {
		c.done = true
		return nil, exhausted, err
	}
	return Tuple{left, right}, false, nil
}

// ---------------------------------------------------------------------------
// Terminal consumers
// ---------------------------------------------------------------------------

// collectList drains the iterator into a fresh List. Errors raised mid
// stream abandon the partial result and propagate.
func collectList(it *Iterator) (*List, *RuntimeError) {
	var elements []Value
	for {
		v, exhausted, err := it.Next()
		if err != nil {
			return nil, err
		}
		if exhausted {
			return NewList(elements), nil
		}
		elements = append(elements, v)
	}
}

// collectTuple drains the iterator into a Tuple.
func collectTuple(it *Iterator) (Tuple, *RuntimeError) {
	var elements Tuple
	for {
		v, exhausted, err := it.Next()
		if err != nil {
			return nil, err
		}
		if exhausted {
			return elements, nil
		}
		elements = append(elements, v)
	}
}

// collectMap drains a stream of (key, value) pairs into a Map. Elements
// must be two-element tuples or lists.
func collectMap(it *Iterator) (*Map, *RuntimeError) {
	result := NewMap()
	for {
		v, exhausted, err := it.Next()
		if err != nil {
			return nil, err
		}
		if exhausted {
			return result, nil
		}
		var key, value Value
		switch pair := v.(type) {
		case Tuple:
			if len(pair) != 2 {
				return nil, typeErrorf("to_map needs (key, value) pairs, got a %d-tuple", len(pair))
			}
			key, value = pair[0], pair[1]
		case *List:
			if len(pair.Elements) != 2 {
				return nil, typeErrorf("to_map needs (key, value) pairs, got a list of %d", len(pair.Elements))
			}
			key, value = pair.Elements[0], pair.Elements[1]
		default:
			key, value = v, Null
		}
		if !result.Set(key, value) {
			return nil, typeErrorf("%s is not hashable and cannot be a map key", key.Kind())
		}
	}
}

// foldArith reduces the stream with an arithmetic opcode, starting from the
// given identity.
func foldArith(it *Iterator, op Opcode, identity Value) (Value, *RuntimeError) {
	acc := identity
	for {
		v, exhausted, err := it.Next()
		if err != nil {
			return nil, err
		}
		if exhausted {
			return acc, nil
		}
		acc, err = binaryArith(op, acc, v)
		if err != nil {
			return nil, err
		}
	}
}

// countIterator drains the stream and reports how many elements it held.
func countIterator(it *Iterator) (int64, *RuntimeError) {
	var n int64
	for {
		_, exhausted, err := it.Next()
		if err != nil {
			return 0, err
		}
		if exhausted {
			return n, nil
		}
		n++
	}
}

// consumeIterator drains the stream for its side effects.
func consumeIterator(it *Iterator) *RuntimeError {
	for {
		_, exhausted, err := it.Next()
		if err != nil {
			return err
		}
		if exhausted {
			return nil
		}
	}
}
