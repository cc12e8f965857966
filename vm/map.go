package vm

import (
	"encoding/binary"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Map: insertion-ordered key/value mapping
// ---------------------------------------------------------------------------

// Map is an insertion-ordered mapping shared by reference. Keys are
// restricted to the hashable kinds: Null, Bool, Number, Str and Tuple (of
// hashable elements). Key equality is deep structural equality and is
// consistent with the canonical key encoding used for hashing, so two
// structurally equal Tuple keys always collide to one entry.
type Map struct {
	keys   []Value        // insertion order
	values []Value        // parallel to keys
	index  map[string]int // canonical key encoding -> slot
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Kind implements Value.
func (*Map) Kind() Kind { return KindMap }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// KeyHashable reports whether v may be used as a map key.
func KeyHashable(v Value) bool {
	switch val := v.(type) {
	case NullValue, Bool, Number, Str:
		return true
	case Tuple:
		for _, e := range val {
			if !KeyHashable(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Set inserts or replaces the entry for key. Returns false when the key is
// not a hashable kind.
func (m *Map) Set(key, value Value) bool {
	enc, ok := encodeKey(key)
	if !ok {
		return false
	}
	if slot, exists := m.index[enc]; exists {
		m.values[slot] = value
		return true
	}
	m.index[enc] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
	return true
}

// Get returns the value for key, or false when absent or unhashable.
func (m *Map) Get(key Value) (Value, bool) {
	enc, ok := encodeKey(key)
	if !ok {
		return nil, false
	}
	slot, exists := m.index[enc]
	if !exists {
		return nil, false
	}
	return m.values[slot], true
}

// Delete removes the entry for key, preserving the order of the remaining
// entries. Returns true when an entry was removed.
func (m *Map) Delete(key Value) bool {
	enc, ok := encodeKey(key)
	if !ok {
		return false
	}
	slot, exists := m.index[enc]
	if !exists {
		return false
	}
	m.keys = append(m.keys[:slot], m.keys[slot+1:]...)
	m.values = append(m.values[:slot], m.values[slot+1:]...)
	delete(m.index, enc)
	for k, s := range m.index {
		if s > slot {
			m.index[k] = s - 1
		}
	}
	return true
}

// Entry returns the i-th key/value pair in insertion order, with false when
// i is past the last entry.
func (m *Map) Entry(i int) (Value, Value, bool) {
	if i < 0 || i >= len(m.keys) {
		return nil, nil, false
	}
	return m.keys[i], m.values[i], true
}

// Copy returns a shallow copy sharing no structure with the original.
func (m *Map) Copy() *Map {
	out := &Map{
		keys:   append([]Value(nil), m.keys...),
		values: append([]Value(nil), m.values...),
		index:  make(map[string]int, len(m.index)),
	}
	for enc, slot := range m.index {
		out.index[enc] = slot
	}
	return out
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (m *Map) Keys() []Value { return m.keys }

// Values returns the values in insertion order. The slice is shared; callers
// must not mutate it.
func (m *Map) Values() []Value { return m.values }

func (m *Map) equal(other *Map) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for enc, slot := range m.index {
		otherSlot, ok := other.index[enc]
		if !ok {
			return false
		}
		if !Equal(m.values[slot], other.values[otherSlot]) {
			return false
		}
	}
	return true
}

func (m *Map) display() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i := range m.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Debug(m.keys[i]))
		sb.WriteString(": ")
		sb.WriteString(Debug(m.values[i]))
	}
	sb.WriteString("}")
	return sb.String()
}

// ---------------------------------------------------------------------------
// Canonical key encoding
// ---------------------------------------------------------------------------

// encodeKey produces a canonical byte encoding of a hashable key. Structural
// equality of keys implies identical encodings: an integral float encodes the
// same as the equal integer, so 1 and 1.0 are one key.
func encodeKey(v Value) (string, bool) {
	var sb strings.Builder
	if !appendKey(&sb, v) {
		return "", false
	}
	return sb.String(), true
}

func appendKey(sb *strings.Builder, v Value) bool {
	switch val := v.(type) {
	case NullValue:
		sb.WriteByte('n')
	case Bool:
		if val {
			sb.WriteByte('T')
		} else {
			sb.WriteByte('F')
		}
	case Number:
		var buf [9]byte
		if !val.IsFloat() || (val.AsFloat() == math.Trunc(val.AsFloat()) &&
			val.AsFloat() >= math.MinInt64 && val.AsFloat() < math.MaxInt64) {
			buf[0] = 'i'
			binary.LittleEndian.PutUint64(buf[1:], uint64(val.AsInt()))
		} else {
			buf[0] = 'f'
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(val.AsFloat()))
		}
		sb.Write(buf[:])
	case Str:
		sb.WriteByte('s')
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(val)))
		sb.Write(n[:])
		sb.WriteString(string(val))
	case Tuple:
		sb.WriteByte('t')
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(val)))
		sb.Write(n[:])
		for _, e := range val {
			if !appendKey(sb, e) {
				return false
			}
		}
	default:
		return false
	}
	return true
}
