package vm

import "testing"

func drain(t *testing.T, it *Iterator) []Value {
	t.Helper()
	var out []Value
	for {
		v, done, err := it.Next()
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if done {
			return out
		}
		out = append(out, v)
	}
}

func TestRangeIteration(t *testing.T) {
	m := New()
	it, err := m.MakeIterator(Range{Start: 1, End: 4})
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, it)
	if len(got) != 3 || !Equal(got[0], Int(1)) || !Equal(got[2], Int(3)) {
		t.Errorf("1..4 produced %v", got)
	}
}

func TestDescendingRangeIteration(t *testing.T) {
	m := New()
	it, _ := m.MakeIterator(Range{Start: 3, End: 1, Inclusive: true})
	got := drain(t, it)
	if len(got) != 3 || !Equal(got[0], Int(3)) || !Equal(got[2], Int(1)) {
		t.Errorf("3..=1 produced %v", got)
	}
}

func TestStringIteratesRunes(t *testing.T) {
	m := New()
	it, _ := m.MakeIterator(Str("héllo"))
	got := drain(t, it)
	if len(got) != 5 {
		t.Fatalf("got %d runes, want 5", len(got))
	}
	if !Equal(got[1], Str("é")) {
		t.Errorf("second rune = %s", Debug(got[1]))
	}
}

func TestMapIteratesPairs(t *testing.T) {
	m := New()
	mp := NewMap()
	mp.Set(Str("a"), Int(1))
	mp.Set(Str("b"), Int(2))
	it, _ := m.MakeIterator(mp)
	got := drain(t, it)
	if len(got) != 2 {
		t.Fatalf("got %d pairs, want 2", len(got))
	}
	pair, ok := got[0].(Tuple)
	if !ok || len(pair) != 2 || !Equal(pair[0], Str("a")) {
		t.Errorf("first pair = %s", Debug(got[0]))
	}
}

func TestListIterationIsLive(t *testing.T) {
	m := New()
	l := NewList([]Value{Int(1), Int(2)})
	it, _ := m.MakeIterator(l)
	if v, _, _ := it.Next(); !Equal(v, Int(1)) {
		t.Fatalf("first = %s", Debug(v))
	}
	// An element appended mid-iteration is visited.
	l.Elements = append(l.Elements, Int(3))
	it.Next()
	v, done, _ := it.Next()
	if done || !Equal(v, Int(3)) {
		t.Errorf("appended element not visited, got %s done=%v", Debug(v), done)
	}
}

func TestIteratorPassthrough(t *testing.T) {
	m := New()
	first, _ := m.MakeIterator(Range{Start: 0, End: 3})
	second, err := m.MakeIterator(first)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("adapting an iterator re-wrapped it")
	}
}

func TestNonIterable(t *testing.T) {
	m := New()
	if _, err := m.MakeIterator(Int(5)); err == nil || err.ErrKind != ErrType {
		t.Errorf("iterating a number gave %v, want TypeError", err)
	}
}

func TestZipStopsAtShorter(t *testing.T) {
	m := New()
	left, _ := m.MakeIterator(Range{Start: 0, End: 10})
	right, _ := m.MakeIterator(Str("ab"))
	got := drain(t, NewIterator(&zipCore{a: left, b: right}))
	if len(got) != 2 {
		t.Errorf("zip produced %d pairs, want 2", len(got))
	}
}

func TestCollectMapFromPairs(t *testing.T) {
	m := New()
	src := NewList([]Value{
		Tuple{Str("a"), Int(1)},
		NewList([]Value{Str("b"), Int(2)}),
		Str("bare"),
	})
	it, _ := m.MakeIterator(src)
	got, err := collectMap(it)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 3 {
		t.Fatalf("collected %d entries, want 3", got.Len())
	}
	// A bare value becomes a key with a null value.
	if v, ok := got.Get(Str("bare")); !ok || v.Kind() != KindNull {
		t.Errorf("bare entry = %s", Debug(v))
	}
}

func TestFoldArithStopsOnError(t *testing.T) {
	m := New()
	it, _ := m.MakeIterator(NewList([]Value{Int(1), Str("x")}))
	if _, err := foldArith(it, OpAdd, Int(0)); err == nil {
		t.Error("summing mixed kinds did not fail")
	}
}
