package compiler

import (
	"strings"
	"testing"

	"github.com/quill-lang/quill/vm"
)

// Integration tests: compile and execute real Quill code

func compile(t *testing.T, source string) *vm.Chunk {
	t.Helper()
	chunk, cerr := CompileScript("test.ql", source, nil)
	if cerr != nil {
		t.Fatalf("compile error: %v", cerr)
	}
	return chunk
}

func run(t *testing.T, source string) vm.Value {
	t.Helper()
	v, rerr := vm.New().Run(compile(t, source))
	if rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}
	return v
}

func runErr(t *testing.T, source string) *vm.RuntimeError {
	t.Helper()
	_, rerr := vm.New().Run(compile(t, source))
	if rerr == nil {
		t.Fatal("expected a runtime error, got none")
	}
	return rerr
}

func wantInt(t *testing.T, v vm.Value, want int64) {
	t.Helper()
	n, ok := v.(vm.Number)
	if !ok || n.IsFloat() || n.AsInt() != want {
		t.Errorf("got %s, want %d", vm.Debug(v), want)
	}
}

func wantFloat(t *testing.T, v vm.Value, want float64) {
	t.Helper()
	n, ok := v.(vm.Number)
	if !ok || !n.IsFloat() || n.AsFloat() != want {
		t.Errorf("got %s, want %v", vm.Debug(v), want)
	}
}

func wantStr(t *testing.T, v vm.Value, want string) {
	t.Helper()
	s, ok := v.(vm.Str)
	if !ok || string(s) != want {
		t.Errorf("got %s, want %q", vm.Debug(v), want)
	}
}

func wantBool(t *testing.T, v vm.Value, want bool) {
	t.Helper()
	b, ok := v.(vm.Bool)
	if !ok || bool(b) != want {
		t.Errorf("got %s, want %v", vm.Debug(v), want)
	}
}

func wantNull(t *testing.T, v vm.Value) {
	t.Helper()
	if v.Kind() != vm.KindNull {
		t.Errorf("got %s, want null", vm.Debug(v))
	}
}

// ---- arithmetic and operators -----------------------------------------------

func TestArithmeticPromotion(t *testing.T) {
	wantInt(t, run(t, `1 + 2`), 3)
	wantFloat(t, run(t, `1 + 2.5`), 3.5)
	wantInt(t, run(t, `7 / 2`), 3)
	wantFloat(t, run(t, `7.0 / 2`), 3.5)
	wantInt(t, run(t, `7 % 3`), 1)
	wantInt(t, run(t, `-7 % 3`), -1)
	wantInt(t, run(t, `2 * 3 + 4`), 10)
	wantInt(t, run(t, `2 + 3 * 4`), 14)
	wantInt(t, run(t, `-(3 + 4)`), -7)
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, `1 / 0`)
	if err.ErrKind != vm.ErrDomain {
		t.Errorf("1 / 0 raised %s, want DomainError", err.ErrKind)
	}
	err = runErr(t, `5 % 0`)
	if err.ErrKind != vm.ErrDomain {
		t.Errorf("5 %% 0 raised %s, want DomainError", err.ErrKind)
	}
	// Float division follows IEEE semantics instead.
	v := run(t, `1.0 / 0`)
	n, ok := v.(vm.Number)
	if !ok || !n.IsFloat() {
		t.Errorf("1.0 / 0 = %s, want +Inf", vm.Debug(v))
	}
}

func TestStringConcat(t *testing.T) {
	wantStr(t, run(t, `"quill" + " " + "lang"`), "quill lang")
}

func TestListConcat(t *testing.T) {
	v := run(t, `[1, 2] + [3]`)
	l, ok := v.(*vm.List)
	if !ok || l.Len() != 3 {
		t.Fatalf("got %s, want a 3-element list", vm.Debug(v))
	}
}

func TestEqualityAcrossRepresentations(t *testing.T) {
	wantBool(t, run(t, `1 == 1.0`), true)
	wantBool(t, run(t, `[1, 2] == [1, 2.0]`), true)
	wantBool(t, run(t, `"a" == 1`), false)
	wantBool(t, run(t, `null == null`), true)
	wantBool(t, run(t, `1 != 2`), true)
}

func TestComparisonErrors(t *testing.T) {
	err := runErr(t, `1 < "a"`)
	if err.ErrKind != vm.ErrType {
		t.Errorf("mixed comparison raised %s, want TypeError", err.ErrKind)
	}
}

func TestShortCircuit(t *testing.T) {
	// The right side must not be evaluated; boom is unbound.
	wantBool(t, run(t, `false and boom()`), false)
	wantBool(t, run(t, `true or boom()`), true)
	wantBool(t, run(t, `true and false`), false)
	wantBool(t, run(t, `not false`), true)
	// and/or produce the deciding value, not a coerced bool. Only null and
	// false are falsy; zero is truthy.
	wantInt(t, run(t, `2 and 3`), 3)
	wantInt(t, run(t, `null or 5`), 5)
	wantInt(t, run(t, `0 or 5`), 0)
}

// ---- variables, assignment, destructuring ------------------------------------

func TestVariablesAndCompoundAssign(t *testing.T) {
	wantInt(t, run(t, `
		x = 10
		x += 5
		x *= 2
		x -= 6
		x /= 4
		x
	`), 6)
}

func TestIndexAssignment(t *testing.T) {
	wantInt(t, run(t, `
		xs = [1, 2, 3]
		xs[1] = 20
		xs[1] += 1
		xs[1]
	`), 21)

	wantStr(t, run(t, `
		m = {name: "quill"}
		m["name"] = "lang"
		m["name"]
	`), "lang")
}

func TestDestructuringPadsWithNull(t *testing.T) {
	wantNull(t, run(t, `
		a, b, c = [1, 2]
		c
	`))
	wantInt(t, run(t, `
		a, b, c = [1, 2]
		b
	`), 2)
	wantInt(t, run(t, `
		a, b = (7, 8, 9)
		a + b
	`), 15)
}

func TestDestructuringNonSequence(t *testing.T) {
	err := runErr(t, `a, b = 42`)
	if err.ErrKind != vm.ErrType {
		t.Errorf("destructuring a number raised %s, want TypeError", err.ErrKind)
	}
}

// ---- control flow -------------------------------------------------------------

func TestIfIsAnExpression(t *testing.T) {
	wantStr(t, run(t, `if 2 > 1 { "yes" } else { "no" }`), "yes")
	wantStr(t, run(t, `
		n = 3
		if n == 1 { "one" } else if n == 2 { "two" } else { "many" }
	`), "many")
	wantNull(t, run(t, `if false { 1 }`))
}

func TestMatchExpression(t *testing.T) {
	src := `
		classify = fn(n) {
			match n {
				0 => "zero",
				1 => "one",
				else => "many"
			}
		}
		classify(0) + " " + classify(1) + " " + classify(9)
	`
	wantStr(t, run(t, src), "zero one many")
}

func TestMatchWithoutElseProducesNull(t *testing.T) {
	wantNull(t, run(t, `match 9 { 1 => "one" }`))
}

func TestWhileLoop(t *testing.T) {
	wantInt(t, run(t, `
		i = 0
		total = 0
		while i < 10 {
			i += 1
			total += i
		}
		total
	`), 55)
}

func TestBreakAndContinue(t *testing.T) {
	wantInt(t, run(t, `
		total = 0
		for i in 1..=100 {
			if i % 2 == 0 { continue }
			if i > 10 { break }
			total += i
		}
		total
	`), 25) // 1 + 3 + 5 + 7 + 9
}

func TestForOverRange(t *testing.T) {
	wantInt(t, run(t, `
		total = 0
		for i in 1..5 { total += i }
		total
	`), 10)
	wantInt(t, run(t, `
		total = 0
		for i in 1..=5 { total += i }
		total
	`), 15)
}

func TestForOverDescendingRange(t *testing.T) {
	wantStr(t, run(t, `
		out = ""
		for i in 3..=1 { out += i.to_string }
		out
	`), "321")
}

func TestForOverMapDestructures(t *testing.T) {
	wantInt(t, run(t, `
		total = 0
		for k, v in {a: 1, b: 2, c: 3} { total += v }
		total
	`), 6)
}

func TestForOverString(t *testing.T) {
	wantInt(t, run(t, `
		n = 0
		for ch in "héllo" { n += 1 }
		n
	`), 5)
}

// ---- functions ---------------------------------------------------------------

func TestFunctionCallAndImplicitReturn(t *testing.T) {
	wantInt(t, run(t, `
		add = fn(a, b) { a + b }
		add(2, 3)
	`), 5)
}

func TestExplicitReturn(t *testing.T) {
	wantInt(t, run(t, `
		sign = fn(n) {
			if n < 0 { return -1 }
			if n > 0 { return 1 }
			0
		}
		sign(-5) + sign(9) * 2
	`), 1)
}

func TestRecursion(t *testing.T) {
	wantInt(t, run(t, `
		fact = fn(n) {
			if n == 0 { 1 } else { n * fact(n - 1) }
		}
		fact(10)
	`), 3628800)
}

func TestFibonacci(t *testing.T) {
	wantInt(t, run(t, `
		fib = fn(n) {
			if n < 2 { n } else { fib(n - 1) + fib(n - 2) }
		}
		fib(10)
	`), 55)
}

func TestClosureCounter(t *testing.T) {
	wantInt(t, run(t, `
		make_counter = fn() {
			c = 0
			fn() {
				c += 1
				c
			}
		}
		a = make_counter()
		b = make_counter()
		a()
		a()
		b()
		a() * 10 + b()
	`), 32)
}

func TestClosureSnapshotWhenNotReassigned(t *testing.T) {
	// x is never written after capture, so the closure sees the value it
	// captured even though the outer slot is reused conceptually.
	wantInt(t, run(t, `
		make = fn(x) { fn() { x } }
		f = make(1)
		g = make(2)
		f() * 10 + g()
	`), 12)
}

func TestRunawayRecursionOverflows(t *testing.T) {
	m := vm.New()
	_, rerr := m.Run(compile(t, `
		f = fn(n) { f(n + 1) }
		f(0)
	`))
	if rerr == nil || rerr.ErrKind != vm.ErrStackOverflow {
		t.Fatalf("runaway recursion raised %v, want StackOverflow", rerr)
	}
	if len(rerr.Trace) == 0 {
		t.Error("overflow error carries no traceback")
	}
}

func TestFrameDepthLimitIsConfigurable(t *testing.T) {
	m := vm.New()
	m.MaxFrameDepth = 10
	_, rerr := m.Run(compile(t, `
		down = fn(n) { if n > 0 { down(n - 1) } else { 0 } }
		down(100)
	`))
	if rerr == nil || rerr.ErrKind != vm.ErrStackOverflow {
		t.Fatalf("depth 100 under limit 10 raised %v, want StackOverflow", rerr)
	}

	// The same recursion fits once the limit allows it.
	m = vm.New()
	m.MaxFrameDepth = 200
	v, rerr := m.Run(compile(t, `
		down = fn(n) { if n > 0 { down(n - 1) } else { 0 } }
		down(100)
	`))
	if rerr != nil {
		t.Fatalf("depth 100 under limit 200 failed: %v", rerr)
	}
	wantInt(t, v, 0)
}

func TestCapturedParameterReassignment(t *testing.T) {
	// Reassigning a captured parameter after the closure is built must be
	// visible through the closure.
	wantInt(t, run(t, `
		f = fn(x) {
			g = fn() { x }
			x = 5
			g()
		}
		f(1)
	`), 5)
}

func TestNestedCaptureChain(t *testing.T) {
	wantInt(t, run(t, `
		outer = fn() {
			n = 0
			middle = fn() {
				inner = fn() {
					n += 5
					n
				}
				inner()
			}
			middle()
			n
		}
		outer()
	`), 5)
}

func TestVariadicFunction(t *testing.T) {
	wantInt(t, run(t, `
		f = fn(first, rest...) { first + size(rest) }
		f(10, "a", "b", "c")
	`), 13)
	// The rest tuple may be empty.
	wantInt(t, run(t, `
		f = fn(first, rest...) { size(rest) }
		f(1)
	`), 0)
}

func TestArityMismatch(t *testing.T) {
	err := runErr(t, `
		f = fn(a, b) { a + b }
		f(1)
	`)
	if err.ErrKind != vm.ErrArgument {
		t.Errorf("arity mismatch raised %s, want ArgumentError", err.ErrKind)
	}
	if !strings.Contains(err.Message, "expects 2 arguments, got 1") {
		t.Errorf("arity message = %q", err.Message)
	}
}

func TestCallingNonCallable(t *testing.T) {
	err := runErr(t, `x = 42 x()`)
	if err.ErrKind != vm.ErrType {
		t.Errorf("calling a number raised %s, want TypeError", err.ErrKind)
	}
}

// ---- generators ---------------------------------------------------------------

func TestGeneratorYields(t *testing.T) {
	v := run(t, `
		squares = fn(n) {
			i = 1
			while i <= n {
				yield i * i
				i += 1
			}
		}
		squares(4).to_list
	`)
	l, ok := v.(*vm.List)
	if !ok || l.Len() != 4 {
		t.Fatalf("got %s, want 4 squares", vm.Debug(v))
	}
	if !vm.Equal(l.Elements[3], vm.Int(16)) {
		t.Errorf("last square = %s, want 16", vm.Debug(l.Elements[3]))
	}
}

func TestGeneratorIsSinglePass(t *testing.T) {
	wantInt(t, run(t, `
		gen = fn() {
			yield 1
			yield 2
		}
		g = gen()
		g.to_list
		size(g.to_list)
	`), 0)
}

func TestGeneratorInterleavesWithCaller(t *testing.T) {
	wantStr(t, run(t, `
		trace = ""
		gen = fn() {
			trace += "a"
			yield 1
			trace += "b"
			yield 2
		}
		g = gen()
		g.next
		trace += "-"
		g.next
		trace
	`), "a-b")
}

func TestGeneratorReturnEndsIteration(t *testing.T) {
	wantInt(t, run(t, `
		gen = fn() {
			yield 1
			return 99
			yield 2
		}
		gen().sum
	`), 1)
}

func TestGeneratorArityChecked(t *testing.T) {
	err := runErr(t, `
		gen = fn(n) { yield n }
		gen()
	`)
	if err.ErrKind != vm.ErrArgument {
		t.Errorf("generator arity mismatch raised %s, want ArgumentError", err.ErrKind)
	}
}

// ---- iterator chains -----------------------------------------------------------

func TestIteratorPipeline(t *testing.T) {
	wantInt(t, run(t, `
		(1..=10).keep(fn(x) { x % 2 == 0 }).each(fn(x) { x * x }).sum
	`), 220)
}

func TestIteratorsAreLazy(t *testing.T) {
	wantInt(t, run(t, `
		calls = 0
		probe = fn(x) {
			calls += 1
			x
		}
		it = [1, 2, 3, 4, 5].each(probe)
		it.next
		it.next
		calls
	`), 2)
}

func TestTakeAndSkip(t *testing.T) {
	wantInt(t, run(t, `(1..=100).skip(10).take(5).sum`), 65) // 11..15
	wantInt(t, run(t, `(1..=3).take(10).count`), 3)
	wantInt(t, run(t, `(1..=3).skip(10).count`), 0)
}

func TestZipEndsAtShorterStream(t *testing.T) {
	wantInt(t, run(t, `size([1, 2, 3].zip("ab").to_list)`), 2)
}

func TestToMapCollectsPairs(t *testing.T) {
	wantInt(t, run(t, `
		m = [("a", 1), ("b", 2)].to_map
		m["a"] + m["b"]
	`), 3)
}

func TestProductAndCount(t *testing.T) {
	wantInt(t, run(t, `(1..=5).product`), 120)
	wantInt(t, run(t, `"hello".count`), 5)
}

func TestIteratorErrorPropagates(t *testing.T) {
	err := runErr(t, `
		[1, 2, 3].each(fn(x) {
			if x == 2 { throw "bad element" }
			x
		}).to_list
	`)
	if err.ErrKind != vm.ErrThrown {
		t.Errorf("pipeline error raised %s, want Thrown", err.ErrKind)
	}
}

// ---- containers -----------------------------------------------------------------

func TestListMethods(t *testing.T) {
	wantInt(t, run(t, `
		xs = [3, 1, 2]
		xs.push(4)
		xs.sort
		xs.last
	`), 4)
	wantBool(t, run(t, `[1, 2, 3].contains(2)`), true)
	wantNull(t, run(t, `[].pop`))
}

func TestMapKeyNormalization(t *testing.T) {
	// 1 and 1.0 are the same key.
	wantInt(t, run(t, `
		m = {}
		m[1] = 10
		m[1.0] = 20
		size(m)
	`), 1)
	wantInt(t, run(t, `
		m = {}
		m[1.0] = 20
		m[1]
	`), 20)
}

func TestListsShareStorage(t *testing.T) {
	// Assignment aliases the list; a push through one name is seen through
	// the other.
	wantInt(t, run(t, `
		xs = [1, 2]
		ys = xs
		ys.push(3)
		size(xs)
	`), 3)
}

func TestTupleMapKeys(t *testing.T) {
	// Structurally equal tuples collide on the same entry.
	wantInt(t, run(t, `
		m = {}
		m[(1, 2)] = "first"
		m[(1, 2)] = "second"
		size(m)
	`), 1)
	wantStr(t, run(t, `
		m = {(1, 2): "first"}
		m[(1, 2)]
	`), "first")
}

func TestMapMissingKey(t *testing.T) {
	err := runErr(t, `{a: 1}["b"]`)
	if err.ErrKind != vm.ErrKeyNotFound {
		t.Errorf("missing key raised %s, want KeyNotFound", err.ErrKind)
	}
	// .get degrades to null instead.
	wantNull(t, run(t, `{a: 1}.get("b")`))
}

func TestMapFieldAccess(t *testing.T) {
	wantStr(t, run(t, `
		m = {name: "quill", version: "0.1"}
		m.name
	`), "quill")
}

func TestMapEntryAsMethod(t *testing.T) {
	wantInt(t, run(t, `
		obj = {double: fn(x) { x * 2 }}
		obj.double(21)
	`), 42)
}

func TestStringMethods(t *testing.T) {
	wantBool(t, run(t, `"quill".starts_with("qu")`), true)
	wantStr(t, run(t, `"  pad  ".trim`), "pad")
	wantInt(t, run(t, `size("a,b,c".split(","))`), 3)
	wantInt(t, run(t, `"42".to_number + 1`), 43)
	wantNull(t, run(t, `"nope".to_number`))
}

func TestStringIndexing(t *testing.T) {
	wantStr(t, run(t, `"héllo"[1]`), "é")
}

// ---- vectors --------------------------------------------------------------------

func TestVecConstructionAndBroadcast(t *testing.T) {
	wantFloat(t, run(t, `make_num2(3, 4).length`), 5)
	// A single scalar fills every lane.
	wantBool(t, run(t, `make_num2(2) == make_num2(2, 2)`), true)
	wantBool(t, run(t, `make_num4(1) == make_num4(1, 1, 1, 1)`), true)
}

func TestVecArithmetic(t *testing.T) {
	wantBool(t, run(t, `make_num2(1, 2) + make_num2(3, 4) == make_num2(4, 6)`), true)
	// Scalars broadcast lane-wise.
	wantBool(t, run(t, `make_num2(1, 2) * 10 == make_num2(10, 20)`), true)
	wantFloat(t, run(t, `(make_num2(3, 4)).x + (make_num2(3, 4)).y`), 7)
}

func TestVecMissingLanesAreZero(t *testing.T) {
	wantBool(t, run(t, `make_num4(1, 1) == make_num4(1, 1, 0, 0)`), true)
}

func TestVecCompoundAssignment(t *testing.T) {
	wantBool(t, run(t, `
		v = make_num2(10, 11)
		v *= 2
		v == make_num2(20, 22)
	`), true)
	wantBool(t, run(t, `
		v = make_num2(20, 22)
		v %= 5
		v == make_num2(0, 2)
	`), true)
}

func TestVecIndexing(t *testing.T) {
	wantFloat(t, run(t, `make_num4(2, 3, 4, 5)[3]`), 5)
	err := runErr(t, `make_num4(2, 3, 4, 5)[4]`)
	if err.ErrKind != vm.ErrIndexOutOfBounds {
		t.Errorf("lane 4 raised %s, want IndexOutOfBounds", err.ErrKind)
	}
}

func TestVecDestructuringPadsWithNull(t *testing.T) {
	wantFloat(t, run(t, `
		a, b, c = make_num2(1, 2)
		b
	`), 2)
	wantNull(t, run(t, `
		a, b, c = make_num2(1, 2)
		c
	`))
}

func TestVecIteration(t *testing.T) {
	v := run(t, `make_num4(5, 6, 7, 8).iter().skip(2).to_list()`)
	l, ok := v.(*vm.List)
	if !ok || l.Len() != 2 {
		t.Fatalf("got %s, want the last two lanes", vm.Debug(v))
	}
	wantFloat(t, l.Elements[0], 7)
	wantFloat(t, l.Elements[1], 8)
}

// ---- errors and resources ---------------------------------------------------------

func TestThrowCarriesValue(t *testing.T) {
	err := runErr(t, `throw ("code", 42)`)
	if err.ErrKind != vm.ErrThrown {
		t.Fatalf("throw raised %s, want Thrown", err.ErrKind)
	}
	tup, ok := err.ThrownVal.(vm.Tuple)
	if !ok || len(tup) != 2 {
		t.Errorf("thrown value = %s, want a 2-tuple", vm.Debug(err.ThrownVal))
	}
}

func TestAssert(t *testing.T) {
	err := runErr(t, `assert 1 > 2`)
	if err.ErrKind != vm.ErrAssertion {
		t.Errorf("assert raised %s, want AssertionFailed", err.ErrKind)
	}
	run(t, `assert 1 < 2`)
}

func TestTracebackOrder(t *testing.T) {
	err := runErr(t, `
		inner = fn() { throw "boom" }
		outer = fn() { inner() }
		outer()
	`)
	if len(err.Trace) < 3 {
		t.Fatalf("trace has %d entries, want at least 3", len(err.Trace))
	}
	if err.Trace[0].Function != "inner" {
		t.Errorf("innermost frame = %q, want inner", err.Trace[0].Function)
	}
	if err.Trace[1].Function != "outer" {
		t.Errorf("second frame = %q, want outer", err.Trace[1].Function)
	}
	if err.Trace[0].Span.Line == 0 {
		t.Error("trace entry is missing its source line")
	}
}

func withResourceVM(t *testing.T) (*vm.VM, *int) {
	t.Helper()
	released := 0
	m := vm.New()
	m.RegisterValue("res", vm.NewObject("Res", nil, vm.Capabilities{
		Release: func(*vm.Object) error {
			released++
			return nil
		},
	}))
	return m, &released
}

func TestWithReleasesOnNormalExit(t *testing.T) {
	m, released := withResourceVM(t)
	if _, err := m.Run(compile(t, `with res as r { 1 }`)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if *released != 1 {
		t.Errorf("released %d times, want 1", *released)
	}
}

func TestWithReleasesOnError(t *testing.T) {
	m, released := withResourceVM(t)
	_, err := m.Run(compile(t, `with res as r { throw "fail" }`))
	if err == nil {
		t.Fatal("expected the thrown error to surface")
	}
	if *released != 1 {
		t.Errorf("released %d times, want 1", *released)
	}
}

func TestWithReleasesOnBreak(t *testing.T) {
	m, released := withResourceVM(t)
	if _, err := m.Run(compile(t, `
		for i in 1..10 {
			with res as r { break }
		}
	`)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if *released != 1 {
		t.Errorf("released %d times, want 1", *released)
	}
}

func TestWithReleasesOnReturn(t *testing.T) {
	m, released := withResourceVM(t)
	v, err := m.Run(compile(t, `
		f = fn() {
			with res as r { return 7 }
		}
		f()
	`))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	wantInt(t, v, 7)
	if *released != 1 {
		t.Errorf("released %d times, want 1", *released)
	}
}

func TestNestedWithReleasesInReverse(t *testing.T) {
	var order []string
	m := vm.New()
	mk := func(name string) *vm.Object {
		return vm.NewObject("Res", nil, vm.Capabilities{
			Release: func(*vm.Object) error {
				order = append(order, name)
				return nil
			},
		})
	}
	m.RegisterValue("a", mk("a"))
	m.RegisterValue("b", mk("b"))
	if _, err := m.Run(compile(t, `
		with a as x {
			with b as y { 1 }
		}
	`)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("release order = %v, want [b a]", order)
	}
}

// ---- host surface ---------------------------------------------------------------

func TestStrictGlobalsRejectsUnboundNames(t *testing.T) {
	m := vm.New()
	_, cerr := CompileScript("test.ql", `undefined_thing + 1`, &Options{Globals: m.GlobalNames()})
	if cerr == nil {
		t.Fatal("expected a compile error for an unbound name")
	}
	if !strings.Contains(cerr.Message, "not defined") {
		t.Errorf("error message = %q", cerr.Message)
	}
}

func TestUnboundGlobalFailsAtRuntimeByDefault(t *testing.T) {
	err := runErr(t, `missing()`)
	if !strings.Contains(err.Message, "not defined") {
		t.Errorf("error message = %q", err.Message)
	}
}

func TestReplModeGlobalsPersist(t *testing.T) {
	m := vm.New()
	first, cerr := CompileScript("<repl:1>", `greeting = "hello"`, &Options{ReplMode: true})
	if cerr != nil {
		t.Fatalf("compile error: %v", cerr)
	}
	if _, rerr := m.Run(first); rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}
	second, cerr := CompileScript("<repl:2>", `greeting + " again"`, &Options{ReplMode: true})
	if cerr != nil {
		t.Fatalf("compile error: %v", cerr)
	}
	v, rerr := m.Run(second)
	if rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}
	wantStr(t, v, "hello again")
}

func TestHostNativeRoundTrip(t *testing.T) {
	m := vm.New()
	m.RegisterNative("triple", func(_ *vm.VM, args []vm.Value) (vm.Value, error) {
		n := args[0].(vm.Number)
		return n.Mul(vm.Int(3)), nil
	})
	v, err := m.Run(compile(t, `triple(14)`))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	wantInt(t, v, 42)
}

func TestCallFunctionFromHost(t *testing.T) {
	m := vm.New()
	if _, err := m.Run(compile(t, `
		square = fn(x) { x * x }
	`)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	// The script binding is a frame local; expose one through a global
	// instead so the host can reach it.
	chunk, cerr := CompileScript("<repl>", `square = fn(x) { x * x }`, &Options{ReplMode: true})
	if cerr != nil {
		t.Fatalf("compile error: %v", cerr)
	}
	if _, err := m.Run(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	v, rerr := m.CallFunction(m.Globals["square"], []vm.Value{vm.Int(9)})
	if rerr != nil {
		t.Fatalf("CallFunction: %v", rerr)
	}
	wantInt(t, v, 81)
}

func TestPrintWritesToStdout(t *testing.T) {
	var sb strings.Builder
	m := vm.New()
	m.Stdout = &sb
	if _, err := m.Run(compile(t, `print("x", 1, [2])`)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if got := sb.String(); got != "x 1 [2]\n" {
		t.Errorf("print wrote %q", got)
	}
}

func TestDeterministicCompilation(t *testing.T) {
	src := `
		f = fn(n) { if n == 0 { 1 } else { n * f(n - 1) } }
		f(5)
	`
	a := compile(t, src)
	b := compile(t, src)
	if string(a.Code) != string(b.Code) {
		t.Error("compiling the same source twice produced different bytecode")
	}
	if len(a.Constants) != len(b.Constants) {
		t.Error("constant pools differ between identical compilations")
	}
}
