package compiler

import (
	"testing"

	"github.com/quill-lang/quill/vm"
)

func resolve(t *testing.T, input string) (*Module, *Resolutions) {
	t.Helper()
	module := parse(t, input)
	res, err := resolveModule("test.ql", module, nil, false)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	return module, res
}

func fnAt(t *testing.T, module *Module, stmt int) *FnExpr {
	t.Helper()
	assign, ok := module.Stmts[stmt].(*AssignStmt)
	if !ok {
		t.Fatalf("statement %d is %T, want assignment", stmt, module.Stmts[stmt])
	}
	fn, ok := assign.Value.(*FnExpr)
	if !ok {
		t.Fatalf("statement %d does not assign a fn", stmt)
	}
	return fn
}

func TestResolveSlotAllocation(t *testing.T) {
	_, res := resolve(t, `
		a = 1
		b = 2
		c = a + b
	`)
	if res.Main.LocalCount != 3 {
		t.Errorf("main locals = %d, want 3", res.Main.LocalCount)
	}
}

func TestResolveBlocksShareNoNames(t *testing.T) {
	// A loop variable is scoped to its loop; the same name declares a fresh
	// slot afterwards.
	_, res := resolve(t, `
		for i in 1..3 { i }
		i = 10
	`)
	if res.Main.LocalCount != 2 {
		t.Errorf("main locals = %d, want 2", res.Main.LocalCount)
	}
}

func TestResolveSnapshotCapture(t *testing.T) {
	module, res := resolve(t, `
		make = fn(x) { fn() { x } }
	`)
	outer := fnAt(t, module, 0)
	inner := outer.Body.Stmts[0].(*ExprStmt).Expr.(*FnExpr)
	info := res.Fns[inner]
	if len(info.Captures) != 1 {
		t.Fatalf("inner captures = %d, want 1", len(info.Captures))
	}
	// x is never written after capture: copied by value, no cell.
	if info.Captures[0].Kind != vm.CaptureValue {
		t.Error("unwritten capture is not a value snapshot")
	}
	if len(res.Fns[outer].BoxedSlots) != 0 {
		t.Error("outer boxed a slot it did not need to")
	}
}

func TestResolveSharedCellCapture(t *testing.T) {
	module, res := resolve(t, `
		make = fn() {
			c = 0
			fn() {
				c += 1
				c
			}
		}
	`)
	outer := fnAt(t, module, 0)
	inner := outer.Body.Stmts[1].(*ExprStmt).Expr.(*FnExpr)
	if got := res.Fns[inner].Captures[0].Kind; got != vm.CaptureCell {
		t.Errorf("written-through capture kind = %v, want cell", got)
	}
	if boxed := res.Fns[outer].BoxedSlots; len(boxed) != 1 || boxed[0] != 0 {
		t.Errorf("outer boxed slots = %v, want [0]", boxed)
	}
}

func TestResolveCaptureChain(t *testing.T) {
	module, res := resolve(t, `
		l1 = fn() {
			n = 0
			l2 = fn() {
				l3 = fn() { n += 1 }
				l3
			}
			l2
		}
	`)
	l1 := fnAt(t, module, 0)
	l2 := l1.Body.Stmts[1].(*AssignStmt).Value.(*FnExpr)
	l3 := l2.Body.Stmts[0].(*AssignStmt).Value.(*FnExpr)

	mid := res.Fns[l2].Captures
	if len(mid) != 1 || mid[0].FromCapture {
		t.Fatalf("middle captures = %+v, want one from-local capture", mid)
	}
	deep := res.Fns[l3].Captures
	if len(deep) != 1 || !deep[0].FromCapture {
		t.Fatalf("inner captures = %+v, want one from-capture capture", deep)
	}
	if deep[0].Kind != vm.CaptureCell {
		t.Error("chain did not preserve the cell kind")
	}
}

func TestResolveRecursiveDefinitionSharesCell(t *testing.T) {
	module, res := resolve(t, `
		fact = fn(n) { if n == 0 { 1 } else { n * fact(n - 1) } }
	`)
	fn := fnAt(t, module, 0)
	caps := res.Fns[fn].Captures
	if len(caps) != 1 || caps[0].Kind != vm.CaptureCell {
		t.Fatalf("recursive capture = %+v, want one cell capture", caps)
	}
	// The binding slot must be boxed so the closure sees the later store.
	if len(res.Main.BoxedSlots) != 1 {
		t.Errorf("main boxed slots = %v, want one", res.Main.BoxedSlots)
	}
}

func TestResolveUnknownNameIsGlobalByDefault(t *testing.T) {
	module, res := resolve(t, `some_host_binding(1)`)
	call := module.Stmts[0].(*ExprStmt).Expr.(*CallExpr)
	ref := res.Refs[call.Callee.(*Ident)]
	if ref.Kind != RefGlobal {
		t.Errorf("unbound name resolved to %v, want global", ref.Kind)
	}
}

func TestResolveKnownGlobalsRestrict(t *testing.T) {
	module := parse(t, `print(undefined_thing)`)
	_, err := resolveModule("test.ql", module, []string{"print"}, false)
	if err == nil {
		t.Fatal("unbound name passed a restricted global check")
	}
}

func TestResolveTooManyLocals(t *testing.T) {
	var sb []byte
	for i := 0; i < 300; i++ {
		sb = append(sb, []byte("v")...)
		sb = append(sb, byte('a'+i%26), byte('a'+(i/26)%26), byte('a'+(i/676)%26))
		sb = append(sb, []byte(" = 1\n")...)
	}
	module := parse(t, string(sb))
	_, err := resolveModule("test.ql", module, nil, false)
	if err == nil {
		t.Fatal("300 locals resolved without error")
	}
}

func TestResolveReplModeBindsGlobals(t *testing.T) {
	module := parse(t, `session_var = 1`)
	res, err := resolveModule("test.ql", module, nil, true)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	assign := module.Stmts[0].(*AssignStmt)
	if ref := res.Refs[assign.Targets[0].(*Ident)]; ref.Kind != RefGlobal {
		t.Errorf("top-level repl write resolved to %v, want global", ref.Kind)
	}
	if res.Main.LocalCount != 0 {
		t.Errorf("repl chunk allocated %d locals, want 0", res.Main.LocalCount)
	}
}
