package compiler

import (
	"strings"
	"testing"
)

func parse(t *testing.T, input string) *Module {
	t.Helper()
	module, err := Parse("test.ql", input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return module
}

func parseErr(t *testing.T, input string) *CompileError {
	t.Helper()
	_, err := Parse("test.ql", input)
	if err == nil {
		t.Fatalf("%q parsed without error", input)
	}
	return err
}

func TestParsePrecedence(t *testing.T) {
	module := parse(t, "1 + 2 * 3")
	bin := module.Stmts[0].(*ExprStmt).Expr.(*BinaryExpr)
	if bin.Op != BinAdd {
		t.Fatalf("top operator = %v, want add", bin.Op)
	}
	right := bin.Right.(*BinaryExpr)
	if right.Op != BinMul {
		t.Errorf("right operand = %v, want mul", right.Op)
	}
}

func TestParseComparisonBindsLooserThanRange(t *testing.T) {
	module := parse(t, "a..b == c..d")
	bin := module.Stmts[0].(*ExprStmt).Expr.(*BinaryExpr)
	if bin.Op != BinEq {
		t.Fatalf("top operator = %v, want eq", bin.Op)
	}
	if _, ok := bin.Left.(*RangeExpr); !ok {
		t.Error("left side of == is not a range")
	}
}

func TestParseMethodChain(t *testing.T) {
	module := parse(t, "xs.keep(f).each(g).sum")
	sum := module.Stmts[0].(*ExprStmt).Expr.(*MethodCallExpr)
	if sum.Name != "sum" || sum.Args != nil {
		t.Fatalf("outermost call = %q with %d args, want bare sum", sum.Name, len(sum.Args))
	}
	each := sum.Recv.(*MethodCallExpr)
	if each.Name != "each" || len(each.Args) != 1 {
		t.Errorf("middle call = %q with %d args", each.Name, len(each.Args))
	}
}

func TestParseDestructuring(t *testing.T) {
	module := parse(t, "a, b, c = values")
	assign := module.Stmts[0].(*AssignStmt)
	if len(assign.Targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(assign.Targets))
	}
	if assign.Op != AssignSet {
		t.Error("destructuring is not a plain assignment")
	}
}

func TestParseCompoundAssignTargets(t *testing.T) {
	parse(t, "x += 1")
	parse(t, "xs[0] *= 2")
	err := parseErr(t, "f() = 3")
	if !strings.Contains(err.Message, "assignment target") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestParseFnNamedFromAssignment(t *testing.T) {
	module := parse(t, "double = fn(x) { x * 2 }")
	fn := module.Stmts[0].(*AssignStmt).Value.(*FnExpr)
	if fn.Name != "double" {
		t.Errorf("fn name = %q, want double", fn.Name)
	}
}

func TestParseVariadic(t *testing.T) {
	module := parse(t, "f = fn(a, rest...) { rest }")
	fn := module.Stmts[0].(*AssignStmt).Value.(*FnExpr)
	if !fn.Variadic || len(fn.Params) != 2 {
		t.Errorf("variadic = %v with %d params", fn.Variadic, len(fn.Params))
	}
	err := parseErr(t, "f = fn(rest..., tail) { 0 }")
	if !strings.Contains(err.Message, "variadic parameter must be last") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestParseGeneratorDetection(t *testing.T) {
	module := parse(t, `
		gen = fn() { yield 1 }
		plain = fn() { inner = fn() { yield 2 } 1 }
	`)
	gen := module.Stmts[0].(*AssignStmt).Value.(*FnExpr)
	if !gen.IsGenerator {
		t.Error("fn with yield not marked as generator")
	}
	// A nested generator does not make the enclosing fn a generator.
	plain := module.Stmts[1].(*AssignStmt).Value.(*FnExpr)
	if plain.IsGenerator {
		t.Error("enclosing fn wrongly marked as generator")
	}
}

func TestParseYieldAtTopLevel(t *testing.T) {
	err := parseErr(t, "yield 1")
	if !strings.Contains(err.Message, "yield outside a function") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestParseIfElseChain(t *testing.T) {
	module := parse(t, "if a { 1 } else if b { 2 } else { 3 }")
	ifExpr := module.Stmts[0].(*ExprStmt).Expr.(*IfExpr)
	nested, ok := ifExpr.Else.(*IfExpr)
	if !ok {
		t.Fatal("else-if did not nest")
	}
	if _, ok := nested.Else.(*Block); !ok {
		t.Error("final else is not a block")
	}
}

func TestParseMatch(t *testing.T) {
	module := parse(t, `match x { 1 => "one", else => "other" }`)
	m := module.Stmts[0].(*ExprStmt).Expr.(*MatchExpr)
	if len(m.Arms) != 2 {
		t.Fatalf("got %d arms, want 2", len(m.Arms))
	}
	if m.Arms[1].Pattern != nil {
		t.Error("else arm has a pattern")
	}
	err := parseErr(t, `match x { else => 1, else => 2 }`)
	if !strings.Contains(err.Message, "duplicate else") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestParseMapLiteralKeys(t *testing.T) {
	module := parse(t, `{name: 1, "quoted key": 2, 3: "three"}`)
	m := module.Stmts[0].(*ExprStmt).Expr.(*MapLiteral)
	if len(m.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(m.Entries))
	}
	// A bare identifier key is sugar for a string key.
	if key, ok := m.Entries[0].Key.(*StringLiteral); !ok || key.Value != "name" {
		t.Error("bare identifier key did not become a string")
	}
}

func TestParseTuples(t *testing.T) {
	module := parse(t, "()")
	if tup := module.Stmts[0].(*ExprStmt).Expr.(*TupleLiteral); len(tup.Elements) != 0 {
		t.Error("() is not the empty tuple")
	}
	module = parse(t, "(1, 2)")
	if tup := module.Stmts[0].(*ExprStmt).Expr.(*TupleLiteral); len(tup.Elements) != 2 {
		t.Error("(1, 2) is not a 2-tuple")
	}
	// A parenthesized expression is not a tuple.
	module = parse(t, "(1)")
	if _, ok := module.Stmts[0].(*ExprStmt).Expr.(*IntLiteral); !ok {
		t.Error("(1) did not parse as a plain expression")
	}
}

func TestParseWith(t *testing.T) {
	module := parse(t, "with open() as f { f }")
	w := module.Stmts[0].(*WithStmt)
	if w.Name.Name != "f" {
		t.Errorf("resource name = %q, want f", w.Name.Name)
	}
}

func TestParseForMultipleTargets(t *testing.T) {
	module := parse(t, "for k, v in m { k }")
	f := module.Stmts[0].(*ForStmt)
	if len(f.Targets) != 2 {
		t.Errorf("got %d targets, want 2", len(f.Targets))
	}
}

func TestParseReportsFirstErrorOnly(t *testing.T) {
	err := parseErr(t, "if { ] )")
	// One coherent error with a position, not a cascade.
	if err.Span.Start.Line != 1 {
		t.Errorf("error line = %d, want 1", err.Span.Start.Line)
	}
}
