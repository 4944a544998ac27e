package interpreter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"youth/internal/errors"
	"youth/internal/lexer"
	"youth/internal/parser"
	"youth/internal/resolver"
)

// runSource runs a program through the whole pipeline and returns the printed
// lines and the runtime error, if any. Static errors fail the test.
func runSource(t *testing.T, in *Interpreter, src string) ([]string, error) {
	t.Helper()
	p := parser.NewParser(lexer.NewScanner(src).ScanTokens())
	stmts := p.Parse()
	if p.HadError() {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	locals, errs := resolver.New().Resolve(stmts)
	if len(errs) > 0 {
		t.Fatalf("resolution errors: %v", errs)
	}

	var lines []string
	in.onPrint = func(line string) { lines = append(lines, line) }
	in.Resolve(locals)
	err := in.Interpret(stmts)
	return lines, err
}

func newTestInterpreter() *Interpreter {
	return New(WithStdout(nil))
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"arithmetic", "tell 1 + 2;", []string{"3"}},
		{"precedence", "tell 1 + 2 * 3 - 4 / 2;", []string{"5"}},
		{"fraction", "tell 7 / 2;", []string{"3.5"}},
		{"unary minus", "tell -(2 + 3);", []string{"-5"}},
		{"concatenation", `tell "foo" + "bar";`, []string{"foobar"}},
		{"booleans", "tell surely; tell impossible;", []string{"true", "false"}},
		{"emptiness", "tell emptiness;", []string{"emptiness"}},
		{"uninitialized variable", "is x; tell x;", []string{"emptiness"}},
		{"not", "tell !surely; tell not emptiness; tell !0;", []string{"false", "true", "false"}},
		{"zero and empty string are truthy", `if (0) tell "zero"; if ("") tell "empty";`, []string{"zero", "empty"}},
		{"equality", `tell 1 == 1; tell "a" == "a"; tell emptiness == emptiness; tell emptiness == impossible; tell 1 != "1";`,
			[]string{"true", "true", "true", "false", "true"}},
		{"comparison", "tell 1 < 2; tell 2 <= 2; tell 3 > 4; tell 4 >= 5;", []string{"true", "true", "false", "false"}},
		{"division by zero", "tell 1 / 0;", []string{"Infinity"}},
		{"assignment value", "is a; is b; a = b = 3; tell a; tell b;", []string{"3", "3"}},
		{"if else", `if (1 > 2) tell "yes"; else tell "no";`, []string{"no"}},
		{"while", "is i = 0; while (i < 3) ( tell i; i = i + 1; )", []string{"0", "1", "2"}},
		{"for", "for (is i = 0; i < 3; i = i + 1) tell i;", []string{"0", "1", "2"}},
		{"or returns operand", `tell emptiness or "fallback"; tell "first" or "second";`, []string{"fallback", "first"}},
		{"and returns operand", `tell impossible and 1; tell 1 and 2;`, []string{"false", "2"}},
		{"function", "listen add(a, b) ( give a + b; ) tell add(1, 2);", []string{"3"}},
		{"implicit emptiness", "listen f() ( ) tell f();", []string{"emptiness"}},
		{"bare give", "listen f() ( give; ) tell f();", []string{"emptiness"}},
		{"give stops the body", `listen f() ( give 1; tell "unreachable"; ) tell f();`, []string{"1"}},
		{"give from loop", "listen f() ( while (surely) ( give 7; ) ) tell f();", []string{"7"}},
		{"recursion", "listen fib(n) ( if (n < 2) give n; give fib(n - 1) + fib(n - 2); ) tell fib(15);", []string{"610"}},
		{"function value", "listen f() ( ) tell f;", []string{"<fn f>"}},
		{"native value", "tell clock;", []string{"<native fn>"}},
		{"str native", `tell str(12) + "!";`, []string{"12!"}},
		{"len native", `tell len("youth");`, []string{"5"}},
		{"alias keywords", "am happy = surely; are we = happy; tell we;", []string{"true"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lines, err := runSource(t, newTestInterpreter(), test.input)
			if err != nil {
				t.Fatalf("runtime error: %v", err)
			}
			if strings.Join(lines, "\n") != strings.Join(test.expected, "\n") {
				t.Errorf("output = %q, want %q", lines, test.expected)
			}
		})
	}
}

func TestShadowingRestoresOuterBinding(t *testing.T) {
	src := `
is a = "global";
(
  is a = "block";
  tell a;
)
tell a;
`
	lines, err := runSource(t, newTestInterpreter(), src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "block,global" {
		t.Errorf("output = %q", lines)
	}
}

func TestClosureSeesDeclarationScope(t *testing.T) {
	// The closure resolves a to the global even after a block shadows it.
	src := `
is a = "global";
(
  listen showA() ( tell a; )
  showA();
  is a = "block";
  showA();
)
`
	lines, err := runSource(t, newTestInterpreter(), src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "global,global" {
		t.Errorf("output = %q, want the global printed twice", lines)
	}
}

func TestClosureCounterKeepsState(t *testing.T) {
	src := `
listen makeCounter() (
  is count = 0;
  listen inc() (
    count = count + 1;
    give count;
  )
  give inc;
)
is a = makeCounter();
is b = makeCounter();
tell a();
tell a();
tell b();
tell a();
`
	lines, err := runSource(t, newTestInterpreter(), src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "1,2,1,3" {
		t.Errorf("output = %q", lines)
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	in := newTestInterpreter()
	calls := 0
	in.Globals().Define("touch", NewNativeFunction("touch", 0, func(*Interpreter, []Value) (Value, error) {
		calls++
		return true, nil
	}))

	lines, err := runSource(t, in, "tell surely or touch(); tell impossible and touch(); tell impossible or touch();")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("right operand evaluated %d times, want 1", calls)
	}
	if strings.Join(lines, ",") != "true,false,true" {
		t.Errorf("output = %q", lines)
	}
}

func TestArityMismatchDoesNotRunBody(t *testing.T) {
	lines, err := runSource(t, newTestInterpreter(), `listen f() ( tell "ran"; ) f(1);`)
	if err == nil {
		t.Fatal("expected an arity error")
	}
	if len(lines) != 0 {
		t.Errorf("body ran: %q", lines)
	}
	rerr := err.(*errors.Error)
	if rerr.Message != "Expected 0 arguments but got 1." {
		t.Errorf("message = %q", rerr.Message)
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
	}{
		{"negate string", `tell -"a";`, "Operand must be a number.", 1},
		{"subtract string", "tell 1 -\n \"a\";", "Operands must be numbers.", 1},
		{"compare mixed", `tell 1 < "2";`, "Operands must be numbers.", 1},
		{"add mixed", `tell 1 + "a";`, "Operands must be two numbers or two strings.", 1},
		{"undefined read", "tell 1;\ntell nope;", "Undefined variable 'nope'.", 2},
		{"undefined assign", "nope = 1;", "Undefined variable 'nope'.", 1},
		{"call number", "is x = 1;\nx();", "Can only call functions and youths.", 2},
		{"property on number", "is x = 1; tell x.y;", "Only instances have properties.", 1},
		{"field on string", `is x = "s"; x.y = 1;`, "Only instances have fields.", 1},
		{"undefined property", "youth A ( ) is a = A(); tell a.missing;", "Undefined property 'missing'.", 1},
		{"native misuse", "tell len(1);", "len() expects a string, got number", 1},
		{"runaway recursion", "listen f() ( give f(); ) f();", "Stack overflow.", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := runSource(t, newTestInterpreter(), test.input)
			if err == nil {
				t.Fatal("expected a runtime error")
			}
			rerr, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("error type %T", err)
			}
			if rerr.Type != errors.RuntimeError {
				t.Errorf("type = %s", rerr.Type)
			}
			if rerr.Message != test.message {
				t.Errorf("message = %q, want %q", rerr.Message, test.message)
			}
			if rerr.Location.Line != test.line {
				t.Errorf("line = %d, want %d", rerr.Location.Line, test.line)
			}
		})
	}
}

func TestRuntimeErrorStopsExecution(t *testing.T) {
	lines, err := runSource(t, newTestInterpreter(), "tell 1;\ntell -\"x\";\ntell 3;")
	if err == nil {
		t.Fatal("expected runtime error")
	}
	if strings.Join(lines, ",") != "1" {
		t.Errorf("output = %q, want only the first line", lines)
	}
}

func TestRuntimeErrorRecordsCallStack(t *testing.T) {
	src := "listen inner() ( give -\"x\"; )\nlisten outer() ( give inner(); )\nouter();"
	_, err := runSource(t, newTestInterpreter(), src)
	rerr, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if len(rerr.CallStack) != 2 {
		t.Fatalf("call stack = %+v", rerr.CallStack)
	}
	if rerr.CallStack[0].Function != "inner" || rerr.CallStack[0].Line != 2 {
		t.Errorf("frame 0 = %+v", rerr.CallStack[0])
	}
	if rerr.CallStack[1].Function != "outer" || rerr.CallStack[1].Line != 3 {
		t.Errorf("frame 1 = %+v", rerr.CallStack[1])
	}
}

func TestEnvironmentRestoredAfterError(t *testing.T) {
	in := newTestInterpreter()
	if _, err := runSource(t, in, "( is a = 1; tell -\"x\"; )"); err == nil {
		t.Fatal("expected runtime error")
	}
	if in.environment != in.globals {
		t.Error("environment not restored to globals after a failed block")
	}
}

func TestStateSurvivesAcrossRuns(t *testing.T) {
	in := newTestInterpreter()
	if _, err := runSource(t, in, "is total = 40; listen add(n) ( total = total + n; )"); err != nil {
		t.Fatal(err)
	}
	lines, err := runSource(t, in, "add(2); tell total;")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "42" {
		t.Errorf("output = %q", lines)
	}
}

func TestEachRunUsesItsOwnResolutionTable(t *testing.T) {
	in := newTestInterpreter()
	first := `
listen makeAdder(n) (
  listen add(x) ( give x + n; )
  give add;
)
youth Box ( listen get() ( is v = me.v; give v; ) )
`
	if _, err := runSource(t, in, first); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		lines, err := runSource(t, in, "is b = Box(); b.v = 1; (is plus = makeAdder(2); tell plus(b.get());)")
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(lines, ",") != "3" {
			t.Errorf("run %d output = %q", i, lines)
		}
		if len(in.locals) > 8 {
			t.Errorf("run %d: table has %d entries, earlier runs are being retained", i, len(in.locals))
		}
	}
}

func TestClasses(t *testing.T) {
	src := `
youth Cat (
  listen speak() ( give me.name + " says meow"; )
  listen rename(n) ( me.name = n; )
)
tell Cat;
is tom = Cat();
tell tom;
tom.name = "Tom";
tell tom.speak();
tom.rename("Thomas");
tell tom.name;
is speak = tom.speak;
tell speak();
`
	lines, err := runSource(t, newTestInterpreter(), src)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Cat", "Cat instance", "Tom says meow", "Thomas", "Thomas says meow"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("output = %q, want %q", lines, want)
	}
}

func TestFieldsShadowMethods(t *testing.T) {
	src := `youth A ( listen f() ( give "method"; ) ) is a = A(); a.f = "field"; tell a.f;`
	lines, err := runSource(t, newTestInterpreter(), src)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "field" {
		t.Errorf("output = %q", lines)
	}
}

func TestClassArity(t *testing.T) {
	_, err := runSource(t, newTestInterpreter(), "youth A ( ) A(1);")
	if err == nil || err.(*errors.Error).Message != "Expected 0 arguments but got 1." {
		t.Errorf("err = %v", err)
	}
}

func TestTellWritesToStdout(t *testing.T) {
	var buf bytes.Buffer
	in := New(WithStdout(&buf))
	if _, err := runSource(t, in, `tell "hello"; tell 2;`); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello\n2\n" {
		t.Errorf("stdout = %q", buf.String())
	}
}

func TestClockUsesInjectedTime(t *testing.T) {
	base := time.Unix(1000, 0)
	current := base
	in := New(WithStdout(nil), WithClock(func() time.Time { return current }))
	current = base.Add(1500 * time.Millisecond)

	lines, err := runSource(t, in, "tell clock();")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "1001.5" {
		t.Errorf("clock() = %q, want 1001.5", lines)
	}
}

func TestEnvironmentChain(t *testing.T) {
	name := func(s string) lexer.Token { return lexer.Token{Type: lexer.TokenIdent, Lexeme: s, Line: 1} }

	global := NewEnvironment(nil)
	global.Define("a", 1.0)
	middle := NewEnvironment(global)
	inner := NewEnvironment(middle)
	inner.Define("a", 2.0)

	if v, _ := inner.Get(name("a")); v != 2.0 {
		t.Errorf("Get(a) = %v, want innermost 2", v)
	}
	if v, _ := inner.GetAt(2, name("a")); v != 1.0 {
		t.Errorf("GetAt(2, a) = %v, want 1", v)
	}
	if err := inner.AssignAt(2, name("a"), 3.0); err != nil {
		t.Fatal(err)
	}
	if v, _ := global.Get(name("a")); v != 3.0 {
		t.Errorf("global a = %v after AssignAt", v)
	}
	if err := middle.Assign(name("a"), 4.0); err != nil {
		t.Fatal(err)
	}
	if v, _ := global.Get(name("a")); v != 4.0 {
		t.Errorf("Assign did not walk to the global frame, a = %v", v)
	}
	if _, err := inner.GetAt(1, name("a")); err == nil {
		t.Error("GetAt must not fall back to other frames")
	}
	if err := global.Assign(name("b"), 1.0); err == nil {
		t.Error("assigning an undeclared name must fail")
	}
	if inner.Ancestor(5) != nil {
		t.Error("Ancestor past the root must be nil")
	}
}
