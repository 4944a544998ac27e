package runner

import (
	"bytes"
	"strings"
	"testing"

	"youth/internal/errors"
	"youth/internal/lexer"
)

func TestRunOutput(t *testing.T) {
	result := Run(`tell "foo" + "bar"; tell 1 + 2;`)
	if !result.OK() {
		t.Fatalf("errors: %v", result.Errors)
	}
	if strings.Join(result.Output, ",") != "foobar,3" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestStaticErrorsPreventExecution(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
		kind  errors.ErrorType
	}{
		{"lexical", "tell 1;\ntell @;", 1, errors.LexError},
		{"syntax", "tell 1;\ntell (;\ntell 3", 2, errors.SyntaxError},
		{"resolution", "tell 1;\ngive 2;", 1, errors.ResolutionError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Run(test.input)
			if !result.HadStaticError || result.HadRuntimeError {
				t.Fatalf("flags = static %v runtime %v", result.HadStaticError, result.HadRuntimeError)
			}
			if len(result.Output) != 0 {
				t.Errorf("nothing may run after a static error, got %q", result.Output)
			}
			if len(result.Errors) < test.count {
				t.Fatalf("got %d errors, want at least %d: %v", len(result.Errors), test.count, result.Errors)
			}
			if result.Errors[0].Type != test.kind {
				t.Errorf("first error = %s, want %s", result.Errors[0].Type, test.kind)
			}
			if result.Errors[0].Source == "" {
				t.Error("static errors should carry the offending source line")
			}
		})
	}
}

func TestResolutionRunsAfterSyntaxErrors(t *testing.T) {
	var out bytes.Buffer
	result := Run("give 1;\ntell (;\ntell 3;", WithStdout(&out))
	if !result.HadStaticError || out.Len() != 0 {
		t.Fatalf("static %v, output %q", result.HadStaticError, out.String())
	}

	var kinds []string
	for _, e := range result.Errors {
		kinds = append(kinds, string(e.Type))
	}
	if strings.Join(kinds, ",") != "SyntaxError,ResolutionError" {
		t.Fatalf("errors = %v", result.Errors)
	}
	if result.Errors[1].Message != "Can't return from top-level code." || result.Errors[1].Location.Line != 1 {
		t.Errorf("resolution error = %+v", result.Errors[1])
	}

	errs := Check("give 1;\ntell (;")
	if len(errs) != 2 {
		t.Errorf("Check reported %d errors, want 2: %v", len(errs), errs)
	}
}

func TestRuntimeErrorKeepsEarlierOutput(t *testing.T) {
	result := Run("tell 1;\ntell -\"x\";\ntell 3;", WithFile("demo.youth"))
	if result.HadStaticError || !result.HadRuntimeError {
		t.Fatalf("flags = static %v runtime %v", result.HadStaticError, result.HadRuntimeError)
	}
	if strings.Join(result.Output, ",") != "1" {
		t.Errorf("output = %q", result.Output)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	err := result.Errors[0]
	want := "demo.youth:[line 2] RuntimeError at '-': Operand must be a number."
	if err.Header() != want {
		t.Errorf("header = %q, want %q", err.Header(), want)
	}
	if err.Source != `tell -"x";` {
		t.Errorf("source = %q", err.Source)
	}
}

func TestSessionKeepsGlobals(t *testing.T) {
	var stdout bytes.Buffer
	session := NewSession(WithStdout(&stdout))

	if r := session.Run("is greeting = \"hi\";"); !r.OK() {
		t.Fatal(r.Errors)
	}
	r := session.Run("tell greeting;")
	if !r.OK() {
		t.Fatal(r.Errors)
	}
	if strings.Join(r.Output, ",") != "hi" {
		t.Errorf("output = %q", r.Output)
	}
	if stdout.String() != "hi\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	// a redeclaration in a later run replaces the global
	if r := session.Run("is greeting = \"bye\"; tell greeting;"); !r.OK() || r.Output[0] != "bye" {
		t.Errorf("redeclare: %+v", r)
	}
}

func TestSessionRecoversAfterRuntimeError(t *testing.T) {
	session := NewSession()
	if r := session.Run("( is a = 1; tell a + emptiness; )"); !r.HadRuntimeError {
		t.Fatal("expected a runtime error")
	}
	r := session.Run("is b = 2; tell b;")
	if !r.OK() || strings.Join(r.Output, ",") != "2" {
		t.Errorf("session unusable after error: %+v", r)
	}
}

func TestTokens(t *testing.T) {
	tokens, errs := Tokens("is x = 1;")
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	var types []lexer.TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	want := []lexer.TokenType{lexer.TokenIs, lexer.TokenIdent, lexer.TokenEqual, lexer.TokenNumber, lexer.TokenSemicolon, lexer.TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"tell 1;", false},
		{"listen f() (", true},
		{"tell 1 +", true},
		{`tell "open`, true},
		{"( is a = 1;", true},
		{"tell );", false},
		{"tell 1 2;", false},
	}
	for _, test := range tests {
		if got := Incomplete(test.input); got != test.expected {
			t.Errorf("Incomplete(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func TestCheckDoesNotExecute(t *testing.T) {
	var out bytes.Buffer
	if errs := Check("tell 1;", WithStdout(&out)); len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if out.Len() != 0 {
		t.Errorf("Check printed %q", out.String())
	}

	errs := Check("(\n  is a = 1;\n  is a = 2;\n)", WithFile("dup.youth"))
	if len(errs) != 1 || errs[0].Type != errors.ResolutionError {
		t.Fatalf("errs = %v", errs)
	}
	if !strings.HasPrefix(errs[0].Header(), "dup.youth:[line 3]") {
		t.Errorf("header = %q", errs[0].Header())
	}
}
