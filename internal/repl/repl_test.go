package repl

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"youth/internal/config"
	"youth/internal/history"
)

type memoryRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memoryRecorder) Record(_ context.Context, e history.Entry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return "id", nil
}

func start(t *testing.T, input string, opts ...Option) (string, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	var out, errOut bytes.Buffer
	opts = append([]Option{WithIO(strings.NewReader(input), &out, &errOut), WithLogger(logger)}, opts...)
	r := New(config.Default().REPL, opts...)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return out.String(), errOut.String()
}

func TestGlobalsPersistBetweenEntries(t *testing.T) {
	out, errOut := start(t, "is a = 20;\nis b = a + 22;\ntell b;\n")
	if out != "42\n" {
		t.Errorf("output = %q", out)
	}
	if errOut != "" {
		t.Errorf("errors = %q", errOut)
	}
}

func TestMultiLineEntry(t *testing.T) {
	input := "listen add(a, b) (\n  give a + b;\n)\ntell add(1,\n 2);\n"
	out, errOut := start(t, input)
	if out != "3\n" || errOut != "" {
		t.Errorf("output = %q, errors = %q", out, errOut)
	}
}

func TestErrorsDoNotEndTheSession(t *testing.T) {
	out, errOut := start(t, "tell -\"x\";\ntell 1 +;\ntell 7;\n")
	if out != "7\n" {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(errOut, "Operand must be a number.") {
		t.Errorf("missing runtime error: %q", errOut)
	}
	if !strings.Contains(errOut, "Expect expression.") {
		t.Errorf("missing syntax error: %q", errOut)
	}
	if strings.Contains(errOut, "\033[") {
		t.Error("no color expected off a terminal")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"quit stops reading", "tell 1;\n:quit\ntell 2;\n", "1\n"},
		{"exit stops reading", "exit\ntell 2;\n", ""},
		{"help", ":help\n", helpText + "\n"},
		{"unknown", ":what\n", "unknown command :what. Type :help for a list.\n"},
		{"reset forgets globals", "is a = 1;\n:reset\ntell a;\n", "globals cleared\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, _ := start(t, test.input)
			if out != test.want {
				t.Errorf("output = %q, want %q", out, test.want)
			}
		})
	}
}

func TestUnfinishedEntryAtEOFIsReported(t *testing.T) {
	_, errOut := start(t, "tell (1 +\n")
	if errOut == "" {
		t.Error("an unfinished entry at end of input should report its error")
	}
}

func TestEntriesAreRecorded(t *testing.T) {
	rec := &memoryRecorder{}
	start(t, "tell 1;\n\n:help\nnope;\n", WithRecorder(rec))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(rec.entries))
	}
	if rec.entries[0].Origin != "repl" || rec.entries[0].Output != "1" {
		t.Errorf("first entry = %+v", rec.entries[0])
	}
	if rec.entries[1].Status() != "runtime error" {
		t.Errorf("second entry status = %q", rec.entries[1].Status())
	}
}
