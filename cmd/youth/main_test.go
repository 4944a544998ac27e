package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"youth": func() int {
			return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
		},
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("HOME", env.WorkDir)
			env.Setenv("YOUTH_CONFIG", "")
			return nil
		},
	})
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := dir + "/" + name
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"ok", []string{"run", write("ok.youth", "tell 1;")}, exitOK},
		{"bare file", []string{write("bare.youth", "tell 1;")}, exitOK},
		{"static", []string{"run", write("static.youth", "tell ;")}, exitStatic},
		{"runtime", []string{"run", write("runtime.youth", "tell -\"a\";")}, exitRuntime},
		{"missing file", []string{"run", dir + "/missing.youth"}, exitIO},
		{"run needs a file", []string{"run"}, exitUsage},
		{"unknown flag", []string{"-nope"}, exitUsage},
		{"unknown command", []string{"frobnicate", "x"}, exitUsage},
		{"bad history count", []string{"history", "zero"}, exitUsage},
		{"version", []string{"version"}, exitOK},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(test.args, strings.NewReader(""), &stdout, &stderr)
			if code != test.code {
				t.Errorf("exit = %d, want %d\nstderr: %s", code, test.code, stderr.String())
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := map[string]string{
		"tell 1;":            "tell 1;",
		"  tell 1;\ntell 2;": "tell 1; ...",
		"":                   "",
	}
	for in, want := range tests {
		if got := firstLine(in); got != want {
			t.Errorf("firstLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := map[string]string{
		"3f2b8c1e-0000-4000-8000-000000000000": "3f2b8c1e",
		"run-1":                                "run-1",
		"":                                     "",
	}
	for in, want := range tests {
		if got := shortID(in); got != want {
			t.Errorf("shortID(%q) = %q, want %q", in, got, want)
		}
	}
}
