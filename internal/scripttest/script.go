// Package scripttest runs youth programs annotated with their expected
// behavior and reports the results.
//
// Annotations are comments:
//
//	tell 1 + 2; aside expect: 3
//	aside expect static error
//	aside expect runtime error: Operand must be a number.
package scripttest

import (
	"fmt"
	"strings"

	"youth/internal/runner"
)

const (
	expectPrefix  = "aside expect"
	staticMarker  = "static error"
	runtimeMarker = "runtime error"
)

// Script is a parsed test file.
type Script struct {
	Path   string
	Source string

	Expected      []string
	ExpectStatic  bool
	ExpectRuntime bool
	RuntimeText   string // substring the runtime error message must contain
}

// ParseScript extracts the expectations from source.
func ParseScript(path, source string) (*Script, error) {
	s := &Script{Path: path, Source: source}

	for i, line := range strings.Split(source, "\n") {
		idx := strings.Index(line, expectPrefix)
		if idx < 0 {
			continue
		}
		rest := strings.TrimRight(line[idx+len(expectPrefix):], "\r")

		switch {
		case strings.HasPrefix(rest, ":"):
			s.Expected = append(s.Expected, strings.TrimPrefix(strings.TrimPrefix(rest, ":"), " "))

		case strings.TrimSpace(rest) == staticMarker:
			s.ExpectStatic = true

		case strings.HasPrefix(strings.TrimSpace(rest), runtimeMarker):
			s.ExpectRuntime = true
			text := strings.TrimPrefix(strings.TrimSpace(rest), runtimeMarker)
			s.RuntimeText = strings.TrimSpace(strings.TrimPrefix(text, ":"))

		default:
			return nil, fmt.Errorf("%s:%d: malformed annotation %q", path, i+1, strings.TrimSpace(line[idx:]))
		}
	}

	if s.ExpectStatic && s.ExpectRuntime {
		return nil, fmt.Errorf("%s: cannot expect both a static and a runtime error", path)
	}
	return s, nil
}

// Check compares a run against the script's expectations and returns one
// message per mismatch.
func (s *Script) Check(result runner.Result) []string {
	var failures []string

	switch {
	case s.ExpectStatic:
		if !result.HadStaticError {
			failures = append(failures, "expected a static error, program compiled")
		}
		// nothing runs after a static error, so output is not compared
		return failures

	case result.HadStaticError:
		for _, e := range result.Errors {
			failures = append(failures, "unexpected "+e.Header())
		}
		return failures

	case s.ExpectRuntime:
		if !result.HadRuntimeError {
			failures = append(failures, "expected a runtime error, program finished")
		} else if msg := result.Errors[0].Message; !strings.Contains(msg, s.RuntimeText) {
			failures = append(failures, fmt.Sprintf("runtime error %q does not contain %q", msg, s.RuntimeText))
		}

	case result.HadRuntimeError:
		failures = append(failures, "unexpected "+result.Errors[0].Header())
	}

	return append(failures, diffOutput(s.Expected, result.Output)...)
}

func diffOutput(want, got []string) []string {
	var failures []string
	for i := 0; i < len(want) || i < len(got); i++ {
		switch {
		case i >= len(got):
			failures = append(failures, fmt.Sprintf("output line %d: missing, want %q", i+1, want[i]))
		case i >= len(want):
			failures = append(failures, fmt.Sprintf("output line %d: unexpected %q", i+1, got[i]))
		case want[i] != got[i]:
			failures = append(failures, fmt.Sprintf("output line %d: got %q, want %q", i+1, got[i], want[i]))
		}
	}
	return failures
}
