// Package runner drives source text through scanning, parsing, resolution and
// execution, and reports the outcome of each run.
package runner

import (
	stderrors "errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"youth/internal/errors"
	"youth/internal/interpreter"
	"youth/internal/lexer"
	"youth/internal/parser"
	"youth/internal/resolver"
)

// Result is the outcome of one run.
type Result struct {
	HadStaticError  bool
	HadRuntimeError bool
	Output          []string
	Errors          []*errors.Error
	Duration        time.Duration
}

// OK reports whether the run finished without any error.
func (r Result) OK() bool {
	return !r.HadStaticError && !r.HadRuntimeError
}

// Session keeps one interpreter alive across runs so later runs see the
// globals defined by earlier ones.
type Session struct {
	file   string
	stdout io.Writer
	logger logrus.FieldLogger
	interp *interpreter.Interpreter
	output []string
}

type Option func(*Session)

// WithFile names the source in diagnostics.
func WithFile(file string) Option {
	return func(s *Session) {
		s.file = file
	}
}

// WithStdout sets where tell writes besides the recorded output.
func WithStdout(w io.Writer) Option {
	return func(s *Session) {
		s.stdout = w
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func NewSession(opts ...Option) *Session {
	s := &Session{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.interp = interpreter.New(
		interpreter.WithStdout(s.stdout),
		interpreter.WithLogger(s.logger),
		interpreter.WithPrintHook(func(line string) {
			s.output = append(s.output, line)
		}),
	)
	return s
}

// Interpreter exposes the session's interpreter, e.g. to install natives.
func (s *Session) Interpreter() *interpreter.Interpreter {
	return s.interp
}

// Run executes source. Every static error is collected first; if there is
// any, nothing executes.
func (s *Session) Run(source string) Result {
	start := time.Now()
	s.output = nil

	log := s.logger.WithField("file", s.file)

	// resolution runs even over a broken tree, skipping its placeholders, so
	// one run reports every static error
	stmts, errs := s.parse(source)
	locals, resolveErrs := resolver.New().Resolve(stmts)
	errs = append(errs, s.decorate(resolveErrs, source)...)

	result := Result{Errors: errs}
	if len(errs) > 0 {
		result.HadStaticError = true
		result.Duration = time.Since(start)
		log.WithField("errors", len(errs)).Debug("static errors, not executing")
		return result
	}

	s.interp.Resolve(locals)
	if err := s.interp.Interpret(stmts); err != nil {
		result.HadRuntimeError = true
		var rerr *errors.Error
		if !stderrors.As(err, &rerr) {
			rerr = errors.NewRuntimeError(err.Error(), "", 0, 0)
		}
		result.Errors = s.decorate([]*errors.Error{rerr}, source)
	}

	result.Output = s.output
	result.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"lines":    len(result.Output),
		"duration": result.Duration,
		"failed":   result.HadRuntimeError,
	}).Debug("run finished")
	return result
}

func (s *Session) parse(source string) ([]parser.Stmt, []*errors.Error) {
	scanner := lexer.NewScannerWithFile(source, s.file)
	tokens := scanner.ScanTokens()

	p := parser.NewParserWithSource(tokens, source, s.file)
	stmts := p.Parse()

	var errs []*errors.Error
	errs = append(errs, scanner.Errors()...)
	errs = append(errs, p.Errors...)
	return stmts, s.decorate(errs, source)
}

func (s *Session) decorate(errs []*errors.Error, source string) []*errors.Error {
	if s.file != "" {
		for _, e := range errs {
			e.WithFile(s.file)
		}
	}
	errors.AttachSource(errs, source)
	return errs
}

// Run executes source in a fresh session.
func Run(source string, opts ...Option) Result {
	return NewSession(opts...).Run(source)
}

// Check reports every static error in source without executing it.
func Check(source string, opts ...Option) []*errors.Error {
	s := NewSession(opts...)
	stmts, errs := s.parse(source)
	_, resolveErrs := resolver.New().Resolve(stmts)
	return append(errs, s.decorate(resolveErrs, source)...)
}

// Parse scans and parses source, returning all lexical and syntax errors.
func Parse(source string) ([]parser.Stmt, []*errors.Error) {
	return NewSession().parse(source)
}

// Tokens scans source and returns the token stream with any lexical errors.
func Tokens(source string) ([]lexer.Token, []*errors.Error) {
	scanner := lexer.NewScanner(source)
	tokens := scanner.ScanTokens()
	errs := scanner.Errors()
	errors.AttachSource(errs, source)
	return tokens, errs
}

// Incomplete reports whether source failed only because input ended too
// early, so a REPL should keep reading lines.
func Incomplete(source string) bool {
	_, errs := Parse(source)
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !e.AtEnd && e.Message != "Unterminated string." {
			return false
		}
	}
	return true
}
