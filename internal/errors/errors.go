// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	LexError        ErrorType = "LexError"
	SyntaxError     ErrorType = "SyntaxError"
	ResolutionError ErrorType = "ResolutionError"
	RuntimeError    ErrorType = "RuntimeError"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// Error is a diagnostic produced by any pass of the pipeline.
type Error struct {
	Type      ErrorType
	Message   string
	Location  SourceLocation
	Lexeme    string // offending token, empty for lexical errors
	AtEnd     bool   // reported at end of input
	CallStack []StackFrame
	Source    string // The source line where error occurred
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Header())

	if e.Source != "" {
		prefix := fmt.Sprintf("  %d | ", e.Location.Line)
		sb.WriteString("\n")
		sb.WriteString(prefix)
		sb.WriteString(e.Source)
		if e.Location.Column > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", len(prefix)+e.Location.Column-1))
			sb.WriteString("^")
		}
	}

	for _, frame := range e.CallStack {
		sb.WriteString("\n")
		if frame.File != "" {
			sb.WriteString(fmt.Sprintf("  at %s (%s:%d)", frame.Function, frame.File, frame.Line))
		} else {
			sb.WriteString(fmt.Sprintf("  at %s (line %d)", frame.Function, frame.Line))
		}
	}

	return sb.String()
}

// Header renders the single-line form: "[line 3] SyntaxError at ';': message".
func (e *Error) Header() string {
	var sb strings.Builder
	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("%s:", e.Location.File))
	}
	sb.WriteString(fmt.Sprintf("[line %d] %s", e.Location.Line, e.Type))
	switch {
	case e.AtEnd:
		sb.WriteString(" at end")
	case e.Lexeme != "":
		sb.WriteString(fmt.Sprintf(" at '%s'", e.Lexeme))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Static reports whether the error comes from a pass that runs before execution.
func (e *Error) Static() bool {
	return e.Type != RuntimeError
}

// NewLexError creates a new lexical error
func NewLexError(message string, line, column int) *Error {
	return &Error{
		Type:     LexError,
		Message:  message,
		Location: SourceLocation{Line: line, Column: column},
	}
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message, lexeme string, atEnd bool, line, column int) *Error {
	return &Error{
		Type:     SyntaxError,
		Message:  message,
		Lexeme:   lexeme,
		AtEnd:    atEnd,
		Location: SourceLocation{Line: line, Column: column},
	}
}

// NewResolutionError creates a new resolution error
func NewResolutionError(message, lexeme string, line, column int) *Error {
	return &Error{
		Type:     ResolutionError,
		Message:  message,
		Lexeme:   lexeme,
		Location: SourceLocation{Line: line, Column: column},
	}
}

// NewRuntimeError creates a new runtime error
func NewRuntimeError(message, lexeme string, line, column int) *Error {
	return &Error{
		Type:     RuntimeError,
		Message:  message,
		Lexeme:   lexeme,
		Location: SourceLocation{Line: line, Column: column},
	}
}

// WithSource adds source code context to the error
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// WithFile sets the file on the error and on every recorded stack frame.
func (e *Error) WithFile(file string) *Error {
	e.Location.File = file
	for i := range e.CallStack {
		e.CallStack[i].File = file
	}
	return e
}

// AddStackFrame adds a single stack frame
func (e *Error) AddStackFrame(function string, line int) *Error {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     e.Location.File,
		Line:     line,
	})
	return e
}

// AttachSource fills in Source for every error from the matching line of src.
func AttachSource(errs []*Error, src string) {
	if len(errs) == 0 {
		return
	}
	lines := strings.Split(src, "\n")
	for _, e := range errs {
		if e.Source == "" && e.Location.Line > 0 && e.Location.Line <= len(lines) {
			e.Source = strings.TrimRight(lines[e.Location.Line-1], "\r")
		}
	}
}
