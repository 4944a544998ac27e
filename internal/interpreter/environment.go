package interpreter

import (
	"fmt"

	"youth/internal/errors"
	"youth/internal/lexer"
)

// Environment is one scope frame. Frames are shared by pointer: a closure
// keeps its defining frame alive for as long as the closure is reachable.
type Environment struct {
	enclosing *Environment
	values    map[string]Value
}

func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{
		enclosing: enclosing,
		values:    make(map[string]Value),
	}
}

// Enclosing returns the parent frame, nil for the globals.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this frame, replacing any existing binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

func (e *Environment) Get(name lexer.Token) (Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if value, ok := env.values[name.Lexeme]; ok {
			return value, nil
		}
	}
	return nil, undefinedVariable(name)
}

func (e *Environment) Assign(name lexer.Token, value Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return undefinedVariable(name)
}

// Ancestor returns the frame distance links up the chain, nil if the chain is
// shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads name from exactly the frame distance links up.
func (e *Environment) GetAt(distance int, name lexer.Token) (Value, error) {
	env := e.Ancestor(distance)
	if env != nil {
		if value, ok := env.values[name.Lexeme]; ok {
			return value, nil
		}
	}
	return nil, scopeMismatch(distance, name)
}

// AssignAt writes name in exactly the frame distance links up.
func (e *Environment) AssignAt(distance int, name lexer.Token, value Value) error {
	env := e.Ancestor(distance)
	if env != nil {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return scopeMismatch(distance, name)
}

func undefinedVariable(name lexer.Token) *errors.Error {
	return runtimeError(name, "Undefined variable '%s'.", name.Lexeme)
}

// scopeMismatch means the resolver and the runtime disagree about the scope
// chain. That is an interpreter bug, so it is never papered over with a
// dynamic lookup.
func scopeMismatch(distance int, name lexer.Token) *errors.Error {
	return runtimeError(name, "Internal error: '%s' is not bound %d scope(s) up.", name.Lexeme, distance)
}

func runtimeError(tok lexer.Token, format string, args ...any) *errors.Error {
	return errors.NewRuntimeError(fmt.Sprintf(format, args...), tok.Lexeme, tok.Line, tok.Column)
}
