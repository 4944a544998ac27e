package interpreter

import (
	"youth/internal/parser"
	"youth/internal/resolver"
)

// Function is a user-defined function or a method bound to an instance. It
// keeps the resolution table of the run that declared it, so it can be called
// from later runs after the interpreter has moved on to their tables.
type Function struct {
	declaration *parser.Function
	closure     *Environment
	locals      resolver.Locals
}

func NewFunction(declaration *parser.Function, closure *Environment, locals resolver.Locals) *Function {
	return &Function{declaration: declaration, closure: closure, locals: locals}
}

func (f *Function) Name() string {
	return f.declaration.Name.Lexeme
}

func (f *Function) Arity() int {
	return len(f.declaration.Params)
}

// Call runs the body in a fresh frame whose parent is the closure. A give
// ends the body early and becomes the result; falling off the end yields nil.
func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.closure)
	for i, param := range f.declaration.Params {
		env.Define(param.Lexeme, args[i])
	}

	previous := in.locals
	in.locals = f.locals
	sig, err := in.executeBlock(f.declaration.Body, env)
	in.locals = previous
	if err != nil {
		return nil, err
	}
	if sig.returning {
		return sig.value, nil
	}
	return nil, nil
}

// Bind returns a copy of the method whose closure defines the receiver.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.closure)
	env.Define(receiver, instance)
	return NewFunction(f.declaration, env, f.locals)
}

func (f *Function) String() string {
	return "<fn " + f.Name() + ">"
}
