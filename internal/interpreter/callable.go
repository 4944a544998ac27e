package interpreter

import (
	"fmt"
	"time"
)

// Value is any runtime value: nil, bool, float64, string or a Callable/Instance.
type Value = any

// Callable is anything a call expression can invoke.
type Callable interface {
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
	String() string
}

// NativeFunction is a builtin implemented in Go.
type NativeFunction struct {
	Name  string
	arity int
	fn    func(in *Interpreter, args []Value) (Value, error)
}

func NewNativeFunction(name string, arity int, fn func(in *Interpreter, args []Value) (Value, error)) *NativeFunction {
	return &NativeFunction{Name: name, arity: arity, fn: fn}
}

func (n *NativeFunction) Arity() int {
	return n.arity
}

func (n *NativeFunction) Call(in *Interpreter, args []Value) (Value, error) {
	return n.fn(in, args)
}

func (n *NativeFunction) String() string {
	return "<native fn>"
}

// defineNatives installs the builtin functions into the global frame.
func (in *Interpreter) defineNatives() {
	natives := []*NativeFunction{
		NewNativeFunction("clock", 0, func(in *Interpreter, _ []Value) (Value, error) {
			elapsed := in.now().Sub(in.started)
			return float64(in.started.UnixNano())/float64(time.Second) + elapsed.Seconds(), nil
		}),
		NewNativeFunction("str", 1, func(_ *Interpreter, args []Value) (Value, error) {
			return stringify(args[0]), nil
		}),
		NewNativeFunction("len", 1, func(_ *Interpreter, args []Value) (Value, error) {
			s, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("len() expects a string, got %s", typeName(args[0]))
			}
			return float64(len(s)), nil
		}),
	}
	for _, native := range natives {
		in.globals.Define(native.Name, native)
	}
}
