// Package interpreter evaluates resolved syntax trees directly.
package interpreter

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"youth/internal/errors"
	"youth/internal/lexer"
	"youth/internal/parser"
	"youth/internal/printer"
	"youth/internal/resolver"
)

// maxCallDepth bounds user-level recursion so a runaway program fails with a
// runtime error instead of exhausting the goroutine stack.
const maxCallDepth = 10000

// signal reports how a statement completed. The zero value is normal
// completion; returning carries the value of a give up to the enclosing call.
type signal struct {
	returning bool
	value     Value
}

type Interpreter struct {
	globals     *Environment
	environment *Environment
	locals      resolver.Locals

	stdout  io.Writer
	onPrint func(line string)
	logger  logrus.FieldLogger
	now     func() time.Time
	started time.Time
	depth   int
}

type Option func(*Interpreter)

// WithStdout sets where tell writes. A nil writer discards output.
func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) {
		if w == nil {
			w = io.Discard
		}
		in.stdout = w
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) {
		in.now = now
	}
}

// WithPrintHook registers a callback invoked with every line tell emits.
func WithPrintHook(hook func(line string)) Option {
	return func(in *Interpreter) {
		in.onPrint = hook
	}
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		globals: NewEnvironment(nil),
		locals:  make(resolver.Locals),
		stdout:  os.Stdout,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.environment = in.globals
	in.started = in.now()
	in.defineNatives()
	return in
}

func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Resolve installs the resolution table for the next Interpret call. It
// replaces the previous run's table; functions declared by earlier runs carry
// their own, so a long-lived session only retains tables something still
// references.
func (in *Interpreter) Resolve(locals resolver.Locals) {
	if locals == nil {
		locals = make(resolver.Locals)
	}
	in.locals = locals
}

// Interpret executes statements in order and stops at the first runtime
// error.
func (in *Interpreter) Interpret(stmts []parser.Stmt) error {
	in.logger.WithField("statements", len(stmts)).Debug("interpreting program")

	in.environment = in.globals
	in.depth = 0
	for _, stmt := range stmts {
		if _, err := in.execute(stmt); err != nil {
			in.environment = in.globals
			in.logger.WithError(err).Debug("runtime error")
			return err
		}
	}
	return nil
}

func (in *Interpreter) execute(stmt parser.Stmt) (signal, error) {
	switch s := stmt.(type) {
	case *parser.Block:
		return in.executeBlock(s.Statements, NewEnvironment(in.environment))

	case *parser.Class:
		in.environment.Define(s.Name.Lexeme, nil)
		methods := make(map[string]*Function, len(s.Methods))
		for _, method := range s.Methods {
			methods[method.Name.Lexeme] = NewFunction(method, in.environment, in.locals)
		}
		class := NewClass(s.Name.Lexeme, methods)
		if err := in.environment.Assign(s.Name, class); err != nil {
			return signal{}, err
		}
		return signal{}, nil

	case *parser.Expression:
		_, err := in.evaluate(s.Expression)
		return signal{}, err

	case *parser.Function:
		in.environment.Define(s.Name.Lexeme, NewFunction(s, in.environment, in.locals))
		return signal{}, nil

	case *parser.If:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return signal{}, err
		}
		if isTruthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return signal{}, nil

	case *parser.Print:
		value, err := in.evaluate(s.Expression)
		if err != nil {
			return signal{}, err
		}
		in.emit(stringify(value))
		return signal{}, nil

	case *parser.Return:
		var value Value
		if s.Value != nil {
			v, err := in.evaluate(s.Value)
			if err != nil {
				return signal{}, err
			}
			value = v
		}
		return signal{returning: true, value: value}, nil

	case *parser.Var:
		var value Value
		if s.Initializer != nil {
			v, err := in.evaluate(s.Initializer)
			if err != nil {
				return signal{}, err
			}
			value = v
		}
		in.environment.Define(s.Name.Lexeme, value)
		return signal{}, nil

	case *parser.While:
		for {
			cond, err := in.evaluate(s.Condition)
			if err != nil {
				return signal{}, err
			}
			if !isTruthy(cond) {
				return signal{}, nil
			}
			sig, err := in.execute(s.Body)
			if err != nil || sig.returning {
				return sig, err
			}
		}

	case nil:
		return signal{}, nil
	}

	return signal{}, fmt.Errorf("unknown statement type %T", stmt)
}

// executeBlock runs stmts in env and restores the previous environment on
// every exit path.
func (in *Interpreter) executeBlock(stmts []parser.Stmt, env *Environment) (signal, error) {
	previous := in.environment
	in.environment = env
	defer func() { in.environment = previous }()

	for _, stmt := range stmts {
		sig, err := in.execute(stmt)
		if err != nil || sig.returning {
			return sig, err
		}
	}
	return signal{}, nil
}

func (in *Interpreter) evaluate(expr parser.Expr) (Value, error) {
	switch e := expr.(type) {
	case *parser.Literal:
		return e.Value, nil

	case *parser.Grouping:
		return in.evaluate(e.Expression)

	case *parser.Variable:
		return in.lookUpVariable(e.ID, e.Name)

	case *parser.This:
		return in.lookUpVariable(e.ID, e.Keyword)

	case *parser.Assign:
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		if distance, ok := in.locals[e.ID]; ok {
			err = in.environment.AssignAt(distance, e.Name, value)
		} else {
			err = in.globals.Assign(e.Name, value)
		}
		if err != nil {
			return nil, err
		}
		return value, nil

	case *parser.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Operator.Type == lexer.TokenOr {
			if isTruthy(left) {
				return left, nil
			}
		} else if !isTruthy(left) {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *parser.Unary:
		right, err := in.evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		switch e.Operator.Type {
		case lexer.TokenMinus:
			n, ok := right.(float64)
			if !ok {
				return nil, runtimeError(e.Operator, "Operand must be a number.")
			}
			return -n, nil
		case lexer.TokenNot:
			return !isTruthy(right), nil
		}
		return nil, nil

	case *parser.Binary:
		return in.evalBinary(e)

	case *parser.Call:
		return in.evalCall(e)

	case *parser.Get:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, runtimeError(e.Name, "Only instances have properties.")
		}
		return instance.Get(e.Name)

	case *parser.Set:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, runtimeError(e.Name, "Only instances have fields.")
		}
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		instance.Set(e.Name, value)
		return value, nil
	}

	return nil, fmt.Errorf("unknown expression type %T", expr)
}

func (in *Interpreter) evalBinary(e *parser.Binary) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case lexer.TokenDoubleEqual:
		return isEqual(left, right), nil
	case lexer.TokenNotEqual:
		return !isEqual(left, right), nil
	case lexer.TokenPlus:
		if l, ok := left.(float64); ok {
			if r, ok := right.(float64); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(string); ok {
			if r, ok := right.(string); ok {
				return l + r, nil
			}
		}
		return nil, runtimeError(e.Operator, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, runtimeError(e.Operator, "Operands must be numbers.")
	}

	switch e.Operator.Type {
	case lexer.TokenMinus:
		return l - r, nil
	case lexer.TokenStar:
		return l * r, nil
	case lexer.TokenSlash:
		return l / r, nil
	case lexer.TokenGT:
		return l > r, nil
	case lexer.TokenGE:
		return l >= r, nil
	case lexer.TokenLT:
		return l < r, nil
	case lexer.TokenLE:
		return l <= r, nil
	}
	return nil, nil
}

func (in *Interpreter) evalCall(e *parser.Call) (Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, arg := range e.Args {
		value, err := in.evaluate(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeError(e.Paren, "Can only call functions and youths.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeError(e.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	if in.depth >= maxCallDepth {
		return nil, runtimeError(e.Paren, "Stack overflow.")
	}
	in.depth++
	result, err := fn.Call(in, args)
	in.depth--
	if err == nil {
		return result, nil
	}

	var rerr *errors.Error
	if !stderrors.As(err, &rerr) {
		// natives report plain Go errors
		return nil, runtimeError(e.Paren, "%s", err.Error())
	}
	if user, ok := fn.(*Function); ok {
		rerr.AddStackFrame(user.Name(), e.Paren.Line)
	}
	return nil, rerr
}

func (in *Interpreter) lookUpVariable(id int, name lexer.Token) (Value, error) {
	if distance, ok := in.locals[id]; ok {
		return in.environment.GetAt(distance, name)
	}
	return in.globals.Get(name)
}

func (in *Interpreter) emit(line string) {
	fmt.Fprintln(in.stdout, line)
	if in.onPrint != nil {
		in.onPrint(line)
	}
}

// isTruthy treats emptiness and impossible as false and everything else,
// including 0 and "", as true.
func isTruthy(value Value) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	}
	return true
}

func isEqual(a, b Value) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil {
		return false
	}
	return a == b
}

// Stringify renders a value the way tell prints it.
func Stringify(value Value) string {
	return stringify(value)
}

func stringify(value Value) string {
	switch v := value.(type) {
	case nil:
		return "emptiness"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return printer.FormatNumber(v)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

func typeName(value Value) string {
	switch value.(type) {
	case nil:
		return "emptiness"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Instance:
		return "instance"
	case Callable:
		return "function"
	}
	return fmt.Sprintf("%T", value)
}
