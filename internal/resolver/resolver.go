// Package resolver computes, before execution, how many scopes separate each
// variable reference from its declaration.
package resolver

import (
	"youth/internal/errors"
	"youth/internal/lexer"
	"youth/internal/parser"
)

// Locals maps a node ID to its hop distance. References without an entry are
// globals and are looked up dynamically.
type Locals map[int]int

type functionType int

const (
	functionNone functionType = iota
	functionFunction
	functionMethod
)

type classType int

const (
	classNone classType = iota
	classYouth
)

// receiver is the name methods bind their instance to.
const receiver = "me"

type Resolver struct {
	scopes          []map[string]bool // false = declared, true = defined
	locals          Locals
	errors          []*errors.Error
	currentFunction functionType
	currentClass    classType
}

func New() *Resolver {
	return &Resolver{}
}

// Resolve walks the program once. The top level gets its own scope, matching
// the global environment the interpreter runs it in. Every violation is
// recorded and the walk continues.
func (r *Resolver) Resolve(stmts []parser.Stmt) (Locals, []*errors.Error) {
	r.locals = make(Locals)
	r.errors = nil
	r.scopes = nil

	r.beginScope()
	r.resolveStmts(stmts)
	r.endScope()

	return r.locals, r.errors
}

func (r *Resolver) resolveStmts(stmts []parser.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *Resolver) resolveStmt(stmt parser.Stmt) {
	switch s := stmt.(type) {
	case nil:
		// placeholder left by a parse error

	case *parser.Block:
		r.beginScope()
		r.resolveStmts(s.Statements)
		r.endScope()

	case *parser.Class:
		enclosingClass := r.currentClass
		r.currentClass = classYouth

		r.declare(s.Name)
		r.define(s.Name)

		r.beginScope()
		r.peek()[receiver] = true
		for _, method := range s.Methods {
			r.resolveFunction(method, functionMethod)
		}
		r.endScope()

		r.currentClass = enclosingClass

	case *parser.Expression:
		r.resolveExpr(s.Expression)

	case *parser.Function:
		// defined before the body so the function can recurse
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, functionFunction)

	case *parser.If:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *parser.Print:
		r.resolveExpr(s.Expression)

	case *parser.Return:
		if r.currentFunction == functionNone {
			r.error(s.Keyword, "Can't return from top-level code.")
		}
		if s.Value != nil {
			r.resolveExpr(s.Value)
		}

	case *parser.Var:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpr(s.Initializer)
		}
		r.define(s.Name)

	case *parser.While:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)
	}
}

func (r *Resolver) resolveExpr(expr parser.Expr) {
	switch e := expr.(type) {
	case *parser.Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e.ID, e.Name)

	case *parser.Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *parser.Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}

	case *parser.Get:
		r.resolveExpr(e.Object)

	case *parser.Grouping:
		r.resolveExpr(e.Expression)

	case *parser.Literal:

	case *parser.Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *parser.Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *parser.This:
		if r.currentClass == classNone {
			r.error(e.Keyword, "Can't use 'me' outside of a youth.")
			return
		}
		r.resolveLocal(e.ID, e.Keyword)

	case *parser.Unary:
		r.resolveExpr(e.Right)

	case *parser.Variable:
		if len(r.scopes) > 0 {
			if defined, ok := r.peek()[e.Name.Lexeme]; ok && !defined {
				r.error(e.Name, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e.ID, e.Name)
	}
}

func (r *Resolver) resolveFunction(fn *parser.Function, kind functionType) {
	enclosingFunction := r.currentFunction
	r.currentFunction = kind

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStmts(fn.Body)
	r.endScope()

	r.currentFunction = enclosingFunction
}

// resolveLocal records the hop count to the innermost scope declaring name.
// No entry is recorded when no scope declares it.
func (r *Resolver) resolveLocal(id int, name lexer.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.locals[id] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) peek() map[string]bool {
	return r.scopes[len(r.scopes)-1]
}

func (r *Resolver) declare(name lexer.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.peek()
	if _, ok := scope[name.Lexeme]; ok {
		r.error(name, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name lexer.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.peek()[name.Lexeme] = true
}

func (r *Resolver) error(tok lexer.Token, msg string) {
	r.errors = append(r.errors, errors.NewResolutionError(msg, tok.Lexeme, tok.Line, tok.Column))
}
