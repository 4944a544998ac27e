package parser

import (
	"sync/atomic"

	"youth/internal/lexer"
)

// Expr is the closed set of expression nodes. Passes switch on the concrete
// type; the unexported marker keeps the set closed to this package.
type Expr interface {
	exprNode()
}

// lastID hands out node identities for the resolver's side table. IDs are
// unique for the process so tables from successive parses can be merged.
var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// Assignment expression: x = 42
type Assign struct {
	ID    int
	Name  lexer.Token
	Value Expr
}

// Binary expression: a + b
type Binary struct {
	Left     Expr
	Operator lexer.Token
	Right    Expr
}

// Call expression: callee(args...)
type Call struct {
	Callee Expr
	Paren  lexer.Token // closing paren, used for error positions
	Args   []Expr
}

// Property access: object.name
type Get struct {
	Object Expr
	Name   lexer.Token
}

// Parenthesized expression
type Grouping struct {
	Expression Expr
}

// Literal expression: number, string, boolean or nil
type Literal struct {
	Value any
}

// Logical expression: a and b, a or b
type Logical struct {
	Left     Expr
	Operator lexer.Token
	Right    Expr
}

// Property assignment: object.name = value
type Set struct {
	Object Expr
	Name   lexer.Token
	Value  Expr
}

// Receiver reference inside a method: me
type This struct {
	ID      int
	Keyword lexer.Token
}

// Unary expression: !x, -x
type Unary struct {
	Operator lexer.Token
	Right    Expr
}

// Variable expression: x
type Variable struct {
	ID   int
	Name lexer.Token
}

func (*Assign) exprNode()   {}
func (*Binary) exprNode()   {}
func (*Call) exprNode()     {}
func (*Get) exprNode()      {}
func (*Grouping) exprNode() {}
func (*Literal) exprNode()  {}
func (*Logical) exprNode()  {}
func (*Set) exprNode()      {}
func (*This) exprNode()     {}
func (*Unary) exprNode()    {}
func (*Variable) exprNode() {}

// NewVariable builds a variable reference with a fresh node identity.
func NewVariable(name lexer.Token) *Variable {
	return &Variable{ID: nextID(), Name: name}
}

// NewAssign builds an assignment with a fresh node identity.
func NewAssign(name lexer.Token, value Expr) *Assign {
	return &Assign{ID: nextID(), Name: name, Value: value}
}

// NewThis builds a receiver reference with a fresh node identity.
func NewThis(keyword lexer.Token) *This {
	return &This{ID: nextID(), Keyword: keyword}
}
