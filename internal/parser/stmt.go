// internal/parser/stmt.go
package parser

import "youth/internal/lexer"

// Stmt is the closed set of statement nodes.
type Stmt interface {
	stmtNode()
}

// Block is a parenthesized list of declarations with its own scope.
type Block struct {
	Statements []Stmt
}

// Class declares a youth with its methods.
type Class struct {
	Name    lexer.Token
	Methods []*Function
}

// Expression wraps a raw expression as a statement.
type Expression struct {
	Expression Expr
}

// Function represents a function declaration.
type Function struct {
	Name   lexer.Token
	Params []lexer.Token
	Body   []Stmt
}

// If executes Then or Else; Else may be nil.
type If struct {
	Condition Expr
	Then      Stmt
	Else      Stmt
}

// Print wraps an expression to print.
type Print struct {
	Expression Expr
}

// Return represents a give statement; Value may be nil.
type Return struct {
	Keyword lexer.Token
	Value   Expr
}

// Var represents a variable declaration; Initializer may be nil.
type Var struct {
	Name        lexer.Token
	Initializer Expr
}

// While re-evaluates Condition before every iteration.
type While struct {
	Condition Expr
	Body      Stmt
}

func (*Block) stmtNode()      {}
func (*Class) stmtNode()      {}
func (*Expression) stmtNode() {}
func (*Function) stmtNode()   {}
func (*If) stmtNode()         {}
func (*Print) stmtNode()      {}
func (*Return) stmtNode()     {}
func (*Var) stmtNode()        {}
func (*While) stmtNode()      {}
