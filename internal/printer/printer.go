// Package printer renders syntax trees in a parenthesized prefix form for
// debugging, e.g. `(* (- 123) (group 45.67))`.
package printer

import (
	"math"
	"strconv"
	"strings"

	"youth/internal/parser"
)

type Printer struct {
	indent    int
	indentStr string
	output    strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{indentStr: "  "}
}

// Print renders a single expression.
func Print(expr parser.Expr) string {
	p := NewPrinter()
	p.expr(expr)
	return p.output.String()
}

// Format renders statements, one top-level statement per line. Nested
// statements are placed on their own indented lines.
func (p *Printer) Format(stmts []parser.Stmt) string {
	p.output.Reset()
	p.indent = 0
	for _, stmt := range stmts {
		p.stmt(stmt)
		p.output.WriteString("\n")
	}
	return p.output.String()
}

// FormatNumber renders a number in its shortest form without a trailing ".0".
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (p *Printer) newline() {
	p.output.WriteString("\n")
	p.output.WriteString(strings.Repeat(p.indentStr, p.indent))
}

func (p *Printer) stmts(stmts []parser.Stmt) {
	p.indent++
	for _, s := range stmts {
		p.newline()
		p.stmt(s)
	}
	p.indent--
}

func (p *Printer) stmt(stmt parser.Stmt) {
	switch s := stmt.(type) {
	case nil:
		p.output.WriteString("(error)")

	case *parser.Block:
		p.output.WriteString("(block")
		p.stmts(s.Statements)
		p.output.WriteString(")")

	case *parser.Class:
		p.output.WriteString("(youth ")
		p.output.WriteString(s.Name.Lexeme)
		p.indent++
		for _, m := range s.Methods {
			p.newline()
			p.stmt(m)
		}
		p.indent--
		p.output.WriteString(")")

	case *parser.Expression:
		p.parenthesize(";", s.Expression)

	case *parser.Function:
		p.output.WriteString("(listen ")
		p.output.WriteString(s.Name.Lexeme)
		p.output.WriteString(" (")
		for i, param := range s.Params {
			if i > 0 {
				p.output.WriteString(" ")
			}
			p.output.WriteString(param.Lexeme)
		}
		p.output.WriteString(")")
		p.stmts(s.Body)
		p.output.WriteString(")")

	case *parser.If:
		p.output.WriteString("(if ")
		p.expr(s.Condition)
		branches := []parser.Stmt{s.Then}
		if s.Else != nil {
			branches = append(branches, s.Else)
		}
		p.stmts(branches)
		p.output.WriteString(")")

	case *parser.Print:
		p.parenthesize("tell", s.Expression)

	case *parser.Return:
		if s.Value == nil {
			p.output.WriteString("(give)")
			return
		}
		p.parenthesize("give", s.Value)

	case *parser.Var:
		if s.Initializer == nil {
			p.output.WriteString("(is " + s.Name.Lexeme + ")")
			return
		}
		p.parenthesize("is "+s.Name.Lexeme, s.Initializer)

	case *parser.While:
		p.output.WriteString("(while ")
		p.expr(s.Condition)
		p.stmts([]parser.Stmt{s.Body})
		p.output.WriteString(")")
	}
}

func (p *Printer) expr(expr parser.Expr) {
	switch e := expr.(type) {
	case *parser.Assign:
		p.parenthesize("= "+e.Name.Lexeme, e.Value)
	case *parser.Binary:
		p.parenthesize(e.Operator.Lexeme, e.Left, e.Right)
	case *parser.Call:
		p.parenthesize("call", append([]parser.Expr{e.Callee}, e.Args...)...)
	case *parser.Get:
		p.parenthesize(". "+e.Name.Lexeme, e.Object)
	case *parser.Grouping:
		p.parenthesize("group", e.Expression)
	case *parser.Literal:
		p.output.WriteString(literal(e.Value))
	case *parser.Logical:
		p.parenthesize(e.Operator.Lexeme, e.Left, e.Right)
	case *parser.Set:
		p.parenthesize("= . "+e.Name.Lexeme, e.Object, e.Value)
	case *parser.This:
		p.output.WriteString("me")
	case *parser.Unary:
		p.parenthesize(e.Operator.Lexeme, e.Right)
	case *parser.Variable:
		p.output.WriteString(e.Name.Lexeme)
	}
}

func (p *Printer) parenthesize(name string, exprs ...parser.Expr) {
	p.output.WriteString("(")
	p.output.WriteString(name)
	for _, e := range exprs {
		p.output.WriteString(" ")
		p.expr(e)
	}
	p.output.WriteString(")")
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "emptiness"
	case bool:
		if v {
			return "surely"
		}
		return "impossible"
	case float64:
		return FormatNumber(v)
	case string:
		return strconv.Quote(v)
	}
	return "?"
}
