// internal/parser/parser.go
package parser

import (
	"strings"

	"youth/internal/errors"
	"youth/internal/lexer"
)

// maxArgs caps call arguments and function parameters.
const maxArgs = 255

// parseError unwinds to the nearest declaration, which synchronizes.
type parseError struct {
	err *errors.Error
}

type Parser struct {
	tokens      []lexer.Token
	current     int
	Errors      []*errors.Error
	file        string
	sourceLines []string // Source lines for error reporting
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens:  tokens,
		current: 0,
	}
}

func NewParserWithSource(tokens []lexer.Token, source string, file string) *Parser {
	return &Parser{
		tokens:      tokens,
		current:     0,
		file:        file,
		sourceLines: strings.Split(source, "\n"),
	}
}

// Parse returns one entry per top-level declaration. A declaration that failed
// to parse is left as a nil placeholder.
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

// HadError reports whether any syntax error was recorded.
func (p *Parser) HadError() bool {
	return len(p.Errors) > 0
}

func (p *Parser) declaration() (stmt Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	if p.match(lexer.TokenYouth) {
		return p.classDeclaration()
	}
	if p.match(lexer.TokenListen) {
		return p.function("function")
	}
	if p.match(lexer.TokenIs) {
		return p.varDeclaration()
	}
	return p.statement()
}

func (p *Parser) classDeclaration() Stmt {
	name := p.consume(lexer.TokenIdent, "Expect youth name.")
	p.consume(lexer.TokenLParen, "Expect '(' before youth body.")

	var methods []*Function
	for !p.check(lexer.TokenRParen) && !p.isAtEnd() {
		p.consume(lexer.TokenListen, "Expect 'listen' before method.")
		methods = append(methods, p.function("method"))
	}
	p.consume(lexer.TokenRParen, "Expect ')' after youth body.")

	return &Class{Name: name, Methods: methods}
}

func (p *Parser) function(kind string) *Function {
	name := p.consume(lexer.TokenIdent, "Expect "+kind+" name.")
	p.consume(lexer.TokenLParen, "Expect '(' after "+kind+" name.")

	var params []lexer.Token
	if !p.check(lexer.TokenRParen) {
		for {
			if len(params) >= maxArgs {
				p.report(p.peek(), "Can't have more than 255 parameters.")
			}
			params = append(params, p.consume(lexer.TokenIdent, "Expect parameter name."))
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "Expect ')' after parameters.")

	p.consume(lexer.TokenLParen, "Expect '(' before "+kind+" body.")
	body := p.block()
	return &Function{Name: name, Params: params, Body: body}
}

func (p *Parser) varDeclaration() Stmt {
	name := p.consume(lexer.TokenIdent, "Expect variable name.")

	var initializer Expr
	if p.match(lexer.TokenEqual) {
		initializer = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	return &Var{Name: name, Initializer: initializer}
}

func (p *Parser) statement() Stmt {
	if p.match(lexer.TokenFor) {
		return p.forStatement()
	}
	if p.match(lexer.TokenIf) {
		return p.ifStatement()
	}
	if p.match(lexer.TokenTell) {
		value := p.expression()
		p.consume(lexer.TokenSemicolon, "Expect ';' after value.")
		return &Print{Expression: value}
	}
	if p.match(lexer.TokenGive) {
		return p.returnStatement()
	}
	if p.match(lexer.TokenWhile) {
		return p.whileStatement()
	}
	if p.match(lexer.TokenLParen) {
		return &Block{Statements: p.block()}
	}

	expr := p.expression()
	p.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	return &Expression{Expression: expr}
}

// forStatement desugars into a block holding the initializer and a while loop
// whose body runs the original body followed by the increment.
func (p *Parser) forStatement() Stmt {
	p.consume(lexer.TokenLParen, "Expect '(' after 'for'.")

	var initializer Stmt
	switch {
	case p.match(lexer.TokenSemicolon):
	case p.match(lexer.TokenIs):
		initializer = p.varDeclaration()
	default:
		expr := p.expression()
		p.consume(lexer.TokenSemicolon, "Expect ';' after loop initializer.")
		initializer = &Expression{Expression: expr}
	}

	var condition Expr
	if !p.check(lexer.TokenSemicolon) {
		condition = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")

	var increment Expr
	if !p.check(lexer.TokenRParen) {
		increment = p.expression()
	}
	p.consume(lexer.TokenRParen, "Expect ')' after for clauses.")

	body := p.statement()

	if increment != nil {
		body = &Block{Statements: []Stmt{body, &Expression{Expression: increment}}}
	}
	if condition == nil {
		condition = &Literal{Value: true}
	}
	body = &While{Condition: condition, Body: body}
	if initializer != nil {
		body = &Block{Statements: []Stmt{initializer, body}}
	}
	return body
}

func (p *Parser) ifStatement() Stmt {
	p.consume(lexer.TokenLParen, "Expect '(' after 'if'.")
	condition := p.expression()
	p.consume(lexer.TokenRParen, "Expect ')' after if condition.")

	thenBranch := p.statement()
	var elseBranch Stmt
	if p.match(lexer.TokenElse) {
		elseBranch = p.statement()
	}
	return &If{Condition: condition, Then: thenBranch, Else: elseBranch}
}

func (p *Parser) returnStatement() Stmt {
	keyword := p.previous()
	var value Expr
	if !p.check(lexer.TokenSemicolon) {
		value = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "Expect ';' after give value.")
	return &Return{Keyword: keyword, Value: value}
}

func (p *Parser) whileStatement() Stmt {
	p.consume(lexer.TokenLParen, "Expect '(' after 'while'.")
	condition := p.expression()
	p.consume(lexer.TokenRParen, "Expect ')' after condition.")
	body := p.statement()
	return &While{Condition: condition, Body: body}
}

// block parses declarations up to the closing paren; the opening paren has
// already been consumed.
func (p *Parser) block() []Stmt {
	var stmts []Stmt
	for !p.check(lexer.TokenRParen) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	p.consume(lexer.TokenRParen, "Expect ')' after block.")
	return stmts
}

// --- Expression Parsing with Precedence ---

func (p *Parser) expression() Expr {
	return p.assignment()
}

func (p *Parser) assignment() Expr {
	expr := p.or()

	if p.match(lexer.TokenEqual) {
		equals := p.previous()
		value := p.assignment()

		switch target := expr.(type) {
		case *Variable:
			return NewAssign(target.Name, value)
		case *Get:
			return &Set{Object: target.Object, Name: target.Name, Value: value}
		}
		p.report(equals, "Invalid assignment target.")
	}
	return expr
}

func (p *Parser) or() Expr {
	expr := p.and()
	for p.match(lexer.TokenOr) {
		operator := p.previous()
		right := p.and()
		expr = &Logical{Left: expr, Operator: operator, Right: right}
	}
	return expr
}

func (p *Parser) and() Expr {
	expr := p.equality()
	for p.match(lexer.TokenAnd) {
		operator := p.previous()
		right := p.equality()
		expr = &Logical{Left: expr, Operator: operator, Right: right}
	}
	return expr
}

func (p *Parser) equality() Expr {
	return p.binary(p.comparison, lexer.TokenNotEqual, lexer.TokenDoubleEqual)
}

func (p *Parser) comparison() Expr {
	return p.binary(p.term, lexer.TokenGT, lexer.TokenGE, lexer.TokenLT, lexer.TokenLE)
}

func (p *Parser) term() Expr {
	return p.binary(p.factor, lexer.TokenMinus, lexer.TokenPlus)
}

func (p *Parser) factor() Expr {
	return p.binary(p.unary, lexer.TokenSlash, lexer.TokenStar)
}

// binary folds a left-associative level: operand (op operand)*.
func (p *Parser) binary(operand func() Expr, operators ...lexer.TokenType) Expr {
	expr := operand()
	for p.match(operators...) {
		operator := p.previous()
		right := operand()
		expr = &Binary{Left: expr, Operator: operator, Right: right}
	}
	return expr
}

func (p *Parser) unary() Expr {
	if p.match(lexer.TokenNot, lexer.TokenMinus) {
		operator := p.previous()
		right := p.unary()
		return &Unary{Operator: operator, Right: right}
	}
	return p.call()
}

func (p *Parser) call() Expr {
	expr := p.primary()
	for {
		if p.match(lexer.TokenLParen) {
			expr = p.finishCall(expr)
		} else if p.match(lexer.TokenDot) {
			name := p.consume(lexer.TokenIdent, "Expect property name after '.'.")
			expr = &Get{Object: expr, Name: name}
		} else {
			break
		}
	}
	return expr
}

func (p *Parser) finishCall(callee Expr) Expr {
	var args []Expr
	if !p.check(lexer.TokenRParen) {
		for {
			if len(args) >= maxArgs {
				p.report(p.peek(), "Can't have more than 255 arguments.")
			}
			args = append(args, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	paren := p.consume(lexer.TokenRParen, "Expect ')' after arguments.")
	return &Call{Callee: callee, Paren: paren, Args: args}
}

func (p *Parser) primary() Expr {
	switch {
	case p.match(lexer.TokenImpossible):
		return &Literal{Value: false}
	case p.match(lexer.TokenSurely):
		return &Literal{Value: true}
	case p.match(lexer.TokenEmptiness):
		return &Literal{Value: nil}
	case p.match(lexer.TokenNumber, lexer.TokenString):
		return &Literal{Value: p.previous().Literal}
	case p.match(lexer.TokenMe):
		return NewThis(p.previous())
	case p.match(lexer.TokenIdent):
		return NewVariable(p.previous())
	case p.match(lexer.TokenLParen):
		expr := p.expression()
		p.consume(lexer.TokenRParen, "Expect ')' after expression.")
		return &Grouping{Expression: expr}
	}
	panic(p.error(p.peek(), "Expect expression."))
}

// synchronize discards tokens until a statement boundary so one mistake
// produces one error. A keyword that starts a statement is never discarded:
// a missing ';' is usually reported at the next statement's first token.
func (p *Parser) synchronize() {
	if p.startsStatement() {
		return
	}
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.TokenSemicolon || p.startsStatement() {
			return
		}
		p.advance()
	}
}

// startsStatement reports whether the next token begins a declaration or a
// keyword statement. The failing declaration has always consumed its own
// leading keyword, so resuming here makes progress.
func (p *Parser) startsStatement() bool {
	switch p.peek().Type {
	case lexer.TokenYouth, lexer.TokenListen, lexer.TokenIs, lexer.TokenFor,
		lexer.TokenIf, lexer.TokenWhile, lexer.TokenTell, lexer.TokenGive:
		return true
	}
	return false
}

// --- Utility methods ---

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	panic(p.error(p.peek(), msg))
}

// error records a syntax error and returns the value to panic with.
func (p *Parser) error(tok lexer.Token, msg string) parseError {
	return parseError{err: p.report(tok, msg)}
}

// report records a syntax error without unwinding.
func (p *Parser) report(tok lexer.Token, msg string) *errors.Error {
	atEnd := tok.Type == lexer.TokenEOF
	err := errors.NewSyntaxError(msg, tok.Lexeme, atEnd, tok.Line, tok.Column)
	if p.file != "" {
		err = err.WithFile(p.file)
	}
	if p.sourceLines != nil && tok.Line > 0 && tok.Line <= len(p.sourceLines) {
		err = err.WithSource(strings.TrimRight(p.sourceLines[tok.Line-1], "\r"))
	}
	p.Errors = append(p.Errors, err)
	return err
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
