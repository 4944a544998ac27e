package lexer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"youth/internal/errors"
)

type TokenType string

const (
	// Keywords
	TokenIs         TokenType = "IS"
	TokenListen     TokenType = "LISTEN"
	TokenTell       TokenType = "TELL"
	TokenGive       TokenType = "GIVE"
	TokenIf         TokenType = "IF"
	TokenElse       TokenType = "ELSE"
	TokenWhile      TokenType = "WHILE"
	TokenFor        TokenType = "FOR"
	TokenAnd        TokenType = "AND"
	TokenOr         TokenType = "OR"
	TokenYouth      TokenType = "YOUTH"
	TokenMe         TokenType = "ME"
	TokenSurely     TokenType = "SURELY"
	TokenImpossible TokenType = "IMPOSSIBLE"
	TokenEmptiness  TokenType = "EMPTINESS"

	// Literals
	TokenIdent  TokenType = "IDENT"
	TokenString TokenType = "STRING"
	TokenNumber TokenType = "NUMBER"

	// Symbols
	TokenLParen      TokenType = "("
	TokenRParen      TokenType = ")"
	TokenComma       TokenType = ","
	TokenDot         TokenType = "."
	TokenColon       TokenType = ":"
	TokenSemicolon   TokenType = ";"
	TokenPlus        TokenType = "+"
	TokenMinus       TokenType = "-"
	TokenStar        TokenType = "*"
	TokenSlash       TokenType = "/"
	TokenNot         TokenType = "!"
	TokenNotEqual    TokenType = "!="
	TokenEqual       TokenType = "="
	TokenDoubleEqual TokenType = "=="
	TokenGT          TokenType = ">"
	TokenGE          TokenType = ">="
	TokenLT          TokenType = "<"
	TokenLE          TokenType = "<="
	TokenEOF         TokenType = "EOF"
)

// Keywords maps reserved identifiers to their token type.
var Keywords = map[string]TokenType{
	"is":         TokenIs,
	"am":         TokenIs,
	"are":        TokenIs,
	"listen":     TokenListen,
	"tell":       TokenTell,
	"give":       TokenGive,
	"if":         TokenIf,
	"else":       TokenElse,
	"while":      TokenWhile,
	"for":        TokenFor,
	"and":        TokenAnd,
	"or":         TokenOr,
	"not":        TokenNot,
	"youth":      TokenYouth,
	"me":         TokenMe,
	"surely":     TokenSurely,
	"impossible": TokenImpossible,
	"emptiness":  TokenEmptiness,
}

// commentKeyword starts a comment that runs to the end of the line.
const commentKeyword = "aside"

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}

type Scanner struct {
	source    string
	file      string
	tokens    []Token
	errors    []*errors.Error
	start     int
	current   int
	line      int
	lineStart int
}

func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

func NewScannerWithFile(source, file string) *Scanner {
	s := NewScanner(source)
	s.file = file
	return s
}

func (s *Scanner) ScanTokens() []Token {
	if s.current == 0 && len(s.source) >= 2 && s.source[0] == '#' && s.source[1] == '!' {
		s.skipShebang()
	}

	for !s.isAtEnd() {
		s.start = s.current
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokenEOF, Lexeme: "", Line: s.line, Column: s.column(s.current)})
	return s.tokens
}

// HadError reports whether any lexical error was recorded.
func (s *Scanner) HadError() bool {
	return len(s.errors) > 0
}

// Errors returns the lexical errors in source order.
func (s *Scanner) Errors() []*errors.Error {
	return s.errors
}

func (s *Scanner) scanToken() {
	c := s.advance()
	switch c {
	case '(':
		s.addToken(TokenLParen)
	case ')':
		s.addToken(TokenRParen)
	case ',':
		s.addToken(TokenComma)
	case '.':
		s.addToken(TokenDot)
	case ':':
		s.addToken(TokenColon)
	case ';':
		s.addToken(TokenSemicolon)
	case '+':
		s.addToken(TokenPlus)
	case '-':
		s.addToken(TokenMinus)
	case '*':
		s.addToken(TokenStar)
	case '/':
		s.addToken(TokenSlash)
	case '=':
		if s.match('=') {
			s.addToken(TokenDoubleEqual)
		} else {
			s.addToken(TokenEqual)
		}
	case '!':
		if s.match('=') {
			s.addToken(TokenNotEqual)
		} else {
			s.addToken(TokenNot)
		}
	case '<':
		if s.match('=') {
			s.addToken(TokenLE)
		} else {
			s.addToken(TokenLT)
		}
	case '>':
		if s.match('=') {
			s.addToken(TokenGE)
		} else {
			s.addToken(TokenGT)
		}
	case '"':
		s.string()
	case '\n':
		s.newline()
	case ' ', '\r', '\t':
		// Ignore whitespace
	default:
		if isDigit(c) {
			s.number()
		} else if isAlpha(c) {
			s.identifier()
		} else {
			s.unexpected()
		}
	}
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) identifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.current]
	if text == commentKeyword {
		for s.peek() != '\n' && !s.isAtEnd() {
			s.advance()
		}
		return
	}
	if t, ok := Keywords[text]; ok {
		s.addToken(t)
		return
	}
	s.addToken(TokenIdent)
}

func (s *Scanner) number() {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	value, err := strconv.ParseFloat(s.source[s.start:s.current], 64)
	if err != nil {
		s.error(fmt.Sprintf("Invalid number '%s'.", s.source[s.start:s.current]), s.start)
		return
	}
	s.addTokenLiteral(TokenNumber, value)
}

func (s *Scanner) string() {
	line, col := s.line, s.column(s.start)
	for s.peek() != '"' && !s.isAtEnd() {
		if s.advance() == '\n' {
			s.newline()
		}
	}
	if s.isAtEnd() {
		s.error("Unterminated string.", s.current)
		return
	}
	s.advance()
	value := s.source[s.start+1 : s.current-1]
	s.tokens = append(s.tokens, Token{
		Type:    TokenString,
		Lexeme:  s.source[s.start:s.current],
		Literal: value,
		Line:    line,
		Column:  col,
	})
}

func (s *Scanner) addToken(t TokenType) {
	s.addTokenLiteral(t, nil)
}

func (s *Scanner) addTokenLiteral(t TokenType, literal any) {
	text := s.source[s.start:s.current]
	s.tokens = append(s.tokens, Token{
		Type:    t,
		Lexeme:  text,
		Literal: literal,
		Line:    s.line,
		Column:  s.column(s.start),
	})
}

func (s *Scanner) error(message string, offset int) {
	err := errors.NewLexError(message, s.line, s.column(offset))
	if s.file != "" {
		err = err.WithFile(s.file)
	}
	s.errors = append(s.errors, err)
}

func (s *Scanner) advance() byte {
	s.current++
	return s.source[s.current-1]
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return '\000'
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return '\000'
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) newline() {
	s.line++
	s.lineStart = s.current
}

// unexpected reports the character starting at s.start once, consuming all
// of its UTF-8 bytes.
func (s *Scanner) unexpected() {
	r, size := utf8.DecodeRuneInString(s.source[s.start:])
	s.current = s.start + size
	if r == utf8.RuneError && size == 1 {
		s.error("Invalid UTF-8 encoding.", s.start)
		return
	}
	s.error(fmt.Sprintf("Unexpected character '%c'.", r), s.start)
}

// column is 1-based and counts characters from the start of the current line.
func (s *Scanner) column(offset int) int {
	if offset < s.lineStart {
		return 1
	}
	return utf8.RuneCountInString(s.source[s.lineStart:offset]) + 1
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// skipShebang skips over shebang line at the beginning of the file
func (s *Scanner) skipShebang() {
	for !s.isAtEnd() && s.peek() != '\n' {
		s.advance()
	}
}
