package interpreter

import "youth/internal/lexer"

// Instance holds per-object fields. Fields shadow methods of the same name.
type Instance struct {
	class  *Class
	fields map[string]Value
}

func NewInstance(class *Class) *Instance {
	return &Instance{class: class, fields: make(map[string]Value)}
}

func (i *Instance) Class() *Class {
	return i.class
}

func (i *Instance) Get(name lexer.Token) (Value, error) {
	if value, ok := i.fields[name.Lexeme]; ok {
		return value, nil
	}
	if method := i.class.FindMethod(name.Lexeme); method != nil {
		return method.Bind(i), nil
	}
	return nil, runtimeError(name, "Undefined property '%s'.", name.Lexeme)
}

func (i *Instance) Set(name lexer.Token, value Value) {
	i.fields[name.Lexeme] = value
}

func (i *Instance) String() string {
	return i.class.Name + " instance"
}
