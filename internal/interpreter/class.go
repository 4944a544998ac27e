package interpreter

// receiver is the name a bound method sees its instance under.
const receiver = "me"

// Class is a declared youth. Calling it makes an empty instance.
type Class struct {
	Name    string
	methods map[string]*Function
}

func NewClass(name string, methods map[string]*Function) *Class {
	return &Class{Name: name, methods: methods}
}

// FindMethod returns the unbound method or nil.
func (c *Class) FindMethod(name string) *Function {
	return c.methods[name]
}

func (c *Class) Arity() int {
	return 0
}

func (c *Class) Call(_ *Interpreter, _ []Value) (Value, error) {
	return NewInstance(c), nil
}

func (c *Class) String() string {
	return c.Name
}
