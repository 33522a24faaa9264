package layout

import (
	"fmt"
	"reflect"
)

// Parameter describes one constructor argument.
//
// Name must equal the name of the accessor that reads the same value back
// from an instance; this is the binding contract every layout relies on.
type Parameter struct {
	Name string
	Type reflect.Type
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Type)
}

// Constructor describes one candidate constructor of a type.
//
// Constructors are produced by an Introspector for exactly one result type
// and are never shared across types.
type Constructor struct {
	// Parameters in call order.
	Parameters []Parameter

	// LayoutConstructor marks this constructor as the canonical one.
	LayoutConstructor bool

	// Result is the type built by this constructor.
	Result reflect.Type

	build func(args []reflect.Value) (reflect.Value, error)
}

// NewConstructor creates a Constructor for custom Introspector backends.
// build receives arguments already checked against params and must return
// a value of type result.
func NewConstructor(result reflect.Type, params []Parameter, build func(args []reflect.Value) (reflect.Value, error)) Constructor {
	return Constructor{
		Parameters: append([]Parameter(nil), params...),
		Result:     result,
		build:      build,
	}
}

// Canonical returns a copy of c marked as the layout constructor.
func (c Constructor) Canonical() Constructor {
	c.LayoutConstructor = true
	return c
}

// Arity returns the number of parameters.
func (c Constructor) Arity() int {
	return len(c.Parameters)
}

// invoke calls the underlying constructor exactly once.
func (c Constructor) invoke(args []reflect.Value) (reflect.Value, error) {
	if c.build == nil {
		return reflect.Value{}, fmt.Errorf("constructor for %s has no build function", c.Result)
	}
	return c.build(args)
}

func (c Constructor) String() string {
	s := c.Result.String() + "("
	for i, p := range c.Parameters {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ")"
	if c.LayoutConstructor {
		s += " [layout]"
	}
	return s
}
