package layout

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Backend names of the built-in introspectors.
const (
	StructBackend = "struct"
	FuncBackend   = "func"
)

// Introspector enumerates the constructors of a type.
//
// Implementations report every constructor they can see; choosing the
// canonical one is the Engine's job, so swapping backends never changes
// selection policy. Zero, one or many constructors are all valid results.
// Types the backend cannot describe fail with an ErrCodeIntrospection error.
type Introspector interface {
	Name() string
	Constructors(t reflect.Type) ([]Constructor, error)
}

// StructIntrospector treats a struct literal as the only constructor of a
// struct (or pointer to struct) type. Its parameters are the exported
// fields in declaration order, named by the `layout` tag when present.
// Fields tagged `layout:"-"` are left at their zero value.
//
// Structs whose state is held only in unexported fields (math/big.Int,
// net/netip.Addr) cannot be rebuilt from exported fields and are rejected.
type StructIntrospector struct{}

// Name implements Introspector.
func (StructIntrospector) Name() string { return StructBackend }

// Constructors implements Introspector.
func (StructIntrospector) Constructors(t reflect.Type) ([]Constructor, error) {
	st, ptr := structOf(t)
	if st == nil {
		return nil, introspectionError(t, "%s is not a struct type", t.Kind())
	}

	fields := structFields(st)
	if len(fields) == 0 && hasUnexportedFields(st) {
		return nil, introspectionError(t, "%s keeps its state in unexported fields", QualifiedName(st))
	}
	params := make([]Parameter, len(fields))
	for i, f := range fields {
		params[i] = Parameter{Name: f.name, Type: f.typ}
	}

	build := func(args []reflect.Value) (reflect.Value, error) {
		v := reflect.New(st).Elem()
		for i, f := range fields {
			v.Field(f.index).Set(args[i])
		}
		if ptr {
			return v.Addr(), nil
		}
		return v, nil
	}

	return []Constructor{NewConstructor(t, params, build)}, nil
}

// FuncIntrospector sees only constructor functions registered for a type.
//
// A constructor function returns T or (T, error). Go keeps no parameter
// names at runtime, so they are supplied at registration.
//
// Registration is expected to happen during initialization, before the
// first layout for the type is derived.
type FuncIntrospector struct {
	mu    sync.RWMutex
	ctors map[reflect.Type][]Constructor
}

// FuncOption configures a registered constructor.
type FuncOption func(*Constructor)

// AsLayoutConstructor marks the registered function as the canonical constructor.
func AsLayoutConstructor() FuncOption {
	return func(c *Constructor) {
		c.LayoutConstructor = true
	}
}

var errorType = reflect.TypeFor[error]()

// NewFuncIntrospector creates an empty FuncIntrospector.
func NewFuncIntrospector() *FuncIntrospector {
	return &FuncIntrospector{ctors: make(map[reflect.Type][]Constructor)}
}

// Name implements Introspector.
func (f *FuncIntrospector) Name() string { return FuncBackend }

// Register adds fn as a constructor of its first result type.
// params names each argument of fn, in order.
func (f *FuncIntrospector) Register(fn any, params []string, opts ...FuncOption) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return fmt.Errorf("register constructor: %T is not a function", fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return fmt.Errorf("register constructor: variadic function %s is not supported", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return fmt.Errorf("register constructor: %s must return T or (T, error)", ft)
	}
	if ft.NumIn() != len(params) {
		return fmt.Errorf("register constructor: %s takes %d arguments, %d names given", ft, ft.NumIn(), len(params))
	}

	ps := make([]Parameter, len(params))
	for i, name := range params {
		if name == "" {
			return fmt.Errorf("register constructor: %s argument %d has no name", ft, i)
		}
		ps[i] = Parameter{Name: name, Type: ft.In(i)}
	}

	withErr := ft.NumOut() == 2
	c := NewConstructor(ft.Out(0), ps, func(args []reflect.Value) (reflect.Value, error) {
		out := fv.Call(args)
		if withErr && !out[1].IsNil() {
			return reflect.Value{}, out[1].Interface().(error)
		}
		return out[0], nil
	})
	for _, opt := range opts {
		opt(&c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[c.Result] = append(f.ctors[c.Result], c)
	return nil
}

// MustRegister is like Register but panics on error.
// Use only with constructors known to be valid, e.g. in init functions.
func (f *FuncIntrospector) MustRegister(fn any, params []string, opts ...FuncOption) {
	if err := f.Register(fn, params, opts...); err != nil {
		panic(err)
	}
}

// Constructors implements Introspector.
func (f *FuncIntrospector) Constructors(t reflect.Type) ([]Constructor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ctors := f.ctors[t]
	if len(ctors) == 0 {
		return nil, introspectionError(t, "no constructor functions registered")
	}
	return append([]Constructor(nil), ctors...), nil
}

// structOf returns the struct type behind t and whether t is a pointer to it.
func structOf(t reflect.Type) (reflect.Type, bool) {
	switch {
	case t.Kind() == reflect.Struct:
		return t, false
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return t.Elem(), true
	default:
		return nil, false
	}
}

type structField struct {
	name  string
	index int
	typ   reflect.Type
}

// structFields lists the exported, non-ignored direct fields of st.
// Embedded structs count as one field named after their type.
func structFields(st reflect.Type) []structField {
	var fields []structField
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("layout"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, structField{name: name, index: i, typ: sf.Type})
	}
	return fields
}

func hasUnexportedFields(st reflect.Type) bool {
	for i := 0; i < st.NumField(); i++ {
		if !st.Field(i).IsExported() {
			return true
		}
	}
	return false
}
