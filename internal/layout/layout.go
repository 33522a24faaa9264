package layout

import (
	"fmt"
	"reflect"
)

// Layout is the typed view of a Schema for values of type T.
// Layouts obtained for the same T from the same Engine share one Schema.
type Layout[T any] struct {
	schema *Schema
}

// For returns the layout of T from e, deriving it on first use.
func For[T any](e *Engine) (Layout[T], error) {
	s, err := e.Describe(reflect.TypeFor[T]())
	if err != nil {
		return Layout[T]{}, err
	}
	return Layout[T]{schema: s}, nil
}

// MustFor is like For but panics on error.
// Use only in tests or for types known to be valid.
func MustFor[T any](e *Engine) Layout[T] {
	l, err := For[T](e)
	if err != nil {
		panic(err)
	}
	return l
}

// Of returns the layout of T from the Default engine.
func Of[T any]() (Layout[T], error) {
	return For[T](Default())
}

// Schema returns the shared, type-erased schema.
func (l Layout[T]) Schema() *Schema { return l.schema }

// Name returns the layout name.
func (l Layout[T]) Name() string { return l.schema.Name() }

// Hash returns the layout hash.
func (l Layout[T]) Hash() string { return l.schema.Hash() }

// Properties returns the properties in canonical order.
func (l Layout[T]) Properties() []Property { return l.schema.Properties() }

// Get reads the named property from instance.
func (l Layout[T]) Get(instance T, name string) (any, error) {
	v, err := l.schema.GetValue(reflect.ValueOf(&instance).Elem(), name)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Values reads every property of instance in canonical order.
func (l Layout[T]) Values(instance T) ([]any, error) {
	return l.schema.Values(instance)
}

// Build constructs a T from values in canonical order.
func (l Layout[T]) Build(values ...any) (T, error) {
	var zero T
	out, err := l.schema.BuildValue(reflectValues(values))
	if err != nil {
		return zero, err
	}
	t, ok := reflect.TypeAssert[T](out)
	if !ok {
		return zero, &Error{
			Code:    ErrCodeTypeMismatch,
			Type:    l.schema.owner,
			Message: fmt.Sprintf("constructor built %s", out.Type()),
		}
	}
	return t, nil
}

// GetAs reads the named property and converts it to V.
func GetAs[V, T any](l Layout[T], instance T, name string) (V, error) {
	var zero V
	v, err := l.schema.GetValue(reflect.ValueOf(&instance).Elem(), name)
	if err != nil {
		return zero, err
	}
	out, ok := reflect.TypeAssert[V](v)
	if !ok {
		return zero, &Error{
			Code:     ErrCodeTypeMismatch,
			Type:     l.schema.owner,
			Property: name,
			Message:  fmt.Sprintf("property has type %s, not %s", v.Type(), reflect.TypeFor[V]()),
		}
	}
	return out, nil
}
