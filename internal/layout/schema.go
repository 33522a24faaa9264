package layout

import (
	"fmt"
	"reflect"
	"strings"
)

// Property is one entry of a layout: a bound constructor parameter.
type Property struct {
	Parameter

	// Position is the index of the property in canonical order.
	Position int

	// Fingerprint is the type tag hashed into the layout.
	Fingerprint string

	get func(v reflect.Value) reflect.Value
}

// Schema is the type-erased, immutable layout of one type.
//
// Schemas are owned by the Engine cache and shared by every caller; nothing
// in a Schema changes after it is published.
type Schema struct {
	owner       reflect.Type
	name        string
	backend     string
	properties  []Property
	positions   map[string]int
	constructor Constructor
	hash        string
}

// Type returns the owner type.
func (s *Schema) Type() reflect.Type { return s.owner }

// Name returns the layout name (qualified type name unless overridden by a Marker).
func (s *Schema) Name() string { return s.name }

// Backend returns the name of the introspector that described the type.
func (s *Schema) Backend() string { return s.backend }

// Hash returns the hex-encoded layout hash.
func (s *Schema) Hash() string { return s.hash }

// Constructor returns the canonical constructor.
func (s *Schema) Constructor() Constructor { return s.constructor }

// Len returns the number of properties.
func (s *Schema) Len() int { return len(s.properties) }

// Properties returns the properties in canonical order.
// Encoders must iterate properties in exactly this order.
func (s *Schema) Properties() []Property {
	return append([]Property(nil), s.properties...)
}

// Property returns the named property.
func (s *Schema) Property(name string) (Property, bool) {
	i, ok := s.positions[name]
	if !ok {
		return Property{}, false
	}
	return s.properties[i], true
}

// Get reads the named property from instance.
func (s *Schema) Get(instance any, name string) (any, error) {
	v, err := s.GetValue(reflect.ValueOf(instance), name)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// GetValue is the reflect form of Get.
func (s *Schema) GetValue(instance reflect.Value, name string) (reflect.Value, error) {
	i, ok := s.positions[name]
	if !ok {
		return reflect.Value{}, unknownPropertyError(s.owner, name)
	}
	if err := s.checkInstance(instance); err != nil {
		return reflect.Value{}, err
	}
	return s.properties[i].get(instance), nil
}

// Values reads every property of instance in canonical order.
func (s *Schema) Values(instance any) ([]any, error) {
	vs, err := s.ValuesOf(reflect.ValueOf(instance))
	if err != nil {
		return nil, err
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Interface()
	}
	return out, nil
}

// ValuesOf is the reflect form of Values.
func (s *Schema) ValuesOf(instance reflect.Value) ([]reflect.Value, error) {
	if err := s.checkInstance(instance); err != nil {
		return nil, err
	}
	out := make([]reflect.Value, len(s.properties))
	for i, p := range s.properties {
		out[i] = p.get(instance)
	}
	return out, nil
}

// Build constructs an instance from values in canonical order.
// The canonical constructor runs exactly once per successful call.
func (s *Schema) Build(values []any) (any, error) {
	out, err := s.BuildValue(reflectValues(values))
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// BuildValue is the reflect form of Build. An invalid reflect.Value stands
// for nil and is accepted only by nillable property types.
func (s *Schema) BuildValue(values []reflect.Value) (reflect.Value, error) {
	if len(values) != len(s.properties) {
		return reflect.Value{}, &Error{
			Code:    ErrCodeArity,
			Type:    s.owner,
			Message: fmt.Sprintf("expected %d values, got %d", len(s.properties), len(values)),
		}
	}

	args := make([]reflect.Value, len(values))
	for i, p := range s.properties {
		v := values[i]
		if !v.IsValid() {
			if !nillable(p.Type) {
				return reflect.Value{}, &Error{
					Code:     ErrCodeTypeMismatch,
					Type:     s.owner,
					Property: p.Name,
					Message:  fmt.Sprintf("nil is not assignable to %s", p.Type),
				}
			}
			args[i] = reflect.Zero(p.Type)
			continue
		}
		if !v.Type().AssignableTo(p.Type) {
			return reflect.Value{}, &Error{
				Code:     ErrCodeTypeMismatch,
				Type:     s.owner,
				Property: p.Name,
				Message:  fmt.Sprintf("%s is not assignable to %s", v.Type(), p.Type),
			}
		}
		args[i] = v
	}

	out, err := s.constructor.invoke(args)
	if err != nil {
		return reflect.Value{}, &Error{
			Code:    ErrCodeConstructorFailed,
			Type:    s.owner,
			Message: "canonical constructor failed",
			Cause:   err,
		}
	}
	return out, nil
}

// String renders the layout as its name and hash followed by one
// indented line per property.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	b.WriteByte(' ')
	b.WriteString(s.hash)
	b.WriteByte('\n')
	for _, p := range s.properties {
		fmt.Fprintf(&b, "    %s: %s\n", p.Name, p.Type)
	}
	return b.String()
}

func (s *Schema) checkInstance(v reflect.Value) error {
	if !v.IsValid() {
		return &Error{Code: ErrCodeTypeMismatch, Type: s.owner, Message: "nil instance"}
	}
	if v.Type() != s.owner {
		return &Error{
			Code:    ErrCodeTypeMismatch,
			Type:    s.owner,
			Message: fmt.Sprintf("instance has type %s", v.Type()),
		}
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return &Error{Code: ErrCodeTypeMismatch, Type: s.owner, Message: "nil instance"}
	}
	return nil
}

// reflectValues maps nil to the invalid reflect.Value.
func reflectValues(values []any) []reflect.Value {
	out := make([]reflect.Value, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = reflect.ValueOf(v)
		}
	}
	return out
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
