package layout

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrorCode categorizes layout errors.
type ErrorCode string

const (
	// ErrCodeIntrospection indicates a backend could not describe the type.
	ErrCodeIntrospection ErrorCode = "INTROSPECTION_FAILED"

	// ErrCodeLayoutConstruction indicates no single canonical constructor could be selected,
	// or the selected constructor cannot form a layout.
	ErrCodeLayoutConstruction ErrorCode = "LAYOUT_CONSTRUCTION"

	// ErrCodePropertyBinding indicates a constructor parameter has no matching accessor.
	ErrCodePropertyBinding ErrorCode = "PROPERTY_BINDING"

	// ErrCodeUnknownProperty indicates a property name is not part of the layout.
	ErrCodeUnknownProperty ErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeArity indicates the wrong number of values was passed to Build.
	ErrCodeArity ErrorCode = "ARITY"

	// ErrCodeTypeMismatch indicates a value is not assignable to the declared type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeConstructorFailed indicates the canonical constructor returned an error.
	ErrCodeConstructorFailed ErrorCode = "CONSTRUCTOR_FAILED"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrIntrospection      = &Error{Code: ErrCodeIntrospection}
	ErrLayoutConstruction = &Error{Code: ErrCodeLayoutConstruction}
	ErrPropertyBinding    = &Error{Code: ErrCodePropertyBinding}
	ErrUnknownProperty    = &Error{Code: ErrCodeUnknownProperty}
	ErrArity              = &Error{Code: ErrCodeArity}
	ErrTypeMismatch       = &Error{Code: ErrCodeTypeMismatch}
	ErrConstructorFailed  = &Error{Code: ErrCodeConstructorFailed}
)

// Error is the structured error returned by every layout operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Type is the owner type, when known.
	Type reflect.Type

	// Property names the offending property or parameter, if any.
	Property string

	// Message is a human-readable description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	switch {
	case e.Type != nil && e.Property != "":
		msg += fmt.Sprintf(" (type=%s, property=%s)", e.Type, e.Property)
	case e.Type != nil:
		msg += fmt.Sprintf(" (type=%s)", e.Type)
	case e.Property != "":
		msg += fmt.Sprintf(" (property=%s)", e.Property)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, t reflect.Type, format string, args ...any) *Error {
	return &Error{Code: code, Type: t, Message: fmt.Sprintf(format, args...)}
}

func introspectionError(t reflect.Type, format string, args ...any) *Error {
	return newError(ErrCodeIntrospection, t, format, args...)
}

func constructionError(t reflect.Type, format string, args ...any) *Error {
	return newError(ErrCodeLayoutConstruction, t, format, args...)
}

func bindingError(t reflect.Type, property, format string, args ...any) *Error {
	err := newError(ErrCodePropertyBinding, t, format, args...)
	err.Property = property
	return err
}

func unknownPropertyError(t reflect.Type, property string) *Error {
	return &Error{
		Code:     ErrCodeUnknownProperty,
		Type:     t,
		Property: property,
		Message:  "property is not part of the layout",
	}
}

// IsIntrospectionError returns true if a backend failed to describe the type.
func IsIntrospectionError(err error) bool {
	return errors.Is(err, ErrIntrospection)
}

// IsLayoutConstructionError returns true if no canonical layout could be formed.
func IsLayoutConstructionError(err error) bool {
	return errors.Is(err, ErrLayoutConstruction)
}

// IsPropertyBindingError returns true if a parameter did not bind to an accessor.
func IsPropertyBindingError(err error) bool {
	return errors.Is(err, ErrPropertyBinding)
}

// IsUnknownPropertyError returns true if a property lookup missed.
func IsUnknownPropertyError(err error) bool {
	return errors.Is(err, ErrUnknownProperty)
}

// IsArityError returns true if Build received the wrong number of values.
func IsArityError(err error) bool {
	return errors.Is(err, ErrArity)
}

// IsTypeMismatchError returns true if a value did not match its declared type.
func IsTypeMismatchError(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}
