package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/layoutkit/internal/layout"
)

// ErrLayoutMismatch is returned when a record was written under a layout
// other than the target type's current one.
var ErrLayoutMismatch = errors.New("layout mismatch")

// Raw is a record with its property values left undecoded.
type Raw struct {
	Layout     string            `json:"layout"`
	Properties []json.RawMessage `json:"properties"`
}

// Marshal encodes v as a record under T's layout in e.
func Marshal[T any](e *layout.Engine, v T) ([]byte, error) {
	l, err := layout.For[T](e)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	values, err := l.Schema().ValuesOf(reflect.ValueOf(&v).Elem())
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	enc := encoder{engine: e}
	var buf bytes.Buffer
	buf.WriteString(`{"layout":`)
	enc.writeString(&buf, l.Hash())
	buf.WriteString(`,"properties":[`)
	for i, p := range l.Properties() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.encode(&buf, values[i]); err != nil {
			return nil, fmt.Errorf("marshal record: property %q: %w", p.Name, err)
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// Unmarshal decodes a record into a new T, calling T's canonical
// constructor exactly once.
func Unmarshal[T any](e *layout.Engine, data []byte) (T, error) {
	var zero T

	l, err := layout.For[T](e)
	if err != nil {
		return zero, fmt.Errorf("unmarshal record: %w", err)
	}

	env, err := Parse(data)
	if err != nil {
		return zero, fmt.Errorf("unmarshal record: %w", err)
	}
	if env.Layout != l.Hash() {
		return zero, fmt.Errorf("unmarshal record: %w: record has %s, %s has %s",
			ErrLayoutMismatch, env.Layout, l.Name(), l.Hash())
	}

	props := l.Properties()
	if len(env.Properties) != len(props) {
		return zero, fmt.Errorf("unmarshal record: %w: record has %d properties, %s has %d",
			ErrLayoutMismatch, len(env.Properties), l.Name(), len(props))
	}

	dec := decoder{engine: e}
	args := make([]any, len(props))
	for i, p := range props {
		v, err := dec.decode(env.Properties[i], p.Type)
		if err != nil {
			return zero, fmt.Errorf("unmarshal record: property %q: %w", p.Name, err)
		}
		args[i] = v.Interface()
	}

	out, err := l.Build(args...)
	if err != nil {
		return zero, fmt.Errorf("unmarshal record: %w", err)
	}
	return out, nil
}

// LayoutOf returns the layout hash a record was written under without
// decoding its properties.
func LayoutOf(data []byte) (string, error) {
	env, err := Parse(data)
	if err != nil {
		return "", err
	}
	return env.Layout, nil
}

// Parse splits a record into its layout hash and raw property values
// without knowing the record's type.
func Parse(data []byte) (Raw, error) {
	var env Raw
	if err := json.Unmarshal(data, &env); err != nil {
		return Raw{}, fmt.Errorf("malformed record: %w", err)
	}
	if env.Layout == "" {
		return Raw{}, errors.New("malformed record: missing layout")
	}
	if env.Properties == nil {
		return Raw{}, errors.New("malformed record: missing properties")
	}
	return env, nil
}
