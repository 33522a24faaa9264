package record

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/layoutkit/internal/layout"
)

// decoder reads property values of known type from raw JSON.
type decoder struct {
	engine *layout.Engine
}

func (dec decoder) decode(raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	raw = bytes.TrimSpace(raw)
	if string(raw) == "null" {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("null for non-nullable %s", t)
		}
	}

	switch t {
	case uuidType:
		s, err := dec.str(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(id), nil
	case timeType:
		s, err := dec.str(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(ts), nil
	}
	if layout.IsText(t) {
		return dec.decodeText(raw, t)
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(string(raw))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid %s: %s", t, raw)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(string(raw), 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid %s: %w", t, err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(string(raw), 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid %s: %w", t, err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(string(raw), t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid %s: %w", t, err)
		}
		out.SetFloat(f)
	case reflect.String:
		s, err := dec.str(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	case reflect.Pointer:
		elem, err := dec.decode(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			s, err := dec.str(raw)
			if err != nil {
				return reflect.Value{}, err
			}
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetBytes(b)
			return out, nil
		}
		items, err := dec.list(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.MakeSlice(t, len(items), len(items))
		if err := dec.fill(out, items, t.Elem()); err != nil {
			return reflect.Value{}, err
		}
	case reflect.Array:
		items, err := dec.list(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(items) != t.Len() {
			return reflect.Value{}, fmt.Errorf("%s needs %d elements, got %d", t, t.Len(), len(items))
		}
		if err := dec.fill(out, items, t.Elem()); err != nil {
			return reflect.Value{}, err
		}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("map key type %s is not a string", t.Key())
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid %s: %w", t, err)
		}
		out = reflect.MakeMapWithSize(t, len(fields))
		for k, item := range fields {
			v, err := dec.decode(item, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("[%q]: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
		}
	case reflect.Struct:
		return dec.decodeStruct(raw, t)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported value type %s", t)
	}
	return out, nil
}

func (dec decoder) decodeStruct(raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	s, err := dec.engine.Describe(t)
	if err != nil {
		return reflect.Value{}, err
	}
	items, err := dec.list(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(items) != s.Len() {
		return reflect.Value{}, fmt.Errorf("%s needs %d properties, got %d", s.Name(), s.Len(), len(items))
	}

	args := make([]reflect.Value, len(items))
	for i, p := range s.Properties() {
		v, err := dec.decode(items[i], p.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%s.%s: %w", s.Name(), p.Name, err)
		}
		args[i] = v
	}
	return s.BuildValue(args)
}

func (dec decoder) decodeText(raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	s, err := dec.str(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	u, ok := ptr.Interface().(encoding.TextUnmarshaler)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%s is not a text unmarshaler", t)
	}
	if err := u.UnmarshalText([]byte(s)); err != nil {
		return reflect.Value{}, fmt.Errorf("invalid %s: %w", t, err)
	}
	return ptr.Elem(), nil
}

func (dec decoder) fill(out reflect.Value, items []json.RawMessage, elem reflect.Type) error {
	for i, item := range items {
		v, err := dec.decode(item, elem)
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return nil
}

func (decoder) list(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected array: %w", err)
	}
	return items, nil
}

func (decoder) str(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string: %w", err)
	}
	return s, nil
}
