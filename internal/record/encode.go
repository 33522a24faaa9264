package record

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/roach88/layoutkit/internal/layout"
)

var (
	uuidType = reflect.TypeFor[uuid.UUID]()
	timeType = reflect.TypeFor[time.Time]()
)

// encoder writes canonical JSON for property values. Nested structs are
// written through their own layouts from engine.
type encoder struct {
	engine *layout.Engine
}

func (enc encoder) encode(buf *bytes.Buffer, v reflect.Value) error {
	switch v.Type() {
	case uuidType:
		enc.writeString(buf, v.Interface().(uuid.UUID).String())
		return nil
	case timeType:
		// Times are written as UTC instants. Location and monotonic reading
		// are not kept, so decoded times compare with Equal, not ==.
		enc.writeString(buf, v.Interface().(time.Time).UTC().Format(time.RFC3339Nano))
		return nil
	}
	if layout.IsText(v.Type()) {
		return enc.encodeText(buf, v)
	}

	switch v.Kind() {
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite float %v", f)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, v.Type().Bits()))
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("invalid UTF-8 in string %q", v.String())
		}
		enc.writeString(buf, v.String())
	case reflect.Pointer:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return enc.encode(buf, v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			enc.writeString(buf, base64.StdEncoding.EncodeToString(v.Bytes()))
			return nil
		}
		return enc.encodeList(buf, v)
	case reflect.Array:
		return enc.encodeList(buf, v)
	case reflect.Map:
		return enc.encodeMap(buf, v)
	case reflect.Struct:
		return enc.encodeStruct(buf, v)
	default:
		return fmt.Errorf("unsupported value type %s", v.Type())
	}
	return nil
}

func (enc encoder) encodeList(buf *bytes.Buffer, v reflect.Value) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.encode(buf, v.Index(i)); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func (enc encoder) encodeMap(buf *bytes.Buffer, v reflect.Value) error {
	if v.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("map key type %s is not a string", v.Type().Key())
	}
	if v.IsNil() {
		buf.WriteString("null")
		return nil
	}

	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return compareUTF16(a.String(), b.String())
	})

	buf.WriteByte('{')
	for i, k := range keys {
		if !utf8.ValidString(k.String()) {
			return fmt.Errorf("invalid UTF-8 in map key %q", k.String())
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		enc.writeString(buf, k.String())
		buf.WriteByte(':')
		if err := enc.encode(buf, v.MapIndex(k)); err != nil {
			return fmt.Errorf("[%q]: %w", k.String(), err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func (enc encoder) encodeStruct(buf *bytes.Buffer, v reflect.Value) error {
	s, err := enc.engine.Describe(v.Type())
	if err != nil {
		return err
	}
	values, err := s.ValuesOf(v)
	if err != nil {
		return err
	}

	buf.WriteByte('[')
	for i, p := range s.Properties() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.encode(buf, values[i]); err != nil {
			return fmt.Errorf("%s.%s: %w", s.Name(), p.Name, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// encodeText writes v in its encoding.TextMarshaler form.
func (enc encoder) encodeText(buf *bytes.Buffer, v reflect.Value) error {
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	m, ok := v.Addr().Interface().(encoding.TextMarshaler)
	if !ok {
		return fmt.Errorf("%s is not a text marshaler", v.Type())
	}
	text, err := m.MarshalText()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", v.Type(), err)
	}
	if !utf8.Valid(text) {
		return fmt.Errorf("invalid UTF-8 in %s text", v.Type())
	}
	enc.writeString(buf, string(text))
	return nil
}

// writeString writes s as a JSON string without HTML escaping.
func (encoder) writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	je := json.NewEncoder(&tmp)
	je.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = je.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}

// compareUTF16 orders strings by UTF-16 code units, as RFC 8785 requires
// for object keys. Byte order differs for characters above U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
