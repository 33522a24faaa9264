package layout

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// DomainLayout separates layout hashes from any other SHA-256 use.
// The version suffix allows a future change of the hashed fields.
const DomainLayout = "layoutkit/layout/v1"

var (
	uuidType            = reflect.TypeFor[uuid.UUID]()
	timeType            = reflect.TypeFor[time.Time]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// IsText reports whether values of t are carried in their text form:
// t is not a pointer or interface, t or *t implements
// encoding.TextMarshaler, and *t implements encoding.TextUnmarshaler.
// uuid.UUID and time.Time have fingerprints of their own and are excluded.
func IsText(t reflect.Type) bool {
	switch t {
	case uuidType, timeType:
		return false
	}
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return (t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)) &&
		pt.Implements(textUnmarshalerType)
}

// QualifiedName returns "pkgpath.Name" for named types and the type's
// string form otherwise.
func QualifiedName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Fingerprint returns the stable, platform-independent type tag used in
// layout hashes. Named types fingerprint as their underlying kind, except
// for structs which fingerprint by qualified name and text types which
// fingerprint as text<qualified name>. A named type reached again while
// its own fingerprint is being computed is written as ref<qualified name>.
func Fingerprint(t reflect.Type) (string, error) {
	return fingerprint(t, make(map[reflect.Type]bool))
}

func fingerprint(t reflect.Type, visiting map[reflect.Type]bool) (string, error) {
	if IsText(t) {
		return "text<" + QualifiedName(t) + ">", nil
	}

	if t.Name() != "" {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			if visiting[t] {
				return "ref<" + QualifiedName(t) + ">", nil
			}
			visiting[t] = true
			defer delete(visiting, t)
		}
	}

	switch t {
	case uuidType:
		return "uuid", nil
	case timeType:
		return "timestamp", nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return "bool", nil
	case reflect.Int8:
		return "int8", nil
	case reflect.Int16:
		return "int16", nil
	case reflect.Int32:
		return "int32", nil
	case reflect.Int, reflect.Int64:
		return "int64", nil
	case reflect.Uint8:
		return "uint8", nil
	case reflect.Uint16:
		return "uint16", nil
	case reflect.Uint32:
		return "uint32", nil
	case reflect.Uint, reflect.Uint64:
		return "uint64", nil
	case reflect.Float32:
		return "float32", nil
	case reflect.Float64:
		return "float64", nil
	case reflect.String:
		return "string", nil
	case reflect.Interface:
		return "any", nil
	case reflect.Struct:
		return "object<" + QualifiedName(t) + ">", nil
	case reflect.Pointer:
		elem, err := fingerprint(t.Elem(), visiting)
		if err != nil {
			return "", err
		}
		return "optional<" + elem + ">", nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytes", nil
		}
		elem, err := fingerprint(t.Elem(), visiting)
		if err != nil {
			return "", err
		}
		return "list<" + elem + ">", nil
	case reflect.Array:
		elem, err := fingerprint(t.Elem(), visiting)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("array<%d,%s>", t.Len(), elem), nil
	case reflect.Map:
		key, err := fingerprint(t.Key(), visiting)
		if err != nil {
			return "", err
		}
		elem, err := fingerprint(t.Elem(), visiting)
		if err != nil {
			return "", err
		}
		return "map<" + key + "," + elem + ">", nil
	default:
		return "", fmt.Errorf("unsupported property type %s", t)
	}
}

// layoutHash computes the content hash of a layout.
// Format: SHA256(domain 0x00 name 0x00 (prop.name 0x00 prop.fingerprint 0x00)*)
// Names are NFC normalized so visually identical names hash identically.
func layoutHash(name string, props []Property) string {
	h := sha256.New()
	h.Write([]byte(DomainLayout))
	h.Write([]byte{0x00})
	h.Write([]byte(norm.NFC.String(name)))
	h.Write([]byte{0x00})
	for _, p := range props {
		h.Write([]byte(norm.NFC.String(p.Name)))
		h.Write([]byte{0x00})
		h.Write([]byte(p.Fingerprint))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}
