package index

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ErrUniqueViolation is returned by CheckUnique when two instances share a value.
var ErrUniqueViolation = errors.New("unique index violation")

// Validate checks that every index p reads exists in indices and declares
// the feature p needs. All problems are reported together.
func Validate[T any](indices []Index[T], p Predicate) error {
	v := validator[T]{indices: indices}
	v.walk(p)
	return errors.Join(v.errs...)
}

type validator[T any] struct {
	indices []Index[T]
	errs    []error
}

func (v *validator[T]) walk(p Predicate) {
	if p == nil {
		v.errs = append(v.errs, errors.New("nil predicate"))
		return
	}
	if and, ok := p.(And); ok {
		for _, child := range and.Predicates {
			v.walk(child)
		}
		return
	}

	name, feature, ok := leaf(p)
	if !ok {
		v.errs = append(v.errs, fmt.Errorf("unsupported predicate %T", p))
		return
	}
	ix, ok := Lookup(v.indices, name)
	if !ok {
		v.errs = append(v.errs, fmt.Errorf("unknown index %q", name))
		return
	}
	if !ix.Has(feature) {
		v.errs = append(v.errs, fmt.Errorf("index %q: %w: %s", name, ErrUnsupportedFeature, feature))
	}
	if m, ok := p.(Matches); ok && m.Pattern == nil {
		v.errs = append(v.errs, fmt.Errorf("index %q: nil pattern", name))
	}
}

// Match reports whether instance satisfies p.
func Match[T any](indices []Index[T], instance T, p Predicate, opts QueryOptions) (bool, error) {
	if err := Validate(indices, p); err != nil {
		return false, err
	}
	return matcher[T]{indices: indices, opts: opts}.eval(instance, p)
}

// Filter returns the items satisfying p, in their original order.
func Filter[T any](indices []Index[T], items []T, p Predicate, opts QueryOptions) ([]T, error) {
	if err := Validate(indices, p); err != nil {
		return nil, err
	}
	m := matcher[T]{indices: indices, opts: opts}

	var out []T
	for i, item := range items {
		ok, err := m.eval(item, p)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// CheckUnique verifies that no value of ix occurs in more than one item.
// ix must declare UNIQUE.
func CheckUnique[T any](ix Index[T], items []T, opts QueryOptions) error {
	if !ix.Has(Unique) {
		return fmt.Errorf("index %q: %w: %s", ix.name, ErrUnsupportedFeature, Unique)
	}

	seen := make(map[any]int)
	for i, item := range items {
		values, err := ix.Values(item, opts)
		if err != nil {
			return fmt.Errorf("index %q: item %d: %w", ix.name, i, err)
		}
		for _, v := range values {
			if v == nil || !reflect.TypeOf(v).Comparable() {
				return fmt.Errorf("index %q: item %d: value %v cannot be checked for uniqueness", ix.name, i, v)
			}
			if j, dup := seen[v]; dup && j != i {
				return fmt.Errorf("index %q: %w: %v in items %d and %d", ix.name, ErrUniqueViolation, v, j, i)
			}
			seen[v] = i
		}
	}
	return nil
}

type matcher[T any] struct {
	indices []Index[T]
	opts    QueryOptions
}

func (m matcher[T]) eval(instance T, p Predicate) (bool, error) {
	if and, ok := p.(And); ok {
		for _, child := range and.Predicates {
			ok, err := m.eval(instance, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	name, _, _ := leaf(p)
	ix, _ := Lookup(m.indices, name)
	values, err := ix.Values(instance, m.opts)
	if err != nil {
		return false, fmt.Errorf("index %q: %w", name, err)
	}
	for _, v := range values {
		ok, err := test(p, v)
		if err != nil {
			return false, fmt.Errorf("index %q: %w", name, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// test applies a leaf predicate to one index value.
func test(p Predicate, v any) (bool, error) {
	switch p := p.(type) {
	case Equals:
		return equal(v, p.Value)
	case In:
		for _, want := range p.Values {
			ok, err := equal(v, want)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case LessThan:
		c, err := compare(v, p.Value)
		return c < 0, err
	case GreaterThan:
		c, err := compare(v, p.Value)
		return c > 0, err
	case Between:
		lo, err := compare(v, p.Low)
		if err != nil {
			return false, err
		}
		hi, err := compare(v, p.High)
		return lo >= 0 && hi <= 0, err
	case StartsWith:
		return strings.HasPrefix(text(v), p.Prefix), nil
	case EndsWith:
		return strings.HasSuffix(text(v), p.Suffix), nil
	case Contains:
		return strings.Contains(text(v), p.Substring), nil
	case ContainedIn:
		return strings.Contains(p.Text, text(v)), nil
	case Matches:
		return p.Pattern.MatchString(text(v)), nil
	default:
		return false, fmt.Errorf("unsupported predicate %T", p)
	}
}

// text returns the string underlying v, or "" for non-string values.
func text(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return ""
	}
	return rv.String()
}

// equal compares ordered values numerically so that an int literal
// matches an int64 index; other values compare deeply.
func equal(a, b any) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	if ordered(reflect.TypeOf(a)) && ordered(reflect.TypeOf(b)) {
		c, err := compare(a, b)
		return c == 0, err
	}
	return reflect.DeepEqual(a, b), nil
}

// compare orders two values of compatible kinds: numbers with numbers,
// strings with strings and times with times.
func compare(a, b any) (int, error) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return ta.Compare(tb), nil
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := class(av), class(bv)
	switch {
	case ka == kindString && kb == kindString:
		return strings.Compare(av.String(), bv.String()), nil
	case ka == kindFloat && kb.numeric() || kb == kindFloat && ka.numeric():
		return cmp.Compare(toFloat(av), toFloat(bv)), nil
	case ka == kindInt && kb == kindInt:
		return cmp.Compare(av.Int(), bv.Int()), nil
	case ka == kindUint && kb == kindUint:
		return cmp.Compare(av.Uint(), bv.Uint()), nil
	case ka == kindInt && kb == kindUint:
		if av.Int() < 0 {
			return -1, nil
		}
		return cmp.Compare(uint64(av.Int()), bv.Uint()), nil
	case ka == kindUint && kb == kindInt:
		if bv.Int() < 0 {
			return 1, nil
		}
		return cmp.Compare(av.Uint(), uint64(bv.Int())), nil
	default:
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
}

type valueClass int

const (
	kindOther valueClass = iota
	kindInt
	kindUint
	kindFloat
	kindString
)

func (c valueClass) numeric() bool {
	return c == kindInt || c == kindUint || c == kindFloat
}

func class(v reflect.Value) valueClass {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindUint
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.String:
		return kindString
	default:
		return kindOther
	}
}

func toFloat(v reflect.Value) float64 {
	switch class(v) {
	case kindInt:
		return float64(v.Int())
	case kindUint:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
