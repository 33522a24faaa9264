package index

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/layoutkit/internal/layout"
)

var (
	// ErrDuplicateIndex is returned when a type declares two indices with one name.
	ErrDuplicateIndex = errors.New("duplicate index")

	// ErrUnsupportedFeature is returned when an index declares a feature its
	// values cannot provide, or a query needs a feature the index lacks.
	ErrUnsupportedFeature = errors.New("unsupported index feature")
)

// QueryOptions shape how evaluators compute values, e.g. a locale or a
// reference time. Evaluators that need no options ignore them.
type QueryOptions map[string]any

// definition is one declared index, erased over its owner type.
type definition struct {
	name     string
	features []Feature
	property string
	typ      reflect.Type
	values   any // func(T, QueryOptions) ([]any, error), nil when property-backed
}

// Registry holds index declarations per type.
//
// Declarations are expected during initialization. For derives the owner's
// layout before resolving any index, so evaluators always run against a
// type whose layout is known to be valid.
type Registry struct {
	engine *layout.Engine

	mu   sync.RWMutex
	defs map[reflect.Type][]definition
}

// NewRegistry creates an empty Registry resolving layouts through e.
func NewRegistry(e *layout.Engine) *Registry {
	return &Registry{
		engine: e,
		defs:   make(map[reflect.Type][]definition),
	}
}

// Declare adds a single-valued index on T computed by fn.
// Without features the index supports EQ only.
func Declare[T, V any](r *Registry, name string, fn func(T, QueryOptions) V, features ...Feature) error {
	if fn == nil {
		return fmt.Errorf("declare index %q: nil evaluator", name)
	}
	return r.add(reflect.TypeFor[T](), definition{
		name:     name,
		features: features,
		typ:      reflect.TypeFor[V](),
		values: func(instance T, opts QueryOptions) ([]any, error) {
			return []any{fn(instance, opts)}, nil
		},
	})
}

// DeclareMulti adds an index on T where each instance has zero or more values.
func DeclareMulti[T, V any](r *Registry, name string, fn func(T, QueryOptions) []V, features ...Feature) error {
	if fn == nil {
		return fmt.Errorf("declare index %q: nil evaluator", name)
	}
	return r.add(reflect.TypeFor[T](), definition{
		name:     name,
		features: features,
		typ:      reflect.TypeFor[V](),
		values: func(instance T, opts QueryOptions) ([]any, error) {
			vs := fn(instance, opts)
			out := make([]any, len(vs))
			for i, v := range vs {
				out[i] = v
			}
			return out, nil
		},
	})
}

// DeclareProperty adds an index named after a layout property of T whose
// value is read through the layout accessor. The property is checked
// against the layout when the index is resolved by For.
func DeclareProperty[T any](r *Registry, property string, features ...Feature) error {
	return r.add(reflect.TypeFor[T](), definition{
		name:     property,
		features: features,
		property: property,
	})
}

func (r *Registry) add(t reflect.Type, d definition) error {
	if d.name == "" {
		return fmt.Errorf("declare index on %s: empty name", t)
	}

	if len(d.features) == 0 {
		d.features = []Feature{EQ}
	}
	features := make([]Feature, 0, len(d.features))
	for _, f := range d.features {
		if _, err := ParseFeature(string(f)); err != nil {
			return fmt.Errorf("declare index %q on %s: %w", d.name, t, err)
		}
		if !slices.Contains(features, f) {
			features = append(features, f)
		}
	}
	d.features = features

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.defs[t] {
		if existing.name == d.name {
			return fmt.Errorf("declare index %q on %s: %w", d.name, t, ErrDuplicateIndex)
		}
	}
	r.defs[t] = append(r.defs[t], d)
	return nil
}

// For returns the indices declared on T in declaration order.
//
// T's layout is derived first; a derivation error is returned unchanged.
// A property-backed index naming no layout property fails with an
// UNKNOWN_PROPERTY layout error.
func For[T any](r *Registry) ([]Index[T], error) {
	t := reflect.TypeFor[T]()
	l, err := layout.For[T](r.engine)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defs := slices.Clone(r.defs[t])
	r.mu.RUnlock()

	out := make([]Index[T], 0, len(defs))
	for _, d := range defs {
		ix := Index[T]{
			name:     d.name,
			features: d.features,
			property: d.property,
			typ:      d.typ,
		}

		if d.property != "" {
			p, ok := l.Schema().Property(d.property)
			if !ok {
				return nil, &layout.Error{
					Code:     layout.ErrCodeUnknownProperty,
					Type:     t,
					Property: d.property,
					Message:  fmt.Sprintf("index %q references no layout property", d.name),
				}
			}
			ix.typ = p.Type
			ix.values = func(instance T, _ QueryOptions) ([]any, error) {
				v, err := l.Get(instance, p.Name)
				if err != nil {
					return nil, err
				}
				return []any{v}, nil
			}
		} else {
			ix.values = d.values.(func(T, QueryOptions) ([]any, error))
		}

		for _, f := range ix.features {
			if !f.supports(ix.typ) {
				return nil, fmt.Errorf("index %q on %s: %w: %s needs %s values, got %s",
					ix.name, l.Name(), ErrUnsupportedFeature, f, f.requires(), ix.typ)
			}
		}
		out = append(out, ix)
	}
	return out, nil
}

// Index is a resolved index on T.
type Index[T any] struct {
	name     string
	features []Feature
	property string
	typ      reflect.Type
	values   func(T, QueryOptions) ([]any, error)
}

// Name returns the index name.
func (ix Index[T]) Name() string { return ix.name }

// Features returns the declared features.
func (ix Index[T]) Features() []Feature { return slices.Clone(ix.features) }

// Property returns the backing layout property, or "" for computed indices.
func (ix Index[T]) Property() string { return ix.property }

// Type returns the type of each indexed value.
func (ix Index[T]) Type() reflect.Type { return ix.typ }

// Has reports whether the index declares f.
func (ix Index[T]) Has(f Feature) bool { return slices.Contains(ix.features, f) }

// Values evaluates the index on instance.
func (ix Index[T]) Values(instance T, opts QueryOptions) ([]any, error) {
	return ix.values(instance, opts)
}

// Lookup returns the index named name.
func Lookup[T any](indices []Index[T], name string) (Index[T], bool) {
	for _, ix := range indices {
		if ix.name == name {
			return ix, true
		}
	}
	return Index[T]{}, false
}
