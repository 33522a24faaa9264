package layout

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Engine derives and caches layouts.
//
// Thread-safety model:
//   - Describe / For: safe from any goroutine; at most one derivation runs per type
//   - Schema and Layout values: immutable, safe to share
//   - Options: applied once in NewEngine, never mutated afterwards
type Engine struct {
	introspectors map[string]Introspector
	settings      Settings
	logger        *slog.Logger
	widest        bool

	cache  sync.Map // reflect.Type -> *entry
	flight singleflight.Group
}

// entry is a cached derivation result, positive or negative.
type entry struct {
	schema *Schema
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithIntrospector registers a backend under its Name, replacing any
// backend of the same name.
func WithIntrospector(in Introspector) Option {
	return func(e *Engine) {
		e.introspectors[in.Name()] = in
	}
}

// WithSettings sets the marker configuration. The settings are copied.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s.clone()
	}
}

// WithLogger sets the logger used for derivation events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithWidestConstructorFallback enables the legacy selection rule: when no
// constructor is marked, the one with the most parameters wins unless
// another constructor has the same arity.
//
// Deprecated: mark the layout constructor explicitly instead.
func WithWidestConstructorFallback() Option {
	return func(e *Engine) {
		e.widest = true
	}
}

// NewEngine creates an Engine with the struct backend registered.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		introspectors: map[string]Introspector{
			StructBackend: StructIntrospector{},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine { return NewEngine() })

// Default returns the process-wide Engine with default options.
func Default() *Engine {
	return defaultEngine()
}

// Describe returns the cached layout of t, deriving it on first use.
// Failed derivations are cached too and return the same error every time.
func (e *Engine) Describe(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, constructionError(nil, "nil type")
	}
	if v, ok := e.cache.Load(t); ok {
		en := v.(*entry)
		return en.schema, en.err
	}

	v, _, _ := e.flight.Do(flightKey(t), func() (any, error) {
		// A derivation may have finished between the Load above and this flight.
		if v, ok := e.cache.Load(t); ok {
			return v, nil
		}
		en := e.derive(t)
		e.cache.Store(t, en)
		return en, nil
	})
	en := v.(*entry)
	return en.schema, en.err
}

// Schemas returns every successfully derived schema, sorted by name then hash.
func (e *Engine) Schemas() []*Schema {
	var out []*Schema
	e.cache.Range(func(_, v any) bool {
		if en := v.(*entry); en.schema != nil {
			out = append(out, en.schema)
		}
		return true
	})
	slices.SortFunc(out, func(a, b *Schema) int {
		if c := strings.Compare(a.name, b.name); c != 0 {
			return c
		}
		return strings.Compare(a.hash, b.hash)
	})
	return out
}

// flightKey identifies t by its runtime type descriptor address, which is
// unique per type for the life of the process.
func flightKey(t reflect.Type) string {
	return strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16)
}

func (e *Engine) derive(t reflect.Type) *entry {
	schema, err := e.build(t)
	if err != nil {
		e.logger.Warn("layout derivation failed",
			"type", t.String(),
			"error", err,
		)
		return &entry{err: err}
	}
	e.logger.Info("layout derived",
		"type", t.String(),
		"name", schema.name,
		"backend", schema.backend,
		"properties", len(schema.properties),
		"hash", schema.hash,
	)
	return &entry{schema: schema}
}

func (e *Engine) build(t reflect.Type) (*Schema, error) {
	marker := e.markerFor(t)
	e.logger.Debug("deriving layout",
		"type", t.String(),
		"backend", marker.Backend,
	)

	in, ok := e.introspectors[marker.Backend]
	if !ok {
		return nil, constructionError(t, "no introspector registered for backend %q", marker.Backend)
	}

	ctors, err := in.Constructors(t)
	if err != nil {
		if !IsIntrospectionError(err) {
			err = &Error{Code: ErrCodeIntrospection, Type: t, Message: "backend failed", Cause: err}
		}
		return nil, &Error{
			Code:    ErrCodeLayoutConstruction,
			Type:    t,
			Message: fmt.Sprintf("backend %q cannot introspect the type", marker.Backend),
			Cause:   err,
		}
	}
	for _, c := range ctors {
		if c.Result != t {
			return nil, &Error{
				Code:    ErrCodeLayoutConstruction,
				Type:    t,
				Message: fmt.Sprintf("backend %q cannot introspect the type", marker.Backend),
				Cause:   introspectionError(t, "constructor builds %v", c.Result),
			}
		}
	}

	ctor, err := e.selectConstructor(t, ctors)
	if err != nil {
		return nil, err
	}

	props, err := bind(t, ctor)
	if err != nil {
		return nil, err
	}

	name := marker.Name
	if name == "" {
		name = QualifiedName(t)
	}

	positions := make(map[string]int, len(props))
	for i, p := range props {
		positions[p.Name] = i
	}

	return &Schema{
		owner:       t,
		name:        name,
		backend:     marker.Backend,
		properties:  props,
		positions:   positions,
		constructor: ctor,
		hash:        layoutHash(name, props),
	}, nil
}

// selectConstructor picks the canonical constructor:
//   - exactly one marked constructor wins regardless of order
//   - more than one marked constructor is ambiguous
//   - with none marked, a lone constructor is canonical
//   - otherwise the choice is ambiguous (unless the widest fallback is enabled)
func (e *Engine) selectConstructor(t reflect.Type, ctors []Constructor) (Constructor, error) {
	if len(ctors) == 0 {
		return Constructor{}, constructionError(t, "type exposes no constructors")
	}

	var marked []Constructor
	for _, c := range ctors {
		if c.LayoutConstructor {
			marked = append(marked, c)
		}
	}

	switch {
	case len(marked) == 1:
		return marked[0], nil
	case len(marked) > 1:
		return Constructor{}, constructionError(t, "%d constructors are marked as layout constructor", len(marked))
	case len(ctors) == 1:
		return ctors[0], nil
	case e.widest:
		return widest(t, ctors)
	default:
		return Constructor{}, constructionError(t, "%d constructors and none is marked as layout constructor", len(ctors))
	}
}

func widest(t reflect.Type, ctors []Constructor) (Constructor, error) {
	sorted := slices.Clone(ctors)
	slices.SortStableFunc(sorted, func(a, b Constructor) int {
		return b.Arity() - a.Arity()
	})
	if sorted[0].Arity() == sorted[1].Arity() {
		return Constructor{}, constructionError(t,
			"more than one constructor with %d parameters and none is marked as layout constructor",
			sorted[0].Arity())
	}
	return sorted[0], nil
}

// bind turns the canonical constructor's parameters into properties,
// resolving one accessor per parameter by exact name.
func bind(t reflect.Type, ctor Constructor) ([]Property, error) {
	accessors := accessorsOf(t)
	props := make([]Property, len(ctor.Parameters))
	seen := make(map[string]bool, len(ctor.Parameters))

	for i, p := range ctor.Parameters {
		if seen[p.Name] {
			err := constructionError(t, "duplicate property %q", p.Name)
			err.Property = p.Name
			return nil, err
		}
		seen[p.Name] = true

		fp, err := Fingerprint(p.Type)
		if err != nil {
			return nil, &Error{Code: ErrCodeLayoutConstruction, Type: t, Property: p.Name, Message: "unsupported property type", Cause: err}
		}

		acc, ok := accessors[p.Name]
		if !ok {
			return nil, bindingError(t, p.Name, "no accessor named %q", p.Name)
		}
		if !acc.typ.AssignableTo(p.Type) {
			return nil, bindingError(t, p.Name, "accessor returns %s, parameter declares %s", acc.typ, p.Type)
		}

		props[i] = Property{
			Parameter:   p,
			Position:    i,
			Fingerprint: fp,
			get:         acc.get,
		}
	}
	return props, nil
}
