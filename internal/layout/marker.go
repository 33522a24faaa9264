package layout

import (
	"maps"
	"reflect"
)

// Marker carries per-type layout declarations.
type Marker struct {
	// Backend names the Introspector to use. Empty selects the default backend.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Name overrides the layout name used in hashes and catalogs.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Marked is implemented by types that declare their own Marker.
// LayoutMarker is called once, on a zero value, at first derivation.
type Marked interface {
	LayoutMarker() Marker
}

// Settings is the process-wide marker configuration handed to an Engine.
// It is read once per type, when that type's layout is first derived.
type Settings struct {
	// DefaultBackend is used for types without a Backend marker.
	// Empty means StructBackend.
	DefaultBackend string

	// Markers maps qualified type names (see QualifiedName) to markers.
	// These take precedence over markers declared through Marked.
	Markers map[string]Marker
}

func (s Settings) clone() Settings {
	s.Markers = maps.Clone(s.Markers)
	return s
}

var markedType = reflect.TypeFor[Marked]()

// markerFor resolves the marker of t: explicit settings, then Marked,
// then the default backend.
func (e *Engine) markerFor(t reflect.Type) Marker {
	m, ok := e.settings.Markers[QualifiedName(t)]
	if !ok {
		m = declaredMarker(t)
	}
	if m.Backend == "" {
		m.Backend = e.settings.DefaultBackend
	}
	if m.Backend == "" {
		m.Backend = StructBackend
	}
	return m
}

func declaredMarker(t reflect.Type) Marker {
	var v reflect.Value
	switch {
	case t.Kind() == reflect.Pointer && t.Implements(markedType):
		v = reflect.New(t.Elem())
	case t.Kind() == reflect.Interface:
		return Marker{}
	case t.Implements(markedType):
		v = reflect.Zero(t)
	case reflect.PointerTo(t).Implements(markedType):
		v = reflect.New(t)
	default:
		return Marker{}
	}
	marked, ok := v.Interface().(Marked)
	if !ok {
		return Marker{}
	}
	return marked.LayoutMarker()
}
