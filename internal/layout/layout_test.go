package layout_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutkit/internal/layout"
	"github.com/roach88/layoutkit/internal/testutil"
)

func TestLayout_OrderRoundTrip(t *testing.T) {
	l := layout.MustFor[testutil.Order](newEngine())
	in := testutil.SampleOrder()

	values, err := l.Values(in)
	require.NoError(t, err)
	require.Len(t, values, l.Schema().Len())

	out, err := l.Build(values...)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLayout_GetEveryProperty(t *testing.T) {
	l := layout.MustFor[testutil.Order](newEngine())
	in := testutil.SampleOrder()

	values, err := l.Values(in)
	require.NoError(t, err)

	for i, p := range l.Properties() {
		v, err := l.Get(in, p.Name)
		require.NoError(t, err, p.Name)
		assert.Equal(t, values[i], v, p.Name)
	}
}

func TestLayout_GetUnknownProperty(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())

	_, err := l.Get(testutil.NewPoint(1, 2), "z")
	require.Error(t, err)
	assert.True(t, layout.IsUnknownPropertyError(err))

	var le *layout.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "z", le.Property)
}

func TestLayout_GetAs(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())
	p := testutil.NewPoint(3, 4)

	x, err := layout.GetAs[int](l, p, "x")
	require.NoError(t, err)
	assert.Equal(t, 3, x)

	_, err = layout.GetAs[string](l, p, "x")
	assert.True(t, layout.IsTypeMismatchError(err))
}

func TestLayout_BuildArity(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())

	_, err := l.Build(1)
	assert.True(t, layout.IsArityError(err))

	_, err = l.Build(1, 2, 3)
	assert.True(t, layout.IsArityError(err))
}

func TestLayout_BuildTypeMismatch(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())

	_, err := l.Build("3", 4)
	require.Error(t, err)
	assert.True(t, layout.IsTypeMismatchError(err))

	var le *layout.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "x", le.Property)
}

// Reminder has one nillable property.
type Reminder struct {
	Text string
	Due  *time.Time
}

func TestLayout_BuildNil(t *testing.T) {
	l := layout.MustFor[Reminder](newEngine())

	r, err := l.Build("call back", nil)
	require.NoError(t, err)
	assert.Equal(t, Reminder{Text: "call back"}, r)

	_, err = l.Build(nil, nil)
	assert.True(t, layout.IsTypeMismatchError(err))
}

// Account is built through a fallible constructor.
type Account struct {
	Owner string
}

func TestLayout_ConstructorRunsOncePerBuild(t *testing.T) {
	calls := 0
	fi := layout.NewFuncIntrospector()
	require.NoError(t, fi.Register(func(owner string) (*Account, error) {
		calls++
		if owner == "" {
			return nil, errors.New("owner required")
		}
		return &Account{Owner: owner}, nil
	}, []string{"Owner"}))

	e := newEngine(
		layout.WithIntrospector(fi),
		layout.WithSettings(funcBackendFor(reflect.TypeFor[*Account]())),
	)
	l, err := layout.For[*Account](e)
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "derivation never calls the constructor")

	a, err := l.Build("ann")
	require.NoError(t, err)
	assert.Equal(t, "ann", a.Owner)
	assert.Equal(t, 1, calls)

	_, err = l.Build("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, layout.ErrConstructorFailed))
	assert.ErrorContains(t, err, "owner required")
	assert.Equal(t, 2, calls)

	_, err = l.Build(42)
	assert.True(t, layout.IsTypeMismatchError(err))
	assert.Equal(t, 2, calls, "rejected values never reach the constructor")
}

func TestLayout_PointerType(t *testing.T) {
	l := layout.MustFor[*testutil.Point](newEngine())

	p, err := l.Build(1, 2)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, testutil.Point{X: 1, Y: 2}, *p)

	y, err := l.Get(p, "y")
	require.NoError(t, err)
	assert.Equal(t, 2, y)

	_, err = l.Get(nil, "y")
	assert.True(t, layout.IsTypeMismatchError(err))
}

func TestSchema_WrongInstanceType(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())

	_, err := l.Schema().Get(testutil.Line{}, "x")
	assert.True(t, layout.IsTypeMismatchError(err))

	_, err = l.Schema().Values(nil)
	assert.True(t, layout.IsTypeMismatchError(err))
}

func TestSchema_PropertiesAreCopied(t *testing.T) {
	l := layout.MustFor[testutil.Point](newEngine())

	props := l.Properties()
	props[0].Name = "mutated"

	p, ok := l.Schema().Property("x")
	require.True(t, ok)
	assert.Equal(t, "x", p.Name)
	assert.Equal(t, "x", l.Properties()[0].Name)

	_, ok = l.Schema().Property("mutated")
	assert.False(t, ok)
}

// Cached keeps a derived field out of its layout.
type Cached struct {
	Key     string
	Derived int `layout:"-"`
	memo    string
}

func TestStructBackend_IgnoredAndUnexportedFields(t *testing.T) {
	l := layout.MustFor[Cached](newEngine())

	props := l.Properties()
	require.Len(t, props, 1)
	assert.Equal(t, "Key", props[0].Name)

	c, err := l.Build("k")
	require.NoError(t, err)
	assert.Equal(t, Cached{Key: "k"}, c)
	assert.Empty(t, c.memo)
}

// Dup declares the same property name twice.
type Dup struct {
	A int `layout:"a"`
	B int `layout:"a"`
}

func TestStructBackend_DuplicateNames(t *testing.T) {
	_, err := layout.For[Dup](newEngine())
	require.Error(t, err)
	assert.True(t, layout.IsLayoutConstructionError(err))
	assert.False(t, layout.IsPropertyBindingError(err))
}

// Chatty has a property with no stable fingerprint.
type Chatty struct {
	Ch chan int
}

func TestStructBackend_UnsupportedPropertyType(t *testing.T) {
	_, err := layout.For[Chatty](newEngine())
	require.Error(t, err)
	assert.True(t, layout.IsLayoutConstructionError(err))

	var le *layout.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Ch", le.Property)
}

// Invoice declares its own layout name.
type Invoice struct {
	Number string
}

func (Invoice) LayoutMarker() layout.Marker {
	return layout.Marker{Name: "billing/Invoice"}
}

func TestMarker_Declared(t *testing.T) {
	l := layout.MustFor[Invoice](newEngine())
	assert.Equal(t, "billing/Invoice", l.Name())
	assert.Equal(t, layout.StructBackend, l.Schema().Backend())
}

func TestMarker_SettingsOverrideDeclared(t *testing.T) {
	e := newEngine(layout.WithSettings(layout.Settings{
		Markers: map[string]layout.Marker{
			layout.QualifiedName(reflect.TypeFor[Invoice]()): {Name: "ledger/Invoice"},
		},
	}))

	l := layout.MustFor[Invoice](e)
	assert.Equal(t, "ledger/Invoice", l.Name())
}

func TestMarker_SettingsAreCopied(t *testing.T) {
	settings := layout.Settings{Markers: map[string]layout.Marker{}}
	e := newEngine(layout.WithSettings(settings))

	settings.Markers[layout.QualifiedName(reflect.TypeFor[testutil.Point]())] = layout.Marker{Name: "late"}

	l := layout.MustFor[testutil.Point](e)
	assert.Equal(t, "github.com/roach88/layoutkit/internal/testutil.Point", l.Name())
}

// Pair, Pair2, Pair3 and Wide are all named "pair" so that only their
// properties distinguish their hashes.
type (
	Pair struct {
		A int
		B int
	}
	Pair2 struct {
		A int
		C int
	}
	Pair3 struct {
		A int
		B string
	}
	Wide struct {
		A int64
		B int64
	}
)

func pairSettings() layout.Settings {
	markers := map[string]layout.Marker{}
	for _, t := range []reflect.Type{
		reflect.TypeFor[Pair](),
		reflect.TypeFor[Pair2](),
		reflect.TypeFor[Pair3](),
		reflect.TypeFor[Wide](),
	} {
		markers[layout.QualifiedName(t)] = layout.Marker{Name: "pair"}
	}
	return layout.Settings{Markers: markers}
}

func TestHash_Properties(t *testing.T) {
	e := newEngine(layout.WithSettings(pairSettings()))

	pair := layout.MustFor[Pair](e).Hash()
	assert.Len(t, pair, 64)

	assert.NotEqual(t, pair, layout.MustFor[Pair2](e).Hash(), "property name is hashed")
	assert.NotEqual(t, pair, layout.MustFor[Pair3](e).Hash(), "property type is hashed")
	assert.Equal(t, pair, layout.MustFor[Wide](e).Hash(), "int and int64 share a fingerprint")
}

func TestHash_NameIsHashed(t *testing.T) {
	named := newEngine(layout.WithSettings(pairSettings()))
	plain := newEngine()

	assert.NotEqual(t,
		layout.MustFor[Pair](named).Hash(),
		layout.MustFor[Pair](plain).Hash())
}

func TestSchemaString_Golden(t *testing.T) {
	e := newEngine(layout.WithSettings(layout.Settings{
		Markers: map[string]layout.Marker{
			layout.QualifiedName(reflect.TypeFor[testutil.Point]()): {Name: "example.com/Point"},
		},
	}))
	l := layout.MustFor[testutil.Point](e)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "point_schema", []byte(l.Schema().String()))
}
