package index_test

import (
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layoutkit/internal/index"
	"github.com/roach88/layoutkit/internal/layout"
	"github.com/roach88/layoutkit/internal/testutil"
)

func newRegistry() *index.Registry {
	return index.NewRegistry(layout.NewEngine(layout.WithLogger(testutil.DiscardLogger())))
}

// orders returns three orders with distinct customers, totals and dates.
func orders() []testutil.Order {
	a := testutil.SampleOrder()

	b := testutil.SampleOrder()
	b.ID = uuid.MustParse("0191e3a4-7b2c-7d3e-8f40-000000000002")
	b.Customer = "Zack"
	b.Total = 10
	b.Lines = []testutil.Line{{SKU: "SKU-003", Quantity: 1}}
	b.PlacedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := testutil.SampleOrder()
	c.ID = uuid.MustParse("0191e3a4-7b2c-7d3e-8f40-000000000003")
	c.Customer = "Ann"
	c.Total = 99
	c.Lines = nil
	c.PlacedAt = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	return []testutil.Order{a, b, c}
}

func lineCount(o testutil.Order, _ index.QueryOptions) int { return len(o.Lines) }

func skus(o testutil.Order, _ index.QueryOptions) []string {
	out := make([]string, len(o.Lines))
	for i, l := range o.Lines {
		out[i] = l.SKU
	}
	return out
}

// orderIndices declares the indices every query test uses.
func orderIndices(t *testing.T) []index.Index[testutil.Order] {
	t.Helper()
	r := newRegistry()

	require.NoError(t, index.DeclareProperty[testutil.Order](r, "ID", index.Unique, index.EQ))
	require.NoError(t, index.DeclareProperty[testutil.Order](r, "Customer",
		index.EQ, index.IN, index.SW, index.EW, index.SC, index.CI, index.RX))
	require.NoError(t, index.DeclareProperty[testutil.Order](r, "Total", index.LT, index.GT, index.BT))
	require.NoError(t, index.DeclareProperty[testutil.Order](r, "PlacedAt", index.BT, index.LT))
	require.NoError(t, index.Declare(r, "line_count", lineCount, index.EQ, index.IN, index.LT))
	require.NoError(t, index.DeclareMulti(r, "skus", skus, index.EQ, index.IN, index.Unique))
	require.NoError(t, index.Declare(r, "total_in", func(o testutil.Order, opts index.QueryOptions) float64 {
		rate, ok := opts["rate"].(float64)
		if !ok {
			rate = 1
		}
		return o.Total * rate
	}, index.GT))

	indices, err := index.For[testutil.Order](r)
	require.NoError(t, err)
	return indices
}

func customers(items []testutil.Order) []string {
	out := make([]string, len(items))
	for i, o := range items {
		out[i] = o.Customer
	}
	return out
}

func TestFor_DeclarationOrder(t *testing.T) {
	indices := orderIndices(t)

	names := make([]string, len(indices))
	for i, ix := range indices {
		names[i] = ix.Name()
	}
	assert.Equal(t, []string{"ID", "Customer", "Total", "PlacedAt", "line_count", "skus", "total_in"}, names)

	customer, ok := index.Lookup(indices, "Customer")
	require.True(t, ok)
	assert.Equal(t, "Customer", customer.Property())
	assert.Equal(t, reflect.TypeFor[string](), customer.Type())
	assert.True(t, customer.Has(index.SW))
	assert.False(t, customer.Has(index.LT))

	count, ok := index.Lookup(indices, "line_count")
	require.True(t, ok)
	assert.Empty(t, count.Property())
	assert.Equal(t, reflect.TypeFor[int](), count.Type())

	multi, ok := index.Lookup(indices, "skus")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[string](), multi.Type())

	_, ok = index.Lookup(indices, "missing")
	assert.False(t, ok)
}

func TestIndex_Values(t *testing.T) {
	indices := orderIndices(t)
	o := testutil.SampleOrder()

	customer, _ := index.Lookup(indices, "Customer")
	values, err := customer.Values(o, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"Zoë"}, values)

	multi, _ := index.Lookup(indices, "skus")
	values, err = multi.Values(o, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"SKU-001", "SKU-002"}, values)

	total, _ := index.Lookup(indices, "total_in")
	values, err = total.Values(o, index.QueryOptions{"rate": 2.0})
	require.NoError(t, err)
	assert.Equal(t, []any{85.0}, values)
}

func TestIndex_FeaturesAreCopied(t *testing.T) {
	indices := orderIndices(t)
	ix, _ := index.Lookup(indices, "Total")

	features := ix.Features()
	features[0] = index.RX
	assert.Equal(t, []index.Feature{index.LT, index.GT, index.BT}, ix.Features())
}

func TestFilter(t *testing.T) {
	indices := orderIndices(t)
	items := orders()

	tests := []struct {
		name string
		pred index.Predicate
		want []string
	}{
		{"equals", index.Equals{Index: "Customer", Value: "Zack"}, []string{"Zack"}},
		{"in", index.In{Index: "Customer", Values: []any{"Ann", "Zoë", "Bob"}}, []string{"Zoë", "Ann"}},
		{"less than", index.LessThan{Index: "Total", Value: 50.0}, []string{"Zoë", "Zack"}},
		{"greater than", index.GreaterThan{Index: "Total", Value: 42.5}, []string{"Ann"}},
		{"between inclusive", index.Between{Index: "Total", Low: 10, High: 42.5}, []string{"Zoë", "Zack"}},
		{"between times", index.Between{
			Index: "PlacedAt",
			Low:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			High:  time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		}, []string{"Zoë", "Ann"}},
		{"starts with", index.StartsWith{Index: "Customer", Prefix: "Z"}, []string{"Zoë", "Zack"}},
		{"ends with", index.EndsWith{Index: "Customer", Suffix: "nn"}, []string{"Ann"}},
		{"contains", index.Contains{Index: "Customer", Substring: "ac"}, []string{"Zack"}},
		{"contained in", index.ContainedIn{Index: "Customer", Text: "Annabel and Zack"}, []string{"Zack", "Ann"}},
		{"regexp", index.Matches{Index: "Customer", Pattern: regexp.MustCompile(`^Z.*k$`)}, []string{"Zack"}},
		{"multi-valued any", index.Equals{Index: "skus", Value: "SKU-002"}, []string{"Zoë"}},
		{"computed int literal", index.Equals{Index: "line_count", Value: int64(1)}, []string{"Zack"}},
		{"computed unsigned literal", index.LessThan{Index: "line_count", Value: uint(1)}, []string{"Ann"}},
		{"and", index.And{Predicates: []index.Predicate{
			index.StartsWith{Index: "Customer", Prefix: "Z"},
			index.GreaterThan{Index: "Total", Value: 20},
		}}, []string{"Zoë"}},
		{"empty and", index.And{}, []string{"Zoë", "Zack", "Ann"}},
		{"no match", index.Equals{Index: "Customer", Value: "Nobody"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := index.Filter(indices, items, tt.pred, nil)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, customers(got))
		})
	}
}

func TestMatch_QueryOptions(t *testing.T) {
	indices := orderIndices(t)
	o := testutil.SampleOrder()
	pred := index.GreaterThan{Index: "total_in", Value: 50.0}

	ok, err := index.Match(indices, o, pred, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = index.Match(indices, o, pred, index.QueryOptions{"rate": 2.0})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_IncomparableValues(t *testing.T) {
	indices := orderIndices(t)

	_, err := index.Match(indices, testutil.SampleOrder(), index.LessThan{Index: "Total", Value: "cheap"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot compare")
}

func TestValidate(t *testing.T) {
	indices := orderIndices(t)

	assert.NoError(t, index.Validate(indices, index.Equals{Index: "Customer", Value: "x"}))

	err := index.Validate(indices, index.LessThan{Index: "Customer", Value: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrUnsupportedFeature))

	err = index.Validate(indices, index.Equals{Index: "Nope", Value: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown index "Nope"`)

	err = index.Validate(indices, index.Matches{Index: "Customer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil pattern")

	err = index.Validate(indices, nil)
	assert.Error(t, err)

	err = index.Validate(indices, index.And{Predicates: []index.Predicate{
		index.Equals{Index: "Nope", Value: 1},
		index.StartsWith{Index: "Total", Prefix: "4"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown index "Nope"`)
	assert.Contains(t, err.Error(), `index "Total"`)

	_, err = index.Filter(indices, orders(), index.StartsWith{Index: "Total", Prefix: "4"}, nil)
	assert.True(t, errors.Is(err, index.ErrUnsupportedFeature))
}

func TestCheckUnique(t *testing.T) {
	indices := orderIndices(t)
	id, _ := index.Lookup(indices, "ID")
	items := orders()

	assert.NoError(t, index.CheckUnique(id, items, nil))

	items[2].ID = items[0].ID
	err := index.CheckUnique(id, items, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrUniqueViolation))
	assert.Contains(t, err.Error(), "items 0 and 2")

	multi, _ := index.Lookup(indices, "skus")
	assert.NoError(t, index.CheckUnique(multi, orders(), nil))

	dup := orders()
	dup[1].Lines = []testutil.Line{{SKU: "SKU-001", Quantity: 5}}
	assert.True(t, errors.Is(index.CheckUnique(multi, dup, nil), index.ErrUniqueViolation))

	customer, _ := index.Lookup(indices, "Customer")
	assert.True(t, errors.Is(index.CheckUnique(customer, items, nil), index.ErrUnsupportedFeature))
}

func TestDeclare_DefaultFeatureIsEQ(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.DeclareProperty[testutil.Point](r, "x"))

	indices, err := index.For[testutil.Point](r)
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, []index.Feature{index.EQ}, indices[0].Features())
}

func TestDeclare_DuplicateFeaturesCollapse(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.DeclareProperty[testutil.Point](r, "x", index.EQ, index.LT, index.EQ))

	indices, err := index.For[testutil.Point](r)
	require.NoError(t, err)
	assert.Equal(t, []index.Feature{index.EQ, index.LT}, indices[0].Features())
}

func TestDeclare_DuplicateName(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.DeclareProperty[testutil.Point](r, "x"))

	err := index.Declare(r, "x", func(p testutil.Point, _ index.QueryOptions) int { return p.X * 2 })
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrDuplicateIndex))

	// The same name on another type is fine.
	assert.NoError(t, index.Declare(r, "x", func(l testutil.Line, _ index.QueryOptions) string { return l.SKU }))
}

func TestDeclare_Invalid(t *testing.T) {
	r := newRegistry()

	assert.Error(t, index.DeclareProperty[testutil.Point](r, ""))
	assert.Error(t, index.DeclareProperty[testutil.Point](r, "x", index.Feature("FUZZY")))
	assert.Error(t, index.Declare[testutil.Point, int](r, "nil", nil))
	assert.Error(t, index.DeclareMulti[testutil.Point, int](r, "nil", nil))
}

func TestFor_UnknownProperty(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.DeclareProperty[testutil.Point](r, "z"))

	_, err := index.For[testutil.Point](r)
	require.Error(t, err)
	assert.True(t, layout.IsUnknownPropertyError(err))

	var le *layout.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "z", le.Property)
}

func TestFor_FeatureNeedsMatchingValues(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.DeclareProperty[testutil.Point](r, "x", index.SW))

	_, err := index.For[testutil.Point](r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrUnsupportedFeature))

	r = newRegistry()
	require.NoError(t, index.DeclareMulti(r, "lines", func(o testutil.Order, _ index.QueryOptions) []testutil.Line {
		return o.Lines
	}, index.GT))
	_, err = index.For[testutil.Order](r)
	assert.True(t, errors.Is(err, index.ErrUnsupportedFeature))
}

func TestFor_DerivesLayoutFirst(t *testing.T) {
	r := newRegistry()
	require.NoError(t, index.Declare(r, "n", func(n int, _ index.QueryOptions) int { return n }))

	_, err := index.For[int](r)
	require.Error(t, err)
	assert.True(t, layout.IsLayoutConstructionError(err))
}

func TestFor_NoDeclarations(t *testing.T) {
	indices, err := index.For[testutil.Line](newRegistry())
	require.NoError(t, err)
	assert.Empty(t, indices)
}

func TestParseFeature(t *testing.T) {
	for _, f := range index.Features {
		got, err := index.ParseFeature(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := index.ParseFeature("eq")
	assert.Error(t, err)
}
