// Package index attaches named, queryable indices to types with a layout.
//
// An index pairs a name with an evaluator producing zero or more values
// per instance, and declares the query features those values support.
// Property-backed indices read their value through the layout accessor,
// so they observe exactly the values the layout would encode.
//
//	r := index.NewRegistry(engine)
//	index.DeclareProperty[Order](r, "Customer", index.EQ, index.SW)
//	index.DeclareMulti(r, "skus", func(o Order, _ index.QueryOptions) []string { ... }, index.IN)
//
//	indices, err := index.For[Order](r)
//	hits, err := index.Filter(indices, orders, index.StartsWith{Index: "Customer", Prefix: "Zo"}, nil)
//
// Indices are resolved only after the owner's layout has been derived.
package index
