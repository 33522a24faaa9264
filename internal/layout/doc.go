// Package layout derives canonical property layouts for Go types.
//
// A layout is the ordered, named and typed list of properties of a type,
// together with a constructor that builds instances from values in that
// order and accessors that read each property back out of an instance.
// Encoders, index registries and catalogs all depend on this contract:
//
//	Layout.Build(Layout.Values(x)) == x
//
// # Derivation
//
// Derivation runs once per type and is cached for the lifetime of the Engine:
//
//  1. Resolve the Marker for the type (Settings, then Marked, then default backend).
//  2. Ask the selected Introspector for the type's constructors.
//  3. Select exactly one canonical constructor (see selectConstructor).
//  4. Bind every constructor parameter to an accessor by exact name.
//  5. Compute the layout hash and publish the Schema.
//
// Failures are cached as well, so a malformed type fails fast on every call.
//
// # Concurrency
//
// Concurrent requests for an uncached type share a single derivation. Cached
// schemas are immutable and are read without locking. Build and Get touch
// only their arguments and may run in parallel.
package layout
