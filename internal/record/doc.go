// Package record encodes values as layout-ordered records.
//
// A record is canonical JSON carrying the layout hash and the property
// values in the exact order of the type's layout:
//
//	{"layout":"<hash>","properties":[v0,v1,...]}
//
// Property names never appear in a record; the layout hash pins their
// meaning. Decoding refuses records written under a different layout and
// rebuilds the value through the canonical constructor, once per record.
//
// Value encoding:
//   - nested structs are arrays in the order of their own layout
//   - pointers, slices and maps are null when nil
//   - []byte is standard base64
//   - uuid.UUID is its string form
//   - time.Time is RFC 3339 with nanoseconds in UTC; decoded times are the
//     same instant (compare with Equal) without the original location
//   - types implementing encoding.TextMarshaler and TextUnmarshaler
//     (math/big.Int, net/netip.Addr) are their text form
//   - maps must have string keys and are objects with keys in UTF-16 order
//   - floats must be finite; interface-typed properties are rejected
//
// Strings are written as given, without HTML escaping, so that every
// record decodes back to the identical value. Strings and map keys that are
// not valid UTF-8 are rejected.
package record
