// Package catalog provides SQLite-backed storage of derived layouts.
//
// A catalog records every layout a process has derived, keyed by layout
// hash, so that records written under an older layout can still be
// identified after a type changes. Recording is idempotent: the same hash
// is stored once, under the logical sequence number of its first recording.
//
// # Ordering
//
//   - seq is a logical clock, never a timestamp
//   - all listings use ORDER BY seq ASC, hash ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package catalog
