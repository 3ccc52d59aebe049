// Package catalog maintains the snapshot of controllable Home Assistant
// entities that the compiler resolves mentions against.
//
// The catalog is rebuilt wholesale from the Home Assistant states API and
// published as an immutable Snapshot. Readers take the current snapshot once
// per compile request and use it throughout, so a concurrent refresh can
// never leave a request looking at a half-updated entity set.
//
// # Snapshot Semantics
//
//   - Replace() builds a complete new snapshot and swaps it in atomically.
//   - Snapshots are immutable after construction; all read methods are
//     lock-free and safe to share across goroutines.
//   - Insertion order is preserved and participates in lookup tie-breaking,
//     keeping resolution deterministic for a given snapshot.
//
// # Lookup
//
// Lookup scores every candidate name against the query using token-set
// similarity and returns candidates ordered by score, then shorter name,
// then insertion order. Exact case-insensitive name matches score 1.0.
package catalog
