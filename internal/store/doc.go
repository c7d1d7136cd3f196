// Package store provides SQLite-backed durable storage for iota records.
//
// Each record is keyed by its pattern and carries the encoded payload,
// the capability needed to delete it early, and an absolute expiry.
//
// # Guarantees
//
//   - Put is an upsert: a second Put under the same pattern replaces the
//     first (last writer wins).
//   - DeleteIf is a single conditional DELETE, so the capability check
//     and the removal are atomic.
//   - Expiry is never extended. Expired rows remain readable until Prune
//     removes them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Calls are serialised through a mutex held for the duration of one
// call. The mutex multiplexes a single connection; row atomicity comes
// from SQLite.
package store
