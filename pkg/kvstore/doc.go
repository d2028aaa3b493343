// Package kvstore provides the key-value persistence used by the rate
// limiter and the usage ledger.
//
// Two backends are available:
//   - MemoryStore keeps values in a map and loses them on exit.
//   - SQLiteStore keeps values in a single SQLite table and survives
//     restarts. It runs on either the pure-Go modernc driver ("sqlite") or
//     the cgo mattn driver ("sqlite3").
//
// Values are opaque byte slices; callers own the encoding. Every backend is
// safe for concurrent use.
package kvstore
