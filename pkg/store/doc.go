// Package store provides audit.Store implementations for persisting
// completed audit records.
//
//   - Memory: bounded in-memory ring buffer, for tests and the records
//     inspection endpoint
//   - JSONL: append-only JSON-lines file
//   - SQLite: durable local database (pure Go driver, no CGO)
//   - Multi: fan-out to several stores at once
//
// All implementations are safe for concurrent use by the sink's worker
// pool.
package store
