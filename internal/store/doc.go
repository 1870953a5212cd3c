// Package store provides SQLite-backed durable storage for rule documents.
//
// Each document id maps to a current rule document plus an append-only
// revision log:
//   - documents: the latest body, hash and seq per document id
//   - revisions: every distinct saved body, ordered by seq
//
// # Ordering
//
// Revisions carry a per-document logical clock (seq INTEGER), never a
// timestamp. Queries order by seq ASC so listings are identical across
// machines and replays.
//
// # Content Addressing
//
// Bodies are stored as RFC 8785 canonical JSON and identified by
// ir.DocumentHash. Saving a document whose hash equals the latest revision
// is a no-op, so repeated imports of the same file do not grow the log.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
