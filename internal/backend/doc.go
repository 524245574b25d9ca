// Package backend provides the raw persistence primitive used by the project
// store.
//
// A [Backend] holds opaque serialized aggregates addressed by a stable key.
// It offers exactly two data operations: load the whole value for a key and
// overwrite the whole value for a key. Each Save must be atomic per call;
// readers never observe a partially written value.
//
// Implementations:
//
//   - [Memory]: in-process map, the default for the SDK and tests
//   - [File]: one JSON file per key, written via temp file + rename
//   - [SQLite]: a single key/value table in a local SQLite database
//   - [Postgres]: a single key/value table in PostgreSQL (JSONB values)
//   - [Redis]: one string key per collection
//
// Use [Open] to construct a backend from declarative [Options].
package backend
