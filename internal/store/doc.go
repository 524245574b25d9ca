// Package store provides durable CRUD storage for projects and a change feed.
//
// This package is internal to projecthub and owns the Project collection.
// The whole collection is serialized as one JSON array and kept under a single
// collection key in a [backend.Backend]; every mutation is a read-modify-write
// of that aggregate, serialized by the store so no two writes interleave.
//
// The main components are:
//
//   - [Store]: CRUD over the collection plus pub/sub of list snapshots
//   - [Project], [Endpoint], [Status]: the persisted data model
//   - [Draft], [Patch]: creation input and shallow partial update
//   - [ErrNotFound], [ErrValidation]: sentinel errors for errors.Is
//
// Subscribers receive a full snapshot after every successful mutation via
// buffered channels with non-blocking sends (slow subscribers miss snapshots
// rather than block writers).
//
// The store contains no monitoring logic; status transitions are decided by
// the monitor package and written back through [Store.Update] or
// [Store.Modify].
package store
