// Package repositories persists resolutions and sync run history.
//
// SQLite repositories implement [models.Repository]:
//   - [ResolutionRepository] : cache key to destination identifier
//   - [RunRepository] : one row per sync run
//
// A [Store] is the durable side of the resolution cache:
//   - [SQLiteStore] : backed by [ResolutionRepository]
//   - [BoltStore] : single file bbolt database, no SQLite required
//
// [Cache] sits in front of a Store and never fails its caller. Writes are buffered by Put and
// persisted by Flush. Any store error is logged and the cache carries on from memory for the rest
// of the run. [NewMemoryCache] has no store at all.
package repositories
