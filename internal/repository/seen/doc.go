// Package seen implements the set of already dispatched alert ids.
//
// The set is bounded: MemoryStore keeps a fixed number of ids and evicts the
// oldest, optionally forgetting ids after a time window; RedisStore keeps one
// expiring key per id so several monitors can share it.
package seen
