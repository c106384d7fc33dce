// Package store persists scan state between runs.
//
// Three engines implement Store: FileStore (one JSON document, written
// atomically), SQLiteStore (a key/value table, safe to share with a second
// process such as the stop command) and MemoryStore for tests. Values are
// kept as JSON so every engine round-trips the same types.
package store
