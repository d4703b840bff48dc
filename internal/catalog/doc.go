// Package catalog persists file inventories in SQLite and answers the
// candidate queries duplicate detection is built on.
//
// A catalogue holds one row per file instance collected under a source root:
// (source, path, name, size, hash). Hashes start out NULL and are filled in
// exactly once, the first time a comparison needs them, so repeated runs do not
// re-read file content. Two schema versions exist: version 2 is the only one
// ever written; version 1 catalogues (name, path, size only) open read-only and
// support name+size comparison.
//
// A Store is safe for concurrent use. Hash-cache writes are serialized per
// handle and retried with a configurable RetryPolicy when another process holds
// the database lock; a write that still fails surfaces ErrStoreBusy and the
// caller carries on without the cached value.
package catalog
