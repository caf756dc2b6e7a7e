package common

import "errors"

// Error kinds, not type names: every failure the core can produce fits one of these.
// Nothing is retried internally; a caller that gets one of these back sees exactly the
// kind spec.md §7 names.
var (
	// ErrBadAlloc: allocator cannot serve a request (out of space, Free unsupported,
	// zero-length inner alloc).
	ErrBadAlloc = errors.New("badalloc: allocator cannot serve request")

	// ErrBadPosition: a position is not page-aligned, out of range, or a duplicate free.
	ErrBadPosition = errors.New("badposition: invalid page position")

	// ErrBadRead: I/O layer failure or deserialization failure on read.
	ErrBadRead = errors.New("badread: failed to read page")

	// ErrBadWrite: I/O layer failure or serialization failure on write.
	ErrBadWrite = errors.New("badwrite: failed to write page")

	// ErrBadSearch: tree invariant violated during descent (e.g. an invalid link).
	ErrBadSearch = errors.New("badsearch: invalid tree state during descent")

	// ErrBadInsert: tree invariant violated during insertion.
	ErrBadInsert = errors.New("badinsert: invalid tree state during insert")

	// ErrBadRemove: tree invariant violated during rebalance.
	ErrBadRemove = errors.New("badremove: invalid tree state during rebalance")
)

// API-level sentinels. ErrKeyNotFound is what StorageEngine.Get returns for a missing
// key; ErrKeyEmpty rejects an empty key; ErrClosed reports use after Close. The tree's
// own logical no-ops (inserting an existing key, removing a missing one) are not errors:
// they come back as btree.InsertedNothing and RemoveResult{Found: false}.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyEmpty    = errors.New("key cannot be empty")
	ErrClosed      = errors.New("storage engine closed")
)
