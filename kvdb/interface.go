// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

// Iterator iterates over a range of key/value pairs in key order.  The
// returned key and value slices are only valid until the next call to Next,
// so callers that retain them must make a copy.
type Iterator interface {
	// Next moves the iterator to the next entry and returns false once the
	// range is exhausted.
	Next() bool

	// Key returns the key of the current entry.
	Key() []byte

	// Value returns the value of the current entry.
	Value() []byte

	// Release frees resources associated with the iterator.  The iterator
	// must not be used after calling Release.
	Release()

	// Error returns any accumulated iteration error.
	Error() error
}

// batchOp represents a single pending mutation inside a Batch.
type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch accumulates a sequence of put and delete operations to be applied to
// a Store atomically via WriteBatch.  A Batch is not safe for concurrent use.
type Batch struct {
	ops []batchOp
}

// Put queues a key/value store operation.  The batch retains the provided
// slices, so they must not be modified until the batch has been written.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

// Delete queues a key removal operation.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: key, delete: true})
}

// Len returns the number of operations queued in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
}

// Store defines the persistent key/value storage contract the consensus code
// requires.  Implementations must be safe for concurrent access.
type Store interface {
	// Get returns the value for the given key.  It returns an error with
	// kind ErrNotFound when the key does not exist.  The returned slice is
	// owned by the caller.
	Get(key []byte) ([]byte, error)

	// Has returns whether the given key exists.
	Has(key []byte) (bool, error)

	// Put stores the provided value under the given key, replacing any
	// existing value.
	Put(key, value []byte) error

	// Delete removes the given key.  Deleting a key that does not exist is
	// not an error.
	Delete(key []byte) error

	// WriteBatch atomically applies all operations queued in the provided
	// batch.  Either every operation becomes durable or none do.
	WriteBatch(batch *Batch) error

	// NewIterator returns an iterator over all keys that start with the
	// given prefix, in ascending key order.
	NewIterator(prefix []byte) Iterator

	// Close releases all database resources.  All other methods fail with
	// kind ErrClosed after Close returns.
	Close() error
}
