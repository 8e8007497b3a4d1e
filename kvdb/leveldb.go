// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDB provides a Store backed by goleveldb.
type levelDB struct {
	db *leveldb.DB
}

// Enforce levelDB satisfies the Store interface.
var _ Store = (*levelDB)(nil)

// convertErr maps an error from the underlying storage engine to the
// appropriate kinded error.
func convertErr(desc string, ldbErr error) Error {
	var kind ErrorKind
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrCorruption
	case ldbErr == leveldb.ErrNotFound:
		kind = ErrNotFound
	case ldbErr == leveldb.ErrClosed:
		kind = ErrClosed
	default:
		kind = ErrIO
	}
	return Error{Err: kind, Description: desc, RawErr: ldbErr}
}

// newOptions returns the leveldb options used for all stores.  A bloom filter
// is used to reduce the read amplification for keys that do not exist, which
// is the common case for utxo lookups of freshly created outputs.
func newOptions() *opt.Options {
	return &opt.Options{
		Filter: filter.NewBloomFilter(10),
	}
}

// NewLevelDB opens (and creates if necessary) a persistent LevelDB-backed
// store rooted at the provided path.
func NewLevelDB(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, newOptions())
	if err != nil {
		if ldberrors.IsCorrupted(err) {
			db, err = leveldb.RecoverFile(path, newOptions())
		}
		if err != nil {
			return nil, convertErr(fmt.Sprintf("failed to open database "+
				"%q: %v", path, err), err)
		}
		log.Warnf("Recovered corrupted database %q", path)
	}

	log.Debugf("Opened database %q", path)
	return &levelDB{db: db}, nil
}

// NewMemStore returns a Store backed by memory.  It behaves identically to a
// persistent store, including atomic batched writes, but all data is lost
// when the store is closed.  It is primarily intended for use in tests.
func NewMemStore() (Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, convertErr(fmt.Sprintf("failed to open memory "+
			"database: %v", err), err)
	}
	return &levelDB{db: db}, nil
}

// Get returns the value for the given key.
//
// This is part of the Store interface.
func (l *levelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		return nil, convertErr(fmt.Sprintf("failed to get key %x: %v", key,
			err), err)
	}
	return value, nil
}

// Has returns whether the given key exists.
//
// This is part of the Store interface.
func (l *levelDB) Has(key []byte) (bool, error) {
	exists, err := l.db.Has(key, nil)
	if err != nil {
		return false, convertErr(fmt.Sprintf("failed to check key %x: %v",
			key, err), err)
	}
	return exists, nil
}

// Put stores the provided value under the given key.
//
// This is part of the Store interface.
func (l *levelDB) Put(key, value []byte) error {
	if err := l.db.Put(key, value, nil); err != nil {
		return convertErr(fmt.Sprintf("failed to put key %x: %v", key, err),
			err)
	}
	return nil
}

// Delete removes the given key.
//
// This is part of the Store interface.
func (l *levelDB) Delete(key []byte) error {
	if err := l.db.Delete(key, nil); err != nil {
		return convertErr(fmt.Sprintf("failed to delete key %x: %v", key,
			err), err)
	}
	return nil
}

// WriteBatch atomically applies all operations queued in the provided batch.
//
// This is part of the Store interface.
func (l *levelDB) WriteBatch(batch *Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	ldbBatch := new(leveldb.Batch)
	for _, op := range batch.ops {
		if op.delete {
			ldbBatch.Delete(op.key)
			continue
		}
		ldbBatch.Put(op.key, op.value)
	}

	if err := l.db.Write(ldbBatch, nil); err != nil {
		return convertErr(fmt.Sprintf("failed to write batch of %d ops: %v",
			batch.Len(), err), err)
	}
	return nil
}

// NewIterator returns an iterator over all keys with the given prefix.
//
// This is part of the Store interface.
func (l *levelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

// Close releases all database resources.
//
// This is part of the Store interface.
func (l *levelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return convertErr(fmt.Sprintf("failed to close database: %v", err),
			err)
	}
	return nil
}
