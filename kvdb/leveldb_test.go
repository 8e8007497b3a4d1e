// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

// newTestStore returns a memory-backed store that is closed when the test
// completes.
func newTestStore(t *testing.T) Store {
	t.Helper()

	store, err := NewMemStore()
	if err != nil {
		t.Fatalf("unable to create mem store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestStoreBasicOperations exercises the get, has, put, and delete contract.
func TestStoreBasicOperations(t *testing.T) {
	store := newTestStore(t)

	key := []byte("alpha")
	value := []byte("one")

	// Missing keys report not found without being treated as a failure by
	// Has or Delete.
	if _, err := store.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing key: got %v, want kind %v", err, ErrNotFound)
	}
	if exists, err := store.Has(key); err != nil || exists {
		t.Fatalf("has missing key: got %v/%v, want false/nil", exists, err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}

	if err := store.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("get: got %q, want %q", got, value)
	}
	if exists, _ := store.Has(key); !exists {
		t.Fatal("has: stored key not found")
	}

	// Replacing an existing value.
	if err := store.Put(key, []byte("two")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := store.Get(key); !bytes.Equal(got, []byte("two")) {
		t.Fatalf("replaced value: got %q, want %q", got, "two")
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted key: got %v, want kind %v", err, ErrNotFound)
	}
}

// TestWriteBatch ensures batches apply their operations in order and that
// a nil or empty batch is a no-op.
func TestWriteBatch(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteBatch(nil); err != nil {
		t.Fatalf("nil batch: %v", err)
	}
	if err := store.WriteBatch(&Batch{}); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	if err := store.Put([]byte("stale"), []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Queue a mix of operations, including a put followed by a delete of
	// the same key, which must net out to the key being absent.
	var batch Batch
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("stale"))
	batch.Put([]byte("c"), []byte("3"))
	batch.Delete([]byte("c"))
	if batch.Len() != 5 {
		t.Fatalf("batch len: got %d, want 5", batch.Len())
	}
	if err := store.WriteBatch(&batch); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	for _, want := range []struct {
		key   string
		value string
	}{{"a", "1"}, {"b", "2"}} {
		got, err := store.Get([]byte(want.key))
		if err != nil {
			t.Fatalf("get %q: %v", want.key, err)
		}
		if string(got) != want.value {
			t.Fatalf("get %q: got %q, want %q", want.key, got, want.value)
		}
	}
	for _, key := range []string{"stale", "c"} {
		if _, err := store.Get([]byte(key)); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get %q: got %v, want kind %v", key, err, ErrNotFound)
		}
	}

	// A reset batch is empty again.
	batch.Reset()
	if batch.Len() != 0 {
		t.Fatalf("reset batch len: got %d, want 0", batch.Len())
	}
}

// TestPrefixIterator ensures iteration only visits keys with the requested
// prefix and yields them in ascending order.
func TestPrefixIterator(t *testing.T) {
	store := newTestStore(t)

	entries := map[string]string{
		"u/0003": "c",
		"u/0001": "a",
		"u/0002": "b",
		"v/0001": "other",
		"t/0001": "other",
	}
	for key, value := range entries {
		if err := store.Put([]byte(key), []byte(value)); err != nil {
			t.Fatalf("put %q: %v", key, err)
		}
	}

	var keys, values []string
	iter := store.NewIterator([]byte("u/"))
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
		values = append(values, string(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	iter.Release()

	wantKeys := []string{"u/0001", "u/0002", "u/0003"}
	wantValues := []string{"a", "b", "c"}
	if len(keys) != len(wantKeys) {
		t.Fatalf("iterated keys: got %v, want %v", keys, wantKeys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] || values[i] != wantValues[i] {
			t.Fatalf("entry %d: got %q=%q, want %q=%q", i, keys[i], values[i],
				wantKeys[i], wantValues[i])
		}
	}
}

// TestClosedStore ensures operations after close fail with the closed error
// kind.
func TestClosedStore(t *testing.T) {
	store, err := NewMemStore()
	if err != nil {
		t.Fatalf("unable to create mem store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := store.Get([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Fatalf("get after close: got %v, want kind %v", err, ErrClosed)
	}
	if err := store.Put([]byte("k"), []byte("v")); !errors.Is(err, ErrClosed) {
		t.Fatalf("put after close: got %v, want kind %v", err, ErrClosed)
	}
}

// TestLevelDBPersistence ensures data written to a file-backed store
// survives reopening it.
func TestLevelDBPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")

	store, err := NewLevelDB(path)
	if err != nil {
		t.Fatalf("unable to create store: %v", err)
	}
	if err := store.Put([]byte("durable"), []byte("yes")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = NewLevelDB(path)
	if err != nil {
		t.Fatalf("unable to reopen store: %v", err)
	}
	defer store.Close()

	got, err := store.Get([]byte("durable"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte("yes")) {
		t.Fatalf("get after reopen: got %q, want %q", got, "yes")
	}
}
