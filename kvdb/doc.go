// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package kvdb defines the key/value storage contract the consensus code
// builds on along with a LevelDB-backed implementation of it.
//
// The consensus packages never open files or manage storage engines directly.
// They operate against the Store interface, which provides point reads and
// writes, prefix iteration, and atomic batched writes.  The batch guarantee is
// load bearing: block connection and disconnection rely on the entire set of
// utxo mutations for a block becoming durable together or not at all.
//
// NewLevelDB opens a persistent store while NewMemStore provides the same
// implementation backed by memory for tests.
package kvdb
