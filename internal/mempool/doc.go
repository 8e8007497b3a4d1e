// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a policy-enforced pool of unmined transactions.

A key responsibility of the Halcyon network is mining transactions into
blocks.  The mempool provides the storage for transactions that have been
validated but not yet mined, along with the policies that govern admission,
replacement, eviction, and the order in which transactions should be
considered for inclusion in a block template.

Admission validates each transaction against the unspent output set combined
with the outputs of transactions already in the pool, so chains of unconfirmed
spends are accepted.  Transactions that conflict with a pool entry are only
accepted as replacements under a strict fee policy, and when accepted the
replaced entries and all of their in-pool descendants are evicted atomically.
The pool is bounded both by total byte size, evicting the entries with the
lowest descendant-aware fee rates first, and by entry age.

The caller is expected to relay the pool state to the chain: when a block is
connected its mined transactions are removed from the pool along with any
entries they conflict with, and when a block is disconnected during a
reorganization its transactions are re-admitted through the normal admission
path with failures silently dropped.
*/
package mempool
