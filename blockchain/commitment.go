// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"lukechampine.com/blake3"
)

// UtxoCommitment is a compact cryptographic summary of the full unspent
// transaction output set at a specific height.  It is computed periodically
// and exposed for external verification and state sync, it plays no role in
// per-block consensus decisions.
type UtxoCommitment struct {
	// Root is the root of a merkle tree whose leaves are the hashes of
	// every serialized utxo entry in ascending key order.
	Root chainhash.Hash

	// NumEntries is the total number of unspent outputs in the set.
	NumEntries uint64

	// TotalValue is the sum of the amounts of every unspent output.
	TotalValue int64

	// Height is the chain height the commitment was computed at.
	Height int64
}

// commitmentLeaf computes the leaf hash for a single utxo store row.  The
// key is included so the commitment binds outpoints to their data.
func commitmentLeaf(key, value []byte) chainhash.Hash {
	h := blake3.New(chainhash.HashSize, nil)
	h.Write(key)
	h.Write(value)
	var leaf chainhash.Hash
	h.Sum(leaf[:0])
	return leaf
}

// commitmentRoot folds the provided leaf hashes into a single merkle root.
// A level with an odd number of nodes duplicates its final node.  The root
// of an empty set is the zero hash.
func commitmentRoot(leaves []chainhash.Hash) chainhash.Hash {
	if len(leaves) == 0 {
		return chainhash.Hash{}
	}

	var buf [2 * chainhash.HashSize]byte
	for len(leaves) > 1 {
		if len(leaves)&1 != 0 {
			leaves = append(leaves, leaves[len(leaves)-1])
		}
		for i := 0; i < len(leaves)/2; i++ {
			copy(buf[:chainhash.HashSize], leaves[i*2][:])
			copy(buf[chainhash.HashSize:], leaves[i*2+1][:])
			leaves[i] = blake3.Sum256(buf[:])
		}
		leaves = leaves[:len(leaves)/2]
	}
	return leaves[0]
}

// Commitment computes a commitment over the entire unspent transaction
// output set as it currently exists in the backing store and tags it with
// the provided height.  The store iterates in key order, so the result is
// deterministic for a given set.
//
// This is a full scan of the set and is therefore intended to be invoked
// periodically rather than for every connected block.
//
// This function MUST be called with the chain state lock held (for reads) so
// no block connection can mutate the set mid scan.
func (s *UtxoSet) Commitment(height int64) (*UtxoCommitment, error) {
	commitment := &UtxoCommitment{Height: height}
	var leaves []chainhash.Hash

	iter := s.db.NewIterator(utxoKeyPrefix)
	defer iter.Release()
	for iter.Next() {
		entry, err := deserializeUtxoEntry(iter.Value())
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, commitmentLeaf(iter.Key(), iter.Value()))
		commitment.NumEntries++
		commitment.TotalValue += entry.Amount()
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	commitment.Root = commitmentRoot(leaves)
	return commitment, nil
}
