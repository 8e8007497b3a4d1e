// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// CalcMerkleRoot calculates and returns a merkle root from the provided leaf
// hashes.
//
// The merkle tree is computed level by level: each internal node is the
// BLAKE-256 hash of the concatenation of its two children, and a level with
// an odd number of nodes duplicates its final node to complete the final
// pair.  The root of a single leaf is the leaf itself and the root of an
// empty set of leaves is the zero hash.
func CalcMerkleRoot(leaves []chainhash.Hash) chainhash.Hash {
	if len(leaves) == 0 {
		return chainhash.Hash{}
	}

	// Create a buffer to reuse for hashing the branches and some long lived
	// slices into it to avoid reslicing.
	var buf [2 * chainhash.HashSize]byte
	left := buf[:chainhash.HashSize]
	right := buf[chainhash.HashSize:]

	// The following algorithm works by replacing the leftmost entries in
	// the slice with the concatenations of each subsequent set of 2 hashes
	// and shrinking the slice by half to account for the fact that each
	// level of the tree is half the size of the previous one.
	for len(leaves) > 1 {
		// When there is no right child, the parent is generated by hashing
		// the concatenation of the left child with itself.
		if len(leaves)&1 != 0 {
			leaves = append(leaves, leaves[len(leaves)-1])
		}

		for i := 0; i < len(leaves)/2; i++ {
			copy(left, leaves[i*2][:])
			copy(right, leaves[i*2+1][:])
			leaves[i] = chainhash.HashH(buf[:])
		}
		leaves = leaves[:len(leaves)/2]
	}

	return leaves[0]
}

// CalcTxMerkleRoot returns the merkle root of the transaction hashes for the
// provided transactions, in the order they appear.
func CalcTxMerkleRoot(txns []*wire.MsgTx) chainhash.Hash {
	leaves := make([]chainhash.Hash, 0, len(txns))
	for _, tx := range txns {
		leaves = append(leaves, tx.TxHash())
	}
	return CalcMerkleRoot(leaves)
}
