// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/chaincfg"
)

// LatestCheckpoint returns the most recent checkpoint for the active network
// or nil when no checkpoints are defined.
//
// This function is safe for concurrent access.
func (b *BlockChain) LatestCheckpoint() *chaincfg.Checkpoint {
	checkpoints := b.chainParams.Checkpoints
	if len(checkpoints) == 0 {
		return nil
	}
	return &checkpoints[len(checkpoints)-1]
}

// verifyCheckpoint returns whether the passed block height and hash combination
// match the checkpoint data.  It also returns true if there is no checkpoint
// data for the passed block height.
func (b *BlockChain) verifyCheckpoint(height int64, hash *chainhash.Hash) bool {
	for i := range b.chainParams.Checkpoints {
		checkpoint := &b.chainParams.Checkpoints[i]
		if checkpoint.Height == height {
			return checkpoint.Hash == *hash
		}
	}
	return true
}

// checkReorgDepth returns an error with kind ErrForkTooOld when disconnecting
// blocks back to the provided fork point would disconnect a block at or below
// the most recent checkpoint height.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) checkReorgDepth(forkNode *blockNode) error {
	checkpoint := b.LatestCheckpoint()
	if checkpoint == nil {
		return nil
	}
	if forkNode.height < checkpoint.Height {
		str := fmt.Sprintf("reorganization to fork point at height %d would "+
			"disconnect checkpointed block at height %d", forkNode.height,
			checkpoint.Height)
		return ruleError(ErrForkTooOld, str)
	}
	return nil
}
