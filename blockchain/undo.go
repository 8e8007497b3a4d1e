// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// SpentTxOut houses an unspent transaction output that was consumed by a
// connected block along with the outpoint that referenced it.  The captured
// entry carries everything needed to restore the output byte for byte when
// the block is disconnected.
type SpentTxOut struct {
	// PrevOut is the outpoint the spending input referenced.
	PrevOut wire.OutPoint

	// Entry is the unspent output exactly as it existed immediately prior
	// to being spent.
	Entry *UtxoEntry
}

// UndoRecord captures everything needed to reverse the effect a connected
// block had on the unspent transaction output set.  One record is created
// and stored for every connected block and consumed when the block is
// disconnected during a reorganization.
type UndoRecord struct {
	// BlockHash is the hash of the block the record belongs to.
	BlockHash chainhash.Hash

	// Height is the height the block was connected at.
	Height int64

	// SpentEntries are the outputs the block consumed, in the order they
	// were spent.  Disconnecting the block reinserts each of them.
	SpentEntries []SpentTxOut

	// CreatedOutPoints are the outpoints of every output the block
	// created, including those spent again later in the same block.
	// Disconnecting the block removes each of them.
	CreatedOutPoints []wire.OutPoint
}
