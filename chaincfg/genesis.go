// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// genesisCoinbaseScript is the locking script carried by the sole output of
// every genesis coinbase.  It is intentionally unspendable.
var genesisCoinbaseScript = []byte("Halcyon genesis / the ledger starts here")

// newGenesisBlock assembles the genesis block for a network from the provided
// timestamp and difficulty bits.  The genesis coinbase pays nothing since the
// output is unspendable by construction, so the merkle root and block hash are
// fully determined by the remaining header fields.
func newGenesisBlock(timestamp time.Time, bits uint32) *wire.MsgBlock {
	coinbase := wire.NewMsgTx()
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  []byte{0x00},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	coinbase.AddTxOut(wire.NewTxOut(0, genesisCoinbaseScript))

	merkleRoot := coinbase.TxHash()
	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: merkleRoot,
		Timestamp:  timestamp,
		Bits:       bits,
		Nonce:      0,
	})
	block.AddTransaction(coinbase)
	return block
}
