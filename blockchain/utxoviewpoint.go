// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// UtxoViewpoint represents a view into the set of unspent transaction
// outputs from a specific point of view in the chain.  For example, it could
// be for the end of the main chain, some point in the history of the main
// chain, or down a side chain.
//
// The unspent outputs are needed by other transactions for things such as
// script validation and double spend prevention.
type UtxoViewpoint struct {
	entries  map[wire.OutPoint]*UtxoEntry
	bestHash chainhash.Hash
}

// NewUtxoViewpoint returns a new empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{
		entries: make(map[wire.OutPoint]*UtxoEntry),
	}
}

// BestHash returns the hash of the best block in the chain the view
// currently represents.
func (view *UtxoViewpoint) BestHash() *chainhash.Hash {
	return &view.bestHash
}

// SetBestHash sets the hash of the best block in the chain the view
// currently represents.
func (view *UtxoViewpoint) SetBestHash(hash *chainhash.Hash) {
	view.bestHash = *hash
}

// LookupEntry returns information about a given transaction output according
// to the current state of the view.  It will return nil if the passed output
// does not exist in the view.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return view.entries[outpoint]
}

// Entries returns the underlying map that stores all utxo entries in the
// view.  The returned map must not be mutated by the caller.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// AddEntry adds the provided entry to the view under the provided outpoint,
// overwriting any existing entry.
func (view *UtxoViewpoint) AddEntry(outpoint wire.OutPoint, entry *UtxoEntry) {
	view.entries[outpoint] = entry
}

// AddTxOuts adds all outputs of the provided transaction to the view as
// available unspent outputs created at the provided height.  Existing
// entries for the same outpoints are overwritten, which handles the rare
// case of a transaction that recreates an outpoint.
func (view *UtxoViewpoint) AddTxOuts(tx *wire.MsgTx, blockHeight int64, isCoinBase bool) {
	txHash := tx.TxHash()
	for outIdx, txOut := range tx.TxOut {
		outpoint := wire.OutPoint{Hash: txHash, Index: uint32(outIdx)}
		view.entries[outpoint] = NewUtxoEntry(txOut.Value, txOut.PkScript,
			uint32(blockHeight), isCoinBase)
	}
}

// connectTransaction updates the view by marking all utxos the provided
// transaction spends as spent and adding all of its outputs as available.
// When the optional stxos argument is provided, each spent utxo is appended
// to it as it existed immediately prior to the spend.
func (view *UtxoViewpoint) connectTransaction(tx *wire.MsgTx, blockHeight int64, isCoinBase bool, stxos *[]SpentTxOut) error {
	if !isCoinBase {
		for _, txIn := range tx.TxIn {
			prevOut := txIn.PreviousOutPoint
			entry := view.entries[prevOut]
			if entry == nil || entry.IsSpent() {
				return AssertError("view missing input " + prevOut.String())
			}

			if stxos != nil {
				*stxos = append(*stxos, SpentTxOut{
					PrevOut: prevOut,
					Entry:   entry.Clone(),
				})
			}
			entry.Spend()
		}
	}

	view.AddTxOuts(tx, blockHeight, isCoinBase)
	return nil
}

// connectBlock updates the view by applying every transaction in the
// provided block in order.
func (view *UtxoViewpoint) connectBlock(block *wire.MsgBlock, blockHeight int64, stxos *[]SpentTxOut) error {
	for txIdx, tx := range block.Transactions {
		err := view.connectTransaction(tx, blockHeight, txIdx == 0, stxos)
		if err != nil {
			return err
		}
	}
	blockHash := block.Header.BlockHash()
	view.SetBestHash(&blockHash)
	return nil
}

// fetchInputUtxos loads the unspent transaction outputs referenced by the
// inputs of every non-coinbase transaction in the provided block into the
// view from the provided utxo set as needed.  Outputs created by earlier
// transactions in the same block are not fetched since they are added to the
// view as the block is connected.
func (view *UtxoViewpoint) fetchInputUtxos(utxoSet *UtxoSet, block *wire.MsgBlock) error {
	// Build a map of in-flight transactions so inputs that reference an
	// output created earlier in the block can be skipped.
	inFlight := make(map[chainhash.Hash]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		inFlight[tx.TxHash()] = struct{}{}
	}

	for txIdx, tx := range block.Transactions {
		if txIdx == 0 {
			continue
		}
		for _, txIn := range tx.TxIn {
			prevOut := txIn.PreviousOutPoint
			if _, ok := view.entries[prevOut]; ok {
				continue
			}
			if _, ok := inFlight[prevOut.Hash]; ok {
				continue
			}

			entry, err := utxoSet.FetchEntry(prevOut)
			if err != nil {
				return err
			}
			if entry != nil {
				view.entries[prevOut] = entry
			}
		}
	}
	return nil
}
