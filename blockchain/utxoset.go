// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"

	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

// UtxoSet houses the unspent transaction output set.  Lookups consult a
// bounded in-memory cache first and fall through to the backing store on a
// miss.  Mutations are performed a full block at a time through ApplyBlock
// and UndoBlock and are applied to the backing store as a single atomic
// batch, with the cache only updated after the batch commits.
//
// Lookups are safe for concurrent access.  Mutations must be serialized by
// the caller, which in practice is the chain state write path.
type UtxoSet struct {
	db    kvdb.Store
	cache *lru.Map[wire.OutPoint, *UtxoEntry]
}

// NewUtxoSet returns a utxo set backed by the provided store using a cache
// bounded to the provided maximum number of entries.
func NewUtxoSet(db kvdb.Store, cacheLimit uint32) *UtxoSet {
	return &UtxoSet{
		db:    db,
		cache: lru.NewMap[wire.OutPoint, *UtxoEntry](cacheLimit),
	}
}

// fetchEntry returns the unspent output associated with the provided
// outpoint, or nil when there is no such output.  The returned entry is a
// deep copy, so the caller may freely modify it.
func (s *UtxoSet) fetchEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	if entry, ok := s.cache.Get(outpoint); ok {
		return entry.Clone(), nil
	}

	serialized, err := s.db.Get(outpointKey(outpoint))
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	entry, err := deserializeUtxoEntry(serialized)
	if err != nil {
		return nil, err
	}
	s.cache.Put(outpoint, entry)
	return entry.Clone(), nil
}

// FetchEntry returns the unspent output associated with the provided
// outpoint, or nil when the output does not exist or has been spent.  The
// returned entry is a deep copy, so it is safe to modify.
//
// This function is safe for concurrent access.
func (s *UtxoSet) FetchEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	return s.fetchEntry(outpoint)
}

// HaveUtxo returns whether an unspent output exists for the provided
// outpoint.
//
// This function is safe for concurrent access.
func (s *UtxoSet) HaveUtxo(outpoint wire.OutPoint) (bool, error) {
	if s.cache.Exists(outpoint) {
		return true, nil
	}
	have, err := s.db.Has(outpointKey(outpoint))
	if err != nil && errors.Is(err, kvdb.ErrNotFound) {
		return false, nil
	}
	return have, err
}

// ApplyBlock atomically applies the effect of the provided block to the utxo
// set: every output referenced by a non-coinbase input is removed and every
// output the block creates is inserted.  An undo record that captures the
// removed outputs byte for byte is stored alongside the mutations in the
// same batch and returned.
//
// An error with kind ErrMissingTxOut is returned if any input references an
// output that does not exist, including outputs consumed by an earlier
// transaction in the same block, in which case neither the store nor the
// cache is modified.
//
// Outputs that are created and spent within the same block never reach the
// store, but they are still recorded in the undo record both as spent and as
// created so disconnecting the block is an exact inverse.
//
// This function MUST be called with the chain state lock held (for writes).
func (s *UtxoSet) ApplyBlock(block *wire.MsgBlock, height int64) (*UndoRecord, error) {
	blockHash := block.Header.BlockHash()
	record := &UndoRecord{BlockHash: blockHash, Height: height}

	var batch kvdb.Batch
	spent := make(map[wire.OutPoint]struct{})
	created := make(map[wire.OutPoint]*UtxoEntry)
	for txIdx, tx := range block.Transactions {
		isCoinBase := txIdx == 0
		if !isCoinBase {
			for _, txIn := range tx.TxIn {
				prevOut := txIn.PreviousOutPoint
				if _, ok := spent[prevOut]; ok {
					str := fmt.Sprintf("output %v spent more than once in "+
						"block %s", prevOut, blockHash)
					return nil, ruleError(ErrDoubleSpend, str)
				}

				entry, ok := created[prevOut]
				if ok {
					// Spends an output created earlier in this block, so
					// there is nothing on disk to remove.
					delete(created, prevOut)
				} else {
					var err error
					entry, err = s.fetchEntry(prevOut)
					if err != nil {
						return nil, err
					}
					if entry == nil {
						str := fmt.Sprintf("output %v referenced from "+
							"block %s does not exist", prevOut, blockHash)
						return nil, ruleError(ErrMissingTxOut, str)
					}
					batch.Delete(outpointKey(prevOut))
				}

				spent[prevOut] = struct{}{}
				record.SpentEntries = append(record.SpentEntries,
					SpentTxOut{PrevOut: prevOut, Entry: entry})
			}
		}

		txHash := tx.TxHash()
		for outIdx, txOut := range tx.TxOut {
			outpoint := wire.OutPoint{Hash: txHash, Index: uint32(outIdx)}
			created[outpoint] = NewUtxoEntry(txOut.Value, txOut.PkScript,
				uint32(height), isCoinBase)
			record.CreatedOutPoints = append(record.CreatedOutPoints, outpoint)
		}
	}

	for outpoint, entry := range created {
		batch.Put(outpointKey(outpoint), serializeUtxoEntry(entry))
	}
	batch.Put(undoKey(&blockHash), serializeUndoRecord(record))
	if err := s.db.WriteBatch(&batch); err != nil {
		return nil, err
	}

	// The batch is durable, so the cache can now be updated to match.
	for i := range record.SpentEntries {
		s.cache.Delete(record.SpentEntries[i].PrevOut)
	}
	for outpoint, entry := range created {
		s.cache.Put(outpoint, entry)
	}
	return record, nil
}

// UndoBlock atomically reverses the effect the block described by the
// provided undo record had on the utxo set: every output the block consumed
// is reinserted with identical data and every output it created is removed.
// The undo record itself is removed from the store in the same batch.
//
// This function MUST be called with the chain state lock held (for writes).
func (s *UtxoSet) UndoBlock(record *UndoRecord) error {
	var batch kvdb.Batch
	for i := range record.SpentEntries {
		stxo := &record.SpentEntries[i]
		batch.Put(outpointKey(stxo.PrevOut), serializeUtxoEntry(stxo.Entry))
	}

	// Removals are queued after the reinsertions so an output that was both
	// created and spent inside the block nets out to absent.
	for i := range record.CreatedOutPoints {
		batch.Delete(outpointKey(record.CreatedOutPoints[i]))
	}
	batch.Delete(undoKey(&record.BlockHash))
	if err := s.db.WriteBatch(&batch); err != nil {
		return err
	}

	for i := range record.SpentEntries {
		stxo := &record.SpentEntries[i]
		s.cache.Put(stxo.PrevOut, stxo.Entry.Clone())
	}
	for i := range record.CreatedOutPoints {
		s.cache.Delete(record.CreatedOutPoints[i])
	}
	return nil
}

// FetchUndoRecord returns the undo record stored for the block with the
// provided hash.  An error with kind ErrNoUndoData is returned when no
// record exists and one with kind ErrUndoDataCorrupt when the stored record
// fails to deserialize.
//
// This function is safe for concurrent access.
func (s *UtxoSet) FetchUndoRecord(blockHash *chainhash.Hash) (*UndoRecord, error) {
	serialized, err := s.db.Get(undoKey(blockHash))
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			str := fmt.Sprintf("no undo record for block %s", blockHash)
			return nil, ruleError(ErrNoUndoData, str)
		}
		return nil, err
	}
	return deserializeUndoRecord(serialized)
}

// PruneUndoRecords removes all stored undo records for blocks connected at
// heights strictly below the provided height and returns the number of
// records removed.  Blocks whose undo data has been pruned can no longer be
// disconnected, so the caller must only prune below any height a
// reorganization could plausibly reach.
//
// This function MUST be called with the chain state lock held (for writes).
func (s *UtxoSet) PruneUndoRecords(height int64) (int, error) {
	var batch kvdb.Batch
	iter := s.db.NewIterator(undoKeyPrefix)
	for iter.Next() {
		record, err := deserializeUndoRecord(iter.Value())
		if err != nil {
			iter.Release()
			return 0, err
		}
		if record.Height < height {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			batch.Delete(key)
		}
	}
	if err := iter.Error(); err != nil {
		iter.Release()
		return 0, err
	}
	iter.Release()

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := s.db.WriteBatch(&batch); err != nil {
		return 0, err
	}
	return batch.Len(), nil
}

// HitRatio returns the percentage of utxo lookups that were served from the
// cache since the set was created.
//
// This function is safe for concurrent access.
func (s *UtxoSet) HitRatio() float64 {
	return s.cache.HitRatio()
}
