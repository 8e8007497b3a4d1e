// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

// bestChainState represents the data to be stored in the database for the
// current best chain state.
type bestChainState struct {
	hash      chainhash.Hash
	height    uint64
	totalTxns uint64
	workSum   *big.Int
}

// serializeBestChainState returns the serialization of the passed block best
// chain state.  This is data to be stored under the chain state key.  The
// format is:
//
//	<block hash><block height><total txns><work sum length><work sum>
func serializeBestChainState(state bestChainState) []byte {
	workSumBytes := state.workSum.Bytes()
	serialized := make([]byte, chainhash.HashSize+20+len(workSumBytes))
	copy(serialized[0:chainhash.HashSize], state.hash[:])
	offset := uint32(chainhash.HashSize)
	binary.LittleEndian.PutUint64(serialized[offset:], state.height)
	offset += 8
	binary.LittleEndian.PutUint64(serialized[offset:], state.totalTxns)
	offset += 8
	binary.LittleEndian.PutUint32(serialized[offset:],
		uint32(len(workSumBytes)))
	offset += 4
	copy(serialized[offset:], workSumBytes)
	return serialized
}

// deserializeBestChainState deserializes the passed serialized best chain
// state.  This is data stored under the chain state key and is updated after
// every block is connected or disconnected from the main chain.
func deserializeBestChainState(serialized []byte) (bestChainState, error) {
	// Ensure the serialized data has enough bytes to properly deserialize
	// the fixed length fields.
	var state bestChainState
	if len(serialized) < chainhash.HashSize+20 {
		return state, ruleError(ErrUtxoDataCorrupt, "corrupt best chain state")
	}

	copy(state.hash[:], serialized[0:chainhash.HashSize])
	offset := uint32(chainhash.HashSize)
	state.height = binary.LittleEndian.Uint64(serialized[offset : offset+8])
	offset += 8
	state.totalTxns = binary.LittleEndian.Uint64(serialized[offset : offset+8])
	offset += 8
	workSumBytesLen := binary.LittleEndian.Uint32(serialized[offset : offset+4])
	offset += 4
	if uint32(len(serialized[offset:])) < workSumBytesLen {
		return state, ruleError(ErrUtxoDataCorrupt, "corrupt best chain "+
			"state work sum")
	}
	state.workSum = new(big.Int).SetBytes(
		serialized[offset : offset+workSumBytesLen])
	return state, nil
}

// dbPutBestState uses an existing batch to queue the best chain state with
// the given parameters.
func dbPutBestState(batch *kvdb.Batch, snapshot *BestState) {
	serialized := serializeBestChainState(bestChainState{
		hash:      snapshot.Hash,
		height:    uint64(snapshot.Height),
		totalTxns: snapshot.TotalTxns,
		workSum:   snapshot.TotalWork,
	})
	batch.Put(chainStateKey, serialized)
}

// blockIndexRowLen is the length of a serialized block index row, which is
// the block height, the validation status, and the block header.
const blockIndexRowLen = 8 + 1 + wire.BlockHeaderLen

// serializeBlockIndexRow returns the serialization of the passed block node
// for storage in the block index bucket.  The format is:
//
//	<height><status><header>
func serializeBlockIndexRow(node *blockNode) ([]byte, error) {
	serialized := make([]byte, 0, blockIndexRowLen)
	var height [8]byte
	binary.LittleEndian.PutUint64(height[:], uint64(node.height))
	serialized = append(serialized, height[:]...)
	serialized = append(serialized, byte(node.status))

	header := node.Header()
	headerBytes, err := header.Bytes()
	if err != nil {
		return nil, err
	}
	return append(serialized, headerBytes...), nil
}

// deserializeBlockIndexRow decodes the passed serialized block index row
// into its block height, validation status, and header.
func deserializeBlockIndexRow(serialized []byte) (int64, blockStatus, *wire.BlockHeader, error) {
	if len(serialized) != blockIndexRowLen {
		err := ruleError(ErrUtxoDataCorrupt, "corrupt block index row")
		return 0, 0, nil, err
	}

	height := int64(binary.LittleEndian.Uint64(serialized[0:8]))
	status := blockStatus(serialized[8])
	var header wire.BlockHeader
	err := header.Deserialize(bytes.NewReader(serialized[9:]))
	if err != nil {
		return 0, 0, nil, err
	}
	return height, status, &header, nil
}

// dbPutBlockNode queues the block index row for the provided node to the
// provided batch.
func dbPutBlockNode(batch *kvdb.Batch, node *blockNode) error {
	serialized, err := serializeBlockIndexRow(node)
	if err != nil {
		return err
	}
	batch.Put(headerKey(&node.hash), serialized)
	return nil
}

// dbPutBlock queues the serialized block payload keyed by its hash to the
// provided batch.
func dbPutBlock(batch *kvdb.Batch, block *wire.MsgBlock) error {
	serialized, err := block.Bytes()
	if err != nil {
		return err
	}
	blockHash := block.Header.BlockHash()
	batch.Put(blockKey(&blockHash), serialized)
	return nil
}

// dbFetchBlock fetches the block with the provided hash from persistent
// storage.  An error with kind ErrUnknownBlock is returned when there is no
// stored payload for the hash.
func dbFetchBlock(db kvdb.Store, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	serialized, err := db.Get(blockKey(hash))
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, unknownBlockError(hash)
		}
		return nil, err
	}

	var block wire.MsgBlock
	if err := block.Deserialize(bytes.NewReader(serialized)); err != nil {
		return nil, err
	}
	return &block, nil
}

// createChainState initializes both the database and the chain state to the
// genesis block.  This includes creating the necessary index rows, storing
// the genesis block payload, and applying the genesis block to the unspent
// transaction output set.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) createChainState() error {
	genesisBlock := b.chainParams.GenesisBlock
	genesisHash := genesisBlock.Header.BlockHash()
	log.Infof("Initializing new chain state with genesis block %s",
		genesisHash)

	node := newBlockNode(&genesisBlock.Header, nil)
	node.status = statusDataStored | statusValid
	b.index.AddNode(node)
	b.bestNode = node

	// The genesis coinbase outputs become the first entries of the utxo
	// set so the commitment over an otherwise empty set is well defined.
	if _, err := b.utxoSet.ApplyBlock(genesisBlock, 0); err != nil {
		return err
	}

	var batch kvdb.Batch
	if err := dbPutBlock(&batch, genesisBlock); err != nil {
		return err
	}
	if err := dbPutBlockNode(&batch, node); err != nil {
		return err
	}
	batch.Put(heightKey(0), genesisHash[:])
	numTxns := uint64(len(genesisBlock.Transactions))
	b.setTipState(newBestState(node, uint64(genesisBlock.SerializeSize()),
		numTxns, numTxns, node.CalcPastMedianTime(b.chainParams.MedianTimeBlocks),
		0))
	dbPutBestState(&batch, b.stateSnapshot)
	return b.db.WriteBatch(&batch)
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the database does not yet contain any chain state, both it
// and the chain state are initialized to the genesis block.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) initChainState() error {
	// Fetch the stored best chain state from the database.  When it does
	// not exist the database has not yet been initialized for use with the
	// chain, so initialize both it and the chain state to the genesis
	// block.
	serialized, err := b.db.Get(chainStateKey)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return b.createChainState()
		}
		return err
	}
	state, err := deserializeBestChainState(serialized)
	if err != nil {
		return err
	}

	// Load all of the block index rows and construct the block index.  The
	// rows are linked into the tree shape in height order since a block can
	// never have a parent with a greater height.
	type indexRow struct {
		height int64
		status blockStatus
		header *wire.BlockHeader
	}
	var rows []indexRow
	iter := b.db.NewIterator(headerKeyPrefix)
	for iter.Next() {
		height, status, header, err := deserializeBlockIndexRow(iter.Value())
		if err != nil {
			iter.Release()
			return err
		}
		rows = append(rows, indexRow{height, status, header})
	}
	if err := iter.Error(); err != nil {
		iter.Release()
		return err
	}
	iter.Release()
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].height < rows[j].height
	})

	for i := range rows {
		row := &rows[i]
		var parent *blockNode
		if row.height > 0 {
			parent = b.index.LookupNode(&row.header.PrevBlock)
			if parent == nil {
				str := fmt.Sprintf("block index row %s references unknown "+
					"parent %s", row.header.BlockHash(), row.header.PrevBlock)
				return ruleError(ErrUtxoDataCorrupt, str)
			}
		}
		node := newBlockNode(row.header, parent)
		node.status = row.status
		b.index.AddNode(node)
	}

	// Set the best chain to the stored best state.
	tip := b.index.LookupNode(&state.hash)
	if tip == nil {
		str := fmt.Sprintf("chain state references unknown block %s",
			state.hash)
		return ruleError(ErrUtxoDataCorrupt, str)
	}
	b.bestNode = tip

	// Initialize the state snapshot related to the best block.
	block, err := dbFetchBlock(b.db, &tip.hash)
	if err != nil {
		return err
	}
	numTxns := uint64(len(block.Transactions))
	b.setTipState(newBestState(tip, uint64(block.SerializeSize()),
		numTxns, state.totalTxns,
		tip.CalcPastMedianTime(b.chainParams.MedianTimeBlocks), 0))

	log.Infof("Chain state loaded (height %d, hash %s, total transactions "+
		"%d)", tip.height, tip.hash, state.totalTxns)
	return nil
}
