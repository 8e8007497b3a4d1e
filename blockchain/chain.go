// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

const (
	// defaultUtxoCacheLimit is the default maximum number of entries the
	// utxo cache may hold when the caller does not specify one.
	defaultUtxoCacheLimit = 65536

	// defaultParallelVerifyThreshold is the default minimum number of
	// input scripts in a block before verification is performed across
	// multiple goroutines.
	defaultParallelVerifyThreshold = 32
)

// TimeSource provides the notion of the current time used for validation
// rules that involve wall clock comparisons, such as rejecting blocks with
// timestamps too far in the future.  Callers that track a network adjusted
// time can supply it through this interface.
type TimeSource interface {
	// AdjustedTime returns the current time.
	AdjustedTime() time.Time
}

// systemTimeSource provides the local system time.
type systemTimeSource struct{}

// AdjustedTime returns the current local system time.
func (systemTimeSource) AdjustedTime() time.Time {
	return time.Now()
}

// NewSystemTimeSource returns a time source that reports the local system
// clock.
func NewSystemTimeSource() TimeSource {
	return systemTimeSource{}
}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from
// under the caller when chain state changes occur since the function name
// implies it is a snapshot.
type BestState struct {
	Hash       chainhash.Hash // The hash of the block.
	PrevHash   chainhash.Hash // The previous block hash.
	Height     int64          // The height of the block.
	Bits       uint32         // The difficulty bits of the block.
	BlockSize  uint64         // The size of the block.
	NumTxns    uint64         // The number of txns in the block.
	TotalTxns  uint64         // The total number of txns in the chain.
	MedianTime time.Time      // Median time as per CalcPastMedianTime.
	TotalWork  *big.Int       // The sum of all work in the chain.

	// Generation is incremented every time the tip changes, including each
	// individual connection and disconnection during a reorganization, so
	// callers can cheaply detect that a view they built is stale.
	Generation uint64
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode, blockSize, numTxns, totalTxns uint64, medianTime time.Time, generation uint64) *BestState {
	prevHash := zeroHash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return &BestState{
		Hash:       node.hash,
		PrevHash:   prevHash,
		Height:     node.height,
		Bits:       node.bits,
		BlockSize:  blockSize,
		NumTxns:    numTxns,
		TotalTxns:  totalTxns,
		MedianTime: medianTime,
		TotalWork:  new(big.Int).Set(node.workSum),
		Generation: generation,
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the key/value store which houses blocks, block index
	// rows, the unspent transaction output set, and related state.
	//
	// This field is required.
	DB kvdb.Store

	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// Verifier defines the capability used to verify input unlocking
	// scripts against the locking scripts of the outputs they spend.
	//
	// This field is required.
	Verifier ScriptVerifier

	// TimeSource defines the time source to use for validation rules that
	// compare against the current time.  When nil, the local system clock
	// is used.
	TimeSource TimeSource

	// Notifications defines a callback to which notifications will be
	// sent when various events take place.  See the documentation for
	// Notification and NotificationType for details on the types and
	// contents of notifications.
	//
	// This field can be nil if the caller is not interested in receiving
	// notifications.
	Notifications NotificationCallback

	// UtxoCacheLimit is the maximum number of entries the in-memory utxo
	// cache may hold.  Zero selects a reasonable default.
	UtxoCacheLimit uint32

	// ParallelVerifyThreshold is the minimum number of input scripts a
	// block must contain before script verification is distributed across
	// multiple goroutines.  Zero selects a reasonable default.
	ParallelVerifyThreshold int
}

// BlockChain provides functions for working with the blockchain.  It
// includes functionality such as rejecting duplicate blocks, ensuring blocks
// follow all rules, orphan handling, and best chain selection with
// reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	chainParams             *chaincfg.Params
	db                      kvdb.Store
	verifier                ScriptVerifier
	timeSource              TimeSource
	notifications           NotificationCallback
	parallelVerifyThreshold int

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// These fields are related to the memory block index.  They both have
	// their own locks, however they are often also protected by the chain
	// lock to help prevent logic races when blocks are being processed.
	index    *blockIndex
	bestNode *blockNode

	// utxoSet houses the unspent transaction output set and its cache.
	utxoSet *UtxoSet

	// halted is set when a fatal error such as undo data corruption is
	// encountered, after which all further block processing is refused.
	//
	// It is protected by the chain lock.
	halted bool

	// These fields are related to handling of orphan blocks.  They are
	// protected by a combination of the chain lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[chainhash.Hash]*orphanBlock
	prevOrphans  map[chainhash.Hash][]*orphanBlock
	oldestOrphan *orphanBlock

	// latestCommitment is the most recently computed commitment over the
	// utxo set.  It is protected by the chain lock.
	latestCommitment *UtxoCommitment

	// The state is used as a fairly efficient way to cache information
	// about the current best chain state that is returned to callers when
	// requested.  It operates on the principle of MVCC such that any time
	// a new block becomes the best block, the state pointer is replaced
	// with a new struct and the old state is left untouched.  In this way,
	// multiple callers can be pointing to different best chain states.
	// This is a tradeoff of memory for less contention.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	// tipState is the best state for the current tip as tracked under the
	// chain lock.  It matches the published snapshot except while a
	// reorganization is executing, during which it runs ahead of it.
	tipState *BestState

	// reorgActive is set while a reorganization is executing so tip state
	// publication and notification delivery are deferred until the
	// reorganization completes.  Snapshot readers never observe an
	// intermediate tip.  Both fields are protected by the chain lock.
	reorgActive   bool
	deferredNtfns []*Notification

	// generation counts tip transitions, see BestState.Generation.  It is
	// protected by the chain lock.
	generation uint64
}

// New returns a BlockChain instance using the provided configuration
// details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters are nil")
	}
	if config.Verifier == nil {
		return nil, AssertError("blockchain.New script verifier is nil")
	}

	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = NewSystemTimeSource()
	}
	cacheLimit := config.UtxoCacheLimit
	if cacheLimit == 0 {
		cacheLimit = defaultUtxoCacheLimit
	}
	parallelThreshold := config.ParallelVerifyThreshold
	if parallelThreshold == 0 {
		parallelThreshold = defaultParallelVerifyThreshold
	}

	b := BlockChain{
		chainParams:             config.ChainParams,
		db:                      config.DB,
		verifier:                config.Verifier,
		timeSource:              timeSource,
		notifications:           config.Notifications,
		parallelVerifyThreshold: parallelThreshold,
		index:                   newBlockIndex(config.ChainParams),
		utxoSet:                 NewUtxoSet(config.DB, cacheLimit),
		orphans:                 make(map[chainhash.Hash]*orphanBlock),
		prevOrphans:             make(map[chainhash.Hash][]*orphanBlock),
	}

	// Initialize the chain state from the passed database.  When the db
	// does not yet contain any chain state, both it and the chain state
	// will be initialized to contain only the genesis block.
	b.chainLock.Lock()
	err := b.initChainState()
	b.chainLock.Unlock()
	if err != nil {
		return nil, err
	}

	tip := b.bestNode
	log.Infof("Chain state (height %d, hash %s, work %v)", tip.height,
		tip.hash, tip.workSum)
	return &b, nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// LatestUtxoCommitment returns the most recently computed commitment over
// the unspent transaction output set, or nil when none has been computed
// yet.  Commitments are recomputed every UtxoCommitmentInterval blocks.
//
// This function is safe for concurrent access.
func (b *BlockChain) LatestUtxoCommitment() *UtxoCommitment {
	b.chainLock.RLock()
	commitment := b.latestCommitment
	b.chainLock.RUnlock()
	return commitment
}

// UtxoCacheHitRatio returns the percentage of utxo lookups served by the
// in-memory cache.
//
// This function is safe for concurrent access.
func (b *BlockChain) UtxoCacheHitRatio() float64 {
	return b.utxoSet.HitRatio()
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.  This includes checking the various places
// a block can be like part of the main chain, on a side chain, or in the
// orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	return b.index.HaveBlock(hash) || b.IsKnownOrphan(hash)
}

// BlockByHash returns the block from the main chain or a side chain with the
// given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return dbFetchBlock(b.db, hash)
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(height int64) (*chainhash.Hash, error) {
	serialized, err := b.db.Get(heightKey(height))
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			str := fmt.Sprintf("no block at height %d exists", height)
			return nil, ruleError(ErrUnknownBlock, str)
		}
		return nil, err
	}
	if len(serialized) != chainhash.HashSize {
		return nil, ruleError(ErrUtxoDataCorrupt, "corrupt height index row")
	}

	var hash chainhash.Hash
	copy(hash[:], serialized)
	return &hash, nil
}

// FetchUtxoEntry loads and returns the requested unspent transaction output
// from the point of view of the main chain tip.
//
// NOTE: Requesting an output for which there is no data will NOT return an
// error.  Instead both the entry and the error will be nil.  This is done to
// allow pruning of spent transaction outputs.  In practice this means the
// caller must check if the returned entry is nil before invoking methods on
// it.
//
// This function is safe for concurrent access however the returned entry (if
// any) is NOT.
func (b *BlockChain) FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.utxoSet.FetchEntry(outpoint)
}

// FetchUtxoView loads unspent transaction outputs for the inputs referenced
// by the passed transaction from the point of view of the main chain tip.
// It also attempts to fetch the utxos for the outputs of the transaction
// itself so the returned view can be examined for duplicate transactions.
//
// This function is safe for concurrent access however the returned view is
// NOT.
func (b *BlockChain) FetchUtxoView(tx *wire.MsgTx) (*UtxoViewpoint, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	view := NewUtxoViewpoint()
	view.SetBestHash(&b.bestNode.hash)

	txHash := tx.TxHash()
	for outIdx := range tx.TxOut {
		outpoint := wire.OutPoint{Hash: txHash, Index: uint32(outIdx)}
		entry, err := b.utxoSet.FetchEntry(outpoint)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			view.entries[outpoint] = entry
		}
	}
	if !IsCoinBaseTx(tx) {
		for _, txIn := range tx.TxIn {
			entry, err := b.utxoSet.FetchEntry(txIn.PreviousOutPoint)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				view.entries[txIn.PreviousOutPoint] = entry
			}
		}
	}
	return view, nil
}

// setTipState records the provided state for the current tip and publishes it
// to snapshot readers.  Publication is deferred while a reorganization is
// executing so BestSnapshot never exposes an intermediate tip.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) setTipState(state *BestState) {
	b.tipState = state
	if b.reorgActive {
		return
	}
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
}

// pushMainChainMetadata queues the metadata updates needed to make the
// provided node the new main chain tip to the provided batch.
func (b *BlockChain) pushMainChainMetadata(batch *kvdb.Batch, node *blockNode, state *BestState) error {
	if err := dbPutBlockNode(batch, node); err != nil {
		return err
	}
	batch.Put(heightKey(node.height), node.hash[:])
	dbPutBestState(batch, state)
	return nil
}

// connectBlock handles connecting the passed node/block to the end of the
// main chain.  The block MUST have already been validated via
// checkConnectBlock.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBlock(node *blockNode, block *wire.MsgBlock) error {
	// Make sure the block connects to the end of the best chain.
	prevHash := block.Header.PrevBlock
	if prevHash != b.bestNode.hash {
		return AssertError("connectBlock must be called with a block that " +
			"extends the main chain")
	}

	// Atomically apply the block's spends and new outputs to the utxo set
	// along with the undo record needed to reverse it.
	if _, err := b.utxoSet.ApplyBlock(block, node.height); err != nil {
		return err
	}

	// Generate a new best state snapshot that will be used to update the
	// database and later memory state as needed.
	curTotalTxns := b.tipState.TotalTxns
	numTxns := uint64(len(block.Transactions))
	b.generation++
	state := newBestState(node, uint64(block.SerializeSize()), numTxns,
		curTotalTxns+numTxns,
		node.CalcPastMedianTime(b.chainParams.MedianTimeBlocks), b.generation)

	// Update the main chain metadata in the database.
	b.index.SetStatusFlags(node, statusValid)
	var batch kvdb.Batch
	if err := b.pushMainChainMetadata(&batch, node, state); err != nil {
		return err
	}
	if err := b.db.WriteBatch(&batch); err != nil {
		return err
	}

	// This node is now the end of the best chain.
	b.bestNode = node
	b.setTipState(state)

	// Periodically recompute the commitment over the full utxo set.
	interval := b.chainParams.UtxoCommitmentInterval
	if interval > 0 && node.height%interval == 0 {
		commitment, err := b.utxoSet.Commitment(node.height)
		if err != nil {
			return err
		}
		b.latestCommitment = commitment
		log.Infof("Utxo commitment at height %d: root %s, %d entries, "+
			"total value %d", node.height, commitment.Root,
			commitment.NumEntries, commitment.TotalValue)
	}

	// Notify the caller that the block was connected to the main chain.
	// The caller would typically want to react with actions such as
	// updating wallets and relaying the block.
	b.sendNotification(NTBlockConnected, &BlockConnectedNtfnsData{
		Block:  block,
		Height: node.height,
	})
	return nil
}

// disconnectBlock handles disconnecting the passed node/block from the end
// of the main chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) disconnectBlock(node *blockNode, block *wire.MsgBlock) error {
	// Make sure the node being disconnected is the end of the best chain.
	if node.hash != b.bestNode.hash {
		return AssertError("disconnectBlock must be called with the block " +
			"at the end of the main chain")
	}
	prev := node.parent
	if prev == nil {
		return AssertError("disconnectBlock cannot disconnect the genesis " +
			"block")
	}

	// Load the undo record for the block and reverse its effect on the
	// utxo set.  A missing or corrupt record means the store can no longer
	// be trusted to represent a consistent utxo set, which is fatal.
	record, err := b.utxoSet.FetchUndoRecord(&node.hash)
	if err != nil {
		return err
	}
	if record.Height != node.height {
		str := fmt.Sprintf("undo record for block %s claims height %d "+
			"instead of %d", node.hash, record.Height, node.height)
		return ruleError(ErrUndoDataCorrupt, str)
	}
	if err := b.utxoSet.UndoBlock(record); err != nil {
		return err
	}

	// Generate a new best state snapshot for the parent block.
	prevBlock, err := dbFetchBlock(b.db, &prev.hash)
	if err != nil {
		return err
	}
	curTotalTxns := b.tipState.TotalTxns
	numTxns := uint64(len(prevBlock.Transactions))
	b.generation++
	state := newBestState(prev, uint64(prevBlock.SerializeSize()), numTxns,
		curTotalTxns-uint64(len(block.Transactions)),
		prev.CalcPastMedianTime(b.chainParams.MedianTimeBlocks), b.generation)

	var batch kvdb.Batch
	batch.Delete(heightKey(node.height))
	dbPutBestState(&batch, state)
	if err := b.db.WriteBatch(&batch); err != nil {
		return err
	}

	// This node's parent is now the end of the best chain.
	b.bestNode = prev
	b.setTipState(state)

	// Notify the caller that the block was disconnected from the main
	// chain.  The caller would typically want to react with actions such
	// as re-admitting the block's transactions to the mempool.
	b.sendNotification(NTBlockDisconnected, &BlockDisconnectedNtfnsData{
		Block:  block,
		Height: node.height,
	})
	return nil
}

// findFork returns the final common block between the provided node and the
// current main chain tip, which is the fork point when the node is on a side
// chain.  It returns nil when the two chains have no blocks in common.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) findFork(node *blockNode) *blockNode {
	// Start with the side chain node at the same height as the current
	// main chain tip, or walk the main chain back to the height of the
	// node, whichever is lower.
	forkNode := node
	mainNode := b.bestNode
	if forkNode.height > mainNode.height {
		forkNode = forkNode.Ancestor(mainNode.height)
	} else if mainNode.height > forkNode.height {
		mainNode = mainNode.Ancestor(forkNode.height)
	}

	for forkNode != nil && mainNode != nil && forkNode.hash != mainNode.hash {
		forkNode = forkNode.parent
		mainNode = mainNode.parent
	}
	if forkNode == nil || mainNode == nil {
		return nil
	}
	return forkNode
}

// fatalCorruption marks the chain halted and logs the provided error.  All
// subsequent calls to ProcessBlock will fail with ErrChainHalted.  Halting
// is preferable to continuing with a utxo set that no longer matches the
// chain it claims to represent.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) fatalCorruption(err error) {
	b.halted = true
	log.Criticalf("Halting block processing due to storage corruption: %v",
		err)
}

// isFatalUndoError returns whether the provided error indicates undo data
// that is missing or corrupt, which the chain treats as unrecoverable.
func isFatalUndoError(err error) bool {
	return errors.Is(err, ErrNoUndoData) || errors.Is(err, ErrUndoDataCorrupt)
}

// reorganizeChainInternal attempts to reorganize the block chain so the
// provided target node becomes the main chain tip.  It disconnects blocks
// from the main chain back to the fork point between it and the target and
// then connects the blocks along the target branch.
//
// Connection failures along the target branch leave the chain at the fork
// point, the caller is responsible for restoring the original chain in that
// case.  The offending block and all of its descendants along the branch are
// marked invalid.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChainInternal(target *blockNode) error {
	fork := b.findFork(target)
	if fork == nil {
		str := fmt.Sprintf("no common ancestor between tip %s and target %s",
			b.bestNode.hash, target.hash)
		return ruleError(ErrMissingParent, str)
	}

	// Disconnect blocks back to the fork point.
	for b.bestNode.hash != fork.hash {
		node := b.bestNode
		block, err := dbFetchBlock(b.db, &node.hash)
		if err != nil {
			return err
		}
		if err := b.disconnectBlock(node, block); err != nil {
			if isFatalUndoError(err) {
				b.fatalCorruption(err)
			}
			return err
		}
	}

	// Determine the blocks to attach between the fork point and the
	// target, in connection order.
	var attach []*blockNode
	for node := target; node.hash != fork.hash; node = node.parent {
		attach = append(attach, node)
	}
	for i, j := 0, len(attach)-1; i < j; i, j = i+1, j-1 {
		attach[i], attach[j] = attach[j], attach[i]
	}

	// Connect the target branch.
	for i, node := range attach {
		block, err := dbFetchBlock(b.db, &node.hash)
		if err != nil {
			return err
		}

		// Skip full validation for blocks that are already known valid,
		// which is the common case when restoring the original chain after
		// a failed reorganization attempt.
		if !b.index.NodeStatus(node).KnownValid() {
			if err := b.checkBlockContext(block, node.parent); err != nil {
				b.markBranchInvalid(attach[i:])
				return err
			}
			view := NewUtxoViewpoint()
			view.SetBestHash(&node.parent.hash)
			if err := b.checkConnectBlock(node, block, view, nil); err != nil {
				var rErr RuleError
				if errors.As(err, &rErr) {
					b.markBranchInvalid(attach[i:])
				}
				return err
			}
		}

		if err := b.connectBlock(node, block); err != nil {
			return err
		}
	}
	return nil
}

// markBranchInvalid marks the first node in the provided branch as having
// failed validation and all of its listed descendants as having an invalid
// ancestor.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) markBranchInvalid(branch []*blockNode) {
	if len(branch) == 0 {
		return
	}
	b.index.SetStatusFlags(branch[0], statusValidateFailed)
	for _, node := range branch[1:] {
		b.index.SetStatusFlags(node, statusInvalidAncestor)
	}
}

// reorganizeChain reorganizes the block chain so the provided target node
// becomes the main chain tip.  When a block along the target branch fails
// validation, the original chain is restored by reconnecting the previously
// disconnected blocks, which is always possible because their undo records
// are retained until they succeed, and the error from the failed branch is
// returned.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChain(target *blockNode) error {
	// Reorganizations that would disconnect a checkpointed block are
	// refused outright.
	fork := b.findFork(target)
	if fork == nil {
		str := fmt.Sprintf("no common ancestor between tip %s and target %s",
			b.bestNode.hash, target.hash)
		return ruleError(ErrMissingParent, str)
	}
	if err := b.checkReorgDepth(fork); err != nil {
		return err
	}

	origTip := b.bestNode

	// Defer snapshot publication and notification delivery while the
	// disconnect and connect sequence executes so no observer can see an
	// intermediate tip.
	b.reorgActive = true
	b.deferredNtfns = nil
	b.sendNotification(NTReorganization, &ReorganizationNtfnsData{
		OldHash:   origTip.hash,
		OldHeight: origTip.height,
		NewHash:   target.hash,
		NewHeight: target.height,
	})

	log.Infof("Reorganizing chain from tip %s (height %d) to %s (height "+
		"%d), fork point %s (height %d)", origTip.hash, origTip.height,
		target.hash, target.height, fork.hash, fork.height)

	err := b.reorganizeChainInternal(target)
	if err != nil && !b.halted {
		// Restore the original chain.  The blocks being reconnected were
		// all previously validated, so a failure here indicates storage
		// corruption and is fatal.
		log.Warnf("Reorganization to %s failed (%v), restoring original "+
			"tip %s", target.hash, err, origTip.hash)
		if restoreErr := b.reorganizeChainInternal(origTip); restoreErr != nil {
			b.fatalCorruption(restoreErr)
			err = restoreErr
		}
	}

	// Publish the final tip in a single transition.  The queued
	// notifications are only delivered when the reorganization succeeded
	// since a restored chain has no net change to report.
	b.reorgActive = false
	b.stateLock.Lock()
	b.stateSnapshot = b.tipState
	b.stateLock.Unlock()
	ntfns := b.deferredNtfns
	b.deferredNtfns = nil
	if err != nil {
		return err
	}
	if b.notifications != nil {
		b.chainLock.Unlock()
		for _, n := range ntfns {
			b.notifications(n)
		}
		b.chainLock.Lock()
	}

	log.Infof("Chain reorganization complete, new tip %s (height %d)",
		b.bestNode.hash, b.bestNode.height)
	return nil
}

// connectBestChain handles connecting the passed block to the chain while
// respecting proper chain selection according to the most cumulative proof
// of work.  In the typical case, the new block simply extends the main
// chain.  However, it may also be extending (or creating) a side chain which
// may or may not end up becoming the main chain depending on which fork
// cumulatively has the most proof of work.  It returns whether or not the
// block ended up on the main chain (either due to extending the main chain
// or causing a reorganization to become the main chain).
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode, block *wire.MsgBlock) (bool, error) {
	// We are extending the main (best) chain with a new block.  This is
	// the most common case.
	parentHash := block.Header.PrevBlock
	if parentHash == b.bestNode.hash {
		// Perform several checks to verify the block can be connected to
		// the main chain without violating any rules before actually
		// connecting the block.
		view := NewUtxoViewpoint()
		view.SetBestHash(&parentHash)
		err := b.checkConnectBlock(node, block, view, nil)
		if err != nil {
			var rErr RuleError
			if errors.As(err, &rErr) {
				b.index.SetStatusFlags(node, statusValidateFailed)
			}
			return false, err
		}

		b.sendNotification(NTNewTipBlockChecked, block)
		if err := b.connectBlock(node, block); err != nil {
			return false, err
		}
		return true, nil
	}

	// We're extending (or creating) a side chain, but the cumulative work
	// for this new side chain is not enough to make it the new chain.
	if node.workSum.Cmp(b.bestNode.workSum) <= 0 {
		fork := b.findFork(node)
		if fork != nil && fork.hash == parentHash {
			log.Infof("FORK: Block %s forks the chain at height %d/block "+
				"%s, but does not cause a reorganize", node.hash,
				fork.height, fork.hash)
		} else {
			log.Infof("EXTEND FORK: Block %s extends a side chain which "+
				"forks the chain", node.hash)
		}
		return false, nil
	}

	// We're extending (or creating) a side chain and the cumulative work
	// for this new side chain is more than the old best chain, so this side
	// chain needs to become the main chain.
	err := b.reorganizeChain(node)
	if err != nil {
		return false, err
	}
	return b.bestNode.hash == node.hash, nil
}
