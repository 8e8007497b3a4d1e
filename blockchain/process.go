// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

const (
	// maxOrphanBlocks is the maximum number of orphan blocks that can be
	// queued waiting for their parents before the oldest one is evicted.
	maxOrphanBlocks = 500

	// orphanTTL is the duration an orphan block is held before it is
	// evicted regardless of pool pressure.
	orphanTTL = time.Hour
)

// orphanBlock represents a block for which the parent is not yet available.
// It is a normal block plus an expiration time to prevent caching the orphan
// forever.
type orphanBlock struct {
	block      *wire.MsgBlock
	hash       chainhash.Hash
	expiration time.Time
}

// IsKnownOrphan returns whether the passed hash is currently a known orphan.
// Keep in mind that only a limited number of orphans are held onto for a
// limited amount of time, so this function must not be used as an absolute
// way to test if a block is an orphan block.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownOrphan(hash *chainhash.Hash) bool {
	b.orphanLock.RLock()
	_, exists := b.orphans[*hash]
	b.orphanLock.RUnlock()
	return exists
}

// removeOrphanBlock removes the passed orphan block from the orphan pool and
// previous orphan index.
//
// This function MUST be called with the orphan lock held (for writes).
func (b *BlockChain) removeOrphanBlock(orphan *orphanBlock) {
	delete(b.orphans, orphan.hash)

	// Remove the reference from the previous orphan index too.
	prevHash := orphan.block.Header.PrevBlock
	orphans := b.prevOrphans[prevHash]
	for i := 0; i < len(orphans); i++ {
		if orphans[i].hash == orphan.hash {
			orphans = append(orphans[:i], orphans[i+1:]...)
			i--
		}
	}

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(orphans) == 0 {
		delete(b.prevOrphans, prevHash)
		return
	}
	b.prevOrphans[prevHash] = orphans
}

// addOrphanBlock adds the passed block (which is already determined to be an
// orphan prior to calling this function) to the orphan pool.  It lazily
// cleans up any expired blocks so a separate cleanup poller doesn't need to
// be run.  It also imposes a maximum limit on the number of outstanding
// orphan blocks and will remove the oldest received orphan block if the
// limit is exceeded.
func (b *BlockChain) addOrphanBlock(block *wire.MsgBlock) {
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	// Remove expired orphan blocks.
	now := time.Now()
	for _, oBlock := range b.orphans {
		if now.After(oBlock.expiration) {
			b.removeOrphanBlock(oBlock)
			continue
		}

		// Update the oldest orphan block pointer so it can be discarded
		// in case the orphan pool fills up.
		if b.oldestOrphan == nil ||
			oBlock.expiration.Before(b.oldestOrphan.expiration) {

			b.oldestOrphan = oBlock
		}
	}

	// Limit orphan blocks to prevent memory exhaustion.
	if len(b.orphans)+1 > maxOrphanBlocks {
		// Remove the oldest orphan to make room for the new one.
		b.removeOrphanBlock(b.oldestOrphan)
		b.oldestOrphan = nil
	}

	// Insert the block into the orphan map with an expiration time.
	oBlock := &orphanBlock{
		block:      block,
		hash:       block.Header.BlockHash(),
		expiration: now.Add(orphanTTL),
	}
	b.orphans[oBlock.hash] = oBlock

	// Add to previous hash lookup index for faster dependency lookups.
	prevHash := block.Header.PrevBlock
	b.prevOrphans[prevHash] = append(b.prevOrphans[prevHash], oBlock)
}

// maybeAcceptBlock potentially accepts a block into the block chain and, if
// accepted, returns whether or not it is on the main chain.  It performs
// several validation checks which depend on its position within the block
// chain before adding it.  The block is expected to have already gone
// through ProcessBlock before calling this function with it.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *wire.MsgBlock) (bool, error) {
	// The height of this block is one more than the referenced previous
	// block.
	prevNode := b.index.LookupNode(&block.Header.PrevBlock)
	if prevNode == nil {
		str := fmt.Sprintf("previous block %s is unknown",
			block.Header.PrevBlock)
		return false, ruleError(ErrMissingParent, str)
	}
	if b.index.NodeStatus(prevNode).KnownInvalid() {
		str := fmt.Sprintf("previous block %s is known to be invalid",
			block.Header.PrevBlock)
		return false, ruleError(ErrInvalidAncestorBlock, str)
	}

	// The block must pass all of the validation rules which depend on its
	// position within the block chain.
	if err := b.checkBlockContext(block, prevNode); err != nil {
		return false, err
	}

	// Create a new block node for the block and store its payload and
	// index row so it is available to future reorganizations even when it
	// does not immediately become part of the main chain.
	newNode := newBlockNode(&block.Header, prevNode)
	newNode.status = statusDataStored
	b.index.AddNode(newNode)

	var batch kvdb.Batch
	if err := dbPutBlock(&batch, block); err != nil {
		return false, err
	}
	if err := dbPutBlockNode(&batch, newNode); err != nil {
		return false, err
	}
	if err := b.db.WriteBatch(&batch); err != nil {
		return false, err
	}

	// Connect the passed block to the chain while respecting proper chain
	// selection according to the chain with the most proof of work.
	return b.connectBestChain(newNode, block)
}

// processOrphans determines if there are any orphans which depend on the
// passed block hash (they are no longer orphans if true) and potentially
// accepts them.  It repeats the process for the newly accepted blocks (to
// detect further orphans which may no longer be orphans) until there are no
// more.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) processOrphans(hash *chainhash.Hash) error {
	// Start with processing at least the passed hash.  Leave a little room
	// for additional orphan blocks that need to be processed without
	// needing to grow the array in the common case.
	processHashes := make([]*chainhash.Hash, 0, 10)
	processHashes = append(processHashes, hash)
	for len(processHashes) > 0 {
		// Pop the first hash to process from the slice.
		processHash := processHashes[0]
		processHashes[0] = nil
		processHashes = processHashes[1:]

		// Look up all orphans that are parented by the block we just
		// accepted.  The list is copied since accepting an orphan mutates
		// the pool.
		b.orphanLock.RLock()
		orphans := make([]*orphanBlock, len(b.prevOrphans[*processHash]))
		copy(orphans, b.prevOrphans[*processHash])
		b.orphanLock.RUnlock()
		for i := 0; i < len(orphans); i++ {
			orphan := orphans[i]

			// Remove the orphan from the orphan pool.
			b.orphanLock.Lock()
			b.removeOrphanBlock(orphan)
			b.orphanLock.Unlock()

			// Potentially accept the block into the block chain.
			_, err := b.maybeAcceptBlock(orphan.block)
			if err != nil {
				// Validation failures for former orphans are logged and
				// otherwise ignored so a single bad orphan cannot stall
				// acceptance of its valid siblings.
				log.Debugf("Rejected former orphan %s: %v", orphan.hash, err)
				continue
			}

			// Add this block to the list of blocks to process so any
			// orphan blocks that depend on this block are handled too.
			processHashes = append(processHashes, &orphan.hash)
		}
	}
	return nil
}

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, orphan handling, and
// insertion into the block chain along with best chain selection and
// reorganization.
//
// When no errors occurred during processing, the first return value
// indicates whether or not the block is on the main chain and the second
// indicates whether or not the block is an orphan.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) (bool, bool, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	if b.halted {
		return false, false, ruleError(ErrChainHalted, "block processing "+
			"is halted due to a previous fatal error")
	}

	blockHash := block.Header.BlockHash()
	log.Tracef("Processing block %s", blockHash)

	// The block must not already exist in the main chain or side chains.
	if b.index.HaveBlock(&blockHash) {
		str := fmt.Sprintf("already have block %s", blockHash)
		return false, false, ruleError(ErrDuplicateBlock, str)
	}

	// The block must not already exist as an orphan.
	if b.IsKnownOrphan(&blockHash) {
		str := fmt.Sprintf("already have block (orphan) %s", blockHash)
		return false, false, ruleError(ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block and its transactions.
	err := checkBlockSanity(block, b.timeSource, b.chainParams)
	if err != nil {
		return false, false, err
	}

	// Handle orphan blocks.
	prevHash := block.Header.PrevBlock
	if prevHash != zeroHash && !b.index.HaveBlock(&prevHash) {
		log.Infof("Adding orphan block %s with parent %s", blockHash,
			prevHash)
		b.addOrphanBlock(block)
		return false, true, nil
	}

	// The block has passed all context independent checks and appears sane
	// enough to potentially accept it into the block chain.
	isMainChain, err := b.maybeAcceptBlock(block)
	if err != nil {
		return false, false, err
	}

	// Accept any orphan blocks that depend on this block (they are no
	// longer orphans) and repeat for those accepted blocks until there are
	// no more.
	err = b.processOrphans(&blockHash)
	if err != nil {
		return false, false, err
	}

	log.Debugf("Accepted block %s", blockHash)
	return isMainChain, false, nil
}
