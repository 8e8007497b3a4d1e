// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// clampTimespan limits the provided actual timespan to the range
// [expected/clampFactor, expected*clampFactor] which blunts the effect any
// single window of manipulated timestamps can have on the difficulty.
func clampTimespan(actual, expected, clampFactor int64) int64 {
	minTimespan := expected / clampFactor
	maxTimespan := expected * clampFactor
	switch {
	case actual < minTimespan:
		return minTimespan
	case actual > maxTimespan:
		return maxTimespan
	}
	return actual
}

// calcNextRetargetDifficulty calculates the required difficulty for the block
// after the passed node using the full retarget interval rules.  The actual
// elapsed time over the interval, measured median to median, is compared to
// the expected time and the current target is scaled proportionally, subject
// to the clamp factor.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) calcNextRetargetDifficulty(curNode *blockNode) uint32 {
	params := b.chainParams

	// Measure the elapsed time using the past median time of the node at
	// the start of the interval and of the current node so that no single
	// miner's timestamp can dominate either endpoint.
	firstNode := curNode.RelativeAncestor(params.RetargetInterval - 1)
	if firstNode == nil {
		firstNode = curNode.Ancestor(0)
	}
	curMedian := curNode.CalcPastMedianTime(params.MedianTimeBlocks).Unix()
	firstMedian := firstNode.CalcPastMedianTime(params.MedianTimeBlocks).Unix()

	actualTimespan := curMedian - firstMedian
	expectedTimespan := (params.RetargetInterval - 1) *
		int64(params.TargetTimePerBlock/time.Second)
	if expectedTimespan <= 0 {
		expectedTimespan = 1
	}
	adjustedTimespan := clampTimespan(actualTimespan, expectedTimespan,
		params.RetargetClampFactor)

	// The new target is the current target scaled by the ratio of the
	// adjusted actual timespan over the expected timespan, limited to the
	// proof of work limit.
	oldTarget := CompactToBig(curNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(expectedTimespan))
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	newBits := BigToCompact(newTarget)
	log.Debugf("Difficulty retarget at height %d: %08x -> %08x "+
		"(actual %ds, adjusted %ds, expected %ds)", curNode.height+1,
		curNode.bits, newBits, actualTimespan, adjustedTimespan,
		expectedTimespan)
	return newBits
}

// calcNextEMADifficulty calculates the required difficulty for the block
// after the passed node using an average of the targets over the work
// difficulty window.  The average target is then scaled by the ratio of the
// median-measured elapsed time over the window to the expected time, subject
// to the clamp factor, which reacts to sudden hash rate changes much faster
// than waiting for the next full retarget interval.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) calcNextEMADifficulty(curNode *blockNode) uint32 {
	params := b.chainParams

	// Average the targets of up to the last windowSize blocks.  Near the
	// start of the chain the window necessarily covers fewer blocks.
	windowSize := params.WorkDiffWindowSize
	targetSum := new(big.Int)
	var numBlocks int64
	for iterNode := curNode; iterNode != nil && numBlocks < windowSize; iterNode = iterNode.parent {
		targetSum.Add(targetSum, CompactToBig(iterNode.bits))
		numBlocks++
	}
	avgTarget := targetSum.Div(targetSum, big.NewInt(numBlocks))

	firstNode := curNode.RelativeAncestor(numBlocks - 1)
	curMedian := curNode.CalcPastMedianTime(params.MedianTimeBlocks).Unix()
	firstMedian := firstNode.CalcPastMedianTime(params.MedianTimeBlocks).Unix()

	actualTimespan := curMedian - firstMedian
	expectedTimespan := (numBlocks - 1) *
		int64(params.TargetTimePerBlock/time.Second)
	if expectedTimespan <= 0 {
		// There is not enough history to measure elapsed time, so keep
		// the averaged target unmodified.
		actualTimespan = 1
		expectedTimespan = 1
	}
	adjustedTimespan := clampTimespan(actualTimespan, expectedTimespan,
		params.RetargetClampFactor)

	newTarget := avgTarget.Mul(avgTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(expectedTimespan))
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}
	return BigToCompact(newTarget)
}

// calcNextRequiredDifficulty calculates the required difficulty for the block
// after the passed previous block node.  A full proportional retarget is
// performed every RetargetInterval blocks while the intervening blocks use a
// short moving average over the work difficulty window.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) calcNextRequiredDifficulty(curNode *blockNode) uint32 {
	// Genesis block.
	if curNode == nil {
		return b.chainParams.PowLimitBits
	}

	if (curNode.height+1)%b.chainParams.RetargetInterval == 0 {
		return b.calcNextRetargetDifficulty(curNode)
	}
	return b.calcNextEMADifficulty(curNode)
}

// CalcNextRequiredDifficulty calculates the required difficulty for the block
// after the given block based on the difficulty retarget rules.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty(hash *chainhash.Hash) (uint32, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return 0, unknownBlockError(hash)
	}

	b.chainLock.RLock()
	bits := b.calcNextRequiredDifficulty(node)
	b.chainLock.RUnlock()
	return bits, nil
}
