// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/wire"
)

const (
	// MaxAtoms is the maximum number of atoms that will ever exist and is
	// used as a sanity bound on transaction output values.
	MaxAtoms = 21e6 * 1e8
)

// zeroHash is the zero value for a chainhash.Hash and is defined as a
// package level variable to avoid the need to create a new instance every
// time a check is needed.
var zeroHash chainhash.Hash

// isNullOutpoint determines whether or not a previous transaction output
// point is set.
func isNullOutpoint(outpoint *wire.OutPoint) bool {
	return outpoint.Index == wire.MaxPrevOutIndex && outpoint.Hash == zeroHash
}

// IsCoinBaseTx determines whether or not a transaction is a coinbase.  A
// coinbase is a special transaction created by miners that has no inputs
// referencing real outputs.  This is represented in the block chain by a
// transaction with a single input that has a null previous output.
func IsCoinBaseTx(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	return isNullOutpoint(&tx.TxIn[0].PreviousOutPoint)
}

// IsFinalizedTransaction determines whether or not a transaction is
// finalized at the provided block height and time.  A transaction with a
// zero lock time, or with every input's sequence number at the maximum, is
// always finalized.  Otherwise the lock time is interpreted as a height when
// below the lock time threshold and as a unix timestamp when at or above it.
func IsFinalizedTransaction(tx *wire.MsgTx, blockHeight int64, blockTime int64) bool {
	if tx.LockTime == 0 {
		return true
	}

	// The lock time field of a transaction is either a block height at
	// which the transaction is finalized or a timestamp depending on if the
	// value is before the lock time threshold.
	blockTimeOrHeight := blockHeight
	if tx.LockTime >= wire.LockTimeThreshold {
		blockTimeOrHeight = blockTime
	}
	if int64(tx.LockTime) < blockTimeOrHeight {
		return true
	}

	// At this point the transaction's lock time hasn't occurred yet, but it
	// might still be finalized if every input opted out of lock time
	// enforcement via a max sequence number.
	for i := range tx.TxIn {
		if tx.TxIn[i].Sequence != wire.MaxTxInSequenceNum {
			return false
		}
	}
	return true
}

// CheckTransactionSanity performs some preliminary checks on a transaction
// to ensure it is sane.  These checks are context free, meaning they do not
// depend on chain state or any other transactions.
func CheckTransactionSanity(tx *wire.MsgTx, params *chaincfg.Params) error {
	// A transaction must have at least one input.
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	// A transaction must have at least one output.
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	// A transaction must not exceed the maximum allowed block size when
	// serialized.
	serializedSize := tx.SerializeSize()
	if serializedSize > params.MaxBlockSize {
		str := fmt.Sprintf("serialized transaction is too big - got %d, "+
			"max %d", serializedSize, params.MaxBlockSize)
		return ruleError(ErrTxTooBig, str)
	}

	// Ensure the transaction amounts are in range.  Each transaction output
	// must not be negative or more than the max allowed per transaction.
	// Also, the total of all outputs must abide by the same restrictions.
	var totalAtoms int64
	for _, txOut := range tx.TxOut {
		atoms := txOut.Value
		if atoms < 0 {
			str := fmt.Sprintf("transaction output has negative value of %d",
				atoms)
			return ruleError(ErrBadTxOutValue, str)
		}
		if atoms > MaxAtoms {
			str := fmt.Sprintf("transaction output value of %d is higher "+
				"than max allowed value of %d", atoms, int64(MaxAtoms))
			return ruleError(ErrBadTxOutValue, str)
		}

		totalAtoms += atoms
		if totalAtoms < 0 || totalAtoms > MaxAtoms {
			str := fmt.Sprintf("total value of all transaction outputs "+
				"exceeds max allowed value of %d", int64(MaxAtoms))
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	// Check for duplicate transaction inputs.
	existingOutPoints := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	for _, txIn := range tx.TxIn {
		if _, exists := existingOutPoints[txIn.PreviousOutPoint]; exists {
			return ruleError(ErrDuplicateTxInputs, "transaction contains "+
				"duplicate inputs")
		}
		existingOutPoints[txIn.PreviousOutPoint] = struct{}{}
	}

	// A non-coinbase transaction must not have any inputs with a null
	// previous output.
	if !IsCoinBaseTx(tx) {
		for txInIdx, txIn := range tx.TxIn {
			if isNullOutpoint(&txIn.PreviousOutPoint) {
				str := fmt.Sprintf("transaction input %d refers to a "+
					"previous output that is null", txInIdx)
				return ruleError(ErrBadTxInput, str)
			}
		}
	}

	return nil
}

// checkBlockHeaderSanity performs some preliminary checks on a block header
// to ensure it is sane before continuing with processing.  These checks are
// context free.
func checkBlockHeaderSanity(header *wire.BlockHeader, timeSource TimeSource, params *chaincfg.Params) error {
	// Ensure the proof of work bits in the block header is in min/max range
	// and the block hash is less than the target value described by the
	// bits.
	powHash := header.BlockHash()
	err := CheckProofOfWork(&powHash, header.Bits, params.PowLimit)
	if err != nil {
		return ruleError(ErrHighHash, err.Error())
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := timeSource.AdjustedTime().Add(params.MaxTimeOffset)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the future",
			header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	return nil
}

// checkBlockSanity performs some preliminary checks on a block to ensure it
// is sane before continuing with block processing.  These checks are context
// free.
func checkBlockSanity(block *wire.MsgBlock, timeSource TimeSource, params *chaincfg.Params) error {
	header := &block.Header
	err := checkBlockHeaderSanity(header, timeSource, params)
	if err != nil {
		return err
	}

	// A block must have at least one transaction.
	numTx := len(block.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain any "+
			"transactions")
	}

	// A block must not exceed the maximum allowed block payload when
	// serialized.
	serializedSize := block.SerializeSize()
	if serializedSize > params.MaxBlockSize {
		str := fmt.Sprintf("serialized block is too big - got %d, max %d",
			serializedSize, params.MaxBlockSize)
		return ruleError(ErrBlockTooBig, str)
	}

	// The first transaction in a block must be a coinbase.
	transactions := block.Transactions
	if !IsCoinBaseTx(transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not the coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range transactions[1:] {
		if IsCoinBaseTx(tx) {
			str := fmt.Sprintf("block contains second coinbase at index %d",
				i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// Do some preliminary checks on each transaction to ensure they are
	// sane before continuing.
	for _, tx := range transactions {
		err := CheckTransactionSanity(tx, params)
		if err != nil {
			return err
		}
	}

	// Build the merkle tree and ensure the calculated merkle root matches
	// the entry in the block header.
	calculatedMerkleRoot := CalcTxMerkleRoot(block.Transactions)
	if header.MerkleRoot != calculatedMerkleRoot {
		str := fmt.Sprintf("block merkle root is invalid - block header "+
			"indicates %v, but calculated value is %v", header.MerkleRoot,
			calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	return nil
}

// checkBlockContext performs several validation checks on the block which
// depend on its position within the block chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkBlockContext(block *wire.MsgBlock, prevNode *blockNode) error {
	header := &block.Header

	// Ensure the difficulty specified in the block header matches the
	// calculated difficulty based on the previous block and difficulty
	// retarget rules.
	expectedDifficulty := b.calcNextRequiredDifficulty(prevNode)
	if header.Bits != expectedDifficulty {
		str := fmt.Sprintf("block difficulty of %08x is not the expected "+
			"value of %08x", header.Bits, expectedDifficulty)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// Ensure the timestamp for the block header is after the median time of
	// the last several blocks.
	medianTime := prevNode.CalcPastMedianTime(b.chainParams.MedianTimeBlocks)
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after expected %v",
			header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	// Ensure all transactions in the block are finalized at the height and
	// time the block claims.
	blockHeight := prevNode.height + 1
	for _, tx := range block.Transactions {
		if !IsFinalizedTransaction(tx, blockHeight, header.Timestamp.Unix()) {
			str := fmt.Sprintf("block contains unfinalized transaction %s",
				tx.TxHash())
			return ruleError(ErrUnfinalizedTx, str)
		}
	}

	// Ensure the block does not contradict a known checkpoint for its
	// height.
	blockHash := header.BlockHash()
	if !b.verifyCheckpoint(blockHeight, &blockHash) {
		str := fmt.Sprintf("block at height %d does not match checkpoint "+
			"hash", blockHeight)
		return ruleError(ErrBadCheckpoint, str)
	}

	return nil
}

// CheckTransactionInputs performs a series of checks on the inputs to a
// transaction to ensure they are valid.  An example of some of the checks
// include verifying all inputs exist, ensuring the coinbase seasoning
// requirements are met, detecting double spends, validating all values and
// fees are in the legal range, and the total output amount doesn't exceed
// the input amount.  As it checks the inputs, it also calculates the total
// fees for the transaction and returns that value.
//
// NOTE: The transaction MUST have already been sanity checked with the
// CheckTransactionSanity function prior to calling this function.
func CheckTransactionInputs(tx *wire.MsgTx, txHeight int64, view *UtxoViewpoint, params *chaincfg.Params) (int64, error) {
	// Coinbase transactions have no inputs to validate.
	if IsCoinBaseTx(tx) {
		return 0, nil
	}

	txHash := tx.TxHash()
	var totalAtomsIn int64
	for txInIdx, txIn := range tx.TxIn {
		// Ensure the referenced input transaction output is available.
		prevOut := txIn.PreviousOutPoint
		entry := view.LookupEntry(prevOut)
		if entry == nil || entry.IsSpent() {
			str := fmt.Sprintf("output %v referenced from transaction %s "+
				"input %d either does not exist or has already been spent",
				prevOut, txHash, txInIdx)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		// Ensure the transaction is not spending coins which have not yet
		// reached the required coinbase maturity.
		if entry.IsCoinBase() {
			blocksSincePrev := txHeight - entry.BlockHeight()
			if blocksSincePrev < int64(params.CoinbaseMaturity) {
				str := fmt.Sprintf("tried to spend coinbase output %v at "+
					"height %d before required maturity of %d blocks",
					prevOut, txHeight, params.CoinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		// Ensure the transaction amounts are in range.  The total of all
		// inputs must abide by the same restrictions as the individual
		// outputs.
		atoms := entry.Amount()
		if atoms < 0 || atoms > MaxAtoms {
			str := fmt.Sprintf("referenced output %v has out of range "+
				"value of %d", prevOut, atoms)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
		totalAtomsIn += atoms
		if totalAtomsIn < 0 || totalAtomsIn > MaxAtoms {
			str := fmt.Sprintf("total value of all inputs of transaction "+
				"%s exceeds max allowed value of %d", txHash,
				int64(MaxAtoms))
			return 0, ruleError(ErrBadTxOutValue, str)
		}
	}

	// Calculate the total output amount for this transaction.  It is safe
	// to ignore overflow and out of range errors here because those error
	// conditions would have already been caught by the transaction sanity
	// checks.
	var totalAtomsOut int64
	for _, txOut := range tx.TxOut {
		totalAtomsOut += txOut.Value
	}

	// Ensure the transaction does not spend more than its inputs.
	if totalAtomsIn < totalAtomsOut {
		str := fmt.Sprintf("total value of all inputs for transaction %s "+
			"is %d which is less than the amount spent of %d", txHash,
			totalAtomsIn, totalAtomsOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	return totalAtomsIn - totalAtomsOut, nil
}

// checkConnectBlock performs several checks to confirm connecting the passed
// block to the chain represented by the passed view does not violate any
// rules.  In addition, the passed view is updated to spend all of the
// referenced outputs and add all of the new utxos created by the block, and
// the spent utxos are appended to stxos in the order they are spent.
//
// An example of some of the checks performed are ensuring all inputs exist,
// ensuring the coinbase pays no more than the subsidy plus the fees the
// block collects, detecting double spends, and validating all scripts.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkConnectBlock(node *blockNode, block *wire.MsgBlock, view *UtxoViewpoint, stxos *[]SpentTxOut) error {
	// Load all of the utxos referenced by the inputs for all transactions
	// in the block that don't already exist in the view from the utxo set.
	err := view.fetchInputUtxos(b.utxoSet, block)
	if err != nil {
		return err
	}

	// Validate and connect each transaction in order.  The locking and
	// unlocking scripts of each input are captured before the referenced
	// output is marked spent so all script checks for the block can be
	// batched afterwards.
	var totalFees int64
	var scriptItems []*txValidateItem
	for txIdx, tx := range block.Transactions {
		isCoinBase := txIdx == 0
		if !isCoinBase {
			txFee, err := CheckTransactionInputs(tx, node.height, view,
				b.chainParams)
			if err != nil {
				return err
			}

			totalFees += txFee
			if totalFees < 0 || totalFees > MaxAtoms {
				return ruleError(ErrBadFees, "total fees for block "+
					"overflow accumulator")
			}

			items, err := txScriptItems(tx, view)
			if err != nil {
				return err
			}
			scriptItems = append(scriptItems, items...)
		}

		err = view.connectTransaction(tx, node.height, isCoinBase, stxos)
		if err != nil {
			return err
		}
	}

	// The total output values of the coinbase transaction must not exceed
	// the expected subsidy value plus the total transaction fees gained
	// from the transactions in the block.
	var totalAtomsOut int64
	for _, txOut := range block.Transactions[0].TxOut {
		totalAtomsOut += txOut.Value
	}
	expectedAtomsOut := CalcBlockSubsidy(node.height, b.chainParams) +
		totalFees
	if totalAtomsOut > expectedAtomsOut {
		str := fmt.Sprintf("coinbase transaction for block pays %d which "+
			"is more than expected value of %d", totalAtomsOut,
			expectedAtomsOut)
		return ruleError(ErrBadCoinbaseValue, str)
	}

	// Verify the unlocking script of every input against the locking
	// script of the output it spends.  This is done last because it is the
	// most expensive of all the checks.
	err = validateScriptItems(scriptItems, b.verifier, b.parallelVerifyThreshold)
	if err != nil {
		return err
	}

	// Update the best hash for the view to include this block since all of
	// its transactions have been connected.
	view.SetBestHash(&node.hash)
	return nil
}
