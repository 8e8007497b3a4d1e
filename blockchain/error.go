// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock = ErrorKind("ErrDuplicateBlock")

	// ErrMissingParent indicates the parent of a block is not known, so
	// the block is an orphan.
	ErrMissingParent = ErrorKind("ErrMissingParent")

	// ErrInvalidAncestorBlock indicates an ancestor of the block is known
	// to be invalid, which makes the block itself invalid.
	ErrInvalidAncestorBlock = ErrorKind("ErrInvalidAncestorBlock")

	// ErrBlockTooBig indicates the serialized block size exceeds the
	// maximum allowed size.
	ErrBlockTooBig = ErrorKind("ErrBlockTooBig")

	// ErrInvalidTime indicates the time in the passed block has a precision
	// that is more than one second.  The chain consensus rules require
	// timestamps to have a maximum precision of one second.
	ErrInvalidTime = ErrorKind("ErrInvalidTime")

	// ErrTimeTooOld indicates the time is either before the median time of
	// the last several blocks per the chain consensus rules.
	ErrTimeTooOld = ErrorKind("ErrTimeTooOld")

	// ErrTimeTooNew indicates the time is too far in the future as compared
	// to the current time.
	ErrTimeTooNew = ErrorKind("ErrTimeTooNew")

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty rules or it is out of the valid range.
	ErrUnexpectedDifficulty = ErrorKind("ErrUnexpectedDifficulty")

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficulty.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")

	// ErrBadCheckpoint indicates a block that is expected to be at a
	// checkpoint height does not match the expected checkpoint hash.
	ErrBadCheckpoint = ErrorKind("ErrBadCheckpoint")

	// ErrForkTooOld indicates a block is attempting to fork the block chain
	// at or before the most recent checkpoint.
	ErrForkTooOld = ErrorKind("ErrForkTooOld")

	// ErrNoTransactions indicates the block does not have at least one
	// transaction.  A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions = ErrorKind("ErrNoTransactions")

	// ErrNoTxInputs indicates a transaction does not have any inputs.  A
	// valid transaction must have at least one input.
	ErrNoTxInputs = ErrorKind("ErrNoTxInputs")

	// ErrNoTxOutputs indicates a transaction does not have any outputs.  A
	// valid transaction must have at least one output.
	ErrNoTxOutputs = ErrorKind("ErrNoTxOutputs")

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed size
	// when serialized.
	ErrTxTooBig = ErrorKind("ErrTxTooBig")

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way such as being out of range.
	ErrBadTxOutValue = ErrorKind("ErrBadTxOutValue")

	// ErrDuplicateTxInputs indicates a transaction references the same
	// input more than once.
	ErrDuplicateTxInputs = ErrorKind("ErrDuplicateTxInputs")

	// ErrBadTxInput indicates a transaction input is invalid in some way
	// such as referencing a previous transaction outpoint which is out of
	// range or not referencing one at all.
	ErrBadTxInput = ErrorKind("ErrBadTxInput")

	// ErrMissingTxOut indicates a transaction references an output which
	// does not exist in the unspent output set.
	ErrMissingTxOut = ErrorKind("ErrMissingTxOut")

	// ErrDoubleSpend indicates a transaction attempts to spend an output
	// that has already been consumed, either by an earlier transaction in
	// the same block or by an already connected one.
	ErrDoubleSpend = ErrorKind("ErrDoubleSpend")

	// ErrUnfinalizedTx indicates a transaction has not been finalized per
	// its lock time relative to the block height or time it is being
	// included in.
	ErrUnfinalizedTx = ErrorKind("ErrUnfinalizedTx")

	// ErrImmatureSpend indicates a transaction is attempting to spend a
	// coinbase output that has not yet reached the required maturity.
	ErrImmatureSpend = ErrorKind("ErrImmatureSpend")

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh = ErrorKind("ErrSpendTooHigh")

	// ErrBadFees indicates the total fees for a block are invalid due to
	// exceeding the maximum possible value.
	ErrBadFees = ErrorKind("ErrBadFees")

	// ErrFirstTxNotCoinbase indicates the first transaction in a block is
	// not a coinbase transaction.
	ErrFirstTxNotCoinbase = ErrorKind("ErrFirstTxNotCoinbase")

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases = ErrorKind("ErrMultipleCoinbases")

	// ErrBadCoinbaseValue indicates the amount a coinbase pays does not
	// match the expected value of the subsidy plus the sum of all fees.
	ErrBadCoinbaseValue = ErrorKind("ErrBadCoinbaseValue")

	// ErrScriptValidation indicates the result of executing a transaction
	// unlocking proof against its locking condition failed.
	ErrScriptValidation = ErrorKind("ErrScriptValidation")

	// ErrKnownInvalidBlock indicates a block is already known to be
	// invalid.
	ErrKnownInvalidBlock = ErrorKind("ErrKnownInvalidBlock")

	// ErrNoUndoData indicates the undo record required to disconnect a
	// block is not available.
	ErrNoUndoData = ErrorKind("ErrNoUndoData")

	// ErrUndoDataCorrupt indicates the undo record for a block failed to
	// deserialize or does not reproduce the state that existed prior to
	// the corresponding connection.  This is fatal since it indicates
	// storage corruption.
	ErrUndoDataCorrupt = ErrorKind("ErrUndoDataCorrupt")

	// ErrUtxoDataCorrupt indicates a serialized unspent output entry in
	// the backing store failed to deserialize.  This is fatal since it
	// indicates storage corruption.
	ErrUtxoDataCorrupt = ErrorKind("ErrUtxoDataCorrupt")

	// ErrChainHalted indicates block processing has been permanently
	// stopped due to a previous fatal error such as storage corruption.
	ErrChainHalted = ErrorKind("ErrChainHalted")

	// ErrUnknownBlock indicates a block hash that is not known to the
	// block index was referenced.
	ErrUnknownBlock = ErrorKind("ErrUnknownBlock")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules.  It has full support for errors.Is and errors.As, so the
// caller can ascertain the specific reason for the error by checking the
// underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

// unknownBlockError creates a RuleError that indicates the provided block
// hash does not exist in the block index.
func unknownBlockError(hash *chainhash.Hash) RuleError {
	str := fmt.Sprintf("block %s is not known", hash)
	return ruleError(ErrUnknownBlock, str)
}
