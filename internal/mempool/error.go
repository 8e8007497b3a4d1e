// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"

	"github.com/halcyonnet/hcnd/blockchain"
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrInvalid indicates a transaction failed one of the consensus
	// validation rules.  The underlying error will be a
	// blockchain.RuleError with the specific reason.
	ErrInvalid = ErrorKind("ErrInvalid")

	// ErrOrphanPolicy indicates a transaction references an output that is
	// not known to either the unspent output set or the pool.
	ErrOrphanPolicy = ErrorKind("ErrOrphanPolicy")

	// ErrDuplicate indicates a transaction already exists in the pool.
	ErrDuplicate = ErrorKind("ErrDuplicate")

	// ErrCoinbase indicates a coinbase transaction was submitted, which is
	// never valid outside of a block.
	ErrCoinbase = ErrorKind("ErrCoinbase")

	// ErrNonFinal indicates a transaction is not finalized and therefore
	// cannot be mined in the next block.
	ErrNonFinal = ErrorKind("ErrNonFinal")

	// ErrFeeTooLow indicates a transaction pays a fee rate below the
	// configured relay floor.
	ErrFeeTooLow = ErrorKind("ErrFeeTooLow")

	// ErrDoubleSpend indicates a transaction references an output that has
	// already been spent.
	ErrDoubleSpend = ErrorKind("ErrDoubleSpend")

	// ErrReplacementFeeTooLow indicates a conflicting transaction does not
	// pay enough, either in absolute fee or fee rate, to replace the
	// transactions it conflicts with.
	ErrReplacementFeeTooLow = ErrorKind("ErrReplacementFeeTooLow")

	// ErrReplacementSpend indicates a conflicting transaction spends an
	// output of a transaction it would evict.
	ErrReplacementSpend = ErrorKind("ErrReplacementSpend")

	// ErrTooManyReplacements indicates accepting a conflicting transaction
	// would evict more pool transactions than the policy allows.
	ErrTooManyReplacements = ErrorKind("ErrTooManyReplacements")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a transaction failed due to one of the many validation rules
// or mempool acceptance policies.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
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

// txRuleError creates a RuleError given a set of arguments.
func txRuleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

// wrapChainError wraps an error returned from the consensus validation code
// so the pool's callers deal with a single error space.  Rule violations are
// tagged ErrInvalid while unexpected errors such as storage failures pass
// through unchanged.
func wrapChainError(err error) error {
	var rErr blockchain.RuleError
	if !errors.As(err, &rErr) {
		return err
	}
	return RuleError{Err: ErrInvalid, Description: rErr.Description}
}
