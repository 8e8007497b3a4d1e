// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/halcyonnet/hcnd/blockchain"
)

const (
	// DefaultMaxSizeBytes is the default maximum total size, in bytes, of
	// serialized transactions the pool will hold before evicting the
	// entries with the lowest effective fee rates.
	DefaultMaxSizeBytes = 50 * 1000 * 1000

	// DefaultTxTTL is the default duration a transaction may remain in the
	// pool before it is expired regardless of its fee rate.
	DefaultTxTTL = 14 * 24 * time.Hour

	// DefaultReplacementFeeIncrement is the default minimum amount, in
	// atoms per kilobyte, that a replacement transaction's fee rate must
	// exceed the fee rate of every transaction it replaces.
	DefaultReplacementFeeIncrement = 1000

	// DefaultMaxReplacementEvictions is the default maximum number of pool
	// transactions, counting in-pool descendants of the conflicting
	// entries, that a single replacement is allowed to evict.
	DefaultMaxReplacementEvictions = 100
)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MinRelayTxFee defines the minimum transaction fee in atoms per
	// kilobyte to be considered a non-zero fee.
	MinRelayTxFee int64

	// MaxSizeBytes is the maximum total size of serialized transactions
	// the pool may hold.  Zero selects DefaultMaxSizeBytes.
	MaxSizeBytes int64

	// TxTTL is the duration after which pool entries are expired.  Zero
	// selects DefaultTxTTL.
	TxTTL time.Duration

	// ReplacementFeeIncrement is the minimum amount in atoms per kilobyte
	// by which a replacement's fee rate must exceed the fee rate of every
	// transaction it replaces.  Zero selects
	// DefaultReplacementFeeIncrement.
	ReplacementFeeIncrement int64

	// MaxReplacementEvictions is the maximum number of existing pool
	// transactions a single replacement may evict.  Zero selects
	// DefaultMaxReplacementEvictions.
	MaxReplacementEvictions int
}

// calcFeeRate returns the fee rate in atoms per kilobyte for the provided
// absolute fee and serialized size.
func calcFeeRate(fee, serializedSize int64) int64 {
	if serializedSize == 0 {
		return 0
	}
	return fee * 1000 / serializedSize
}

// calcMinRequiredTxRelayFee returns the minimum transaction fee required for
// a transaction with the passed serialized size to be accepted into the
// mempool.
func calcMinRequiredTxRelayFee(serializedSize int64, minRelayTxFee int64) int64 {
	// Calculate the minimum fee for a transaction to be allowed into the
	// mempool and relayed by scaling the base fee.  minRelayTxFee is in
	// atoms/KB, so multiply by serializedSize (which is in bytes) and
	// divide by 1000 to get minimum atoms.
	minFee := serializedSize * minRelayTxFee / 1000
	if minFee == 0 && minRelayTxFee > 0 {
		minFee = minRelayTxFee
	}

	// Set the minimum fee to the maximum possible value if the calculated
	// fee is not in the valid range for monetary amounts.
	if minFee < 0 || minFee > blockchain.MaxAtoms {
		minFee = blockchain.MaxAtoms
	}
	return minFee
}
