// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a Halcyon block can
	// have for the main network.  It is the value 2^224 - 1.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// simNetPowLimit is the highest proof of work value a Halcyon block can
	// have for the simulation network.  It is the value 2^255 - 1.
	simNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

// Checkpoint identifies a known good point in the block chain.  Using
// checkpoints allows a few optimizations for old blocks during initial download
// and also prevents forks from old blocks.
//
// Each checkpoint is selected based upon several factors.  See the
// documentation for blockchain.IsCheckpointCandidate for details on the
// selection criteria.
type Checkpoint struct {
	Height int64
	Hash   chainhash.Hash
}

// Params defines a Halcyon network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses and keys
// for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// RetargetInterval is the number of blocks between full difficulty
	// retargets, where the actual elapsed time of the previous interval is
	// compared against the expected elapsed time.
	RetargetInterval int64

	// WorkDiffWindowSize is the number of recent blocks used by the
	// moving-average difficulty policy that applies between full retarget
	// intervals.
	WorkDiffWindowSize int64

	// RetargetClampFactor is the maximum factor by which the target may be
	// adjusted in a single step by either difficulty policy.  A value of 4
	// means a single adjustment is limited to the range [1/4, 4].
	RetargetClampFactor int64

	// MedianTimeBlocks is the number of previous blocks which should be
	// used to calculate the median time used to validate block timestamps.
	MedianTimeBlocks int

	// MaxTimeOffset is the maximum amount a block timestamp is allowed to
	// be ahead of the current time.
	MaxTimeOffset time.Duration

	// BaseSubsidy is the starting subsidy amount, in atoms, for mined
	// blocks.
	BaseSubsidy int64

	// SubsidyReductionInterval is the number of blocks between subsidy
	// halvings.
	SubsidyReductionInterval int64

	// MaxBlockSize is the maximum allowed serialized size of a block, in
	// bytes.
	MaxBlockSize int

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins can be spent.
	CoinbaseMaturity uint16

	// UtxoCommitmentInterval is the number of blocks between recomputations
	// of the cryptographic commitment over the full utxo set.  Commitments
	// are used for synchronization and audit, not per-block consensus.
	UtxoCommitmentInterval int64

	// MinRelayTxFee is the minimum fee, in atoms per kilobyte, that is
	// required for a transaction to be treated as free for relay purposes.
	MinRelayTxFee int64

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// GenesisBlock is the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the hash of the genesis block header.
	GenesisHash chainhash.Hash
}

// MainNetParams returns the network parameters for the main Halcyon network.
func MainNetParams() *Params {
	genesis := newGenesisBlock(time.Unix(1714521600, 0), 0x1d00ffff)
	return &Params{
		Name:                     "mainnet",
		PowLimit:                 mainPowLimit,
		PowLimitBits:             0x1d00ffff,
		TargetTimePerBlock:       time.Minute * 5,
		RetargetInterval:         288,
		WorkDiffWindowSize:       12,
		RetargetClampFactor:      4,
		MedianTimeBlocks:         11,
		MaxTimeOffset:            time.Hour * 2,
		BaseSubsidy:              3119582664, // ~31.2 coins
		SubsidyReductionInterval: 210240,
		MaxBlockSize:             1000000,
		CoinbaseMaturity:         64,
		UtxoCommitmentInterval:   256,
		MinRelayTxFee:            10000,
		Checkpoints:              nil,
		GenesisBlock:             genesis,
		GenesisHash:              genesis.BlockHash(),
	}
}

// SimNetParams returns the network parameters for the simulation test network.
// This network is similar to the main network in most respects, however, the
// proof of work limit is high enough that blocks can be solved nearly
// instantly, which is useful for testing consensus behavior deterministically.
func SimNetParams() *Params {
	genesis := newGenesisBlock(time.Unix(1714521600, 0), 0x207fffff)
	return &Params{
		Name:                     "simnet",
		PowLimit:                 simNetPowLimit,
		PowLimitBits:             0x207fffff,
		TargetTimePerBlock:       time.Second,
		RetargetInterval:         8,
		WorkDiffWindowSize:       4,
		RetargetClampFactor:      4,
		MedianTimeBlocks:         11,
		MaxTimeOffset:            time.Hour * 2,
		BaseSubsidy:              50000000000,
		SubsidyReductionInterval: 128,
		MaxBlockSize:             1000000,
		CoinbaseMaturity:         16,
		UtxoCommitmentInterval:   8,
		MinRelayTxFee:            10000,
		Checkpoints:              nil,
		GenesisBlock:             genesis,
		GenesisHash:              genesis.BlockHash(),
	}
}
