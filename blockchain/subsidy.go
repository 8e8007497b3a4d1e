// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/halcyonnet/hcnd/chaincfg"

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  The subsidy starts at the base subsidy defined by the provided
// chain parameters and is halved every SubsidyReductionInterval blocks until
// it reaches zero.
//
// The genesis block has no subsidy.
func CalcBlockSubsidy(height int64, params *chaincfg.Params) int64 {
	if height == 0 {
		return 0
	}
	if params.SubsidyReductionInterval == 0 {
		return params.BaseSubsidy
	}

	// Right shifting by 64 or more is undefined behavior on the amount, and
	// the subsidy is unquestionably zero by then anyway.
	halvings := uint64(height) / uint64(params.SubsidyReductionInterval)
	if halvings >= 64 {
		return 0
	}
	return params.BaseSubsidy >> halvings
}
