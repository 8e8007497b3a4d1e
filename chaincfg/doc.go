// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters.
//
// In addition to the main Halcyon network, which is intended for the transfer
// of monetary value, there is a simulation network which is useful for testing
// consensus behavior under full control of the block generation schedule.
//
// Rather than requiring every consumer to hardcode network specifics, callers
// obtain a Params instance from one of the constructors in this package and
// thread it through to the consensus packages.
package chaincfg
