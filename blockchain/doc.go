// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements Halcyon block handling and chain selection rules.

The Halcyon block chain consists of a series of blocks connected by proof of
work.  Each block commits, through the merkle root in its header, to an
ordered list of transactions that move value between unspent transaction
outputs.  This package maintains the authoritative set of those unspent
outputs, validates incoming transactions and blocks against it, and selects
the chain with the most cumulative proof of work as the main chain, including
reorganizing to a side chain when it overtakes the current best one.

# Processing Order

The main entry point is ProcessBlock, which performs the following sequence:

 1. Context-free sanity checks against the block itself: proof of work,
    merkle root, size limits, transaction well-formedness.
 2. Orphan handling: blocks whose parent is not yet known are held aside and
    retried when the parent arrives.
 3. Contextual checks against the parent: required difficulty per the
    retargeting rules, timestamp bounds relative to the median of recent
    ancestors.
 4. Best chain selection: either extend the current tip, store the block on a
    side chain, or reorganize when the side chain accumulates more work.

Block connection removes every spent output from the unspent output set and
inserts every created one as a single atomic batch, capturing an undo record
that makes disconnection an exact inverse.  Reorganizations replay those undo
records back to the fork point and connect the new branch forward, and are
rejected outright when they would disconnect a block at or below the most
recent checkpoint.

# Errors

Errors returned by this package are either rule violations, which indicate a
block or transaction is invalid and carry a kind from ErrorKind wrapped in a
RuleError, or unexpected internal failures such as storage corruption.  Rule
violations never affect chain state.  Undo data corruption is fatal: the chain
marks itself halted and refuses further block processing since continuing
would risk silent divergence of the unspent output set.
*/
package blockchain
