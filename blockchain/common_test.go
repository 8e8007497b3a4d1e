// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

// alwaysValidVerifier treats every unlocking script as valid.  It is used by
// the tests which are not concerned with script semantics.
type alwaysValidVerifier struct{}

func (alwaysValidVerifier) VerifyScript(pkScript, sigScript, msg []byte) bool {
	return true
}

// fixedTimeSource returns a caller-controlled time so tests are not coupled
// to the wall clock.
type fixedTimeSource struct {
	now time.Time
}

func (ts *fixedTimeSource) AdjustedTime() time.Time {
	return ts.now
}

// spendableOut represents a transaction output that is available to be spent
// by test transactions.
type spendableOut struct {
	prevOut wire.OutPoint
	amount  int64
}

// makeSpendableOut returns a spendable output for the output at the provided
// index of the given transaction.
func makeSpendableOut(tx *wire.MsgTx, outIdx uint32) spendableOut {
	return spendableOut{
		prevOut: wire.OutPoint{Hash: tx.TxHash(), Index: outIdx},
		amount:  tx.TxOut[outIdx].Value,
	}
}

// testPkScript is the locking script placed on every test output.  The
// verifiers used by the tests do not interpret it.
var testPkScript = []byte{0x51}

// createCoinbaseTx returns a coinbase transaction paying the full subsidy
// plus the provided fees for the given block height.  The height is encoded
// into the signature script so every coinbase has a unique hash.
func createCoinbaseTx(blockHeight int64, fees int64, params *chaincfg.Params) *wire.MsgTx {
	var encodedHeight [8]byte
	binary.LittleEndian.PutUint64(encodedHeight[:], uint64(blockHeight))

	tx := wire.NewMsgTx()
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  encodedHeight[:],
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(CalcBlockSubsidy(blockHeight, params)+fees,
		testPkScript))
	return tx
}

// createSpendTx returns a transaction that spends the provided output and
// pays the provided fee back to the test locking script.
func createSpendTx(out spendableOut, fee int64) *wire.MsgTx {
	tx := wire.NewMsgTx()
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: out.prevOut,
		SignatureScript:  []byte{0x01},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(out.amount-fee, testPkScript))
	return tx
}

// solveBlock attempts to find a nonce which makes the passed block header
// hash to a value less than the target difficulty and sets it on the header.
// It fails the test when no solution is found, which for the simulation
// network parameters used by the tests would indicate a harness bug.
func solveBlock(t *testing.T, header *wire.BlockHeader) {
	t.Helper()

	target := CompactToBig(header.Bits)
	for nonce := uint64(0); nonce <= 1<<24; nonce++ {
		header.Nonce = nonce
		hash := header.BlockHash()
		if HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
	t.Fatal("unable to solve block")
}

// chainHarness houses a chain instance and test state used to build valid
// chains of blocks for the tests.
type chainHarness struct {
	t      *testing.T
	chain  *BlockChain
	params *chaincfg.Params
}

// newChainHarness returns a chain harness backed by an in-memory store using
// the simulation network parameters.
func newChainHarness(t *testing.T) *chainHarness {
	t.Helper()

	params := chaincfg.SimNetParams()
	db, err := kvdb.NewMemStore()
	if err != nil {
		t.Fatalf("unable to create mem store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chain, err := New(&Config{
		DB:          db,
		ChainParams: params,
		Verifier:    alwaysValidVerifier{},
		TimeSource:  &fixedTimeSource{now: time.Now()},
	})
	if err != nil {
		t.Fatalf("unable to create chain: %v", err)
	}
	return &chainHarness{t: t, chain: chain, params: params}
}

// generateBlock builds a solved block on top of the block with the provided
// hash containing a coinbase plus the passed transactions.  The fees
// collected by the passed transactions are credited to the coinbase.
func (h *chainHarness) generateBlock(parentHash chainhash.Hash, fees int64, txns ...*wire.MsgTx) *wire.MsgBlock {
	h.t.Helper()

	parent := h.chain.index.LookupNode(&parentHash)
	if parent == nil {
		h.t.Fatalf("generateBlock: unknown parent %s", parentHash)
	}

	height := parent.height + 1
	blockTxns := make([]*wire.MsgTx, 0, len(txns)+1)
	blockTxns = append(blockTxns, createCoinbaseTx(height, fees, h.params))
	blockTxns = append(blockTxns, txns...)

	header := &wire.BlockHeader{
		Version:    1,
		PrevBlock:  parentHash,
		MerkleRoot: CalcTxMerkleRoot(blockTxns),
		Timestamp:  time.Unix(parent.timestamp+1, 0),
		Bits:       h.chain.calcNextRequiredDifficulty(parent),
	}
	solveBlock(h.t, header)

	block := wire.NewMsgBlock(header)
	for _, tx := range blockTxns {
		block.AddTransaction(tx)
	}
	return block
}

// acceptBlock processes the provided block and fails the test unless it is
// accepted to the main chain without error.
func (h *chainHarness) acceptBlock(block *wire.MsgBlock) {
	h.t.Helper()

	isMainChain, isOrphan, err := h.chain.ProcessBlock(block)
	if err != nil {
		h.t.Fatalf("block %s rejected: %v", block.Header.BlockHash(), err)
	}
	if isOrphan {
		h.t.Fatalf("block %s unexpectedly treated as orphan",
			block.Header.BlockHash())
	}
	if !isMainChain {
		h.t.Fatalf("block %s did not extend the main chain",
			block.Header.BlockHash())
	}
}

// acceptSideChainBlock processes the provided block and fails the test
// unless it is accepted without error as a side chain block, meaning it does
// not become part of the main chain.
func (h *chainHarness) acceptSideChainBlock(block *wire.MsgBlock) {
	h.t.Helper()

	isMainChain, isOrphan, err := h.chain.ProcessBlock(block)
	if err != nil {
		h.t.Fatalf("block %s rejected: %v", block.Header.BlockHash(), err)
	}
	if isOrphan {
		h.t.Fatalf("block %s unexpectedly treated as orphan",
			block.Header.BlockHash())
	}
	if isMainChain {
		h.t.Fatalf("block %s unexpectedly extended the main chain",
			block.Header.BlockHash())
	}
}

// extendChain generates and accepts numBlocks empty blocks on top of the
// current best tip and returns the spendable coinbase outputs they created.
func (h *chainHarness) extendChain(numBlocks int) []spendableOut {
	h.t.Helper()

	outs := make([]spendableOut, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		block := h.generateBlock(h.chain.BestSnapshot().Hash, 0)
		h.acceptBlock(block)
		outs = append(outs, makeSpendableOut(block.Transactions[0], 0))
	}
	return outs
}
