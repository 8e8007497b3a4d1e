// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

// newTestUtxoSet returns a utxo set backed by an in-memory store.
func newTestUtxoSet(t *testing.T) *UtxoSet {
	t.Helper()

	db, err := kvdb.NewMemStore()
	if err != nil {
		t.Fatalf("unable to create mem store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUtxoSet(db, 100)
}

// newTestBlock returns a minimal solved block at the provided height with a
// coinbase paying the given fees plus the passed transactions.  The block is
// not connected to any chain instance, so it is only suitable for exercising
// the utxo set directly.
func newTestBlock(height int64, fees int64, params *chaincfg.Params, txns ...*wire.MsgTx) *wire.MsgBlock {
	blockTxns := make([]*wire.MsgTx, 0, len(txns)+1)
	blockTxns = append(blockTxns, createCoinbaseTx(height, fees, params))
	blockTxns = append(blockTxns, txns...)

	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    1,
		MerkleRoot: CalcTxMerkleRoot(blockTxns),
		Timestamp:  time.Unix(1714521600+height, 0),
		Bits:       params.PowLimitBits,
	})
	for _, tx := range blockTxns {
		block.AddTransaction(tx)
	}
	return block
}

// TestUtxoSetApplyUndo ensures applying a block and then undoing it restores
// the utxo set to a byte-identical state, verified through the set
// commitment.
func TestUtxoSetApplyUndo(t *testing.T) {
	params := chaincfg.SimNetParams()
	s := newTestUtxoSet(t)

	// Seed the set with a block that only creates outputs.
	seed := newTestBlock(1, 0, params)
	seedRecord, err := s.ApplyBlock(seed, 1)
	if err != nil {
		t.Fatalf("apply seed block: %v", err)
	}
	if len(seedRecord.SpentEntries) != 0 {
		t.Fatalf("seed block spent entries: got %d, want 0",
			len(seedRecord.SpentEntries))
	}
	coinbaseOut := makeSpendableOut(seed.Transactions[0], 0)

	before, err := s.Commitment(1)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if before.NumEntries != 1 {
		t.Fatalf("seed commitment entries: got %d, want 1", before.NumEntries)
	}
	if before.TotalValue != coinbaseOut.amount {
		t.Fatalf("seed commitment value: got %d, want %d", before.TotalValue,
			coinbaseOut.amount)
	}

	// Apply a block that spends the seeded output and creates a chain of
	// outputs within the block itself.
	spend := createSpendTx(coinbaseOut, 1000)
	chained := createSpendTx(makeSpendableOut(spend, 0), 1000)
	block := newTestBlock(2, 2000, params, spend, chained)
	record, err := s.ApplyBlock(block, 2)
	if err != nil {
		t.Fatalf("apply block: %v", err)
	}

	// The intermediate output was created and spent inside the block, so
	// it must show up both in the spent entries and the created outpoints
	// and be absent from the set.
	interOut := makeSpendableOut(spend, 0)
	if have, _ := s.HaveUtxo(interOut.prevOut); have {
		t.Fatal("intermediate output unexpectedly present after apply")
	}
	foundSpent := false
	for i := range record.SpentEntries {
		if record.SpentEntries[i].PrevOut == interOut.prevOut {
			foundSpent = true
		}
	}
	foundCreated := false
	for _, outpoint := range record.CreatedOutPoints {
		if outpoint == interOut.prevOut {
			foundCreated = true
		}
	}
	if !foundSpent || !foundCreated {
		t.Fatalf("intermediate output not fully recorded in undo data: "+
			"spent %v, created %v\n%s", foundSpent, foundCreated,
			spew.Sdump(record))
	}

	// The seeded coinbase output is now spent and the terminal output of
	// the in-block chain exists.
	if have, _ := s.HaveUtxo(coinbaseOut.prevOut); have {
		t.Fatal("spent coinbase output still present")
	}
	finalOut := makeSpendableOut(chained, 0)
	entry, err := s.FetchEntry(finalOut.prevOut)
	if err != nil {
		t.Fatalf("fetch final output: %v", err)
	}
	if entry == nil || entry.Amount() != finalOut.amount {
		t.Fatalf("final output entry mismatch: %s", spew.Sdump(entry))
	}

	// The stored undo record must match the returned one.
	stored, err := s.FetchUndoRecord(&record.BlockHash)
	if err != nil {
		t.Fatalf("fetch undo record: %v", err)
	}
	if len(stored.SpentEntries) != len(record.SpentEntries) ||
		len(stored.CreatedOutPoints) != len(record.CreatedOutPoints) ||
		stored.Height != record.Height {

		t.Fatalf("stored undo record mismatch:\ngot %s\nwant %s",
			spew.Sdump(stored), spew.Sdump(record))
	}

	// Undo the block and ensure the commitment is byte-identical to the
	// state before the block was applied.
	if err := s.UndoBlock(record); err != nil {
		t.Fatalf("undo block: %v", err)
	}
	after, err := s.Commitment(1)
	if err != nil {
		t.Fatalf("commitment after undo: %v", err)
	}
	if after.Root != before.Root || after.NumEntries != before.NumEntries ||
		after.TotalValue != before.TotalValue {

		t.Fatalf("undo did not restore the set:\nbefore %s\nafter %s",
			spew.Sdump(before), spew.Sdump(after))
	}

	// The undo record is gone.
	if _, err := s.FetchUndoRecord(&record.BlockHash); !errors.Is(err, ErrNoUndoData) {
		t.Fatalf("fetch removed undo record: got %v, want kind %v", err,
			ErrNoUndoData)
	}

	// The coinbase output is restored with identical data, including its
	// coinbase flag and confirmation height.
	entry, err = s.FetchEntry(coinbaseOut.prevOut)
	if err != nil {
		t.Fatalf("fetch restored output: %v", err)
	}
	if entry == nil || !entry.IsCoinBase() || entry.BlockHeight() != 1 ||
		entry.Amount() != coinbaseOut.amount {

		t.Fatalf("restored entry mismatch: %s", spew.Sdump(entry))
	}
}

// TestUtxoSetMissingInput ensures a block that references a nonexistent
// output is rejected without modifying the set.
func TestUtxoSetMissingInput(t *testing.T) {
	params := chaincfg.SimNetParams()
	s := newTestUtxoSet(t)

	seed := newTestBlock(1, 0, params)
	if _, err := s.ApplyBlock(seed, 1); err != nil {
		t.Fatalf("apply seed block: %v", err)
	}
	before, err := s.Commitment(1)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}

	missing := spendableOut{
		prevOut: wire.OutPoint{Index: 7},
		amount:  100000,
	}
	block := newTestBlock(2, 0, params, createSpendTx(missing, 1000))
	if _, err := s.ApplyBlock(block, 2); !errors.Is(err, ErrMissingTxOut) {
		t.Fatalf("apply with missing input: got %v, want kind %v", err,
			ErrMissingTxOut)
	}

	// Nothing changed.
	after, err := s.Commitment(1)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if after.Root != before.Root || after.NumEntries != before.NumEntries {
		t.Fatal("failed apply modified the set")
	}
}

// TestUtxoSetDoubleSpendWithinBlock ensures a block that spends the same
// output twice is rejected.
func TestUtxoSetDoubleSpendWithinBlock(t *testing.T) {
	params := chaincfg.SimNetParams()
	s := newTestUtxoSet(t)

	seed := newTestBlock(1, 0, params)
	if _, err := s.ApplyBlock(seed, 1); err != nil {
		t.Fatalf("apply seed block: %v", err)
	}
	out := makeSpendableOut(seed.Transactions[0], 0)

	spend1 := createSpendTx(out, 1000)
	spend2 := createSpendTx(out, 2000)
	block := newTestBlock(2, 3000, params, spend1, spend2)
	if _, err := s.ApplyBlock(block, 2); !errors.Is(err, ErrDoubleSpend) {
		t.Fatalf("apply with double spend: got %v, want kind %v", err,
			ErrDoubleSpend)
	}
}

// TestPruneUndoRecords ensures undo records strictly below the prune height
// are removed while later ones are kept.
func TestPruneUndoRecords(t *testing.T) {
	params := chaincfg.SimNetParams()
	s := newTestUtxoSet(t)

	var hashes []*wire.MsgBlock
	for height := int64(1); height <= 5; height++ {
		block := newTestBlock(height, 0, params)
		if _, err := s.ApplyBlock(block, height); err != nil {
			t.Fatalf("apply block %d: %v", height, err)
		}
		hashes = append(hashes, block)
	}

	removed, err := s.PruneUndoRecords(4)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("pruned records: got %d, want 3", removed)
	}

	for i, block := range hashes {
		height := int64(i + 1)
		hash := block.Header.BlockHash()
		_, err := s.FetchUndoRecord(&hash)
		if height < 4 && !errors.Is(err, ErrNoUndoData) {
			t.Errorf("height %d: record not pruned: %v", height, err)
		}
		if height >= 4 && err != nil {
			t.Errorf("height %d: record unexpectedly pruned: %v", height, err)
		}
	}
}
