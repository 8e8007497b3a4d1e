// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/kvdb"
	"github.com/halcyonnet/hcnd/wire"
)

// TestGenesisInitialization ensures a freshly created chain is anchored at
// the genesis block with the expected state.
func TestGenesisInitialization(t *testing.T) {
	h := newChainHarness(t)
	params := h.params

	best := h.chain.BestSnapshot()
	if best.Hash != params.GenesisHash {
		t.Fatalf("best hash: got %s, want %s", best.Hash, params.GenesisHash)
	}
	if best.Height != 0 {
		t.Fatalf("best height: got %d, want 0", best.Height)
	}
	if best.TotalTxns != 1 {
		t.Fatalf("total txns: got %d, want 1", best.TotalTxns)
	}
	if !h.chain.HaveBlock(&params.GenesisHash) {
		t.Fatal("genesis block not known")
	}

	hash, err := h.chain.BlockHashByHeight(0)
	if err != nil {
		t.Fatalf("BlockHashByHeight: %v", err)
	}
	if *hash != params.GenesisHash {
		t.Fatalf("hash by height 0: got %s, want %s", hash, params.GenesisHash)
	}

	// The genesis coinbase output must be present in the utxo set.
	genesisTx := params.GenesisBlock.Transactions[0]
	entry, err := h.chain.FetchUtxoEntry(wire.OutPoint{Hash: genesisTx.TxHash()})
	if err != nil {
		t.Fatalf("FetchUtxoEntry: %v", err)
	}
	if entry == nil || !entry.IsCoinBase() || entry.BlockHeight() != 0 {
		t.Fatalf("unexpected genesis utxo entry: %+v", entry)
	}
}

// TestChainReload ensures a chain loaded from an existing store resumes at
// the same tip it was shut down with.
func TestChainReload(t *testing.T) {
	params := chaincfg.SimNetParams()
	db, err := kvdb.NewMemStore()
	if err != nil {
		t.Fatalf("unable to create mem store: %v", err)
	}
	defer db.Close()

	newChain := func() *BlockChain {
		chain, err := New(&Config{
			DB:          db,
			ChainParams: params,
			Verifier:    alwaysValidVerifier{},
			TimeSource:  NewSystemTimeSource(),
		})
		if err != nil {
			t.Fatalf("unable to create chain: %v", err)
		}
		return chain
	}

	h := &chainHarness{t: t, chain: newChain(), params: params}
	h.extendChain(5)
	wantBest := h.chain.BestSnapshot()

	reloaded := newChain()
	gotBest := reloaded.BestSnapshot()
	if gotBest.Hash != wantBest.Hash || gotBest.Height != wantBest.Height ||
		gotBest.TotalTxns != wantBest.TotalTxns {

		t.Fatalf("reloaded state mismatch: got %s height %d, want %s "+
			"height %d", gotBest.Hash, gotBest.Height, wantBest.Hash,
			wantBest.Height)
	}
	if gotBest.TotalWork.Cmp(wantBest.TotalWork) != 0 {
		t.Fatalf("reloaded work mismatch: got %v, want %v", gotBest.TotalWork,
			wantBest.TotalWork)
	}
}

// TestExtendMainChain ensures connecting sequential blocks updates the best
// state, the height index, and the utxo set and emits the expected
// notifications.
func TestExtendMainChain(t *testing.T) {
	var connected []int64
	h := newChainHarness(t)
	h.chain.notifications = func(n *Notification) {
		if n.Type == NTBlockConnected {
			data := n.Data.(*BlockConnectedNtfnsData)
			connected = append(connected, data.Height)
		}
	}

	maturity := int(h.params.CoinbaseMaturity)
	outs := h.extendChain(maturity + 1)

	// Spend the first mature coinbase output.
	spend := createSpendTx(outs[0], 1000)
	block := h.generateBlock(h.chain.BestSnapshot().Hash, 1000, spend)
	h.acceptBlock(block)

	best := h.chain.BestSnapshot()
	if best.Height != int64(maturity)+2 {
		t.Fatalf("best height: got %d, want %d", best.Height, maturity+2)
	}
	if best.Hash != block.Header.BlockHash() {
		t.Fatalf("best hash: got %s, want %s", best.Hash,
			block.Header.BlockHash())
	}

	// The spent output is gone and the new output exists.
	if entry, _ := h.chain.FetchUtxoEntry(outs[0].prevOut); entry != nil {
		t.Fatal("spent output still in utxo set")
	}
	newOut := makeSpendableOut(spend, 0)
	entry, err := h.chain.FetchUtxoEntry(newOut.prevOut)
	if err != nil {
		t.Fatalf("FetchUtxoEntry: %v", err)
	}
	if entry == nil || entry.Amount() != newOut.amount {
		t.Fatalf("new output missing from utxo set: %+v", entry)
	}

	// One connect notification per accepted block, in order.
	if len(connected) != maturity+2 {
		t.Fatalf("connect notifications: got %d, want %d", len(connected),
			maturity+2)
	}
	for i, height := range connected {
		if height != int64(i)+1 {
			t.Fatalf("notification %d: got height %d, want %d", i, height,
				i+1)
		}
	}
}

// TestDuplicateBlock ensures processing a block that is already known fails
// with the expected error.
func TestDuplicateBlock(t *testing.T) {
	h := newChainHarness(t)

	block := h.generateBlock(h.chain.BestSnapshot().Hash, 0)
	h.acceptBlock(block)

	_, _, err := h.chain.ProcessBlock(block)
	if !errors.Is(err, ErrDuplicateBlock) {
		t.Fatalf("duplicate block: got %v, want kind %v", err,
			ErrDuplicateBlock)
	}
}

// TestOrphanHandling ensures blocks with an unknown parent are held as
// orphans and adopted once their parent arrives.
func TestOrphanHandling(t *testing.T) {
	h := newChainHarness(t)

	parent := h.generateBlock(h.chain.BestSnapshot().Hash, 0)
	parentHash := parent.Header.BlockHash()

	// Build the child without processing the parent.  The harness needs
	// the parent in the index to generate on top of it, so accept it,
	// capture the child, and then rebuild a fresh chain for the actual
	// orphan test.
	h.acceptBlock(parent)
	child := h.generateBlock(parentHash, 0)
	childHash := child.Header.BlockHash()

	h2 := newChainHarness(t)
	isMainChain, isOrphan, err := h2.chain.ProcessBlock(child)
	if err != nil {
		t.Fatalf("process orphan: %v", err)
	}
	if isMainChain || !isOrphan {
		t.Fatalf("orphan flags: got main %v orphan %v, want false true",
			isMainChain, isOrphan)
	}
	if !h2.chain.IsKnownOrphan(&childHash) {
		t.Fatal("child not tracked as orphan")
	}

	// Processing the same orphan again is an error.
	if _, _, err := h2.chain.ProcessBlock(child); !errors.Is(err, ErrDuplicateBlock) {
		t.Fatalf("duplicate orphan: got %v, want kind %v", err,
			ErrDuplicateBlock)
	}

	// Once the parent arrives both blocks join the main chain.
	h2.acceptBlock(parent)
	best := h2.chain.BestSnapshot()
	if best.Hash != childHash {
		t.Fatalf("best hash after orphan adoption: got %s, want %s",
			best.Hash, childHash)
	}
	if best.Height != 2 {
		t.Fatalf("best height after orphan adoption: got %d, want 2",
			best.Height)
	}
	if h2.chain.IsKnownOrphan(&childHash) {
		t.Fatal("adopted block still tracked as orphan")
	}
}

// TestSideChainAndReorg ensures a side chain with less cumulative work is
// tracked without becoming the main chain and that extending it past the
// main chain triggers a reorganization that moves the utxo set and best
// state to the new branch.
func TestSideChainAndReorg(t *testing.T) {
	var reorgs []*ReorganizationNtfnsData
	h := newChainHarness(t)
	h.chain.notifications = func(n *Notification) {
		if n.Type == NTReorganization {
			reorgs = append(reorgs, n.Data.(*ReorganizationNtfnsData))
		}
	}

	maturity := int(h.params.CoinbaseMaturity)
	outs := h.extendChain(maturity + 1)
	forkPoint := h.chain.BestSnapshot()

	// Extend the main chain by one block which spends a mature output.
	mainSpend := createSpendTx(outs[0], 1000)
	mainBlock := h.generateBlock(forkPoint.Hash, 1000, mainSpend)
	h.acceptBlock(mainBlock)
	mainTip := h.chain.BestSnapshot()

	// Build a competing block at the same height.  Equal work does not
	// displace the current tip.
	sideSpend := createSpendTx(outs[1], 2000)
	sideBlock1 := h.generateBlock(forkPoint.Hash, 2000, sideSpend)
	h.acceptSideChainBlock(sideBlock1)
	if best := h.chain.BestSnapshot(); best.Hash != mainTip.Hash {
		t.Fatalf("tip moved on equal work: got %s, want %s", best.Hash,
			mainTip.Hash)
	}

	// Extending the side chain gives it more cumulative work and forces a
	// reorganization.
	sideBlock2 := h.generateBlock(sideBlock1.Header.BlockHash(), 0)
	h.acceptBlock(sideBlock2)

	best := h.chain.BestSnapshot()
	if best.Hash != sideBlock2.Header.BlockHash() {
		t.Fatalf("reorg tip: got %s, want %s", best.Hash,
			sideBlock2.Header.BlockHash())
	}
	if best.Height != forkPoint.Height+2 {
		t.Fatalf("reorg height: got %d, want %d", best.Height,
			forkPoint.Height+2)
	}

	// The main chain block's spend was rolled back and the side chain
	// spend applied.
	if entry, _ := h.chain.FetchUtxoEntry(outs[0].prevOut); entry == nil {
		t.Fatal("output spent by disconnected block not restored")
	}
	if entry, _ := h.chain.FetchUtxoEntry(outs[1].prevOut); entry != nil {
		t.Fatal("output spent by connected side chain block still present")
	}
	mainOut := makeSpendableOut(mainSpend, 0)
	if entry, _ := h.chain.FetchUtxoEntry(mainOut.prevOut); entry != nil {
		t.Fatal("output created by disconnected block still present")
	}
	sideOut := makeSpendableOut(sideSpend, 0)
	if entry, _ := h.chain.FetchUtxoEntry(sideOut.prevOut); entry == nil {
		t.Fatal("output created by side chain block missing")
	}

	// The height index follows the new branch.
	hash, err := h.chain.BlockHashByHeight(forkPoint.Height + 1)
	if err != nil {
		t.Fatalf("BlockHashByHeight: %v", err)
	}
	if *hash != sideBlock1.Header.BlockHash() {
		t.Fatalf("height index: got %s, want %s", hash,
			sideBlock1.Header.BlockHash())
	}

	// Exactly one reorganization notification describing the branch
	// switch.
	if len(reorgs) != 1 {
		t.Fatalf("reorg notifications: got %d, want 1", len(reorgs))
	}
	if reorgs[0].OldHash != mainTip.Hash || reorgs[0].NewHash != sideBlock2.Header.BlockHash() {
		t.Fatalf("reorg notification: got old %s new %s, want old %s new %s",
			reorgs[0].OldHash, reorgs[0].NewHash, mainTip.Hash,
			sideBlock2.Header.BlockHash())
	}
}

// TestReorgSnapshotConsistency ensures a reorganization publishes the best
// state in a single transition and delivers its notifications only after the
// branch switch completes, so no callback or snapshot reader can observe an
// intermediate tip.
func TestReorgSnapshotConsistency(t *testing.T) {
	h := newChainHarness(t)

	maturity := int(h.params.CoinbaseMaturity)
	outs := h.extendChain(maturity + 1)
	forkPoint := h.chain.BestSnapshot()

	mainBlock := h.generateBlock(forkPoint.Hash, 1000, createSpendTx(outs[0], 1000))
	h.acceptBlock(mainBlock)
	sideBlock1 := h.generateBlock(forkPoint.Hash, 2000, createSpendTx(outs[1], 2000))
	h.acceptSideChainBlock(sideBlock1)

	// Record the notification sequence along with the snapshot visible from
	// within each callback once the reorganization starts.
	var types []NotificationType
	var observed []chainhash.Hash
	h.chain.notifications = func(n *Notification) {
		types = append(types, n.Type)
		observed = append(observed, h.chain.BestSnapshot().Hash)
	}

	sideBlock2 := h.generateBlock(sideBlock1.Header.BlockHash(), 0)
	h.acceptBlock(sideBlock2)
	finalTip := sideBlock2.Header.BlockHash()

	wantTypes := []NotificationType{NTReorganization, NTBlockDisconnected,
		NTBlockConnected, NTBlockConnected}
	if len(types) != len(wantTypes) {
		t.Fatalf("notification count: got %d, want %d", len(types),
			len(wantTypes))
	}
	for i, typ := range wantTypes {
		if types[i] != typ {
			t.Fatalf("notification %d: got %v, want %v", i, types[i], typ)
		}
	}

	// Every callback already saw the final tip.
	for i, hash := range observed {
		if hash != finalTip {
			t.Fatalf("notification %d observed tip %s, want %s", i, hash,
				finalTip)
		}
	}
}

// TestInvalidBlockRejection ensures a block that fails contextual validation
// is rejected and does not change the best chain.
func TestInvalidBlockRejection(t *testing.T) {
	h := newChainHarness(t)
	outs := h.extendChain(1)
	tipBefore := h.chain.BestSnapshot()

	// Spends an immature coinbase output.
	spend := createSpendTx(outs[0], 1000)
	block := h.generateBlock(tipBefore.Hash, 1000, spend)
	_, _, err := h.chain.ProcessBlock(block)
	if !errors.Is(err, ErrImmatureSpend) {
		t.Fatalf("immature spend block: got %v, want kind %v", err,
			ErrImmatureSpend)
	}
	if best := h.chain.BestSnapshot(); best.Hash != tipBefore.Hash {
		t.Fatal("best chain changed after invalid block")
	}

	// The failing block is marked invalid in the index.
	blockHash := block.Header.BlockHash()
	node := h.chain.index.LookupNode(&blockHash)
	if node == nil {
		t.Fatal("rejected block missing from index")
	}
	if !h.chain.index.NodeStatus(node).KnownInvalid() {
		t.Fatal("rejected block not marked invalid")
	}
}

// TestCheckpointReorgGuard ensures a reorganization that would rewind below
// the latest checkpoint is refused.
func TestCheckpointReorgGuard(t *testing.T) {
	h := newChainHarness(t)

	// Build the main chain and install a checkpoint at a height the chain
	// has not reached yet so reorganizations below it are refused without
	// any individual block colliding with the checkpoint height.
	h.extendChain(3)
	forkRoot := h.chain.BestSnapshot()
	h.extendChain(2)
	tip := h.chain.BestSnapshot()
	var futureHash chainhash.Hash
	futureHash[0] = 0x99
	h.params.Checkpoints = []chaincfg.Checkpoint{{
		Height: tip.Height + 10,
		Hash:   futureHash,
	}}

	// A side chain branching below the checkpoint height is tracked, but
	// extending it so it would displace the current chain fails.  The first
	// side block's timestamp is offset so the branch does not reproduce the
	// deterministic main chain block already connected on top of forkRoot.
	side1 := h.generateBlock(forkRoot.Hash, 0)
	side1.Header.Timestamp = side1.Header.Timestamp.Add(time.Second)
	solveBlock(t, &side1.Header)
	h.acceptSideChainBlock(side1)
	side2 := h.generateBlock(side1.Header.BlockHash(), 0)
	h.acceptSideChainBlock(side2)
	side3 := h.generateBlock(side2.Header.BlockHash(), 0)
	_, _, err := h.chain.ProcessBlock(side3)
	if !errors.Is(err, ErrForkTooOld) {
		t.Fatalf("deep fork: got %v, want kind %v", err, ErrForkTooOld)
	}
	if best := h.chain.BestSnapshot(); best.Hash != tip.Hash {
		t.Fatal("protected chain was displaced")
	}
}

// TestCheckpointMismatch ensures a block at a checkpoint height whose hash
// does not match the checkpoint is rejected.
func TestCheckpointMismatch(t *testing.T) {
	h := newChainHarness(t)

	h.extendChain(2)
	tip := h.chain.BestSnapshot()
	var wrongHash chainhash.Hash
	wrongHash[0] = 0x77
	h.params.Checkpoints = []chaincfg.Checkpoint{{
		Height: tip.Height + 1,
		Hash:   wrongHash,
	}}

	block := h.generateBlock(tip.Hash, 0)
	_, _, err := h.chain.ProcessBlock(block)
	if !errors.Is(err, ErrBadCheckpoint) {
		t.Fatalf("checkpoint mismatch: got %v, want kind %v", err,
			ErrBadCheckpoint)
	}

	// A block matching the checkpoint is accepted.
	h.params.Checkpoints[0].Hash = block.Header.BlockHash()
	h.acceptBlock(block)
}

// TestUtxoCommitmentInterval ensures a utxo commitment is computed when the
// chain height crosses the commitment interval.
func TestUtxoCommitmentInterval(t *testing.T) {
	h := newChainHarness(t)
	interval := h.params.UtxoCommitmentInterval

	if c := h.chain.LatestUtxoCommitment(); c != nil {
		t.Fatalf("unexpected commitment before interval: %+v", c)
	}

	h.extendChain(int(interval))
	commitment := h.chain.LatestUtxoCommitment()
	if commitment == nil {
		t.Fatal("no commitment after crossing the interval")
	}
	if commitment.Height != interval {
		t.Fatalf("commitment height: got %d, want %d", commitment.Height,
			interval)
	}

	// One utxo per coinbase plus the genesis output.
	if commitment.NumEntries != uint64(interval)+1 {
		t.Fatalf("commitment entries: got %d, want %d",
			commitment.NumEntries, interval+1)
	}
	if commitment.Root == (chainhash.Hash{}) {
		t.Fatal("commitment root is the zero hash")
	}
}
