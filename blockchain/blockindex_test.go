// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/halcyonnet/hcnd/wire"
)

// newTestChainNodes returns a linked chain of the provided length with the
// timestamp of each node offset from the previous one by the provided
// spacing.
func newTestChainNodes(length int, spacing time.Duration) []*blockNode {
	nodes := make([]*blockNode, 0, length)
	var parent *blockNode
	baseTime := time.Unix(1714521600, 0)
	for i := 0; i < length; i++ {
		header := &wire.BlockHeader{
			Version:   1,
			Timestamp: baseTime.Add(time.Duration(i) * spacing),
			Bits:      0x207fffff,
			Nonce:     uint64(i),
		}
		if parent != nil {
			header.PrevBlock = parent.hash
		}
		node := newBlockNode(header, parent)
		nodes = append(nodes, node)
		parent = node
	}
	return nodes
}

// TestAncestor ensures ancestor traversal from any node lands on the node at
// the requested height.
func TestAncestor(t *testing.T) {
	nodes := newTestChainNodes(20, time.Second)
	tip := nodes[len(nodes)-1]

	for height := int64(0); height < int64(len(nodes)); height++ {
		if got := tip.Ancestor(height); got != nodes[height] {
			t.Fatalf("ancestor at height %d: got %v, want %v", height, got,
				nodes[height])
		}
	}

	if got := tip.Ancestor(-1); got != nil {
		t.Fatalf("negative height: got %v, want nil", got)
	}
	if got := tip.Ancestor(tip.height + 1); got != nil {
		t.Fatalf("future height: got %v, want nil", got)
	}
	if got := tip.RelativeAncestor(3); got != nodes[tip.height-3] {
		t.Fatalf("relative ancestor: got %v, want %v", got,
			nodes[tip.height-3])
	}
}

// TestCalcPastMedianTime ensures the median of the recent timestamps is
// computed over the proper window including when fewer blocks than the
// window size exist.
func TestCalcPastMedianTime(t *testing.T) {
	const window = 11
	nodes := newTestChainNodes(30, time.Minute)

	// With a full window the median is the timestamp of the 6th newest
	// block.
	tip := nodes[len(nodes)-1]
	want := nodes[tip.height-window/2].timestamp
	if got := tip.CalcPastMedianTime(window).Unix(); got != want {
		t.Fatalf("full window median: got %d, want %d", got, want)
	}

	// With fewer than window blocks the median covers what exists.
	short := nodes[4]
	want = nodes[2].timestamp
	if got := short.CalcPastMedianTime(window).Unix(); got != want {
		t.Fatalf("short window median: got %d, want %d", got, want)
	}

	// The genesis median is its own timestamp.
	if got := nodes[0].CalcPastMedianTime(window).Unix(); got != nodes[0].timestamp {
		t.Fatalf("genesis median: got %d, want %d", got, nodes[0].timestamp)
	}
}

// TestCumulativeWork ensures each node accumulates the work of its entire
// ancestry.
func TestCumulativeWork(t *testing.T) {
	nodes := newTestChainNodes(5, time.Second)
	perBlock := CalcWork(0x207fffff)

	for i, node := range nodes {
		expected := new(big.Int).Mul(perBlock, big.NewInt(int64(i)+1))
		if node.workSum.Cmp(expected) != 0 {
			t.Fatalf("height %d: work %v, want %v", i, node.workSum, expected)
		}
	}
}

// TestBlockIndexStatusFlags ensures status updates through the index are
// reflected by the query helpers.
func TestBlockIndexStatusFlags(t *testing.T) {
	h := newChainHarness(t)
	block := h.generateBlock(h.chain.BestSnapshot().Hash, 0)
	h.acceptBlock(block)

	hash := block.Header.BlockHash()
	node := h.chain.index.LookupNode(&hash)
	if node == nil {
		t.Fatal("connected block missing from index")
	}

	status := h.chain.index.NodeStatus(node)
	if !status.HaveData() || !status.KnownValid() || status.KnownInvalid() {
		t.Fatalf("unexpected status %v for connected block", status)
	}

	h.chain.index.SetStatusFlags(node, statusValidateFailed)
	if !h.chain.index.NodeStatus(node).KnownInvalid() {
		t.Fatal("validate failed flag not reflected")
	}
	h.chain.index.UnsetStatusFlags(node, statusValidateFailed)
	if h.chain.index.NodeStatus(node).KnownInvalid() {
		t.Fatal("validate failed flag not cleared")
	}
}
