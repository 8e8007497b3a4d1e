// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/halcyonnet/hcnd/chaincfg"
)

// TestCalcBlockSubsidy ensures the block subsidy halves on the reduction
// interval and eventually reaches zero.
func TestCalcBlockSubsidy(t *testing.T) {
	params := chaincfg.SimNetParams()
	interval := params.SubsidyReductionInterval
	base := params.BaseSubsidy

	tests := []struct {
		name   string
		height int64
		want   int64
	}{
		{name: "genesis", height: 0, want: 0},
		{name: "first block", height: 1, want: base},
		{name: "end of first interval", height: interval - 1, want: base},
		{name: "first halving", height: interval, want: base / 2},
		{name: "second halving", height: interval * 2, want: base / 4},
		{name: "tenth halving", height: interval * 10, want: base >> 10},
		{name: "64th halving", height: interval * 64, want: 0},
		{name: "well past exhaustion", height: interval * 100, want: 0},
	}

	for _, test := range tests {
		got := CalcBlockSubsidy(test.height, params)
		if got != test.want {
			t.Errorf("%s: got %d, want %d", test.name, got, test.want)
		}
	}

	// A zero reduction interval disables halving entirely.
	noHalving := *params
	noHalving.SubsidyReductionInterval = 0
	if got := CalcBlockSubsidy(1000000, &noHalving); got != base {
		t.Errorf("no halving: got %d, want %d", got, base)
	}
}
