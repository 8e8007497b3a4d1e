// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/halcyonnet/hcnd/chaincfg"
	"github.com/halcyonnet/hcnd/wire"
)

// countingVerifier records how many verifications were performed and rejects
// inputs whose unlocking script matches the configured bytes.
type countingVerifier struct {
	calls  atomic.Int64
	reject []byte
}

func (v *countingVerifier) VerifyScript(pkScript, sigScript, msg []byte) bool {
	v.calls.Add(1)
	return !bytes.Equal(sigScript, v.reject)
}

// buildScriptItems returns validation items for the provided number of
// inputs, each spending a distinct output tracked by the returned view.
func buildScriptItems(t *testing.T, numInputs int) ([]*txValidateItem, *wire.MsgTx, *UtxoViewpoint) {
	t.Helper()

	params := chaincfg.SimNetParams()
	view := NewUtxoViewpoint()
	tx := wire.NewMsgTx()
	for i := 0; i < numInputs; i++ {
		funding := createCoinbaseTx(int64(i)+1, 0, params)
		view.AddTxOuts(funding, int64(i)+1, false)
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: funding.TxHash()},
			SignatureScript:  []byte{0x01, byte(i)},
			Sequence:         wire.MaxTxInSequenceNum,
		})
	}
	tx.AddTxOut(wire.NewTxOut(1000, testPkScript))

	items, err := txScriptItems(tx, view)
	if err != nil {
		t.Fatalf("txScriptItems: %v", err)
	}
	return items, tx, view
}

// TestValidateScriptItems ensures both the sequential and concurrent
// validation paths verify every input and agree on accept and reject
// outcomes.
func TestValidateScriptItems(t *testing.T) {
	const numInputs = 64

	// Sequential path below the threshold.
	items, _, _ := buildScriptItems(t, numInputs)
	verifier := &countingVerifier{}
	if err := validateScriptItems(items, verifier, numInputs+1); err != nil {
		t.Fatalf("sequential validation: %v", err)
	}
	if got := verifier.calls.Load(); got != numInputs {
		t.Fatalf("sequential verifications: got %d, want %d", got, numInputs)
	}

	// Concurrent path at the threshold.
	verifier = &countingVerifier{}
	if err := validateScriptItems(items, verifier, numInputs); err != nil {
		t.Fatalf("concurrent validation: %v", err)
	}
	if got := verifier.calls.Load(); got != numInputs {
		t.Fatalf("concurrent verifications: got %d, want %d", got, numInputs)
	}

	// Both paths reject a failing input.
	badVerifier := &countingVerifier{reject: items[numInputs/2].txIn.SignatureScript}
	if err := validateScriptItems(items, badVerifier, numInputs+1); !errors.Is(err, ErrScriptValidation) {
		t.Fatalf("sequential rejection: got %v, want kind %v", err,
			ErrScriptValidation)
	}
	badVerifier = &countingVerifier{reject: items[numInputs/2].txIn.SignatureScript}
	if err := validateScriptItems(items, badVerifier, numInputs); !errors.Is(err, ErrScriptValidation) {
		t.Fatalf("concurrent rejection: got %v, want kind %v", err,
			ErrScriptValidation)
	}
}

// TestValidateTransactionScripts ensures per-transaction validation resolves
// locking scripts through the view and fails on missing entries.
func TestValidateTransactionScripts(t *testing.T) {
	_, tx, view := buildScriptItems(t, 3)

	verifier := &countingVerifier{}
	if err := ValidateTransactionScripts(tx, view, verifier); err != nil {
		t.Fatalf("validation: %v", err)
	}
	if got := verifier.calls.Load(); got != 3 {
		t.Fatalf("verifications: got %d, want 3", got)
	}

	// An input not covered by the view fails with a missing output error.
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 12},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	if err := ValidateTransactionScripts(tx, view, verifier); !errors.Is(err, ErrMissingTxOut) {
		t.Fatalf("missing entry: got %v, want kind %v", err, ErrMissingTxOut)
	}
}
