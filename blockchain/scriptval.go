// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"runtime"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// ScriptVerifier defines the contract for the external capability that
// checks whether an input's unlocking script satisfies the locking script of
// the output it spends.  The message is the hash of the spending transaction
// so verifiers that implement signature schemes have a digest to check the
// signature against.
//
// Implementations must be safe for concurrent access since script
// verification for large blocks is performed across multiple goroutines.
type ScriptVerifier interface {
	VerifyScript(pkScript, sigScript []byte, msg []byte) bool
}

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	txHash    chainhash.Hash
	pkScript  []byte
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	verifier     ScriptVerifier
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// validateHandler consumes items to validate from the internal validate
// channel and returns the result of the validation on the internal result
// channel.  It must be run as a goroutine.
func (v *txValidator) validateHandler() {
	for {
		select {
		case txVI := <-v.validateChan:
			err := verifyInputScript(v.verifier, txVI)
			v.sendResult(err)

		case <-v.quitChan:
			return
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs
// using multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	numInputs := len(items)
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > numInputs {
		maxGoRoutines = numInputs
	}

	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input they are currently processing.
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to be
		// processed.  The select statement will never select a nil channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(verifier ScriptVerifier) *txValidator {
	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		verifier:     verifier,
	}
}

// verifyInputScript checks a single input's unlocking script against the
// locking script of the output it spends via the provided verifier.
func verifyInputScript(verifier ScriptVerifier, txVI *txValidateItem) error {
	if !verifier.VerifyScript(txVI.pkScript, txVI.txIn.SignatureScript,
		txVI.txHash[:]) {

		str := fmt.Sprintf("script for input %d of transaction %s failed "+
			"to verify against referenced output %v", txVI.txInIndex,
			txVI.txHash, txVI.txIn.PreviousOutPoint)
		return ruleError(ErrScriptValidation, str)
	}
	return nil
}

// txScriptItems builds the list of per-input validation items for the
// provided transaction with locking scripts resolved from the provided view.
// The view must already contain an unspent entry for every input.
func txScriptItems(tx *wire.MsgTx, view *UtxoViewpoint) ([]*txValidateItem, error) {
	txHash := tx.TxHash()
	items := make([]*txValidateItem, 0, len(tx.TxIn))
	for txInIdx, txIn := range tx.TxIn {
		entry := view.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil {
			str := fmt.Sprintf("unable to find unspent output %v referenced "+
				"from transaction %s input %d", txIn.PreviousOutPoint, txHash,
				txInIdx)
			return nil, ruleError(ErrMissingTxOut, str)
		}

		items = append(items, &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			txHash:    txHash,
			pkScript:  entry.PkScript(),
		})
	}
	return items, nil
}

// ValidateTransactionScripts validates the scripts for every input of the
// provided transaction against the locking scripts of the outputs it spends
// per the provided view.
func ValidateTransactionScripts(tx *wire.MsgTx, view *UtxoViewpoint, verifier ScriptVerifier) error {
	items, err := txScriptItems(tx, view)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := verifyInputScript(verifier, item); err != nil {
			return err
		}
	}
	return nil
}

// validateScriptItems validates the provided per-input items, concurrently
// across a bounded pool of goroutines once the number of items reaches the
// provided threshold and sequentially below it.  Both paths produce
// identical accept and reject outcomes, the threshold only exists because
// the goroutine handoff costs more than direct verification for small
// batches.
func validateScriptItems(items []*txValidateItem, verifier ScriptVerifier, parallelThreshold int) error {
	if len(items) < parallelThreshold {
		for _, item := range items {
			if err := verifyInputScript(verifier, item); err != nil {
				return err
			}
		}
		return nil
	}

	return newTxValidator(verifier).Validate(items)
}
