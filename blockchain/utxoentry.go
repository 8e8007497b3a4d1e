// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// utxoFlags is a bitmask defining additional information and state for a
// transaction output in the utxo set.
type utxoFlags uint8

const (
	// utxoFlagCoinBase indicates that the output was contained in a
	// coinbase transaction.
	utxoFlagCoinBase utxoFlags = 1 << iota
)

// utxoState defines the in-memory state of a utxo entry.  Unlike the flags,
// the state is never serialized to the backing store.
type utxoState uint8

const (
	// utxoStateModified indicates that the in-memory entry has been
	// modified since it was loaded and differs from the backing store.
	utxoStateModified utxoState = 1 << iota

	// utxoStateSpent indicates that the output has been spent.  An entry
	// in this state only exists to record the spend until it is flushed.
	utxoStateSpent
)

// UtxoEntry houses details about an individual transaction output in the
// unspent transaction output set such as whether or not it was contained in
// a coinbase transaction, the height of the block that contains the
// transaction, whether or not it is spent, its public key script, and how
// much it pays.
type UtxoEntry struct {
	amount      int64
	pkScript    []byte
	blockHeight uint32

	// packedFlags houses details such as whether the containing
	// transaction is a coinbase.  state tracks whether the entry is spent
	// or has been modified since load.
	packedFlags utxoFlags
	state       utxoState
}

// NewUtxoEntry returns a new instance of a utxo entry with the given fields.
func NewUtxoEntry(amount int64, pkScript []byte, blockHeight uint32, isCoinBase bool) *UtxoEntry {
	var flags utxoFlags
	if isCoinBase {
		flags |= utxoFlagCoinBase
	}
	return &UtxoEntry{
		amount:      amount,
		pkScript:    pkScript,
		blockHeight: blockHeight,
		packedFlags: flags,
	}
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int64 {
	return int64(entry.blockHeight)
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.packedFlags&utxoFlagCoinBase != 0
}

// IsSpent returns whether or not the output has been spent.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.state&utxoStateSpent != 0
}

// isModified returns whether or not the entry has been modified since it was
// loaded.
func (entry *UtxoEntry) isModified() bool {
	return entry.state&utxoStateModified != 0
}

// Spend marks the output as spent.  Spending an output that is already spent
// has no effect.
func (entry *UtxoEntry) Spend() {
	if entry.IsSpent() {
		return
	}
	entry.state |= utxoStateSpent | utxoStateModified
}

// Clone returns a deep copy of the utxo entry.  The script is copied so the
// returned entry can be modified without affecting the original.
func (entry *UtxoEntry) Clone() *UtxoEntry {
	if entry == nil {
		return nil
	}

	script := make([]byte, len(entry.pkScript))
	copy(script, entry.pkScript)
	return &UtxoEntry{
		amount:      entry.amount,
		pkScript:    script,
		blockHeight: entry.blockHeight,
		packedFlags: entry.packedFlags,
		state:       entry.state,
	}
}
