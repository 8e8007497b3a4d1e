// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion uint16 = 1

	// MaxTxInSequenceNum is the maximum sequence number an input can carry.
	// A transaction with all inputs at the maximum sequence number is final
	// regardless of its lock time.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// MaxPrevOutIndex is the maximum index an outpoint can reference.  It
	// is claimed by the sole input of a coinbase transaction.
	MaxPrevOutIndex uint32 = 0xffffffff

	// LockTimeThreshold is the number below which a transaction lock time
	// is interpreted as a block height and at or above which it is
	// interpreted as a unix timestamp.
	LockTimeThreshold uint32 = 500000000

	// minTxInSerializeSize is the minimum number of bytes a serialized
	// transaction input can occupy: a 36 byte previous outpoint, one byte
	// for a zero-length signature script, and 4 bytes of sequence.
	minTxInSerializeSize = 41

	// minTxOutSerializeSize is the minimum number of bytes a serialized
	// transaction output can occupy: an 8 byte value and one byte for a
	// zero-length locking script.
	minTxOutSerializeSize = 9

	// maxTxInPerMessage is the maximum number of transaction inputs that
	// could possibly fit into a maximum size message.
	maxTxInPerMessage = maxVarBytesLen/minTxInSerializeSize + 1

	// maxTxOutPerMessage is the maximum number of transaction outputs that
	// could possibly fit into a maximum size message.
	maxTxOutPerMessage = maxVarBytesLen/minTxOutSerializeSize + 1
)

// OutPoint defines a transaction output reference as the hash of the creating
// transaction together with the output index within it.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new transaction outpoint with the provided hash and
// index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// String returns the OutPoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	// Allocate enough for hash string, colon, and 10 digits.  Although at
	// the time of writing, the maximum index is typically much smaller, it
	// can technically be anything that fits in a uint32.
	buf := make([]byte, 2*chainhash.HashSize+1, 2*chainhash.HashSize+1+10)
	copy(buf, o.Hash.String())
	buf[2*chainhash.HashSize] = ':'
	buf = strconv.AppendUint(buf, uint64(o.Index), 10)
	return string(buf)
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint hash 32 bytes + outpoint index 4 bytes + sequence 4 bytes +
	// serialized varint size for the length of the signature script +
	// signature script bytes.
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript)
}

// NewTxIn returns a new transaction input with the provided previous outpoint
// and signature script with a default sequence of MaxTxInSequenceNum.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction output.
func (t *TxOut) SerializeSize() int {
	// Value 8 bytes + serialized varint size for the length of the locking
	// script + locking script bytes.
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// NewTxOut returns a new transaction output with the provided value and
// locking script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// MsgTx implements a Halcyon transaction.  Use the Serialize and Deserialize
// functions to encode and decode the canonical representation that defines
// the transaction identity.
type MsgTx struct {
	Version  uint16
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// TxHash generates the hash for the transaction.  This is the canonical
// identifier (txid) used throughout the consensus code and is the BLAKE-256
// hash of the canonically serialized transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	// TxHash should always calculate a non-witness hash, and since failures
	// writing into a bytes.Buffer are impossible short of memory
	// exhaustion, the error is intentionally ignored.
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	_ = msg.Serialize(&buf)
	return chainhash.Hash(blake256.Sum256(buf.Bytes()))
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	// Version 2 bytes + locktime 4 bytes + serialized varint size for the
	// number of inputs and outputs.
	n := 6 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// Serialize encodes the transaction to w using the canonical format.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := serializer.PutUint16(w, msg.Version); err != nil {
		return err
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeOutPoint(w, &ti.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := serializer.PutUint32(w, ti.Sequence); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := serializer.PutUint64(w, uint64(to.Value)); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}

	return serializer.PutUint32(w, msg.LockTime)
}

// Deserialize decodes a transaction from r using the canonical format.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	version, err := serializer.Uint16(r)
	if err != nil {
		return err
	}
	msg.Version = version

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxInPerMessage) {
		return messageError("MsgTx.Deserialize", ErrTooManyTxInputs,
			fmt.Sprintf("too many input transactions to fit into max "+
				"message size [count %d, max %d]", count, maxTxInPerMessage))
	}

	msg.TxIn = make([]*TxIn, count)
	for i := uint64(0); i < count; i++ {
		ti := TxIn{}
		if err := readOutPoint(r, &ti.PreviousOutPoint); err != nil {
			return err
		}
		ti.SignatureScript, err = ReadVarBytes(r, "signature script")
		if err != nil {
			return err
		}
		ti.Sequence, err = serializer.Uint32(r)
		if err != nil {
			return err
		}
		msg.TxIn[i] = &ti
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxOutPerMessage) {
		return messageError("MsgTx.Deserialize", ErrTooManyTxOutputs,
			fmt.Sprintf("too many output transactions to fit into max "+
				"message size [count %d, max %d]", count, maxTxOutPerMessage))
	}

	msg.TxOut = make([]*TxOut, count)
	for i := uint64(0); i < count; i++ {
		to := TxOut{}
		value, err := serializer.Uint64(r)
		if err != nil {
			return err
		}
		to.Value = int64(value)
		to.PkScript, err = ReadVarBytes(r, "locking script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = &to
	}

	msg.LockTime, err = serializer.Uint32(r)
	return err
}

// Bytes returns the canonically serialized transaction.
func (msg *MsgTx) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	if err := msg.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Copy creates a deep copy of the transaction so that the original does not
// get modified when the copy is manipulated.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := MsgTx{
		Version:  msg.Version,
		TxIn:     make([]*TxIn, 0, len(msg.TxIn)),
		TxOut:    make([]*TxOut, 0, len(msg.TxOut)),
		LockTime: msg.LockTime,
	}

	for _, oldTxIn := range msg.TxIn {
		var newScript []byte
		if len(oldTxIn.SignatureScript) > 0 {
			newScript = make([]byte, len(oldTxIn.SignatureScript))
			copy(newScript, oldTxIn.SignatureScript)
		}
		newTx.TxIn = append(newTx.TxIn, &TxIn{
			PreviousOutPoint: oldTxIn.PreviousOutPoint,
			SignatureScript:  newScript,
			Sequence:         oldTxIn.Sequence,
		})
	}

	for _, oldTxOut := range msg.TxOut {
		var newScript []byte
		if len(oldTxOut.PkScript) > 0 {
			newScript = make([]byte, len(oldTxOut.PkScript))
			copy(newScript, oldTxOut.PkScript)
		}
		newTx.TxOut = append(newTx.TxOut, &TxOut{
			Value:    oldTxOut.Value,
			PkScript: newScript,
		})
	}

	return &newTx
}

// NewMsgTx returns a transaction message with the current default version.
func NewMsgTx() *MsgTx {
	return &MsgTx{Version: TxVersion}
}
