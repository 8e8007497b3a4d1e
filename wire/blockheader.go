// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
)

// BlockHeaderLen is the number of bytes a serialized block header occupies.
// Version 2 bytes + PrevBlock and MerkleRoot hashes 32 bytes each + Timestamp
// 8 bytes + Bits 4 bytes + Nonce 8 bytes.
const BlockHeaderLen = 2 + chainhash.HashSize*2 + 8 + 4 + 8

// BlockHeader defines information about a block and is used in the block and
// headers messages.  The block hash is defined as the BLAKE-256 hash of the
// serialized header, so the header alone commits to the entire block through
// the merkle root.
type BlockHeader struct {
	// Version of the block.  This is not the same as the transaction
	// version.
	Version uint16

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hashes of all transactions in the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  Serialized as unix seconds, so the
	// precision is limited to one second.
	Timestamp time.Time

	// Difficulty target for the block in compact form.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint64
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encoding into a fixed size buffer can't fail, so the error from
	// Serialize is intentionally ignored.
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = h.Serialize(&buf)
	return chainhash.Hash(blake256.Sum256(buf.Bytes()))
}

// Serialize encodes the block header to w using the canonical format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := serializer.PutUint16(w, h.Version); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	if err := serializer.PutUint64(w, uint64(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := serializer.PutUint32(w, h.Bits); err != nil {
		return err
	}
	return serializer.PutUint64(w, h.Nonce)
}

// Deserialize decodes a block header from r using the canonical format.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	version, err := serializer.Uint16(r)
	if err != nil {
		return err
	}
	h.Version = version

	if err := readHash(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readHash(r, &h.MerkleRoot); err != nil {
		return err
	}

	ts, err := serializer.Uint64(r)
	if err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0)

	h.Bits, err = serializer.Uint32(r)
	if err != nil {
		return err
	}
	h.Nonce, err = serializer.Uint64(r)
	return err
}

// Bytes returns the serialized block header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	if err := h.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewBlockHeader returns a new block header using the provided previous block
// hash, merkle root, difficulty bits, and nonce with the timestamp truncated
// to one second precision.
func NewBlockHeader(prevBlock *chainhash.Hash, merkleRoot *chainhash.Hash,
	bits uint32, nonce uint64) *BlockHeader {

	return &BlockHeader{
		Version:    1,
		PrevBlock:  *prevBlock,
		MerkleRoot: *merkleRoot,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}
