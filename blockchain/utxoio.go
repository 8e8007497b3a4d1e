// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/halcyonnet/hcnd/wire"
)

// Key prefixes for the backing key/value store.  Each logical bucket of data
// uses a distinct single byte prefix so prefix iteration covers exactly one
// bucket.
var (
	// utxoKeyPrefix is the prefix for unspent transaction output entries.
	utxoKeyPrefix = []byte("u")

	// undoKeyPrefix is the prefix for block undo records.
	undoKeyPrefix = []byte("U")

	// blockKeyPrefix is the prefix for serialized block payloads keyed by
	// block hash.
	blockKeyPrefix = []byte("b")

	// headerKeyPrefix is the prefix for block index rows keyed by block
	// hash.
	headerKeyPrefix = []byte("r")

	// heightKeyPrefix is the prefix for the main chain height to block
	// hash index.
	heightKeyPrefix = []byte("i")

	// chainStateKey is the key of the serialized best chain state.
	chainStateKey = []byte("chainstate")
)

// outpointKey returns the store key for the utxo entry associated with the
// provided outpoint.  The output index is encoded big endian so entries for
// the same transaction iterate in index order.
func outpointKey(outpoint wire.OutPoint) []byte {
	key := make([]byte, 0, len(utxoKeyPrefix)+chainhash.HashSize+4)
	key = append(key, utxoKeyPrefix...)
	key = append(key, outpoint.Hash[:]...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], outpoint.Index)
	return append(key, idx[:]...)
}

// decodeOutpointKey decodes the outpoint encoded in the provided utxo store
// key.  The key must include the prefix.
func decodeOutpointKey(key []byte) (wire.OutPoint, error) {
	const wantLen = 1 + chainhash.HashSize + 4
	if len(key) != wantLen {
		str := fmt.Sprintf("corrupt utxo key length %d", len(key))
		return wire.OutPoint{}, ruleError(ErrUtxoDataCorrupt, str)
	}

	var outpoint wire.OutPoint
	copy(outpoint.Hash[:], key[1:1+chainhash.HashSize])
	outpoint.Index = binary.BigEndian.Uint32(key[1+chainhash.HashSize:])
	return outpoint, nil
}

// undoKey returns the store key for the undo record of the block with the
// provided hash.
func undoKey(blockHash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(undoKeyPrefix)+chainhash.HashSize)
	key = append(key, undoKeyPrefix...)
	return append(key, blockHash[:]...)
}

// blockKey returns the store key for the serialized block with the provided
// hash.
func blockKey(blockHash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(blockKeyPrefix)+chainhash.HashSize)
	key = append(key, blockKeyPrefix...)
	return append(key, blockHash[:]...)
}

// headerKey returns the store key for the block index row of the block with
// the provided hash.
func headerKey(blockHash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(headerKeyPrefix)+chainhash.HashSize)
	key = append(key, headerKeyPrefix...)
	return append(key, blockHash[:]...)
}

// heightKey returns the store key for the main chain hash at the provided
// height.  The height is encoded big endian so iteration yields ascending
// heights.
func heightKey(height int64) []byte {
	key := make([]byte, 0, len(heightKeyPrefix)+8)
	key = append(key, heightKeyPrefix...)
	var encoded [8]byte
	binary.BigEndian.PutUint64(encoded[:], uint64(height))
	return append(key, encoded[:]...)
}

// serializeUtxoEntry serializes the provided utxo entry into a byte slice
// suitable for long term storage.  The format is:
//
//	<amount><block height><flags><script>
//
//	Field         Type     Size
//	amount        int64    8 bytes, little endian
//	block height  uint32   4 bytes, little endian
//	flags         uint8    1 byte
//	script        []byte   remainder
func serializeUtxoEntry(entry *UtxoEntry) []byte {
	serialized := make([]byte, 13+len(entry.pkScript))
	binary.LittleEndian.PutUint64(serialized[0:8], uint64(entry.amount))
	binary.LittleEndian.PutUint32(serialized[8:12], entry.blockHeight)
	serialized[12] = byte(entry.packedFlags)
	copy(serialized[13:], entry.pkScript)
	return serialized
}

// deserializeUtxoEntry decodes the passed serialized utxo entry into a new
// instance.  An error with kind ErrUtxoDataCorrupt is returned when the
// serialized data is malformed.
func deserializeUtxoEntry(serialized []byte) (*UtxoEntry, error) {
	if len(serialized) < 13 {
		str := fmt.Sprintf("corrupt utxo entry length %d", len(serialized))
		return nil, ruleError(ErrUtxoDataCorrupt, str)
	}

	pkScript := make([]byte, len(serialized)-13)
	copy(pkScript, serialized[13:])
	return &UtxoEntry{
		amount:      int64(binary.LittleEndian.Uint64(serialized[0:8])),
		blockHeight: binary.LittleEndian.Uint32(serialized[8:12]),
		packedFlags: utxoFlags(serialized[12]),
		pkScript:    pkScript,
	}, nil
}

// serializeUndoRecord serializes the provided undo record into a byte slice
// suitable for long term storage.  The format is:
//
//	<block hash><height><num spent><spent entries...><num created><outpoints...>
//
// where each spent entry is a serialized outpoint followed by a varint
// prefixed serialized utxo entry and each created outpoint is a serialized
// outpoint.
func serializeUndoRecord(record *UndoRecord) []byte {
	// Calculate the exact size up front to avoid growing the slice.
	size := chainhash.HashSize + 8
	size += wire.VarIntSerializeSize(uint64(len(record.SpentEntries)))
	for i := range record.SpentEntries {
		entryLen := 13 + len(record.SpentEntries[i].Entry.pkScript)
		size += chainhash.HashSize + 4
		size += wire.VarIntSerializeSize(uint64(entryLen)) + entryLen
	}
	size += wire.VarIntSerializeSize(uint64(len(record.CreatedOutPoints)))
	size += len(record.CreatedOutPoints) * (chainhash.HashSize + 4)

	serialized := make([]byte, 0, size)
	serialized = append(serialized, record.BlockHash[:]...)
	var height [8]byte
	binary.LittleEndian.PutUint64(height[:], uint64(record.Height))
	serialized = append(serialized, height[:]...)

	serialized = appendVarInt(serialized, uint64(len(record.SpentEntries)))
	for i := range record.SpentEntries {
		stxo := &record.SpentEntries[i]
		serialized = appendOutPoint(serialized, &stxo.PrevOut)
		entryBytes := serializeUtxoEntry(stxo.Entry)
		serialized = appendVarInt(serialized, uint64(len(entryBytes)))
		serialized = append(serialized, entryBytes...)
	}

	serialized = appendVarInt(serialized, uint64(len(record.CreatedOutPoints)))
	for i := range record.CreatedOutPoints {
		serialized = appendOutPoint(serialized, &record.CreatedOutPoints[i])
	}
	return serialized
}

// deserializeUndoRecord decodes the passed serialized undo record into a new
// instance.  An error with kind ErrUndoDataCorrupt is returned when the
// serialized data is malformed.
func deserializeUndoRecord(serialized []byte) (*UndoRecord, error) {
	corrupt := func(detail string) error {
		str := fmt.Sprintf("corrupt undo record: %s", detail)
		return ruleError(ErrUndoDataCorrupt, str)
	}

	if len(serialized) < chainhash.HashSize+8 {
		return nil, corrupt("short header")
	}

	var record UndoRecord
	copy(record.BlockHash[:], serialized[:chainhash.HashSize])
	offset := chainhash.HashSize
	record.Height = int64(binary.LittleEndian.Uint64(serialized[offset : offset+8]))
	offset += 8

	numSpent, bytesRead, err := decodeVarInt(serialized[offset:])
	if err != nil {
		return nil, corrupt("spent count")
	}
	offset += bytesRead
	record.SpentEntries = make([]SpentTxOut, 0, numSpent)
	for i := uint64(0); i < numSpent; i++ {
		var stxo SpentTxOut
		bytesRead, err = decodeOutPoint(serialized[offset:], &stxo.PrevOut)
		if err != nil {
			return nil, corrupt("spent outpoint")
		}
		offset += bytesRead

		entryLen, bytesRead, err := decodeVarInt(serialized[offset:])
		if err != nil {
			return nil, corrupt("spent entry length")
		}
		offset += bytesRead
		if uint64(len(serialized[offset:])) < entryLen {
			return nil, corrupt("short spent entry")
		}
		entry, err := deserializeUtxoEntry(serialized[offset : offset+int(entryLen)])
		if err != nil {
			return nil, corrupt("spent entry")
		}
		offset += int(entryLen)

		stxo.Entry = entry
		record.SpentEntries = append(record.SpentEntries, stxo)
	}

	numCreated, bytesRead, err := decodeVarInt(serialized[offset:])
	if err != nil {
		return nil, corrupt("created count")
	}
	offset += bytesRead
	record.CreatedOutPoints = make([]wire.OutPoint, 0, numCreated)
	for i := uint64(0); i < numCreated; i++ {
		var outpoint wire.OutPoint
		bytesRead, err = decodeOutPoint(serialized[offset:], &outpoint)
		if err != nil {
			return nil, corrupt("created outpoint")
		}
		offset += bytesRead
		record.CreatedOutPoints = append(record.CreatedOutPoints, outpoint)
	}

	if offset != len(serialized) {
		return nil, corrupt("trailing bytes")
	}
	return &record, nil
}

// appendVarInt appends the canonical variable length integer encoding of the
// provided value to the target slice.
func appendVarInt(target []byte, val uint64) []byte {
	var buf [9]byte
	n := wire.PutVarInt(buf[:], val)
	return append(target, buf[:n]...)
}

// decodeVarInt decodes a canonical variable length integer from the start of
// the provided slice and returns the value along with the number of bytes it
// occupied.
func decodeVarInt(serialized []byte) (uint64, int, error) {
	return wire.GetVarInt(serialized)
}

// appendOutPoint appends the serialization of the provided outpoint to the
// target slice.
func appendOutPoint(target []byte, outpoint *wire.OutPoint) []byte {
	target = append(target, outpoint.Hash[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], outpoint.Index)
	return append(target, idx[:]...)
}

// decodeOutPoint decodes an outpoint from the start of the provided slice
// into the passed outpoint and returns the number of bytes it occupied.
func decodeOutPoint(serialized []byte, outpoint *wire.OutPoint) (int, error) {
	const opLen = chainhash.HashSize + 4
	if len(serialized) < opLen {
		return 0, fmt.Errorf("short outpoint")
	}
	copy(outpoint.Hash[:], serialized[:chainhash.HashSize])
	outpoint.Index = binary.LittleEndian.Uint32(serialized[chainhash.HashSize:opLen])
	return opLen, nil
}
