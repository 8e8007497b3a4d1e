// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// MaxVarIntPayload is the maximum payload size for a variable length
	// integer.
	MaxVarIntPayload = 9

	// maxVarBytesLen is the maximum number of bytes a variable length byte
	// slice is allowed to occupy.  This intentionally matches the maximum
	// allowed serialized block size since no individual field can be larger
	// than the structure that contains it.
	maxVarBytesLen = 1000000
)

var (
	// littleEndian is a convenience variable since binary.LittleEndian is
	// quite long.
	littleEndian = binary.LittleEndian
)

// readElement reads the next fixed-width element from r into buf and returns
// an error if fewer bytes than expected were available.
func readElement(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

// binarySerializer provides a pool-free set of helpers for reading and writing
// the primitive integers used by the serialization code.  All integers are
// little endian on the wire.
type binarySerializer struct{}

var serializer binarySerializer

func (binarySerializer) PutUint16(w io.Writer, val uint16) error {
	var buf [2]byte
	littleEndian.PutUint16(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func (binarySerializer) Uint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := readElement(r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint16(buf[:]), nil
}

func (binarySerializer) PutUint32(w io.Writer, val uint32) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func (binarySerializer) Uint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readElement(r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(buf[:]), nil
}

func (binarySerializer) PutUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	littleEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func (binarySerializer) Uint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readElement(r, buf[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(buf[:]), nil
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
//
// The encoding mirrors the one historically used by Bitcoin-derived chains: a
// single byte discriminant followed by 0, 2, 4, or 8 bytes of little-endian
// payload depending on the magnitude of the value.  Values must be encoded
// using the minimum possible number of bytes or the encoding is rejected as
// non-canonical.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant [1]byte
	if err := readElement(r, discriminant[:]); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant[0] {
	case 0xff:
		sv, err := serializer.Uint64(r)
		if err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		if rv < 0x100000000 {
			return 0, messageError("ReadVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 9 bytes", rv))
		}

	case 0xfe:
		sv, err := serializer.Uint32(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		if rv < 0x10000 {
			return 0, messageError("ReadVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 5 bytes", rv))
		}

	case 0xfd:
		sv, err := serializer.Uint16(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		if rv < 0xfd {
			return 0, messageError("ReadVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 3 bytes", rv))
		}

	default:
		rv = uint64(discriminant[0])
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}

	if val <= 0xffff {
		if _, err := w.Write([]byte{0xfd}); err != nil {
			return err
		}
		return serializer.PutUint16(w, uint16(val))
	}

	if val <= 0xffffffff {
		if _, err := w.Write([]byte{0xfe}); err != nil {
			return err
		}
		return serializer.PutUint32(w, uint32(val))
	}

	if _, err := w.Write([]byte{0xff}); err != nil {
		return err
	}
	return serializer.PutUint64(w, val)
}

// PutVarInt serializes val into the provided buffer using a variable number
// of bytes depending on its value and returns the number of bytes written.
// The buffer must be at least MaxVarIntPayload bytes.
func PutVarInt(buf []byte, val uint64) int {
	switch {
	case val < 0xfd:
		buf[0] = byte(val)
		return 1

	case val <= 0xffff:
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		return 3

	case val <= 0xffffffff:
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		return 5
	}

	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	return 9
}

// GetVarInt deserializes a variable length integer from the start of the
// provided buffer and returns the value along with the number of bytes it
// occupied.  The same canonical encoding rules as ReadVarInt apply.
func GetVarInt(buf []byte) (uint64, int, error) {
	if len(buf) == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}

	discriminant := buf[0]
	var rv uint64
	var size int
	switch discriminant {
	case 0xff:
		size = 9
		if len(buf) < size {
			return 0, 0, io.ErrUnexpectedEOF
		}
		rv = littleEndian.Uint64(buf[1:])
		if rv < 0x100000000 {
			return 0, 0, messageError("GetVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 9 bytes", rv))
		}

	case 0xfe:
		size = 5
		if len(buf) < size {
			return 0, 0, io.ErrUnexpectedEOF
		}
		rv = uint64(littleEndian.Uint32(buf[1:]))
		if rv < 0x10000 {
			return 0, 0, messageError("GetVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 5 bytes", rv))
		}

	case 0xfd:
		size = 3
		if len(buf) < size {
			return 0, 0, io.ErrUnexpectedEOF
		}
		rv = uint64(littleEndian.Uint16(buf[1:]))
		if rv < 0xfd {
			return 0, 0, messageError("GetVarInt", ErrNonCanonicalVarInt,
				fmt.Sprintf("value %d encoded with 3 bytes", rv))
		}

	default:
		size = 1
		rv = uint64(discriminant)
	}

	return rv, size, nil
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	}
	return 9
}

// ReadVarBytes reads a variable length byte array.  A byte array is encoded
// as a varint containing the length of the array followed by the bytes
// themselves.  An error is returned if the length is greater than the maximum
// allowed length, which helps protect against memory exhaustion attacks and
// forced panics through malformed messages.  The fieldName parameter is only
// used for the error message so it provides more context in the error.
func ReadVarBytes(r io.Reader, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	if count > maxVarBytesLen {
		return nil, messageError("ReadVarBytes", ErrVarBytesTooLong,
			fmt.Sprintf("%s is larger than the max allowed size "+
				"[count %d, max %d]", fieldName, count, maxVarBytesLen))
	}

	b := make([]byte, count)
	if err := readElement(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// followed by the bytes themselves.
func WriteVarBytes(w io.Writer, bytes []byte) error {
	if err := WriteVarInt(w, uint64(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}

// readOutPoint reads the next sequence of bytes from r as an OutPoint.
func readOutPoint(r io.Reader, op *OutPoint) error {
	if err := readElement(r, op.Hash[:]); err != nil {
		return err
	}
	index, err := serializer.Uint32(r)
	if err != nil {
		return err
	}
	op.Index = index
	return nil
}

// writeOutPoint encodes op to w.
func writeOutPoint(w io.Writer, op *OutPoint) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}
	return serializer.PutUint32(w, op.Index)
}

// readHash reads the next chainhash.HashSize bytes from r into hash.
func readHash(r io.Reader, hash *chainhash.Hash) error {
	return readElement(r, hash[:])
}
