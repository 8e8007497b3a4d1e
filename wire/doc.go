// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the canonical serialization of Halcyon transactions
// and blocks.
//
// Transaction and block identity is defined in terms of this serialization:
// the txid is the BLAKE-256 hash of the canonically serialized transaction and
// the block hash is the BLAKE-256 hash of the serialized header alone.  All
// consensus code operates on these types.
//
// The serialization uses little-endian fixed-width integers together with a
// variable-length integer encoding for collection counts and byte slice
// lengths, which provides a compact and unambiguous on-disk and cross-process
// representation.
package wire
