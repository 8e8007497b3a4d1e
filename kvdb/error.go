// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvdb

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrNotFound indicates a requested key does not exist in the store.
	ErrNotFound = ErrorKind("ErrNotFound")

	// ErrCorruption indicates the underlying storage engine detected data
	// corruption.  Callers must treat this as fatal for any state derived
	// from the store.
	ErrCorruption = ErrorKind("ErrCorruption")

	// ErrIO indicates a low-level input/output failure from the underlying
	// storage engine.
	ErrIO = ErrorKind("ErrIO")

	// ErrClosed indicates an operation was performed against a store that
	// has already been closed.
	ErrClosed = ErrorKind("ErrClosed")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a storage error.  The Err field can be inspected with
// errors.Is to programmatically determine the specific kind of failure while
// RawErr retains the underlying error from the storage engine, if any.
type Error struct {
	Err         error
	Description string
	RawErr      error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error kind.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string, rawErr error) Error {
	return Error{Err: kind, Description: desc, RawErr: rawErr}
}
