// Copyright (c) 2024-2026 The Halcyon developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrNonCanonicalVarInt indicates a variable length integer was not
	// canonically encoded.
	ErrNonCanonicalVarInt = ErrorKind("ErrNonCanonicalVarInt")

	// ErrVarBytesTooLong indicates a variable length byte slice exceeds the
	// maximum allowed length.
	ErrVarBytesTooLong = ErrorKind("ErrVarBytesTooLong")

	// ErrTooManyTxInputs indicates a transaction claims to have more inputs
	// than are possible given the maximum allowed serialized size.
	ErrTooManyTxInputs = ErrorKind("ErrTooManyTxInputs")

	// ErrTooManyTxOutputs indicates a transaction claims to have more
	// outputs than are possible given the maximum allowed serialized size.
	ErrTooManyTxOutputs = ErrorKind("ErrTooManyTxOutputs")

	// ErrTooManyTxs indicates a block claims to have more transactions than
	// are possible given the maximum allowed serialized size.
	ErrTooManyTxs = ErrorKind("ErrTooManyTxs")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError identifies a message-related error.  It is used to indicate
// that a serialized byte stream failed to decode due to violating the encoding
// rules as opposed to lower level IO issues.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason for
// the error by checking the underlying error.
type MessageError struct {
	Func        string
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Description
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e MessageError) Unwrap() error {
	return e.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
