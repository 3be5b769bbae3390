// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"errors"
	"fmt"
)

// ErrIncompressible is returned by Encode when the encoded output is
// not smaller than the input. The writer stores such entries
// uncompressed.
var ErrIncompressible = errors.New("data is incompressible")

// IsIncompressible returns true if the error indicates that data
// could not be compressed smaller than its original size.
func IsIncompressible(err error) bool {
	return errors.Is(err, ErrIncompressible)
}

// ErrSizeMismatch is wrapped by a [CodecError] when decoded output
// length differs from the size recorded in the entry table.
var ErrSizeMismatch = errors.New("decoded size mismatch")

// ErrImplausibleSize is wrapped by a [CodecError] when the entry
// table claims a raw size the stored bytes cannot expand to under the
// kind's codec.
var ErrImplausibleSize = errors.New("implausible raw size")

// CodecError reports a failed encode or decode: a backend error or a
// decoded length that does not match the expected raw size.
type CodecError struct {
	Kind Kind
	// Op is "encode" or "decode".
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// UnavailableError reports that no codec is registered for a kind,
// typically because the binary was built without that backend. Only
// the operation needing the codec fails.
type UnavailableError struct {
	Kind Kind
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s support unavailable", e.Kind.Capability())
}

// IsUnavailable reports whether err is or wraps an [UnavailableError].
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}
