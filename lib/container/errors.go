// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError reports a structural violation of the package layout:
// bad magic, unsupported version, a truncated table, an inconsistent
// offset, or a malformed manifest. A package with a FormatError is
// never partially opened.
type FormatError struct {
	// Path is the package file, when known.
	Path string

	// Entry names the offending entry, when the violation is local
	// to one.
	Entry string

	// Reason describes the violation.
	Reason string

	// Err is the underlying I/O or decode error, if any.
	Err error
}

func (e *FormatError) Error() string {
	var builder strings.Builder
	builder.WriteString("malformed package")
	if e.Path != "" {
		builder.WriteString(" ")
		builder.WriteString(e.Path)
	}
	if e.Entry != "" {
		fmt.Fprintf(&builder, " (entry %q)", e.Entry)
	}
	builder.WriteString(": ")
	builder.WriteString(e.Reason)
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// withPath fills in the package path of a FormatError that was
// produced before the path was known.
func withPath(err error, path string) error {
	var formatError *FormatError
	if path != "" && errors.As(err, &formatError) && formatError.Path == "" {
		formatError.Path = path
	}
	return err
}

// EntryError attaches the package path and entry name to a per-entry
// failure (a codec error, an unavailable backend, a failed read). It
// is returned from [Handle.Payload], [Handle.Stored] and
// [Package.Lookup] and never affects sibling entries.
type EntryError struct {
	Path  string
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("entry %q: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("%s: entry %q: %v", e.Path, e.Entry, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// DuplicateEntryError reports that a writer was asked to append a name
// it already holds.
type DuplicateEntryError struct {
	Name string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("duplicate entry %q", e.Name)
}

// IncompleteWriteError reports that a flush failed partway. Written is
// the number of package bytes the sink accepted before the failure;
// the destination is not a valid package and is left for the caller
// to discard.
type IncompleteWriteError struct {
	Written int64
	Err     error
}

func (e *IncompleteWriteError) Error() string {
	return fmt.Sprintf("incomplete write (%d bytes written): %v", e.Written, e.Err)
}

func (e *IncompleteWriteError) Unwrap() error {
	return e.Err
}

// UseAfterCloseError reports an operation on a closed package or
// writer.
type UseAfterCloseError struct {
	// Op is the attempted operation, e.g. "payload" or "append".
	Op string
}

func (e *UseAfterCloseError) Error() string {
	return fmt.Sprintf("%s on closed package", e.Op)
}

// ErrNoEntry is wrapped by [Package.Lookup] for a name the package
// does not hold.
var ErrNoEntry = errors.New("no such entry")

// ErrFlushed is returned by Append after the writer has flushed.
var ErrFlushed = errors.New("package already flushed")

// DigestMismatchError reports a package whose BLAKE3 digest differs
// from the expected one.
type DigestMismatchError struct {
	Path string
	Got  Digest
	Want Digest
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s: blake3 %s, expected %s", e.Path, e.Got, e.Want)
}
