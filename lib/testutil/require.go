// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"errors"
	"fmt"
)

// TB is the subset of testing.TB the helpers use.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireErrorAs asserts that err is or wraps an error of type E and
// returns it. It fails the test if err is nil or of another type.
//
//	formatError := testutil.RequireErrorAs[*container.FormatError](t, err, "opening truncated package")
func RequireErrorAs[E error](t TB, err error, msgAndArgs ...any) E {
	t.Helper()
	var target E
	if err == nil {
		t.Fatalf("expected %T, got nil error: %s", target, formatMessage(msgAndArgs))
		return target
	}
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %T (%v): %s", target, err, err, formatMessage(msgAndArgs))
	}
	return target
}

// RequireNoError fails the test if err is non-nil.
//
//	testutil.RequireNoError(t, writer.Close(), "closing writer")
func RequireNoError(t TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s failed: %v", formatMessage(msgAndArgs), err)
	}
}

// formatMessage formats optional message arguments into a string.
// Accepts either a single string or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
