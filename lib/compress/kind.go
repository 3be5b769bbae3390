// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import "fmt"

// Kind identifies the compression family of a package. The kind is
// stored in the package header (1 byte) and selects the codec for
// every compressed entry. The values match the compressor codes the
// games write. Changing them breaks format compatibility.
type Kind uint8

const (
	// KindNone stores every entry uncompressed.
	KindNone Kind = 0x00

	// KindLZ4 compresses entries with LZ4 block compression. Hades
	// ships LZ4 packages.
	KindLZ4 Kind = 0x20

	// KindLZF compresses entries with LZF. Transistor and Pyre ship
	// LZF packages.
	KindLZF Kind = 0x40

	// KindZstd compresses entries with zstd. No game reads this kind;
	// it exists for tool-side intermediate packages where ratio
	// matters more than compatibility.
	KindZstd Kind = 0x80
)

// String returns the human-readable name of a kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "uncompressed"
	case KindLZ4:
		return "lz4"
	case KindLZF:
		return "lzf"
	case KindZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(k))
	}
}

// Capability names the backend a kind needs, for user-facing
// messages such as "LZ4 support unavailable".
func (k Kind) Capability() string {
	switch k {
	case KindNone:
		return "identity"
	case KindLZ4:
		return "LZ4"
	case KindLZF:
		return "LZF"
	case KindZstd:
		return "zstd"
	default:
		return k.String()
	}
}

// Known reports whether k is a defined kind.
func (k Kind) Known() bool {
	switch k {
	case KindNone, KindLZ4, KindLZF, KindZstd:
		return true
	}
	return false
}

// ParseKind parses a kind from its string representation. "none" and
// "raw" are accepted as aliases for "uncompressed".
func ParseKind(name string) (Kind, error) {
	switch name {
	case "uncompressed", "none", "raw":
		return KindNone, nil
	case "lz4":
		return KindLZ4, nil
	case "lzf":
		return KindLZF, nil
	case "zstd":
		return KindZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression kind: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Known() {
		return nil, fmt.Errorf("cannot marshal compression kind 0x%02x", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
