// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import (
	"fmt"
	"strconv"
	"strings"
)

// Type identifies what an entry's payload holds. The byte values are
// the entry codes used by the games and are stored verbatim in the
// entry table. Changing them breaks format compatibility.
type Type uint8

const (
	// TypeRaw is an opaque payload with no game-specific meaning.
	TypeRaw Type = 0x00

	// TypeTexture3D is a wrapped XNB volume texture.
	TypeTexture3D Type = 0xAA

	// TypeTexture is a wrapped XNB 2D texture, usually a packed sprite
	// sheet described by an atlas manifest record.
	TypeTexture Type = 0xAD

	// TypeBink is a reference to an external Bink video file.
	TypeBink Type = 0xBB

	// TypeInclude names another package the engine loads alongside
	// this one.
	TypeInclude Type = 0xCC

	// TypeAtlas is a sprite-atlas map.
	TypeAtlas Type = 0xDE

	// TypeBinkAtlas is the atlas map for a Bink video's frames.
	TypeBinkAtlas Type = 0xEE

	// TypeSpine is a Spine skeletal animation reference.
	TypeSpine Type = 0xF0
)

// String returns the human-readable name of an entry type. Types
// without a name print as their hex code, e.g. "0x42", which
// [ParseType] accepts.
func (t Type) String() string {
	switch t {
	case TypeRaw:
		return "raw"
	case TypeTexture3D:
		return "texture3d"
	case TypeTexture:
		return "texture"
	case TypeBink:
		return "bink"
	case TypeInclude:
		return "include"
	case TypeAtlas:
		return "atlas"
	case TypeBinkAtlas:
		return "bink-atlas"
	case TypeSpine:
		return "spine"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// Known reports whether t is one of the defined entry types.
func (t Type) Known() bool {
	switch t {
	case TypeRaw, TypeTexture3D, TypeTexture, TypeBink, TypeInclude, TypeAtlas, TypeBinkAtlas, TypeSpine:
		return true
	}
	return false
}

// ParseType parses an entry type from its name or from a "0xNN" hex
// code. Codes need not be known types: packages from newer builds may
// carry entry types this package has no name for, and they must
// survive an extract and repack unchanged.
func ParseType(name string) (Type, error) {
	switch name {
	case "raw":
		return TypeRaw, nil
	case "texture3d":
		return TypeTexture3D, nil
	case "texture":
		return TypeTexture, nil
	case "bink":
		return TypeBink, nil
	case "include":
		return TypeInclude, nil
	case "atlas":
		return TypeAtlas, nil
	case "bink-atlas":
		return TypeBinkAtlas, nil
	case "spine":
		return TypeSpine, nil
	}
	if digits, ok := strings.CutPrefix(name, "0x"); ok && len(digits) == 2 {
		code, err := strconv.ParseUint(digits, 16, 8)
		if err == nil {
			return Type(code), nil
		}
	}
	return 0, fmt.Errorf("unknown entry type: %q", name)
}

// MarshalText implements encoding.TextMarshaler so types appear by
// name in YAML index files.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MaxNameLength is the longest entry name the format can store. Names
// are length-prefixed with a single byte.
const MaxNameLength = 255

// NameSeparator separates path segments in entry names.
const NameSeparator = `\`

// Entry is a single named asset record.
//
// On the write path callers fill Name, Type and Payload; the writer
// computes Compressed, RawSize and StoredSize. On the read path all
// size fields come from the entry table and Payload is filled only
// when materialized.
type Entry struct {
	// Name is the entry's unique path within its package.
	Name string

	// Type identifies the payload kind.
	Type Type

	// Compressed is true when the stored bytes are codec-encoded. An
	// entry in a compressed package may still be stored raw when the
	// codec could not shrink it.
	Compressed bool

	// RawSize is the decoded payload length in bytes.
	RawSize uint32

	// StoredSize is the on-disk length of the data block.
	StoredSize uint32

	// Payload is the decoded payload.
	Payload []byte
}

// ShortName returns the last backslash-separated segment of the name.
func (e *Entry) ShortName() string {
	return ShortName(e.Name)
}

// Validate checks the name constraints the container format imposes.
func (e *Entry) Validate() error {
	return ValidateName(e.Name)
}

// ShortName returns the last backslash-separated segment of name.
func ShortName(name string) string {
	if index := strings.LastIndex(name, NameSeparator); index >= 0 {
		return name[index+1:]
	}
	return name
}

// ValidateName checks that name is storable as an entry name:
// non-empty, at most [MaxNameLength] bytes, and free of NUL bytes.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("entry name is empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("entry name %q is %d bytes, maximum is %d", name, len(name), MaxNameLength)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("entry name %q contains a NUL byte", name)
	}
	return nil
}
