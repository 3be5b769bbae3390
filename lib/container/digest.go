// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash of a complete package file.
// Two packages with equal digests are byte-identical, which is how
// merge determinism is checked without keeping both images around.
type Digest [32]byte

// digestKey separates package digests from any other BLAKE3 use. The
// bytes are the ASCII domain name, zero-padded to 32 bytes.
var digestKey = [32]byte{
	'd', 'e', 'p', 'p', 't', 'h', '.', 'p', 'a', 'c', 'k', 'a', 'g', 'e', 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func newDigestHasher() *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("container: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// SumDigest returns the digest of a package image held in memory.
func SumDigest(data []byte) Digest {
	hasher := newDigestHasher()
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// ReadDigest returns the digest of everything read from r.
func ReadDigest(r io.Reader) (Digest, error) {
	hasher := newDigestHasher()
	if _, err := io.Copy(hasher, r); err != nil {
		return Digest{}, fmt.Errorf("hashing package: %w", err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FileDigest returns the digest of the file at path.
func FileDigest(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening package: %w", err)
	}
	defer file.Close()
	return ReadDigest(file)
}

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a 64-character hex digest.
func ParseDigest(text string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return Digest{}, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return Digest{}, fmt.Errorf("parsing digest: got %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
