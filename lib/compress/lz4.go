// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !deppth_nolz4

package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

func init() {
	register(LZ4Codec)
}

// LZ4Codec is LZ4 block compression without a size prefix: the raw
// size lives in the entry table.
var LZ4Codec = Codec{
	Kind:       KindLZ4,
	Compress:   compressLZ4,
	Decompress: decompressLZ4,
	MaxRawSize: maxRawSizeLZ4,
}

// lz4MaxExpansion bounds the output of one block byte: a match length
// extension byte adds at most 255 bytes, every other byte less.
const lz4MaxExpansion = 255

func maxRawSizeLZ4(storedSize int) int {
	return storedSize * lz4MaxExpansion
}

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it determines the data is
	// incompressible.
	if written == 0 || written >= len(data) {
		return nil, ErrIncompressible
	}

	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, rawSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return destination[:read], nil
}
