// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !deppth_nozstd

package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. zstd.Encoder and zstd.Decoder
// are safe for concurrent use with EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}

	register(ZstdCodec)
}

// ZstdCodec is single-frame zstd at the default level.
var ZstdCodec = Codec{
	Kind:       KindZstd,
	Compress:   compressZstd,
	Decompress: decompressZstd,
	MaxRawSize: maxRawSizeZstd,
}

// zstdMaxExpansion bounds a frame's output per input byte: the densest
// block is an RLE block, four bytes for up to 128 KiB.
const zstdMaxExpansion = (128 << 10) / 4

func maxRawSizeZstd(storedSize int) int {
	return storedSize * zstdMaxExpansion
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, ErrIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, 0, rawSize)
	result, err := zstdDecoder.DecodeAll(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return result, nil
}
