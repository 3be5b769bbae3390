// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !deppth_nolzf

package compress

import (
	"errors"
	"fmt"
)

func init() {
	register(LZFCodec)
}

// LZFCodec is the liblzf block format: a stream of control bytes,
// each introducing either a literal run (control < 32, run length
// control+1) or a back reference (length in the top three bits,
// extended by one byte when they are all set, and a 13-bit offset).
var LZFCodec = Codec{
	Kind:       KindLZF,
	Compress:   compressLZF,
	Decompress: decompressLZF,
	MaxRawSize: maxRawSizeLZF,
}

const (
	lzfHashLog    = 14
	lzfMaxLiteral = 1 << 5
	lzfMaxOffset  = 1 << 13
	lzfMaxRef     = (1 << 8) + (1 << 3)
)

var errLZFCorrupt = errors.New("lzf: corrupt input")

// The densest LZF encoding is a three-byte back reference of maximum
// length.
func maxRawSizeLZF(storedSize int) int {
	return storedSize * (lzfMaxRef / 3)
}

func lzfHash(a, b, c byte) uint32 {
	v := uint32(a)<<16 | uint32(b)<<8 | uint32(c)
	return (v * 2654435761) >> (32 - lzfHashLog)
}

func compressLZF(data []byte) ([]byte, error) {
	// table holds position+1 of the last occurrence of each 3-byte
	// hash; zero means empty.
	var table [1 << lzfHashLog]int32

	output := make([]byte, 0, len(data))
	literalStart := len(output)
	output = append(output, 0)
	literals := 0

	closeLiterals := func() {
		if literals > 0 {
			output[literalStart] = byte(literals - 1)
		} else {
			output = output[:len(output)-1]
		}
	}
	openLiterals := func() {
		literalStart = len(output)
		output = append(output, 0)
		literals = 0
	}

	position := 0
	for position+2 < len(data) {
		hash := lzfHash(data[position], data[position+1], data[position+2])
		reference := int(table[hash]) - 1
		table[hash] = int32(position + 1)

		if reference >= 0 && reference < position {
			offset := position - reference - 1
			if offset < lzfMaxOffset &&
				data[reference] == data[position] &&
				data[reference+1] == data[position+1] &&
				data[reference+2] == data[position+2] {

				maxLength := min(lzfMaxRef, len(data)-position)
				length := 3
				for length < maxLength && data[reference+length] == data[position+length] {
					length++
				}

				closeLiterals()
				encoded := length - 2
				if encoded < 7 {
					output = append(output, byte(offset>>8)|byte(encoded<<5))
				} else {
					output = append(output, byte(offset>>8)|byte(7<<5), byte(encoded-7))
				}
				output = append(output, byte(offset))
				openLiterals()

				position += length
				continue
			}
		}

		output = append(output, data[position])
		literals++
		position++
		if literals == lzfMaxLiteral {
			closeLiterals()
			openLiterals()
		}
	}

	for ; position < len(data); position++ {
		output = append(output, data[position])
		literals++
		if literals == lzfMaxLiteral {
			closeLiterals()
			openLiterals()
		}
	}
	closeLiterals()

	if len(output) >= len(data) {
		return nil, ErrIncompressible
	}
	return output, nil
}

func decompressLZF(compressed []byte, rawSize int) ([]byte, error) {
	output := make([]byte, 0, rawSize)
	input := 0
	for input < len(compressed) {
		control := int(compressed[input])
		input++

		if control < lzfMaxLiteral {
			run := control + 1
			if input+run > len(compressed) {
				return nil, fmt.Errorf("%w: literal run of %d bytes at input offset %d overruns input", errLZFCorrupt, run, input)
			}
			if len(output)+run > rawSize {
				return nil, fmt.Errorf("%w: output exceeds %d bytes", errLZFCorrupt, rawSize)
			}
			output = append(output, compressed[input:input+run]...)
			input += run
			continue
		}

		length := control >> 5
		if length == 7 {
			if input >= len(compressed) {
				return nil, fmt.Errorf("%w: truncated back reference length", errLZFCorrupt)
			}
			length += int(compressed[input])
			input++
		}
		if input >= len(compressed) {
			return nil, fmt.Errorf("%w: truncated back reference offset", errLZFCorrupt)
		}
		reference := len(output) - ((control & 0x1f) << 8) - 1 - int(compressed[input])
		input++
		length += 2

		if reference < 0 {
			return nil, fmt.Errorf("%w: back reference before start of output", errLZFCorrupt)
		}
		if len(output)+length > rawSize {
			return nil, fmt.Errorf("%w: output exceeds %d bytes", errLZFCorrupt, rawSize)
		}
		// Byte by byte: the reference may overlap the bytes being
		// produced.
		for i := 0; i < length; i++ {
			output = append(output, output[reference+i])
		}
	}
	return output, nil
}
