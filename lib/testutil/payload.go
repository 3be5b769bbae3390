// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

// Payload returns size deterministic bytes derived from seed. With
// period > 0 the output repeats every period bytes, which every codec
// compresses well; with period 0 it is a xorshift stream no codec can
// shrink.
func Payload(seed uint64, size, period int) []byte {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	state := seed
	next := func() byte {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return byte(state >> 24)
	}

	output := make([]byte, size)
	for i := range output {
		if period > 0 && i >= period {
			output[i] = output[i-period]
			continue
		}
		output[i] = next()
	}
	return output
}
