// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"
	"sync/atomic"
)

// Codec is a stateless compress/decompress pair for one kind.
type Codec struct {
	Kind Kind

	// Compress encodes data. It returns [ErrIncompressible] when the
	// output would not be smaller than the input.
	Compress func(data []byte) ([]byte, error)

	// Decompress decodes data that must expand to exactly rawSize
	// bytes. Implementations may return a shorter or longer slice;
	// the registry checks the length.
	Decompress func(data []byte, rawSize int) ([]byte, error)

	// MaxRawSize is the most bytes storedSize encoded bytes can
	// decode to. Decode rejects larger raw sizes before Decompress
	// allocates for them. Nil means no bound.
	MaxRawSize func(storedSize int) int
}

// Registry maps kinds to codecs. A registry is populated first and
// then frozen by its first lookup: Register after that point panics,
// so lookups never observe a changing table and need no locking.
//
// The identity transform for [KindNone] is built in and cannot be
// replaced.
type Registry struct {
	codecs map[Kind]Codec
	frozen atomic.Bool
}

// NewRegistry returns a registry holding the given codecs. Tests use
// this to build registries with backends missing.
func NewRegistry(codecs ...Codec) *Registry {
	registry := &Registry{codecs: make(map[Kind]Codec)}
	for _, codec := range codecs {
		registry.Register(codec)
	}
	return registry
}

// Register adds a codec. It panics on a frozen registry, a duplicate
// kind, KindNone, or a codec with a nil function: these are
// programming errors in backend wiring, not runtime conditions.
func (r *Registry) Register(codec Codec) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("compress: Register(%s) after first lookup", codec.Kind))
	}
	if codec.Kind == KindNone {
		panic("compress: the identity codec is built in")
	}
	if codec.Compress == nil || codec.Decompress == nil {
		panic(fmt.Sprintf("compress: codec %s has a nil transform", codec.Kind))
	}
	if _, exists := r.codecs[codec.Kind]; exists {
		panic(fmt.Sprintf("compress: codec %s registered twice", codec.Kind))
	}
	r.codecs[codec.Kind] = codec
}

// Lookup returns the codec for kind, or an [UnavailableError].
func (r *Registry) Lookup(kind Kind) (Codec, error) {
	r.frozen.Store(true)
	if kind == KindNone {
		return identityCodec, nil
	}
	codec, ok := r.codecs[kind]
	if !ok {
		return Codec{}, &UnavailableError{Kind: kind}
	}
	return codec, nil
}

// Available returns nil if kind can be encoded and decoded, or an
// [UnavailableError] naming the missing capability.
func (r *Registry) Available(kind Kind) error {
	_, err := r.Lookup(kind)
	return err
}

// Kinds returns the kinds this registry can handle, identity first,
// then in ascending code order.
func (r *Registry) Kinds() []Kind {
	r.frozen.Store(true)
	kinds := []Kind{KindNone}
	for _, kind := range []Kind{KindLZ4, KindLZF, KindZstd} {
		if _, ok := r.codecs[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Encode compresses data with the codec for kind. For KindNone the
// input is returned unchanged (no copy).
func (r *Registry) Encode(kind Kind, data []byte) ([]byte, error) {
	codec, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	encoded, err := codec.Compress(data)
	if err != nil {
		if IsIncompressible(err) {
			return nil, err
		}
		return nil, &CodecError{Kind: kind, Op: "encode", Err: err}
	}
	return encoded, nil
}

// Decode decompresses data with the codec for kind and verifies the
// result is exactly expectedRawSize bytes.
func (r *Registry) Decode(kind Kind, data []byte, expectedRawSize int) ([]byte, error) {
	codec, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if expectedRawSize < 0 || (codec.MaxRawSize != nil && expectedRawSize > codec.MaxRawSize(len(data))) {
		return nil, &CodecError{
			Kind: kind,
			Op:   "decode",
			Err:  fmt.Errorf("%w: %d bytes cannot decode to %d", ErrImplausibleSize, len(data), expectedRawSize),
		}
	}
	decoded, err := codec.Decompress(data, expectedRawSize)
	if err != nil {
		return nil, &CodecError{Kind: kind, Op: "decode", Err: err}
	}
	if len(decoded) != expectedRawSize {
		return nil, &CodecError{
			Kind: kind,
			Op:   "decode",
			Err:  fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, len(decoded), expectedRawSize),
		}
	}
	return decoded, nil
}

var identityCodec = Codec{
	Kind: KindNone,
	Compress: func(data []byte) ([]byte, error) {
		return data, nil
	},
	Decompress: func(data []byte, rawSize int) ([]byte, error) {
		return data, nil
	},
}

// defaultRegistry is the process-wide registry. Backend files add to
// it from init, so it is complete before main runs.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// register adds a backend to the process-wide registry. Called only
// from init functions.
func register(codec Codec) {
	defaultRegistry.Register(codec)
}
