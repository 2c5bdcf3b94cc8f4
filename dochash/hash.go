// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package dochash computes the content-addressing digest used throughout
// ldoc: chunk checksums, change hashes, and Bloom-filter probe derivation
// (spec §8.4) all build on one fixed 256-bit hash.
//
// The digest is stdlib crypto/sha256 rather than a pack-provided hash
// function. It is pinned by spec, not chosen for convenience: content
// addresses and the round-trip/hash-stability property depend on every
// peer computing the exact same digest over the exact same bytes, so
// there is no substitutable "library choice" the way there is for, say,
// structured logging.
package dochash

import (
	"crypto/sha256"

	"github.com/ldoc/ldoc/docid"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Sum hashes the concatenation of data, returning the raw digest.
func Sum(data ...[]byte) [Size]byte {
	h := sha256.New()
	for _, b := range data {
		h.Write(b)
	}
	var out [Size]byte
	h.Sum(out[:0])
	return out
}

// SumChangeHash hashes data and wraps the digest as a docid.ChangeHash.
func SumChangeHash(data ...[]byte) docid.ChangeHash {
	return docid.ChangeHash(Sum(data...))
}

// Hasher accumulates bytes incrementally, mirroring the teacher's
// KeccakState-style streaming hash wrapper.
type Hasher struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (w *Hasher) Write(p []byte) (int, error) { return w.h.Write(p) }

func (w *Hasher) Reset() { w.h.Reset() }

// Sum returns the digest of everything written so far without resetting.
func (w *Hasher) Sum() [Size]byte {
	var out [Size]byte
	w.h.Sum(out[:0])
	return out
}
