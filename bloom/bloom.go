// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package bloom implements the fixed-parameter change-hash summary of spec
// §4.10: a peer advertises which changes it has without shipping the full
// hash list, at the cost of bounded false positives.
package bloom

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/varint"
)

const (
	// BitsPerEntry and Probes are fixed by spec §4.10, not configurable.
	BitsPerEntry = 10
	Probes       = 7
)

// Filter is a Bloom summary over a set of change hashes.
type Filter struct {
	entries  uint64
	bitCount uint64
	bits     *bitset.BitSet
}

// New returns an empty filter sized for the given entry count.
func New(entries uint64) *Filter {
	bitCount := (BitsPerEntry * entries)
	f := &Filter{entries: entries, bitCount: bitCount}
	if bitCount > 0 {
		f.bits = bitset.New(uint(bitCount))
	}
	return f
}

// Build constructs a filter sized and populated for exactly these hashes.
func Build(hashes []docid.ChangeHash) *Filter {
	f := New(uint64(len(hashes)))
	for _, h := range hashes {
		f.Add(h)
	}
	return f
}

// Add sets every probe bit for h. A no-op on an empty (zero-size) filter.
func (f *Filter) Add(h docid.ChangeHash) {
	if f.bitCount == 0 {
		return
	}
	for _, p := range probeIndices(h, f.bitCount) {
		f.bits.Set(uint(p))
	}
}

// Test reports whether h is "present" — every probe bit set. False on an
// empty filter, since no hash can be present in a zero-bit summary.
func (f *Filter) Test(h docid.ChangeHash) bool {
	if f.bitCount == 0 {
		return false
	}
	for _, p := range probeIndices(h, f.bitCount) {
		if !f.bits.Test(uint(p)) {
			return false
		}
	}
	return true
}

// probeIndices derives the Probes bit positions for h (spec §4.10): the
// first 12 bytes of the hash read as three little-endian uint32s x, y, z,
// each reduced mod m (the bit count); x is probe 0, and each subsequent
// probe advances x += y, y += y's own successor z (mod m).
func probeIndices(h docid.ChangeHash, m uint64) []uint64 {
	x := uint64(binary.LittleEndian.Uint32(h[0:4])) % m
	y := uint64(binary.LittleEndian.Uint32(h[4:8])) % m
	z := uint64(binary.LittleEndian.Uint32(h[8:12])) % m

	out := make([]uint64, Probes)
	out[0] = x
	for i := 1; i < Probes; i++ {
		x = (x + y) % m
		y = (y + z) % m
		out[i] = x
	}
	return out
}

// Marshal serializes the filter as LEB(entries) | LEB(bits_per_entry) |
// LEB(probes) | raw_bits, raw_bits packing bit i into byte i>>3 at bit
// i&7, little-endian within the byte (spec §4.10).
func (f *Filter) Marshal() []byte {
	out := varint.AppendUint(nil, f.entries)
	out = varint.AppendUint(out, BitsPerEntry)
	out = varint.AppendUint(out, Probes)

	byteLen := (f.bitCount + 7) / 8
	raw := make([]byte, byteLen)
	if f.bits != nil {
		for i := uint64(0); i < f.bitCount; i++ {
			if f.bits.Test(uint(i)) {
				raw[i/8] |= 1 << (i % 8)
			}
		}
	}
	return append(out, raw...)
}

// Unmarshal parses the wire form produced by Marshal. Filters built with a
// bits-per-entry/probes count other than the fixed constants are rejected:
// this implementation only ever speaks the one fixed parameterization.
func Unmarshal(data []byte) (*Filter, error) {
	entries, n, err := varint.DecodeUint(data)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindDecoding, err, "bloom entries")
	}
	data = data[n:]

	bitsPerEntry, n, err := varint.DecodeUint(data)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindDecoding, err, "bloom bits_per_entry")
	}
	data = data[n:]
	if bitsPerEntry != BitsPerEntry {
		return nil, docerr.New(docerr.KindDecoding, "unsupported bloom bits_per_entry")
	}

	probes, n, err := varint.DecodeUint(data)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindDecoding, err, "bloom probes")
	}
	data = data[n:]
	if probes != Probes {
		return nil, docerr.New(docerr.KindDecoding, "unsupported bloom probes")
	}

	f := New(entries)
	byteLen := int((f.bitCount + 7) / 8)
	if len(data) < byteLen {
		return nil, docerr.New(docerr.KindDecoding, "bloom bit vector truncated")
	}
	if f.bits != nil {
		for i := uint64(0); i < f.bitCount; i++ {
			if data[i/8]&(1<<(i%8)) != 0 {
				f.bits.Set(uint(i))
			}
		}
	}
	return f, nil
}
