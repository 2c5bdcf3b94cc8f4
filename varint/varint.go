// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package varint implements the unsigned and signed variable-length integer
// codecs of spec §4.1: 7-bit groups, little-endian by group, continuation
// bit set on every non-terminal byte.
package varint

import "github.com/ldoc/ldoc/docerr"

// MaxLen is the longest possible encoding of a 64-bit value under this
// codec (ceil(64/7) = 10 groups).
const MaxLen = 10

// AppendUint appends the unsigned-LEB128 encoding of v to dst and returns
// the result. Zero encodes as a single 0x00 byte.
func AppendUint(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		dst = append(dst, b)
		return dst
	}
}

// EncodeUint returns the unsigned-LEB128 encoding of v as a fresh slice.
func EncodeUint(v uint64) []byte { return AppendUint(nil, v) }

// DecodeUint decodes an unsigned-LEB128 integer from buf starting at
// offset 0, returning the value and the number of bytes consumed.
// Decoding returns a KindDecoding error on overflow (continuation bit past bit 63) or
// truncation (input ends mid-sequence).
func DecodeUint(buf []byte) (v uint64, n int, err error) {
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift >= 64 {
			return 0, 0, docerr.New(docerr.KindDecoding, "uvarint overflow")
		}
		chunk := uint64(b & 0x7f)
		if shift == 63 && chunk > 1 {
			return 0, 0, docerr.New(docerr.KindDecoding, "uvarint overflow")
		}
		v |= chunk << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, docerr.New(docerr.KindDecoding, "uvarint truncated")
}

// AppendInt appends the signed-LEB128 encoding of v to dst. Termination:
// once the remaining value equals 0 or -1 and the sign bit of the last
// 7-bit group already matches, emit and stop (spec §4.1).
func AppendInt(dst []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7 // arithmetic shift (int64)
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// EncodeInt returns the signed-LEB128 encoding of v as a fresh slice.
func EncodeInt(v int64) []byte { return AppendInt(nil, v) }

// DecodeInt decodes a signed-LEB128 integer from buf starting at offset 0,
// sign-extending the most significant decoded bit into the 64-bit result.
func DecodeInt(buf []byte) (v int64, n int, err error) {
	var result int64
	var shift uint
	var b byte
	i := 0
	for {
		if i >= len(buf) {
			return 0, 0, docerr.New(docerr.KindDecoding, "svarint truncated")
		}
		if shift >= 64 {
			return 0, 0, docerr.New(docerr.KindDecoding, "svarint overflow")
		}
		b = buf[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		i++
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	v = result
	n = i
	return
}
