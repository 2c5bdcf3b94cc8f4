// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package chunk implements the chunk envelope of spec §4.5: a magic
// number, a truncated content checksum, a type byte, and a length-prefixed
// body. Document and change payloads are both carried as chunks.
package chunk

import (
	"bytes"
	"io"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/ldoc/ldoc/dochash"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/varint"
)

// Magic identifies an ldoc chunk.
var Magic = [4]byte{0x85, 0x6F, 0x4A, 0x83}

// Type labels the payload carried by a chunk.
type Type byte

const (
	TypeDocument   Type = 0x00
	TypeChange     Type = 0x01
	TypeCompressed Type = 0x02
)

// Chunk is a parsed envelope: magic and checksum are not stored, they are
// recomputed on Encode and verified on Decode.
type Chunk struct {
	Type Type
	Body []byte
}

// Encode lays out magic | checksum | type | body_length | body.
func Encode(c Chunk) []byte {
	sum := dochash.Sum(c.Body)
	out := make([]byte, 0, 4+4+1+varint.MaxLen+len(c.Body))
	out = append(out, Magic[:]...)
	out = append(out, sum[:4]...)
	out = append(out, byte(c.Type))
	out = varint.AppendUint(out, uint64(len(c.Body)))
	out = append(out, c.Body...)
	return out
}

// Decode validates magic and checksum before returning the chunk. n is the
// number of bytes consumed, allowing callers to decode a stream of chunks.
func Decode(data []byte) (c Chunk, n int, err error) {
	if len(data) < 4+4+1 {
		return Chunk{}, 0, docerr.New(docerr.KindInvalidDocument, "chunk truncated")
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return Chunk{}, 0, docerr.New(docerr.KindInvalidDocument, "bad chunk magic")
	}
	checksum := data[4:8]
	typ := Type(data[8])
	rest := data[9:]

	bodyLen, m, err := varint.DecodeUint(rest)
	if err != nil {
		return Chunk{}, 0, docerr.Wrap(docerr.KindInvalidDocument, err, "chunk body length")
	}
	rest = rest[m:]
	if uint64(len(rest)) < bodyLen {
		return Chunk{}, 0, docerr.New(docerr.KindInvalidDocument, "chunk body truncated")
	}
	body := rest[:bodyLen]

	sum := dochash.Sum(body)
	if !bytes.Equal(sum[:4], checksum) {
		return Chunk{}, 0, docerr.New(docerr.KindInvalidDocument, "chunk checksum mismatch")
	}

	total := 9 + m + int(bodyLen)
	return Chunk{Type: typ, Body: body}, total, nil
}

// EncodeCompressed wraps innerType's body as a deflate-compressed chunk: the
// envelope type is TypeCompressed, and the body is innerType(1) followed by
// the unsigned-LEB uncompressed length and the deflate-compressed payload.
func EncodeCompressed(innerType Type, innerBody []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(innerBody); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	body := []byte{byte(innerType)}
	body = varint.AppendUint(body, uint64(len(innerBody)))
	body = append(body, buf.Bytes()...)
	return Encode(Chunk{Type: TypeCompressed, Body: body}), nil
}

// DecodeCompressed reverses EncodeCompressed, returning the inner chunk
// type and its decompressed body.
func DecodeCompressed(c Chunk) (innerType Type, innerBody []byte, err error) {
	if c.Type != TypeCompressed {
		return 0, nil, docerr.New(docerr.KindInvalidDocument, "not a compressed chunk")
	}
	if len(c.Body) < 1 {
		return 0, nil, docerr.New(docerr.KindInvalidDocument, "compressed chunk truncated")
	}
	innerType = Type(c.Body[0])
	rest := c.Body[1:]
	uncompLen, n, err := varint.DecodeUint(rest)
	if err != nil {
		return 0, nil, docerr.Wrap(docerr.KindInvalidDocument, err, "compressed chunk length")
	}
	rest = rest[n:]

	r := flate.NewReader(bytes.NewReader(rest))
	defer r.Close()
	out := make([]byte, 0, uncompLen)
	buf := make([]byte, 4096)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, nil, docerr.Wrap(docerr.KindInvalidDocument, readErr, "compressed chunk body")
		}
	}
	return innerType, out, nil
}

// ChangeHash computes a change's content address: hash(sorted_deps || 0x01
// || body), tying identity to both contents and causal parents (spec
// §4.5).
func ChangeHash(deps []docid.ChangeHash, body []byte) docid.ChangeHash {
	sorted := make([]docid.ChangeHash, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	parts := make([][]byte, 0, len(sorted)+2)
	for _, d := range sorted {
		parts = append(parts, d.Bytes())
	}
	parts = append(parts, []byte{byte(TypeChange)}, body)
	return dochash.SumChangeHash(parts...)
}
