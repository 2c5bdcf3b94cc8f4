// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

import (
	"bytes"
	"io"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/varint"
)

// deflateThreshold is the body size (in bytes) past which a column body
// may be compressed (spec §4.3, "≈256 bytes").
const deflateThreshold = 256

// Column is one (spec, body) pair prior to being written into a column
// header table.
type Column struct {
	Spec ColumnSpec
	Body []byte
}

// BuildTable lays out columns in ascending spec order and compresses any
// body over the threshold, setting each spec's deflate flag (spec §4.3).
// It returns the header table followed by the concatenated column bodies.
func BuildTable(columns []Column) ([]byte, error) {
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Spec.ToU32() < columns[j].Spec.ToU32()
	})

	type encoded struct {
		spec ColumnSpec
		body []byte
	}
	out := make([]encoded, 0, len(columns))
	for _, c := range columns {
		if len(c.Body) == 0 {
			continue
		}
		spec := c.Spec
		body := c.Body
		if len(body) > deflateThreshold {
			compressed, err := deflateBytes(body)
			if err == nil && len(compressed) < len(body) {
				spec.Deflate = true
				withLen := varint.AppendUint(nil, uint64(len(body)))
				body = append(withLen, compressed...)
			}
		}
		out = append(out, encoded{spec: spec, body: body})
	}

	var header, bodies []byte
	for _, e := range out {
		header = varint.AppendUint(header, uint64(e.spec.ToU32()))
		header = varint.AppendUint(header, uint64(len(e.body)))
		bodies = append(bodies, e.body...)
	}
	return append(header, bodies...), nil
}

// ParseTable parses a column header table followed by column bodies,
// decompressing any column whose deflate flag is set. Parsers detect the
// end of the header table when a new spec is not strictly greater than the
// previous one (spec §4.3).
func ParseTable(data []byte) ([]Column, error) {
	var specs []ColumnSpec
	var lens []uint64
	pos := 0
	prev := int64(-1)
	for pos < len(data) {
		specRaw, n, err := varint.DecodeUint(data[pos:])
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "column spec")
		}
		if int64(specRaw) <= prev {
			break
		}
		specPos := pos
		pos += n
		length, n2, err := varint.DecodeUint(data[pos:])
		if err != nil {
			return nil, docerr.Wrap(docerr.KindDecoding, err, "column length")
		}
		pos += n2
		_ = specPos
		specs = append(specs, ColumnSpecFromU32(uint32(specRaw)))
		lens = append(lens, length)
		prev = int64(specRaw)
	}

	cols := make([]Column, 0, len(specs))
	for i, spec := range specs {
		l := int(lens[i])
		if pos+l > len(data) {
			return nil, docerr.New(docerr.KindDecoding, "column body truncated")
		}
		body := data[pos : pos+l]
		pos += l
		if spec.Deflate {
			uncompLen, n, err := varint.DecodeUint(body)
			if err != nil {
				return nil, docerr.Wrap(docerr.KindDecoding, err, "deflate length")
			}
			plain, err := inflateBytes(body[n:], int(uncompLen))
			if err != nil {
				return nil, docerr.Wrap(docerr.KindDecoding, err, "deflate body")
			}
			body = plain
		}
		cols = append(cols, Column{Spec: spec, Body: body})
	}
	return cols, nil
}

func deflateBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflateBytes(b []byte, expectedLen int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	out := make([]byte, 0, expectedLen)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Find returns the column with the given id/type combination, or ok=false.
func Find(cols []Column, id uint32, typ ColumnType) (Column, bool) {
	for _, c := range cols {
		if c.Spec.ColumnID == id && c.Spec.Type == typ {
			return c, true
		}
	}
	return Column{}, false
}
