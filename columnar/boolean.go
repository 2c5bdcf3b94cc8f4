// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

import "github.com/ldoc/ldoc/varint"

// BooleanEncoder emits alternating runs of false and true counts, starting
// with a false count (possibly 0), each count unsigned-LEB (spec §4.2).
type BooleanEncoder struct {
	data    []byte
	current bool
	count   uint64
}

func NewBooleanEncoder() *BooleanEncoder { return &BooleanEncoder{} }

func (e *BooleanEncoder) Append(v bool) {
	if v == e.current {
		e.count++
		return
	}
	e.data = varint.AppendUint(e.data, e.count)
	e.count = 1
	e.current = v
}

func (e *BooleanEncoder) Finish() []byte {
	if e.count > 0 {
		e.data = varint.AppendUint(e.data, e.count)
	}
	return e.data
}

// BooleanDecoder replays a BooleanEncoder stream.
type BooleanDecoder struct {
	data      []byte
	pos       int
	current   bool
	remaining uint64
}

func NewBooleanDecoder(data []byte) *BooleanDecoder { return &BooleanDecoder{data: data} }

func (d *BooleanDecoder) Done() bool { return d.pos >= len(d.data) && d.remaining == 0 }

func (d *BooleanDecoder) Next() (v bool, ok bool, err error) {
	for d.remaining == 0 {
		if d.pos >= len(d.data) {
			return false, false, nil
		}
		count, n, err := varint.DecodeUint(d.data[d.pos:])
		if err != nil {
			return false, false, err
		}
		d.pos += n
		d.remaining = count
		if d.remaining == 0 {
			d.current = !d.current
		}
	}
	d.remaining--
	result := d.current
	if d.remaining == 0 {
		d.current = !d.current
	}
	return result, true, nil
}
