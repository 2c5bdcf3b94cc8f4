// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

// DeltaEncoder wraps signed-RLE, emitting differences between consecutive
// values with the accumulator reset to 0 at the start (spec §4.2).
type DeltaEncoder struct {
	rle  *RLEEncoder
	prev int64
}

func NewDeltaEncoder() *DeltaEncoder {
	return &DeltaEncoder{rle: NewRLEEncoder(RLEInt)}
}

func (e *DeltaEncoder) Append(v int64) {
	delta := v - e.prev
	e.prev = v
	e.rle.AppendInt(delta)
}

func (e *DeltaEncoder) AppendNull() { e.rle.AppendNull() }

func (e *DeltaEncoder) Finish() []byte { return e.rle.Finish() }

// DeltaDecoder replays a DeltaEncoder stream, re-accumulating absolute
// values; null entries don't advance the accumulator.
type DeltaDecoder struct {
	rle      *RLEDecoder
	absolute int64
}

func NewDeltaDecoder(data []byte) *DeltaDecoder {
	return &DeltaDecoder{rle: NewRLEDecoder(RLEInt, data)}
}

func (d *DeltaDecoder) Done() bool { return d.rle.Done() }

// Next returns the next absolute value, isNull, ok, err.
func (d *DeltaDecoder) Next() (v int64, isNull bool, ok bool, err error) {
	delta, isNull, ok, err := d.rle.NextInt()
	if err != nil || !ok {
		return 0, false, ok, err
	}
	if isNull {
		return 0, true, true, nil
	}
	d.absolute += delta
	return d.absolute, false, true, nil
}
