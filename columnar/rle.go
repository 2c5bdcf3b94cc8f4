// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package columnar implements the column codecs of spec §4.2: run-length
// encoding over unsigned/signed/string values, delta encoding, boolean
// run-length, nullable wrappers, and the value meta/raw pair.
package columnar

import "github.com/ldoc/ldoc/varint"

// RLEValueKind selects which primitive a RLEEncoder/RLEDecoder carries.
type RLEValueKind uint8

const (
	RLEUint RLEValueKind = iota
	RLEInt
	RLEString
)

// rleItem is a decoded element: either a null, or a present value in one
// of the three primitive encodings.
type rleItem struct {
	Null bool
	U    uint64
	I    int64
	S    string
}

// RLEEncoder buffers one pending run or literal-group and flushes when the
// kind of input changes (spec §4.2).
type RLEEncoder struct {
	kind    RLEValueKind
	data    []byte
	hasRun  bool
	runU    uint64
	runI    int64
	runS    string
	runN    uint64
	nullN   uint64
	litU    []uint64
	litI    []int64
	litS    []string
}

func NewRLEEncoder(kind RLEValueKind) *RLEEncoder {
	return &RLEEncoder{kind: kind}
}

func (e *RLEEncoder) AppendUint(v uint64) {
	if e.hasRun && e.kind == RLEUint && e.runU == v {
		e.runN++
		return
	}
	e.flushRun()
	e.hasRun, e.runU, e.runN = true, v, 1
}

func (e *RLEEncoder) AppendInt(v int64) {
	if e.hasRun && e.kind == RLEInt && e.runI == v {
		e.runN++
		return
	}
	e.flushRun()
	e.hasRun, e.runI, e.runN = true, v, 1
}

func (e *RLEEncoder) AppendString(v string) {
	if e.hasRun && e.kind == RLEString && e.runS == v {
		e.runN++
		return
	}
	e.flushRun()
	e.hasRun, e.runS, e.runN = true, v, 1
}

func (e *RLEEncoder) AppendNull() {
	e.flushRun()
	e.flushLiterals()
	e.nullN++
}

func (e *RLEEncoder) Finish() []byte {
	e.flushRun()
	e.flushLiterals()
	e.flushNulls()
	return e.data
}

func (e *RLEEncoder) flushNulls() {
	if e.nullN > 0 {
		e.data = varint.AppendInt(e.data, 0)
		e.data = varint.AppendUint(e.data, e.nullN)
		e.nullN = 0
	}
}

func (e *RLEEncoder) flushRun() {
	e.flushNulls()
	if !e.hasRun {
		return
	}
	if e.runN == 1 {
		switch e.kind {
		case RLEUint:
			e.litU = append(e.litU, e.runU)
		case RLEInt:
			e.litI = append(e.litI, e.runI)
		case RLEString:
			e.litS = append(e.litS, e.runS)
		}
	} else {
		e.flushLiterals()
		e.data = varint.AppendInt(e.data, int64(e.runN))
		e.encodeValue()
	}
	e.hasRun = false
	e.runN = 0
}

func (e *RLEEncoder) flushLiterals() {
	n := e.litCount()
	if n == 0 {
		return
	}
	e.data = varint.AppendInt(e.data, -int64(n))
	switch e.kind {
	case RLEUint:
		for _, v := range e.litU {
			e.data = varint.AppendUint(e.data, v)
		}
		e.litU = nil
	case RLEInt:
		for _, v := range e.litI {
			e.data = varint.AppendInt(e.data, v)
		}
		e.litI = nil
	case RLEString:
		for _, v := range e.litS {
			e.data = appendString(e.data, v)
		}
		e.litS = nil
	}
}

func (e *RLEEncoder) litCount() int {
	switch e.kind {
	case RLEUint:
		return len(e.litU)
	case RLEInt:
		return len(e.litI)
	default:
		return len(e.litS)
	}
}

func (e *RLEEncoder) encodeValue() {
	switch e.kind {
	case RLEUint:
		e.data = varint.AppendUint(e.data, e.runU)
	case RLEInt:
		e.data = varint.AppendInt(e.data, e.runI)
	case RLEString:
		e.data = appendString(e.data, e.runS)
	}
}

func appendString(dst []byte, s string) []byte {
	dst = varint.AppendUint(dst, uint64(len(s)))
	return append(dst, s...)
}

// RLEDecoder replays an encoded stream produced by RLEEncoder.
type RLEDecoder struct {
	kind RLEValueKind
	data []byte
	pos  int

	runRemaining     uint64
	runU             uint64
	runI             int64
	runS             string
	literalRemaining uint64
	nullRemaining    uint64
}

func NewRLEDecoder(kind RLEValueKind, data []byte) *RLEDecoder {
	return &RLEDecoder{kind: kind, data: data}
}

// Done reports whether the stream is fully consumed.
func (d *RLEDecoder) Done() bool {
	return d.pos >= len(d.data) && d.runRemaining == 0 && d.literalRemaining == 0 && d.nullRemaining == 0
}

// Next returns the next decoded item, or ok=false at end of stream.
func (d *RLEDecoder) next() (rleItem, bool, error) {
	if d.nullRemaining > 0 {
		d.nullRemaining--
		return rleItem{Null: true}, true, nil
	}
	if d.runRemaining > 0 {
		d.runRemaining--
		return d.runItem(), true, nil
	}
	if d.literalRemaining > 0 {
		d.literalRemaining--
		item, err := d.decodeValue()
		if err != nil {
			return rleItem{}, false, err
		}
		return item, true, nil
	}
	if d.pos >= len(d.data) {
		return rleItem{}, false, nil
	}
	control, n, err := varint.DecodeInt(d.data[d.pos:])
	if err != nil {
		return rleItem{}, false, err
	}
	d.pos += n
	switch {
	case control == 0:
		count, n, err := varint.DecodeUint(d.data[d.pos:])
		if err != nil {
			return rleItem{}, false, err
		}
		d.pos += n
		if count == 0 {
			return rleItem{}, false, nil
		}
		d.nullRemaining = count - 1
		return rleItem{Null: true}, true, nil
	case control > 0:
		item, err := d.decodeValue()
		if err != nil {
			return rleItem{}, false, err
		}
		d.setRun(item)
		d.runRemaining = uint64(control) - 1
		return item, true, nil
	default:
		d.literalRemaining = uint64(-control) - 1
		item, err := d.decodeValue()
		if err != nil {
			return rleItem{}, false, err
		}
		return item, true, nil
	}
}

func (d *RLEDecoder) setRun(item rleItem) {
	switch d.kind {
	case RLEUint:
		d.runU = item.U
	case RLEInt:
		d.runI = item.I
	case RLEString:
		d.runS = item.S
	}
}

func (d *RLEDecoder) runItem() rleItem {
	switch d.kind {
	case RLEUint:
		return rleItem{U: d.runU}
	case RLEInt:
		return rleItem{I: d.runI}
	default:
		return rleItem{S: d.runS}
	}
}

func (d *RLEDecoder) decodeValue() (rleItem, error) {
	switch d.kind {
	case RLEUint:
		v, n, err := varint.DecodeUint(d.data[d.pos:])
		if err != nil {
			return rleItem{}, err
		}
		d.pos += n
		return rleItem{U: v}, nil
	case RLEInt:
		v, n, err := varint.DecodeInt(d.data[d.pos:])
		if err != nil {
			return rleItem{}, err
		}
		d.pos += n
		return rleItem{I: v}, nil
	default:
		l, n, err := varint.DecodeUint(d.data[d.pos:])
		if err != nil {
			return rleItem{}, err
		}
		d.pos += n
		if int(l) > len(d.data)-d.pos {
			return rleItem{}, errTruncated
		}
		s := string(d.data[d.pos : d.pos+int(l)])
		d.pos += int(l)
		return rleItem{S: s}, nil
	}
}

// NextUint decodes the next uint64 (or ok=false/isNull=true).
func (d *RLEDecoder) NextUint() (v uint64, isNull bool, ok bool, err error) {
	item, ok, err := d.next()
	if err != nil || !ok {
		return 0, false, ok, err
	}
	return item.U, item.Null, true, nil
}

// NextInt decodes the next int64 (or ok=false/isNull=true).
func (d *RLEDecoder) NextInt() (v int64, isNull bool, ok bool, err error) {
	item, ok, err := d.next()
	if err != nil || !ok {
		return 0, false, ok, err
	}
	return item.I, item.Null, true, nil
}

// NextString decodes the next string (or ok=false/isNull=true).
func (d *RLEDecoder) NextString() (v string, isNull bool, ok bool, err error) {
	item, ok, err := d.next()
	if err != nil || !ok {
		return "", false, ok, err
	}
	return item.S, item.Null, true, nil
}
