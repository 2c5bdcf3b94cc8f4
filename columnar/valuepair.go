// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

import (
	"encoding/binary"
	"math"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/value"
	"github.com/ldoc/ldoc/varint"
)

// ValueTag labels the variant carried by a value-meta/value-raw pair
// (spec §4.2).
type ValueTag uint8

const (
	TagNull ValueTag = iota
	TagFalse
	TagTrue
	TagUint
	TagInt
	TagFloat64
	TagUTF8
	TagBytes
	TagCounter
	TagTimestamp
)

// ValuePairEncoder accumulates the value_meta and value_raw columns
// together (spec §4.2/§4.4).
type ValuePairEncoder struct {
	Meta []byte
	Raw  []byte
}

func NewValuePairEncoder() *ValuePairEncoder { return &ValuePairEncoder{} }

// AppendValue encodes val (a ScalarValue or an object-creation ObjType) as
// a (meta, raw) pair, appending to the accumulated columns.
func (e *ValuePairEncoder) AppendValue(v value.Value) {
	rawStart := len(e.Raw)
	var tag ValueTag
	if v.IsObject() {
		e.Raw = varint.AppendUint(e.Raw, uint64(v.ObjType))
		tag = TagUint
	} else {
		tag = e.appendScalar(v.Scalar)
	}
	rawLen := uint64(len(e.Raw) - rawStart)
	meta := (rawLen << 4) | uint64(tag)
	e.Meta = varint.AppendUint(e.Meta, meta)
}

func (e *ValuePairEncoder) appendScalar(sv value.ScalarValue) ValueTag {
	switch sv.Kind {
	case value.KindNull:
		return TagNull
	case value.KindBool:
		if sv.Bool {
			return TagTrue
		}
		return TagFalse
	case value.KindUint:
		e.Raw = varint.AppendUint(e.Raw, sv.Uint)
		return TagUint
	case value.KindInt:
		e.Raw = varint.AppendInt(e.Raw, sv.Int)
		return TagInt
	case value.KindFloat:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(sv.Float))
		e.Raw = append(e.Raw, buf[:]...)
		return TagFloat64
	case value.KindStr:
		e.Raw = append(e.Raw, sv.Str...)
		return TagUTF8
	case value.KindBytes:
		e.Raw = append(e.Raw, sv.Bytes...)
		return TagBytes
	case value.KindCounter:
		e.Raw = varint.AppendInt(e.Raw, sv.Int)
		return TagCounter
	case value.KindTimestamp:
		e.Raw = varint.AppendInt(e.Raw, sv.Int)
		return TagTimestamp
	}
	return TagNull
}

// DecodeValuePair decodes one value at the given meta/raw cursors,
// returning the decoded Value and the new cursor positions.
func DecodeValuePair(meta []byte, metaPos int, raw []byte, rawPos int) (value.Value, int, int, error) {
	m, n, err := varint.DecodeUint(meta[metaPos:])
	if err != nil {
		return value.Value{}, 0, 0, err
	}
	metaPos += n
	tag := ValueTag(m & 0x0f)
	rawLen := int(m >> 4)
	if rawPos+rawLen > len(raw) {
		return value.Value{}, 0, 0, docerr.New(docerr.KindDecoding, "value_raw truncated")
	}
	span := raw[rawPos : rawPos+rawLen]

	switch tag {
	case TagNull:
		return value.FromScalar(value.Null()), metaPos, rawPos + rawLen, nil
	case TagFalse:
		return value.FromScalar(value.Bool(false)), metaPos, rawPos + rawLen, nil
	case TagTrue:
		return value.FromScalar(value.Bool(true)), metaPos, rawPos + rawLen, nil
	case TagUint:
		v, _, err := varint.DecodeUint(span)
		if err != nil {
			return value.Value{}, 0, 0, err
		}
		return value.FromScalar(value.Uint(v)), metaPos, rawPos + rawLen, nil
	case TagInt:
		v, _, err := varint.DecodeInt(span)
		if err != nil {
			return value.Value{}, 0, 0, err
		}
		return value.FromScalar(value.Int(v)), metaPos, rawPos + rawLen, nil
	case TagFloat64:
		if rawLen != 8 {
			return value.Value{}, 0, 0, docerr.New(docerr.KindDecoding, "float64 value must be 8 bytes")
		}
		bits := binary.LittleEndian.Uint64(span)
		return value.FromScalar(value.Float(math.Float64frombits(bits))), metaPos, rawPos + rawLen, nil
	case TagUTF8:
		return value.FromScalar(value.Str(string(span))), metaPos, rawPos + rawLen, nil
	case TagBytes:
		b := make([]byte, rawLen)
		copy(b, span)
		return value.FromScalar(value.RawBytes(b)), metaPos, rawPos + rawLen, nil
	case TagCounter:
		v, _, err := varint.DecodeInt(span)
		if err != nil {
			return value.Value{}, 0, 0, err
		}
		return value.FromScalar(value.Counter(v)), metaPos, rawPos + rawLen, nil
	case TagTimestamp:
		v, _, err := varint.DecodeInt(span)
		if err != nil {
			return value.Value{}, 0, 0, err
		}
		return value.FromScalar(value.Timestamp(v)), metaPos, rawPos + rawLen, nil
	}
	return value.Value{}, 0, 0, docerr.New(docerr.KindDecoding, "unknown value tag")
}

// DecodeObjTypeValue decodes a value known to be a make_object op's type tag
// (always encoded as TagUint carrying the ObjType ordinal).
func DecodeObjTypeValue(v value.Value) value.ObjType {
	if v.IsScalar() && v.Scalar.Kind == value.KindUint {
		return value.ObjType(v.Scalar.Uint)
	}
	return value.ObjMap
}
