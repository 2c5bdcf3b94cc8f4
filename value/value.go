// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package value defines the tagged-union value model of spec §3.2: scalar
// values, composite object types, and the Value sum type that wraps either.
package value

import "fmt"

// ScalarKind tags the variant carried by a ScalarValue.
type ScalarKind uint8

const (
	KindNull ScalarKind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindCounter
	KindTimestamp
	KindStr
	KindBytes
)

// ScalarValue is one of: null, bool, signed/unsigned 64-bit, float64,
// Counter(i64), Timestamp(i64 ms), UTF-8 string, or raw bytes (spec §3.2).
type ScalarValue struct {
	Kind  ScalarKind
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Bytes []byte
}

func Null() ScalarValue                  { return ScalarValue{Kind: KindNull} }
func Bool(b bool) ScalarValue            { return ScalarValue{Kind: KindBool, Bool: b} }
func Int(i int64) ScalarValue            { return ScalarValue{Kind: KindInt, Int: i} }
func Uint(u uint64) ScalarValue          { return ScalarValue{Kind: KindUint, Uint: u} }
func Float(f float64) ScalarValue        { return ScalarValue{Kind: KindFloat, Float: f} }
func Counter(i int64) ScalarValue        { return ScalarValue{Kind: KindCounter, Int: i} }
func Timestamp(ms int64) ScalarValue     { return ScalarValue{Kind: KindTimestamp, Int: ms} }
func Str(s string) ScalarValue           { return ScalarValue{Kind: KindStr, Str: s} }
func RawBytes(b []byte) ScalarValue      { return ScalarValue{Kind: KindBytes, Bytes: b} }

func (v ScalarValue) IsNull() bool    { return v.Kind == KindNull }
func (v ScalarValue) IsCounter() bool { return v.Kind == KindCounter }

// Equal reports whether two scalars carry the same tag and payload.
func (v ScalarValue) Equal(o ScalarValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt, KindCounter, KindTimestamp:
		return v.Int == o.Int
	case KindUint:
		return v.Uint == o.Uint
	case KindFloat:
		return v.Float == o.Float
	case KindStr:
		return v.Str == o.Str
	case KindBytes:
		if len(v.Bytes) != len(o.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != o.Bytes[i] {
				return false
			}
		}
		return true
	}
	return false
}

func (v ScalarValue) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindCounter:
		return fmt.Sprintf("Counter(%d)", v.Int)
	case KindTimestamp:
		return fmt.Sprintf("Timestamp(%d)", v.Int)
	case KindStr:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.Bytes))
	}
	return "?"
}

// ObjType names the kind of a composite object (spec §3.2).
type ObjType uint8

const (
	ObjMap ObjType = iota
	ObjList
	ObjText
	ObjTable
)

func (t ObjType) String() string {
	switch t {
	case ObjMap:
		return "map"
	case ObjList:
		return "list"
	case ObjText:
		return "text"
	case ObjTable:
		return "table"
	}
	return "?"
}

// IsSequence reports whether objects of this type are ordered sequences
// (lists/text) as opposed to keyed (maps/tables).
func (t ObjType) IsSequence() bool { return t == ObjList || t == ObjText }

// ValueKind tags whether a Value carries a scalar or names a new object.
type ValueKind uint8

const (
	ValueScalar ValueKind = iota
	ValueObject
)

// Value is either a ScalarValue or an ObjType marking a make_object
// operation (spec §3.2).
type Value struct {
	Kind    ValueKind
	Scalar  ScalarValue
	ObjType ObjType
}

func FromScalar(s ScalarValue) Value { return Value{Kind: ValueScalar, Scalar: s} }

func NewObject(t ObjType) Value { return Value{Kind: ValueObject, ObjType: t} }

func (v Value) IsObject() bool { return v.Kind == ValueObject }
func (v Value) IsScalar() bool { return v.Kind == ValueScalar }

// Equal reports whether two values carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.IsObject() {
		return v.ObjType == o.ObjType
	}
	return v.Scalar.Equal(o.Scalar)
}

func (v Value) String() string {
	if v.IsObject() {
		return "new:" + v.ObjType.String()
	}
	return v.Scalar.String()
}
