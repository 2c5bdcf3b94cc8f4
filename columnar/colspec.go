// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package columnar

// ColumnType is one of the 8 column encoding kinds (spec §4.3).
type ColumnType uint8

const (
	ColGroupCard ColumnType = iota
	ColActorRLE
	ColDeltaInt
	ColBoolean
	ColStringRLE
	ColValueMeta
	ColValueRaw
	ColIntegerRLE
)

// ColumnSpec labels a column: (column_id<<4)|(deflate<<3)|column_type
// (spec §4.3).
type ColumnSpec struct {
	ColumnID uint32
	Type     ColumnType
	Deflate  bool
}

func (s ColumnSpec) ToU32() uint32 {
	d := uint32(0)
	if s.Deflate {
		d = 1
	}
	return (s.ColumnID << 4) | (d << 3) | uint32(s.Type)
}

func ColumnSpecFromU32(raw uint32) ColumnSpec {
	return ColumnSpec{
		ColumnID: raw >> 4,
		Type:     ColumnType(raw & 0x7),
		Deflate:  raw&0x8 != 0,
	}
}

// Well-known column ids (spec §4.4).
const (
	ColIDObjActor    uint32 = 0
	ColIDObjCounter  uint32 = 0
	ColIDKeyActor    uint32 = 1
	ColIDKeyCounter  uint32 = 1
	ColIDKeyString   uint32 = 1
	ColIDInsert      uint32 = 3
	ColIDAction      uint32 = 4
	ColIDValueMeta   uint32 = 5
	ColIDValueRaw    uint32 = 5
	ColIDPredGroup   uint32 = 7
	ColIDPredActor   uint32 = 7
	ColIDPredCounter uint32 = 7
	ColIDExpand      uint32 = 9
	ColIDMarkName    uint32 = 10
)
