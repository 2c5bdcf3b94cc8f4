// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package docid defines the identity types of the document model: actors,
// operation ids, object ids and change hashes (spec §3.1).
package docid

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
)

// ActorIdLen is the fixed byte length of an ActorId.
const ActorIdLen = 16

// ActorId is a fixed 16-byte opaque peer identifier, lexicographically
// ordered on its raw bytes.
type ActorId [ActorIdLen]byte

// NewActorId mints a fresh, random ActorId via google/uuid, the way
// NewDocument and Fork derive a peer identity distinct from any other.
func NewActorId() ActorId {
	var a ActorId
	copy(a[:], uuid.New()[:])
	return a
}

// ActorIdFromBytes copies b (which must be ActorIdLen bytes) into an ActorId.
func ActorIdFromBytes(b []byte) ActorId {
	var a ActorId
	copy(a[:], b)
	return a
}

func (a ActorId) Bytes() []byte { return a[:] }

func (a ActorId) String() string { return hex.EncodeToString(a[:]) }

// Cmp orders two ActorIds lexicographically on raw bytes.
func (a ActorId) Cmp(b ActorId) int { return bytes.Compare(a[:], b[:]) }

func (a ActorId) Less(b ActorId) bool { return a.Cmp(b) < 0 }

// OpId is a (counter, actor) pair. Ordering is counter ascending, then
// actor ascending on tie (spec §3.1).
type OpId struct {
	Counter uint64
	Actor   ActorId
}

// Less implements the OpId total order.
func (id OpId) Less(o OpId) bool {
	if id.Counter != o.Counter {
		return id.Counter < o.Counter
	}
	return id.Actor.Less(o.Actor)
}

// Cmp returns -1/0/1 the way sort.Slice comparators want it.
func (id OpId) Cmp(o OpId) int {
	if id.Counter != o.Counter {
		if id.Counter < o.Counter {
			return -1
		}
		return 1
	}
	return id.Actor.Cmp(o.Actor)
}

func (id OpId) IsZero() bool {
	return id.Counter == 0 && id.Actor == ActorId{}
}

func (id OpId) String() string {
	return id.Actor.String()[:8] + "@" + uitoa(id.Counter)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// ObjId identifies an object: either the distinguished root sentinel (the
// zero OpId, since real ops start at counter>=1) or the OpId of the
// operation that created the object.
type ObjId = OpId

// Root is the distinguished sentinel object id; it always exists and is
// always a map.
var Root = ObjId{}

func IsRoot(id ObjId) bool { return id.IsZero() }

// ChangeHash is the 32-byte content-addressed identifier of a change
// (spec §4.5/§4.7).
type ChangeHash [32]byte

func (h ChangeHash) Bytes() []byte { return h[:] }

func (h ChangeHash) String() string { return hex.EncodeToString(h[:]) }

func (h ChangeHash) Cmp(o ChangeHash) int { return bytes.Compare(h[:], o[:]) }

func (h ChangeHash) Less(o ChangeHash) bool { return h.Cmp(o) < 0 }

func (h ChangeHash) IsZero() bool { return h == ChangeHash{} }

// SortHashes sorts a slice of ChangeHash in ascending order, the
// "sorted by value" rule used for change deps (spec §4.5) and sync message
// fields (spec §6).
func SortHashes(hs []ChangeHash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Less(hs[j]) })
}

// PropKind tags a Prop as a map key or a list index.
type PropKind uint8

const (
	PropKey PropKind = iota
	PropIndex
)

// Prop is the tagged union of a map key or a non-negative list index
// (spec §3.1).
type Prop struct {
	Kind  PropKind
	Key   string
	Index int
}

func Key(k string) Prop { return Prop{Kind: PropKey, Key: k} }

func Index(i int) Prop { return Prop{Kind: PropIndex, Index: i} }

func (p Prop) IsKey() bool   { return p.Kind == PropKey }
func (p Prop) IsIndex() bool { return p.Kind == PropIndex }

func (p Prop) String() string {
	if p.IsKey() {
		return p.Key
	}
	return "[" + uitoa(uint64(p.Index)) + "]"
}
