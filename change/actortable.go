// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package change implements the serializer/deserializer of spec
// §4.4/§4.6: translating operations to and from the op-column table, and
// change/document chunk bodies built on top of it.
package change

import (
	"sort"

	"github.com/ldoc/ldoc/docid"
)

// ActorTable is a deduplicated, deterministically ordered list of actors
// referenced by a document or change chunk, local actor first (spec
// §4.6).
type ActorTable struct {
	actors []docid.ActorId
	index  map[docid.ActorId]uint32
}

// BuildActorTable places local first, then every other actor sorted
// ascending, deduplicated.
func BuildActorTable(local docid.ActorId, others []docid.ActorId) *ActorTable {
	seen := map[docid.ActorId]bool{local: true}
	rest := make([]docid.ActorId, 0, len(others))
	for _, a := range others {
		if !seen[a] {
			seen[a] = true
			rest = append(rest, a)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Less(rest[j]) })

	t := &ActorTable{actors: append([]docid.ActorId{local}, rest...), index: map[docid.ActorId]uint32{}}
	for i, a := range t.actors {
		t.index[a] = uint32(i)
	}
	return t
}

// ActorTableFromList wraps an already-ordered actor list (as read off the
// wire) without re-sorting it — decode must preserve the writer's order.
func ActorTableFromList(actors []docid.ActorId) *ActorTable {
	t := &ActorTable{actors: actors, index: map[docid.ActorId]uint32{}}
	for i, a := range actors {
		t.index[a] = uint32(i)
	}
	return t
}

// Index returns a's position in the table, adding it at the end if new.
func (t *ActorTable) Index(a docid.ActorId) uint32 {
	if idx, ok := t.index[a]; ok {
		return idx
	}
	idx := uint32(len(t.actors))
	t.actors = append(t.actors, a)
	t.index[a] = idx
	return idx
}

// At returns the actor at position idx.
func (t *ActorTable) At(idx uint32) docid.ActorId { return t.actors[idx] }

// Actors returns the table contents in order.
func (t *ActorTable) Actors() []docid.ActorId { return append([]docid.ActorId(nil), t.actors...) }

// Len returns the number of actors in the table.
func (t *ActorTable) Len() int { return len(t.actors) }
