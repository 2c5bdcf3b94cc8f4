// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package change

import (
	"github.com/ldoc/ldoc/columnar"
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/varint"
)

// DocumentSnapshot is everything a document chunk body carries (spec
// §4.6): the shared actor table, local identity, every change (already in
// a stable, topologically valid order), the DAG heads and the vector
// clock.
type DocumentSnapshot struct {
	LocalActor  docid.ActorId
	NextCounter uint64
	LocalSeq    uint64
	Changes     []dag.Change
	Heads       []docid.ChangeHash
	VectorClock map[docid.ActorId]uint64
}

// EncodeDocument lays out a document chunk body: actor table, local actor
// index, next-counter and local seq; then each change (actor index, seq,
// start_op, timestamp, optional message, deps, op count, op columns
// against the shared table); then DAG heads; then the vector clock (spec
// §4.6).
func EncodeDocument(d DocumentSnapshot, isSeq ObjIsSequence) []byte {
	others := make([]docid.ActorId, 0)
	seen := map[docid.ActorId]bool{d.LocalActor: true}
	addActor := func(a docid.ActorId) {
		if !seen[a] {
			seen[a] = true
			others = append(others, a)
		}
	}
	for _, c := range d.Changes {
		addActor(c.Actor)
		for _, op := range c.Ops {
			addActor(op.Obj.Actor)
			if op.InsertAfter != nil {
				addActor(op.InsertAfter.Actor)
			}
			for _, p := range op.Pred {
				addActor(p.Actor)
			}
		}
	}
	for a := range d.VectorClock {
		addActor(a)
	}
	table := BuildActorTable(d.LocalActor, others)

	var out []byte
	out = varint.AppendUint(out, uint64(table.Len()))
	for _, a := range table.Actors() {
		out = append(out, a.Bytes()...)
	}
	out = varint.AppendUint(out, uint64(table.Index(d.LocalActor)))
	out = varint.AppendUint(out, d.NextCounter)
	out = varint.AppendUint(out, d.LocalSeq)

	out = varint.AppendUint(out, uint64(len(d.Changes)))
	for _, c := range d.Changes {
		out = varint.AppendUint(out, uint64(table.Index(c.Actor)))
		out = varint.AppendUint(out, c.Seq)
		out = varint.AppendUint(out, c.StartOp)
		out = varint.AppendInt(out, c.Timestamp)
		if c.HasMsg {
			out = append(out, 1)
			out = varint.AppendUint(out, uint64(len(c.Message)))
			out = append(out, c.Message...)
		} else {
			out = append(out, 0)
		}

		deps := make([]docid.ChangeHash, len(c.Deps))
		copy(deps, c.Deps)
		docid.SortHashes(deps)
		out = varint.AppendUint(out, uint64(len(deps)))
		for _, dep := range deps {
			out = append(out, dep.Bytes()...)
		}

		out = varint.AppendUint(out, uint64(len(c.Ops)))
		cols := EncodeOpColumns(c.Ops, table, isSeq)
		colTable, _ := columnar.BuildTable(cols)
		out = varint.AppendUint(out, uint64(len(colTable)))
		out = append(out, colTable...)
	}

	heads := make([]docid.ChangeHash, len(d.Heads))
	copy(heads, d.Heads)
	docid.SortHashes(heads)
	out = varint.AppendUint(out, uint64(len(heads)))
	for _, h := range heads {
		out = append(out, h.Bytes()...)
	}

	out = varint.AppendUint(out, uint64(len(d.VectorClock)))
	actorsWithClock := make([]docid.ActorId, 0, len(d.VectorClock))
	for a := range d.VectorClock {
		actorsWithClock = append(actorsWithClock, a)
	}
	sortActorsByTableIndex(actorsWithClock, table)
	for _, a := range actorsWithClock {
		out = varint.AppendUint(out, uint64(table.Index(a)))
		out = varint.AppendUint(out, d.VectorClock[a])
	}

	return out
}

func sortActorsByTableIndex(actors []docid.ActorId, table *ActorTable) {
	idx := make(map[docid.ActorId]uint32, len(actors))
	for _, a := range actors {
		idx[a] = table.Index(a)
	}
	for i := 1; i < len(actors); i++ {
		for j := i; j > 0 && idx[actors[j-1]] > idx[actors[j]]; j-- {
			actors[j-1], actors[j] = actors[j], actors[j-1]
		}
	}
}

// DecodeDocument reverses EncodeDocument. Each decoded change's Hash is
// left zero; callers recompute it via chunk.ChangeHash(deps, body) if
// needed, or trust the source if re-deriving from a verified chunk.
func DecodeDocument(body []byte) (DocumentSnapshot, error) {
	pos := 0
	actorCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "actor table count")
	}
	pos += n
	actors := make([]docid.ActorId, actorCount)
	for i := range actors {
		if pos+docid.ActorIdLen > len(body) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "actor table truncated")
		}
		actors[i] = docid.ActorIdFromBytes(body[pos : pos+docid.ActorIdLen])
		pos += docid.ActorIdLen
	}
	table := ActorTableFromList(actors)

	localIdx, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "local actor index")
	}
	pos += n
	if localIdx >= uint64(len(actors)) {
		return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "local actor index out of range")
	}

	nextCounter, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "next counter")
	}
	pos += n

	localSeq, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "local seq")
	}
	pos += n

	changeCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "change count")
	}
	pos += n

	changes := make([]dag.Change, changeCount)
	for i := range changes {
		actorIdx, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "change actor index")
		}
		pos += n
		if actorIdx >= uint64(len(actors)) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "change actor index out of range")
		}
		author := actors[actorIdx]

		seq, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "change seq")
		}
		pos += n

		startOp, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "change start_op")
		}
		pos += n

		timestamp, n, err := varint.DecodeInt(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "change timestamp")
		}
		pos += n

		if pos >= len(body) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "change body truncated before message flag")
		}
		hasMsg := body[pos] == 1
		pos++
		var message string
		if hasMsg {
			msgLen, n, err := varint.DecodeUint(body[pos:])
			if err != nil {
				return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "message length")
			}
			pos += n
			if pos+int(msgLen) > len(body) {
				return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "message truncated")
			}
			message = string(body[pos : pos+int(msgLen)])
			pos += int(msgLen)
		}

		depCount, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "dep count")
		}
		pos += n
		deps := make([]docid.ChangeHash, depCount)
		for j := range deps {
			if pos+32 > len(body) {
				return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "deps truncated")
			}
			var h docid.ChangeHash
			copy(h[:], body[pos:pos+32])
			deps[j] = h
			pos += 32
		}

		opCount, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "op count")
		}
		pos += n

		colTableLen, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "column table length")
		}
		pos += n
		if pos+int(colTableLen) > len(body) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "column table truncated")
		}
		cols, err := columnar.ParseTable(body[pos : pos+int(colTableLen)])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "op columns")
		}
		pos += int(colTableLen)

		ops, err := DecodeOpColumns(cols, int(opCount), table, startOp, author)
		if err != nil {
			return DocumentSnapshot{}, err
		}

		changes[i] = dag.Change{
			Actor: author, Seq: seq, StartOp: startOp, Timestamp: timestamp,
			Message: message, HasMsg: hasMsg, Deps: deps, Ops: ops,
		}
	}

	headCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "head count")
	}
	pos += n
	heads := make([]docid.ChangeHash, headCount)
	for i := range heads {
		if pos+32 > len(body) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "heads truncated")
		}
		var h docid.ChangeHash
		copy(h[:], body[pos:pos+32])
		heads[i] = h
		pos += 32
	}

	clockCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "vector clock count")
	}
	pos += n
	clock := make(map[docid.ActorId]uint64, clockCount)
	for i := uint64(0); i < clockCount; i++ {
		actorIdx, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "vector clock actor index")
		}
		pos += n
		if actorIdx >= uint64(len(actors)) {
			return DocumentSnapshot{}, docerr.New(docerr.KindDecoding, "vector clock actor index out of range")
		}
		seq, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return DocumentSnapshot{}, docerr.Wrap(docerr.KindDecoding, err, "vector clock seq")
		}
		pos += n
		clock[actors[actorIdx]] = seq
	}

	return DocumentSnapshot{
		LocalActor:  actors[localIdx],
		NextCounter: nextCounter,
		LocalSeq:    localSeq,
		Changes:     changes,
		Heads:       heads,
		VectorClock: clock,
	}, nil
}
