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

// EncodeChangeBody lays out one change's payload (spec §4.6): an embedded
// actor table (change author first), author index, seq, start_op,
// timestamp, optional message, sorted dependency hashes, operation count,
// then the op-column table. This body is what feeds the change's
// content-address hash (spec §4.5) and what a chunk envelope carries.
func EncodeChangeBody(c dag.Change, isSeq ObjIsSequence) []byte {
	others := make([]docid.ActorId, 0)
	seen := map[docid.ActorId]bool{c.Actor: true}
	for _, op := range c.Ops {
		for _, a := range []docid.ActorId{op.Obj.Actor} {
			if !seen[a] {
				seen[a] = true
				others = append(others, a)
			}
		}
		if op.InsertAfter != nil && !seen[op.InsertAfter.Actor] {
			seen[op.InsertAfter.Actor] = true
			others = append(others, op.InsertAfter.Actor)
		}
		for _, p := range op.Pred {
			if !seen[p.Actor] {
				seen[p.Actor] = true
				others = append(others, p.Actor)
			}
		}
	}
	table := BuildActorTable(c.Actor, others)

	var out []byte
	out = varint.AppendUint(out, uint64(table.Len()))
	for _, a := range table.Actors() {
		out = append(out, a.Bytes()...)
	}
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
	for _, d := range deps {
		out = append(out, d.Bytes()...)
	}

	out = varint.AppendUint(out, uint64(len(c.Ops)))

	cols := EncodeOpColumns(c.Ops, table, isSeq)
	colTable, _ := columnar.BuildTable(cols)
	out = append(out, colTable...)

	return out
}

// DecodeChangeBody reverses EncodeChangeBody. The returned Change's Hash
// field is left zero; callers compute it via chunk.ChangeHash(deps, body).
func DecodeChangeBody(body []byte) (dag.Change, error) {
	pos := 0
	actorCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "actor table count")
	}
	pos += n

	actors := make([]docid.ActorId, actorCount)
	for i := range actors {
		if pos+docid.ActorIdLen > len(body) {
			return dag.Change{}, docerr.New(docerr.KindDecoding, "actor table truncated")
		}
		actors[i] = docid.ActorIdFromBytes(body[pos : pos+docid.ActorIdLen])
		pos += docid.ActorIdLen
	}
	table := ActorTableFromList(actors)

	authorIdx, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "author index")
	}
	pos += n
	if authorIdx >= uint64(len(actors)) {
		return dag.Change{}, docerr.New(docerr.KindDecoding, "author index out of range")
	}
	author := actors[authorIdx]

	seq, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "seq")
	}
	pos += n

	startOp, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "start_op")
	}
	pos += n

	timestamp, n, err := varint.DecodeInt(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "timestamp")
	}
	pos += n

	if pos >= len(body) {
		return dag.Change{}, docerr.New(docerr.KindDecoding, "change body truncated before message flag")
	}
	hasMsg := body[pos] == 1
	pos++
	var message string
	if hasMsg {
		msgLen, n, err := varint.DecodeUint(body[pos:])
		if err != nil {
			return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "message length")
		}
		pos += n
		if pos+int(msgLen) > len(body) {
			return dag.Change{}, docerr.New(docerr.KindDecoding, "message truncated")
		}
		message = string(body[pos : pos+int(msgLen)])
		pos += int(msgLen)
	}

	depCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "dep count")
	}
	pos += n
	deps := make([]docid.ChangeHash, depCount)
	for i := range deps {
		if pos+32 > len(body) {
			return dag.Change{}, docerr.New(docerr.KindDecoding, "deps truncated")
		}
		var h docid.ChangeHash
		copy(h[:], body[pos:pos+32])
		deps[i] = h
		pos += 32
	}

	opCount, n, err := varint.DecodeUint(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "op count")
	}
	pos += n

	cols, err := columnar.ParseTable(body[pos:])
	if err != nil {
		return dag.Change{}, docerr.Wrap(docerr.KindDecoding, err, "op columns")
	}
	ops, err := DecodeOpColumns(cols, int(opCount), table, startOp, author)
	if err != nil {
		return dag.Change{}, err
	}

	return dag.Change{
		Actor:     author,
		Seq:       seq,
		StartOp:   startOp,
		Timestamp: timestamp,
		Message:   message,
		HasMsg:    hasMsg,
		Deps:      deps,
		Ops:       ops,
	}, nil
}
