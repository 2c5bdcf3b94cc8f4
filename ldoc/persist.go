// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"github.com/ldoc/ldoc/change"
	"github.com/ldoc/ldoc/chunk"
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/opset"
)

// hashChange computes a change's content address from its encoded body
// (spec §4.5), the way a transaction's commit mints the hash for its own
// freshly-built change.
func hashChange(c dag.Change, isSeq change.ObjIsSequence) dag.Change {
	body := change.EncodeChangeBody(c, isSeq)
	c.Hash = chunk.ChangeHash(c.Deps, body)
	return c
}

// Save serializes the whole document as a single document chunk (spec
// §4.6): every change the DAG knows about, in topological order, plus
// local identity, heads and vector clock.
func (d *Document) Save() []byte {
	snapshot := change.DocumentSnapshot{
		LocalActor:  d.actor,
		NextCounter: d.nextCounter,
		LocalSeq:    d.localSeq,
		Changes:     d.GetChanges(),
		Heads:       d.dag.Heads(),
		VectorClock: d.dag.VectorClock(),
	}
	body := change.EncodeDocument(snapshot, d.isSequence)
	return chunk.Encode(chunk.Chunk{Type: chunk.TypeDocument, Body: body})
}

// Load reconstructs a document from bytes produced by Save. Every change
// is replayed into materialized state in the order it was stored, which
// Save guarantees is topologically valid.
func Load(data []byte) (*Document, error) {
	c, _, err := chunk.Decode(data)
	if err != nil {
		return nil, err
	}
	if c.Type != chunk.TypeDocument {
		return nil, docerr.New(docerr.KindInvalidDocument, "not a document chunk")
	}
	snapshot, err := change.DecodeDocument(c.Body)
	if err != nil {
		return nil, err
	}

	d := &Document{
		actor:       snapshot.LocalActor,
		nextCounter: snapshot.NextCounter,
		localSeq:    snapshot.LocalSeq,
		log:         opset.NewLog(),
		objects:     opset.New(),
		dag:         dag.New(),
	}
	for _, c := range snapshot.Changes {
		for _, op := range c.Ops {
			if d.log.Contains(op.ID) {
				continue
			}
			if err := d.objects.Apply(op); err != nil {
				return nil, err
			}
			d.log.Append(op)
		}
		// The document chunk stores no change hashes; re-derive each one.
		c = hashChange(c, d.isSequence)
		if err := d.dag.AddChange(c); err != nil {
			return nil, err
		}
	}
	d.dag.SetHeads(snapshot.Heads)
	d.dag.SetVectorClock(snapshot.VectorClock)
	return d, nil
}
