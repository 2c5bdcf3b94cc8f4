// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ldoc composes the op log, materialized state, change DAG,
// columnar codec and sync protocol packages into the document façade of
// spec §3.5/§4.8/§6: a local-first, mergeable, byte-serializable document.
package ldoc

import (
	stdsync "sync"

	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/xlog"
)

var log = xlog.Named("ldoc")

// Document is the top-level composed type: op log, materialized objects,
// change DAG and local identity, the way probe/backend.go composes a
// node's subsystem packages behind one entry point.
type Document struct {
	actor       docid.ActorId
	nextCounter uint64
	localSeq    uint64

	log     *opset.Log
	objects *opset.Objects
	dag     *dag.DAG

	mu stdsync.Mutex
}

// New creates an empty document: root map exists, next-counter is 1, a
// fresh random actor identity (spec §3.5).
func New() *Document {
	return newWithActor(docid.NewActorId())
}

// NewWithActor creates an empty document under a caller-supplied actor
// identity, useful for deterministic tests and multi-replica simulations.
func NewWithActor(actor docid.ActorId) *Document {
	return newWithActor(actor)
}

func newWithActor(actor docid.ActorId) *Document {
	return &Document{
		actor:       actor,
		nextCounter: 1,
		log:         opset.NewLog(),
		objects:     opset.New(),
		dag:         dag.New(),
	}
}

// Actor returns the document's local actor identity.
func (d *Document) Actor() docid.ActorId { return d.actor }

// SetActor reassigns the local actor identity. Callers typically only do
// this right after Fork, matching the "freshly-derived actor identity"
// requirement of spec §3.5.
func (d *Document) SetActor(a docid.ActorId) { d.actor = a }

// Locker exposes a mutex callers may use to serialize their own access to
// d (spec §5: single-writer/multi-reader is the caller's contract, not
// one this package enforces). Transact, View and friends never take this
// lock themselves; it exists purely as an opt-in escape hatch for a
// caller sharing one Document across goroutines.
func (d *Document) Locker() stdsync.Locker { return &d.mu }

// GetHeads returns the current DAG frontier, sorted ascending.
func (d *Document) GetHeads() []docid.ChangeHash { return d.dag.Heads() }

// GetChanges returns every change the document has recorded, in
// topological order.
func (d *Document) GetChanges() []dag.Change {
	order := d.dag.TopoOrder()
	out := make([]dag.Change, 0, len(order))
	for _, h := range order {
		c, _ := d.dag.Get(h)
		out = append(out, c)
	}
	return out
}

// isSequence reports whether obj names a list/text object, the closure
// the change package's column encoder needs to know how an op's target is
// addressed (spec §4.4).
func (d *Document) isSequence(obj docid.ObjId) bool {
	o, ok := d.objects.Get(obj)
	return ok && o.Type.IsSequence()
}

// applyChange replays every op of c into materialized state (skipping ops
// already seen, for idempotence per spec §4.7), then records c in the DAG
// and advances local bookkeeping. Deps must already be present; callers
// defer changes with missing parents.
func (d *Document) applyChange(c dag.Change) error {
	if d.dag.Has(c.Hash) {
		return nil
	}
	for _, op := range c.Ops {
		if d.log.Contains(op.ID) {
			continue
		}
		if err := d.objects.Apply(op); err != nil {
			return err
		}
		d.log.Append(op)
	}
	if err := d.dag.AddChange(c); err != nil {
		return err
	}
	if c.StartOp+uint64(len(c.Ops)) > d.nextCounter {
		d.nextCounter = c.StartOp + uint64(len(c.Ops))
	}
	if c.Actor == d.actor && c.Seq > d.localSeq {
		d.localSeq = c.Seq
	}
	return nil
}

// ApplyChanges folds a batch of changes into the document (spec §4.7):
// changes whose deps are satisfied apply immediately; the rest are
// retried until no further progress is made. Deps never satisfiable by
// this batch plus current history are reported via the returned error.
func (d *Document) ApplyChanges(changes []dag.Change) error {
	pending := make(map[docid.ChangeHash]dag.Change, len(changes))
	for _, c := range changes {
		pending[c.Hash] = c
	}
	for {
		progressed := false
		for h, c := range pending {
			ready := true
			for _, dep := range c.Deps {
				if !d.dag.Has(dep) {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			if err := d.applyChange(c); err != nil {
				return err
			}
			delete(pending, h)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	if len(pending) > 0 {
		log.Warn("changes left with unresolved dependencies", "count", len(pending))
		return docerr.New(docerr.KindInvalidChange, "some changes' dependencies never resolved")
	}
	return nil
}
