// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"github.com/ldoc/ldoc/dag"
	"github.com/ldoc/ldoc/docid"
)

// Fork returns an independent copy of d under a freshly-derived actor
// identity (spec §3.5): same materialized state and history, but any new
// transactions it commits are attributed to the new actor and cannot
// collide with d's own op ids.
func (d *Document) Fork() *Document {
	return forkAs(d, docid.NewActorId())
}

// ForkWithActor is Fork with a caller-chosen actor identity, for
// deterministic multi-replica tests.
func (d *Document) ForkWithActor(actor docid.ActorId) *Document {
	return forkAs(d, actor)
}

func forkAs(d *Document, actor docid.ActorId) *Document {
	data := d.Save()
	forked, err := Load(data)
	if err != nil {
		// Save always produces a document this package's own Load accepts;
		// a failure here means materialized state and its own encoder
		// disagree, which is a programming error, not a runtime condition
		// a caller can recover from.
		panic(err)
	}
	forked.actor = actor
	forked.localSeq = 0
	return forked
}

// Merge pulls every change from other that d lacks and applies it (spec
// §4.7): the changes reachable from other's heads but not from d's heads,
// handed to ApplyChanges, which applies each change once its deps are
// present. Changes with no dependency path between them are applied in no
// fixed order; they are not sorted by start_op.
func (d *Document) Merge(other *Document) error {
	missing := other.dag.ReachableNotIn(other.dag.Heads(), d.dag.Heads())
	changes := make([]dag.Change, 0, len(missing))
	for _, h := range missing {
		if c, ok := other.dag.Get(h); ok {
			changes = append(changes, c)
		}
	}
	return d.ApplyChanges(changes)
}
