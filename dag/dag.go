// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package dag

import (
	"sort"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
)

// DAG tracks every change a document has seen, its causal edges, the
// current frontier (heads) and the per-actor vector clock (spec §3.5).
type DAG struct {
	changes  map[docid.ChangeHash]Change
	children map[docid.ChangeHash][]docid.ChangeHash
	heads    map[docid.ChangeHash]bool
	clock    map[docid.ActorId]uint64
}

func New() *DAG {
	return &DAG{
		changes:  map[docid.ChangeHash]Change{},
		children: map[docid.ChangeHash][]docid.ChangeHash{},
		heads:    map[docid.ChangeHash]bool{},
		clock:    map[docid.ActorId]uint64{},
	}
}

// Has reports whether hash is already known.
func (d *DAG) Has(hash docid.ChangeHash) bool {
	_, ok := d.changes[hash]
	return ok
}

// Get returns the change record for hash.
func (d *DAG) Get(hash docid.ChangeHash) (Change, bool) {
	c, ok := d.changes[hash]
	return c, ok
}

// Heads returns the current DAG frontier, sorted ascending.
func (d *DAG) Heads() []docid.ChangeHash {
	out := make([]docid.ChangeHash, 0, len(d.heads))
	for h := range d.heads {
		out = append(out, h)
	}
	docid.SortHashes(out)
	return out
}

// SetHeads replaces the frontier wholesale (used when loading a document
// chunk, which stores heads explicitly rather than deriving them).
func (d *DAG) SetHeads(heads []docid.ChangeHash) {
	d.heads = map[docid.ChangeHash]bool{}
	for _, h := range heads {
		d.heads[h] = true
	}
}

// VectorClock returns a copy of the actor -> highest-applied-seq map.
func (d *DAG) VectorClock() map[docid.ActorId]uint64 {
	out := make(map[docid.ActorId]uint64, len(d.clock))
	for a, s := range d.clock {
		out[a] = s
	}
	return out
}

// SetVectorClock replaces the clock wholesale (used on document load).
func (d *DAG) SetVectorClock(clock map[docid.ActorId]uint64) {
	d.clock = map[docid.ActorId]uint64{}
	for a, s := range clock {
		d.clock[a] = s
	}
}

// Seq returns the highest seq recorded for actor, or 0.
func (d *DAG) Seq(actor docid.ActorId) uint64 { return d.clock[actor] }

// AddChange inserts c (whose Hash must already be computed) into the DAG.
// It requires every dependency to be already known; callers are
// responsible for deferring changes with missing parents (spec §7).
// Heads become (heads - deps) ∪ {c.Hash}.
func (d *DAG) AddChange(c Change) error {
	if d.Has(c.Hash) {
		return nil
	}
	for _, dep := range c.Deps {
		if !d.Has(dep) {
			return docerr.New(docerr.KindInvalidChange, "change dependency not yet known")
		}
	}
	d.changes[c.Hash] = c
	for _, dep := range c.Deps {
		d.children[dep] = append(d.children[dep], c.Hash)
		delete(d.heads, dep)
	}
	d.heads[c.Hash] = true
	if c.Seq > d.clock[c.Actor] {
		d.clock[c.Actor] = c.Seq
	}
	return nil
}

// AncestorsInclusive returns the set of hashes reachable backward from
// froms, including froms themselves.
func (d *DAG) AncestorsInclusive(froms []docid.ChangeHash) map[docid.ChangeHash]bool {
	seen := map[docid.ChangeHash]bool{}
	var stack []docid.ChangeHash
	stack = append(stack, froms...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] {
			continue
		}
		seen[h] = true
		if c, ok := d.changes[h]; ok {
			stack = append(stack, c.Deps...)
		}
	}
	return seen
}

// DescendantsInclusive returns the set of hashes reachable forward from
// froms, including froms themselves.
func (d *DAG) DescendantsInclusive(froms []docid.ChangeHash) map[docid.ChangeHash]bool {
	seen := map[docid.ChangeHash]bool{}
	var stack []docid.ChangeHash
	stack = append(stack, froms...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] {
			continue
		}
		seen[h] = true
		stack = append(stack, d.children[h]...)
	}
	return seen
}

// ReachableNotIn returns hashes reachable backward from froms but not
// reachable backward from excluding — the "changes X has that Y lacks"
// computation used by sync generate (spec §4.11) and merge (spec §4.7).
func (d *DAG) ReachableNotIn(froms, excluding []docid.ChangeHash) []docid.ChangeHash {
	include := d.AncestorsInclusive(froms)
	exclude := d.AncestorsInclusive(excluding)
	out := make([]docid.ChangeHash, 0, len(include))
	for h := range include {
		if !exclude[h] {
			out = append(out, h)
		}
	}
	docid.SortHashes(out)
	return out
}

// TopoOrder returns every known change in a valid topological order
// (parents before children), ties broken by StartOp then Hash so replay
// order is deterministic across peers (spec §4.7's "sorts them by
// start_op").
func (d *DAG) TopoOrder() []docid.ChangeHash {
	return d.topoOrderOver(d.allHashes())
}

// TopoOrderUpTo returns the ancestors of heads (inclusive) in topological
// order, used for time-travel reconstruction (spec §4.9): fold over
// changes in this order and stop once the requested heads are reached.
func (d *DAG) TopoOrderUpTo(heads []docid.ChangeHash) []docid.ChangeHash {
	set := d.AncestorsInclusive(heads)
	hashes := make([]docid.ChangeHash, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	return d.topoOrderOver(hashes)
}

func (d *DAG) allHashes() []docid.ChangeHash {
	out := make([]docid.ChangeHash, 0, len(d.changes))
	for h := range d.changes {
		out = append(out, h)
	}
	return out
}

func (d *DAG) topoOrderOver(subset []docid.ChangeHash) []docid.ChangeHash {
	include := map[docid.ChangeHash]bool{}
	for _, h := range subset {
		include[h] = true
	}
	indegree := map[docid.ChangeHash]int{}
	for _, h := range subset {
		c := d.changes[h]
		for _, dep := range c.Deps {
			if include[dep] {
				indegree[h]++
			}
		}
	}

	ready := make([]docid.ChangeHash, 0)
	for _, h := range subset {
		if indegree[h] == 0 {
			ready = append(ready, h)
		}
	}
	sortFrontier := func(hs []docid.ChangeHash) {
		sort.Slice(hs, func(i, j int) bool {
			ci, cj := d.changes[hs[i]], d.changes[hs[j]]
			if ci.StartOp != cj.StartOp {
				return ci.StartOp < cj.StartOp
			}
			return hs[i].Less(hs[j])
		})
	}

	// childrenWithin restricts the forward edges to the requested subset.
	childrenWithin := map[docid.ChangeHash][]docid.ChangeHash{}
	for _, h := range subset {
		c := d.changes[h]
		for _, dep := range c.Deps {
			if include[dep] {
				childrenWithin[dep] = append(childrenWithin[dep], h)
			}
		}
	}

	var out []docid.ChangeHash
	for len(ready) > 0 {
		sortFrontier(ready)
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)
		for _, ch := range childrenWithin[next] {
			indegree[ch]--
			if indegree[ch] == 0 {
				ready = append(ready, ch)
			}
		}
	}
	return out
}
