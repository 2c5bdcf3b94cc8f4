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
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/value"
)

// PatchKind names the collapsed change notification emitted by
// TransactWithPatches (spec §4.8).
type PatchKind uint8

const (
	PatchPut PatchKind = iota
	PatchInsert
	PatchDelete
	PatchDeleteKey
	PatchSpliceText
	PatchIncrement
)

// Patch is one collapsed, UI-friendly description of a mutation. Delete
// coalesces consecutive index deletions into one record; SpliceText
// folds a run of adjacent single-character inserts into one.
type Patch struct {
	Kind  PatchKind
	Obj   docid.ObjId
	Key   string
	Count int
	Value value.Value
	Text  string
	Delta int64
}

// TransactWithPatches runs fn like Transact, then converts the committed
// ops into coalesced patches (spec §4.8): put/make_object -> Put,
// insert/make_object-in-sequence -> Insert, del-on-index -> Delete with
// consecutive-delete coalescing, adjacent splice_text ops -> one
// SpliceText, increment -> Increment.
func (d *Document) TransactWithPatches(fn func(tx *Transaction) error) (dag.Change, []Patch, error) {
	c, err := d.Transact(fn)
	if err != nil {
		return dag.Change{}, nil, err
	}
	return c, opsToPatches(c.Ops), nil
}

func opsToPatches(ops []opset.Op) []Patch {
	var out []Patch
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		switch op.Action {
		case opset.ActionPut, opset.ActionMakeObject:
			if op.Key.IsIndex() {
				out = append(out, Patch{Kind: PatchInsert, Obj: op.Obj, Value: op.Value})
				continue
			}
			out = append(out, Patch{Kind: PatchPut, Obj: op.Obj, Key: op.Key.Key, Value: op.Value})

		case opset.ActionInsert:
			out = append(out, Patch{Kind: PatchInsert, Obj: op.Obj, Value: op.Value})

		case opset.ActionSpliceText:
			if n := len(out); n > 0 && out[n-1].Kind == PatchSpliceText && out[n-1].Obj == op.Obj {
				out[n-1].Text += op.Value.Scalar.Str
				continue
			}
			out = append(out, Patch{Kind: PatchSpliceText, Obj: op.Obj, Text: op.Value.Scalar.Str})

		case opset.ActionDel:
			if op.Key.IsKey() {
				out = append(out, Patch{Kind: PatchDeleteKey, Obj: op.Obj, Key: op.Key.Key})
				continue
			}
			if n := len(out); n > 0 && out[n-1].Kind == PatchDelete && out[n-1].Obj == op.Obj {
				out[n-1].Count++
				continue
			}
			out = append(out, Patch{Kind: PatchDelete, Obj: op.Obj, Count: 1})

		case opset.ActionIncrement:
			out = append(out, Patch{Kind: PatchIncrement, Obj: op.Obj, Key: op.Key.Key, Delta: op.Value.Scalar.Int})

		case opset.ActionMark:
			// Marks are queried, not patched; spec §4.8 lists no mark patch.
		}
	}
	return out
}
