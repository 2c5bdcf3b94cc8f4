// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package opset

import (
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/value"
)

// Objects holds the materialized state of every object in a document,
// keyed by ObjId (spec §3.4/§3.5). It supports reversible Apply so a
// transaction can roll back a partially-applied op batch (spec §4.8),
// mirroring the teacher's journal/revert pattern for state mutation.
type Objects struct {
	byID   map[docid.ObjId]*Object
	undo   []func()
	marker []int
}

// New returns an Objects with the root map already present (spec §3.5).
func New() *Objects {
	o := &Objects{byID: map[docid.ObjId]*Object{}}
	o.byID[docid.Root] = newObject(value.ObjMap)
	return o
}

// Get returns the object named by id, or ok=false.
func (o *Objects) Get(id docid.ObjId) (*Object, bool) {
	obj, ok := o.byID[id]
	return obj, ok
}

// Snapshot returns a marker that Revert can roll back to.
func (o *Objects) Snapshot() int { return len(o.undo) }

// Revert undoes every change recorded since the given snapshot marker, in
// reverse order (spec §4.8's rollback-on-failed-transaction requirement).
func (o *Objects) Revert(to int) {
	for len(o.undo) > to {
		i := len(o.undo) - 1
		o.undo[i]()
		o.undo = o.undo[:i]
	}
}

func (o *Objects) record(undo func()) { o.undo = append(o.undo, undo) }

// Apply mutates materialized state for op, per the rules of spec §4.7.
// Apply does not detect an op it has already applied; the
// change-application layer checks the op log and skips such ops before
// calling Apply.
func (o *Objects) Apply(op Op) error {
	switch op.Action {
	case ActionMakeObject:
		return o.applyMakeObject(op)
	case ActionPut:
		if op.Key.IsIndex() || op.InsertAfter != nil {
			return o.applyInsert(op)
		}
		return o.applyPut(op)
	case ActionInsert:
		return o.applyInsert(op)
	case ActionSpliceText:
		return o.applyInsert(op)
	case ActionDel:
		if obj, ok := o.byID[op.Obj]; ok && obj.Type.IsSequence() {
			return o.applySeqDel(op)
		}
		if op.Key.IsKey() {
			return o.applyMapDel(op)
		}
		return o.applySeqDel(op)
	case ActionIncrement:
		return o.applyIncrement(op)
	case ActionMark:
		return o.applyMark(op)
	}
	return docerr.New(docerr.KindInvalidOperation, "unknown action")
}

func (o *Objects) applyMakeObject(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "make_object on unknown object")
	}
	if !op.Value.IsObject() {
		return docerr.New(docerr.KindInvalidOperation, "make_object requires an object-type value")
	}
	newObjID := op.ID
	o.byID[newObjID] = newObject(op.Value.ObjType)
	o.record(func() { delete(o.byID, newObjID) })

	if obj.Type.IsSequence() {
		return o.insertElement(obj, op.ID, op.Value, op.InsertAfter)
	}
	return o.putEntry(obj, op.Key.Key, op.ID, op.Value, op.Pred)
}

func (o *Objects) applyPut(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "put on unknown object")
	}
	if obj.Type.IsSequence() {
		return docerr.New(docerr.KindInvalidOperation, "put on a sequence object requires an index or anchor")
	}
	return o.putEntry(obj, op.Key.Key, op.ID, op.Value, op.Pred)
}

func (o *Objects) putEntry(obj *Object, key string, id docid.OpId, v value.Value, pred []docid.OpId) error {
	before := append([]Entry(nil), obj.entries[key]...)
	obj.entries[key] = removeByPred(obj.entries[key], pred)
	obj.entries[key] = append(obj.entries[key], Entry{ID: id, Value: v})
	o.record(func() { obj.entries[key] = before })
	return nil
}

func removeByPred(set []Entry, pred []docid.OpId) []Entry {
	if len(pred) == 0 {
		return append([]Entry(nil), set...)
	}
	predSet := map[docid.OpId]bool{}
	for _, p := range pred {
		predSet[p] = true
	}
	out := make([]Entry, 0, len(set))
	for _, e := range set {
		if !predSet[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func (o *Objects) applyMapDel(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "del on unknown object")
	}
	before := append([]Entry(nil), obj.entries[op.Key.Key]...)
	obj.entries[op.Key.Key] = removeByPred(obj.entries[op.Key.Key], op.Pred)
	o.record(func() { obj.entries[op.Key.Key] = before })
	return nil
}

func (o *Objects) applyInsert(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "insert on unknown object")
	}
	if !obj.Type.IsSequence() {
		return docerr.New(docerr.KindInvalidOperation, "insert on a non-sequence object")
	}
	return o.insertElement(obj, op.ID, op.Value, op.InsertAfter)
}

func (o *Objects) insertElement(obj *Object, id docid.OpId, v value.Value, after *docid.OpId) error {
	pos, err := obj.rgaInsertPos(after, id)
	if err != nil {
		return err
	}
	anchorIdx := -1
	if after != nil {
		anchorIdx = obj.findElementIndex(*after)
	}
	elem := Element{InsertID: id, Value: v, Visible: true}

	obj.elements = append(obj.elements, Element{})
	copy(obj.elements[pos+1:], obj.elements[pos:])
	obj.elements[pos] = elem

	obj.anchors = append(obj.anchors, 0)
	copy(obj.anchors[pos+1:], obj.anchors[pos:])
	obj.anchors[pos] = anchorIdx
	// Anchors stored as indices into elements: any anchor referencing a
	// position at or after pos must shift by one to stay correct.
	for i, a := range obj.anchors {
		if i != pos && a >= pos {
			obj.anchors[i] = a + 1
		}
	}

	o.record(func() {
		obj.elements = append(obj.elements[:pos], obj.elements[pos+1:]...)
		obj.anchors = append(obj.anchors[:pos], obj.anchors[pos+1:]...)
		for i, a := range obj.anchors {
			if a > pos {
				obj.anchors[i] = a - 1
			}
		}
	})
	return nil
}

func (o *Objects) applySeqDel(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "del on unknown object")
	}
	if len(op.Pred) == 0 {
		return docerr.New(docerr.KindInvalidOperation, "sequence delete requires pred")
	}
	idx := obj.findElementIndex(op.Pred[0])
	if idx < 0 {
		return docerr.New(docerr.KindInvalidOperation, "delete references unknown element")
	}
	was := obj.elements[idx].Visible
	obj.elements[idx].Visible = false
	o.record(func() { obj.elements[idx].Visible = was })
	return nil
}

func (o *Objects) applyIncrement(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "increment on unknown object")
	}
	if !op.Value.IsScalar() || op.Value.Scalar.Kind != value.KindInt {
		return docerr.New(docerr.KindInvalidOperation, "increment requires an integer delta")
	}
	delta := op.Value.Scalar.Int

	if obj.Type.IsSequence() {
		if len(op.Pred) == 0 {
			return docerr.New(docerr.KindInvalidOperation, "sequence increment requires pred")
		}
		idx := obj.findElementIndex(op.Pred[0])
		if idx < 0 || !obj.elements[idx].Value.IsScalar() || obj.elements[idx].Value.Scalar.Kind != value.KindCounter {
			return docerr.New(docerr.KindInvalidOperation, "increment on a non-counter element")
		}
		before := obj.elements[idx].Value
		obj.elements[idx].Value = value.FromScalar(value.Counter(before.Scalar.Int + delta))
		o.record(func() { obj.elements[idx].Value = before })
		return nil
	}

	winner, ok := obj.Winner(op.Key.Key)
	if !ok || !winner.Value.IsScalar() || winner.Value.Scalar.Kind != value.KindCounter {
		return docerr.New(docerr.KindInvalidOperation, "increment on a non-counter key")
	}
	set := obj.entries[op.Key.Key]
	before := append([]Entry(nil), set...)
	for i := range set {
		if set[i].ID == winner.ID {
			set[i].Value = value.FromScalar(value.Counter(winner.Value.Scalar.Int + delta))
		}
	}
	o.record(func() { obj.entries[op.Key.Key] = before })
	return nil
}

func (o *Objects) applyMark(op Op) error {
	obj, ok := o.byID[op.Obj]
	if !ok {
		return docerr.New(docerr.KindInvalidObjID, "mark on unknown object")
	}
	if len(op.Pred) < 2 {
		return docerr.New(docerr.KindInvalidOperation, "mark requires start (pred[0]) and end (pred[1]) anchors")
	}
	m := Mark{StartOp: op.Pred[0], EndOp: op.Pred[1], Name: op.MarkName, Value: op.Value}
	obj.marks = append(obj.marks, m)
	o.record(func() { obj.marks = obj.marks[:len(obj.marks)-1] })
	return nil
}
