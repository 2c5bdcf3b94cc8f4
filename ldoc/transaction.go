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
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/value"
)

// Transaction accumulates a batch of operations against a document,
// applying each one to materialized state immediately so later ops in the
// same batch observe earlier ones, while keeping enough of a journal to
// roll everything back atomically if the batch is abandoned (spec §4.8).
type Transaction struct {
	doc      *Document
	ops      []opset.Op
	startOp  uint64
	snapshot int
	message  string
	done     bool
}

// Transact opens a transaction, runs fn against it, and commits on
// success. If fn returns an error, or Transact itself fails to apply an
// op, every mutation made during the transaction is reverted and no
// change is recorded (spec §4.8, §7's "transactions roll back
// immediately").
func (d *Document) Transact(fn func(tx *Transaction) error) (dag.Change, error) {
	tx := d.begin()
	if err := fn(tx); err != nil {
		tx.abort()
		return dag.Change{}, err
	}
	return tx.commit()
}

func (d *Document) begin() *Transaction {
	return &Transaction{
		doc:      d,
		startOp:  d.nextCounter,
		snapshot: d.objects.Snapshot(),
	}
}

// SetMessage attaches a human-readable commit message to the
// transaction's eventual change.
func (tx *Transaction) SetMessage(msg string) { tx.message = msg }

func (tx *Transaction) nextID() docid.OpId {
	id := docid.OpId{Counter: tx.doc.nextCounter, Actor: tx.doc.actor}
	tx.doc.nextCounter++
	return id
}

func (tx *Transaction) push(op opset.Op) (docid.OpId, error) {
	if err := tx.doc.objects.Apply(op); err != nil {
		return docid.OpId{}, err
	}
	tx.ops = append(tx.ops, op)
	return op.ID, nil
}

func (tx *Transaction) abort() {
	tx.doc.objects.Revert(tx.snapshot)
	tx.doc.nextCounter = tx.startOp
	tx.done = true
}

// commit packages the accumulated ops into a change, appends it to the
// log and DAG, and returns it. An empty transaction (no ops) still
// produces a change, matching "every transact call commits its own
// change" (spec §4.8).
func (tx *Transaction) commit() (dag.Change, error) {
	if tx.done {
		return dag.Change{}, docerr.New(docerr.KindInvalidOperation, "transaction already finished")
	}
	tx.done = true
	d := tx.doc

	c := dag.Change{
		Actor:   d.actor,
		Seq:     d.localSeq + 1,
		StartOp: tx.startOp,
		HasMsg:  tx.message != "",
		Message: tx.message,
		Deps:    d.dag.Heads(),
		Ops:     tx.ops,
	}
	c = hashChange(c, d.isSequence)

	for _, op := range tx.ops {
		d.log.Append(op)
	}
	if err := d.dag.AddChange(c); err != nil {
		return dag.Change{}, err
	}
	d.localSeq = c.Seq
	return c, nil
}

// conflictPred returns the ids of every entry currently in key's conflict
// set: a local put/delete supersedes everything it can see (spec §3.4).
func conflictPred(obj *opset.Object, key string) []docid.OpId {
	conflicts := obj.Conflicts(key)
	pred := make([]docid.OpId, len(conflicts))
	for i, e := range conflicts {
		pred[i] = e.ID
	}
	return pred
}

func (tx *Transaction) mustObject(obj docid.ObjId) (*opset.Object, error) {
	o, ok := tx.doc.objects.Get(obj)
	if !ok {
		return nil, docerr.New(docerr.KindInvalidObjID, "unknown object")
	}
	return o, nil
}

// Put assigns a scalar value to a map/table key, superseding whatever was
// there (spec §3.3). Use MakeObject to create a nested container instead.
func (tx *Transaction) Put(obj docid.ObjId, key string, v value.ScalarValue) (docid.OpId, error) {
	o, err := tx.mustObject(obj)
	if err != nil {
		return docid.OpId{}, err
	}
	if o.Type.IsSequence() {
		return docid.OpId{}, docerr.New(docerr.KindInvalidOperation, "put requires a map or table object")
	}
	id := tx.nextID()
	return tx.push(opset.Op{
		ID: id, Obj: obj, Key: docid.Key(key),
		Action: opset.ActionPut, Value: value.FromScalar(v),
		Pred: conflictPred(o, key),
	})
}

// MakeObject creates a nested map/list/text/table under a map/table key
// and returns the new object's id.
func (tx *Transaction) MakeObject(obj docid.ObjId, key string, t value.ObjType) (docid.ObjId, error) {
	o, err := tx.mustObject(obj)
	if err != nil {
		return docid.ObjId{}, err
	}
	if o.Type.IsSequence() {
		return docid.ObjId{}, docerr.New(docerr.KindInvalidOperation, "make_object on a key requires a map or table object")
	}
	id := tx.nextID()
	if _, err := tx.push(opset.Op{
		ID: id, Obj: obj, Key: docid.Key(key),
		Action: opset.ActionMakeObject, Value: value.NewObject(t),
		Pred: conflictPred(o, key),
	}); err != nil {
		return docid.ObjId{}, err
	}
	return id, nil
}

// Delete removes a map/table key's entire conflict set.
func (tx *Transaction) Delete(obj docid.ObjId, key string) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	pred := conflictPred(o, key)
	if len(pred) == 0 {
		return nil
	}
	id := tx.nextID()
	_, err = tx.push(opset.Op{ID: id, Obj: obj, Key: docid.Key(key), Action: opset.ActionDel, Pred: pred})
	return err
}

// anchorAt resolves a visible sequence index to the RGA anchor (nil for
// head) that the next insert at that position attaches after.
func anchorAt(o *opset.Object, index int) (*docid.OpId, error) {
	if index == 0 {
		return nil, nil
	}
	elem, ok := o.ElementAt(index - 1)
	if !ok {
		return nil, docerr.New(docerr.KindInvalidOperation, "insert index out of range")
	}
	id := elem.InsertID
	return &id, nil
}

// Insert adds a scalar element at visible index, shifting later elements
// right (spec §3.3/§3.4).
func (tx *Transaction) Insert(obj docid.ObjId, index int, v value.ScalarValue) (docid.OpId, error) {
	o, err := tx.mustObject(obj)
	if err != nil {
		return docid.OpId{}, err
	}
	if !o.Type.IsSequence() {
		return docid.OpId{}, docerr.New(docerr.KindInvalidOperation, "insert requires a list or text object")
	}
	after, err := anchorAt(o, index)
	if err != nil {
		return docid.OpId{}, err
	}
	id := tx.nextID()
	return tx.push(opset.Op{
		ID: id, Obj: obj, Key: docid.Index(index), Action: opset.ActionInsert, Value: value.FromScalar(v), InsertAfter: after,
	})
}

// InsertObject inserts a new nested container at visible index and
// returns its id.
func (tx *Transaction) InsertObject(obj docid.ObjId, index int, t value.ObjType) (docid.ObjId, error) {
	o, err := tx.mustObject(obj)
	if err != nil {
		return docid.ObjId{}, err
	}
	if !o.Type.IsSequence() {
		return docid.ObjId{}, docerr.New(docerr.KindInvalidOperation, "insert requires a list or text object")
	}
	after, err := anchorAt(o, index)
	if err != nil {
		return docid.ObjId{}, err
	}
	id := tx.nextID()
	if _, err := tx.push(opset.Op{
		ID: id, Obj: obj, Key: docid.Index(index), Action: opset.ActionMakeObject, Value: value.NewObject(t), InsertAfter: after,
	}); err != nil {
		return docid.ObjId{}, err
	}
	return id, nil
}

// DeleteIndex tombstones count consecutive visible elements starting at
// index (spec §3.3).
func (tx *Transaction) DeleteIndex(obj docid.ObjId, index, count int) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	if !o.Type.IsSequence() {
		return docerr.New(docerr.KindInvalidOperation, "delete-index requires a list or text object")
	}
	for i := 0; i < count; i++ {
		elem, ok := o.ElementAt(index)
		if !ok {
			return docerr.New(docerr.KindInvalidOperation, "delete-index out of range")
		}
		id := tx.nextID()
		op := opset.Op{ID: id, Obj: obj, Key: docid.Index(index), Action: opset.ActionDel, Pred: []docid.OpId{elem.InsertID}}
		if _, err := tx.push(op); err != nil {
			return err
		}
	}
	return nil
}

// SpliceText deletes deleteCount characters at index and inserts text in
// their place, one op per rune, chained off the same anchor (spec §3.3's
// splice_text, the text-specific flavor of insert).
func (tx *Transaction) SpliceText(obj docid.ObjId, index, deleteCount int, text string) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	if o.Type != value.ObjText {
		return docerr.New(docerr.KindInvalidOperation, "splice_text requires a text object")
	}
	if deleteCount > 0 {
		if err := tx.DeleteIndex(obj, index, deleteCount); err != nil {
			return err
		}
	}
	after, err := anchorAt(o, index)
	if err != nil {
		return err
	}
	for _, r := range text {
		id := tx.nextID()
		if _, err := tx.push(opset.Op{
			ID: id, Obj: obj, Action: opset.ActionSpliceText,
			Value: value.FromScalar(value.Str(string(r))), InsertAfter: after,
		}); err != nil {
			return err
		}
		after = &id
	}
	return nil
}

// Set replaces the value of an existing sequence element at visible
// index, implemented as a tombstone of the old element followed by an
// insert of the new value at the same position — the list/text analogue
// of a map put, expressed with the primitives the materialized-state
// layer already understands (spec §7's public API lists "set" alongside
// "put" as a distinct list operation).
func (tx *Transaction) Set(obj docid.ObjId, index int, v value.ScalarValue) error {
	if err := tx.DeleteIndex(obj, index, 1); err != nil {
		return err
	}
	_, err := tx.Insert(obj, index, v)
	return err
}

// Increment adds delta to the counter at a map/table key.
func (tx *Transaction) Increment(obj docid.ObjId, key string, delta int64) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	winner, ok := o.Winner(key)
	if !ok {
		return docerr.New(docerr.KindInvalidOperation, "increment on a key with no value")
	}
	id := tx.nextID()
	_, err = tx.push(opset.Op{
		ID: id, Obj: obj, Key: docid.Key(key), Action: opset.ActionIncrement,
		Value: value.FromScalar(value.Int(delta)), Pred: []docid.OpId{winner.ID},
	})
	return err
}

// IncrementIndex adds delta to the counter at a sequence's visible index.
func (tx *Transaction) IncrementIndex(obj docid.ObjId, index int, delta int64) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	elem, ok := o.ElementAt(index)
	if !ok {
		return docerr.New(docerr.KindInvalidOperation, "increment index out of range")
	}
	id := tx.nextID()
	_, err = tx.push(opset.Op{
		ID: id, Obj: obj, Action: opset.ActionIncrement,
		Value: value.FromScalar(value.Int(delta)), Pred: []docid.OpId{elem.InsertID},
	})
	return err
}

// Mark annotates the visible elements in [startIndex, endIndex] of a
// sequence with a named, valued rich-text attribute (spec §4.12).
func (tx *Transaction) Mark(obj docid.ObjId, startIndex, endIndex int, name string, v value.ScalarValue) error {
	o, err := tx.mustObject(obj)
	if err != nil {
		return err
	}
	if !o.Type.IsSequence() {
		return docerr.New(docerr.KindInvalidOperation, "mark requires a list or text object")
	}
	start, ok := o.ElementAt(startIndex)
	if !ok {
		return docerr.New(docerr.KindInvalidOperation, "mark start index out of range")
	}
	end, ok := o.ElementAt(endIndex)
	if !ok {
		return docerr.New(docerr.KindInvalidOperation, "mark end index out of range")
	}
	id := tx.nextID()
	_, err = tx.push(opset.Op{
		ID: id, Obj: obj, Action: opset.ActionMark, Value: value.FromScalar(v),
		MarkName: name, Pred: []docid.OpId{start.InsertID, end.InsertID},
	})
	return err
}
