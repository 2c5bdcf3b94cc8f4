// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"sort"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
	"github.com/ldoc/ldoc/value"
)

// View is a read-only window onto materialized state, either the
// document's live objects or a scratch snapshot reconstructed for
// time-travel (spec §4.9). Every Document reader method is a thin
// forwarder onto the document's live View.
type View struct {
	objects *opset.Objects
}

func (d *Document) View() *View { return &View{objects: d.objects} }

func (v *View) object(obj docid.ObjId) (*opset.Object, error) {
	o, ok := v.objects.Get(obj)
	if !ok {
		return nil, docerr.New(docerr.KindInvalidObjID, "unknown object")
	}
	return o, nil
}

// Get returns the winning scalar/object-marker value at a map/table key,
// and the id of the op that produced it (spec §3.4's "greatest OpId
// wins").
func (v *View) Get(obj docid.ObjId, key string) (value.Value, docid.OpId, bool) {
	o, err := v.object(obj)
	if err != nil {
		return value.Value{}, docid.OpId{}, false
	}
	e, ok := o.Winner(key)
	if !ok {
		return value.Value{}, docid.OpId{}, false
	}
	return e.Value, e.ID, true
}

// GetAll returns every entry in key's conflict set, ordered by OpId
// ascending (spec §3.4).
func (v *View) GetAll(obj docid.ObjId, key string) ([]opset.Entry, error) {
	o, err := v.object(obj)
	if err != nil {
		return nil, err
	}
	return o.Conflicts(key), nil
}

// Keys returns a map/table object's keys in lexicographic order.
func (v *View) Keys(obj docid.ObjId) ([]string, error) {
	o, err := v.object(obj)
	if err != nil {
		return nil, err
	}
	return o.Keys(), nil
}

// Values returns the winning value at every key (maps/tables) or every
// visible element's value in sequence order (lists/text).
func (v *View) Values(obj docid.ObjId) ([]value.Value, error) {
	o, err := v.object(obj)
	if err != nil {
		return nil, err
	}
	if o.Type.IsSequence() {
		elems := o.VisibleElements()
		out := make([]value.Value, len(elems))
		for i, e := range elems {
			out[i] = e.Value
		}
		return out, nil
	}
	keys := o.Keys()
	out := make([]value.Value, 0, len(keys))
	for _, k := range keys {
		w, _ := o.Winner(k)
		out = append(out, w.Value)
	}
	return out, nil
}

// Length returns a list/text/table's visible element count.
func (v *View) Length(obj docid.ObjId) (int, error) {
	o, err := v.object(obj)
	if err != nil {
		return 0, err
	}
	if o.Type.IsSequence() {
		return o.VisibleLen(), nil
	}
	return len(o.Keys()), nil
}

// GetIndex returns the value and insert id of the visible element at
// index in a list/text object.
func (v *View) GetIndex(obj docid.ObjId, index int) (value.Value, docid.OpId, bool) {
	o, err := v.object(obj)
	if err != nil {
		return value.Value{}, docid.OpId{}, false
	}
	e, ok := o.ElementAt(index)
	if !ok {
		return value.Value{}, docid.OpId{}, false
	}
	return e.Value, e.InsertID, true
}

// Text concatenates a text object's visible characters.
func (v *View) Text(obj docid.ObjId) (string, error) {
	o, err := v.object(obj)
	if err != nil {
		return "", err
	}
	if o.Type != value.ObjText {
		return "", docerr.New(docerr.KindInvalidOperation, "text requires a text object")
	}
	return o.Text(), nil
}

// ObjectType returns a container's type tag.
func (v *View) ObjectType(obj docid.ObjId) (value.ObjType, bool) {
	o, err := v.object(obj)
	if err != nil {
		return 0, false
	}
	return o.Type, true
}

// Marks returns a sequence's rich-text marks, projected onto current
// visible indices via VisibleIndexOf (spec §4.12). Marks whose anchors
// have since been tombstoned are omitted.
func (v *View) Marks(obj docid.ObjId) ([]ResolvedMark, error) {
	o, err := v.object(obj)
	if err != nil {
		return nil, err
	}
	out := make([]ResolvedMark, 0, len(o.Marks()))
	for _, m := range o.Marks() {
		start, ok := o.VisibleIndexOf(m.StartOp)
		if !ok {
			continue
		}
		end, ok := o.VisibleIndexOf(m.EndOp)
		if !ok {
			continue
		}
		out = append(out, ResolvedMark{Name: m.Name, Value: m.Value, Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ResolvedMark is a Mark projected onto current visible indices.
type ResolvedMark struct {
	Name  string
	Value value.Value
	Start int
	End   int
}

// Document-level forwarders onto the live view, the common case.

func (d *Document) Get(obj docid.ObjId, key string) (value.Value, docid.OpId, bool) {
	return d.View().Get(obj, key)
}

func (d *Document) GetAll(obj docid.ObjId, key string) ([]opset.Entry, error) {
	return d.View().GetAll(obj, key)
}

func (d *Document) Keys(obj docid.ObjId) ([]string, error) { return d.View().Keys(obj) }

func (d *Document) Values(obj docid.ObjId) ([]value.Value, error) { return d.View().Values(obj) }

func (d *Document) Length(obj docid.ObjId) (int, error) { return d.View().Length(obj) }

func (d *Document) GetIndex(obj docid.ObjId, index int) (value.Value, docid.OpId, bool) {
	return d.View().GetIndex(obj, index)
}

func (d *Document) Text(obj docid.ObjId) (string, error) { return d.View().Text(obj) }

func (d *Document) ObjectType(obj docid.ObjId) (value.ObjType, bool) {
	return d.View().ObjectType(obj)
}

func (d *Document) Marks(obj docid.ObjId) ([]ResolvedMark, error) { return d.View().Marks(obj) }
