// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ldoc

import (
	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/opset"
)

// Cursor is a stable reference to a sequence element: the OpId of the
// insert that created it (spec §4.12). Unlike a plain index, a cursor
// keeps naming the same element across concurrent edits; resolving it
// after the element has been tombstoned reports "no index".
type Cursor struct {
	Obj docid.ObjId
	Elt docid.OpId
}

// CreateCursor captures the element currently at index as a Cursor.
func (d *Document) CreateCursor(obj docid.ObjId, index int) (Cursor, error) {
	_, id, ok := d.GetIndex(obj, index)
	if !ok {
		return Cursor{}, docerr.New(docerr.KindInvalidOperation, "cursor index out of range")
	}
	return Cursor{Obj: obj, Elt: id}, nil
}

// Resolve returns c's current visible index, or ok=false if its element
// has been deleted since the cursor was created.
func (d *Document) Resolve(c Cursor) (int, bool) {
	o, ok := d.objects.Get(c.Obj)
	if !ok {
		return 0, false
	}
	return o.VisibleIndexOf(c.Elt)
}

// ResolveCursor is Resolve evaluated against a historical View (spec
// §4.12 combined with §4.9's time-travel), e.g. the View returned by
// HeadsAt.
func (v *View) ResolveCursor(c Cursor) (int, bool) {
	o, ok := v.objects.Get(c.Obj)
	if !ok {
		return 0, false
	}
	return o.VisibleIndexOf(c.Elt)
}

// HeadsAt reconstructs a read-only View as of a historical heads set
// (spec §4.9): fold over every ancestor change in topological order,
// stopping once the requested heads are reached, into a scratch
// materialized-state store distinct from the live document.
func (d *Document) HeadsAt(heads []docid.ChangeHash) (*View, error) {
	objects := opset.New()
	log := opset.NewLog()
	for _, h := range d.dag.TopoOrderUpTo(heads) {
		c, ok := d.dag.Get(h)
		if !ok {
			continue
		}
		for _, op := range c.Ops {
			if log.Contains(op.ID) {
				continue
			}
			if err := objects.Apply(op); err != nil {
				return nil, err
			}
			log.Append(op)
		}
	}
	return &View{objects: objects}, nil
}
