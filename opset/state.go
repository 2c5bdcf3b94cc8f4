// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package opset

import (
	"sort"

	"github.com/ldoc/ldoc/docerr"
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/value"
)

// Entry is one (id, value) pair in a map/table key's conflict set (spec
// §3.4). Concurrent puts accumulate here; the winning entry for
// single-value reads is the one with the greatest OpId.
type Entry struct {
	ID    docid.OpId
	Value value.Value
}

// Element is one position in a list/text sequence (spec §3.4). Deleted
// elements stay in place as tombstones so later RGA resolution remains
// stable.
type Element struct {
	InsertID docid.OpId
	Value    value.Value
	Visible  bool
}

// Mark is a rich-text annotation anchored to two element ids (spec §4.12).
type Mark struct {
	StartOp docid.OpId
	EndOp   docid.OpId
	Name    string
	Value   value.Value
}

// Object is the materialized state of one map/table/list/text object.
type Object struct {
	Type value.ObjType

	// Map/table storage: key -> conflict set, insertion order of keys
	// tracked only implicitly (readers sort lexicographically).
	entries map[string][]Entry

	// List/text storage: RGA-ordered elements, including tombstones.
	// Deletion only tombstones (visible=false); elements are never
	// physically removed, so an element's index is stable for the life
	// of the object.
	elements []Element

	// anchors[i] is the raw index elements[i] was inserted after (-1 for
	// head of sequence), kept parallel to elements so the RGA tie-break
	// scan can tell which elements root back to the same insertion point.
	anchors []int

	// counters is allocated for maps/tables but not read or written:
	// increment updates the counter value held in the key's winning entry.
	counters map[string]int64

	marks []Mark
}

func newObject(t value.ObjType) *Object {
	o := &Object{Type: t}
	if t.IsSequence() {
		o.elements = []Element{}
	} else {
		o.entries = map[string][]Entry{}
		o.counters = map[string]int64{}
	}
	return o
}

// Keys returns the object's map keys in stable lexicographic order (spec
// §4.7).
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.entries))
	for k, set := range o.entries {
		if len(set) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Winner returns the winning entry at key: the one with the greatest OpId.
func (o *Object) Winner(key string) (Entry, bool) {
	set := o.entries[key]
	if len(set) == 0 {
		return Entry{}, false
	}
	best := set[0]
	for _, e := range set[1:] {
		if best.ID.Less(e.ID) {
			best = e
		}
	}
	return best, true
}

// Conflicts returns every entry in key's conflict set, ordered by OpId
// ascending.
func (o *Object) Conflicts(key string) []Entry {
	set := append([]Entry(nil), o.entries[key]...)
	sort.Slice(set, func(i, j int) bool { return set[i].ID.Less(set[j].ID) })
	return set
}

// VisibleLen returns the count of visible (non-tombstoned) elements.
func (o *Object) VisibleLen() int {
	n := 0
	for _, e := range o.elements {
		if e.Visible {
			n++
		}
	}
	return n
}

// VisibleElements returns the visible elements in sequence order.
func (o *Object) VisibleElements() []Element {
	out := make([]Element, 0, len(o.elements))
	for _, e := range o.elements {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

// Text concatenates the visible elements' single-character string values.
func (o *Object) Text() string {
	var sb []byte
	for _, e := range o.elements {
		if !e.Visible {
			continue
		}
		if e.Value.IsScalar() && e.Value.Scalar.Kind == value.KindStr {
			sb = append(sb, e.Value.Scalar.Str...)
		}
	}
	return string(sb)
}

// Marks returns a copy of the stored marks, anchored by element op id;
// View.Marks projects them onto visible indices.
func (o *Object) Marks() []Mark {
	return append([]Mark(nil), o.marks...)
}

// findElementIndex returns the raw (tombstone-inclusive) index of the
// element whose InsertID equals id, or -1.
func (o *Object) findElementIndex(id docid.OpId) int {
	for i, e := range o.elements {
		if e.InsertID == id {
			return i
		}
	}
	return -1
}

// ElementAt returns the visible element at visible index i (spec §4.12's
// cursor resolution target), or ok=false if i is out of range.
func (o *Object) ElementAt(i int) (Element, bool) {
	if i < 0 {
		return Element{}, false
	}
	seen := 0
	for _, e := range o.elements {
		if !e.Visible {
			continue
		}
		if seen == i {
			return e, true
		}
		seen++
	}
	return Element{}, false
}

// VisibleIndexOf resolves id to its current visible position: the count
// of visible elements before it (spec §4.12). ok=false if id names no
// element, or the element has been tombstoned.
func (o *Object) VisibleIndexOf(id docid.OpId) (int, bool) {
	idx := 0
	for _, e := range o.elements {
		if e.InsertID == id {
			if !e.Visible {
				return 0, false
			}
			return idx, true
		}
		if e.Visible {
			idx++
		}
	}
	return 0, false
}

// rgaInsertPos resolves an RGA anchor (nil = head) to the raw index a new
// element belongs at, honoring the tie-break: among several concurrent
// inserts sharing the same insert_after, they are ordered by insert id
// descending (spec §4.7, greatest OpId first).
func (o *Object) rgaInsertPos(after *docid.OpId, newID docid.OpId) (int, error) {
	anchorIdx := -1
	if after != nil {
		anchorIdx = o.findElementIndex(*after)
		if anchorIdx < 0 {
			return 0, docerr.New(docerr.KindInvalidOperation, "insert_after references unknown element")
		}
	}
	pos := anchorIdx + 1
	for pos < len(o.elements) {
		candAnchor := o.anchors[pos]
		if candAnchor == anchorIdx {
			// A direct sibling at the same anchor: descending-id order
			// means we stop as soon as we find one smaller than us.
			if o.elements[pos].InsertID.Less(newID) {
				break
			}
			pos++
			continue
		}
		if candAnchor > anchorIdx {
			// candAnchor roots back to something inserted after our
			// anchor — it belongs to a nested subtree that sorts before
			// us regardless of id; skip over it.
			pos++
			continue
		}
		break
	}
	return pos, nil
}
