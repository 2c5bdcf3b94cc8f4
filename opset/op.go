// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package opset implements the operation log and materialized state of
// spec §3.3/§3.4/§4.7: operation identity, the per-object conflict sets and
// RGA sequences derived from it, and reversible application for
// transaction rollback.
package opset

import (
	"github.com/ldoc/ldoc/docid"
	"github.com/ldoc/ldoc/value"
)

// Action names what an operation does to an object (spec §3.3). The wire
// encoding in package change collapses some of these into a compact action
// code plus flags (spec §4.4); this richer enum is the in-memory model.
type Action uint8

const (
	ActionPut Action = iota
	ActionDel
	ActionInsert
	ActionMakeObject
	ActionIncrement
	ActionSpliceText
	ActionMark
)

func (a Action) String() string {
	switch a {
	case ActionPut:
		return "put"
	case ActionDel:
		return "del"
	case ActionInsert:
		return "insert"
	case ActionMakeObject:
		return "make_object"
	case ActionIncrement:
		return "increment"
	case ActionSpliceText:
		return "splice_text"
	case ActionMark:
		return "mark"
	}
	return "?"
}

// IsSequenceOp reports whether this action addresses an object by RGA
// anchor (insert_after) rather than by map key.
func (a Action) IsSequenceOp() bool {
	return a == ActionInsert || a == ActionSpliceText
}

// Op is an immutable record produced by a transaction (spec §3.3).
type Op struct {
	ID     docid.OpId
	Obj    docid.ObjId
	Key    docid.Prop
	Action Action
	Value  value.Value
	Pred   []docid.OpId

	// InsertAfter names the RGA anchor for sequence ops. Nil means
	// "insert at head of sequence".
	InsertAfter *docid.OpId

	// MarkName carries a mark op's attribute name. A mark's anchors are
	// Pred[0] (start, inclusive) and Pred[1] (end, inclusive).
	MarkName string
}
