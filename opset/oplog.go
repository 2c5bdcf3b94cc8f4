// Copyright 2024 The ldoc Authors
// This file is part of the ldoc library.
//
// The ldoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package opset

import "github.com/ldoc/ldoc/docid"

// Log is the append-only record of every operation ever applied to a
// document, in application order (spec §3.5). It doubles as the idempotence
// guard: applying an already-seen OpId is a no-op (spec §4.7).
type Log struct {
	ops  []Op
	seen map[docid.OpId]bool
}

func NewLog() *Log {
	return &Log{seen: map[docid.OpId]bool{}}
}

// Contains reports whether id has already been appended.
func (l *Log) Contains(id docid.OpId) bool { return l.seen[id] }

// Append records op. Returns false without modifying the log if op.ID was
// already present.
func (l *Log) Append(op Op) bool {
	if l.seen[op.ID] {
		return false
	}
	l.seen[op.ID] = true
	l.ops = append(l.ops, op)
	return true
}

// Len returns the number of recorded operations.
func (l *Log) Len() int { return len(l.ops) }

// Ops returns the recorded operations in application order. The slice is
// owned by the caller; callers must not mutate the returned op records.
func (l *Log) Ops() []Op {
	return append([]Op(nil), l.ops...)
}

// Truncate drops every op recorded after index n, clearing their presence
// from the idempotence set. A transaction's ops reach the log only when it
// commits, so a failed transaction is rolled back with Objects.Revert
// alone and does not call Truncate.
func (l *Log) Truncate(n int) {
	for _, op := range l.ops[n:] {
		delete(l.seen, op.ID)
	}
	l.ops = l.ops[:n]
}
